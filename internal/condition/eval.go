package condition

import (
	"fmt"
	"math"
	"strconv"
)

type valueKind int

const (
	kindNone valueKind = iota
	kindNumber
	kindString
	kindBool
)

type value struct {
	kind valueKind
	num  float64
	str  string
	b    bool
}

var noneValue = value{kind: kindNone}

func numberValue(n float64) value { return value{kind: kindNumber, num: n} }
func stringValue(s string) value  { return value{kind: kindString, str: s} }
func boolValue(b bool) value      { return value{kind: kindBool, b: b} }

func (v value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindString:
		return strconv.Quote(v.str)
	case kindBool:
		if v.b {
			return "True"
		}
		return "False"
	}
	return "None"
}

func (v value) truthy() bool {
	switch v.kind {
	case kindNumber:
		return v.num != 0
	case kindString:
		return v.str != ""
	case kindBool:
		return v.b
	}
	return false
}

// numeric reports the value as a number, booleans count as 0 and 1.
func (v value) numeric() (float64, bool) {
	switch v.kind {
	case kindNumber:
		return v.num, true
	case kindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (n literalNode) eval() (value, error) {
	return n.v, nil
}

func (n notNode) eval() (value, error) {
	x, err := n.x.eval()
	if err != nil {
		return value{}, err
	}
	return boolValue(!x.truthy()), nil
}

func (n logicalNode) eval() (value, error) {
	l, err := n.l.eval()
	if err != nil {
		return value{}, err
	}
	if n.and != l.truthy() {
		return l, nil
	}
	return n.r.eval()
}

func (n unaryNode) eval() (value, error) {
	x, err := n.x.eval()
	if err != nil {
		return value{}, err
	}
	if x.kind == kindNone {
		return noneValue, nil
	}
	num, ok := x.numeric()
	if !ok {
		return value{}, fmt.Errorf("%w: bad operand for unary %s: %s", ErrEval, n.op, x)
	}
	if n.op == "-" {
		return numberValue(-num), nil
	}
	return numberValue(num), nil
}

func (n binaryNode) eval() (value, error) {
	l, err := n.l.eval()
	if err != nil {
		return value{}, err
	}
	r, err := n.r.eval()
	if err != nil {
		return value{}, err
	}
	if l.kind == kindNone || r.kind == kindNone {
		return noneValue, nil
	}
	if n.op == "+" && l.kind == kindString && r.kind == kindString {
		return stringValue(l.str + r.str), nil
	}

	a, lok := l.numeric()
	b, rok := r.numeric()
	if !lok || !rok {
		return value{}, fmt.Errorf("%w: unsupported operands for %s: %s and %s", ErrEval, n.op, l, r)
	}

	switch n.op {
	case "+":
		return numberValue(a + b), nil
	case "-":
		return numberValue(a - b), nil
	case "*":
		return numberValue(a * b), nil
	}

	if b == 0 {
		return value{}, fmt.Errorf("%w: division by zero", ErrEval)
	}
	switch n.op {
	case "/":
		return numberValue(a / b), nil
	case "//":
		return numberValue(math.Floor(a / b)), nil
	case "%":
		// the result takes the sign of the divisor
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return numberValue(m), nil
	}
	return value{}, fmt.Errorf("%w: unknown operator %s", ErrEval, n.op)
}

func (n compareNode) eval() (value, error) {
	left, err := n.operands[0].eval()
	if err != nil {
		return value{}, err
	}
	for i, op := range n.ops {
		right, err := n.operands[i+1].eval()
		if err != nil {
			return value{}, err
		}
		if !compare(op, left, right) {
			return boolValue(false), nil
		}
		left = right
	}
	return boolValue(true), nil
}

// compare is false whenever either side is None. Numbers and strings are
// never equal and never ordered against each other.
func compare(op string, l, r value) bool {
	if l.kind == kindNone || r.kind == kindNone {
		return false
	}

	if l.kind == kindString && r.kind == kindString {
		switch op {
		case "<":
			return l.str < r.str
		case "<=":
			return l.str <= r.str
		case ">":
			return l.str > r.str
		case ">=":
			return l.str >= r.str
		case "==":
			return l.str == r.str
		case "!=":
			return l.str != r.str
		}
		return false
	}

	a, lok := l.numeric()
	b, rok := r.numeric()
	if !lok || !rok {
		// one string, one number
		return op == "!="
	}
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "==":
		return a == b
	case "!=":
		return a != b
	}
	return false
}
