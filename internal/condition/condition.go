// Package condition implements the `%field` condition language rules filter
// listings with. An expression is first resolved against a record, every
// `%name` token is replaced by the literal of the field, and the resolved
// text is then evaluated by a small interpreter.
package condition

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var (
	ErrSyntax = errors.New("condition syntax error")
	ErrEval   = errors.New("condition evaluation error")
)

// Record is anything `%name` tokens can be resolved against. Field returns nil
// for missing fields, numbers should be json.Number or a Go number.
type Record interface {
	Field(name string) any
}

// AttrRecord additionally resolves `%attr.Name` tokens. ok is false for
// unknown attribute names.
type AttrRecord interface {
	Record
	Attr(name string) (float64, bool)
}

const attrPrefix = "attr."

func isNameChar(c byte) bool {
	return isWordChar(c) || c == '.'
}

// Resolve substitutes every `%name` token of expr in a single left to right
// pass. A token ends at whitespace or at the first character that cannot be
// part of a name, substituted text is never scanned again. A `%` that is not
// followed by a name is left alone.
func Resolve(expr string, rec Record) string {
	var out strings.Builder
	i := 0
	for i < len(expr) {
		c := expr[i]
		if c != '%' {
			out.WriteByte(c)
			i++
			continue
		}

		end := i + 1
		for end < len(expr) && isNameChar(expr[end]) {
			end++
		}
		name := expr[i+1 : end]
		if name == "" {
			out.WriteByte(c)
			i++
			continue
		}
		out.WriteString(literal(lookup(rec, name)))
		i = end
	}
	return out.String()
}

func lookup(rec Record, name string) any {
	if rec == nil {
		return nil
	}
	attr, isAttr := strings.CutPrefix(name, attrPrefix)
	if isAttr {
		attrs, ok := rec.(AttrRecord)
		if !ok {
			return nil
		}
		v, ok := attrs.Attr(attr)
		if !ok {
			return nil
		}
		return v
	}
	return rec.Field(name)
}

// literal renders a field value as expression text.
func literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case bool:
		return boolValue(v).String()
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return strconv.Quote(v)
	}
	return "None"
}

// Evaluate interprets a resolved expression and converts the result to a
// boolean, None, 0 and "" are false.
func Evaluate(resolved string) (bool, error) {
	tree, err := parse(resolved)
	if err != nil {
		return false, err
	}
	v, err := tree.eval()
	if err != nil {
		return false, err
	}
	return v.truthy(), nil
}

// Match resolves expr against rec and evaluates it. An empty expression
// matches every record.
func Match(expr string, rec Record) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return true, nil
	}
	return Evaluate(Resolve(expr, rec))
}

// Check reports syntax errors of an unresolved expression, tokens are
// resolved against an empty record first.
func Check(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := parse(Resolve(expr, nil))
	return err
}
