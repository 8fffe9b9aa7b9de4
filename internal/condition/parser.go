package condition

import (
	"fmt"
)

type node interface {
	eval() (value, error)
}

type literalNode struct {
	v value
}

type unaryNode struct {
	op string
	x  node
}

type notNode struct {
	x node
}

type binaryNode struct {
	op   string
	l, r node
}

// logicalNode is `and` or `or`, both short circuit and yield an operand.
type logicalNode struct {
	and  bool
	l, r node
}

// compareNode is a chain `a < b <= c`, evaluated pairwise like Python.
type compareNode struct {
	operands []node
	ops      []string
}

type parser struct {
	tokens []token
	pos    int
}

// parse turns a resolved expression into a tree, no identifiers survive
// parsing, so a bare word is a syntax error.
func parse(src string) (node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	if p.peek().kind == tokEOF {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %s", ErrSyntax, tok)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	tok := p.peek()
	if tok.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if tok.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) acceptWord(word string) bool {
	tok := p.peek()
	if tok.kind == tokWord && tok.text == word {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		_, isOp := p.acceptOp("||")
		if !isOp && !p.acceptWord("or") {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logicalNode{and: false, l: left, r: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		_, isOp := p.acceptOp("&&")
		if !isOp && !p.acceptWord("and") {
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = logicalNode{and: true, l: left, r: right}
	}
}

func (p *parser) parseNot() (node, error) {
	_, isOp := p.acceptOp("!")
	if isOp || p.acceptWord("not") {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notNode{x: x}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	first, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	cmp := compareNode{operands: []node{first}}
	for {
		op, ok := p.acceptOp("<", "<=", ">", ">=", "==", "!=")
		if !ok {
			break
		}
		operand, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		cmp.ops = append(cmp.ops, op)
		cmp.operands = append(cmp.operands, operand)
	}
	if len(cmp.ops) == 0 {
		return first, nil
	}
	return cmp, nil
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, l: left, r: right}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("*", "/", "//", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, l: left, r: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if op, ok := p.acceptOp("-", "+"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return literalNode{v: numberValue(tok.num)}, nil
	case tokString:
		return literalNode{v: stringValue(tok.text)}, nil
	case tokWord:
		switch tok.text {
		case "True":
			return literalNode{v: boolValue(true)}, nil
		case "False":
			return literalNode{v: boolValue(false)}, nil
		case "None":
			return literalNode{v: noneValue}, nil
		}
		return nil, fmt.Errorf("%w: unexpected name %s", ErrSyntax, tok)
	case tokOp:
		if tok.text == "(" {
			inner, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if _, ok := p.acceptOp(")"); !ok {
				return nil, fmt.Errorf("%w: expected ) but got %s", ErrSyntax, p.peek())
			}
			return inner, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected %s", ErrSyntax, tok)
}
