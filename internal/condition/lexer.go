package condition

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokWord
	tokOp
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q at %d", t.text, t.pos)
}

// operators are matched longest first.
var operators = []string{
	"//", "<=", ">=", "==", "!=", "&&", "||",
	"<", ">", "+", "-", "*", "/", "%", "(", ")", "!",
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isWordChar(c byte) bool {
	return isWordStart(c) || isDigit(c)
}

func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || c == '.' && i+1 < len(src) && isDigit(src[i+1]):
			tok, next, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		case c == '"' || c == '\'':
			tok, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		case isWordStart(c):
			start := i
			for i < len(src) && isWordChar(src[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokWord, text: src[start:i], pos: start})
		default:
			op := ""
			for _, candidate := range operators {
				if strings.HasPrefix(src[i:], candidate) {
					op = candidate
					break
				}
			}
			if op == "" {
				return nil, fmt.Errorf("%w: unexpected character %q at %d", ErrSyntax, c, i)
			}
			tokens = append(tokens, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(src)}), nil
}

func lexNumber(src string, start int) (token, int, error) {
	i := start
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			i = j
		}
	}
	if i < len(src) && isWordChar(src[i]) {
		return token{}, 0, fmt.Errorf("%w: malformed number at %d", ErrSyntax, start)
	}

	text := src[start:i]
	num, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, 0, fmt.Errorf("%w: malformed number %q at %d", ErrSyntax, text, start)
	}
	return token{kind: tokNumber, text: text, num: num, pos: start}, i, nil
}

func lexString(src string, start int) (token, int, error) {
	quote := src[start]
	var out strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		switch {
		case c == quote:
			return token{kind: tokString, text: out.String(), pos: start}, i + 1, nil
		case c == '\\' && i+1 < len(src):
			// strconv handles the escapes Go and Python share
			value, _, tail, err := strconv.UnquoteChar(src[i:], quote)
			if err != nil {
				return token{}, 0, fmt.Errorf("%w: bad escape at %d", ErrSyntax, i)
			}
			out.WriteRune(value)
			i = len(src) - len(tail)
		default:
			out.WriteByte(c)
			i++
		}
	}
	return token{}, 0, fmt.Errorf("%w: unterminated string at %d", ErrSyntax, start)
}
