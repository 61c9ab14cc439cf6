package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pubshare/internal/baas"
)

// The filter language supports comparisons joined with && and ||, grouped
// with parentheses:
//
//	(title ~ 'neural' || abstract ~ 'neural') && public = true
//
// Operators: = != ~ !~ > >= < <=. Literals: single or double quoted strings
// with backslash escapes, numbers, true, false, null.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokOp
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == '&' || r == '|':
			if i+1 >= len(runes) || runes[i+1] != r {
				return nil, fmt.Errorf("unexpected %q at %d", r, i)
			}
			kind := tokAnd
			if r == '|' {
				kind = tokOr
			}
			tokens = append(tokens, token{kind: kind, text: string([]rune{r, r}), pos: i})
			i += 2
		case r == '\'' || r == '"':
			quote := r
			start := i
			i++
			var sb strings.Builder
			closed := false
			for i < len(runes) {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) {
					sb.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if c == quote {
					closed = true
					i++
					break
				}
				sb.WriteRune(c)
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string at %d", start)
			}
			tokens = append(tokens, token{kind: tokString, text: sb.String(), pos: start})
		case strings.ContainsRune("=!~<>", r):
			start := i
			op := string(r)
			if i+1 < len(runes) {
				two := string(runes[i : i+2])
				switch two {
				case "!=", "!~", ">=", "<=":
					op = two
				}
			}
			if op == "!" {
				return nil, fmt.Errorf("unexpected '!' at %d", i)
			}
			tokens = append(tokens, token{kind: tokOp, text: op, pos: start})
			i += len([]rune(op))
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			i++
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[start:i]), pos: start})
		case unicode.IsLetter(r) || r == '_' || r == '@':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || strings.ContainsRune("_.@", runes[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[start:i]), pos: start})
		default:
			return nil, fmt.Errorf("unexpected %q at %d", r, i)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(runes)})
	return tokens, nil
}

// resolver looks up a field value (possibly a dotted relation path) on the
// record being evaluated.
type resolver func(name string) any

type filterExpr interface {
	eval(resolve resolver) bool
}

type logicalExpr struct {
	and         bool
	left, right filterExpr
}

func (e logicalExpr) eval(resolve resolver) bool {
	if e.and {
		return e.left.eval(resolve) && e.right.eval(resolve)
	}
	return e.left.eval(resolve) || e.right.eval(resolve)
}

type operand struct {
	field   string
	literal any
}

func (o operand) value(resolve resolver) any {
	if o.field != "" {
		return resolve(o.field)
	}
	return o.literal
}

type compareExpr struct {
	op          string
	left, right operand
}

func (e compareExpr) eval(resolve resolver) bool {
	return compareValues(e.op, e.left.value(resolve), e.right.value(resolve))
}

type matchAll struct{}

func (matchAll) eval(resolver) bool { return true }

type parser struct {
	tokens []token
	pos    int
}

// parseFilter compiles a filter string. An empty filter matches everything.
func parseFilter(input string) (filterExpr, error) {
	if strings.TrimSpace(input) == "" {
		return matchAll{}, nil
	}
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at %d", p.peek().text, p.peek().pos)
	}
	return expr, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (filterExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logicalExpr{and: false, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (filterExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = logicalExpr{and: true, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (filterExpr, error) {
	if p.peek().kind == tokLParen {
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("missing ')' at %d", p.peek().pos)
		}
		p.next()
		return expr, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (filterExpr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	opTok := p.next()
	if opTok.kind != tokOp {
		return nil, fmt.Errorf("expected operator at %d", opTok.pos)
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return compareExpr{op: opTok.text, left: left, right: right}, nil
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return operand{literal: t.text}, nil
	case tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return operand{}, fmt.Errorf("invalid number %q", t.text)
		}
		return operand{literal: f}, nil
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			return operand{literal: true}, nil
		case "false":
			return operand{literal: false}, nil
		case "null":
			return operand{literal: nil}, nil
		}
		return operand{field: t.text}, nil
	default:
		return operand{}, fmt.Errorf("expected operand at %d", t.pos)
	}
}

func compareValues(op string, left, right any) bool {
	if items, ok := asList(left); ok {
		switch op {
		case "!=", "!~":
			positive := map[string]string{"!=": "=", "!~": "~"}[op]
			for _, item := range items {
				if compareScalar(positive, item, right) {
					return false
				}
			}
			return true
		default:
			if len(items) == 0 {
				return compareScalar(op, nil, right)
			}
			for _, item := range items {
				if compareScalar(op, item, right) {
					return true
				}
			}
			return false
		}
	}
	return compareScalar(op, left, right)
}

func compareScalar(op string, left, right any) bool {
	switch op {
	case "=":
		return scalarEqual(left, right)
	case "!=":
		return !scalarEqual(left, right)
	case "~":
		return containsFold(left, right)
	case "!~":
		return !containsFold(left, right)
	case ">", ">=", "<", "<=":
		c, ok := order(left, right)
		if !ok {
			return false
		}
		switch op {
		case ">":
			return c > 0
		case ">=":
			return c >= 0
		case "<":
			return c < 0
		default:
			return c <= 0
		}
	}
	return false
}

func asList(v any) ([]any, bool) {
	switch items := v.(type) {
	case []any:
		return items, true
	case []string:
		out := make([]any, len(items))
		for i, s := range items {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case time.Time:
		return t.IsZero()
	}
	return false
}

func scalarEqual(left, right any) bool {
	if lb, ok := left.(bool); ok {
		return lb == truthy(right)
	}
	if rb, ok := right.(bool); ok {
		return rb == truthy(left)
	}
	if isBlank(left) || isBlank(right) {
		return isBlank(left) && isBlank(right)
	}
	if lf, lok := numeric(left); lok {
		if rf, rok := numeric(right); rok {
			return lf == rf
		}
	}
	return stringify(left) == stringify(right)
}

func containsFold(left, right any) bool {
	needle := strings.ToLower(stringify(right))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(stringify(left)), needle)
}

func order(left, right any) (int, bool) {
	if isBlank(left) && isBlank(right) {
		return 0, true
	}
	if lf, lok := numeric(left); lok {
		if rf, rok := numeric(right); rok {
			switch {
			case lf < rf:
				return -1, true
			case lf > rf:
				return 1, true
			}
			return 0, true
		}
	}
	return strings.Compare(stringify(left), stringify(right)), true
}

func numeric(v any) (float64, bool) {
	switch v.(type) {
	case string, bool, nil, time.Time:
		return 0, false
	}
	return baas.ToFloat(v)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	case float64:
		return t != 0
	}
	return false
}

func stringify(v any) string {
	if t, ok := v.(time.Time); ok {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(baas.DateLayout)
	}
	return baas.FormatValue(v)
}
