package baas

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Params binds named placeholders in a filter expression.
type Params map[string]any

var placeholderPattern = regexp.MustCompile(`\{:(\w+)\}`)

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Filter substitutes {:name} placeholders in expr with escaped literals, so
// user input can never change the structure of the expression.
//
//	Filter("title ~ {:q} && public = true", Params{"q": input})
func Filter(expr string, params Params) string {
	if len(params) == 0 {
		return expr
	}
	return placeholderPattern.ReplaceAllStringFunc(expr, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := params[name]
		if !ok {
			return match
		}
		return Literal(value)
	})
}

// Literal renders a single value as a filter literal.
func Literal(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return quote(v)
	case time.Time:
		return quote(v.UTC().Format(DateLayout))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return quote("")
		}
		return quote(string(raw))
	}
}

func quote(s string) string {
	return "'" + literalEscaper.Replace(s) + "'"
}
