package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var stringEscaper = strings.NewReplacer(`\%`, `\%`, `\_`, `\_`, `\`, `\\`, "'", "''")

// FormatLiteral renders a literal value as SQL text that Tokenize reads back
// to the same value. Strings are single quoted with embedded quotes doubled;
// floats always carry a fraction so they stay floats.
func FormatLiteral(val any) (string, error) {
	switch v := val.(type) {
	case nil:
		return "NULL", nil
	case string:
		return "'" + stringEscaper.Replace(v) + "'", nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("unsupported float literal [%v]", v)
		}
		text := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(text, ".") {
			text += ".0"
		}
		return text, nil
	}
	return "", fmt.Errorf("unsupported literal type %T", val)
}
