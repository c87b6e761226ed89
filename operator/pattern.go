package operator

import (
	"regexp"
	"strings"
)

const regexMeta = `\.+*?()|[]{}^$`

// LikeToRegex converts a LIKE pattern into an anchored regular expression:
// '%' becomes ".*", '_' becomes "." and everything else is matched literally.
// A backslash escapes the rune after it, so `\%` and `\_` are literal.
func LikeToRegex(pattern string) string {
	var sb strings.Builder
	sb.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes):
			i++
			sb.WriteString(regexp.QuoteMeta(string(runes[i])))
		case r == '%':
			sb.WriteString(".*")
		case r == '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return sb.String()
}

// RegexToLike is the inverse of LikeToRegex. An expression without anchors
// matches anywhere and gains surrounding '%'. It returns false when the
// expression uses regular expression features LIKE cannot express.
func RegexToLike(expr string) (string, bool) {
	var sb strings.Builder
	wild := false
	anything := func() {
		if !wild {
			sb.WriteString("%")
		}
		wild = true
	}
	literal := func(r rune) {
		wild = false
		if r == '%' || r == '_' || r == '\\' {
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}

	if strings.HasPrefix(expr, "^") {
		expr = expr[1:]
	} else {
		anything()
	}
	anchored := false
	if strings.HasSuffix(expr, "$") && !strings.HasSuffix(expr, `\$`) {
		expr = expr[:len(expr)-1]
		anchored = true
	}

	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '.' && i+1 < len(runes) && runes[i+1] == '*':
			anything()
			i++
		case r == '.':
			wild = false
			sb.WriteString("_")
		case r == '\\':
			if i+1 >= len(runes) || !strings.ContainsRune(regexMeta, runes[i+1]) {
				return "", false
			}
			literal(runes[i+1])
			i++
		case strings.ContainsRune(regexMeta, r):
			return "", false
		default:
			literal(r)
		}
	}
	if !anchored {
		anything()
	}
	return sb.String(), true
}
