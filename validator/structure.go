package validator

// checkBalance is a lexical pre-check: quotes must close and parentheses
// outside quotes must pair up. It runs before tokenizing so malformed text
// is rejected the same way whatever the translation direction.
func checkBalance(sql string) error {
	var (
		quote     byte
		quoteAt   int
		openStack []int
	)
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if quote != 0 {
			switch {
			case c == '\\' && quote != '`':
				i++
			case c == quote && i+1 < len(sql) && sql[i+1] == quote:
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '-':
			if i+1 < len(sql) && sql[i+1] == '-' {
				for i < len(sql) && sql[i] != '\n' {
					i++
				}
			}
		case '\'', '"', '`':
			quote = c
			quoteAt = i
		case '(':
			openStack = append(openStack, i)
		case ')':
			if len(openStack) == 0 {
				return newSQLError(UnbalancedParentheses, i, "unmatched ')'")
			}
			openStack = openStack[:len(openStack)-1]
		}
	}
	if quote != 0 {
		return newSQLError(UnbalancedQuotes, quoteAt, "unterminated %c quote", quote)
	}
	if len(openStack) > 0 {
		return newSQLError(UnbalancedParentheses, openStack[len(openStack)-1], "unmatched '('")
	}
	return nil
}
