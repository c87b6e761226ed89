package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type lexer struct {
	src    string
	offset int
	line   int
	column int
	tokens []Token
}

// Tokenize splits sql into tokens. Whitespace and "--" comments separate
// tokens and are otherwise dropped. An empty input yields no tokens and no
// error.
func Tokenize(sql string) (tokens []Token, err error) {
	l := &lexer{src: sql, line: 1, column: 1}
	for {
		l.skipSpace()
		if l.offset >= len(l.src) {
			break
		}
		err = l.next()
		if err != nil {
			return nil, err
		}
	}
	tokens = l.tokens
	return
}

func (l *lexer) pos() Position {
	return Position{Offset: l.offset, Line: l.line, Column: l.column}
}

func (l *lexer) peek() rune {
	if l.offset >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.offset:])
	return r
}

func (l *lexer) peekAt(n int) rune {
	off := l.offset
	for i := 0; i < n; i++ {
		if off >= len(l.src) {
			return -1
		}
		_, size := utf8.DecodeRuneInString(l.src[off:])
		off += size
	}
	if off >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[off:])
	return r
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.offset:])
	l.offset += size
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *lexer) skipSpace() {
	for l.offset < len(l.src) {
		r := l.peek()
		if unicode.IsSpace(r) {
			l.advance()
			continue
		}
		if r == '-' && l.peekAt(1) == '-' {
			for l.offset < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		return
	}
}

func (l *lexer) emit(kind TokenKind, text string, pos Position) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: text, Pos: pos})
}

func (l *lexer) next() error {
	pos := l.pos()
	r := l.peek()
	switch {
	case r == '\'' || r == '"':
		return l.scanString(r)
	case r == '`':
		return l.scanQuotedIdent()
	case isIdentStart(r):
		l.scanWord()
		return nil
	case isDigit(r):
		l.scanNumber()
		return nil
	}

	l.advance()
	switch r {
	case '(', ')', ',', ';', '.', '*':
		l.emit(Punctuation, string(r), pos)
	case '=', '+', '-':
		l.emit(Operator, string(r), pos)
	case '<':
		switch l.peek() {
		case '=', '>':
			l.emit(Operator, "<"+string(l.advance()), pos)
		default:
			l.emit(Operator, "<", pos)
		}
	case '>':
		if l.peek() == '=' {
			l.advance()
			l.emit(Operator, ">=", pos)
		} else {
			l.emit(Operator, ">", pos)
		}
	case '!':
		if l.peek() != '=' {
			return &LexError{Pos: pos, Msg: "unrecognized character '!'"}
		}
		l.advance()
		l.emit(Operator, "<>", pos)
	default:
		return &LexError{Pos: pos, Msg: "unrecognized character " + quoteRune(r)}
	}
	return nil
}

func (l *lexer) scanWord() {
	pos := l.pos()
	start := l.offset
	for l.offset < len(l.src) && isIdentPart(l.peek()) {
		l.advance()
	}
	word := l.src[start:l.offset]
	if up := upper(word); keywords[up] {
		l.emit(Keyword, up, pos)
		return
	}
	l.emit(Identifier, word, pos)
}

func (l *lexer) scanNumber() {
	pos := l.pos()
	start := l.offset
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	l.emit(NumberLiteral, l.src[start:l.offset], pos)
}

func (l *lexer) scanString(quote rune) error {
	pos := l.pos()
	l.advance()
	var sb strings.Builder
	for {
		if l.offset >= len(l.src) {
			return &LexError{Pos: pos, Msg: "unterminated string literal"}
		}
		r := l.advance()
		switch {
		case r == '\\' && l.offset < len(l.src):
			// \% and \_ keep their backslash so LIKE can tell them from wildcards.
			if esc := l.advance(); esc == '%' || esc == '_' {
				sb.WriteRune(r)
				sb.WriteRune(esc)
			} else {
				sb.WriteRune(esc)
			}
		case r == quote && l.peek() == quote:
			l.advance()
			sb.WriteRune(quote)
		case r == quote:
			l.emit(StringLiteral, sb.String(), pos)
			return nil
		default:
			sb.WriteRune(r)
		}
	}
}

func (l *lexer) scanQuotedIdent() error {
	pos := l.pos()
	l.advance()
	start := l.offset
	for l.offset < len(l.src) && l.peek() != '`' {
		l.advance()
	}
	if l.offset >= len(l.src) {
		return &LexError{Pos: pos, Msg: "unterminated quoted identifier"}
	}
	name := l.src[start:l.offset]
	l.advance()
	if name == "" {
		return &LexError{Pos: pos, Msg: "empty quoted identifier"}
	}
	l.emit(Identifier, name, pos)
	return nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}

func upper(s string) string {
	return strings.ToUpper(s)
}

func lower(s string) string {
	return strings.ToLower(s)
}
