package parser

import (
	"fmt"
	"unicode"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent     // lowercase-initial identifier: relation name or symbol constant
	tokVariable  // uppercase-initial identifier: rule variable
	tokNumber    // integer literal
	tokString    // quoted string literal
	tokDirective // .decl, .input, .output
	tokDot       // clause terminator
	tokComma
	tokColon
	tokLParen
	tokRParen
	tokImplies // :-
	tokBang    // !
	tokOp      // + - * = != < <= > >=
)

type token struct {
	kind tokenKind
	text string
	line int
}

// lexer tokenizes Datalog surface syntax. A leading dot followed by a
// letter starts a directive; a bare dot terminates a clause.
type lexer struct {
	input string
	pos   int
	line  int
}

func newLexer(input string) *lexer {
	return &lexer{input: input, line: 1}
}

func (l *lexer) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("line %d: "+format, append([]interface{}{l.line}, args...)...)
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, line: l.line}, nil
	}

	start := l.line
	c := l.input[l.pos]

	switch {
	case c == '.':
		l.pos++
		if l.pos < len(l.input) && isLetter(l.input[l.pos]) {
			word := l.readWord()
			return token{kind: tokDirective, text: word, line: start}, nil
		}
		return token{kind: tokDot, text: ".", line: start}, nil

	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ",", line: start}, nil

	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", line: start}, nil

	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", line: start}, nil

	case c == ':':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '-' {
			l.pos++
			return token{kind: tokImplies, text: ":-", line: start}, nil
		}
		return token{kind: tokColon, text: ":", line: start}, nil

	case c == '!':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return token{kind: tokOp, text: "!=", line: start}, nil
		}
		return token{kind: tokBang, text: "!", line: start}, nil

	case c == '<' || c == '>':
		l.pos++
		text := string(c)
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			text += "="
		}
		return token{kind: tokOp, text: text, line: start}, nil

	case c == '=' || c == '+' || c == '-' || c == '*':
		l.pos++
		return token{kind: tokOp, text: string(c), line: start}, nil

	case c == '"':
		return l.readString()

	case c >= '0' && c <= '9':
		return token{kind: tokNumber, text: l.readNumber(), line: start}, nil

	case isLetter(c) || c == '_':
		word := l.readWord()
		kind := tokIdent
		if unicode.IsUpper(rune(word[0])) || word[0] == '_' {
			kind = tokVariable
		}
		return token{kind: kind, text: word, line: start}, nil
	}

	return token{}, l.errorf("unexpected character %q", c)
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '/' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '/':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) readWord() string {
	start := l.pos
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if isLetter(c) || c == '_' || (c >= '0' && c <= '9') {
			l.pos++
			continue
		}
		break
	}
	return l.input[start:l.pos]
}

func (l *lexer) readNumber() string {
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] >= '0' && l.input[l.pos] <= '9' {
		l.pos++
	}
	return l.input[start:l.pos]
}

func (l *lexer) readString() (token, error) {
	start := l.line
	l.pos++ // opening quote
	var out []byte
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch c {
		case '"':
			l.pos++
			return token{kind: tokString, text: string(out), line: start}, nil
		case '\\':
			l.pos++
			if l.pos >= len(l.input) {
				return token{}, l.errorf("unterminated string literal")
			}
			switch l.input[l.pos] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, l.input[l.pos])
			}
			l.pos++
		case '\n':
			return token{}, l.errorf("unterminated string literal")
		default:
			out = append(out, c)
			l.pos++
		}
	}
	return token{}, l.errorf("unterminated string literal")
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
