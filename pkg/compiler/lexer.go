// rexscan/pkg/compiler/lexer.go

package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind classifies a token.
type TokenKind int

const (
	NUMBER TokenKind = iota
	IDENTIFIER
	OPERATOR
	FUNCTION
	PAREN
	COMMA
)

func (k TokenKind) String() string {
	switch k {
	case NUMBER:
		return "NUMBER"
	case IDENTIFIER:
		return "IDENTIFIER"
	case OPERATOR:
		return "OPERATOR"
	case FUNCTION:
		return "FUNCTION"
	case PAREN:
		return "PAREN"
	case COMMA:
		return "COMMA"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is one lexeme of a rule condition. Num is set for NUMBER tokens.
type Token struct {
	Kind TokenKind
	Text string
	Num  int
	Pos  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%s)", t.Kind, t.Text)
}

func (t Token) is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// OpKind enumerates the OPERATOR keywords.
type OpKind int

const (
	OpAnd OpKind = iota
	OpOr
	OpNot
	OpExists
	OpIsEmpty
	OpRandom
)

// FuncKind enumerates the FUNCTION keywords.
type FuncKind int

const (
	FuncRule FuncKind = iota
	FuncByID
	FuncByTable
	FuncByCol
)

var operators = map[string]OpKind{
	"AND":      OpAnd,
	"OR":       OpOr,
	"NOT":      OpNot,
	"EXISTS":   OpExists,
	"IS_EMPTY": OpIsEmpty,
	"RANDOM":   OpRandom,
}

var functions = map[string]FuncKind{
	"RULE":     FuncRule,
	"BY_ID":    FuncByID,
	"BY_TABLE": FuncByTable,
	"BY_COL":   FuncByCol,
}

func (op OpKind) String() string {
	switch op {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpNot:
		return "NOT"
	case OpExists:
		return "EXISTS"
	case OpIsEmpty:
		return "IS_EMPTY"
	case OpRandom:
		return "RANDOM"
	}
	return fmt.Sprintf("OpKind(%d)", int(op))
}

func (f FuncKind) String() string {
	switch f {
	case FuncRule:
		return "RULE"
	case FuncByID:
		return "BY_ID"
	case FuncByTable:
		return "BY_TABLE"
	case FuncByCol:
		return "BY_COL"
	}
	return fmt.Sprintf("FuncKind(%d)", int(f))
}

// LexError reports a character the tokenizer does not recognize, or a number
// literal that does not fit in an int. Text and Err are set only for the latter.
type LexError struct {
	Pos  int
	Char rune
	Text string
	Err  error
}

func (e *LexError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("invalid number %q at position %d: %v", e.Text, e.Pos, e.Err)
	}
	return fmt.Sprintf("unexpected character %q at position %d", e.Char, e.Pos)
}

func (e *LexError) Unwrap() error {
	return e.Err
}

// Tokenize splits a rule condition into tokens. Whitespace is skipped.
func Tokenize(text string) ([]Token, error) {
	var tokens []Token
	pos := 0
	for pos < len(text) {
		ch := text[pos]
		switch {
		case isSpace(ch):
			pos++
		case isDigit(ch):
			start := pos
			for pos < len(text) && isDigit(text[pos]) {
				pos++
			}
			lit := text[start:pos]
			n, err := strconv.Atoi(lit)
			if err != nil {
				return nil, &LexError{Pos: start, Char: rune(lit[0]), Text: lit, Err: err}
			}
			tokens = append(tokens, Token{Kind: NUMBER, Text: lit, Num: n, Pos: start})
		case isLetter(ch):
			start := pos
			for pos < len(text) && (isLetter(text[pos]) || isDigit(text[pos]) || text[pos] == '_') {
				pos++
			}
			tokens = append(tokens, classifyWord(text[start:pos], start))
		case ch == '(' || ch == ')':
			tokens = append(tokens, Token{Kind: PAREN, Text: string(ch), Pos: pos})
			pos++
		case ch == ',':
			tokens = append(tokens, Token{Kind: COMMA, Text: ",", Pos: pos})
			pos++
		default:
			return nil, &LexError{Pos: pos, Char: []rune(text[pos:])[0]}
		}
	}
	return tokens, nil
}

func classifyWord(word string, pos int) Token {
	upper := strings.ToUpper(word)
	if _, ok := operators[upper]; ok {
		return Token{Kind: OPERATOR, Text: upper, Pos: pos}
	}
	if _, ok := functions[upper]; ok {
		return Token{Kind: FUNCTION, Text: upper, Pos: pos}
	}
	return Token{Kind: IDENTIFIER, Text: word, Pos: pos}
}

func isSpace(ch byte) bool  { return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' }
func isDigit(ch byte) bool  { return ch >= '0' && ch <= '9' }
func isLetter(ch byte) bool { return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') }
