// rexscan/pkg/compiler/parser.go

package compiler

import (
	"fmt"

	"rgehrsitz/rexscan/pkg/logging"
	"rgehrsitz/rexscan/pkg/resource"
)

// SyntaxError reports a grammar violation.
type SyntaxError struct {
	Expected string
	Found    string
	Pos      int
}

func (e *SyntaxError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("expected %s, found %s", e.Expected, e.Found)
	}
	return fmt.Sprintf("expected %s, found %s at position %d", e.Expected, e.Found, e.Pos)
}

type parser struct {
	tokens []Token
	pos    int
}

// Compile tokenizes and parses a rule condition.
func Compile(text string) (Node, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

// Parse builds the condition tree for tokens. The whole token stream must form
// a single boolean expression.
func Parse(tokens []Token) (Node, error) {
	p := &parser{tokens: tokens}
	node, err := p.expression()
	if err != nil {
		logging.Logger.Debug().Err(err).Int("tokens", len(tokens)).Msg("Failed to parse condition")
		return nil, err
	}
	if tok, ok := p.peek(); ok {
		return nil, p.errorAt("end of input", tok)
	}
	if !isBoolean(node) {
		return nil, &SyntaxError{Expected: "boolean expression", Found: "literal " + node.(*Literal).Text, Pos: -1}
	}
	return node, nil
}

func (p *parser) peek() (Token, bool) {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos], true
	}
	return Token{}, false
}

func (p *parser) atOperator(op OpKind) bool {
	tok, ok := p.peek()
	return ok && tok.Kind == OPERATOR && operators[tok.Text] == op
}

func (p *parser) expect(kind TokenKind, text string) (Token, error) {
	tok, ok := p.peek()
	if !ok || !tok.is(kind, text) {
		return tok, p.errorAt(fmt.Sprintf("%q", text), tok)
	}
	p.pos++
	return tok, nil
}

func (p *parser) errorAt(expected string, tok Token) error {
	if p.pos >= len(p.tokens) {
		return &SyntaxError{Expected: expected, Found: "end of input", Pos: -1}
	}
	return &SyntaxError{Expected: expected, Found: tok.String(), Pos: tok.Pos}
}

func (p *parser) expression() (Node, error) {
	return p.logicalOr()
}

func (p *parser) logicalOr() (Node, error) {
	left, err := p.logicalAnd()
	if err != nil {
		return nil, err
	}
	for p.atOperator(OpOr) {
		p.pos++
		right, err := p.logicalAnd()
		if err != nil {
			return nil, err
		}
		if err := requireBoolean("OR", left, right); err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) logicalAnd() (Node, error) {
	left, err := p.negation()
	if err != nil {
		return nil, err
	}
	for p.atOperator(OpAnd) {
		p.pos++
		right, err := p.negation()
		if err != nil {
			return nil, err
		}
		if err := requireBoolean("AND", left, right); err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) negation() (Node, error) {
	if !p.atOperator(OpNot) {
		return p.primary()
	}
	p.pos++
	operand, err := p.primary()
	if err != nil {
		return nil, err
	}
	if err := requireBoolean("NOT", operand); err != nil {
		return nil, err
	}
	return &Not{Operand: operand}, nil
}

func (p *parser) primary() (Node, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, p.errorAt("expression", tok)
	}
	switch tok.Kind {
	case PAREN:
		if tok.Text == ")" {
			return nil, p.errorAt("expression", tok)
		}
		p.pos++
		node, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(PAREN, ")"); err != nil {
			return nil, err
		}
		return node, nil
	case FUNCTION:
		p.pos++
		args, err := p.arglist()
		if err != nil {
			return nil, err
		}
		return buildCall(tok, args)
	case OPERATOR:
		p.pos++
		args, err := p.arglist()
		if err != nil {
			return nil, err
		}
		return buildOperator(tok, args)
	case NUMBER, IDENTIFIER:
		p.pos++
		return &Literal{Kind: tok.Kind, Text: tok.Text, Num: tok.Num}, nil
	}
	return nil, p.errorAt("expression", tok)
}

// arglist parses '(' [expression {',' expression}] ')'.
func (p *parser) arglist() ([]Node, error) {
	if _, err := p.expect(PAREN, "("); err != nil {
		return nil, err
	}
	var args []Node
	if tok, ok := p.peek(); ok && tok.is(PAREN, ")") {
		p.pos++
		return args, nil
	}
	for {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		tok, ok := p.peek()
		if ok && tok.Kind == COMMA {
			p.pos++
			continue
		}
		if ok && tok.is(PAREN, ")") {
			p.pos++
			return args, nil
		}
		return nil, p.errorAt(`"," or ")"`, tok)
	}
}

func buildCall(tok Token, args []Node) (Node, error) {
	fn := functions[tok.Text]
	if want := funcArity[fn]; len(args) != want {
		return nil, arityError(tok, fmt.Sprint(want), len(args))
	}
	switch fn {
	case FuncByCol:
		if _, err := literalArg(tok, args[0], IDENTIFIER); err != nil {
			return nil, err
		}
		if _, err := literalArg(tok, args[1], NUMBER, IDENTIFIER); err != nil {
			return nil, err
		}
	case FuncByID:
		if _, err := literalArg(tok, args[0], NUMBER); err != nil {
			return nil, err
		}
	case FuncByTable:
		lit, err := literalArg(tok, args[0], IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := resource.ParseCategory(lit.Text); err != nil {
			return nil, &SyntaxError{Expected: "resource category", Found: lit.Text, Pos: tok.Pos}
		}
	case FuncRule:
		call := &Call{Func: fn, Args: args}
		if _, ok := RuleRef(call); !ok {
			return nil, &SyntaxError{Expected: "rule id or BY_ID(id)", Found: describe(args[0]), Pos: tok.Pos}
		}
		return call, nil
	}
	return &Call{Func: fn, Args: args}, nil
}

func buildOperator(tok Token, args []Node) (Node, error) {
	op := operators[tok.Text]
	switch op {
	case OpAnd, OpOr:
		if len(args) != 2 {
			return nil, arityError(tok, "2", len(args))
		}
		if err := requireBoolean(tok.Text, args...); err != nil {
			return nil, err
		}
		if op == OpAnd {
			return &And{Left: args[0], Right: args[1]}, nil
		}
		return &Or{Left: args[0], Right: args[1]}, nil
	case OpNot:
		// Only the operand of a leading NOT gets here, as in NOT NOT(x).
		if len(args) != 1 {
			return nil, arityError(tok, "1", len(args))
		}
		if err := requireBoolean(tok.Text, args...); err != nil {
			return nil, err
		}
		return &Not{Operand: args[0]}, nil
	case OpExists:
		if len(args) > 1 {
			return nil, arityError(tok, "0 or 1", len(args))
		}
		if len(args) == 1 {
			if _, err := literalArg(tok, args[0], IDENTIFIER); err != nil {
				return nil, err
			}
		}
	case OpIsEmpty:
		if len(args) != 1 {
			return nil, arityError(tok, "1", len(args))
		}
		if _, err := literalArg(tok, args[0], IDENTIFIER); err != nil {
			return nil, err
		}
	case OpRandom:
		if len(args) != 1 {
			return nil, arityError(tok, "1", len(args))
		}
		lit, err := literalArg(tok, args[0], NUMBER)
		if err != nil {
			return nil, err
		}
		if lit.Num < 1 {
			return nil, &SyntaxError{Expected: "sample rate of at least 1", Found: lit.Text, Pos: tok.Pos}
		}
	}
	return &Predicate{Op: op, Args: args}, nil
}

func literalArg(tok Token, n Node, kinds ...TokenKind) (*Literal, error) {
	lit, ok := n.(*Literal)
	if ok {
		for _, k := range kinds {
			if lit.Kind == k {
				return lit, nil
			}
		}
	}
	expected := kinds[0].String()
	if len(kinds) > 1 {
		expected = kinds[0].String() + " or " + kinds[1].String()
	}
	return nil, &SyntaxError{Expected: expected + " argument to " + tok.Text, Found: describe(n), Pos: tok.Pos}
}

func requireBoolean(op string, operands ...Node) error {
	for _, n := range operands {
		if !isBoolean(n) {
			return &SyntaxError{Expected: "boolean operand to " + op, Found: describe(n), Pos: -1}
		}
	}
	return nil
}

func arityError(tok Token, want string, got int) error {
	return &SyntaxError{
		Expected: fmt.Sprintf("%s argument(s) to %s", want, tok.Text),
		Found:    fmt.Sprintf("%d", got),
		Pos:      tok.Pos,
	}
}

func describe(n Node) string {
	if lit, ok := n.(*Literal); ok {
		return lit.Kind.String() + "(" + lit.Text + ")"
	}
	return String(n)
}
