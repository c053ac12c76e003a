// Package parser turns Datalog surface syntax into a program.Program.
//
// The grammar is small:
//
//	.decl edge(from: number, to: number)
//	.input external_facts
//	.output path
//	edge(1, 2).
//	path(X, Y) :- edge(X, Y).
//	path(X, Z) :- path(X, Y), edge(Y, Z).
//	reach(X) :- node(X), !excluded(X).
//	fact(N+1, F*(N+1)) :- fact(N, F), N < 10.
//
// Bare lowercase identifiers in argument position are symbol
// constants, uppercase-initial identifiers are variables, quoted
// literals are strings, and integer literals are numbers.
package parser

import (
	"fmt"
	"strconv"

	"github.com/wbrown/strata-datalog/datalog"
	"github.com/wbrown/strata-datalog/datalog/program"
)

// Parse parses a complete Datalog program from source text.
func Parse(input string) (*program.Program, error) {
	p := &parser{lex: newLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	prog := &program.Program{}
	for p.tok.kind != tokEOF {
		if err := p.parseStatement(prog); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("line %d: "+format, append([]interface{}{p.tok.line}, args...)...)
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.errorf("expected %s, got %q", what, p.tok.text)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return tok, nil
}

func (p *parser) parseStatement(prog *program.Program) error {
	if p.tok.kind == tokDirective {
		return p.parseDirective(prog)
	}
	return p.parseClause(prog)
}

func (p *parser) parseDirective(prog *program.Program) error {
	directive := p.tok.text
	if err := p.advance(); err != nil {
		return err
	}

	switch directive {
	case "decl":
		schema, err := p.parseSchema()
		if err != nil {
			return err
		}
		prog.Schemas = append(prog.Schemas, schema)
		return nil

	case "input":
		name, err := p.expect(tokIdent, "relation name")
		if err != nil {
			return err
		}
		prog.Inputs = append(prog.Inputs, name.text)
		return nil

	case "output":
		name, err := p.expect(tokIdent, "relation name")
		if err != nil {
			return err
		}
		prog.Outputs = append(prog.Outputs, name.text)
		return nil
	}

	return p.errorf("unknown directive .%s", directive)
}

func (p *parser) parseSchema() (program.Schema, error) {
	name, err := p.expect(tokIdent, "relation name")
	if err != nil {
		return program.Schema{}, err
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return program.Schema{}, err
	}

	schema := program.Schema{Name: name.text}
	for {
		param, err := p.expect(tokIdent, "parameter name")
		if err != nil {
			return program.Schema{}, err
		}
		if _, err := p.expect(tokColon, ":"); err != nil {
			return program.Schema{}, err
		}
		typeName, err := p.expect(tokIdent, "type name")
		if err != nil {
			return program.Schema{}, err
		}

		var t datalog.Type
		switch typeName.text {
		case "number":
			t = datalog.TypeNumber
		case "string":
			t = datalog.TypeString
		case "symbol":
			t = datalog.TypeSymbol
		default:
			return program.Schema{}, fmt.Errorf("line %d: unknown type %q (want number, string, or symbol)",
				typeName.line, typeName.text)
		}
		schema.Params = append(schema.Params, program.Param{Name: param.text, Type: t})

		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return program.Schema{}, err
			}
			continue
		}
		break
	}

	if _, err := p.expect(tokRParen, ")"); err != nil {
		return program.Schema{}, err
	}
	return schema, nil
}

// parseClause parses a fact or a rule. A bodyless clause whose
// arguments are all constants is a fact; anything else is a rule.
func (p *parser) parseClause(prog *program.Program) error {
	head, err := p.parseAtom(true)
	if err != nil {
		return err
	}

	if p.tok.kind == tokDot {
		if err := p.advance(); err != nil {
			return err
		}
		if fact, ok := atomToFact(head); ok {
			prog.Facts = append(prog.Facts, fact)
		} else {
			// A bodyless head with variables: let the analyzer
			// reject it as unsafe rather than failing the parse.
			prog.Rules = append(prog.Rules, program.Rule{Head: head})
		}
		return nil
	}

	if _, err := p.expect(tokImplies, ":- or ."); err != nil {
		return err
	}

	rule := program.Rule{Head: head}
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return err
		}
		rule.Body = append(rule.Body, lit)

		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return err
			}
			continue
		}
		break
	}
	if _, err := p.expect(tokDot, "."); err != nil {
		return err
	}

	prog.Rules = append(prog.Rules, rule)
	return nil
}

func (p *parser) parseLiteral() (program.Literal, error) {
	if p.tok.kind == tokBang {
		if err := p.advance(); err != nil {
			return nil, err
		}
		atom, err := p.parseAtom(false)
		if err != nil {
			return nil, err
		}
		return program.Negated{Atom: atom}, nil
	}

	// An identifier followed by ( is an atom; anything else starts a
	// comparison.
	if p.tok.kind == tokIdent && p.peekLParen() {
		atom, err := p.parseAtom(false)
		if err != nil {
			return nil, err
		}
		return program.Positive{Atom: atom}, nil
	}

	left, err := p.parseExpr(true)
	if err != nil {
		return nil, err
	}
	op, err := p.parseCompareOp()
	if err != nil {
		return nil, err
	}
	right, err := p.parseExpr(true)
	if err != nil {
		return nil, err
	}
	return program.Comparison{Op: op, Left: left, Right: right}, nil
}

// peekLParen reports whether the next character after the current
// token is an opening parenthesis.
func (p *parser) peekLParen() bool {
	save := *p.lex
	tok, err := p.lex.next()
	*p.lex = save
	return err == nil && tok.kind == tokLParen
}

func (p *parser) parseCompareOp() (program.CompareOp, error) {
	if p.tok.kind != tokOp {
		return "", p.errorf("expected comparison operator, got %q", p.tok.text)
	}
	switch p.tok.text {
	case "=", "!=", "<", "<=", ">", ">=":
		op := program.CompareOp(p.tok.text)
		if err := p.advance(); err != nil {
			return "", err
		}
		return op, nil
	}
	return "", p.errorf("%q is not a comparison operator", p.tok.text)
}

// parseAtom parses relation(arg, ...). Head atoms may carry arithmetic
// terms; body atoms take only variables and constants.
func (p *parser) parseAtom(allowArith bool) (program.Atom, error) {
	name, err := p.expect(tokIdent, "relation name")
	if err != nil {
		return program.Atom{}, err
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return program.Atom{}, err
	}

	atom := program.Atom{Relation: name.text}
	for {
		var term program.Term
		if allowArith {
			term, err = p.parseExpr(true)
		} else {
			term, err = p.parsePrimary(false)
		}
		if err != nil {
			return program.Atom{}, err
		}
		atom.Terms = append(atom.Terms, term)

		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return program.Atom{}, err
			}
			continue
		}
		break
	}

	if _, err := p.expect(tokRParen, ")"); err != nil {
		return program.Atom{}, err
	}
	return atom, nil
}

// parseExpr parses additive arithmetic: mul (('+'|'-') mul)*
func (p *parser) parseExpr(allowArith bool) (program.Term, error) {
	left, err := p.parseMul(allowArith)
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := program.ArithOp(p.tok.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMul(allowArith)
		if err != nil {
			return nil, err
		}
		left = program.Arith{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseMul parses multiplicative arithmetic: primary ('*' primary)*
func (p *parser) parseMul(allowArith bool) (program.Term, error) {
	left, err := p.parsePrimary(allowArith)
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && p.tok.text == "*" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary(allowArith)
		if err != nil {
			return nil, err
		}
		left = program.Arith{Op: program.OpMul, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePrimary(allowArith bool) (program.Term, error) {
	switch p.tok.kind {
	case tokLParen:
		if !allowArith {
			return nil, p.errorf("arithmetic is not permitted here")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		term, err := p.parseExpr(true)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return term, nil

	case tokVariable:
		v := program.Var{Name: p.tok.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return v, nil

	case tokNumber:
		n, err := strconv.ParseInt(p.tok.text, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", p.tok.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return program.Const{Value: n, Type: datalog.TypeNumber}, nil

	case tokOp:
		// Negative number literal
		if p.tok.text == "-" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokNumber {
				return nil, p.errorf("expected number after -")
			}
			n, err := strconv.ParseInt(p.tok.text, 10, 64)
			if err != nil {
				return nil, p.errorf("invalid number %q", p.tok.text)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			return program.Const{Value: -n, Type: datalog.TypeNumber}, nil
		}

	case tokString:
		c := program.Const{Value: p.tok.text, Type: datalog.TypeString}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return c, nil

	case tokIdent:
		c := program.Const{Value: p.tok.text, Type: datalog.TypeSymbol}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return c, nil
	}

	return nil, p.errorf("expected a term, got %q", p.tok.text)
}

func atomToFact(atom program.Atom) (program.Fact, bool) {
	fact := program.Fact{Relation: atom.Relation}
	for _, term := range atom.Terms {
		c, ok := term.(program.Const)
		if !ok {
			return program.Fact{}, false
		}
		fact.Args = append(fact.Args, c)
	}
	return fact, true
}
