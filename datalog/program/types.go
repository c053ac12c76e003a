package program

import (
	"fmt"
	"strings"

	"github.com/wbrown/strata-datalog/datalog"
)

// Term represents an argument of an atom or comparison.
// It is a closed union: Var, Const, or Arith.
type Term interface {
	fmt.Stringer
	isTerm()
}

// Var represents a rule variable (e.g. X, Path)
type Var struct {
	Name string
}

func (v Var) isTerm()        {}
func (v Var) String() string { return v.Name }

// Const represents a concrete value together with its surface type.
// Bare identifiers are symbols, quoted literals are strings, and
// numeric literals are numbers.
type Const struct {
	Value datalog.Value
	Type  datalog.Type
}

func (c Const) isTerm() {}

func (c Const) String() string {
	if c.Type == datalog.TypeString {
		return fmt.Sprintf("%q", c.Value)
	}
	return fmt.Sprintf("%v", c.Value)
}

// ArithOp is an arithmetic operator usable in rule heads.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
)

// Arith represents an arithmetic expression over terms.
// Only rule heads may carry Arith terms; body atoms take Var or Const.
type Arith struct {
	Op    ArithOp
	Left  Term
	Right Term
}

func (a Arith) isTerm() {}

func (a Arith) String() string {
	return fmt.Sprintf("%s%s%s", a.Left, a.Op, a.Right)
}

// Vars appends the names of all variables reachable from t, walking
// into Arith subterms.
func Vars(t Term, out []string) []string {
	switch term := t.(type) {
	case Var:
		out = append(out, term.Name)
	case Arith:
		out = Vars(term.Left, out)
		out = Vars(term.Right, out)
	}
	return out
}

// Atom is a relation name applied to an ordered list of terms.
type Atom struct {
	Relation string
	Terms    []Term
}

// Arity returns the number of arguments.
func (a Atom) Arity() int { return len(a.Terms) }

func (a Atom) String() string {
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", a.Relation, strings.Join(parts, ", "))
}

// Literal is one element of a rule body: a positive atom, a negated
// atom, or a comparison.
type Literal interface {
	fmt.Stringer
	isLiteral()
}

// Positive is a positive body atom.
type Positive struct {
	Atom Atom
}

func (p Positive) isLiteral()     {}
func (p Positive) String() string { return p.Atom.String() }

// Negated is a negated body atom. Matching bindings are filtered out
// (anti-join); negation never binds variables.
type Negated struct {
	Atom Atom
}

func (n Negated) isLiteral()     {}
func (n Negated) String() string { return "!" + n.Atom.String() }

// CompareOp is a relational operator usable in rule bodies.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Comparison filters bindings by comparing two terms.
type Comparison struct {
	Op    CompareOp
	Left  Term
	Right Term
}

func (c Comparison) isLiteral() {}

func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

// Rule is a Horn clause: Head :- Body.
type Rule struct {
	Head Atom
	Body []Literal
}

func (r Rule) String() string {
	if len(r.Body) == 0 {
		return r.Head.String() + "."
	}
	parts := make([]string, len(r.Body))
	for i, l := range r.Body {
		parts[i] = l.String()
	}
	return fmt.Sprintf("%s :- %s.", r.Head.String(), strings.Join(parts, ", "))
}

// Param is one declared relation column: name plus primitive type.
type Param struct {
	Name string
	Type datalog.Type
}

// Schema declares a relation: its name and ordered columns.
type Schema struct {
	Name   string
	Params []Param
}

// Arity returns the declared number of columns.
func (s Schema) Arity() int { return len(s.Params) }

func (s Schema) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = fmt.Sprintf("%s: %s", p.Name, p.Type)
	}
	return fmt.Sprintf(".decl %s(%s)", s.Name, strings.Join(parts, ", "))
}

// Fact is a ground atom: a relation name applied to constants only.
type Fact struct {
	Relation string
	Args     []Const
}

// Arity returns the number of arguments.
func (f Fact) Arity() int { return len(f.Args) }

func (f Fact) String() string {
	parts := make([]string, len(f.Args))
	for i, c := range f.Args {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s(%s).", f.Relation, strings.Join(parts, ", "))
}

// Tuple converts the fact's arguments to a runtime value tuple.
func (f Fact) Tuple() datalog.Tuple {
	values := make(datalog.Tuple, len(f.Args))
	for i, c := range f.Args {
		values[i] = c.Value
	}
	return values
}

// Program is a fully parsed Datalog program: declarations, ground
// facts, rules, and the input/output directives.
type Program struct {
	Schemas []Schema
	Facts   []Fact
	Rules   []Rule
	Inputs  []string // relations whose tuples arrive from outside
	Outputs []string // relations whose tuples are returned to the caller
}

// SchemaFor looks up a declared schema by relation name.
func (p *Program) SchemaFor(name string) (Schema, bool) {
	for _, s := range p.Schemas {
		if s.Name == name {
			return s, true
		}
	}
	return Schema{}, false
}
