package analyzer

import (
	"github.com/wbrown/strata-datalog/datalog"
	"github.com/wbrown/strata-datalog/datalog/program"
)

// CheckTypes cross-checks every fact and every rule atom against the
// declared schemas: the relation must be declared, the arity must
// match, and each constant's primitive type must be compatible with
// the declared column type. This runs before any evaluation; a
// failing program never reaches the evaluator.
func CheckTypes(p *program.Program) error {
	for _, fact := range p.Facts {
		schema, ok := p.SchemaFor(fact.Relation)
		if !ok {
			return &UndeclaredRelationError{Relation: fact.Relation}
		}
		if fact.Arity() != schema.Arity() {
			return &ArityMismatchError{
				Relation: fact.Relation,
				Declared: schema.Arity(),
				Actual:   fact.Arity(),
			}
		}
		for i, arg := range fact.Args {
			if err := checkConst(schema, i, arg); err != nil {
				return err
			}
		}
	}

	for _, rule := range p.Rules {
		if err := checkAtom(p, rule.Head, true); err != nil {
			return err
		}
		for _, lit := range rule.Body {
			switch l := lit.(type) {
			case program.Positive:
				if err := checkAtom(p, l.Atom, false); err != nil {
					return err
				}
			case program.Negated:
				if err := checkAtom(p, l.Atom, false); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// checkAtom verifies one rule atom against its schema. Constants are
// type-checked; variables carry no type. In heads, an arithmetic term
// must land on a number column.
func checkAtom(p *program.Program, atom program.Atom, head bool) error {
	schema, ok := p.SchemaFor(atom.Relation)
	if !ok {
		return &UndeclaredRelationError{Relation: atom.Relation}
	}
	if atom.Arity() != schema.Arity() {
		return &ArityMismatchError{
			Relation: atom.Relation,
			Declared: schema.Arity(),
			Actual:   atom.Arity(),
		}
	}
	for i, term := range atom.Terms {
		switch t := term.(type) {
		case program.Const:
			if err := checkConst(schema, i, t); err != nil {
				return err
			}
		case program.Arith:
			if head && schema.Params[i].Type != datalog.TypeNumber {
				return &TypeMismatchError{
					Relation: atom.Relation,
					Param:    schema.Params[i].Name,
					Declared: schema.Params[i].Type,
					Actual:   datalog.TypeNumber,
				}
			}
		}
	}
	return nil
}

func checkConst(schema program.Schema, i int, c program.Const) error {
	declared := schema.Params[i].Type
	if !declared.Compatible(c.Type) {
		return &TypeMismatchError{
			Relation: schema.Name,
			Param:    schema.Params[i].Name,
			Declared: declared,
			Actual:   c.Type,
		}
	}
	return nil
}
