// Package analyzer performs the static checks that gate evaluation:
// rule safety, stratification of negation, and type/arity checking of
// facts and rule atoms against the declared schemas. Every error here
// is deterministic in the program text; a program that fails any check
// never reaches the evaluator.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/wbrown/strata-datalog/datalog"
)

// SafetyError reports a rule variable that is not bound by any
// positive body atom.
type SafetyError struct {
	RuleIndex int    // position of the offending rule in the program
	Rule      string // rendered rule, for the error message
	Variable  string // the unbound variable
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf("unsafe rule #%d: variable %s is not bound by a positive body atom in %s",
		e.RuleIndex, e.Variable, e.Rule)
}

// StratificationError reports a negative edge closing a cycle, i.e. a
// relation that depends negatively on itself through recursion.
type StratificationError struct {
	From  string   // head relation of the offending rule
	To    string   // negated relation inside the same component
	Cycle []string // all relations of the strongly connected component
}

func (e *StratificationError) Error() string {
	return fmt.Sprintf("program is not stratifiable: %s depends negatively on %s inside the cycle {%s}",
		e.From, e.To, strings.Join(e.Cycle, ", "))
}

// UndeclaredRelationError reports a fact or rule atom referencing a
// relation with no .decl.
type UndeclaredRelationError struct {
	Relation string
}

func (e *UndeclaredRelationError) Error() string {
	return fmt.Sprintf("relation %s is not declared", e.Relation)
}

// ArityMismatchError reports an atom whose argument count differs from
// the declared schema.
type ArityMismatchError struct {
	Relation string
	Declared int
	Actual   int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("relation %s declares %d parameters but is used with %d",
		e.Relation, e.Declared, e.Actual)
}

// TypeMismatchError reports a constant whose primitive type conflicts
// with the declared column type.
type TypeMismatchError struct {
	Relation string
	Param    string
	Declared datalog.Type
	Actual   datalog.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("relation %s parameter %s is declared %s but given a %s",
		e.Relation, e.Param, e.Declared, e.Actual)
}
