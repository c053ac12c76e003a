package engine

import (
	"github.com/wbrown/strata-datalog/datalog"
	"github.com/wbrown/strata-datalog/datalog/program"
)

// Binding maps rule variables to concrete values while a rule body is
// being evaluated left to right.
type Binding map[string]datalog.Value

func (b Binding) clone() Binding {
	out := make(Binding, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// matchAtom unifies an atom's terms against a tuple under the current
// binding. A constant requires equality, a bound variable requires
// equality, and an unbound variable extends the binding. Returns the
// extended binding, or nil on mismatch. The input binding is never
// mutated.
func matchAtom(atom program.Atom, tuple Tuple, binding Binding) Binding {
	extended := binding
	copied := false

	for i, term := range atom.Terms {
		switch t := term.(type) {
		case program.Const:
			if !datalog.ValuesEqual(t.Value, tuple[i]) {
				return nil
			}
		case program.Var:
			if bound, ok := extended[t.Name]; ok {
				if !datalog.ValuesEqual(bound, tuple[i]) {
					return nil
				}
				continue
			}
			if !copied {
				extended = extended.clone()
				copied = true
			}
			extended[t.Name] = tuple[i]
		default:
			// Arithmetic is not permitted as a body-atom argument;
			// the parser and analyzer uphold this.
			return nil
		}
	}

	return extended
}

// matchesNegated reports whether any tuple of the set matches the
// negated atom after substituting bound variables. Safety guarantees
// every variable here is already bound, so this is a pure anti-join
// membership test.
func matchesNegated(atom program.Atom, set *TupleSet, binding Binding) bool {
	probe := make(Tuple, len(atom.Terms))
	for i, term := range atom.Terms {
		switch t := term.(type) {
		case program.Const:
			probe[i] = t.Value
		case program.Var:
			probe[i] = binding[t.Name]
		}
	}
	return set.Contains(probe)
}

// evalTerm evaluates a term under a binding, folding arithmetic over
// int64 operands. The bool result is false when a variable is unbound
// or an arithmetic operand is not numeric.
func evalTerm(term program.Term, binding Binding) (datalog.Value, bool) {
	switch t := term.(type) {
	case program.Const:
		return t.Value, true
	case program.Var:
		v, ok := binding[t.Name]
		return v, ok
	case program.Arith:
		left, ok := evalNumeric(t.Left, binding)
		if !ok {
			return nil, false
		}
		right, ok := evalNumeric(t.Right, binding)
		if !ok {
			return nil, false
		}
		switch t.Op {
		case program.OpAdd:
			return left + right, true
		case program.OpSub:
			return left - right, true
		case program.OpMul:
			return left * right, true
		}
	}
	return nil, false
}

func evalNumeric(term program.Term, binding Binding) (int64, bool) {
	v, ok := evalTerm(term, binding)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// evalComparison applies a relational operator to two terms under the
// binding. Unevaluable terms fail the filter rather than erroring;
// safety has already rejected genuinely unbound variables.
func evalComparison(cmp program.Comparison, binding Binding) bool {
	left, ok := evalTerm(cmp.Left, binding)
	if !ok {
		return false
	}
	right, ok := evalTerm(cmp.Right, binding)
	if !ok {
		return false
	}

	c := datalog.CompareValues(left, right)
	switch cmp.Op {
	case program.OpEq:
		return c == 0
	case program.OpNe:
		return c != 0
	case program.OpLt:
		return c < 0
	case program.OpLe:
		return c <= 0
	case program.OpGt:
		return c > 0
	case program.OpGe:
		return c >= 0
	}
	return false
}

// headTuple builds the candidate tuple for a rule head by evaluating
// every head term, including arithmetic, under a surviving binding.
func headTuple(head program.Atom, binding Binding) (Tuple, bool) {
	tuple := make(Tuple, len(head.Terms))
	for i, term := range head.Terms {
		v, ok := evalTerm(term, binding)
		if !ok {
			return nil, false
		}
		tuple[i] = v
	}
	return tuple, true
}
