package analyzer

import (
	"github.com/wbrown/strata-datalog/datalog/program"
)

// checkSafety verifies the safety condition for one rule: every
// variable in the head (walking into arithmetic subterms) and every
// variable used in a negated atom or comparison must be bound by at
// least one positive body atom.
func checkSafety(ruleIndex int, rule program.Rule) error {
	bound := make(map[string]bool)
	for _, lit := range rule.Body {
		pos, ok := lit.(program.Positive)
		if !ok {
			continue
		}
		for _, term := range pos.Atom.Terms {
			if v, ok := term.(program.Var); ok {
				bound[v.Name] = true
			}
		}
	}

	unsafe := func(name string) error {
		return &SafetyError{
			RuleIndex: ruleIndex,
			Rule:      rule.String(),
			Variable:  name,
		}
	}

	// Head variables, including those inside arithmetic terms
	for _, term := range rule.Head.Terms {
		for _, name := range program.Vars(term, nil) {
			if !bound[name] {
				return unsafe(name)
			}
		}
	}

	// Variables that only appear under negation or in comparisons do
	// not satisfy safety themselves; they must already be bound.
	for _, lit := range rule.Body {
		switch l := lit.(type) {
		case program.Negated:
			for _, term := range l.Atom.Terms {
				for _, name := range program.Vars(term, nil) {
					if !bound[name] {
						return unsafe(name)
					}
				}
			}
		case program.Comparison:
			for _, name := range program.Vars(l.Left, nil) {
				if !bound[name] {
					return unsafe(name)
				}
			}
			for _, name := range program.Vars(l.Right, nil) {
				if !bound[name] {
					return unsafe(name)
				}
			}
		}
	}

	return nil
}
