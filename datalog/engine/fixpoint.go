package engine

import (
	"time"

	"github.com/wbrown/strata-datalog/datalog/analyzer"
	"github.com/wbrown/strata-datalog/datalog/annotations"
	"github.com/wbrown/strata-datalog/datalog/program"
)

// evaluator runs semi-naive bottom-up fixpoint computation, stratum by
// stratum. It exclusively owns its RelationStore for the lifetime of
// one Evaluate call.
type evaluator struct {
	store     *RelationStore
	strat     *analyzer.Stratification
	opts      Options
	collector *annotations.Collector
	pool      *WorkerPool
}

// ruleVariant is one delta-restricted rewrite of a rule: the body
// literal at index deltaLiteral reads its relation's delta while every
// other positive atom reads the full total. deltaLiteral of -1 means
// all atoms read total (used for a rule's one naive evaluation when no
// body atom belongs to the rule's own stratum).
type ruleVariant struct {
	rule         program.Rule
	deltaLiteral int
}

func (e *evaluator) run() error {
	for si, stratum := range e.strat.Strata {
		if err := e.evalStratum(si, stratum); err != nil {
			return err
		}
	}
	return nil
}

// evalStratum iterates the stratum's rules to fixpoint. Lower strata
// are frozen by this point: their deltas are empty and their totals
// are read-only inputs.
func (e *evaluator) evalStratum(si int, stratum analyzer.Stratum) error {
	stratumStart := time.Now()
	inStratum := make(map[string]bool, len(stratum.Relations))
	for _, name := range stratum.Relations {
		inStratum[name] = true
	}

	if e.collector.Enabled() {
		e.collector.AddTiming(annotations.StratumBegin, stratumStart, map[string]interface{}{
			"stratum":     si,
			"rules.count": len(stratum.Rules),
			"relations":   stratum.Relations,
		})
	}

	// First iteration considers all currently known tuples, including
	// facts and tuples inherited from lower strata.
	for _, name := range stratum.Relations {
		r := e.store.relations[name]
		r.delta = NewTupleSet()
		r.total.Each(func(t Tuple) bool {
			r.delta.Add(t)
			return true
		})
	}

	iteration := 0
	first := true
	for {
		iteration++
		if e.opts.MaxIterations > 0 && iteration > e.opts.MaxIterations {
			return &IterationLimitError{Stratum: si, Limit: e.opts.MaxIterations}
		}
		iterStart := time.Now()

		variants := e.buildVariants(stratum.Rules, inStratum, first)
		derived := e.evalVariants(variants)

		// Merge newly derived tuples at the iteration boundary: each
		// relation's delta becomes exactly this iteration's new tuples.
		progress := 0
		for _, name := range stratum.Relations {
			r := e.store.relations[name]
			newDelta := NewTupleSet()
			if d, ok := derived[name]; ok {
				d.Each(func(t Tuple) bool {
					if r.total.Add(t) {
						newDelta.Add(t)
					}
					return true
				})
			}
			r.delta = newDelta
			progress += newDelta.Len()
		}

		if e.collector.Enabled() {
			e.collector.AddTiming(annotations.IterationCompleted, iterStart, map[string]interface{}{
				"iteration":   iteration,
				"delta.count": progress,
			})
		}

		first = false
		if progress == 0 {
			break
		}
	}

	// Freeze: clear deltas so higher strata read pure totals.
	tuples := 0
	for _, name := range stratum.Relations {
		r := e.store.relations[name]
		r.delta = NewTupleSet()
		tuples += r.total.Len()
	}

	if e.collector.Enabled() {
		e.collector.AddTiming(annotations.StratumFixpoint, stratumStart, map[string]interface{}{
			"stratum":      si,
			"iterations":   iteration,
			"tuples.count": tuples,
		})
	}

	return nil
}

// buildVariants produces the delta rewrites for one iteration: one
// variant per positive body atom in the rule's own stratum. A rule
// with no such atom cannot derive anything new after the first
// iteration, so it gets a single all-total variant then and none
// afterwards.
func (e *evaluator) buildVariants(rules []program.Rule, inStratum map[string]bool, first bool) []ruleVariant {
	var variants []ruleVariant
	for _, rule := range rules {
		recursive := false
		for li, lit := range rule.Body {
			if pos, ok := lit.(program.Positive); ok && inStratum[pos.Atom.Relation] {
				variants = append(variants, ruleVariant{rule: rule, deltaLiteral: li})
				recursive = true
			}
		}
		if !recursive && first {
			variants = append(variants, ruleVariant{rule: rule, deltaLiteral: -1})
		}
	}
	return variants
}

// evalVariants evaluates every variant and groups the candidate sets
// by head relation. Within one iteration no variant mutates shared
// state, so the parallel path computes all candidate sets concurrently
// and merges only at the iteration boundary.
func (e *evaluator) evalVariants(variants []ruleVariant) map[string]*TupleSet {
	derived := make(map[string]*TupleSet)
	merge := func(rel string, set *TupleSet) {
		if set.Empty() {
			return
		}
		acc, ok := derived[rel]
		if !ok {
			derived[rel] = set
			return
		}
		set.Each(func(t Tuple) bool {
			acc.Add(t)
			return true
		})
	}

	if e.pool != nil && len(variants) > 1 {
		inputs := make([]interface{}, len(variants))
		for i, v := range variants {
			inputs[i] = v
		}
		results := e.pool.ExecuteParallel(inputs, func(in interface{}) interface{} {
			return e.evalVariant(in.(ruleVariant))
		})
		for i, res := range results {
			merge(variants[i].rule.Head.Relation, res.(*TupleSet))
		}
		return derived
	}

	for _, v := range variants {
		merge(v.rule.Head.Relation, e.evalVariant(v))
	}
	return derived
}

// evalVariant evaluates one rule body left to right, threading a set
// of bindings, then builds head tuples for the survivors. Candidates
// already present in the head relation's total are dropped here so the
// iteration-boundary merge only sees genuinely new tuples.
func (e *evaluator) evalVariant(v ruleVariant) *TupleSet {
	bindings := []Binding{{}}

	for li, lit := range v.rule.Body {
		if len(bindings) == 0 {
			break
		}
		switch l := lit.(type) {
		case program.Positive:
			rel := e.store.relations[l.Atom.Relation]
			source := rel.total
			if li == v.deltaLiteral {
				source = rel.delta
			}
			var next []Binding
			for _, b := range bindings {
				source.Each(func(t Tuple) bool {
					if extended := matchAtom(l.Atom, t, b); extended != nil {
						next = append(next, extended)
					}
					return true
				})
			}
			bindings = next

		case program.Negated:
			// Anti-join against the referenced relation's frozen total.
			rel := e.store.relations[l.Atom.Relation]
			kept := bindings[:0]
			for _, b := range bindings {
				if !matchesNegated(l.Atom, rel.total, b) {
					kept = append(kept, b)
				}
			}
			bindings = kept

		case program.Comparison:
			kept := bindings[:0]
			for _, b := range bindings {
				if evalComparison(l, b) {
					kept = append(kept, b)
				}
			}
			bindings = kept
		}
	}

	out := NewTupleSet()
	head := e.store.relations[v.rule.Head.Relation]
	for _, b := range bindings {
		tuple, ok := headTuple(v.rule.Head, b)
		if !ok {
			continue
		}
		if !head.total.Contains(tuple) {
			out.Add(tuple)
		}
	}
	return out
}
