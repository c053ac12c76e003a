package engine

import (
	"sort"

	"github.com/wbrown/strata-datalog/datalog"
	"github.com/wbrown/strata-datalog/datalog/program"
)

// Relation holds the evaluation state of one declared relation: the
// monotonically growing total set, and the transient delta set holding
// the tuples discovered in the immediately preceding iteration.
type Relation struct {
	Schema program.Schema
	total  *TupleSet
	delta  *TupleSet
}

// Total returns the full tuple set.
func (r *Relation) Total() *TupleSet { return r.total }

// Delta returns the tuples derived in the previous iteration.
func (r *Relation) Delta() *TupleSet { return r.delta }

// Sorted returns the total set ordered lexicographically over the
// tuple's values in declared parameter order. This is the stable order
// handed to callers for rendering.
func (r *Relation) Sorted() []Tuple {
	tuples := r.total.Tuples()
	sort.Slice(tuples, func(i, j int) bool {
		return compareTuples(tuples[i], tuples[j]) < 0
	})
	return tuples
}

func compareTuples(a, b Tuple) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if c := datalog.CompareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}

// RelationStore owns all relation state for one evaluation. It is
// created per Evaluate call from the declared schemas, seeded with
// facts before stratified evaluation begins, mutated only by the
// evaluator, and discarded afterwards.
type RelationStore struct {
	relations map[string]*Relation
}

// NewRelationStore creates a store with one empty relation per schema.
func NewRelationStore(schemas []program.Schema) *RelationStore {
	rs := &RelationStore{relations: make(map[string]*Relation, len(schemas))}
	for _, s := range schemas {
		rs.relations[s.Name] = &Relation{
			Schema: s,
			total:  NewTupleSet(),
			delta:  NewTupleSet(),
		}
	}
	return rs
}

// Relation looks up a relation by name.
func (rs *RelationStore) Relation(name string) (*Relation, bool) {
	r, ok := rs.relations[name]
	return r, ok
}

// Seed adds a tuple to a relation's total set, deduplicating.
func (rs *RelationStore) Seed(name string, tuple Tuple) {
	if r, ok := rs.relations[name]; ok {
		r.total.Add(tuple)
	}
}

// TupleCount returns the total number of tuples across all relations.
func (rs *RelationStore) TupleCount() int {
	n := 0
	for _, r := range rs.relations {
		n += r.total.Len()
	}
	return n
}
