package engine

import (
	"github.com/wbrown/strata-datalog/datalog"
)

// Tuple is an alias for datalog.Tuple; the engine deals in the same
// rows the rest of the system does.
type Tuple = datalog.Tuple

// hashTuple computes an FNV-1a hash for a tuple without string conversion
func hashTuple(tuple Tuple) uint64 {
	const prime = 1099511628211
	hash := uint64(14695981039346656037)

	for _, v := range tuple {
		hash ^= hashValue(v)
		hash *= prime
	}

	return hash
}

// hashValue hashes a single value without string conversion
func hashValue(v datalog.Value) uint64 {
	switch val := v.(type) {
	case int64:
		return uint64(val)
	case int:
		return uint64(val)
	case string:
		return hashString(val)
	default:
		// nil and unknown types bucket together; equality sorts them out
		return 0
	}
}

// hashString hashes a string without allocation
func hashString(s string) uint64 {
	const prime = 1099511628211
	hash := uint64(14695981039346656037)

	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime
	}

	return hash
}

// tuplesEqual checks if two tuples hold the same values
func tuplesEqual(a, b Tuple) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !datalog.ValuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// TupleSet is a deduplicated set of tuples. It buckets by FNV-1a hash
// and resolves collisions by value comparison, so tuples are compared
// and hashed by value, never by identity.
type TupleSet struct {
	buckets map[uint64][]Tuple
	size    int
}

// NewTupleSet creates an empty tuple set.
func NewTupleSet() *TupleSet {
	return &TupleSet{buckets: make(map[uint64][]Tuple)}
}

// Add inserts a tuple, returning false if it was already present.
func (s *TupleSet) Add(tuple Tuple) bool {
	h := hashTuple(tuple)
	for _, existing := range s.buckets[h] {
		if tuplesEqual(existing, tuple) {
			return false
		}
	}
	s.buckets[h] = append(s.buckets[h], tuple)
	s.size++
	return true
}

// Contains reports whether the tuple is in the set.
func (s *TupleSet) Contains(tuple Tuple) bool {
	h := hashTuple(tuple)
	for _, existing := range s.buckets[h] {
		if tuplesEqual(existing, tuple) {
			return true
		}
	}
	return false
}

// Len returns the number of tuples in the set.
func (s *TupleSet) Len() int { return s.size }

// Empty reports whether the set holds no tuples.
func (s *TupleSet) Empty() bool { return s.size == 0 }

// Each invokes fn for every tuple. Iteration order is undefined.
func (s *TupleSet) Each(fn func(Tuple) bool) {
	for _, bucket := range s.buckets {
		for _, tuple := range bucket {
			if !fn(tuple) {
				return
			}
		}
	}
}

// Tuples returns all tuples in undefined order.
func (s *TupleSet) Tuples() []Tuple {
	out := make([]Tuple, 0, s.size)
	for _, bucket := range s.buckets {
		out = append(out, bucket...)
	}
	return out
}
