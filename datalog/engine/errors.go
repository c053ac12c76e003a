package engine

import "fmt"

// IterationLimitError reports a stratum that failed to reach fixpoint
// within the configured iteration ceiling. Unguarded arithmetic
// recursion is the one program shape that can grow without bound, and
// the ceiling is the engine's defense when a caller opts into one.
type IterationLimitError struct {
	Stratum int
	Limit   int
}

func (e *IterationLimitError) Error() string {
	return fmt.Sprintf("stratum %d did not reach fixpoint within %d iterations",
		e.Stratum, e.Limit)
}
