package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/wbrown/strata-datalog/datalog"
	"github.com/wbrown/strata-datalog/datalog/analyzer"
	"github.com/wbrown/strata-datalog/datalog/annotations"
	"github.com/wbrown/strata-datalog/datalog/program"
)

func numSchema(name string, params ...string) program.Schema {
	s := program.Schema{Name: name}
	for _, p := range params {
		s.Params = append(s.Params, program.Param{Name: p, Type: datalog.TypeNumber})
	}
	return s
}

func atom(rel string, vars ...string) program.Atom {
	a := program.Atom{Relation: rel}
	for _, v := range vars {
		a.Terms = append(a.Terms, program.Var{Name: v})
	}
	return a
}

func numFact(rel string, values ...int64) program.Fact {
	f := program.Fact{Relation: rel}
	for _, v := range values {
		f.Args = append(f.Args, program.Const{Value: v, Type: datalog.TypeNumber})
	}
	return f
}

// transitiveClosure builds the canonical path/edge program over the
// given edges.
func transitiveClosure(edges ...[2]int64) *program.Program {
	p := &program.Program{
		Schemas: []program.Schema{
			numSchema("edge", "from", "to"),
			numSchema("path", "from", "to"),
		},
		Rules: []program.Rule{
			{
				Head: atom("path", "X", "Y"),
				Body: []program.Literal{program.Positive{Atom: atom("edge", "X", "Y")}},
			},
			{
				Head: atom("path", "X", "Z"),
				Body: []program.Literal{
					program.Positive{Atom: atom("path", "X", "Y")},
					program.Positive{Atom: atom("edge", "Y", "Z")},
				},
			},
		},
		Outputs: []string{"path"},
	}
	for _, e := range edges {
		p.Facts = append(p.Facts, numFact("edge", e[0], e[1]))
	}
	return p
}

func tupleStrings(tuples []Tuple) []string {
	out := make([]string, len(tuples))
	for i, t := range tuples {
		out[i] = fmt.Sprintf("%v", t)
	}
	return out
}

func assertTuples(t *testing.T, got []Tuple, want [][2]int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d tuples, got %d: %v", len(want), len(got), tupleStrings(got))
	}
	for i, w := range want {
		if got[i][0] != w[0] || got[i][1] != w[1] {
			t.Errorf("tuple %d: got %v, want %v", i, got[i], w)
		}
	}
}

func TestTransitiveClosure(t *testing.T) {
	p := transitiveClosure([2]int64{1, 2}, [2]int64{2, 3}, [2]int64{3, 4})

	result, err := New().Evaluate(p)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	assertTuples(t, result["path"], [][2]int64{
		{1, 2}, {1, 3}, {1, 4},
		{2, 3}, {2, 4},
		{3, 4},
	})
}

func TestTransitiveClosureBodyOrderIndependent(t *testing.T) {
	p := transitiveClosure([2]int64{1, 2}, [2]int64{2, 3}, [2]int64{3, 4})
	// Swap the recursive rule's body literals
	p.Rules[1].Body[0], p.Rules[1].Body[1] = p.Rules[1].Body[1], p.Rules[1].Body[0]
	// And the rule order
	p.Rules[0], p.Rules[1] = p.Rules[1], p.Rules[0]

	result, err := New().Evaluate(p)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(result["path"]) != 6 {
		t.Errorf("expected 6 path tuples regardless of ordering, got %d", len(result["path"]))
	}
}

func TestCyclicGraphReflexivity(t *testing.T) {
	p := transitiveClosure([2]int64{1, 2}, [2]int64{2, 3}, [2]int64{3, 1})

	result, err := New().Evaluate(p)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	assertTuples(t, result["path"], [][2]int64{
		{1, 1}, {1, 2}, {1, 3},
		{2, 1}, {2, 2}, {2, 3},
		{3, 1}, {3, 2}, {3, 3},
	})
}

func TestDiamondDuplicateElimination(t *testing.T) {
	// Two derivation paths for (1,4) must yield one tuple
	p := transitiveClosure([2]int64{1, 2}, [2]int64{1, 3}, [2]int64{2, 4}, [2]int64{3, 4})

	result, err := New().Evaluate(p)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	count := 0
	for _, tuple := range result["path"] {
		if tuple[0] == int64(1) && tuple[1] == int64(4) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected (1,4) exactly once, got %d occurrences", count)
	}
}

func TestNegationAsSetDifference(t *testing.T) {
	p := &program.Program{
		Schemas: []program.Schema{
			numSchema("all", "x"),
			numSchema("excluded", "x"),
			numSchema("result", "x"),
		},
		Facts: []program.Fact{
			numFact("all", 1), numFact("all", 2), numFact("all", 3), numFact("all", 4),
			numFact("excluded", 2), numFact("excluded", 4),
		},
		Rules: []program.Rule{{
			Head: atom("result", "X"),
			Body: []program.Literal{
				program.Positive{Atom: atom("all", "X")},
				program.Negated{Atom: atom("excluded", "X")},
			},
		}},
		Outputs: []string{"result"},
	}

	result, err := New().Evaluate(p)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	tuples := result["result"]
	if len(tuples) != 2 || tuples[0][0] != int64(1) || tuples[1][0] != int64(3) {
		t.Errorf("expected result = {1, 3}, got %v", tupleStrings(tuples))
	}
}

func TestDeterminism(t *testing.T) {
	p := transitiveClosure([2]int64{3, 1}, [2]int64{1, 2}, [2]int64{2, 3})

	first, err := New().Evaluate(p)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	second, err := New().Evaluate(p)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	a := fmt.Sprintf("%v", tupleStrings(first["path"]))
	b := fmt.Sprintf("%v", tupleStrings(second["path"]))
	if a != b {
		t.Errorf("two runs differ:\n%s\n%s", a, b)
	}
}

func TestGuardedArithmeticRecursion(t *testing.T) {
	// fact(N+1, F*(N+1)) :- fact(N, F), N < 10.
	p := &program.Program{
		Schemas: []program.Schema{numSchema("fact", "n", "f")},
		Facts:   []program.Fact{numFact("fact", 0, 1)},
		Rules: []program.Rule{{
			Head: program.Atom{Relation: "fact", Terms: []program.Term{
				program.Arith{Op: program.OpAdd, Left: program.Var{Name: "N"},
					Right: program.Const{Value: int64(1), Type: datalog.TypeNumber}},
				program.Arith{Op: program.OpMul, Left: program.Var{Name: "F"},
					Right: program.Arith{Op: program.OpAdd, Left: program.Var{Name: "N"},
						Right: program.Const{Value: int64(1), Type: datalog.TypeNumber}}},
			}},
			Body: []program.Literal{
				program.Positive{Atom: atom("fact", "N", "F")},
				program.Comparison{Op: program.OpLt, Left: program.Var{Name: "N"},
					Right: program.Const{Value: int64(10), Type: datalog.TypeNumber}},
			},
		}},
		Outputs: []string{"fact"},
	}

	result, err := New().Evaluate(p)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	tuples := result["fact"]
	if len(tuples) != 11 {
		t.Fatalf("expected 11 factorial tuples, got %d", len(tuples))
	}
	last := tuples[len(tuples)-1]
	if last[0] != int64(10) || last[1] != int64(3628800) {
		t.Errorf("expected fact(10, 3628800), got %v", last)
	}
}

func TestIterationLimit(t *testing.T) {
	// count(N+1) :- count(N).  -- no guard, infinite tuple domain
	p := &program.Program{
		Schemas: []program.Schema{numSchema("count", "n")},
		Facts:   []program.Fact{numFact("count", 0)},
		Rules: []program.Rule{{
			Head: program.Atom{Relation: "count", Terms: []program.Term{
				program.Arith{Op: program.OpAdd, Left: program.Var{Name: "N"},
					Right: program.Const{Value: int64(1), Type: datalog.TypeNumber}},
			}},
			Body: []program.Literal{program.Positive{Atom: atom("count", "N")}},
		}},
		Outputs: []string{"count"},
	}

	eng := NewWithOptions(Options{MaxIterations: 50})
	_, err := eng.Evaluate(p)
	var limit *IterationLimitError
	if !errors.As(err, &limit) {
		t.Fatalf("expected IterationLimitError, got %v", err)
	}
	if limit.Limit != 50 {
		t.Errorf("expected limit 50, got %d", limit.Limit)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	var edges [][2]int64
	for i := int64(0); i < 20; i++ {
		edges = append(edges, [2]int64{i, i + 1})
		edges = append(edges, [2]int64{i, (i * 7) % 21})
	}
	p := transitiveClosure(edges...)

	sequential, err := New().Evaluate(p)
	if err != nil {
		t.Fatalf("sequential Evaluate failed: %v", err)
	}
	parallel, err := NewWithOptions(Options{EnableParallelRules: true, WorkerCount: 4}).Evaluate(p)
	if err != nil {
		t.Fatalf("parallel Evaluate failed: %v", err)
	}

	a := fmt.Sprintf("%v", tupleStrings(sequential["path"]))
	b := fmt.Sprintf("%v", tupleStrings(parallel["path"]))
	if a != b {
		t.Errorf("parallel result differs from sequential:\n%s\n%s", a, b)
	}
}

func TestFixpointIdempotence(t *testing.T) {
	p := transitiveClosure([2]int64{1, 2}, [2]int64{2, 3}, [2]int64{3, 1})
	strat, err := analyzer.Analyze(p)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	store := NewRelationStore(p.Schemas)
	for _, f := range p.Facts {
		store.Seed(f.Relation, f.Tuple())
	}
	ev := &evaluator{store: store, strat: strat}
	if err := ev.run(); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}

	path, _ := store.Relation("path")
	before := path.Total().Len()

	// Re-running the strata from the fixpoint must derive nothing new
	// and leave every delta empty.
	if err := ev.run(); err != nil {
		t.Fatalf("re-evaluation failed: %v", err)
	}
	if path.Total().Len() != before {
		t.Errorf("total grew from %d to %d after re-run", before, path.Total().Len())
	}
	if !path.Delta().Empty() {
		t.Error("delta not empty after fixpoint")
	}
}

func TestMonotonicTotals(t *testing.T) {
	// Totals never shrink across iterations; watch them through the
	// annotation stream.
	p := transitiveClosure([2]int64{1, 2}, [2]int64{2, 3}, [2]int64{3, 4}, [2]int64{4, 5})

	var deltas []int
	eng := NewWithOptions(Options{Handler: func(event annotations.Event) {
		if event.Name == annotations.IterationCompleted {
			deltas = append(deltas, event.Data["delta.count"].(int))
		}
	}})
	if _, err := eng.Evaluate(p); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if len(deltas) == 0 {
		t.Fatal("expected iteration events")
	}
	for _, d := range deltas {
		if d < 0 {
			t.Errorf("negative delta count %d", d)
		}
	}
	if deltas[len(deltas)-1] != 0 {
		t.Errorf("final iteration should derive nothing, got %d", deltas[len(deltas)-1])
	}
}

func TestEvaluateWithInputs(t *testing.T) {
	p := transitiveClosure()
	p.Inputs = []string{"edge"}

	inputs := map[string][]Tuple{
		"edge": {{int64(1), int64(2)}, {int64(2), int64(3)}},
	}
	result, err := New().EvaluateWithInputs(p, inputs)
	if err != nil {
		t.Fatalf("EvaluateWithInputs failed: %v", err)
	}
	assertTuples(t, result["path"], [][2]int64{{1, 2}, {1, 3}, {2, 3}})
}

func TestEvaluateWithInputsValidation(t *testing.T) {
	p := transitiveClosure()

	// Wrong arity
	_, err := New().EvaluateWithInputs(p, map[string][]Tuple{"edge": {{int64(1)}}})
	var arity *analyzer.ArityMismatchError
	if !errors.As(err, &arity) {
		t.Fatalf("expected ArityMismatchError, got %v", err)
	}

	// Wrong type
	_, err = New().EvaluateWithInputs(p, map[string][]Tuple{"edge": {{int64(1), "two"}}})
	var mismatch *analyzer.TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}

	// Undeclared relation
	_, err = New().EvaluateWithInputs(p, map[string][]Tuple{"ghost": {{int64(1)}}})
	var undeclared *analyzer.UndeclaredRelationError
	if !errors.As(err, &undeclared) {
		t.Fatalf("expected UndeclaredRelationError, got %v", err)
	}
}

func TestStaticErrorsReturnNoResult(t *testing.T) {
	p := transitiveClosure([2]int64{1, 2})
	p.Rules = append(p.Rules, program.Rule{
		Head: atom("path", "X", "Y"),
		Body: []program.Literal{program.Positive{Atom: atom("edge", "X", "Z")}},
	})

	result, err := New().Evaluate(p)
	if err == nil {
		t.Fatal("expected a safety error")
	}
	if result != nil {
		t.Error("partial results must never accompany an error")
	}
}
