package tests

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/strata-datalog/datalog"
	"github.com/wbrown/strata-datalog/datalog/analyzer"
	"github.com/wbrown/strata-datalog/datalog/annotations"
	"github.com/wbrown/strata-datalog/datalog/engine"
	"github.com/wbrown/strata-datalog/datalog/parser"
	"github.com/wbrown/strata-datalog/datalog/storage"
)

// TestReachabilityWithExclusions runs a full program through parse,
// analysis, and evaluation: transitive reachability minus a negated
// exclusion set, with a comparison guard.
func TestReachabilityWithExclusions(t *testing.T) {
	prog, err := parser.Parse(`
		.decl edge(from: number, to: number)
		.decl blocked(node: number)
		.decl reach(from: number, to: number)
		.decl visible(from: number, to: number)
		.output visible

		edge(1, 2).
		edge(2, 3).
		edge(3, 4).
		edge(4, 5).
		blocked(4).

		reach(X, Y) :- edge(X, Y).
		reach(X, Z) :- reach(X, Y), edge(Y, Z).
		visible(X, Y) :- reach(X, Y), !blocked(Y), X < Y.
	`)
	require.NoError(t, err)

	result, err := engine.New().Evaluate(prog)
	require.NoError(t, err)

	visible := result["visible"]
	expected := []datalog.Tuple{
		{int64(1), int64(2)},
		{int64(1), int64(3)},
		{int64(1), int64(5)},
		{int64(2), int64(3)},
		{int64(2), int64(5)},
		{int64(3), int64(5)},
		{int64(4), int64(5)},
	}
	assert.Equal(t, expected, visible)
}

// TestArithmeticProgram exercises head arithmetic with a recursion
// bound: triangular numbers up to n = 5.
func TestArithmeticProgram(t *testing.T) {
	prog, err := parser.Parse(`
		.decl tri(n: number, sum: number)
		.output tri
		tri(0, 0).
		tri(N+1, S+N+1) :- tri(N, S), N < 5.
	`)
	require.NoError(t, err)

	result, err := engine.New().Evaluate(prog)
	require.NoError(t, err)

	tri := result["tri"]
	require.Len(t, tri, 6)
	assert.Equal(t, datalog.Tuple{int64(5), int64(15)}, tri[5])
}

// TestStorageBackedInputs round-trips input relations through a
// BadgerDB fact store, the way the CLI loads .input relations.
func TestStorageBackedInputs(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "facts"))
	require.NoError(t, err)
	defer store.Close()

	edges := []datalog.Tuple{
		{int64(1), int64(2)},
		{int64(2), int64(3)},
	}
	require.NoError(t, store.PutRelation("edge", edges))

	prog, err := parser.Parse(`
		.decl edge(from: number, to: number)
		.decl path(from: number, to: number)
		.input edge
		.output path
		path(X, Y) :- edge(X, Y).
		path(X, Z) :- path(X, Y), edge(Y, Z).
	`)
	require.NoError(t, err)

	loaded, err := store.LoadRelation("edge")
	require.NoError(t, err)

	result, err := engine.New().EvaluateWithInputs(prog, map[string][]datalog.Tuple{
		"edge": loaded,
	})
	require.NoError(t, err)

	expected := []datalog.Tuple{
		{int64(1), int64(2)},
		{int64(1), int64(3)},
		{int64(2), int64(3)},
	}
	assert.Equal(t, expected, result["path"])
}

// TestStaticRejection checks that unsafe, unstratifiable, and ill-typed
// programs are rejected before evaluation with the right error types.
func TestStaticRejection(t *testing.T) {
	cases := []struct {
		name   string
		source string
		check  func(t *testing.T, err error)
	}{
		{
			name: "unsafe rule",
			source: `
				.decl p(x: number)
				.decl q(x: number)
				q(Y) :- p(X).
			`,
			check: func(t *testing.T, err error) {
				var safety *analyzer.SafetyError
				require.ErrorAs(t, err, &safety)
				assert.Equal(t, "Y", safety.Variable)
			},
		},
		{
			name: "negation cycle",
			source: `
				.decl p(x: number)
				.decl q(x: number)
				.decl u(x: number)
				p(X) :- u(X), !q(X).
				q(X) :- u(X), !p(X).
			`,
			check: func(t *testing.T, err error) {
				var strat *analyzer.StratificationError
				require.ErrorAs(t, err, &strat)
				assert.Len(t, strat.Cycle, 2)
			},
		},
		{
			name: "type mismatch",
			source: `
				.decl name(id: number, label: string)
				name(1, 2).
			`,
			check: func(t *testing.T, err error) {
				var mismatch *analyzer.TypeMismatchError
				require.ErrorAs(t, err, &mismatch)
				assert.Equal(t, "label", mismatch.Param)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prog, err := parser.Parse(tc.source)
			require.NoError(t, err)

			result, err := engine.New().Evaluate(prog)
			require.Error(t, err)
			assert.Nil(t, result)
			tc.check(t, err)
		})
	}
}

// TestAnnotationEvents checks that a full run emits the lifecycle
// events in order, bracketed by program/invoked and program/completed.
func TestAnnotationEvents(t *testing.T) {
	prog, err := parser.Parse(`
		.decl edge(from: number, to: number)
		.decl path(from: number, to: number)
		.output path
		edge(1, 2).
		path(X, Y) :- edge(X, Y).
		path(X, Z) :- path(X, Y), edge(Y, Z).
	`)
	require.NoError(t, err)

	var names []string
	opts := engine.DefaultOptions()
	opts.Handler = func(event annotations.Event) {
		names = append(names, event.Name)
	}

	_, err = engine.NewWithOptions(opts).Evaluate(prog)
	require.NoError(t, err)

	require.NotEmpty(t, names)
	assert.Equal(t, annotations.ProgramInvoked, names[0])
	assert.Equal(t, annotations.ProgramCompleted, names[len(names)-1])
	assert.Contains(t, names, annotations.AnalysisStratified)
	assert.Contains(t, names, annotations.StratumFixpoint)
}

// TestParallelEndToEnd runs the same program sequentially and with
// parallel rule evaluation and expects identical results.
func TestParallelEndToEnd(t *testing.T) {
	source := `
		.decl edge(from: number, to: number)
		.decl reach(from: number, to: number)
		.output reach
		edge(1, 2).
		edge(2, 3).
		edge(3, 1).
		edge(3, 4).
		reach(X, Y) :- edge(X, Y).
		reach(X, Z) :- reach(X, Y), edge(Y, Z).
	`
	prog, err := parser.Parse(source)
	require.NoError(t, err)

	sequential, err := engine.New().Evaluate(prog)
	require.NoError(t, err)

	opts := engine.DefaultOptions()
	opts.EnableParallelRules = true
	opts.WorkerCount = 4
	parallel, err := engine.NewWithOptions(opts).Evaluate(prog)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}
