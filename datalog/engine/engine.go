// Package engine evaluates an analyzed Datalog program to its least
// fixpoint: semi-naive bottom-up iteration, stratum by stratum, with
// negation reading only frozen lower strata.
package engine

import (
	"time"

	"github.com/wbrown/strata-datalog/datalog"
	"github.com/wbrown/strata-datalog/datalog/analyzer"
	"github.com/wbrown/strata-datalog/datalog/annotations"
	"github.com/wbrown/strata-datalog/datalog/program"
)

// Options configures one engine instance.
type Options struct {
	// MaxIterations bounds the fixpoint loop per stratum. Zero means
	// unlimited; set a ceiling when running programs with arithmetic
	// recursion that may lack a comparison guard.
	MaxIterations int

	// EnableParallelRules evaluates each iteration's rule variants on
	// a worker pool, merging candidates at the iteration boundary.
	EnableParallelRules bool

	// WorkerCount is the pool size when parallel evaluation is on
	// (0 = NumCPU).
	WorkerCount int

	// Handler receives evaluation events when non-nil.
	Handler annotations.Handler
}

// DefaultOptions returns the standard sequential configuration.
func DefaultOptions() Options {
	return Options{}
}

// Result maps each declared output relation to its tuples, sorted
// lexicographically in declared parameter order.
type Result map[string][]Tuple

// Engine evaluates programs. An Engine is stateless between calls:
// every Evaluate owns a fresh RelationStore that is discarded when the
// call returns, so concurrent invocations are independent.
type Engine struct {
	opts Options
}

// New creates an engine with default options.
func New() *Engine {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates an engine with explicit options.
func NewWithOptions(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Validate runs the static checks only: safety, stratification, and
// type/arity checking. No tuples are derived.
func (e *Engine) Validate(p *program.Program) error {
	if _, err := analyzer.Analyze(p); err != nil {
		return err
	}
	return analyzer.CheckTypes(p)
}

// Evaluate analyzes and evaluates a program with no external input
// tuples.
func (e *Engine) Evaluate(p *program.Program) (Result, error) {
	return e.EvaluateWithInputs(p, nil)
}

// EvaluateWithInputs analyzes and evaluates a program, seeding the
// given pre-loaded tuples into their .input relations before the
// fixpoint runs. On any static error the result is nil; partial
// results are never returned alongside an error.
func (e *Engine) EvaluateWithInputs(p *program.Program, inputs map[string][]Tuple) (Result, error) {
	collector := annotations.NewCollector(e.opts.Handler)
	start := time.Now()
	if collector.Enabled() {
		collector.AddTiming(annotations.ProgramInvoked, start, map[string]interface{}{
			"relations.count": len(p.Schemas),
			"facts.count":     len(p.Facts),
			"rules.count":     len(p.Rules),
		})
	}

	analysisStart := time.Now()
	strat, err := analyzer.Analyze(p)
	if err != nil {
		e.emitError(collector, analysisStart, err)
		return nil, err
	}
	if collector.Enabled() {
		collector.AddTiming(annotations.AnalysisStratified, analysisStart, map[string]interface{}{
			"strata.count": len(strat.Strata),
		})
	}

	checkStart := time.Now()
	if err := analyzer.CheckTypes(p); err != nil {
		e.emitError(collector, checkStart, err)
		return nil, err
	}
	if collector.Enabled() {
		collector.AddTiming(annotations.TypecheckCompleted, checkStart, map[string]interface{}{
			"facts.count": len(p.Facts),
		})
	}

	store := NewRelationStore(p.Schemas)
	for _, fact := range p.Facts {
		store.Seed(fact.Relation, fact.Tuple())
	}
	if err := seedInputs(p, store, inputs); err != nil {
		e.emitError(collector, checkStart, err)
		return nil, err
	}

	ev := &evaluator{
		store:     store,
		strat:     strat,
		opts:      e.opts,
		collector: collector,
	}
	if e.opts.EnableParallelRules {
		ev.pool = NewWorkerPool(e.opts.WorkerCount)
	}
	if err := ev.run(); err != nil {
		return nil, err
	}

	result := make(Result, len(p.Outputs))
	for _, name := range p.Outputs {
		if r, ok := store.Relation(name); ok {
			result[name] = r.Sorted()
		}
	}

	if collector.Enabled() {
		collector.AddTiming(annotations.ProgramCompleted, start, map[string]interface{}{
			"relations.count": len(result),
			"tuples.count":    store.TupleCount(),
		})
	}

	return result, nil
}

func (e *Engine) emitError(collector *annotations.Collector, start time.Time, err error) {
	if !collector.Enabled() {
		return
	}
	name := annotations.ErrorTypecheck
	switch err.(type) {
	case *analyzer.SafetyError:
		name = annotations.ErrorSafety
	case *analyzer.StratificationError:
		name = annotations.ErrorStratification
	}
	collector.AddTiming(name, start, map[string]interface{}{"error": err})
}

// seedInputs loads externally supplied tuples into their relations,
// holding them to the same arity and type discipline as facts. The
// engine receives only typed tuples; file loading happens outside.
func seedInputs(p *program.Program, store *RelationStore, inputs map[string][]Tuple) error {
	for name, tuples := range inputs {
		schema, ok := p.SchemaFor(name)
		if !ok {
			return &analyzer.UndeclaredRelationError{Relation: name}
		}
		for _, tuple := range tuples {
			if len(tuple) != schema.Arity() {
				return &analyzer.ArityMismatchError{
					Relation: name,
					Declared: schema.Arity(),
					Actual:   len(tuple),
				}
			}
			for i, v := range tuple {
				if !schema.Params[i].Type.Compatible(datalog.TypeOf(v)) {
					return &analyzer.TypeMismatchError{
						Relation: name,
						Param:    schema.Params[i].Name,
						Declared: schema.Params[i].Type,
						Actual:   datalog.TypeOf(v),
					}
				}
			}
			store.Seed(name, tuple)
		}
	}
	return nil
}
