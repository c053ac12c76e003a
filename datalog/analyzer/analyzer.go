package analyzer

import (
	"sort"

	"github.com/wbrown/strata-datalog/datalog/program"
)

// Stratum is one evaluation layer: the relations assigned to it and
// the rules whose head relation belongs to it, in program order.
type Stratum struct {
	Relations []string
	Rules     []program.Rule
}

// Stratification is the analyzer's output: strata in evaluation order
// plus the level assigned to every relation. Lower strata are fully
// evaluated (frozen) before higher strata run, which is what makes
// negation well defined.
type Stratification struct {
	Strata []Stratum
	Level  map[string]int
}

// edge is one dependency: the head relation of some rule references
// another relation in its body. Self-loops are legal edges.
type edge struct {
	to       string
	negative bool
}

// depGraph is the relation dependency graph. It is transient: built
// for one Analyze call and dropped once the Stratification exists.
type depGraph struct {
	nodes []string
	edges map[string][]edge
}

// Analyze checks every rule for safety, builds the relation dependency
// graph, and computes a stratification. It returns a *SafetyError or
// *StratificationError on rejection, never a partial result.
func Analyze(p *program.Program) (*Stratification, error) {
	for i, rule := range p.Rules {
		if err := checkSafety(i, rule); err != nil {
			return nil, err
		}
	}

	g := buildGraph(p)
	components := g.stronglyConnected()

	// Index each relation by its component so edge endpoints can be
	// compared component-wise.
	compOf := make(map[string]int)
	for ci, comp := range components {
		for _, rel := range comp {
			compOf[rel] = ci
		}
	}

	// A negative edge with both endpoints inside one component means
	// the program recurses through negation.
	for _, from := range g.nodes {
		for _, e := range g.edges[from] {
			if e.negative && compOf[from] == compOf[e.to] {
				cycle := append([]string(nil), components[compOf[from]]...)
				sort.Strings(cycle)
				return nil, &StratificationError{From: from, To: e.to, Cycle: cycle}
			}
		}
	}

	// Tarjan emits components dependencies-first, so one pass assigns
	// levels: positive edges demand >=, negative edges demand >.
	level := make(map[string]int)
	for ci, comp := range components {
		l := 0
		for _, from := range comp {
			for _, e := range g.edges[from] {
				if compOf[e.to] == ci {
					continue
				}
				min := level[e.to]
				if e.negative {
					min++
				}
				if min > l {
					l = min
				}
			}
		}
		for _, rel := range comp {
			level[rel] = l
		}
	}

	return newStratification(p, level), nil
}

// buildGraph creates one node per relation (declared or referenced)
// and one edge per (rule, body literal) pair.
func buildGraph(p *program.Program) *depGraph {
	g := &depGraph{edges: make(map[string][]edge)}
	seen := make(map[string]bool)
	addNode := func(name string) {
		if !seen[name] {
			seen[name] = true
			g.nodes = append(g.nodes, name)
		}
	}

	for _, s := range p.Schemas {
		addNode(s.Name)
	}
	for _, f := range p.Facts {
		addNode(f.Relation)
	}
	for _, rule := range p.Rules {
		addNode(rule.Head.Relation)
		for _, lit := range rule.Body {
			switch l := lit.(type) {
			case program.Positive:
				addNode(l.Atom.Relation)
				g.edges[rule.Head.Relation] = append(g.edges[rule.Head.Relation],
					edge{to: l.Atom.Relation})
			case program.Negated:
				addNode(l.Atom.Relation)
				g.edges[rule.Head.Relation] = append(g.edges[rule.Head.Relation],
					edge{to: l.Atom.Relation, negative: true})
			}
		}
	}
	return g
}

// stronglyConnected computes the SCCs of the graph with Tarjan's
// algorithm, iteratively to survive deep rule chains. Components are
// returned dependencies-first (reverse topological order of the
// condensation).
func (g *depGraph) stronglyConnected() [][]string {
	index := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var components [][]string
	next := 0

	type frame struct {
		node string
		edge int
	}

	for _, start := range g.nodes {
		if _, visited := index[start]; visited {
			continue
		}

		frames := []frame{{node: start}}
		index[start] = next
		lowlink[start] = next
		next++
		stack = append(stack, start)
		onStack[start] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			if f.edge < len(g.edges[f.node]) {
				to := g.edges[f.node][f.edge].to
				f.edge++
				if _, visited := index[to]; !visited {
					index[to] = next
					lowlink[to] = next
					next++
					stack = append(stack, to)
					onStack[to] = true
					frames = append(frames, frame{node: to})
				} else if onStack[to] && index[to] < lowlink[f.node] {
					lowlink[f.node] = index[to]
				}
				continue
			}

			// Node finished: pop its component if it is a root.
			if lowlink[f.node] == index[f.node] {
				var comp []string
				for {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[top] = false
					comp = append(comp, top)
					if top == f.node {
						break
					}
				}
				components = append(components, comp)
			}

			done := f.node
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[done] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[done]
				}
			}
		}
	}

	return components
}

// newStratification groups relations by level and attaches each rule
// to the stratum of its head relation.
func newStratification(p *program.Program, level map[string]int) *Stratification {
	max := 0
	for _, l := range level {
		if l > max {
			max = l
		}
	}

	strata := make([]Stratum, max+1)
	for rel, l := range level {
		strata[l].Relations = append(strata[l].Relations, rel)
	}
	for i := range strata {
		sort.Strings(strata[i].Relations)
	}
	for _, rule := range p.Rules {
		l := level[rule.Head.Relation]
		strata[l].Rules = append(strata[l].Rules, rule)
	}

	return &Stratification{Strata: strata, Level: level}
}
