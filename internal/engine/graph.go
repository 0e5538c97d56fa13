package engine

import (
	"errors"
	"sort"

	"github.com/leapstack-labs/cardformula/internal/dag"
	"github.com/leapstack-labs/cardformula/pkg/card"
	"github.com/leapstack-labs/cardformula/pkg/formula"
)

type depGraph = dag.Graph[*card.PropertyDefinition]

// evaluationGraph links the valid computed properties.
func (e *Engine) evaluationGraph() *depGraph {
	g := dag.New[*card.PropertyDefinition]()
	for _, def := range e.computed() {
		if e.valid(def) {
			g.AddNode(def.Name(), def)
		}
	}
	e.addEdges(g)
	return g
}

// propertyGraph links every property, plain ones included, whether valid or not.
func (e *Engine) propertyGraph() *depGraph {
	g := dag.New[*card.PropertyDefinition]()
	for _, def := range e.collection.Properties() {
		g.AddNode(def.Name(), def)
	}
	e.addEdges(g)
	return g
}

// addEdges adds an edge from each component to the node computed from it, for
// nodes already in g.
func (e *Engine) addEdges(g *depGraph) {
	for _, node := range g.Nodes() {
		def := node.Data
		for _, component := range def.ComponentPropertyDefinitions() {
			if _, ok := g.Node(component.Name()); ok {
				// both nodes exist, so AddEdge cannot fail
				_ = g.AddEdge(component.Name(), def.Name())
			}
		}
	}
}

func (e *Engine) computed() []*card.PropertyDefinition {
	var out []*card.PropertyDefinition
	for _, def := range e.collection.Properties() {
		if def.IsFormulaic() || def.IsAggregate() {
			out = append(out, def)
		}
	}
	return out
}

// Dependencies describes where a property sits in the dependency graph.
type Dependencies struct {
	Property string
	// Direct lists the properties the property is computed from.
	Direct []string
	// All adds their components, transitively.
	All []string
	// Dependents lists the properties computed from this one, transitively.
	Dependents []string
	// Order is the evaluation order of the computed properties needed for this
	// one, ending with the property itself. Empty when Cycle is set.
	Order []string
	// Cycle is the dependency cycle the property takes part in, if any.
	Cycle []string
}

// Dependencies reports the dependencies of the named property.
func (e *Engine) Dependencies(name string) (*Dependencies, error) {
	def, err := e.property(name)
	if err != nil {
		return nil, err
	}
	e.collection.ResolveTypes()

	deps := &Dependencies{Property: def.Name()}
	for _, c := range def.ComponentPropertyDefinitions() {
		deps.Direct = append(deps.Direct, c.Name())
	}
	for _, c := range relatedDefinitions(def) {
		deps.All = append(deps.All, c.Name())
	}

	g := e.propertyGraph()
	for _, id := range g.Downstream(def.Name()) {
		if id != def.Name() {
			deps.Dependents = append(deps.Dependents, id)
		}
	}
	sort.Strings(deps.Dependents)

	upstream := append(g.Upstream(def.Name()), def.Name())
	sorted, err := g.Subgraph(upstream).TopologicalSort()
	var cycle *dag.CycleError
	switch {
	case errors.As(err, &cycle):
		deps.Cycle = cycle.Path
	case err != nil:
		return nil, err
	default:
		for _, node := range sorted {
			if d := node.Data; d.IsFormulaic() || d.IsAggregate() {
				deps.Order = append(deps.Order, d.Name())
			}
		}
	}
	return deps, nil
}

// ExecutionLevels groups the valid computed properties into levels that can be
// evaluated in parallel.
func (e *Engine) ExecutionLevels() ([][]string, error) {
	e.collection.ResolveTypes()
	return e.evaluationGraph().Levels()
}

// relatedDefinitions is the transitive closure of what def is computed from.
// Formulas go through the property detector; aggregates start from their target.
func relatedDefinitions(def *card.PropertyDefinition) []formula.PropertyDefinition {
	if def.IsFormulaic() && def.Formula() != nil {
		return formula.DetectPropertyDefinitions(def.Formula()).AllRelatedPropertyDefinitions()
	}
	return formula.RelatedPropertyDefinitions(def.ComponentPropertyDefinitions())
}
