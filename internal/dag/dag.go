// Package dag provides directed acyclic graph operations for property dependencies.
// A formula or aggregate property depends on every property it is computed from;
// the graph orders their evaluation and detects circular definitions.
package dag

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Node is a vertex keyed by normalized property name.
type Node[T any] struct {
	ID   string
	Data T
}

// CycleError is returned when an ordering is requested for a graph with a cycle.
type CycleError struct {
	// Path starts and ends with the same node.
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// Graph is a dependency graph. An edge runs from a dependency to its dependent.
type Graph[T any] struct {
	nodes      map[string]*Node[T]
	dependents map[string][]string
	deps       map[string][]string
}

// New creates an empty graph.
func New[T any]() *Graph[T] {
	return &Graph[T]{
		nodes:      make(map[string]*Node[T]),
		dependents: make(map[string][]string),
		deps:       make(map[string][]string),
	}
}

// AddNode adds a node, or replaces the data of an existing one.
func (g *Graph[T]) AddNode(id string, data T) {
	if n, ok := g.nodes[id]; ok {
		n.Data = data
		return
	}
	g.nodes[id] = &Node[T]{ID: id, Data: data}
}

// AddEdge records that to is computed from from. Both nodes must exist.
// A self-loop is accepted and later reported as a cycle.
func (g *Graph[T]) AddEdge(from, to string) error {
	for _, id := range []string{from, to} {
		if _, ok := g.nodes[id]; !ok {
			return fmt.Errorf("node %q does not exist", id)
		}
	}
	if !slices.Contains(g.dependents[from], to) {
		g.dependents[from] = append(g.dependents[from], to)
		g.deps[to] = append(g.deps[to], from)
	}
	return nil
}

// Node returns the node with the given ID.
func (g *Graph[T]) Node(id string) (*Node[T], bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Dependencies returns the direct dependencies of id, in insertion order.
func (g *Graph[T]) Dependencies(id string) []string { return g.deps[id] }

// Dependents returns the nodes computed directly from id, in insertion order.
func (g *Graph[T]) Dependents(id string) []string { return g.dependents[id] }

// Len returns the number of nodes.
func (g *Graph[T]) Len() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph[T]) EdgeCount() int {
	n := 0
	for _, to := range g.dependents {
		n += len(to)
	}
	return n
}

// IDs returns every node ID, sorted.
func (g *Graph[T]) IDs() []string {
	return slices.Sorted(maps.Keys(g.nodes))
}

// Nodes returns every node, sorted by ID.
func (g *Graph[T]) Nodes() []*Node[T] {
	ids := g.IDs()
	out := make([]*Node[T], len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id]
	}
	return out
}

// FindCycle returns a closed path through some cycle, or nil when the graph is
// acyclic. Nodes are explored in ID order so the result is stable.
func (g *Graph[T]) FindCycle() []string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string

	var walk func(id string) []string
	walk = func(id string) []string {
		state[id] = onStack
		stack = append(stack, id)
		for _, next := range g.dependents[id] {
			switch state[next] {
			case onStack:
				start := slices.Index(stack, next)
				return append(slices.Clone(stack[start:]), next)
			case unvisited:
				if cycle := walk(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range g.IDs() {
		if state[id] == unvisited {
			if cycle := walk(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func (g *Graph[T]) acyclic() error {
	if cycle := g.FindCycle(); cycle != nil {
		return &CycleError{Path: cycle}
	}
	return nil
}

// TopologicalSort returns every node after all of its dependencies.
func (g *Graph[T]) TopologicalSort() ([]*Node[T], error) {
	if err := g.acyclic(); err != nil {
		return nil, err
	}

	placed := make(map[string]bool, len(g.nodes))
	out := make([]*Node[T], 0, len(g.nodes))
	var place func(id string)
	place = func(id string) {
		if placed[id] {
			return
		}
		placed[id] = true
		for _, dep := range g.deps[id] {
			place(dep)
		}
		out = append(out, g.nodes[id])
	}
	for _, id := range g.IDs() {
		place(id)
	}
	return out, nil
}

// Levels groups node IDs by depth: level 0 has no dependencies and every node
// sits one level below its deepest dependency. Nodes in the same level are
// independent of each other. IDs within a level are sorted.
func (g *Graph[T]) Levels() ([][]string, error) {
	if err := g.acyclic(); err != nil {
		return nil, err
	}
	if len(g.nodes) == 0 {
		return nil, nil
	}

	depth := make(map[string]int, len(g.nodes))
	var measure func(id string) int
	measure = func(id string) int {
		if d, ok := depth[id]; ok {
			return d
		}
		d := 0
		for _, dep := range g.deps[id] {
			d = max(d, measure(dep)+1)
		}
		depth[id] = d
		return d
	}

	var levels [][]string
	for _, id := range g.IDs() {
		d := measure(id)
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], id)
	}
	return levels, nil
}

// Downstream returns the given nodes plus everything computed from them,
// transitively, sorted. Unknown IDs are ignored.
func (g *Graph[T]) Downstream(ids ...string) []string {
	seen := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, next := range g.dependents[id] {
			mark(next)
		}
	}
	for _, id := range ids {
		if _, ok := g.nodes[id]; ok {
			mark(id)
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Upstream returns every transitive dependency of id, sorted, excluding id
// unless it sits on a cycle.
func (g *Graph[T]) Upstream(id string) []string {
	seen := make(map[string]bool)
	queue := slices.Clone(g.deps[id])
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		queue = append(queue, g.deps[next]...)
	}
	return slices.Sorted(maps.Keys(seen))
}

// Subgraph copies the named nodes and the edges between them into a new graph.
func (g *Graph[T]) Subgraph(ids []string) *Graph[T] {
	sub := New[T]()
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			sub.AddNode(id, n.Data)
		}
	}
	for _, from := range sub.IDs() {
		for _, to := range g.dependents[from] {
			if _, ok := sub.nodes[to]; ok {
				_ = sub.AddEdge(from, to)
			}
		}
	}
	return sub
}
