// Package dag builds the required-parent graph of a DataModel and orders
// models so that every parent is inserted before its dependents.
package dag

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapseed/pkg/core"
)

// Node represents a model in the graph.
type Node struct {
	// ID is the model id
	ID string
	// Model is the schema entity, nil for bare nodes added in tests
	Model *core.Model
}

// Graph is a directed graph of required-parent relationships.
type Graph struct {
	nodes    map[string]*Node
	edges    map[string][]string // parent -> children (dependents)
	parents  map[string][]string // child -> parents (dependencies)
	selfRefs map[string]bool
}

// CycleError is returned when required relations form a cycle through more
// than one model.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic required relationship: %s\nHint: make one of the relations nullable so it can be linked by a deferred UPDATE",
		strings.Join(e.Path, " -> "))
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		edges:    make(map[string][]string),
		parents:  make(map[string][]string),
		selfRefs: make(map[string]bool),
	}
}

// FromDataModel builds the graph with one edge per required parent relation.
func FromDataModel(dm *core.DataModel) *Graph {
	g := NewGraph()
	for _, m := range dm.Models() {
		g.AddNode(m.ID, m)
	}
	for _, m := range dm.Models() {
		for _, rel := range m.Relations() {
			if !rel.IsRequired || !rel.IsParent() {
				continue
			}
			// Targets were checked by DataModel.Validate.
			_ = g.AddEdge(rel.TargetModel, m.ID)
		}
	}
	return g
}

// AddNode adds a node to the graph, replacing the model of an existing node.
func (g *Graph) AddNode(id string, m *core.Model) {
	if n, exists := g.nodes[id]; exists {
		n.Model = m
		return
	}
	g.nodes[id] = &Node{ID: id, Model: m}
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
// A self-edge is recorded but never takes part in ordering.
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}

	if parentID == childID {
		g.selfRefs[parentID] = true
		return nil
	}

	if !slices.Contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
		sort.Strings(g.edges[parentID])
	}
	if !slices.Contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
		sort.Strings(g.parents[childID])
	}
	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetParents returns the parents (dependencies) of a node.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the children (dependents) of a node.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// IsSelfReferencing reports whether the model requires a row of its own type.
func (g *Graph) IsSelfReferencing(id string) bool {
	return g.selfRefs[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges between distinct models.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TopologicalSort returns model ids parents-first using a depth-first
// post-order walk over parent edges. A cycle through more than one model
// returns a *CycleError naming the full path.
func (g *Graph) TopologicalSort() ([]string, error) {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string
	var result []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case inProgress:
			start := slices.Index(stack, id)
			path := append(slices.Clone(stack[start:]), id)
			return &CycleError{Path: path}
		}

		state[id] = inProgress
		stack = append(stack, id)
		for _, parentID := range g.parents[id] {
			if err := visit(parentID); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		result = append(result, id)
		return nil
	}

	for _, id := range g.sortedIDs() {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// GetExecutionLevels returns models grouped by depth.
// Level 0 holds models with no required parents.
func (g *Graph) GetExecutionLevels() ([][]string, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	level := make(map[string]int, len(order))
	maxLevel := 0
	for _, id := range order {
		l := 0
		for _, parentID := range g.parents[id] {
			if level[parentID]+1 > l {
				l = level[parentID] + 1
			}
		}
		level[id] = l
		if l > maxLevel {
			maxLevel = l
		}
	}

	if len(order) == 0 {
		return [][]string{}, nil
	}
	levels := make([][]string, maxLevel+1)
	for _, id := range order {
		levels[level[id]] = append(levels[level[id]], id)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels, nil
}

// GetUpstreamNodes returns every model the given model transitively requires.
func (g *Graph) GetUpstreamNodes(id string) []string {
	upstream := make(map[string]bool)

	var markUpstream func(nodeID string)
	markUpstream = func(nodeID string) {
		for _, parentID := range g.parents[nodeID] {
			if !upstream[parentID] {
				upstream[parentID] = true
				markUpstream(parentID)
			}
		}
	}
	markUpstream(id)

	result := make([]string, 0, len(upstream))
	for nodeID := range upstream {
		result = append(result, nodeID)
	}
	sort.Strings(result)
	return result
}
