// Package taggraph implements the directed, labeled tag graph bound to one
// semantic folder: nodes are tag names, arcs record which tags may follow
// which in a traversal.
package taggraph

import "errors"

// ErrMissingNode is returned by any operation that references a node that
// does not exist.
var ErrMissingNode = errors.New("taggraph: node is missing")

// ErrDuplicateNode is returned by AddNode when the node already exists.
var ErrDuplicateNode = errors.New("taggraph: node already exists")

// Graph is a directed graph of tag nodes. The zero value is not usable;
// construct with New.
type Graph struct {
	out map[string]map[string]struct{}
	in  map[string]map[string]struct{}
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		out: make(map[string]map[string]struct{}),
		in:  make(map[string]map[string]struct{}),
	}
}

// HasNode reports whether name exists as a node.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.out[name]
	return ok
}

// AddNode creates a node with no incident arcs.
func (g *Graph) AddNode(name string) error {
	if g.HasNode(name) {
		return ErrDuplicateNode
	}
	g.out[name] = make(map[string]struct{})
	g.in[name] = make(map[string]struct{})
	return nil
}

// RemoveNode deletes a node and every arc incident to it.
func (g *Graph) RemoveNode(name string) error {
	if !g.HasNode(name) {
		return ErrMissingNode
	}
	for other := range g.out[name] {
		delete(g.in[other], name)
	}
	for other := range g.in[name] {
		delete(g.out[other], name)
	}
	delete(g.out, name)
	delete(g.in, name)
	return nil
}

// RenameNode renames a node in place, preserving every incident arc.
func (g *Graph) RenameNode(oldName, newName string) error {
	if !g.HasNode(oldName) {
		return ErrMissingNode
	}
	if g.HasNode(newName) {
		return ErrDuplicateNode
	}

	g.out[newName] = g.out[oldName]
	g.in[newName] = g.in[oldName]
	delete(g.out, oldName)
	delete(g.in, oldName)

	for _, neighbors := range g.out {
		if _, ok := neighbors[oldName]; ok {
			delete(neighbors, oldName)
			neighbors[newName] = struct{}{}
		}
	}
	for _, neighbors := range g.in {
		if _, ok := neighbors[oldName]; ok {
			delete(neighbors, oldName)
			neighbors[newName] = struct{}{}
		}
	}
	return nil
}

// HasArc reports whether a directed arc from→to exists. Returns false
// (not an error) if either endpoint is missing, matching has_path's need
// to fail closed rather than panic mid-traversal.
func (g *Graph) HasArc(from, to string) bool {
	neighbors, ok := g.out[from]
	if !ok {
		return false
	}
	_, ok = neighbors[to]
	return ok
}

// AddArc adds a directed arc between two existing nodes.
func (g *Graph) AddArc(from, to string) error {
	if !g.HasNode(from) || !g.HasNode(to) {
		return ErrMissingNode
	}
	g.out[from][to] = struct{}{}
	g.in[to][from] = struct{}{}
	return nil
}

// RemoveArc removes a directed arc between two existing nodes. It is not
// an error for the arc to already be absent.
func (g *Graph) RemoveArc(from, to string) error {
	if !g.HasNode(from) || !g.HasNode(to) {
		return ErrMissingNode
	}
	delete(g.out[from], to)
	delete(g.in[to], from)
	return nil
}

// OutgoingArcs returns the tag names reachable from name by one arc, in no
// particular order.
func (g *Graph) OutgoingArcs(name string) ([]string, error) {
	neighbors, ok := g.out[name]
	if !ok {
		return nil, ErrMissingNode
	}
	result := make([]string, 0, len(neighbors))
	for n := range neighbors {
		result = append(result, n)
	}
	return result, nil
}

// HasPath reports whether nodes is a valid traversal: every element is a
// node and every consecutive pair is an arc. An empty sequence is
// trivially satisfied.
func (g *Graph) HasPath(nodes []string) bool {
	for i, node := range nodes {
		if !g.HasNode(node) {
			return false
		}
		if i > 0 && !g.HasArc(nodes[i-1], node) {
			return false
		}
	}
	return true
}

// Nodes returns every node name, in no particular order.
func (g *Graph) Nodes() []string {
	result := make([]string, 0, len(g.out))
	for n := range g.out {
		result = append(result, n)
	}
	return result
}

// Arcs returns every directed arc as a [from, to] pair, in no particular
// order. Used by SemanticFolder persistence.
func (g *Graph) Arcs() [][2]string {
	var arcs [][2]string
	for from, neighbors := range g.out {
		for to := range neighbors {
			arcs = append(arcs, [2]string{from, to})
		}
	}
	return arcs
}

// FromNodesAndArcs rebuilds a Graph from a node list and an arc list,
// the inverse of Nodes/Arcs. Used when deserializing a SemanticFolder.
func FromNodesAndArcs(nodes []string, arcs [][2]string) (*Graph, error) {
	g := New()
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, a := range arcs {
		if err := g.AddArc(a[0], a[1]); err != nil {
			return nil, err
		}
	}
	return g, nil
}
