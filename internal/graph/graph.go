// Package graph turns an assembled network into a renderable node/edge graph
// with a layered top-to-bottom layout.
package graph

import (
	"github.com/starford/bkn/internal/bkn"
)

// Node kinds.
const (
	KindEntity = "entity"
	KindAction = "action"
)

// Edge kinds.
const (
	EdgeBinding  = "binding"
	EdgeRelation = "relation"
)

// Position is the top-left corner of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one entity or action box.
type Node struct {
	ID       string      `json:"id"`
	Kind     string      `json:"kind"`
	RecordID string      `json:"recordId"`
	Label    string      `json:"label"`
	Rank     int         `json:"rank"`
	Position Position    `json:"position"`
	Entity   *bkn.Entity `json:"entity,omitempty"`
	Action   *bkn.Action `json:"action,omitempty"`
}

// Edge connects two nodes. Resolved is false when an endpoint names a record
// that is not in the network.
type Edge struct {
	ID       string        `json:"id"`
	Kind     string        `json:"kind"`
	Source   string        `json:"source"`
	Target   string        `json:"target"`
	Label    string        `json:"label,omitempty"`
	Resolved bool          `json:"resolved"`
	Relation *bkn.Relation `json:"relation,omitempty"`
}

// Graph is the materialized view of a network.
type Graph struct {
	NetworkID string  `json:"networkId"`
	Nodes     []Node  `json:"nodes"`
	Edges     []Edge  `json:"edges"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// Options tunes materialization.
type Options struct {
	// KeepUnresolved keeps edges whose endpoints are missing.
	KeepUnresolved bool
	NodeWidth      float64
	NodeHeight     float64
	NodeSep        float64
	RankSep        float64
	Margin         float64
}

// DefaultOptions returns the standard box sizes and spacing.
func DefaultOptions() Options {
	return Options{
		NodeWidth:  180,
		NodeHeight: 80,
		NodeSep:    100,
		RankSep:    120,
		Margin:     40,
	}
}

// EntityNodeID returns the node id of an entity.
func EntityNodeID(id string) string { return "entity-" + id }

// ActionNodeID returns the node id of an action.
func ActionNodeID(id string) string { return "action-" + id }

// Materialize builds the graph of n. Node and edge ids are unique: a record
// whose id repeats replaces the earlier one in place, so order follows first
// occurrence and content follows the last.
func Materialize(n bkn.Network, opts Options) Graph {
	g := Graph{NetworkID: n.ID, Nodes: []Node{}, Edges: []Edge{}}
	nodes := newIndexed[Node]()
	edges := newIndexed[Edge]()

	for i := range n.Entities {
		e := n.Entities[i]
		nodes.put(EntityNodeID(e.ID), Node{
			ID:       EntityNodeID(e.ID),
			Kind:     KindEntity,
			RecordID: e.ID,
			Label:    e.Name,
			Entity:   &e,
		})
	}
	for i := range n.Actions {
		a := n.Actions[i]
		nodes.put(ActionNodeID(a.ID), Node{
			ID:       ActionNodeID(a.ID),
			Kind:     KindAction,
			RecordID: a.ID,
			Label:    a.Name,
			Action:   &a,
		})
	}

	for _, a := range n.Actions {
		e := Edge{
			ID:     "edge-" + a.EntityID + "-" + a.ID,
			Kind:   EdgeBinding,
			Source: EntityNodeID(a.EntityID),
			Target: ActionNodeID(a.ID),
			Label:  a.ActionType,
		}
		e.Resolved = nodes.has(e.Source)
		if e.Resolved || opts.KeepUnresolved {
			edges.put(e.ID, e)
		}
	}
	for i := range n.Relations {
		r := n.Relations[i]
		e := Edge{
			ID:       "relation-" + r.ID,
			Kind:     EdgeRelation,
			Source:   EntityNodeID(r.Source),
			Target:   EntityNodeID(r.Target),
			Label:    r.Name,
			Relation: &r,
		}
		e.Resolved = nodes.has(e.Source) && nodes.has(e.Target)
		if e.Resolved || opts.KeepUnresolved {
			edges.put(e.ID, e)
		}
	}

	g.Nodes = append(g.Nodes, nodes.items...)
	g.Edges = append(g.Edges, edges.items...)
	layout(&g, opts)
	return g
}

// indexed is an insertion-ordered set keyed by id with last-write-wins values.
type indexed[T any] struct {
	at    map[string]int
	items []T
}

func newIndexed[T any]() *indexed[T] {
	return &indexed[T]{at: map[string]int{}}
}

func (x *indexed[T]) put(id string, v T) {
	if i, ok := x.at[id]; ok {
		x.items[i] = v
		return
	}
	x.at[id] = len(x.items)
	x.items = append(x.items, v)
}

func (x *indexed[T]) has(id string) bool {
	_, ok := x.at[id]
	return ok
}
