package accounts

import (
	"sort"

	"github.com/tahiry-mg/tahiry/internal/shared"
)

// Arena is a validated in-memory view of one kind's subtree: nodes indexed
// by code with a precomputed parent→children adjacency. Built once per
// request, never shared between requests.
type Arena struct {
	nodes    map[string]*AccountNode
	children map[string][]*AccountNode
	roots    []*AccountNode
}

// BuildArena indexes the nodes and validates structure: every parent pointer
// must resolve within the set, parent and child must share the same kind,
// child level must be parent level + 1, the parent chain must reach a
// level-1 root within MaxDepth hops, and an active node must not hang off
// an inactive parent.
func BuildArena(nodes []AccountNode) (*Arena, error) {
	a := &Arena{
		nodes:    make(map[string]*AccountNode, len(nodes)),
		children: make(map[string][]*AccountNode, len(nodes)),
	}
	for i := range nodes {
		n := &nodes[i]
		if _, dup := a.nodes[n.Code]; dup {
			return nil, &shared.DataIntegrityError{Reason: "duplicate account code " + n.Code}
		}
		a.nodes[n.Code] = n
	}
	for _, n := range a.nodes {
		if n.IsRoot() {
			if n.Level != 1 {
				return nil, &shared.DataIntegrityError{Reason: "account " + n.Code + " has no parent but is not level 1"}
			}
			a.roots = append(a.roots, n)
			continue
		}
		parent, ok := a.nodes[n.ParentCode]
		if !ok {
			return nil, &shared.DataIntegrityError{Reason: "account " + n.Code + " references missing parent " + n.ParentCode}
		}
		if parent.Kind != n.Kind {
			return nil, &shared.DataIntegrityError{Reason: "account " + n.Code + " (" + string(n.Kind) + ") hangs off parent " + parent.Code + " (" + string(parent.Kind) + ")"}
		}
		if n.Level != parent.Level+1 {
			return nil, &shared.DataIntegrityError{Reason: "account " + n.Code + " level does not follow parent " + parent.Code}
		}
		if n.Active && !parent.Active {
			return nil, &shared.DataIntegrityError{Reason: "active account " + n.Code + " hangs off inactive parent " + parent.Code}
		}
		a.children[parent.Code] = append(a.children[parent.Code], n)
	}
	// The parent chain must terminate at a root within MaxDepth-1 hops.
	for _, n := range a.nodes {
		hops := 0
		cur := n
		for !cur.IsRoot() {
			hops++
			if hops >= MaxDepth {
				return nil, &shared.DataIntegrityError{Reason: "account " + n.Code + " exceeds maximum tree depth"}
			}
			cur = a.nodes[cur.ParentCode]
		}
	}
	sortSiblings(a.roots)
	for _, siblings := range a.children {
		sortSiblings(siblings)
	}
	return a, nil
}

func sortSiblings(nodes []*AccountNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].Code < nodes[j].Code
	})
}

// Node returns the node with the given code, if present.
func (a *Arena) Node(code string) (*AccountNode, bool) {
	n, ok := a.nodes[code]
	return n, ok
}

// Children returns the direct children of a node in sibling order.
func (a *Arena) Children(code string) []*AccountNode {
	return a.children[code]
}

// Len returns the number of nodes in the arena.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// PreOrder returns the nodes in rendering order: each parent immediately
// followed by its children, before any of the parent's siblings.
func (a *Arena) PreOrder() []*AccountNode {
	out := make([]*AccountNode, 0, len(a.nodes))
	var walk func(n *AccountNode)
	walk = func(n *AccountNode) {
		out = append(out, n)
		for _, child := range a.children[n.Code] {
			walk(child)
		}
	}
	for _, root := range a.roots {
		walk(root)
	}
	return out
}

// PostOrder returns the nodes children-first, the order required for
// bottom-up roll-ups.
func (a *Arena) PostOrder() []*AccountNode {
	out := make([]*AccountNode, 0, len(a.nodes))
	var walk func(n *AccountNode)
	walk = func(n *AccountNode) {
		for _, child := range a.children[n.Code] {
			walk(child)
		}
		out = append(out, n)
	}
	for _, root := range a.roots {
		walk(root)
	}
	return out
}
