// Package balance builds the assignment tree: a prefix code over the keyswitches that gives
// the cheapest key sequences to the heaviest actions.
//
// Construction has two steps. First a tree shape with one leaf per action is chosen: exactly
// (a Pareto search over leaf cost vectors) for up to ExactLimit actions, and as the cheapest of
// three heuristic shapes for larger sets. Then actions are placed on the leaves by
// rearrangement: heaviest action on the cheapest leaf. Both steps are deterministic, so equal
// inputs give equal trees.
//
// Above ExactLimit the cost is bounded. Let W be the total weight, c_max the costliest key and
// r the root of Σ r^-c = 1 over the key costs. Then
//
//	Cost ≤ Σ w·log_r(W/w) + W·(c_max + log_r 2) ≤ OPT + W·(c_max + log_r 2)
//
// since no prefix code beats the entropy term. When every key costs the same the tree is
// optimal (k-ary Huffman).
package balance

import (
	"errors"
	"sort"

	"keykapp/internal/keyswitch"
)

// ExactLimit is the largest action count (per subtree) shaped by exhaustive search.
const ExactLimit = 9

var ErrEmptyEligibleSet = errors.New("empty eligible set")

type Item struct {
	ID     string
	Weight int64
}

// Node is a tree node. Leaves carry an action; internal nodes have one child per keyswitch in
// table order, nil for unused keys.
type Node struct {
	Action   string
	Weight   int64
	Children []*Node
}

func (n *Node) IsLeaf() bool { return n != nil && n.Children == nil }

// Actions lists the actions under n, walking children in key order.
func (n *Node) Actions() []string {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		return []string{n.Action}
	}
	var out []string
	for _, c := range n.Children {
		out = append(out, c.Actions()...)
	}
	return out
}

type Leaf struct {
	Action string
	Weight int64
	Path   []int
	Cost   int
}

type Tree struct {
	Root   *Node
	keys   keyswitch.Table
	leaves []Leaf
	byID   map[string]int
}

// Build computes the assignment tree for items over keys. Duplicate ids are rejected.
func Build(items []Item, keys keyswitch.Table) (*Tree, error) {
	if len(items) == 0 {
		return nil, ErrEmptyEligibleSet
	}
	if keys.Len() < 2 {
		return nil, errors.New("keyswitch table needs at least 2 keys")
	}
	sorted := append([]Item(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].ID < sorted[j].ID
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ID == sorted[i-1].ID {
			return nil, errors.New("duplicate item id " + sorted[i].ID)
		}
	}
	weights := make([]int64, len(sorted))
	for i, it := range sorted {
		if it.Weight < 0 {
			return nil, errors.New("negative weight for " + it.ID)
		}
		weights[i] = it.Weight
	}

	sh := newShaper(keys).build(weights)

	var slots []Leaf
	var walk func(s *shape, path []int, cost int)
	walk = func(s *shape, path []int, cost int) {
		if s.leaf() {
			slots = append(slots, Leaf{Path: append([]int(nil), path...), Cost: cost})
			return
		}
		for j, c := range s.children {
			if c != nil {
				walk(c, append(path, j), cost+keys.At(j).Cost)
			}
		}
	}
	walk(sh, nil, 0)
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Cost != slots[j].Cost {
			return slots[i].Cost < slots[j].Cost
		}
		return lessPath(slots[i].Path, slots[j].Path)
	})

	t := &Tree{keys: keys, byID: make(map[string]int, len(sorted))}
	t.Root = &Node{}
	for i, it := range sorted {
		leaf := slots[i]
		leaf.Action = it.ID
		leaf.Weight = it.Weight
		t.leaves = append(t.leaves, leaf)
		t.byID[it.ID] = i
		t.place(leaf)
	}
	return t, nil
}

func (t *Tree) place(l Leaf) {
	n := t.Root
	for _, j := range l.Path {
		if n.Children == nil {
			n.Children = make([]*Node, t.keys.Len())
		}
		if n.Children[j] == nil {
			n.Children[j] = &Node{}
		}
		n = n.Children[j]
	}
	n.Action = l.Action
	n.Weight = l.Weight
}

func lessPath(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func (t *Tree) Keys() keyswitch.Table { return t.keys }

// Walk follows key indices from the root.
func (t *Tree) Walk(path []int) (*Node, bool) {
	n := t.Root
	for _, j := range path {
		if n.IsLeaf() || j < 0 || j >= len(n.Children) || n.Children[j] == nil {
			return nil, false
		}
		n = n.Children[j]
	}
	return n, true
}

// Leaves returns every leaf, cheapest first.
func (t *Tree) Leaves() []Leaf {
	out := make([]Leaf, len(t.leaves))
	copy(out, t.leaves)
	return out
}

func (t *Tree) PathOf(id string) ([]int, bool) {
	i, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return append([]int(nil), t.leaves[i].Path...), true
}

// KeysOf returns the keyswitch ids to press for id.
func (t *Tree) KeysOf(id string) ([]string, bool) {
	path, ok := t.PathOf(id)
	if !ok {
		return nil, false
	}
	out := make([]string, len(path))
	for i, j := range path {
		out[i] = t.keys.At(j).ID
	}
	return out, true
}

// Cost is Σ weight × path cost over all leaves.
func (t *Tree) Cost() int64 {
	var sum int64
	for _, l := range t.leaves {
		sum += l.Weight * int64(l.Cost)
	}
	return sum
}

// AutoSelected returns the single action when the root itself is a leaf.
func (t *Tree) AutoSelected() (string, bool) {
	if t.Root.IsLeaf() {
		return t.Root.Action, true
	}
	return "", false
}

// Equal compares structure and placement.
func (t *Tree) Equal(o *Tree) bool {
	if len(t.leaves) != len(o.leaves) {
		return false
	}
	for i := range t.leaves {
		a, b := t.leaves[i], o.leaves[i]
		if a.Action != b.Action || a.Weight != b.Weight || a.Cost != b.Cost || lessPath(a.Path, b.Path) || lessPath(b.Path, a.Path) {
			return false
		}
	}
	return true
}
