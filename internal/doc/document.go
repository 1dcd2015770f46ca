// Package doc is the replicated document store: a tree of atoms and lists whose containers are
// sequence CRDTs, an append-only action log, and the undo/redo roots derived from it.
package doc

import (
	"errors"
	"fmt"
	"strings"

	"keykapp/internal/model"
)

// ErrCausality reports an operation whose dependencies have not been applied yet.
// Callers buffer such operations and retry them after more of the log arrives.
var ErrCausality = errors.New("causality violation")

type node struct {
	id   model.OpID
	kind model.NodeKind
	seq  *sequence
}

// Document owns the node tree. Navigation never holds node references, only indices.
type Document struct {
	nodes map[model.OpID]*node
	clock int64
}

func New() *Document {
	d := &Document{nodes: map[model.OpID]*node{}}
	d.nodes[model.RootID] = &node{id: model.RootID, kind: model.NodeList, seq: newSequence()}
	return d
}

// Clock is the largest Lamport counter observed so far.
func (d *Document) Clock() int64 { return d.clock }

func (d *Document) observe(c int64) {
	if c > d.clock {
		d.clock = c
	}
}

// Observe advances the Lamport clock past a remote counter.
func (d *Document) Observe(c int64) { d.observe(c) }

// Apply integrates one operation. It is idempotent, and ops may arrive in any order that
// respects their dependencies; anything else returns ErrCausality and leaves the document as is.
func (d *Document) Apply(op model.Op) error {
	parent, ok := d.nodes[op.Parent]
	if !ok {
		return fmt.Errorf("%w: parent %v is not known", ErrCausality, op.Parent)
	}
	switch op.Kind {
	case model.OpInsert:
		if op.ID.IsZero() {
			return errors.New("insert: missing id")
		}
		if parent.seq.has(op.ID) {
			d.observe(op.ID.Counter)
			return nil
		}
		el := &element{ID: op.ID, After: op.After, Visible: true, VisStamp: op.ID}
		var created *node
		switch parent.kind {
		case model.NodeList:
			switch {
			case op.NewNode != "":
				if op.NewNode != model.NodeAtom && op.NewNode != model.NodeList {
					return fmt.Errorf("insert: unknown node kind %q", op.NewNode)
				}
				created = &node{id: op.ID, kind: op.NewNode, seq: newSequence()}
				el.Node = op.ID
			case op.Node != nil:
				if _, ok := d.nodes[*op.Node]; !ok {
					return fmt.Errorf("%w: node %v is not known", ErrCausality, *op.Node)
				}
				el.Node = *op.Node
			default:
				return errors.New("insert into list: missing node")
			}
		case model.NodeAtom:
			if op.Char == "" {
				return errors.New("insert into atom: missing char")
			}
			el.Char = op.Char
		}
		if err := parent.seq.integrate(el); err != nil {
			return err
		}
		if created != nil {
			if _, exists := d.nodes[created.id]; !exists {
				d.nodes[created.id] = created
			}
		}
		d.observe(op.ID.Counter)
		return nil

	case model.OpSetVisible:
		if err := parent.seq.setVisible(op.Elem, op.Visible, op.ID); err != nil {
			return err
		}
		d.observe(op.ID.Counter)
		return nil

	default:
		return fmt.Errorf("unknown op kind %q", op.Kind)
	}
}

// ApplyAll applies ops, retrying those blocked on dependencies that appear later in the batch.
// It returns the ops that are still blocked.
func (d *Document) ApplyAll(ops []model.Op) ([]model.Op, error) {
	pending := ops
	for len(pending) > 0 {
		var blocked []model.Op
		for _, op := range pending {
			if err := d.Apply(op); err != nil {
				if errors.Is(err, ErrCausality) {
					blocked = append(blocked, op)
					continue
				}
				return nil, err
			}
		}
		if len(blocked) == len(pending) {
			return blocked, nil
		}
		pending = blocked
	}
	return nil, nil
}

// Kind reports the kind of a node.
func (d *Document) Kind(id model.OpID) (model.NodeKind, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return "", false
	}
	return n.kind, true
}

// Len is the number of visible children (list) or characters (atom).
func (d *Document) Len(id model.OpID) int {
	n, ok := d.nodes[id]
	if !ok {
		return 0
	}
	return n.seq.len()
}

// ChildAt returns the node id of the i-th visible child of a list.
func (d *Document) ChildAt(list model.OpID, i int) (model.OpID, bool) {
	n, ok := d.nodes[list]
	if !ok || n.kind != model.NodeList {
		return model.OpID{}, false
	}
	el, ok := n.seq.visibleAt(i)
	if !ok {
		return model.OpID{}, false
	}
	return el.Node, true
}

// ElemAt returns the element id of the i-th visible slot of a list or atom.
func (d *Document) ElemAt(parent model.OpID, i int) (model.OpID, bool) {
	n, ok := d.nodes[parent]
	if !ok {
		return model.OpID{}, false
	}
	el, ok := n.seq.visibleAt(i)
	if !ok {
		return model.OpID{}, false
	}
	return el.ID, true
}

// CharAt returns the i-th visible character of an atom.
func (d *Document) CharAt(atom model.OpID, i int) (string, bool) {
	n, ok := d.nodes[atom]
	if !ok || n.kind != model.NodeAtom {
		return "", false
	}
	el, ok := n.seq.visibleAt(i)
	if !ok {
		return "", false
	}
	return el.Char, true
}

func (d *Document) Text(atom model.OpID) string {
	n, ok := d.nodes[atom]
	if !ok || n.kind != model.NodeAtom {
		return ""
	}
	var b strings.Builder
	for _, el := range n.seq.visible() {
		b.WriteString(el.Char)
	}
	return b.String()
}

// Children returns the node ids of a list's visible children.
func (d *Document) Children(list model.OpID) []model.OpID {
	n, ok := d.nodes[list]
	if !ok || n.kind != model.NodeList {
		return nil
	}
	vis := n.seq.visible()
	out := make([]model.OpID, 0, len(vis))
	for _, el := range vis {
		out = append(out, el.Node)
	}
	return out
}

// Resolve walks a zoom path from the root. Every step must land on a list.
func (d *Document) Resolve(path []int) (model.OpID, bool) {
	cur := model.RootID
	for _, idx := range path {
		child, ok := d.ChildAt(cur, idx)
		if !ok {
			return model.OpID{}, false
		}
		if k, _ := d.Kind(child); k != model.NodeList {
			return model.OpID{}, false
		}
		cur = child
	}
	return cur, true
}

func (d *Document) element(parent, elem model.OpID) (*element, bool) {
	n, ok := d.nodes[parent]
	if !ok {
		return nil, false
	}
	return n.seq.get(elem)
}
