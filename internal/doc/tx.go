package doc

import (
	"fmt"

	"keykapp/internal/model"
)

// Tx records the operations of one local action. Every edit is applied to the document
// immediately, so reads inside the same action see earlier edits.
type Tx struct {
	d       *Document
	replica string
	id      model.OpID
	ops     []model.Op
}

// Begin starts a local transaction. The transaction id is the entry id of the action and is
// allocated before any of its ops, so entries sort ahead of their own operations' successors.
func (d *Document) Begin(replica string) *Tx {
	tx := &Tx{d: d, replica: replica}
	tx.id = tx.next()
	return tx
}

func (tx *Tx) next() model.OpID {
	tx.d.clock++
	return model.OpID{Counter: tx.d.clock, Replica: tx.replica}
}

func (tx *Tx) ID() model.OpID          { return tx.id }
func (tx *Tx) Doc() *Document          { return tx.d }
func (tx *Tx) Ops() []model.Op         { return append([]model.Op(nil), tx.ops...) }
func (tx *Tx) Changed() bool           { return len(tx.ops) > 0 }
func (tx *Tx) Replica() string         { return tx.replica }
func (tx *Tx) apply(op model.Op) error { return tx.d.Apply(op) }

func (tx *Tx) emit(op model.Op) error {
	if err := tx.apply(op); err != nil {
		return fmt.Errorf("local %s: %w", op.Kind, err)
	}
	tx.ops = append(tx.ops, op)
	return nil
}

func (tx *Tx) anchor(parent model.OpID, idx int) (model.OpID, bool) {
	if idx < 0 || idx > tx.d.Len(parent) {
		return model.OpID{}, false
	}
	if idx == 0 {
		return model.OpID{}, true
	}
	return tx.d.ElemAt(parent, idx-1)
}

// InsertNode creates an empty atom or list at visible index idx of list.
func (tx *Tx) InsertNode(list model.OpID, idx int, kind model.NodeKind) (model.OpID, error) {
	if k, ok := tx.d.Kind(list); !ok || k != model.NodeList {
		return model.OpID{}, fmt.Errorf("insert node: %v is not a list", list)
	}
	after, ok := tx.anchor(list, idx)
	if !ok {
		return model.OpID{}, fmt.Errorf("insert node: index %d out of range", idx)
	}
	id := tx.next()
	err := tx.emit(model.Op{Kind: model.OpInsert, ID: id, Parent: list, After: after, NewNode: kind})
	return id, err
}

// InsertChar inserts one character at visible index idx of atom.
func (tx *Tx) InsertChar(atom model.OpID, idx int, ch string) error {
	if k, ok := tx.d.Kind(atom); !ok || k != model.NodeAtom {
		return fmt.Errorf("insert char: %v is not an atom", atom)
	}
	after, ok := tx.anchor(atom, idx)
	if !ok {
		return fmt.Errorf("insert char: index %d out of range", idx)
	}
	return tx.emit(model.Op{Kind: model.OpInsert, ID: tx.next(), Parent: atom, After: after, Char: ch})
}

// DeleteAt hides the element at visible index idx of parent. In a list every other slot still
// showing the same node is hidden too, so a shadowed slot left by a concurrent move cannot
// bring the node back.
func (tx *Tx) DeleteAt(parent model.OpID, idx int) error {
	elem, ok := tx.d.ElemAt(parent, idx)
	if !ok {
		return fmt.Errorf("delete: index %d out of range", idx)
	}
	if err := tx.SetVisible(parent, elem, false); err != nil {
		return err
	}
	n := tx.d.nodes[parent]
	if n.kind != model.NodeList {
		return nil
	}
	el, _ := n.seq.get(elem)
	for _, other := range n.seq.slotsOf(el.Node) {
		if err := tx.SetVisible(parent, other.ID, false); err != nil {
			return err
		}
	}
	return nil
}

// SetVisible writes an element's visibility with a fresh stamp.
func (tx *Tx) SetVisible(parent, elem model.OpID, visible bool) error {
	if _, ok := tx.d.element(parent, elem); !ok {
		return fmt.Errorf("set visible: unknown element %v", elem)
	}
	return tx.emit(model.Op{Kind: model.OpSetVisible, ID: tx.next(), Parent: parent, Elem: elem, Visible: visible})
}

// Move relocates the child at visible index from to visible index to (indices of the list
// after the move). The old slot becomes a tombstone and a new slot references the same node,
// so the node keeps its identity and contents. When two replicas move one node concurrently
// both new slots survive the merge, and the one with the greater id shows the node.
func (tx *Tx) Move(list model.OpID, from, to int) error {
	n := tx.d.Len(list)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move: %d -> %d out of range", from, to)
	}
	child, _ := tx.d.ChildAt(list, from)
	if err := tx.DeleteAt(list, from); err != nil {
		return err
	}
	after, ok := tx.anchor(list, to)
	if !ok {
		return fmt.Errorf("move: target %d out of range", to)
	}
	ref := child
	return tx.emit(model.Op{Kind: model.OpInsert, ID: tx.next(), Parent: list, After: after, Node: &ref})
}

// Revert emits the inverse of ops: inserted elements are hidden and visibility writes flip back.
func (tx *Tx) Revert(ops []model.Op) error {
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		switch op.Kind {
		case model.OpInsert:
			if err := tx.SetVisible(op.Parent, op.ID, false); err != nil {
				return err
			}
		case model.OpSetVisible:
			if err := tx.SetVisible(op.Parent, op.Elem, !op.Visible); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reapply emits the forward effect of ops again after a Revert.
func (tx *Tx) Reapply(ops []model.Op) error {
	for _, op := range ops {
		switch op.Kind {
		case model.OpInsert:
			if err := tx.SetVisible(op.Parent, op.ID, true); err != nil {
				return err
			}
		case model.OpSetVisible:
			if err := tx.SetVisible(op.Parent, op.Elem, op.Visible); err != nil {
				return err
			}
		}
	}
	return nil
}
