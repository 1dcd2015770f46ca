// Package mutate holds the document-level bodies of actions. Each mutator reads the navigation
// state, records its edits through a doc.Tx and returns the next navigation state. Failed
// preconditions are no-ops: the result is unchanged and no ops are emitted.
package mutate

import (
	"keykapp/internal/doc"
	"keykapp/internal/model"
	"keykapp/internal/nav"
)

type Result struct {
	Nav     model.Nav
	Changed bool
}

// Func is the signature shared by all mutators. The returned error is only set when the
// document rejects an op, which means the tx and navigation disagree.
type Func func(tx *doc.Tx, n model.Nav) (Result, error)

func unchanged(n model.Nav) (Result, error) { return Result{Nav: n}, nil }

func changed(tx *doc.Tx, before, after model.Nav) (Result, error) {
	after = nav.Normalize(tx.Doc(), after)
	return Result{Nav: after, Changed: tx.Changed() || !before.Equal(after)}, nil
}

// Resolve returns the innermost zoomed list, or a NotFoundError when the zoom path is stale.
func Resolve(d *doc.Document, n model.Nav) (model.OpID, error) {
	list, ok := nav.TopList(d, n)
	if !ok {
		return model.OpID{}, NotFoundError{Kind: "list", Path: n.ZoomPath}
	}
	return list, nil
}

// TextNew inserts an empty atom and zooms into it. At list level the atom goes at the cursor;
// in atom zoom it goes right after the atom being edited.
func TextNew(tx *doc.Tx, n model.Nav) (Result, error) {
	d := tx.Doc()
	list, err := Resolve(d, n)
	if err != nil {
		return unchanged(n)
	}
	idx := nav.Cursor(n)
	if nav.InAtom(n) {
		idx = n.ZoomCursorIdx
	}
	if _, err := tx.InsertNode(list, idx, model.NodeAtom); err != nil {
		return Result{Nav: n}, err
	}
	out := nav.SetCursor(n, idx+1)
	out.ZoomCursorIdx = idx + 1
	out.CharCursor = 0
	return changed(tx, n, out)
}

// ListNew inserts an empty list at the cursor and focuses it.
func ListNew(tx *doc.Tx, n model.Nav) (Result, error) {
	if nav.InAtom(n) {
		return unchanged(n)
	}
	list, err := Resolve(tx.Doc(), n)
	if err != nil {
		return unchanged(n)
	}
	c := nav.Cursor(n)
	if _, err := tx.InsertNode(list, c, model.NodeList); err != nil {
		return Result{Nav: n}, err
	}
	return changed(tx, n, nav.SetCursor(n, c+1))
}

// Delete removes the focused element: a character in atom zoom, a child otherwise. The cursor
// lands where the element was.
func Delete(tx *doc.Tx, n model.Nav) (Result, error) {
	d := tx.Doc()
	if nav.InAtom(n) {
		atom, ok := nav.ZoomedAtom(d, n)
		if !ok || n.CharCursor <= 0 || n.CharCursor > d.Len(atom) {
			return unchanged(n)
		}
		if err := tx.DeleteAt(atom, n.CharCursor-1); err != nil {
			return Result{Nav: n}, err
		}
		out := n.Clone()
		out.CharCursor--
		return changed(tx, n, out)
	}
	list, err := Resolve(d, n)
	if err != nil {
		return unchanged(n)
	}
	c := nav.Cursor(n)
	if c <= 0 || c > d.Len(list) {
		return unchanged(n)
	}
	if err := tx.DeleteAt(list, c-1); err != nil {
		return Result{Nav: n}, err
	}
	return changed(tx, n, nav.SetCursor(n, c-1))
}

func ZoomIn(tx *doc.Tx, n model.Nav) (Result, error) {
	return changed(tx, n, nav.ZoomIn(tx.Doc(), n))
}

func ZoomOut(tx *doc.Tx, n model.Nav) (Result, error) {
	return changed(tx, n, nav.ZoomOut(n))
}

// Focus returns a mutator moving the cursor in dir.
func Focus(dir nav.Direction) Func {
	return func(tx *doc.Tx, n model.Nav) (Result, error) {
		return changed(tx, n, nav.Focus(tx.Doc(), n, dir))
	}
}
