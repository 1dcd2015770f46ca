// Package nav implements zoom and focus over a document. Navigation only stores indices, so
// every function here resolves them against the current document and tolerates stale values.
package nav

import (
	"keykapp/internal/doc"
	"keykapp/internal/model"
)

// Cursor is the focus cursor of the innermost zoomed list.
func Cursor(n model.Nav) int {
	if len(n.Focus) == 0 {
		return 0
	}
	return n.Focus[len(n.Focus)-1]
}

// SetCursor returns n with the innermost list cursor replaced.
func SetCursor(n model.Nav, c int) model.Nav {
	out := n.Clone()
	if len(out.Focus) == 0 {
		out.Focus = []int{0}
	}
	out.Focus[len(out.Focus)-1] = c
	return out
}

func WithMode(n model.Nav, m model.Mode) model.Nav {
	out := n.Clone()
	out.Mode = m
	return out
}

// InAtom reports whether the user is zoomed into an atom.
func InAtom(n model.Nav) bool { return n.ZoomCursorIdx > 0 }

// AtRoot reports whether nothing is zoomed.
func AtRoot(n model.Nav) bool { return len(n.ZoomPath) == 0 && !InAtom(n) }

// TopList is the innermost zoomed list.
func TopList(d *doc.Document, n model.Nav) (model.OpID, bool) {
	return d.Resolve(n.ZoomPath)
}

// ZoomedAtom is the atom being edited in atom zoom.
func ZoomedAtom(d *doc.Document, n model.Nav) (model.OpID, bool) {
	if !InAtom(n) {
		return model.OpID{}, false
	}
	list, ok := TopList(d, n)
	if !ok {
		return model.OpID{}, false
	}
	id, ok := d.ChildAt(list, n.ZoomCursorIdx-1)
	if !ok {
		return model.OpID{}, false
	}
	if k, _ := d.Kind(id); k != model.NodeAtom {
		return model.OpID{}, false
	}
	return id, true
}

// Focused is the node right before the cursor of the innermost list.
func Focused(d *doc.Document, n model.Nav) (model.OpID, bool) {
	list, ok := TopList(d, n)
	if !ok {
		return model.OpID{}, false
	}
	c := Cursor(n)
	if c <= 0 {
		return model.OpID{}, false
	}
	return d.ChildAt(list, c-1)
}

// FocusedChar is the character right before the cursor in atom zoom.
func FocusedChar(d *doc.Document, n model.Nav) (string, bool) {
	atom, ok := ZoomedAtom(d, n)
	if !ok || n.CharCursor <= 0 {
		return "", false
	}
	return d.CharAt(atom, n.CharCursor-1)
}

// Normalize re-points n at structure that still exists. The zoom path is cut at the first
// step that no longer lands on a list, cursors are clamped, and atom zoom is dropped when its
// atom is gone. Ancestor cursors always sit right after the zoomed child.
func Normalize(d *doc.Document, n model.Nav) model.Nav {
	out := n.Clone()
	if out.Mode != model.ModeInsert {
		out.Mode = model.ModeMenu
	}

	cur := model.RootID
	for i, idx := range out.ZoomPath {
		child, ok := d.ChildAt(cur, idx)
		if ok {
			if k, _ := d.Kind(child); k == model.NodeList {
				cur = child
				continue
			}
		}
		out.ZoomPath = out.ZoomPath[:i]
		out.ZoomCursorIdx = 0
		out.CharCursor = 0
		break
	}

	focus := make([]int, len(out.ZoomPath)+1)
	for i, idx := range out.ZoomPath {
		focus[i] = idx + 1
	}
	top := len(out.ZoomPath)
	if top < len(out.Focus) {
		focus[top] = clamp(out.Focus[top], 0, d.Len(cur))
	}
	out.Focus = focus

	if out.ZoomCursorIdx < 0 {
		out.ZoomCursorIdx = 0
	}
	if InAtom(out) {
		atom, ok := ZoomedAtom(d, out)
		if !ok {
			out.ZoomCursorIdx = 0
			out.CharCursor = 0
		} else {
			out.Focus[top] = out.ZoomCursorIdx
			out.CharCursor = clamp(out.CharCursor, 0, d.Len(atom))
		}
	} else {
		out.CharCursor = 0
	}
	return out
}

// ZoomIn descends into the focused node: a list becomes the new innermost list with the cursor
// at its end; an atom enters atom zoom with the char cursor at its end.
func ZoomIn(d *doc.Document, n model.Nav) model.Nav {
	if InAtom(n) {
		return n
	}
	id, ok := Focused(d, n)
	if !ok {
		return n
	}
	c := Cursor(n)
	out := n.Clone()
	switch k, _ := d.Kind(id); k {
	case model.NodeList:
		out.ZoomPath = append(out.ZoomPath, c-1)
		out.Focus = append(out.Focus, d.Len(id))
	case model.NodeAtom:
		out.ZoomCursorIdx = c
		out.CharCursor = d.Len(id)
	}
	return out
}

// ZoomOut leaves atom zoom first, then pops one list level.
func ZoomOut(n model.Nav) model.Nav {
	out := n.Clone()
	if InAtom(out) {
		out.ZoomCursorIdx = 0
		out.CharCursor = 0
		return out
	}
	if len(out.ZoomPath) == 0 {
		return out
	}
	out.ZoomPath = out.ZoomPath[:len(out.ZoomPath)-1]
	out.Focus = out.Focus[:len(out.Focus)-1]
	return out
}

type Direction int

const (
	Next Direction = iota
	Prev
	First
	Last
)

func (dir Direction) String() string {
	switch dir {
	case Next:
		return "next"
	case Prev:
		return "prev"
	case First:
		return "first"
	case Last:
		return "last"
	}
	return "unknown"
}

func move(c, length int, dir Direction) int {
	switch dir {
	case Next:
		c++
	case Prev:
		c--
	case First:
		c = 0
	case Last:
		c = length
	}
	return clamp(c, 0, length)
}

// Focus moves the cursor of the innermost container: characters in atom zoom, children otherwise.
func Focus(d *doc.Document, n model.Nav, dir Direction) model.Nav {
	if InAtom(n) {
		atom, ok := ZoomedAtom(d, n)
		if !ok {
			return n
		}
		out := n.Clone()
		out.CharCursor = move(n.CharCursor, d.Len(atom), dir)
		return out
	}
	list, ok := TopList(d, n)
	if !ok {
		return n
	}
	return SetCursor(n, move(Cursor(n), d.Len(list), dir))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
