package mutate

import (
	"strings"

	"keykapp/internal/doc"
	"keykapp/internal/model"
	"keykapp/internal/nav"
)

// InsertChar returns a mutator typing ch at the char cursor of the zoomed atom.
func InsertChar(ch string) Func {
	return func(tx *doc.Tx, n model.Nav) (Result, error) {
		atom, ok := nav.ZoomedAtom(tx.Doc(), n)
		if !ok || ch == "" {
			return unchanged(n)
		}
		if err := tx.InsertChar(atom, n.CharCursor, ch); err != nil {
			return Result{Nav: n}, err
		}
		out := n.Clone()
		out.CharCursor++
		return changed(tx, n, out)
	}
}

// MapFocusedChar returns a mutator replacing the focused character with fn(char).
// An empty replacement deletes the character.
func MapFocusedChar(fn func(string) string) Func {
	return func(tx *doc.Tx, n model.Nav) (Result, error) {
		d := tx.Doc()
		atom, ok := nav.ZoomedAtom(d, n)
		if !ok {
			return unchanged(n)
		}
		ch, ok := nav.FocusedChar(d, n)
		if !ok {
			return unchanged(n)
		}
		repl := fn(ch)
		if repl == ch {
			return unchanged(n)
		}
		idx := n.CharCursor - 1
		if err := tx.DeleteAt(atom, idx); err != nil {
			return Result{Nav: n}, err
		}
		out := n.Clone()
		out.CharCursor = idx
		if repl != "" {
			if err := tx.InsertChar(atom, idx, repl); err != nil {
				return Result{Nav: n}, err
			}
			out.CharCursor = idx + 1
		}
		return changed(tx, n, out)
	}
}

var Upcase = MapFocusedChar(strings.ToUpper)
