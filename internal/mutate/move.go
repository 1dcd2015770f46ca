package mutate

import (
	"keykapp/internal/doc"
	"keykapp/internal/model"
	"keykapp/internal/nav"
)

// MoveBack swaps the focused element with its previous sibling. Focus follows the element.
func MoveBack(tx *doc.Tx, n model.Nav) (Result, error) {
	return moveBy(tx, n, -1)
}

// MoveForth swaps the focused element with its next sibling. Focus follows the element.
func MoveForth(tx *doc.Tx, n model.Nav) (Result, error) {
	return moveBy(tx, n, 1)
}

func moveBy(tx *doc.Tx, n model.Nav, delta int) (Result, error) {
	if nav.InAtom(n) {
		return unchanged(n)
	}
	d := tx.Doc()
	list, err := Resolve(d, n)
	if err != nil {
		return unchanged(n)
	}
	idx := nav.Cursor(n) - 1
	to := idx + delta
	if idx < 0 || idx >= d.Len(list) || to < 0 || to >= d.Len(list) {
		return unchanged(n)
	}
	if err := tx.Move(list, idx, to); err != nil {
		return Result{Nav: n}, err
	}
	return changed(tx, n, nav.SetCursor(n, to+1))
}
