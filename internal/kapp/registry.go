// Package kapp is the catalog of actions ("kapps") and the eligibility rules that decide which
// of them are offered for the current navigation state.
package kapp

import (
	"errors"
	"fmt"
	"sort"

	"keykapp/internal/doc"
	"keykapp/internal/model"
	"keykapp/internal/mutate"
	"keykapp/internal/nav"
)

// ErrUnknownAction means a tree or log referenced an id the registry does not have.
var ErrUnknownAction = errors.New("unknown action")

type Kind string

const (
	KindDocument Kind = "document"
	KindMode     Kind = "mode"
)

// Action is one kapp. Document actions carry a mutator; mode actions are interpreted by the
// session (mode switches, export, undo and redo).
type Action struct {
	ID        string
	Legend    string
	ShortName string
	Kind      Kind
	Eligible  func(d *doc.Document, n model.Nav) bool
	Mutate    mutate.Func
}

func (a Action) IsEligible(d *doc.Document, n model.Nav) bool {
	if a.Eligible == nil {
		return true
	}
	return a.Eligible(d, n)
}

// Registry is immutable after construction and safe to share.
type Registry struct {
	byID  map[string]Action
	order []string
}

func NewRegistry(actions []Action) (*Registry, error) {
	r := &Registry{byID: make(map[string]Action, len(actions))}
	for _, a := range actions {
		if a.ID == "" {
			return nil, errors.New("action with empty id")
		}
		if _, dup := r.byID[a.ID]; dup {
			return nil, fmt.Errorf("duplicate action id %q", a.ID)
		}
		if a.Kind == KindDocument && a.Mutate == nil {
			return nil, fmt.Errorf("document action %q has no mutator", a.ID)
		}
		r.byID[a.ID] = a
		r.order = append(r.order, a.ID)
	}
	sort.Strings(r.order)
	return r, nil
}

// Default builds the standard catalog.
func Default() *Registry {
	r, err := NewRegistry(builtin())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(id string) (Action, error) {
	a, ok := r.byID[id]
	if !ok {
		return Action{}, fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	return a, nil
}

func (r *Registry) Len() int { return len(r.order) }

// All returns every action sorted by id.
func (r *Registry) All() []Action {
	out := make([]Action, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Eligible returns the ids of the actions offered for (d, n), sorted. Mode actions are always
// included, so the result is never empty.
func (r *Registry) Eligible(d *doc.Document, n model.Nav) []string {
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if r.byID[id].IsEligible(d, n) {
			out = append(out, id)
		}
	}
	return out
}

func insertMode(_ *doc.Document, n model.Nav) bool { return n.Mode == model.ModeInsert }

func listLevel(d *doc.Document, n model.Nav) bool {
	if nav.InAtom(n) {
		return false
	}
	_, ok := nav.TopList(d, n)
	return ok
}

func listOrAtom(d *doc.Document, n model.Nav) bool {
	if nav.InAtom(n) {
		_, ok := nav.ZoomedAtom(d, n)
		return ok
	}
	return listLevel(d, n)
}

func atomZoom(d *doc.Document, n model.Nav) bool {
	_, ok := nav.ZoomedAtom(d, n)
	return ok
}

func all(preds ...func(*doc.Document, model.Nav) bool) func(*doc.Document, model.Nav) bool {
	return func(d *doc.Document, n model.Nav) bool {
		for _, p := range preds {
			if !p(d, n) {
				return false
			}
		}
		return true
	}
}

func focusedNode(d *doc.Document, n model.Nav) bool {
	_, ok := nav.Focused(d, n)
	return ok
}

func focusedChar(d *doc.Document, n model.Nav) bool {
	_, ok := nav.FocusedChar(d, n)
	return ok
}

func notRoot(_ *doc.Document, n model.Nav) bool { return !nav.AtRoot(n) }

// copyable reports whether there is atom text to copy: the zoomed atom or a focused atom.
func copyable(d *doc.Document, n model.Nav) bool {
	if nav.InAtom(n) {
		return atomZoom(d, n)
	}
	id, ok := nav.Focused(d, n)
	if !ok {
		return false
	}
	k, _ := d.Kind(id)
	return k == model.NodeAtom
}

// CopyTarget is the atom text:copy! would copy.
func CopyTarget(d *doc.Document, n model.Nav) (string, bool) {
	if !copyable(d, n) {
		return "", false
	}
	if id, ok := nav.ZoomedAtom(d, n); ok {
		return d.Text(id), true
	}
	id, _ := nav.Focused(d, n)
	return d.Text(id), true
}

func builtin() []Action {
	docAction := func(id, short string, eligible func(*doc.Document, model.Nav) bool, fn mutate.Func) Action {
		return Action{ID: id, Legend: short[1:], ShortName: short, Kind: KindDocument, Eligible: eligible, Mutate: fn}
	}
	modeAction := func(id, short string) Action {
		return Action{ID: id, Legend: short[1:], ShortName: short, Kind: KindMode}
	}

	actions := []Action{
		docAction(TextNew, ":text-new", all(insertMode, listOrAtom), mutate.TextNew),
		docAction(ListNew, ":list-new", listLevel, mutate.ListNew),
		docAction(MoveBack, ":move-back", all(listLevel, focusedNode), mutate.MoveBack),
		docAction(MoveForth, ":move-forth", all(listLevel, focusedNode), mutate.MoveForth),
		docAction(ZoomIn, ":zoom-in", all(listLevel, focusedNode), mutate.ZoomIn),
		docAction(ZoomOut, ":zoom-out", notRoot, mutate.ZoomOut),
		docAction(Delete, ":delete", listOrAtom, mutate.Delete),
		docAction(FocusNext, ":focus-next", listOrAtom, mutate.Focus(nav.Next)),
		docAction(FocusPrev, ":focus-prev", listOrAtom, mutate.Focus(nav.Prev)),
		docAction(FocusFirst, ":focus-first", listOrAtom, mutate.Focus(nav.First)),
		docAction(FocusLast, ":focus-last", listOrAtom, mutate.Focus(nav.Last)),
		docAction(Upcase, ":upcase", all(insertMode, atomZoom, focusedChar), mutate.Upcase),

		modeAction(ModeInsert, ":mode-insert"),
		modeAction(ModeMenu, ":mode-menu"),
		modeAction(Export, ":export!"),
		modeAction(Undo, ":undo"),
		modeAction(Redo, ":redo"),
		{ID: TextCopy, Legend: "copy!", ShortName: ":copy!", Kind: KindMode, Eligible: copyable},
	}
	return append(actions, charActions(all(insertMode, atomZoom))...)
}

// charActions are the literal kapps: printable ASCII plus newline.
func charActions(eligible func(*doc.Document, model.Nav) bool) []Action {
	var out []Action
	add := func(code int, short, legend string) {
		out = append(out, Action{
			ID:        CharID(code),
			Legend:    legend,
			ShortName: short,
			Kind:      KindDocument,
			Eligible:  eligible,
			Mutate:    mutate.InsertChar(string(rune(code))),
		})
	}
	add('\n', "\\n", "newline")
	add(' ', "space", "space")
	for code := 33; code <= 126; code++ {
		ch := string(rune(code))
		add(code, ch, fmt.Sprintf("write '%s'", ch))
	}
	return out
}
