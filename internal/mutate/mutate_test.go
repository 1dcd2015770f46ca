package mutate

import (
	"errors"
	"testing"

	"keykapp/internal/doc"
	"keykapp/internal/model"
	"keykapp/internal/nav"
)

type harness struct {
	t   *testing.T
	r   *doc.Replica
	nav model.Nav
}

func newHarness(t *testing.T) *harness {
	n := model.NewNav()
	n.Mode = model.ModeInsert
	return &harness{t: t, r: doc.NewReplica("a"), nav: n}
}

func (h *harness) run(name string, fn Func) Result {
	h.t.Helper()
	before := h.nav
	tx := h.r.Doc.Begin(h.r.ID)
	res, err := fn(tx, h.nav)
	if err != nil {
		h.t.Fatalf("%s: %v", name, err)
	}
	h.r.Commit(model.Entry{ID: tx.ID(), Action: name, Kind: model.EntryDocument, Ops: tx.Ops(), NavBefore: before, NavAfter: res.Nav})
	h.nav = res.Nav
	return res
}

func (h *harness) snapshot() doc.Sexp { return h.r.Doc.Snapshot() }

func TestTextNewThenCharsThenDelete(t *testing.T) {
	h := newHarness(t)
	h.run("list", ListNew)
	h.run("text", TextNew)
	h.run("zoom-out", ZoomOut)
	if got := nav.Cursor(h.nav); got != 2 {
		t.Fatalf("expected cursor 2 before scenario, got %d", got)
	}
	before := nav.Cursor(h.nav)

	h.run("text", TextNew)
	for i := 0; i < 3; i++ {
		h.run("a", InsertChar("a"))
	}
	if !h.snapshot().Equal(doc.List(doc.List(), doc.Atom(""), doc.Atom("aaa"))) {
		t.Fatalf("unexpected doc: %+v", h.snapshot())
	}
	h.run("zoom-out", ZoomOut)
	if nav.InAtom(h.nav) {
		t.Fatalf("expected zoom-out to leave atom zoom")
	}
	h.run("delete", Delete)

	if !h.snapshot().Equal(doc.List(doc.List(), doc.Atom(""))) {
		t.Fatalf("expected aaa removed, got %+v", h.snapshot())
	}
	if got := nav.Cursor(h.nav); got != before {
		t.Fatalf("expected cursor %d, got %d", before, got)
	}
}

func TestDeleteAtCursorZeroIsNoop(t *testing.T) {
	h := newHarness(t)
	res := h.run("delete", Delete)
	if res.Changed {
		t.Fatalf("expected no change")
	}
}

func TestDeleteInAtomRemovesChar(t *testing.T) {
	h := newHarness(t)
	h.run("text", TextNew)
	h.run("x", InsertChar("x"))
	h.run("y", InsertChar("y"))
	h.run("delete", Delete)
	if !h.snapshot().Equal(doc.List(doc.Atom("x"))) {
		t.Fatalf("got %+v", h.snapshot())
	}
	if h.nav.CharCursor != 1 {
		t.Fatalf("expected char cursor 1, got %d", h.nav.CharCursor)
	}
}

func TestTextNewInsideAtomAddsSibling(t *testing.T) {
	h := newHarness(t)
	h.run("text", TextNew)
	h.run("x", InsertChar("x"))
	h.run("text", TextNew)
	h.run("y", InsertChar("y"))
	if !h.snapshot().Equal(doc.List(doc.Atom("x"), doc.Atom("y"))) {
		t.Fatalf("got %+v", h.snapshot())
	}
	if h.nav.ZoomCursorIdx != 2 || nav.Cursor(h.nav) != 2 {
		t.Fatalf("unexpected nav %+v", h.nav)
	}
}

func TestMoveBackAndForth(t *testing.T) {
	h := newHarness(t)
	for _, s := range []string{"a", "b", "c"} {
		h.run("text", TextNew)
		h.run(s, InsertChar(s))
		h.run("zoom-out", ZoomOut)
	}
	h.run("back", MoveBack)
	if !h.snapshot().Equal(doc.List(doc.Atom("a"), doc.Atom("c"), doc.Atom("b"))) {
		t.Fatalf("got %+v", h.snapshot())
	}
	if nav.Cursor(h.nav) != 2 {
		t.Fatalf("expected focus to follow the element, cursor=%d", nav.Cursor(h.nav))
	}
	h.run("back", MoveBack)
	if res := h.run("back", MoveBack); res.Changed {
		t.Fatalf("moving the first element back should be a no-op")
	}
	h.run("forth", MoveForth)
	h.run("forth", MoveForth)
	if res := h.run("forth", MoveForth); res.Changed {
		t.Fatalf("moving the last element forth should be a no-op")
	}
	if !h.snapshot().Equal(doc.List(doc.Atom("a"), doc.Atom("b"), doc.Atom("c"))) {
		t.Fatalf("got %+v", h.snapshot())
	}
}

func TestZoomIntoListAndOut(t *testing.T) {
	h := newHarness(t)
	h.run("list", ListNew)
	h.run("in", ZoomIn)
	if len(h.nav.ZoomPath) != 1 || h.nav.ZoomPath[0] != 0 {
		t.Fatalf("unexpected zoom path %v", h.nav.ZoomPath)
	}
	h.run("text", TextNew)
	h.run("z", InsertChar("z"))
	h.run("out", ZoomOut)
	h.run("out", ZoomOut)
	if !nav.AtRoot(h.nav) || nav.Cursor(h.nav) != 1 {
		t.Fatalf("unexpected nav %+v", h.nav)
	}
	if !h.snapshot().Equal(doc.List(doc.List(doc.Atom("z")))) {
		t.Fatalf("got %+v", h.snapshot())
	}
}

func TestUpcaseFocusedChar(t *testing.T) {
	h := newHarness(t)
	h.run("text", TextNew)
	h.run("a", InsertChar("a"))
	h.run("b", InsertChar("b"))
	h.run("prev", Focus(nav.Prev))
	h.run("upcase", Upcase)
	if !h.snapshot().Equal(doc.List(doc.Atom("Ab"))) {
		t.Fatalf("got %+v", h.snapshot())
	}
	if h.nav.CharCursor != 1 {
		t.Fatalf("expected char cursor to stay on the char, got %d", h.nav.CharCursor)
	}
	h.run("next", Focus(nav.Next))
	h.run("upcase", Upcase)
	if !h.snapshot().Equal(doc.List(doc.Atom("AB"))) {
		t.Fatalf("got %+v", h.snapshot())
	}
	if res := h.run("upcase", Upcase); res.Changed {
		t.Fatalf("upcasing an upper-case char should be a no-op")
	}
}

func TestStaleZoomPathIsNoop(t *testing.T) {
	h := newHarness(t)
	h.nav.ZoomPath = []int{3}
	h.nav.Focus = []int{4, 0}
	res := h.run("list", ListNew)
	if res.Changed {
		t.Fatalf("expected no-op on stale zoom path")
	}
	_, err := Resolve(h.r.Doc, h.nav)
	var nf NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Kind != "list" {
		t.Fatalf("unexpected kind %q", nf.Kind)
	}
}
