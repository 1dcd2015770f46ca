package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keykapp/internal/doc"
	"keykapp/internal/kapp"
	"keykapp/internal/model"
	"keykapp/internal/nav"
)

func newSession(t *testing.T, replica string, persisted *[]model.Entry) *Session {
	t.Helper()
	opts := Options{
		Replica: replica,
		Now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	if persisted != nil {
		opts.Persist = func(e model.Entry) error {
			*persisted = append(*persisted, e)
			return nil
		}
	}
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func run(t *testing.T, s *Session, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := s.Execute(id)
		require.NoError(t, err, id)
	}
}

func typeText(text string) []string {
	var ids []string
	for _, r := range text {
		ids = append(ids, kapp.CharID(int(r)))
	}
	return ids
}

func TestNewTextTypeZoomOutDelete(t *testing.T) {
	s := newSession(t, "a", nil)
	run(t, s, kapp.ModeInsert, kapp.TextNew)
	run(t, s, typeText("aaa")...)
	require.True(t, s.Snapshot().Document.Equal(doc.List(doc.Atom("aaa"))))

	run(t, s, kapp.ZoomOut, kapp.Delete)
	snap := s.Snapshot()
	require.True(t, snap.Document.Equal(doc.List()))
	require.Equal(t, 0, nav.Cursor(snap.Nav))
	require.False(t, nav.InAtom(snap.Nav))
}

func TestUndoAfterDeleteRestoresNode(t *testing.T) {
	s := newSession(t, "a", nil)
	run(t, s, kapp.ModeInsert, kapp.TextNew)
	run(t, s, typeText("one")...)
	run(t, s, kapp.ZoomOut, kapp.TextNew)
	run(t, s, typeText("two")...)
	run(t, s, kapp.ZoomOut, kapp.FocusFirst, kapp.FocusNext)
	require.Equal(t, 1, nav.Cursor(s.Nav()))

	run(t, s, kapp.Delete)
	require.True(t, s.Snapshot().Document.Equal(doc.List(doc.Atom("two"))))

	out, err := s.Execute(kapp.Undo)
	require.NoError(t, err)
	require.Equal(t, model.EntryUndo, out.Entry.Kind)
	require.True(t, s.Snapshot().Document.Equal(doc.List(doc.Atom("one"), doc.Atom("two"))))
	require.Equal(t, 1, nav.Cursor(s.Nav()))

	run(t, s, kapp.Redo)
	require.True(t, s.Snapshot().Document.Equal(doc.List(doc.Atom("two"))))

	// Undo is a forward entry: nothing was removed from the log.
	ids := model.ActionIDs(s.Log())
	require.Equal(t, kapp.Redo, ids[len(ids)-1])
	require.Equal(t, kapp.Undo, ids[len(ids)-2])
}

func TestUndoWithEmptyHistoryIsNoop(t *testing.T) {
	s := newSession(t, "a", nil)
	out, err := s.Execute(kapp.Undo)
	require.NoError(t, err)
	require.True(t, out.Entry.Target.IsZero())
	require.True(t, s.Snapshot().Document.Equal(doc.List()))
}

func TestPressingKeysExecutesAction(t *testing.T) {
	s := newSession(t, "a", nil)
	keys, ok := s.Tree().KeysOf(kapp.ModeInsert)
	require.True(t, ok)
	require.NotEmpty(t, keys)

	var out Outcome
	for i, k := range keys {
		var err error
		out, err = s.OnKeyswitch(k)
		require.NoError(t, err)
		if i < len(keys)-1 {
			require.Empty(t, out.Action)
			require.Equal(t, keys[:i+1], out.Pending)
		}
	}
	require.Equal(t, kapp.ModeInsert, out.Action)
	require.Equal(t, model.ModeInsert, s.Snapshot().Mode)
	require.Empty(t, s.PendingKeys())
	require.Contains(t, s.Eligible(), kapp.TextNew)
}

func TestBackAndReset(t *testing.T) {
	s := newSession(t, "a", nil)
	var deep []string
	for _, l := range s.Tree().Leaves() {
		if len(l.Path) >= 2 {
			deep, _ = s.Tree().KeysOf(l.Action)
			break
		}
	}
	require.NotEmpty(t, deep, "menu mode should need two-key paths")

	_, err := s.OnKeyswitch(deep[0])
	require.NoError(t, err)
	require.Equal(t, deep[:1], s.PendingKeys())
	s.Back()
	require.Empty(t, s.PendingKeys())

	_, err = s.OnKeyswitch(deep[0])
	require.NoError(t, err)
	s.Reset()
	require.Empty(t, s.PendingKeys())
}

func TestLegendsFollowPendingPath(t *testing.T) {
	s := newSession(t, "a", nil)
	legends := s.Legends()
	require.Len(t, legends, s.Keys().Len())
	total := 0
	for _, l := range legends {
		total += len(l.Actions)
		require.Len(t, l.Labels, len(l.Actions))
	}
	require.Equal(t, len(s.Eligible()), total)
}

func TestUnknownIDsFail(t *testing.T) {
	s := newSession(t, "a", nil)
	_, err := s.Execute("/userland/kapp/nope")
	require.ErrorIs(t, err, kapp.ErrUnknownAction)

	_, err = s.OnKeyswitch("z")
	require.ErrorIs(t, err, ErrUnknownKeyswitch)
}

func TestIneligibleActionIsNoop(t *testing.T) {
	s := newSession(t, "a", nil)
	out, err := s.Execute(kapp.Delete)
	require.NoError(t, err)
	assert.Empty(t, out.Entry.Ops)
	assert.True(t, s.Snapshot().Document.Equal(doc.List()))
}

func TestPersistFailureKeepsState(t *testing.T) {
	fail := errors.New("disk full")
	s, err := New(Options{Replica: "a", Persist: func(model.Entry) error { return fail }})
	require.NoError(t, err)

	_, err = s.Execute(kapp.ListNew)
	require.ErrorIs(t, err, fail)
	require.True(t, s.Snapshot().Document.Equal(doc.List(doc.List())))
	require.Equal(t, 1, len(s.Log()))
}

func TestExportAndCopyHooks(t *testing.T) {
	var exported SyncRoot
	var copied string
	s, err := New(Options{
		Replica: "a",
		Export:  func(r SyncRoot) error { exported = r; return nil },
		Copy:    func(text string) error { copied = text; return nil },
	})
	require.NoError(t, err)

	run(t, s, kapp.ModeInsert, kapp.TextNew)
	run(t, s, typeText("hi")...)
	require.Contains(t, s.Eligible(), kapp.TextCopy)
	run(t, s, kapp.TextCopy, kapp.Export)

	require.Equal(t, "hi", copied)
	require.Equal(t, "a", exported.Replica)
	require.True(t, exported.Document.Equal(doc.List(doc.Atom("hi"))))
	require.Len(t, exported.Log, len(s.Log()))
	require.Equal(t, kapp.Export, exported.Log[len(exported.Log)-1].Action)
}

func TestOpenRestoresState(t *testing.T) {
	var persisted []model.Entry
	s := newSession(t, "a", &persisted)
	run(t, s, kapp.ModeInsert, kapp.ListNew, kapp.ZoomIn, kapp.TextNew)
	run(t, s, typeText("xy")...)

	re, err := Open(Options{Replica: "a"}, persisted)
	require.NoError(t, err)
	require.True(t, re.Snapshot().Document.Equal(s.Snapshot().Document))
	require.True(t, re.Nav().Equal(s.Nav()))
	require.Equal(t, s.Eligible(), re.Eligible())
	require.True(t, re.Tree().Equal(s.Tree()))
	require.Equal(t, s.Frequencies().Total(), re.Frequencies().Total())
}

func TestMergeConverges(t *testing.T) {
	a := newSession(t, "a", nil)
	b := newSession(t, "b", nil)
	run(t, a, kapp.ModeInsert, kapp.TextNew)
	run(t, a, typeText("left")...)
	run(t, b, kapp.ModeInsert, kapp.TextNew)
	run(t, b, typeText("right")...)

	n, err := a.Merge(b.Log())
	require.NoError(t, err)
	require.Equal(t, len(b.Log()), n)
	_, err = b.Merge(a.Log())
	require.NoError(t, err)

	require.True(t, a.Snapshot().Document.Equal(b.Snapshot().Document))
	require.Len(t, a.Snapshot().Document.Children, 2)
	require.Equal(t, model.ActionIDs(a.Log()), model.ActionIDs(b.Log()))

	again, err := a.Merge(b.Log())
	require.NoError(t, err)
	require.Zero(t, again)
}

func TestMergeClampsNavigation(t *testing.T) {
	a := newSession(t, "a", nil)
	run(t, a, kapp.ListNew, kapp.ZoomIn, kapp.ListNew, kapp.ZoomIn)
	require.Len(t, a.Nav().ZoomPath, 2)

	b := newSession(t, "b", nil)
	_, err := b.Merge(a.Log())
	require.NoError(t, err)
	run(t, b, kapp.FocusFirst, kapp.FocusNext, kapp.Delete)

	_, err = a.Merge(b.Log())
	require.NoError(t, err)
	require.True(t, a.Snapshot().Document.Equal(doc.List()))
	require.Empty(t, a.Nav().ZoomPath)
	require.Equal(t, 0, nav.Cursor(a.Nav()))
}

func TestImportGraftsAtCursor(t *testing.T) {
	s := newSession(t, "a", nil)
	run(t, s, kapp.ListNew)
	_, err := s.Import(doc.List(doc.Atom("x"), doc.List(doc.Atom("y"))))
	require.NoError(t, err)
	require.True(t, s.Snapshot().Document.Equal(doc.List(doc.List(), doc.Atom("x"), doc.List(doc.Atom("y")))))
	require.Equal(t, 3, nav.Cursor(s.Nav()))

	run(t, s, kapp.Undo)
	require.True(t, s.Snapshot().Document.Equal(doc.List(doc.List())))
}

func TestTypingLongAtom(t *testing.T) {
	s := newSession(t, "a", nil)
	run(t, s, kapp.ModeInsert, kapp.TextNew)
	text := strings.Repeat("x", 2000)
	run(t, s, typeText(text)...)
	require.True(t, s.Snapshot().Document.Equal(doc.List(doc.Atom(text))))

	other := newSession(t, "b", nil)
	_, err := other.Merge(s.Log())
	require.NoError(t, err)
	require.True(t, other.Snapshot().Document.Equal(doc.List(doc.Atom(text))))
}
