package doc

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"keykapp/internal/model"
)

func commitTx(t *testing.T, r *Replica, action string, fn func(tx *Tx) error) model.Entry {
	t.Helper()
	tx := r.Doc.Begin(r.ID)
	require.NoError(t, fn(tx))
	e := model.Entry{ID: tx.ID(), Action: action, Kind: model.EntryDocument, Ops: tx.Ops(), NavBefore: model.NewNav(), NavAfter: model.NewNav()}
	r.Commit(e)
	return e
}

func typeAtom(tx *Tx, list model.OpID, idx int, text string) (model.OpID, error) {
	id, err := tx.InsertNode(list, idx, model.NodeAtom)
	if err != nil {
		return id, err
	}
	for i, r := range text {
		if err := tx.InsertChar(id, i, string(r)); err != nil {
			return id, err
		}
	}
	return id, nil
}

func TestInsertAndDelete(t *testing.T) {
	r := NewReplica("a")
	commitTx(t, r, "t", func(tx *Tx) error {
		if _, err := typeAtom(tx, model.RootID, 0, "hi"); err != nil {
			return err
		}
		_, err := typeAtom(tx, model.RootID, 1, "yo")
		return err
	})
	require.True(t, r.Doc.Snapshot().Equal(List(Atom("hi"), Atom("yo"))))

	commitTx(t, r, "d", func(tx *Tx) error { return tx.DeleteAt(model.RootID, 0) })
	require.True(t, r.Doc.Snapshot().Equal(List(Atom("yo"))))
	require.Equal(t, 1, r.Doc.Len(model.RootID))
}

func TestMoveKeepsNodeContents(t *testing.T) {
	r := NewReplica("a")
	commitTx(t, r, "t", func(tx *Tx) error {
		for i, s := range []string{"a", "b", "c"} {
			if _, err := typeAtom(tx, model.RootID, i, s); err != nil {
				return err
			}
		}
		return nil
	})
	commitTx(t, r, "m", func(tx *Tx) error { return tx.Move(model.RootID, 2, 0) })
	require.True(t, r.Doc.Snapshot().Equal(List(Atom("c"), Atom("a"), Atom("b"))))

	commitTx(t, r, "m", func(tx *Tx) error { return tx.Move(model.RootID, 0, 2) })
	require.True(t, r.Doc.Snapshot().Equal(List(Atom("a"), Atom("b"), Atom("c"))))
}

func TestApplyIsIdempotent(t *testing.T) {
	a := NewReplica("a")
	e := commitTx(t, a, "t", func(tx *Tx) error {
		_, err := typeAtom(tx, model.RootID, 0, "abc")
		return err
	})

	b := NewReplica("b")
	for i := 0; i < 3; i++ {
		_, err := b.Merge([]model.Entry{e})
		require.NoError(t, err)
		for _, op := range e.Ops {
			require.NoError(t, b.Doc.Apply(op))
		}
	}
	require.Equal(t, 1, b.Len())
	require.True(t, a.Doc.Snapshot().Equal(b.Doc.Snapshot()))
}

func TestOutOfOrderEntriesWaitForDependencies(t *testing.T) {
	a := NewReplica("a")
	first := commitTx(t, a, "t", func(tx *Tx) error {
		_, err := typeAtom(tx, model.RootID, 0, "x")
		return err
	})
	second := commitTx(t, a, "t", func(tx *Tx) error {
		atom, _ := a.Doc.ChildAt(model.RootID, 0)
		return tx.InsertChar(atom, 1, "y")
	})

	b := NewReplica("b")
	n, err := b.Merge([]model.Entry{second})
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, 1, b.Pending())

	n, err = b.Merge([]model.Entry{first})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 0, b.Pending())
	require.True(t, b.Doc.Snapshot().Equal(List(Atom("xy"))))
}

func TestConcurrentEditsConverge(t *testing.T) {
	base := NewReplica("a")
	seed := commitTx(t, base, "t", func(tx *Tx) error {
		_, err := typeAtom(tx, model.RootID, 0, "base")
		return err
	})

	a := NewReplica("a")
	b := NewReplica("b")
	c := NewReplica("c")
	for _, r := range []*Replica{a, b, c} {
		_, err := r.Merge([]model.Entry{seed})
		require.NoError(t, err)
	}

	var all []model.Entry
	all = append(all, seed)
	all = append(all, commitTx(t, a, "t", func(tx *Tx) error {
		_, err := typeAtom(tx, model.RootID, 0, "fromA")
		return err
	}))
	all = append(all, commitTx(t, b, "t", func(tx *Tx) error {
		_, err := typeAtom(tx, model.RootID, 0, "fromB")
		return err
	}))
	all = append(all, commitTx(t, b, "d", func(tx *Tx) error {
		return tx.DeleteAt(model.RootID, 1)
	}))
	all = append(all, commitTx(t, c, "d", func(tx *Tx) error {
		return tx.DeleteAt(model.RootID, 0)
	}))
	all = append(all, commitTx(t, c, "t", func(tx *Tx) error {
		list, err := tx.InsertNode(model.RootID, 0, model.NodeList)
		if err != nil {
			return err
		}
		_, err = typeAtom(tx, list, 0, "nested")
		return err
	}))

	rng := rand.New(rand.NewSource(7))
	var want Sexp
	for round := 0; round < 20; round++ {
		perm := rng.Perm(len(all))
		r := NewReplica("observer")
		for _, i := range perm {
			_, err := r.Merge([]model.Entry{all[i]})
			require.NoError(t, err)
		}
		require.Equal(t, 0, r.Pending())
		got := r.Doc.Snapshot()
		if round == 0 {
			want = got
			continue
		}
		require.True(t, want.Equal(got), "round %d diverged", round)
	}
	require.Len(t, want.Children, 3)
}

func TestConcurrentInsertsAtSameAnchor(t *testing.T) {
	a := NewReplica("a")
	b := NewReplica("b")
	ea := commitTx(t, a, "t", func(tx *Tx) error {
		_, err := typeAtom(tx, model.RootID, 0, "a")
		return err
	})
	eb := commitTx(t, b, "t", func(tx *Tx) error {
		_, err := typeAtom(tx, model.RootID, 0, "b")
		return err
	})
	_, err := a.Merge([]model.Entry{eb})
	require.NoError(t, err)
	_, err = b.Merge([]model.Entry{ea})
	require.NoError(t, err)
	require.True(t, a.Doc.Snapshot().Equal(b.Doc.Snapshot()))
	require.Equal(t, a.Log(), b.Log())
}

func TestUndoRestoresDeletedNode(t *testing.T) {
	r := NewReplica("a")
	commitTx(t, r, "t", func(tx *Tx) error {
		_, err := typeAtom(tx, model.RootID, 0, "keep")
		if err != nil {
			return err
		}
		_, err = typeAtom(tx, model.RootID, 1, "gone")
		return err
	})
	del := commitTx(t, r, "d", func(tx *Tx) error { return tx.DeleteAt(model.RootID, 1) })
	require.True(t, r.Doc.Snapshot().Equal(List(Atom("keep"))))

	target, ok := r.History.UndoTarget()
	require.True(t, ok)
	require.Equal(t, del.ID, target.ID)

	tx := r.Doc.Begin(r.ID)
	require.NoError(t, tx.Revert(target.Ops))
	r.Commit(model.Entry{ID: tx.ID(), Kind: model.EntryUndo, Target: target.ID, Ops: tx.Ops()})
	require.True(t, r.Doc.Snapshot().Equal(List(Atom("keep"), Atom("gone"))))

	undo, redo := r.History.Depths()
	require.Equal(t, 1, undo)
	require.Equal(t, 1, redo)

	target, ok = r.History.RedoTarget()
	require.True(t, ok)
	tx = r.Doc.Begin(r.ID)
	require.NoError(t, tx.Reapply(target.Ops))
	r.Commit(model.Entry{ID: tx.ID(), Kind: model.EntryRedo, Target: target.ID, Ops: tx.Ops()})
	require.True(t, r.Doc.Snapshot().Equal(List(Atom("keep"))))
}

func TestNewActionClearsRedo(t *testing.T) {
	r := NewReplica("a")
	e := commitTx(t, r, "t", func(tx *Tx) error {
		_, err := typeAtom(tx, model.RootID, 0, "x")
		return err
	})
	tx := r.Doc.Begin(r.ID)
	require.NoError(t, tx.Revert(e.Ops))
	r.Commit(model.Entry{ID: tx.ID(), Kind: model.EntryUndo, Target: e.ID, Ops: tx.Ops()})
	_, redo := r.History.Depths()
	require.Equal(t, 1, redo)

	commitTx(t, r, "t", func(tx *Tx) error {
		_, err := typeAtom(tx, model.RootID, 0, "y")
		return err
	})
	_, redo = r.History.Depths()
	require.Equal(t, 0, redo)
}

func TestGraftCopiesTree(t *testing.T) {
	want := List(Atom("a"), List(Atom("b"), List()), Atom(""))
	r := NewReplica("a")
	commitTx(t, r, "import", func(tx *Tx) error {
		_, err := tx.Graft(model.RootID, 0, want)
		return err
	})
	require.True(t, want.Equal(r.Doc.Snapshot()))

	list, ok := r.Doc.Resolve([]int{1})
	require.True(t, ok)
	require.Equal(t, 2, r.Doc.Len(list))
	_, ok = r.Doc.Resolve([]int{0})
	require.False(t, ok)
}

func TestLongAtomAcceptsEveryChar(t *testing.T) {
	r := NewReplica("a")
	const n = 10000
	commitTx(t, r, "t", func(tx *Tx) error {
		atom, err := tx.InsertNode(model.RootID, 0, model.NodeAtom)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := tx.InsertChar(atom, i, "x"); err != nil {
				return err
			}
		}
		return nil
	})
	atom, _ := r.Doc.ChildAt(model.RootID, 0)
	require.Equal(t, n, r.Doc.Len(atom))
	require.Equal(t, strings.Repeat("x", n), r.Doc.Text(atom))
}

func TestRepeatedInsertsAtOnePoint(t *testing.T) {
	r := NewReplica("a")
	commitTx(t, r, "t", func(tx *Tx) error {
		if _, err := typeAtom(tx, model.RootID, 0, "first"); err != nil {
			return err
		}
		_, err := typeAtom(tx, model.RootID, 1, "last")
		return err
	})
	const n = 10000
	e := commitTx(t, r, "t", func(tx *Tx) error {
		for i := 0; i < n; i++ {
			if _, err := tx.InsertNode(model.RootID, 1, model.NodeList); err != nil {
				return err
			}
		}
		return nil
	})
	require.Equal(t, n+2, r.Doc.Len(model.RootID))
	snap := r.Doc.Snapshot()
	require.Equal(t, "first", snap.Children[0].Text)
	require.Equal(t, "last", snap.Children[n+1].Text)

	// A remote replica integrates the same ops into the same order.
	other := NewReplica("b")
	_, err := other.Merge(r.Log())
	require.NoError(t, err)
	require.Equal(t, 0, other.Pending())
	require.True(t, snap.Equal(other.Doc.Snapshot()))
	require.Len(t, e.Ops, n)
}

func TestGraftLongAtom(t *testing.T) {
	text := strings.Repeat("ab", 2500)
	want := List(Atom(text))
	r := NewReplica("a")
	commitTx(t, r, "import", func(tx *Tx) error {
		_, err := tx.Graft(model.RootID, 0, want)
		return err
	})
	require.True(t, want.Equal(r.Doc.Snapshot()))
}

func TestConcurrentMoveOfOneNodeShowsItOnce(t *testing.T) {
	base := NewReplica("a")
	seed := commitTx(t, base, "t", func(tx *Tx) error {
		if _, err := typeAtom(tx, model.RootID, 0, "x"); err != nil {
			return err
		}
		_, err := typeAtom(tx, model.RootID, 1, "y")
		return err
	})

	a := NewReplica("a")
	b := NewReplica("b")
	for _, r := range []*Replica{a, b} {
		_, err := r.Merge([]model.Entry{seed})
		require.NoError(t, err)
	}
	ma := commitTx(t, a, "m", func(tx *Tx) error { return tx.Move(model.RootID, 1, 0) })
	mb := commitTx(t, b, "m", func(tx *Tx) error { return tx.Move(model.RootID, 1, 0) })

	_, err := a.Merge([]model.Entry{mb})
	require.NoError(t, err)
	_, err = b.Merge([]model.Entry{ma})
	require.NoError(t, err)

	want := List(Atom("y"), Atom("x"))
	require.True(t, want.Equal(a.Doc.Snapshot()), "got %v", a.Doc.Snapshot())
	require.True(t, want.Equal(b.Doc.Snapshot()), "got %v", b.Doc.Snapshot())

	// Deleting the node removes every slot that references it.
	del := commitTx(t, a, "d", func(tx *Tx) error { return tx.DeleteAt(model.RootID, 0) })
	require.True(t, List(Atom("x")).Equal(a.Doc.Snapshot()))
	_, err = b.Merge([]model.Entry{del})
	require.NoError(t, err)
	require.True(t, List(Atom("x")).Equal(b.Doc.Snapshot()))

	// Undo brings the node back exactly once.
	tx := a.Doc.Begin(a.ID)
	require.NoError(t, tx.Revert(del.Ops))
	a.Commit(model.Entry{ID: tx.ID(), Kind: model.EntryUndo, Target: del.ID, Ops: tx.Ops()})
	require.True(t, want.Equal(a.Doc.Snapshot()), "got %v", a.Doc.Snapshot())
}
