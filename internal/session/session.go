// Package session runs one replica's interaction loop: a keyswitch press advances the pending
// path through the assignment tree; reaching a leaf executes the action, appends it to the log,
// updates the frequency model and rebuilds the tree for the next press.
//
// A Session is not safe for concurrent use. Callers serialize presses and merges.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"keykapp/internal/balance"
	"keykapp/internal/doc"
	"keykapp/internal/freq"
	"keykapp/internal/kapp"
	"keykapp/internal/keyswitch"
	"keykapp/internal/logging"
	"keykapp/internal/model"
	"keykapp/internal/nav"
)

var ErrUnknownKeyswitch = errors.New("unknown keyswitch")

type Options struct {
	Replica  string
	Registry *kapp.Registry
	Keys     keyswitch.Table
	Weights  kapp.ManualWeights
	Logger   *logrus.Logger

	// Persist is called with every committed entry. A failure is returned to the caller of the
	// press; the in-memory state keeps the entry.
	Persist func(model.Entry) error
	// Export receives the sync root when the export action runs.
	Export func(SyncRoot) error
	// Copy receives the atom text when the copy action runs.
	Copy func(string) error

	Now func() time.Time
}

type Session struct {
	opts    Options
	log     *logrus.Logger
	replica *doc.Replica
	nav     model.Nav
	freq    *freq.Model

	eligible []string
	tree     *balance.Tree
	path     []int
}

// Outcome describes what one press did.
type Outcome struct {
	// Action is set when a leaf was reached and executed.
	Action string
	Entry  *model.Entry
	// Pending lists the keys pressed so far when the press stopped at an internal node.
	Pending []string
	// Ignored is set when the key leads to an unused slot. The pending path is kept.
	Ignored bool
}

func New(opts Options) (*Session, error) {
	if opts.Replica == "" {
		return nil, errors.New("session: missing replica id")
	}
	if opts.Registry == nil {
		opts.Registry = kapp.Default()
	}
	if opts.Keys.Len() == 0 {
		opts.Keys = keyswitch.Default()
	}
	if opts.Weights == nil {
		opts.Weights = kapp.DefaultWeights()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Session{
		opts:    opts,
		log:     opts.Logger,
		replica: doc.NewReplica(opts.Replica),
		nav:     model.NewNav(),
		freq:    freq.New(opts.Weights),
	}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open creates a session and loads a stored log into it. Navigation resumes where this
// replica's last entry left it.
func Open(opts Options, entries []model.Entry) (*Session, error) {
	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return s, nil
	}
	if _, err := s.replica.Merge(entries); err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}
	if last, ok := s.replica.LastOwn(); ok {
		s.nav = last.NavAfter.Clone()
	}
	s.nav = nav.Normalize(s.replica.Doc, s.nav)
	s.freq = freq.FromLog(s.opts.Weights, s.replica.Log())
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"replica": s.opts.Replica,
		"entries": s.replica.Len(),
		"pending": s.replica.Pending(),
	}).Debug("session opened")
	return s, nil
}

func (s *Session) Replica() string          { return s.opts.Replica }
func (s *Session) Registry() *kapp.Registry { return s.opts.Registry }
func (s *Session) Keys() keyswitch.Table    { return s.opts.Keys }
func (s *Session) Nav() model.Nav           { return s.nav.Clone() }
func (s *Session) Document() *doc.Document  { return s.replica.Doc }
func (s *Session) Tree() *balance.Tree      { return s.tree }
func (s *Session) Log() []model.Entry       { return s.replica.Log() }
func (s *Session) Frequencies() *freq.Model { return s.freq }

// Eligible is the current eligible action set, sorted.
func (s *Session) Eligible() []string { return append([]string(nil), s.eligible...) }

// PendingKeys is the key path pressed since the last executed action.
func (s *Session) PendingKeys() []string {
	out := make([]string, len(s.path))
	for i, j := range s.path {
		out[i] = s.opts.Keys.At(j).ID
	}
	return out
}

// rebuild recomputes eligibility, weights and the tree, in that order, and clears the path.
func (s *Session) rebuild() error {
	d := s.replica.Doc
	s.eligible = s.opts.Registry.Eligible(d, s.nav)
	weights := s.freq.Weights(s.eligible)
	items := make([]balance.Item, 0, len(s.eligible))
	for _, id := range s.eligible {
		items = append(items, balance.Item{ID: id, Weight: weights[id]})
	}
	tree, err := balance.Build(items, s.opts.Keys)
	if err != nil {
		return fmt.Errorf("rebuild tree: %w", err)
	}
	s.tree = tree
	s.path = s.path[:0]
	return nil
}

// OnKeyswitch advances the pending path by one key.
func (s *Session) OnKeyswitch(key string) (Outcome, error) {
	k, ok := s.opts.Keys.Lookup(key)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownKeyswitch, key)
	}
	next := append(append([]int(nil), s.path...), k.Index)
	n, ok := s.tree.Walk(next)
	if !ok {
		return Outcome{Ignored: true, Pending: s.PendingKeys()}, nil
	}
	if !n.IsLeaf() {
		s.path = next
		return Outcome{Pending: s.PendingKeys()}, nil
	}
	return s.Execute(n.Action)
}

// Back drops the last pressed key.
func (s *Session) Back() {
	if len(s.path) > 0 {
		s.path = s.path[:len(s.path)-1]
	}
}

// Reset returns to the root of the tree.
func (s *Session) Reset() { s.path = s.path[:0] }

// AutoSelected returns the action to run without a press when only one is eligible.
func (s *Session) AutoSelected() (string, bool) { return s.tree.AutoSelected() }

// Execute runs an action by id, whether or not it is currently eligible: ineligible document
// actions are no-ops. Unknown ids fail with kapp.ErrUnknownAction.
func (s *Session) Execute(id string) (Outcome, error) {
	a, err := s.opts.Registry.Lookup(id)
	if err != nil {
		return Outcome{}, err
	}
	before := s.nav.Clone()

	var (
		e      model.Entry
		runErr error
		after  func() error
	)
	switch {
	case a.Kind == kapp.KindDocument:
		e, runErr = s.runDocument(a, before)
	default:
		e, after = s.runMode(a, before)
	}

	persistErr := s.commit(e)
	if err := s.rebuild(); err != nil {
		return Outcome{}, err
	}
	if after != nil {
		if err := after(); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	out := Outcome{Action: id, Entry: &e}
	return out, errors.Join(runErr, persistErr)
}

func (s *Session) runDocument(a kapp.Action, before model.Nav) (model.Entry, error) {
	tx := s.replica.Doc.Begin(s.opts.Replica)
	res, err := a.Mutate(tx, before)
	if err != nil {
		// The document rejected an op. Whatever was already applied is kept and logged.
		err = fmt.Errorf("%s: %w", a.ID, err)
		res.Nav = nav.Normalize(tx.Doc(), before)
	}
	return s.entry(tx, a.ID, model.EntryDocument, before, res.Nav), err
}

func (s *Session) runMode(a kapp.Action, before model.Nav) (model.Entry, func() error) {
	d := s.replica.Doc
	switch a.ID {
	case kapp.ModeInsert:
		return s.entry(d.Begin(s.opts.Replica), a.ID, model.EntryMode, before, nav.WithMode(before, model.ModeInsert)), nil
	case kapp.ModeMenu:
		return s.entry(d.Begin(s.opts.Replica), a.ID, model.EntryMode, before, nav.WithMode(before, model.ModeMenu)), nil
	case kapp.Undo:
		return s.undo(before), nil
	case kapp.Redo:
		return s.redo(before), nil
	case kapp.Export:
		e := s.entry(d.Begin(s.opts.Replica), a.ID, model.EntryMode, before, before)
		return e, func() error {
			if s.opts.Export == nil {
				return nil
			}
			if err := s.opts.Export(s.SyncRoot()); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			return nil
		}
	case kapp.TextCopy:
		text, ok := kapp.CopyTarget(d, before)
		e := s.entry(d.Begin(s.opts.Replica), a.ID, model.EntryMode, before, before)
		return e, func() error {
			if !ok || s.opts.Copy == nil {
				return nil
			}
			if err := s.opts.Copy(text); err != nil {
				return fmt.Errorf("copy: %w", err)
			}
			return nil
		}
	}
	return s.entry(d.Begin(s.opts.Replica), a.ID, model.EntryMode, before, before), nil
}

// undo rewinds this replica's most recent undoable entry. Navigation returns to where it was
// before that entry, keeping the current mode.
func (s *Session) undo(before model.Nav) model.Entry {
	d := s.replica.Doc
	tx := d.Begin(s.opts.Replica)
	target, ok := s.replica.History.UndoTarget()
	if !ok {
		return s.entry(tx, kapp.Undo, model.EntryUndo, before, before)
	}
	if err := tx.Revert(target.Ops); err != nil {
		s.log.WithError(err).WithField("target", target.ID.String()).Warn("undo")
	}
	after := nav.Normalize(d, nav.WithMode(target.NavBefore, before.Mode))
	e := s.entry(tx, kapp.Undo, model.EntryUndo, before, after)
	e.Target = target.ID
	return e
}

func (s *Session) redo(before model.Nav) model.Entry {
	d := s.replica.Doc
	tx := d.Begin(s.opts.Replica)
	target, ok := s.replica.History.RedoTarget()
	if !ok {
		return s.entry(tx, kapp.Redo, model.EntryRedo, before, before)
	}
	if err := tx.Reapply(target.Ops); err != nil {
		s.log.WithError(err).WithField("target", target.ID.String()).Warn("redo")
	}
	after := nav.Normalize(d, nav.WithMode(target.NavAfter, before.Mode))
	e := s.entry(tx, kapp.Redo, model.EntryRedo, before, after)
	e.Target = target.ID
	return e
}

func (s *Session) entry(tx *doc.Tx, action string, kind model.EntryKind, before, after model.Nav) model.Entry {
	return model.Entry{
		ID:        tx.ID(),
		Action:    action,
		Kind:      kind,
		Ops:       tx.Ops(),
		NavBefore: before,
		NavAfter:  after.Clone(),
		IssuedAt:  s.opts.Now().UTC(),
	}
}

// commit records e in memory first, then hands it to Persist.
func (s *Session) commit(e model.Entry) error {
	s.replica.Commit(e)
	s.nav = e.NavAfter.Clone()
	s.freq.Record(e.Action)
	s.log.WithFields(logrus.Fields{
		"action": e.Action,
		"entry":  e.ID.String(),
		"ops":    len(e.Ops),
	}).Debug("executed")

	if s.opts.Persist == nil {
		return nil
	}
	if err := s.opts.Persist(e); err != nil {
		s.log.WithError(err).WithField("entry", e.ID.String()).Warn("persist entry")
		return fmt.Errorf("persist %s: %w", e.ID, err)
	}
	return nil
}

// Merge integrates entries from other replicas (or a reloaded shard). Navigation is clamped to
// the merged document and weights are replayed from the merged log. It returns the number of
// newly applied entries.
func (s *Session) Merge(entries []model.Entry) (int, error) {
	applied, err := s.replica.Merge(entries)
	if err != nil {
		return applied, fmt.Errorf("merge: %w", err)
	}
	if applied == 0 {
		return 0, nil
	}
	s.nav = nav.Normalize(s.replica.Doc, s.nav)
	s.freq = freq.FromLog(s.opts.Weights, s.replica.Log())
	if err := s.rebuild(); err != nil {
		return applied, err
	}
	s.log.WithFields(logrus.Fields{
		"applied": applied,
		"pending": s.replica.Pending(),
		"entries": s.replica.Len(),
	}).Info("merged")
	return applied, nil
}

// Import grafts the children of s into the current list at the cursor. It is logged as an
// undoable document entry.
func (s *Session) Import(tree doc.Sexp) (model.Entry, error) {
	before := s.nav.Clone()
	d := s.replica.Doc
	tx := d.Begin(s.opts.Replica)
	var runErr error
	after := before
	if nav.InAtom(before) {
		after = nav.ZoomOut(before)
	}
	if list, ok := nav.TopList(d, after); ok {
		c := nav.Cursor(after)
		n, err := tx.Graft(list, c, tree)
		if err != nil {
			runErr = fmt.Errorf("import: %w", err)
		}
		after = nav.SetCursor(after, c+n)
	}
	after = nav.Normalize(d, after)
	e := s.entry(tx, kapp.Import, model.EntryDocument, before, after)
	persistErr := s.commit(e)
	if err := s.rebuild(); err != nil {
		return e, err
	}
	return e, errors.Join(runErr, persistErr)
}
