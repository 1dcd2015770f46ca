package doc

import "keykapp/internal/model"

// History holds the undo and redo roots of one replica. Both are derived from the replica's own
// log entries, so they rebuild identically after a reload and never need separate storage.
type History struct {
	replica string
	entries map[model.OpID]model.Entry
	undo    []model.OpID
	redo    []model.OpID
}

func NewHistory(replica string) *History {
	return &History{replica: replica, entries: map[model.OpID]model.Entry{}}
}

// Undoable reports whether an entry changes anything worth rewinding.
func Undoable(e model.Entry) bool {
	if e.Kind != model.EntryDocument {
		return false
	}
	return len(e.Ops) > 0 || !e.NavBefore.Equal(e.NavAfter)
}

// Observe folds one entry into the roots. Entries from other replicas are ignored: undo is
// linear per replica.
func (h *History) Observe(e model.Entry) {
	if e.ID.Replica != h.replica {
		return
	}
	switch e.Kind {
	case model.EntryDocument:
		if !Undoable(e) {
			return
		}
		h.entries[e.ID] = e
		h.undo = append(h.undo, e.ID)
		h.redo = h.redo[:0]
	case model.EntryUndo:
		if n := len(h.undo); n > 0 && h.undo[n-1] == e.Target {
			h.undo = h.undo[:n-1]
			h.redo = append(h.redo, e.Target)
		}
	case model.EntryRedo:
		if n := len(h.redo); n > 0 && h.redo[n-1] == e.Target {
			h.redo = h.redo[:n-1]
			h.undo = append(h.undo, e.Target)
		}
	}
}

// UndoTarget is the entry the next undo rewinds.
func (h *History) UndoTarget() (model.Entry, bool) {
	if len(h.undo) == 0 {
		return model.Entry{}, false
	}
	e, ok := h.entries[h.undo[len(h.undo)-1]]
	return e, ok
}

// RedoTarget is the entry the next redo reapplies.
func (h *History) RedoTarget() (model.Entry, bool) {
	if len(h.redo) == 0 {
		return model.Entry{}, false
	}
	e, ok := h.entries[h.redo[len(h.redo)-1]]
	return e, ok
}

func (h *History) Depths() (undo, redo int) { return len(h.undo), len(h.redo) }
