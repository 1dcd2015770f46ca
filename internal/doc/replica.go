package doc

import (
	"sort"

	"keykapp/internal/model"
)

// Replica is one device's copy of the document plus the merged action log.
//
// The log is kept in causal (Lamport) order. Merging is idempotent and commutative: an entry is
// identified by its id, and entries whose operations depend on unseen ones wait in pending.
type Replica struct {
	ID      string
	Doc     *Document
	History *History

	log     []model.Entry
	seen    map[model.OpID]bool
	pending []model.Entry
}

func NewReplica(id string) *Replica {
	return &Replica{
		ID:      id,
		Doc:     New(),
		History: NewHistory(id),
		seen:    map[model.OpID]bool{},
	}
}

// Log returns a copy of the merged log in causal order.
func (r *Replica) Log() []model.Entry {
	return append([]model.Entry(nil), r.log...)
}

func (r *Replica) Len() int { return len(r.log) }

// Pending is the number of entries waiting for their dependencies.
func (r *Replica) Pending() int { return len(r.pending) }

func (r *Replica) Has(id model.OpID) bool { return r.seen[id] }

// Commit appends a local entry whose ops were already applied through a Tx.
func (r *Replica) Commit(e model.Entry) {
	if r.seen[e.ID] {
		return
	}
	r.seen[e.ID] = true
	r.insertSorted(e)
	r.Doc.observe(e.ID.Counter)
	r.History.Observe(e)
}

func (r *Replica) insertSorted(e model.Entry) {
	i := sort.Search(len(r.log), func(i int) bool { return e.ID.Less(r.log[i].ID) })
	r.log = append(r.log, model.Entry{})
	copy(r.log[i+1:], r.log[i:])
	r.log[i] = e
}

// Merge integrates entries from the local shard or from other replicas. Already known entries
// are skipped. It returns the number of newly applied entries.
func (r *Replica) Merge(entries []model.Entry) (int, error) {
	batch := make([]model.Entry, 0, len(entries)+len(r.pending))
	batch = append(batch, r.pending...)
	for _, e := range entries {
		if !r.seen[e.ID] {
			batch = append(batch, e)
		}
	}
	model.SortEntries(batch)

	applied := 0
	for len(batch) > 0 {
		var blocked []model.Entry
		progress := false
		for _, e := range batch {
			if r.seen[e.ID] {
				continue
			}
			rest, err := r.Doc.ApplyAll(e.Ops)
			if err != nil {
				return applied, err
			}
			if len(rest) > 0 {
				blocked = append(blocked, e)
				continue
			}
			r.Commit(e)
			applied++
			progress = true
		}
		batch = blocked
		if !progress {
			break
		}
	}
	r.pending = batch
	return applied, nil
}

// LastOwn returns the most recent entry issued by this replica.
func (r *Replica) LastOwn() (model.Entry, bool) {
	for i := len(r.log) - 1; i >= 0; i-- {
		if r.log[i].ID.Replica == r.ID {
			return r.log[i], true
		}
	}
	return model.Entry{}, false
}
