package session

import (
	"keykapp/internal/balance"
	"keykapp/internal/doc"
	"keykapp/internal/model"
)

// KeyLegend describes what pressing one key does from the current pending node.
type KeyLegend struct {
	Key  string `json:"key"`
	Cost int    `json:"cost"`
	// Action is set when the key reaches a leaf.
	Action string `json:"action,omitempty"`
	// Actions lists every action reachable through the key, in key order.
	Actions []string `json:"actions,omitempty"`
	// Labels are the short names of Actions.
	Labels []string `json:"labels,omitempty"`
	Weight int64    `json:"weight"`
}

func (l KeyLegend) Empty() bool { return len(l.Actions) == 0 }

// Snapshot is everything a renderer needs after a press.
type Snapshot struct {
	Replica  string        `json:"replica"`
	Document doc.Sexp      `json:"document"`
	Nav      model.Nav     `json:"nav"`
	Mode     model.Mode    `json:"mode"`
	Pending  []string      `json:"pending"`
	Keys     []KeyLegend   `json:"keys"`
	Eligible []string      `json:"eligible"`
	Auto     string        `json:"auto,omitempty"`
	Undo     int           `json:"undoDepth"`
	Redo     int           `json:"redoDepth"`
	Tree     *balance.Tree `json:"-"`
	Entries  int           `json:"entries"`
	Waiting  int           `json:"waiting"`
}

func (s *Session) Snapshot() Snapshot {
	undo, redo := s.replica.History.Depths()
	snap := Snapshot{
		Replica:  s.opts.Replica,
		Document: s.replica.Doc.Snapshot(),
		Nav:      s.nav.Clone(),
		Mode:     s.nav.Mode,
		Pending:  s.PendingKeys(),
		Keys:     s.Legends(),
		Eligible: s.Eligible(),
		Undo:     undo,
		Redo:     redo,
		Tree:     s.tree,
		Entries:  s.replica.Len(),
		Waiting:  s.replica.Pending(),
	}
	if id, ok := s.tree.AutoSelected(); ok {
		snap.Auto = id
	}
	return snap
}

// Legends returns one legend per key for the current pending node, in table order.
func (s *Session) Legends() []KeyLegend {
	keys := s.opts.Keys
	out := make([]KeyLegend, keys.Len())
	node, ok := s.tree.Walk(s.path)
	for j := range out {
		k := keys.At(j)
		out[j] = KeyLegend{Key: k.ID, Cost: k.Cost}
		if !ok || node.IsLeaf() || node.Children[j] == nil {
			continue
		}
		child := node.Children[j]
		if child.IsLeaf() {
			out[j].Action = child.Action
		}
		out[j].Actions = child.Actions()
		for _, id := range out[j].Actions {
			out[j].Weight += s.freq.WeightOf(id)
			label := id
			if a, err := s.opts.Registry.Lookup(id); err == nil && a.ShortName != "" {
				label = a.ShortName
			}
			out[j].Labels = append(out[j].Labels, label)
		}
	}
	return out
}

// SyncRoot is the full replicated state of a replica, as exported.
type SyncRoot struct {
	Replica  string        `json:"replica"`
	Document doc.Sexp      `json:"document"`
	Nav      model.Nav     `json:"nav"`
	Log      []model.Entry `json:"log"`
}

func (s *Session) SyncRoot() SyncRoot {
	return SyncRoot{
		Replica:  s.opts.Replica,
		Document: s.replica.Doc.Snapshot(),
		Nav:      s.nav.Clone(),
		Log:      s.replica.Log(),
	}
}
