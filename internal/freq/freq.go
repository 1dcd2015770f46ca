// Package freq counts executed action sequences and turns the counts into per-action weights.
// Counts are a cache over the log: Replay rebuilds them from scratch and must produce the same
// weights as recording the same ids one by one.
package freq

import (
	"sort"
	"strings"

	"keykapp/internal/model"
)

// MaxN is the longest n-gram counted.
const MaxN = 7

const sep = "\x1f"

type Model struct {
	manual map[string]int64
	counts map[string]int64
	tail   []string
	total  int
}

func New(manual map[string]int64) *Model {
	if manual == nil {
		manual = map[string]int64{}
	}
	return &Model{manual: manual, counts: map[string]int64{}}
}

// Replay builds a model from executed action ids in log order.
func Replay(manual map[string]int64, ids []string) *Model {
	m := New(manual)
	for _, id := range ids {
		m.Record(id)
	}
	return m
}

// FromLog replays a merged log. Entries are taken in causal order.
func FromLog(manual map[string]int64, entries []model.Entry) *Model {
	sorted := append([]model.Entry(nil), entries...)
	model.SortEntries(sorted)
	return Replay(manual, model.ActionIDs(sorted))
}

// Record counts every suffix of length 1..MaxN of the executed sequence ending at id.
func (m *Model) Record(id string) {
	m.tail = append(m.tail, id)
	if len(m.tail) > MaxN {
		m.tail = m.tail[len(m.tail)-MaxN:]
	}
	for n := 1; n <= len(m.tail); n++ {
		m.counts[key(m.tail[len(m.tail)-n:])]++
	}
	m.total++
}

// WeightOf is manual(id) + Σ_{n=1..MaxN} count(last n-1 ids ++ [id]) × n.
// Longer contexts that match the recent history weigh more.
func (m *Model) WeightOf(id string) int64 {
	w := m.manual[id]
	ctx := m.tail
	if len(ctx) > MaxN-1 {
		ctx = ctx[len(ctx)-(MaxN-1):]
	}
	gram := make([]string, 0, MaxN)
	for n := 1; n <= MaxN; n++ {
		if n-1 > len(ctx) {
			break
		}
		gram = append(gram[:0], ctx[len(ctx)-(n-1):]...)
		gram = append(gram, id)
		w += m.counts[key(gram)] * int64(n)
	}
	return w
}

// Weights returns WeightOf for each id.
func (m *Model) Weights(ids []string) map[string]int64 {
	out := make(map[string]int64, len(ids))
	for _, id := range ids {
		out[id] = m.WeightOf(id)
	}
	return out
}

// Total is the number of recorded executions.
func (m *Model) Total() int { return m.total }

// Tail returns the most recent executed ids, oldest first.
func (m *Model) Tail() []string { return append([]string(nil), m.tail...) }

type NGram struct {
	IDs   []string `json:"ids"`
	Count int64    `json:"count"`
}

// Counts returns the n-gram table sorted by length, then count descending, then ids.
func (m *Model) Counts() []NGram {
	out := make([]NGram, 0, len(m.counts))
	for k, c := range m.counts {
		out = append(out, NGram{IDs: strings.Split(k, sep), Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if len(a.IDs) != len(b.IDs) {
			return len(a.IDs) < len(b.IDs)
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return strings.Join(a.IDs, sep) < strings.Join(b.IDs, sep)
	})
	return out
}

// Unigrams returns how often each action ran.
func (m *Model) Unigrams() map[string]int64 {
	out := map[string]int64{}
	for k, c := range m.counts {
		if !strings.Contains(k, sep) {
			out[k] = c
		}
	}
	return out
}

func key(ids []string) string { return strings.Join(ids, sep) }
