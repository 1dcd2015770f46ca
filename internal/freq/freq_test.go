package freq

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keykapp/internal/model"
)

func TestWeightCountsUnigramsAndContext(t *testing.T) {
	m := New(map[string]int64{"b": 100})
	for _, id := range []string{"a", "b", "a", "b", "a"} {
		m.Record(id)
	}
	// b: 2×1, (a b): 2×2, (b a b): 1×3, (a b a b): 1×4; longer contexts never preceded b.
	assert.EqualValues(t, 100+2+4+3+4, m.WeightOf("b"))
	// (a a) never occurred, so only the unigram counts.
	assert.EqualValues(t, 3, m.WeightOf("a"))
	assert.EqualValues(t, 0, m.WeightOf("zzz"))
	assert.Equal(t, 5, m.Total())
}

func TestReplayEqualsIncremental(t *testing.T) {
	ids := []string{"x", "y", "x", "x", "z", "y", "x", "y", "z", "z", "x"}
	inc := New(nil)
	for _, id := range ids {
		inc.Record(id)
	}
	rep := Replay(nil, ids)
	for _, id := range []string{"x", "y", "z", "w"} {
		assert.Equal(t, inc.WeightOf(id), rep.WeightOf(id), id)
	}
	assert.Equal(t, inc.Counts(), rep.Counts())
}

func TestFromLogConvergesRegardlessOfArrivalOrder(t *testing.T) {
	var entries []model.Entry
	for i := 1; i <= 40; i++ {
		replica := "a"
		if i%3 == 0 {
			replica = "b"
		}
		entries = append(entries, model.Entry{
			ID:       model.OpID{Counter: int64(i), Replica: replica},
			Action:   []string{"p", "q", "r"}[i%3],
			IssuedAt: time.Unix(int64(100-i), 0),
		})
	}
	manual := map[string]int64{"p": 5}
	want := FromLog(manual, entries)

	rng := rand.New(rand.NewSource(3))
	for round := 0; round < 10; round++ {
		shuffled := append([]model.Entry(nil), entries...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := FromLog(manual, shuffled)
		for _, id := range []string{"p", "q", "r"} {
			require.Equal(t, want.WeightOf(id), got.WeightOf(id), "round %d id %s", round, id)
		}
	}
}

func TestTailIsBounded(t *testing.T) {
	m := New(nil)
	for i := 0; i < 50; i++ {
		m.Record("a")
	}
	require.Len(t, m.Tail(), MaxN)
	// every suffix length 1..7 of "a…a" followed by "a": Σ count_n × n.
	var want int64
	for n := 1; n <= MaxN; n++ {
		want += int64(50-n+1) * int64(n)
	}
	require.Equal(t, want, m.WeightOf("a"))
	require.EqualValues(t, 50, m.Unigrams()["a"])
}
