package balance

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keykapp/internal/keyswitch"
)

func table(t *testing.T, costs ...int) keyswitch.Table {
	t.Helper()
	keys := make([]keyswitch.Keyswitch, len(costs))
	for i, c := range costs {
		keys[i] = keyswitch.Keyswitch{ID: fmt.Sprintf("k%d", i), Cost: c}
	}
	tbl, err := keyswitch.New(keys)
	require.NoError(t, err)
	return tbl
}

func items(weights ...int64) []Item {
	out := make([]Item, len(weights))
	for i, w := range weights {
		out[i] = Item{ID: fmt.Sprintf("a%02d", i), Weight: w}
	}
	return out
}

// bruteForce returns the optimal cost over every tree: each subset is split across keys in
// every possible way (not all in one key) and solved recursively.
func bruteForce(costs []int, weights []int64) int64 {
	n := len(weights)
	k := len(costs)
	memo := map[int]int64{}
	var opt func(mask int) int64
	opt = func(mask int) int64 {
		if v, ok := memo[mask]; ok {
			return v
		}
		var members []int
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				members = append(members, i)
			}
		}
		if len(members) <= 1 {
			memo[mask] = 0
			return 0
		}
		best := int64(-1)
		assign := make([]int, len(members))
		total := 1
		for range members {
			total *= k
		}
		for code := 0; code < total; code++ {
			x := code
			for i := range assign {
				assign[i] = x % k
				x /= k
			}
			groups := make([]int, k)
			used := 0
			for i, a := range assign {
				if groups[a] == 0 {
					used++
				}
				groups[a] |= 1 << members[i]
			}
			if used < 2 {
				continue
			}
			var cost int64
			for j, g := range groups {
				if g == 0 {
					continue
				}
				var w int64
				for i := 0; i < n; i++ {
					if g&(1<<i) != 0 {
						w += weights[i]
					}
				}
				cost += int64(costs[j])*w + opt(g)
			}
			if best < 0 || cost < best {
				best = cost
			}
		}
		memo[mask] = best
		return best
	}
	return opt(1<<n - 1)
}

func checkBijection(t *testing.T, tree *Tree, in []Item) {
	t.Helper()
	leaves := tree.Leaves()
	require.Len(t, leaves, len(in))
	seen := map[string]bool{}
	for _, l := range leaves {
		require.False(t, seen[l.Action], "action %s appears twice", l.Action)
		seen[l.Action] = true
		n, ok := tree.Walk(l.Path)
		require.True(t, ok)
		require.True(t, n.IsLeaf())
		require.Equal(t, l.Action, n.Action)
		cost := 0
		for _, j := range l.Path {
			cost += tree.Keys().At(j).Cost
		}
		require.Equal(t, cost, l.Cost)
	}
	for _, it := range in {
		require.True(t, seen[it.ID], "action %s missing", it.ID)
	}
	for i := range leaves {
		for j := range leaves {
			if leaves[i].Weight > leaves[j].Weight {
				require.LessOrEqual(t, leaves[i].Cost, leaves[j].Cost, "heavier action on a costlier path")
			}
		}
	}
}

func TestScenarioHeavyActionGetsCheapKey(t *testing.T) {
	in := []Item{
		{ID: "/userland/kapp/text/new", Weight: 10},
		{ID: "/userland/kapp/list/new", Weight: 1},
		{ID: "/userland/kapp/sexp/move-back", Weight: 1},
		{ID: "/userland/kapp/sexp/move-forth", Weight: 1},
	}
	tree, err := Build(in, keyswitch.Default())
	require.NoError(t, err)
	checkBijection(t, tree, in)

	keys, ok := tree.KeysOf("/userland/kapp/text/new")
	require.True(t, ok)
	require.Equal(t, []string{"f"}, keys)

	for id, want := range map[string]string{
		"/userland/kapp/list/new":        "j",
		"/userland/kapp/sexp/move-back":  "d",
		"/userland/kapp/sexp/move-forth": "k",
	} {
		got, ok := tree.KeysOf(id)
		require.True(t, ok)
		assert.Equal(t, []string{want}, got, id)
	}
}

func TestEmptyAndSingle(t *testing.T) {
	_, err := Build(nil, keyswitch.Default())
	require.ErrorIs(t, err, ErrEmptyEligibleSet)

	tree, err := Build(items(3), keyswitch.Default())
	require.NoError(t, err)
	id, ok := tree.AutoSelected()
	require.True(t, ok)
	require.Equal(t, "a00", id)
	path, ok := tree.PathOf("a00")
	require.True(t, ok)
	require.Empty(t, path)
	require.EqualValues(t, 0, tree.Cost())
}

func TestRejectsDuplicateIDs(t *testing.T) {
	_, err := Build([]Item{{ID: "x", Weight: 1}, {ID: "x", Weight: 2}}, keyswitch.Default())
	require.Error(t, err)
}

func TestMatchesBruteForceOnSmallSets(t *testing.T) {
	tables := [][]int{
		{2, 1, 1, 2},
		{1, 2, 3},
		{1, 1},
		{3, 1},
		{4, 3, 2, 1, 1, 2, 3, 4},
	}
	rng := rand.New(rand.NewSource(11))
	for _, costs := range tables {
		tbl := table(t, costs...)
		maxN := 6
		if len(costs) <= 2 {
			maxN = 8
		}
		if len(costs) > 4 {
			maxN = 4
		}
		for trial := 0; trial < 25; trial++ {
			n := 1 + rng.Intn(maxN)
			weights := make([]int64, n)
			for i := range weights {
				weights[i] = int64(rng.Intn(25))
			}
			in := items(weights...)
			tree, err := Build(in, tbl)
			require.NoError(t, err)
			checkBijection(t, tree, in)
			require.Equal(t, bruteForce(costs, weights), tree.Cost(), "costs %v weights %v", costs, weights)
		}
	}
}

func TestExactSearchAtLimit(t *testing.T) {
	costs := []int{2, 1, 1, 2}
	weights := []int64{9, 7, 7, 5, 3, 3, 2, 1, 1}
	tree, err := Build(items(weights...), table(t, costs...))
	require.NoError(t, err)
	require.Equal(t, bruteForce(costs, weights), tree.Cost())
}

func TestDeterministicRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	weights := make([]int64, 120)
	for i := range weights {
		weights[i] = int64(rng.Intn(300))
	}
	in := items(weights...)
	a, err := Build(in, keyswitch.Default())
	require.NoError(t, err)

	shuffled := append([]Item(nil), in...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	b, err := Build(shuffled, keyswitch.Default())
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

func TestLargeSetsKeepInvariants(t *testing.T) {
	for _, tbl := range []keyswitch.Table{keyswitch.Default(), keyswitch.HomeRow(), table(t, 1, 1)} {
		for _, n := range []int{10, 17, 40, 110} {
			weights := make([]int64, n)
			for i := range weights {
				weights[i] = int64((i * 37) % 23)
			}
			in := items(weights...)
			tree, err := Build(in, tbl)
			require.NoError(t, err)
			checkBijection(t, tree, in)
			_, auto := tree.AutoSelected()
			require.False(t, auto)
		}
	}
}

func TestZeroWeightsStillBalance(t *testing.T) {
	in := items(make([]int64, 30)...)
	tree, err := Build(in, keyswitch.Default())
	require.NoError(t, err)
	checkBijection(t, tree, in)
	maxDepth := 0
	for _, l := range tree.Leaves() {
		if len(l.Path) > maxDepth {
			maxDepth = len(l.Path)
		}
	}
	require.LessOrEqual(t, maxDepth, 5)
}

func TestSharesSumToOne(t *testing.T) {
	for _, costs := range [][]int{{2, 1, 1, 2}, {1, 1}, {4, 3, 2, 1, 1, 2, 3, 4}, {1, 5}} {
		var sum float64
		for _, s := range shares(costs) {
			sum += s
		}
		require.InDelta(t, 1.0, sum, 1e-9, "%v", costs)
	}
}

// entropyBound returns the entropy lower bound on any tree's cost and the additive slack the
// heuristic shapes stay within.
func entropyBound(costs []int, weights []int64) (lower, slack float64) {
	r := radix(costs)
	maxCost := 0
	for _, c := range costs {
		if c > maxCost {
			maxCost = c
		}
	}
	var total float64
	for _, w := range weights {
		total += float64(w)
	}
	for _, w := range weights {
		if w > 0 {
			lower += float64(w) * math.Log(total/float64(w)) / math.Log(r)
		}
	}
	return lower, total * (float64(maxCost) + math.Log(2)/math.Log(r))
}

func TestHeuristicWithinStatedBound(t *testing.T) {
	cases := []struct {
		costs []int
		sizes []int
	}{
		{[]int{1, 1}, []int{10, 11, 12}},
		{[]int{1, 2}, []int{10, 11, 12}},
		{[]int{2, 1, 1}, []int{10}},
		{[]int{1, 2, 3}, []int{10, 11}},
	}
	rng := rand.New(rand.NewSource(23))
	for _, tc := range cases {
		tbl := table(t, tc.costs...)
		for _, n := range tc.sizes {
			for trial := 0; trial < 3; trial++ {
				weights := make([]int64, n)
				for i := range weights {
					// Skewed: a few heavy actions among many light ones.
					weights[i] = int64(rng.Intn(4))
					if rng.Intn(4) == 0 {
						weights[i] += int64(rng.Intn(400))
					}
				}
				checkWithinBound(t, tbl, tc.costs, weights)
			}
		}
	}
	checkWithinBound(t, table(t, 1, 2), []int{1, 2}, []int64{1, 222, 2, 1, 0, 372, 2, 1, 2, 3})
}

func checkWithinBound(t *testing.T, tbl keyswitch.Table, costs []int, weights []int64) {
	t.Helper()
	in := items(weights...)
	tree, err := Build(in, tbl)
	require.NoError(t, err)
	checkBijection(t, tree, in)

	opt := bruteForce(costs, weights)
	lower, slack := entropyBound(costs, weights)
	const eps = 1e-6
	require.GreaterOrEqual(t, float64(opt), lower-eps*slack-eps, "entropy bound above optimum: costs %v weights %v", costs, weights)
	require.GreaterOrEqual(t, tree.Cost(), opt)
	require.LessOrEqual(t, float64(tree.Cost()), lower+slack+eps*slack+eps, "costs %v weights %v", costs, weights)
	require.LessOrEqual(t, float64(tree.Cost()), float64(opt)+slack+eps*slack+eps)
}

func TestEqualKeyCostsAreOptimal(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	for _, costs := range [][]int{{1, 1}, {2, 2}, {1, 1, 1}} {
		tbl := table(t, costs...)
		sizes := []int{10, 11, 12}
		if len(costs) > 2 {
			sizes = []int{10, 11}
		}
		for _, n := range sizes {
			weights := make([]int64, n)
			for i := range weights {
				weights[i] = int64(rng.Intn(50))
				if i%3 == 0 {
					weights[i] *= 9
				}
			}
			tree, err := Build(items(weights...), tbl)
			require.NoError(t, err)
			require.Equal(t, bruteForce(costs, weights), tree.Cost(), "costs %v weights %v", costs, weights)
		}
	}
}

func TestLargeSetsWithinEntropyBound(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	for _, costs := range [][]int{{2, 1, 1, 2}, {4, 3, 2, 1, 1, 2, 3, 4}, {1, 1}, {1, 3}} {
		tbl := table(t, costs...)
		for _, n := range []int{20, 110} {
			weights := make([]int64, n)
			for i := range weights {
				weights[i] = int64(rng.Intn(3))
				if rng.Intn(5) == 0 {
					weights[i] += int64(rng.Intn(2000))
				}
			}
			tree, err := Build(items(weights...), tbl)
			require.NoError(t, err)
			lower, slack := entropyBound(costs, weights)
			require.LessOrEqual(t, float64(tree.Cost()), lower+slack*(1+1e-6), "costs %v n %d", costs, n)
		}
	}
}

func TestHeuristicNeverWorseThanGreedy(t *testing.T) {
	weights := []int64{400, 300, 9, 8, 7, 6, 5, 4, 3, 2, 1, 1}
	tbl := table(t, 1, 1)
	sh := newShaper(tbl)
	greedy, _ := sh.cost(sh.greedy(weights), weights)
	tree, err := Build(items(weights...), tbl)
	require.NoError(t, err)
	require.LessOrEqual(t, tree.Cost(), greedy)
	require.Equal(t, bruteForce([]int{1, 1}, weights), tree.Cost())
}
