package balance

import (
	"math"
	"sort"

	"keykapp/internal/keyswitch"
)

// shape is a tree without actions. A nil children slice is a leaf; an internal node has one
// slot per keyswitch and nil slots are unused keys.
type shape struct {
	children []*shape
}

var leafShape = &shape{}

func (s *shape) leaf() bool { return s.children == nil }

// candidate is a shape for m leaves summarised by its sorted leaf path costs.
type candidate struct {
	costs []int
	node  *shape
}

type partial struct {
	costs []int
	slots []*shape
}

// shaper builds shapes for one keyswitch table. Exact results depend only on the key costs and
// the leaf count, so they are memoised per Build.
type shaper struct {
	keys   keyswitch.Table
	costs  []int
	shares []float64
	memo   map[int][]candidate
}

func newShaper(keys keyswitch.Table) *shaper {
	s := &shaper{keys: keys, memo: map[int][]candidate{}}
	for _, k := range keys.All() {
		s.costs = append(s.costs, k.Cost)
	}
	s.shares = shares(s.costs)
	return s
}

// radix solves Σ r^-c = 1 for r. A code over the keys spends log_r(1/p) cost per action of
// probability p at best.
func radix(costs []int) float64 {
	f := func(r float64) float64 {
		sum := 0.0
		for _, c := range costs {
			sum += math.Pow(r, -float64(c))
		}
		return sum
	}
	lo, hi := 1.0, float64(len(costs))
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if f(mid) > 1 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// shares returns r^-c per key: the fraction of total weight a key's subtree should carry in an
// optimal code over that alphabet.
func shares(costs []int) []float64 {
	r := radix(costs)
	out := make([]float64, len(costs))
	for i, c := range costs {
		out[i] = math.Pow(r, -float64(c))
	}
	return out
}

// build returns a shape with len(weights) leaves. weights are sorted heaviest first.
func (s *shaper) build(weights []int64) *shape {
	n := len(weights)
	k := len(s.costs)
	switch {
	case n <= 1:
		return leafShape
	case n <= k:
		return s.direct(n)
	case n <= ExactLimit:
		return s.best(weights)
	}
	return s.heuristic(weights)
}

// heuristic returns the cheapest of three shapes: the share-balanced greedy split, a k-ary
// Huffman tree (optimal when all keys cost the same) and an interval split whose cost is
// bounded against the entropy of the weights. Ties keep the earlier shape unless a later one
// is flatter.
func (s *shaper) heuristic(weights []int64) *shape {
	cands := []*shape{s.greedy(weights), s.huffman(weights)}
	if totalWeight(weights) > 0 {
		cands = append(cands, s.split(weights))
	}
	var (
		pick            *shape
		pickCost, total int64
	)
	for _, c := range cands {
		cost, flat := s.cost(c, weights)
		if pick == nil || cost < pickCost || (cost == pickCost && flat < total) {
			pick, pickCost, total = c, cost, flat
		}
	}
	return pick
}

func totalWeight(weights []int64) int64 {
	var t int64
	for _, w := range weights {
		t += w
	}
	return t
}

// cost prices a shape the way Build fills it: heaviest weight on the cheapest leaf. It also
// returns the sum of leaf costs.
func (s *shaper) cost(sh *shape, weights []int64) (int64, int64) {
	var leaves []int
	var walk func(n *shape, c int)
	walk = func(n *shape, c int) {
		if n.leaf() {
			leaves = append(leaves, c)
			return
		}
		for j, ch := range n.children {
			if ch != nil {
				walk(ch, c+s.costs[j])
			}
		}
	}
	walk(sh, 0)
	sort.Ints(leaves)
	var cost, total int64
	for i, w := range weights {
		cost += w * int64(leaves[i])
		total += int64(leaves[i])
	}
	return cost, total
}

type huffItem struct {
	weight int64
	seq    int
	node   *shape
}

// huffman merges the k lightest subtrees until one is left. Zero-weight placeholders pad the
// first merge so every merge takes exactly k; they become unused slots on the costliest keys.
func (s *shaper) huffman(weights []int64) *shape {
	k := len(s.costs)
	var queue []huffItem
	seq := 0
	push := func(it huffItem) {
		i := sort.Search(len(queue), func(i int) bool {
			q := queue[i]
			if q.weight != it.weight {
				return q.weight > it.weight
			}
			return q.seq > it.seq
		})
		queue = append(queue, huffItem{})
		copy(queue[i+1:], queue[i:])
		queue[i] = it
	}
	for i := len(weights) - 1; i >= 0; i-- {
		push(huffItem{weight: weights[i], seq: seq, node: leafShape})
		seq++
	}
	pad := (k - 1 - (len(weights)-1)%(k-1)) % (k - 1)
	for i := 0; i < pad; i++ {
		queue = append([]huffItem{{seq: -1 - i}}, queue...)
	}

	byCost := s.keys.ByCost()
	for len(queue) > 1 {
		group := queue[:k]
		queue = append([]huffItem(nil), queue[k:]...)
		node := &shape{children: make([]*shape, k)}
		var w int64
		// group is lightest first; the heaviest subtree takes the cheapest key.
		for i := range group {
			it := group[k-1-i]
			w += it.weight
			if it.node != nil {
				node.children[byCost[i].Index] = it.node
			}
		}
		push(huffItem{weight: w, seq: seq, node: node})
		seq++
	}
	return queue[0].node
}

// split lays the weights out on a line, each as an interval, and cuts the line into one part
// per key in proportion to the key shares. Every part holding more than one interval midpoint
// is cut again. An action of probability p ends at cost at most log_r(2/p) + c_max, which puts
// the whole tree within W·(c_max + log_r 2) of the entropy bound and therefore of the optimum.
func (s *shaper) split(weights []int64) *shape {
	points := make([]float64, len(weights))
	acc := 0.0
	for i, w := range weights {
		points[i] = acc + float64(w)/2
		acc += float64(w)
	}
	return s.splitRange(points, 0, acc)
}

// splitRange shapes the sorted points inside [lo, hi]. A cut that leaves every point in one part
// narrows the range without adding a level.
func (s *shaper) splitRange(points []float64, lo, hi float64) *shape {
	n := len(points)
	if n == 1 {
		return leafShape
	}
	k := len(s.costs)
	for points[0] != points[n-1] {
		bounds := make([]float64, k+1)
		bounds[0] = lo
		acc := 0.0
		for j := 0; j < k-1; j++ {
			acc += s.shares[j]
			bounds[j+1] = lo + (hi-lo)*acc
		}
		bounds[k] = hi

		parts := make([][]float64, k)
		j := 0
		for _, x := range points {
			for j < k-1 && x >= bounds[j+1] {
				j++
			}
			parts[j] = append(parts[j], x)
		}
		used := 0
		for _, p := range parts {
			if len(p) > 0 {
				used++
			}
		}
		if used >= 2 {
			node := &shape{children: make([]*shape, k)}
			for j, p := range parts {
				if len(p) > 0 {
					node.children[j] = s.splitRange(p, bounds[j], bounds[j+1])
				}
			}
			return node
		}
		if bounds[j] == lo && bounds[j+1] == hi {
			break
		}
		lo, hi = bounds[j], bounds[j+1]
	}
	// Only zero-weight actions share a point.
	return s.build(make([]int64, n))
}

// direct uses the n cheapest keys as leaves of a single level.
func (s *shaper) direct(n int) *shape {
	node := &shape{children: make([]*shape, len(s.costs))}
	for _, k := range s.keys.ByCost()[:n] {
		node.children[k.Index] = leafShape
	}
	return node
}

// best picks the exact candidate with the lowest cost for weights. The sorted pairing of
// heaviest weight with cheapest leaf is optimal for a fixed shape, so comparing candidates by
// that pairing compares optimal assignments.
func (s *shaper) best(weights []int64) *shape {
	var (
		pick          *shape
		pickCost, sum int64
	)
	for _, c := range s.exact(len(weights)) {
		var cost, total int64
		for i, w := range weights {
			cost += w * int64(c.costs[i])
			total += int64(c.costs[i])
		}
		// Equal cost (zero weights) falls back to the flattest shape.
		if pick == nil || cost < pickCost || (cost == pickCost && total < sum) {
			pick, pickCost, sum = c.node, cost, total
		}
	}
	return pick
}

// exact returns the Pareto-minimal shapes with m leaves: no returned cost vector is dominated
// component-wise by another achievable one. Every internal node has at least two used slots.
func (s *shaper) exact(m int) []candidate {
	if c, ok := s.memo[m]; ok {
		return c
	}
	if m == 1 {
		res := []candidate{{costs: []int{0}, node: leafShape}}
		s.memo[m] = res
		return res
	}

	parts := make([][]partial, m+1)
	parts[0] = []partial{{}}
	for _, c := range s.costs {
		next := make([][]partial, m+1)
		for t := 0; t <= m; t++ {
			for _, p := range parts[t] {
				next[t] = addPartial(next[t], partial{costs: p.costs, slots: withSlot(p.slots, nil)})
				for size := 1; size <= m-1 && t+size <= m; size++ {
					for _, sub := range s.exact(size) {
						next[t+size] = addPartial(next[t+size], partial{
							costs: mergeShifted(p.costs, sub.costs, c),
							slots: withSlot(p.slots, sub.node),
						})
					}
				}
			}
		}
		parts = next
	}

	res := make([]candidate, 0, len(parts[m]))
	for _, p := range parts[m] {
		res = append(res, candidate{costs: p.costs, node: &shape{children: p.slots}})
	}
	s.memo[m] = res
	return res
}

func withSlot(slots []*shape, sub *shape) []*shape {
	out := make([]*shape, len(slots), len(slots)+1)
	copy(out, slots)
	return append(out, sub)
}

// mergeShifted merges sorted a with sorted b+shift.
func mergeShifted(a, b []int, shift int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		if j >= len(b) || (i < len(a) && a[i] <= b[j]+shift) {
			out = append(out, a[i])
			i++
			continue
		}
		out = append(out, b[j]+shift)
		j++
	}
	return out
}

// dominates reports a[i] <= b[i] for every i. Both are sorted and of equal length.
func dominates(a, b []int) bool {
	for i := range a {
		if a[i] > b[i] {
			return false
		}
	}
	return true
}

// addPartial keeps set Pareto-minimal. Earlier entries win ties.
func addPartial(set []partial, p partial) []partial {
	for _, q := range set {
		if dominates(q.costs, p.costs) {
			return set
		}
	}
	kept := set[:0:0]
	for _, q := range set {
		if !dominates(p.costs, q.costs) {
			kept = append(kept, q)
		}
	}
	return append(kept, p)
}

// greedy splits weights across keys so that each branch's load tracks its share, then recurses.
func (s *shaper) greedy(weights []int64) *shape {
	k := len(s.costs)
	groups := make([][]int64, k)
	loads := make([]float64, k)
	for _, w := range weights {
		j := s.pick(groups, loads)
		groups[j] = append(groups[j], w)
		loads[j] += float64(w)
	}
	node := &shape{children: make([]*shape, k)}
	for j, g := range groups {
		if len(g) > 0 {
			node.children[j] = s.build(g)
		}
	}
	return node
}

// pick returns the branch furthest below its share: least load/share, then least count/share,
// then the cheaper key, then table order.
func (s *shaper) pick(groups [][]int64, loads []float64) int {
	best := 0
	for j := 1; j < len(s.costs); j++ {
		if s.less(j, best, groups, loads) {
			best = j
		}
	}
	return best
}

func (s *shaper) less(a, b int, groups [][]int64, loads []float64) bool {
	la, lb := loads[a]/s.shares[a], loads[b]/s.shares[b]
	if la != lb {
		return la < lb
	}
	ca, cb := float64(len(groups[a]))/s.shares[a], float64(len(groups[b]))/s.shares[b]
	if ca != cb {
		return ca < cb
	}
	if s.costs[a] != s.costs[b] {
		return s.costs[a] < s.costs[b]
	}
	return a < b
}
