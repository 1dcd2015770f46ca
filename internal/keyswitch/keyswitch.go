package keyswitch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Hand string

const (
	LeftHand  Hand = "left"
	RightHand Hand = "right"
)

// Keyswitch is one physical input. Index is its position in the table and is used for
// display order and deterministic tie-breaks.
type Keyswitch struct {
	ID    string `json:"key" toml:"key" yaml:"key"`
	Index int    `json:"index" toml:"-" yaml:"-"`
	Cost  int    `json:"actuationCost" toml:"cost" yaml:"cost"`
	Hand  Hand   `json:"hand" toml:"hand" yaml:"hand"`
}

// Table is an immutable, ordered set of keyswitches.
type Table struct {
	keys   []Keyswitch
	byID   map[string]int
	byCost []int
}

// Default is the four home-row keys used by the keypad: the index fingers are cheapest.
func Default() Table {
	t, err := New([]Keyswitch{
		{ID: "d", Cost: 2, Hand: LeftHand},
		{ID: "f", Cost: 1, Hand: LeftHand},
		{ID: "j", Cost: 1, Hand: RightHand},
		{ID: "k", Cost: 2, Hand: RightHand},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// HomeRow is the full eight-key home row.
func HomeRow() Table {
	t, err := New([]Keyswitch{
		{ID: "a", Cost: 4, Hand: LeftHand},
		{ID: "s", Cost: 3, Hand: LeftHand},
		{ID: "d", Cost: 2, Hand: LeftHand},
		{ID: "f", Cost: 1, Hand: LeftHand},
		{ID: "j", Cost: 1, Hand: RightHand},
		{ID: "k", Cost: 2, Hand: RightHand},
		{ID: "l", Cost: 3, Hand: RightHand},
		{ID: ";", Cost: 4, Hand: RightHand},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// New validates keys and builds a table. Index fields are reassigned from slice order.
func New(keys []Keyswitch) (Table, error) {
	if len(keys) < 2 {
		return Table{}, errors.New("keyswitch table needs at least 2 keys")
	}
	if len(keys) > 8 {
		return Table{}, fmt.Errorf("keyswitch table supports at most 8 keys, got %d", len(keys))
	}
	t := Table{
		keys: make([]Keyswitch, len(keys)),
		byID: make(map[string]int, len(keys)),
	}
	for i, k := range keys {
		k.ID = strings.TrimSpace(k.ID)
		if k.ID == "" {
			return Table{}, fmt.Errorf("keyswitch %d: missing key", i)
		}
		if k.Cost <= 0 {
			return Table{}, fmt.Errorf("keyswitch %q: actuation cost must be positive, got %d", k.ID, k.Cost)
		}
		if _, dup := t.byID[k.ID]; dup {
			return Table{}, fmt.Errorf("keyswitch %q: duplicate key", k.ID)
		}
		switch k.Hand {
		case LeftHand, RightHand:
		case "":
			k.Hand = LeftHand
			if i >= len(keys)/2 {
				k.Hand = RightHand
			}
		default:
			return Table{}, fmt.Errorf("keyswitch %q: unknown hand %q", k.ID, k.Hand)
		}
		k.Index = i
		t.keys[i] = k
		t.byID[k.ID] = i
	}
	t.byCost = make([]int, len(t.keys))
	for i := range t.byCost {
		t.byCost[i] = i
	}
	sort.SliceStable(t.byCost, func(i, j int) bool {
		return t.keys[t.byCost[i]].Cost < t.keys[t.byCost[j]].Cost
	})
	return t, nil
}

func (t Table) Len() int { return len(t.keys) }

// All returns the keys in table order.
func (t Table) All() []Keyswitch {
	out := make([]Keyswitch, len(t.keys))
	copy(out, t.keys)
	return out
}

// At returns the key at table index i.
func (t Table) At(i int) Keyswitch { return t.keys[i] }

// ByCost returns the keys sorted by ascending cost; equal costs keep table order.
func (t Table) ByCost() []Keyswitch {
	out := make([]Keyswitch, len(t.byCost))
	for i, idx := range t.byCost {
		out[i] = t.keys[idx]
	}
	return out
}

func (t Table) Lookup(id string) (Keyswitch, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Keyswitch{}, false
	}
	return t.keys[i], true
}

func (t Table) Cost(id string) (int, bool) {
	k, ok := t.Lookup(id)
	return k.Cost, ok
}

// MaxCost is the most expensive single actuation in the table.
func (t Table) MaxCost() int {
	return t.keys[t.byCost[len(t.byCost)-1]].Cost
}
