package doc

import (
	"fmt"

	"keykapp/internal/model"
)

// element is one slot in a sequence: a child reference in a list, or a character in an atom.
// Deleted elements stay in place as tombstones so later inserts can still anchor on them.
type element struct {
	ID    model.OpID
	After model.OpID

	Node model.OpID
	Char string

	Visible  bool
	VisStamp model.OpID

	// index in sequence.items
	at int
}

// sequence is a replicated growable array. items holds every element, tombstones included, in
// RGA order. Each element knows its own index in items.
//
// A list node may be referenced by more than one slot after concurrent moves. Only the visible
// slot with the greatest visibility stamp shows the node; the others are shadowed.
type sequence struct {
	items []*element
	byID  map[model.OpID]*element

	// refs counts slots per node. shared is set once any node has two.
	refs   map[model.OpID]int
	shared bool

	live  []*element
	fresh bool
}

func newSequence() *sequence {
	return &sequence{
		byID: map[model.OpID]*element{},
		refs: map[model.OpID]int{},
	}
}

func (s *sequence) has(id model.OpID) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *sequence) get(id model.OpID) (*element, bool) {
	el, ok := s.byID[id]
	return el, ok
}

// integrate places el after its anchor. Concurrent inserts at the same anchor order by
// descending id: elements with a greater id are skipped, the first smaller one stops the scan.
// Elements inserted after a skipped one carry even greater counters, so they are skipped too.
func (s *sequence) integrate(el *element) error {
	if s.has(el.ID) {
		return nil
	}
	at := 0
	if !el.After.IsZero() {
		ref, ok := s.byID[el.After]
		if !ok {
			return fmt.Errorf("%w: anchor %v is not known", ErrCausality, el.After)
		}
		at = ref.at + 1
	}
	for at < len(s.items) && s.items[at].ID.Compare(el.ID) > 0 {
		at++
	}

	s.items = append(s.items, nil)
	copy(s.items[at+1:], s.items[at:])
	s.items[at] = el
	s.byID[el.ID] = el
	if !el.Node.IsZero() {
		s.refs[el.Node]++
		if s.refs[el.Node] > 1 {
			s.shared = true
		}
	}
	for i := at; i < len(s.items); i++ {
		s.items[i].at = i
	}
	if s.fresh && el.Node.IsZero() && at == len(s.items)-1 {
		// Typing at the end of an atom.
		s.live = append(s.live, el)
	} else {
		s.fresh = false
	}
	return nil
}

// setVisible is a last-writer-wins write; stale stamps are ignored.
func (s *sequence) setVisible(id model.OpID, visible bool, stamp model.OpID) error {
	el, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: element %v is not known", ErrCausality, id)
	}
	if stamp.Compare(el.VisStamp) > 0 {
		el.Visible = visible
		el.VisStamp = stamp
		s.fresh = false
	}
	return nil
}

// slotsOf returns the visible slots referencing node, shadowed ones included.
func (s *sequence) slotsOf(node model.OpID) []*element {
	var out []*element
	for _, el := range s.items {
		if el.Visible && el.Node == node {
			out = append(out, el)
		}
	}
	return out
}

// visible returns the elements that show, in order. The result is cached until the next write.
func (s *sequence) visible() []*element {
	if s.fresh {
		return s.live
	}
	var winner map[model.OpID]*element
	if s.shared {
		winner = map[model.OpID]*element{}
		for _, el := range s.items {
			if !el.Visible || el.Node.IsZero() {
				continue
			}
			if w, ok := winner[el.Node]; !ok || el.VisStamp.Compare(w.VisStamp) > 0 {
				winner[el.Node] = el
			}
		}
	}
	live := make([]*element, 0, len(s.items))
	for _, el := range s.items {
		if !el.Visible {
			continue
		}
		if winner != nil && !el.Node.IsZero() && winner[el.Node] != el {
			continue
		}
		live = append(live, el)
	}
	s.live, s.fresh = live, true
	return live
}

func (s *sequence) len() int { return len(s.visible()) }

// visibleAt returns the i-th visible element (0-based).
func (s *sequence) visibleAt(i int) (*element, bool) {
	live := s.visible()
	if i < 0 || i >= len(live) {
		return nil, false
	}
	return live[i], true
}
