package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// OpID identifies an operation (and the element or node it creates).
// Counter is a Lamport clock; ties across replicas break on Replica.
type OpID struct {
	Counter int64  `json:"c"`
	Replica string `json:"r,omitempty"`
}

// RootID is the id of the document's root list.
var RootID = OpID{}

func (a OpID) IsZero() bool { return a.Counter == 0 && a.Replica == "" }

func (a OpID) Compare(b OpID) int {
	switch {
	case a.Counter < b.Counter:
		return -1
	case a.Counter > b.Counter:
		return 1
	}
	return strings.Compare(a.Replica, b.Replica)
}

func (a OpID) Less(b OpID) bool { return a.Compare(b) < 0 }

func (a OpID) String() string {
	if a.IsZero() {
		return "root"
	}
	return fmt.Sprintf("%d@%s", a.Counter, a.Replica)
}

type NodeKind string

const (
	NodeAtom NodeKind = "atom"
	NodeList NodeKind = "list"
)

type OpKind string

const (
	OpInsert     OpKind = "insert"
	OpSetVisible OpKind = "set_visible"
)

// Op is a single replicated document operation.
//
// Insert into a list either creates a node (NewNode set, node id == op id) or references an
// existing node (Node set, used by moves). Insert into an atom carries one character.
// SetVisible is a last-writer-wins visibility write on an element, stamped by ID.
type Op struct {
	Kind   OpKind `json:"kind"`
	ID     OpID   `json:"id"`
	Parent OpID   `json:"parent"`

	After   OpID     `json:"after,omitzero"`
	NewNode NodeKind `json:"newNode,omitempty"`
	Node    *OpID    `json:"node,omitempty"`
	Char    string   `json:"char,omitempty"`

	Elem    OpID `json:"elem,omitzero"`
	Visible bool `json:"visible,omitempty"`
}

type Mode string

const (
	ModeMenu   Mode = "menu"
	ModeInsert Mode = "insert"
)

// Nav is the per-replica navigation state. It only holds indices into the document.
//
// Focus has one cursor per list level (len(ZoomPath)+1). A cursor i means "after element i";
// the focused element is list[i-1] when i > 0. ZoomCursorIdx > 0 means the user is zoomed into
// the atom at ZoomCursorIdx-1 of the top list, with CharCursor as the cursor inside it.
type Nav struct {
	Mode          Mode  `json:"mode"`
	ZoomPath      []int `json:"zoomPath"`
	ZoomCursorIdx int   `json:"zoomCursorIdx"`
	Focus         []int `json:"focus"`
	CharCursor    int   `json:"charCursor"`
}

func NewNav() Nav {
	return Nav{Mode: ModeMenu, ZoomPath: []int{}, Focus: []int{0}}
}

func (n Nav) Clone() Nav {
	out := n
	out.ZoomPath = append([]int{}, n.ZoomPath...)
	out.Focus = append([]int{}, n.Focus...)
	return out
}

func (n Nav) Equal(o Nav) bool {
	if n.Mode != o.Mode || n.ZoomCursorIdx != o.ZoomCursorIdx || n.CharCursor != o.CharCursor {
		return false
	}
	if len(n.ZoomPath) != len(o.ZoomPath) || len(n.Focus) != len(o.Focus) {
		return false
	}
	for i := range n.ZoomPath {
		if n.ZoomPath[i] != o.ZoomPath[i] {
			return false
		}
	}
	for i := range n.Focus {
		if n.Focus[i] != o.Focus[i] {
			return false
		}
	}
	return true
}

type EntryKind string

const (
	EntryDocument EntryKind = "document"
	EntryMode     EntryKind = "mode"
	EntryUndo     EntryKind = "undo"
	EntryRedo     EntryKind = "redo"
)

// Entry is one executed action in the replicated log.
type Entry struct {
	ID        OpID      `json:"id"`
	Action    string    `json:"action"`
	Kind      EntryKind `json:"kind"`
	Ops       []Op      `json:"ops,omitempty"`
	Target    OpID      `json:"target,omitzero"`
	NavBefore Nav       `json:"navBefore"`
	NavAfter  Nav       `json:"navAfter"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// SortEntries orders entries causally (Lamport order). The result is the same on every replica.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ID.Less(entries[j].ID)
	})
}

// ActionIDs returns the executed action ids in slice order.
func ActionIDs(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}
