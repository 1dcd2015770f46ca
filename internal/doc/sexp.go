package doc

import (
	"fmt"

	"keykapp/internal/model"
)

// Sexp is a plain value copy of a document subtree, used for rendering, export and import.
type Sexp struct {
	Kind     model.NodeKind `json:"kind"`
	Text     string         `json:"text,omitempty"`
	Children []Sexp         `json:"children,omitempty"`
}

func Atom(text string) Sexp { return Sexp{Kind: model.NodeAtom, Text: text} }

func List(children ...Sexp) Sexp {
	if children == nil {
		children = []Sexp{}
	}
	return Sexp{Kind: model.NodeList, Children: children}
}

func (s Sexp) IsAtom() bool { return s.Kind == model.NodeAtom }

func (s Sexp) Equal(o Sexp) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case model.NodeAtom:
		return s.Text == o.Text
	case model.NodeList:
		if len(s.Children) != len(o.Children) {
			return false
		}
		for i := range s.Children {
			if !s.Children[i].Equal(o.Children[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Snapshot copies the visible document.
func (d *Document) Snapshot() Sexp {
	return d.snapshot(model.RootID, 0)
}

// SnapshotOf copies the visible subtree rooted at id.
func (d *Document) SnapshotOf(id model.OpID) Sexp {
	return d.snapshot(id, 0)
}

// Moves can make two slots reference one node; depth bounds the walk in case concurrent moves
// ever produce a cycle.
const maxDepth = 512

func (d *Document) snapshot(id model.OpID, depth int) Sexp {
	n, ok := d.nodes[id]
	if !ok || depth > maxDepth {
		return List()
	}
	switch n.kind {
	case model.NodeAtom:
		return Atom(d.Text(id))
	default:
		vis := n.seq.visible()
		out := make([]Sexp, 0, len(vis))
		for _, el := range vis {
			out = append(out, d.snapshot(el.Node, depth+1))
		}
		return List(out...)
	}
}

// Graft inserts a copy of s's children into list starting at visible index idx.
// It returns the number of top-level nodes inserted.
func (tx *Tx) Graft(list model.OpID, idx int, s Sexp) (int, error) {
	if s.Kind != model.NodeList {
		return 0, fmt.Errorf("graft: expected a list, got %s", s.Kind)
	}
	for i, child := range s.Children {
		id, err := tx.InsertNode(list, idx+i, child.Kind)
		if err != nil {
			return i, err
		}
		switch child.Kind {
		case model.NodeAtom:
			pos := 0
			for _, r := range child.Text {
				if err := tx.InsertChar(id, pos, string(r)); err != nil {
					return i, err
				}
				pos++
			}
		case model.NodeList:
			if _, err := tx.Graft(id, 0, child); err != nil {
				return i, err
			}
		}
	}
	return len(s.Children), nil
}
