// Package format renders documents and command output: JSON, EDN, s-expressions and a markdown
// outline.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"keykapp/internal/doc"
)

// Formats accepted by Write.
const (
	JSON     = "json"
	EDN      = "edn"
	Sexp     = "sexp"
	Markdown = "md"
)

// Write writes v in the requested format. sexp and md only accept a document tree.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", JSON:
		return WriteJSON(w, v, pretty)
	case EDN:
		return WriteEDN(w, v, pretty)
	case Sexp, "sx":
		s, ok := asSexp(v)
		if !ok {
			return fmt.Errorf("format %s needs a document, got %T", format, v)
		}
		return WriteSexp(w, s, pretty)
	case Markdown, "markdown":
		s, ok := asSexp(v)
		if !ok {
			return fmt.Errorf("format %s needs a document, got %T", format, v)
		}
		_, err := io.WriteString(w, MarkdownOutline(s))
		return err
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func asSexp(v any) (doc.Sexp, bool) {
	switch t := v.(type) {
	case doc.Sexp:
		return t, true
	case *doc.Sexp:
		if t != nil {
			return *t, true
		}
	}
	return doc.Sexp{}, false
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

// MarkdownOutline renders the children of root as a bullet outline. Nested lists indent one
// level and are introduced by an empty-list marker.
func MarkdownOutline(root doc.Sexp) string {
	var b strings.Builder
	if root.IsAtom() {
		fmt.Fprintf(&b, "- %s\n", mdAtom(root.Text))
		return b.String()
	}
	if len(root.Children) == 0 {
		return "_empty_\n"
	}
	var walk func(s doc.Sexp, depth int)
	walk = func(s doc.Sexp, depth int) {
		for _, c := range s.Children {
			indent := strings.Repeat("  ", depth)
			if c.IsAtom() {
				fmt.Fprintf(&b, "%s- %s\n", indent, mdAtom(c.Text))
				continue
			}
			fmt.Fprintf(&b, "%s- `()`\n", indent)
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return b.String()
}

// mdAtom shows atoms verbatim unless they would be invisible or break the bullet.
func mdAtom(text string) string {
	if text == "" || strings.TrimSpace(text) != text || strings.ContainsAny(text, "\n`") {
		return "`" + strings.ReplaceAll(strconv.Quote(text), "`", "'") + "`"
	}
	return text
}
