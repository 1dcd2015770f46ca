package tui

import (
	"strconv"
	"strings"

	"keykapp/internal/doc"
	"keykapp/internal/format"
	"keykapp/internal/model"
	"keykapp/internal/nav"

	xansi "github.com/charmbracelet/x/ansi"
)

// zoomed walks root along the zoom path. It stops early at a step that is out of range or lands
// on an atom, returning how many steps were taken.
func zoomed(root doc.Sexp, path []int) (doc.Sexp, int) {
	cur := root
	for i, idx := range path {
		if idx < 0 || idx >= len(cur.Children) || cur.Children[idx].IsAtom() {
			return cur, i
		}
		cur = cur.Children[idx]
	}
	return cur, len(path)
}

// breadcrumb names the zoom path, e.g. "() › 2 › 0".
func breadcrumb(n model.Nav) string {
	parts := []string{"()"}
	for _, idx := range n.ZoomPath {
		parts = append(parts, strconv.Itoa(idx))
	}
	if nav.InAtom(n) {
		parts = append(parts, `"`+strconv.Itoa(n.ZoomCursorIdx-1)+`"`)
	}
	return strings.Join(parts, " › ")
}

// renderDocument draws the innermost zoomed list on one line with a cursor bar at the focus
// position, or the zoomed atom with its character cursor.
func renderDocument(root doc.Sexp, n model.Nav, width int) string {
	list, _ := zoomed(root, n.ZoomPath)
	cursor := styleCursor.Render(" ")

	if nav.InAtom(n) {
		i := n.ZoomCursorIdx - 1
		if i >= 0 && i < len(list.Children) && list.Children[i].IsAtom() {
			runes := []rune(list.Children[i].Text)
			c := n.CharCursor
			if c < 0 {
				c = 0
			}
			if c > len(runes) {
				c = len(runes)
			}
			line := `"` + escapeText(string(runes[:c])) + cursor + escapeText(string(runes[c:])) + `"`
			return truncateToWidth(line, width)
		}
	}

	c := nav.Cursor(n)
	parts := make([]string, 0, len(list.Children)+1)
	for i, child := range list.Children {
		if i == c {
			parts = append(parts, cursor)
		}
		text := format.FormatSexp(child)
		if i == c-1 {
			text = styleFocused.Render(text)
		}
		parts = append(parts, text)
	}
	if c >= len(list.Children) {
		parts = append(parts, cursor)
	}
	return truncateToWidth("("+strings.Join(parts, " ")+")", width)
}

func escapeText(s string) string {
	q := strconv.Quote(s)
	return q[1 : len(q)-1]
}

func truncateToWidth(s string, w int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if w <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= w {
		return s
	}
	if w <= 1 {
		return "…"
	}
	return xansi.Truncate(s, w-1, "") + "…"
}

func padToWidth(s string, w int) string {
	if cur := xansi.StringWidth(s); cur < w {
		return s + strings.Repeat(" ", w-cur)
	}
	return s
}
