package tui

import (
	"strconv"
	"strings"

	"keykapp/internal/session"

	"github.com/charmbracelet/lipgloss"
)

// maxLegendRows caps how many action labels one key column lists.
const maxLegendRows = 8

// renderKeypad draws one column per keyswitch: the key cap and cost, then the labels of the
// actions reachable through it. A key that reaches a leaf shows its action in bold.
func renderKeypad(legends []session.KeyLegend, width int) string {
	if len(legends) == 0 {
		return ""
	}
	// Borders and padding take 4 columns per key.
	colW := width/len(legends) - 4
	if colW < 6 {
		colW = 6
	}

	cols := make([]string, 0, len(legends))
	for _, l := range legends {
		lines := []string{
			styleKeyCap.Render(l.Key) + " " + styleMuted.Render("c"+strconv.Itoa(l.Cost)),
		}
		switch {
		case l.Empty():
			lines = append(lines, faintIfDark(styleMuted).Render("·"))
		case l.Action != "":
			lines = append(lines, styleLeaf.Render(truncateToWidth(l.Labels[0], colW)))
		default:
			for i, label := range l.Labels {
				if i == maxLegendRows-1 && len(l.Labels) > maxLegendRows {
					lines = append(lines, styleMuted.Render("+"+strconv.Itoa(len(l.Labels)-i)+" more"))
					break
				}
				lines = append(lines, truncateToWidth(label, colW))
			}
		}
		for i := range lines {
			lines[i] = padToWidth(lines[i], colW)
		}
		style := styleKeyColumn
		if l.Action != "" {
			style = styleKeyColumnPending
		}
		cols = append(cols, style.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}
