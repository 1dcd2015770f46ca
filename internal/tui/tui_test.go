package tui

import (
	"strings"
	"testing"

	"keykapp/internal/doc"
	"keykapp/internal/kapp"
	"keykapp/internal/model"
	"keykapp/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func plainProfile(t *testing.T) {
	t.Helper()
	old := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() { lipgloss.SetColorProfile(old) })
}

func newTestModel(t *testing.T, replica string) appModel {
	t.Helper()
	s, err := session.New(session.Options{Replica: replica})
	require.NoError(t, err)
	return newAppModel(Options{Session: s, Entries: func() ([]model.Entry, error) { return nil, nil }}, nil)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func send(m appModel, keys ...string) (appModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(appModel)
	}
	return m, cmd
}

func TestKeyPressesRunActions(t *testing.T) {
	m := newTestModel(t, "a")
	keys, ok := m.s.Tree().KeysOf(kapp.ModeInsert)
	require.True(t, ok)

	m, _ = send(m, keys...)
	require.Equal(t, model.ModeInsert, m.s.Snapshot().Mode)
	require.NoError(t, m.err)
	require.Equal(t, "mode-insert", m.flash)
}

func TestBackAndResetClearPendingPath(t *testing.T) {
	m := newTestModel(t, "a")
	var first string
	for _, l := range m.s.Tree().Leaves() {
		if len(l.Path) >= 2 {
			keys, _ := m.s.Tree().KeysOf(l.Action)
			first = keys[0]
			break
		}
	}
	require.NotEmpty(t, first, "menu mode should need two-key paths")

	m, _ = send(m, first)
	require.NotEmpty(t, m.s.PendingKeys())
	m, _ = send(m, "backspace")
	require.Empty(t, m.s.PendingKeys())

	m, _ = send(m, first, "esc")
	require.Empty(t, m.s.PendingKeys())
}

func TestQuitAndUnknownKeys(t *testing.T) {
	m := newTestModel(t, "a")
	m, cmd := send(m, "z")
	require.Nil(t, cmd)
	require.Empty(t, m.s.PendingKeys())

	_, cmd = send(m, "ctrl+c")
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
}

func TestShardChangeMergesEntries(t *testing.T) {
	other, err := session.New(session.Options{Replica: "b"})
	require.NoError(t, err)
	_, err = other.Execute(kapp.ListNew)
	require.NoError(t, err)

	m := newTestModel(t, "a")
	m.entries = func() ([]model.Entry, error) { return other.Log(), nil }
	next, _ := m.Update(shardsChangedMsg{})
	m = next.(appModel)

	require.True(t, m.s.Snapshot().Document.Equal(doc.List(doc.List())))
	require.Equal(t, "merged 1 entry", m.flash)
}

func TestViewShowsDocumentAndKeypad(t *testing.T) {
	plainProfile(t)
	m := newTestModel(t, "a")
	_, err := m.s.Execute(kapp.ModeInsert)
	require.NoError(t, err)
	_, err = m.s.Execute(kapp.TextNew)
	require.NoError(t, err)
	_, err = m.s.Execute(kapp.CharID('h'))
	require.NoError(t, err)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	view := xansi.Strip(next.(appModel).View())
	require.Contains(t, view, "keykapp")
	require.Contains(t, view, `"h `)
	for _, k := range m.s.Keys().All() {
		require.Contains(t, view, k.ID)
	}
	for _, line := range strings.Split(view, "\n") {
		require.LessOrEqual(t, xansi.StringWidth(line), 100)
	}
}

func TestRenderDocumentCursor(t *testing.T) {
	plainProfile(t)
	root := doc.List(doc.Atom("a"), doc.List(doc.Atom("b")))

	n := model.NewNav()
	n.Focus = []int{1}
	require.Equal(t, `("a"   ("b"))`, xansi.Strip(renderDocument(root, n, 80)))

	n.Focus = []int{2}
	require.Equal(t, `("a" ("b")  )`, xansi.Strip(renderDocument(root, n, 80)))

	n.ZoomPath = []int{1}
	n.Focus = []int{2, 0}
	require.Equal(t, `(  "b")`, xansi.Strip(renderDocument(root, n, 80)))

	atom := model.NewNav()
	atom.ZoomCursorIdx = 1
	atom.CharCursor = 0
	require.Equal(t, `" a"`, xansi.Strip(renderDocument(doc.List(doc.Atom("a")), atom, 80)))
}

func TestBreadcrumb(t *testing.T) {
	n := model.NewNav()
	require.Equal(t, "()", breadcrumb(n))
	n.ZoomPath = []int{2, 0}
	n.ZoomCursorIdx = 3
	require.Equal(t, `() › 2 › 0 › "2"`, breadcrumb(n))
}

func TestTruncateToWidth(t *testing.T) {
	require.Equal(t, "abc…", truncateToWidth("abcdef", 4))
	require.Equal(t, "abc", truncateToWidth("abc", 4))
	require.Equal(t, "", truncateToWidth("abc", 0))
}

func TestRenderMarkdownFallsBackOnEmpty(t *testing.T) {
	require.Equal(t, "", RenderMarkdown("   ", 40))
	t.Setenv("KEYKAPP_TUI_MD_STYLE", "notty")
	out := RenderMarkdown("- one\n- two\n", 40)
	require.Contains(t, out, "one")
	require.Contains(t, out, "two")
}
