// Package tui is the terminal keypad: every keyswitch of the table is a terminal key, and the
// screen shows the document, the zoom breadcrumb and what each key would do next.
package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"keykapp/internal/format"
	"keykapp/internal/model"
	"keykapp/internal/session"
	"keykapp/internal/store"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Session *session.Session
	Store   store.Store
	Log     *logrus.Logger
	// Entries rereads the whole log after a shard change. Defaults to Store.ReadEntries.
	Entries func() ([]model.Entry, error)
}

// shardsChangedMsg is sent when another replica's shard was written.
type shardsChangedMsg struct{}

type keyMap struct {
	Back    key.Binding
	Reset   key.Binding
	Outline key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Back:    key.NewBinding(key.WithKeys("backspace"), key.WithHelp("⌫", "back")),
		Reset:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "reset")),
		Outline: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "outline")),
		Help:    key.NewBinding(key.WithKeys("f1", "?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Reset, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Back, k.Reset}, {k.Outline, k.Help, k.Quit}}
}

type appModel struct {
	s       *session.Session
	entries func() ([]model.Entry, error)
	changes <-chan struct{}

	keys keyMap
	help help.Model

	width       int
	height      int
	showOutline bool

	flash string
	err   error
}

func newAppModel(opts Options, changes <-chan struct{}) appModel {
	entries := opts.Entries
	if entries == nil {
		entries = opts.Store.ReadEntries
	}
	return appModel{
		s:       opts.Session,
		entries: entries,
		changes: changes,
		keys:    defaultKeyMap(),
		help:    help.New(),
		width:   80,
	}
}

// Run starts the keypad. Shard changes from other replicas are merged between key presses.
func Run(ctx context.Context, opts Options) error {
	if opts.Session == nil {
		return errors.New("tui: missing session")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	applyColorProfile()
	changes, err := opts.Store.Watch(ctx, opts.Log, opts.Session.Replica())
	if err != nil && opts.Log != nil {
		opts.Log.WithError(err).Warn("shard watcher unavailable; remote changes need a restart")
	}
	m := newAppModel(opts, changes)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return shardsChangedMsg{}
	}
}

func (m appModel) Init() tea.Cmd { return waitForChange(m.changes) }

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case shardsChangedMsg:
		m.merge()
		return m, waitForChange(m.changes)

	case tea.KeyMsg:
		k := msg.String()
		// Keyswitches win over the chrome bindings.
		if _, ok := m.s.Keys().Lookup(k); ok {
			m.press(k)
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Back):
			m.s.Back()
			m.flash, m.err = "", nil
		case key.Matches(msg, m.keys.Reset):
			m.s.Reset()
			m.flash, m.err = "", nil
		case key.Matches(msg, m.keys.Outline):
			m.showOutline = !m.showOutline
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil
	}
	return m, nil
}

func (m *appModel) press(k string) {
	out, err := m.s.OnKeyswitch(k)
	m.err = err
	switch {
	case out.Ignored:
		m.flash = "unused key"
	case out.Action != "":
		m.flash = m.label(out.Action)
	default:
		m.flash = ""
	}
}

func (m *appModel) merge() {
	entries, err := m.entries()
	if err != nil {
		m.err = err
		return
	}
	applied, err := m.s.Merge(entries)
	if err != nil {
		m.err = err
		return
	}
	if applied > 0 {
		m.flash = "merged " + plural(applied, "entry", "entries")
	}
}

func (m appModel) label(id string) string {
	if a, err := m.s.Registry().Lookup(id); err == nil && a.Legend != "" {
		return a.Legend
	}
	return id
}

func (m appModel) View() string {
	snap := m.s.Snapshot()
	w := m.width
	if w <= 0 {
		w = 80
	}

	var b strings.Builder
	header := styleHeader.Render("keykapp") + "  " +
		styleMuted.Render(string(snap.Mode)+" · "+snap.Replica+" · "+plural(snap.Entries, "entry", "entries"))
	if snap.Waiting > 0 {
		header += styleMuted.Render(" · " + strconv.Itoa(snap.Waiting) + " waiting")
	}
	b.WriteString(truncateToWidth(header, w))
	b.WriteString("\n")
	b.WriteString(styleMuted.Render(truncateToWidth(breadcrumb(snap.Nav), w)))
	b.WriteString("\n\n")

	if m.showOutline {
		b.WriteString(RenderMarkdown(format.MarkdownOutline(snap.Document), w))
	} else {
		b.WriteString(renderDocument(snap.Document, snap.Nav, w))
	}
	b.WriteString("\n\n")

	pending := "·"
	if len(snap.Pending) > 0 {
		pending = strings.Join(snap.Pending, " ")
	}
	b.WriteString(styleMuted.Render("keys: ") + pending)
	if snap.Auto != "" {
		b.WriteString(styleMuted.Render("  auto: ") + m.label(snap.Auto))
	}
	b.WriteString("\n")
	b.WriteString(renderKeypad(snap.Keys, w))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(styleError.Render(truncateToWidth(m.err.Error(), w)))
	case m.flash != "":
		b.WriteString(styleFlash.Render(truncateToWidth(m.flash, w)))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return lipgloss.NewStyle().MaxWidth(w).Render(b.String())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
