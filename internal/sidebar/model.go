// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sidebar

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/flashquery-tui/internal/ui/styles"
	"github.com/jeranaias/flashquery-tui/internal/util"
)

// =============================================================================
// MESSAGES
// =============================================================================

// SelectMsg asks the controller to load a conversation into the transcript.
type SelectMsg struct {
	ID string
}

// DeleteMsg asks the controller to delete a conversation. It is never
// accompanied by a SelectMsg for the same key press.
type DeleteMsg struct {
	ID string
}

// =============================================================================
// KEY MAP
// =============================================================================

// KeyMap defines the sidebar bindings.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Select key.Binding
	Delete key.Binding
}

// DefaultKeyMap returns the default sidebar bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next"),
		),
		Top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("Home/g", "first"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("End/G", "last"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "open"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d/Del", "delete"),
		),
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the sidebar list component.
type Model struct {
	entries  []Entry
	cursor   int
	offset   int
	activeID string
	focused  bool

	width  int
	height int

	keys  KeyMap
	theme *styles.Theme
}

// New creates an empty sidebar.
func New(theme *styles.Theme) Model {
	return Model{
		keys:   DefaultKeyMap(),
		theme:  theme,
		width:  32,
		height: 10,
	}
}

// SetEntries replaces the rows. The cursor stays on the same conversation
// when it is still present, otherwise it is clamped.
func (m *Model) SetEntries(entries []Entry) {
	prevID := m.SelectedID()
	m.entries = entries

	m.cursor = clamp(m.cursor, 0, len(entries)-1)
	for i, e := range entries {
		if e.ID == prevID {
			m.cursor = i
			break
		}
	}
	m.scrollToCursor()
}

// SetActive marks the conversation shown in the transcript.
func (m *Model) SetActive(id string) {
	m.activeID = id
	for i, e := range m.entries {
		if e.ID == id {
			m.cursor = i
			m.scrollToCursor()
			return
		}
	}
}

// SetFocused toggles keyboard focus.
func (m *Model) SetFocused(focused bool) {
	m.focused = focused
}

// Focused reports whether the sidebar has keyboard focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetSize sets the component dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.scrollToCursor()
}

// Entries returns the current rows.
func (m Model) Entries() []Entry {
	return m.entries
}

// SelectedID returns the id under the cursor, or "" when empty.
func (m Model) SelectedID() string {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return ""
	}
	return m.entries[m.cursor].ID
}

// =============================================================================
// UPDATE
// =============================================================================

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key presses while focused.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(keyMsg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(keyMsg, m.keys.Top):
		m.moveCursor(-len(m.entries))
	case key.Matches(keyMsg, m.keys.Bottom):
		m.moveCursor(len(m.entries))
	case key.Matches(keyMsg, m.keys.Delete):
		if id := m.SelectedID(); id != "" {
			return m, emit(DeleteMsg{ID: id})
		}
	case key.Matches(keyMsg, m.keys.Select):
		if id := m.SelectedID(); id != "" {
			return m, emit(SelectMsg{ID: id})
		}
	}
	return m, nil
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func (m *Model) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, len(m.entries)-1)
	m.scrollToCursor()
}

// visibleRows is the number of entry rows below the heading.
func (m Model) visibleRows() int {
	return max(1, m.height-2)
}

func (m *Model) scrollToCursor() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	m.offset = clamp(m.offset, 0, max(0, len(m.entries)-rows))
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the heading and the visible window of entries.
func (m Model) View() string {
	inner := max(4, m.width-2)

	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render("Chats"))
	sb.WriteString("\n")

	if len(m.entries) == 0 {
		sb.WriteString(m.theme.SessionMeta.Render(util.PadRight("No conversations yet", inner)))
	}

	end := min(len(m.entries), m.offset+m.visibleRows())
	for i := m.offset; i < end; i++ {
		e := m.entries[i]

		marker := "  "
		if e.ID == m.activeID {
			marker = "* "
		}
		row := marker + util.PadRight(util.SingleLine(e.Title), inner-2)

		style := m.theme.SessionItem
		switch {
		case i == m.cursor && m.focused:
			style = m.theme.SessionItemSelected
		case e.ID == m.activeID:
			style = m.theme.SessionItemActive
		}
		sb.WriteString(style.Render(row))
		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	box := m.theme.Sidebar
	if m.focused {
		box = m.theme.SidebarFocused
	}
	return box.Width(m.width).Height(m.height).Render(sb.String())
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
