// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript renders the turns of the active conversation in a
// scrollable viewport.
//
// The rendered blocks always equal the active conversation's turns, in
// order, except for the ephemeral "thinking" placeholder which is drawn
// below them while a request is in flight and is never part of Blocks.
package transcript

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/flashquery-tui/internal/model"
	"github.com/jeranaias/flashquery-tui/internal/ui/styles"
)

// PendingText is shown while a reply is outstanding.
const PendingText = "FlashQuery is thinking…"

// EmptyText is shown when no conversation is active.
const EmptyText = "Ask FlashQuery anything. Your conversations appear on the left."

// Block is one rendered message.
type Block struct {
	Role model.Role
	Text string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the transcript component.
type Model struct {
	viewport viewport.Model
	spinner  spinner.Model
	theme    *styles.Theme

	blocks  []Block
	pending bool

	width  int
	height int
}

// New creates an empty transcript.
func New(theme *styles.Theme) Model {
	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = theme.ThinkingText

	m := Model{
		viewport: vp,
		spinner:  sp,
		theme:    theme,
		width:    80,
		height:   20,
	}
	m.refresh()
	return m
}

// SetSize updates the viewport dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.refresh()
}

// =============================================================================
// CONTENT OPERATIONS
// =============================================================================

// Render replaces the transcript with every turn of conv, in order. A nil
// conversation clears the transcript.
func (m *Model) Render(conv *model.Conversation) {
	m.blocks = nil
	if conv != nil {
		for _, t := range conv.Turns() {
			m.blocks = append(m.blocks, Block{Role: t.Role, Text: t.Text})
		}
	}
	m.refresh()
}

// AppendLive appends one block.
func (m *Model) AppendLive(role model.Role, text string) {
	m.blocks = append(m.blocks, Block{Role: role, Text: text})
	m.refresh()
}

// Clear empties the transcript and drops any placeholder.
func (m *Model) Clear() {
	m.blocks = nil
	m.pending = false
	m.refresh()
}

// ShowPending draws the thinking placeholder and starts its animation.
func (m *Model) ShowPending() tea.Cmd {
	m.pending = true
	m.refresh()
	return m.spinner.Tick
}

// ClearPending removes the thinking placeholder.
func (m *Model) ClearPending() {
	m.pending = false
	m.refresh()
}

// Blocks returns a copy of the rendered blocks.
func (m Model) Blocks() []Block {
	return append([]Block(nil), m.blocks...)
}

// Len returns the number of rendered blocks.
func (m Model) Len() int {
	return len(m.blocks)
}

// IsPending reports whether the placeholder is shown.
func (m Model) IsPending() bool {
	return m.pending
}

// AtBottom reports whether the last line is visible.
func (m Model) AtBottom() bool {
	return m.viewport.AtBottom()
}

// =============================================================================
// UPDATE AND VIEW
// =============================================================================

// Update advances the spinner and forwards scroll keys to the viewport.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
}

// View renders the viewport.
func (m Model) View() string {
	return m.viewport.View()
}

// refresh re-renders all blocks and scrolls to the newest one.
func (m *Model) refresh() {
	m.viewport.SetContent(m.content())
	m.viewport.GotoBottom()
}

func (m *Model) content() string {
	if len(m.blocks) == 0 && !m.pending {
		return m.theme.EmptyTranscript.Width(m.width).Render(EmptyText)
	}

	bubbleWidth := max(10, m.width*3/4)

	parts := make([]string, 0, len(m.blocks)+1)
	for _, b := range m.blocks {
		label := m.theme.RoleLabel.Render(b.Role.DisplayName())
		bubble := m.theme.BubbleFor(b.Role).Width(bubbleWidth).Render(b.Text)

		block := lipgloss.JoinVertical(lipgloss.Left, label, bubble)
		if b.Role == model.RoleUser {
			block = lipgloss.PlaceHorizontal(m.width, lipgloss.Right, block)
		}
		parts = append(parts, block)
	}

	if m.pending {
		parts = append(parts, m.spinner.View()+" "+m.theme.ThinkingText.Render(PendingText))
	}
	return strings.Join(parts, "\n")
}
