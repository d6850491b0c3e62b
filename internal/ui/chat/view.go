// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/flashquery-tui/internal/util"
)

// Fixed rows around the transcript: header, input box (3) and status bar.
const chromeRows = 5

// =============================================================================
// LAYOUT
// =============================================================================

// layout distributes the window between the sidebar and the transcript.
func (m *Model) layout() {
	bodyHeight := max(3, m.height-chromeRows)

	sideWidth := min(m.sidebarWidth, m.width/3)
	m.sidebar.SetSize(sideWidth, bodyHeight)

	mainWidth := max(10, m.width-sideWidth-1)
	m.transcript.SetSize(mainWidth, bodyHeight)
	m.input.SetWidth(max(10, m.width-4))
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the full screen.
func (m Model) View() string {
	if !m.ready {
		return "Starting FlashQuery..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.sidebar.View(),
		" ",
		m.mainPane(),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.theme.InputContainer.Width(m.width-2).Render(m.input.View()),
		m.renderStatusBar(),
	)
}

func (m Model) mainPane() string {
	if m.showHelp {
		return m.renderHelp()
	}
	return m.transcript.View()
}

func (m Model) renderHeader() string {
	left := m.theme.HeaderBrand.Render("FlashQuery") + " " + m.theme.HeaderMeta.Render(m.mode.Subtitle())

	var right string
	switch {
	case m.backendUp == nil:
		right = m.theme.HeaderMeta.Render("connecting...")
	case *m.backendUp:
		right = m.theme.HeaderMeta.Render("online " + m.backendURL)
	default:
		right = m.theme.ErrorStyle.Render("offline " + m.backendURL)
	}

	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderStatusBar() string {
	var parts []string

	if src := m.sess.PendingSource(); src != "" {
		parts = append(parts, m.theme.ContextBadge.Render("ctx: "+util.TruncateRunes(src, 24)))
	}
	if n := len(m.pending); n > 0 {
		parts = append(parts, m.theme.ThinkingText.Render(pluralize(n, "request", "requests")+" pending"))
	}

	if m.status != "" {
		style := m.theme.HeaderMeta
		if m.statusErr {
			style = m.theme.ErrorStyle
		}
		parts = append(parts, style.Render(util.TruncateRunes(util.SingleLine(m.status), max(10, m.width/2))))
	} else {
		for _, b := range m.keys.ShortHelp() {
			h := b.Help()
			parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
		}
	}

	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render("Commands"))
	sb.WriteString("\n\n")
	for _, row := range commandHelp {
		sb.WriteString(m.theme.ShortcutKey.Render(util.PadRight(row[0], 24)))
		sb.WriteString(m.theme.ShortcutDesc.Render(row[1]))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.theme.SidebarTitle.Render("Keys"))
	sb.WriteString("\n\n")
	for _, b := range append(m.keys.ShortHelp(), m.keys.PageUp, m.keys.PageDown) {
		h := b.Help()
		sb.WriteString(m.theme.ShortcutKey.Render(util.PadRight(h.Key, 24)))
		sb.WriteString(m.theme.ShortcutDesc.Render(h.Desc))
		sb.WriteString("\n")
	}
	sb.WriteString(m.theme.ShortcutDesc.Render("In the chat list: up/down to move, Enter to open, d to delete, Esc to return"))
	return sb.String()
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
