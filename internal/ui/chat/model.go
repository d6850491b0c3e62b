// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/flashquery-tui/internal/backend"
	"github.com/jeranaias/flashquery-tui/internal/contextwatch"
	"github.com/jeranaias/flashquery-tui/internal/model"
	"github.com/jeranaias/flashquery-tui/internal/session"
	"github.com/jeranaias/flashquery-tui/internal/sidebar"
	"github.com/jeranaias/flashquery-tui/internal/transcript"
	"github.com/jeranaias/flashquery-tui/internal/ui/styles"
)

// Service is the part of the backend client the TUI uses directly.
// Questions go through the session's dispatcher instead.
type Service interface {
	Ping(ctx context.Context) (*backend.ServiceInfo, error)
	Upload(ctx context.Context, filename string, content io.Reader) (*backend.UploadResponse, error)
}

// Options configures a Model.
type Options struct {
	Session *session.Session
	Service Service
	Theme   *styles.Theme

	// ContextUpdates feeds a watched context file into the session.
	ContextUpdates <-chan contextwatch.Update

	TitleMaxRunes int
	SidebarWidth  int
	BackendURL    string
}

// outstanding is a question whose reply has not arrived yet.
type outstanding struct {
	ticket int
	text   string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root Bubble Tea model: sidebar, transcript, input line and
// status bar around one session.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	sess    *session.Session
	service Service
	theme   *styles.Theme
	keys    KeyMap

	sidebar    sidebar.Model
	transcript transcript.Model
	input      textarea.Model

	ctxUpdates <-chan contextwatch.Update

	pending    []outstanding
	nextTicket int

	mode       Mode
	filter     string
	showHelp   bool
	status     string
	statusErr  bool
	backendURL string
	backendUp  *bool

	titleMaxRunes int
	sidebarWidth  int
	width         int
	height        int
	ready         bool
}

// New creates the root model.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	if opts.TitleMaxRunes <= 0 {
		opts.TitleMaxRunes = sidebar.DefaultTitleRunes
	}
	if opts.SidebarWidth <= 0 {
		opts.SidebarWidth = 32
	}

	ta := textarea.New()
	ta.Placeholder = "Ask anything, or /help"
	ta.Prompt = "> "
	ta.FocusedStyle.Prompt = theme.InputPrompt
	ta.BlurredStyle.Prompt = theme.InputPrompt.Bold(false).Foreground(styles.TextMuted)
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		ctx:           ctx,
		cancel:        cancel,
		sess:          opts.Session,
		service:       opts.Service,
		theme:         theme,
		keys:          DefaultKeyMap(),
		sidebar:       sidebar.New(theme),
		transcript:    transcript.New(theme),
		input:         ta,
		ctxUpdates:    opts.ContextUpdates,
		titleMaxRunes: opts.TitleMaxRunes,
		sidebarWidth:  opts.SidebarWidth,
		backendURL:    opts.BackendURL,
		width:         100,
		height:        30,
	}
	m.refreshSidebar()
	m.layout()
	return m
}

// Init starts the input cursor, the reachability check and the context
// file listener.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.checkBackend()}
	if m.ctxUpdates != nil {
		cmds = append(cmds, waitForContext(m.ctxUpdates))
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ReplyMsg:
		return m.handleReply(msg)

	case sidebar.SelectMsg:
		m.sess.Select(msg.ID)
		m.syncTranscript()
		m.sidebar.SetActive(m.sess.ActiveID())
		m.focusInput()
		return m, nil

	case sidebar.DeleteMsg:
		return m.handleDelete(msg)

	case UploadDoneMsg:
		if msg.Err != nil {
			m.setStatus("Upload failed: "+msg.Err.Error(), true)
			return m, nil
		}
		m.sess.SetPendingContext(msg.Text, msg.Source)
		m.setStatus("Context loaded from "+msg.Source, false)
		return m, nil

	case ContextUpdateMsg:
		m.applyContextUpdate(msg.Update)
		return m, waitForContext(m.ctxUpdates)

	case contextClosedMsg:
		m.ctxUpdates = nil
		return m, nil

	case BackendStatusMsg:
		up := msg.Err == nil
		m.backendUp = &up
		if !up {
			m.setStatus("FlashQuery backend not reachable at "+m.backendURL, true)
		}
		return m, nil

	case StatusMsg:
		m.setStatus(msg.Text, msg.Error)
		return m, nil
	}

	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleFocus):
		if m.sidebar.Focused() {
			m.focusInput()
		} else {
			m.sidebar.SetFocused(true)
			m.input.Blur()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m.startNewChat()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}

	if m.sidebar.Focused() {
		if msg.Type == tea.KeyEsc {
			m.focusInput()
			return m, nil
		}
		var cmd tea.Cmd
		m.sidebar, cmd = m.sidebar.Update(msg)
		return m, cmd
	}

	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input line. Whitespace-only input does nothing.
func (m Model) submit() (tea.Model, tea.Cmd) {
	raw := m.input.Value()
	if strings.HasPrefix(strings.TrimSpace(raw), "/") {
		m.input.Reset()
		return m.handleCommand(strings.TrimSpace(raw))
	}

	text, ok := m.sess.Dispatcher().Validate(raw)
	if !ok {
		return m, nil
	}
	m.input.Reset()

	disp := m.sess.Dispatcher()
	docContext := m.sess.PendingContext()
	return m.startRequest(text, func(ctx context.Context) ReplyMsg {
		return ReplyMsg{Reply: disp.Exchange(ctx, text, docContext)}
	})
}

// startRequest shows the user text with the thinking placeholder and runs
// the exchange off the event loop.
func (m Model) startRequest(shown string, run func(ctx context.Context) ReplyMsg) (tea.Model, tea.Cmd) {
	m.nextTicket++
	ticket := m.nextTicket
	m.pending = append(m.pending, outstanding{ticket: ticket, text: shown})
	m.syncTranscript()

	ctx := m.ctx
	exchange := func() tea.Msg {
		msg := run(ctx)
		msg.Ticket = ticket
		return msg
	}

	var tick tea.Cmd
	if !m.transcript.IsPending() {
		tick = m.transcript.ShowPending()
	}
	return m, tea.Batch(exchange, tick)
}

// handleReply commits a finished exchange into whichever conversation is
// active now. Replies are committed in arrival order.
func (m Model) handleReply(msg ReplyMsg) (tea.Model, tea.Cmd) {
	for i, p := range m.pending {
		if p.ticket == msg.Ticket {
			m.pending = append(m.pending[:i:i], m.pending[i+1:]...)
			break
		}
	}

	if _, err := m.sess.Commit(msg.Reply); err != nil {
		m.setStatus("Could not save conversation: "+err.Error(), true)
	} else if msg.Reply.Err != nil {
		slog.Warn("request failed", "seq", msg.Reply.Seq, "error", msg.Reply.Err)
		m.setStatus(msg.Reply.Err.Error(), true)
	}

	m.refreshSidebar()
	m.syncTranscript()
	return m, nil
}

func (m Model) handleDelete(msg sidebar.DeleteMsg) (tea.Model, tea.Cmd) {
	return m.handleDeleteID(msg.ID)
}

// handleDeleteID removes one conversation. The transcript only changes
// when the deleted conversation was the one on screen.
func (m Model) handleDeleteID(id string) (tea.Model, tea.Cmd) {
	cleared, err := m.sess.Delete(id)
	if err != nil {
		m.setStatus("Could not delete conversation: "+err.Error(), true)
		return m, nil
	}
	m.refreshSidebar()
	if cleared {
		m.syncTranscript()
	}
	m.setStatus("Conversation deleted", false)
	return m, nil
}

func (m Model) startNewChat() (tea.Model, tea.Cmd) {
	m.sess.NewConversation()
	m.mode = ModeAsk
	m.sidebar.SetActive("")
	m.syncTranscript()
	m.focusInput()
	return m, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// syncTranscript renders the active conversation followed by questions
// that are still waiting for a reply.
func (m *Model) syncTranscript() {
	m.transcript.Render(m.sess.Active())
	for _, p := range m.pending {
		m.transcript.AppendLive(model.RoleUser, p.text)
	}
	if len(m.pending) == 0 {
		m.transcript.ClearPending()
	}
}

func (m *Model) refreshSidebar() {
	list := m.sess.Store().List()
	if m.filter != "" {
		list = m.sess.Store().Search(m.filter)
	}
	m.sidebar.SetEntries(sidebar.Project(list, m.titleMaxRunes))
	m.sidebar.SetActive(m.sess.ActiveID())
}

func (m *Model) focusInput() {
	m.sidebar.SetFocused(false)
	m.input.Focus()
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) applyContextUpdate(u contextwatch.Update) {
	switch {
	case u.Err != nil:
		m.setStatus("Context file error: "+u.Err.Error(), true)
	case u.Removed:
		if m.sess.PendingSource() == u.Path {
			m.sess.ClearPendingContext()
			m.setStatus("Context file removed", false)
		}
	default:
		m.sess.SetPendingContext(u.Text, u.Path)
		m.setStatus("Context updated from "+u.Path, false)
	}
}

func (m Model) checkBackend() tea.Cmd {
	svc := m.service
	if svc == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		info, err := svc.Ping(ctx)
		return BackendStatusMsg{Info: info, Err: err}
	}
}

func waitForContext(ch <-chan contextwatch.Update) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return contextClosedMsg{}
		}
		return ContextUpdateMsg{Update: u}
	}
}

// =============================================================================
// GETTERS
// =============================================================================

// Session returns the controller behind the model.
func (m Model) Session() *session.Session {
	return m.sess
}

// Transcript returns the transcript component.
func (m Model) Transcript() transcript.Model {
	return m.transcript
}

// Sidebar returns the sidebar component.
func (m Model) Sidebar() sidebar.Model {
	return m.sidebar
}

// Mode returns the current prompt mode.
func (m Model) Mode() Mode {
	return m.mode
}

// Status returns the status line text and whether it reports an error.
func (m Model) Status() (string, bool) {
	return m.status, m.statusErr
}

// InFlight returns the number of requests awaiting a reply.
func (m Model) InFlight() int {
	return len(m.pending)
}
