// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/flashquery-tui/internal/backend"
	"github.com/jeranaias/flashquery-tui/internal/contextwatch"
	"github.com/jeranaias/flashquery-tui/internal/dispatch"
	"github.com/jeranaias/flashquery-tui/internal/kvstore"
	"github.com/jeranaias/flashquery-tui/internal/session"
	"github.com/jeranaias/flashquery-tui/internal/sidebar"
	"github.com/jeranaias/flashquery-tui/internal/storage"
	"github.com/jeranaias/flashquery-tui/internal/ui/styles"
)

// =============================================================================
// FAKES AND HELPERS
// =============================================================================

type fakeBackend struct {
	mu       sync.Mutex
	contexts []string
	uploads  []string
	pingErr  error
}

func (f *fakeBackend) Ask(ctx context.Context, question, docContext string) (*backend.AskResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contexts = append(f.contexts, docContext)
	return &backend.AskResponse{Answer: "answer to " + question}, nil
}

func (f *fakeBackend) SummarizeVideo(ctx context.Context, url string) (*backend.YouTubeResponse, error) {
	return &backend.YouTubeResponse{Summary: "video summary"}, nil
}

func (f *fakeBackend) Ping(ctx context.Context) (*backend.ServiceInfo, error) {
	if f.pingErr != nil {
		return nil, f.pingErr
	}
	return &backend.ServiceInfo{Message: "Welcome to FlashQuery!"}, nil
}

func (f *fakeBackend) Upload(ctx context.Context, filename string, content io.Reader) (*backend.UploadResponse, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, filename)
	f.mu.Unlock()
	return &backend.UploadResponse{Message: "ok", ExtractedText: "extracted pdf text"}, nil
}

func newTestModel(t *testing.T) (Model, *fakeBackend) {
	t.Helper()
	fake := &fakeBackend{}
	store, err := storage.Open(kvstore.NewMemoryStore())
	require.NoError(t, err)
	sess := session.New(store, dispatch.New(fake, store, dispatch.WithMinDelay(0)))

	m := New(Options{Session: sess, Service: fake, Theme: styles.NewTheme(), BackendURL: "http://test"})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), fake
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// collect runs a command and returns every non-nil message it produced,
// expanding batches.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func replies(cmd tea.Cmd) []ReplyMsg {
	var out []ReplyMsg
	for _, msg := range collect(cmd) {
		if r, ok := msg.(ReplyMsg); ok {
			out = append(out, r)
		}
	}
	return out
}

// submit types text and presses Enter, returning the pending replies.
func submit(t *testing.T, m Model, text string) (Model, []ReplyMsg) {
	t.Helper()
	m.input.SetValue(text)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	return m, replies(cmd)
}

// send submits text and delivers its reply.
func send(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, rs := submit(t, m, text)
	require.Len(t, rs, 1)
	m, _ = update(t, m, rs[0])
	return m
}

// =============================================================================
// SENDING
// =============================================================================

func TestSubmit_FirstMessageCreatesConversation(t *testing.T) {
	m, _ := newTestModel(t)

	m, rs := submit(t, m, "What is 2+2?")
	require.Len(t, rs, 1)
	assert.Equal(t, 1, m.InFlight())
	assert.True(t, m.Transcript().IsPending())
	assert.Equal(t, []string{"What is 2+2?"}, blockTexts(m))
	assert.Empty(t, m.input.Value(), "input cleared")

	m, _ = update(t, m, rs[0])
	assert.Equal(t, 0, m.InFlight())
	assert.False(t, m.Transcript().IsPending())
	assert.Equal(t, []string{"What is 2+2?", "answer to What is 2+2?"}, blockTexts(m))

	entries := m.Sidebar().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "What is 2+2?", entries[0].Title)
	assert.Equal(t, entries[0].ID, m.Session().ActiveID())
}

func TestSubmit_WhitespaceIsIgnored(t *testing.T) {
	m, _ := newTestModel(t)

	m.input.SetValue("   \t ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, replies(cmd))
	assert.Equal(t, 0, m.InFlight())
	assert.Equal(t, 0, m.Transcript().Len())
	assert.Equal(t, 0, m.Session().Store().Len())
}

func TestSubmit_ContinuesActiveConversation(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, "first")
	m = send(t, m, "second")

	assert.Equal(t, 1, m.Session().Store().Len())
	assert.Equal(t, 4, m.Transcript().Len())
}

func TestSubmit_RepliesCommitInArrivalOrder(t *testing.T) {
	m, _ := newTestModel(t)

	m, first := submit(t, m, "q1")
	m, second := submit(t, m, "q2")
	assert.Equal(t, 2, m.InFlight())

	m, _ = update(t, m, second[0])
	assert.Equal(t, 1, m.InFlight())
	assert.True(t, m.Transcript().IsPending())
	assert.Equal(t, []string{"q2", "answer to q2", "q1"}, blockTexts(m))

	m, _ = update(t, m, first[0])
	assert.Equal(t, []string{"q2", "answer to q2", "q1", "answer to q1"}, blockTexts(m))

	conv := m.Session().Active()
	require.NotNil(t, conv)
	assert.Equal(t, "q2", conv.Title)
}

func TestSubmit_PendingContextForwarded(t *testing.T) {
	m, fake := newTestModel(t)
	m.Session().SetPendingContext("doc text", "doc.txt")

	_ = send(t, m, "summarize the doc")
	assert.Equal(t, []string{"doc text"}, fake.contexts)
}

func TestSubmit_PendingContextReadAtSubmit(t *testing.T) {
	m, fake := newTestModel(t)
	m.Session().SetPendingContext("old text", "doc.txt")

	m.input.SetValue("question")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	// The watched file changes before the request goroutine runs
	m, _ = update(t, m, ContextUpdateMsg{Update: contextwatch.Update{Path: "doc.txt", Text: "new text"}})
	rs := replies(cmd)
	require.Len(t, rs, 1)

	assert.Equal(t, []string{"old text"}, fake.contexts)
	assert.Equal(t, "new text", m.Session().PendingContext())
}

// =============================================================================
// SIDEBAR COORDINATION
// =============================================================================

func TestSelect_LoadsConversation(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, "first")
	firstID := m.Session().ActiveID()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, 0, m.Transcript().Len())
	m = send(t, m, "second")

	m, _ = update(t, m, sidebar.SelectMsg{ID: firstID})
	assert.Equal(t, firstID, m.Session().ActiveID())
	assert.Equal(t, []string{"first", "answer to first"}, blockTexts(m))
}

func TestSelect_UnknownShowsEmpty(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, "first")

	m, _ = update(t, m, sidebar.SelectMsg{ID: "missing"})
	assert.Equal(t, "", m.Session().ActiveID())
	assert.Equal(t, 0, m.Transcript().Len())
}

func TestDelete_NonActiveLeavesTranscript(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, "other")
	otherID := m.Session().ActiveID()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	m = send(t, m, "active")
	before := blockTexts(m)

	m, _ = update(t, m, sidebar.DeleteMsg{ID: otherID})
	assert.Equal(t, before, blockTexts(m))
	assert.Len(t, m.Sidebar().Entries(), 1)
	assert.NotEqual(t, "", m.Session().ActiveID())
}

func TestDelete_ActiveClearsTranscript(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, "doomed")
	id := m.Session().ActiveID()

	m, _ = update(t, m, sidebar.DeleteMsg{ID: id})
	assert.Equal(t, 0, m.Transcript().Len())
	assert.Empty(t, m.Sidebar().Entries())

	// A following send starts a fresh conversation
	m = send(t, m, "fresh")
	assert.Equal(t, "fresh", m.Session().Active().Title)
}

func TestCommand_DeleteByPosition(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, "older")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	m = send(t, m, "newer")
	activeID := m.Session().ActiveID()
	before := blockTexts(m)

	// Position 2 in the most-recent-first list is the older conversation
	m.input.SetValue("/delete 2")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, m.Sidebar().Entries(), 1)
	assert.Equal(t, "newer", m.Sidebar().Entries()[0].FullTitle)
	assert.Equal(t, activeID, m.Session().ActiveID())
	assert.Equal(t, before, blockTexts(m))

	m.input.SetValue("/delete 1")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.Sidebar().Entries())
	assert.Equal(t, "", m.Session().ActiveID())
	assert.Equal(t, 0, m.Transcript().Len())
}

func TestCommand_DeleteUnknownReference(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, "keep")

	m.input.SetValue("/delete 7")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	status, isErr := m.Status()
	assert.True(t, isErr)
	assert.Contains(t, status, "7")
	assert.Len(t, m.Sidebar().Entries(), 1)
}

func TestSidebarKeys_DeleteEmitsOnlyDelete(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, "one")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, m.Sidebar().Focused())

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	_, isDelete := msgs[0].(sidebar.DeleteMsg)
	assert.True(t, isDelete)
}

func TestTab_TogglesFocus(t *testing.T) {
	m, _ := newTestModel(t)
	assert.False(t, m.Sidebar().Focused())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.True(t, m.Sidebar().Focused())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.Sidebar().Focused())
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestCommand_YouTube(t *testing.T) {
	m, _ := newTestModel(t)

	m, rs := submit(t, m, "/youtube https://youtu.be/abc")
	require.Len(t, rs, 1)
	assert.Equal(t, ModeVideo, m.Mode())

	m, _ = update(t, m, rs[0])
	assert.Equal(t, []string{dispatch.VideoPrompt + "https://youtu.be/abc", "video summary"}, blockTexts(m))
}

func TestCommand_YouTubeWithoutURL(t *testing.T) {
	m, _ := newTestModel(t)

	m, rs := submit(t, m, "/youtube")
	assert.Empty(t, rs)
	status, isErr := m.Status()
	assert.True(t, isErr)
	assert.Contains(t, status, "Usage")
}

func TestCommand_UploadTextFile(t *testing.T) {
	m, fake := newTestModel(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("  plain notes \n"), 0o600))

	m.input.SetValue("/upload " + path)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := collect(cmd)
	require.Len(t, msgs, 1)

	m, _ = update(t, m, msgs[0])
	assert.Equal(t, "plain notes", m.Session().PendingContext())
	assert.Equal(t, "notes.txt", m.Session().PendingSource())
	assert.Empty(t, fake.uploads, "text files are read locally")
}

func TestCommand_UploadPDFUsesBackend(t *testing.T) {
	m, fake := newTestModel(t)
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	m.input.SetValue("/upload " + path)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := collect(cmd)
	require.Len(t, msgs, 1)

	m, _ = update(t, m, msgs[0])
	assert.Equal(t, "extracted pdf text", m.Session().PendingContext())
	assert.Equal(t, []string{"paper.pdf"}, fake.uploads)
}

func TestCommand_UploadMissingFile(t *testing.T) {
	m, _ := newTestModel(t)

	m.input.SetValue("/upload " + filepath.Join(t.TempDir(), "nope.txt"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := collect(cmd)
	require.Len(t, msgs, 1)

	m, _ = update(t, m, msgs[0])
	assert.Equal(t, "", m.Session().PendingContext())
	_, isErr := m.Status()
	assert.True(t, isErr)
}

func TestCommand_ContextClear(t *testing.T) {
	m, _ := newTestModel(t)
	m.Session().SetPendingContext("text", "src")

	m, _ = submit(t, m, "/context clear")
	assert.Equal(t, "", m.Session().PendingContext())
}

func TestCommand_Modes(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = submit(t, m, "/math")
	assert.Equal(t, "Solve in a blink.", m.Mode().Subtitle())

	m, _ = submit(t, m, "/research")
	assert.Equal(t, "Connect dots in a blink.", m.Mode().Subtitle())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, ModeAsk, m.Mode())
}

func TestCommand_SearchFiltersSidebar(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, "golang channels")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	m = send(t, m, "python decorators")

	m, _ = submit(t, m, "/search golang")
	entries := m.Sidebar().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "golang channels", entries[0].Title)

	m, _ = submit(t, m, "/search")
	assert.Len(t, m.Sidebar().Entries(), 2)
}

func TestCommand_Unknown(t *testing.T) {
	m, _ := newTestModel(t)

	m, rs := submit(t, m, "/frobnicate")
	assert.Empty(t, rs)
	status, isErr := m.Status()
	assert.True(t, isErr)
	assert.Contains(t, status, "frobnicate")
	assert.Equal(t, 0, m.Session().Store().Len())
}

// =============================================================================
// BACKGROUND MESSAGES
// =============================================================================

func TestContextUpdates(t *testing.T) {
	m, _ := newTestModel(t)
	ch := make(chan contextwatch.Update, 1)
	m.ctxUpdates = ch

	m, cmd := update(t, m, ContextUpdateMsg{Update: contextwatch.Update{Path: "/tmp/ctx.txt", Text: "watched"}})
	assert.Equal(t, "watched", m.Session().PendingContext())
	require.NotNil(t, cmd, "keeps listening")

	m, _ = update(t, m, ContextUpdateMsg{Update: contextwatch.Update{Path: "/tmp/ctx.txt", Removed: true}})
	assert.Equal(t, "", m.Session().PendingContext())

	close(ch)
	msgs := collect(waitForContext(ch))
	require.Len(t, msgs, 1)
	assert.IsType(t, contextClosedMsg{}, msgs[0])
}

func TestBackendStatus(t *testing.T) {
	m, fake := newTestModel(t)
	fake.pingErr = errors.New("connection refused")

	msgs := collect(m.checkBackend())
	require.Len(t, msgs, 1)
	m, _ = update(t, m, msgs[0])

	status, isErr := m.Status()
	assert.True(t, isErr)
	assert.Contains(t, status, "http://test")
	assert.Contains(t, m.View(), "offline")
}

func TestView_RendersChrome(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, "hello there")

	view := m.View()
	assert.Contains(t, view, "FlashQuery")
	assert.Contains(t, view, "Chats")
	assert.Contains(t, view, "hello there")
}

func TestNew_InputPromptUsesTheme(t *testing.T) {
	m, _ := newTestModel(t)

	assert.Equal(t, m.theme.InputPrompt, m.input.FocusedStyle.Prompt)
	assert.Contains(t, m.View(), "> ")
}

func blockTexts(m Model) []string {
	var out []string
	for _, b := range m.Transcript().Blocks() {
		out = append(out, strings.TrimSpace(b.Text))
	}
	return out
}
