// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch turns user input into exactly one backend request and
// one committed user/assistant turn pair.
//
// The network half (Exchange, Summarize) never touches storage and never
// fails: transport errors become fixed fallback replies. The storage half
// (Commit) must run on the caller's event loop so turn pairs are appended
// one at a time.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jeranaias/flashquery-tui/internal/backend"
	"github.com/jeranaias/flashquery-tui/internal/model"
)

// Fallback replies shown in place of an answer.
const (
	FallbackNoAnswer        = "Sorry, I couldn't understand that."
	FallbackError           = "Oops! Something went wrong."
	FallbackNoSummary       = "Sorry, couldn't summarize."
	FallbackSummarizeFailed = "Failed to summarize the video."
)

// VideoPrompt prefixes the user turn recorded for a video summary.
const VideoPrompt = "Summarize this YouTube video: "

// DefaultMinDelay is the shortest time before a reply is released.
const DefaultMinDelay = 400 * time.Millisecond

// ErrEmptyInput is returned by Send for empty or whitespace-only input.
var ErrEmptyInput = errors.New("empty input")

// =============================================================================
// INTERFACES
// =============================================================================

// Backend is the subset of the FlashQuery client the dispatcher uses.
type Backend interface {
	Ask(ctx context.Context, question, docContext string) (*backend.AskResponse, error)
	SummarizeVideo(ctx context.Context, url string) (*backend.YouTubeResponse, error)
}

// Store is the subset of the conversation store the dispatcher commits to.
type Store interface {
	StartOrContinue(activeID, userText string) (string, error)
	AppendTurnPair(id string, user, ai model.Turn) error
	Delete(id string) error
}

// =============================================================================
// REPLY
// =============================================================================

// Reply is the outcome of one exchange, ready to commit.
type Reply struct {
	// Seq orders replies by when their request was issued.
	Seq uint64

	UserText string
	Answer   string

	// Err is the transport failure that produced a fallback answer, if any.
	Err error

	// Fallback is true when Answer is one of the fixed fallback texts.
	Fallback bool

	Latency time.Duration
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher sends questions and commits the resulting turn pairs.
type Dispatcher struct {
	backend  Backend
	store    Store
	minDelay time.Duration
	seq      atomic.Uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMinDelay sets the minimum time before a reply is released. Zero
// disables the delay.
func WithMinDelay(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.minDelay = d
	}
}

// New creates a dispatcher.
func New(b Backend, s Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		backend:  b,
		store:    s,
		minDelay: DefaultMinDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Validate trims input. It reports false for empty input, which must not
// produce a request or a turn.
func (d *Dispatcher) Validate(userText string) (string, bool) {
	text := strings.TrimSpace(userText)
	return text, text != ""
}

// Exchange sends one question and returns the reply. It issues exactly one
// request and never retries.
func (d *Dispatcher) Exchange(ctx context.Context, userText, pendingContext string) Reply {
	r := Reply{Seq: d.seq.Add(1), UserText: userText}
	start := time.Now()

	resp, err := d.backend.Ask(ctx, userText, pendingContext)
	switch {
	case err != nil:
		r.Answer, r.Err, r.Fallback = FallbackError, err, true
		slog.Warn("ask failed", "seq", r.Seq, "error", err)
	case resp == nil || resp.Answer == "":
		r.Answer, r.Fallback = FallbackNoAnswer, true
		slog.Info("ask returned no answer", "seq", r.Seq)
	default:
		r.Answer = resp.Answer
	}

	d.hold(ctx, start)
	r.Latency = time.Since(start)
	slog.Info("ask complete", "seq", r.Seq, "latency_ms", r.Latency.Milliseconds(), "fallback", r.Fallback)
	return r
}

// Summarize asks for a video summary. The reply's user text records the
// request so it can be committed like any other exchange.
func (d *Dispatcher) Summarize(ctx context.Context, url string) Reply {
	r := Reply{Seq: d.seq.Add(1), UserText: VideoPrompt + url}
	start := time.Now()

	resp, err := d.backend.SummarizeVideo(ctx, url)
	switch {
	case err != nil:
		r.Answer, r.Err, r.Fallback = FallbackSummarizeFailed, err, true
		slog.Warn("summarize failed", "seq", r.Seq, "error", err)
	case resp == nil || resp.Summary == "":
		r.Answer, r.Fallback = FallbackNoSummary, true
	default:
		r.Answer = resp.Summary
	}

	d.hold(ctx, start)
	r.Latency = time.Since(start)
	slog.Info("summarize complete", "seq", r.Seq, "latency_ms", r.Latency.Milliseconds(), "fallback", r.Fallback)
	return r
}

// Commit appends the reply's turn pair, starting a conversation when
// activeID is empty, and returns the conversation id. If the pair cannot
// be stored, a conversation started by this call is removed again and
// activeID is returned unchanged.
func (d *Dispatcher) Commit(activeID string, r Reply) (string, error) {
	id, err := d.store.StartOrContinue(activeID, r.UserText)
	if err != nil {
		return activeID, err
	}
	if err := d.store.AppendTurnPair(id, model.UserTurn(r.UserText), model.AssistantTurn(r.Answer)); err != nil {
		if activeID == "" {
			if derr := d.store.Delete(id); derr != nil {
				slog.Error("rollback of empty conversation failed", "id", id, "error", derr)
			}
		}
		return activeID, err
	}
	return id, nil
}

// Send validates, exchanges and commits in one call, for callers without
// an event loop.
func (d *Dispatcher) Send(ctx context.Context, activeID, userText, pendingContext string) (Reply, string, error) {
	text, ok := d.Validate(userText)
	if !ok {
		return Reply{}, activeID, ErrEmptyInput
	}

	r := d.Exchange(ctx, text, pendingContext)
	id, err := d.Commit(activeID, r)
	return r, id, err
}

// hold waits until minDelay has passed since start or ctx is done.
func (d *Dispatcher) hold(ctx context.Context, start time.Time) {
	remaining := d.minDelay - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
