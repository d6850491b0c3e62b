// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_SendsQuestionAndContext(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ask", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"answer": "4"}`))
	})

	resp, err := client.Ask(context.Background(), "What is 2+2?", "math notes")
	require.NoError(t, err)
	assert.Equal(t, "4", resp.Answer)
	assert.Equal(t, map[string]any{"question": "What is 2+2?", "context": "math notes"}, got)
}

func TestAsk_EmptyContextIsNull(t *testing.T) {
	var raw string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		_, _ = w.Write([]byte(`{"answer": "ok"}`))
	})

	_, err := client.Ask(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"question": "hi", "context": null}`, raw)
}

func TestAsk_MissingAnswer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	resp, err := client.Ask(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Empty(t, resp.Answer)
}

func TestAsk_NonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusBadGateway} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"answer": "should be ignored"}`))
		})

		_, err := client.Ask(context.Background(), "hi", "")
		assert.ErrorIs(t, err, ErrStatus, "status %d", status)
	}
}

func TestAsk_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := client.Ask(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestAsk_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: url, Timeout: time.Second})
	_, err := client.Ask(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrUnreachable)

	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	assert.NotNil(t, ce.Cause)
}

func TestAsk_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Ask(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAsk_SingleRequestNoRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Ask(context.Background(), "hi", "")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

// =============================================================================
// YOUTUBE / UPLOAD / PING
// =============================================================================

func TestSummarizeVideo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube", r.URL.Path)
		var req YouTubeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://youtu.be/abc", req.URL)
		_, _ = w.Write([]byte(`{"summary": "a short video"}`))
	})

	resp, err := client.SummarizeVideo(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, "a short video", resp.Summary)
}

func TestUpload_Multipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "notes.pdf", header.Filename)
		assert.Equal(t, "%PDF-fake", string(data))
		_, _ = w.Write([]byte(`{"message": "ok", "extracted_text": "hello world"}`))
	})

	resp, err := client.Upload(context.Background(), "notes.pdf", strings.NewReader("%PDF-fake"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.ExtractedText)
	assert.Empty(t, resp.Error)
}

func TestUpload_ServiceReportsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "PDF seems empty or unreadable.", "extracted_text": ""}`))
	})

	resp, err := client.Upload(context.Background(), "empty.pdf", strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "PDF seems empty or unreadable.", resp.Error)
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"message": "Welcome to FlashQuery!"}`))
	})

	info, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.Contains(t, info.Message, "FlashQuery")
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func TestNewClientWithConfig_Defaults(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{BaseURL: "http://example.test/"})
	assert.Equal(t, "http://example.test", c.BaseURL())
	assert.Equal(t, 120*time.Second, c.httpClient.Timeout)
	assert.Nil(t, c.limiter)

	c = NewClientWithConfig(nil)
	assert.Equal(t, "http://127.0.0.1:8000", c.BaseURL())
}

func TestRateLimiter_CancelledWait(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"answer": "ok"}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL, RequestsPerMinute: 1})

	_, err := client.Ask(context.Background(), "first", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Ask(ctx, "second", "")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int32(1), calls.Load(), "throttled request never reaches the server")
}

func TestClientError_Is(t *testing.T) {
	err := &ClientError{Type: ErrTypeStatus, Message: "request to /ask failed: 500"}
	assert.True(t, errors.Is(err, ErrStatus))
	assert.False(t, errors.Is(err, ErrTimeout))
}
