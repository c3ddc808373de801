// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamingStub(t *testing.T, tokens []string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, token := range tokens {
			w.Write([]byte("data: " + token + "\n"))
			flusher.Flush()
		}
		w.Write([]byte("data: [DONE]\n"))
	}))
	t.Cleanup(server.Close)
	return server
}

// Tokens concatenate, in delivery order, to exactly the completed string.
func TestStreamChatMessage_TokenOrder(t *testing.T) {
	server := streamingStub(t, []string{"Hel", "lo", ",", " world"})
	c := demoClient(server.URL)

	var received []string
	var completed string
	err := c.StreamChatMessage(context.Background(), "hi", ChatOptions{}, StreamHandlers{
		OnToken:    func(tok string) { received = append(received, tok) },
		OnComplete: func(full string) { completed = full },
		OnError:    func(err error) { t.Errorf("unexpected OnError: %v", err) },
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello, world", completed)
	assert.Equal(t, completed, strings.Join(received, ""))
}

func TestStreamChatMessage_RefusedInDemoMode(t *testing.T) {
	c := demoClient(unreachableURL)
	ctx := context.Background()

	// Trip the latch first.
	_, err := c.SendChatMessage(ctx, "hi", ChatOptions{})
	require.NoError(t, err)
	require.True(t, c.UsingSimulatedBackend())

	var gotErr error
	err = c.StreamChatMessage(ctx, "hi", ChatOptions{}, StreamHandlers{
		OnToken:    func(string) { t.Error("no tokens expected") },
		OnComplete: func(string) { t.Error("no completion expected") },
		OnError:    func(e error) { gotErr = e },
	})
	assert.ErrorIs(t, err, ErrDemoMode)
	assert.ErrorIs(t, gotErr, ErrDemoMode)
}

// A connection failure before the first byte surfaces via OnError and
// latches demo mode for subsequent single-shot calls.
func TestStreamChatMessage_ConnectFailureLatches(t *testing.T) {
	c := demoClient(unreachableURL)

	var gotErr error
	err := c.StreamChatMessage(context.Background(), "hi", ChatOptions{}, StreamHandlers{
		OnComplete: func(string) { t.Error("no completion expected") },
		OnError:    func(e error) { gotErr = e },
	})
	require.Error(t, err)
	assert.Error(t, gotErr)
	assert.True(t, c.UsingSimulatedBackend())
}

// Aborting a stream fires neither OnComplete nor OnError.
func TestStreamChatMessage_CancelFiresNoCallbacks(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: first\n"))
		w.(http.Flusher).Flush()
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	c := demoClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())

	err := c.StreamChatMessage(ctx, "hi", ChatOptions{}, StreamHandlers{
		OnToken:    func(string) { cancel() },
		OnComplete: func(string) { t.Error("OnComplete must not fire after abort") },
		OnError:    func(error) { t.Error("OnError must not fire after abort") },
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStreamChatMessage_ValidationError(t *testing.T) {
	server := streamingStub(t, []string{"x"})
	c := demoClient(server.URL)

	var gotErr error
	err := c.StreamChatMessage(context.Background(), "", ChatOptions{}, StreamHandlers{
		OnError: func(e error) { gotErr = e },
	})
	require.Error(t, err)
	assert.Equal(t, err, gotErr)
	assert.False(t, c.UsingSimulatedBackend(), "validation failures must not latch")
}
