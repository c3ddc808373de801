// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testTransport(baseURL string) *Transport {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	// Keep the throttle out of the way for unit tests.
	cfg.RequestsPerMinute = 60000
	cfg.Burst = 1000
	return NewTransport(cfg)
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/" {
			t.Errorf("path = %q, want /chat/", r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("X-Request-ID header missing")
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("non-streaming request should have stream=false")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "resp_1",
			"conversation_id": "conv_1",
			"content": "Hello there",
			"model": "llama3.2:3b",
			"sources": [{"document": "notes.md", "relevance": 0.9, "snippet": "..."}],
			"usage": {"prompt_tokens": 4, "completion_tokens": 12}
		}`))
	}))
	defer server.Close()

	tr := testTransport(server.URL)
	resp, err := tr.Chat(context.Background(), ChatRequest{Message: "hi", UseRAG: true})
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}

	if resp.Content != "Hello there" {
		t.Errorf("Content = %q", resp.Content)
	}
	if len(resp.Sources) != 1 {
		t.Errorf("Sources length = %d, want 1", len(resp.Sources))
	}
	if resp.Usage == nil || resp.Usage.CompletionTokens != 12 {
		t.Errorf("Usage = %+v", resp.Usage)
	}
}

func TestChat_NormalizesMissingSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "r", "content": "plain answer", "model": "m"}`))
	}))
	defer server.Close()

	tr := testTransport(server.URL)
	resp, err := tr.Chat(context.Background(), ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}

	if resp.Sources == nil {
		t.Error("Sources should default to an empty slice")
	}
	if len(resp.Sources) != 0 {
		t.Errorf("Sources length = %d, want 0", len(resp.Sources))
	}
	if resp.Usage != nil {
		t.Errorf("Usage should stay nil when absent, got %+v", resp.Usage)
	}
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestChat_BackendErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": true, "code": "ERR_2001", "message": "Model 'missing' not found in Ollama"}`))
	}))
	defer server.Close()

	tr := testTransport(server.URL)
	_, err := tr.Chat(context.Background(), ChatRequest{Message: "hi", Model: "missing"})
	if err == nil {
		t.Fatal("expected error")
	}

	if !IsModelNotFound(err) {
		t.Errorf("IsModelNotFound = false for %v", err)
	}
	if !IsClientError(err) {
		t.Errorf("IsClientError = false for %v", err)
	}
}

func TestChat_GenericHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	tr := testTransport(server.URL)
	_, err := tr.Chat(context.Background(), ChatRequest{Message: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}

	if !IsServerError(err) {
		t.Errorf("IsServerError = false for %v", err)
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error should carry the status, got %q", err.Error())
	}
}

func TestChat_NetworkError(t *testing.T) {
	// Closed port: connection refused.
	tr := testTransport("http://127.0.0.1:1")
	_, err := tr.Chat(context.Background(), ChatRequest{Message: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNetworkError(err) {
		t.Errorf("IsNetworkError = false for %v", err)
	}
}

func TestChat_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server detects the client disconnect;
		// otherwise r.Context() is never canceled and Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.Timeout = 20 * time.Millisecond
	cfg.RequestsPerMinute = 60000
	cfg.Burst = 1000
	tr := NewTransport(cfg)

	_, err := tr.Chat(context.Background(), ChatRequest{Message: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("errors.Is(ErrTimeout) = false for %v", err)
	}
	if !IsNetworkError(err) {
		t.Errorf("IsNetworkError = false for %v", err)
	}
}

// =============================================================================
// PROBE TESTS
// =============================================================================

func TestProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer server.Close()

	tr := testTransport(server.URL)
	if !tr.Probe(context.Background(), "/health/") {
		t.Error("Probe should succeed against a healthy server")
	}

	server.Close()
	if tr.Probe(context.Background(), "/health/") {
		t.Error("Probe should fail against a closed server")
	}
}

func TestProbe_Timeout(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.ProbeTimeout = 50 * time.Millisecond
	tr := NewTransport(cfg)

	begin := time.Now()
	if tr.Probe(context.Background(), "/health/") {
		t.Error("Probe should time out")
	}
	if time.Since(begin) > 2*time.Second {
		t.Error("Probe did not honor its hard timeout")
	}
	<-started
}

// =============================================================================
// DOCUMENT / SEARCH TESTS
// =============================================================================

func TestUploadDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rag/ingest/upload" {
			t.Errorf("path = %q", r.URL.Path)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()

		if header.Filename != "notes.txt" {
			t.Errorf("filename = %q", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "some document text" {
			t.Errorf("content = %q", content)
		}

		w.Write([]byte(`{"document_id": "doc_9", "name": "notes.txt", "chunks_created": 3}`))
	}))
	defer server.Close()

	tr := testTransport(server.URL)
	resp, err := tr.UploadDocument(context.Background(), "notes.txt", strings.NewReader("some document text"))
	if err != nil {
		t.Fatalf("UploadDocument error: %v", err)
	}
	if resp.DocumentID != "doc_9" || resp.ChunksCreated != 3 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearch_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tr := testTransport(server.URL)
	resp, err := tr.Search(context.Background(), SearchRequest{Query: "anything", TopK: 5})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if resp.Results == nil {
		t.Error("Results should default to an empty slice")
	}
}

func TestDeleteDocument(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	tr := testTransport(server.URL)
	if err := tr.DeleteDocument(context.Background(), "doc_4"); err != nil {
		t.Fatalf("DeleteDocument error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/rag/documents/doc_4" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

// =============================================================================
// MODEL / HEALTH TESTS
// =============================================================================

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"models": [
				{"name": "llama3.2:3b", "size": 2019393189, "modified_at": "2025-01-15T10:00:00Z"},
				{"name": "gemma2:9b", "size": 5443152417, "modified_at": "2025-02-20T10:00:00Z"}
			],
			"current_model": "llama3.2:3b"
		}`))
	}))
	defer server.Close()

	tr := testTransport(server.URL)
	resp, err := tr.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels error: %v", err)
	}
	if len(resp.Models) != 2 {
		t.Fatalf("Models length = %d, want 2", len(resp.Models))
	}
	if resp.CurrentModel != "llama3.2:3b" {
		t.Errorf("CurrentModel = %q", resp.CurrentModel)
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "degraded", "version": "2.0.0"}`))
	}))
	defer server.Close()

	tr := testTransport(server.URL)
	resp, err := tr.Health(context.Background())
	if err != nil {
		t.Fatalf("Health error: %v", err)
	}
	if resp.Healthy() {
		t.Error("degraded payload should not report healthy")
	}
	if !resp.Degraded() {
		t.Error("Degraded() should be true")
	}
}

// =============================================================================
// BASE URL TESTS
// =============================================================================

func TestSetBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "healthy"}`))
	}))
	defer server.Close()

	tr := testTransport("http://127.0.0.1:1")
	if _, err := tr.Health(context.Background()); err == nil {
		t.Fatal("expected failure against dead URL")
	}

	tr.SetBaseURL(server.URL + "/")
	if tr.BaseURL() != server.URL {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", tr.BaseURL())
	}
	if _, err := tr.Health(context.Background()); err != nil {
		t.Errorf("Health after SetBaseURL: %v", err)
	}
}
