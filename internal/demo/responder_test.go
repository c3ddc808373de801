// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package demo

import (
	"context"
	"testing"
	"time"

	"github.com/allma-studio/allma-go/internal/api"
)

func TestChat_CyclesAndWraps(t *testing.T) {
	r := NewResponder(WithoutLatency())
	ctx := context.Background()

	var contents []string
	for i := 0; i < len(cannedReplies)+2; i++ {
		resp, err := r.Chat(ctx, api.ChatRequest{Message: "hi"})
		if err != nil {
			t.Fatalf("Chat error: %v", err)
		}
		if resp.Content == "" {
			t.Fatal("empty content")
		}
		contents = append(contents, resp.Content)
	}

	// Index wraps: call N repeats call 0.
	if contents[len(cannedReplies)] != contents[0] {
		t.Error("reply list did not wrap around")
	}
	if contents[0] == contents[1] {
		t.Error("consecutive replies should differ")
	}
}

func TestChat_SourceAttachment(t *testing.T) {
	r := NewResponder(WithoutLatency())
	ctx := context.Background()

	withRAG, err := r.Chat(ctx, api.ChatRequest{Message: "hi", UseRAG: true})
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if len(withRAG.Sources) != 1 {
		t.Errorf("RAG chat should attach one synthetic source, got %d", len(withRAG.Sources))
	}

	withoutRAG, err := r.Chat(ctx, api.ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if len(withoutRAG.Sources) != 0 {
		t.Errorf("non-RAG chat should have no sources, got %d", len(withoutRAG.Sources))
	}
}

func TestListModels_Fixed(t *testing.T) {
	r := NewResponder(WithoutLatency())

	resp, err := r.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels error: %v", err)
	}
	if len(resp.Models) == 0 {
		t.Fatal("no models")
	}
	if resp.CurrentModel != cannedCurrentModel {
		t.Errorf("CurrentModel = %q", resp.CurrentModel)
	}
}

func TestSwitchModel_NoEffect(t *testing.T) {
	r := NewResponder(WithoutLatency())
	ctx := context.Background()

	if err := r.SwitchModel(ctx, "gemma2:9b"); err != nil {
		t.Fatalf("SwitchModel error: %v", err)
	}
	resp, err := r.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels error: %v", err)
	}
	if resp.CurrentModel != cannedCurrentModel {
		t.Errorf("switching in demo mode must not change the current model, got %q", resp.CurrentModel)
	}
}

func TestSearch_RespectsTopK(t *testing.T) {
	r := NewResponder(WithoutLatency())

	resp, err := r.Search(context.Background(), api.SearchRequest{Query: "retrieval", TopK: 2})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("Results length = %d, want 2", len(resp.Results))
	}
}

func TestDelay_ContextCancel(t *testing.T) {
	r := NewResponder() // latency enabled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := r.Chat(ctx, api.ChatRequest{Message: "hi"})
	if err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancelled call should return promptly")
	}
}

func TestUploadDocument(t *testing.T) {
	r := NewResponder(WithoutLatency())

	resp, err := r.UploadDocument(context.Background(), "report.pdf")
	if err != nil {
		t.Fatalf("UploadDocument error: %v", err)
	}
	if resp.Name != "report.pdf" || resp.DocumentID == "" || resp.ChunksCreated < 1 {
		t.Errorf("resp = %+v", resp)
	}
}
