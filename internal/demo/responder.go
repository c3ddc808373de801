// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package demo

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/allma-studio/allma-go/internal/api"
)

// =============================================================================
// CANNED DATA
// =============================================================================

// cannedReplies is cycled through in order, one per chat call.
var cannedReplies = []string{
	"I'm running in demo mode right now because the Allma backend isn't reachable. " +
		"I can still show you how the interface works, but my answers are pre-written samples.",
	"That's a good question. In demo mode I can't run the actual model, but once your " +
		"local backend is up I'll answer using the model you've selected, with RAG context " +
		"from your indexed documents.",
	"Here's an example of what a longer assistant reply looks like. Streaming, source " +
		"citations, and token usage all render exactly the same way they do against a " +
		"live backend, so you can evaluate the experience before installing Ollama.",
	"Demo mode keeps everything local: no network calls leave this machine. Use the " +
		"health command to check whether the backend has come back, then reset to live " +
		"mode to reconnect.",
}

var cannedModels = []api.ModelEntry{
	{Name: "llama3.2:3b", SizeBytes: 2019393189, LastModified: time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC)},
	{Name: "gemma2:9b", SizeBytes: 5443152417, LastModified: time.Date(2025, 2, 2, 11, 12, 0, 0, time.UTC)},
	{Name: "qwen2.5:7b", SizeBytes: 4683087332, LastModified: time.Date(2025, 3, 18, 16, 45, 0, 0, time.UTC)},
}

// cannedCurrentModel never changes: switching models has no effect in demo mode.
const cannedCurrentModel = "llama3.2:3b"

var cannedDocuments = []api.DocumentInfo{
	{ID: "demo-doc-1", Name: "getting-started.md", SizeBytes: 18324, ChunkCount: 14, IngestedAt: time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC)},
	{ID: "demo-doc-2", Name: "architecture-notes.pdf", SizeBytes: 482113, ChunkCount: 52, IngestedAt: time.Date(2025, 2, 11, 14, 30, 0, 0, time.UTC)},
	{ID: "demo-doc-3", Name: "meeting-2025-03-05.txt", SizeBytes: 4211, ChunkCount: 6, IngestedAt: time.Date(2025, 3, 5, 18, 5, 0, 0, time.UTC)},
}

var cannedSearchHits = []api.SourceHit{
	{Document: "getting-started.md", Relevance: 0.92, Snippet: "Allma indexes your documents locally and retrieves the most relevant passages at question time."},
	{Document: "architecture-notes.pdf", Relevance: 0.81, Snippet: "The retrieval layer chunks each document and embeds chunks with the configured embedding model."},
	{Document: "meeting-2025-03-05.txt", Relevance: 0.64, Snippet: "Agreed to keep all inference on-device; no cloud calls in the default configuration."},
}

// Latency bands, chosen to feel like a local backend over loopback.
const (
	minListingDelay = 300 * time.Millisecond
	maxListingDelay = 500 * time.Millisecond
	minChatDelay    = 800 * time.Millisecond
	maxChatDelay    = 2000 * time.Millisecond
)

// =============================================================================
// RESPONDER
// =============================================================================

// Responder serves canned responses for every backend operation. Safe for
// concurrent use.
type Responder struct {
	mu        sync.Mutex
	replyIdx  int
	rng       *rand.Rand
	noLatency bool
	logger    *log.Logger
}

// Option configures a Responder.
type Option func(*Responder)

// WithoutLatency disables the artificial delays. Intended for tests.
func WithoutLatency() Option {
	return func(r *Responder) { r.noLatency = true }
}

// NewResponder creates a responder with its own latency jitter source.
func NewResponder(opts ...Option) *Responder {
	r := &Responder{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: &log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// delay sleeps a pseudo-random duration within [min, max], or returns early
// with the context's error if the caller gives up first.
func (r *Responder) delay(ctx context.Context, min, max time.Duration) error {
	if r.noLatency {
		return ctx.Err()
	}

	r.mu.Lock()
	d := min + time.Duration(r.rng.Int63n(int64(max-min)))
	r.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// nextReply returns the next canned reply, wrapping around the list.
func (r *Responder) nextReply() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	reply := cannedReplies[r.replyIdx%len(cannedReplies)]
	r.replyIdx++
	return reply
}

// =============================================================================
// CHAT
// =============================================================================

// Chat produces the next canned assistant reply. When RAG was requested a
// single synthetic source is attached so the citation UI renders.
func (r *Responder) Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	if err := r.delay(ctx, minChatDelay, maxChatDelay); err != nil {
		return nil, err
	}

	resp := &api.ChatResponse{
		ID:             "demo-" + r.randomSuffix(),
		ConversationID: req.ConversationID,
		Content:        r.nextReply(),
		Model:          cannedCurrentModel,
		Sources:        []api.SourceHit{},
	}
	if req.UseRAG {
		resp.Sources = []api.SourceHit{cannedSearchHits[0]}
	}

	r.logger.Debug().Bool("use_rag", req.UseRAG).Msg("served demo chat reply")
	return resp, nil
}

// =============================================================================
// MODELS
// =============================================================================

func (r *Responder) ListModels(ctx context.Context) (*api.ModelsResponse, error) {
	if err := r.delay(ctx, minListingDelay, maxListingDelay); err != nil {
		return nil, err
	}
	models := make([]api.ModelEntry, len(cannedModels))
	copy(models, cannedModels)
	return &api.ModelsResponse{Models: models, CurrentModel: cannedCurrentModel}, nil
}

// SwitchModel acknowledges the request without changing anything. The demo
// current model is fixed.
func (r *Responder) SwitchModel(ctx context.Context, name string) error {
	if err := r.delay(ctx, minListingDelay, maxListingDelay); err != nil {
		return err
	}
	r.logger.Debug().Str("model", name).Msg("model switch acknowledged in demo mode")
	return nil
}

// =============================================================================
// DOCUMENTS / SEARCH
// =============================================================================

func (r *Responder) ListDocuments(ctx context.Context) (*api.ListDocumentsResponse, error) {
	if err := r.delay(ctx, minListingDelay, maxListingDelay); err != nil {
		return nil, err
	}
	docs := make([]api.DocumentInfo, len(cannedDocuments))
	copy(docs, cannedDocuments)
	return &api.ListDocumentsResponse{Documents: docs}, nil
}

// UploadDocument pretends the file was ingested.
func (r *Responder) UploadDocument(ctx context.Context, name string) (*api.IngestResponse, error) {
	if err := r.delay(ctx, minListingDelay, maxListingDelay); err != nil {
		return nil, err
	}
	return &api.IngestResponse{
		DocumentID:    "demo-upload-" + r.randomSuffix(),
		Name:          name,
		ChunksCreated: 1 + len(name)%7,
	}, nil
}

func (r *Responder) Search(ctx context.Context, req api.SearchRequest) (*api.SearchResponse, error) {
	if err := r.delay(ctx, minListingDelay, maxListingDelay); err != nil {
		return nil, err
	}

	n := api.ClampTopK(req.TopK)
	if n > len(cannedSearchHits) {
		n = len(cannedSearchHits)
	}
	hits := make([]api.SourceHit, n)
	copy(hits, cannedSearchHits[:n])
	return &api.SearchResponse{Results: hits}, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports the demo engine itself, which is always available.
func (r *Responder) Health(ctx context.Context) (*api.HealthResponse, error) {
	if err := r.delay(ctx, minListingDelay, maxListingDelay); err != nil {
		return nil, err
	}
	return &api.HealthResponse{Status: "healthy", Version: "demo"}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func (r *Responder) randomSuffix() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = suffixAlphabet[r.rng.Intn(len(suffixAlphabet))]
	}
	return string(buf)
}
