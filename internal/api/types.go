// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatRequest is the request body for POST /chat/ and POST /chat/stream.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	UseRAG         bool   `json:"use_rag"`
	Model          string `json:"model,omitempty"`
	Stream         bool   `json:"stream"`

	// Temperature is optional; the backend clamps to [0, 2].
	Temperature *float64 `json:"temperature,omitempty"`
}

// SearchRequest is the request body for POST /rag/search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// IngestRequest is the request body for POST /rag/ingest (raw text).
type IngestRequest struct {
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// SwitchModelRequest is the request body for POST /models/switch.
type SwitchModelRequest struct {
	Model string `json:"model"`
}

// PullModelRequest is the request body for POST /models/pull.
type PullModelRequest struct {
	Model string `json:"model"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// SourceHit is a single retrieval result, attached to chat responses and
// returned by search.
type SourceHit struct {
	Document  string  `json:"document"`
	Relevance float64 `json:"relevance"`
	Snippet   string  `json:"snippet"`
}

// UsageInfo holds token accounting reported by the backend.
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChatResponse is the response from POST /chat/. Sources and Usage are
// optional on the wire; Normalize gives them explicit defaults so
// downstream code never branches on absence.
type ChatResponse struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Content        string      `json:"content"`
	Model          string      `json:"model"`
	Sources        []SourceHit `json:"sources"`
	Usage          *UsageInfo  `json:"usage"`
}

// Normalize fills defaults for optional fields.
func (r *ChatResponse) Normalize() {
	if r.Sources == nil {
		r.Sources = []SourceHit{}
	}
}

// HealthResponse is the response from GET /health/.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy", "degraded", or "unhealthy"
	Version string `json:"version,omitempty"`
	Uptime  int64  `json:"uptime_seconds,omitempty"`
}

// Healthy reports whether the backend considers itself fully operational.
func (r *HealthResponse) Healthy() bool {
	return r.Status == "healthy"
}

// Degraded reports whether the backend is up but impaired.
func (r *HealthResponse) Degraded() bool {
	return r.Status == "degraded"
}

// IngestResponse is the response from the ingest endpoints.
type IngestResponse struct {
	DocumentID    string `json:"document_id"`
	Name          string `json:"name"`
	ChunksCreated int    `json:"chunks_created"`
}

// DocumentInfo describes a persisted document, from GET /rag/documents.
type DocumentInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

// ListDocumentsResponse is the response from GET /rag/documents.
type ListDocumentsResponse struct {
	Documents []DocumentInfo `json:"documents"`
}

// SearchResponse is the response from POST /rag/search.
type SearchResponse struct {
	Results []SourceHit `json:"results"`
}

// ModelEntry describes an available model, from GET /models/.
type ModelEntry struct {
	Name         string    `json:"name"`
	SizeBytes    int64     `json:"size"`
	LastModified time.Time `json:"modified_at"`
}

// ModelsResponse is the response from GET /models/.
type ModelsResponse struct {
	Models       []ModelEntry `json:"models"`
	CurrentModel string       `json:"current_model"`
}

// ConversationEntry describes a stored conversation, from GET /chat/conversations.
type ConversationEntry struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ListConversationsResponse is the response from GET /chat/conversations.
type ListConversationsResponse struct {
	Conversations []ConversationEntry `json:"conversations"`
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"` // FastAPI-style fallback field
}
