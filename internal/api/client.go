// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/time/rate"
)

// =============================================================================
// TRANSPORT CONFIGURATION
// =============================================================================

// Config holds configuration options for the transport.
type Config struct {
	// BaseURL is the backend base URL (default: http://127.0.0.1:8000).
	// Uses an explicit IPv4 address instead of localhost to avoid IPv6
	// resolution issues on Windows.
	BaseURL string

	// Timeout for non-streaming requests (default: 30s).
	Timeout time.Duration

	// ProbeTimeout is the hard timeout for availability probes (default: 3s).
	ProbeTimeout time.Duration

	// RequestsPerMinute caps the client-side request rate. The backend
	// rate-limits at 60 rpm; the client stays under it (default: 60).
	RequestsPerMinute int

	// Burst is the short-term burst allowance for the throttle (default: 10).
	Burst int

	// MaxBodyBytes caps response body reads (default: 10MB).
	MaxBodyBytes int64
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "http://127.0.0.1:8000",
		Timeout:           30 * time.Second,
		ProbeTimeout:      3 * time.Second,
		RequestsPerMinute: 60,
		Burst:             10,
		MaxBodyBytes:      10 * 1024 * 1024,
	}
}

// =============================================================================
// TRANSPORT
// =============================================================================

// Transport handles communication with the Allma backend API. It is safe
// for concurrent use. The base URL is mutable at runtime via SetBaseURL.
type Transport struct {
	mu      sync.RWMutex
	baseURL string

	httpClient *http.Client
	// streamClient has no timeout; streaming lifetime is context-controlled.
	streamClient *http.Client

	limiter      *rate.Limiter
	maxBody      int64
	probeTimeout time.Duration
	logger       *log.Logger
}

// NewTransport creates a transport with the given configuration. A nil
// config uses defaults; zero fields are filled in.
func NewTransport(config *Config) *Transport {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 3 * time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 60
	}
	if config.Burst == 0 {
		config.Burst = 10
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = 10 * 1024 * 1024
	}

	return &Transport{
		baseURL:      strings.TrimSuffix(config.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
		limiter:      rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.Burst),
		maxBody:      config.MaxBodyBytes,
		probeTimeout: config.ProbeTimeout,
		logger:       &log.DefaultLogger,
	}
}

// BaseURL returns the current base URL.
func (t *Transport) BaseURL() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.baseURL
}

// SetBaseURL changes the backend base URL for subsequent requests.
func (t *Transport) SetBaseURL(baseURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseURL = strings.TrimSuffix(baseURL, "/")
}

// url joins the current base URL with a path.
func (t *Transport) url(path string) string {
	return t.BaseURL() + path
}

// =============================================================================
// CORE EXCHANGE
// =============================================================================

// doJSON performs a JSON request/response exchange. A nil in sends no body;
// a nil out discards the response body after the status check.
func (t *Transport) doJSON(ctx context.Context, method, path string, in, out any) error {
	// The throttle delays, it never drops.
	if err := t.limiter.Wait(ctx); err != nil {
		return networkError("request throttled past deadline", err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return networkError("failed to marshal request", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.url(path), body)
	if err != nil {
		return networkError("failed to create request", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	t.setHeaders(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return t.wrapNetErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return t.decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, t.maxBody))
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, t.maxBody)).Decode(out); err != nil {
		return networkError("failed to decode response", err)
	}
	return nil
}

// setHeaders attaches the headers common to all requests. The request ID is
// echoed back by the backend for log correlation.
func (t *Transport) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "allma-go/1.0")
	req.Header.Set("X-Request-ID", uuid.NewString())
}

// wrapNetErr maps a transport-level failure to a typed error.
func (t *Transport) wrapNetErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Message: "request timed out", StatusCode: 0, ErrorCode: CodeNetworkError, Cause: errors.Join(ErrTimeout, err)}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	t.logger.Debug().Err(err).Str("base_url", t.BaseURL()).Msg("backend unreachable")
	return networkError("backend unreachable", err)
}

// decodeError builds an Error from a non-2xx response, preferring the
// backend's error envelope when one is present.
func (t *Transport) decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, t.maxBody))

	apiErr := &Error{StatusCode: resp.StatusCode}

	var envelope errorBody
	if err := json.Unmarshal(raw, &envelope); err == nil {
		switch {
		case envelope.Message != "":
			apiErr.Message = envelope.Message
			apiErr.ErrorCode = envelope.Code
		case envelope.Detail != "":
			apiErr.Message = envelope.Detail
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = "HTTP " + resp.Status
	}
	return apiErr
}

// =============================================================================
// AVAILABILITY PROBE
// =============================================================================

// Probe reports whether the given path answers with a 2xx within the probe
// timeout. It never returns an error: any failure, including timeout, is
// false. Probes bypass the request throttle so a saturated limiter cannot
// delay an availability answer.
func (t *Transport) Probe(ctx context.Context, path string) bool {
	ctx, cancel := context.WithTimeout(ctx, t.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url(path), nil)
	if err != nil {
		return false
	}
	t.setHeaders(req)

	resp, err := t.streamClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, t.maxBody))

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// Chat sends a non-streaming chat request.
func (t *Transport) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.Stream = false

	var resp ChatResponse
	if err := t.doJSON(ctx, http.MethodPost, "/chat/", req, &resp); err != nil {
		return nil, err
	}
	resp.Normalize()
	return &resp, nil
}

// ChatStream opens a streaming chat exchange and returns the raw body on
// success. The caller owns the body and decodes it incrementally with a
// TokenStreamReader. A failure before the first byte is returned as a
// typed error; nothing is masked here.
func (t *Transport) ChatStream(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, networkError("request throttled past deadline", err)
	}

	req.Stream = true
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, networkError("failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url("/chat/stream"), bytes.NewReader(payload))
	if err != nil {
		return nil, networkError("failed to create request", err)
	}
	t.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := t.streamClient.Do(httpReq)
	if err != nil {
		return nil, t.wrapNetErr(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, t.decodeError(resp)
	}

	return resp.Body, nil
}

// ListConversations fetches stored conversation metadata.
func (t *Transport) ListConversations(ctx context.Context) (*ListConversationsResponse, error) {
	var resp ListConversationsResponse
	if err := t.doJSON(ctx, http.MethodGet, "/chat/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteConversation removes a stored conversation on the backend.
func (t *Transport) DeleteConversation(ctx context.Context, id string) error {
	return t.doJSON(ctx, http.MethodDelete, "/chat/conversations/"+id, nil, nil)
}

// =============================================================================
// RAG OPERATIONS
// =============================================================================

// IngestText submits raw text for chunking and indexing.
func (t *Transport) IngestText(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	var resp IngestResponse
	if err := t.doJSON(ctx, http.MethodPost, "/rag/ingest", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadDocument uploads a file via multipart form for ingestion.
func (t *Transport) UploadDocument(ctx context.Context, name string, content io.Reader) (*IngestResponse, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, networkError("request throttled past deadline", err)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return nil, networkError("failed to build upload form", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, networkError("failed to read upload content", err)
	}
	if err := form.Close(); err != nil {
		return nil, networkError("failed to finalize upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url("/rag/ingest/upload"), &buf)
	if err != nil {
		return nil, networkError("failed to create request", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	t.setHeaders(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, t.wrapNetErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, t.decodeError(resp)
	}

	var out IngestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, t.maxBody)).Decode(&out); err != nil {
		return nil, networkError("failed to decode response", err)
	}
	return &out, nil
}

// Search runs a similarity search over the indexed documents.
func (t *Transport) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := t.doJSON(ctx, http.MethodPost, "/rag/search", req, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = []SourceHit{}
	}
	return &resp, nil
}

// ListDocuments fetches metadata for all persisted documents.
func (t *Transport) ListDocuments(ctx context.Context) (*ListDocumentsResponse, error) {
	var resp ListDocumentsResponse
	if err := t.doJSON(ctx, http.MethodGet, "/rag/documents", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteDocument removes a document and its chunks from the index.
func (t *Transport) DeleteDocument(ctx context.Context, id string) error {
	return t.doJSON(ctx, http.MethodDelete, "/rag/documents/"+id, nil, nil)
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves the available models and the current selection.
func (t *Transport) ListModels(ctx context.Context) (*ModelsResponse, error) {
	var resp ModelsResponse
	if err := t.doJSON(ctx, http.MethodGet, "/models/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SwitchModel asks the backend to route subsequent chats to another model.
func (t *Transport) SwitchModel(ctx context.Context, name string) error {
	return t.doJSON(ctx, http.MethodPost, "/models/switch", SwitchModelRequest{Model: name}, nil)
}

// PullModel asks the backend runtime to download a model.
func (t *Transport) PullModel(ctx context.Context, name string) error {
	return t.doJSON(ctx, http.MethodPost, "/models/pull", PullModelRequest{Model: name}, nil)
}

// =============================================================================
// HEALTH
// =============================================================================

// Health fetches the backend health payload.
func (t *Transport) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := t.doJSON(ctx, http.MethodGet, "/health/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
