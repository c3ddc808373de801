// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"io"
	"strings"

	"github.com/phuslu/log"

	"github.com/allma-studio/allma-go/internal/api"
	"github.com/allma-studio/allma-go/internal/demo"
	"github.com/allma-studio/allma-go/internal/model"
)

// Config configures a Client.
type Config struct {
	// BaseURL of the backend. Defaults per api.DefaultConfig.
	BaseURL string

	// Transport overrides the full transport configuration. When set,
	// BaseURL above is ignored.
	Transport *api.Config

	// DemoOptions are passed through to the demo responder.
	DemoOptions []demo.Option
}

// Client routes operations to the real backend or the demo responder.
// Safe for concurrent use.
type Client struct {
	transport *api.Transport
	responder *demo.Responder
	fo        *failover
	logger    *log.Logger
}

// New creates a client in live mode.
func New(config Config) *Client {
	tcfg := api.DefaultConfig()
	if config.Transport != nil {
		tcfg = config.Transport
	} else if config.BaseURL != "" {
		tcfg.BaseURL = config.BaseURL
	}

	return &Client{
		transport: api.NewTransport(tcfg),
		responder: demo.NewResponder(config.DemoOptions...),
		fo:        newFailover(),
		logger:    &log.DefaultLogger,
	}
}

// UsingSimulatedBackend reports whether the client has latched into demo
// mode.
func (c *Client) UsingSimulatedBackend() bool {
	return c.fo.Latched()
}

// ResetToLive clears the demo-mode latch. The next operation tries the real
// backend again; if it fails, the latch trips again.
func (c *Client) ResetToLive() {
	c.fo.Reset()
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.transport.BaseURL()
}

// SetBaseURL points the client at a different backend. The demo-mode latch
// is NOT cleared; call ResetToLive to try the new backend.
func (c *Client) SetBaseURL(baseURL string) {
	c.transport.SetBaseURL(baseURL)
}

// =============================================================================
// CHAT
// =============================================================================

// ChatOptions are the per-call options for chat operations.
type ChatOptions struct {
	ConversationID string
	UseRAG         bool
	Model          string
	Temperature    *float64
}

func (o ChatOptions) request(text string, stream bool) api.ChatRequest {
	return api.ChatRequest{
		Message:        text,
		ConversationID: o.ConversationID,
		UseRAG:         o.UseRAG,
		Model:          o.Model,
		Stream:         stream,
		Temperature:    o.Temperature,
	}
}

// SendChatMessage sends one chat exchange and always resolves with an
// assistant Message: if the backend fails the latch trips and a demo reply
// is returned instead. The only errors a caller sees are input validation
// and context cancellation.
//
// A pre-flight probe avoids paying the full request timeout when the
// backend is plainly down.
func (c *Client) SendChatMessage(ctx context.Context, text string, opts ChatOptions) (*model.Message, error) {
	if err := api.ValidateMessage(text); err != nil {
		return nil, err
	}
	req := opts.request(text, false)

	resp, err := resolve(ctx, c.fo, "chat",
		func(ctx context.Context) (*api.ChatResponse, error) {
			if !c.transport.Probe(ctx, "/health/") {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return nil, api.ErrBackendUnreachable
			}
			return c.transport.Chat(ctx, req)
		},
		func(ctx context.Context) (*api.ChatResponse, error) {
			return c.responder.Chat(ctx, req)
		})
	if err != nil {
		return nil, err
	}

	return messageFromResponse(resp, opts.UseRAG), nil
}

// messageFromResponse builds the assistant Message. Sources are attached
// only when RAG was requested and the response actually carried hits.
func messageFromResponse(resp *api.ChatResponse, useRAG bool) *model.Message {
	msg := model.NewAssistantMessage(resp.Content)
	if useRAG && len(resp.Sources) > 0 {
		msg = msg.WithSources(sourcesFromHits(resp.Sources))
	}
	if resp.Usage != nil {
		msg.Usage = &model.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		}
	}
	return msg
}

func sourcesFromHits(hits []api.SourceHit) []model.Source {
	out := make([]model.Source, len(hits))
	for i, h := range hits {
		out[i] = model.Source{Document: h.Document, Relevance: h.Relevance, Snippet: h.Snippet}
	}
	return out
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// UploadDocument ingests one file. On backend failure the latch trips and a
// demo acknowledgement is returned.
func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader) (*api.IngestResponse, error) {
	return resolve(ctx, c.fo, "upload",
		func(ctx context.Context) (*api.IngestResponse, error) {
			return c.transport.UploadDocument(ctx, filename, content)
		},
		func(ctx context.Context) (*api.IngestResponse, error) {
			return c.responder.UploadDocument(ctx, filename)
		})
}

// IngestText ingests raw text as a named document.
func (c *Client) IngestText(ctx context.Context, name, content string) (*api.IngestResponse, error) {
	return resolve(ctx, c.fo, "ingest",
		func(ctx context.Context) (*api.IngestResponse, error) {
			return c.transport.IngestText(ctx, api.IngestRequest{Name: name, Content: content})
		},
		func(ctx context.Context) (*api.IngestResponse, error) {
			return c.responder.UploadDocument(ctx, name)
		})
}

// SearchDocuments runs a RAG search. An empty or whitespace-only query
// resolves with no hits and no network call; anything shorter than two
// characters after trimming is rejected. topK is clamped to the backend's
// accepted range.
func (c *Client) SearchDocuments(ctx context.Context, query string, topK int) ([]api.SourceHit, error) {
	if strings.TrimSpace(query) == "" {
		return []api.SourceHit{}, nil
	}
	if err := api.ValidateSearchQuery(query); err != nil {
		return nil, err
	}
	req := api.SearchRequest{Query: query, TopK: api.ClampTopK(topK)}

	resp, err := resolve(ctx, c.fo, "search",
		func(ctx context.Context) (*api.SearchResponse, error) {
			return c.transport.Search(ctx, req)
		},
		func(ctx context.Context) (*api.SearchResponse, error) {
			return c.responder.Search(ctx, req)
		})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// ListDocuments returns the indexed documents.
func (c *Client) ListDocuments(ctx context.Context) ([]api.DocumentInfo, error) {
	resp, err := resolve(ctx, c.fo, "documents",
		func(ctx context.Context) (*api.ListDocumentsResponse, error) {
			return c.transport.ListDocuments(ctx)
		},
		func(ctx context.Context) (*api.ListDocumentsResponse, error) {
			return c.responder.ListDocuments(ctx)
		})
	if err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// DeleteDocument removes a document from the index. In demo mode the
// request is acknowledged without effect.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	_, err := resolve(ctx, c.fo, "delete_document",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.transport.DeleteDocument(ctx, id)
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, ctx.Err()
		})
	return err
}

// =============================================================================
// MODELS
// =============================================================================

// ListModels returns the available models and the backend's current one.
func (c *Client) ListModels(ctx context.Context) (*api.ModelsResponse, error) {
	return resolve(ctx, c.fo, "models",
		func(ctx context.Context) (*api.ModelsResponse, error) {
			return c.transport.ListModels(ctx)
		},
		func(ctx context.Context) (*api.ModelsResponse, error) {
			return c.responder.ListModels(ctx)
		})
}

// SwitchModel asks the backend to change the active model. In demo mode the
// request is acknowledged but has no effect on subsequent demo replies.
func (c *Client) SwitchModel(ctx context.Context, name string) error {
	_, err := resolve(ctx, c.fo, "switch_model",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.transport.SwitchModel(ctx, name)
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.responder.SwitchModel(ctx, name)
		})
	return err
}

// PullModel asks the backend to download a model. Demo mode acknowledges
// without downloading anything.
func (c *Client) PullModel(ctx context.Context, name string) error {
	_, err := resolve(ctx, c.fo, "pull_model",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.transport.PullModel(ctx, name)
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, ctx.Err()
		})
	return err
}

// =============================================================================
// CONVERSATIONS / HEALTH
// =============================================================================

// ListConversations returns persisted conversations. Demo mode has none.
func (c *Client) ListConversations(ctx context.Context) ([]api.ConversationEntry, error) {
	resp, err := resolve(ctx, c.fo, "conversations",
		func(ctx context.Context) (*api.ListConversationsResponse, error) {
			return c.transport.ListConversations(ctx)
		},
		func(ctx context.Context) (*api.ListConversationsResponse, error) {
			return &api.ListConversationsResponse{Conversations: []api.ConversationEntry{}}, ctx.Err()
		})
	if err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// DeleteConversation removes a persisted conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	_, err := resolve(ctx, c.fo, "delete_conversation",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.transport.DeleteConversation(ctx, id)
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, ctx.Err()
		})
	return err
}

// HealthCheck queries backend health. A failure latches demo mode and the
// demo engine reports itself healthy, so the caller still gets an answer.
func (c *Client) HealthCheck(ctx context.Context) (*api.HealthResponse, error) {
	return resolve(ctx, c.fo, "health",
		func(ctx context.Context) (*api.HealthResponse, error) {
			return c.transport.Health(ctx)
		},
		func(ctx context.Context) (*api.HealthResponse, error) {
			return c.responder.Health(ctx)
		})
}

// Transport exposes the underlying transport, mainly so an availability
// monitor can probe the same backend the client talks to.
func (c *Client) Transport() *api.Transport {
	return c.transport
}
