// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/allma-studio/allma-go/internal/client"
	"github.com/allma-studio/allma-go/internal/model"
)

// Historian records completed exchanges. Persistence is best-effort: a
// failing historian never fails a send.
type Historian interface {
	SaveExchange(conversationID string, user, assistant *model.Message) error
}

// ChatController owns the message list for one conversation.
type ChatController struct {
	client  *client.Client
	history Historian
	logger  *log.Logger

	mu             sync.Mutex
	conversationID string
	messages       []*model.Message
	streamBuf      strings.Builder
	streaming      bool
	cancelStream   context.CancelFunc
}

// NewChatController creates a controller for a fresh conversation. history
// may be nil.
func NewChatController(c *client.Client, history Historian) *ChatController {
	return &ChatController{
		client:         c,
		history:        history,
		logger:         &log.DefaultLogger,
		conversationID: "conv_" + uuid.NewString(),
	}
}

// ConversationID returns the id exchanges are recorded under.
func (cc *ChatController) ConversationID() string {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.conversationID
}

// Messages returns a snapshot of the committed message list.
func (cc *ChatController) Messages() []*model.Message {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	out := make([]*model.Message, len(cc.messages))
	copy(out, cc.messages)
	return out
}

// ClearMessages empties the conversation and starts a new conversation id.
func (cc *ChatController) ClearMessages() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.messages = nil
	cc.conversationID = "conv_" + uuid.NewString()
}

// SendMessage appends the user message immediately, then the assistant
// reply (or an error-flagged message) once the call settles.
func (cc *ChatController) SendMessage(ctx context.Context, text string, opts client.ChatOptions) *model.Message {
	user := model.NewUserMessage(text)
	cc.append(user)
	opts.ConversationID = cc.ConversationID()

	reply, err := cc.client.SendChatMessage(ctx, text, opts)
	if err != nil {
		reply = model.NewErrorMessage(err.Error())
		cc.append(reply)
		return reply
	}

	cc.append(reply)
	cc.record(user, reply)
	return reply
}

// SendStreamingMessage appends the user message, accumulates tokens into
// the transient buffer, and commits a single assistant message when the
// stream completes. It blocks until the stream ends; onToken is optional
// and fires after the buffer has been updated.
//
// On failure an error-flagged message is committed. On cancellation
// nothing is committed and the buffer is discarded.
func (cc *ChatController) SendStreamingMessage(ctx context.Context, text string, opts client.ChatOptions, onToken func(partial string)) *model.Message {
	user := model.NewUserMessage(text)
	cc.append(user)
	opts.ConversationID = cc.ConversationID()

	ctx, cancel := context.WithCancel(ctx)
	cc.mu.Lock()
	cc.streaming = true
	cc.streamBuf.Reset()
	cc.cancelStream = cancel
	cc.mu.Unlock()

	defer func() {
		cancel()
		cc.mu.Lock()
		cc.streaming = false
		cc.streamBuf.Reset()
		cc.cancelStream = nil
		cc.mu.Unlock()
	}()

	var committed *model.Message
	err := cc.client.StreamChatMessage(ctx, text, opts, client.StreamHandlers{
		OnToken: func(token string) {
			cc.mu.Lock()
			cc.streamBuf.WriteString(token)
			partial := cc.streamBuf.String()
			cc.mu.Unlock()
			if onToken != nil {
				onToken(partial)
			}
		},
		OnComplete: func(full string) {
			committed = model.NewAssistantMessage(full)
			cc.append(committed)
			cc.record(user, committed)
		},
	})

	if err != nil && committed == nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		committed = model.NewErrorMessage(err.Error())
		cc.append(committed)
	}
	return committed
}

// RetryLast re-sends the most recent user message without appending it
// again, committing only the reply. Used after a failed stream: the user
// turn is already in the list, and the plain path resolves in demo mode
// once the latch has tripped.
func (cc *ChatController) RetryLast(ctx context.Context, opts client.ChatOptions) *model.Message {
	user := cc.lastUserMessage()
	if user == nil {
		return nil
	}
	opts.ConversationID = cc.ConversationID()

	reply, err := cc.client.SendChatMessage(ctx, user.Content, opts)
	if err != nil {
		reply = model.NewErrorMessage(err.Error())
		cc.append(reply)
		return reply
	}

	cc.append(reply)
	cc.record(user, reply)
	return reply
}

func (cc *ChatController) lastUserMessage() *model.Message {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	for i := len(cc.messages) - 1; i >= 0; i-- {
		if cc.messages[i].Role == model.RoleUser {
			return cc.messages[i]
		}
	}
	return nil
}

// StreamingText returns the transient buffer, separate from the committed
// list, plus whether a stream is in flight.
func (cc *ChatController) StreamingText() (string, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.streamBuf.String(), cc.streaming
}

// CancelStream aborts the in-flight stream, if any.
func (cc *ChatController) CancelStream() {
	cc.mu.Lock()
	cancel := cc.cancelStream
	cc.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (cc *ChatController) append(msg *model.Message) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.messages = append(cc.messages, msg)
}

func (cc *ChatController) record(user, assistant *model.Message) {
	if cc.history == nil {
		return
	}
	if err := cc.history.SaveExchange(cc.ConversationID(), user, assistant); err != nil {
		cc.logger.Warn().Err(err).Msg("failed to persist exchange")
	}
}
