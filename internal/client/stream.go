// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"errors"

	"github.com/allma-studio/allma-go/internal/api"
)

// ErrDemoMode is returned when a streaming chat is attempted while the
// client is latched into demo mode. The demo responder has no streaming
// variant; callers should fall back to SendChatMessage.
var ErrDemoMode = errors.New("streaming unavailable in demo mode")

// StreamHandlers receive streaming chat events. All callbacks run on the
// calling goroutine, in order.
type StreamHandlers struct {
	// OnToken fires once per decoded token.
	OnToken func(token string)

	// OnComplete fires once, after the final token, with the full
	// accumulated reply. The concatenation of every OnToken argument
	// equals this string exactly.
	OnComplete func(full string)

	// OnError fires at most once when the stream fails. OnComplete and
	// OnError are mutually exclusive. A deliberate cancellation fires
	// neither.
	OnError func(err error)
}

// StreamChatMessage opens a streaming chat exchange and blocks until the
// stream ends. Unlike SendChatMessage there is no silent fallback: a
// failure before the first byte latches demo mode and surfaces via OnError.
// Mid-stream failures also surface via OnError; tokens already delivered
// stay delivered, but OnComplete never fires for a broken stream.
//
// The returned error mirrors what was delivered to OnError (or
// ctx.Err() on cancellation) so callers may use either style.
func (c *Client) StreamChatMessage(ctx context.Context, text string, opts ChatOptions, h StreamHandlers) error {
	fail := func(err error) error {
		if h.OnError != nil {
			h.OnError(err)
		}
		return err
	}

	if err := api.ValidateMessage(text); err != nil {
		return fail(err)
	}
	if c.fo.Latched() {
		return fail(ErrDemoMode)
	}

	body, err := c.transport.ChatStream(ctx, opts.request(text, true))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		c.fo.Latch("chat_stream", err)
		return fail(err)
	}
	defer body.Close()

	reader := api.NewTokenStreamReader(body)
	err = reader.Process(ctx, func(token string) {
		if h.OnToken != nil {
			h.OnToken(token)
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Caller aborted: no completion, no error callback.
			return err
		}
		return fail(err)
	}

	if h.OnComplete != nil {
		h.OnComplete(reader.Accumulated())
	}
	return nil
}
