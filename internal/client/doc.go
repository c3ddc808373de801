// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package client is the single entry point for talking to an Allma backend.
//
// Every operation routes through one decision: use the real backend over
// HTTP, or serve from the local demo responder. The first failed backend
// call latches the client into demo mode, and it stays there for the life
// of the client until ResetToLive is called. Changing the base URL does not
// clear the latch. This keeps a session stable once it has degraded instead
// of flapping between live and demo answers.
//
// # Key Types
//
//   - Client: the facade; owns the demo-mode latch
//   - ChatOptions: per-call options (RAG, model, conversation)
//   - StreamHandlers: callbacks for streaming chat
//
// # Usage
//
//	c := client.New(client.Config{BaseURL: "http://127.0.0.1:8000"})
//	msg, err := c.SendChatMessage(ctx, "hello", client.ChatOptions{UseRAG: true})
//
// SendChatMessage resolves with a Message for any valid input: a backend
// failure produces a demo answer, never an error. Streaming is the
// exception; it is only attempted live and surfaces failures via OnError.
package client
