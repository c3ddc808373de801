// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP transport for communicating with the Allma
// backend.
//
// The transport translates logical operations into HTTP exchanges against a
// configurable base URL, decodes JSON responses, and normalizes failures
// into typed errors. It is stateless with respect to prior calls; routing
// and fallback decisions belong to the client package.
//
// # Key Types
//
//   - Transport: HTTP client for the backend API
//   - Error: structured API error with status and backend error code
//   - TokenStreamReader: incremental decoder for token-streamed chat bodies
//
// # Usage
//
// Create a transport and send a chat request:
//
//	tr := api.NewTransport(api.DefaultConfig())
//	resp, err := tr.Chat(ctx, api.ChatRequest{Message: "Hello", UseRAG: true})
//
// For streaming responses:
//
//	body, err := tr.ChatStream(ctx, req)
//	reader := api.NewTokenStreamReader(body)
//	err = reader.Process(ctx, func(token string) { ... })
package api
