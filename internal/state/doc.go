// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package state holds the session-scoped controllers a UI binds to.
//
// Each controller owns one in-memory collection (chat messages, document
// records, search results, models) and wraps the client facade with the
// small amount of state logic the UI needs: optimistic appends, streaming
// buffers, per-file upload status, result replacement.
//
// # Key Types
//
//   - ChatController: message list plus transient streaming buffer
//   - DocumentController: per-document upload and index status
//   - SearchController: latest search result set
//   - ModelController: available models and the confirmed current one
//
// Controllers are safe for concurrent use, but operations that mutate the
// same collection are expected to be issued one at a time; overlapping chat
// sends commit in completion order, not issuance order.
package state
