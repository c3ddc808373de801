// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared across the Allma client.
//
// These are the client-side domain types: chat messages with their retrieval
// sources and token usage, document records tracking upload state, model
// descriptors, health status, and conversation metadata. Wire-level request
// and response shapes live in the api package; this package holds what the
// rest of the client (controllers, storage, the command loop) works with.
//
// # Key Types
//
//   - Message: a single chat message, immutable once appended
//   - Source: a retrieval hit attached to an assistant message
//   - DocumentRecord: client-local view of an uploaded document
//   - ModelInfo: an available backend model
//   - HealthStatus: tri-state backend availability plus diagnostics
//   - ConversationMeta: display metadata for a stored conversation
package model
