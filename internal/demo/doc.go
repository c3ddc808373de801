// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package demo provides a fully local stand-in for the Allma backend.
//
// When the backend is unreachable the client falls back to this responder so
// the application stays usable: chat returns canned assistant replies,
// document and model listings return fixed sample data, and streaming is
// simulated token by token with realistic pacing.
//
// # Key Types
//
//   - Responder: canned implementation of every backend operation
//   - Option: functional configuration (disable latency in tests)
//
// The responder never returns a backend error. Operations fail only when the
// caller's context is cancelled mid-delay.
package demo
