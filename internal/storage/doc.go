// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversation history to a local sqlite database.
//
// The backend is authoritative for conversations; this cache exists so the
// client can show recent history instantly and keep something useful when
// running in demo mode. Writes are best-effort from the chat controller's
// point of view.
package storage
