// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// CONVERSATION METADATA
// =============================================================================

// ConversationMeta is the display metadata for a conversation. The backend
// owns message bodies; the client holds only this handle list unless a
// conversation has been actively loaded.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}
