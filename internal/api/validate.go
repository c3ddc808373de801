// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"strings"
)

// =============================================================================
// CLIENT-SIDE VALIDATION
// =============================================================================

// Limits mirror the backend's request validators so obviously bad requests
// are rejected before they cross the wire.
const (
	MaxMessageLength   = 32000
	MinSearchQueryLen  = 2
	MinTopK            = 1
	MaxTopK            = 100
	DefaultTopK        = 5
	MinTemperature     = 0.0
	MaxTemperature     = 2.0
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrQueryTooShort   = errors.New("search query too short")
)

// ValidateMessage checks a chat message before sending.
func ValidateMessage(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if len(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// ValidateSearchQuery checks a search query before sending.
func ValidateSearchQuery(query string) error {
	if len(strings.TrimSpace(query)) < MinSearchQueryLen {
		return ErrQueryTooShort
	}
	return nil
}

// ClampTopK forces topK into the backend's accepted range, substituting
// the default for the zero value.
func ClampTopK(topK int) int {
	if topK == 0 {
		return DefaultTopK
	}
	if topK < MinTopK {
		return MinTopK
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}

// ClampTemperature forces temperature into [0, 2].
func ClampTemperature(temp float64) float64 {
	if temp < MinTemperature {
		return MinTemperature
	}
	if temp > MaxTemperature {
		return MaxTemperature
	}
	return temp
}
