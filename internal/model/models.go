// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strconv"
	"time"
)

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo describes a model available on the backend.
type ModelInfo struct {
	Name         string    `json:"name"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// FormatSize formats the model size in human-readable form.
func (m ModelInfo) FormatSize() string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)

	switch {
	case m.SizeBytes >= gb:
		return formatScaled(m.SizeBytes, gb) + " GB"
	case m.SizeBytes >= mb:
		return formatScaled(m.SizeBytes, mb) + " MB"
	case m.SizeBytes >= kb:
		return formatScaled(m.SizeBytes, kb) + " KB"
	default:
		return formatScaled(m.SizeBytes, 1) + " B"
	}
}

// formatScaled renders size/unit with one decimal place, dropping ".0".
func formatScaled(size, unit int64) string {
	whole := size / unit
	frac := (size % unit) * 10 / unit

	s := strconv.FormatInt(whole, 10)
	if frac > 0 {
		s += "." + strconv.FormatInt(frac, 10)
	}
	return s
}
