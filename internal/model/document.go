// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// DocumentStatus tracks the lifecycle of an uploaded document.
type DocumentStatus string

const (
	DocumentUploading DocumentStatus = "uploading"
	DocumentIndexed   DocumentStatus = "indexed"
	DocumentError     DocumentStatus = "error"
)

// DocumentRecord is the client-local view of an uploaded document. The
// backend is authoritative for persisted documents; this record exists so
// the UI can show per-file progress and outcomes.
type DocumentRecord struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	SizeBytes     int64          `json:"size_bytes"`
	ChunksCreated int            `json:"chunks_created"`
	Status        DocumentStatus `json:"status"`

	// Error holds the failure reason when Status is DocumentError.
	Error string `json:"error,omitempty"`

	UploadedAt time.Time `json:"uploaded_at"`
}

// Indexed marks the record as successfully ingested.
func (d *DocumentRecord) Indexed(id string, chunks int) {
	if id != "" {
		d.ID = id
	}
	d.ChunksCreated = chunks
	d.Status = DocumentIndexed
	d.Error = ""
}

// Failed marks the record as failed with the given reason.
func (d *DocumentRecord) Failed(reason string) {
	d.Status = DocumentError
	d.Error = reason
}
