// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want 'user'", msg.Role)
	}

	if msg.Content != "Hello" {
		t.Errorf("Content = %q, want 'Hello'", msg.Content)
	}

	if msg.ID == "" {
		t.Error("ID should be generated")
	}

	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("backend unavailable")

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want 'assistant'", msg.Role)
	}

	if !msg.IsError {
		t.Error("IsError should be true")
	}
}

func TestMessage_WithSources(t *testing.T) {
	msg := NewAssistantMessage("answer")

	// Empty slice leaves Sources nil.
	msg = msg.WithSources(nil)
	if msg.Sources != nil {
		t.Error("Sources should stay nil for empty input")
	}

	hits := []Source{{Document: "guide.md", Relevance: 0.92, Snippet: "..."}}
	msg = msg.WithSources(hits)
	if len(msg.Sources) != 1 {
		t.Fatalf("Sources length = %d, want 1", len(msg.Sources))
	}
	if msg.Sources[0].Document != "guide.md" {
		t.Errorf("Document = %q", msg.Sources[0].Document)
	}
}

func TestMessage_Preview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		maxLen  int
		want    string
	}{
		{"short", "hi", 10, "hi"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"unicode", strings.Repeat("héllo", 10), 8, "héllo..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := NewUserMessage(tc.content)
			if got := msg.Preview(tc.maxLen); got != tc.want {
				t.Errorf("Preview(%d) = %q, want %q", tc.maxLen, got, tc.want)
			}
		})
	}
}

// =============================================================================
// DOCUMENT TESTS
// =============================================================================

func TestDocumentRecord_Transitions(t *testing.T) {
	doc := DocumentRecord{Name: "report.pdf", SizeBytes: 2048, Status: DocumentUploading}

	doc.Indexed("doc_1", 12)
	if doc.Status != DocumentIndexed {
		t.Errorf("Status = %q, want indexed", doc.Status)
	}
	if doc.ID != "doc_1" || doc.ChunksCreated != 12 {
		t.Errorf("ID = %q, ChunksCreated = %d", doc.ID, doc.ChunksCreated)
	}

	doc.Failed("parse error")
	if doc.Status != DocumentError {
		t.Errorf("Status = %q, want error", doc.Status)
	}
	if doc.Error != "parse error" {
		t.Errorf("Error = %q", doc.Error)
	}
}

// =============================================================================
// HEALTH TESTS
// =============================================================================

func TestHealthState_String(t *testing.T) {
	tests := []struct {
		state HealthState
		want  string
	}{
		{HealthUnknown, "unknown"},
		{HealthOnline, "online"},
		{HealthDegraded, "degraded"},
		{HealthOffline, "offline"},
	}

	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestHealthState_Reachable(t *testing.T) {
	if !HealthOnline.Reachable() || !HealthDegraded.Reachable() {
		t.Error("online and degraded should be reachable")
	}
	if HealthOffline.Reachable() || HealthUnknown.Reachable() {
		t.Error("offline and unknown should not be reachable")
	}
}

// =============================================================================
// MODEL INFO TESTS
// =============================================================================

func TestModelInfo_FormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024 * 1024, "5 GB"},
	}

	for _, tc := range tests {
		m := ModelInfo{SizeBytes: tc.size}
		if got := m.FormatSize(); got != tc.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tc.size, got, tc.want)
		}
	}
}
