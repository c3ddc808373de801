// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"strings"
	"testing"
)

func TestValidateMessage(t *testing.T) {
	if err := ValidateMessage("hello"); err != nil {
		t.Errorf("valid message rejected: %v", err)
	}
	if err := ValidateMessage(""); err != ErrEmptyMessage {
		t.Errorf("empty message: got %v", err)
	}
	if err := ValidateMessage("   \t\n"); err != ErrEmptyMessage {
		t.Errorf("whitespace-only message: got %v", err)
	}
	if err := ValidateMessage(strings.Repeat("x", MaxMessageLength)); err != nil {
		t.Errorf("message at the limit rejected: %v", err)
	}
	if err := ValidateMessage(strings.Repeat("x", MaxMessageLength+1)); err != ErrMessageTooLong {
		t.Errorf("oversized message: got %v", err)
	}
}

func TestValidateSearchQuery(t *testing.T) {
	if err := ValidateSearchQuery("go"); err != nil {
		t.Errorf("two-char query rejected: %v", err)
	}
	if err := ValidateSearchQuery("x"); err != ErrQueryTooShort {
		t.Errorf("one-char query: got %v", err)
	}
	if err := ValidateSearchQuery("  a  "); err != ErrQueryTooShort {
		t.Errorf("padded one-char query: got %v", err)
	}
}

func TestClampTopK(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, DefaultTopK},
		{-3, MinTopK},
		{1, 1},
		{5, 5},
		{20, 20},
		{100, 100},
		{101, MaxTopK},
		{1000, MaxTopK},
	}
	for _, tc := range cases {
		if got := ClampTopK(tc.in); got != tc.want {
			t.Errorf("ClampTopK(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestClampTemperature(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.7, 0.7},
		{2, 2},
		{3.5, 2},
	}
	for _, tc := range cases {
		if got := ClampTemperature(tc.in); got != tc.want {
			t.Errorf("ClampTemperature(%g) = %g, want %g", tc.in, got, tc.want)
		}
	}
}
