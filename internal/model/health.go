// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// HEALTH TYPES
// =============================================================================

// HealthState is the tri-state backend availability, plus the initial
// unknown state before any probe has run.
type HealthState int

const (
	HealthUnknown HealthState = iota
	HealthOnline
	HealthDegraded
	HealthOffline
)

// String returns the string representation of the state.
func (s HealthState) String() string {
	switch s {
	case HealthOnline:
		return "online"
	case HealthDegraded:
		return "degraded"
	case HealthOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Reachable reports whether the backend is worth talking to at all.
func (s HealthState) Reachable() bool {
	return s == HealthOnline || s == HealthDegraded
}

// HealthStatus is the monitor's view of the backend, refreshed on a timer
// and on demand. Advisory only: it never drives the client facade's
// fallback latch.
type HealthStatus struct {
	State         HealthState `json:"state"`
	LastCheckedAt time.Time   `json:"last_checked_at"`

	// LastError holds the most recent probe failure for diagnostics.
	// Cleared on a successful probe.
	LastError string `json:"last_error,omitempty"`
}
