// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package health polls the backend's health endpoint on an interval and
// tracks reachability state for the UI.
//
// The monitor is advisory: it reports state transitions to an optional
// callback but never changes how the client routes requests. Demo-mode
// fallback is decided per call by the client facade, independently of what
// the monitor last observed.
//
// # Usage
//
//	mon := health.NewMonitor(transport, health.MonitorConfig{
//		OnChange: func(s model.HealthStatus) { ui.SetIndicator(s) },
//	})
//	mon.Start(ctx)
//	defer mon.Stop()
package health
