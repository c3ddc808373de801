// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package health

import (
	"context"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/allma-studio/allma-go/internal/api"
	"github.com/allma-studio/allma-go/internal/model"
)

const (
	// DefaultInterval is how often the monitor checks the backend.
	DefaultInterval = 30 * time.Second

	// DefaultTimeout bounds a single check. An availability probe against a
	// hung backend should report offline in seconds, not wait out the full
	// request timeout.
	DefaultTimeout = 3 * time.Second
)

// Prober is the slice of the transport the monitor needs.
type Prober interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
}

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// Interval between checks. Defaults to DefaultInterval.
	Interval time.Duration

	// Timeout bounds each individual check. Defaults to DefaultTimeout.
	Timeout time.Duration

	// OnChange fires whenever the observed state differs from the previous
	// one, including the first check. Called from the monitor goroutine.
	OnChange func(model.HealthStatus)
}

// Monitor periodically probes the backend and records the last observed
// state. Safe for concurrent use.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	onChange func(model.HealthStatus)
	logger   *log.Logger

	mu      sync.Mutex
	status  model.HealthStatus
	stop    chan struct{}
	stopped sync.Once
	started bool
}

// NewMonitor creates a monitor. Start must be called to begin polling.
func NewMonitor(prober Prober, config MonitorConfig) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Monitor{
		prober:   prober,
		interval: config.Interval,
		timeout:  config.Timeout,
		onChange: config.OnChange,
		logger:   &log.DefaultLogger,
		status:   model.HealthStatus{State: model.HealthUnknown},
		stop:     make(chan struct{}),
	}
}

// Start runs an immediate check and then polls on the interval until Stop is
// called or ctx is cancelled. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.run(ctx)
}

// Stop halts polling. Idempotent.
func (m *Monitor) Stop() {
	m.stopped.Do(func() { close(m.stop) })
}

// Status returns the last observed state.
func (m *Monitor) Status() model.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Refresh performs a check immediately, outside the polling schedule, and
// returns the resulting status.
func (m *Monitor) Refresh(ctx context.Context) model.HealthStatus {
	return m.check(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	m.check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// check probes the backend once and records the transition. Each check is
// bounded by m.timeout so a hung backend surfaces as offline promptly.
func (m *Monitor) check(ctx context.Context) model.HealthStatus {
	next := model.HealthStatus{LastCheckedAt: time.Now()}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.prober.Health(ctx)
	switch {
	case err != nil:
		next.State = model.HealthOffline
		next.LastError = err.Error()
	case resp.Healthy():
		next.State = model.HealthOnline
	case resp.Degraded():
		next.State = model.HealthDegraded
	default:
		next.State = model.HealthOffline
		next.LastError = "backend reported " + resp.Status
	}

	m.mu.Lock()
	prev := m.status
	m.status = next
	m.mu.Unlock()

	if prev.State != next.State {
		m.logger.Info().
			Str("from", prev.State.String()).
			Str("to", next.State.String()).
			Msg("backend health changed")
		if m.onChange != nil {
			m.onChange(next)
		}
	}
	return next
}
