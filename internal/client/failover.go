// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"errors"
	"sync"

	"github.com/phuslu/log"
)

// failover owns the demo-mode latch and the try-real-then-fallback policy.
// It is deliberately separate from the Client so the policy is testable on
// its own: primary first, and on any primary failure latch then run the
// fallback exactly once.
type failover struct {
	mu      sync.Mutex
	latched bool
	logger  *log.Logger
}

func newFailover() *failover {
	return &failover{logger: &log.DefaultLogger}
}

// Latched reports whether the latch has tripped.
func (f *failover) Latched() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latched
}

// Latch trips the latch. Concurrent callers converge on true.
func (f *failover) Latch(op string, reason error) {
	f.mu.Lock()
	already := f.latched
	f.latched = true
	f.mu.Unlock()

	if !already {
		f.logger.Warn().Str("op", op).Err(reason).Msg("backend failed, switching to demo mode")
	}
}

// Reset clears the latch so the next call tries the real backend again.
func (f *failover) Reset() {
	f.mu.Lock()
	was := f.latched
	f.latched = false
	f.mu.Unlock()

	if was {
		f.logger.Info().Msg("demo mode cleared, next call goes live")
	}
}

// resolve runs primary against the real backend unless the latch has
// tripped, and degrades to fallback on any primary failure. Cancellation is
// the one error that propagates: a caller that gave up gets ctx.Err(), not a
// demo answer.
func resolve[T any](ctx context.Context, f *failover, op string, primary, fallback func(context.Context) (T, error)) (T, error) {
	if !f.Latched() {
		out, err := primary(ctx)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) {
			var zero T
			return zero, err
		}
		f.Latch(op, err)
	}
	return fallback(ctx)
}
