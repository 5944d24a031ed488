// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum time between AI requests.
const DefaultInterval = 1 * time.Second

// =============================================================================
// LIMITER
// =============================================================================

// Limiter gates outbound AI requests to one per interval. A grant records
// the acquisition time; a denial leaves the limiter untouched so a rejected
// attempt never pushes the next allowed time further out.
//
// The limiter is only ever driven from the shell's single input loop, but
// the underlying rate.Limiter is safe for concurrent use anyway.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// New creates a limiter with the given minimum interval between grants.
// A non-positive interval falls back to DefaultInterval.
func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Interval returns the configured minimum interval.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// TryAcquire attempts to take the single token at time now. It returns
// granted=true and zero wait when the request may proceed, or granted=false
// and the remaining wait otherwise. A denied attempt cancels its reservation
// so limiter state is unchanged.
func (l *Limiter) TryAcquire(now time.Time) (granted bool, wait time.Duration) {
	rsv := l.limiter.ReserveN(now, 1)
	if !rsv.OK() {
		return false, l.interval
	}
	delay := rsv.DelayFrom(now)
	if delay > 0 {
		rsv.CancelAt(now)
		return false, delay
	}
	return true, 0
}
