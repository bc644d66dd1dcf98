// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package ratelimit provides a small shared pacer for reconnect and
// renewal attempts. A correlated outage (a network blip that drops many
// websocket sessions or stdio children at once) must not turn into a
// thundering herd of simultaneous dials; this wraps
// golang.org/x/time/rate to cap the rate of attempts across an entire
// pool, additive to each session's own per-attempt backoff delay.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer bounds how often reconnect/renewal dials may proceed across an
// entire pool.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows up to burst dials immediately, refilling at
// persecond dials/sec thereafter.
func NewPacer(persecond float64, burst int) *Pacer {
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(persecond), burst)}
}

// Wait blocks until a dial slot is available or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Backoff computes spec.md §4.B's reconnect delay: base * 2^(n-1) for
// attempt n (1-indexed), so the first retry waits exactly base, the
// second 2*base, the third 4*base.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
