// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package pool caches one *clientsession.Session per server id, serializes
// concurrent opens for the same id, and enforces the fleet-wide caps the
// manager relies on: idle eviction, per-session use count, and a max
// connections cap with LRU eviction when it is hit. Grounded on the
// Manager/serverConn shape in the APEXION MCP client (connect-with-
// cooldown, idle sweep, capacity-aware eviction) and the reconnect-
// listener shape in mutablelogic/go-llm's MCP client, adapted here to a
// shared fleet cache rather than either repo's single always-open client.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcpfleet/runtime/internal/clientsession"
	"github.com/mcpfleet/runtime/internal/ratelimit"
	"github.com/mcpfleet/runtime/mcp"
)

// tokenExpirySkew is how far ahead of a cached OAuth2 token's exp claim
// Acquire treats it as due for renewal, so a session is swapped out
// before a request fails on it with an expired token.
const tokenExpirySkew = 30 * time.Second

// tokenNearExpiry reports whether cfg's auth is an OAuth2Auth whose
// TokenSource currently holds a token within tokenExpirySkew of expiring.
// Any other auth kind, or a TokenSource error, reports false: this is a
// proactive optimization on top of the use-count renewal trigger, not a
// correctness requirement (a mid-life 401 is still handled by the
// auth transport's own retry-with-refresh).
func tokenNearExpiry(cfg mcp.ServerConfig) bool {
	auth, ok := cfg.Auth.(mcp.OAuth2Auth)
	if !ok || auth.TokenSource == nil {
		return false
	}
	tok, err := auth.TokenSource.Token()
	if err != nil {
		return false
	}
	return mcp.NearExpiry(tok.AccessToken, tokenExpirySkew)
}

// entry is one cached session plus the bookkeeping spec.md §4.E's
// "Pool entry" names: last-used timestamp, in-use flag, and use count.
type entry struct {
	session  *clientsession.Session
	lastUsed time.Time
	inUse    bool
	useCount int
}

// opener tracks an in-flight Acquire for a server id so concurrent
// callers join the same connect instead of racing independent ones.
type opener struct {
	done    chan struct{}
	session *clientsession.Session
	err     error
}

// Pool caches sessions keyed by server id, subject to PoolConfig's caps.
type Pool struct {
	cfg    mcp.PoolConfig
	logger *slog.Logger
	pacer  *ratelimit.Pacer

	mu        sync.Mutex
	entries   map[string]*entry
	openers   map[string]*opener
	disposed  bool
	stopTick  context.CancelFunc
	tickDone  chan struct{}
}

// New builds a Pool. cfg is normalized with WithDefaults. The idle
// eviction ticker is started immediately, at idle_timeout/4 per spec.
func New(cfg mcp.PoolConfig, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.WithDefaults()
	p := &Pool{
		cfg:     cfg,
		logger:  logger,
		pacer:   ratelimit.NewPacer(2, 4),
		entries: make(map[string]*entry),
		openers: make(map[string]*opener),
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.stopTick = cancel
	p.tickDone = make(chan struct{})
	go p.idleEvictionLoop(ctx)
	return p
}

// Acquire returns a Connected session for cfg.ID, opening one if no cached
// entry exists or joining an in-flight open for the same id. The fleet
// cap is enforced only after a brand-new open succeeds (spec.md §4.E.4):
// an over-cap acquisition of an already-cached, already-connected entry
// never evicts anything.
func (p *Pool) Acquire(ctx context.Context, cfg mcp.ServerConfig) (*clientsession.Session, error) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil, mcp.ErrDisposed
	}
	if e, ok := p.entries[cfg.ID]; ok && e.session.State() == clientsession.StateReady {
		e.lastUsed = time.Now()
		e.inUse = true
		e.useCount++
		needsRenewal := e.useCount > p.cfg.MaxUseCount || tokenNearExpiry(cfg)
		session := e.session
		p.mu.Unlock()
		if needsRenewal {
			if p.cfg.BlockOnRenewal {
				p.renew(cfg.ID, cfg)
				return p.currentSession(cfg.ID, session), nil
			}
			go p.renew(cfg.ID, cfg)
		}
		return session, nil
	}
	if op, ok := p.openers[cfg.ID]; ok {
		p.mu.Unlock()
		return p.joinOpen(ctx, op)
	}

	op := &opener{done: make(chan struct{})}
	p.openers[cfg.ID] = op
	p.mu.Unlock()

	p.runOpen(cfg, op)
	return p.joinOpen(ctx, op)
}

func (p *Pool) joinOpen(ctx context.Context, op *opener) (*clientsession.Session, error) {
	select {
	case <-op.done:
		return op.session, op.err
	case <-ctx.Done():
		// The open itself is not cancelled: if we were the sole joiner it
		// still completes and populates the pool (spec.md §5).
		return nil, ctx.Err()
	}
}

func (p *Pool) runOpen(cfg mcp.ServerConfig, op *opener) {
	session := clientsession.New(cfg, p.logger)
	connectCtx := context.Background()
	var cancel context.CancelFunc
	if cfg.ConnectTimeout > 0 {
		connectCtx, cancel = context.WithTimeout(connectCtx, cfg.ConnectTimeout)
		defer cancel()
	}
	err := session.Connect(connectCtx)

	p.mu.Lock()
	delete(p.openers, cfg.ID)
	if err != nil {
		p.mu.Unlock()
		op.err = err
		close(op.done)
		return
	}
	p.entries[cfg.ID] = &entry{session: session, lastUsed: time.Now(), inUse: true, useCount: 1}
	p.enforceFleetCapLocked()
	p.mu.Unlock()

	op.session = session
	close(op.done)
}

// enforceFleetCapLocked implements spec.md §4.E.4: while over cap, evict
// the not-in-use entry with the smallest last_used. If none is evictable,
// accept the overage without opening further sessions. Caller holds p.mu.
func (p *Pool) enforceFleetCapLocked() {
	for len(p.entries) > p.cfg.MaxConnections {
		var victimID string
		var victim *entry
		for id, e := range p.entries {
			if e.inUse {
				continue
			}
			if victim == nil || e.lastUsed.Before(victim.lastUsed) {
				victimID, victim = id, e
			}
		}
		if victim == nil {
			return
		}
		delete(p.entries, victimID)
		go func(s *clientsession.Session) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = s.Disconnect(ctx)
		}(victim.session)
	}
}

// Release marks serverID's entry as no longer in use and stamps its
// last-used time. A no-op if the entry is not cached (already evicted or
// disconnected concurrently).
func (p *Pool) Release(serverID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[serverID]; ok {
		e.inUse = false
		e.lastUsed = time.Now()
	}
}

// renew opens a replacement session for serverID and, on success, swaps it
// in with use_count reset to 0 and disposes the old session; on failure
// the old entry is left in place (spec.md §4.E "Renewal"). When
// p.cfg.BlockOnRenewal is set, the old session is disconnected before the
// replacement is dialed, so the two are never live at once; otherwise the
// replacement is dialed first and the old session keeps serving callers
// until the swap, per spec's default asynchronous description.
func (p *Pool) renew(serverID string, cfg mcp.ServerConfig) {
	if err := p.pacer.Wait(context.Background()); err != nil {
		return
	}

	if p.cfg.BlockOnRenewal {
		p.mu.Lock()
		old, ok := p.entries[serverID]
		p.mu.Unlock()
		if ok {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = old.session.Disconnect(disconnectCtx)
			cancel()
		}
	}

	replacement := clientsession.New(cfg, p.logger)
	ctx := context.Background()
	var cancel context.CancelFunc
	if cfg.ConnectTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := replacement.Connect(ctx); err != nil {
		p.logger.Warn("pool: renewal failed, keeping existing session", "server_id", serverID, "error", err)
		return
	}

	p.mu.Lock()
	old, ok := p.entries[serverID]
	if !ok {
		p.mu.Unlock()
		_ = replacement.Disconnect(context.Background())
		return
	}
	wasInUse := old.inUse
	p.entries[serverID] = &entry{session: replacement, lastUsed: time.Now(), inUse: wasInUse, useCount: 0}
	p.mu.Unlock()

	if !p.cfg.BlockOnRenewal {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer disconnectCancel()
		_ = old.session.Disconnect(disconnectCtx)
	}
}

// currentSession returns the live cached session for serverID after a
// synchronous renewal, falling back to fallback if the entry is gone
// (evicted or disposed concurrently).
func (p *Pool) currentSession(serverID string, fallback *clientsession.Session) *clientsession.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[serverID]; ok {
		return e.session
	}
	return fallback
}

// idleEvictionLoop runs a background tick every idle_timeout/4, disconnecting
// any entry that is not in use and has been idle longer than idle_timeout.
func (p *Pool) idleEvictionLoop(ctx context.Context) {
	defer close(p.tickDone)
	interval := p.cfg.IdleTimeout / 4
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.evictIdle()
		}
	}
}

func (p *Pool) evictIdle() {
	now := time.Now()
	p.mu.Lock()
	var victims []*entry
	for id, e := range p.entries {
		if e.inUse || now.Sub(e.lastUsed) <= p.cfg.IdleTimeout {
			continue
		}
		victims = append(victims, e)
		delete(p.entries, id)
	}
	p.mu.Unlock()
	for _, e := range victims {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = e.session.Disconnect(ctx)
		cancel()
	}
}

// HealthCheck pings every cached entry concurrently; any entry whose ping
// fails is disconnected and removed. Returns server id -> healthy.
func (p *Pool) HealthCheck(ctx context.Context) map[string]bool {
	p.mu.Lock()
	type candidate struct {
		id      string
		session *clientsession.Session
	}
	candidates := make([]candidate, 0, len(p.entries))
	for id, e := range p.entries {
		candidates = append(candidates, candidate{id: id, session: e.session})
	}
	p.mu.Unlock()

	results := make(map[string]bool, len(candidates))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range candidates {
		wg.Add(1)
		go func(c candidate) {
			defer wg.Done()
			healthy := c.session.Ping(ctx)
			mu.Lock()
			results[c.id] = healthy
			mu.Unlock()
			if !healthy {
				p.drop(c.id)
				dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				_ = c.session.Disconnect(dctx)
				cancel()
			}
		}(c)
	}
	wg.Wait()
	return results
}

func (p *Pool) drop(serverID string) {
	p.mu.Lock()
	delete(p.entries, serverID)
	p.mu.Unlock()
}

// Shutdown marks the pool disposed, rejecting new acquisitions, and
// disconnects every cached entry in parallel, ignoring individual errors.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil
	}
	p.disposed = true
	sessions := make([]*clientsession.Session, 0, len(p.entries))
	for _, e := range p.entries {
		sessions = append(sessions, e.session)
	}
	p.entries = make(map[string]*entry)
	p.mu.Unlock()

	p.stopTick()
	<-p.tickDone

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *clientsession.Session) {
			defer wg.Done()
			_ = s.Disconnect(ctx)
		}(s)
	}
	wg.Wait()
	return nil
}

// Len reports the number of cached entries, for tests and diagnostics.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// ErrUnknownServer reports a server id the pool has never been asked to
// acquire. No Pool method returns it.
var ErrUnknownServer = fmt.Errorf("pool: unknown server id")
