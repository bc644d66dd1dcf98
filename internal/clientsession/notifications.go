// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package clientsession

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcpfleet/runtime/internal/json"
	"github.com/mcpfleet/runtime/internal/rpc"
	"github.com/mcpfleet/runtime/mcp"
)

type logParams struct {
	Data   any    `json:"data"`
	Level  string `json:"level"`
	Logger string `json:"logger,omitempty"`
}

type resourceUpdatedParams struct {
	URI string `json:"uri"`
}

type progressParams struct {
	ProgressToken any     `json:"progressToken"`
	Message       string  `json:"message,omitempty"`
	Progress      float64 `json:"progress"`
	Total         float64 `json:"total,omitempty"`
}

// ErrNoProgressToken names the case of tracking progress for a call that
// never attached a progress token, mirroring the teacher's own
// server-side ErrNoProgressToken sentinel, reversed here for a client
// awaiting rather than a server reporting. No function in this package
// returns it.
var ErrNoProgressToken = fmt.Errorf("clientsession: call has no progress token to track")

// progressTracker correlates notifications/tools/progress notifications
// back to the in-flight executeTool call that requested them, keyed by
// the progress token the client itself minted at call time.
type progressTracker struct {
	mu      sync.Mutex
	waiters map[string]chan progressParams
}

func newProgressTracker() *progressTracker {
	return &progressTracker{waiters: make(map[string]chan progressParams)}
}

// register installs a progress channel for token and returns it plus a
// cleanup func the caller must run when done waiting.
func (t *progressTracker) register(token string) (chan progressParams, func()) {
	ch := make(chan progressParams, 8)
	t.mu.Lock()
	t.waiters[token] = ch
	t.mu.Unlock()
	return ch, func() {
		t.mu.Lock()
		delete(t.waiters, token)
		close(ch)
		t.mu.Unlock()
	}
}

func (t *progressTracker) deliver(p progressParams) {
	token, ok := p.ProgressToken.(string)
	if !ok {
		return
	}
	// The send happens under the lock so cleanup cannot close ch mid-send.
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.waiters[token]
	if !ok {
		return
	}
	select {
	case ch <- p:
	default:
	}
}

// notificationLoop consumes every notification the correlator routes to
// ch (method-keyed subscriptions plus the generic fallback feed into the
// same channel here) and dispatches it per spec §4.D: notifications/log
// to the logger, notifications/resources/updated to a targeted re-fetch
// of watched URIs only, notifications/tools/progress to the matching
// in-flight waiter, list-changed notifications to a cache invalidation,
// anything else logged as an unhandled notification.
func (s *Session) notificationLoop(ch <-chan rpc.Notification) {
	for n := range ch {
		switch n.Method {
		case mcp.NotificationLog:
			s.handleLog(n.Params)
		case mcp.NotificationResourceUpdated:
			s.handleResourceUpdated(n.Params)
		case mcp.NotificationProgress:
			s.handleProgress(n.Params)
		case mcp.NotificationToolListChanged:
			s.invalidateTools()
		case mcp.NotificationResourceListChanged:
			s.invalidateResources()
		case mcp.NotificationPromptListChanged:
			s.invalidatePrompts()
		default:
			s.logger.Debug("clientsession: unhandled notification", "server_id", s.cfg.ID, "method", n.Method)
		}
	}
}

func (s *Session) handleLog(raw json.RawMessage) {
	var p logParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn("clientsession: malformed notifications/log", "server_id", s.cfg.ID, "error", err)
		return
	}
	level := slog.LevelInfo
	switch p.Level {
	case "debug":
		level = slog.LevelDebug
	case "warning", "notice":
		level = slog.LevelWarn
	case "error", "critical", "alert", "emergency":
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "server log", "server_id", s.cfg.ID, "logger", p.Logger, "data", p.Data)
}

func (s *Session) handleResourceUpdated(raw json.RawMessage) {
	var p resourceUpdatedParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn("clientsession: malformed notifications/resources/updated", "server_id", s.cfg.ID, "error", err)
		return
	}
	if !s.watched.Matches(p.URI) {
		return
	}
	go s.refetchResource(p.URI)
}

func (s *Session) handleProgress(raw json.RawMessage) {
	var p progressParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn("clientsession: malformed notifications/tools/progress", "server_id", s.cfg.ID, "error", err)
		return
	}
	s.progress.deliver(p)
}
