// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcpfleet/runtime/internal/pool"
)

// ToolMatch is one findTool result: which server advertises the tool and
// the tool's own descriptor.
type ToolMatch struct {
	ServerID string
	Tool     *Tool
}

// Manager is the facade a host program talks to: it holds the known
// server set, acquires/releases sessions from a shared pool per call, and
// applies spec.md §4.F's aggregate-vs-targeted error rule (aggregate
// operations swallow and log per-server errors; targeted operations
// propagate them to the caller). Grounded on the APEXION Manager's
// server-set-plus-pool shape, narrowed to a pool-backed cache instead of
// that repo's one-entry-per-server map with inline cooldown logic.
type Manager struct {
	logger *slog.Logger
	pool   *pool.Pool

	mu      sync.RWMutex
	order   []string
	servers map[string]ServerConfig
}

// NewManager builds a Manager. poolCfg is normalized with WithDefaults.
func NewManager(poolCfg PoolConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:  logger,
		pool:    pool.New(poolCfg, logger),
		servers: make(map[string]ServerConfig),
	}
}

// AddServer registers or replaces cfg under cfg.ID. Replacing an id with
// a new config takes effect on the next Acquire; any already-pooled
// session for the old config is unaffected until it is evicted, renewed,
// or explicitly disconnected.
func (m *Manager) AddServer(cfg ServerConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.servers[cfg.ID]; !exists {
		m.order = append(m.order, cfg.ID)
	}
	m.servers[cfg.ID] = cfg
}

// RemoveServer drops serverID from the known server set. It does not
// disconnect a currently pooled session for that id.
func (m *Manager) RemoveServer(serverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.servers[serverID]; !ok {
		return
	}
	delete(m.servers, serverID)
	for i, id := range m.order {
		if id == serverID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Servers returns the known server ids in insertion order.
func (m *Manager) Servers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

func (m *Manager) serverConfig(serverID string) (ServerConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.servers[serverID]
	return cfg, ok
}

func (m *Manager) orderedConfigs() []ServerConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ServerConfig, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.servers[id])
	}
	return out
}

// FindTool scans known servers in insertion order, acquiring each in turn
// and asking for its tool list, until one advertises a tool named name.
// Per-server errors are logged and skipped, not propagated; if no server
// has the tool, the second return is false.
func (m *Manager) FindTool(ctx context.Context, name string) (ToolMatch, bool) {
	for _, cfg := range m.orderedConfigs() {
		session, err := m.pool.Acquire(ctx, cfg)
		if err != nil {
			m.logger.Warn("manager: findTool acquire failed", "server_id", cfg.ID, "error", err)
			continue
		}
		tools, err := session.ListTools(ctx)
		m.pool.Release(cfg.ID)
		if err != nil {
			m.logger.Warn("manager: findTool listTools failed", "server_id", cfg.ID, "error", err)
			continue
		}
		for _, tool := range tools {
			if tool.Name == name {
				return ToolMatch{ServerID: cfg.ID, Tool: tool}, true
			}
		}
	}
	return ToolMatch{}, false
}

// ListTools fans out listTools across every known server concurrently,
// settle-all: partial results are returned and per-server failures are
// logged, never propagated.
func (m *Manager) ListTools(ctx context.Context) map[string][]*Tool {
	configs := m.orderedConfigs()
	type result struct {
		id    string
		tools []*Tool
	}
	results := make(chan result, len(configs))
	var wg sync.WaitGroup
	for _, cfg := range configs {
		wg.Add(1)
		go func(cfg ServerConfig) {
			defer wg.Done()
			session, err := m.pool.Acquire(ctx, cfg)
			if err != nil {
				m.logger.Warn("manager: listTools acquire failed", "server_id", cfg.ID, "error", err)
				return
			}
			tools, err := session.ListTools(ctx)
			m.pool.Release(cfg.ID)
			if err != nil {
				m.logger.Warn("manager: listTools failed", "server_id", cfg.ID, "error", err)
				return
			}
			results <- result{id: cfg.ID, tools: tools}
		}(cfg)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string][]*Tool)
	for r := range results {
		out[r.id] = r.tools
	}
	return out
}

// ListResources fans out listResources. If serverID is non-empty, only
// that server is queried; otherwise every known server is, concurrently,
// settle-all.
func (m *Manager) ListResources(ctx context.Context, serverID string) map[string][]*Resource {
	configs := m.orderedConfigs()
	if serverID != "" {
		cfg, ok := m.serverConfig(serverID)
		if !ok {
			return nil
		}
		configs = []ServerConfig{cfg}
	}

	type result struct {
		id  string
		res []*Resource
	}
	results := make(chan result, len(configs))
	var wg sync.WaitGroup
	for _, cfg := range configs {
		wg.Add(1)
		go func(cfg ServerConfig) {
			defer wg.Done()
			session, err := m.pool.Acquire(ctx, cfg)
			if err != nil {
				m.logger.Warn("manager: listResources acquire failed", "server_id", cfg.ID, "error", err)
				return
			}
			res, err := session.ListResources(ctx)
			m.pool.Release(cfg.ID)
			if err != nil {
				m.logger.Warn("manager: listResources failed", "server_id", cfg.ID, "error", err)
				return
			}
			results <- result{id: cfg.ID, res: res}
		}(cfg)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string][]*Resource)
	for r := range results {
		out[r.id] = r.res
	}
	return out
}

// ExecuteTool rejects an unknown serverID outright; otherwise acquires
// the session, executes, and releases it (the release runs even on
// error), and the error is returned to the caller verbatim.
func (m *Manager) ExecuteTool(ctx context.Context, serverID, name string, args map[string]any) (*ExecuteToolResult, error) {
	cfg, ok := m.serverConfig(serverID)
	if !ok {
		return nil, fmt.Errorf("mcp: manager: unknown server %q", serverID)
	}
	session, err := m.pool.Acquire(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer m.pool.Release(serverID)
	return session.ExecuteTool(ctx, name, args)
}

// GetResource acquires serverID's session, fetches uri, and releases the
// session (even on error); the error propagates to the caller verbatim.
func (m *Manager) GetResource(ctx context.Context, serverID, uri string) (*GetResourceResult, error) {
	cfg, ok := m.serverConfig(serverID)
	if !ok {
		return nil, fmt.Errorf("mcp: manager: unknown server %q", serverID)
	}
	session, err := m.pool.Acquire(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer m.pool.Release(serverID)
	return session.GetResource(ctx, uri)
}

// TestConnection acquires serverID's session, pings it, releases it, and
// coalesces any failure (including an unknown server id) to false.
func (m *Manager) TestConnection(ctx context.Context, serverID string) bool {
	cfg, ok := m.serverConfig(serverID)
	if !ok {
		return false
	}
	session, err := m.pool.Acquire(ctx, cfg)
	if err != nil {
		return false
	}
	defer m.pool.Release(serverID)
	return session.Ping(ctx)
}

// HealthCheck concurrently pings every pooled entry, dropping and
// disconnecting any that fails, and returns server id -> healthy.
func (m *Manager) HealthCheck(ctx context.Context) map[string]bool {
	return m.pool.HealthCheck(ctx)
}

// Shutdown disposes the pool: rejects new acquisitions and disconnects
// every pooled entry in parallel, ignoring individual errors.
func (m *Manager) Shutdown(ctx context.Context) error {
	return m.pool.Shutdown(ctx)
}
