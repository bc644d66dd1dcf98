// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mcpfleet/runtime/internal/clientsession"
	"github.com/mcpfleet/runtime/internal/jsonrpc2"
	"github.com/mcpfleet/runtime/mcp"
)

// newFakeServer answers initialize/ping over MCP's HTTP framing, with no
// advertised capabilities, so discovery is a no-op and tests only
// exercise pool bookkeeping. pingFails lets a test flip a server to
// failing pings mid-test (health-check eviction).
func newFakeServer(t *testing.T, pingFails *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.URL.Path != "/rpc" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var raw json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&raw)
		f, _, err := jsonrpc2.Decode(raw)
		if err != nil || f == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		if f.ID == nil {
			// Notification; nothing to answer.
			w.WriteHeader(http.StatusOK)
			return
		}
		switch f.Method {
		case mcp.MethodInitialize:
			result := mcp.InitializeResult{
				ProtocolVersion: "2025-mcpfleet-1",
				ServerInfo:      mcp.Implementation{Name: "fake", Version: "1.0.0"},
			}
			data, _ := json.Marshal(result)
			resp := &jsonrpc2.Frame{ID: f.ID, Result: data}
			out, _ := jsonrpc2.Encode(resp)
			w.Header().Set("Content-Type", "application/json")
			w.Write(out)
		case mcp.MethodPing:
			if pingFails != nil && pingFails.Load() {
				resp := &jsonrpc2.Frame{ID: f.ID, Error: &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: "ping failed"}}
				out, _ := jsonrpc2.Encode(resp)
				w.Header().Set("Content-Type", "application/json")
				w.Write(out)
				return
			}
			resp := &jsonrpc2.Frame{ID: f.ID, Result: []byte(`{}`)}
			out, _ := jsonrpc2.Encode(resp)
			w.Header().Set("Content-Type", "application/json")
			w.Write(out)
		default:
			resp := &jsonrpc2.Frame{ID: f.ID, Result: []byte(`{}`)}
			out, _ := jsonrpc2.Encode(resp)
			w.Header().Set("Content-Type", "application/json")
			w.Write(out)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testServerConfig(id, url string) mcp.ServerConfig {
	return mcp.ServerConfig{
		ID:        id,
		Transport: mcp.TransportHTTP,
		URL:       url,
	}.WithDefaults()
}

func TestPool_AcquireRelease(t *testing.T) {
	srv := newFakeServer(t, nil)
	p := New(mcp.PoolConfig{}, nil)
	defer p.Shutdown(context.Background())

	cfg := testServerConfig("s1", srv.URL)
	s, err := p.Acquire(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Acquire() err = %v", err)
	}
	if s.State() != clientsession.StateReady {
		t.Errorf("session state = %v, want Ready", s.State())
	}
	p.Release("s1")

	s2, err := p.Acquire(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second Acquire() err = %v", err)
	}
	if s2 != s {
		t.Error("second Acquire() opened a new session instead of reusing the cached entry")
	}
}

func TestPool_ConcurrentAcquireJoinsSingleOpen(t *testing.T) {
	srv := newFakeServer(t, nil)
	p := New(mcp.PoolConfig{}, nil)
	defer p.Shutdown(context.Background())
	cfg := testServerConfig("s1", srv.URL)

	const n = 8
	sessions := make(chan any, n)
	for i := 0; i < n; i++ {
		go func() {
			s, err := p.Acquire(context.Background(), cfg)
			if err != nil {
				sessions <- err
				return
			}
			sessions <- s
		}()
	}
	var first any
	for i := 0; i < n; i++ {
		got := <-sessions
		if err, ok := got.(error); ok {
			t.Fatalf("Acquire() err = %v", err)
		}
		if first == nil {
			first = got
		} else if got != first {
			t.Error("concurrent Acquire() calls for the same id returned distinct sessions")
		}
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1 cached entry", p.Len())
	}
}

func TestPool_FleetCapEvictsLRU(t *testing.T) {
	srvA, srvB, srvC, srvD := newFakeServer(t, nil), newFakeServer(t, nil), newFakeServer(t, nil), newFakeServer(t, nil)
	p := New(mcp.PoolConfig{MaxConnections: 2}, nil)
	defer p.Shutdown(context.Background())

	for _, pair := range []struct {
		id, url string
	}{{"a", srvA.URL}, {"b", srvB.URL}, {"c", srvC.URL}} {
		if _, err := p.Acquire(context.Background(), testServerConfig(pair.id, pair.url)); err != nil {
			t.Fatalf("Acquire(%s) err = %v", pair.id, err)
		}
		p.Release(pair.id)
	}

	if _, err := p.Acquire(context.Background(), testServerConfig("d", srvD.URL)); err != nil {
		t.Fatalf("Acquire(d) err = %v", err)
	}
	time.Sleep(50 * time.Millisecond) // disconnect of the evicted entry runs asynchronously

	if p.Len() > 3 {
		t.Errorf("Len() = %d, want eviction to keep the fleet at or under cap+1 overage", p.Len())
	}
	p.mu.Lock()
	_, aStillCached := p.entries["a"]
	p.mu.Unlock()
	if aStillCached {
		t.Error("least-recently-used entry 'a' was not evicted")
	}
}

func TestPool_HealthCheckDropsFailingPing(t *testing.T) {
	var failing atomic.Bool
	srv := newFakeServer(t, &failing)
	p := New(mcp.PoolConfig{}, nil)
	defer p.Shutdown(context.Background())
	cfg := testServerConfig("s1", srv.URL)

	if _, err := p.Acquire(context.Background(), cfg); err != nil {
		t.Fatalf("Acquire() err = %v", err)
	}
	p.Release("s1")

	failing.Store(true)
	results := p.HealthCheck(context.Background())
	if results["s1"] {
		t.Error("HealthCheck() reported healthy for a failing ping")
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d, want the unhealthy entry removed", p.Len())
	}
}

func TestPool_ShutdownRejectsNewAcquisitions(t *testing.T) {
	srv := newFakeServer(t, nil)
	p := New(mcp.PoolConfig{}, nil)
	cfg := testServerConfig("s1", srv.URL)
	if _, err := p.Acquire(context.Background(), cfg); err != nil {
		t.Fatalf("Acquire() err = %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() err = %v", err)
	}
	if _, err := p.Acquire(context.Background(), cfg); err != mcp.ErrDisposed {
		t.Errorf("Acquire() after Shutdown() err = %v, want ErrDisposed", err)
	}
}

// TestPool_BlockOnRenewalSwapsSessionSynchronously checks that with
// BlockOnRenewal set, a use-count-triggered renewal finishes (and the
// replacement session is in place) before Acquire returns.
func TestPool_BlockOnRenewalSwapsSessionSynchronously(t *testing.T) {
	srv := newFakeServer(t, nil)
	p := New(mcp.PoolConfig{MaxUseCount: 1, BlockOnRenewal: true}, nil)
	defer p.Shutdown(context.Background())
	cfg := testServerConfig("s1", srv.URL)

	s1, err := p.Acquire(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first Acquire() err = %v", err)
	}
	p.Release("s1")

	s2, err := p.Acquire(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second Acquire() err = %v", err)
	}
	if s2 == s1 {
		t.Error("second Acquire() should have returned a synchronously-renewed session, got the same one")
	}
}
