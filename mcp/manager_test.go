// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcpfleet/runtime/internal/jsonrpc2"
)

// newFakeToolServer answers initialize (advertising a tools capability)
// and tools/list with a single "echo" tool, and tools/execute by echoing
// its "text" argument back as TextContent.
func newFakeToolServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		var raw json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&raw)
		f, _, err := jsonrpc2.Decode(raw)
		if err != nil || f == nil || f.ID == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		respond := func(result any) {
			data, _ := json.Marshal(result)
			out, _ := jsonrpc2.Encode(&jsonrpc2.Frame{ID: f.ID, Result: data})
			w.Header().Set("Content-Type", "application/json")
			w.Write(out)
		}
		switch f.Method {
		case MethodInitialize:
			respond(InitializeResult{
				ProtocolVersion: "2025-mcpfleet-1",
				ServerInfo:      Implementation{Name: "fake-tools", Version: "1.0.0"},
				Capabilities:    ServerCapabilities{Tools: &ToolCapabilities{}},
			})
		case MethodListTools:
			respond(ListToolsResult{Tools: []*Tool{{
				Name: "echo",
				InputSchema: map[string]any{
					"type":       "object",
					"required":   []any{"text"},
					"properties": map[string]any{"text": map[string]any{"type": "string"}},
				},
			}}})
		case MethodExecuteTool:
			var params ExecuteToolParams
			_ = json.Unmarshal(f.Params, &params)
			text, _ := params.Arguments["text"].(string)
			respond(map[string]any{
				"content": []map[string]any{{"type": "text", "text": text}},
				"isError": false,
			})
		case MethodPing:
			respond(map[string]any{})
		default:
			respond(map[string]any{})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(id, url string) ServerConfig {
	return ServerConfig{ID: id, Transport: TransportHTTP, URL: url}.WithDefaults()
}

func TestManager_ExecuteToolAndFindTool(t *testing.T) {
	srv := newFakeToolServer(t)
	m := NewManager(PoolConfig{}, nil)
	defer m.Shutdown(context.Background())
	m.AddServer(testConfig("s1", srv.URL))

	match, ok := m.FindTool(context.Background(), "echo")
	if !ok {
		t.Fatal("FindTool() ok = false, want true")
	}
	if match.ServerID != "s1" {
		t.Errorf("FindTool() server = %q, want s1", match.ServerID)
	}

	result, err := m.ExecuteTool(context.Background(), "s1", "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("ExecuteTool() err = %v", err)
	}
	if len(result.Content) != 1 {
		t.Fatalf("ExecuteTool() content = %v, want one block", result.Content)
	}
	tc, ok := result.Content[0].(*TextContent)
	if !ok || tc.Text != "hi" {
		t.Errorf("ExecuteTool() content[0] = %+v, want TextContent{Text: hi}", result.Content[0])
	}
}

func TestManager_ExecuteToolUnknownServer(t *testing.T) {
	m := NewManager(PoolConfig{}, nil)
	defer m.Shutdown(context.Background())
	if _, err := m.ExecuteTool(context.Background(), "missing", "echo", nil); err == nil {
		t.Fatal("ExecuteTool() err = nil, want unknown-server error")
	}
}

func TestManager_ListToolsAggregatesAcrossServers(t *testing.T) {
	srvA, srvB := newFakeToolServer(t), newFakeToolServer(t)
	m := NewManager(PoolConfig{}, nil)
	defer m.Shutdown(context.Background())
	m.AddServer(testConfig("a", srvA.URL))
	m.AddServer(testConfig("b", srvB.URL))

	got := m.ListTools(context.Background())
	if len(got) != 2 {
		t.Fatalf("ListTools() = %v, want entries for both servers", got)
	}
	for _, id := range []string{"a", "b"} {
		if len(got[id]) != 1 || got[id][0].Name != "echo" {
			t.Errorf("ListTools()[%q] = %v, want one echo tool", id, got[id])
		}
	}
}

func TestManager_TestConnection(t *testing.T) {
	srv := newFakeToolServer(t)
	m := NewManager(PoolConfig{}, nil)
	defer m.Shutdown(context.Background())
	m.AddServer(testConfig("s1", srv.URL))

	if !m.TestConnection(context.Background(), "s1") {
		t.Error("TestConnection() = false, want true")
	}
	if m.TestConnection(context.Background(), "missing") {
		t.Error("TestConnection() for unknown server = true, want false")
	}
}
