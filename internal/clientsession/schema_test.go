// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package clientsession

import (
	"testing"

	"github.com/mcpfleet/runtime/mcp"
)

func echoTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "echo",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []any{"text"},
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
		},
	}
}

func TestSchemaCache_ResolveAndCache(t *testing.T) {
	c := newSchemaCache()
	tool := echoTool()

	r1, err := c.resolve(tool)
	if err != nil {
		t.Fatalf("resolve() err = %v", err)
	}
	if r1 == nil {
		t.Fatal("resolve() returned nil Resolved for a tool with an input schema")
	}
	r2, err := c.resolve(tool)
	if err != nil {
		t.Fatalf("resolve() second call err = %v", err)
	}
	if r1 != r2 {
		t.Error("resolve() did not return the cached *jsonschema.Resolved on the second call")
	}
}

func TestSchemaCache_NoInputSchema(t *testing.T) {
	c := newSchemaCache()
	tool := &mcp.Tool{Name: "noop"}
	r, err := c.resolve(tool)
	if err != nil {
		t.Fatalf("resolve() err = %v", err)
	}
	if r != nil {
		t.Error("resolve() for a tool with no InputSchema should return nil, nil")
	}
}

func TestValidateArguments_MissingRequiredCollected(t *testing.T) {
	c := newSchemaCache()
	tool := &mcp.Tool{
		Name: "make",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []any{"name", "count"},
			"properties": map[string]any{
				"name":  map[string]any{"type": "string"},
				"count": map[string]any{"type": "integer"},
			},
		},
	}
	resolved, err := c.resolve(tool)
	if err != nil {
		t.Fatalf("resolve() err = %v", err)
	}

	args := map[string]any{}
	err = validateArguments(resolved, tool, &args)
	if err == nil {
		t.Fatal("validateArguments() err = nil, want ArgSchemaError naming missing fields")
	}
	argErr, ok := err.(*mcp.ArgSchemaError)
	if !ok {
		t.Fatalf("validateArguments() err type = %T, want *mcp.ArgSchemaError", err)
	}
	if len(argErr.Missing) != 2 {
		t.Errorf("ArgSchemaError.Missing = %v, want both name and count", argErr.Missing)
	}
}

func TestValidateArguments_Valid(t *testing.T) {
	c := newSchemaCache()
	tool := echoTool()
	resolved, err := c.resolve(tool)
	if err != nil {
		t.Fatalf("resolve() err = %v", err)
	}
	args := map[string]any{"text": "hello"}
	if err := validateArguments(resolved, tool, &args); err != nil {
		t.Errorf("validateArguments() err = %v, want nil", err)
	}
}
