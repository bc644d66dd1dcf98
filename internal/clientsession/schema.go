// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package clientsession

import (
	"fmt"
	"sync"

	"github.com/mcpfleet/runtime/internal/json"
	"github.com/mcpfleet/runtime/jsonschema"
	"github.com/mcpfleet/runtime/mcp"
)

// schemaCache resolves and caches a tool's input schema, keyed by tool
// name, mirroring the teacher's own schema-resolution caching (there it
// keys by Go reflect.Type; a client has no Go type for a server-declared
// tool, so the tool name stands in).
type schemaCache struct {
	mu    sync.Mutex
	byTool map[string]*jsonschema.Resolved
}

func newSchemaCache() *schemaCache {
	return &schemaCache{byTool: make(map[string]*jsonschema.Resolved)}
}

func (c *schemaCache) resolve(tool *mcp.Tool) (*jsonschema.Resolved, error) {
	c.mu.Lock()
	if r, ok := c.byTool[tool.Name]; ok {
		c.mu.Unlock()
		return r, nil
	}
	c.mu.Unlock()

	if tool.InputSchema == nil {
		return nil, nil
	}
	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema for %q: %w", tool.Name, err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("parse input schema for %q: %w", tool.Name, err)
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
	if err != nil {
		return nil, fmt.Errorf("resolve input schema for %q: %w", tool.Name, err)
	}

	c.mu.Lock()
	c.byTool[tool.Name] = resolved
	c.mu.Unlock()
	return resolved, nil
}

func (c *schemaCache) forget(toolName string) {
	c.mu.Lock()
	delete(c.byTool, toolName)
	c.mu.Unlock()
}

func (c *schemaCache) reset() {
	c.mu.Lock()
	c.byTool = make(map[string]*jsonschema.Resolved)
	c.mu.Unlock()
}

// validateArguments checks args against tool's resolved input schema.
// Missing required top-level fields are checked first, on args as given,
// and collected so they can all be named in one *mcp.ArgSchemaError, per
// spec's "collected and reported together" requirement. Otherwise schema
// defaults are applied and any other validation failure (type mismatch,
// nested constraint) is reported via the underlying jsonschema error.
func validateArguments(resolved *jsonschema.Resolved, tool *mcp.Tool, args *map[string]any) error {
	if resolved == nil {
		return nil
	}
	if *args == nil {
		*args = map[string]any{}
	}

	missing := missingRequiredFields(tool.InputSchema, *args)
	if len(missing) > 0 {
		return &mcp.ArgSchemaError{ToolName: tool.Name, Missing: missing}
	}

	if err := resolved.ApplyDefaults(args); err != nil {
		return &mcp.ArgSchemaError{ToolName: tool.Name, Err: fmt.Errorf("applying defaults: %w", err)}
	}
	if err := resolved.Validate(*args); err != nil {
		return &mcp.ArgSchemaError{ToolName: tool.Name, Err: err}
	}
	return nil
}

// missingRequiredFields inspects the raw schema's top-level "required"
// array against args directly, rather than relying on Resolved.Validate's
// error shape, so every absent field can be named in a single pass
// regardless of how the underlying jsonschema library formats its
// validation error.
func missingRequiredFields(inputSchema any, args map[string]any) []string {
	obj, ok := inputSchema.(map[string]any)
	if !ok {
		return nil
	}
	rawRequired, ok := obj["required"]
	if !ok {
		return nil
	}
	reqList, ok := rawRequired.([]any)
	if !ok {
		return nil
	}
	var missing []string
	for _, r := range reqList {
		name, ok := r.(string)
		if !ok {
			continue
		}
		if _, present := args[name]; !present {
			missing = append(missing, name)
		}
	}
	return missing
}
