// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package mcp is a client runtime for the Model Context Protocol: it
// connects to one or many MCP servers over stdio, HTTP, or WebSocket,
// validates and executes their tools, and reads their resources and
// prompts.
//
// A single server is represented internally by internal/clientsession's
// *Session, which drives the handshake/discover/ready state machine for
// one connection. Most callers never touch a Session directly; instead
// they build a Manager, register ServerConfigs, and call its exported
// operations (ExecuteTool, ListTools, GetResource, TestConnection), which
// acquire and release pooled sessions on their behalf. The pool (see
// internal/pool) caches at most one live session per server id, subject
// to a fleet-wide connection cap, idle eviction, and a use-count-driven
// renewal cycle.
package mcp
