// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"errors"
	"fmt"
)

// Sentinel errors a caller can match with errors.Is. *HandshakeError,
// *NotCapableError, *ToolNotFoundError, *NotConnectedError and
// *PoolCapExceededError unwrap to their sentinel so errors.Is works
// through them; *TransportError and *ArgSchemaError unwrap to their
// underlying cause instead.
var (
	ErrNotCapable      = errors.New("mcp: server does not advertise required capability")
	ErrToolNotFound    = errors.New("mcp: tool not found in cache")
	ErrNotConnected    = errors.New("mcp: session is not connected")
	ErrDisposed        = errors.New("mcp: handle has been disposed")
	ErrPoolCapExceeded = errors.New("mcp: connection pool is at capacity")
	ErrTimeout         = errors.New("mcp: request timed out")
	ErrHandshake       = errors.New("mcp: handshake failed")
)

// TransportError reports a failure at the stdio/http/websocket
// substrate: spawn failure, connect failure, write failure, an
// unexpected close, or the child process exiting. It always causes an
// immediate transition to the session's Error or Disconnected state.
type TransportError struct {
	ServerID string
	Kind     string // SpawnFailed, ProcessExited, ConnectFailed, WriteFailed, UnexpectedClose
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mcp: transport %s (server %s): %v", e.Kind, e.ServerID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HandshakeError reports that initialize failed, or the server's
// reported protocol version was rejected.
type HandshakeError struct {
	ServerID string
	Err      error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("mcp: handshake with %s failed: %v", e.ServerID, e.Err)
}

func (e *HandshakeError) Unwrap() error { return errors.Join(ErrHandshake, e.Err) }

// NotCapableError reports that a requested operation needs a server
// capability absent from the cached ServerCapabilities.
type NotCapableError struct {
	ServerID   string
	Capability string
}

func (e *NotCapableError) Error() string {
	return fmt.Sprintf("mcp: server %s does not advertise capability %q", e.ServerID, e.Capability)
}

func (e *NotCapableError) Unwrap() error { return ErrNotCapable }

// ToolNotFoundError reports executeTool called with a name absent from
// the session's tool cache; per spec the call must not round-trip an
// unknown name to the server.
type ToolNotFoundError struct {
	ServerID string
	Name     string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("mcp: tool %q not found on server %s", e.Name, e.ServerID)
}

func (e *ToolNotFoundError) Unwrap() error { return ErrToolNotFound }

// ArgSchemaError collects every schema-validation failure for one
// executeTool call so all problems are reported together rather than
// one at a time.
type ArgSchemaError struct {
	ToolName string
	Missing  []string // required fields absent from the call
	Err      error     // underlying jsonschema.Resolved.Validate error, if any
}

func (e *ArgSchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("mcp: tool %q: missing required field(s) %v", e.ToolName, e.Missing)
	}
	return fmt.Sprintf("mcp: tool %q: argument validation failed: %v", e.ToolName, e.Err)
}

func (e *ArgSchemaError) Unwrap() error { return e.Err }

// ExecutionError reports a tool-level failure: the server ran the tool
// and returned isError=true. This is distinct from a JSON-RPC protocol
// error, which surfaces as *ServerError instead.
type ExecutionError struct {
	ToolName string
	Content  []Content
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("mcp: tool %q returned an error result", e.ToolName)
}

// ServerError wraps a JSON-RPC error object returned by the server
// (MethodNotFound, InvalidParams, ServerError, ToolExecutionError, ...).
type ServerError struct {
	Code    int
	Message string
	Data    any
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("mcp: server error %d: %s", e.Code, e.Message)
}

// NotConnectedError reports an operation attempted on a session that is
// not in the Ready state.
type NotConnectedError struct {
	ServerID string
	State    string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("mcp: server %s is not connected (state %s)", e.ServerID, e.State)
}

func (e *NotConnectedError) Unwrap() error { return ErrNotConnected }

// PoolCapExceededError reports the pool refusing a new connection
// because the fleet cap has been reached.
type PoolCapExceededError struct {
	Cap int
}

func (e *PoolCapExceededError) Error() string {
	return fmt.Sprintf("mcp: connection pool at capacity (%d)", e.Cap)
}

func (e *PoolCapExceededError) Unwrap() error { return ErrPoolCapExceeded }
