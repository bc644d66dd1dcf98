// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

// EventKind names a lifecycle event a session emits.
type EventKind string

const (
	EventConnectionCreated     EventKind = "connectionCreated"
	EventConnectionLost        EventKind = "connectionLost"
	EventConnectionError       EventKind = "connectionError"
	EventConnectionInitialized EventKind = "connectionInitialized"
	EventConnectionRenewed     EventKind = "connectionRenewed"
	EventConnectionClosed      EventKind = "connectionClosed"
	EventRenewalFailed         EventKind = "renewalFailed"
	EventCleanupError          EventKind = "cleanupError"
)

// Event is a lifecycle notification a session emits on its own Events
// channel, for a host's status UI or logging. The pool and manager emit
// none.
type Event struct {
	Kind     EventKind
	ServerID string
	Details  string
	Err      error
}
