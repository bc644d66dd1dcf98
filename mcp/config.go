// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import "time"

// TransportKind names a server's wire substrate.
type TransportKind string

const (
	TransportStdio     TransportKind = "stdio"
	TransportHTTP      TransportKind = "http"
	TransportWebSocket TransportKind = "websocket"
)

// Auth is one of NoAuth, BearerAuth, or OAuth2Auth.
type Auth interface {
	isAuth()
}

// NoAuth sends no Authorization header.
type NoAuth struct{}

func (NoAuth) isAuth() {}

// BearerAuth sets a static "Authorization: Bearer <Token>" header on
// http-transport requests.
type BearerAuth struct {
	Token string
}

func (BearerAuth) isAuth() {}

// OAuth2Auth wires golang.org/x/oauth2 token management into the http
// transport's requests. TokenSource is consulted for a fresh token on
// connect and re-consulted after a 401. The websocket transport does not
// apply Auth of any kind; its handshake carries only Headers.
type OAuth2Auth struct {
	TokenSource TokenSource
}

func (OAuth2Auth) isAuth() {}

// ReadinessMode controls how an http-transport server's health probe is
// interpreted. See internal/transport.ReadinessMode for the mechanics;
// this is the config-facing mirror of that type.
type ReadinessMode string

const (
	ReadinessLenient ReadinessMode = "lenient"
	ReadinessStrict  ReadinessMode = "strict"
)

// ServerConfig is the immutable record identifying and parameterizing
// one session. It is never mutated after a session is constructed from
// it; reconfiguring a server means registering a new ServerConfig under
// the same ID, which the manager treats as a replacement.
type ServerConfig struct {
	ID   string
	Name string

	Transport TransportKind

	// Stdio-only.
	Command string
	Args    []string
	Env     map[string]string

	// HTTP/WebSocket-only.
	URL       string
	Headers   map[string]string
	Auth      Auth
	Readiness ReadinessMode

	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	KeepAlive      bool

	WSPingInterval time.Duration
	WSPongTimeout  time.Duration

	StdioReadyDelay    time.Duration
	StdioGraceShutdown time.Duration
}

// WithDefaults returns a copy of c with every unset knob replaced by its
// spec-mandated default.
func (c ServerConfig) WithDefaults() ServerConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.WSPingInterval <= 0 {
		c.WSPingInterval = 30 * time.Second
	}
	if c.WSPongTimeout <= 0 {
		c.WSPongTimeout = 5 * time.Second
	}
	if c.StdioReadyDelay <= 0 {
		c.StdioReadyDelay = 100 * time.Millisecond
	}
	if c.StdioGraceShutdown <= 0 {
		c.StdioGraceShutdown = 5 * time.Second
	}
	if c.Readiness == "" {
		c.Readiness = ReadinessLenient
	}
	return c
}

// PoolConfig parameterizes the connection pool shared by every server
// the manager knows about.
type PoolConfig struct {
	MaxConnections int
	IdleTimeout    time.Duration
	MaxUseCount    int

	ReconnectMaxAttempts int
	ReconnectBaseDelay   time.Duration

	// BlockOnRenewal makes a use-count-triggered renewal synchronous:
	// Acquire blocks until the replacement session is dialed (or fails)
	// before returning, instead of serving the existing session while the
	// replacement connects in the background. Default false, matching
	// spec's renewal description ("schedule an asynchronous renewal;
	// return the existing session"). Set true for a server that cannot
	// tolerate two live sessions under the same client identity at once
	// (spec's open redesign question on renewal double-connections).
	BlockOnRenewal bool
}

// WithDefaults returns a copy of c with every unset knob replaced by its
// spec-mandated default.
func (c PoolConfig) WithDefaults() PoolConfig {
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.MaxUseCount <= 0 {
		c.MaxUseCount = 1000
	}
	if c.ReconnectMaxAttempts <= 0 {
		c.ReconnectMaxAttempts = 5
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = time.Second
	}
	return c
}
