// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package clientsession drives the MCP protocol state machine for one
// server: handshake, capability-gated discovery, tool/resource/prompt
// caching, and dispatch of server-initiated notifications. It is the
// "D" component of this runtime: everything above it (the pool, the
// manager) only ever sees a *Session's exported operations.
package clientsession

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mcpfleet/runtime/internal/json"
	"github.com/mcpfleet/runtime/internal/jsonrpc2"
	"github.com/mcpfleet/runtime/internal/rpc"
	"github.com/mcpfleet/runtime/internal/transport"
	"github.com/mcpfleet/runtime/internal/uriset"
	"github.com/mcpfleet/runtime/mcp"
)

const protocolVersion = "2025-mcpfleet-1"

// State is the session's position in the protocol state machine
// (spec.md §4.D): Disconnected -> Connecting -> Handshaking ->
// Discovering -> Ready, with any state able to fall to Error or back to
// Disconnected.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateDiscovering
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateDiscovering:
		return "discovering"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Session is a live connection to one MCP server, over whichever
// transport its ServerConfig names.
type Session struct {
	cfg    mcp.ServerConfig
	logger *slog.Logger

	tr   transport.Transport
	corr *rpc.Correlator

	schemas  *schemaCache
	progress *progressTracker
	watched  *uriset.Set

	mu         sync.RWMutex
	state      State
	caps       *mcp.ServerCapabilities
	serverInfo mcp.Implementation
	tools      map[string]*mcp.Tool
	toolOrder  []string
	resources  map[string]*mcp.Resource
	resTmpls   map[string]*mcp.ResourceTemplate
	prompts    map[string]*mcp.Prompt

	events    chan mcp.Event
	pumpDone  chan struct{}
	cancelPmp context.CancelFunc
}

// New builds a Session for cfg. The transport is not constructed or
// connected until Connect.
func New(cfg mcp.ServerConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:      cfg.WithDefaults(),
		logger:   logger,
		schemas:  newSchemaCache(),
		progress: newProgressTracker(),
		watched:  uriset.New(),
		state:    StateDisconnected,
		events:   make(chan mcp.Event, 32),
	}
}

// Events returns the channel of lifecycle events this session emits
// (connectionInitialized, connectionLost, connectionError, ...) for a
// host's status UI. The pool does not read this channel; it checks
// State on each Acquire and opens a new session when the cached one is
// not Ready.
func (s *Session) Events() <-chan mcp.Event { return s.events }

func (s *Session) emit(ev mcp.Event) {
	ev.ServerID = s.cfg.ID
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("clientsession: event dropped, channel full", "server_id", s.cfg.ID)
	}
}

// State reports the session's current position in the state machine.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(to State) {
	s.mu.Lock()
	s.state = to
	s.mu.Unlock()
}

// ServerInfo reports the implementation the server identified itself
// as during initialize; valid only once State is Discovering or later.
func (s *Session) ServerInfo() mcp.Implementation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverInfo
}

func (s *Session) buildTransport() (transport.Transport, error) {
	base := transport.Options{
		ServerID:       s.cfg.ID,
		Logger:         s.logger,
		ConnectTimeout: int(s.cfg.ConnectTimeout.Milliseconds()),
	}
	switch s.cfg.Transport {
	case mcp.TransportStdio:
		return transport.NewStdioTransport(transport.StdioOptions{
			Options:       base,
			Command:       s.cfg.Command,
			Args:          s.cfg.Args,
			Env:           s.cfg.Env,
			ReadyDelay:    s.cfg.StdioReadyDelay,
			GraceShutdown: s.cfg.StdioGraceShutdown,
		}), nil
	case mcp.TransportHTTP:
		client := &http.Client{
			Timeout:   s.cfg.RequestTimeout,
			Transport: mcp.RoundTripperFor(s.cfg.Auth, http.DefaultTransport),
		}
		readiness := transport.ReadinessLenient
		if s.cfg.Readiness == mcp.ReadinessStrict {
			readiness = transport.ReadinessStrict
		}
		return transport.NewHTTPTransport(transport.HTTPOptions{
			Options:   base,
			BaseURL:   s.cfg.URL,
			Headers:   s.cfg.Headers,
			Client:    client,
			Readiness: readiness,
		}), nil
	case mcp.TransportWebSocket:
		return transport.NewWebSocketTransport(transport.WebSocketOptions{
			Options:              base,
			URL:                  s.cfg.URL,
			Header:               headerFromMap(s.cfg.Headers),
			PingInterval:         s.cfg.WSPingInterval,
			PongTimeout:          s.cfg.WSPongTimeout,
			ReconnectMaxAttempts: s.cfg.MaxRetries,
			ReconnectBaseDelay:   s.cfg.RetryDelay,
		}), nil
	default:
		return nil, fmt.Errorf("clientsession: unknown transport kind %q", s.cfg.Transport)
	}
}

func headerFromMap(m map[string]string) http.Header {
	h := http.Header{}
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// Connect opens the transport, performs the initialize handshake, and
// runs tool/resource discovery, leaving the session Ready on success.
func (s *Session) Connect(ctx context.Context) error {
	s.setState(StateConnecting)

	tr, err := s.buildTransport()
	if err != nil {
		s.setState(StateError)
		return err
	}
	s.tr = tr
	s.corr = rpc.New(tr, s.cfg.ID)

	pumpCtx, cancel := context.WithCancel(context.Background())
	s.cancelPmp = cancel
	s.pumpDone = make(chan struct{})
	go s.pumpEvents(pumpCtx, tr)

	notifCh := make(chan rpc.Notification, 64)
	for _, m := range []string{
		mcp.NotificationLog,
		mcp.NotificationResourceUpdated,
		mcp.NotificationProgress,
		mcp.NotificationToolListChanged,
		mcp.NotificationResourceListChanged,
		mcp.NotificationPromptListChanged,
	} {
		s.corr.Subscribe(m, notifCh)
	}
	s.corr.Subscribe("", notifCh)
	go s.notificationLoop(notifCh)

	connectCtx := ctx
	if s.cfg.ConnectTimeout > 0 {
		var cancelConnect context.CancelFunc
		connectCtx, cancelConnect = context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer cancelConnect()
	}
	if err := tr.Connect(connectCtx); err != nil {
		s.setState(StateError)
		return &mcp.TransportError{ServerID: s.cfg.ID, Kind: "ConnectFailed", Err: err}
	}

	s.setState(StateHandshaking)
	if err := s.handshake(ctx); err != nil {
		s.setState(StateError)
		return err
	}

	s.setState(StateDiscovering)
	s.discover(ctx)

	s.setState(StateReady)
	s.emit(mcp.Event{Kind: mcp.EventConnectionInitialized, Details: s.serverInfo.Name})
	return nil
}

func (s *Session) handshake(ctx context.Context) error {
	params := mcp.InitializeParams{
		ProtocolVersion: protocolVersion,
		ClientInfo:      mcp.Implementation{Name: "mcpfleet-runtime", Version: "0.1.0"},
		Capabilities:    mcp.ClientCapabilities{},
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return &mcp.HandshakeError{ServerID: s.cfg.ID, Err: err}
	}
	result, err := s.corr.Request(ctx, mcp.MethodInitialize, raw, s.cfg.RequestTimeout)
	if err != nil {
		return &mcp.HandshakeError{ServerID: s.cfg.ID, Err: err}
	}
	var initResult mcp.InitializeResult
	if err := json.Unmarshal(result, &initResult); err != nil {
		return &mcp.HandshakeError{ServerID: s.cfg.ID, Err: err}
	}

	s.mu.Lock()
	s.caps = (&initResult.Capabilities).Clone()
	s.serverInfo = initResult.ServerInfo
	s.mu.Unlock()

	return s.corr.Notify(ctx, mcp.NotificationInitialized, nil)
}

// discover fetches the tool and resource catalogs in parallel; a
// failure in either is logged but non-fatal, per spec.md §4.D.
func (s *Session) discover(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.refreshTools(ctx); err != nil {
			s.logger.Warn("clientsession: tool discovery failed", "server_id", s.cfg.ID, "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := s.refreshResources(ctx); err != nil {
			s.logger.Warn("clientsession: resource discovery failed", "server_id", s.cfg.ID, "error", err)
		}
	}()
	wg.Wait()
	if err := s.refreshPrompts(ctx); err != nil {
		s.logger.Warn("clientsession: prompt discovery failed", "server_id", s.cfg.ID, "error", err)
	}
}

func (s *Session) hasCapability(check func(*mcp.ServerCapabilities) bool) bool {
	s.mu.RLock()
	caps := s.caps
	s.mu.RUnlock()
	return caps != nil && check(caps)
}

func (s *Session) refreshTools(ctx context.Context) error {
	if !s.hasCapability(func(c *mcp.ServerCapabilities) bool { return c.Tools != nil }) {
		return nil
	}
	raw, err := s.corr.Request(ctx, mcp.MethodListTools, nil, s.cfg.RequestTimeout)
	if err != nil {
		return classifyRPCError(err)
	}
	var result mcp.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	tools := make(map[string]*mcp.Tool, len(result.Tools))
	order := make([]string, 0, len(result.Tools))
	for _, t := range result.Tools {
		tools[t.Name] = t
		order = append(order, t.Name)
	}
	s.mu.Lock()
	s.tools = tools
	s.toolOrder = order
	s.mu.Unlock()
	s.schemas.reset()
	return nil
}

func (s *Session) refreshResources(ctx context.Context) error {
	if !s.hasCapability(func(c *mcp.ServerCapabilities) bool { return c.Resources != nil }) {
		return nil
	}
	raw, err := s.corr.Request(ctx, mcp.MethodListResources, nil, s.cfg.RequestTimeout)
	if err != nil {
		return classifyRPCError(err)
	}
	var result mcp.ListResourcesResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	resources := make(map[string]*mcp.Resource, len(result.Resources))
	for _, r := range result.Resources {
		resources[r.URI] = r
	}

	rawTmpl, err := s.corr.Request(ctx, mcp.MethodListResourceTemplates, nil, s.cfg.RequestTimeout)
	resTmpls := map[string]*mcp.ResourceTemplate{}
	if err == nil {
		var tmplResult mcp.ListResourceTemplatesResult
		if err := json.Unmarshal(rawTmpl, &tmplResult); err == nil {
			for _, t := range tmplResult.ResourceTemplates {
				resTmpls[t.URITemplate] = t
			}
		}
	}

	s.mu.Lock()
	s.resources = resources
	s.resTmpls = resTmpls
	s.mu.Unlock()
	return nil
}

func (s *Session) refreshPrompts(ctx context.Context) error {
	if !s.hasCapability(func(c *mcp.ServerCapabilities) bool { return c.Prompts != nil }) {
		return nil
	}
	raw, err := s.corr.Request(ctx, mcp.MethodListPrompts, nil, s.cfg.RequestTimeout)
	if err != nil {
		return classifyRPCError(err)
	}
	var result mcp.ListPromptsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	prompts := make(map[string]*mcp.Prompt, len(result.Prompts))
	for _, p := range result.Prompts {
		prompts[p.Name] = p
	}
	s.mu.Lock()
	s.prompts = prompts
	s.mu.Unlock()
	return nil
}

func (s *Session) invalidateTools() {
	go func() {
		if err := s.refreshTools(context.Background()); err != nil {
			s.logger.Warn("clientsession: tool refresh after list_changed failed", "server_id", s.cfg.ID, "error", err)
		}
	}()
}

func (s *Session) invalidateResources() {
	go func() {
		if err := s.refreshResources(context.Background()); err != nil {
			s.logger.Warn("clientsession: resource refresh after list_changed failed", "server_id", s.cfg.ID, "error", err)
		}
	}()
}

func (s *Session) invalidatePrompts() {
	go func() {
		if err := s.refreshPrompts(context.Background()); err != nil {
			s.logger.Warn("clientsession: prompt refresh after list_changed failed", "server_id", s.cfg.ID, "error", err)
		}
	}()
}

func (s *Session) refetchResource(uri string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()
	if _, err := s.GetResource(ctx, uri); err != nil {
		s.logger.Warn("clientsession: re-fetch after resources/updated failed", "server_id", s.cfg.ID, "uri", uri, "error", err)
	}
}

// ListTools returns the cached tool catalog, fetching it if the cache
// is empty.
func (s *Session) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	s.mu.RLock()
	n := len(s.tools)
	s.mu.RUnlock()
	if n == 0 {
		if err := s.refreshTools(ctx); err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*mcp.Tool, 0, len(s.toolOrder))
	for _, name := range s.toolOrder {
		out = append(out, s.tools[name])
	}
	return out, nil
}

// ListResources returns the cached resource catalog, fetching it if the
// cache is empty.
func (s *Session) ListResources(ctx context.Context) ([]*mcp.Resource, error) {
	s.mu.RLock()
	n := len(s.resources)
	s.mu.RUnlock()
	if n == 0 {
		if err := s.refreshResources(ctx); err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*mcp.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		out = append(out, r)
	}
	return out, nil
}

// ListPrompts returns the cached prompt catalog, fetching it if the
// cache is empty.
func (s *Session) ListPrompts(ctx context.Context) ([]*mcp.Prompt, error) {
	s.mu.RLock()
	n := len(s.prompts)
	s.mu.RUnlock()
	if n == 0 {
		if err := s.refreshPrompts(ctx); err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*mcp.Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, p)
	}
	return out, nil
}

// ExecuteTool invokes a tool by name. It rejects ToolNotFound without
// round-tripping to the server if name is absent from the tool cache,
// and validates args against the tool's input schema pre-flight.
func (s *Session) ExecuteTool(ctx context.Context, name string, args map[string]any) (*mcp.ExecuteToolResult, error) {
	if !s.hasCapability(func(c *mcp.ServerCapabilities) bool { return c.Tools != nil }) {
		return nil, &mcp.NotCapableError{ServerID: s.cfg.ID, Capability: "tools.execute"}
	}
	s.mu.RLock()
	tool, ok := s.tools[name]
	s.mu.RUnlock()
	if !ok {
		return nil, &mcp.ToolNotFoundError{ServerID: s.cfg.ID, Name: name}
	}

	resolved, err := s.schemas.resolve(tool)
	if err != nil {
		return nil, &mcp.ArgSchemaError{ToolName: name, Err: err}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := validateArguments(resolved, tool, &args); err != nil {
		return nil, err
	}

	token := newProgressToken()
	progressCh, cleanup := s.progress.register(token)
	defer cleanup()
	go s.forwardProgress(name, progressCh)

	params := mcp.ExecuteToolParams{
		Name:      name,
		Arguments: args,
		Meta:      mcp.Meta{"progressToken": token},
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	result, err := s.corr.Request(ctx, mcp.MethodExecuteTool, raw, s.cfg.RequestTimeout)
	if err != nil {
		return nil, classifyRPCError(err)
	}
	var execResult mcp.ExecuteToolResult
	if err := json.Unmarshal(result, &execResult); err != nil {
		return nil, err
	}
	if execResult.IsError {
		return &execResult, &mcp.ExecutionError{ToolName: name, Content: execResult.Content}
	}
	return &execResult, nil
}

// forwardProgress drains progress notifications for one in-flight
// executeTool call until its waiter is torn down by cleanup(); there is
// currently no external progress-subscription surface, so updates are
// only logged at debug level.
func (s *Session) forwardProgress(toolName string, ch chan progressParams) {
	for p := range ch {
		s.logger.Debug("clientsession: tool progress", "server_id", s.cfg.ID, "tool", toolName, "progress", p.Progress, "total", p.Total, "message", p.Message)
	}
}

func newProgressToken() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// GetResource fetches a resource's contents by URI.
func (s *Session) GetResource(ctx context.Context, uri string) (*mcp.GetResourceResult, error) {
	if !s.hasCapability(func(c *mcp.ServerCapabilities) bool { return c.Resources != nil }) {
		return nil, &mcp.NotCapableError{ServerID: s.cfg.ID, Capability: "resources.get"}
	}
	raw, err := json.Marshal(mcp.GetResourceParams{URI: uri})
	if err != nil {
		return nil, err
	}
	result, err := s.corr.Request(ctx, mcp.MethodGetResource, raw, s.cfg.RequestTimeout)
	if err != nil {
		return nil, classifyRPCError(err)
	}
	var out mcp.GetResourceResult
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPrompt fetches a rendered prompt by name.
func (s *Session) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	if !s.hasCapability(func(c *mcp.ServerCapabilities) bool { return c.Prompts != nil }) {
		return nil, &mcp.NotCapableError{ServerID: s.cfg.ID, Capability: "prompts.get"}
	}
	raw, err := json.Marshal(mcp.GetPromptParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	result, err := s.corr.Request(ctx, mcp.MethodGetPrompt, raw, s.cfg.RequestTimeout)
	if err != nil {
		return nil, classifyRPCError(err)
	}
	var out mcp.GetPromptResult
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WatchResource requests resources/updated notifications for uri (a
// literal resource URI or a URI template) and registers it locally so
// subsequent notifications/resources/updated trigger a targeted
// re-fetch.
func (s *Session) WatchResource(ctx context.Context, uri string) error {
	if !s.hasCapability(func(c *mcp.ServerCapabilities) bool { return c.Resources != nil && c.Resources.Subscribe }) {
		return &mcp.NotCapableError{ServerID: s.cfg.ID, Capability: "resources.subscribe"}
	}
	raw, err := json.Marshal(mcp.WatchResourceParams{URI: uri})
	if err != nil {
		return err
	}
	if _, err := s.corr.Request(ctx, mcp.MethodWatchResource, raw, s.cfg.RequestTimeout); err != nil {
		return classifyRPCError(err)
	}
	return s.watched.Add(uri)
}

// UnwatchResource cancels a previous WatchResource.
func (s *Session) UnwatchResource(ctx context.Context, uri string) error {
	raw, err := json.Marshal(mcp.UnwatchResourceParams{URI: uri})
	if err != nil {
		return err
	}
	if _, err := s.corr.Request(ctx, mcp.MethodUnwatchResource, raw, s.cfg.RequestTimeout); err != nil {
		return classifyRPCError(err)
	}
	s.watched.Remove(uri)
	return nil
}

// SetLogLevel requests the server raise or lower the minimum severity
// of notifications/log messages it forwards.
func (s *Session) SetLogLevel(ctx context.Context, level mcp.LoggingLevel) error {
	raw, err := json.Marshal(mcp.SetLogLevelParams{Level: level})
	if err != nil {
		return err
	}
	_, err = s.corr.Request(ctx, mcp.MethodSetLogLevel, raw, s.cfg.RequestTimeout)
	return classifyRPCError(err)
}

// Ping performs a liveness check, coalescing any failure to false.
func (s *Session) Ping(ctx context.Context) bool {
	_, err := s.corr.Request(ctx, mcp.MethodPing, nil, s.cfg.RequestTimeout)
	return err == nil
}

// Refresh re-runs discovery against the current connection.
func (s *Session) Refresh(ctx context.Context) error {
	if s.State() != StateReady {
		return &mcp.NotConnectedError{ServerID: s.cfg.ID, State: s.State().String()}
	}
	s.discover(ctx)
	return nil
}

// Disconnect tears down the transport and clears every cache. It is
// best-effort and safe to call more than once.
func (s *Session) Disconnect(ctx context.Context) error {
	if s.cancelPmp != nil {
		s.cancelPmp()
	}
	var err error
	if s.tr != nil {
		err = s.tr.Disconnect(ctx)
	}
	if s.corr != nil {
		s.corr.Close(&mcp.NotConnectedError{ServerID: s.cfg.ID, State: "disconnected"})
	}
	s.mu.Lock()
	s.tools = nil
	s.toolOrder = nil
	s.resources = nil
	s.resTmpls = nil
	s.prompts = nil
	s.caps = nil
	s.mu.Unlock()
	s.watched.Reset()
	s.schemas.reset()
	s.setState(StateDisconnected)
	s.emit(mcp.Event{Kind: mcp.EventConnectionClosed})
	return err
}

// pumpEvents bridges transport-level events into the correlator
// (messages) and session lifecycle state (errors, state changes).
func (s *Session) pumpEvents(ctx context.Context, tr transport.Transport) {
	defer close(s.pumpDone)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-tr.Events():
			if !ok {
				return
			}
			switch {
			case ev.Message != nil:
				s.corr.Deliver(ev.Message)
			case ev.ErrKind == transport.ErrorMalformedFrame:
				s.logger.Warn("clientsession: dropped malformed frame", "server_id", s.cfg.ID, "error", ev.Err)
			case ev.ErrKind != "":
				s.handleTransportError(ev)
			case ev.To == transport.StateError || ev.To == transport.StateDisconnected:
				if s.State() == StateReady {
					s.setState(StateError)
					s.emit(mcp.Event{Kind: mcp.EventConnectionLost, Details: string(ev.ErrKind)})
					s.corr.Close(&mcp.TransportError{ServerID: s.cfg.ID, Kind: string(ev.ErrKind), Err: fmt.Errorf("transport moved to %s", ev.To)})
				}
			}
		}
	}
}

func (s *Session) handleTransportError(ev transport.Event) {
	s.setState(StateError)
	s.emit(mcp.Event{Kind: mcp.EventConnectionError, Details: string(ev.ErrKind), Err: ev.Err})
	s.corr.Close(&mcp.TransportError{ServerID: s.cfg.ID, Kind: string(ev.ErrKind), Err: ev.Err})
}

// classifyRPCError translates a correlator-level error into this
// runtime's exported taxonomy: a jsonrpc2.Error with CodeTimeout becomes
// mcp.ErrTimeout, any other jsonrpc2.Error becomes a *mcp.ServerError,
// and anything else (context cancellation, send failure) passes through
// unchanged.
func classifyRPCError(err error) error {
	if err == nil {
		return nil
	}
	rpcErr, ok := err.(*jsonrpc2.Error)
	if !ok {
		return err
	}
	if rpcErr.Code == jsonrpc2.CodeTimeout {
		return fmt.Errorf("%w: %s", mcp.ErrTimeout, rpcErr.Message)
	}
	return &mcp.ServerError{Code: rpcErr.Code, Message: rpcErr.Message, Data: rpcErr.Data}
}
