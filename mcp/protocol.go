// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

// Protocol types for the methods this runtime's client speaks, named the
// way this runtime's wire protocol names them (see the external interfaces
// section of the design): tools/execute rather than tools/call,
// resources/get rather than resources/read, resources/watch and
// resources/unwatch rather than subscribe/unsubscribe. Sampling,
// elicitation, completion, roots and tasks are server-initiated or
// server-hosting concerns this client never exercises and are not
// represented here.

import (
	"maps"

	internaljson "github.com/mcpfleet/runtime/internal/json"
)

// Meta carries the protocol's reserved "_meta" property: implementation-
// specific or out-of-band data attached to a request, result, or
// notification.
type Meta map[string]any

// GetMeta returns m itself, satisfying types that embed Meta.
func (m Meta) GetMeta() Meta { return m }

// SetMeta replaces the contents of *m with meta.
func (m *Meta) SetMeta(meta Meta) { *m = meta }

// The sender or recipient of messages and data in a conversation.
type Role string

// IconTheme specifies the theme an icon is designed for.
type IconTheme string

const (
	// IconThemeLight indicates the icon is designed for a light background.
	IconThemeLight IconTheme = "light"
	// IconThemeDark indicates the icon is designed for a dark background.
	IconThemeDark IconTheme = "dark"
)

// Icon provides a visual identifier for a tool, resource, prompt or
// implementation.
type Icon struct {
	// Source is a URI pointing to the icon resource. This can be an
	// HTTP/HTTPS URL or a data URI with base64-encoded image data.
	Source string `json:"src"`
	// Optional MIME type if the server's type is missing or generic.
	MIMEType string `json:"mimeType,omitempty"`
	// Optional size specification, e.g. ["48x48"] or ["any"] for scalable
	// formats.
	Sizes []string `json:"sizes,omitempty"`
	// Optional theme specifier.
	Theme IconTheme `json:"theme,omitempty"`
}

// Annotations the client can use to inform how objects are used or
// displayed.
type Annotations struct {
	// Describes who the intended customer of this object or data is. May
	// list multiple entries, e.g. []Role{"user", "assistant"}.
	Audience []Role `json:"audience,omitempty"`
	// The moment the resource was last modified, as an ISO 8601 string.
	LastModified string `json:"lastModified,omitempty"`
	// How important this data is for operating the server. 1 means
	// effectively required, 0 means entirely optional.
	Priority float64 `json:"priority,omitempty"`
}

// Implementation describes the name and version of an MCP client or
// server.
type Implementation struct {
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	Version    string `json:"version"`
	WebsiteURL string `json:"websiteUrl,omitempty"`
	Icons      []Icon `json:"icons,omitempty"`
}

// RootCapabilities describes the client's support for filesystem roots.
// This runtime never advertises it (a background client has no
// filesystem roots to expose) but the type is retained so
// ClientCapabilities round-trips through servers that check for its
// absence.
type RootCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ClientCapabilities describes capabilities this runtime advertises
// during initialize. Sampling, elicitation and roots are deliberately
// left unset: this is a tool/resource/prompt consumer, not a sampling or
// filesystem host.
type ClientCapabilities struct {
	Experimental map[string]any    `json:"experimental,omitempty"`
	Roots        *RootCapabilities `json:"roots,omitempty"`
}

// CompletionCapabilities describes the server's support for argument
// autocompletion. Unused by this client; retained because it appears in
// ServerCapabilities.
type CompletionCapabilities struct{}

// LoggingCapabilities describes the server's support for sending log
// messages to the client.
type LoggingCapabilities struct{}

// PromptCapabilities describes the server's support for prompts.
type PromptCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourceCapabilities describes the server's support for resources.
type ResourceCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
	Subscribe   bool `json:"subscribe,omitempty"`
}

// ToolCapabilities describes the server's support for tools.
type ToolCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerCapabilities describes capabilities a server supports, as
// returned in an InitializeResult. A session gates every capability-
// dependent operation (listPrompts, watchResource, ...) on the relevant
// field here.
type ServerCapabilities struct {
	Experimental map[string]any          `json:"experimental,omitempty"`
	Completions  *CompletionCapabilities `json:"completions,omitempty"`
	Logging      *LoggingCapabilities    `json:"logging,omitempty"`
	Prompts      *PromptCapabilities     `json:"prompts,omitempty"`
	Resources    *ResourceCapabilities   `json:"resources,omitempty"`
	Tools        *ToolCapabilities       `json:"tools,omitempty"`
}

// Clone returns a copy of the ServerCapabilities; maps and pointer fields
// are shallow-copied so a session's cached capabilities can't be mutated
// through an aliased reference.
func (c *ServerCapabilities) Clone() *ServerCapabilities {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Experimental = maps.Clone(c.Experimental)
	if c.Completions != nil {
		v := *c.Completions
		cp.Completions = &v
	}
	if c.Logging != nil {
		v := *c.Logging
		cp.Logging = &v
	}
	if c.Prompts != nil {
		v := *c.Prompts
		cp.Prompts = &v
	}
	if c.Resources != nil {
		v := *c.Resources
		cp.Resources = &v
	}
	if c.Tools != nil {
		v := *c.Tools
		cp.Tools = &v
	}
	return &cp
}

// InitializeParams is sent from client to server as the first request of
// a session.
type InitializeParams struct {
	Meta            Meta               `json:"_meta,omitempty"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
	ProtocolVersion string             `json:"protocolVersion"`
}

// InitializeResult is the server's answer to InitializeParams.
type InitializeResult struct {
	Meta            Meta               `json:"_meta,omitempty"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	Instructions    string             `json:"instructions,omitempty"`
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      Implementation     `json:"serverInfo"`
}

// InitializedParams accompanies the notifications/initialized
// notification the client sends once initialize has completed.
type InitializedParams struct {
	Meta Meta `json:"_meta,omitempty"`
}

// PingParams is an empty, fire-and-forget liveness check.
type PingParams struct {
	Meta Meta `json:"_meta,omitempty"`
}

// ListToolsParams requests a server's tool catalog.
type ListToolsParams struct {
	Meta   Meta   `json:"_meta,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

// ListToolsResult is the server's tool catalog, possibly paginated.
type ListToolsResult struct {
	Meta       Meta    `json:"_meta,omitempty"`
	NextCursor string  `json:"nextCursor,omitempty"`
	Tools      []*Tool `json:"tools"`
}

// Tool describes a tool the server exposes, including the JSON Schema
// used to validate arguments before executeTool sends them.
type Tool struct {
	Meta Meta `json:"_meta,omitempty"`
	// Display name precedence order is: title, annotations.title, then
	// name.
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
	Description string           `json:"description,omitempty"`
	// InputSchema holds a JSON Schema object defining the expected
	// arguments; the default JSON marshaling of the server's declared
	// schema (a map[string]any or json.RawMessage).
	InputSchema any    `json:"inputSchema"`
	Name        string `json:"name"`
	// OutputSchema optionally describes the structure of a successful
	// ExecuteToolResult.StructuredContent.
	OutputSchema any    `json:"outputSchema,omitempty"`
	Title        string `json:"title,omitempty"`
	Icons        []Icon `json:"icons,omitempty"`
}

// ToolAnnotations are hints describing a tool's behavior. They are not
// guaranteed to be faithful and must never be used to make tool-use
// decisions for an untrusted server.
type ToolAnnotations struct {
	DestructiveHint *bool  `json:"destructiveHint,omitempty"`
	IdempotentHint  bool   `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool  `json:"openWorldHint,omitempty"`
	ReadOnlyHint    bool   `json:"readOnlyHint,omitempty"`
	Title           string `json:"title,omitempty"`
}

// ExecuteToolParams is used to invoke a tool (wire method tools/execute).
type ExecuteToolParams struct {
	Meta Meta `json:"_meta,omitempty"`
	// Arguments to pass to the tool, validated against its InputSchema
	// before the request is sent.
	Arguments map[string]any `json:"arguments,omitempty"`
	Name      string         `json:"name"`
}

// ExecuteToolResult is the result of executing a tool.
type ExecuteToolResult struct {
	Meta    Meta      `json:"_meta,omitempty"`
	Content []Content `json:"content"`
	// IsError reports a tool-level failure (distinct from a JSON-RPC
	// protocol error): the tool ran but signalled it failed.
	IsError bool `json:"isError,omitempty"`
	// StructuredContent, when the tool declares an OutputSchema, holds
	// the same information as Content in a machine-checkable form.
	StructuredContent any `json:"structuredContent,omitempty"`
}

// UnmarshalJSON handles unmarshalling the Content interface slice.
func (r *ExecuteToolResult) UnmarshalJSON(data []byte) error {
	type result ExecuteToolResult
	var wire struct {
		result
		Content internaljson.RawMessage `json:"content"`
	}
	if err := internaljson.Unmarshal(data, &wire); err != nil {
		return err
	}
	*r = ExecuteToolResult(wire.result)
	if len(wire.Content) == 0 || string(wire.Content) == "null" {
		return nil
	}
	content, err := unmarshalContent(wire.Content, nil)
	if err != nil {
		return err
	}
	r.Content = content
	return nil
}

// ToolListChangedParams accompanies
// notifications/tools/list_changed.
type ToolListChangedParams struct {
	Meta Meta `json:"_meta,omitempty"`
}

// ListResourcesParams requests a server's resource catalog.
type ListResourcesParams struct {
	Meta   Meta   `json:"_meta,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

// ListResourcesResult is the server's resource catalog, possibly
// paginated.
type ListResourcesResult struct {
	Meta       Meta        `json:"_meta,omitempty"`
	NextCursor string      `json:"nextCursor,omitempty"`
	Resources  []*Resource `json:"resources"`
}

// Resource describes a single resource a server exposes.
type Resource struct {
	Meta        Meta         `json:"_meta,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Description string       `json:"description,omitempty"`
	MIMEType    string       `json:"mimeType,omitempty"`
	Name        string       `json:"name"`
	Size        int64        `json:"size,omitempty"`
	Title       string       `json:"title,omitempty"`
	URI         string       `json:"uri"`
	Icons       []Icon       `json:"icons,omitempty"`
}

// ResourceTemplate describes a family of resources addressable through an
// RFC 6570 URI template.
type ResourceTemplate struct {
	Meta        Meta         `json:"_meta,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
	Description string       `json:"description,omitempty"`
	MIMEType    string       `json:"mimeType,omitempty"`
	Name        string       `json:"name"`
	Title       string       `json:"title,omitempty"`
	URITemplate string       `json:"uriTemplate"`
	Icons       []Icon       `json:"icons,omitempty"`
}

// ListResourceTemplatesParams requests a server's resource template
// catalog.
type ListResourceTemplatesParams struct {
	Meta   Meta   `json:"_meta,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

// ListResourceTemplatesResult is the server's resource template catalog.
type ListResourceTemplatesResult struct {
	Meta              Meta                `json:"_meta,omitempty"`
	NextCursor        string              `json:"nextCursor,omitempty"`
	ResourceTemplates []*ResourceTemplate `json:"resourceTemplates"`
}

// GetResourceParams fetches a resource's contents (wire method
// resources/get).
type GetResourceParams struct {
	Meta Meta   `json:"_meta,omitempty"`
	URI  string `json:"uri"`
}

// GetResourceResult holds one or more content chunks for a fetched
// resource.
type GetResourceResult struct {
	Meta     Meta                 `json:"_meta,omitempty"`
	Contents []*ResourceContents `json:"contents"`
}

// ResourceListChangedParams accompanies
// notifications/resources/list_changed.
type ResourceListChangedParams struct {
	Meta Meta `json:"_meta,omitempty"`
}

// WatchResourceParams requests resources/updated notifications for a
// URI or URI template (wire method resources/watch).
type WatchResourceParams struct {
	Meta Meta   `json:"_meta,omitempty"`
	URI  string `json:"uri"`
}

// UnwatchResourceParams cancels a previous watchResource (wire method
// resources/unwatch).
type UnwatchResourceParams struct {
	Meta Meta   `json:"_meta,omitempty"`
	URI  string `json:"uri"`
}

// ResourceUpdatedParams accompanies notifications/resources/updated: a
// watched resource (or a member of a watched template) changed and
// should be re-fetched.
type ResourceUpdatedParams struct {
	Meta Meta   `json:"_meta,omitempty"`
	URI  string `json:"uri"`
}

// ListPromptsParams requests a server's prompt catalog.
type ListPromptsParams struct {
	Meta   Meta   `json:"_meta,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

// ListPromptsResult is the server's prompt catalog, possibly paginated.
type ListPromptsResult struct {
	Meta       Meta      `json:"_meta,omitempty"`
	NextCursor string    `json:"nextCursor,omitempty"`
	Prompts    []*Prompt `json:"prompts"`
}

// Prompt describes a prompt template a server exposes.
type Prompt struct {
	Meta        Meta              `json:"_meta,omitempty"`
	Arguments   []*PromptArgument `json:"arguments,omitempty"`
	Description string            `json:"description,omitempty"`
	Name        string            `json:"name"`
	Title       string            `json:"title,omitempty"`
	Icons       []Icon            `json:"icons,omitempty"`
}

// PromptArgument describes one argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptListChangedParams accompanies
// notifications/prompts/list_changed.
type PromptListChangedParams struct {
	Meta Meta `json:"_meta,omitempty"`
}

// GetPromptParams fetches a rendered prompt by name.
type GetPromptParams struct {
	Meta      Meta              `json:"_meta,omitempty"`
	Arguments map[string]string `json:"arguments,omitempty"`
	Name      string            `json:"name"`
}

// GetPromptResult is a rendered prompt's messages.
type GetPromptResult struct {
	Meta        Meta             `json:"_meta,omitempty"`
	Description string           `json:"description,omitempty"`
	Messages    []*PromptMessage `json:"messages"`
}

// PromptMessage is one message in a rendered prompt.
type PromptMessage struct {
	Content Content `json:"content"`
	Role    Role    `json:"role"`
}

// UnmarshalJSON handles unmarshalling the Content interface field.
func (m *PromptMessage) UnmarshalJSON(data []byte) error {
	type msg PromptMessage
	var wire struct {
		msg
		Content *wireContent `json:"content"`
	}
	if err := internaljson.Unmarshal(data, &wire); err != nil {
		return err
	}
	var err error
	if wire.msg.Content, err = contentFromWire(wire.Content, nil); err != nil {
		return err
	}
	*m = PromptMessage(wire.msg)
	return nil
}

// LoggingLevel mirrors the RFC 5424 severities MCP logging uses.
type LoggingLevel string

const (
	LoggingLevelDebug     LoggingLevel = "debug"
	LoggingLevelInfo      LoggingLevel = "info"
	LoggingLevelNotice    LoggingLevel = "notice"
	LoggingLevelWarning   LoggingLevel = "warning"
	LoggingLevelError     LoggingLevel = "error"
	LoggingLevelCritical  LoggingLevel = "critical"
	LoggingLevelAlert     LoggingLevel = "alert"
	LoggingLevelEmergency LoggingLevel = "emergency"
)

// SetLogLevelParams requests the server raise or lower the minimum
// severity of notifications/log messages it forwards (wire method
// logging/setLevel).
type SetLogLevelParams struct {
	Meta  Meta         `json:"_meta,omitempty"`
	Level LoggingLevel `json:"level"`
}

// LogParams accompanies a notifications/log message.
type LogParams struct {
	Meta   Meta         `json:"_meta,omitempty"`
	Data   any          `json:"data"`
	Level  LoggingLevel `json:"level"`
	Logger string       `json:"logger,omitempty"`
}

// ProgressParams accompanies notifications/tools/progress, correlated to
// an in-flight executeTool call through the progress token the client
// attached to that call's Meta.
type ProgressParams struct {
	Meta          Meta    `json:"_meta,omitempty"`
	ProgressToken any     `json:"progressToken"`
	Message       string  `json:"message,omitempty"`
	Progress      float64 `json:"progress"`
	Total         float64 `json:"total,omitempty"`
}

// CancelledParams accompanies notifications/cancelled, reporting a
// previously-sent request was cancelled.
type CancelledParams struct {
	Meta      Meta   `json:"_meta,omitempty"`
	RequestID any    `json:"requestId"`
	Reason    string `json:"reason,omitempty"`
}

// Wire method and notification names this runtime's client speaks.
// internal/clientsession is the only caller that constructs raw frames;
// everyone else uses its typed session methods.
const (
	MethodInitialize            = "initialize"
	NotificationInitialized     = "notifications/initialized"
	MethodPing                  = "ping"
	MethodListTools             = "tools/list"
	MethodExecuteTool           = "tools/execute"
	NotificationToolListChanged = "notifications/tools/list_changed"
	NotificationProgress        = "notifications/tools/progress"
	MethodListResources         = "resources/list"
	MethodListResourceTemplates = "resources/templates/list"
	MethodGetResource           = "resources/get"
	MethodWatchResource         = "resources/watch"
	MethodUnwatchResource       = "resources/unwatch"
	NotificationResourceListChanged = "notifications/resources/list_changed"
	NotificationResourceUpdated     = "notifications/resources/updated"
	MethodListPrompts               = "prompts/list"
	MethodGetPrompt                 = "prompts/get"
	NotificationPromptListChanged   = "notifications/prompts/list_changed"
	MethodSetLogLevel               = "logging/setLevel"
	NotificationLog                 = "notifications/log"
	NotificationCancelled           = "notifications/cancelled"
)
