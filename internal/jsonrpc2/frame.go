// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package jsonrpc2 implements the wire-level JSON-RPC 2.0 envelope this
// runtime speaks to every MCP server regardless of transport: frame
// classification (request/response/notification), structural
// validation, encoding built on a fast JSON codec, and decoding through
// the strict standard-library decoder in strict.go.
package jsonrpc2

import (
	"errors"
	"fmt"

	internaljson "github.com/mcpfleet/runtime/internal/json"
)

// Version is the only accepted value of a Frame's Jsonrpc field.
const Version = "2.0"

// RawMessage is this package's raw-JSON type, re-exported so callers
// never need to import internal/json themselves just to build a Frame.
type RawMessage = internaljson.RawMessage

// Kind classifies a decoded Frame.
type Kind int

const (
	// KindInvalid marks a frame that failed structural validation.
	KindInvalid Kind = iota
	KindRequest
	KindResponse
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	default:
		return "invalid"
	}
}

// ID is a JSON-RPC request identifier: a string or a number on the wire.
// This runtime always mints string ids (see NewID) but must accept
// numeric ids from servers.
type ID struct {
	str   string
	num   float64
	isNum bool
	isSet bool
}

// NewID builds a string request id.
func NewID(s string) ID { return ID{str: s, isSet: true} }

// IsZero reports whether the id is unset (no id present on the wire).
func (id ID) IsZero() bool { return !id.isSet }

// String renders the id's value regardless of wire type, for use as a
// correlator map key.
func (id ID) String() string {
	if !id.isSet {
		return ""
	}
	if id.isNum {
		return fmt.Sprintf("%v", id.num)
	}
	return id.str
}

func (id ID) MarshalJSON() ([]byte, error) {
	if !id.isSet {
		return []byte("null"), nil
	}
	if id.isNum {
		return internaljson.Marshal(id.num)
	}
	return internaljson.Marshal(id.str)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ID{}
		return nil
	}
	var s string
	if err := internaljson.Unmarshal(data, &s); err == nil {
		*id = ID{str: s, isSet: true}
		return nil
	}
	var n float64
	if err := internaljson.Unmarshal(data, &n); err == nil {
		*id = ID{num: n, isNum: true, isSet: true}
		return nil
	}
	return fmt.Errorf("jsonrpc2: id must be string or number, got %s", data)
}

// Error is the JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("jsonrpc2: code %d: %s", e.Code, e.Message)
}

// Standard and MCP-extension error codes (spec §6's table).
const (
	CodeParseError           = -32700
	CodeInvalidRequest       = -32600
	CodeMethodNotFound       = -32601
	CodeInvalidParams        = -32602
	CodeInternalError        = -32603
	CodeServerError          = -32000
	CodeTransportError       = -32001
	CodeTimeout              = -32002
	CodeAuthError            = -32003
	CodeAuthorizationError   = -32004
	CodeResourceNotFound     = -32005
	CodeResourceBusy         = -32006
	CodeToolExecutionError   = -32007
)

// Frame is the decoded shape of a single JSON-RPC 2.0 message: exactly
// one of request, response, or notification, per spec §3.
type Frame struct {
	Jsonrpc string              `json:"jsonrpc"`
	ID      *ID                 `json:"id,omitempty"`
	Method  string              `json:"method,omitempty"`
	Params  internaljson.RawMessage `json:"params,omitempty"`
	Result  internaljson.RawMessage `json:"result,omitempty"`
	Error   *Error              `json:"error,omitempty"`
}

// ErrMalformedFrame is returned by Classify (and wrapped by Decode) when
// a frame fails spec §4.A's structural invariants. Callers must drop the
// frame and log, never crash the session on it.
var ErrMalformedFrame = errors.New("jsonrpc2: malformed frame")

// Classify validates f against spec §4.A's structural rules and returns
// its Kind, or KindInvalid plus a wrapped ErrMalformedFrame.
func (f *Frame) Classify() (Kind, error) {
	if f.Jsonrpc != Version {
		return KindInvalid, fmt.Errorf("%w: jsonrpc field is %q, want %q", ErrMalformedFrame, f.Jsonrpc, Version)
	}
	hasID := f.ID != nil && !f.ID.IsZero()
	hasMethod := f.Method != ""
	hasResult := len(f.Result) > 0 && string(f.Result) != "null"
	hasError := f.Error != nil

	switch {
	case hasMethod && hasID:
		return KindRequest, nil
	case hasMethod && !hasID:
		return KindNotification, nil
	case hasID && (hasResult != hasError):
		if hasError {
			if f.Error.Message == "" {
				return KindInvalid, fmt.Errorf("%w: error.message is empty", ErrMalformedFrame)
			}
		}
		return KindResponse, nil
	default:
		return KindInvalid, fmt.Errorf("%w: frame is neither request, response, nor notification", ErrMalformedFrame)
	}
}

// Decode parses data (a single object, not a batch) into a validated
// Frame, applying the anti-smuggling defenses in strict.go.
func Decode(data []byte) (*Frame, Kind, error) {
	var f Frame
	if err := StrictUnmarshal(data, &f); err != nil {
		return nil, KindInvalid, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	kind, err := f.Classify()
	if err != nil {
		return nil, KindInvalid, err
	}
	return &f, kind, nil
}

// DecodeBatch parses data as either a single frame object or a JSON
// array of frame objects (the HTTP transport's batching affordance).
func DecodeBatch(data []byte) ([]*Frame, error) {
	trimmed := trimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var raws []internaljson.RawMessage
		if err := internaljson.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		frames := make([]*Frame, 0, len(raws))
		for _, raw := range raws {
			f, _, err := Decode(raw)
			if err != nil {
				return nil, err
			}
			frames = append(frames, f)
		}
		return frames, nil
	}
	f, _, err := Decode(trimmed)
	if err != nil {
		return nil, err
	}
	return []*Frame{f}, nil
}

// Encode marshals f as a single JSON object.
func Encode(f *Frame) ([]byte, error) {
	f.Jsonrpc = Version
	return internaljson.Marshal(f)
}

func trimSpace(b []byte) []byte {
	i, j := 0, len(b)
	for i < j && isWhitespace(b[i]) {
		i++
	}
	for j > i && isWhitespace(b[j-1]) {
		j--
	}
	return b[i:j]
}

func isWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}
