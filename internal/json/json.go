// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package json centralizes this module's JSON codec so every package
// decodes and encodes wire frames the same way. It wraps
// github.com/segmentio/encoding/json, a drop-in, allocation-lighter
// replacement for encoding/json, and falls back to the standard library
// only for RawMessage, which segmentio re-exports as an alias anyway.
package json

import (
	"encoding/json"

	segmentiojson "github.com/segmentio/encoding/json"
)

// RawMessage is encoding/json.RawMessage; segmentio/encoding/json embeds
// the same type, kept here as the single name the rest of the module
// imports.
type RawMessage = json.RawMessage

func Marshal(v any) ([]byte, error) {
	return segmentiojson.Marshal(v)
}

// Unmarshal decodes data into v, matching object keys to struct fields
// case-sensitively (unlike encoding/json).
func Unmarshal(data []byte, v any) error {
	_, err := segmentiojson.Parse(data, v, segmentiojson.DontMatchCaseInsensitiveStructFields)
	return err
}
