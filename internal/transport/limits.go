// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

// DefaultMaxBodyBytes bounds a single HTTP response body, or a single
// line of an /events SSE stream, read by the http transport.
//
// This limit exists to prevent a misbehaving or malicious server from
// exhausting this process's memory with one oversized frame.
const DefaultMaxBodyBytes int64 = 1_000_000

// effectiveMaxBodyBytes converts a user-configured maxBodyBytes value
// (0 = default, <0 = unlimited, >0 = exact) into the limit to apply.
func effectiveMaxBodyBytes(maxBodyBytes int64) int64 {
	switch {
	case maxBodyBytes == 0:
		return DefaultMaxBodyBytes
	case maxBodyBytes < 0:
		return 0
	default:
		return maxBodyBytes
	}
}
