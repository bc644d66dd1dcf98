// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenSource supplies bearer tokens for OAuth2Auth, typically an
// oauth2.TokenSource from a client-credentials or refresh-token flow.
type TokenSource interface {
	Token() (*oauth2.Token, error)
}

// RoundTripperFor builds the http.RoundTripper a transport should use
// for a given auth config, wrapping base. NoAuth and a nil Auth both
// return base unchanged.
func RoundTripperFor(auth Auth, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	switch a := auth.(type) {
	case nil, NoAuth:
		return base
	case BearerAuth:
		return &bearerTransport{base: base, token: a.Token}
	case OAuth2Auth:
		return &oauthRetryTransport{base: base, source: a.TokenSource}
	default:
		return base
	}
}

type bearerTransport struct {
	base  http.RoundTripper
	token string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

// oauthRetryTransport follows the MCP OAuth convention adapted from
// this SDK's auth.HTTPTransport: attach a token up front, and on a 401
// retry exactly once with a freshly-fetched token, never looping past
// a second failure.
type oauthRetryTransport struct {
	mu     sync.Mutex
	base   http.RoundTripper
	source TokenSource
}

func (t *oauthRetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	haveBody := req.Body != nil && req.Body != http.NoBody
	if haveBody {
		req = req.Clone(req.Context())
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	resp, err := t.authorizedRoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	resp.Body.Close()

	t.mu.Lock()
	_, err = t.source.Token()
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if haveBody {
		req = req.Clone(req.Context())
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}
	return t.authorizedRoundTrip(req)
}

func (t *oauthRetryTransport) authorizedRoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.source.Token()
	if err != nil {
		return nil, err
	}
	req = req.Clone(req.Context())
	tok.SetAuthHeader(req)
	return t.base.RoundTrip(req)
}

// NearExpiry reports whether a JWT bearer token is within skew of its
// exp claim (or has no parseable exp at all, treated conservatively as
// near-expiry). It is used by the pool to proactively renew a session
// instead of waiting for a 401 round-trip to discover an expired token.
func NearExpiry(rawJWT string, skew time.Duration) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(rawJWT, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Until(exp.Time) <= skew
}
