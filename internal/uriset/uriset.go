// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package uriset tracks the set of resource URIs and URI templates a
// session has watched, and matches an updated URI from the server
// against that set. A literal watch ("file:///a.txt") matches only
// itself; a template watch ("file:///{path}") matches any concrete URI
// the template can produce, using RFC 6570 matching.
package uriset

import (
	"strings"
	"sync"

	"github.com/yosida95/uritemplate/v3"
)

type entry struct {
	literal  string
	template *uritemplate.Template
}

// Set is a concurrency-safe collection of watched URIs/templates.
type Set struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty Set.
func New() *Set {
	return &Set{entries: make(map[string]entry)}
}

// isTemplate reports whether uri contains RFC 6570 template syntax.
func isTemplate(uri string) bool {
	return strings.Contains(uri, "{")
}

// Add registers uri (literal or template) as watched. Returns an error
// if uri is a malformed template.
func (s *Set) Add(uri string) error {
	e := entry{literal: uri}
	if isTemplate(uri) {
		tmpl, err := uritemplate.New(uri)
		if err != nil {
			return err
		}
		e.template = tmpl
	}
	s.mu.Lock()
	s.entries[uri] = e
	s.mu.Unlock()
	return nil
}

// Remove unregisters uri.
func (s *Set) Remove(uri string) {
	s.mu.Lock()
	delete(s.entries, uri)
	s.mu.Unlock()
}

// Matches reports whether uri is covered by any watched literal or
// template entry.
func (s *Set) Matches(uri string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.template != nil {
			if _, ok := e.template.Match(uri); ok {
				return true
			}
			continue
		}
		if e.literal == uri {
			return true
		}
	}
	return false
}

// Reset clears every watched entry, as happens on session disconnect.
func (s *Set) Reset() {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
}

// Len reports the number of watched entries.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
