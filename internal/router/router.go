// Package router maps page paths to handlers and tracks per-session navigation.
package router

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"

	"marketplace/internal/view"
)

// Wildcard is the fallback route
const Wildcard = "*"

var (
	// ErrNotFound is returned when neither an exact nor a wildcard route matches
	ErrNotFound = errors.New("no route matches path")
	// ErrSuperseded is returned for a dispatch overtaken by a newer navigation
	ErrSuperseded = errors.New("navigation superseded")
)

// Request is what a page handler sees of a navigation
type Request struct {
	Path       string
	Query      url.Values
	Generation uint64
}

// Handler renders a page fragment
type Handler func(ctx context.Context, req *Request) (*view.Fragment, error)

// Router is an exact-match registry of page handlers under a fixed base prefix
type Router struct {
	mu     sync.RWMutex
	base   string
	routes map[string]Handler
}

// New creates a router serving under base ("" or "/market")
func New(base string) *Router {
	return &Router{
		base:   strings.TrimRight(base, "/"),
		routes: make(map[string]Handler),
	}
}

// Base returns the base prefix
func (r *Router) Base() string {
	return r.base
}

// Register stores h for path. A later registration for the same path replaces it.
func (r *Router) Register(path string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[path] = h
}

// Resolve finds the handler for path, falling back to the wildcard.
// It returns the matched pattern alongside the handler.
func (r *Router) Resolve(path string) (Handler, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.routes[path]; ok {
		return h, path, nil
	}
	if h, ok := r.routes[Wildcard]; ok {
		return h, Wildcard, nil
	}
	return nil, "", ErrNotFound
}

// Routes lists registered patterns in lexical order
func (r *Router) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.routes))
	for p := range r.routes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Strip removes the base prefix from a location path. The result always starts with "/".
func (r *Router) Strip(location string) string {
	p := location
	if r.base != "" && (p == r.base || strings.HasPrefix(p, r.base+"/")) {
		p = strings.TrimPrefix(p, r.base)
	}
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// Href prefixes path with the base
func (r *Router) Href(path string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	if path == "/" && r.base != "" {
		return r.base + "/"
	}
	return r.base + path
}

// Owns reports whether location falls under the base prefix
func (r *Router) Owns(location string) bool {
	if r.base == "" {
		return true
	}
	return location == r.base || strings.HasPrefix(location, r.base+"/")
}
