// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PlexDesk Contributors

package bridge

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/plexdesk/plexdesk/pkg/pluginsdk"
)

// Handler serves one bridge route.
type Handler func(ctx context.Context, path string, req pluginsdk.BridgeRequest) (*pluginsdk.BridgeResponse, error)

type route struct {
	pattern string
	glob    glob.Glob
	handler Handler
}

// Router is an in-process Gateway. Each plugin namespace holds its own
// routes, matched in registration order.
//
// Patterns use gobwas/glob with '/' as the segment separator:
//   - "files/*" matches "files/a" but not "files/a/b"
//   - "files/**" matches both
//
// Leading slashes are ignored on both patterns and request paths. Requests
// no route matches go to the fallback gateway when one is set, otherwise
// they get a 404 response.
//
// Router is safe for concurrent use.
type Router struct {
	mu       sync.RWMutex
	routes   map[string][]route
	fallback Gateway
}

// NewRouter creates a router. fallback may be nil.
func NewRouter(fallback Gateway) *Router {
	return &Router{
		routes:   make(map[string][]route),
		fallback: fallback,
	}
}

// Handle adds a route to a plugin's namespace.
func (r *Router) Handle(pluginID, pattern string, h Handler) error {
	errb := oops.Code(CodeInvalidRoute).In("bridge").With("plugin", pluginID).With("pattern", pattern)
	if pluginID == "" {
		return errb.New("plugin id cannot be empty")
	}
	if h == nil {
		return errb.New("handler cannot be nil")
	}
	pattern = strings.TrimPrefix(pattern, "/")
	if pattern == "" {
		return errb.New("empty route pattern")
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return errb.Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[pluginID] = append(r.routes[pluginID], route{pattern: pattern, glob: g, handler: h})
	return nil
}

// RemoveNamespace drops every route of a plugin. Unknown namespaces are ignored.
func (r *Router) RemoveNamespace(pluginID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.routes, pluginID)
}

// Routes returns the route patterns of a plugin in match order.
func (r *Router) Routes(pluginID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	routes := r.routes[pluginID]
	out := make([]string, len(routes))
	for i, rt := range routes {
		out[i] = rt.pattern
	}
	return out
}

// Namespaces returns every plugin id with at least one route, sorted.
func (r *Router) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.routes))
	for id := range r.routes {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Do dispatches a request to the first matching route.
func (r *Router) Do(ctx context.Context, pluginID, path string, req pluginsdk.BridgeRequest) (*pluginsdk.BridgeResponse, error) {
	clean := strings.TrimPrefix(path, "/")

	r.mu.RLock()
	var handler Handler
	for _, rt := range r.routes[pluginID] {
		if rt.glob.Match(clean) {
			handler = rt.handler
			break
		}
	}
	fallback := r.fallback
	r.mu.RUnlock()

	switch {
	case handler != nil:
		return handler(ctx, clean, req)
	case fallback != nil:
		return fallback.Do(ctx, pluginID, path, req)
	default:
		return NotFound(), nil
	}
}
