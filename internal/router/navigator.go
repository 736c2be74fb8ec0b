package router

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"marketplace/internal/util"
	"marketplace/internal/view"

	"go.uber.org/zap"
)

// State of a navigation
type State string

const (
	StatePending State = "pending"
	StateSettled State = "settled"
)

// RouteChange is emitted when a navigation starts and when it settles
type RouteChange struct {
	Path       string
	Generation uint64
	State      State
}

// RouteListener receives route changes
type RouteListener func(RouteChange)

type namedRouteListener struct {
	name string
	fn   RouteListener
}

// Navigator tracks one session's navigation: the current route, a history
// stack, and a generation counter. Every dispatch bumps the generation and
// cancels the previous dispatch's context; a result whose generation is no
// longer current is discarded with ErrSuperseded.
type Navigator struct {
	router *Router
	logger *zap.Logger

	mu         sync.Mutex
	current    string
	generation uint64
	cancel     context.CancelFunc
	history    []string
	index      int

	lmu       sync.RWMutex
	listeners []namedRouteListener
}

// NewNavigator creates a navigator over r
func NewNavigator(r *Router) *Navigator {
	return &Navigator{
		router: r,
		logger: util.Named("navigator"),
		index:  -1,
	}
}

// Router returns the route table
func (n *Navigator) Router() *Router {
	return n.router
}

// Current returns the active path without base prefix
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Generation returns the latest dispatch generation
func (n *Navigator) Generation() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.generation
}

// IsCurrent reports whether gen is still the latest dispatch
func (n *Navigator) IsCurrent(gen uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.generation == gen
}

// Navigate pushes target (a path without base, optionally with a query) onto
// the history, dropping forward entries, and dispatches it immediately.
func (n *Navigator) Navigate(ctx context.Context, target string) (*view.Fragment, error) {
	path, query := splitTarget(target)

	n.mu.Lock()
	n.push(target)
	n.mu.Unlock()

	return n.dispatch(ctx, path, query)
}

// HandleRoute dispatches a full location (with base prefix) for a page load.
// A reload keeps the current entry, a location matching a neighbouring entry
// moves onto it, anything else is pushed.
func (n *Navigator) HandleRoute(ctx context.Context, location string) (*view.Fragment, error) {
	path, entry, query, err := n.parseLocation(location)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	switch {
	case n.entryAt(n.index) == entry:
	case n.entryAt(n.index-1) == entry:
		n.index--
	case n.entryAt(n.index+1) == entry:
		n.index++
	default:
		n.push(entry)
	}
	n.mu.Unlock()

	return n.dispatch(ctx, path, query)
}

// Traverse follows a browser back/forward of delta entries that landed on
// location. When the entry at that offset is not location (another tab moved
// this session's history) location is pushed instead.
func (n *Navigator) Traverse(ctx context.Context, delta int, location string) (*view.Fragment, error) {
	path, entry, query, err := n.parseLocation(location)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	if next := n.index + delta; n.entryAt(next) == entry {
		n.index = next
	} else {
		n.logger.Debug("History out of step with the browser",
			zap.Int("delta", delta),
			zap.String("location", entry))
		n.push(entry)
	}
	n.mu.Unlock()

	return n.dispatch(ctx, path, query)
}

// Subscribe registers fn under name, replacing an earlier listener with the same name
func (n *Navigator) Subscribe(name string, fn RouteListener) {
	n.lmu.Lock()
	defer n.lmu.Unlock()

	for i := range n.listeners {
		if n.listeners[i].name == name {
			n.listeners[i].fn = fn
			return
		}
	}
	n.listeners = append(n.listeners, namedRouteListener{name: name, fn: fn})
}

// Unsubscribe removes the listener registered under name
func (n *Navigator) Unsubscribe(name string) {
	n.lmu.Lock()
	defer n.lmu.Unlock()

	for i := range n.listeners {
		if n.listeners[i].name == name {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}

// Close cancels any in-flight dispatch and drops all listeners
func (n *Navigator) Close() {
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.mu.Unlock()

	n.lmu.Lock()
	n.listeners = nil
	n.lmu.Unlock()
}

func (n *Navigator) parseLocation(location string) (path, entry string, query url.Values, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", nil, err
	}
	path = n.router.Strip(u.Path)
	entry = path
	if u.RawQuery != "" {
		entry += "?" + u.RawQuery
	}
	return path, entry, u.Query(), nil
}

// push drops forward entries and appends entry; n.mu must be held
func (n *Navigator) push(entry string) {
	n.history = append(n.history[:n.index+1], entry)
	n.index = len(n.history) - 1
}

// entryAt returns the history entry at i, or "" out of range; n.mu must be held
func (n *Navigator) entryAt(i int) string {
	if i < 0 || i >= len(n.history) {
		return ""
	}
	return n.history[i]
}

func (n *Navigator) dispatch(ctx context.Context, path string, query url.Values) (*view.Fragment, error) {
	ctx, span := util.StartSpan(ctx, "router.Navigator.dispatch")
	defer span.End()

	handler, pattern, resolveErr := n.router.Resolve(path)

	n.mu.Lock()
	n.generation++
	gen := n.generation
	if n.cancel != nil {
		n.cancel()
	}
	dctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.current = path
	n.mu.Unlock()
	defer cancel()

	n.emit(RouteChange{Path: path, Generation: gen, State: StatePending})

	if resolveErr != nil {
		util.NavigationsTotal.WithLabelValues("not_found").Inc()
		n.logger.Warn("No route for path", zap.String("path", path))
		n.emit(RouteChange{Path: path, Generation: gen, State: StateSettled})
		return nil, resolveErr
	}

	start := time.Now()
	frag, err := handler(dctx, &Request{Path: path, Query: query, Generation: gen})
	util.NavigationDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())

	if !n.IsCurrent(gen) {
		util.NavigationsTotal.WithLabelValues("superseded").Inc()
		n.logger.Debug("Discarding superseded navigation",
			zap.String("path", path),
			zap.Uint64("generation", gen))
		return nil, ErrSuperseded
	}

	n.emit(RouteChange{Path: path, Generation: gen, State: StateSettled})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			util.NavigationsTotal.WithLabelValues("cancelled").Inc()
		} else {
			util.NavigationsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	util.NavigationsTotal.WithLabelValues("settled").Inc()
	return frag, nil
}

func (n *Navigator) emit(change RouteChange) {
	n.lmu.RLock()
	fns := make([]RouteListener, len(n.listeners))
	for i, l := range n.listeners {
		fns[i] = l.fn
	}
	n.lmu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}

func splitTarget(target string) (string, url.Values) {
	u, err := url.Parse(target)
	if err != nil {
		return target, url.Values{}
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return path, u.Query()
}
