package shutdown

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"finparser/core"
)

// Handler priorities used by the server. Lower runs first.
const (
	PriorityHTTPServer = 10
	PriorityScheduler  = 20
	PriorityDatabase   = 30
	PriorityUploads    = 45
	PriorityLogger     = 90
)

type handler struct {
	name     string
	priority int
	fn       core.ShutdownFunc
}

// ShutdownRegistry holds cleanup handlers sorted by priority. Handlers with
// equal priority run in registration order.
type ShutdownRegistry struct {
	mu       sync.Mutex
	handlers []handler
	closed   bool
}

func NewShutdownRegistry() *ShutdownRegistry {
	return &ShutdownRegistry{}
}

// Register adds fn. It is ignored once Shutdown has run.
func (r *ShutdownRegistry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	// insert after every handler with priority <= this one
	i := slices.IndexFunc(r.handlers, func(h handler) bool { return h.priority > priority })
	if i < 0 {
		i = len(r.handlers)
	}
	r.handlers = slices.Insert(r.handlers, i, handler{name: name, priority: priority, fn: fn})
}

// Shutdown runs every handler once, continuing past failures, and returns
// the errors prefixed with the handler name.
func (r *ShutdownRegistry) Shutdown(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	handlers := slices.Clone(r.handlers)
	r.mu.Unlock()

	var errs []error
	for _, h := range handlers {
		if err := h.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errs
}

// Names lists handler names in execution order.
func (r *ShutdownRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.handlers))
	for i, h := range r.handlers {
		names[i] = h.name
	}
	return names
}

func (r *ShutdownRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}

func (r *ShutdownRegistry) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
