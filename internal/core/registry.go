package core

import (
	"context"
	"fmt"
	"sync"
)

// Handler performs the remote enable/disable call for one toggle kind.
type Handler interface {
	Enable(ctx context.Context, t Toggle) error
	Disable(ctx context.Context, t Toggle) error
}

// Registry dispatches toggles to the handler registered for their kind.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]Handler)}
}

// Register binds a handler to a known kind.
func (r *Registry) Register(kind Kind, h Handler) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
	return nil
}

// RegisterAll binds the same handler to every known kind.
func (r *Registry) RegisterAll(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range knownKinds {
		r.handlers[k] = h
	}
}

// HandlerFor returns the handler for the given kind.
func (r *Registry) HandlerFor(kind Kind) (Handler, error) {
	r.mu.RLock()
	h, ok := r.handlers[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no handler registered for kind %q", kind)
	}
	return h, nil
}

// Kinds returns the kinds that currently have a handler.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}
