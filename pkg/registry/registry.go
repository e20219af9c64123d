// Package registry maps node kinds to their handler factories.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zaptalk/zaptalk/pkg/protocol"
)

// ErrHandlerNotRegistered marks a node kind with no registered handler.
// The engine treats such nodes as pass-through instead of failing.
var ErrHandlerNotRegistered = errors.New("handler not registered")

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.HandlerFactory
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.HandlerFactory),
	}
}

// Register adds a handler factory, keyed by the node kind it serves.
func (r *Registry) Register(factory protocol.HandlerFactory) {
	r.factories[factory.ID()] = factory
}

// Create builds a handler for the given node kind from its raw config.
// Returns ErrHandlerNotRegistered for unknown kinds.
func (r *Registry) Create(kind string, config map[string]any) (protocol.Handler, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("node kind %q: %w", kind, ErrHandlerNotRegistered)
	}

	return factory.Create(config)
}

// Has reports whether a handler is registered for the kind.
func (r *Registry) Has(kind string) bool {
	_, ok := r.factories[kind]

	return ok
}

// Kinds returns the registered node kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}
