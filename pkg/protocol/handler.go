// Package protocol defines the contracts between the traversal engine,
// the node handlers and the messaging provider.
package protocol

import (
	"context"
	"log/slog"

	"github.com/zaptalk/zaptalk/pkg/models"
)

// Handler executes one node against the per-node execution context. A
// returned error fails the whole run; the engine never continues past a
// failed node.
type Handler interface {
	Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (*models.HandlerResult, error)
}

// HandlerFactory builds a handler from a node's raw config and names the
// node kind it serves.
type HandlerFactory interface {
	Create(config map[string]any) (Handler, error)
	ID() string
}
