// Package cache provides the message template cache used by the
// send_template handler. The cache is constructor-injected and bounded;
// there is no process-global state.
package cache

import (
	"context"

	"github.com/zaptalk/zaptalk/pkg/models"
)

// TemplateCache caches provider message templates by id.
type TemplateCache interface {
	Get(ctx context.Context, id string) (*models.MessageTemplate, bool)
	Set(ctx context.Context, template *models.MessageTemplate)
	Invalidate(ctx context.Context, id string)
}
