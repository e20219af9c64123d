// Package tags implements the add_tag and remove_tag contact actions.
package tags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zaptalk/zaptalk/pkg/models"
)

var (
	ErrContactRequired = errors.New("tag actions require a contact")
	ErrMissingTag      = errors.New("missing 'tag' in configuration")
)

type mode int

const (
	modeAdd mode = iota
	modeRemove
)

// Action adds or removes a single tag on the contact. The mutation is
// returned through the handler result so the engine can persist it and
// carry it into downstream nodes.
type Action struct {
	tag  string
	mode mode
}

func newAction(config map[string]any, m mode) (*Action, error) {
	tag, _ := config["tag"].(string)
	if tag == "" {
		return nil, ErrMissingTag
	}

	return &Action{tag: tag, mode: m}, nil
}

func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (*models.HandlerResult, error) {
	if execCtx.Contact == nil {
		return nil, ErrContactRequired
	}

	var (
		updated *models.Contact
		details string
	)

	switch a.mode {
	case modeAdd:
		updated = execCtx.Contact.WithTag(a.tag)
		details = fmt.Sprintf("Added tag %q", a.tag)
	case modeRemove:
		updated = execCtx.Contact.WithoutTag(a.tag)
		details = fmt.Sprintf("Removed tag %q", a.tag)
	}

	logger.InfoContext(ctx, "Updated contact tags",
		"contact_id", execCtx.Contact.ID, "tag", a.tag, "added", a.mode == modeAdd)

	return &models.HandlerResult{Details: details, UpdatedContact: updated}, nil
}
