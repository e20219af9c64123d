// Package sendmedia implements the send_media action.
package sendmedia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/protocol"
	"github.com/zaptalk/zaptalk/pkg/resolver"
)

var (
	ErrContactRequired  = errors.New("send_media requires a contact")
	ErrMissingMediaURL  = errors.New("missing 'media_url' in configuration")
	ErrInvalidMediaType = errors.New("'media_type' must be image, video or document")
)

var validMediaTypes = map[string]bool{
	"image":    true,
	"video":    true,
	"document": true,
}

// Action sends a media message (image, video or document) with an
// optional caption. Variables resolve in both the URL and the caption.
type Action struct {
	mediaURL  string
	mediaType string
	caption   string
	messenger protocol.Messenger
}

func NewAction(config map[string]any, messenger protocol.Messenger) (*Action, error) {
	mediaURL, _ := config["media_url"].(string)
	if mediaURL == "" {
		return nil, ErrMissingMediaURL
	}

	mediaType, _ := config["media_type"].(string)
	if !validMediaTypes[mediaType] {
		return nil, ErrInvalidMediaType
	}

	caption, _ := config["caption"].(string)

	return &Action{
		mediaURL:  mediaURL,
		mediaType: mediaType,
		caption:   caption,
		messenger: messenger,
	}, nil
}

func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (*models.HandlerResult, error) {
	if execCtx.Contact == nil {
		return nil, ErrContactRequired
	}

	resolveCtx := resolver.Context{Contact: execCtx.Contact, Trigger: execCtx.TriggerData}
	mediaURL := resolver.Resolve(a.mediaURL, resolveCtx)
	caption := resolver.Resolve(a.caption, resolveCtx)

	messageID, err := a.messenger.SendMedia(ctx, execCtx.Profile, execCtx.Contact.Phone, a.mediaType, mediaURL, caption)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s message: %w", a.mediaType, err)
	}

	logger.InfoContext(ctx, "Sent media message",
		"contact_id", execCtx.Contact.ID, "media_type", a.mediaType, "message_id", messageID)

	return &models.HandlerResult{
		Details: fmt.Sprintf("Sent %s message to %s", a.mediaType, execCtx.Contact.Phone),
	}, nil
}
