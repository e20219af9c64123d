// Package sendtext implements the send_text_message action.
package sendtext

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
	ErrContactRequired = errors.New("send_text_message requires a contact")
	ErrMissingText     = errors.New("missing 'message_text' in configuration")
)

// Action sends a plain text message to the contact, resolving variables
// in the configured text.
type Action struct {
	messageText string
	messenger   protocol.Messenger
}

func NewAction(config map[string]any, messenger protocol.Messenger) (*Action, error) {
	messageText, _ := config["message_text"].(string)
	if messageText == "" {
		return nil, ErrMissingText
	}

	return &Action{
		messageText: messageText,
		messenger:   messenger,
	}, nil
}

func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (*models.HandlerResult, error) {
	if execCtx.Contact == nil {
		return nil, ErrContactRequired
	}

	text := resolver.Resolve(a.messageText, resolver.Context{
		Contact: execCtx.Contact,
		Trigger: execCtx.TriggerData,
	})

	messageID, err := a.messenger.SendText(ctx, execCtx.Profile, execCtx.Contact.Phone, text)
	if err != nil {
		return nil, fmt.Errorf("failed to send text message: %w", err)
	}

	logger.InfoContext(ctx, "Sent text message", "contact_id", execCtx.Contact.ID, "message_id", messageID)

	return &models.HandlerResult{
		Details: fmt.Sprintf("Sent text message to %s", execCtx.Contact.Phone),
	}, nil
}
