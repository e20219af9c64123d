// Package sendbuttons implements the send_interactive_message action.
package sendbuttons

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
	ErrContactRequired = errors.New("send_interactive_message requires a contact")
	ErrMissingText     = errors.New("missing 'message_text' in configuration")
	ErrMissingButtons  = errors.New("missing 'buttons' in configuration")
)

// Action sends an interactive reply-button message. The provider honors
// at most three buttons; extras are dropped at the client.
type Action struct {
	messageText string
	buttons     []protocol.Button
	messenger   protocol.Messenger
}

func NewAction(config map[string]any, messenger protocol.Messenger) (*Action, error) {
	messageText, _ := config["message_text"].(string)
	if messageText == "" {
		return nil, ErrMissingText
	}

	buttonsConfig, _ := config["buttons"].([]any)
	if len(buttonsConfig) == 0 {
		return nil, ErrMissingButtons
	}

	buttons := make([]protocol.Button, 0, len(buttonsConfig))

	for i, raw := range buttonsConfig {
		buttonMap, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("button %d must be an object", i)
		}

		label, _ := buttonMap["label"].(string)
		if label == "" {
			return nil, fmt.Errorf("button %d missing 'label'", i)
		}

		id, _ := buttonMap["id"].(string)
		buttons = append(buttons, protocol.Button{ID: id, Label: label})
	}

	return &Action{
		messageText: messageText,
		buttons:     buttons,
		messenger:   messenger,
	}, nil
}

func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (*models.HandlerResult, error) {
	if execCtx.Contact == nil {
		return nil, ErrContactRequired
	}

	resolveCtx := resolver.Context{Contact: execCtx.Contact, Trigger: execCtx.TriggerData}
	body := resolver.Resolve(a.messageText, resolveCtx)

	buttons := make([]protocol.Button, 0, len(a.buttons))
	for _, button := range a.buttons {
		buttons = append(buttons, protocol.Button{
			ID:    button.ID,
			Label: resolver.Resolve(button.Label, resolveCtx),
		})
	}

	messageID, err := a.messenger.SendInteractive(ctx, execCtx.Profile, execCtx.Contact.Phone, body, buttons)
	if err != nil {
		return nil, fmt.Errorf("failed to send interactive message: %w", err)
	}

	logger.InfoContext(ctx, "Sent interactive message",
		"contact_id", execCtx.Contact.ID, "buttons", len(buttons), "message_id", messageID)

	return &models.HandlerResult{
		Details: fmt.Sprintf("Sent interactive message with %d buttons to %s", len(buttons), execCtx.Contact.Phone),
	}, nil
}
