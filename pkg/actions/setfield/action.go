// Package setfield implements the set_custom_field contact action.
package setfield

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/resolver"
)

var (
	ErrContactRequired = errors.New("set_custom_field requires a contact")
	ErrMissingField    = errors.New("missing 'field_name' in configuration")
)

// Action sets a named custom field on the contact. The value may carry
// placeholders, so trigger data can be captured into the contact record.
type Action struct {
	fieldName string
	value     string
}

func NewAction(config map[string]any) (*Action, error) {
	fieldName, _ := config["field_name"].(string)
	if fieldName == "" {
		return nil, ErrMissingField
	}

	value, _ := config["field_value"].(string)

	return &Action{fieldName: fieldName, value: value}, nil
}

func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (*models.HandlerResult, error) {
	if execCtx.Contact == nil {
		return nil, ErrContactRequired
	}

	resolved := resolver.Resolve(a.value, resolver.Context{
		Contact: execCtx.Contact,
		Trigger: execCtx.TriggerData,
	})

	updated := execCtx.Contact.WithCustomField(a.fieldName, resolved)

	logger.InfoContext(ctx, "Set contact custom field",
		"contact_id", execCtx.Contact.ID, "field", a.fieldName)

	return &models.HandlerResult{
		Details:        fmt.Sprintf("Set field %q to %q", a.fieldName, resolved),
		UpdatedContact: updated,
	}, nil
}
