// Package sendtemplate implements the send_template action: it fills a
// provider message template's numbered placeholders and sends it.
package sendtemplate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"github.com/zaptalk/zaptalk/pkg/cache"
	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence"
	"github.com/zaptalk/zaptalk/pkg/protocol"
	"github.com/zaptalk/zaptalk/pkg/resolver"
)

var (
	ErrContactRequired   = errors.New("send_template requires a contact")
	ErrMissingTemplateID = errors.New("missing 'template_id' in configuration")
	ErrTemplateNotFound  = errors.New("template not found")
)

var numberedPlaceholder = regexp.MustCompile(`\{\{(\d+)\}\}`)

// Action loads the configured template, resolves each {{n}} placeholder
// through the variable resolver, and sends the assembled message.
// Placeholder {{1}} defaults to the contact's name unless the node config
// overrides it.
type Action struct {
	templateID string
	values     map[string]string

	store     persistence.Persistence
	templates cache.TemplateCache
	messenger protocol.Messenger
}

func NewAction(config map[string]any, store persistence.Persistence, templates cache.TemplateCache, messenger protocol.Messenger) (*Action, error) {
	templateID, _ := config["template_id"].(string)
	if templateID == "" {
		return nil, ErrMissingTemplateID
	}

	values := make(map[string]string)
	if rawValues, ok := config["values"].(map[string]any); ok {
		for key, value := range rawValues {
			if text, ok := value.(string); ok {
				values[key] = text
			}
		}
	}

	return &Action{
		templateID: templateID,
		values:     values,
		store:      store,
		templates:  templates,
		messenger:  messenger,
	}, nil
}

func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (*models.HandlerResult, error) {
	if execCtx.Contact == nil {
		return nil, ErrContactRequired
	}

	template, err := a.loadTemplate(ctx)
	if err != nil {
		return nil, err
	}

	resolveCtx := resolver.Context{Contact: execCtx.Contact, Trigger: execCtx.TriggerData}
	components := a.buildComponents(template, resolveCtx)

	messageID, err := a.messenger.SendTemplate(ctx, execCtx.Profile,
		execCtx.Contact.Phone, template.Name, template.Language, components)
	if err != nil {
		return nil, fmt.Errorf("failed to send template %q: %w", template.Name, err)
	}

	logger.InfoContext(ctx, "Sent template message",
		"contact_id", execCtx.Contact.ID, "template", template.Name, "message_id", messageID)

	return &models.HandlerResult{
		Details: fmt.Sprintf("Sent template %q to %s", template.Name, execCtx.Contact.Phone),
	}, nil
}

func (a *Action) loadTemplate(ctx context.Context) (*models.MessageTemplate, error) {
	if template, ok := a.templates.Get(ctx, a.templateID); ok {
		return template, nil
	}

	template, err := a.store.TemplateByID(ctx, a.templateID)
	if err != nil {
		if persistence.IsTemplateNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, a.templateID)
		}

		return nil, fmt.Errorf("failed to load template %s: %w", a.templateID, err)
	}

	a.templates.Set(ctx, template)

	return template, nil
}

// buildComponents assembles the provider component parameters for every
// component carrying numbered placeholders.
func (a *Action) buildComponents(template *models.MessageTemplate, resolveCtx resolver.Context) []protocol.TemplateComponentParams {
	components := make([]protocol.TemplateComponentParams, 0, len(template.Components))

	for _, component := range template.Components {
		switch component.Type {
		case models.ComponentHeader, models.ComponentBody:
			params := a.resolvePlaceholders(component.Text, resolveCtx)
			if len(params) == 0 {
				continue
			}

			kind := "body"
			if component.Type == models.ComponentHeader {
				kind = "header"
			}

			components = append(components, protocol.TemplateComponentParams{
				Type:       kind,
				Parameters: params,
			})
		case models.ComponentButtons:
			for index, button := range component.Buttons {
				if button.Type != models.ButtonTypeURL {
					continue
				}

				params := a.resolvePlaceholders(button.URL, resolveCtx)
				if len(params) == 0 {
					continue
				}

				components = append(components, protocol.TemplateComponentParams{
					Type:       "button",
					SubType:    "url",
					Index:      strconv.Itoa(index),
					Parameters: params,
				})
			}
		}
	}

	return components
}

// resolvePlaceholders extracts the {{n}} placeholders from text and
// resolves each one's configured value, in numeric order.
func (a *Action) resolvePlaceholders(text string, resolveCtx resolver.Context) []protocol.TemplateParam {
	matches := numberedPlaceholder.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	numbers := make([]int, 0, len(matches))

	for _, match := range matches {
		n, err := strconv.Atoi(match[1])
		if err != nil || seen[n] {
			continue
		}

		seen[n] = true
		numbers = append(numbers, n)
	}

	sort.Ints(numbers)

	params := make([]protocol.TemplateParam, 0, len(numbers))

	for _, n := range numbers {
		value, ok := a.values[strconv.Itoa(n)]
		if !ok || value == "" {
			// Placeholder 1 means the contact's name by convention.
			if n == 1 {
				value = "{{contact.name}}"
			}
		}

		params = append(params, protocol.TemplateParam{
			Type: "text",
			Text: resolver.Resolve(value, resolveCtx),
		})
	}

	return params
}
