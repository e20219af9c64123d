package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zaptalk/zaptalk/pkg/eventbus"
	"github.com/zaptalk/zaptalk/pkg/events"
	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence"
)

var (
	ErrInvalidSlug    = errors.New("invalid webhook slug")
	ErrNotWebhookNode = errors.New("node is not a webhook trigger")
	ErrNodeNotIndexed = errors.New("no automation contains the trigger node")
)

// Runner starts automation runs. Satisfied by *engine.Engine.
type Runner interface {
	Run(ctx context.Context, automation *models.Automation, startNodeID string, contact *models.Contact, triggerData map[string]any) (*models.AutomationRun, error)
}

// WebhookResult reports what an inbound webhook did: captured a sample
// payload for the editor, or executed the automation.
type WebhookResult struct {
	Captured bool
	Contact  *models.Contact
	Run      *models.AutomationRun
}

// WebhookService resolves inbound webhook slugs to automations and either
// captures a sample payload or maps the payload to a contact and runs the
// flow.
type WebhookService struct {
	store     persistence.Persistence
	runner    Runner
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func NewWebhookService(store persistence.Persistence, runner Runner, publisher eventbus.EventPublisher, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		store:     store,
		runner:    runner,
		publisher: publisher,
		logger:    logger.With("module", "webhook_trigger"),
	}
}

// ParseSlug splits a "{webhook_prefix}_{node_id}" slug. Node ids carry no
// underscores, so the last underscore is the separator.
func ParseSlug(slug string) (prefix, nodeID string, err error) {
	idx := strings.LastIndex(slug, "_")
	if idx <= 0 || idx == len(slug)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}

	return slug[:idx], slug[idx+1:], nil
}

// Handle processes one inbound webhook call.
func (s *WebhookService) Handle(ctx context.Context, slug string, payload map[string]any) (*WebhookResult, error) {
	prefix, nodeID, err := ParseSlug(slug)
	if err != nil {
		return nil, err
	}

	profile, err := s.store.ProfileByWebhookPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve webhook prefix %q: %w", prefix, err)
	}

	automation, node, err := s.findTriggerNode(ctx, profile.ID, slug, nodeID)
	if err != nil {
		return nil, err
	}

	if node.Data.Type != models.KindWebhookReceived {
		return nil, fmt.Errorf("%w: node %s is %q", ErrNotWebhookNode, nodeID, node.Data.Type)
	}

	// Listening mode: the first payload is captured into the node config
	// so the editor can offer its fields for mapping. The automation does
	// not run.
	if _, captured := node.Data.Config["last_captured_data"]; !captured {
		config := make(map[string]any, len(node.Data.Config)+1)
		for k, v := range node.Data.Config {
			config[k] = v
		}

		config["last_captured_data"] = payload

		if err := s.store.UpdateNodeConfig(ctx, automation.ID, node.ID, config); err != nil {
			return nil, fmt.Errorf("failed to capture webhook payload: %w", err)
		}

		s.logger.InfoContext(ctx, "Captured webhook sample payload",
			"automation_id", automation.ID, "node_id", node.ID)

		return &WebhookResult{Captured: true}, nil
	}

	rules, err := ParseMappingRules(node.Data.Config)
	if err != nil {
		return nil, err
	}

	mapped, err := ApplyMapping(rules, payload)
	if err != nil {
		return nil, err
	}

	contact, created, err := s.upsertContact(ctx, profile.ID, mapped)
	if err != nil {
		return nil, err
	}

	if created {
		s.publish(ctx, contact.ID, events.ContactCreated{
			BaseEvent:   events.NewBaseEvent(events.ContactCreatedEvent, profile.ID),
			ContactID:   contact.ID,
			TriggerData: payload,
		})
	}

	run, err := s.runner.Run(ctx, automation, node.ID, contact, payload)
	if err != nil {
		// The run row already records the failure; the webhook caller
		// only needs to know the event was accepted.
		s.logger.WarnContext(ctx, "Webhook-triggered run failed",
			"automation_id", automation.ID, "error", err)
	}

	return &WebhookResult{Contact: contact, Run: run}, nil
}

// findTriggerNode resolves the automation containing the trigger node,
// preferring the derived trigger index and falling back to scanning the
// owner's automations.
func (s *WebhookService) findTriggerNode(ctx context.Context, ownerID, slug, nodeID string) (*models.Automation, *models.Node, error) {
	entries, err := s.store.TriggerIndexByKey(ctx, models.KindWebhookReceived, slug)
	if err == nil {
		for _, entry := range entries {
			if entry.OwnerID != ownerID {
				continue
			}

			automation, err := s.store.AutomationByID(ctx, entry.AutomationID)
			if err != nil {
				continue
			}

			if node := automation.NodeByID(nodeID); node != nil {
				return automation, node, nil
			}
		}
	}

	automations, err := s.store.AutomationsByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list automations: %w", err)
	}

	for _, automation := range automations {
		if node := automation.NodeByID(nodeID); node != nil {
			return automation, node, nil
		}
	}

	return nil, nil, fmt.Errorf("%w: %s", ErrNodeNotIndexed, nodeID)
}

// upsertContact finds the contact by normalized phone or creates it, then
// applies the mapped attributes.
func (s *WebhookService) upsertContact(ctx context.Context, ownerID string, mapped *MappedContact) (*models.Contact, bool, error) {
	phone := models.NormalizePhone(mapped.Phone)

	contact, err := s.store.ContactByPhone(ctx, ownerID, phone)

	created := false

	switch {
	case err == nil:
	case persistence.IsContactNotFound(err):
		contact = &models.Contact{
			OwnerID:   ownerID,
			Phone:     phone,
			CreatedAt: time.Now().UTC(),
		}
		created = true
	default:
		return nil, false, fmt.Errorf("failed to look up contact: %w", err)
	}

	if mapped.Name != "" {
		contact.Name = mapped.Name
	}

	if mapped.Email != "" {
		contact.Email = mapped.Email
	}

	for _, tag := range mapped.Tags {
		contact = contact.WithTag(tag)
	}

	for key, value := range mapped.CustomFields {
		contact = contact.WithCustomField(key, value)
	}

	if err := s.store.SaveContact(ctx, contact); err != nil {
		return nil, false, fmt.Errorf("failed to save contact: %w", err)
	}

	return contact, created, nil
}

func (s *WebhookService) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
