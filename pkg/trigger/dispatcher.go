package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zaptalk/zaptalk/pkg/eventbus"
	"github.com/zaptalk/zaptalk/pkg/events"
	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence"
)

// Dispatcher subscribes to CRM events and starts every automation whose
// trigger matches. One event may start runs across several automations;
// each run is independent.
type Dispatcher struct {
	store  persistence.Persistence
	runner Runner
	logger *slog.Logger
}

func NewDispatcher(store persistence.Persistence, runner Runner, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		runner: runner,
		logger: logger.With("module", "trigger_dispatcher"),
	}
}

// Bind registers the dispatcher's handlers on the bus. Subscribe must be
// called on the bus afterwards.
func (d *Dispatcher) Bind(bus eventbus.EventSubscriber) error {
	if err := bus.Handle(events.ContactCreatedEvent, d.onContactCreated); err != nil {
		return err
	}

	if err := bus.Handle(events.ContactTaggedEvent, d.onContactTagged); err != nil {
		return err
	}

	if err := bus.Handle(events.MessageReceivedEvent, d.onMessageReceived); err != nil {
		return err
	}

	return bus.Handle(events.ButtonClickedEvent, d.onButtonClicked)
}

// OnEvent routes one event to its handler. CRUD and messaging code paths
// call this synchronously; Bind wires the same handlers to a bus for
// asynchronous deployments.
func (d *Dispatcher) OnEvent(ctx context.Context, event any) error {
	switch event.(type) {
	case *events.ContactCreated:
		return d.onContactCreated(ctx, event)
	case *events.ContactTagged:
		return d.onContactTagged(ctx, event)
	case *events.MessageReceived:
		return d.onMessageReceived(ctx, event)
	case *events.ButtonClicked:
		return d.onButtonClicked(ctx, event)
	}

	return fmt.Errorf("unhandled event type %T", event)
}

func (d *Dispatcher) onContactCreated(ctx context.Context, raw any) error {
	event, ok := raw.(*events.ContactCreated)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", raw)
	}

	entries, err := d.store.TriggerIndexByOwner(ctx, event.OwnerID, models.KindNewContact)
	if err != nil {
		return fmt.Errorf("failed to look up new_contact triggers: %w", err)
	}

	return d.dispatch(ctx, entries, event.ContactID, event.TriggerData)
}

func (d *Dispatcher) onContactTagged(ctx context.Context, raw any) error {
	event, ok := raw.(*events.ContactTagged)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", raw)
	}

	entries, err := d.store.TriggerIndexByOwner(ctx, event.OwnerID, models.KindNewContactWithTag)
	if err != nil {
		return fmt.Errorf("failed to look up tag triggers: %w", err)
	}

	matched := make([]models.TriggerIndexEntry, 0, len(entries))

	for _, entry := range entries {
		if entry.Key == event.Tag {
			matched = append(matched, entry)
		}
	}

	return d.dispatch(ctx, matched, event.ContactID, annotate(event.TriggerData, "tag", event.Tag))
}

func (d *Dispatcher) onMessageReceived(ctx context.Context, raw any) error {
	event, ok := raw.(*events.MessageReceived)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", raw)
	}

	entries, err := d.store.TriggerIndexByOwner(ctx, event.OwnerID, models.KindMessageWithKeyword)
	if err != nil {
		return fmt.Errorf("failed to look up keyword triggers: %w", err)
	}

	text := strings.ToLower(event.Text)
	matched := make([]models.TriggerIndexEntry, 0, len(entries))

	for _, entry := range entries {
		if entry.Key != "" && strings.Contains(text, entry.Key) {
			matched = append(matched, entry)
		}
	}

	return d.dispatch(ctx, matched, event.ContactID, annotate(event.TriggerData, "message", event.Text))
}

func (d *Dispatcher) onButtonClicked(ctx context.Context, raw any) error {
	event, ok := raw.(*events.ButtonClicked)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", raw)
	}

	entries, err := d.store.TriggerIndexByOwner(ctx, event.OwnerID, models.KindButtonClicked)
	if err != nil {
		return fmt.Errorf("failed to look up button triggers: %w", err)
	}

	matched := make([]models.TriggerIndexEntry, 0, len(entries))

	for _, entry := range entries {
		if entry.Key == event.ButtonID {
			matched = append(matched, entry)
		}
	}

	return d.dispatch(ctx, matched, event.ContactID, annotate(event.TriggerData, "button_id", event.ButtonID))
}

// annotate returns a copy of the event's trigger data with one key added.
// Events arrive by pointer on the synchronous path, so the caller's map is
// never written to.
func annotate(base map[string]any, key string, value any) map[string]any {
	triggerData := make(map[string]any, len(base)+1)
	for k, v := range base {
		triggerData[k] = v
	}

	triggerData[key] = value

	return triggerData
}

// dispatch starts one run per matched trigger entry. A failed run is
// recorded by the engine; it does not stop the remaining matches.
func (d *Dispatcher) dispatch(ctx context.Context, entries []models.TriggerIndexEntry, contactID string, triggerData map[string]any) error {
	if len(entries) == 0 {
		return nil
	}

	var contact *models.Contact

	if contactID != "" {
		loaded, err := d.store.ContactByID(ctx, contactID)
		if err != nil {
			return fmt.Errorf("failed to load contact %s: %w", contactID, err)
		}

		contact = loaded
	}

	for _, entry := range entries {
		automation, err := d.store.AutomationByID(ctx, entry.AutomationID)
		if err != nil {
			d.logger.WarnContext(ctx, "Trigger index points at missing automation",
				"automation_id", entry.AutomationID, "error", err)

			continue
		}

		if !automation.IsActive() {
			continue
		}

		if _, err := d.runner.Run(ctx, automation, entry.NodeID, contact, triggerData); err != nil {
			d.logger.WarnContext(ctx, "Event-triggered run failed",
				"automation_id", automation.ID, "node_id", entry.NodeID, "error", err)
		}
	}

	return nil
}
