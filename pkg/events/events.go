// Package events defines the event types that flow between the ingestion
// layer, the trigger dispatcher and the automation engine.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the single stream all automation events are published to.
const Topic = "zaptalk.events"

const (
	EventKeyMetadataKey  = "key"
	EventTypeMetadataKey = "event_type"
)

const (
	// Inbound CRM events that may start automations.
	ContactCreatedEvent  EventType = "contact.created"
	ContactTaggedEvent   EventType = "contact.tagged"
	MessageReceivedEvent EventType = "message.received"
	ButtonClickedEvent   EventType = "button.clicked"

	// Automation run lifecycle events.
	RunStartedEvent   EventType = "run.started"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	OwnerID   string    `json:"owner_id"`
}

func NewBaseEvent(eventType EventType, ownerID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		OwnerID:   ownerID,
	}
}

// ContactCreated is emitted when a contact enters the CRM, either through
// a capture webhook or an inbound message from an unknown number.
type ContactCreated struct {
	BaseEvent

	ContactID   string         `json:"contact_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ContactCreated) GetType() EventType { return ContactCreatedEvent }

// ContactTagged is emitted when a tag is added to a contact.
type ContactTagged struct {
	BaseEvent

	ContactID   string         `json:"contact_id"`
	Tag         string         `json:"tag"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ContactTagged) GetType() EventType { return ContactTaggedEvent }

// MessageReceived is emitted for every inbound text message.
type MessageReceived struct {
	BaseEvent

	ContactID   string         `json:"contact_id"`
	Text        string         `json:"text"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e MessageReceived) GetType() EventType { return MessageReceivedEvent }

// ButtonClicked is emitted when a contact taps an interactive reply
// button.
type ButtonClicked struct {
	BaseEvent

	ContactID   string         `json:"contact_id"`
	ButtonID    string         `json:"button_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ButtonClicked) GetType() EventType { return ButtonClickedEvent }

// RunStarted is emitted when the engine creates a run row and begins
// traversal.
type RunStarted struct {
	BaseEvent

	RunID        string `json:"run_id"`
	AutomationID string `json:"automation_id"`
	ContactID    string `json:"contact_id,omitempty"`
	TriggerType  string `json:"trigger_type"`
}

func (e RunStarted) GetType() EventType { return RunStartedEvent }

// RunCompleted is emitted when a run finishes with every node processed.
type RunCompleted struct {
	BaseEvent

	RunID          string        `json:"run_id"`
	AutomationID   string        `json:"automation_id"`
	NodesProcessed int           `json:"nodes_processed"`
	Duration       time.Duration `json:"duration"`
}

func (e RunCompleted) GetType() EventType { return RunCompletedEvent }

// RunFailed is emitted when a node handler fails and the run halts.
type RunFailed struct {
	BaseEvent

	RunID        string        `json:"run_id"`
	AutomationID string        `json:"automation_id"`
	NodeID       string        `json:"node_id"`
	Error        string        `json:"error"`
	Duration     time.Duration `json:"duration"`
}

func (e RunFailed) GetType() EventType { return RunFailedEvent }
