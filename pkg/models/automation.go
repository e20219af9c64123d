package models

import "time"

// AutomationStatus represents the lifecycle state of an automation.
type AutomationStatus string

const (
	AutomationStatusActive AutomationStatus = "active"
	AutomationStatusPaused AutomationStatus = "paused"
)

// NodeType distinguishes the three node categories in a flow graph.
type NodeType string

const (
	NodeTypeTrigger NodeType = "trigger"
	NodeTypeAction  NodeType = "action"
	NodeTypeLogic   NodeType = "logic"
)

// Trigger node kinds.
const (
	KindWebhookReceived    = "webhook_received"
	KindNewContact         = "new_contact"
	KindNewContactWithTag  = "new_contact_with_tag"
	KindMessageWithKeyword = "message_received_with_keyword"
	KindButtonClicked      = "button_clicked"
)

// Action and logic node kinds.
const (
	KindSendTemplate    = "send_template"
	KindSendText        = "send_text_message"
	KindSendMedia       = "send_media"
	KindSendInteractive = "send_interactive_message"
	KindAddTag          = "add_tag"
	KindRemoveTag       = "remove_tag"
	KindSetCustomField  = "set_custom_field"
	KindSendWebhook     = "send_webhook"
	KindCondition       = "condition"
	KindSplitPath       = "split_path"
)

// TriggerKinds lists every trigger node kind.
var TriggerKinds = []string{
	KindWebhookReceived,
	KindNewContact,
	KindNewContactWithTag,
	KindMessageWithKeyword,
	KindButtonClicked,
}

// IsTriggerKind reports whether kind names a trigger node kind.
func IsTriggerKind(kind string) bool {
	for _, k := range TriggerKinds {
		if k == kind {
			return true
		}
	}

	return false
}

// Automation is a user-authored flow graph. Nodes and edges are stored
// denormalized as one JSON blob so the whole graph versions as a unit;
// the trigger index derived from it is an optimization, never the source
// of truth.
type Automation struct {
	ID        string           `json:"id"`
	OwnerID   string           `json:"owner_id" validate:"required"`
	Name      string           `json:"name"     validate:"required,min=3"`
	Status    AutomationStatus `json:"status"   validate:"required,oneof=active paused"`
	Nodes     []Node           `json:"nodes"`
	Edges     []Edge           `json:"edges"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Node is a single step in a flow graph. Config is kind-specific JSON,
// validated against the kind's schema at the storage boundary.
type Node struct {
	ID   string   `json:"id" validate:"required"`
	Data NodeData `json:"data"`
}

// NodeData carries the node's kind and configuration.
type NodeData struct {
	NodeType NodeType       `json:"nodeType"`
	Type     string         `json:"type" validate:"required"`
	Label    string         `json:"label"`
	Config   map[string]any `json:"config"`
}

// Edge is a directed connection between two nodes. SourceHandle, when
// set, binds the edge to a named logical output of the source node.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// NodeByID returns the node with the given id, or nil.
func (a *Automation) NodeByID(id string) *Node {
	for i := range a.Nodes {
		if a.Nodes[i].ID == id {
			return &a.Nodes[i]
		}
	}

	return nil
}

// EdgesFrom returns the outgoing edges of a node, filtered by the handle
// the node emitted. With an empty handle every edge is taken; with a
// handle set, only edges carrying that handle or no handle at all fire.
func (a *Automation) EdgesFrom(nodeID, handle string) []Edge {
	edges := make([]Edge, 0)

	for _, e := range a.Edges {
		if e.Source != nodeID {
			continue
		}

		if handle == "" || e.SourceHandle == "" || e.SourceHandle == handle {
			edges = append(edges, e)
		}
	}

	return edges
}

// TriggerNodes returns every trigger node in the graph.
func (a *Automation) TriggerNodes() []Node {
	nodes := make([]Node, 0)

	for _, n := range a.Nodes {
		if IsTriggerKind(n.Data.Type) {
			nodes = append(nodes, n)
		}
	}

	return nodes
}

// IsActive reports whether the automation may execute.
func (a *Automation) IsActive() bool {
	return a.Status == AutomationStatusActive
}
