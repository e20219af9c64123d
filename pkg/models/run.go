package models

import "time"

// RunStatus is the lifecycle state of an automation run. A run starts as
// running and receives exactly one terminal update.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// AutomationRun is the audit record for one end-to-end execution of an
// automation against one contact and trigger event.
type AutomationRun struct {
	ID           string    `json:"id"`
	AutomationID string    `json:"automation_id" validate:"required"`
	ContactID    string    `json:"contact_id,omitempty"`
	Status       RunStatus `json:"status"`
	Details      string    `json:"details"`
	RunAt        time.Time `json:"run_at"`
}

// NodeStat is the per-node health counter shown in the editor. The engine
// only ever increments it; control flow never reads it.
type NodeStat struct {
	AutomationID string    `json:"automation_id"`
	NodeID       string    `json:"node_id"`
	SuccessCount int       `json:"success_count"`
	ErrorCount   int       `json:"error_count"`
	LastRunAt    time.Time `json:"last_run_at"`
}

// NodeLog is one entry in the bounded per-node execution log.
type NodeLog struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id"`
	Status    string    `json:"status"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// TriggerIndexEntry is a derived lookup row mapping an external event key
// (webhook slug, tag, keyword, button id) to the automation node it
// starts. Re-derived on every automation save; the graph stays
// authoritative.
type TriggerIndexEntry struct {
	OwnerID      string `json:"owner_id"`
	AutomationID string `json:"automation_id"`
	NodeID       string `json:"node_id"`
	TriggerType  string `json:"trigger_type"`
	Key          string `json:"key,omitempty"`
}
