package models

// ExecutionContext is the per-node execution context the engine hands to a
// handler: the owner profile, the engine's working copy of the contact,
// the node being executed and the raw trigger payload.
type ExecutionContext struct {
	RunID       string
	Profile     *Profile
	Contact     *Contact
	Node        *Node
	TriggerData map[string]any
}

// HandlerResult is what a handler returns on success. UpdatedContact, when
// set, replaces the engine's working copy for the rest of the run.
// NextHandle, when set, restricts the outgoing edges to the matching
// source handle.
type HandlerResult struct {
	Details        string
	UpdatedContact *Contact
	NextHandle     string
}
