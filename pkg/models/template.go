package models

import "time"

// Template component types mirroring the provider's template shape.
const (
	ComponentHeader  = "HEADER"
	ComponentBody    = "BODY"
	ComponentButtons = "BUTTONS"
)

// Button types inside a BUTTONS component.
const (
	ButtonTypeURL        = "URL"
	ButtonTypeQuickReply = "QUICK_REPLY"
)

// MessageTemplate is a provider-approved message template owned by a
// tenant. Component text carries numbered {{n}} placeholders that are
// filled per send.
type MessageTemplate struct {
	ID         string              `json:"id"`
	OwnerID    string              `json:"owner_id" validate:"required"`
	Name       string              `json:"name"     validate:"required"`
	Language   string              `json:"language"`
	Components []TemplateComponent `json:"components"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// TemplateComponent is one section of a template: HEADER, BODY or BUTTONS.
type TemplateComponent struct {
	Type    string           `json:"type"`
	Format  string           `json:"format,omitempty"` // HEADER only: TEXT, IMAGE, ...
	Text    string           `json:"text,omitempty"`
	Buttons []TemplateButton `json:"buttons,omitempty"`
}

// TemplateButton is a button inside a BUTTONS component. URL buttons may
// carry a {{n}} placeholder in their URL.
type TemplateButton struct {
	Type string `json:"type"`
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}
