package protocol

import (
	"context"

	"github.com/zaptalk/zaptalk/pkg/models"
)

// TemplateComponentParams is the provider wire format for one filled
// template component: type plus ordered parameters.
type TemplateComponentParams struct {
	Type       string         `json:"type"`
	SubType    string         `json:"sub_type,omitempty"`
	Index      string         `json:"index,omitempty"`
	Parameters []TemplateParam `json:"parameters"`
}

// TemplateParam is one positional parameter inside a component.
type TemplateParam struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Button is one reply button of an interactive message. The provider
// honors at most three.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Messenger is the outbound WhatsApp-Business-style provider. Every call
// takes the owner profile (credentials) and a normalized destination
// phone, and returns the provider message id.
type Messenger interface {
	SendTemplate(ctx context.Context, profile *models.Profile, to, name, language string, components []TemplateComponentParams) (string, error)
	SendText(ctx context.Context, profile *models.Profile, to, text string) (string, error)
	SendMedia(ctx context.Context, profile *models.Profile, to, mediaType, mediaURL, caption string) (string, error)
	SendInteractive(ctx context.Context, profile *models.Profile, to, body string, buttons []Button) (string, error)
}
