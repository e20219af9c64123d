// Package whatsapp implements the outbound messaging provider against a
// WhatsApp Business Cloud-style HTTP API.
package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/protocol"
)

const defaultTimeout = 30 * time.Second

// Client sends messages through POST {baseURL}/{phone_number_id}/messages
// using the profile's access token.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(timeout) }
}

// NewClient creates a provider client rooted at baseURL (e.g.
// "https://graph.facebook.com/v19.0").
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(defaultTimeout).
			SetHeader("Content-Type", "application/json"),
		logger: logger.With("module", "whatsapp_client"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Client) SendTemplate(ctx context.Context, profile *models.Profile, to, name, language string, components []protocol.TemplateComponentParams) (string, error) {
	if language == "" {
		language = "en"
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]any{
			"name":       name,
			"language":   map[string]any{"code": language},
			"components": components,
		},
	}

	return c.send(ctx, profile, payload)
}

func (c *Client) SendText(ctx context.Context, profile *models.Profile, to, text string) (string, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]any{"body": text},
	}

	return c.send(ctx, profile, payload)
}

func (c *Client) SendMedia(ctx context.Context, profile *models.Profile, to, mediaType, mediaURL, caption string) (string, error) {
	media := map[string]any{"link": mediaURL}
	if caption != "" {
		media["caption"] = caption
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              mediaType,
		mediaType:           media,
	}

	return c.send(ctx, profile, payload)
}

func (c *Client) SendInteractive(ctx context.Context, profile *models.Profile, to, body string, buttons []protocol.Button) (string, error) {
	// The provider rejects more than three reply buttons.
	if len(buttons) > 3 {
		buttons = buttons[:3]
	}

	replies := make([]map[string]any, 0, len(buttons))

	for i, button := range buttons {
		id := button.ID
		if id == "" {
			id = fmt.Sprintf("btn_%d", i)
		}

		replies = append(replies, map[string]any{
			"type": "reply",
			"reply": map[string]any{
				"id":    id,
				"title": button.Label,
			},
		})
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "button",
			"body":   map[string]any{"text": body},
			"action": map[string]any{"buttons": replies},
		},
	}

	return c.send(ctx, profile, payload)
}

func (c *Client) send(ctx context.Context, profile *models.Profile, payload map[string]any) (string, error) {
	var (
		result  sendResponse
		failure apiError
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(profile.AccessToken).
		SetBody(payload).
		SetResult(&result).
		SetError(&failure).
		Post("/" + profile.PhoneNumberID + "/messages")
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}

	if resp.IsError() {
		message := failure.Error.Message
		if message == "" {
			message = resp.String()
		}

		return "", fmt.Errorf("provider rejected message (status %d): %s", resp.StatusCode(), message)
	}

	if len(result.Messages) == 0 {
		return "", fmt.Errorf("provider returned no message id (status %d)", resp.StatusCode())
	}

	c.logger.DebugContext(ctx, "Message accepted by provider", "message_id", result.Messages[0].ID)

	return result.Messages[0].ID, nil
}
