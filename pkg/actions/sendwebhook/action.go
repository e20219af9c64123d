// Package sendwebhook implements the send_webhook action: an outbound HTTP
// call to an external system, with placeholders resolved in the URL,
// headers, and body.
package sendwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/resolver"
)

const defaultTimeout = 30 * time.Second

var (
	ErrMissingURL     = errors.New("missing 'url' in configuration")
	ErrInvalidHeaders = errors.New("'headers' must be a JSON object of strings")
)

type Action struct {
	url     string
	method  string
	headers map[string]string
	body    string

	client *resty.Client
}

func NewAction(config map[string]any) (*Action, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, ErrMissingURL
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	headers, err := parseHeaders(config["headers"])
	if err != nil {
		return nil, err
	}

	body, _ := config["body"].(string)

	client := resty.New().SetTimeout(defaultTimeout)

	return &Action{
		url:     url,
		method:  strings.ToUpper(method),
		headers: headers,
		body:    body,
		client:  client,
	}, nil
}

// parseHeaders decodes the headers config, which is stored as JSON text
// (the shape the node config schema validates). Placeholders inside the
// values are resolved at execution time.
func parseHeaders(raw any) (map[string]string, error) {
	headers := make(map[string]string)

	if raw == nil {
		return headers, nil
	}

	text, ok := raw.(string)
	if !ok {
		return nil, ErrInvalidHeaders
	}

	if text == "" {
		return headers, nil
	}

	if err := json.Unmarshal([]byte(text), &headers); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHeaders, err)
	}

	return headers, nil
}

func (a *Action) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (*models.HandlerResult, error) {
	resolveCtx := resolver.Context{Contact: execCtx.Contact, Trigger: execCtx.TriggerData}

	url := resolver.Resolve(a.url, resolveCtx)

	req := a.client.R().SetContext(ctx)

	for key, value := range a.headers {
		req.SetHeader(key, resolver.Resolve(value, resolveCtx))
	}

	if a.body != "" {
		if req.Header.Get("Content-Type") == "" {
			req.SetHeader("Content-Type", "application/json")
		}

		req.SetBody(resolver.Resolve(a.body, resolveCtx))
	}

	resp, err := req.Execute(a.method, url)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), resp.String())
	}

	logger.InfoContext(ctx, "Sent webhook", "url", url, "status", resp.StatusCode())

	return &models.HandlerResult{
		Details: fmt.Sprintf("%s %s returned %d", a.method, url, resp.StatusCode()),
	}, nil
}
