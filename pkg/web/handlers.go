// Package web exposes the inbound webhook trigger surface.
package web

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/zaptalk/zaptalk/pkg/persistence"
	"github.com/zaptalk/zaptalk/pkg/trigger"
)

// TriggerHandlers serves the public webhook trigger routes. Two route
// shapes exist for different deployment targets; both resolve the same
// "{webhook_prefix}_{node_id}" slug and behave identically.
type TriggerHandlers struct {
	webhooks *trigger.WebhookService
	store    persistence.Persistence
	logger   *slog.Logger
}

func NewTriggerHandlers(webhooks *trigger.WebhookService, store persistence.Persistence, logger *slog.Logger) *TriggerHandlers {
	return &TriggerHandlers{
		webhooks: webhooks,
		store:    store,
		logger:   logger.With("module", "web"),
	}
}

// Register mounts the trigger routes on the app.
func (h *TriggerHandlers) Register(app *fiber.App) {
	app.Get("/trigger/:slug", h.HandleTrigger)
	app.Post("/trigger/:slug", h.HandleTrigger)

	app.Get("/t/*", h.HandleWildcardTrigger)
	app.Post("/t/*", h.HandleWildcardTrigger)

	app.Get("/healthz", h.HandleHealth)
}

func (h *TriggerHandlers) HandleTrigger(c fiber.Ctx) error {
	return h.handle(c, c.Params("slug"))
}

func (h *TriggerHandlers) HandleWildcardTrigger(c fiber.Ctx) error {
	return h.handle(c, c.Params("*"))
}

func (h *TriggerHandlers) handle(c fiber.Ctx, slug string) error {
	payload, err := extractPayload(c)
	if err != nil {
		return badRequest(c, "invalid JSON body: "+err.Error())
	}

	result, err := h.webhooks.Handle(c.Context(), slug, payload)
	if err != nil {
		return handleTriggerError(c, err)
	}

	if result.Captured {
		return c.JSON(fiber.Map{
			"status":  "captured",
			"message": "sample payload stored for field mapping",
		})
	}

	response := fiber.Map{"status": "ok"}
	if result.Run != nil {
		response["run_id"] = result.Run.ID
	}

	return c.JSON(response)
}

// extractPayload reads the trigger payload: the query string for GET
// requests, the JSON body for everything else.
func extractPayload(c fiber.Ctx) (map[string]any, error) {
	if c.Method() == fiber.MethodGet {
		payload := make(map[string]any)
		for key, values := range c.Queries() {
			payload[key] = values
		}

		return payload, nil
	}

	body := c.Body()
	if len(body) == 0 {
		return map[string]any{}, nil
	}

	payload := make(map[string]any)
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return payload, nil
}

func (h *TriggerHandlers) HandleHealth(c fiber.Ctx) error {
	if err := h.store.HealthCheck(c.Context()); err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"status": "up"})
}
