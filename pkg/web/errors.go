package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/zaptalk/zaptalk/pkg/persistence"
	"github.com/zaptalk/zaptalk/pkg/trigger"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleTriggerError maps ingestion errors onto one consistent status
// policy: 404 when the slug resolves to nothing, 400 when the payload
// cannot be mapped, 500 otherwise.
func handleTriggerError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, trigger.ErrInvalidSlug),
		errors.Is(err, trigger.ErrNodeNotIndexed),
		errors.Is(err, trigger.ErrNotWebhookNode),
		persistence.IsProfileNotFound(err),
		persistence.IsAutomationNotFound(err),
		persistence.IsNodeNotFound(err):
		return notFound(c, err.Error())

	case errors.Is(err, trigger.ErrPhoneNotMapped),
		errors.Is(err, trigger.ErrInvalidRule):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}
