// Package services holds the application services sitting between the
// HTTP layer and persistence.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence"
	"github.com/zaptalk/zaptalk/pkg/trigger"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNoTriggerNodes = errors.New("automation has no trigger node")
)

// IsValidationError reports whether err is a client-input problem rather
// than an infrastructure failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNoTriggerNodes)
}

// Automation validates and saves flow graphs and keeps the trigger index
// in sync with them.
type Automation struct {
	store     persistence.Persistence
	validator *validator.Validate
}

func NewAutomation(store persistence.Persistence, v *validator.Validate) *Automation {
	return &Automation{store: store, validator: v}
}

// Save validates the automation, persists it and rebuilds its trigger
// index. Node configs are checked against their kind's schema so a bad
// config fails at save time, not mid-run.
func (s *Automation) Save(ctx context.Context, automation *models.Automation) error {
	if err := s.validator.Struct(automation); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	if len(automation.TriggerNodes()) == 0 {
		return ErrNoTriggerNodes
	}

	for _, node := range automation.Nodes {
		if err := models.ValidateNodeConfig(node.Data.Type, node.Data.Config); err != nil {
			return fmt.Errorf("%w: node %s: %s", ErrValidation, node.ID, err.Error())
		}
	}

	profile, err := s.store.ProfileByID(ctx, automation.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load owner profile: %w", err)
	}

	if err := s.store.SaveAutomation(ctx, automation); err != nil {
		return fmt.Errorf("failed to save automation: %w", err)
	}

	return trigger.Reindex(ctx, s.store, profile, automation)
}

// Get loads one automation.
func (s *Automation) Get(ctx context.Context, id string) (*models.Automation, error) {
	return s.store.AutomationByID(ctx, id)
}

// ListByOwner loads every automation of one tenant.
func (s *Automation) ListByOwner(ctx context.Context, ownerID string) ([]*models.Automation, error) {
	return s.store.AutomationsByOwner(ctx, ownerID)
}
