package trigger

import (
	"context"
	"fmt"
	"strings"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence"
)

// Slug builds the public webhook slug for a webhook trigger node.
func Slug(webhookPrefix, nodeID string) string {
	return webhookPrefix + "_" + nodeID
}

// DeriveIndex computes the trigger index rows for one automation. The
// graph stays authoritative; the index is a derived lookup structure
// rebuilt on every save.
func DeriveIndex(profile *models.Profile, automation *models.Automation) []models.TriggerIndexEntry {
	entries := make([]models.TriggerIndexEntry, 0)

	for _, node := range automation.TriggerNodes() {
		entry := models.TriggerIndexEntry{
			OwnerID:      automation.OwnerID,
			AutomationID: automation.ID,
			NodeID:       node.ID,
			TriggerType:  node.Data.Type,
		}

		switch node.Data.Type {
		case models.KindWebhookReceived:
			entry.Key = Slug(profile.WebhookPrefix, node.ID)
		case models.KindNewContactWithTag:
			entry.Key, _ = node.Data.Config["tag"].(string)
		case models.KindMessageWithKeyword:
			keyword, _ := node.Data.Config["keyword"].(string)
			entry.Key = strings.ToLower(strings.TrimSpace(keyword))
		case models.KindButtonClicked:
			entry.Key, _ = node.Data.Config["button_id"].(string)
		}

		entries = append(entries, entry)
	}

	return entries
}

// Reindex replaces the stored trigger index for the automation.
func Reindex(ctx context.Context, store persistence.Persistence, profile *models.Profile, automation *models.Automation) error {
	entries := DeriveIndex(profile, automation)

	if err := store.ReplaceTriggerIndex(ctx, automation.ID, entries); err != nil {
		return fmt.Errorf("failed to replace trigger index: %w", err)
	}

	return nil
}
