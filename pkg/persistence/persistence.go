// Package persistence provides the storage abstraction consumed by the
// automation engine and trigger ingestion.
package persistence

import (
	"context"

	"github.com/zaptalk/zaptalk/pkg/models"
)

// NodeLogLimit bounds the per-node execution log. Implementations drop
// the oldest entries past this count.
const NodeLogLimit = 50

type Persistence interface {
	ProfileByID(ctx context.Context, id string) (*models.Profile, error)
	ProfileByWebhookPrefix(ctx context.Context, prefix string) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error

	ContactByID(ctx context.Context, id string) (*models.Contact, error)
	ContactByPhone(ctx context.Context, ownerID, phone string) (*models.Contact, error)
	SaveContact(ctx context.Context, contact *models.Contact) error

	TemplateByID(ctx context.Context, id string) (*models.MessageTemplate, error)
	SaveTemplate(ctx context.Context, template *models.MessageTemplate) error

	AutomationByID(ctx context.Context, id string) (*models.Automation, error)
	AutomationsByOwner(ctx context.Context, ownerID string) ([]*models.Automation, error)
	SaveAutomation(ctx context.Context, automation *models.Automation) error
	// UpdateNodeConfig rewrites a single node's config inside the stored
	// graph blob. Used by webhook capture mode to persist the sample
	// payload without touching the rest of the graph.
	UpdateNodeConfig(ctx context.Context, automationID, nodeID string, config map[string]any) error

	CreateRun(ctx context.Context, run *models.AutomationRun) error
	UpdateRunStatus(ctx context.Context, runID string, status models.RunStatus, details string) error
	RunByID(ctx context.Context, id string) (*models.AutomationRun, error)

	IncrementNodeStat(ctx context.Context, automationID, nodeID string, success bool) error
	AppendNodeLog(ctx context.Context, entry *models.NodeLog) error
	NodeLogs(ctx context.Context, automationID, nodeID string) ([]models.NodeLog, error)
	NodeStat(ctx context.Context, automationID, nodeID string) (*models.NodeStat, error)

	ReplaceTriggerIndex(ctx context.Context, automationID string, entries []models.TriggerIndexEntry) error
	TriggerIndexByKey(ctx context.Context, triggerType, key string) ([]models.TriggerIndexEntry, error)
	TriggerIndexByOwner(ctx context.Context, ownerID, triggerType string) ([]models.TriggerIndexEntry, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
