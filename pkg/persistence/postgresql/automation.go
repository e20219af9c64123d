package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence"
)

const automationColumns = `id, owner_id, name, status, nodes, edges, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *Persistence) AutomationByID(ctx context.Context, id string) (*models.Automation, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+automationColumns+` FROM automations WHERE id = $1`, id)

	automation, err := scanAutomation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrAutomationNotFound
		}

		return nil, err
	}

	return automation, nil
}

func (p *Persistence) AutomationsByOwner(ctx context.Context, ownerID string) ([]*models.Automation, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+automationColumns+` FROM automations WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	automations := make([]*models.Automation, 0)

	for rows.Next() {
		automation, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}

		automations = append(automations, automation)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating automations: %w", err)
	}

	return automations, nil
}

func (p *Persistence) SaveAutomation(ctx context.Context, automation *models.Automation) error {
	now := time.Now().UTC()

	if automation.ID == "" {
		automation.ID = uuid.NewString()
		automation.CreatedAt = now
	}

	automation.UpdatedAt = now

	nodesJSON, err := json.Marshal(automation.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edgesJSON, err := json.Marshal(automation.Edges)
	if err != nil {
		return fmt.Errorf("failed to marshal edges: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO automations (id, owner_id, name, status, nodes, edges, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			updated_at = EXCLUDED.updated_at
	`,
		automation.ID,
		automation.OwnerID,
		automation.Name,
		automation.Status,
		nodesJSON,
		edgesJSON,
		automation.CreatedAt,
		automation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save automation: %w", err)
	}

	return nil
}

// UpdateNodeConfig rewrites one node's config inside the stored graph
// blob. Runs in a transaction so concurrent capture writes cannot
// interleave on the same row.
func (p *Persistence) UpdateNodeConfig(ctx context.Context, automationID, nodeID string, config map[string]any) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var nodesJSON []byte

	err = tx.QueryRowContext(ctx,
		`SELECT nodes FROM automations WHERE id = $1 FOR UPDATE`, automationID).Scan(&nodesJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ErrAutomationNotFound
		}

		return fmt.Errorf("failed to load automation nodes: %w", err)
	}

	var nodes []models.Node

	err = json.Unmarshal(nodesJSON, &nodes)
	if err != nil {
		return fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	found := false

	for i := range nodes {
		if nodes[i].ID == nodeID {
			nodes[i].Data.Config = config
			found = true

			break
		}
	}

	if !found {
		err = persistence.ErrNodeNotFound

		return err
	}

	updated, err := json.Marshal(nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE automations SET nodes = $1, updated_at = $2 WHERE id = $3`,
		updated, time.Now().UTC(), automationID)
	if err != nil {
		return fmt.Errorf("failed to update automation nodes: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit node config update: %w", err)
	}

	return nil
}

func (p *Persistence) ReplaceTriggerIndex(ctx context.Context, automationID string, entries []models.TriggerIndexEntry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM automation_trigger_index WHERE automation_id = $1`, automationID)
	if err != nil {
		return fmt.Errorf("failed to clear trigger index: %w", err)
	}

	for _, entry := range entries {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO automation_trigger_index (owner_id, automation_id, node_id, trigger_type, key)
			VALUES ($1, $2, $3, $4, $5)
		`, entry.OwnerID, entry.AutomationID, entry.NodeID, entry.TriggerType, entry.Key)
		if err != nil {
			return fmt.Errorf("failed to insert trigger index entry: %w", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit trigger index: %w", err)
	}

	return nil
}

func (p *Persistence) TriggerIndexByKey(ctx context.Context, triggerType, key string) ([]models.TriggerIndexEntry, error) {
	return p.queryTriggerIndex(ctx, `
		SELECT owner_id, automation_id, node_id, trigger_type, key
		FROM automation_trigger_index
		WHERE trigger_type = $1 AND key = $2
	`, triggerType, key)
}

func (p *Persistence) TriggerIndexByOwner(ctx context.Context, ownerID, triggerType string) ([]models.TriggerIndexEntry, error) {
	return p.queryTriggerIndex(ctx, `
		SELECT owner_id, automation_id, node_id, trigger_type, key
		FROM automation_trigger_index
		WHERE owner_id = $1 AND trigger_type = $2
	`, ownerID, triggerType)
}

func (p *Persistence) queryTriggerIndex(ctx context.Context, query string, args ...any) ([]models.TriggerIndexEntry, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger index: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]models.TriggerIndexEntry, 0)

	for rows.Next() {
		var entry models.TriggerIndexEntry

		err := rows.Scan(&entry.OwnerID, &entry.AutomationID, &entry.NodeID, &entry.TriggerType, &entry.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger index entry: %w", err)
		}

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating trigger index: %w", err)
	}

	return entries, nil
}

func scanAutomation(row rowScanner) (*models.Automation, error) {
	var (
		automation models.Automation
		nodesJSON  []byte
		edgesJSON  []byte
	)

	err := row.Scan(
		&automation.ID,
		&automation.OwnerID,
		&automation.Name,
		&automation.Status,
		&nodesJSON,
		&edgesJSON,
		&automation.CreatedAt,
		&automation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(nodesJSON, &automation.Nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	err = json.Unmarshal(edgesJSON, &automation.Edges)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	return &automation, nil
}
