package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zaptalk/zaptalk/pkg/models"
	"github.com/zaptalk/zaptalk/pkg/persistence"
)

func (p *Persistence) CreateRun(ctx context.Context, run *models.AutomationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	if run.RunAt.IsZero() {
		run.RunAt = time.Now().UTC()
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO automation_runs (id, automation_id, contact_id, status, details, run_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		run.ID,
		run.AutomationID,
		nullString(run.ContactID),
		run.Status,
		run.Details,
		run.RunAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

func (p *Persistence) UpdateRunStatus(ctx context.Context, runID string, status models.RunStatus, details string) error {
	result, err := p.db.ExecContext(ctx,
		`UPDATE automation_runs SET status = $1, details = $2 WHERE id = $3`,
		status, details, runID)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.ErrRunNotFound
	}

	return nil
}

func (p *Persistence) RunByID(ctx context.Context, id string) (*models.AutomationRun, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, automation_id, contact_id, status, details, run_at
		FROM automation_runs WHERE id = $1
	`, id)

	var (
		run       models.AutomationRun
		contactID sql.NullString
	)

	err := row.Scan(&run.ID, &run.AutomationID, &contactID, &run.Status, &run.Details, &run.RunAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.ContactID = contactID.String

	return &run, nil
}

func (p *Persistence) IncrementNodeStat(ctx context.Context, automationID, nodeID string, success bool) error {
	successDelta, errorDelta := 0, 1
	if success {
		successDelta, errorDelta = 1, 0
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO automation_node_stats (automation_id, node_id, success_count, error_count, last_run_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (automation_id, node_id) DO UPDATE SET
			success_count = automation_node_stats.success_count + EXCLUDED.success_count,
			error_count = automation_node_stats.error_count + EXCLUDED.error_count,
			last_run_at = EXCLUDED.last_run_at
	`, automationID, nodeID, successDelta, errorDelta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to increment node stat: %w", err)
	}

	return nil
}

func (p *Persistence) AppendNodeLog(ctx context.Context, entry *models.NodeLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO automation_node_logs (id, run_id, node_id, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.RunID, entry.NodeID, entry.Status, entry.Details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append node log: %w", err)
	}

	// Keep the per-node log bounded.
	_, err = p.db.ExecContext(ctx, `
		DELETE FROM automation_node_logs
		WHERE node_id = $1 AND id NOT IN (
			SELECT id FROM automation_node_logs
			WHERE node_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)
	`, entry.NodeID, persistence.NodeLogLimit)
	if err != nil {
		return fmt.Errorf("failed to trim node logs: %w", err)
	}

	return nil
}

func (p *Persistence) NodeLogs(ctx context.Context, _, nodeID string) ([]models.NodeLog, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, run_id, node_id, status, details, created_at
		FROM automation_node_logs
		WHERE node_id = $1
		ORDER BY created_at
	`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query node logs: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	logs := make([]models.NodeLog, 0)

	for rows.Next() {
		var entry models.NodeLog

		err := rows.Scan(&entry.ID, &entry.RunID, &entry.NodeID, &entry.Status, &entry.Details, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node log: %w", err)
		}

		logs = append(logs, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating node logs: %w", err)
	}

	return logs, nil
}

func (p *Persistence) NodeStat(ctx context.Context, automationID, nodeID string) (*models.NodeStat, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT automation_id, node_id, success_count, error_count, last_run_at
		FROM automation_node_stats
		WHERE automation_id = $1 AND node_id = $2
	`, automationID, nodeID)

	var stat models.NodeStat

	err := row.Scan(&stat.AutomationID, &stat.NodeID, &stat.SuccessCount, &stat.ErrorCount, &stat.LastRunAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNodeNotFound
		}

		return nil, fmt.Errorf("failed to scan node stat: %w", err)
	}

	return &stat, nil
}
