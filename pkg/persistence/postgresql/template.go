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

func (p *Persistence) TemplateByID(ctx context.Context, id string) (*models.MessageTemplate, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, language, components, created_at, updated_at
		FROM message_templates WHERE id = $1
	`, id)

	var (
		template       models.MessageTemplate
		componentsJSON []byte
	)

	err := row.Scan(
		&template.ID,
		&template.OwnerID,
		&template.Name,
		&template.Language,
		&componentsJSON,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrTemplateNotFound
		}

		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	err = json.Unmarshal(componentsJSON, &template.Components)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal template components: %w", err)
	}

	return &template, nil
}

func (p *Persistence) SaveTemplate(ctx context.Context, template *models.MessageTemplate) error {
	now := time.Now().UTC()

	if template.ID == "" {
		template.ID = uuid.NewString()
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	componentsJSON, err := json.Marshal(template.Components)
	if err != nil {
		return fmt.Errorf("failed to marshal template components: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO message_templates (id, owner_id, name, language, components, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			language = EXCLUDED.language,
			components = EXCLUDED.components,
			updated_at = EXCLUDED.updated_at
	`,
		template.ID,
		template.OwnerID,
		template.Name,
		template.Language,
		componentsJSON,
		template.CreatedAt,
		template.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}

	return nil
}
