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

const profileColumns = `id, company_name, phone_number_id, access_token, webhook_prefix, created_at, updated_at`

func (p *Persistence) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)

	return scanProfile(row)
}

func (p *Persistence) ProfileByWebhookPrefix(ctx context.Context, prefix string) (*models.Profile, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE webhook_prefix = $1`, prefix)

	return scanProfile(row)
}

func (p *Persistence) SaveProfile(ctx context.Context, profile *models.Profile) error {
	now := time.Now().UTC()

	if profile.ID == "" {
		profile.ID = uuid.NewString()
		profile.CreatedAt = now
	}

	profile.UpdatedAt = now

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO profiles (id, company_name, phone_number_id, access_token, webhook_prefix, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			phone_number_id = EXCLUDED.phone_number_id,
			access_token = EXCLUDED.access_token,
			webhook_prefix = EXCLUDED.webhook_prefix,
			updated_at = EXCLUDED.updated_at
	`,
		profile.ID,
		profile.CompanyName,
		profile.PhoneNumberID,
		profile.AccessToken,
		profile.WebhookPrefix,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var profile models.Profile

	err := row.Scan(
		&profile.ID,
		&profile.CompanyName,
		&profile.PhoneNumberID,
		&profile.AccessToken,
		&profile.WebhookPrefix,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrProfileNotFound
		}

		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	return &profile, nil
}
