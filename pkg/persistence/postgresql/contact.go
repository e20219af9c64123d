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

const contactColumns = `id, owner_id, name, phone, email, company, tags, custom_fields, created_at, updated_at`

func (p *Persistence) ContactByID(ctx context.Context, id string) (*models.Contact, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)

	return scanContact(row)
}

func (p *Persistence) ContactByPhone(ctx context.Context, ownerID, phone string) (*models.Contact, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE owner_id = $1 AND phone = $2`,
		ownerID, models.NormalizePhone(phone))

	return scanContact(row)
}

func (p *Persistence) SaveContact(ctx context.Context, contact *models.Contact) error {
	now := time.Now().UTC()

	if contact.ID == "" {
		contact.ID = uuid.NewString()
		contact.CreatedAt = now
	}

	contact.Phone = models.NormalizePhone(contact.Phone)
	contact.UpdatedAt = now

	tagsJSON, err := json.Marshal(contact.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	fieldsJSON, err := json.Marshal(contact.CustomFields)
	if err != nil {
		return fmt.Errorf("failed to marshal custom fields: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO contacts (id, owner_id, name, phone, email, company, tags, custom_fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			company = EXCLUDED.company,
			tags = EXCLUDED.tags,
			custom_fields = EXCLUDED.custom_fields,
			updated_at = EXCLUDED.updated_at
	`,
		contact.ID,
		contact.OwnerID,
		contact.Name,
		contact.Phone,
		nullString(contact.Email),
		nullString(contact.Company),
		tagsJSON,
		fieldsJSON,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}

	return nil
}

func scanContact(row *sql.Row) (*models.Contact, error) {
	var (
		contact        models.Contact
		email, company sql.NullString
		tagsJSON       []byte
		fieldsJSON     []byte
	)

	err := row.Scan(
		&contact.ID,
		&contact.OwnerID,
		&contact.Name,
		&contact.Phone,
		&email,
		&company,
		&tagsJSON,
		&fieldsJSON,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrContactNotFound
		}

		return nil, fmt.Errorf("failed to scan contact: %w", err)
	}

	contact.Email = email.String
	contact.Company = company.String

	err = json.Unmarshal(tagsJSON, &contact.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}

	err = json.Unmarshal(fieldsJSON, &contact.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal custom fields: %w", err)
	}

	return &contact, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
