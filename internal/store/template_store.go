package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskhub/taskhub/internal/model"
)

// CreateTemplate inserts a new email template. Generates a UUID if ID
// is empty.
func (s *SQLiteStore) CreateTemplate(
	ctx context.Context,
	t model.EmailTemplate,
) (*model.EmailTemplate, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, fmt.Errorf("template name must not be empty")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_templates (id, name, subject, body, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Subject, t.Body, boolToInt(t.IsActive),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating template %s: %w", t.Name, err)
	}
	return &t, nil
}

// GetTemplateByID retrieves a single email template by ID.
func (s *SQLiteStore) GetTemplateByID(ctx context.Context, id string) (*model.EmailTemplate, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM email_templates WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting template %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting template %s: %w", id, err)
		}
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}

	t, err := scanTemplate(rows)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTemplates retrieves all email templates ordered by name.
func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]model.EmailTemplate, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM email_templates ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var templates []model.EmailTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// UpdateTemplate updates an existing email template by ID.
func (s *SQLiteStore) UpdateTemplate(ctx context.Context, t model.EmailTemplate) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template name must not be empty")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE email_templates SET name = ?, subject = ?, body = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Subject, t.Body, boolToInt(t.IsActive), time.Now().UTC(),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating template %s: %w", t.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("template %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

// DeleteTemplate removes an email template by ID.
func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM email_templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting template %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}

// scanTemplate scans a template row from a sqlx.Rows result set.
func scanTemplate(rows *sqlx.Rows) (model.EmailTemplate, error) {
	var (
		t        model.EmailTemplate
		isActive int
	)

	err := rows.Scan(
		&t.ID, &t.Name, &t.Subject, &t.Body, &isActive,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return model.EmailTemplate{}, fmt.Errorf("scanning template row: %w", err)
	}

	t.IsActive = isActive != 0
	return t, nil
}
