package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/formsync/internal/domain"
	"github.com/ignite/formsync/internal/formconfig"
)

// FormSettingsRepo reads per-form sync settings from form_settings. It
// implements formconfig.Source.
type FormSettingsRepo struct{ db *sql.DB }

// NewFormSettingsRepo creates a Postgres-backed form settings source.
func NewFormSettingsRepo(db *sql.DB) *FormSettingsRepo { return &FormSettingsRepo{db: db} }

func (r *FormSettingsRepo) Get(ctx context.Context, formID int64) (*domain.FormConfig, error) {
	var (
		fc     domain.FormConfig
		tags   string
		notify sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT form_id, list_id, tags, delayed_transfer, auto_delete_days, notify_email
		FROM form_settings
		WHERE form_id = $1 AND enabled = true
	`, formID).Scan(&fc.FormID, &fc.ListID, &tags, &fc.DelayedTransfer, &fc.RetentionDays, &notify)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, formconfig.ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("get form settings: %w", err)
	}
	fc.Tags = domain.SplitTags(tags)
	fc.NotifyEmail = notify.String
	return &fc, nil
}

// Upsert writes the settings for one form and enables it.
func (r *FormSettingsRepo) Upsert(ctx context.Context, fc domain.FormConfig) error {
	var notify interface{}
	if fc.NotifyEmail != "" {
		notify = fc.NotifyEmail
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO form_settings (form_id, list_id, tags, delayed_transfer, auto_delete_days, notify_email, enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, true, NOW())
		ON CONFLICT (form_id) DO UPDATE SET
			list_id = $2, tags = $3, delayed_transfer = $4, auto_delete_days = $5,
			notify_email = $6, enabled = true, updated_at = NOW()
	`, fc.FormID, fc.ListID, strings.Join(fc.Tags, ","), fc.DelayedTransfer, fc.Retention(), notify)
	if err != nil {
		return fmt.Errorf("upsert form settings: %w", err)
	}
	return nil
}
