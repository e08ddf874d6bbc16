package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/formsync/internal/domain"
	"github.com/ignite/formsync/internal/service/transfer"
)

const uniqueViolation = "23505"

const transferColumns = `id, token, form_id, email, status, json_data, created_at, processed_at, auto_delete_at`

// TransferRepo implements transfer.Repository against PostgreSQL.
type TransferRepo struct{ db *sql.DB }

// NewTransferRepo creates a Postgres-backed transfer repository.
func NewTransferRepo(db *sql.DB) *TransferRepo { return &TransferRepo{db: db} }

func (r *TransferRepo) Insert(ctx context.Context, row *transfer.Row) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_transfers (id, token, form_id, email, status, json_data, created_at, auto_delete_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, row.ID, row.Token, row.FormID, row.Email, string(row.Status), row.JSONData, row.CreatedAt, row.AutoDeleteAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return transfer.ErrTokenExists
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (r *TransferRepo) FindPending(ctx context.Context, token string) (*transfer.Row, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM contact_transfers WHERE token = $1 AND status = 'pending'`,
		token,
	)
	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transfer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transfer: %w", err)
	}
	return t, nil
}

func (r *TransferRepo) MarkProcessed(ctx context.Context, token string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contact_transfers SET status = 'processed', processed_at = $2
		WHERE token = $1 AND status = 'pending'
	`, token, at)
	if err != nil {
		return false, fmt.Errorf("mark transfer processed: %w", err)
	}
	n, err := rowsAffected(res, "mark transfer processed")
	return n > 0, err
}

func (r *TransferRepo) MarkExpired(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contact_transfers SET status = 'expired' WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("mark transfer expired: %w", err)
	}
	n, err := rowsAffected(res, "mark transfer expired")
	return n > 0, err
}

func (r *TransferRepo) Delete(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contact_transfers WHERE token = $1`, token)
	if err != nil {
		return false, fmt.Errorf("delete transfer: %w", err)
	}
	n, err := rowsAffected(res, "delete transfer")
	return n > 0, err
}

func (r *TransferRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contact_transfers SET status = 'expired' WHERE status = 'pending' AND auto_delete_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("expire overdue transfers: %w", err)
	}
	return rowsAffected(res, "expire overdue transfers")
}

func (r *TransferRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM contact_transfers WHERE status = 'expired' AND auto_delete_at <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("purge expired transfers: %w", err)
	}
	return rowsAffected(res, "purge expired transfers")
}

func (r *TransferRepo) ListPending(ctx context.Context, limit int) ([]transfer.Row, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transferColumns+`
		FROM contact_transfers
		WHERE status = 'pending'
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending transfers: %w", err)
	}
	defer rows.Close()

	var out []transfer.Row
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TransferRepo) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contact_transfers WHERE status = 'pending'`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending transfers: %w", err)
	}
	return n, nil
}

func (r *TransferRepo) ExistsValid(ctx context.Context, token string, now time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM contact_transfers WHERE token = $1 AND status = 'pending' AND auto_delete_at > $2)`,
		token, now,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transfer token: %w", err)
	}
	return exists, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransfer(s scanner) (*transfer.Row, error) {
	var (
		t         transfer.Row
		status    string
		processed sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.Token, &t.FormID, &t.Email, &status, &t.JSONData,
		&t.CreatedAt, &processed, &t.AutoDeleteAt); err != nil {
		return nil, err
	}
	t.Status = domain.TransferStatus(status)
	if processed.Valid {
		at := processed.Time
		t.ProcessedAt = &at
	}
	return &t, nil
}

func rowsAffected(res sql.Result, op string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}
