package transfer

import (
	"context"
	"time"

	"github.com/ignite/formsync/internal/domain"
)

// Row is a transfer as stored: the payload stays an opaque JSON blob until
// the service decodes it.
type Row struct {
	ID           string
	Token        string
	FormID       int64
	Email        string
	Status       domain.TransferStatus
	JSONData     string
	CreatedAt    time.Time
	ProcessedAt  *time.Time
	AutoDeleteAt time.Time
}

// Repository defines the data access contract for delayed transfers.
type Repository interface {
	// Insert stores a new row. Returns ErrTokenExists on a token collision.
	Insert(ctx context.Context, row *Row) error

	// FindPending returns the pending row for token, or ErrNotFound.
	FindPending(ctx context.Context, token string) (*Row, error)

	// MarkProcessed moves a pending row to processed in one conditional
	// update. Reports false when the row was not pending.
	MarkProcessed(ctx context.Context, token string, at time.Time) (bool, error)

	// MarkExpired moves a pending row to expired. Reports false when the
	// row was not pending.
	MarkExpired(ctx context.Context, id string) (bool, error)

	// Delete removes the row regardless of status.
	Delete(ctx context.Context, token string) (bool, error)

	// ExpireOverdue flips every pending row due at or before now to expired.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// PurgeExpired deletes every expired row due at or before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)

	// ListPending returns pending rows, newest first.
	ListPending(ctx context.Context, limit int) ([]Row, error)

	// CountPending returns the number of pending rows.
	CountPending(ctx context.Context) (int, error)

	// ExistsValid reports whether a pending row due after now holds token.
	ExistsValid(ctx context.Context, token string, now time.Time) (bool, error)
}
