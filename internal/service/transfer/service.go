package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/formsync/internal/domain"
	"github.com/ignite/formsync/internal/pkg/logger"
	"github.com/ignite/formsync/internal/token"
)

const (
	day = 24 * time.Hour

	// DefaultPendingLimit caps GetPending when no limit is given.
	DefaultPendingLimit = 100
)

// NewTransfer is the input to Save.
type NewTransfer struct {
	Token         string
	FormID        int64
	Email         string
	Contact       domain.Contact
	ListID        string
	Tags          []string
	RetentionDays int
}

// Saved identifies a stored transfer and the deadline written with it.
type Saved struct {
	ID           string
	AutoDeleteAt time.Time
}

// CleanupResult reports what one Cleanup run changed.
type CleanupResult struct {
	Expired int64 `json:"expired"`
	Deleted int64 `json:"deleted"`
}

// Service implements the delayed-transfer lifecycle. It is safe for
// concurrent use.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a transfer service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Save stores a new pending transfer and returns its record id and
// deadline. The payload is frozen here: later edits need a new record and
// token.
func (s *Service) Save(ctx context.Context, t NewTransfer) (Saved, error) {
	if !token.IsValidFormat(t.Token) {
		return Saved{}, ErrInvalidToken
	}
	email := strings.TrimSpace(t.Email)
	if email == "" {
		return Saved{}, fmt.Errorf("email is required")
	}

	days := t.RetentionDays
	if days <= 0 {
		days = domain.DefaultRetentionDays
	}

	payload := domain.TransferPayload{
		Contact: t.Contact,
		ListID:  t.ListID,
		Tags:    t.Tags,
		FormID:  t.FormID,
		Email:   email,
	}
	if payload.Tags == nil {
		payload.Tags = []string{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Saved{}, fmt.Errorf("encode transfer payload: %w", err)
	}

	now := s.now().UTC()
	row := &Row{
		Token:        t.Token,
		FormID:       t.FormID,
		Email:        email,
		Status:       domain.TransferPending,
		JSONData:     string(data),
		CreatedAt:    now,
		AutoDeleteAt: now.Add(time.Duration(days) * day),
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		if errors.Is(err, ErrTokenExists) {
			logger.Error("transfer: token collision", "token", t.Token, "form_id", t.FormID)
		}
		return Saved{}, err
	}

	logger.Info("transfer: saved",
		"id", row.ID,
		"token", t.Token,
		"email", email,
		"auto_delete_at", row.AutoDeleteAt.Format("2006-01-02"))
	return Saved{ID: row.ID, AutoDeleteAt: row.AutoDeleteAt}, nil
}

// Load returns the pending transfer for tok. Unknown, consumed and overdue
// tokens all yield ErrNotFound; an overdue record is moved to expired on
// the way. A corrupt payload yields an error matching both ErrNotFound and
// ErrDataIntegrity.
func (s *Service) Load(ctx context.Context, tok string) (*domain.TransferRecord, error) {
	if !token.IsValidFormat(tok) {
		return nil, ErrNotFound
	}

	row, err := s.repo.FindPending(ctx, tok)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Warn("transfer: not found or already processed", "token", tok)
		}
		return nil, err
	}

	now := s.now()
	if !row.AutoDeleteAt.After(now) {
		if _, err := s.repo.MarkExpired(ctx, row.ID); err != nil {
			logger.Error("transfer: could not expire overdue record", "id", row.ID, "error", err)
		}
		logger.Warn("transfer: expired", "token", tok, "expired_at", row.AutoDeleteAt.Format(time.RFC3339))
		return nil, ErrNotFound
	}

	var payload domain.TransferPayload
	if err := json.Unmarshal([]byte(row.JSONData), &payload); err != nil {
		logger.Error("transfer: unreadable payload", "id", row.ID, "token", tok, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNotFound, ErrDataIntegrity)
	}
	if payload.Email == "" && payload.Contact.Email == "" {
		logger.Error("transfer: payload has no email", "id", row.ID, "token", tok)
		return nil, fmt.Errorf("%w: %w", ErrNotFound, ErrDataIntegrity)
	}

	return rowToRecord(row, payload), nil
}

// MarkAsProcessed closes a pending transfer. Of two concurrent calls for
// the same token exactly one reports true.
func (s *Service) MarkAsProcessed(ctx context.Context, tok string) (bool, error) {
	ok, err := s.repo.MarkProcessed(ctx, tok, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark transfer processed: %w", err)
	}
	if ok {
		logger.Info("transfer: marked as processed", "token", tok)
	}
	return ok, nil
}

// MarkAsExpired expires a pending transfer by record id. Already expired or
// processed records are left alone and report false.
func (s *Service) MarkAsExpired(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.MarkExpired(ctx, id)
	if err != nil {
		return false, fmt.Errorf("mark transfer expired: %w", err)
	}
	return ok, nil
}

// Delete removes a transfer whatever its status.
func (s *Service) Delete(ctx context.Context, tok string) (bool, error) {
	ok, err := s.repo.Delete(ctx, tok)
	if err != nil {
		return false, fmt.Errorf("delete transfer: %w", err)
	}
	if ok {
		logger.Info("transfer: deleted", "token", tok)
	}
	return ok, nil
}

// Cleanup expires overdue pending transfers, then purges overdue expired
// ones. Both passes are single bulk statements, so overlapping runs are
// harmless. The second of two back-to-back runs changes nothing.
func (s *Service) Cleanup(ctx context.Context) (CleanupResult, error) {
	now := s.now().UTC()

	var res CleanupResult
	expired, err := s.repo.ExpireOverdue(ctx, now)
	if err != nil {
		return res, fmt.Errorf("expire overdue transfers: %w", err)
	}
	res.Expired = expired

	deleted, err := s.repo.PurgeExpired(ctx, now)
	if err != nil {
		return res, fmt.Errorf("purge expired transfers: %w", err)
	}
	res.Deleted = deleted

	if res.Expired > 0 || res.Deleted > 0 {
		logger.Info("transfer: cleanup", "expired", res.Expired, "deleted", res.Deleted)
	}
	return res, nil
}

// IsValidToken reports whether tok names a pending transfer that has not
// passed its deadline.
func (s *Service) IsValidToken(ctx context.Context, tok string) (bool, error) {
	if !token.IsValidFormat(tok) {
		return false, nil
	}
	return s.repo.ExistsValid(ctx, tok, s.now().UTC())
}

// GetPending lists pending transfers, newest first. Payloads that fail to
// decode are listed without contact data.
func (s *Service) GetPending(ctx context.Context, limit int) ([]domain.TransferRecord, error) {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	rows, err := s.repo.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending transfers: %w", err)
	}

	out := make([]domain.TransferRecord, 0, len(rows))
	for i := range rows {
		var payload domain.TransferPayload
		if err := json.Unmarshal([]byte(rows[i].JSONData), &payload); err != nil {
			logger.Warn("transfer: unreadable payload in listing", "id", rows[i].ID, "error", err)
		}
		out = append(out, *rowToRecord(&rows[i], payload))
	}
	return out, nil
}

// CountPending returns the number of pending transfers.
func (s *Service) CountPending(ctx context.Context) (int, error) {
	return s.repo.CountPending(ctx)
}

func rowToRecord(row *Row, payload domain.TransferPayload) *domain.TransferRecord {
	return &domain.TransferRecord{
		ID:           row.ID,
		Token:        row.Token,
		FormID:       row.FormID,
		Email:        row.Email,
		Payload:      payload,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt,
		ProcessedAt:  row.ProcessedAt,
		AutoDeleteAt: row.AutoDeleteAt,
	}
}
