package domain

import "time"

// TransferStatus is the lifecycle state of a delayed transfer.
//
//	pending ──▶ processed ──▶ deleted
//	   └──────▶ expired ────▶ deleted
//
// deleted is never stored: it is the row being purged by cleanup.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferProcessed TransferStatus = "processed"
	TransferExpired   TransferStatus = "expired"
	TransferDeleted   TransferStatus = "deleted"
)

// CanTransitionTo reports whether moving from s to next is a forward move.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	switch s {
	case TransferPending:
		return next == TransferProcessed || next == TransferExpired
	case TransferProcessed, TransferExpired:
		return next == TransferDeleted
	default:
		return false
	}
}

// DefaultRetentionDays applies when a form does not configure one.
const DefaultRetentionDays = 10

// TransferPayload is the frozen contact data of a delayed transfer. It is
// serialized once at creation and never rewritten.
type TransferPayload struct {
	Contact Contact  `json:"contactData"`
	ListID  string   `json:"listId"`
	Tags    []string `json:"tags"`
	FormID  int64    `json:"formId"`
	Email   string   `json:"email"`
}

// TransferRecord is a persisted unit of delayed work.
type TransferRecord struct {
	ID           string          `json:"id"`
	Token        string          `json:"-"`
	FormID       int64           `json:"form_id"`
	Email        string          `json:"email"`
	Payload      TransferPayload `json:"payload"`
	Status       TransferStatus  `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	AutoDeleteAt time.Time       `json:"auto_delete_at"`
}

// IsOverdue reports whether the retention deadline has passed at now.
func (r TransferRecord) IsOverdue(now time.Time) bool {
	return !r.AutoDeleteAt.After(now)
}

// PendingNotice tells an editor that a deferred submission awaits approval.
type PendingNotice struct {
	To            string
	FormID        int64
	Email         string
	Contact       Contact
	TransferURL   string
	AutoDeleteAt  time.Time
	SpamSuspected bool
}
