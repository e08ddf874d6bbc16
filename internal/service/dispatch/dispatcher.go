package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/ignite/formsync/internal/contactmap"
	"github.com/ignite/formsync/internal/domain"
	"github.com/ignite/formsync/internal/formconfig"
	"github.com/ignite/formsync/internal/pkg/logger"
	"github.com/ignite/formsync/internal/service/transfer"
	"github.com/ignite/formsync/internal/token"
)

// TransferPath is the approval link route; the token is appended.
const TransferPath = "/activecampaign/transfer/"

// ContactSyncer pushes a contact to the CRM.
type ContactSyncer interface {
	CreateOrUpdateContact(ctx context.Context, contact domain.Contact, listID string, tags []string) (*domain.Contact, error)
}

// TransferStore persists delayed transfers.
type TransferStore interface {
	Save(ctx context.Context, t transfer.NewTransfer) (transfer.Saved, error)
	Load(ctx context.Context, tok string) (*domain.TransferRecord, error)
	MarkAsProcessed(ctx context.Context, tok string) (bool, error)
}

// TokenSource generates approval tokens.
type TokenSource interface {
	Generate(length int) string
}

// Notifier tells an editor about a new pending transfer.
type Notifier interface {
	NotifyPending(ctx context.Context, n domain.PendingNotice) error
}

// Config holds dispatcher settings.
type Config struct {
	// PublicBaseURL prefixes approval links, e.g. https://forms.example.org.
	PublicBaseURL string
	TokenLength   int
}

// Outcome is what Submit did with a submission.
type Outcome string

const (
	OutcomeSynced      Outcome = "synced"
	OutcomeDeferred    Outcome = "deferred"
	OutcomeDroppedSpam Outcome = "dropped_spam"
)

// Submission is one form post as handed over by the host.
type Submission struct {
	FormID        int64
	Fields        contactmap.Fields
	SpamSuspected bool
}

// SubmissionResult reports the handling of a submission.
type SubmissionResult struct {
	Outcome     Outcome `json:"outcome"`
	Message     string  `json:"message"`
	ContactID   string  `json:"contact_id,omitempty"`
	RecordID    string  `json:"-"`
	Token       string  `json:"-"`
	TransferURL string  `json:"-"`
}

// ExecutionOutcome is what happened when an approval link was opened.
type ExecutionOutcome string

const (
	ExecutionProcessed ExecutionOutcome = "processed"
	ExecutionInvalid   ExecutionOutcome = "invalid"
	ExecutionFailed    ExecutionOutcome = "failed"
)

// ExecutionResult reports the completion of a delayed transfer. Err is set
// for ExecutionFailed only.
type ExecutionResult struct {
	Outcome   ExecutionOutcome
	Email     string
	ContactID string
	ListID    string
	Err       error
}

// Dispatcher routes submissions and completes delayed transfers. It holds
// no per-request state and is safe for concurrent use.
type Dispatcher struct {
	mapper   *contactmap.Mapper
	forms    formconfig.Source
	syncer   ContactSyncer
	store    TransferStore
	tokens   TokenSource
	notifier Notifier
	cfg      Config
}

// New creates a dispatcher.
func New(forms formconfig.Source, syncer ContactSyncer, store TransferStore, cfg Config) *Dispatcher {
	if cfg.TokenLength < token.MinLength {
		cfg.TokenLength = token.DefaultLength
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Dispatcher{
		mapper: contactmap.NewMapper(internalFields...),
		forms:  forms,
		syncer: syncer,
		store:  store,
		tokens: token.NewGenerator(),
		cfg:    cfg,
	}
}

// SetNotifier enables editor notifications for deferred submissions.
func (d *Dispatcher) SetNotifier(n Notifier) { d.notifier = n }

// SetTokenSource replaces the token generator (useful for testing).
func (d *Dispatcher) SetTokenSource(t TokenSource) { d.tokens = t }

// TransferURL builds the approval link for tok.
func (d *Dispatcher) TransferURL(tok string) string {
	return d.cfg.PublicBaseURL + TransferPath + tok
}

// Submit handles a form submission. Direct forms sync now unless spam is
// suspected, in which case the submission is dropped. Delayed forms are
// always stored: the spam flag is only recorded in the log.
func (d *Dispatcher) Submit(ctx context.Context, in Submission) (*SubmissionResult, error) {
	s, err := d.prepare(ctx, in)
	if err != nil {
		logger.Warn("dispatch: submission rejected", "form_id", in.FormID, "error", err)
		return nil, err
	}

	if !s.form.DelayedTransfer {
		if in.SpamSuspected {
			logger.Warn("dispatch: spam suspected, skipping direct transfer",
				"form_id", in.FormID, "email", s.contact.Email)
			return &SubmissionResult{
				Outcome: OutcomeDroppedSpam,
				Message: "Submission received.",
			}, nil
		}
		return d.syncNow(ctx, s)
	}
	return d.deferTransfer(ctx, s)
}

func (d *Dispatcher) syncNow(ctx context.Context, s *submission) (*SubmissionResult, error) {
	resolved, err := d.syncer.CreateOrUpdateContact(ctx, s.contact, s.form.ListID, s.form.Tags)
	if err != nil {
		logger.Error("dispatch: direct transfer failed",
			"form_id", s.in.FormID, "email", s.contact.Email, "error", err)
		return nil, err
	}
	logger.Info("dispatch: contact transferred",
		"form_id", s.in.FormID, "email", s.contact.Email, "contact_id", resolved.ID)
	return &SubmissionResult{
		Outcome:   OutcomeSynced,
		Message:   "Contact transferred.",
		ContactID: resolved.ID,
	}, nil
}

func (d *Dispatcher) deferTransfer(ctx context.Context, s *submission) (*SubmissionResult, error) {
	saved, err := d.store.Save(ctx, transfer.NewTransfer{
		Token:         s.token,
		FormID:        s.in.FormID,
		Email:         s.contact.Email,
		Contact:       s.contact,
		ListID:        s.form.ListID,
		Tags:          s.form.Tags,
		RetentionDays: s.form.Retention(),
	})
	if err != nil {
		logger.Error("dispatch: could not save delayed transfer",
			"form_id", s.in.FormID, "email", s.contact.Email, "error", err)
		return nil, err
	}

	link := d.TransferURL(s.token)
	logger.Info("dispatch: delayed transfer saved",
		"form_id", s.in.FormID,
		"email", s.contact.Email,
		"id", saved.ID,
		"token", s.token,
		"spam_suspected", s.in.SpamSuspected)

	if d.notifier != nil && s.form.NotifyEmail != "" {
		notice := domain.PendingNotice{
			To:            s.form.NotifyEmail,
			FormID:        s.in.FormID,
			Email:         s.contact.Email,
			Contact:       s.contact,
			TransferURL:   link,
			AutoDeleteAt:  saved.AutoDeleteAt,
			SpamSuspected: s.in.SpamSuspected,
		}
		if err := d.notifier.NotifyPending(ctx, notice); err != nil {
			logger.Error("dispatch: editor notification failed",
				"form_id", s.in.FormID, "recipient", s.form.NotifyEmail, "error", err)
		}
	}

	return &SubmissionResult{
		Outcome:     OutcomeDeferred,
		Message:     "Submission stored for approval.",
		RecordID:    saved.ID,
		Token:       s.token,
		TransferURL: link,
	}, nil
}

// Execute completes the delayed transfer behind tok. Unknown, consumed and
// expired tokens are all reported as ExecutionInvalid. When the sync
// fails the record stays pending and the same link can be retried.
func (d *Dispatcher) Execute(ctx context.Context, tok string) ExecutionResult {
	logger.Info("dispatch: transfer requested", "token", tok)

	rec, err := d.store.Load(ctx, tok)
	if errors.Is(err, transfer.ErrNotFound) {
		return ExecutionResult{Outcome: ExecutionInvalid}
	}
	if err != nil {
		logger.Error("dispatch: could not load transfer", "token", tok, "error", err)
		return ExecutionResult{Outcome: ExecutionFailed, Err: err}
	}

	p := rec.Payload
	contact := p.Contact
	if contact.Email == "" {
		contact.Email = p.Email
	}
	email := p.Email
	if email == "" {
		email = contact.Email
	}

	resolved, err := d.syncer.CreateOrUpdateContact(ctx, contact, p.ListID, p.Tags)
	if err != nil {
		logger.Error("dispatch: delayed transfer failed", "token", tok, "email", email, "error", err)
		return ExecutionResult{Outcome: ExecutionFailed, Email: email, ListID: p.ListID, Err: err}
	}

	ok, err := d.store.MarkAsProcessed(ctx, tok)
	if err != nil {
		// The contact is in the CRM. A retry re-syncs idempotently.
		logger.Error("dispatch: transfer synced but not marked processed", "token", tok, "error", err)
	} else if !ok {
		logger.Warn("dispatch: transfer completed concurrently", "token", tok)
		return ExecutionResult{Outcome: ExecutionInvalid}
	}

	logger.Info("dispatch: delayed transfer completed",
		"email", email, "contact_id", resolved.ID, "list_id", p.ListID)
	return ExecutionResult{
		Outcome:   ExecutionProcessed,
		Email:     email,
		ContactID: resolved.ID,
		ListID:    p.ListID,
	}
}
