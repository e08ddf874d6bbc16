package web

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ignite/formsync/internal/activecampaign"
	"github.com/ignite/formsync/internal/contactmap"
	"github.com/ignite/formsync/internal/domain"
	"github.com/ignite/formsync/internal/pkg/httputil"
	"github.com/ignite/formsync/internal/pkg/logger"
	"github.com/ignite/formsync/internal/service/dispatch"
	"github.com/ignite/formsync/internal/service/transfer"
)

const maxSubmissionBytes = 1 << 20

// Dispatcher is the submission and approval entry point.
type Dispatcher interface {
	Submit(ctx context.Context, in dispatch.Submission) (*dispatch.SubmissionResult, error)
	Execute(ctx context.Context, tok string) dispatch.ExecutionResult
}

// TransferAdmin is the operator view of the transfer store.
type TransferAdmin interface {
	GetPending(ctx context.Context, limit int) ([]domain.TransferRecord, error)
	CountPending(ctx context.Context) (int, error)
	Delete(ctx context.Context, tok string) (bool, error)
	Cleanup(ctx context.Context) (transfer.CleanupResult, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	dispatcher Dispatcher
	transfers  TransferAdmin
	validate   *validator.Validate
}

// NewHandlers creates the handler set.
func NewHandlers(d Dispatcher, transfers TransferAdmin) *Handlers {
	return &Handlers{dispatcher: d, transfers: transfers, validate: validator.New()}
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// ========== Submissions ==========

type submissionRequest struct {
	Fields        contactmap.Fields `json:"fields" validate:"required,min=1"`
	SpamSuspected bool              `json:"spam_suspected"`
}

// SubmitForm accepts a JSON body {"fields": {...}, "spam_suspected": bool}
// or a plain url-encoded form post. For form posts the spam verdict comes
// from the X-Spam-Suspected header set by the fronting filter.
func (h *Handlers) SubmitForm(w http.ResponseWriter, r *http.Request) {
	formID, err := strconv.ParseInt(chi.URLParam(r, "formID"), 10, 64)
	if err != nil || formID <= 0 {
		httputil.BadRequest(w, "invalid form id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)

	var req submissionRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			httputil.BadRequest(w, "invalid form body")
			return
		}
		req.Fields = contactmap.FromValues(r.PostForm)
		req.SpamSuspected, _ = strconv.ParseBool(r.Header.Get("X-Spam-Suspected"))
	default:
		if !httputil.Decode(w, r, &req) {
			return
		}
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.BadRequest(w, "fields are required")
		return
	}

	res, err := h.dispatcher.Submit(r.Context(), dispatch.Submission{
		FormID:        formID,
		Fields:        req.Fields,
		SpamSuspected: req.SpamSuspected,
	})
	if err != nil {
		writeSubmitError(w, err)
		return
	}

	status := http.StatusOK
	if res.Outcome == dispatch.OutcomeDeferred {
		status = http.StatusAccepted
	}
	httputil.JSON(w, status, res)
}

func writeSubmitError(w http.ResponseWriter, err error) {
	var (
		netErr *activecampaign.NetworkError
		apiErr *activecampaign.APIError
	)
	switch {
	case errors.Is(err, dispatch.ErrFormNotConfigured):
		httputil.ErrorCode(w, http.StatusNotFound, "form_not_configured", "form is not configured for contact sync")
	case errors.Is(err, contactmap.ErrMissingEmail):
		httputil.ErrorCode(w, http.StatusUnprocessableEntity, "missing_email", "a valid email address is required")
	case errors.As(err, &netErr), errors.As(err, &apiErr), errors.Is(err, activecampaign.ErrInvalidResponse):
		logger.Error("web: upstream sync failed", "error", err)
		httputil.ErrorCode(w, http.StatusBadGateway, "upstream_failed", "contact could not be transferred, please try again later")
	default:
		httputil.InternalError(w, err)
	}
}

// ========== Operator endpoints ==========

type pendingTransfer struct {
	ID           string   `json:"id"`
	TokenHint    string   `json:"token_hint"`
	FormID       int64    `json:"form_id"`
	Email        string   `json:"email"`
	ListID       string   `json:"list_id"`
	Tags         []string `json:"tags"`
	CreatedAt    string   `json:"created_at"`
	AutoDeleteAt string   `json:"auto_delete_at"`
}

const timeLayout = time.RFC3339

// ListPending returns pending transfers, newest first.
func (h *Handlers) ListPending(w http.ResponseWriter, r *http.Request) {
	limit := transfer.DefaultPendingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			httputil.BadRequest(w, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	recs, err := h.transfers.GetPending(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	out := make([]pendingTransfer, 0, len(recs))
	for _, rec := range recs {
		out = append(out, pendingTransfer{
			ID:           rec.ID,
			TokenHint:    logger.ShortToken(rec.Token),
			FormID:       rec.FormID,
			Email:        rec.Email,
			ListID:       rec.Payload.ListID,
			Tags:         rec.Payload.Tags,
			CreatedAt:    rec.CreatedAt.UTC().Format(timeLayout),
			AutoDeleteAt: rec.AutoDeleteAt.UTC().Format(timeLayout),
		})
	}
	httputil.OK(w, map[string]interface{}{"transfers": out, "count": len(out)})
}

// CountPending returns the number of pending transfers.
func (h *Handlers) CountPending(w http.ResponseWriter, r *http.Request) {
	n, err := h.transfers.CountPending(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"pending": n})
}

// DeleteTransfer removes a transfer by token, whatever its status.
func (h *Handlers) DeleteTransfer(w http.ResponseWriter, r *http.Request) {
	tok := strings.TrimSpace(chi.URLParam(r, "token"))
	ok, err := h.transfers.Delete(r.Context(), tok)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if !ok {
		httputil.NotFound(w, "transfer not found")
		return
	}
	httputil.NoContent(w)
}

// RunCleanup runs one cleanup pass on demand.
func (h *Handlers) RunCleanup(w http.ResponseWriter, r *http.Request) {
	res, err := h.transfers.Cleanup(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, res)
}
