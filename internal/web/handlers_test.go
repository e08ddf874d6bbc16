package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/formsync/internal/activecampaign"
	"github.com/ignite/formsync/internal/contactmap"
	"github.com/ignite/formsync/internal/domain"
	"github.com/ignite/formsync/internal/pkg/logger"
	"github.com/ignite/formsync/internal/service/dispatch"
	"github.com/ignite/formsync/internal/service/transfer"
)

type fakeDispatcher struct {
	mu        sync.Mutex
	submitted []dispatch.Submission
	result    *dispatch.SubmissionResult
	err       error
	exec      dispatch.ExecutionResult
	executed  []string
}

func (f *fakeDispatcher) Submit(_ context.Context, in dispatch.Submission) (*dispatch.SubmissionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeDispatcher) Execute(_ context.Context, tok string) dispatch.ExecutionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, tok)
	return f.exec
}

type fakeAdmin struct {
	pending []domain.TransferRecord
	limit   int
	deleted map[string]bool
	cleanup transfer.CleanupResult
	err     error
}

func (f *fakeAdmin) GetPending(_ context.Context, limit int) ([]domain.TransferRecord, error) {
	f.limit = limit
	return f.pending, f.err
}

func (f *fakeAdmin) CountPending(context.Context) (int, error) { return len(f.pending), f.err }

func (f *fakeAdmin) Delete(_ context.Context, tok string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.deleted[tok], nil
}

func (f *fakeAdmin) Cleanup(context.Context) (transfer.CleanupResult, error) { return f.cleanup, f.err }

const adminToken = "op-secret"

func newTestRouter(d *fakeDispatcher, a *fakeAdmin) http.Handler {
	return NewRouter(NewHandlers(d, a), RouterOptions{AdminToken: adminToken})
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(&fakeDispatcher{}, &fakeAdmin{}), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSubmitForm_JSON(t *testing.T) {
	d := &fakeDispatcher{result: &dispatch.SubmissionResult{
		Outcome:     dispatch.OutcomeSynced,
		Message:     "Contact transferred.",
		ContactID:   "501",
		Token:       "secret-token-value",
		TransferURL: "https://x/activecampaign/transfer/secret-token-value",
	}}
	body := `{"fields":{"email":"anna@example.org","acf_6":["a","b"]},"spam_suspected":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/forms/7/submissions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := do(t, newTestRouter(d, &fakeAdmin{}), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"outcome":"synced","message":"Contact transferred.","contact_id":"501"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret-token-value")

	require.Len(t, d.submitted, 1)
	in := d.submitted[0]
	assert.Equal(t, int64(7), in.FormID)
	assert.True(t, in.SpamSuspected)
	assert.Equal(t, []string{"a", "b"}, in.Fields["acf_6"])
}

func TestSubmitForm_FormEncoded(t *testing.T) {
	d := &fakeDispatcher{result: &dispatch.SubmissionResult{Outcome: dispatch.OutcomeDeferred, Message: "stored"}}
	form := url.Values{"email": {"anna@example.org"}, "vorname": {"Anna"}}
	req := httptest.NewRequest(http.MethodPost, "/api/forms/2/submissions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Spam-Suspected", "1")

	rec := do(t, newTestRouter(d, &fakeAdmin{}), req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, d.submitted, 1)
	assert.Equal(t, "Anna", d.submitted[0].Fields.Get("vorname"))
	assert.True(t, d.submitted[0].SpamSuspected)
}

func TestSubmitForm_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"non-numeric form id", "/api/forms/abc/submissions", `{"fields":{"email":"a@b.de"}}`},
		{"zero form id", "/api/forms/0/submissions", `{"fields":{"email":"a@b.de"}}`},
		{"malformed json", "/api/forms/1/submissions", `{"fields":`},
		{"missing fields", "/api/forms/1/submissions", `{}`},
		{"empty fields", "/api/forms/1/submissions", `{"fields":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{}
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := do(t, newTestRouter(d, &fakeAdmin{}), req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, d.submitted)
		})
	}
}

func TestSubmitForm_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"unconfigured form", dispatch.ErrFormNotConfigured, http.StatusNotFound, "form_not_configured"},
		{"missing email", errors.Join(errors.New("map contact"), contactmap.ErrMissingEmail), http.StatusUnprocessableEntity, "missing_email"},
		{"crm rejected", &activecampaign.APIError{StatusCode: 422, Message: "bad"}, http.StatusBadGateway, "upstream_failed"},
		{"crm unreachable", &activecampaign.NetworkError{Err: errors.New("dial")}, http.StatusBadGateway, "upstream_failed"},
		{"crm malformed", activecampaign.ErrInvalidResponse, http.StatusBadGateway, "upstream_failed"},
		{"storage", errors.New("db down"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{err: tt.err}
			req := httptest.NewRequest(http.MethodPost, "/api/forms/1/submissions",
				strings.NewReader(`{"fields":{"email":"a@b.de"}}`))
			req.Header.Set("Content-Type", "application/json")

			rec := do(t, newTestRouter(d, &fakeAdmin{}), req)

			assert.Equal(t, tt.want, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
			assert.NotContains(t, rec.Body.String(), "db down")
		})
	}
}

func TestSubmitForm_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/forms/1/submissions", nil)
	req.Header.Set("Origin", "https://www.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := do(t, newTestRouter(&fakeDispatcher{}, &fakeAdmin{}), req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestExecuteTransfer(t *testing.T) {
	tests := []struct {
		name     string
		result   dispatch.ExecutionResult
		want     int
		contains []string
	}{
		{
			name: "processed",
			result: dispatch.ExecutionResult{
				Outcome: dispatch.ExecutionProcessed, Email: "<b>anna@example.org</b>", ContactID: "501", ListID: "4",
			},
			want:     http.StatusOK,
			contains: []string{"Contact transferred", "&lt;b&gt;anna@example.org&lt;/b&gt;", "501", "List ID"},
		},
		{
			name:     "invalid",
			result:   dispatch.ExecutionResult{Outcome: dispatch.ExecutionInvalid},
			want:     http.StatusNotFound,
			contains: []string{"Link no longer valid"},
		},
		{
			name:     "failed",
			result:   dispatch.ExecutionResult{Outcome: dispatch.ExecutionFailed, Err: errors.New("crm down")},
			want:     http.StatusBadGateway,
			contains: []string{"Transfer failed", "same link"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{exec: tt.result}
			rec := do(t, newTestRouter(d, &fakeAdmin{}),
				httptest.NewRequest(http.MethodGet, "/activecampaign/transfer/abc123", nil))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t, []string{"abc123"}, d.executed)
			for _, s := range tt.contains {
				assert.Contains(t, rec.Body.String(), s)
			}
			assert.NotContains(t, rec.Body.String(), "<b>anna")
			assert.NotContains(t, rec.Body.String(), "crm down")
		})
	}
}

func TestAdmin_RequiresBearer(t *testing.T) {
	h := newTestRouter(&fakeDispatcher{}, &fakeAdmin{})

	for _, auth := range []string{"", "Bearer wrong", adminToken, "Basic " + adminToken} {
		req := httptest.NewRequest(http.MethodGet, "/api/transfers/pending/count", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		assert.Equal(t, http.StatusUnauthorized, do(t, h, req).Code, "auth %q", auth)
	}
}

func TestAdmin_DisabledWithoutToken(t *testing.T) {
	h := NewRouter(NewHandlers(&fakeDispatcher{}, &fakeAdmin{}), RouterOptions{})
	req := httptest.NewRequest(http.MethodGet, "/api/transfers/pending/count", nil)
	req.Header.Set("Authorization", "Bearer ")
	assert.Equal(t, http.StatusNotFound, do(t, h, req).Code)
}

func adminRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	return req
}

func TestAdmin_ListPending(t *testing.T) {
	created := time.Date(2025, 11, 19, 10, 0, 0, 0, time.UTC)
	a := &fakeAdmin{pending: []domain.TransferRecord{{
		ID:     "rec-1",
		Token:  "abcdefghijklmnopqrstuvwxyz012345",
		FormID: 2,
		Email:  "anna@example.org",
		Payload: domain.TransferPayload{
			Email:  "anna@example.org",
			ListID: "4",
			Tags:   []string{"Review"},
		},
		Status:       domain.TransferPending,
		CreatedAt:    created,
		AutoDeleteAt: created.AddDate(0, 0, 10),
	}}}
	h := newTestRouter(&fakeDispatcher{}, a)

	rec := do(t, h, adminRequest(http.MethodGet, "/api/transfers/pending?limit=5"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, a.limit)
	assert.NotContains(t, rec.Body.String(), "abcdefghijklmnopqrstuvwxyz012345")

	var body struct {
		Count     int               `json:"count"`
		Transfers []pendingTransfer `json:"transfers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	got := body.Transfers[0]
	assert.Equal(t, "abcdefgh...", got.TokenHint)
	assert.Equal(t, "4", got.ListID)
	assert.Equal(t, "2025-11-29T10:00:00Z", got.AutoDeleteAt)

	rec = do(t, h, adminRequest(http.MethodGet, "/api/transfers/pending"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, transfer.DefaultPendingLimit, a.limit)

	rec = do(t, h, adminRequest(http.MethodGet, "/api/transfers/pending?limit=0"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_CountDeleteCleanup(t *testing.T) {
	a := &fakeAdmin{
		pending: make([]domain.TransferRecord, 3),
		deleted: map[string]bool{"known": true},
		cleanup: transfer.CleanupResult{Expired: 2, Deleted: 5},
	}
	h := newTestRouter(&fakeDispatcher{}, a)

	rec := do(t, h, adminRequest(http.MethodGet, "/api/transfers/pending/count"))
	assert.JSONEq(t, `{"pending":3}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, do(t, h, adminRequest(http.MethodDelete, "/api/transfers/known")).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, adminRequest(http.MethodDelete, "/api/transfers/unknown")).Code)

	rec = do(t, h, adminRequest(http.MethodPost, "/api/transfers/cleanup"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"expired":2,"deleted":5}`, rec.Body.String())
}

func TestAdmin_StoreErrors(t *testing.T) {
	h := newTestRouter(&fakeDispatcher{}, &fakeAdmin{err: errors.New("db down")})

	for _, req := range []*http.Request{
		adminRequest(http.MethodGet, "/api/transfers/pending"),
		adminRequest(http.MethodGet, "/api/transfers/pending/count"),
		adminRequest(http.MethodDelete, "/api/transfers/x"),
		adminRequest(http.MethodPost, "/api/transfers/cleanup"),
	} {
		rec := do(t, h, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, req.URL.Path)
		assert.NotContains(t, rec.Body.String(), "db down")
	}
}

func TestAccessLog_ShortensTransferTokens(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	const tok = "SECRETtokenSECRETtokenSECRETtok1"
	h := newTestRouter(
		&fakeDispatcher{exec: dispatch.ExecutionResult{Outcome: dispatch.ExecutionInvalid}},
		&fakeAdmin{deleted: map[string]bool{tok: true}},
	)

	assert.Equal(t, http.StatusNotFound, do(t, h, httptest.NewRequest(http.MethodGet, "/activecampaign/transfer/"+tok, nil)).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, adminRequest(http.MethodDelete, "/api/transfers/"+tok)).Code)

	unauthorized := httptest.NewRequest(http.MethodDelete, "/api/transfers/"+tok, nil)
	unauthorized.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, do(t, h, unauthorized).Code)

	out := buf.String()
	assert.NotContains(t, out, tok)
	assert.Contains(t, out, `"route":"/activecampaign/transfer/{token}"`)
	assert.Contains(t, out, `"route":"/api/transfers/{token}"`)
	assert.Contains(t, out, `"token":"SECRETto..."`)
	assert.Contains(t, out, "web: rejected operator request")
}
