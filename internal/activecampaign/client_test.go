package activecampaign

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", APIKey: "test-key"})
}

func TestDoRequest_SendsAuthAndDecodes(t *testing.T) {
	var gotPath, gotKey, gotType string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Api-Token")
		gotType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"contact":{"id":"42","email":"a@b.co"}}`))
	}))

	var out syncContactResponse
	err := c.doRequest(context.Background(), http.MethodPost, "/contact/sync", map[string]string{"x": "y"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "/api/3/contact/sync", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "application/json", gotType)
	require.NotNil(t, out.Contact)
	assert.Equal(t, FlexString("42"), out.Contact.ID)
}

func TestDoRequest_APIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":[{"title":"Email address already exists in the system"}]}`))
	}))

	err := c.doRequest(context.Background(), http.MethodGet, "/contacts", nil, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "Email address already exists in the system", apiErr.Message)
	assert.False(t, IsNotFound(err))
}

func TestDoRequest_NotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	err := c.doRequest(context.Background(), http.MethodGet, "/contacts/1", nil, nil)
	assert.True(t, IsNotFound(err))
}

func TestDoRequest_InvalidJSON(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))

	var out syncContactResponse
	err := c.doRequest(context.Background(), http.MethodGet, "/contacts", nil, &out)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestDoRequest_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	err := c.doRequest(context.Background(), http.MethodGet, "/contacts", nil, nil)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "GET /contacts", netErr.Op)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"message":"No Result found"}`, "No Result found"},
		{`{"error":"bad key"}`, "bad key"},
		{`{"errors":[{"detail":"detail only"}]}`, "detail only"},
		{`plain text`, "plain text"},
		{``, "unknown error"},
		{strings.Repeat("x", 600), strings.Repeat("x", maxErrorBody) + "..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorMessage([]byte(tt.body)))
	}
}

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12","b":13,"c":null}`), &v))
	assert.Equal(t, FlexString("12"), v.A)
	assert.Equal(t, FlexString("13"), v.B)
	assert.Equal(t, FlexString(""), v.C)
}

func TestListFields_Paginates(t *testing.T) {
	var mu sync.Mutex
	var offsets []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		offsets = append(offsets, r.URL.Query().Get("offset"))
		mu.Unlock()

		resp := fieldsResponse{}
		n := pageSize
		if r.URL.Query().Get("offset") != "0" {
			n = 3
		}
		for i := 0; i < n; i++ {
			resp.Fields = append(resp.Fields, RemoteField{ID: "1", Title: "Stadt", Type: "text"})
		}
		json.NewEncoder(w).Encode(resp)
	}))

	fields, err := c.ListFields(context.Background())
	require.NoError(t, err)
	assert.Len(t, fields, pageSize+3)
	assert.Equal(t, []string{"0", "100"}, offsets)
}

func TestListTags_Error(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	_, err := c.ListTags(context.Background())
	assert.Error(t, err)
}
