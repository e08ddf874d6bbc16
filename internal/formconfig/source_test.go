package formconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/formsync/internal/domain"
)

func TestStatic_Get(t *testing.T) {
	s, err := NewStatic([]domain.FormConfig{
		{FormID: 1, ListID: " 3 ", Tags: []string{"Newsletter, Webinar", " "}, DelayedTransfer: true},
		{FormID: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	fc, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "3", fc.ListID)
	assert.Equal(t, []string{"Newsletter", "Webinar"}, fc.Tags)
	assert.True(t, fc.DelayedTransfer)
	assert.Equal(t, domain.DefaultRetentionDays, fc.Retention())

	// Callers get a copy.
	fc.Tags[0] = "changed"
	again, _ := s.Get(context.Background(), 1)
	assert.Equal(t, "Newsletter", again.Tags[0])

	_, err = s.Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewStatic_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		forms []domain.FormConfig
	}{
		{"missing form id", []domain.FormConfig{{ListID: "1"}}},
		{"retention too long", []domain.FormConfig{{FormID: 1, RetentionDays: 400}}},
		{"bad notify email", []domain.FormConfig{{FormID: 1, NotifyEmail: "nobody"}}},
		{"duplicate", []domain.FormConfig{{FormID: 1}, {FormID: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatic(tt.forms)
			assert.Error(t, err)
		})
	}
}
