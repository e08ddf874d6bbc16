// Package formconfig resolves the per-form synchronization settings.
package formconfig

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ignite/formsync/internal/domain"
)

// ErrNotConfigured means the form has no synchronization set up.
var ErrNotConfigured = errors.New("form is not configured for contact sync")

// Source looks up the configuration of one form.
type Source interface {
	Get(ctx context.Context, formID int64) (*domain.FormConfig, error)
}

var validate = validator.New()

// Normalize trims list and tag settings and checks the result.
func Normalize(fc *domain.FormConfig) error {
	fc.ListID = strings.TrimSpace(fc.ListID)
	tags := make([]string, 0, len(fc.Tags))
	for _, t := range fc.Tags {
		tags = append(tags, domain.SplitTags(t)...)
	}
	fc.Tags = tags
	if err := validate.Struct(fc); err != nil {
		return fmt.Errorf("form %d: %w", fc.FormID, err)
	}
	return nil
}

// Static serves configurations loaded once, e.g. from the YAML config.
type Static struct {
	forms map[int64]domain.FormConfig
}

// NewStatic validates and indexes the given configurations.
func NewStatic(forms []domain.FormConfig) (*Static, error) {
	s := &Static{forms: make(map[int64]domain.FormConfig, len(forms))}
	for _, fc := range forms {
		if err := Normalize(&fc); err != nil {
			return nil, err
		}
		if _, dup := s.forms[fc.FormID]; dup {
			return nil, fmt.Errorf("form %d configured twice", fc.FormID)
		}
		s.forms[fc.FormID] = fc
	}
	return s, nil
}

// Get implements Source.
func (s *Static) Get(_ context.Context, formID int64) (*domain.FormConfig, error) {
	fc, ok := s.forms[formID]
	if !ok {
		return nil, ErrNotConfigured
	}
	fc.Tags = append([]string(nil), fc.Tags...)
	return &fc, nil
}

// Len returns the number of configured forms.
func (s *Static) Len() int { return len(s.forms) }
