package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/formsync/internal/contactmap"
	"github.com/ignite/formsync/internal/domain"
	"github.com/ignite/formsync/internal/formconfig"
)

// Field names the dispatcher itself reserves. A client posting them gets
// them stripped, so a submission can never choose its own token or link.
var internalFields = []string{
	"_ac_transfer_token",
	"_ac_transfer_url",
	"_ac_config",
	"activecampaign_transfer_link",
}

// submission is the per-request state the pipeline steps work on.
type submission struct {
	in      Submission
	fields  contactmap.Fields
	form    *domain.FormConfig
	contact domain.Contact
	token   string
}

type step struct {
	name string
	run  func(ctx context.Context, d *Dispatcher, s *submission) error
}

// pipeline is the fixed, ordered list of transform steps.
var pipeline = []step{
	{"strip-internal-fields", stripInternalFields},
	{"resolve-config", resolveConfig},
	{"map-contact", mapContact},
	{"generate-token", generateToken},
}

func (d *Dispatcher) prepare(ctx context.Context, in Submission) (*submission, error) {
	s := &submission{in: in, fields: in.Fields}
	for _, st := range pipeline {
		if err := st.run(ctx, d, s); err != nil {
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
	}
	return s, nil
}

func stripInternalFields(_ context.Context, d *Dispatcher, s *submission) error {
	drop := d.mapper.Excluded()
	for _, name := range internalFields {
		drop[name] = struct{}{}
	}
	s.fields = s.fields.Without(drop)
	return nil
}

func resolveConfig(ctx context.Context, d *Dispatcher, s *submission) error {
	fc, err := d.forms.Get(ctx, s.in.FormID)
	if errors.Is(err, formconfig.ErrNotConfigured) {
		return ErrFormNotConfigured
	}
	if err != nil {
		return err
	}
	s.form = fc
	return nil
}

func mapContact(_ context.Context, d *Dispatcher, s *submission) error {
	c, err := d.mapper.Map(s.fields)
	if err != nil {
		return err
	}
	s.contact = c
	return nil
}

// generateToken runs for delayed forms only, spam or not: the editor
// decides later whether the data goes out.
func generateToken(_ context.Context, d *Dispatcher, s *submission) error {
	if !s.form.DelayedTransfer {
		return nil
	}
	s.token = d.tokens.Generate(d.cfg.TokenLength)
	return nil
}
