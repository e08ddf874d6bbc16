package dispatch

import "errors"

// ErrFormNotConfigured means the submitted form has no sync settings.
var ErrFormNotConfigured = errors.New("form is not configured for contact sync")
