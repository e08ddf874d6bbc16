package domain

import "strings"

// FormConfig is the resolved per-form synchronization setup.
type FormConfig struct {
	FormID          int64    `json:"form_id" yaml:"form_id" validate:"required,gt=0"`
	ListID          string   `json:"list_id" yaml:"list_id"`
	Tags            []string `json:"tags" yaml:"tags"`
	DelayedTransfer bool     `json:"delayed_transfer" yaml:"delayed_transfer"`
	RetentionDays   int      `json:"auto_delete_days" yaml:"auto_delete_days" validate:"gte=0,lte=365"`
	NotifyEmail     string   `json:"notify_email,omitempty" yaml:"notify_email" validate:"omitempty,email"`
}

// Retention returns the configured retention, falling back to the default.
func (f FormConfig) Retention() int {
	if f.RetentionDays <= 0 {
		return DefaultRetentionDays
	}
	return f.RetentionDays
}

// SplitTags parses a comma-separated tag setting into trimmed, non-empty names.
func SplitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
