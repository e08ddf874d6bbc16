package domain

import "strings"

// Contact is the canonical representation of a form submitter. Identity is
// the email address, compared case-insensitively. ID is empty until the CRM
// upsert returns the remote contact id.
type Contact struct {
	ID          string       `json:"id,omitempty"`
	Email       string       `json:"email"`
	FirstName   string       `json:"firstName,omitempty"`
	LastName    string       `json:"lastName,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	FieldValues []FieldValue `json:"fieldValues,omitempty"`
}

// FieldValue is a value for a remotely-defined custom field.
type FieldValue struct {
	Field int    `json:"field"`
	Value string `json:"value"`
}

// NormalizedEmail returns the identity key used for deduplication.
func (c Contact) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(c.Email))
}

// SetFieldValue stores a custom field value. A later value for the same
// field id overwrites the earlier one in place, so ids stay unique and the
// original order is kept.
func (c *Contact) SetFieldValue(field int, value string) {
	for i := range c.FieldValues {
		if c.FieldValues[i].Field == field {
			c.FieldValues[i].Value = value
			return
		}
	}
	c.FieldValues = append(c.FieldValues, FieldValue{Field: field, Value: value})
}

// Tag is an account-wide label, matched by name case-insensitively.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"tag"`
}

// Matches reports whether the tag carries the given name.
func (t Tag) Matches(name string) bool {
	return strings.EqualFold(strings.TrimSpace(t.Name), strings.TrimSpace(name))
}

// MembershipStatus is the CRM's subscription state of a contact on a list.
type MembershipStatus string

const (
	MembershipActive       MembershipStatus = "1"
	MembershipUnsubscribed MembershipStatus = "2"
)

// ListMembership relates a contact to a list. Only active memberships count
// as "already a member".
type ListMembership struct {
	ContactID string           `json:"contact"`
	ListID    string           `json:"list"`
	Status    MembershipStatus `json:"status"`
}

// IsActiveOn reports whether this membership is an active one for listID.
func (m ListMembership) IsActiveOn(listID string) bool {
	return m.ListID == listID && m.Status == MembershipActive
}

// HasList reports whether listID names a real target list. Empty and the
// sentinel "0" both mean "no list".
func HasList(listID string) bool {
	listID = strings.TrimSpace(listID)
	return listID != "" && listID != "0"
}
