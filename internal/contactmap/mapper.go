// Package contactmap turns loosely named form fields into a domain.Contact.
//
// Only the email, the three standard fields and custom fields named
// "acf_<id>" are carried over; every other field is dropped on purpose.
package contactmap

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/badoux/checkmail"

	"github.com/ignite/formsync/internal/domain"
)

// ErrMissingEmail means no field held a syntactically valid address.
var ErrMissingEmail = errors.New("no valid email address in submission")

// CustomFieldPrefix marks a field as a CRM custom field: acf_6 → field 6.
const CustomFieldPrefix = "acf_"

var customFieldPattern = regexp.MustCompile(`^` + CustomFieldPrefix + `(\d+)$`)

// emailFieldNames is scanned in order; the first valid address wins.
var emailFieldNames = []string{
	"email", "e-mail", "e_mail", "mail", "Email", "E-Mail", "EMail",
	"emailaddress", "email_address", "emailadresse", "e-mail-adresse",
}

// standardFields maps each canonical contact field to its ordered synonyms.
var standardFields = []struct {
	set   func(*domain.Contact, string)
	names []string
}{
	{
		set:   func(c *domain.Contact, v string) { c.FirstName = v },
		names: []string{"firstname", "firstName", "first_name", "vorname", "name", "Name", "Vorname"},
	},
	{
		set:   func(c *domain.Contact, v string) { c.LastName = v },
		names: []string{"lastname", "lastName", "last_name", "nachname", "surname", "Nachname"},
	},
	{
		set:   func(c *domain.Contact, v string) { c.Phone = v },
		names: []string{"phone", "telefon", "telephone", "tel", "Telefon", "Tel", "Telefonnummer"},
	},
}

// DefaultExcluded are submission-control fields that never carry contact data.
var DefaultExcluded = []string{"FORM_SUBMIT", "REQUEST_TOKEN", "submit"}

// Mapper builds contacts from submitted fields. It has no side effects.
type Mapper struct {
	excluded map[string]struct{}
}

// NewMapper returns a mapper that ignores DefaultExcluded plus extra names.
func NewMapper(extraExcluded ...string) *Mapper {
	m := &Mapper{excluded: make(map[string]struct{})}
	for _, n := range DefaultExcluded {
		m.excluded[n] = struct{}{}
	}
	for _, n := range extraExcluded {
		m.excluded[n] = struct{}{}
	}
	return m
}

// Excluded returns a copy of the set of names the mapper skips.
func (m *Mapper) Excluded() map[string]struct{} {
	out := make(map[string]struct{}, len(m.excluded))
	for k := range m.excluded {
		out[k] = struct{}{}
	}
	return out
}

// Map converts submitted fields into a Contact.
func (m *Mapper) Map(fields Fields) (domain.Contact, error) {
	fields = fields.Without(m.excluded)

	email, ok := resolveEmail(fields)
	if !ok {
		return domain.Contact{}, ErrMissingEmail
	}
	contact := domain.Contact{Email: email}

	for _, sf := range standardFields {
		for _, name := range sf.names {
			if v := strings.TrimSpace(fields.Get(name)); v != "" {
				sf.set(&contact, v)
				break
			}
		}
	}

	// Sorted by numeric id so the output does not depend on map order.
	type custom struct {
		id    int
		value string
	}
	var customs []custom
	for name := range fields {
		match := customFieldPattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		v := strings.TrimSpace(fields.Get(name))
		if v == "" {
			continue
		}
		id, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		customs = append(customs, custom{id: id, value: v})
	}
	sort.SliceStable(customs, func(i, j int) bool { return customs[i].id < customs[j].id })
	for _, c := range customs {
		contact.SetFieldValue(c.id, c.value)
	}

	return contact, nil
}

// resolveEmail scans the known names exactly, then case-insensitively.
func resolveEmail(fields Fields) (string, bool) {
	for _, name := range emailFieldNames {
		if v, ok := validEmail(fields.Get(name)); ok {
			return v, true
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range emailFieldNames {
		for _, k := range keys {
			if !strings.EqualFold(k, name) {
				continue
			}
			if v, ok := validEmail(fields.Get(k)); ok {
				return v, true
			}
		}
	}
	return "", false
}

func validEmail(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", false
	}
	if err := checkmail.ValidateFormat(v); err != nil {
		return "", false
	}
	// checkmail accepts dotless domains; require a real host part.
	at := strings.LastIndex(v, "@")
	if !strings.Contains(v[at+1:], ".") {
		return "", false
	}
	return v, true
}
