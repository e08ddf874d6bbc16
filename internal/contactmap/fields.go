package contactmap

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Fields is a submitted "field name → value" mapping. Single values are
// one-element slices; checkbox groups and multi-selects carry several.
type Fields map[string][]string

// FromValues adopts a parsed HTML form body.
func FromValues(v url.Values) Fields {
	f := make(Fields, len(v))
	for k, vals := range v {
		f[k] = append([]string(nil), vals...)
	}
	return f
}

// Get returns the field flattened to a single string: array values are
// joined with ", ".
func (f Fields) Get(name string) string {
	return strings.Join(f[name], ", ")
}

// Without returns a copy of f lacking the named keys.
func (f Fields) Without(names map[string]struct{}) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if _, skip := names[k]; skip {
			continue
		}
		out[k] = v
	}
	return out
}

// UnmarshalJSON accepts both `"name": "value"` and `"name": ["a", "b"]`.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Fields, len(raw))
	for name, msg := range raw {
		var single string
		if err := json.Unmarshal(msg, &single); err == nil {
			out[name] = []string{single}
			continue
		}
		var many []string
		if err := json.Unmarshal(msg, &many); err == nil {
			out[name] = many
			continue
		}
		var number json.Number
		if err := json.Unmarshal(msg, &number); err == nil {
			out[name] = []string{number.String()}
			continue
		}
		return fmt.Errorf("field %q: expected string or array of strings", name)
	}
	*f = out
	return nil
}
