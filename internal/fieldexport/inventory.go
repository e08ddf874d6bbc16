// Package fieldexport builds and stores the inventory of remote custom
// fields and tags that editors use when naming form fields.
package fieldexport

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/ignite/formsync/internal/activecampaign"
	"github.com/ignite/formsync/internal/contactmap"
)

// Field is one custom field and the form field name that maps onto it.
type Field struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Type           string `json:"type"`
	PersTag        string `json:"perstag,omitempty"`
	SubmissionName string `json:"submission_name"`
}

// Tag is one existing tag.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Inventory is the exported document.
type Inventory struct {
	Account     string    `json:"account"`
	GeneratedAt time.Time `json:"generated_at"`
	Fields      []Field   `json:"fields"`
	Tags        []Tag     `json:"tags"`
}

// Build assembles an inventory sorted by numeric id.
func Build(account string, fields []activecampaign.RemoteField, tags []activecampaign.RemoteTag, now time.Time) *Inventory {
	inv := &Inventory{
		Account:     account,
		GeneratedAt: now.UTC(),
		Fields:      make([]Field, 0, len(fields)),
		Tags:        make([]Tag, 0, len(tags)),
	}
	for _, f := range fields {
		id := string(f.ID)
		inv.Fields = append(inv.Fields, Field{
			ID:             id,
			Title:          f.Title,
			Type:           f.Type,
			PersTag:        f.PersTag,
			SubmissionName: contactmap.CustomFieldPrefix + id,
		})
	}
	for _, t := range tags {
		inv.Tags = append(inv.Tags, Tag{ID: string(t.ID), Name: t.Tag, Type: t.TagType})
	}

	sort.SliceStable(inv.Fields, func(i, j int) bool { return idLess(inv.Fields[i].ID, inv.Fields[j].ID) })
	sort.SliceStable(inv.Tags, func(i, j int) bool { return idLess(inv.Tags[i].ID, inv.Tags[j].ID) })
	return inv
}

// idLess orders numeric ids numerically and anything else after them.
func idLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// JSON returns the indented document.
func (inv *Inventory) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal inventory: %w", err)
	}
	return append(b, '\n'), nil
}

// WriteTable prints the inventory for a terminal.
func (inv *Inventory) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tFORM FIELD NAME")
	for _, f := range inv.Fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Title, f.Type, f.SubmissionName)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "TAG ID\tTAG\tTYPE\t")
	for _, t := range inv.Tags {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", t.ID, t.Name, t.Type)
	}
	return tw.Flush()
}
