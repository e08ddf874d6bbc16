package activecampaign

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ignite/formsync/internal/domain"
	"github.com/ignite/formsync/internal/pkg/logger"
)

const tagDescription = "Created automatically by form sync"

// CreateOrUpdateContact upserts the contact, then attaches it to listID and
// tags. Only the upsert can fail the call: list and tag problems are logged
// and swallowed, so a returned contact may lack some enrichment.
func (c *Client) CreateOrUpdateContact(ctx context.Context, contact domain.Contact, listID string, tags []string) (*domain.Contact, error) {
	if strings.TrimSpace(contact.Email) == "" {
		return nil, fmt.Errorf("contact sync: email is required")
	}

	remote, err := c.syncContact(ctx, contact)
	if err != nil {
		logger.Error("activecampaign: contact sync failed", "email", contact.Email, "error", err)
		return nil, err
	}

	resolved := contact
	resolved.ID = string(remote.ID)
	c.trace("activecampaign: contact synced", "email", contact.Email, "contact_id", resolved.ID)

	if domain.HasList(listID) {
		if err := c.ensureListMembership(ctx, resolved.ID, strings.TrimSpace(listID)); err != nil {
			logger.Warn("activecampaign: could not add contact to list",
				"contact_id", resolved.ID, "list_id", listID, "error", err)
		}
	}

	if len(tags) > 0 {
		c.applyTags(ctx, resolved.ID, tags)
	}

	return &resolved, nil
}

// syncContact calls the idempotent upsert; the API matches on email.
func (c *Client) syncContact(ctx context.Context, contact domain.Contact) (*RemoteContact, error) {
	payload := syncContactRequest{Contact: syncContact{
		Email:     strings.TrimSpace(contact.Email),
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Phone:     contact.Phone,
	}}
	for _, fv := range contact.FieldValues {
		payload.Contact.FieldValues = append(payload.Contact.FieldValues, syncFieldValue{Field: fv.Field, Value: fv.Value})
	}

	var resp syncContactResponse
	if err := c.doRequest(ctx, http.MethodPost, "/contact/sync", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Contact == nil || resp.Contact.ID == "" {
		return nil, fmt.Errorf("POST /contact/sync: %w: no contact id returned", ErrInvalidResponse)
	}
	return resp.Contact, nil
}

// ensureListMembership subscribes the contact unless an active membership
// already exists. A failed membership lookup does not stop the subscribe
// attempt: the API tolerates re-subscribing an active contact.
func (c *Client) ensureListMembership(ctx context.Context, contactID, listID string) error {
	memberships, err := c.ContactLists(ctx, contactID)
	if err != nil {
		logger.Warn("activecampaign: membership lookup failed, subscribing anyway",
			"contact_id", contactID, "list_id", listID, "error", err)
	}
	for _, m := range memberships {
		if m.IsActiveOn(listID) {
			c.trace("activecampaign: contact already on list", "contact_id", contactID, "list_id", listID)
			return nil
		}
	}

	listNum, err := strconv.ParseInt(listID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid list id %q", listID)
	}
	contactNum, err := strconv.ParseInt(contactID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid contact id %q", contactID)
	}

	body := contactListRequest{ContactList: contactListBody{
		List:    listNum,
		Contact: contactNum,
		Status:  1,
	}}
	if err := c.doRequest(ctx, http.MethodPost, "/contactLists", body, nil); err != nil {
		return err
	}
	c.trace("activecampaign: contact added to list", "contact_id", contactID, "list_id", listID)
	return nil
}

// ContactLists returns the contact's current list memberships.
func (c *Client) ContactLists(ctx context.Context, contactID string) ([]domain.ListMembership, error) {
	var resp contactListsResponse
	endpoint := "/contacts/" + url.PathEscape(contactID) + "/contactLists"
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.ListMembership, 0, len(resp.ContactLists))
	for _, cl := range resp.ContactLists {
		out = append(out, domain.ListMembership{
			ContactID: contactID,
			ListID:    string(cl.List),
			Status:    domain.MembershipStatus(cl.Status),
		})
	}
	return out, nil
}

// applyTags processes every tag on its own; one tag failing never stops
// the others.
func (c *Client) applyTags(ctx context.Context, contactID string, names []string) {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if err := c.applyTag(ctx, contactID, name); err != nil {
			logger.Warn("activecampaign: failed to add tag",
				"contact_id", contactID, "tag", name, "error", err)
			continue
		}
		c.trace("activecampaign: tag assigned", "contact_id", contactID, "tag", name)
	}
}

func (c *Client) applyTag(ctx context.Context, contactID, name string) error {
	tag, err := c.findOrCreateTag(ctx, name)
	if err != nil {
		return err
	}

	contactNum, err := strconv.ParseInt(contactID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid contact id %q", contactID)
	}
	tagNum, err := strconv.ParseInt(tag.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid tag id %q", tag.ID)
	}

	body := contactTagRequest{ContactTag: contactTagBody{Contact: contactNum, Tag: tagNum}}
	return c.doRequest(ctx, http.MethodPost, "/contactTags", body, nil)
}

// findOrCreateTag looks the tag up by name and creates it when absent.
// Tags are account-wide, so two submissions may race to create the same
// one: a failed create is followed by one more search, and a tag found
// then counts as success.
func (c *Client) findOrCreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	tag, err := c.FindTag(ctx, name)
	if err != nil {
		logger.Warn("activecampaign: tag search failed, creating", "tag", name, "error", err)
	}
	if tag != nil {
		return tag, nil
	}

	created, createErr := c.CreateTag(ctx, name)
	if createErr == nil {
		return created, nil
	}

	if tag, err := c.FindTag(ctx, name); err == nil && tag != nil {
		c.trace("activecampaign: tag created concurrently", "tag", name)
		return tag, nil
	}
	return nil, createErr
}

// FindTag searches tags by name and returns the exact case-insensitive
// match, or nil when there is none.
func (c *Client) FindTag(ctx context.Context, name string) (*domain.Tag, error) {
	var resp tagsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/tags?search="+url.QueryEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	for _, t := range resp.Tags {
		tag := domain.Tag{ID: string(t.ID), Name: t.Tag}
		if tag.Matches(name) && tag.ID != "" {
			return &tag, nil
		}
	}
	return nil, nil
}

// CreateTag creates a contact tag.
func (c *Client) CreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	body := tagRequest{Tag: tagBody{Tag: name, TagType: "contact", Description: tagDescription}}

	var resp tagResponse
	if err := c.doRequest(ctx, http.MethodPost, "/tags", body, &resp); err != nil {
		return nil, err
	}
	if resp.Tag == nil || resp.Tag.ID == "" {
		return nil, fmt.Errorf("POST /tags: %w: no tag id returned", ErrInvalidResponse)
	}
	return &domain.Tag{ID: string(resp.Tag.ID), Name: resp.Tag.Tag}, nil
}

func (c *Client) trace(msg string, fields ...interface{}) {
	if c.debug {
		logger.Info(msg, fields...)
		return
	}
	logger.Debug(msg, fields...)
}
