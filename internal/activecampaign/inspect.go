package activecampaign

import (
	"context"
	"fmt"
	"net/http"
)

const pageSize = 100

// ListFields returns every custom field definition in the account.
func (c *Client) ListFields(ctx context.Context) ([]RemoteField, error) {
	var all []RemoteField
	for offset := 0; ; offset += pageSize {
		var resp fieldsResponse
		endpoint := fmt.Sprintf("/fields?limit=%d&offset=%d", pageSize, offset)
		if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Fields...)
		if len(resp.Fields) < pageSize {
			return all, nil
		}
	}
}

// ListTags returns every tag in the account.
func (c *Client) ListTags(ctx context.Context) ([]RemoteTag, error) {
	var all []RemoteTag
	for offset := 0; ; offset += pageSize {
		var resp tagsResponse
		endpoint := fmt.Sprintf("/tags?limit=%d&offset=%d", pageSize, offset)
		if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Tags...)
		if len(resp.Tags) < pageSize {
			return all, nil
		}
	}
}
