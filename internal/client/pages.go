package client

import (
	"context"
	"encoding/json"
	"fmt"
)

// Page is one slice of a cursor-paginated resource: the items of this
// page, the URL of the next page (empty when exhausted), and the total
// item count reported by the upstream.
type Page struct {
	Items []json.RawMessage `json:"items"`
	Next  string            `json:"next"`
	Total int               `json:"total"`
}

// Exhausted reports whether the first page already covers the
// resource. Callers only collect when total > len(items).
func (p Page) Exhausted() bool {
	return p.Next == "" || p.Total <= len(p.Items)
}

// CollectPages follows the next-cursor chain starting from first,
// concatenating item pages in arrival order. Any page failure aborts
// the collection; partial results are discarded by returning the
// error, leaving fallback decisions to the caller.
func (c *Client) CollectPages(ctx context.Context, first Page) ([]json.RawMessage, error) {
	items := append([]json.RawMessage(nil), first.Items...)
	next := first.Next
	for next != "" {
		var page Page
		found, err := c.GetJSON(ctx, next, &page)
		if err != nil {
			return nil, fmt.Errorf("collect page %s: %w", next, err)
		}
		if !found {
			break
		}
		items = append(items, page.Items...)
		next = page.Next
	}
	return items, nil
}
