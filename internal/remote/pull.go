package remote

import "context"

// pullParams is the sync.pull RPC request body.
type pullParams struct {
	Cursor uint64 `json:"cursor"`
}

// Pull calls sync.pull(cursor) and returns the event batch plus the next
// cursor (spec §4.2).
func (c *Client) Pull(ctx context.Context, cursor uint64) (PullResult, error) {
	var result PullResult

	if err := c.call(ctx, "sync.pull", pullParams{Cursor: cursor}, &result); err != nil {
		return PullResult{}, err
	}

	return result, nil
}
