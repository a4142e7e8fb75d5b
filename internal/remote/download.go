package remote

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// Download streams the content of the file identified by id to w (spec
// §6: "GET /files/{url-encoded-id}/content → raw bytes").
func (c *Client) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	path := "/files/" + url.PathEscape(id) + "/content"

	resp, err := c.do(ctx, "GET", path, nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("remote: streaming download for %s: %w", id, err)
	}

	return n, nil
}
