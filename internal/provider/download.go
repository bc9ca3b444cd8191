package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Download fetches a produced result file with bounded retry under the
// shared backoff policy. The deadline is the hard limit for the whole
// download, distinct from the per-call HTTP timeout.
func (c *Client) Download(ctx context.Context, url string, deadline time.Duration) ([]byte, error) {
	hardDeadline := time.Now().Add(deadline)

	build := func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}

	resp, err := c.doWithRetry(ctx, c.submitHTTP, build, c.cfg.MaxSubmitRetries, 0, hardDeadline)
	if err != nil {
		return nil, fmt.Errorf("failed to download result %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d downloading %s", ErrHTTPStatus, resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read result body from %s: %w", url, err)
	}

	return data, nil
}
