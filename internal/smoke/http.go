package smoke

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// httpClient wraps http.Client with the service base URL.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// getJSON performs a GET request and decodes a 200 response into v.
func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRequest, path, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRequest, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRequest, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d: %s", ErrRequest, path, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrRequest, path, err)
	}
	return nil
}

// checkHealth verifies the service answers on /healthz.
func (c *httpClient) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	// Any 200 is healthy; the body is Prometheus exposition.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

func seriesQuery(metric, mode string, regions []string) url.Values {
	q := url.Values{}
	q.Set("metric", metric)
	q.Set("mode", mode)
	if regions != nil {
		if len(regions) == 0 {
			q.Set("region", "")
		}
		for _, r := range regions {
			q.Add("region", r)
		}
	}
	return q
}

func (c *httpClient) national(ctx context.Context, metric, mode string) (nationalResponse, error) {
	var out nationalResponse
	err := c.getJSON(ctx, "/api/series/national", seriesQuery(metric, mode, nil), &out)
	return out, err
}

func (c *httpClient) regional(ctx context.Context, metric, mode string, regions []string) (regionalResponse, error) {
	var out regionalResponse
	err := c.getJSON(ctx, "/api/series/regions", seriesQuery(metric, mode, regions), &out)
	return out, err
}
