package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"mintgate/internal/collection/models"
)

// HTTPClient queries a remote identity registry over HTTP.
// GET {base}/verify/{address} -> {"verified": bool}. Any transport or
// decoding failure is returned to the caller; the mint path treats it as a
// hard failure, no retries.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) IsVerified(ctx context.Context, addr models.Address) (bool, error) {
	endpoint := c.baseURL + "/verify/" + url.PathEscape(string(addr))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build oracle request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("query identity oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("identity oracle returned status %d", resp.StatusCode)
	}

	var body struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode oracle response: %w", err)
	}
	return body.Verified, nil
}
