package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lorrc/cas-server/internal/infrastructure/metrics"
)

// HTTPProxyCallbackClient implements ports.ProxyCallbackClient over plain
// net/http. TLS verification uses the system trust store; the callback
// target is attacker-controllable input, so InsecureSkipVerify is never
// set.
type HTTPProxyCallbackClient struct {
	client  *http.Client
	timeout time.Duration
}

func NewHTTPProxyCallbackClient(timeout time.Duration) *HTTPProxyCallbackClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProxyCallbackClient{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Notify appends pgtId and pgtIou to callbackURL's existing query string,
// preserving any query parameters the service already put there, and
// issues a GET. Any response outside 2xx, or a transport-level failure
// (TLS, timeout, DNS), is reported as an error.
func (c *HTTPProxyCallbackClient) Notify(ctx context.Context, callbackURL, pgtID, pgtIOU string) (err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.ProxyCallbackDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	u, parseErr := url.Parse(callbackURL)
	if parseErr != nil {
		return fmt.Errorf("parse pgtUrl: %w", parseErr)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("pgtUrl must be https")
	}

	q := u.Query()
	q.Set("pgtId", pgtID)
	q.Set("pgtIou", pgtIOU)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if reqErr != nil {
		return fmt.Errorf("build callback request: %w", reqErr)
	}

	resp, doErr := c.client.Do(req)
	if doErr != nil {
		return fmt.Errorf("callback request failed: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
