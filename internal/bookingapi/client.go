package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Jimmeey2323/referrals/internal/config"
)

// requestClass selects the timeout budget for an outbound call.
type requestClass int

const (
	classQuery requestClass = iota // candidate pages, report status polls
	classReport                    // report initiation
	classPurchase                  // reward purchase
)

// APIError is an upstream rejection: any response with status >= 400. Server
// errors are failures like any other, never silently treated as success.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s (status: %d)", e.Body, e.Status)
}

// Client talks to the booking platform. Every call goes through do, which
// retries failed attempts with capped exponential backoff. The executor does
// not know which calls are safe to repeat; callers attach a fresh idempotency
// token to every mutating request so a retried transmission cannot be
// re-applied upstream.
type Client struct {
	cfg        *config.Config
	log        *zap.Logger
	httpClient *http.Client
}

func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		log: log,
		// Per-attempt deadlines come from the request class, not the
		// transport, so no global client timeout here.
		httpClient: &http.Client{},
	}
}

func (c *Client) timeoutFor(class requestClass) time.Duration {
	switch class {
	case classReport:
		return c.cfg.ReportTimeout
	case classPurchase:
		return c.cfg.PurchaseTimeout
	default:
		return c.cfg.QueryTimeout
	}
}

// do performs one logical call: marshal, send, decode into out (when non-nil),
// retrying up to HTTPMaxAttempts. The delay after failed attempt k is
// min(base*2^(k-1), cap). The wait is context-aware; cancellation surfaces
// immediately.
func (c *Client) do(ctx context.Context, class requestClass, name, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request body: %w", name, err)
		}
	}

	endpoint := c.cfg.BookingAPIURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.HTTPMaxAttempts; attempt++ {
		lastErr = c.attempt(ctx, class, method, endpoint, payload, out)
		if lastErr == nil {
			return nil
		}

		c.log.Debug("call attempt failed",
			zap.String("call", name),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))

		if attempt == c.cfg.HTTPMaxAttempts {
			break
		}

		delay := backoffDelay(c.cfg.RetryBaseDelay, c.cfg.RetryMaxDelay, attempt)
		c.log.Debug("retrying call",
			zap.String("call", name),
			zap.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		}
	}

	c.log.Error("call failed permanently",
		zap.String("call", name),
		zap.Int("attempts", c.cfg.HTTPMaxAttempts),
		zap.Error(lastErr))
	return fmt.Errorf("%s: %w", name, lastErr)
}

// attempt is a single request/response exchange under the class deadline.
func (c *Client) attempt(ctx context.Context, class requestClass, method, endpoint string, payload []byte, out any) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeoutFor(class))
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.BookingAPIKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// backoffDelay returns min(base*2^(attempt-1), maxDelay).
func backoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
