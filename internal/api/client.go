package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Retry and backoff constants.
const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
)

// apiPrefix is the path prefix of the REST surface. The websocket endpoint
// lives outside it, directly under the server root.
const apiPrefix = "/api"

// CredentialSource provides the bearer credential for outbound requests.
// Defined at the consumer per Go convention "accept interfaces, return
// structs". It is read at dispatch time on every request, never cached, so
// a logout between two calls takes effect immediately. The session manager
// provides the real implementation.
type CredentialSource interface {
	Credential() (string, bool)
}

// StaticCredential is a fixed CredentialSource. Used when probing a stored
// credential during session resolution, before it is published.
type StaticCredential string

// Credential implements CredentialSource.
func (s StaticCredential) Credential() (string, bool) {
	return string(s), s != ""
}

// AnonymousCredential is a CredentialSource that never yields a credential.
type AnonymousCredential struct{}

// Credential implements CredentialSource.
func (AnonymousCredential) Credential() (string, bool) {
	return "", false
}

// Client is an HTTP client for the EduMentor backend.
// It handles request construction, authentication, retry with
// exponential backoff, and error classification.
type Client struct {
	serverURL  string
	httpClient *http.Client
	creds      CredentialSource
	userAgent  string
	logger     *slog.Logger

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a backend client. serverURL is the scheme://host[:port]
// root, typically "http://localhost:8000"; the /api prefix is appended per
// request.
func NewClient(serverURL string, httpClient *http.Client, creds CredentialSource, userAgent string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if creds == nil {
		creds = AnonymousCredential{}
	}

	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: httpClient,
		creds:      creds,
		userAgent:  userAgent,
		logger:     logger,
		sleepFunc:  timeSleep,
	}
}

// NewHTTPClient builds the http.Client used by CLI wiring, applying the
// configured dial and overall request timeouts.
func NewHTTPClient(connectTimeout, requestTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
		},
	}
}

// WithCredential returns a shallow copy of the client whose requests carry
// the given fixed credential instead of reading the ambient source.
func (c *Client) WithCredential(cred string) *Client {
	clone := *c
	clone.creds = StaticCredential(cred)

	return &clone
}

// Do executes an HTTP request against the backend REST surface.
// The path is appended to serverURL + "/api". A non-nil body is sent as
// application/json; it is re-read from scratch on every retry attempt.
// The caller is responsible for closing the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	url := c.serverURL + apiPrefix + path

	// One correlation ID per logical call, reused across retries so the
	// backend sees retransmissions of the same operation.
	reqID := uuid.NewString()

	var attempt int
	for {
		resp, err := c.doOnce(ctx, method, url, reqID, body)
		if err != nil {
			// Context cancellation is not retryable.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("api: request canceled: %w", ctx.Err())
			}

			// Network errors are retryable.
			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", method),
					slog.String("path", path),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("api: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("api: %s %s failed after %d retries: %w", method, path, maxRetries, err)
		}

		// 2xx — success.
		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		// Read and close body for error responses.
		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("api: request canceled: %w", err)
			}

			attempt++

			continue
		}

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			RequestID:  reqID,
			Detail:     parseDetail(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return nil, apiErr
	}
}

// doOnce executes a single HTTP request (no retry). The bearer credential
// is read from the source here, at dispatch time, so every attempt sees
// the current session.
func (c *Client) doOnce(ctx context.Context, method, url, reqID string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if cred, ok := c.creds.Credential(); ok {
		req.Header.Set("Authorization", "Bearer "+cred)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", reqID)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// retryBackoff returns the backoff duration for a retryable response.
// For 429 responses with a Retry-After header, that value is used.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	// Apply ±25% jitter.
	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
