// Package platform holds the REST clients for the e-commerce API this
// core drives: cart, checkout/pricing, discount, identity and catalog.
// All transport failures are converted to the domain error taxonomy at
// this boundary; nothing above it sees a raw HTTP error.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Credentials travel with every request: the bearer token when
// authenticated and the anonymous session id for guest cart correlation.
type Credentials struct {
	Token     string
	SessionID string
}

type credsKey struct{}

// WithCredentials attaches the caller's credentials to the context; the
// client injects them as headers on every outgoing request.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credsKey{}, creds)
}

func credentialsFrom(ctx context.Context) Credentials {
	if c, ok := ctx.Value(credsKey{}).(Credentials); ok {
		return c
	}
	return Credentials{}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	// one breaker per collaborator, keyed by the leading path segment;
	// a pricing outage must not block cart or catalog calls
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
		logger:   logger,
	}
}

func (c *Client) breakerFor(family string) *gobreaker.CircuitBreaker[[]byte] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[family]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "platform-" + family,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx replies are the server doing its job, only transport and
		// 5xx failures count against the breaker
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var pe *permanentError
			return errors.As(err, &pe)
		},
	})
	c.breakers[family] = cb
	return cb
}

// pathFamily maps a request path to its collaborator, the leading
// segment: /cart/merge -> cart, /checkout/preview -> checkout.
func pathFamily(path string) string {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexAny(p, "/?"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "api"
	}
	return p
}

// APIError is a non-2xx reply the server explained; the message is safe
// to surface to the user.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Message string `json:"message"`
}

// do runs one round trip through the circuit breaker and returns the
// response body.
func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	family := pathFamily(path)
	data, err := c.breakerFor(family).Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, reqBody)
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: circuit open for %s", ErrTransport, family)
		}
		return err
	}
	if respBody == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, respBody); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	creds := credentialsFrom(ctx)
	if creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	}
	if creds.SessionID != "" {
		req.Header.Set("x-session-id", creds.SessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s response: %v", ErrTransport, method, path, err)
	}

	if resp.StatusCode >= 500 {
		c.logger.Warn("platform api server error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: %s %s: status %d", ErrTransport, method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		if eb.Message == "" {
			eb.Message = http.StatusText(resp.StatusCode)
		}
		return nil, &permanentError{apiErr: &APIError{Status: resp.StatusCode, Message: eb.Message}}
	}

	return data, nil
}

// ErrTransport marks failures to reach or be served by the platform;
// callers translate it to domain.ErrUnavailable at their boundary.
var ErrTransport = errors.New("platform transport failure")

// permanentError carries a 4xx through the breaker without tripping it.
type permanentError struct {
	apiErr *APIError
}

func (p *permanentError) Error() string { return p.apiErr.Error() }

func (p *permanentError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = p.apiErr
		return true
	}
	return false
}
