// Package graphql is a small GraphQL-over-HTTP client used for Portal,
// TheGraph and Hasura, plus a graphql-transport-ws subscription client.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"asset-tokenization-kit/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Client executes GraphQL operations against one endpoint.
type Client struct {
	endpoint    string
	service     string
	client      *http.Client
	headers     http.Header
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	tracer      trace.Tracer
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		if value != "" {
			c.headers.Set(key, value)
		}
	}
}

// WithBearerToken authenticates requests with a bearer token.
func WithBearerToken(token string) ClientOption {
	return func(c *Client) {
		if token != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithService names the upstream for metrics and span attributes.
func WithService(name string) ClientOption {
	return func(c *Client) {
		c.service = name
	}
}

// NewClient creates a GraphQL client for endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		service:     "graphql",
		client:      &http.Client{Timeout: DefaultTimeout},
		headers:     make(http.Header),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		tracer:      otel.Tracer("asset-tokenization-kit/graphql"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the upstream name.
func (c *Client) Service() string { return c.service }

// request is the GraphQL-over-HTTP request body.
type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// response is the GraphQL-over-HTTP response body.
type response struct {
	Data   json.RawMessage `json:"data"`
	Errors Errors          `json:"errors,omitempty"`
}

// Error is a GraphQL error entry.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns extensions.code when present.
func (e Error) Code() string {
	if c, ok := e.Extensions["code"].(string); ok {
		return c
	}
	return ""
}

// Errors is the list of errors returned by a GraphQL server.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Message
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// HasCode reports whether any entry carries extensions.code == code.
func (e Errors) HasCode(code string) bool {
	for _, err := range e {
		if err.Code() == code {
			return true
		}
	}
	return false
}

// StatusError is a non-retryable HTTP status from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Do executes operation and decodes "data" into result.
// GraphQL errors and 4xx statuses other than 429 are not retried.
func (c *Client) Do(ctx context.Context, operation, query string, variables map[string]any, result any) (err error) {
	ctx, span := c.tracer.Start(ctx, c.service+"."+operation, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("graphql.service", c.service),
			attribute.String("graphql.operation", operation),
		))
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RecordGraphQLCall(c.service, operation, status, time.Since(start).Seconds())
		span.End()
	}()

	body, err := json.Marshal(request{Query: query, OperationName: operation, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			observability.RecordGraphQLRetry(c.service)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		respBody, retry, err := c.post(ctx, body)
		if err != nil {
			if !retry {
				return err
			}
			lastErr = err
			continue
		}

		var resp response
		if err := json.Unmarshal(respBody, &resp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if len(resp.Errors) > 0 {
			return resp.Errors
		}

		if result != nil && len(resp.Data) > 0 && string(resp.Data) != "null" {
			if err := json.Unmarshal(resp.Data, result); err != nil {
				return fmt.Errorf("unmarshal data: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// post sends one attempt. retry reports whether the failure is transient.
func (c *Client) post(ctx context.Context, body []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header[k] = v
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("rate limited (429)")
	case resp.StatusCode >= 500:
		return nil, true, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	case resp.StatusCode != http.StatusOK:
		// Some servers answer GraphQL errors with 400 and a JSON body.
		var gr response
		if json.Unmarshal(respBody, &gr) == nil && len(gr.Errors) > 0 {
			return nil, false, gr.Errors
		}
		return nil, false, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, false, nil
}
