// Package client talks to a Responses API endpoint.
//
// Every operation is backed by an explicit request builder that fixes its
// method, path, query and body. Requests carry JSON content negotiation,
// authentication, a User-Agent and a fresh X-Client-Request-Id. Non-2xx
// statuses become *ResponseError. Rate limiting (429), server errors and
// transport failures are retried with exponential backoff; an optional
// circuit breaker guards the endpoint. Streaming requests are retried only
// until the server starts answering.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/debug"
	"github.com/rhuss/respkit/pkg/observability"
	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// Header names set on every request.
const (
	HeaderClientRequestID = "X-Client-Request-Id"
	HeaderAPIKey          = "api-key"
)

// Version is reported in the User-Agent header.
var Version = "dev"

// Client is a Responses API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	keyHeader  string
	userAgent  string
	httpClient *http.Client
	retry      RetryConfig
	breaker    *gobreaker.CircuitBreaker
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
		c.keyHeader = "Authorization"
	}
}

// WithAPIKeyHeader sends key in the api-key header, as Azure deployments expect.
func WithAPIKeyHeader(key string) Option {
	return func(c *Client) {
		c.apiKey = key
		c.keyHeader = HeaderAPIKey
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the overall timeout of non-streaming requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRetry replaces the retry settings.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithCircuitBreaker guards the endpoint with a circuit breaker.
func WithCircuitBreaker(cfg BreakerConfig) Option {
	return func(c *Client) { c.breaker = newBreaker(cfg) }
}

// New creates a client for the API rooted at baseURL, for example
// "http://localhost:8080/v1". An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  "respkit/" + Version,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		retry:      DefaultRetryConfig,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// newRequest turns a spec into an HTTP request. It is called once per
// attempt so that the body can be replayed.
func (c *Client) newRequest(ctx context.Context, spec requestSpec) (*http.Request, error) {
	u := c.baseURL + spec.path
	if len(spec.query) > 0 {
		u += "?" + spec.query.Encode()
	}
	var body io.Reader
	if spec.body != nil {
		body = bytes.NewReader(spec.body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("respkit: building %s request: %w", spec.op, err)
	}
	if spec.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if spec.stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	switch {
	case c.apiKey == "":
	case c.keyHeader == HeaderAPIKey:
		req.Header.Set(HeaderAPIKey, c.apiKey)
	default:
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(HeaderClientRequestID, uuid.NewString())
	return req, nil
}

// send performs spec with retries and returns a 2xx response whose body the
// caller must close.
func (c *Client) send(ctx context.Context, spec requestSpec) (*http.Response, error) {
	start := time.Now()
	resp, err := c.execute(ctx, spec.op, func() (*http.Response, error) {
		req, err := c.newRequest(ctx, spec)
		if err != nil {
			return nil, err
		}
		debug.Log("client", "request", "operation", spec.op, "method", req.Method, "url", req.URL.String(),
			"client_request_id", req.Header.Get(HeaderClientRequestID))
		if spec.body != nil && debug.Tracing("client") {
			debug.Raw("client", string(spec.body))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			resp.Body.Close()
			rerr := newResponseError(resp, body)
			debug.Log("client", "error response", "operation", spec.op, "status", resp.StatusCode, "error", rerr)
			return nil, rerr
		}
		return resp, nil
	})

	status := "error"
	switch {
	case err == nil:
		status = strconv.Itoa(resp.StatusCode)
	case StatusCode(err) != 0:
		status = strconv.Itoa(StatusCode(err))
	}
	observability.ClientRequestsTotal.WithLabelValues(spec.op, status).Inc()
	observability.ClientLatency.WithLabelValues(spec.op).Observe(time.Since(start).Seconds())

	if err != nil {
		var re *ResponseError
		if errors.As(err, &re) || errors.Is(err, ErrMissingID) {
			return nil, err
		}
		return nil, fmt.Errorf("respkit: %s: %w", spec.op, err)
	}
	return resp, nil
}

// do performs spec and decodes the JSON response body into out.
func (c *Client) do(ctx context.Context, spec requestSpec, out any) error {
	resp, err := c.send(ctx, spec)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("respkit: %s: reading response: %w", spec.op, err)
	}
	if debug.Tracing("client") {
		debug.Raw("client", string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("respkit: %s: decoding response: %w", spec.op, err)
	}
	return nil
}

// CreateResponse creates a response and waits for the complete result.
// A stream flag set on req is ignored.
func (c *Client) CreateResponse(ctx context.Context, req *api.CreateResponsesRequest) (*api.Response, error) {
	spec, err := buildCreateResponse(req, false)
	if err != nil {
		return nil, err
	}
	var out api.Response
	if err := c.do(ctx, spec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateResponseStream creates a response and returns its event stream.
// The caller must Close the stream.
func (c *Client) CreateResponseStream(ctx context.Context, req *api.CreateResponsesRequest) (*Stream, error) {
	spec, err := buildCreateResponse(req, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, spec)
	if err != nil {
		return nil, err
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("respkit: %s: unexpected content type %q", spec.op, ct)
	}
	return newStream(resp.Body), nil
}

// GetResponse retrieves a stored response.
func (c *Client) GetResponse(ctx context.Context, id string) (*api.Response, error) {
	spec, err := buildGetResponse(id)
	if err != nil {
		return nil, err
	}
	var out api.Response
	if err := c.do(ctx, spec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteResponse deletes a stored response.
func (c *Client) DeleteResponse(ctx context.Context, id string) (*api.DeleteResponseResult, error) {
	spec, err := buildDeleteResponse(id)
	if err != nil {
		return nil, err
	}
	var out api.DeleteResponseResult
	if err := c.do(ctx, spec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelResponse cancels a background response that has not finished yet.
func (c *Client) CancelResponse(ctx context.Context, id string) (*api.Response, error) {
	spec, err := buildCancelResponse(id)
	if err != nil {
		return nil, err
	}
	var out api.Response
	if err := c.do(ctx, spec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInputItems lists the input items of a stored response.
func (c *Client) ListInputItems(ctx context.Context, id string, opts ListInputItemsOptions) (*api.ItemList, error) {
	spec, err := buildListInputItems(id, opts)
	if err != nil {
		return nil, err
	}
	var out api.ItemList
	if err := c.do(ctx, spec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
