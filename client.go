package smartsheet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Smartsheet API base URL.
const DefaultBaseURL = "https://api.smartsheet.com/2.0"

// Client is a Smartsheet API client.
// It is safe for concurrent use once constructed.
type Client struct {
	baseURL     string
	token       string
	tokenSource *TokenSource
	transport   Transport
	serializer  Serializer
	retry       *RetryPolicy
	retryConfig *RetryConfig
	noRetry     bool
	limiter     *rate.Limiter
	logger      *slog.Logger
	userAgent   string

	rateLimitCallback RateLimitCallback
	lastRateLimit     *RateLimitInfo
	rateLimitMu       sync.RWMutex
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTransport sets the Transport used for every request.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithSerializer sets the serializer for request and response bodies.
func WithSerializer(s Serializer) Option {
	return func(c *Client) {
		c.serializer = s
	}
}

// WithRetry configures retry on transient API errors. A nil config disables retry.
// The policy is built with the client's serializer and logger.
func WithRetry(config *RetryConfig) Option {
	return func(c *Client) {
		c.retry = nil
		c.retryConfig = config
		c.noRetry = config == nil
	}
}

// WithRetryPolicy sets a fully built retry policy, e.g. one with custom
// transient codes or a custom backoff.
func WithRetryPolicy(policy *RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithRateLimit paces outgoing requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithTokenSource authenticates with tokens from ts, refreshing as needed.
// The static token passed to NewClient may then be empty.
func WithTokenSource(ts *TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = ts
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new Smartsheet API client.
// Returns ErrEmptyToken if token is empty and no token source is configured.
func NewClient(token string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		serializer: NewJSONSerializer(),
		userAgent:  "smartsheet-go",
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.token == "" && c.tokenSource == nil {
		return nil, ErrEmptyToken
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(WithTransportLogger(c.logger))
	}
	switch {
	case c.retry != nil:
	case c.noRetry:
		c.retry = NoRetry()
	default:
		c.retry = NewRetryPolicy(c.retryConfig, WithRetrySerializer(c.serializer), WithRetryLogger(c.logger))
	}

	return c, nil
}

// SetToken updates the client's static bearer token.
// Not safe to call concurrently with requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// bearer returns the access token for the next request.
func (c *Client) bearer(ctx context.Context) (string, error) {
	if c.tokenSource == nil {
		return c.token, nil
	}
	t, err := c.tokenSource.Token(ctx)
	if err != nil {
		return "", err
	}
	return t.AccessToken, nil
}

// do performs an API call. q may be nil; body and out are optional.
func (c *Client) do(ctx context.Context, method, path string, q *QueryBuilder, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	req := &Request{
		Method: method,
		URL:    c.baseURL + path,
		Header: http.Header{
			"Authorization": {"Bearer " + token},
			"Accept":        {"application/json"},
			"User-Agent":    {c.userAgent},
		},
	}
	if q != nil {
		req.URL = withQuery(req.URL, q)
	}
	if body != nil {
		data, err := c.serializer.Serialize(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		req.Body = data
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	c.LogRequest(ctx, method, path)
	resp, err := c.retry.Do(ctx, c.transport, req)
	if err != nil {
		c.LogResponse(ctx, method, path, 0, time.Since(start), err)
		return err
	}
	defer resp.Body.Close()
	c.recordRateLimit(resp.Header)

	if resp.StatusCode >= http.StatusBadRequest {
		err = c.handleError(resp)
		c.LogResponse(ctx, method, path, resp.StatusCode, time.Since(start), err)
		return err
	}
	c.LogResponse(ctx, method, path, resp.StatusCode, time.Since(start), nil)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return c.serializer.Deserialize(resp.Body, out)
}

// handleError converts an HTTP error response into an *APIError.
func (c *Client) handleError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &TransportError{Op: "read error response", Err: err}
	}

	var body ErrorBody
	if isJSONContent(resp.Header.Get("Content-Type")) && len(data) > 0 {
		if err := c.serializer.Deserialize(bytes.NewReader(data), &body); err == nil {
			apiErr.ErrorCode = body.ErrorCode
			apiErr.Message = body.Message
			apiErr.RefID = body.RefID
			return apiErr
		}
	}
	apiErr.Message = truncatePreview(data)
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func (c *Client) get(ctx context.Context, path string, q *QueryBuilder, out any) error {
	return c.do(ctx, http.MethodGet, path, q, nil, out)
}

func (c *Client) delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}
