package smartsheet

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// defaultConnectionRetries bounds reconnect attempts on dial/reset failures.
	defaultConnectionRetries = 2
)

// Request is a single HTTP request handed to a Transport.
// Body is kept as bytes so a request can be replayed on retry.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Transport sends a request and returns the raw response.
// Connection failures are reported as *TransportError. The caller owns the
// response body and must close it.
type Transport interface {
	Send(ctx context.Context, req *Request) (*http.Response, error)
}

// HTTPTransport is the default Transport. It reconnects on network-level
// failures only; status-driven retry is left to RetryPolicy.
//
// An HTTPTransport is safe for concurrent use and shares one connection pool
// across all calls.
type HTTPTransport struct {
	client  *retryablehttp.Client
	base    http.RoundTripper
	timeout time.Duration
	retries int
	logger  *slog.Logger
	tracing bool
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithTransportTimeout sets the per-attempt HTTP timeout.
func WithTransportTimeout(timeout time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		t.timeout = timeout
	}
}

// WithConnectionRetries sets how many times a request is re-sent after a
// connection-level failure. Zero disables reconnects.
func WithConnectionRetries(n int) TransportOption {
	return func(t *HTTPTransport) {
		t.retries = n
	}
}

// WithRoundTripper replaces the underlying round tripper.
func WithRoundTripper(rt http.RoundTripper) TransportOption {
	return func(t *HTTPTransport) {
		t.base = rt
	}
}

// WithTransportLogger logs each request and response through logger.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// WithTracing wraps the round tripper with OpenTelemetry instrumentation.
func WithTracing() TransportOption {
	return func(t *HTTPTransport) {
		t.tracing = true
	}
}

// NewHTTPTransport creates the default Transport.
func NewHTTPTransport(opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		timeout: DefaultTimeout,
		retries: defaultConnectionRetries,
	}
	for _, opt := range opts {
		opt(t)
	}

	rt := t.base
	if rt == nil {
		rt = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}
	if t.logger != nil {
		rt = &LoggingTransport{Base: rt, Logger: t.logger}
	}
	if t.tracing {
		rt = otelhttp.NewTransport(rt)
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: t.timeout, Transport: rt}
	rc.RetryMax = t.retries
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.CheckRetry = connectionRetryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if t.logger != nil {
		rc.Logger = leveledLogger{t.logger}
	} else {
		rc.Logger = nil
	}
	t.client = rc

	return t
}

// connectionRetryPolicy retries only when no response was received.
func connectionRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*http.Response, error) {
	var body any
	if req.Body != nil {
		body = req.Body
	}

	rreq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Op: "create request", Err: err}
	}
	for name, values := range req.Header {
		for _, v := range values {
			rreq.Header.Add(name, v)
		}
	}

	resp, err := t.client.Do(rreq)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = stripQuery(uerr.URL)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &TransportError{Op: "request failed", Err: err}
	}
	return resp, nil
}

// leveledLogger adapts slog to retryablehttp. Token endpoint calls carry the
// authorization code and hash in the query string, so logged URLs lose it.
type leveledLogger struct {
	l *slog.Logger
}

func (a leveledLogger) Error(msg string, kv ...any) { a.l.Error(msg, scrubURLs(kv)...) }
func (a leveledLogger) Warn(msg string, kv ...any)  { a.l.Warn(msg, scrubURLs(kv)...) }
func (a leveledLogger) Info(msg string, kv ...any)  { a.l.Info(msg, scrubURLs(kv)...) }
func (a leveledLogger) Debug(msg string, kv ...any) { a.l.Debug(msg, scrubURLs(kv)...) }

func scrubURLs(kv []any) []any {
	for i := 0; i+1 < len(kv); i += 2 {
		switch kv[i] {
		case "url", "request":
			switch v := kv[i+1].(type) {
			case string:
				kv[i+1] = stripQuery(v)
			case *url.URL:
				kv[i+1] = stripQuery(v.String())
			}
		}
	}
	return kv
}

func stripQuery(s string) string {
	before, _, _ := strings.Cut(s, "?")
	return before
}
