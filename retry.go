package smartsheet

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Error codes the service uses for conditions worth retrying.
const (
	ErrorCodeSystemMaintenance   = 4001
	ErrorCodeServerTimeout       = 4002
	ErrorCodeRateLimitExceeded   = 4003
	ErrorCodeUnexpectedTransient = 4004
)

// DefaultTransientCodes are the API error codes retried by default.
var DefaultTransientCodes = []int{
	ErrorCodeSystemMaintenance,
	ErrorCodeServerTimeout,
	ErrorCodeRateLimitExceeded,
	ErrorCodeUnexpectedTransient,
}

func isDefaultTransient(code int) bool {
	for _, c := range DefaultTransientCodes {
		if c == code {
			return true
		}
	}
	return false
}

// RetryConfig configures automatic retry behavior for transient API errors.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 5).
	MaxRetries int
	// InitialBackoff is the delay before the first retry (default: 1s).
	InitialBackoff time.Duration
	// MaxBackoff caps a single delay (default: 10s).
	MaxBackoff time.Duration
	// MaxElapsed is the overall time budget across attempts (default: 15s).
	// A retry whose delay would overrun it is not attempted.
	MaxElapsed time.Duration
	// Multiplier is the backoff multiplier (default: 2.0).
	Multiplier float64
	// Jitter is the upper bound of a random delay added to each backoff (default: 1s).
	Jitter time.Duration
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     5,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		MaxElapsed:     15 * time.Second,
		Multiplier:     2.0,
		Jitter:         time.Second,
	}
}

// ErrorBody is the error document returned by the general API.
type ErrorBody struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
	RefID     string `json:"refId,omitempty"`
}

// UnmarshalJSON accepts errorCode as either a number or a numeric string.
func (e *ErrorBody) UnmarshalJSON(data []byte) error {
	var raw struct {
		ErrorCode json.RawMessage `json:"errorCode"`
		Message   string          `json:"message"`
		RefID     string          `json:"refId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.ErrorCode, _ = strconv.Atoi(strings.Trim(string(raw.ErrorCode), `"`))
	e.Message = raw.Message
	e.RefID = raw.RefID
	return nil
}

// TransientFunc reports whether an API error code should be retried.
type TransientFunc func(errorCode int) bool

// BackoffFunc computes the delay before the next attempt. A negative result
// means "do not retry".
type BackoffFunc func(previousAttempts int, totalElapsed time.Duration, apiErr *ErrorBody) time.Duration

// ExponentialBackoff returns the default BackoffFunc for cfg:
// InitialBackoff * Multiplier^(previousAttempts-1) plus random jitter, capped
// at MaxBackoff. It returns -1 once the delay would overrun MaxElapsed.
func ExponentialBackoff(cfg *RetryConfig) BackoffFunc {
	return func(previousAttempts int, totalElapsed time.Duration, _ *ErrorBody) time.Duration {
		n := previousAttempts - 1
		if n < 0 {
			n = 0
		}
		backoff := time.Duration(float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(n)))
		if cfg.Jitter > 0 {
			backoff += rand.N(cfg.Jitter)
		}
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
		if cfg.MaxElapsed > 0 && totalElapsed+backoff > cfg.MaxElapsed {
			return -1
		}
		return backoff
	}
}

// RetryPolicy decides whether a failed API call is retried and waits out the
// backoff when it is. It holds only configuration and is safe for concurrent
// use once built.
type RetryPolicy struct {
	maxRetries int
	transient  TransientFunc
	backoff    BackoffFunc
	serializer Serializer
	logger     *slog.Logger
}

// RetryOption configures a RetryPolicy.
type RetryOption func(*RetryPolicy)

// WithTransientCodes replaces the set of retried error codes.
func WithTransientCodes(codes ...int) RetryOption {
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return WithTransientFunc(func(code int) bool {
		_, ok := set[code]
		return ok
	})
}

// WithTransientFunc replaces the transient-code predicate.
func WithTransientFunc(fn TransientFunc) RetryOption {
	return func(p *RetryPolicy) {
		p.transient = fn
	}
}

// WithBackoff replaces the backoff formula.
func WithBackoff(fn BackoffFunc) RetryOption {
	return func(p *RetryPolicy) {
		p.backoff = fn
	}
}

// WithRetrySerializer sets the serializer used to decode error bodies.
func WithRetrySerializer(s Serializer) RetryOption {
	return func(p *RetryPolicy) {
		p.serializer = s
	}
}

// WithRetryLogger logs retry decisions.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(p *RetryPolicy) {
		p.logger = logger
	}
}

// NewRetryPolicy builds a policy from cfg. A nil cfg uses DefaultRetryConfig.
func NewRetryPolicy(cfg *RetryConfig, opts ...RetryOption) *RetryPolicy {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	p := &RetryPolicy{
		maxRetries: cfg.MaxRetries,
		transient:  isDefaultTransient,
		backoff:    ExponentialBackoff(cfg),
		serializer: NewJSONSerializer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NoRetry returns a policy that never retries.
func NoRetry() *RetryPolicy {
	return NewRetryPolicy(&RetryConfig{}, WithTransientFunc(func(int) bool { return false }))
}

// ShouldRetry inspects resp after previousAttempts attempts taking totalElapsed
// overall. When the body is a JSON error document with a transient code and
// the backoff is non-negative, it sleeps for the backoff and returns true.
//
// The body of resp is read only when it is JSON and is always restored, so
// the caller can still interpret resp after a false result. A body that
// cannot be read or decoded is returned as an error.
func (p *RetryPolicy) ShouldRetry(ctx context.Context, previousAttempts int, totalElapsed time.Duration, resp *http.Response) (bool, error) {
	if resp == nil || resp.Body == nil {
		return false, nil
	}
	if !isJSONContent(resp.Header.Get("Content-Type")) {
		return false, nil
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return false, &TransportError{Op: "read response body", Err: err}
	}

	var apiErr ErrorBody
	if err := p.serializer.Deserialize(bytes.NewReader(data), &apiErr); err != nil {
		return false, err
	}

	if !p.transient(apiErr.ErrorCode) {
		return false, nil
	}

	backoff := p.backoff(previousAttempts, totalElapsed, &apiErr)
	if backoff < 0 {
		p.log(ctx, slog.LevelInfo, "retry_budget_exhausted",
			slog.Int("error_code", apiErr.ErrorCode),
			slog.Int("attempts", previousAttempts),
			slog.Duration("elapsed", totalElapsed),
		)
		return false, nil
	}

	p.log(ctx, slog.LevelInfo, "retry_scheduled",
		slog.Int("status", resp.StatusCode),
		slog.Int("error_code", apiErr.ErrorCode),
		slog.Int("attempts", previousAttempts),
		slog.Duration("backoff", backoff),
	)

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
	}
	return true, nil
}

// Do sends req through t, retrying while ShouldRetry says so and MaxRetries
// is not exhausted. The final response is returned for the caller to
// interpret; only transport, decode and context failures are errors.
func (p *RetryPolicy) Do(ctx context.Context, t Transport, req *Request) (*http.Response, error) {
	start := time.Now()
	attempts := 0
	for {
		resp, err := t.Send(ctx, req)
		if err != nil {
			return nil, err
		}
		attempts++

		if resp.StatusCode < http.StatusBadRequest || attempts > p.maxRetries {
			return resp, nil
		}

		retry, err := p.ShouldRetry(ctx, attempts, time.Since(start), resp)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		if !retry {
			return resp, nil
		}
		resp.Body.Close()
	}
}

func (p *RetryPolicy) log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if p.logger == nil {
		return
	}
	p.logger.LogAttrs(ctx, level, msg, attrs...)
}

// isJSONContent reports whether a Content-Type declares a JSON body.
// An absent header does not.
func isJSONContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
