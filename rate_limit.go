package smartsheet

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// maxRateLimitWait caps how long WaitForRateLimit will block.
const maxRateLimitWait = 5 * time.Minute

// RateLimitInfo contains rate limit information from API response headers.
type RateLimitInfo struct {
	Limit     int       // Maximum requests allowed in the window
	Remaining int       // Requests remaining in current window
	Reset     time.Time // When the rate limit window resets
}

// RateLimitCallback is called when rate limit headers are received.
// Can be used for monitoring or preemptive throttling.
type RateLimitCallback func(RateLimitInfo)

// WithRateLimitCallback sets a callback that is invoked when rate limit headers are received.
func WithRateLimitCallback(callback RateLimitCallback) Option {
	return func(c *Client) {
		c.rateLimitCallback = callback
	}
}

// RateLimitInfo returns the most recent rate limit information from API responses.
// Returns nil if no rate limit headers have been received yet.
func (c *Client) RateLimitInfo() *RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	if c.lastRateLimit == nil {
		return nil
	}
	info := *c.lastRateLimit
	return &info
}

// recordRateLimit stores the X-RateLimit-* headers of a response, if any.
func (c *Client) recordRateLimit(header http.Header) {
	info, ok := parseRateLimitHeaders(header)
	if !ok {
		return
	}

	c.rateLimitMu.Lock()
	c.lastRateLimit = &info
	c.rateLimitMu.Unlock()

	if c.rateLimitCallback != nil {
		c.rateLimitCallback(info)
	}
}

func parseRateLimitHeaders(header http.Header) (RateLimitInfo, bool) {
	limit := header.Get("X-RateLimit-Limit")
	remaining := header.Get("X-RateLimit-Remaining")
	reset := header.Get("X-RateLimit-Reset")
	if limit == "" && remaining == "" && reset == "" {
		return RateLimitInfo{}, false
	}

	var info RateLimitInfo
	if v, err := strconv.Atoi(limit); err == nil {
		info.Limit = v
	}
	if v, err := strconv.Atoi(remaining); err == nil {
		info.Remaining = v
	}
	if v, err := strconv.ParseInt(reset, 10, 64); err == nil {
		info.Reset = time.Unix(v, 0)
	}
	return info, true
}

// parseRetryAfter parses the Retry-After header value.
// It handles both delta-seconds (e.g., "120") and HTTP-date formats.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if t, err := time.Parse(time.RFC1123, value); err == nil {
		if delta := time.Until(t); delta > 0 {
			return delta
		}
	}

	return 0
}

// RetryAfter returns the wait the service asked for on a rate-limited
// error, or zero if err is not rate limited or carried no Retry-After.
func RetryAfter(err error) time.Duration {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.Is(ErrRateLimited) {
		return 0
	}
	return apiErr.RetryAfter
}

// WaitForRateLimit blocks for the Retry-After of a rate-limited err, capped
// at five minutes. It returns immediately for any other error.
//
// Example:
//
//	for {
//	    sheet, err := client.GetSheet(ctx, id)
//	    if smartsheet.IsRateLimited(err) {
//	        if err := smartsheet.WaitForRateLimit(ctx, err); err != nil {
//	            return err // context canceled
//	        }
//	        continue
//	    }
//	    break
//	}
func WaitForRateLimit(ctx context.Context, err error) error {
	wait := RetryAfter(err)
	if wait <= 0 {
		return nil
	}
	if wait > maxRateLimitWait {
		wait = maxRateLimitWait
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
