package smartsheet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultAuthorizationURL is the end-user authorization page.
	DefaultAuthorizationURL = "https://app.smartsheet.com/b/authorize"

	// DefaultTokenURL is the OAuth token endpoint.
	DefaultTokenURL = "https://api.smartsheet.com/2.0/token"

	// tokenRefreshBuffer is how long before expiry a token counts as stale.
	tokenRefreshBuffer = 5 * time.Minute

	grantTypeAuthorizationCode = "authorization_code"
	grantTypeRefreshToken      = "refresh_token"
)

// AuthorizationResult is what the service sent back to the redirect URL.
type AuthorizationResult struct {
	Code             string
	State            string
	ExpiresInSeconds int
}

// Token is the result of a successful code exchange or refresh.
type Token struct {
	AccessToken      string    `json:"access_token"`
	TokenType        string    `json:"token_type"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresInSeconds int       `json:"expires_in"`
	ExpiresAt        time.Time `json:"expires_at,omitempty"`
}

// IsValid checks if the access token is present and not about to expire.
// A token without a known expiry is treated as valid.
func (t *Token) IsValid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().Add(tokenRefreshBuffer).Before(t.ExpiresAt)
}

// NeedsRefresh returns true if the access token should be refreshed.
func (t *Token) NeedsRefresh() bool {
	return !t.IsValid()
}

// CanRefresh reports whether the token carries a refresh token.
func (t *Token) CanRefresh() bool {
	return t != nil && t.RefreshToken != ""
}

// OAuthConfig is the immutable configuration of an OAuthFlow.
// Every field is required.
type OAuthConfig struct {
	ClientID         string
	ClientSecret     string
	RedirectURL      string
	AuthorizationURL string
	TokenURL         string
	Transport        Transport
	Serializer       Serializer
}

// DefaultOAuthConfig returns a config for the public service endpoints using
// the default transport and serializer.
func DefaultOAuthConfig(clientID, clientSecret, redirectURL string) OAuthConfig {
	return OAuthConfig{
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		RedirectURL:      redirectURL,
		AuthorizationURL: DefaultAuthorizationURL,
		TokenURL:         DefaultTokenURL,
		Transport:        NewHTTPTransport(),
		Serializer:       NewJSONSerializer(),
	}
}

func (c *OAuthConfig) validate() error {
	switch {
	case c.ClientID == "":
		return invalidArgument("client ID is required")
	case c.ClientSecret == "":
		return invalidArgument("client secret is required")
	case c.RedirectURL == "":
		return invalidArgument("redirect URL is required")
	case c.AuthorizationURL == "":
		return invalidArgument("authorization URL is required")
	case c.TokenURL == "":
		return invalidArgument("token URL is required")
	case c.Transport == nil:
		return invalidArgument("transport is required")
	case c.Serializer == nil:
		return invalidArgument("serializer is required")
	}
	return nil
}

// OAuthFlow drives the authorization-code grant: build the authorization URL,
// parse the redirect callback, then exchange the code for a token.
//
// The flow keeps no per-user state between calls; the caller carries the
// state value across the redirect. It is safe for concurrent use as long as
// its Transport and Serializer are, and the Set* methods are not called once
// concurrent use has begun.
type OAuthFlow struct {
	clientID         string
	clientSecret     string
	redirectURL      string
	authorizationURL string
	tokenURL         string
	transport        Transport
	serializer       Serializer
	retry            *RetryPolicy
	logger           *slog.Logger
}

// FlowOption configures an OAuthFlow.
type FlowOption func(*OAuthFlow)

// WithFlowRetry sets the retry policy wrapped around token endpoint calls.
func WithFlowRetry(policy *RetryPolicy) FlowOption {
	return func(f *OAuthFlow) {
		f.retry = policy
	}
}

// WithFlowLogger logs token endpoint calls. Secrets and tokens are never logged.
func WithFlowLogger(logger *slog.Logger) FlowOption {
	return func(f *OAuthFlow) {
		f.logger = logger
	}
}

// NewOAuthFlow creates a flow from cfg.
// Returns an error matching ErrInvalidArgument if any field is empty.
func NewOAuthFlow(cfg OAuthConfig, opts ...FlowOption) (*OAuthFlow, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	f := &OAuthFlow{
		clientID:         cfg.ClientID,
		clientSecret:     cfg.ClientSecret,
		redirectURL:      cfg.RedirectURL,
		authorizationURL: cfg.AuthorizationURL,
		tokenURL:         cfg.TokenURL,
		transport:        cfg.Transport,
		serializer:       cfg.Serializer,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.retry == nil {
		f.retry = NewRetryPolicy(nil, WithRetrySerializer(f.serializer), WithRetryLogger(f.logger))
	}

	return f, nil
}

// SetAuthorizationURL overrides the authorization endpoint.
func (f *OAuthFlow) SetAuthorizationURL(u string) error {
	if u == "" {
		return invalidArgument("authorization URL is required")
	}
	f.authorizationURL = u
	return nil
}

// SetTokenURL overrides the token endpoint.
func (f *OAuthFlow) SetTokenURL(u string) error {
	if u == "" {
		return invalidArgument("token URL is required")
	}
	f.tokenURL = u
	return nil
}

// SetRedirectURL overrides the redirect URL.
func (f *OAuthFlow) SetRedirectURL(u string) error {
	if u == "" {
		return invalidArgument("redirect URL is required")
	}
	f.redirectURL = u
	return nil
}

// NewState returns a random value suitable for the state parameter.
func NewState() string {
	return uuid.NewString()
}

// BuildAuthorizationURL returns the URL to send the user to. state is
// returned untouched in the callback and may be empty.
func (f *OAuthFlow) BuildAuthorizationURL(scopes []AccessScope, state string) (string, error) {
	if len(scopes) == 0 {
		return "", invalidArgument("at least one access scope is required")
	}
	for _, s := range scopes {
		if !s.Valid() {
			return "", invalidArgument("unknown access scope %q", s)
		}
	}

	var q QueryBuilder
	q.AddEscaped("response_type", "code")
	q.AddEscaped("client_id", f.clientID)
	q.AddEscaped("redirect_uri", f.redirectURL)
	q.AddEscaped("state", state)
	q.AddEscaped("scope", joinScopes(scopes))

	return withQuery(f.authorizationURL, &q), nil
}

// ParseCallback parses the URL the service redirected the user to.
//
// An "error" parameter is mapped to ErrAccessDenied, ErrUnsupportedResponseType,
// ErrInvalidScope or ErrAuthorization. A URL without a query string fails with
// ErrAuthorization. Parameter values are not percent-decoded.
func (f *OAuthFlow) ParseCallback(callbackURL string) (*AuthorizationResult, error) {
	if callbackURL == "" {
		return nil, invalidArgument("callback URL is required")
	}

	u, err := url.Parse(callbackURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrURLFormat, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute URL", ErrURLFormat, callbackURL)
	}
	if u.RawQuery == "" && !u.ForceQuery {
		return nil, &OAuthError{Kind: ErrAuthorization, Description: "missing query string"}
	}

	params := parseQuery(u.RawQuery)
	if code, _ := params.Get("error"); code != "" {
		return nil, &OAuthError{Kind: authorizationErrorKind(code), Code: code}
	}

	result := &AuthorizationResult{}
	result.Code, _ = params.Get("code")
	result.State, _ = params.Get("state")
	if v, ok := params.Get("expires_in"); ok {
		result.ExpiresInSeconds, _ = strconv.Atoi(v)
	}
	return result, nil
}

// ExchangeCode trades an authorization code for a token.
func (f *OAuthFlow) ExchangeCode(ctx context.Context, result *AuthorizationResult) (*Token, error) {
	if result == nil {
		return nil, invalidArgument("authorization result is required")
	}
	if result.Code == "" {
		return nil, invalidArgument("authorization code is required")
	}

	var q QueryBuilder
	q.AddEscaped("grant_type", grantTypeAuthorizationCode)
	q.AddEscaped("client_id", f.clientID)
	q.AddEscaped("code", result.Code)
	q.AddEscaped("redirect_uri", f.redirectURL)
	q.AddEscaped("hash", f.hash(result.Code))

	return f.requestToken(ctx, grantTypeAuthorizationCode, &q)
}

// RefreshToken obtains a new token using token.RefreshToken.
func (f *OAuthFlow) RefreshToken(ctx context.Context, token *Token) (*Token, error) {
	if token == nil {
		return nil, invalidArgument("token is required")
	}
	if token.RefreshToken == "" {
		return nil, invalidArgument("refresh token is required")
	}

	var q QueryBuilder
	q.AddEscaped("grant_type", grantTypeRefreshToken)
	q.AddEscaped("client_id", f.clientID)
	q.AddEscaped("refresh_token", token.RefreshToken)
	q.AddEscaped("redirect_uri", f.redirectURL)
	q.AddEscaped("hash", f.hash(token.RefreshToken))

	return f.requestToken(ctx, grantTypeRefreshToken, &q)
}

// RevokeToken invalidates token.AccessToken and its refresh token.
func (f *OAuthFlow) RevokeToken(ctx context.Context, token *Token) error {
	if token == nil || token.AccessToken == "" {
		return invalidArgument("access token is required")
	}

	req := &Request{
		Method: http.MethodDelete,
		URL:    f.tokenURL,
		Header: http.Header{"Authorization": {"Bearer " + token.AccessToken}},
	}

	start := time.Now()
	resp, err := f.retry.Do(ctx, f.transport, req)
	if err != nil {
		f.logTokenCall(ctx, "revoke", 0, time.Since(start), err)
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		err = &OAuthError{Kind: ErrOAuthToken, StatusCode: resp.StatusCode}
	}
	f.logTokenCall(ctx, "revoke", resp.StatusCode, time.Since(start), err)
	return err
}

// hash returns hex(sha256(clientSecret + "|" + value)).
func (f *OAuthFlow) hash(value string) string {
	sum := sha256.Sum256([]byte(f.clientSecret + "|" + value))
	return hex.EncodeToString(sum[:])
}

// requestToken POSTs to the token endpoint and interprets the response.
func (f *OAuthFlow) requestToken(ctx context.Context, grantType string, q *QueryBuilder) (*Token, error) {
	req := &Request{
		Method: http.MethodPost,
		URL:    withQuery(f.tokenURL, q),
		Header: http.Header{
			"Content-Type": {"application/x-www-form-urlencoded"},
			"Accept":       {"application/json"},
		},
	}

	start := time.Now()
	resp, err := f.retry.Do(ctx, f.transport, req)
	if err != nil {
		f.logTokenCall(ctx, grantType, 0, time.Since(start), err)
		return nil, err
	}
	defer resp.Body.Close()

	token, err := f.interpretTokenResponse(resp)
	f.logTokenCall(ctx, grantType, resp.StatusCode, time.Since(start), err)
	return token, err
}

// interpretTokenResponse turns a token endpoint response into a Token or a
// categorized *OAuthError.
func (f *OAuthFlow) interpretTokenResponse(resp *http.Response) (*Token, error) {
	var body map[string]any
	decodeErr := f.serializer.Deserialize(resp.Body, &body)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && body["error"] != nil {
			code := stringValue(body["error"])
			desc := stringValue(body["message"])
			if desc == "" {
				desc = stringValue(body["error_description"])
			}
			return nil, &OAuthError{
				Kind:        tokenErrorKind(code),
				Code:        code,
				Description: desc,
				StatusCode:  resp.StatusCode,
			}
		}
		return nil, &OAuthError{Kind: ErrOAuthToken, StatusCode: resp.StatusCode}
	}

	if decodeErr != nil {
		return nil, decodeErr
	}

	token := &Token{
		AccessToken:      stringValue(body["access_token"]),
		TokenType:        stringValue(body["token_type"]),
		RefreshToken:     stringValue(body["refresh_token"]),
		ExpiresInSeconds: intValue(body["expires_in"]),
	}
	if token.ExpiresInSeconds > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresInSeconds) * time.Second)
	}
	return token, nil
}

func (f *OAuthFlow) logTokenCall(ctx context.Context, grantType string, status int, duration time.Duration, err error) {
	if f.logger == nil {
		return
	}
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("grant_type", grantType),
		slog.Int("status", status),
		slog.Duration("duration", duration),
	}
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	f.logger.LogAttrs(ctx, level, "oauth_token_request", attrs...)
}

// withQuery appends the builder's parameters to base, which may already
// carry a query string.
func withQuery(base string, q *QueryBuilder) string {
	if q.Len() == 0 {
		return base
	}
	if strings.Contains(base, "?") {
		return base + "&" + strings.TrimPrefix(q.String(), "?")
	}
	return base + q.String()
}
