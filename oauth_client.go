package smartsheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
)

// OAuth2 converts the token to a golang.org/x/oauth2 token.
func (t *Token) OAuth2() *oauth2.Token {
	if t == nil {
		return nil
	}
	ot := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
		ExpiresIn:    int64(t.ExpiresInSeconds),
	}
	return ot
}

// TokenFromOAuth2 converts a golang.org/x/oauth2 token.
func TokenFromOAuth2(ot *oauth2.Token) *Token {
	if ot == nil {
		return nil
	}
	return &Token{
		AccessToken:      ot.AccessToken,
		TokenType:        ot.TokenType,
		RefreshToken:     ot.RefreshToken,
		ExpiresInSeconds: int(ot.ExpiresIn),
		ExpiresAt:        ot.Expiry,
	}
}

// TokenSource owns a token across its lifetime: it loads it from a store,
// refreshes it through an OAuthFlow when it is about to expire and saves
// every new token back. It is safe for concurrent use.
type TokenSource struct {
	flow   *OAuthFlow
	store  TokenStore
	token  *Token
	logger *slog.Logger
	mu     sync.Mutex
}

// NewTokenSource creates a TokenSource. An existing token in store is loaded
// eagerly; an empty store is not an error.
func NewTokenSource(ctx context.Context, flow *OAuthFlow, store TokenStore, logger *slog.Logger) (*TokenSource, error) {
	if flow == nil {
		return nil, invalidArgument("OAuth flow is required")
	}
	if store == nil {
		return nil, invalidArgument("token store is required")
	}

	ts := &TokenSource{flow: flow, store: store, logger: logger}
	token, err := store.LoadToken(ctx)
	switch {
	case err == nil:
		ts.token = token
	case errors.Is(err, ErrNoToken):
	default:
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	return ts, nil
}

// Authorize exchanges the callback result for a token and stores it.
func (s *TokenSource) Authorize(ctx context.Context, result *AuthorizationResult) (*Token, error) {
	token, err := s.flow.ExchangeCode(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	if err := s.SetToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// SetToken replaces the current token and persists it.
func (s *TokenSource) SetToken(ctx context.Context, token *Token) error {
	if token == nil {
		return invalidArgument("token cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	if err := s.store.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Current returns a copy of the current token, or nil.
func (s *TokenSource) Current() *Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil
	}
	t := *s.token
	return &t
}

// IsAuthenticated returns true if a usable token is held.
func (s *TokenSource) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token.IsValid() || s.token.CanRefresh()
}

// Token returns a valid token, refreshing it first if it is stale.
func (s *TokenSource) Token(ctx context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil {
		return nil, fmt.Errorf("%w: OAuth authorization required", ErrNoToken)
	}
	if s.token.IsValid() {
		t := *s.token
		return &t, nil
	}
	if !s.token.CanRefresh() {
		return nil, fmt.Errorf("%w: token expired and cannot be refreshed", ErrUnauthorized)
	}

	fresh, err := s.refreshLocked(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveToken(ctx, fresh); err != nil {
		// The refreshed token is still usable from memory.
		if s.logger != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "token_save_failed", slog.String("error", err.Error()))
		}
	}

	t := *fresh
	return &t, nil
}

// Refresh refreshes the current token now, whether or not it is stale, and
// persists the result. A failed save is returned.
func (s *TokenSource) Refresh(ctx context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil {
		return nil, fmt.Errorf("%w: OAuth authorization required", ErrNoToken)
	}
	if !s.token.CanRefresh() {
		return nil, invalidArgument("token has no refresh token")
	}

	fresh, err := s.refreshLocked(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveToken(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	t := *fresh
	return &t, nil
}

// refreshLocked swaps in a refreshed token. The service may omit
// refresh_token, in which case the previous one is kept. s.mu must be held.
func (s *TokenSource) refreshLocked(ctx context.Context) (*Token, error) {
	fresh, err := s.flow.RefreshToken(ctx, s.token)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = s.token.RefreshToken
	}
	s.token = fresh
	return fresh, nil
}

// Revoke revokes the current token with the service and clears the store.
func (s *TokenSource) Revoke(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil {
		if err := s.flow.RevokeToken(ctx, s.token); err != nil {
			return err
		}
	}
	s.token = nil

	if deleter, ok := s.store.(interface{ Delete(context.Context) error }); ok {
		return deleter.Delete(ctx)
	}
	return nil
}

// OAuth2 adapts s to oauth2.TokenSource, using ctx for refreshes.
func (s *TokenSource) OAuth2(ctx context.Context) oauth2.TokenSource {
	return oauth2TokenSource{ctx: ctx, src: s}
}

type oauth2TokenSource struct {
	ctx context.Context
	src *TokenSource
}

func (o oauth2TokenSource) Token() (*oauth2.Token, error) {
	t, err := o.src.Token(o.ctx)
	if err != nil {
		return nil, err
	}
	return t.OAuth2(), nil
}
