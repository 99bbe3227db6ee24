// Package smartsheet provides a Go client library for the Smartsheet API.
//
// The core of the package is the OAuth 2.0 authorization-code flow and the
// retry policy that every API and token endpoint call goes through.
//
// # Authentication
//
// Access token - simple, good for scripts and personal use:
//
//	client, err := smartsheet.NewClient("your-access-token")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// OAuth 2.0 - required for third-party apps acting on behalf of a user:
//
//	flow, err := smartsheet.NewOAuthFlow(smartsheet.DefaultOAuthConfig(
//	    "your-client-id", "your-client-secret", "https://your-app.com/callback"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	state := smartsheet.NewState()
//	authURL, _ := flow.BuildAuthorizationURL(smartsheet.DefaultScopes(), state)
//	// redirect the user to authURL ...
//
//	result, err := flow.ParseCallback(callbackURL)
//	if errors.Is(err, smartsheet.ErrAccessDenied) {
//	    // the user declined
//	}
//	token, err := flow.ExchangeCode(ctx, result)
//
// A TokenSource keeps the token in a TokenStore and refreshes it when it is
// about to expire:
//
//	ts, _ := smartsheet.NewTokenSource(ctx, flow, smartsheet.NewFileTokenStore("token.json"), nil)
//	client, _ := smartsheet.NewClient("", smartsheet.WithTokenSource(ts))
//
// # Retry Configuration
//
// Calls that fail with one of the service's transient error codes
// (maintenance, server timeout, rate limit, unexpected error) are retried
// with exponential backoff until the retry count or the elapsed-time budget
// runs out:
//
//	client, err := smartsheet.NewClient("token",
//	    smartsheet.WithRetry(&smartsheet.RetryConfig{
//	        MaxRetries:     3,
//	        InitialBackoff: 500 * time.Millisecond,
//	        Multiplier:     2,
//	        MaxElapsed:     10 * time.Second,
//	    }),
//	)
//
// Both the set of transient codes and the backoff formula can be replaced
// with WithTransientCodes, WithTransientFunc and WithBackoff.
//
// # Error Handling
//
// Every failure matches a sentinel with errors.Is:
//
//	token, err := flow.ExchangeCode(ctx, result)
//	switch {
//	case errors.Is(err, smartsheet.ErrInvalidOAuthGrant):
//	    // code expired or already used
//	case errors.Is(err, smartsheet.ErrTransport):
//	    // network failure
//	}
//
// For more information, see https://smartsheet.redoc.ly/
package smartsheet
