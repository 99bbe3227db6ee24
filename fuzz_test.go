package smartsheet

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

// FuzzParseQuery fuzzes the structural query splitter.
// Run with: go test -fuzz=FuzzParseQuery
func FuzzParseQuery(f *testing.F) {
	f.Add("code=abc&state=xyz")
	f.Add("")
	f.Add("&&=&a")
	f.Add("a=1&a=2&b")
	f.Add("x=%zz&y==")

	f.Fuzz(func(t *testing.T, raw string) {
		p := parseQuery(raw)
		seen := make(map[string]bool)
		for _, k := range p.Keys() {
			if seen[k] {
				t.Fatalf("key %q listed twice", k)
			}
			seen[k] = true
			if _, ok := p.Get(k); !ok {
				t.Fatalf("key %q listed but not found", k)
			}
		}
	})
}

// FuzzParseCallback fuzzes redirect callback parsing.
// Run with: go test -fuzz=FuzzParseCallback
func FuzzParseCallback(f *testing.F) {
	f.Add("http://localhost:8080/callback?code=abc&state=xyz")
	f.Add("http://localhost:8080/callback?error=access_denied")
	f.Add("http://localhost:8080/callback")
	f.Add("not a url")
	f.Add("http://[::1")
	f.Add("https://x/?expires_in=99999999999999999999")

	cfg := testOAuthConfig("")
	flow, err := NewOAuthFlow(cfg)
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, callback string) {
		result, err := flow.ParseCallback(callback)
		if (result == nil) == (err == nil) {
			t.Fatalf("ParseCallback(%q) = %v, %v: want exactly one of result or error", callback, result, err)
		}
	})
}

// FuzzAuthorizationState checks that any state survives a round trip.
// Run with: go test -fuzz=FuzzAuthorizationState
func FuzzAuthorizationState(f *testing.F) {
	f.Add("xyz")
	f.Add("")
	f.Add("a b&c=d?e#f")

	flow, err := NewOAuthFlow(testOAuthConfig(""))
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, state string) {
		authURL, err := flow.BuildAuthorizationURL(DefaultScopes(), state)
		if err != nil {
			t.Fatal(err)
		}
		u, err := url.Parse(authURL)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(authURL, "state=") {
			t.Fatal("state parameter missing")
		}
		if got := u.Query().Get("state"); got != state {
			t.Fatalf("state = %q, want %q", got, state)
		}
	})
}

// FuzzShouldRetry fuzzes error body inspection.
// Run with: go test -fuzz=FuzzShouldRetry
func FuzzShouldRetry(f *testing.F) {
	f.Add("application/json", []byte(`{"errorCode":4003}`))
	f.Add("application/json", []byte(`{"errorCode":"4001"}`))
	f.Add("", []byte(`null`))
	f.Add("text/plain", []byte(`oops`))

	policy := NewRetryPolicy(nil, WithBackoff(fixedBackoff(0)))

	f.Fuzz(func(t *testing.T, contentType string, body []byte) {
		resp := &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Header:     http.Header{"Content-Type": {contentType}},
			Body:       nopCloser{bytes.NewReader(body)},
		}
		_, _ = policy.ShouldRetry(t.Context(), 1, 0, resp)
	})
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }
