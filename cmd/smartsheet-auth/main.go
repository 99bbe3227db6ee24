// Command smartsheet-auth runs the OAuth authorization-code flow from a
// terminal and manages the resulting token file.
//
// Usage:
//
//	smartsheet-auth --config smartsheet.yaml authorize --scopes READ_SHEETS,WRITE_SHEETS
//	smartsheet-auth --config smartsheet.yaml refresh
//	smartsheet-auth --config smartsheet.yaml whoami
//	smartsheet-auth --config smartsheet.yaml revoke
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/alexflint/go-arg"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/smartsheet-go/smartsheet"
)

type authorizeCmd struct {
	Scopes string `arg:"--scopes" help:"comma-separated access scopes (default from config)"`
	Listen string `arg:"--listen" help:"address to serve the redirect callback on (default: redirect URL host)"`
}

type refreshCmd struct{}

type revokeCmd struct{}

type whoamiCmd struct{}

type args struct {
	Config    string `arg:"-c,--config,env:SMARTSHEET_CONFIG" help:"JSON or YAML config file"`
	TokenFile string `arg:"--token-file" default:"smartsheet-token.json" help:"where the token is stored"`
	LogFile   string `arg:"--log-file" help:"write logs to a rotated file instead of stderr"`
	Verbose   bool   `arg:"-v,--verbose" help:"debug logging"`

	Authorize *authorizeCmd `arg:"subcommand:authorize" help:"run the browser authorization flow"`
	Refresh   *refreshCmd   `arg:"subcommand:refresh" help:"refresh the stored token"`
	Revoke    *revokeCmd    `arg:"subcommand:revoke" help:"revoke the stored token and delete it"`
	Whoami    *whoamiCmd    `arg:"subcommand:whoami" help:"show the user the stored token belongs to"`
}

func (args) Description() string {
	return "smartsheet-auth obtains and manages Smartsheet OAuth tokens"
}

func main() {
	var a args
	p := arg.MustParse(&a)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	cfg, err := smartsheet.LoadConfig(a.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := newLogger(cfg, a.LogFile, a.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, &a, cfg, logger); err != nil {
		logger.Error("command_failed", "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(cfg *smartsheet.Config, logFile string, verbose bool) *slog.Logger {
	level := cfg.Level()
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if logFile != "" {
		w = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, a *args, cfg *smartsheet.Config, logger *slog.Logger) error {
	transport := cfg.Transport(logger)
	flow, err := smartsheet.NewOAuthFlow(cfg.OAuthConfig(transport),
		smartsheet.WithFlowRetry(cfg.RetryPolicy(logger)),
		smartsheet.WithFlowLogger(logger),
	)
	if err != nil {
		return err
	}

	store := smartsheet.NewFileTokenStore(a.TokenFile)
	ts, err := smartsheet.NewTokenSource(ctx, flow, store, logger)
	if err != nil {
		return err
	}

	switch {
	case a.Authorize != nil:
		return authorize(ctx, a.Authorize, cfg, flow, ts)
	case a.Refresh != nil:
		return refresh(ctx, ts)
	case a.Revoke != nil:
		if err := ts.Revoke(ctx); err != nil {
			return err
		}
		fmt.Println("token revoked")
		return nil
	case a.Whoami != nil:
		return whoami(ctx, cfg, ts, logger)
	}
	return nil
}

func authorize(ctx context.Context, cmd *authorizeCmd, cfg *smartsheet.Config, flow *smartsheet.OAuthFlow, ts *smartsheet.TokenSource) error {
	scopes, err := cfg.AccessScopes()
	if err != nil {
		return err
	}
	if cmd.Scopes != "" {
		if scopes, err = smartsheet.ParseAccessScopes(cmd.Scopes); err != nil {
			return err
		}
	}

	redirect, err := url.Parse(cfg.RedirectURL)
	if err != nil {
		return fmt.Errorf("%w: %v", smartsheet.ErrURLFormat, err)
	}
	listen := cmd.Listen
	if listen == "" {
		listen = redirect.Host
	}

	state := smartsheet.NewState()
	authURL, err := flow.BuildAuthorizationURL(scopes, state)
	if err != nil {
		return err
	}

	type outcome struct {
		token *smartsheet.Token
		err   error
	}
	done := make(chan outcome, 1)

	path := redirect.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		callback := *redirect
		callback.RawQuery = r.URL.RawQuery
		result, err := flow.ParseCallback(callback.String())
		if err == nil && result.State != state {
			err = fmt.Errorf("%w: state mismatch", smartsheet.ErrAuthorization)
		}
		var token *smartsheet.Token
		if err == nil {
			token, err = ts.Authorize(r.Context(), result)
		}
		if err != nil {
			http.Error(w, "Authorization failed: "+err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
		}
		select {
		case done <- outcome{token: token, err: err}:
		default:
		}
	})

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listen, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Println("Open this URL in your browser to authorize access:")
	fmt.Println()
	fmt.Println("  " + authURL)
	fmt.Println()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		fmt.Printf("token saved (expires in %ds)\n", res.token.ExpiresInSeconds)
		return nil
	}
}

func refresh(ctx context.Context, ts *smartsheet.TokenSource) error {
	if ts.Current() == nil {
		return errors.New("no stored token; run authorize first")
	}
	token, err := ts.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("token refreshed (expires in %ds)\n", token.ExpiresInSeconds)
	return nil
}

func whoami(ctx context.Context, cfg *smartsheet.Config, ts *smartsheet.TokenSource, logger *slog.Logger) error {
	opts := append(cfg.ClientOptions(logger), smartsheet.WithTokenSource(ts))
	client, err := smartsheet.NewClient(cfg.AccessToken, opts...)
	if err != nil {
		return err
	}
	me, err := client.GetCurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s> (id %d)\n", me.Name, me.Email, me.ID)
	return nil
}
