package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/replywing/replywing/session"
)

var loginTimeout time.Duration

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in through the browser",
	Long: `Log in through the browser.

Starts a PKCE authorization flow: opens the provider consent page, waits
for the redirect on the local callback listener, exchanges the code for
tokens and syncs the account with the ReplyWing backend.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 3*time.Minute, "how long to wait for the browser redirect")
}

type loginResult struct {
	sess *session.Session
	err  error
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, _, cfg, err := newFlowService()
	if err != nil {
		return err
	}

	redirect, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		return fmt.Errorf("invalid redirect URI %q: %w", cfg.RedirectURI, err)
	}

	authURL, err := svc.Begin(ctx)
	if err != nil {
		return err
	}

	// The listener must be up before the browser opens: the provider can
	// redirect back faster than a user can blink through an SSO session.
	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", redirect.Host, err)
	}

	results := make(chan loginResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.HandleRedirect(r.Context(), r.URL.String())
		if err != nil {
			http.Error(w, "Login failed. You can close this tab and retry from the terminal.", http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body><p>Logged in. You can close this tab.</p></body></html>")
		}
		results <- loginResult{sess: sess, err: err}
	})

	callbackServer := &http.Server{Handler: mux}
	go func() {
		if err := callbackServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			results <- loginResult{err: err}
		}
	}()
	defer shutdownCallbackServer(callbackServer)

	fmt.Println("Opening browser for authentication...")
	if err := openBrowser(authURL); err != nil {
		fmt.Printf("Could not open browser automatically.\n\nPlease open this URL:\n  %s\n\n", authURL)
	}

	select {
	case res := <-results:
		if res.err != nil {
			return res.err
		}
		fmt.Printf("Logged in as @%s (%s)\n", res.sess.Profile.Handle, res.sess.Profile.DisplayName)
		return nil
	case <-time.After(loginTimeout):
		return fmt.Errorf("timed out after %s waiting for the browser redirect", loginTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func shutdownCallbackServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
