package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"adstudio/internal/config"
	"adstudio/internal/storage"
)

var gdriveTokenCmd = &cobra.Command{
	Use:   "gdrive-token",
	Short: "Obtain a Google Drive refresh token for STORAGE_PROVIDER=gdrive",
	Long: `gdrive-token runs the OAuth consent flow against a local callback and prints
the refresh token to put in GDRIVE_REFRESH_TOKEN. It needs GDRIVE_CLIENT_ID
and GDRIVE_CLIENT_SECRET.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		timeout, _ := cmd.Flags().GetDuration("timeout")
		out := cmd.OutOrStdout()

		clientID := config.Env("GDRIVE_CLIENT_ID", "")
		clientSecret := config.Env("GDRIVE_CLIENT_SECRET", "")
		if clientID == "" || clientSecret == "" {
			return fmt.Errorf("missing env: GDRIVE_CLIENT_ID and GDRIVE_CLIENT_SECRET are required")
		}

		// 1) Local callback on a free port
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return err
		}
		defer ln.Close()

		port := ln.Addr().(*net.TCPAddr).Port
		redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", port)
		conf := storage.OAuthConfig(clientID, clientSecret, redirectURL)

		state := randomState()
		codeCh := make(chan string, 1)
		errCh := make(chan error, 1)

		srv := &http.Server{
			Handler:      callbackHandler(state, codeCh, errCh),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			_ = srv.Serve(ln)
		}()
		defer srv.Close()

		// 2) Offline access so Google returns a refresh token
		authURL := conf.AuthCodeURL(
			state,
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("prompt", "consent"),
		)

		fmt.Fprintf(out, "\nOpen this URL in your browser:\n\n%s\n\nWaiting for authorization on %s\n", authURL, redirectURL)

		// 3) Wait for the code
		var code string
		select {
		case code = <-codeCh:
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(timeout):
			return fmt.Errorf("timed out waiting for authorization")
		}

		// 4) Exchange the code for tokens
		tok, err := conf.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("token exchange failed: %w", err)
		}

		// Google omits the refresh token when the app was already authorized.
		if strings.TrimSpace(tok.RefreshToken) == "" {
			return fmt.Errorf("no refresh_token returned; revoke the app at https://myaccount.google.com/permissions and retry")
		}

		fmt.Fprintf(out, "\nREFRESH TOKEN:\n\n%s\n", tok.RefreshToken)
		return nil
	},
}

func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "invalid state", http.StatusBadRequest)
			errCh <- fmt.Errorf("invalid state")
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "auth error: "+e, http.StatusBadRequest)
			errCh <- fmt.Errorf("auth error: %s", e)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- fmt.Errorf("missing code")
			return
		}

		fmt.Fprintln(w, "OK. You can close this window and return to the terminal.")
		codeCh <- code
	})
	return mux
}

func randomState() string {
	b := make([]byte, 18)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func init() {
	gdriveTokenCmd.Flags().Duration("timeout", 3*time.Minute, "How long to wait for the browser callback")
}
