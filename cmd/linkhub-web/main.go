// Package main provides a local development server that mounts every
// route the deployed Lambdas serve — OAuth callback, webhook, API, and
// short link redirects — on a single port.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ig-link-hub/internal/api"
	"github.com/fpang/ig-link-hub/internal/config"
	"github.com/fpang/ig-link-hub/internal/lambdaboot"
	"github.com/fpang/ig-link-hub/internal/logging"
	"github.com/fpang/ig-link-hub/internal/oauthflow"
	"github.com/fpang/ig-link-hub/internal/reply"
	"github.com/fpang/ig-link-hub/internal/shortlink"
	"github.com/fpang/ig-link-hub/internal/webhook"
)

// CLI flags
var portFlag int

var rootCmd = &cobra.Command{
	Use:   "linkhub-web",
	Short: "Local development server for the link hub backend",
	Long: `Linkhub Web starts a local server that serves every route the deployed
Lambdas handle: the Instagram OAuth callback, the Meta webhook endpoint,
the front-end API, and short link redirects.

Configuration comes from the same environment variables the Lambdas use
(INSTAGRAM_APP_ID, INSTAGRAM_APP_SECRET, INSTAGRAM_REDIRECT_URI,
INSTAGRAM_VERIFY_TOKEN, FRONTEND_URL, LINKHUB_TABLE).

Examples:
  linkhub-web
  linkhub-web --port 9090`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg := config.FromEnv()
	cfg.ApplyDefaults()
	if err := cfg.Require("appId", "appSecret", "redirectUri", "verifyToken", "frontendUrl", "tableName"); err != nil {
		log.Fatal().Err(err).Msg("Configuration incomplete")
	}

	aws := lambdaboot.InitAWS()
	dataStore := lambdaboot.InitDynamo(aws.Config, "LINKHUB_TABLE")

	linkSvc := shortlink.NewService(dataStore, func() int64 { return time.Now().Unix() })
	dispatcher := reply.NewDispatcher(dataStore, cfg.GraphBaseURL, cfg.ReplyMessage)
	apiServer := api.NewServer(dataStore, linkSvc, cfg.GraphBaseURL)

	mux := http.NewServeMux()
	mux.Handle("/oauth/callback", oauthflow.NewHandler(cfg, dataStore))
	mux.Handle("/webhook", webhook.NewHandler(cfg.VerifyToken, cfg.AppSecret, dispatcher))
	mux.Handle("/api/", api.NewMux(apiServer))
	// Everything else is a candidate short code.
	mux.Handle("/", shortlink.NewHandler(linkSvc))

	handler := withLogging(withCORS(mux))

	addr := fmt.Sprintf(":%d", portFlag)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Int("port", portFlag).Msg("Starting web server")
	fmt.Printf("\n  Link Hub: http://localhost:%d\n\n", portFlag)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only allow localhost origins for local dev
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
