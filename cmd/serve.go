package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kb-labs/reqcheck/internal/env"
	"github.com/kb-labs/reqcheck/internal/logger"
	"github.com/kb-labs/reqcheck/internal/requirements"
	"github.com/kb-labs/reqcheck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve notices over HTTP",
	Long: `Serve the requirement check over HTTP. Every request re-reads the
environment, so the answer tracks plugin activations and upgrades.

  GET /notices       JSON result
  GET /notices.html  admin notice fragments
  GET /healthz       liveness`,
	RunE: runServe,
}

var (
	flagAddr    string
	flagOrigins []string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagAddr, "addr", "127.0.0.1:8989", "listen address")
	serveCmd.Flags().StringSliceVar(&flagOrigins, "allow-origin", nil, "allowed CORS origins (default: any)")
}

func runServe(cmd *cobra.Command, args []string) error {
	dir, err := siteDir()
	if err != nil {
		return err
	}
	m, err := loadManifest()
	if err != nil {
		return fmt.Errorf("load requirements: %w", err)
	}

	log := logger.NewConsole(logger.ParseLevel(flagLogLevel))
	opts := envOptions(dir)

	// Fail fast on a misconfigured source instead of on the first request.
	_, closeEnv, err := env.Detect(opts, log)
	if err != nil {
		return err
	}
	closeEnv()

	srv := &server.Server{
		Manifest: m,
		Log:      log,
		Env: func() (requirements.Environment, func() error, error) {
			e, closer, err := env.Detect(opts, log)
			if err != nil {
				return nil, nil, err
			}
			return e, closer, nil
		},
		AllowedOrigins: flagOrigins,
	}

	httpSrv := &http.Server{
		Addr:              flagAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Serving %s notices on http://%s", m.Subject().DisplayName(), flagAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
