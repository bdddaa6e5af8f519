package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/kelayakan-cli/internal/api"
	"github.com/sells-group/kelayakan-cli/internal/config"
	"github.com/sells-group/kelayakan-cli/internal/profile"
)

var (
	servePort        int
	serveProfileFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP scoring API",
	Long: `Serve the scoring engine over HTTP.

Endpoints:
  GET  /health
  GET  /v1/profiles
  GET  /v1/profiles/{name}
  POST /v1/score      JSON, text/csv or XLSX body
  POST /v1/missing    JSON, text/csv or XLSX body`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		srv, err := newAPIServer(cfg, serveProfileFile)
		if err != nil {
			return err
		}
		return startServer(ctx, srv.Router(), resolvePort(servePort, cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveProfileFile, "profile-file", "", "extra YAML profile to serve alongside the built-ins")
	rootCmd.AddCommand(serveCmd)
}

// newAPIServer builds the API from config. A profile file, from the flag
// or from profile.path, is served in addition to the built-in profiles.
func newAPIServer(c *config.Config, profileFile string) (*api.Server, error) {
	input, err := fetchOptions(c.Input)
	if err != nil {
		return nil, eris.Wrap(err, "serve")
	}

	if profileFile == "" {
		profileFile = c.Profile.Path
	}
	var extra []*profile.Profile
	defaultProfile := c.Profile.Name
	if profileFile != "" {
		p, err := profile.Load(profileFile)
		if err != nil {
			return nil, err
		}
		extra = append(extra, p)
		if c.Profile.Path != "" {
			defaultProfile = p.Name
		}
	}

	return api.NewServer(api.Options{
		DefaultProfile: defaultProfile,
		Scoring:        c.Scoring,
		Input:          input,
		RateLimit:      c.Server.RateLimit,
		RateBurst:      c.Server.RateBurst,
		AllowedOrigins: c.Server.AllowedOrigins,
		MaxBodyBytes:   int64(c.Server.MaxUploadMB) << 20,
	}, extra...)
}

// resolvePort prefers the flag value and falls back to config.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves handler until ctx is cancelled, then shuts down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- eris.Wrap(err, "server listen")
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return <-errCh
}
