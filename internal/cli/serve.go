package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roomforge/roomforge/internal/api"
	"github.com/roomforge/roomforge/pkg/generate"
	"github.com/roomforge/roomforge/pkg/store"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var (
		addr     string
		storeURI string
		logFile  string
		noCache  bool
		redisURL string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes generation and saved-layout management over HTTP:

  POST   /api/generate        run the pipeline for the posted options
  GET    /api/layouts         list saved records
  GET    /api/layouts/{id}    fetch one record
  DELETE /api/layouts/{id}    delete one record
  GET    /healthz             liveness check

With --log-file, requests are logged to a size-rotated file instead of
stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			if logFile != "" {
				rotated := &lumberjack.Logger{
					Filename:   logFile,
					MaxSize:    10, // megabytes
					MaxBackups: 5,
					MaxAge:     28, // days
					Compress:   true,
				}
				logger = charmlog.NewWithOptions(rotated, charmlog.Options{
					ReportTimestamp: true,
					TimeFormat:      time.RFC3339,
					Level:           logger.GetLevel(),
				})
			}

			layoutCache, err := openCache(ctx, noCache, redisURL)
			if err != nil {
				return err
			}
			runner := generate.NewRunner(layoutCache, nil, logger)
			defer runner.Close()

			var st store.Store
			if storeURI != "" {
				st, err = openStore(ctx, storeURI)
				if err != nil {
					return err
				}
				defer st.Close()
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           api.NewServer(runner, st, logger).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", addr, "store", storeURI != "", "pid", os.Getpid())
				errCh <- server.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				logger.Info("shutting down")
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&storeURI, "store", "", "enable saved-layout endpoints backed by this store")
	cmd.Flags().StringVar(&logFile, "log-file", "", "log to a rotated file instead of stderr")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the layout cache")
	cmd.Flags().StringVar(&redisURL, "redis", "", "use a Redis layout cache at this URL")
	return cmd
}
