package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	httpadapter "github.com/greencoop/weather-etl/internal/adapter/http"
	"github.com/greencoop/weather-etl/internal/quality"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve health, readiness, metrics and on-demand quality reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp("serve", flags)
			if err != nil {
				return err
			}

			store, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer a.close(store)

			engine := quality.NewEngine(store, a.cfg.Quality, a.logger, a.metrics)
			srv := httpadapter.NewServer(a.cfg.HTTPAddr, store, engine, a.logger)

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
			case err, ok := <-errCh:
				if ok {
					return err
				}
			}
			a.logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("http server shutdown error", "error", err)
			}
			a.logger.Info("shutdown complete")
			return nil
		},
	}
}
