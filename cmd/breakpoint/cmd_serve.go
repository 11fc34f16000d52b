package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/breakpoint/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the persisted analysis artifacts as a JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := server.DefaultConfig()
		if cfg.Server.Addr != "" {
			sc.Addr = cfg.Server.Addr
		}
		if d, err := time.ParseDuration(cfg.Server.ReadTimeout); err == nil && d > 0 {
			sc.ReadTimeout = d
		}
		if d, err := time.ParseDuration(cfg.Server.WriteTimeout); err == nil && d > 0 {
			sc.WriteTimeout = d
		}
		sc.PricesFile = cfg.Data.PricesFile
		sc.ChangePointsFile = cfg.Output.ChangePointsFile
		sc.ImpactsFile = cfg.Output.ImpactsFile

		srv := server.New(sc, logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe() }()

		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}
