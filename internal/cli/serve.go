package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ironsheep/pii-redactor/internal/api"
	"github.com/ironsheep/pii-redactor/internal/config"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}
	cmd.Flags().String("addr", config.DefaultHTTPAddr, "listen address")
	cmd.Flags().String("download-dir", config.DefaultDownloadDir, "directory for masked files")
	_ = a.v.BindPFlag(config.KeyHTTPAddr, cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag(config.KeyDownloadDir, cmd.Flags().Lookup("download-dir"))
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	engine, cleanup, err := buildEngine(a.cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := api.NewServer(engine, a.cfg.DownloadDir,
		api.WithDefaults(detectionOptions(a.cfg), a.cfg.Seed),
		api.WithVersion(resolvedVersion()),
	)
	httpServer := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.cfg.HTTPAddr).Str("download_dir", a.cfg.DownloadDir).Msg("http api listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
