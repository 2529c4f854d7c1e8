package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/dubfeed/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/dubfeed/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/dubfeed/internal/app"
	"github.com/Guilhem-Bonnet/dubfeed/internal/buildinfo"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var every string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Sert l'API HTTP et relance un run à intervalle fixe",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(addr) != "" {
				cfg.Addr = strings.TrimSpace(addr)
			}
			if strings.TrimSpace(every) != "" {
				cfg.RunEvery = strings.TrimSpace(every)
			}
			interval, err := cfg.RunInterval()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg, "dubfeed-server")
			if err != nil {
				return err
			}

			bus := memorybus.New()
			defer bus.Close()

			syncer, st, err := ctx.newSyncer(cmd.Context(), cfg, logger, bus)
			if err != nil {
				return err
			}

			logger.Info().Interface("build", buildinfo.Current()).Str("store", cfg.Store).Dur("every", interval).Msg("starting")

			shutdownCtx, stop := context.WithCancel(cmd.Context())
			defer stop()

			scheduler := app.NewRunScheduler(logger.With().Str("component", "scheduler").Logger(), syncer, interval)
			done := make(chan struct{})
			go func() {
				defer close(done)
				scheduler.Run(shutdownCtx)
			}()

			srv := httpapi.NewServer(logger, st.feed, bus)
			httpServer := &http.Server{
				Addr:              cfg.Addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", cfg.Addr).Msg("listening")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error().Err(err).Msg("http server crashed")
					serveErr <- err
				}
				stop()
			}()

			<-shutdownCtx.Done()
			logger.Info().Msg("shutting down")

			shutdownTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			// Ferme d'abord les flux SSE pour que Shutdown n'attende pas leurs handlers.
			bus.Close()
			_ = httpServer.Shutdown(shutdownTimeout)
			<-done
			logger.Info().Msg("bye")

			select {
			case err := <-serveErr:
				return err
			default:
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config addr)")
	cmd.Flags().StringVar(&every, "every", "", "Run interval, e.g. 30m (overrides config run_every)")
	return cmd
}
