package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/immolife/internal/engine"
	"github.com/MRamiBalles/immolife/internal/events"
	"github.com/MRamiBalles/immolife/internal/network"
	"github.com/MRamiBalles/immolife/internal/platform/optimization"
)

const tuningReportInterval = time.Minute

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation with the WebSocket relay and REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				a.cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	bus := events.NewBus()

	a.log.Info("Bootstrapping event journal...")
	journal := events.NewJournal(a.tuning.JournalLimit, a.persister(), a.log)
	journal.Attach(bus)
	defer journal.Flush()

	a.log.Info("Bootstrapping engine...")
	eng := engine.New(a.engineOptions(bus))

	a.log.Info("Bootstrapping WebSocket hub...")
	hub := network.NewHub(eng, a.log, a.metrics,
		network.WithBuffers(a.tuning.BroadcastChannelBuffer, a.tuning.ClientSendBuffer),
		network.WithIOTimeout(a.cfg.Game.IOTimeout.Duration))
	hub.Attach(bus)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	network.NewAPI(eng, hub, a.log).RegisterRoutes(mux)
	network.NewReplayHandler(journal, a.log).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", a.metrics.Handler())
	mux.HandleFunc("/metrics/prom", a.metrics.PrometheusHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(ctx)
	})
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		reportTuning(ctx, a)
		return nil
	})

	err := g.Wait()
	a.log.Info("Server stopped")
	return err
}

// reportTuning periodically logs buffer and pool recommendations derived from metrics.
func reportTuning(ctx context.Context, a *app) {
	ticker := time.NewTicker(tuningReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec := optimization.Analyze(a.metrics.Snapshot())
			for _, note := range rec.Notes {
				a.log.Warn("Tuning recommendation", "note", note, "profile", a.cfg.Tuning.Profile)
			}
		}
	}
}
