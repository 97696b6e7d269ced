package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/starfield/internal/logging"
	"github.com/lazypower/starfield/internal/metrics"
	"github.com/lazypower/starfield/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := openLocal(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.New()
	opts := []server.Option{
		server.WithLogger(log),
		server.WithMetrics(m),
		server.WithLayout(cfg.Layout),
		server.WithZoom(cfg.View.Zoom),
		server.WithCORS(cfg.Server.CORSOrigins...),
	}
	graphs, err := serverGraphs(cfg, db, m, log)
	if err != nil {
		return err
	}
	if graphs != nil {
		log.Info("serving graphs from supabase", zap.String("url", cfg.Supabase.URL))
		opts = append(opts, server.WithGraphs(graphs))
	}

	srv := server.New(db, VersionString(), opts...)
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		log.Info("starfield serving", zap.String("addr", addr), zap.String("db", db.Path))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-done:
	}
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
