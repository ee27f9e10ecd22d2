// deidserve applies a resolved de-identification plan to batches of records.
//
// Usage:
//
//	deidserve [--dev] [--config path] [--addr :8080]
//
// Flags:
//
//	--dev     Start in dev mode: in-process miniredis for the result log and request tracking
//	--config  Path to deidserve.yaml (optional when DEID_URL and DEID_SAMPLE are set)
//	--addr    Override server.addr from config
//
// Environment:
//
//	DEID_URL     artifact location (path, http(s):// or s3://)
//	DEID_SAMPLE  representative sample (csv or xlsx)
//	DEBUG        log every input record
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ruslano69/tdtp-deid/internal/api"
	"github.com/ruslano69/tdtp-deid/internal/infra"
	"github.com/ruslano69/tdtp-deid/pkg/metrics"
	"github.com/ruslano69/tdtp-deid/pkg/stream"
	"github.com/ruslano69/tdtp-deid/pkg/transform"
)

func main() {
	dev := flag.Bool("dev", false, "dev mode: in-process miniredis")
	configPath := flag.String("config", "", "path to config file")
	addrOverride := flag.String("addr", "", "listen address override (e.g. :8080)")
	flag.Parse()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("config load failed")
	}
	if *addrOverride != "" {
		cfg.Server.Addr = *addrOverride
	}
	infra.SetupLogger(cfg.Log, cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inf, err := infra.Setup(ctx, cfg, *dev)
	if err != nil {
		log.Fatal().Err(err).Msg("infrastructure setup failed")
	}
	defer inf.Close()

	if *dev {
		log.Warn().Msg("DEV MODE ACTIVE: in-process miniredis, do not use in production")
	}

	// The plan is resolved once; a failure is recorded and aborts startup.
	rt, err := infra.Bootstrap(ctx, cfg, transform.WithObserver(metrics.Observer{}))
	inf.PublishPlan(ctx, rt.Plan, rt.Run, err)
	if err != nil {
		inf.Close()
		log.Fatal().Err(err).Msg("plan resolution failed")
	}
	metrics.SetPlan(rt.Plan)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(cfg, inf, rt),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Stream workers are built before anything is started.
	runner, err := newRunner(cfg.Stream, rt.Service, rt.Plan.ID())
	if err != nil {
		inf.Close()
		log.Fatal().Err(err).Msg("stream setup failed")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Bool("dev", *dev).
			Str("plan_id", rt.Plan.ID()).
			Msg("deidserve started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if runner != nil {
		g.Go(func() error {
			return runner.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown error")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		inf.Close()
		os.Exit(1)
	}
	log.Info().Msg("stopped")
}

// newRunner returns nil when the stream workers are disabled.
func newRunner(cfg stream.Config, svc stream.Transformer, planID string) (*stream.Runner, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return stream.New(cfg, svc,
		stream.WithLogger(log.Logger),
		stream.WithPlanID(planID),
		stream.WithOnReject(metrics.StreamRejected),
	)
}
