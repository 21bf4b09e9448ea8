// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"shelfpos/internal/catalog"
	"shelfpos/internal/config"
	"shelfpos/internal/dashboard"
	"shelfpos/internal/directory"
	"shelfpos/internal/httpapi"
	"shelfpos/internal/logging"
	"shelfpos/internal/sales"
	"shelfpos/internal/store"
	"shelfpos/internal/telemetry"
)

func main() {
	configPath := flag.String("config", os.Getenv("SHELFPOS_CONFIG"), "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "shelfpos: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRate:  cfg.Telemetry.SampleRate,
	}, logger)
	if err != nil {
		return err
	}
	defer tp.Shutdown(context.Background())

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.URL,
		store.WithLockTimeout(cfg.Database.CommitTimeout),
		store.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	recorder, err := telemetry.NewSalesRecorder(otel.Meter("shelfpos/sales"))
	if err != nil {
		return err
	}

	catalogSvc := catalog.NewService(db, loc, logger)
	directorySvc := directory.NewService(db, cfg.Directory.RatePerMinute, cfg.Directory.Burst, logger)
	salesSvc := sales.NewService(db, logger,
		sales.WithCustomers(directorySvc),
		sales.WithObserver(recorder),
		sales.WithLocation(loc),
		sales.WithCommitTimeout(cfg.Database.CommitTimeout),
		sales.WithDefaultPaymentMethod(cfg.Store.DefaultPaymentMethod),
	)
	aggregator := dashboard.NewAggregator(db, loc, logger)

	router := httpapi.NewRouter(logger, db,
		catalog.NewHandler(catalogSvc, logger),
		directory.NewHandler(directorySvc, logger),
		sales.NewHandler(salesSvc, logger),
		dashboard.NewHandler(aggregator, logger),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting shelfpos",
			zap.String("port", cfg.HTTP.Port),
			zap.String("driver", cfg.Database.Driver),
			zap.String("timezone", loc.String()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}
