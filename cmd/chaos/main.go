// cmd/chaos/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"shelfpos/internal/chaos"
	"shelfpos/internal/config"
	"shelfpos/internal/logging"
	"shelfpos/internal/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("SHELFPOS_CONFIG"), "path to YAML config file")
	pause := flag.Duration("pause", 5*time.Second, "pause between experiments")
	flag.Parse()

	held, err := run(*configPath, *pause)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chaos: %v\n", err)
		os.Exit(1)
	}
	if !held {
		os.Exit(2)
	}
}

func run(configPath string, pause time.Duration) (bool, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return false, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return false, err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.URL,
		store.WithLockTimeout(cfg.Database.CommitTimeout),
		store.WithLogger(logger),
	)
	if err != nil {
		return false, err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return false, err
	}

	engine := chaos.NewEngine(logger)
	held, err := engine.ExecuteGameDay(ctx, chaos.GameDay{
		Name:      "sale commit game day",
		Scenarios: chaos.Experiments(db, logger),
		Pause:     pause,
	})
	if err != nil {
		return false, err
	}

	logger.Info("game day finished", zap.Bool("all_hypotheses_held", held), zap.Int("experiments", len(engine.Results())))
	return held, nil
}
