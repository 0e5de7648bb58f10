package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ftchann/clmm-simulator/lib/config"
	"github.com/ftchann/clmm-simulator/lib/engine"
	"github.com/ftchann/clmm-simulator/lib/events"
	"github.com/ftchann/clmm-simulator/lib/executor"
	"github.com/ftchann/clmm-simulator/lib/metrics"
	"github.com/ftchann/clmm-simulator/lib/storage"
	"github.com/ftchann/clmm-simulator/lib/storage/postgres"
	ent "github.com/ftchann/clmm-simulator/lib/transaction"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	sc, err := ent.LoadScenario(cfg.Scenario)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	storageSink := storage.NewJsonlStorage(cfg.EventsOut, cfg.ResultsOut)
	exec, err := executor.CreateExecution(sc, executor.Settings{
		TickSpacing:      cfg.TickSpacing,
		TradeFeeRate:     cfg.TradeFeeRate,
		ProtocolFeeRate:  cfg.ProtocolFeeRate,
		FundFeeRate:      cfg.FundFeeRate,
		SnapshotInterval: cfg.SnapshotInterval,
	}, logger,
		engine.WithLogger(logger),
		engine.WithSink(events.Multi(storageSink, events.NewZapSink(logger))),
		engine.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		return err
	}

	logger.Info("simulation start",
		zap.String("scenario", cfg.Scenario),
		zap.String("pool", exec.Engine.ID().String()),
		zap.Int("transactions", len(sc.Transactions)),
		zap.String("events_out", cfg.EventsOut),
		zap.String("results_out", cfg.ResultsOut),
		zap.Uint64("snapshot_interval", cfg.SnapshotInterval),
	)

	save, err := exec.Run(ctx)
	if err != nil {
		return err
	}
	if err := storageSink.PutResult(save); err != nil {
		return err
	}
	if cfg.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsOut, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if cfg.PGDSN != "" {
		if err := persist(ctx, cfg.PGDSN, exec); err != nil {
			return err
		}
		logger.Info("pool saved", zap.String("pool", exec.Engine.ID().String()))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d transactions, %d failed, final tick %d, price %s\n",
		save.Transactions, len(save.Failures), save.Final.Tick, save.Final.Price)
	return nil
}

func persist(ctx context.Context, dsn string, exec *executor.Execution) error {
	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if err := store.SavePool(ctx, exec.Engine.ID(), exec.Engine.Pool()); err != nil {
		return err
	}
	return store.UpsertPositions(ctx, exec.Engine.Positions())
}
