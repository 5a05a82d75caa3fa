package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"investlab/internal/api"
	"investlab/internal/config"
	"investlab/internal/history"
	"investlab/internal/invest"
	"investlab/internal/market"
	"investlab/internal/wallet"

	"github.com/shopspring/decimal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var model *market.Model
	if cfg.Seed != 0 {
		model, err = market.NewSeededModel(market.DynamicsFor(cfg.Volatility), cfg.Seed)
	} else {
		model, err = market.NewModel(market.DynamicsFor(cfg.Volatility), nil)
	}
	if err != nil {
		logger.Error("price model init failed", "err", err)
		os.Exit(1)
	}
	mk, err := market.New(model, market.DefaultCatalog())
	if err != nil {
		logger.Error("market init failed", "err", err)
		os.Exit(1)
	}

	cash := wallet.NewAccount(decimal.NewFromFloat(cfg.StartingCash))
	system := invest.NewSystem(mk, cash, history.NewStore(cfg.HistoryCap), logger)
	if cfg.BackfillDays > 0 {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		if err := system.Backfill(cfg.BackfillDays, seed); err != nil {
			logger.Error("history backfill failed", "err", err)
			os.Exit(1)
		}
	}

	if cfg.WorkerRunOnce {
		tick := system.Tick()
		logger.Info("worker run-once completed", "tick", tick)
		return
	}

	go runTicker(ctx, logger, system, cfg)

	server := api.New(cfg, logger, system, cash)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("investlab api listening", "addr", cfg.Addr, "instruments", len(mk.Instruments()))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// runTicker advances the market one day every cfg.TickEvery until ctx ends.
func runTicker(ctx context.Context, logger *slog.Logger, system *invest.System, cfg config.APIConfig) {
	ticker := time.NewTicker(cfg.TickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.TickEvery.String(), "volatility", cfg.Volatility)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			tick := system.Tick()
			logger.Info("market tick complete", "tick", tick)
		}
	}
}
