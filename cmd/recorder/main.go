package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/config"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/storage"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/stream"
)

const insertTimeout = 10 * time.Second

// Recorder tails the live event channels and persists every event into
// ClickHouse for historical queries and the analytics agent.
type Recorder struct {
	store  storage.EventStore
	logger *logrus.Logger
}

func (r *Recorder) onSwap(ev *models.SwapEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if err := r.store.InsertSwap(ctx, ev); err != nil {
		r.logger.WithError(err).Error("failed to insert swap")
		return
	}
	r.logger.WithFields(logrus.Fields{
		"pair":       ev.Pair,
		"amount_in":  ev.AmountIn,
		"amount_out": ev.AmountOut,
	}).Info("recorded swap")
}

func (r *Recorder) onLiquidity(ev *models.LiquidityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if err := r.store.InsertLiquidity(ctx, ev); err != nil {
		r.logger.WithError(err).Error("failed to insert liquidity event")
		return
	}
	r.logger.WithField("pair", ev.Pair).Info("recorded liquidity deposit")
}

func (r *Recorder) onTransfer(ev *models.TransferEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if err := r.store.InsertTransfer(ctx, ev); err != nil {
		r.logger.WithError(err).Error("failed to insert transfer")
		return
	}
	r.logger.WithField("mint", ev.Mint).Info("recorded transfer")
}

func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	store, err := cache.NewClickHouseStore(cache.ClickHouseConfig{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to ClickHouse")
	}
	defer func() {
		_ = store.Close()
	}()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("failed to create event tables")
	}

	rec := &Recorder{store: store, logger: logger}

	src := stream.NewRedisStream(cfg.RedisAddr, logger)
	defer func() {
		_ = src.Stop()
	}()

	logger.Info("recorder started, waiting for events")

	err = src.Start(ctx, storage.EventHandlers{
		Swap:      rec.onSwap,
		Liquidity: rec.onLiquidity,
		Transfer:  rec.onTransfer,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("event stream failed")
	}
}
