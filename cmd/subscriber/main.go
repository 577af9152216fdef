package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/config"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/storage"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/stream"
)

// subscriber tails the live engine channels and prints every event. Useful
// for watching a running engine without touching ClickHouse.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down subscriber")
		cancel()
	}()

	src := stream.NewRedisStream(cfg.RedisAddr, logger)
	defer func() {
		_ = src.Stop()
	}()

	logger.Info("subscriber running, press Ctrl+C to stop")

	err := src.Start(ctx, storage.EventHandlers{
		Swap: func(ev *models.SwapEvent) {
			logger.WithFields(logrus.Fields{
				"pair":       ev.Pair,
				"amount_in":  ev.AmountIn,
				"amount_out": ev.AmountOut,
				"impact_bps": ev.ImpactBps,
				"price":      ev.ExecutionPx,
			}).Info("swap")
		},
		Liquidity: func(ev *models.LiquidityEvent) {
			logger.WithFields(logrus.Fields{
				"pair":        ev.Pair,
				"amount_low":  ev.AmountLow,
				"amount_high": ev.AmountHigh,
			}).Info("liquidity deposit")
		},
		Transfer: func(ev *models.TransferEvent) {
			logger.WithFields(logrus.Fields{
				"mint":   ev.Mint,
				"amount": ev.Amount,
			}).Info("transfer")
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("event stream failed")
	}
}
