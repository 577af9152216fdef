package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
)

// ClickHouseConfig holds connection settings for the analytics store.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseStore persists engine events for analytics queries.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(cfg ClickHouseConfig, logger *logrus.Logger) (*ClickHouseStore, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping ClickHouse: %w", err)
	}

	logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: logger}, nil
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, ev *models.SwapEvent) error {
	query := `
		INSERT INTO swaps (
			pool, pair, caller, mint_in, mint_out,
			amount_in, amount_out, fee_bps, impact_bps,
			reserve_in, reserve_out, execution_px, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		ev.Pool,
		ev.Pair,
		ev.Caller,
		ev.MintIn,
		ev.MintOut,
		ev.AmountIn,
		ev.AmountOut,
		ev.FeeBps,
		ev.ImpactBps,
		ev.ReserveIn,
		ev.ReserveOut,
		ev.ExecutionPx,
		ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert swap: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) InsertLiquidity(ctx context.Context, ev *models.LiquidityEvent) error {
	query := `
		INSERT INTO liquidity (
			pool, pair, caller, mint_low, mint_high,
			amount_low, amount_high, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		ev.Pool,
		ev.Pair,
		ev.Caller,
		ev.MintLow,
		ev.MintHigh,
		ev.AmountLow,
		ev.AmountHigh,
		ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert liquidity: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) InsertTransfer(ctx context.Context, ev *models.TransferEvent) error {
	query := `
		INSERT INTO transfers (
			from_account, to_account, mint, amount, timestamp
		) VALUES (?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		ev.From,
		ev.To,
		ev.Mint,
		ev.Amount,
		ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// EnsureSchema creates the event tables if they do not exist. The recorder
// calls this at startup so a fresh ClickHouse needs no manual migration.
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS swaps (
			pool         String,
			pair         String,
			caller       String,
			mint_in      String,
			mint_out     String,
			amount_in    UInt64,
			amount_out   UInt64,
			fee_bps      UInt16,
			impact_bps   UInt16,
			reserve_in   UInt64,
			reserve_out  UInt64,
			execution_px Float64,
			timestamp    DateTime
		) ENGINE = MergeTree() ORDER BY (pair, timestamp)`,
		`CREATE TABLE IF NOT EXISTS liquidity (
			pool         String,
			pair         String,
			caller       String,
			mint_low     String,
			mint_high    String,
			amount_low   UInt64,
			amount_high  UInt64,
			timestamp    DateTime
		) ENGINE = MergeTree() ORDER BY (pair, timestamp)`,
		`CREATE TABLE IF NOT EXISTS transfers (
			from_account String,
			to_account   String,
			mint         String,
			amount       UInt64,
			timestamp    DateTime
		) ENGINE = MergeTree() ORDER BY (mint, timestamp)`,
	}
	for _, q := range ddl {
		if err := c.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
