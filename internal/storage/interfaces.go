package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
)

// EventSink receives engine events after they commit. Publishing is
// best-effort: a sink failure never unwinds a committed operation.
type EventSink interface {
	PublishSwap(ctx context.Context, ev *models.SwapEvent) error
	PublishLiquidity(ctx context.Context, ev *models.LiquidityEvent) error
	PublishTransfer(ctx context.Context, ev *models.TransferEvent) error
}

// EventCache is the hot-path view of recent activity.
type EventCache interface {
	EventSink

	// AddRecentSwap pushes a swap onto the capped recent list.
	AddRecentSwap(ctx context.Context, ev *models.SwapEvent) error

	// GetRecentSwaps retrieves the most recent swaps.
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error)

	// UpdatePrice stores the last execution price for a pair.
	UpdatePrice(ctx context.Context, pair string, price float64) error

	// GetPrice retrieves the last execution price for a pair.
	GetPrice(ctx context.Context, pair string) (float64, error)

	// Ping checks if the cache is reachable.
	Ping(ctx context.Context) error

	io.Closer
}

// EventStore is the durable analytics store.
type EventStore interface {
	InsertSwap(ctx context.Context, ev *models.SwapEvent) error
	InsertLiquidity(ctx context.Context, ev *models.LiquidityEvent) error
	InsertTransfer(ctx context.Context, ev *models.TransferEvent) error
	Ping(ctx context.Context) error
	io.Closer
}

// EventHandlers carries the callbacks a stream consumer registers.
// Nil handlers are skipped.
type EventHandlers struct {
	Swap      func(*models.SwapEvent)
	Liquidity func(*models.LiquidityEvent)
	Transfer  func(*models.TransferEvent)
}

// StreamProvider delivers live engine events to a consumer.
type StreamProvider interface {
	// Start begins delivering events and blocks until the context ends.
	Start(ctx context.Context, handlers EventHandlers) error

	// Stop stops the stream provider.
	Stop() error
}
