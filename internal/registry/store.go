// Package registry persists pool records. Creation is first-writer-wins:
// a second initialization of the same pair fails without touching the
// existing record, in either mint order.
package registry

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
)

type Store interface {
	// Create stores a new pool record. Returns amm.ErrAlreadyInitialized
	// if a pool for the pair exists.
	Create(ctx context.Context, pool *amm.Pool) error

	// Get fetches a pool by its address. Returns amm.ErrPoolNotFound.
	Get(ctx context.Context, address solana.PublicKey) (*amm.Pool, error)

	// GetByPair fetches the pool for two mints, in either order.
	GetByPair(ctx context.Context, mintX, mintY solana.PublicKey) (*amm.Pool, error)

	// List returns all pool records.
	List(ctx context.Context) ([]*amm.Pool, error)
}

func pairKeyOf(pool *amm.Pool) string {
	return pool.MintLow.String() + ":" + pool.MintHigh.String()
}
