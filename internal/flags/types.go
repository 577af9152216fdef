package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

// Well-known switches consulted by the gateway.
const (
	KeySwapsPaused     = "engine.swaps-paused"
	KeyLiquidityPaused = "engine.liquidity-paused"
)

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
