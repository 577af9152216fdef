package constants

import "time"

// Redis keys
const (
	RedisKeyRecentSwaps = "amm:swaps:recent"
	RedisKeyPricePrefix = "amm:price:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwaps     = "amm:swaps:live"
	PubSubChannelLiquidity = "amm:liquidity:live"
	PubSubChannelTransfers = "amm:transfers:live"
)

// Limits
const (
	MaxRecentSwaps = 100
)

// Pool program identity. Pool and vault addresses are derived off-curve
// from this program ID, so vault ownership can always be re-checked
// against the stored bump.
const PoolProgramAddress = "6fJbHG8qrZ8Xf7JFc4J5KdAp6H3CtwwoPGe4Q6JCH6td"

// PDA seed labels
const (
	SeedPool  = "pool"
	SeedVault = "vault"
)

// Pricing defaults
const (
	// Default pool fee: 30 bps, expressed as numerator/denominator so a
	// pool can be created fee-free with 0/1.
	DefaultFeeNumerator   = 3
	DefaultFeeDenominator = 1000

	// Swaps moving the output reserve by more than this are rejected.
	MaxPriceImpactBps = 1000

	// Liquidity deposits may deviate from the pool ratio by at most 1%.
	LiquidityToleranceBps = 100
)

// Gateway policy defaults
const (
	DefaultMaxSwapAmount   uint64 = 1_000_000_000
	DefaultDailyMintVolume uint64 = 10_000_000_000
	DailyWindowDuration           = 24 * time.Hour
)
