package amm

import "errors"

// Engine error taxonomy. Handlers map these to stable API error codes,
// so they must stay sentinel values.
var (
	ErrInvalidMint               = errors.New("source mint does not belong to the pool")
	ErrInvalidDestinationMint    = errors.New("destination account mint does not match the pool vault")
	ErrInvalidVault              = errors.New("vault account does not match the pool binding")
	ErrInvalidOwner              = errors.New("account owner does not match the required authority")
	ErrZeroAmount                = errors.New("amount must be greater than zero")
	ErrPoolIsEmpty               = errors.New("pool has no liquidity")
	ErrSlippageExceeded          = errors.New("output amount below minimum")
	ErrExcessivePriceImpact      = errors.New("price impact exceeds the allowed maximum")
	ErrDisproportionateLiquidity = errors.New("deposit ratio deviates from pool reserves")
	ErrCalculationOverflow       = errors.New("arithmetic overflow in pricing calculation")
	ErrAlreadyInitialized        = errors.New("pool already initialized for this pair")
	ErrIdenticalMints            = errors.New("pool mints must differ")
	ErrInvalidFee                = errors.New("invalid fee parameters")
	ErrPoolNotFound              = errors.New("pool not found")
)
