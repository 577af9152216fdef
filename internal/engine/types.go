package engine

import "github.com/gagliardetto/solana-go"

// SwapRequest identifies everything a swap needs: the pool, the caller and
// the caller's two token accounts. Vaults are never supplied by the caller;
// they come from the pool record.
type SwapRequest struct {
	Caller       solana.PublicKey
	Pool         solana.PublicKey
	Source       solana.PublicKey
	Destination  solana.PublicKey
	AmountIn     uint64
	MinAmountOut uint64
}

// SwapResult reports a committed swap.
type SwapResult struct {
	Pool       solana.PublicKey `json:"pool"`
	MintIn     solana.PublicKey `json:"mint_in"`
	MintOut    solana.PublicKey `json:"mint_out"`
	AmountIn   uint64           `json:"amount_in"`
	AmountOut  uint64           `json:"amount_out"`
	FeeBps     uint16           `json:"fee_bps"`
	ImpactBps  uint16           `json:"impact_bps"`
	ReserveIn  uint64           `json:"reserve_in"`
	ReserveOut uint64           `json:"reserve_out"`
}

// QuoteResult is a swap priced against live reserves without executing.
type QuoteResult struct {
	Pool       solana.PublicKey `json:"pool"`
	MintIn     solana.PublicKey `json:"mint_in"`
	MintOut    solana.PublicKey `json:"mint_out"`
	AmountIn   uint64           `json:"amount_in"`
	AmountOut  uint64           `json:"amount_out"`
	FeeBps     uint16           `json:"fee_bps"`
	ImpactBps  uint16           `json:"impact_bps"`
	ReserveIn  uint64           `json:"reserve_in"`
	ReserveOut uint64           `json:"reserve_out"`
}

// LiquidityRequest is a proportional two-sided deposit. Amounts are keyed
// by the canonical pool sides, not by argument order.
type LiquidityRequest struct {
	Caller     solana.PublicKey
	Pool       solana.PublicKey
	SourceLow  solana.PublicKey
	SourceHigh solana.PublicKey
	AmountLow  uint64
	AmountHigh uint64
}

// LiquidityResult reports a committed deposit and the reserves after it.
type LiquidityResult struct {
	Pool        solana.PublicKey `json:"pool"`
	AmountLow   uint64           `json:"amount_low"`
	AmountHigh  uint64           `json:"amount_high"`
	ReserveLow  uint64           `json:"reserve_low"`
	ReserveHigh uint64           `json:"reserve_high"`
}

// TransferRequest is a plain point-to-point transfer outside any pool.
type TransferRequest struct {
	Authority solana.PublicKey
	From      solana.PublicKey
	To        solana.PublicKey
	Amount    uint64
}
