package models

import "time"

// SwapEvent is emitted by the engine once a swap has committed.
// Amounts are raw base units of the respective mints.
type SwapEvent struct {
	Pool        string    `json:"pool"`
	Pair        string    `json:"pair"`
	Caller      string    `json:"caller"`
	MintIn      string    `json:"mint_in"`
	MintOut     string    `json:"mint_out"`
	AmountIn    uint64    `json:"amount_in"`
	AmountOut   uint64    `json:"amount_out"`
	FeeBps      uint16    `json:"fee_bps"`
	ImpactBps   uint16    `json:"impact_bps"`
	ReserveIn   uint64    `json:"reserve_in"`
	ReserveOut  uint64    `json:"reserve_out"`
	ExecutionPx float64   `json:"execution_px"`
	Timestamp   time.Time `json:"timestamp"`
}

// LiquidityEvent is emitted after both legs of a deposit have committed.
type LiquidityEvent struct {
	Pool       string    `json:"pool"`
	Pair       string    `json:"pair"`
	Caller     string    `json:"caller"`
	MintLow    string    `json:"mint_low"`
	MintHigh   string    `json:"mint_high"`
	AmountLow  uint64    `json:"amount_low"`
	AmountHigh uint64    `json:"amount_high"`
	Timestamp  time.Time `json:"timestamp"`
}

// TransferEvent is emitted for plain point-to-point transfers.
type TransferEvent struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Mint      string    `json:"mint"`
	Amount    uint64    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}
