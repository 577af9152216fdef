package server

// ErrorResponse is the standard error envelope for every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"` // dev mode only
}

// HealthResponse reports service health.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// MintCreateRequest registers a new mint with fixed decimals.
type MintCreateRequest struct {
	Address   string `json:"address"`
	Authority string `json:"authority"`
	Decimals  uint8  `json:"decimals"`
}

// AccountCreateRequest creates a token account for one mint.
type AccountCreateRequest struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
}

// MintToRequest issues supply to an account, signed by the mint authority.
type MintToRequest struct {
	Destination string `json:"destination"`
	Amount      uint64 `json:"amount"`
	Authority   string `json:"authority"`
}

// PoolCreateRequest initializes the canonical pool for a pair. Mint order
// does not matter. Fee defaults to the engine's standard fee when omitted.
type PoolCreateRequest struct {
	MintA          string  `json:"mint_a"`
	MintB          string  `json:"mint_b"`
	FeeNumerator   *uint64 `json:"fee_numerator,omitempty"`
	FeeDenominator *uint64 `json:"fee_denominator,omitempty"`
}

// SwapExecuteRequest performs an exact-in swap through a pool.
type SwapExecuteRequest struct {
	Caller       string `json:"caller"`
	Pool         string `json:"pool"`
	Source       string `json:"source"`
	Destination  string `json:"destination"`
	AmountIn     uint64 `json:"amount_in"`
	MinAmountOut uint64 `json:"min_amount_out"`
}

// LiquidityAddRequest deposits both sides of a pair, keyed by the
// canonical low/high pool sides.
type LiquidityAddRequest struct {
	Caller     string `json:"caller"`
	Pool       string `json:"pool"`
	SourceLow  string `json:"source_low"`
	SourceHigh string `json:"source_high"`
	AmountLow  uint64 `json:"amount_low"`
	AmountHigh uint64 `json:"amount_high"`
}

// TransferRequest moves tokens between two accounts of the same mint.
type TransferRequest struct {
	Authority string `json:"authority"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
}

// PriceResponse reports the last execution price for a pair.
type PriceResponse struct {
	Pair  string  `json:"pair"`
	Price float64 `json:"price"`
}

// QuoteResponse wraps a pool quote with an optional external reference
// quote for comparison.
type QuoteResponse struct {
	Quote     any `json:"quote"`
	Reference any `json:"reference,omitempty"`
}

// FlagUpsertRequest creates or updates a feature flag.
type FlagUpsertRequest struct {
	Key   string `json:"key"`
	Value bool   `json:"value"`
}

// FlagUpdateRequest updates an existing feature flag.
type FlagUpdateRequest struct {
	Value bool `json:"value"`
}

// AIAskRequest is a natural language question about pool activity.
type AIAskRequest struct {
	Question string `json:"question"`
	Model    string `json:"model"`
}

// AIAskResponse carries the generated SQL and the answer.
type AIAskResponse struct {
	SQL    string `json:"sql"`
	Answer string `json:"answer"`
	TookMs int64  `json:"took_ms"`
}
