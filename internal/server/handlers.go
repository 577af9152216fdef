package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/ai"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/engine"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/policy"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/refquote"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/registry"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/storage"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine       *engine.Engine     // Pool operation executor
	Ledger       ledger.Ledger      // Mint and account management
	Pools        registry.Store     // Pool record lookups
	Cache        storage.EventCache // Redis-backed recent activity
	Flags        *flags.Store       // Redis-backed feature flags store
	Limiter      *policy.Limiter    // Gateway swap limits
	RefQuotes    *refquote.Client   // External reference quotes (optional)
	AI           *ai.Agent          // AI agent for natural language queries
	AIBaseConfig ai.AgentConfig     // Base configuration for AI agents
	DevMode      bool               // Enable detailed error responses in development
	Logger       *logrus.Logger     // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// engineErr maps engine and ledger sentinel errors onto HTTP statuses.
// Unknown errors are masked as 500 so internals never leak.
func (h *Handlers) engineErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, amm.ErrPoolNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrMintNotFound):
		return h.err(c, http.StatusNotFound, err.Error(), nil)

	case errors.Is(err, amm.ErrAlreadyInitialized),
		errors.Is(err, ledger.ErrAccountExists),
		errors.Is(err, ledger.ErrMintExists):
		return h.err(c, http.StatusConflict, err.Error(), nil)

	case errors.Is(err, amm.ErrSlippageExceeded),
		errors.Is(err, amm.ErrExcessivePriceImpact),
		errors.Is(err, amm.ErrDisproportionateLiquidity),
		errors.Is(err, amm.ErrPoolIsEmpty),
		errors.Is(err, amm.ErrCalculationOverflow),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrBalanceOverflow):
		return h.err(c, http.StatusUnprocessableEntity, err.Error(), nil)

	case errors.Is(err, amm.ErrInvalidMint),
		errors.Is(err, amm.ErrInvalidDestinationMint),
		errors.Is(err, amm.ErrInvalidVault),
		errors.Is(err, amm.ErrInvalidOwner),
		errors.Is(err, amm.ErrZeroAmount),
		errors.Is(err, amm.ErrIdenticalMints),
		errors.Is(err, amm.ErrInvalidFee),
		errors.Is(err, ledger.ErrMintMismatch),
		errors.Is(err, ledger.ErrDecimalsMismatch),
		errors.Is(err, ledger.ErrUnauthorized):
		return h.err(c, http.StatusBadRequest, err.Error(), nil)

	default:
		h.Logger.WithError(err).Error("unhandled engine error")
		return h.err(c, http.StatusInternalServerError, "internal error", map[string]any{"err": err.Error()})
	}
}

// parseKey validates one base58 public key field.
func parseKey(field, value string) (solana.PublicKey, map[string]any) {
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(value))
	if err != nil {
		return solana.PublicKey{}, map[string]any{field: "must be a base58 public key"}
	}
	return pk, nil
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// MintCreate registers a new mint with fixed decimals
func (h *Handlers) MintCreate(c echo.Context) error {
	var req MintCreateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	address, bad := parseKey("address", req.Address)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", bad)
	}
	authority, bad := parseKey("authority", req.Authority)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid authority", bad)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	mint, err := h.Ledger.CreateMint(ctx, address, authority, req.Decimals)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusCreated, mint)
}

// MintGet returns one mint definition
func (h *Handlers) MintGet(c echo.Context) error {
	address, bad := parseKey("address", c.Param("address"))
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", bad)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	mint, err := h.Ledger.GetMint(ctx, address)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusOK, mint)
}

// MintTo issues supply to an account, signed by the mint authority
func (h *Handlers) MintTo(c echo.Context) error {
	mint, bad := parseKey("address", c.Param("address"))
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", bad)
	}
	var req MintToRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	dest, bad := parseKey("destination", req.Destination)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid destination", bad)
	}
	authority, bad := parseKey("authority", req.Authority)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid authority", bad)
	}
	if req.Amount == 0 {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be > 0"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Ledger.MintTo(ctx, mint, dest, req.Amount, authority); err != nil {
		return h.engineErr(c, err)
	}
	acct, err := h.Ledger.GetAccount(ctx, dest)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusOK, acct)
}

// AccountCreate creates a token account for one mint
func (h *Handlers) AccountCreate(c echo.Context) error {
	var req AccountCreateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	address, bad := parseKey("address", req.Address)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", bad)
	}
	mint, bad := parseKey("mint", req.Mint)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint", bad)
	}
	owner, bad := parseKey("owner", req.Owner)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid owner", bad)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acct, err := h.Ledger.CreateAccount(ctx, address, mint, owner)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusCreated, acct)
}

// AccountGet returns one token account with its live balance
func (h *Handlers) AccountGet(c echo.Context) error {
	address, bad := parseKey("address", c.Param("address"))
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", bad)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	acct, err := h.Ledger.GetAccount(ctx, address)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusOK, acct)
}

// PoolCreate initializes the canonical pool for a pair
// Fee defaults to the standard pool fee when omitted
func (h *Handlers) PoolCreate(c echo.Context) error {
	var req PoolCreateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	mintA, bad := parseKey("mint_a", req.MintA)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint_a", bad)
	}
	mintB, bad := parseKey("mint_b", req.MintB)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint_b", bad)
	}

	feeNum := uint64(constants.DefaultFeeNumerator)
	feeDen := uint64(constants.DefaultFeeDenominator)
	if req.FeeNumerator != nil {
		feeNum = *req.FeeNumerator
	}
	if req.FeeDenominator != nil {
		feeDen = *req.FeeDenominator
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pool, err := h.Engine.InitializePool(ctx, mintA, mintB, feeNum, feeDen)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusCreated, pool)
}

// PoolList returns all pool records
func (h *Handlers) PoolList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Pools.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list pools", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// PoolGet returns one pool by address
func (h *Handlers) PoolGet(c echo.Context) error {
	address, bad := parseKey("address", c.Param("address"))
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid address", bad)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	pool, err := h.Pools.Get(ctx, address)
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusOK, pool)
}

// Quote prices a swap against live reserves without executing it.
// Accepts pool, source_mint and amount query parameters. When a reference
// quote source is configured the external market quote is attached for
// comparison; a reference failure never fails the local quote.
func (h *Handlers) Quote(c echo.Context) error {
	pool, bad := parseKey("pool", c.QueryParam("pool"))
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool", bad)
	}
	sourceMint, bad := parseKey("source_mint", c.QueryParam("source_mint"))
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid source_mint", bad)
	}
	amount, err := strconv.ParseUint(strings.TrimSpace(c.QueryParam("amount")), 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be uint64"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	quote, err := h.Engine.Quote(ctx, pool, sourceMint, amount)
	if err != nil {
		return h.engineErr(c, err)
	}

	resp := QuoteResponse{Quote: quote}
	if h.RefQuotes != nil {
		ref, err := h.RefQuotes.Fetch(ctx, quote.MintIn.String(), quote.MintOut.String(), amount)
		if err != nil {
			h.Logger.WithError(err).Debug("reference quote unavailable")
		} else {
			resp.Reference = ref
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// SwapExecute performs an exact-in swap through a pool
// Rejected when the swaps-paused flag is set or a policy limit is hit
func (h *Handlers) SwapExecute(c echo.Context) error {
	var req SwapExecuteRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	caller, bad := parseKey("caller", req.Caller)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid caller", bad)
	}
	pool, bad := parseKey("pool", req.Pool)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool", bad)
	}
	source, bad := parseKey("source", req.Source)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid source", bad)
	}
	destination, bad := parseKey("destination", req.Destination)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid destination", bad)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if h.Flags != nil && h.Flags.IsEnabled(ctx, flags.KeySwapsPaused, false) {
		return h.err(c, http.StatusServiceUnavailable, "swaps are paused", nil)
	}

	var mintIn solana.PublicKey
	if h.Limiter != nil {
		acct, err := h.Ledger.GetAccount(ctx, source)
		if err != nil {
			return h.engineErr(c, err)
		}
		mintIn = acct.Mint
		if res := h.Limiter.CheckSwap(mintIn, req.AmountIn); !res.Allowed {
			return h.err(c, http.StatusTooManyRequests, res.Reason, res)
		}
	}

	result, err := h.Engine.Swap(ctx, engine.SwapRequest{
		Caller:       caller,
		Pool:         pool,
		Source:       source,
		Destination:  destination,
		AmountIn:     req.AmountIn,
		MinAmountOut: req.MinAmountOut,
	})
	if err != nil {
		return h.engineErr(c, err)
	}
	if h.Limiter != nil {
		h.Limiter.RecordSwap(mintIn, req.AmountIn)
	}
	return c.JSON(http.StatusOK, result)
}

// LiquidityAdd deposits both sides of a pair
func (h *Handlers) LiquidityAdd(c echo.Context) error {
	var req LiquidityAddRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	caller, bad := parseKey("caller", req.Caller)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid caller", bad)
	}
	pool, bad := parseKey("pool", req.Pool)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid pool", bad)
	}
	sourceLow, bad := parseKey("source_low", req.SourceLow)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid source_low", bad)
	}
	sourceHigh, bad := parseKey("source_high", req.SourceHigh)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid source_high", bad)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if h.Flags != nil && h.Flags.IsEnabled(ctx, flags.KeyLiquidityPaused, false) {
		return h.err(c, http.StatusServiceUnavailable, "liquidity operations are paused", nil)
	}

	result, err := h.Engine.AddLiquidity(ctx, engine.LiquidityRequest{
		Caller:     caller,
		Pool:       pool,
		SourceLow:  sourceLow,
		SourceHigh: sourceHigh,
		AmountLow:  req.AmountLow,
		AmountHigh: req.AmountHigh,
	})
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Transfer moves tokens between two accounts of the same mint
func (h *Handlers) Transfer(c echo.Context) error {
	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	authority, bad := parseKey("authority", req.Authority)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid authority", bad)
	}
	from, bad := parseKey("from", req.From)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid from", bad)
	}
	to, bad := parseKey("to", req.To)
	if bad != nil {
		return h.err(c, http.StatusBadRequest, "invalid to", bad)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Engine.Transfer(ctx, engine.TransferRequest{
		Authority: authority,
		From:      from,
		To:        to,
		Amount:    req.Amount,
	})
	if err != nil {
		return h.engineErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RecentSwaps returns the most recent swap events with optional limit parameter
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentSwaps(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	limit := 100
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentSwaps(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Price returns the last execution price for a pair
// The pair query parameter is the canonical "mintLow/mintHigh" label
func (h *Handlers) Price(c echo.Context) error {
	pair := strings.TrimSpace(c.QueryParam("pair"))
	if pair == "" {
		return h.err(c, http.StatusBadRequest, "invalid pair", map[string]any{"pair": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	price, err := h.Cache.GetPrice(ctx, pair)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get price", nil)
	}
	return c.JSON(http.StatusOK, PriceResponse{Pair: pair, Price: price})
}

// FlagsUpsert creates or updates a feature flag with the given key and value
// Validates key format and returns the created/updated flag
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags in the system
func (h *Handlers) FlagsList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// AIAsk processes natural language questions about pool activity using AI
// Supports optional model override for one-off requests
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	// Use default AI agent or create temporary one with custom model
	agent := h.AI
	var tmp *ai.Agent
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		a, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		tmp = a
		agent = a
		defer func() {
			_ = tmp.Close()
		}()
	}

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}
