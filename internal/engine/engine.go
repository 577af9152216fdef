// Package engine executes pool operations against a token ledger. Each
// operation runs inside one exclusive ledger transaction: reserves are
// read fresh after the transaction opens, and either every transfer of the
// operation commits or none do.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/registry"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/storage"
)

// Config bounds the engine's guard rails.
type Config struct {
	MaxImpactBps uint16
	ToleranceBps uint16
}

func DefaultConfig() Config {
	return Config{
		MaxImpactBps: constants.MaxPriceImpactBps,
		ToleranceBps: constants.LiquidityToleranceBps,
	}
}

// Engine coordinates the pool registry, the token ledger and the event
// sink. It owns no state of its own.
type Engine struct {
	pools  registry.Store
	ledger ledger.Ledger
	events storage.EventSink
	logger *logrus.Logger
	cfg    Config
}

// New creates an engine. The event sink may be nil; events are then
// dropped.
func New(pools registry.Store, lg ledger.Ledger, events storage.EventSink, logger *logrus.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.MaxImpactBps == 0 {
		cfg.MaxImpactBps = constants.MaxPriceImpactBps
	}
	if cfg.ToleranceBps == 0 {
		cfg.ToleranceBps = constants.LiquidityToleranceBps
	}
	return &Engine{pools: pools, ledger: lg, events: events, logger: logger, cfg: cfg}
}

// InitializePool creates the canonical pool for a pair, in either mint
// order, along with its two vault accounts owned by the derived pool
// authority. A second initialization of the same pair fails with
// amm.ErrAlreadyInitialized and leaves the existing pool untouched.
func (e *Engine) InitializePool(ctx context.Context, mintX, mintY solana.PublicKey, feeNumerator, feeDenominator uint64) (*amm.Pool, error) {
	if _, err := e.ledger.GetMint(ctx, mintX); err != nil {
		return nil, fmt.Errorf("mint %s: %w", mintX, err)
	}
	if _, err := e.ledger.GetMint(ctx, mintY); err != nil {
		return nil, fmt.Errorf("mint %s: %w", mintY, err)
	}

	pool, err := amm.NewPool(mintX, mintY, feeNumerator, feeDenominator)
	if err != nil {
		return nil, err
	}

	// Claim the pair before touching the ledger so a losing racer sees
	// AlreadyInitialized, not a vault collision.
	if err := e.pools.Create(ctx, pool); err != nil {
		return nil, err
	}

	if _, err := e.ledger.CreateAccount(ctx, pool.VaultLow, pool.MintLow, pool.Address); err != nil {
		return nil, fmt.Errorf("create low vault: %w", err)
	}
	if _, err := e.ledger.CreateAccount(ctx, pool.VaultHigh, pool.MintHigh, pool.Address); err != nil {
		return nil, fmt.Errorf("create high vault: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"pool":    pool.Address.String(),
		"pair":    pool.Pair(),
		"fee_bps": amm.FeeBps(pool.FeeNumerator, pool.FeeDenominator),
		"bump":    pool.AuthorityBump,
	}).Info("pool initialized")

	return pool, nil
}

// Swap executes an exact-in swap. Validation happens in a fixed order:
// source mint membership, destination mint, vault bindings and authority,
// then fresh reserves, then pricing with its slippage and impact guards.
func (e *Engine) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	pool, err := e.pools.Get(ctx, req.Pool)
	if err != nil {
		return nil, err
	}
	authority, err := pool.Authority()
	if err != nil {
		return nil, err
	}

	// Mints and decimals are immutable, so they are safe to read before
	// the exclusive section opens. Balances are not.
	srcInfo, err := e.ledger.GetAccount(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	sourceVault, destVault, destMint, err := pool.Route(srcInfo.Mint)
	if err != nil {
		return nil, err
	}
	mintIn, err := e.ledger.GetMint(ctx, srcInfo.Mint)
	if err != nil {
		return nil, err
	}
	mintOut, err := e.ledger.GetMint(ctx, destMint)
	if err != nil {
		return nil, err
	}

	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	src, err := tx.Account(req.Source)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := pool.Route(src.Mint); err != nil {
		return nil, err
	}
	if !src.Owner.Equals(req.Caller) {
		return nil, amm.ErrInvalidOwner
	}

	dst, err := tx.Account(req.Destination)
	if err != nil {
		return nil, err
	}
	if !dst.Mint.Equals(destMint) {
		return nil, amm.ErrInvalidDestinationMint
	}
	if !dst.Owner.Equals(req.Caller) {
		return nil, amm.ErrInvalidOwner
	}

	vaultIn, err := e.checkVault(tx, sourceVault, src.Mint, pool.Address)
	if err != nil {
		return nil, err
	}
	vaultOut, err := e.checkVault(tx, destVault, destMint, pool.Address)
	if err != nil {
		return nil, err
	}

	reserveIn := vaultIn.Balance
	reserveOut := vaultOut.Balance
	if reserveIn == 0 || reserveOut == 0 {
		return nil, amm.ErrPoolIsEmpty
	}
	if req.AmountIn == 0 {
		return nil, amm.ErrZeroAmount
	}

	amountOut, err := amm.SwapOutput(req.AmountIn, reserveIn, reserveOut, pool.FeeNumerator, pool.FeeDenominator)
	if err != nil {
		return nil, err
	}
	if amountOut < req.MinAmountOut {
		return nil, amm.ErrSlippageExceeded
	}
	impactBps, err := amm.PriceImpactBps(amountOut, reserveOut)
	if err != nil {
		return nil, err
	}
	if impactBps > e.cfg.MaxImpactBps {
		return nil, amm.ErrExcessivePriceImpact
	}

	if err := tx.TransferChecked(req.Source, sourceVault, req.AmountIn, mintIn.Decimals, req.Caller); err != nil {
		return nil, err
	}
	if err := tx.TransferChecked(destVault, req.Destination, amountOut, mintOut.Decimals, authority); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	feeBps := amm.FeeBps(pool.FeeNumerator, pool.FeeDenominator)
	e.logger.WithFields(logrus.Fields{
		"pool":       pool.Address.String(),
		"caller":     req.Caller.String(),
		"amount_in":  req.AmountIn,
		"amount_out": amountOut,
		"impact_bps": impactBps,
	}).Info("swap executed")

	e.publishSwap(ctx, &models.SwapEvent{
		Pool:        pool.Address.String(),
		Pair:        pool.Pair(),
		Caller:      req.Caller.String(),
		MintIn:      src.Mint.String(),
		MintOut:     destMint.String(),
		AmountIn:    req.AmountIn,
		AmountOut:   amountOut,
		FeeBps:      feeBps,
		ImpactBps:   impactBps,
		ReserveIn:   reserveIn,
		ReserveOut:  reserveOut,
		ExecutionPx: float64(amountOut) / float64(req.AmountIn),
		Timestamp:   time.Now().UTC(),
	})

	return &SwapResult{
		Pool:       pool.Address,
		MintIn:     src.Mint,
		MintOut:    destMint,
		AmountIn:   req.AmountIn,
		AmountOut:  amountOut,
		FeeBps:     feeBps,
		ImpactBps:  impactBps,
		ReserveIn:  reserveIn,
		ReserveOut: reserveOut,
	}, nil
}

// Quote prices a swap against live reserves without moving funds. The
// reserves are read inside a transaction so the quote is self-consistent,
// then the transaction is discarded.
func (e *Engine) Quote(ctx context.Context, poolAddr, sourceMint solana.PublicKey, amountIn uint64) (*QuoteResult, error) {
	pool, err := e.pools.Get(ctx, poolAddr)
	if err != nil {
		return nil, err
	}
	sourceVault, destVault, destMint, err := pool.Route(sourceMint)
	if err != nil {
		return nil, err
	}
	if amountIn == 0 {
		return nil, amm.ErrZeroAmount
	}

	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	reserveIn, err := tx.Balance(sourceVault)
	if err != nil {
		return nil, err
	}
	reserveOut, err := tx.Balance(destVault)
	if err != nil {
		return nil, err
	}
	if reserveIn == 0 || reserveOut == 0 {
		return nil, amm.ErrPoolIsEmpty
	}

	amountOut, err := amm.SwapOutput(amountIn, reserveIn, reserveOut, pool.FeeNumerator, pool.FeeDenominator)
	if err != nil {
		return nil, err
	}
	impactBps, err := amm.PriceImpactBps(amountOut, reserveOut)
	if err != nil {
		return nil, err
	}

	return &QuoteResult{
		Pool:       pool.Address,
		MintIn:     sourceMint,
		MintOut:    destMint,
		AmountIn:   amountIn,
		AmountOut:  amountOut,
		FeeBps:     amm.FeeBps(pool.FeeNumerator, pool.FeeDenominator),
		ImpactBps:  impactBps,
		ReserveIn:  reserveIn,
		ReserveOut: reserveOut,
	}, nil
}

// AddLiquidity deposits both sides of the pair. The ratio is checked
// against the reserves as they stand before the deposit; a deposit more
// than the tolerance away from the pool ratio is rejected before any
// transfer is authorized.
func (e *Engine) AddLiquidity(ctx context.Context, req LiquidityRequest) (*LiquidityResult, error) {
	if req.AmountLow == 0 || req.AmountHigh == 0 {
		return nil, amm.ErrZeroAmount
	}

	pool, err := e.pools.Get(ctx, req.Pool)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Authority(); err != nil {
		return nil, err
	}

	mintLow, err := e.ledger.GetMint(ctx, pool.MintLow)
	if err != nil {
		return nil, err
	}
	mintHigh, err := e.ledger.GetMint(ctx, pool.MintHigh)
	if err != nil {
		return nil, err
	}

	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	srcLow, err := tx.Account(req.SourceLow)
	if err != nil {
		return nil, err
	}
	if !srcLow.Mint.Equals(pool.MintLow) {
		return nil, amm.ErrInvalidMint
	}
	if !srcLow.Owner.Equals(req.Caller) {
		return nil, amm.ErrInvalidOwner
	}
	srcHigh, err := tx.Account(req.SourceHigh)
	if err != nil {
		return nil, err
	}
	if !srcHigh.Mint.Equals(pool.MintHigh) {
		return nil, amm.ErrInvalidMint
	}
	if !srcHigh.Owner.Equals(req.Caller) {
		return nil, amm.ErrInvalidOwner
	}

	vaultLow, err := e.checkVault(tx, pool.VaultLow, pool.MintLow, pool.Address)
	if err != nil {
		return nil, err
	}
	vaultHigh, err := e.checkVault(tx, pool.VaultHigh, pool.MintHigh, pool.Address)
	if err != nil {
		return nil, err
	}

	reserveLow := vaultLow.Balance
	reserveHigh := vaultHigh.Balance

	// An empty or one-sided pool accepts any ratio; the first deposit
	// sets the price.
	if reserveLow > 0 && reserveHigh > 0 {
		expected, err := amm.ExpectedCounterAmount(req.AmountLow, reserveLow, reserveHigh)
		if err != nil {
			return nil, err
		}
		minHigh, maxHigh := amm.ToleranceBand(expected, e.cfg.ToleranceBps)
		if req.AmountHigh < minHigh || req.AmountHigh > maxHigh {
			return nil, amm.ErrDisproportionateLiquidity
		}
	}

	if err := tx.TransferChecked(req.SourceLow, pool.VaultLow, req.AmountLow, mintLow.Decimals, req.Caller); err != nil {
		return nil, err
	}
	if err := tx.TransferChecked(req.SourceHigh, pool.VaultHigh, req.AmountHigh, mintHigh.Decimals, req.Caller); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"pool":        pool.Address.String(),
		"caller":      req.Caller.String(),
		"amount_low":  req.AmountLow,
		"amount_high": req.AmountHigh,
	}).Info("liquidity added")

	e.publishLiquidity(ctx, &models.LiquidityEvent{
		Pool:       pool.Address.String(),
		Pair:       pool.Pair(),
		Caller:     req.Caller.String(),
		MintLow:    pool.MintLow.String(),
		MintHigh:   pool.MintHigh.String(),
		AmountLow:  req.AmountLow,
		AmountHigh: req.AmountHigh,
		Timestamp:  time.Now().UTC(),
	})

	return &LiquidityResult{
		Pool:        pool.Address,
		AmountLow:   req.AmountLow,
		AmountHigh:  req.AmountHigh,
		ReserveLow:  reserveLow + req.AmountLow,
		ReserveHigh: reserveHigh + req.AmountHigh,
	}, nil
}

// Transfer moves tokens between two accounts of the same mint, outside any
// pool. The ledger enforces ownership and decimals.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) error {
	if req.Amount == 0 {
		return amm.ErrZeroAmount
	}

	from, err := e.ledger.GetAccount(ctx, req.From)
	if err != nil {
		return err
	}
	mint, err := e.ledger.GetMint(ctx, from.Mint)
	if err != nil {
		return err
	}

	tx, err := e.ledger.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.TransferChecked(req.From, req.To, req.Amount, mint.Decimals, req.Authority); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	e.publishTransfer(ctx, &models.TransferEvent{
		From:      req.From.String(),
		To:        req.To.String(),
		Mint:      from.Mint.String(),
		Amount:    req.Amount,
		Timestamp: time.Now().UTC(),
	})

	return nil
}

// checkVault validates a vault account against the pool binding: it must
// hold the expected mint and be owned by the pool authority.
func (e *Engine) checkVault(tx ledger.Tx, vault, mint, authority solana.PublicKey) (*ledger.Account, error) {
	acct, err := tx.Account(vault)
	if err != nil {
		return nil, amm.ErrInvalidVault
	}
	if !acct.Mint.Equals(mint) {
		return nil, amm.ErrInvalidVault
	}
	if !acct.Owner.Equals(authority) {
		return nil, amm.ErrInvalidOwner
	}
	return acct, nil
}

func (e *Engine) publishSwap(ctx context.Context, ev *models.SwapEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishSwap(ctx, ev); err != nil {
		e.logger.WithError(err).Warn("failed to publish swap event")
	}
}

func (e *Engine) publishLiquidity(ctx context.Context, ev *models.LiquidityEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishLiquidity(ctx, ev); err != nil {
		e.logger.WithError(err).Warn("failed to publish liquidity event")
	}
}

func (e *Engine) publishTransfer(ctx context.Context, ev *models.TransferEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishTransfer(ctx, ev); err != nil {
		e.logger.WithError(err).Warn("failed to publish transfer event")
	}
}
