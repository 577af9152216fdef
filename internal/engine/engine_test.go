package engine

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/registry"
)

const testDecimals = 6

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

// captureSink records published events for assertions.
type captureSink struct {
	swaps     []*models.SwapEvent
	liquidity []*models.LiquidityEvent
	transfers []*models.TransferEvent
}

func (c *captureSink) PublishSwap(_ context.Context, ev *models.SwapEvent) error {
	c.swaps = append(c.swaps, ev)
	return nil
}

func (c *captureSink) PublishLiquidity(_ context.Context, ev *models.LiquidityEvent) error {
	c.liquidity = append(c.liquidity, ev)
	return nil
}

func (c *captureSink) PublishTransfer(_ context.Context, ev *models.TransferEvent) error {
	c.transfers = append(c.transfers, ev)
	return nil
}

// fixture is a funded caller with accounts on both sides of one pool.
type fixture struct {
	eng    *Engine
	led    *ledger.Memory
	events *captureSink

	caller  solana.PublicKey
	pool    *amm.Pool
	srcLow  solana.PublicKey
	srcHigh solana.PublicKey
}

// newFixture builds a pool with the given fee and seeds each side with
// seed tokens from the caller's accounts. The caller keeps 10M per mint
// before seeding.
func newFixture(t *testing.T, feeNum, feeDen, seedLow, seedHigh uint64) *fixture {
	t.Helper()
	ctx := context.Background()

	led := ledger.NewMemory(nil)
	pools := registry.NewMemoryStore()
	events := &captureSink{}
	eng := New(pools, led, events, nil, DefaultConfig())

	authority := newKey(t)
	caller := newKey(t)
	mintA := newKey(t)
	mintB := newKey(t)
	acctA := newKey(t)
	acctB := newKey(t)

	_, err := led.CreateMint(ctx, mintA, authority, testDecimals)
	require.NoError(t, err)
	_, err = led.CreateMint(ctx, mintB, authority, testDecimals)
	require.NoError(t, err)
	_, err = led.CreateAccount(ctx, acctA, mintA, caller)
	require.NoError(t, err)
	_, err = led.CreateAccount(ctx, acctB, mintB, caller)
	require.NoError(t, err)
	require.NoError(t, led.MintTo(ctx, mintA, acctA, 10_000_000, authority))
	require.NoError(t, led.MintTo(ctx, mintB, acctB, 10_000_000, authority))

	pool, err := eng.InitializePool(ctx, mintA, mintB, feeNum, feeDen)
	require.NoError(t, err)

	srcLow, srcHigh := acctA, acctB
	if !pool.MintLow.Equals(mintA) {
		srcLow, srcHigh = srcHigh, srcLow
	}

	f := &fixture{
		eng:     eng,
		led:     led,
		events:  events,
		caller:  caller,
		pool:    pool,
		srcLow:  srcLow,
		srcHigh: srcHigh,
	}

	if seedLow > 0 || seedHigh > 0 {
		_, err = eng.AddLiquidity(ctx, LiquidityRequest{
			Caller:     caller,
			Pool:       pool.Address,
			SourceLow:  srcLow,
			SourceHigh: srcHigh,
			AmountLow:  seedLow,
			AmountHigh: seedHigh,
		})
		require.NoError(t, err)
	}

	return f
}

func (f *fixture) balance(t *testing.T, acct solana.PublicKey) uint64 {
	t.Helper()
	a, err := f.led.GetAccount(context.Background(), acct)
	require.NoError(t, err)
	return a.Balance
}

func TestInitializePool(t *testing.T) {
	f := newFixture(t, 0, 1, 0, 0)

	// vaults exist, are empty and owned by the pool authority
	low, err := f.led.GetAccount(context.Background(), f.pool.VaultLow)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), low.Balance)
	assert.Equal(t, f.pool.Address, low.Owner)

	high, err := f.led.GetAccount(context.Background(), f.pool.VaultHigh)
	require.NoError(t, err)
	assert.Equal(t, f.pool.MintHigh, high.Mint)
}

func TestInitializePool_Duplicate(t *testing.T) {
	f := newFixture(t, 0, 1, 0, 0)
	ctx := context.Background()

	// the reverse mint order resolves to the same pair
	_, err := f.eng.InitializePool(ctx, f.pool.MintHigh, f.pool.MintLow, 0, 1)
	assert.ErrorIs(t, err, amm.ErrAlreadyInitialized)

	_, err = f.eng.InitializePool(ctx, f.pool.MintLow, f.pool.MintHigh, 3, 1000)
	assert.ErrorIs(t, err, amm.ErrAlreadyInitialized)
}

func TestInitializePool_UnknownMint(t *testing.T) {
	f := newFixture(t, 0, 1, 0, 0)

	_, err := f.eng.InitializePool(context.Background(), f.pool.MintLow, newKey(t), 0, 1)
	assert.ErrorIs(t, err, ledger.ErrMintNotFound)
}

func TestSwap_NoFee(t *testing.T) {
	f := newFixture(t, 0, 1, 1_000_000, 1_000_000)
	ctx := context.Background()

	callerLowBefore := f.balance(t, f.srcLow)
	callerHighBefore := f.balance(t, f.srcHigh)

	res, err := f.eng.Swap(ctx, SwapRequest{
		Caller:       f.caller,
		Pool:         f.pool.Address,
		Source:       f.srcLow,
		Destination:  f.srcHigh,
		AmountIn:     10_000,
		MinAmountOut: 9_901,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(9_901), res.AmountOut)
	assert.Equal(t, uint16(99), res.ImpactBps)
	assert.Equal(t, uint16(0), res.FeeBps)
	assert.Equal(t, uint64(1_000_000), res.ReserveIn)
	assert.Equal(t, uint64(1_000_000), res.ReserveOut)

	// funds moved both ways atomically
	assert.Equal(t, callerLowBefore-10_000, f.balance(t, f.srcLow))
	assert.Equal(t, callerHighBefore+9_901, f.balance(t, f.srcHigh))
	assert.Equal(t, uint64(1_010_000), f.balance(t, f.pool.VaultLow))
	assert.Equal(t, uint64(990_099), f.balance(t, f.pool.VaultHigh))

	require.Len(t, f.events.swaps, 1)
	ev := f.events.swaps[0]
	assert.Equal(t, f.pool.Pair(), ev.Pair)
	assert.Equal(t, uint64(9_901), ev.AmountOut)
}

func TestSwap_WithFee(t *testing.T) {
	f := newFixture(t, 3, 1000, 1_000_000, 1_000_000)

	res, err := f.eng.Swap(context.Background(), SwapRequest{
		Caller:      f.caller,
		Pool:        f.pool.Address,
		Source:      f.srcLow,
		Destination: f.srcHigh,
		AmountIn:    10_000,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(9_872), res.AmountOut)
	assert.Equal(t, uint16(30), res.FeeBps)

	// the vault keeps the full input, fee included
	assert.Equal(t, uint64(1_010_000), f.balance(t, f.pool.VaultLow))
}

func TestSwap_HighToLow(t *testing.T) {
	f := newFixture(t, 0, 1, 1_000_000, 1_000_000)

	res, err := f.eng.Swap(context.Background(), SwapRequest{
		Caller:      f.caller,
		Pool:        f.pool.Address,
		Source:      f.srcHigh,
		Destination: f.srcLow,
		AmountIn:    10_000,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(9_901), res.AmountOut)
	assert.Equal(t, f.pool.MintHigh, res.MintIn)
	assert.Equal(t, f.pool.MintLow, res.MintOut)
	assert.Equal(t, uint64(1_010_000), f.balance(t, f.pool.VaultHigh))
}

func TestSwap_SlippageExceeded(t *testing.T) {
	f := newFixture(t, 0, 1, 1_000_000, 1_000_000)

	_, err := f.eng.Swap(context.Background(), SwapRequest{
		Caller:       f.caller,
		Pool:         f.pool.Address,
		Source:       f.srcLow,
		Destination:  f.srcHigh,
		AmountIn:     10_000,
		MinAmountOut: 9_902,
	})
	assert.ErrorIs(t, err, amm.ErrSlippageExceeded)

	// nothing moved
	assert.Equal(t, uint64(1_000_000), f.balance(t, f.pool.VaultLow))
	assert.Empty(t, f.events.swaps)
}

func TestSwap_ExcessiveImpact(t *testing.T) {
	f := newFixture(t, 0, 1, 1_000_000, 1_000_000)

	// 200k into 1M consumes 16.66% of the output reserve
	_, err := f.eng.Swap(context.Background(), SwapRequest{
		Caller:      f.caller,
		Pool:        f.pool.Address,
		Source:      f.srcLow,
		Destination: f.srcHigh,
		AmountIn:    200_000,
	})
	assert.ErrorIs(t, err, amm.ErrExcessivePriceImpact)
}

func TestSwap_EmptyPool(t *testing.T) {
	f := newFixture(t, 0, 1, 0, 0)

	_, err := f.eng.Swap(context.Background(), SwapRequest{
		Caller:      f.caller,
		Pool:        f.pool.Address,
		Source:      f.srcLow,
		Destination: f.srcHigh,
		AmountIn:    10_000,
	})
	assert.ErrorIs(t, err, amm.ErrPoolIsEmpty)
}

func TestSwap_ZeroAmount(t *testing.T) {
	f := newFixture(t, 0, 1, 1_000_000, 1_000_000)

	_, err := f.eng.Swap(context.Background(), SwapRequest{
		Caller:      f.caller,
		Pool:        f.pool.Address,
		Source:      f.srcLow,
		Destination: f.srcHigh,
		AmountIn:    0,
	})
	assert.ErrorIs(t, err, amm.ErrZeroAmount)
}

func TestSwap_PoolNotFound(t *testing.T) {
	f := newFixture(t, 0, 1, 1_000_000, 1_000_000)

	_, err := f.eng.Swap(context.Background(), SwapRequest{
		Caller:      f.caller,
		Pool:        newKey(t),
		Source:      f.srcLow,
		Destination: f.srcHigh,
		AmountIn:    10_000,
	})
	assert.ErrorIs(t, err, amm.ErrPoolNotFound)
}

func TestSwap_ForeignSourceMint(t *testing.T) {
	f := newFixture(t, 0, 1, 1_000_000, 1_000_000)
	ctx := context.Background()

	// an account on a mint outside the pool cannot be routed
	strangerMint := newKey(t)
	strangerAcct := newKey(t)
	_, err := f.led.CreateMint(ctx, strangerMint, newKey(t), testDecimals)
	require.NoError(t, err)
	_, err = f.led.CreateAccount(ctx, strangerAcct, strangerMint, f.caller)
	require.NoError(t, err)

	_, err = f.eng.Swap(ctx, SwapRequest{
		Caller:      f.caller,
		Pool:        f.pool.Address,
		Source:      strangerAcct,
		Destination: f.srcHigh,
		AmountIn:    10_000,
	})
	assert.ErrorIs(t, err, amm.ErrInvalidMint)
}

func TestSwap_WrongDestinationMint(t *testing.T) {
	f := newFixture(t, 0, 1, 1_000_000, 1_000_000)
	ctx := context.Background()

	// destination holds the source mint, not the counter mint
	sameSide := newKey(t)
	_, err := f.led.CreateAccount(ctx, sameSide, f.pool.MintLow, f.caller)
	require.NoError(t, err)

	_, err = f.eng.Swap(ctx, SwapRequest{
		Caller:      f.caller,
		Pool:        f.pool.Address,
		Source:      f.srcLow,
		Destination: sameSide,
		AmountIn:    10_000,
	})
	assert.ErrorIs(t, err, amm.ErrInvalidDestinationMint)
}

func TestSwap_WrongOwner(t *testing.T) {
	f := newFixture(t, 0, 1, 1_000_000, 1_000_000)

	_, err := f.eng.Swap(context.Background(), SwapRequest{
		Caller:      newKey(t),
		Pool:        f.pool.Address,
		Source:      f.srcLow,
		Destination: f.srcHigh,
		AmountIn:    10_000,
	})
	assert.ErrorIs(t, err, amm.ErrInvalidOwner)
}

func TestSwap_InsufficientFunds(t *testing.T) {
	// deep pool, caller keeps only 1k per side, so the input is priced
	// fine (tiny impact) but the debit itself fails
	f := newFixture(t, 0, 1, 9_999_000, 9_999_000)

	_, err := f.eng.Swap(context.Background(), SwapRequest{
		Caller:      f.caller,
		Pool:        f.pool.Address,
		Source:      f.srcLow,
		Destination: f.srcHigh,
		AmountIn:    10_000,
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// nothing moved
	assert.Equal(t, uint64(1_000), f.balance(t, f.srcLow))
	assert.Equal(t, uint64(9_999_000), f.balance(t, f.pool.VaultLow))
}

func TestQuote(t *testing.T) {
	f := newFixture(t, 3, 1000, 1_000_000, 1_000_000)
	ctx := context.Background()

	q, err := f.eng.Quote(ctx, f.pool.Address, f.pool.MintLow, 10_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_872), q.AmountOut)
	assert.Equal(t, uint16(98), q.ImpactBps)
	assert.Equal(t, uint16(30), q.FeeBps)

	// quoting moves nothing
	assert.Equal(t, uint64(1_000_000), f.balance(t, f.pool.VaultLow))

	// a quote above the impact cap still prices; only execution rejects
	q, err = f.eng.Quote(ctx, f.pool.Address, f.pool.MintLow, 200_000)
	require.NoError(t, err)
	assert.Greater(t, q.ImpactBps, uint16(1_000))

	_, err = f.eng.Quote(ctx, f.pool.Address, f.pool.MintLow, 0)
	assert.ErrorIs(t, err, amm.ErrZeroAmount)

	_, err = f.eng.Quote(ctx, f.pool.Address, newKey(t), 10_000)
	assert.ErrorIs(t, err, amm.ErrInvalidMint)

	_, err = f.eng.Quote(ctx, newKey(t), f.pool.MintLow, 10_000)
	assert.ErrorIs(t, err, amm.ErrPoolNotFound)
}

func TestQuote_MatchesSwap(t *testing.T) {
	f := newFixture(t, 3, 1000, 777_777, 333_333)
	ctx := context.Background()

	q, err := f.eng.Quote(ctx, f.pool.Address, f.pool.MintLow, 12_345)
	require.NoError(t, err)

	res, err := f.eng.Swap(ctx, SwapRequest{
		Caller:      f.caller,
		Pool:        f.pool.Address,
		Source:      f.srcLow,
		Destination: f.srcHigh,
		AmountIn:    12_345,
	})
	require.NoError(t, err)
	assert.Equal(t, q.AmountOut, res.AmountOut)
	assert.Equal(t, q.ImpactBps, res.ImpactBps)
}

func TestAddLiquidity_FirstDepositAnyRatio(t *testing.T) {
	f := newFixture(t, 0, 1, 0, 0)

	// wildly unbalanced first deposit sets the price
	res, err := f.eng.AddLiquidity(context.Background(), LiquidityRequest{
		Caller:     f.caller,
		Pool:       f.pool.Address,
		SourceLow:  f.srcLow,
		SourceHigh: f.srcHigh,
		AmountLow:  1_000,
		AmountHigh: 9_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), res.ReserveLow)
	assert.Equal(t, uint64(9_000_000), res.ReserveHigh)
	assert.Len(t, f.events.liquidity, 1)
}

func TestAddLiquidity_Proportional(t *testing.T) {
	f := newFixture(t, 0, 1, 100, 100)

	// exactly on ratio
	res, err := f.eng.AddLiquidity(context.Background(), LiquidityRequest{
		Caller:     f.caller,
		Pool:       f.pool.Address,
		SourceLow:  f.srcLow,
		SourceHigh: f.srcHigh,
		AmountLow:  50,
		AmountHigh: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(150), res.ReserveLow)
	assert.Equal(t, uint64(150), res.ReserveHigh)

	// the band is inclusive: 49 sits on the lower edge for expected 50
	_, err = f.eng.AddLiquidity(context.Background(), LiquidityRequest{
		Caller:     f.caller,
		Pool:       f.pool.Address,
		SourceLow:  f.srcLow,
		SourceHigh: f.srcHigh,
		AmountLow:  50,
		AmountHigh: 49,
	})
	require.NoError(t, err)
}

func TestAddLiquidity_Disproportionate(t *testing.T) {
	f := newFixture(t, 0, 1, 100, 100)

	// expected counter amount is 50, band [49, 50]; 40 is far below it
	_, err := f.eng.AddLiquidity(context.Background(), LiquidityRequest{
		Caller:     f.caller,
		Pool:       f.pool.Address,
		SourceLow:  f.srcLow,
		SourceHigh: f.srcHigh,
		AmountLow:  50,
		AmountHigh: 40,
	})
	assert.ErrorIs(t, err, amm.ErrDisproportionateLiquidity)

	// nothing moved
	assert.Equal(t, uint64(100), f.balance(t, f.pool.VaultLow))
	assert.Equal(t, uint64(100), f.balance(t, f.pool.VaultHigh))
}

func TestAddLiquidity_Validation(t *testing.T) {
	f := newFixture(t, 0, 1, 100, 100)
	ctx := context.Background()

	_, err := f.eng.AddLiquidity(ctx, LiquidityRequest{
		Caller:     f.caller,
		Pool:       f.pool.Address,
		SourceLow:  f.srcLow,
		SourceHigh: f.srcHigh,
		AmountLow:  0,
		AmountHigh: 10,
	})
	assert.ErrorIs(t, err, amm.ErrZeroAmount)

	// sides swapped: the low source holds the high mint
	_, err = f.eng.AddLiquidity(ctx, LiquidityRequest{
		Caller:     f.caller,
		Pool:       f.pool.Address,
		SourceLow:  f.srcHigh,
		SourceHigh: f.srcLow,
		AmountLow:  50,
		AmountHigh: 50,
	})
	assert.ErrorIs(t, err, amm.ErrInvalidMint)

	_, err = f.eng.AddLiquidity(ctx, LiquidityRequest{
		Caller:     newKey(t),
		Pool:       f.pool.Address,
		SourceLow:  f.srcLow,
		SourceHigh: f.srcHigh,
		AmountLow:  50,
		AmountHigh: 50,
	})
	assert.ErrorIs(t, err, amm.ErrInvalidOwner)
}

func TestTransfer(t *testing.T) {
	f := newFixture(t, 0, 1, 0, 0)
	ctx := context.Background()

	// second account on the low mint owned by someone else
	recipientOwner := newKey(t)
	recipient := newKey(t)
	lowAcct, err := f.led.GetAccount(ctx, f.srcLow)
	require.NoError(t, err)
	_, err = f.led.CreateAccount(ctx, recipient, lowAcct.Mint, recipientOwner)
	require.NoError(t, err)

	err = f.eng.Transfer(ctx, TransferRequest{
		Authority: f.caller,
		From:      f.srcLow,
		To:        recipient,
		Amount:    2_500,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(10_000_000-2_500), f.balance(t, f.srcLow))
	assert.Equal(t, uint64(2_500), f.balance(t, recipient))
	require.Len(t, f.events.transfers, 1)
	assert.Equal(t, uint64(2_500), f.events.transfers[0].Amount)

	// only the owner may move funds
	err = f.eng.Transfer(ctx, TransferRequest{
		Authority: recipientOwner,
		From:      f.srcLow,
		To:        recipient,
		Amount:    1,
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	err = f.eng.Transfer(ctx, TransferRequest{
		Authority: f.caller,
		From:      f.srcLow,
		To:        recipient,
		Amount:    0,
	})
	assert.ErrorIs(t, err, amm.ErrZeroAmount)
}
