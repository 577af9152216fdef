package tests

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/client"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/engine"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/policy"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/registry"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/server"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/wallet"
)

const (
	testAPIAddr = ":8091"
	testBaseURL = "http://localhost:8091"
	testAPIKey  = "test-api-key-integration"
)

// setupIntegrationTest stands up the full stack against a real Redis:
// ledger, registry, cache, flags, engine, policy and the HTTP gateway.
func setupIntegrationTest(t *testing.T) (*client.Client, *flags.Store, func()) {
	t.Helper()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   2, // Use different DB for integration tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	require.NoError(t, redisClient.FlushDB(ctx).Err())

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	eventCache := cache.NewRedisCacheFromClient(redisClient, logger)
	flagStore, err := flags.NewStore(redisClient)
	require.NoError(t, err)
	poolStore, err := registry.NewRedisStore(redisClient)
	require.NoError(t, err)

	tokenLedger := ledger.NewMemory(logger)
	eng := engine.New(poolStore, tokenLedger, eventCache, logger, engine.DefaultConfig())
	limiter := policy.NewLimiter(policy.DefaultConfig())

	handlers := &server.Handlers{
		Engine:  eng,
		Ledger:  tokenLedger,
		Pools:   poolStore,
		Cache:   eventCache,
		Flags:   flagStore,
		Limiter: limiter,
		DevMode: true,
		Logger:  logger,
	}

	srv, err := server.New(handlers, server.Config{
		Addr:    testAPIAddr,
		DevMode: true,
		APIKey:  testAPIKey,
	})
	require.NoError(t, err)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	api := client.NewClient(client.ClientConfig{
		BaseURL: testBaseURL,
		APIKey:  testAPIKey,
		Timeout: 10 * time.Second,
		Logger:  logger,
	})

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = redisClient.FlushDB(ctx).Err()
		_ = redisClient.Close()
	}

	return api, flagStore, cleanup
}

// env is a bootstrapped pool with a funded caller, built over the API.
type env struct {
	caller    string
	authority string
	mintA     string
	mintB     string
	acctA     string
	acctB     string
	pool      poolRecord
	srcLow    string
	srcHigh   string
}

type poolRecord struct {
	Address      string `json:"address"`
	MintLow      string `json:"mint_low"`
	MintHigh     string `json:"mint_high"`
	FeeNumerator uint64 `json:"fee_numerator"`
}

func newAddress(t *testing.T) string {
	t.Helper()
	w, err := wallet.NewRandom()
	require.NoError(t, err)
	return w.Address()
}

func bootstrapPool(t *testing.T, api *client.Client) *env {
	t.Helper()
	ctx := context.Background()

	e := &env{
		caller:    newAddress(t),
		authority: newAddress(t),
		mintA:     newAddress(t),
		mintB:     newAddress(t),
		acctA:     newAddress(t),
		acctB:     newAddress(t),
	}

	require.NoError(t, api.CreateMint(ctx, e.mintA, e.authority, 6, nil))
	require.NoError(t, api.CreateMint(ctx, e.mintB, e.authority, 6, nil))
	require.NoError(t, api.CreateAccount(ctx, e.acctA, e.mintA, e.caller, nil))
	require.NoError(t, api.CreateAccount(ctx, e.acctB, e.mintB, e.caller, nil))
	require.NoError(t, api.MintTo(ctx, e.mintA, e.acctA, e.authority, 10_000_000, nil))
	require.NoError(t, api.MintTo(ctx, e.mintB, e.acctB, e.authority, 10_000_000, nil))

	require.NoError(t, api.CreatePool(ctx, e.mintA, e.mintB, &e.pool))
	require.NotEmpty(t, e.pool.Address)

	e.srcLow, e.srcHigh = e.acctA, e.acctB
	if e.pool.MintLow != e.mintA {
		e.srcLow, e.srcHigh = e.srcHigh, e.srcLow
	}

	var dep map[string]any
	require.NoError(t, api.AddLiquidity(ctx, e.caller, e.pool.Address, e.srcLow, e.srcHigh, 1_000_000, 1_000_000, &dep))

	return e
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	return apiErr.StatusCode
}

func TestIntegration_Health(t *testing.T) {
	api, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	assert.NoError(t, api.Health(context.Background()))
}

func TestIntegration_AuthRequired(t *testing.T) {
	_, _, cleanup := setupIntegrationTest(t)
	defer cleanup()

	unauthed := client.NewClient(client.ClientConfig{
		BaseURL: testBaseURL,
		Timeout: 5 * time.Second,
	})
	err := unauthed.Health(context.Background())
	require.Error(t, err)
}

func TestIntegration_SwapFlow(t *testing.T) {
	api, _, cleanup := setupIntegrationTest(t)
	defer cleanup()
	ctx := context.Background()

	e := bootstrapPool(t, api)

	// quote first, then execute at the quoted price
	var quote struct {
		Quote struct {
			AmountOut uint64 `json:"amount_out"`
			ImpactBps uint16 `json:"impact_bps"`
		} `json:"quote"`
	}
	require.NoError(t, api.Quote(ctx, e.pool.Address, e.pool.MintLow, 10_000, &quote))
	assert.Equal(t, uint64(9_872), quote.Quote.AmountOut)

	var swap struct {
		AmountOut uint64 `json:"amount_out"`
	}
	require.NoError(t, api.Swap(ctx, e.caller, e.pool.Address, e.srcLow, e.srcHigh, 10_000, quote.Quote.AmountOut, &swap))
	assert.Equal(t, quote.Quote.AmountOut, swap.AmountOut)

	// the swap shows up in the recent list
	var recent struct {
		Items []struct {
			Pool      string `json:"pool"`
			AmountOut uint64 `json:"amount_out"`
		} `json:"items"`
	}
	require.NoError(t, api.RecentSwaps(ctx, 10, &recent))
	require.NotEmpty(t, recent.Items)
	assert.Equal(t, e.pool.Address, recent.Items[0].Pool)
	assert.Equal(t, swap.AmountOut, recent.Items[0].AmountOut)

	// and the pool is listed
	var pools struct {
		Items []poolRecord `json:"items"`
	}
	require.NoError(t, api.Pools(ctx, &pools))
	require.Len(t, pools.Items, 1)
	assert.Equal(t, e.pool.Address, pools.Items[0].Address)
}

func TestIntegration_DuplicatePool(t *testing.T) {
	api, _, cleanup := setupIntegrationTest(t)
	defer cleanup()
	ctx := context.Background()

	e := bootstrapPool(t, api)

	// reverse order resolves to the same pair
	err := api.CreatePool(ctx, e.mintB, e.mintA, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apiStatus(t, err))
}

func TestIntegration_SlippageRejected(t *testing.T) {
	api, _, cleanup := setupIntegrationTest(t)
	defer cleanup()
	ctx := context.Background()

	e := bootstrapPool(t, api)

	err := api.Swap(ctx, e.caller, e.pool.Address, e.srcLow, e.srcHigh, 10_000, 9_999, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, apiStatus(t, err))
}

func TestIntegration_DisproportionateDeposit(t *testing.T) {
	api, _, cleanup := setupIntegrationTest(t)
	defer cleanup()
	ctx := context.Background()

	e := bootstrapPool(t, api)

	err := api.AddLiquidity(ctx, e.caller, e.pool.Address, e.srcLow, e.srcHigh, 100_000, 50_000, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, apiStatus(t, err))
}

func TestIntegration_PauseFlagBlocksSwaps(t *testing.T) {
	api, flagStore, cleanup := setupIntegrationTest(t)
	defer cleanup()
	ctx := context.Background()

	e := bootstrapPool(t, api)

	_, err := flagStore.Upsert(ctx, flags.KeySwapsPaused, true)
	require.NoError(t, err)

	err = api.Swap(ctx, e.caller, e.pool.Address, e.srcLow, e.srcHigh, 10_000, 0, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, apiStatus(t, err))

	// unpausing restores service
	_, err = flagStore.Upsert(ctx, flags.KeySwapsPaused, false)
	require.NoError(t, err)
	require.NoError(t, api.Swap(ctx, e.caller, e.pool.Address, e.srcLow, e.srcHigh, 10_000, 0, nil))
}

func TestIntegration_Transfer(t *testing.T) {
	api, _, cleanup := setupIntegrationTest(t)
	defer cleanup()
	ctx := context.Background()

	e := bootstrapPool(t, api)

	recipientOwner := newAddress(t)
	recipient := newAddress(t)
	require.NoError(t, api.CreateAccount(ctx, recipient, e.mintA, recipientOwner, nil))
	require.NoError(t, api.Transfer(ctx, e.caller, e.acctA, recipient, 1_234))

	var acct struct {
		Balance uint64 `json:"balance"`
	}
	require.NoError(t, api.GetAccount(ctx, recipient, &acct))
	assert.Equal(t, uint64(1_234), acct.Balance)
}
