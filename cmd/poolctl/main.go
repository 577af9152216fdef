package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/client"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/wallet"
)

const usage = `poolctl - operate a pool engine over its HTTP gateway

Usage:
  poolctl <command> [flags]

Commands:
  init-pool      create a pool for a pair of mints
  quote          price a swap without executing it
  swap           execute a swap
  add-liquidity  deposit into both sides of a pool
  transfer       move tokens between accounts
  recent         print recent swaps
  pools          list registered pools
  demo-setup     create two mints, accounts, a funded pool

Environment:
  AMM_API_URL  gateway base URL (default http://localhost:8090)
  API_KEY      optional gateway API key
`

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func newClient() *client.Client {
	baseURL := os.Getenv("AMM_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	return client.NewClient(client.ClientConfig{
		BaseURL:      baseURL,
		APIKey:       os.Getenv("API_KEY"),
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 500 * time.Millisecond,
	})
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println("failed to render response:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func fail(msg string, err error) {
	fmt.Println(msg+":", err)
	os.Exit(1)
}

func main() {
	loadEnv()

	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	api := newClient()

	switch os.Args[1] {
	case "init-pool":
		cmdInitPool(ctx, api, os.Args[2:])
	case "quote":
		cmdQuote(ctx, api, os.Args[2:])
	case "swap":
		cmdSwap(ctx, api, os.Args[2:])
	case "add-liquidity":
		cmdAddLiquidity(ctx, api, os.Args[2:])
	case "transfer":
		cmdTransfer(ctx, api, os.Args[2:])
	case "recent":
		cmdRecent(ctx, api, os.Args[2:])
	case "pools":
		cmdPools(ctx, api)
	case "demo-setup":
		cmdDemoSetup(ctx, api)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("unknown command %q\n\n", os.Args[1])
		fmt.Print(usage)
		os.Exit(2)
	}
}

func cmdInitPool(ctx context.Context, api *client.Client, args []string) {
	fs := flag.NewFlagSet("init-pool", flag.ExitOnError)
	mintA := fs.String("mint-a", "", "first mint address")
	mintB := fs.String("mint-b", "", "second mint address")
	_ = fs.Parse(args)

	if *mintA == "" || *mintB == "" {
		fmt.Println("missing -mint-a or -mint-b")
		os.Exit(2)
	}

	var res map[string]any
	if err := api.CreatePool(ctx, *mintA, *mintB, &res); err != nil {
		fail("init-pool failed", err)
	}
	printJSON(res)
}

func cmdQuote(ctx context.Context, api *client.Client, args []string) {
	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	pool := fs.String("pool", "", "pool address")
	sourceMint := fs.String("in", "", "mint being sold")
	amount := fs.Uint64("amt", 0, "amount in base units")
	_ = fs.Parse(args)

	if *pool == "" || *sourceMint == "" || *amount == 0 {
		fmt.Println("missing -pool, -in or -amt")
		os.Exit(2)
	}

	var res map[string]any
	if err := api.Quote(ctx, *pool, *sourceMint, *amount, &res); err != nil {
		fail("quote failed", err)
	}
	printJSON(res)
}

func cmdSwap(ctx context.Context, api *client.Client, args []string) {
	fs := flag.NewFlagSet("swap", flag.ExitOnError)
	caller := fs.String("caller", "", "owner of both token accounts")
	pool := fs.String("pool", "", "pool address")
	source := fs.String("source", "", "token account being debited")
	dest := fs.String("dest", "", "token account being credited")
	amount := fs.Uint64("amt", 0, "amount in base units")
	minOut := fs.Uint64("min-out", 0, "minimum acceptable output")
	_ = fs.Parse(args)

	if *caller == "" || *pool == "" || *source == "" || *dest == "" || *amount == 0 {
		fmt.Println("missing -caller, -pool, -source, -dest or -amt")
		os.Exit(2)
	}

	var res map[string]any
	if err := api.Swap(ctx, *caller, *pool, *source, *dest, *amount, *minOut, &res); err != nil {
		fail("swap failed", err)
	}
	printJSON(res)
}

func cmdAddLiquidity(ctx context.Context, api *client.Client, args []string) {
	fs := flag.NewFlagSet("add-liquidity", flag.ExitOnError)
	caller := fs.String("caller", "", "owner of both source accounts")
	pool := fs.String("pool", "", "pool address")
	srcLow := fs.String("source-low", "", "account holding the low mint")
	srcHigh := fs.String("source-high", "", "account holding the high mint")
	amtLow := fs.Uint64("amt-low", 0, "low mint amount")
	amtHigh := fs.Uint64("amt-high", 0, "high mint amount")
	_ = fs.Parse(args)

	if *caller == "" || *pool == "" || *srcLow == "" || *srcHigh == "" {
		fmt.Println("missing -caller, -pool, -source-low or -source-high")
		os.Exit(2)
	}

	var res map[string]any
	if err := api.AddLiquidity(ctx, *caller, *pool, *srcLow, *srcHigh, *amtLow, *amtHigh, &res); err != nil {
		fail("add-liquidity failed", err)
	}
	printJSON(res)
}

func cmdTransfer(ctx context.Context, api *client.Client, args []string) {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	authority := fs.String("authority", "", "owner of the source account")
	from := fs.String("from", "", "source token account")
	to := fs.String("to", "", "destination token account")
	amount := fs.Uint64("amt", 0, "amount in base units")
	_ = fs.Parse(args)

	if *authority == "" || *from == "" || *to == "" || *amount == 0 {
		fmt.Println("missing -authority, -from, -to or -amt")
		os.Exit(2)
	}

	if err := api.Transfer(ctx, *authority, *from, *to, *amount); err != nil {
		fail("transfer failed", err)
	}
	fmt.Println("ok")
}

func cmdRecent(ctx context.Context, api *client.Client, args []string) {
	fs := flag.NewFlagSet("recent", flag.ExitOnError)
	limit := fs.Int("limit", 20, "number of swaps to fetch")
	_ = fs.Parse(args)

	var res struct {
		Items []map[string]any `json:"items"`
	}
	if err := api.RecentSwaps(ctx, *limit, &res); err != nil {
		fail("recent failed", err)
	}
	printJSON(res.Items)
}

func cmdPools(ctx context.Context, api *client.Client) {
	var res struct {
		Items []map[string]any `json:"items"`
	}
	if err := api.Pools(ctx, &res); err != nil {
		fail("pools failed", err)
	}
	printJSON(res.Items)
}

// cmdDemoSetup bootstraps a working pool from nothing: two mints, token
// accounts for a fresh caller wallet, initial balances, the pool itself
// and a seed deposit. Prints every address it created.
func cmdDemoSetup(ctx context.Context, api *client.Client) {
	caller, err := wallet.NewRandom()
	if err != nil {
		fail("failed to generate caller wallet", err)
	}
	authority, err := wallet.NewRandom()
	if err != nil {
		fail("failed to generate mint authority", err)
	}

	mintA, err := wallet.NewRandom()
	if err != nil {
		fail("failed to generate mint", err)
	}
	mintB, err := wallet.NewRandom()
	if err != nil {
		fail("failed to generate mint", err)
	}

	const decimals = 6
	for _, mint := range []string{mintA.Address(), mintB.Address()} {
		if err := api.CreateMint(ctx, mint, authority.Address(), decimals, nil); err != nil {
			fail("create mint failed", err)
		}
	}

	acctA, err := wallet.NewRandom()
	if err != nil {
		fail("failed to generate account address", err)
	}
	acctB, err := wallet.NewRandom()
	if err != nil {
		fail("failed to generate account address", err)
	}
	if err := api.CreateAccount(ctx, acctA.Address(), mintA.Address(), caller.Address(), nil); err != nil {
		fail("create account failed", err)
	}
	if err := api.CreateAccount(ctx, acctB.Address(), mintB.Address(), caller.Address(), nil); err != nil {
		fail("create account failed", err)
	}

	const supply = 1_000_000_000
	if err := api.MintTo(ctx, mintA.Address(), acctA.Address(), authority.Address(), supply, nil); err != nil {
		fail("mint-to failed", err)
	}
	if err := api.MintTo(ctx, mintB.Address(), acctB.Address(), authority.Address(), supply, nil); err != nil {
		fail("mint-to failed", err)
	}

	var pool struct {
		Address  string `json:"address"`
		MintLow  string `json:"mint_low"`
		MintHigh string `json:"mint_high"`
	}
	if err := api.CreatePool(ctx, mintA.Address(), mintB.Address(), &pool); err != nil {
		fail("create pool failed", err)
	}

	// Map local accounts onto the pool's canonical ordering before the
	// seed deposit.
	srcLow, srcHigh := acctA.Address(), acctB.Address()
	if pool.MintLow != mintA.Address() {
		srcLow, srcHigh = srcHigh, srcLow
	}

	const seed = 100_000_000
	var dep map[string]any
	if err := api.AddLiquidity(ctx, caller.Address(), pool.Address, srcLow, srcHigh, seed, seed, &dep); err != nil {
		fail("seed deposit failed", err)
	}

	fmt.Println("demo environment ready")
	fmt.Println("  caller:        ", caller.Address())
	fmt.Println("  caller key:    ", caller.PrivateKeyBase58())
	fmt.Println("  mint authority:", authority.Address())
	fmt.Println("  mint A:        ", mintA.Address())
	fmt.Println("  mint B:        ", mintB.Address())
	fmt.Println("  account A:     ", acctA.Address())
	fmt.Println("  account B:     ", acctB.Address())
	fmt.Println("  pool:          ", pool.Address)
	printJSON(dep)
}
