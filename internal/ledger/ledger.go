package ledger

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrMintNotFound      = errors.New("mint not found")
	ErrMintExists        = errors.New("mint already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrMintMismatch      = errors.New("accounts hold different mints")
	ErrDecimalsMismatch  = errors.New("declared decimals do not match the mint")
	ErrUnauthorized      = errors.New("authority is not the account owner")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("balance would overflow")
)

// Mint is an asset definition. Decimals are fixed at creation and every
// transfer is checked against them.
type Mint struct {
	Address   solana.PublicKey `json:"address"`
	Authority solana.PublicKey `json:"authority"`
	Decimals  uint8            `json:"decimals"`
	Supply    uint64           `json:"supply"`
}

// Account is a token account holding a balance of exactly one mint.
type Account struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
	Owner   solana.PublicKey `json:"owner"`
	Balance uint64           `json:"balance"`
}

// Ledger is the token runtime the engine executes against. Account and
// mint creation live here, outside the pool engine itself.
type Ledger interface {
	CreateMint(ctx context.Context, address, authority solana.PublicKey, decimals uint8) (*Mint, error)
	CreateAccount(ctx context.Context, address, mint, owner solana.PublicKey) (*Account, error)
	GetMint(ctx context.Context, address solana.PublicKey) (*Mint, error)
	GetAccount(ctx context.Context, address solana.PublicKey) (*Account, error)
	MintTo(ctx context.Context, mint, dest solana.PublicKey, amount uint64, authority solana.PublicKey) error

	// Begin opens an exclusive transaction. Every balance read and
	// transfer of one engine operation happens inside it, so reserves
	// observed mid-operation cannot be moved by anyone else, and either
	// all transfers commit or none do.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a staged, all-or-nothing view of the ledger. Reads observe the
// effects of earlier transfers in the same transaction.
type Tx interface {
	Account(address solana.PublicKey) (*Account, error)
	Balance(address solana.PublicKey) (uint64, error)
	TransferChecked(from, to solana.PublicKey, amount uint64, decimals uint8, authority solana.PublicKey) error
	Commit() error
	Rollback() error
}
