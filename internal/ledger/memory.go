package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Memory is an in-process ledger guarded by a single mutex. Transactions
// hold the mutex for their whole lifetime, which is what gives engine
// operations their exclusive section.
type Memory struct {
	mu       sync.Mutex
	mints    map[solana.PublicKey]*Mint
	accounts map[solana.PublicKey]*Account
	logger   *logrus.Logger
}

func NewMemory(logger *logrus.Logger) *Memory {
	if logger == nil {
		logger = logrus.New()
	}
	return &Memory{
		mints:    make(map[solana.PublicKey]*Mint),
		accounts: make(map[solana.PublicKey]*Account),
		logger:   logger,
	}
}

func (m *Memory) CreateMint(ctx context.Context, address, authority solana.PublicKey, decimals uint8) (*Mint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.mints[address]; ok {
		return nil, ErrMintExists
	}
	mint := &Mint{Address: address, Authority: authority, Decimals: decimals}
	m.mints[address] = mint

	m.logger.WithFields(logrus.Fields{
		"mint":     address.String(),
		"decimals": decimals,
	}).Debug("mint created")

	cp := *mint
	return &cp, nil
}

func (m *Memory) CreateAccount(ctx context.Context, address, mint, owner solana.PublicKey) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[address]; ok {
		return nil, ErrAccountExists
	}
	if _, ok := m.mints[mint]; !ok {
		return nil, ErrMintNotFound
	}
	acct := &Account{Address: address, Mint: mint, Owner: owner}
	m.accounts[address] = acct

	m.logger.WithFields(logrus.Fields{
		"account": address.String(),
		"mint":    mint.String(),
		"owner":   owner.String(),
	}).Debug("account created")

	cp := *acct
	return &cp, nil
}

func (m *Memory) GetMint(ctx context.Context, address solana.PublicKey) (*Mint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mint, ok := m.mints[address]
	if !ok {
		return nil, ErrMintNotFound
	}
	cp := *mint
	return &cp, nil
}

func (m *Memory) GetAccount(ctx context.Context, address solana.PublicKey) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[address]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

func (m *Memory) MintTo(ctx context.Context, mint, dest solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, ok := m.mints[mint]
	if !ok {
		return ErrMintNotFound
	}
	if !authority.Equals(mt.Authority) {
		return ErrUnauthorized
	}
	acct, ok := m.accounts[dest]
	if !ok {
		return ErrAccountNotFound
	}
	if !acct.Mint.Equals(mint) {
		return ErrMintMismatch
	}
	if amount > math.MaxUint64-acct.Balance || amount > math.MaxUint64-mt.Supply {
		return ErrBalanceOverflow
	}

	acct.Balance += amount
	mt.Supply += amount
	return nil
}

// Begin acquires the ledger lock and returns a staged transaction. The
// caller must Commit or Rollback, or the ledger deadlocks.
func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	return &memoryTx{
		ledger: m,
		staged: make(map[solana.PublicKey]uint64),
	}, nil
}

type memoryTx struct {
	ledger *Memory
	staged map[solana.PublicKey]uint64
	done   bool
}

func (tx *memoryTx) balanceOf(acct *Account) uint64 {
	if b, ok := tx.staged[acct.Address]; ok {
		return b
	}
	return acct.Balance
}

func (tx *memoryTx) Account(address solana.PublicKey) (*Account, error) {
	if tx.done {
		return nil, fmt.Errorf("transaction is closed")
	}
	acct, ok := tx.ledger.accounts[address]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *acct
	cp.Balance = tx.balanceOf(acct)
	return &cp, nil
}

func (tx *memoryTx) Balance(address solana.PublicKey) (uint64, error) {
	acct, err := tx.Account(address)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

func (tx *memoryTx) TransferChecked(from, to solana.PublicKey, amount uint64, decimals uint8, authority solana.PublicKey) error {
	if tx.done {
		return fmt.Errorf("transaction is closed")
	}

	src, ok := tx.ledger.accounts[from]
	if !ok {
		return ErrAccountNotFound
	}
	dst, ok := tx.ledger.accounts[to]
	if !ok {
		return ErrAccountNotFound
	}
	if !src.Mint.Equals(dst.Mint) {
		return ErrMintMismatch
	}
	mint, ok := tx.ledger.mints[src.Mint]
	if !ok {
		return ErrMintNotFound
	}
	if decimals != mint.Decimals {
		return ErrDecimalsMismatch
	}
	if !authority.Equals(src.Owner) {
		return ErrUnauthorized
	}

	srcBal := tx.balanceOf(src)
	dstBal := tx.balanceOf(dst)
	if srcBal < amount {
		return ErrInsufficientFunds
	}
	if from.Equals(to) {
		// self-transfer is a checked no-op
		return nil
	}
	if amount > math.MaxUint64-dstBal {
		return ErrBalanceOverflow
	}

	tx.staged[from] = srcBal - amount
	tx.staged[to] = dstBal + amount
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return fmt.Errorf("transaction is closed")
	}
	for addr, bal := range tx.staged {
		tx.ledger.accounts[addr].Balance = bal
	}
	tx.done = true
	tx.ledger.mu.Unlock()
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.staged = nil
	tx.ledger.mu.Unlock()
	return nil
}
