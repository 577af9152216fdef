package amm

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
)

// ProgramID anchors every pool and vault derivation.
var ProgramID = solana.MustPublicKeyFromBase58(constants.PoolProgramAddress)

// Pool is the stored record for one two-asset constant-product pool.
// MintLow sorts strictly below MintHigh by raw byte comparison, so a pair
// has exactly one canonical pool regardless of argument order.
type Pool struct {
	Address        solana.PublicKey `json:"address"`
	MintLow        solana.PublicKey `json:"mint_low"`
	MintHigh       solana.PublicKey `json:"mint_high"`
	VaultLow       solana.PublicKey `json:"vault_low"`
	VaultHigh      solana.PublicKey `json:"vault_high"`
	AuthorityBump  uint8            `json:"authority_bump"`
	FeeNumerator   uint64           `json:"fee_numerator"`
	FeeDenominator uint64           `json:"fee_denominator"`
	Version        uint8            `json:"version"`
	CreatedAt      time.Time        `json:"created_at"`
}

// PoolVersion is stamped on new pool records.
const PoolVersion uint8 = 1

// CanonicalOrder sorts two mints by raw 32-byte comparison.
func CanonicalOrder(a, b solana.PublicKey) (low, high solana.PublicKey, err error) {
	switch bytes.Compare(a[:], b[:]) {
	case -1:
		return a, b, nil
	case 1:
		return b, a, nil
	default:
		return solana.PublicKey{}, solana.PublicKey{}, ErrIdenticalMints
	}
}

// DerivePoolAddress finds the pool PDA for a canonical pair. The pool
// address doubles as the pool authority; the returned bump is persisted so
// the authority can later be re-derived without searching.
func DerivePoolAddress(mintLow, mintHigh solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedPool), mintLow[:], mintHigh[:]},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive pool address: %w", err)
	}
	return addr, bump, nil
}

// DeriveVaultAddress finds the vault PDA for one mint under a pool.
func DeriveVaultAddress(mint, pool solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedVault), mint[:], pool[:]},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive vault address: %w", err)
	}
	return addr, nil
}

// NewPool builds a pool record for the pair, in either argument order.
// No state is touched; the registry decides whether the record may be
// created.
func NewPool(mintX, mintY solana.PublicKey, feeNumerator, feeDenominator uint64) (*Pool, error) {
	if feeDenominator == 0 || feeNumerator >= feeDenominator {
		return nil, ErrInvalidFee
	}

	low, high, err := CanonicalOrder(mintX, mintY)
	if err != nil {
		return nil, err
	}

	addr, bump, err := DerivePoolAddress(low, high)
	if err != nil {
		return nil, err
	}
	vaultLow, err := DeriveVaultAddress(low, addr)
	if err != nil {
		return nil, err
	}
	vaultHigh, err := DeriveVaultAddress(high, addr)
	if err != nil {
		return nil, err
	}

	return &Pool{
		Address:        addr,
		MintLow:        low,
		MintHigh:       high,
		VaultLow:       vaultLow,
		VaultHigh:      vaultHigh,
		AuthorityBump:  bump,
		FeeNumerator:   feeNumerator,
		FeeDenominator: feeDenominator,
		Version:        PoolVersion,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Authority re-derives the pool authority from the stored bump. It fails if
// the record's bump no longer reproduces the pool address, which guards
// against tampered or corrupted records.
func (p *Pool) Authority() (solana.PublicKey, error) {
	addr, err := solana.CreateProgramAddress(
		[][]byte{[]byte(constants.SeedPool), p.MintLow[:], p.MintHigh[:], {p.AuthorityBump}},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("re-derive pool authority: %w", err)
	}
	if !addr.Equals(p.Address) {
		return solana.PublicKey{}, ErrInvalidOwner
	}
	return addr, nil
}

// Pair returns the canonical pair label used in events and channel names.
func (p *Pool) Pair() string {
	return p.MintLow.String() + "/" + p.MintHigh.String()
}

// ContainsMint reports whether mint is one of the pool's two assets.
func (p *Pool) ContainsMint(mint solana.PublicKey) bool {
	return mint.Equals(p.MintLow) || mint.Equals(p.MintHigh)
}

// Route resolves the vault pair for a swap whose input is sourceMint.
// Returns ErrInvalidMint when the mint belongs to neither side.
func (p *Pool) Route(sourceMint solana.PublicKey) (sourceVault, destVault, destMint solana.PublicKey, err error) {
	switch {
	case sourceMint.Equals(p.MintLow):
		return p.VaultLow, p.VaultHigh, p.MintHigh, nil
	case sourceMint.Equals(p.MintHigh):
		return p.VaultHigh, p.VaultLow, p.MintLow, nil
	default:
		return solana.PublicKey{}, solana.PublicKey{}, solana.PublicKey{}, ErrInvalidMint
	}
}
