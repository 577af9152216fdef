package amm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMintPair(t *testing.T) (solana.PublicKey, solana.PublicKey) {
	t.Helper()
	a, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	b, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return a.PublicKey(), b.PublicKey()
}

func TestCanonicalOrder(t *testing.T) {
	a, b := testMintPair(t)

	low1, high1, err := CanonicalOrder(a, b)
	require.NoError(t, err)
	low2, high2, err := CanonicalOrder(b, a)
	require.NoError(t, err)

	// Both argument orders resolve to the same canonical pair
	assert.Equal(t, low1, low2)
	assert.Equal(t, high1, high2)
	assert.NotEqual(t, low1, high1)

	_, _, err = CanonicalOrder(a, a)
	assert.ErrorIs(t, err, ErrIdenticalMints)
}

func TestNewPool_OrderIndependent(t *testing.T) {
	a, b := testMintPair(t)

	p1, err := NewPool(a, b, 3, 1000)
	require.NoError(t, err)
	p2, err := NewPool(b, a, 3, 1000)
	require.NoError(t, err)

	assert.Equal(t, p1.Address, p2.Address)
	assert.Equal(t, p1.MintLow, p2.MintLow)
	assert.Equal(t, p1.MintHigh, p2.MintHigh)
	assert.Equal(t, p1.VaultLow, p2.VaultLow)
	assert.Equal(t, p1.VaultHigh, p2.VaultHigh)
	assert.Equal(t, p1.AuthorityBump, p2.AuthorityBump)
}

func TestNewPool_Validation(t *testing.T) {
	a, b := testMintPair(t)

	_, err := NewPool(a, a, 3, 1000)
	assert.ErrorIs(t, err, ErrIdenticalMints)

	_, err = NewPool(a, b, 3, 0)
	assert.ErrorIs(t, err, ErrInvalidFee)

	_, err = NewPool(a, b, 1000, 1000)
	assert.ErrorIs(t, err, ErrInvalidFee)

	// zero fee is a valid configuration
	p, err := NewPool(a, b, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), p.FeeNumerator)
}

func TestNewPool_Record(t *testing.T) {
	a, b := testMintPair(t)

	p, err := NewPool(a, b, 3, 1000)
	require.NoError(t, err)

	assert.Equal(t, PoolVersion, p.Version)
	assert.False(t, p.CreatedAt.IsZero())
	assert.NotEqual(t, p.VaultLow, p.VaultHigh)
	assert.True(t, p.ContainsMint(a))
	assert.True(t, p.ContainsMint(b))
}

func TestPool_Authority(t *testing.T) {
	a, b := testMintPair(t)

	p, err := NewPool(a, b, 3, 1000)
	require.NoError(t, err)

	// The stored bump must reproduce the pool address exactly
	auth, err := p.Authority()
	require.NoError(t, err)
	assert.Equal(t, p.Address, auth)

	// A corrupted record no longer round-trips
	bad := *p
	bad.Address = a
	_, err = bad.Authority()
	assert.Error(t, err)
}

func TestPool_Route(t *testing.T) {
	a, b := testMintPair(t)

	p, err := NewPool(a, b, 3, 1000)
	require.NoError(t, err)

	srcVault, dstVault, dstMint, err := p.Route(p.MintLow)
	require.NoError(t, err)
	assert.Equal(t, p.VaultLow, srcVault)
	assert.Equal(t, p.VaultHigh, dstVault)
	assert.Equal(t, p.MintHigh, dstMint)

	srcVault, dstVault, dstMint, err = p.Route(p.MintHigh)
	require.NoError(t, err)
	assert.Equal(t, p.VaultHigh, srcVault)
	assert.Equal(t, p.VaultLow, dstVault)
	assert.Equal(t, p.MintLow, dstMint)

	stranger, _ := testMintPair(t)
	_, _, _, err = p.Route(stranger)
	assert.ErrorIs(t, err, ErrInvalidMint)
}

func TestPool_Pair(t *testing.T) {
	a, b := testMintPair(t)

	p, err := NewPool(a, b, 3, 1000)
	require.NoError(t, err)
	assert.Equal(t, p.MintLow.String()+"/"+p.MintHigh.String(), p.Pair())
}
