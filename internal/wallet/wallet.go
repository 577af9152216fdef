// Package wallet holds the caller's keypair for the CLI. Keys use the
// standard ed25519 format: base58-encoded 64 bytes or a keygen JSON array.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

type Wallet struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

// New parses a private key string, either base58-encoded 64 bytes or a
// JSON byte array as written by key generators.
func New(privateKey string) (*Wallet, error) {
	if strings.TrimSpace(privateKey) == "" {
		return nil, fmt.Errorf("wallet: private key is required")
	}
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: priv.PublicKey()}, nil
}

// NewFromEnv reads WALLET_PRIVATE_KEY.
func NewFromEnv() (*Wallet, error) {
	return New(os.Getenv("WALLET_PRIVATE_KEY"))
}

// NewRandom generates a throwaway keypair, used by the CLI to mint demo
// accounts.
func NewRandom() (*Wallet, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: generate key: %w", err)
	}
	return &Wallet{priv: priv, pub: priv.PublicKey()}, nil
}

func (w *Wallet) Address() string             { return w.pub.String() }
func (w *Wallet) PublicKey() solana.PublicKey { return w.pub }

// PrivateKeyBase58 exports the key for persistence in .env files.
func (w *Wallet) PrivateKeyBase58() string {
	return base58.Encode(w.priv)
}

// Sign signs an arbitrary payload with the wallet key.
func (w *Wallet) Sign(payload []byte) ([]byte, error) {
	sig, err := w.priv.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign: %w", err)
	}
	return sig[:], nil
}

// Verify checks a payload signature against a public key.
func Verify(pub solana.PublicKey, payload, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), payload, sig)
}

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)

	// keygen JSON array form: [12, 34, ...]
	if strings.HasPrefix(s, "[") {
		var raw []byte
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return nil, fmt.Errorf("wallet: invalid JSON key array: %w", err)
		}
		if len(raw) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("wallet: key array must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
		}
		return solana.PrivateKey(raw), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid base58 key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(raw), nil
}
