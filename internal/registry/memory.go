package registry

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
)

// MemoryStore is a map-backed Store for tests and single-process setups.
type MemoryStore struct {
	mu     sync.RWMutex
	byAddr map[solana.PublicKey]*amm.Pool
	byPair map[string]solana.PublicKey
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byAddr: make(map[solana.PublicKey]*amm.Pool),
		byPair: make(map[string]solana.PublicKey),
	}
}

func (s *MemoryStore) Create(ctx context.Context, pool *amm.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKeyOf(pool)
	if _, ok := s.byPair[key]; ok {
		return amm.ErrAlreadyInitialized
	}
	cp := *pool
	s.byPair[key] = pool.Address
	s.byAddr[pool.Address] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, address solana.PublicKey) (*amm.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byAddr[address]
	if !ok {
		return nil, amm.ErrPoolNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) GetByPair(ctx context.Context, mintX, mintY solana.PublicKey) (*amm.Pool, error) {
	low, high, err := amm.CanonicalOrder(mintX, mintY)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	addr, ok := s.byPair[low.String()+":"+high.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, amm.ErrPoolNotFound
	}
	return s.Get(ctx, addr)
}

func (s *MemoryStore) List(ctx context.Context) ([]*amm.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*amm.Pool, 0, len(s.byAddr))
	for _, p := range s.byAddr {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}
