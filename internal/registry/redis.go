package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
)

const (
	indexKey   = "amm:pools:index"
	poolPrefix = "amm:pools:"
	pairPrefix = "amm:pools:pair:"
)

// RedisStore keeps pool records in Redis. The pair key is claimed with
// SETNX, so two concurrent initializations of the same pair cannot both
// succeed.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Create(ctx context.Context, pool *amm.Pool) error {
	b, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("marshal pool: %w", err)
	}

	claimed, err := s.client.SetNX(ctx, pairPrefix+pairKeyOf(pool), pool.Address.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("claim pair: %w", err)
	}
	if !claimed {
		return amm.ErrAlreadyInitialized
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, poolPrefix+pool.Address.String(), b, 0)
	pipe.SAdd(ctx, indexKey, pool.Address.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store pool: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, address solana.PublicKey) (*amm.Pool, error) {
	val, err := s.client.Get(ctx, poolPrefix+address.String()).Result()
	if err == redis.Nil {
		return nil, amm.ErrPoolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pool: %w", err)
	}

	var p amm.Pool
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("unmarshal pool: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) GetByPair(ctx context.Context, mintX, mintY solana.PublicKey) (*amm.Pool, error) {
	low, high, err := amm.CanonicalOrder(mintX, mintY)
	if err != nil {
		return nil, err
	}

	addr, err := s.client.Get(ctx, pairPrefix+low.String()+":"+high.String()).Result()
	if err == redis.Nil {
		return nil, amm.ErrPoolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pair: %w", err)
	}

	pub, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return nil, fmt.Errorf("corrupt pair index: %w", err)
	}
	return s.Get(ctx, pub)
}

func (s *RedisStore) List(ctx context.Context) ([]*amm.Pool, error) {
	addrs, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list pools index: %w", err)
	}
	if len(addrs) == 0 {
		return []*amm.Pool{}, nil
	}

	keys := make([]string, 0, len(addrs))
	for _, a := range addrs {
		keys = append(keys, poolPrefix+a)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget pools: %w", err)
	}

	out := make([]*amm.Pool, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var p amm.Pool
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			continue
		}
		out = append(out, &p)
	}
	return out, nil
}
