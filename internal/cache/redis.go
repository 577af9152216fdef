package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
)

// RedisCache is the hot-path event sink: committed events are fanned out
// over Pub/Sub and swaps are additionally kept on a capped recent list
// with a last-price key per pair.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCache(addr string, logger *logrus.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return NewRedisCacheFromClient(client, logger)
}

func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// Client exposes the underlying connection so stores sharing the same
// Redis (flags, pool registry) do not open a second one.
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

func (r *RedisCache) PublishSwap(ctx context.Context, ev *models.SwapEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal swap event: %w", err)
	}

	// One pipeline covers the recent list, the price key and both
	// channels, so subscribers and readers observe the same event.
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentSwaps, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentSwaps, 0, constants.MaxRecentSwaps-1)
	pipe.Set(ctx, constants.RedisKeyPricePrefix+ev.Pair, strconv.FormatFloat(ev.ExecutionPx, 'f', -1, 64), 0)
	pipe.Publish(ctx, constants.PubSubChannelSwaps, data)
	pipe.Publish(ctx, constants.PubSubChannelSwaps+":pair:"+ev.Pair, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish swap: %w", err)
	}
	return nil
}

func (r *RedisCache) PublishLiquidity(ctx context.Context, ev *models.LiquidityEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal liquidity event: %w", err)
	}
	if err := r.client.Publish(ctx, constants.PubSubChannelLiquidity, data).Err(); err != nil {
		return fmt.Errorf("publish liquidity: %w", err)
	}
	return nil
}

func (r *RedisCache) PublishTransfer(ctx context.Context, ev *models.TransferEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal transfer event: %w", err)
	}
	if err := r.client.Publish(ctx, constants.PubSubChannelTransfers, data).Err(); err != nil {
		return fmt.Errorf("publish transfer: %w", err)
	}
	return nil
}

func (r *RedisCache) AddRecentSwap(ctx context.Context, ev *models.SwapEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal swap event: %w", err)
	}
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentSwaps, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentSwaps, 0, constants.MaxRecentSwaps-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent swap: %w", err)
	}
	return nil
}

func (r *RedisCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapEvent, error) {
	if limit <= 0 || limit > constants.MaxRecentSwaps {
		limit = constants.MaxRecentSwaps
	}

	vals, err := r.client.LRange(ctx, constants.RedisKeyRecentSwaps, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent swaps: %w", err)
	}

	out := make([]*models.SwapEvent, 0, len(vals))
	for _, v := range vals {
		var ev models.SwapEvent
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			r.logger.WithError(err).Warn("skipping corrupt swap entry")
			continue
		}
		out = append(out, &ev)
	}
	return out, nil
}

func (r *RedisCache) UpdatePrice(ctx context.Context, pair string, price float64) error {
	err := r.client.Set(ctx, constants.RedisKeyPricePrefix+pair, strconv.FormatFloat(price, 'f', -1, 64), 0).Err()
	if err != nil {
		return fmt.Errorf("update price: %w", err)
	}
	return nil
}

func (r *RedisCache) GetPrice(ctx context.Context, pair string) (float64, error) {
	val, err := r.client.Get(ctx, constants.RedisKeyPricePrefix+pair).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get price: %w", err)
	}
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price: %w", err)
	}
	return price, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
