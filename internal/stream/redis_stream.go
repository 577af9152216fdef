// Package stream delivers live engine events to out-of-process consumers
// such as the recorder and the subscriber CLI.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/storage"
)

// RedisStream implements storage.StreamProvider over the engine's Pub/Sub
// channels.
type RedisStream struct {
	client *redis.Client
	logger *logrus.Logger

	mu      sync.Mutex
	pubsub  *redis.PubSub
	started bool
}

func NewRedisStream(addr string, logger *logrus.Logger) *RedisStream {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisStream{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger,
	}
}

// Start subscribes to all engine channels and dispatches events to the
// registered handlers. Blocks until the context ends or the subscription
// is stopped.
func (s *RedisStream) Start(ctx context.Context, handlers storage.EventHandlers) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("stream already started")
	}
	s.pubsub = s.client.Subscribe(ctx,
		constants.PubSubChannelSwaps,
		constants.PubSubChannelLiquidity,
		constants.PubSubChannelTransfers,
	)
	s.started = true
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"channels": []string{
			constants.PubSubChannelSwaps,
			constants.PubSubChannelLiquidity,
			constants.PubSubChannelTransfers,
		},
	}).Info("subscribed to engine events")

	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.dispatch(msg, handlers)
		}
	}
}

func (s *RedisStream) dispatch(msg *redis.Message, handlers storage.EventHandlers) {
	switch msg.Channel {
	case constants.PubSubChannelSwaps:
		if handlers.Swap == nil {
			return
		}
		var ev models.SwapEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			s.logger.WithError(err).Warn("dropping unparsable swap event")
			return
		}
		handlers.Swap(&ev)
	case constants.PubSubChannelLiquidity:
		if handlers.Liquidity == nil {
			return
		}
		var ev models.LiquidityEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			s.logger.WithError(err).Warn("dropping unparsable liquidity event")
			return
		}
		handlers.Liquidity(&ev)
	case constants.PubSubChannelTransfers:
		if handlers.Transfer == nil {
			return
		}
		var ev models.TransferEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			s.logger.WithError(err).Warn("dropping unparsable transfer event")
			return
		}
		handlers.Transfer(&ev)
	}
}

func (s *RedisStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			return err
		}
		s.pubsub = nil
	}
	s.started = false
	return s.client.Close()
}
