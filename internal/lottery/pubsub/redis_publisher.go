package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

// RedisBroadcaster publica snapshots do contrato no canal lido pelo hub WebSocket
// e guarda o último em uma chave com TTL para quem conectar depois
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
	ttl     time.Duration
}

// NewRedisBroadcaster cria o broadcaster; ttl <= 0 desliga o cache do último snapshot
func NewRedisBroadcaster(r *redis.Client, channel string, ttl time.Duration) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel, ttl: ttl}
}

// key gera a chave Redis do último snapshot de uma loteria
func key(lottery string) string { return "lottery:snapshot:" + lottery }

func (b *RedisBroadcaster) PublishSnapshot(ctx context.Context, s events.StateSnapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if b.ttl > 0 && s.Lottery != "" {
		// cache falhando não impede o broadcast
		_ = b.r.Set(ctx, key(s.Lottery), payload, b.ttl).Err()
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}

// Cached devolve o último snapshot guardado; ok=false quando expirou ou nunca existiu
func (b *RedisBroadcaster) Cached(ctx context.Context, lottery string) (events.StateSnapshot, bool, error) {
	var s events.StateSnapshot
	raw, err := b.r.Get(ctx, key(lottery)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, false, err
	}
	return s, true, nil
}
