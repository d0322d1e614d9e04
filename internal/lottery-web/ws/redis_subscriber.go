package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal de snapshots e repassa cada um ao Hub.
// Permite várias instâncias da UI atrás do mesmo mirror publicador.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var snap events.StateSnapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(Message{Type: MsgSnapshot, Snapshot: &snap})
			}
		}
	}()
}
