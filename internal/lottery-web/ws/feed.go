package ws

import (
	"context"
	"time"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/mirror"
)

// RunCountdown envia o countdown a cada tick, recalculado do horário de fechamento
func (h *Hub) RunCountdown(ctx context.Context, every time.Duration, closing func() time.Time, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Broadcast(Message{Type: MsgCountdown, Countdown: mirror.Countdown(closing(), now())})
		}
	}
}

// Relay repassa os snapshots do mirror local para os clientes (sem Redis)
func (h *Hub) Relay(ctx context.Context, snaps <-chan mirror.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-snaps:
			ev := s.Event()
			h.Broadcast(Message{Type: MsgSnapshot, Snapshot: &ev})
		}
	}
}
