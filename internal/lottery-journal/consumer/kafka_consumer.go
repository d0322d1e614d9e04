package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

// MessageReader é o subconjunto do kafka.Reader usado pelo Processor
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Sink recebe cada evento decodificado (journal.Postgres em produção)
type Sink interface {
	Record(ctx context.Context, ev events.TxEvent) error
}

// Processor consome eventos de transação do Kafka e grava no journal.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log    *zap.Logger
	Reader MessageReader
	Sink   Sink

	RetryBackoff time.Duration // espera após falha de leitura/gravação; 0 = 500ms

	OnConsumed func()       // métricas (counter++)
	OnPersist  func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run consome até o contexto ser cancelado.
// Mensagem inválida é descartada; falha de gravação é repetida com backoff
// para não perder a transição de status.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			if err := p.sleep(ctx); err != nil {
				return err
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		var ev events.TxEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil || ev.ID == "" {
			p.Log.Warn("invalid message", zap.ByteString("key", m.Key), zap.Int64("offset", m.Offset), zap.Error(err))
			p.fail("decode")
			continue
		}

		if err := p.persist(ctx, ev); err != nil {
			return err
		}
	}
}

func (p *Processor) persist(ctx context.Context, ev events.TxEvent) error {
	for {
		err := p.Sink.Record(ctx, ev)
		if err == nil {
			if p.OnPersist != nil {
				p.OnPersist()
			}
			p.Log.Debug("tx event persisted",
				zap.String("id", ev.ID),
				zap.String("operation", ev.Operation),
				zap.String("status", ev.Status),
			)
			return nil
		}
		p.Log.Warn("journal write failed", zap.String("id", ev.ID), zap.Error(err))
		p.fail("db_upsert")
		if err := p.sleep(ctx); err != nil {
			return err
		}
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func (p *Processor) sleep(ctx context.Context) error {
	d := p.RetryBackoff
	if d <= 0 {
		d = 500 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
