package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

// MessageWriter é o subconjunto do kafka.Writer usado aqui (ver shared/kafka.NewWriter)
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica cada transição de status no tópico de transações
type KafkaPublisher struct {
	Writer MessageWriter
	Topic  string
}

func NewKafkaPublisher(w MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

// Record publica o evento com chave = id da transação
func (p *KafkaPublisher) Record(ctx context.Context, ev events.TxEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(ev.ID), Value: b, Time: time.UnixMilli(ev.TsUnixMs)}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.Topic, err)
	}
	return nil
}
