// Package journal registra o ciclo de vida das transações em sinks opcionais
// (Postgres, Kafka, métricas) sem deixar falhas de sink afetarem a operação.
package journal

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

// Recorder recebe cada transição de uma transação
type Recorder interface {
	Record(ctx context.Context, ev events.TxEvent) error
}

// Fanout entrega o evento para todos os recorders; erros só viram log
type Fanout struct {
	log   *zap.Logger
	sinks []Recorder
}

func NewFanout(log *zap.Logger, sinks ...Recorder) *Fanout {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Fanout{log: log}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Add inclui mais um sink (ex.: conectado depois do boot)
func (f *Fanout) Add(r Recorder) {
	if r != nil {
		f.sinks = append(f.sinks, r)
	}
}

func (f *Fanout) Record(ctx context.Context, ev events.TxEvent) error {
	for _, s := range f.sinks {
		if err := s.Record(ctx, ev); err != nil {
			f.log.Warn("journal sink failed",
				zap.String("id", ev.ID),
				zap.String("op", ev.Operation),
				zap.String("status", ev.Status),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Logger escreve cada transição no log estruturado
type Logger struct{ Log *zap.Logger }

func (l Logger) Record(_ context.Context, ev events.TxEvent) error {
	fields := []zap.Field{
		zap.String("id", ev.ID),
		zap.String("op", ev.Operation),
		zap.String("from", ev.From),
		zap.String("hash", ev.Hash),
	}
	switch ev.Status {
	case events.TxFailed:
		l.Log.Warn("transaction failed", append(fields, zap.String("reason", ev.Reason))...)
	case events.TxConfirmed:
		l.Log.Info("transaction confirmed", append(fields, zap.Uint64("block", ev.BlockNumber))...)
	default:
		l.Log.Info("transaction submitted", append(fields, zap.Bool("automatic", ev.Automatic))...)
	}
	return nil
}
