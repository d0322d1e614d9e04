package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

var (
	TxSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_tx_submitted_total",
		Help: "Transações enviadas ao nó, por operação.",
	}, []string{"operation"})

	TxConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_tx_confirmed_total",
		Help: "Transações mineradas com sucesso, por operação.",
	}, []string{"operation"})

	TxFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_tx_failed_total",
		Help: "Transações rejeitadas ou revertidas, por operação.",
	}, []string{"operation"})

	ApprovalsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lottery_approvals_inserted_total",
		Help: "Approves inseridos automaticamente antes de um gasto de tokens.",
	})

	MirrorRefresh = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_mirror_refresh_total",
		Help: "Ciclos de leitura do estado do contrato, por resultado.",
	}, []string{"result"})
)

// TxRecorder conta o ciclo de vida das transações nos contadores acima
type TxRecorder struct{}

func (TxRecorder) Record(_ context.Context, ev events.TxEvent) error {
	switch ev.Status {
	case events.TxSubmitted:
		TxSubmitted.WithLabelValues(ev.Operation).Inc()
		if ev.Automatic {
			ApprovalsInserted.Inc()
		}
	case events.TxConfirmed:
		TxConfirmed.WithLabelValues(ev.Operation).Inc()
	case events.TxFailed:
		TxFailed.WithLabelValues(ev.Operation).Inc()
	}
	return nil
}

// ObserveRefresh registra o resultado de um ciclo do mirror
func ObserveRefresh(err error) {
	if err != nil {
		MirrorRefresh.WithLabelValues("error").Inc()
		return
	}
	MirrorRefresh.WithLabelValues("ok").Inc()
}
