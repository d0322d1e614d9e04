package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/internal/lottery-journal/consumer"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/journal"
	"github.com/radieske/lottery-dapp-poc/internal/shared/config"
	"github.com/radieske/lottery-dapp-poc/internal/shared/db"
	"github.com/radieske/lottery-dapp-poc/internal/shared/kafka"
	"github.com/radieske/lottery-dapp-poc/internal/shared/logger"
	"github.com/radieske/lottery-dapp-poc/internal/shared/metrics"
)

// lottery-journal-worker grava no Postgres os eventos de transação publicados
// no Kafka pelo console e pela UI.
func main() {
	cfg := config.LoadFor("lottery-journal-worker")

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	brokers := cfg.Brokers()
	if len(brokers) == 0 || cfg.PostgresDSN == "" {
		log.Fatal("KAFKA_BROKERS and POSTGRES_DSN are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	store := journal.NewPostgres(pg)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("postgres schema", zap.Error(err))
	}

	reader := kafka.NewReader(brokers, cfg.JournalGroupID, cfg.TopicLotteryTx)
	defer reader.Close()

	// Métricas Prometheus para monitoramento do consumo
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_journal_messages_consumed_total", Help: "mensagens consumidas"})
	persist := prometheus.NewCounter(prometheus.CounterOpts{Name: "lottery_journal_db_writes_total", Help: "eventos gravados no journal"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lottery_journal_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, persist, errorsBy)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Sink:       store,
		OnConsumed: func() { consumed.Inc() },
		OnPersist:  func() { persist.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	if cfg.MetricsPort != "" {
		srv := metrics.StartMetricsServer(cfg.MetricsPort, pg.PingContext, log)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	log.Info("journal worker started",
		zap.String("topic", cfg.TopicLotteryTx),
		zap.String("group", cfg.JournalGroupID),
	)
	if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("processor stopped with error", zap.Error(err))
	}
	log.Info("journal worker stopped")
}
