package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpapi "github.com/radieske/lottery-dapp-poc/internal/lottery-web/http"
	"github.com/radieske/lottery-dapp-poc/internal/lottery-web/ws"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/app"
	"github.com/radieske/lottery-dapp-poc/internal/shared/config"
	"github.com/radieske/lottery-dapp-poc/internal/shared/logger"
	"github.com/radieske/lottery-dapp-poc/internal/shared/metrics"
)

func main() {
	cfg := config.LoadFor("lottery-web")

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// nó + carteira + contrato
	chain, err := app.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect ethereum", zap.Error(err))
	}
	defer chain.Close()

	if err := chain.AttachOrDeploy(ctx, cfg); err != nil {
		log.Fatal("failed to attach lottery", zap.Error(err))
	}

	// sinks opcionais (postgres, kafka, redis)
	sinks, err := app.OpenSinks(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open sinks", zap.Error(err))
	}
	defer sinks.Close()

	rt := app.NewRuntime(chain, sinks, cfg, log)

	// hub: cada cliente novo recebe o último snapshot
	hub := ws.NewHub(func(r *http.Request) bool { return true }, func() []ws.Message {
		snap := rt.Mirror.Latest()
		if !snap.FetchedAt.IsZero() {
			ev := snap.Event()
			return []ws.Message{{Type: ws.MsgSnapshot, Snapshot: &ev}}
		}
		// mirror ainda no primeiro ciclo: usa o último snapshot guardado no Redis
		if sinks.Snapshots == nil {
			return nil
		}
		cctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		ev, ok, err := sinks.Snapshots.Cached(cctx, chain.Gateway.LotteryAddress().Hex())
		if err != nil {
			log.Warn("redis snapshot lookup failed", zap.Error(err))
		}
		if !ok {
			return nil
		}
		return []ws.Message{{Type: ws.MsgSnapshot, Snapshot: &ev}}
	}, log)

	// snapshots chegam pelo Redis quando configurado; senão direto do mirror
	if sinks.Redis != nil {
		ws.StartRedisSubscriber(ctx, sinks.Redis, cfg.RedisPubSubChannel, hub, log)
	} else {
		snaps, cancel := rt.Mirror.Subscribe()
		defer cancel()
		go hub.Relay(ctx, snaps)
	}

	go func() {
		if err := rt.Mirror.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("mirror stopped", zap.Error(err))
		}
	}()
	go hub.RunCountdown(ctx, time.Second, func() time.Time { return rt.Mirror.Latest().ClosingTime }, nil)

	// troca de conta: avisa a UI e relê o estado
	changes, cancelChanges := chain.Wallet.Subscribe()
	defer cancelChanges()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ch := <-changes:
				log.Info("account changed", zap.Int("index", ch.Index), zap.String("address", ch.Address.Hex()))
				hub.Broadcast(ws.Message{Type: ws.MsgAccountChanged, Account: ch.Address.Hex()})
				rt.Mirror.Trigger()
			}
		}
	}()

	var history httpapi.History
	if sinks.Journal != nil {
		history = sinks.Journal
	}
	api := httpapi.NewServer(log, rt.Sequencer, chain.Wallet, rt.Mirror, history, hub.HandleWS)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.MetricsPort != "" {
		metricsSrv = metrics.StartMetricsServer(cfg.MetricsPort, chain.Health, log)
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(sctx)
		}
	}()

	log.Info("http server starting",
		zap.String("addr", srv.Addr),
		zap.String("lottery", chain.Gateway.LotteryAddress().Hex()),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server failed", zap.Error(err))
	}
}
