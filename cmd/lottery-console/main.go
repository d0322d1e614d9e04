package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	console "github.com/radieske/lottery-dapp-poc/internal/lottery-console"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/app"
	"github.com/radieske/lottery-dapp-poc/internal/shared/config"
	"github.com/radieske/lottery-dapp-poc/internal/shared/logger"
	"github.com/radieske/lottery-dapp-poc/internal/shared/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "lottery-console:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadFor("lottery-console")

	// o console escreve no stdout; logs de info só atrapalham o menu
	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, level)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chain, err := app.Connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer chain.Close()

	if err := chain.AttachOrDeploy(ctx, cfg); err != nil {
		return err
	}

	sinks, err := app.OpenSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sinks.Close()

	if cfg.MetricsPort != "" {
		srv := metrics.StartMetricsServer(cfg.MetricsPort, chain.Health, log)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	rt := app.NewRuntime(chain, sinks, cfg, log)

	ratio, ok := new(big.Int).SetString(strings.TrimSpace(cfg.PurchaseRatio), 10)
	if !ok {
		ratio = big.NewInt(1)
	}

	c := console.New(os.Stdin, os.Stdout, rt.Sequencer, rt.Mirror, chain.Wallet, console.Options{
		PurchaseRatio: ratio,
		TokenSymbol:   cfg.TokenSymbol,
		Log:           log,
	})

	log.Info("console ready",
		zap.String("lottery", chain.Gateway.LotteryAddress().Hex()),
		zap.String("token", chain.Gateway.TokenAddress().Hex()),
	)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
