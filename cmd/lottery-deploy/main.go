package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/app"
	"github.com/radieske/lottery-dapp-poc/internal/shared/config"
	"github.com/radieske/lottery-dapp-poc/internal/shared/logger"
)

// lottery-deploy implanta o Lottery (e o token criado pelo construtor) e
// imprime os endereços para usar em LOTTERY_ADDRESS.
func main() {
	cfg := config.LoadFor("lottery-deploy")

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	if cfg.BytecodeFile == "" {
		log.Fatal("LOTTERY_BYTECODE_FILE is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chain, err := app.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	defer chain.Close()

	rcpt, err := chain.Deploy(ctx, cfg)
	if err != nil {
		log.Fatal("deploy failed", zap.Error(err))
	}

	log.Info("deploy confirmed",
		zap.String("tx", rcpt.Hash.Hex()),
		zap.Uint64("block", rcpt.BlockNumber),
		zap.Uint64("gas_used", rcpt.GasUsed),
	)
	fmt.Printf("LOTTERY_ADDRESS=%s\n", chain.Gateway.LotteryAddress().Hex())
	fmt.Printf("LOTTERY_TOKEN_ADDRESS=%s\n", chain.Gateway.TokenAddress().Hex())
}
