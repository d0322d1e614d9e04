// Package app monta as dependências comuns aos binários: nó, carteira,
// gateway, sinks opcionais, mirror e sequencer.
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/gateway"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/journal"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/mirror"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/pubsub"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/sequencer"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/units"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/wallet"
	"github.com/radieske/lottery-dapp-poc/internal/shared/cache"
	"github.com/radieske/lottery-dapp-poc/internal/shared/config"
	"github.com/radieske/lottery-dapp-poc/internal/shared/db"
	"github.com/radieske/lottery-dapp-poc/internal/shared/eth"
	"github.com/radieske/lottery-dapp-poc/internal/shared/kafka"
	"github.com/radieske/lottery-dapp-poc/internal/shared/metrics"
)

var ErrNoContract = errors.New("set LOTTERY_ADDRESS or LOTTERY_BYTECODE_FILE")

// Chain é a conexão com o nó e a carteira local
type Chain struct {
	Client  *ethclient.Client
	ChainID *big.Int
	Wallet  *wallet.Provider
	Gateway *gateway.Gateway
}

// Connect disca o nó, carrega as chaves e cria o gateway (ainda sem contrato)
func Connect(ctx context.Context, cfg config.Config, log *zap.Logger) (*Chain, error) {
	accs, err := wallet.ParseKeys(cfg.PrivateKeys)
	if err != nil {
		return nil, err
	}

	client, chainID, err := eth.ConnectEthereum(ctx, cfg.RPCURL, cfg.ChainID)
	if err != nil {
		return nil, err
	}

	w, err := wallet.NewProvider(accs, chainID, client)
	if err != nil {
		client.Close()
		return nil, err
	}

	gw := gateway.New(client, w, chainID, gateway.Options{
		GasPerBet:      cfg.GasPerBet,
		ReceiptTimeout: cfg.ReceiptTimeout,
	}, log)

	log.Info("ethereum connected",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.Int("accounts", len(accs)),
	)
	return &Chain{Client: client, ChainID: chainID, Wallet: w, Gateway: gw}, nil
}

// Health consulta o nó (usado no /healthz)
func (c *Chain) Health(ctx context.Context) error {
	_, err := c.Client.BlockNumber(ctx)
	return err
}

func (c *Chain) Close() { c.Client.Close() }

// AttachOrDeploy usa LOTTERY_ADDRESS quando definido; senão implanta a partir do bytecode
func (c *Chain) AttachOrDeploy(ctx context.Context, cfg config.Config) error {
	if cfg.LotteryAddress != "" {
		if !common.IsHexAddress(cfg.LotteryAddress) {
			return fmt.Errorf("%w: LOTTERY_ADDRESS %q", gateway.ErrInvalidAddress, cfg.LotteryAddress)
		}
		return c.Gateway.Attach(ctx, common.HexToAddress(cfg.LotteryAddress))
	}
	if cfg.BytecodeFile == "" {
		return ErrNoContract
	}
	_, err := c.Deploy(ctx, cfg)
	return err
}

// Deploy implanta um novo Lottery com a conta 0 usando os parâmetros da config
func (c *Chain) Deploy(ctx context.Context, cfg config.Config) (gateway.Receipt, error) {
	code, err := ReadBytecode(cfg.BytecodeFile)
	if err != nil {
		return gateway.Receipt{}, err
	}
	params, err := DeployParams(cfg)
	if err != nil {
		return gateway.Receipt{}, err
	}
	deployer, err := c.Wallet.Account(0)
	if err != nil {
		return gateway.Receipt{}, err
	}
	return c.Gateway.Deploy(ctx, deployer.Address, code, params)
}

// DeployParams converte os valores decimais da config em argumentos do construtor
func DeployParams(cfg config.Config) (gateway.DeployParams, error) {
	ratio, ok := new(big.Int).SetString(strings.TrimSpace(cfg.PurchaseRatio), 10)
	if !ok || ratio.Sign() <= 0 {
		return gateway.DeployParams{}, fmt.Errorf("%w: LOTTERY_PURCHASE_RATIO %q", units.ErrInvalidAmount, cfg.PurchaseRatio)
	}
	price, err := units.Parse(cfg.BetPrice)
	if err != nil {
		return gateway.DeployParams{}, fmt.Errorf("LOTTERY_BET_PRICE: %w", err)
	}
	fee, err := units.Parse(cfg.BetFee)
	if err != nil {
		return gateway.DeployParams{}, fmt.Errorf("LOTTERY_BET_FEE: %w", err)
	}
	return gateway.DeployParams{
		TokenName:     cfg.TokenName,
		TokenSymbol:   cfg.TokenSymbol,
		PurchaseRatio: ratio,
		BetPrice:      price,
		BetFee:        fee,
	}, nil
}

// ReadBytecode aceita hex puro (com ou sem 0x) ou um artefato JSON com campo "bytecode"
func ReadBytecode(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bytecode: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "{") {
		var artifact struct {
			Bytecode string `json:"bytecode"`
		}
		if err := json.Unmarshal(raw, &artifact); err != nil {
			return nil, fmt.Errorf("parse artifact %s: %w", path, err)
		}
		text = artifact.Bytecode
	}
	code := common.FromHex(text)
	if len(code) == 0 {
		return nil, fmt.Errorf("%s: empty bytecode", path)
	}
	return code, nil
}

// Sinks são os destinos opcionais; campos nil quando desabilitados
type Sinks struct {
	Recorder  *journal.Fanout
	Journal   *journal.Postgres
	Redis     *redis.Client
	Snapshots *pubsub.RedisBroadcaster

	pg     *sql.DB
	writer *kafkago.Writer
}

// OpenSinks conecta os sinks configurados. Logs e métricas estão sempre ligados.
func OpenSinks(ctx context.Context, cfg config.Config, log *zap.Logger) (*Sinks, error) {
	s := &Sinks{
		Recorder: journal.NewFanout(log, journal.Logger{Log: log}, metrics.TxRecorder{}),
	}

	if cfg.PostgresDSN != "" {
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.pg = pg
		s.Journal = journal.NewPostgres(pg)
		if err := s.Journal.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.Recorder.Add(s.Journal)
		log.Info("postgres journal enabled")
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		s.writer = kafka.NewWriter(brokers, cfg.TopicLotteryTx)
		s.Recorder.Add(journal.NewKafkaPublisher(s.writer, cfg.TopicLotteryTx))
		log.Info("kafka tx events enabled", zap.String("topic", cfg.TopicLotteryTx))
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Redis = rdb
		s.Snapshots = pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel, snapshotTTL(cfg.RefreshInterval))
		log.Info("redis snapshot broadcast enabled", zap.String("channel", cfg.RedisPubSubChannel))
	}

	return s, nil
}

// Publisher do mirror; nil sem Redis
func (s *Sinks) Publisher() mirror.Publisher {
	if s.Snapshots == nil {
		return nil
	}
	return s.Snapshots
}

// snapshotTTL mantém o último snapshot por alguns ciclos do mirror
func snapshotTTL(interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return 3 * interval
}

func (s *Sinks) Close() {
	if s.writer != nil {
		_ = s.writer.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.pg != nil {
		_ = s.pg.Close()
	}
}

// Runtime junta mirror e sequencer sobre um gateway já ligado ao contrato
type Runtime struct {
	Mirror    *mirror.Mirror
	Sequencer *sequencer.Sequencer
}

func NewRuntime(c *Chain, sinks *Sinks, cfg config.Config, log *zap.Logger) *Runtime {
	m := mirror.New(c.Gateway, mirror.Options{
		Interval:  cfg.RefreshInterval,
		Account:   func() common.Address { return c.Wallet.Selected().Address },
		Publisher: sinks.Publisher(),
		OnRefresh: metrics.ObserveRefresh,
		Log:       log,
	})
	return &Runtime{
		Mirror:    m,
		Sequencer: sequencer.New(c.Gateway, m, sinks.Recorder, log),
	}
}
