package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	ctopics "github.com/radieske/lottery-dapp-poc/pkg/contracts/topics"
)

// Config centraliza variáveis de ambiente e parâmetros de execução dos binários
// Inclui nó RPC, contas, endereço do contrato, sinks opcionais e portas
type Config struct {
	Env         string // "local", "dev", "prod"
	ServiceName string // ex: "lottery-console", "lottery-web", ...
	LogLevel    string // "debug", "info", "warn", ...

	// Nó Ethereum
	RPCURL  string
	ChainID int64 // 0 = pergunta ao nó

	// Contas (chaves hex separadas por vírgula); índice 0 é o owner/deployer
	PrivateKeys []string

	// Contrato da loteria
	LotteryAddress string // vazio = deploy a partir do bytecode
	BytecodeFile   string
	TokenName      string
	TokenSymbol    string
	PurchaseRatio  string
	BetPrice       string // decimal, 18 casas
	BetFee         string // decimal, 18 casas
	GasPerBet      uint64 // 0 = estimativa do nó

	RefreshInterval time.Duration
	ReceiptTimeout  time.Duration

	// Sinks opcionais (vazio desabilita)
	PostgresDSN  string
	RedisAddr    string
	KafkaBrokers string // "a:9092,b:9092"

	// Tópicos/canais
	TopicLotteryTx     string
	RedisPubSubChannel string
	JournalGroupID     string // consumer group do lottery-journal-worker

	// Portas do serviço atual
	HTTPPort    string // Porta pública (UI)
	MetricsPort string // Porta exclusiva para /metrics e /healthz (vazio desabilita)
}

// Load carrega variáveis de ambiente e define defaults para cada binário
// Resolve portas conforme o SERVICE_NAME
func Load() Config { return LoadFor("") }

// LoadFor é o Load de um binário específico; SERVICE_NAME ainda tem precedência
func LoadFor(service string) Config {
	svc := getEnv("SERVICE_NAME", service)
	env := getEnv("ENV", "local")

	cfg := Config{
		Env:         env,
		ServiceName: svc,
		LogLevel:    getEnv("LOG_LEVEL", ""),

		RPCURL:  getEnv("ETH_RPC_URL", "http://127.0.0.1:8545"),
		ChainID: getEnvInt("ETH_CHAIN_ID", 0),

		PrivateKeys: splitList(getEnv("LOTTERY_PRIVATE_KEYS", "")),

		LotteryAddress: getEnv("LOTTERY_ADDRESS", ""),
		BytecodeFile:   getEnv("LOTTERY_BYTECODE_FILE", ""),
		TokenName:      getEnv("LOTTERY_TOKEN_NAME", "LotteryToken"),
		TokenSymbol:    getEnv("LOTTERY_TOKEN_SYMBOL", "LT0"),
		PurchaseRatio:  getEnv("LOTTERY_PURCHASE_RATIO", "1"),
		BetPrice:       getEnv("LOTTERY_BET_PRICE", "1"),
		BetFee:         getEnv("LOTTERY_BET_FEE", "0.2"),
		GasPerBet:      uint64(getEnvInt("LOTTERY_GAS_PER_BET", 50000)),

		RefreshInterval: getEnvDuration("LOTTERY_REFRESH_INTERVAL", 5*time.Second),
		ReceiptTimeout:  getEnvDuration("LOTTERY_RECEIPT_TIMEOUT", 2*time.Minute),

		PostgresDSN:  getEnv("POSTGRES_DSN", ""),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),

		TopicLotteryTx:     getEnv("KAFKA_TOPIC_LOTTERY_TX", ctopics.LotteryTx),
		RedisPubSubChannel: getEnv("REDIS_PUBSUB_CHANNEL", ctopics.LotteryStateBroadcast),
		JournalGroupID:     getEnv("KAFKA_GROUP_JOURNAL", "lottery-journal"),
	}

	// Define portas padrão para cada binário
	switch svc {
	case "lottery-web":
		cfg.HTTPPort = getEnv("HTTP_PORT_WEB", "4200")
		cfg.MetricsPort = getEnv("METRICS_PORT_WEB", "9100")
	case "lottery-console":
		cfg.HTTPPort = "" // console não expõe HTTP público
		cfg.MetricsPort = getEnv("METRICS_PORT_CONSOLE", "")
	case "lottery-journal-worker":
		cfg.HTTPPort = ""
		cfg.MetricsPort = getEnv("METRICS_PORT_JOURNAL", "9101")
	case "lottery-deploy":
		cfg.HTTPPort = ""
		cfg.MetricsPort = ""
	default:
		cfg.HTTPPort = getEnv("HTTP_PORT", "8080")
		cfg.MetricsPort = getEnv("METRICS_PORT", "9095")
	}

	return cfg
}

// Brokers retorna a lista de brokers Kafka já separada
func (c Config) Brokers() []string { return splitList(c.KafkaBrokers) }

// getEnv retorna o valor da variável de ambiente ou o default
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvInt(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// splitList separa "a, b,,c" em ["a","b","c"]
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
