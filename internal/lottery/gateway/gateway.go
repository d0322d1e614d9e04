// Package gateway é o único ponto de contato com o contrato Lottery e o seu
// token de pagamento: leituras via eth_call e escritas como transações
// assinadas localmente.
package gateway

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/units"
)

// Options ajusta gas e espera de recibos
type Options struct {
	GasPerBet      uint64        // 0 = estimativa; >0 = limite fixo por aposta em betMany
	PollInterval   time.Duration // intervalo entre consultas de recibo
	ReceiptTimeout time.Duration
}

// Gateway encapsula as funções externas do Lottery e do LotteryToken
type Gateway struct {
	backend Backend
	signer  Signer
	chainID *big.Int
	opts    Options
	log     *zap.Logger
	now     func() time.Time

	mu      sync.Mutex // serializa nonce/envio
	lottery common.Address
	token   common.Address
}

// New cria um gateway ainda sem contrato; use Attach ou Deploy
func New(backend Backend, signer Signer, chainID *big.Int, opts Options, log *zap.Logger) *Gateway {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = 2 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		backend: backend,
		signer:  signer,
		chainID: new(big.Int).Set(chainID),
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

// Attach liga o gateway a um Lottery já implantado e descobre o token
func (g *Gateway) Attach(ctx context.Context, lottery common.Address) error {
	if lottery == (common.Address{}) {
		return fmt.Errorf("%w: lottery address is zero", ErrInvalidAddress)
	}
	out, err := g.call(ctx, lottery, LotteryABI, "paymentToken")
	if err != nil {
		return fmt.Errorf("read paymentToken: %w", err)
	}
	token := out[0].(common.Address)
	if token == (common.Address{}) {
		return fmt.Errorf("%w: lottery %s has no payment token", ErrInvalidAddress, lottery.Hex())
	}
	g.lottery, g.token = lottery, token
	g.log.Info("attached to lottery", zap.String("lottery", lottery.Hex()), zap.String("token", token.Hex()))
	return nil
}

func (g *Gateway) LotteryAddress() common.Address { return g.lottery }
func (g *Gateway) TokenAddress() common.Address   { return g.token }

// ===== leituras =====

func (g *Gateway) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := g.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %s", method, revertReason(err))
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

func (g *Gateway) callBig(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...any) (*big.Int, error) {
	if err := g.attached(); err != nil {
		return nil, err
	}
	out, err := g.call(ctx, to, contract, method, args...)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

func (g *Gateway) BetsOpen(ctx context.Context) (bool, error) {
	if err := g.attached(); err != nil {
		return false, err
	}
	out, err := g.call(ctx, g.lottery, LotteryABI, "betsOpen")
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (g *Gateway) BetsClosingTime(ctx context.Context) (time.Time, error) {
	v, err := g.callBig(ctx, g.lottery, LotteryABI, "betsClosingTime")
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v.Int64(), 0), nil
}

func (g *Gateway) BetPrice(ctx context.Context) (*big.Int, error) {
	return g.callBig(ctx, g.lottery, LotteryABI, "betPrice")
}

func (g *Gateway) BetFee(ctx context.Context) (*big.Int, error) {
	return g.callBig(ctx, g.lottery, LotteryABI, "betFee")
}

func (g *Gateway) OwnerPool(ctx context.Context) (*big.Int, error) {
	return g.callBig(ctx, g.lottery, LotteryABI, "ownerPool")
}

func (g *Gateway) PrizePool(ctx context.Context) (*big.Int, error) {
	return g.callBig(ctx, g.lottery, LotteryABI, "prizePool")
}

func (g *Gateway) Owner(ctx context.Context) (common.Address, error) {
	if err := g.attached(); err != nil {
		return common.Address{}, err
	}
	out, err := g.call(ctx, g.lottery, LotteryABI, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// Prize é o prêmio acumulado pela conta
func (g *Gateway) Prize(ctx context.Context, account common.Address) (*big.Int, error) {
	if err := validateAddress(account); err != nil {
		return nil, err
	}
	return g.callBig(ctx, g.lottery, LotteryABI, "prize", account)
}

// TokenBalance é o saldo de LotteryToken da conta
func (g *Gateway) TokenBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	if err := validateAddress(account); err != nil {
		return nil, err
	}
	return g.callBig(ctx, g.token, TokenABI, "balanceOf", account)
}

// Allowance é quanto owner autorizou o contrato da loteria a gastar
func (g *Gateway) Allowance(ctx context.Context, owner common.Address) (*big.Int, error) {
	if err := validateAddress(owner); err != nil {
		return nil, err
	}
	return g.callBig(ctx, g.token, TokenABI, "allowance", owner, g.lottery)
}

// NativeBalance é o saldo em wei da conta
func (g *Gateway) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	if err := validateAddress(account); err != nil {
		return nil, err
	}
	return g.backend.BalanceAt(ctx, account, nil)
}

// LatestBlockTime é o timestamp do último bloco (o "agora" da chain)
func (g *Gateway) LatestBlockTime(ctx context.Context) (time.Time, error) {
	head, err := g.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest header: %w", err)
	}
	return time.Unix(int64(head.Time), 0), nil
}

// ===== escritas =====

func (g *Gateway) OpenBets(ctx context.Context, from common.Address, closingTime time.Time) (*PendingTransaction, error) {
	if err := g.attached(); err != nil {
		return nil, err
	}
	if closingTime.Unix() <= 0 {
		return nil, fmt.Errorf("%w: closing time %v", ErrInvalidAmount, closingTime)
	}
	ts := big.NewInt(closingTime.Unix())
	data, err := LotteryABI.Pack("openBets", ts)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, "openBets", map[string]string{"closingTime": ts.String()}, from, &g.lottery, nil, data, 0)
}

func (g *Gateway) BetMany(ctx context.Context, from common.Address, times uint64) (*PendingTransaction, error) {
	if err := g.attached(); err != nil {
		return nil, err
	}
	if times == 0 {
		return nil, fmt.Errorf("%w: bet count must be positive", ErrInvalidAmount)
	}
	data, err := LotteryABI.Pack("betMany", new(big.Int).SetUint64(times))
	if err != nil {
		return nil, err
	}
	// o loop do contrato costuma estourar a estimativa; limite fixo por aposta
	gas := g.opts.GasPerBet * times
	return g.transact(ctx, "betMany", map[string]string{"times": strconv.FormatUint(times, 10)}, from, &g.lottery, nil, data, gas)
}

func (g *Gateway) CloseLottery(ctx context.Context, from common.Address) (*PendingTransaction, error) {
	if err := g.attached(); err != nil {
		return nil, err
	}
	data, err := LotteryABI.Pack("closeLottery")
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, "closeLottery", nil, from, &g.lottery, nil, data, 0)
}

// PurchaseTokens envia value wei em troca de tokens (value * purchaseRatio)
func (g *Gateway) PurchaseTokens(ctx context.Context, from common.Address, value *big.Int) (*PendingTransaction, error) {
	if err := g.attached(); err != nil {
		return nil, err
	}
	if err := validatePositive(value); err != nil {
		return nil, err
	}
	data, err := LotteryABI.Pack("purchaseTokens")
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, "purchaseTokens", map[string]string{"value": units.Format(value)}, from, &g.lottery, value, data, 0)
}

func (g *Gateway) PrizeWithdraw(ctx context.Context, from common.Address, amount *big.Int) (*PendingTransaction, error) {
	return g.amountCall(ctx, "prizeWithdraw", from, amount)
}

func (g *Gateway) OwnerWithdraw(ctx context.Context, from common.Address, amount *big.Int) (*PendingTransaction, error) {
	return g.amountCall(ctx, "ownerWithdraw", from, amount)
}

// ReturnTokens queima tokens devolvendo moeda nativa; exige allowance
func (g *Gateway) ReturnTokens(ctx context.Context, from common.Address, amount *big.Int) (*PendingTransaction, error) {
	return g.amountCall(ctx, "returnTokens", from, amount)
}

// Approve autoriza o contrato da loteria a gastar amount tokens de from
func (g *Gateway) Approve(ctx context.Context, from common.Address, amount *big.Int) (*PendingTransaction, error) {
	if err := g.attached(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 {
		return nil, fmt.Errorf("%w: approve %v", ErrInvalidAmount, amount)
	}
	data, err := TokenABI.Pack("approve", g.lottery, amount)
	if err != nil {
		return nil, err
	}
	params := map[string]string{"spender": g.lottery.Hex(), "value": amount.String()}
	return g.transact(ctx, "approve", params, from, &g.token, nil, data, 0)
}

func (g *Gateway) amountCall(ctx context.Context, method string, from common.Address, amount *big.Int) (*PendingTransaction, error) {
	if err := g.attached(); err != nil {
		return nil, err
	}
	if err := validatePositive(amount); err != nil {
		return nil, err
	}
	data, err := LotteryABI.Pack(method, amount)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, method, map[string]string{"amount": units.Format(amount)}, from, &g.lottery, nil, data, 0)
}

func (g *Gateway) attached() error {
	if g.lottery == (common.Address{}) {
		return ErrNotAttached
	}
	return nil
}

func validatePositive(v *big.Int) error {
	if v == nil || v.Sign() <= 0 || v.BitLen() > 256 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, v)
	}
	return nil
}

func validateAddress(a common.Address) error {
	if a == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	return nil
}
