// Package sequencer compõe as operações de alto nível da loteria a partir das
// chamadas do gateway, inserindo o approve quando um gasto de tokens precisa.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/gateway"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/units"
	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

var ErrInvalidDuration = errors.New("invalid duration")

// errAllowanceInsufficient nunca sai do pacote: só decide se o approve entra
var errAllowanceInsufficient = errors.New("allowance insufficient")

// Gateway são as chamadas de contrato usadas pelo sequencer
type Gateway interface {
	LatestBlockTime(ctx context.Context) (time.Time, error)
	BetPrice(ctx context.Context) (*big.Int, error)
	BetFee(ctx context.Context) (*big.Int, error)

	OpenBets(ctx context.Context, from common.Address, closingTime time.Time) (*gateway.PendingTransaction, error)
	BetMany(ctx context.Context, from common.Address, times uint64) (*gateway.PendingTransaction, error)
	CloseLottery(ctx context.Context, from common.Address) (*gateway.PendingTransaction, error)
	PurchaseTokens(ctx context.Context, from common.Address, value *big.Int) (*gateway.PendingTransaction, error)
	PrizeWithdraw(ctx context.Context, from common.Address, amount *big.Int) (*gateway.PendingTransaction, error)
	OwnerWithdraw(ctx context.Context, from common.Address, amount *big.Int) (*gateway.PendingTransaction, error)
	ReturnTokens(ctx context.Context, from common.Address, amount *big.Int) (*gateway.PendingTransaction, error)
	Approve(ctx context.Context, from common.Address, amount *big.Int) (*gateway.PendingTransaction, error)
	Wait(ctx context.Context, p *gateway.PendingTransaction) (gateway.Receipt, error)
}

// Mirror fornece o allowance atual e recebe pedidos de refresh
type Mirror interface {
	Allowance(ctx context.Context, owner common.Address) (*big.Int, error)
	Trigger()
}

// Recorder recebe o ciclo de vida de cada transação (journal, kafka, métricas)
type Recorder interface {
	Record(ctx context.Context, ev events.TxEvent) error
}

// Outcome lista os recibos de cada passo, na ordem em que foram minerados
type Outcome struct {
	Steps []gateway.Receipt
}

// Last é o recibo da operação principal
func (o Outcome) Last() gateway.Receipt {
	if len(o.Steps) == 0 {
		return gateway.Receipt{}
	}
	return o.Steps[len(o.Steps)-1]
}

// Approved indica se um approve automático precedeu o gasto
func (o Outcome) Approved() bool {
	return len(o.Steps) > 1 && o.Steps[0].Operation == "approve"
}

type Sequencer struct {
	gw     Gateway
	mirror Mirror
	rec    Recorder
	log    *zap.Logger
	now    func() time.Time
}

func New(gw Gateway, mirror Mirror, rec Recorder, log *zap.Logger) *Sequencer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sequencer{gw: gw, mirror: mirror, rec: rec, log: log, now: time.Now}
}

// ===== operações sem gate =====

// OpenBets abre as apostas até o horário do último bloco + duration
func (s *Sequencer) OpenBets(ctx context.Context, owner common.Address, duration time.Duration) (Outcome, error) {
	if duration < time.Second {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}
	now, err := s.gw.LatestBlockTime(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return s.OpenBetsUntil(ctx, owner, now.Add(duration))
}

// OpenBetsUntil abre as apostas com horário de fechamento absoluto
func (s *Sequencer) OpenBetsUntil(ctx context.Context, owner common.Address, closing time.Time) (Outcome, error) {
	return s.single(ctx, "openBets", owner, func() (*gateway.PendingTransaction, error) {
		return s.gw.OpenBets(ctx, owner, closing)
	})
}

func (s *Sequencer) CloseBets(ctx context.Context, from common.Address) (Outcome, error) {
	return s.single(ctx, "closeLottery", from, func() (*gateway.PendingTransaction, error) {
		return s.gw.CloseLottery(ctx, from)
	})
}

// BuyTokens envia value de moeda nativa para purchaseTokens
func (s *Sequencer) BuyTokens(ctx context.Context, from common.Address, value *big.Int) (Outcome, error) {
	return s.single(ctx, "purchaseTokens", from, func() (*gateway.PendingTransaction, error) {
		return s.gw.PurchaseTokens(ctx, from, value)
	})
}

func (s *Sequencer) ClaimPrize(ctx context.Context, from common.Address, amount *big.Int) (Outcome, error) {
	return s.single(ctx, "prizeWithdraw", from, func() (*gateway.PendingTransaction, error) {
		return s.gw.PrizeWithdraw(ctx, from, amount)
	})
}

func (s *Sequencer) OwnerWithdraw(ctx context.Context, owner common.Address, amount *big.Int) (Outcome, error) {
	return s.single(ctx, "ownerWithdraw", owner, func() (*gateway.PendingTransaction, error) {
		return s.gw.OwnerWithdraw(ctx, owner, amount)
	})
}

// Approve explícito (botão da UI); amount 0 revoga
func (s *Sequencer) Approve(ctx context.Context, from common.Address, amount *big.Int) (Outcome, error) {
	return s.single(ctx, "approve", from, func() (*gateway.PendingTransaction, error) {
		return s.gw.Approve(ctx, from, amount)
	})
}

// ===== operações com gate de allowance =====

// Bet aposta times vezes; gasto = times * (betPrice + betFee)
func (s *Sequencer) Bet(ctx context.Context, from common.Address, times uint64) (Outcome, error) {
	if times == 0 {
		return Outcome{}, fmt.Errorf("%w: bet count must be positive", units.ErrInvalidAmount)
	}
	price, err := s.gw.BetPrice(ctx)
	if err != nil {
		return Outcome{}, err
	}
	fee, err := s.gw.BetFee(ctx)
	if err != nil {
		return Outcome{}, err
	}
	spend := new(big.Int).Add(price, fee)
	spend.Mul(spend, new(big.Int).SetUint64(times))

	return s.gated(ctx, "betMany", from, spend, func() (*gateway.PendingTransaction, error) {
		return s.gw.BetMany(ctx, from, times)
	})
}

// Burn devolve amount tokens ao contrato em troca de moeda nativa
func (s *Sequencer) Burn(ctx context.Context, from common.Address, amount *big.Int) (Outcome, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Outcome{}, fmt.Errorf("%w: burn %v", units.ErrInvalidAmount, amount)
	}
	return s.gated(ctx, "returnTokens", from, amount, func() (*gateway.PendingTransaction, error) {
		return s.gw.ReturnTokens(ctx, from, amount)
	})
}

// gated garante allowance >= spend antes de enviar o gasto.
// Falha no approve encerra a operação sem enviar o gasto.
func (s *Sequencer) gated(ctx context.Context, op string, from common.Address, spend *big.Int,
	submit func() (*gateway.PendingTransaction, error)) (Outcome, error) {

	var out Outcome

	switch err := s.checkAllowance(ctx, from, spend); {
	case errors.Is(err, errAllowanceInsufficient):
		r, err := s.step(ctx, "approve", from, true, func() (*gateway.PendingTransaction, error) {
			return s.gw.Approve(ctx, from, units.MaxUint256)
		})
		if err != nil {
			return out, err
		}
		out.Steps = append(out.Steps, r)
	case err != nil:
		return out, err
	}

	r, err := s.step(ctx, op, from, false, submit)
	if err != nil {
		return out, err
	}
	out.Steps = append(out.Steps, r)
	return out, nil
}

func (s *Sequencer) checkAllowance(ctx context.Context, from common.Address, spend *big.Int) error {
	allowance, err := s.mirror.Allowance(ctx, from)
	if err != nil {
		return fmt.Errorf("read allowance: %w", err)
	}
	if allowance.Cmp(spend) < 0 {
		s.log.Debug("allowance below spend, approving",
			zap.String("from", from.Hex()),
			zap.String("allowance", units.Format(allowance)),
			zap.String("spend", units.Format(spend)),
		)
		return errAllowanceInsufficient
	}
	return nil
}

func (s *Sequencer) single(ctx context.Context, op string, from common.Address,
	submit func() (*gateway.PendingTransaction, error)) (Outcome, error) {

	r, err := s.step(ctx, op, from, false, submit)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Steps: []gateway.Receipt{r}}, nil
}

// step envia, aguarda e reporta uma transação.
// Erros de validação voltam direto, sem evento: nada foi enviado.
func (s *Sequencer) step(ctx context.Context, op string, from common.Address, automatic bool,
	submit func() (*gateway.PendingTransaction, error)) (gateway.Receipt, error) {

	p, err := submit()
	if err != nil {
		var failed *gateway.TransactionFailed
		if errors.As(err, &failed) {
			s.record(ctx, events.TxEvent{
				ID:        uuid.NewString(),
				Operation: op,
				From:      from.Hex(),
				Status:    events.TxFailed,
				Reason:    failed.Reason,
				Automatic: automatic,
			})
		}
		return gateway.Receipt{}, err
	}

	ev := events.TxEvent{
		ID:        p.ID,
		Operation: p.Operation,
		Params:    p.Params,
		From:      p.From.Hex(),
		Status:    events.TxSubmitted,
		Hash:      p.Hash.Hex(),
		Automatic: automatic,
	}
	s.record(ctx, ev)

	r, err := s.gw.Wait(ctx, p)
	if err != nil {
		ev.Status = events.TxFailed
		ev.Reason = err.Error()
		var failed *gateway.TransactionFailed
		if errors.As(err, &failed) {
			ev.Reason = failed.Reason
		}
		ev.BlockNumber = r.BlockNumber
		s.record(ctx, ev)
		return gateway.Receipt{}, err
	}

	ev.Status = events.TxConfirmed
	ev.BlockNumber = r.BlockNumber
	s.record(ctx, ev)
	s.mirror.Trigger()
	return r, nil
}

func (s *Sequencer) record(ctx context.Context, ev events.TxEvent) {
	if s.rec == nil {
		return
	}
	ev.TsUnixMs = s.now().UnixMilli()
	// sinks não podem herdar o cancelamento do chamador no meio do registro
	if err := s.rec.Record(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn("record transaction event", zap.String("op", ev.Operation), zap.Error(err))
	}
}
