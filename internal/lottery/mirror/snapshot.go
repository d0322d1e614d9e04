package mirror

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/units"
	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

// Snapshot é uma leitura completa do contrato para uma conta
type Snapshot struct {
	Lottery     common.Address
	Token       common.Address
	Owner       common.Address
	BetsOpen    bool
	ClosingTime time.Time
	BlockTime   time.Time
	BetPrice    *big.Int
	BetFee      *big.Int
	OwnerPool   *big.Int
	PrizePool   *big.Int

	// campos por conta; vazios quando Account é zero
	Account       common.Address
	NativeBalance *big.Int
	TokenBalance  *big.Int
	Allowance     *big.Int
	Prize         *big.Int

	FetchedAt time.Time
	Err       error // falha do último refresh; os demais campos são os da leitura anterior
}

// Countdown do fechamento visto a partir de now
func (s Snapshot) Countdown(now time.Time) string { return Countdown(s.ClosingTime, now) }

// Event converte para o formato publicado no Redis e no WebSocket
func (s Snapshot) Event() events.StateSnapshot {
	ev := events.StateSnapshot{
		Lottery:   s.Lottery.Hex(),
		Token:     s.Token.Hex(),
		Owner:     s.Owner.Hex(),
		BetsOpen:  s.BetsOpen,
		BetPrice:  units.Format(s.BetPrice),
		BetFee:    units.Format(s.BetFee),
		OwnerPool: units.Format(s.OwnerPool),
		PrizePool: units.Format(s.PrizePool),
		FetchedAt: s.FetchedAt,
	}
	if !s.ClosingTime.IsZero() {
		ev.ClosingTime = s.ClosingTime.Unix()
	}
	if !s.BlockTime.IsZero() {
		ev.BlockTime = s.BlockTime.Unix()
	}
	if s.Account != (common.Address{}) {
		ev.Account = s.Account.Hex()
		ev.Balance = units.Format(s.NativeBalance)
		ev.TokenBalance = units.Format(s.TokenBalance)
		ev.Allowance = units.Format(s.Allowance)
		ev.Prize = units.Format(s.Prize)
	}
	if s.Err != nil {
		ev.Error = s.Err.Error()
	}
	return ev
}
