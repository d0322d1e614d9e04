// Package mirror mantém uma cópia local do estado do contrato: leituras
// pontuais para o console e um loop de refresh que alimenta a UI.
package mirror

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

// Reader são as leituras do gateway usadas pelo mirror
type Reader interface {
	LotteryAddress() common.Address
	TokenAddress() common.Address
	BetsOpen(ctx context.Context) (bool, error)
	BetsClosingTime(ctx context.Context) (time.Time, error)
	BetPrice(ctx context.Context) (*big.Int, error)
	BetFee(ctx context.Context) (*big.Int, error)
	OwnerPool(ctx context.Context) (*big.Int, error)
	PrizePool(ctx context.Context) (*big.Int, error)
	Owner(ctx context.Context) (common.Address, error)
	Prize(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner common.Address) (*big.Int, error)
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	LatestBlockTime(ctx context.Context) (time.Time, error)
}

// Publisher recebe cada snapshot do loop (ex.: Redis pub/sub)
type Publisher interface {
	PublishSnapshot(ctx context.Context, s events.StateSnapshot) error
}

type Options struct {
	Interval  time.Duration         // default 5s
	Account   func() common.Address // conta ativa a cada refresh; nil = só campos globais
	Publisher Publisher             // opcional
	OnRefresh func(err error)       // opcional (métricas)
	Log       *zap.Logger
}

type Mirror struct {
	r    Reader
	opts Options
	log  *zap.Logger
	now  func() time.Time

	trigger chan struct{}

	mu     sync.RWMutex
	latest Snapshot
	subs   map[chan Snapshot]struct{}
}

func New(r Reader, opts Options) *Mirror {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Mirror{
		r:       r,
		opts:    opts,
		log:     opts.Log,
		now:     time.Now,
		trigger: make(chan struct{}, 1),
		subs:    make(map[chan Snapshot]struct{}),
	}
}

// Read faz uma leitura síncrona completa; a primeira falha aborta
func (m *Mirror) Read(ctx context.Context, account common.Address) (Snapshot, error) {
	s := Snapshot{
		Lottery: m.r.LotteryAddress(),
		Token:   m.r.TokenAddress(),
		Account: account,
	}
	var err error

	if s.Owner, err = m.r.Owner(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("owner: %w", err)
	}
	if s.BetsOpen, err = m.r.BetsOpen(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("betsOpen: %w", err)
	}
	if s.ClosingTime, err = m.r.BetsClosingTime(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("betsClosingTime: %w", err)
	}
	if s.BlockTime, err = m.r.LatestBlockTime(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.BetPrice, err = m.r.BetPrice(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("betPrice: %w", err)
	}
	if s.BetFee, err = m.r.BetFee(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("betFee: %w", err)
	}
	if s.OwnerPool, err = m.r.OwnerPool(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("ownerPool: %w", err)
	}
	if s.PrizePool, err = m.r.PrizePool(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("prizePool: %w", err)
	}

	if account != (common.Address{}) {
		if s.NativeBalance, err = m.r.NativeBalance(ctx, account); err != nil {
			return Snapshot{}, fmt.Errorf("balance: %w", err)
		}
		if s.TokenBalance, err = m.r.TokenBalance(ctx, account); err != nil {
			return Snapshot{}, fmt.Errorf("token balance: %w", err)
		}
		if s.Allowance, err = m.r.Allowance(ctx, account); err != nil {
			return Snapshot{}, fmt.Errorf("allowance: %w", err)
		}
		if s.Prize, err = m.r.Prize(ctx, account); err != nil {
			return Snapshot{}, fmt.Errorf("prize: %w", err)
		}
	}

	s.FetchedAt = m.now()
	return s, nil
}

// Allowance lê o allowance atual direto do contrato, sem cache
func (m *Mirror) Allowance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return m.r.Allowance(ctx, owner)
}

// Trigger pede um refresh imediato ao loop; chamadas repetidas se fundem
func (m *Mirror) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Latest devolve o último snapshot (com Err se o último refresh falhou)
func (m *Mirror) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Subscribe registra um canal que recebe cada snapshot; o mais recente vence
// quando o consumidor atrasa.
func (m *Mirror) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
		})
	}
}

// Run atualiza no intervalo configurado e a cada Trigger até ctx terminar
func (m *Mirror) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-m.trigger:
		}
		m.Refresh(ctx)
	}
}

// Refresh executa um ciclo: lê, guarda, distribui
func (m *Mirror) Refresh(ctx context.Context) Snapshot {
	var account common.Address
	if m.opts.Account != nil {
		account = m.opts.Account()
	}

	snap, err := m.Read(ctx, account)
	if m.opts.OnRefresh != nil {
		m.opts.OnRefresh(err)
	}

	m.mu.Lock()
	if err != nil {
		m.log.Warn("mirror refresh failed", zap.Error(err))
		snap = m.latest
		snap.Err = err
		snap.FetchedAt = m.now()
		if snap.Account != account {
			// conta trocou: dados por conta antigos não servem mais
			snap.Account = account
			snap.NativeBalance, snap.TokenBalance, snap.Allowance, snap.Prize = nil, nil, nil, nil
		}
	}
	m.latest = snap
	subs := make([]chan Snapshot, 0, len(m.subs))
	for ch := range m.subs {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	for _, ch := range subs {
		deliver(ch, snap)
	}

	if m.opts.Publisher != nil {
		if err := m.opts.Publisher.PublishSnapshot(ctx, snap.Event()); err != nil {
			m.log.Warn("snapshot publish failed", zap.Error(err))
		}
	}
	return snap
}

// deliver nunca bloqueia: descarta o snapshot pendente e coloca o novo
func deliver(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
