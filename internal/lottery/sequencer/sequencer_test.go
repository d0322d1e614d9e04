package sequencer

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/gateway"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/units"
	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

var (
	owner  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	player = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func tokens(s string) *big.Int {
	v, err := units.Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// fakeGateway registra a ordem de envios e esperas
type fakeGateway struct {
	mu        sync.Mutex
	log       []string // "submit:<op>" / "wait:<op>"
	blockTime time.Time
	price     *big.Int
	fee       *big.Int
	submitErr map[string]error
	waitErr   map[string]error
	closing   time.Time
	approved  *big.Int
	betTimes  uint64
	n         int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		blockTime: time.Unix(1_700_000_000, 0),
		price:     tokens("1"),
		fee:       tokens("0.2"),
		submitErr: map[string]error{},
		waitErr:   map[string]error{},
	}
}

func (f *fakeGateway) submit(op string, from common.Address, params map[string]string) (*gateway.PendingTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, "submit:"+op)
	if err := f.submitErr[op]; err != nil {
		return nil, err
	}
	f.n++
	return &gateway.PendingTransaction{
		ID:        "tx-" + strconv.Itoa(f.n),
		Operation: op,
		Params:    params,
		From:      from,
		Hash:      common.BigToHash(big.NewInt(int64(f.n))),
	}, nil
}

func (f *fakeGateway) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

func (f *fakeGateway) LatestBlockTime(context.Context) (time.Time, error) { return f.blockTime, nil }
func (f *fakeGateway) BetPrice(context.Context) (*big.Int, error)       { return f.price, nil }
func (f *fakeGateway) BetFee(context.Context) (*big.Int, error)         { return f.fee, nil }

func (f *fakeGateway) OpenBets(_ context.Context, from common.Address, closing time.Time) (*gateway.PendingTransaction, error) {
	f.closing = closing
	return f.submit("openBets", from, nil)
}
func (f *fakeGateway) BetMany(_ context.Context, from common.Address, times uint64) (*gateway.PendingTransaction, error) {
	f.betTimes = times
	return f.submit("betMany", from, map[string]string{"times": strconv.FormatUint(times, 10)})
}
func (f *fakeGateway) CloseLottery(_ context.Context, from common.Address) (*gateway.PendingTransaction, error) {
	return f.submit("closeLottery", from, nil)
}
func (f *fakeGateway) PurchaseTokens(_ context.Context, from common.Address, _ *big.Int) (*gateway.PendingTransaction, error) {
	return f.submit("purchaseTokens", from, nil)
}
func (f *fakeGateway) PrizeWithdraw(_ context.Context, from common.Address, _ *big.Int) (*gateway.PendingTransaction, error) {
	return f.submit("prizeWithdraw", from, nil)
}
func (f *fakeGateway) OwnerWithdraw(_ context.Context, from common.Address, _ *big.Int) (*gateway.PendingTransaction, error) {
	return f.submit("ownerWithdraw", from, nil)
}
func (f *fakeGateway) ReturnTokens(_ context.Context, from common.Address, amount *big.Int) (*gateway.PendingTransaction, error) {
	if amount.Sign() <= 0 {
		return nil, gateway.ErrInvalidAmount
	}
	return f.submit("returnTokens", from, nil)
}
func (f *fakeGateway) Approve(_ context.Context, from common.Address, amount *big.Int) (*gateway.PendingTransaction, error) {
	f.approved = amount
	return f.submit("approve", from, nil)
}

func (f *fakeGateway) Wait(_ context.Context, p *gateway.PendingTransaction) (gateway.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, "wait:"+p.Operation)
	r := gateway.Receipt{Operation: p.Operation, Hash: p.Hash, BlockNumber: uint64(10 + f.n)}
	if err := f.waitErr[p.Operation]; err != nil {
		return r, err
	}
	return r, nil
}

type fakeMirror struct {
	allowance *big.Int
	err       error
	triggers  int
}

func (m *fakeMirror) Allowance(context.Context, common.Address) (*big.Int, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.allowance, nil
}

func (m *fakeMirror) Trigger() { m.triggers++ }

type captureRecorder struct{ events []events.TxEvent }

func (c *captureRecorder) Record(_ context.Context, ev events.TxEvent) error {
	c.events = append(c.events, ev)
	return nil
}

func (c *captureRecorder) statuses() []string {
	var out []string
	for _, ev := range c.events {
		out = append(out, ev.Operation+":"+ev.Status)
	}
	return out
}

func newSequencer(gw *fakeGateway, m *fakeMirror) (*Sequencer, *captureRecorder) {
	rec := &captureRecorder{}
	return New(gw, m, rec, nil), rec
}

func TestBetApprovesWhenAllowanceIsZero(t *testing.T) {
	gw := newFakeGateway()
	m := &fakeMirror{allowance: new(big.Int)}
	seq, rec := newSequencer(gw, m)

	out, err := seq.Bet(context.Background(), player, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"submit:approve", "wait:approve", "submit:betMany", "wait:betMany"}, gw.ops())
	assert.Zero(t, gw.approved.Cmp(units.MaxUint256))
	assert.Equal(t, uint64(5), gw.betTimes)

	require.Len(t, out.Steps, 2)
	assert.True(t, out.Approved())
	assert.Equal(t, "betMany", out.Last().Operation)
	assert.Equal(t, 2, m.triggers)

	assert.Equal(t, []string{
		"approve:" + events.TxSubmitted, "approve:" + events.TxConfirmed,
		"betMany:" + events.TxSubmitted, "betMany:" + events.TxConfirmed,
	}, rec.statuses())
	assert.True(t, rec.events[0].Automatic)
	assert.False(t, rec.events[2].Automatic)
	assert.Equal(t, "5", rec.events[2].Params["times"])
}

func TestBetSkipsApprovalWhenAllowanceCoversSpend(t *testing.T) {
	gw := newFakeGateway()
	// 5 * (1 + 0.2) = 6 exatos
	seq, _ := newSequencer(gw, &fakeMirror{allowance: tokens("6")})

	out, err := seq.Bet(context.Background(), player, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"submit:betMany", "wait:betMany"}, gw.ops())
	assert.False(t, out.Approved())
	assert.Len(t, out.Steps, 1)
}

func TestBetApprovesWhenAllowanceJustBelowSpend(t *testing.T) {
	gw := newFakeGateway()
	below := new(big.Int).Sub(tokens("6"), big.NewInt(1))
	seq, _ := newSequencer(gw, &fakeMirror{allowance: below})

	_, err := seq.Bet(context.Background(), player, 5)
	require.NoError(t, err)
	assert.Equal(t, "submit:approve", gw.ops()[0])
}

func TestFailedApprovalNeverSubmitsSpend(t *testing.T) {
	gw := newFakeGateway()
	gw.waitErr["approve"] = &gateway.TransactionFailed{Operation: "approve", Reason: "ERC20: approve from the zero address"}
	seq, rec := newSequencer(gw, &fakeMirror{allowance: new(big.Int)})

	out, err := seq.Bet(context.Background(), player, 5)

	var failed *gateway.TransactionFailed
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "approve", failed.Operation)
	assert.Equal(t, []string{"submit:approve", "wait:approve"}, gw.ops())
	assert.Empty(t, out.Steps)
	assert.Equal(t, []string{"approve:" + events.TxSubmitted, "approve:" + events.TxFailed}, rec.statuses())
	assert.Equal(t, "ERC20: approve from the zero address", rec.events[1].Reason)
}

func TestRejectedApprovalSubmissionNeverSubmitsSpend(t *testing.T) {
	gw := newFakeGateway()
	gw.submitErr["approve"] = &gateway.TransactionFailed{Operation: "approve", Reason: "insufficient funds for gas"}
	seq, rec := newSequencer(gw, &fakeMirror{allowance: new(big.Int)})

	_, err := seq.Burn(context.Background(), player, tokens("1"))
	require.Error(t, err)

	assert.Equal(t, []string{"submit:approve"}, gw.ops())
	require.Len(t, rec.events, 1)
	assert.Equal(t, events.TxFailed, rec.events[0].Status)
	assert.NotEmpty(t, rec.events[0].ID)
}

func TestAllowanceReadFailureAbortsBeforeSubmission(t *testing.T) {
	gw := newFakeGateway()
	seq, _ := newSequencer(gw, &fakeMirror{err: errors.New("connection refused")})

	_, err := seq.Bet(context.Background(), player, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read allowance")
	assert.Empty(t, gw.ops())
}

func TestBurnIsGated(t *testing.T) {
	gw := newFakeGateway()
	seq, _ := newSequencer(gw, &fakeMirror{allowance: tokens("0.5")})

	out, err := seq.Burn(context.Background(), player, tokens("1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"submit:approve", "wait:approve", "submit:returnTokens", "wait:returnTokens"}, gw.ops())
	assert.Equal(t, "returnTokens", out.Last().Operation)
}

func TestValidationErrorsSubmitNothing(t *testing.T) {
	gw := newFakeGateway()
	seq, rec := newSequencer(gw, &fakeMirror{allowance: new(big.Int)})

	_, err := seq.Bet(context.Background(), player, 0)
	assert.ErrorIs(t, err, units.ErrInvalidAmount)

	_, err = seq.Burn(context.Background(), player, new(big.Int))
	assert.ErrorIs(t, err, units.ErrInvalidAmount)

	_, err = seq.OpenBets(context.Background(), owner, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	assert.Empty(t, gw.ops())
	assert.Empty(t, rec.events)
}

func TestOpenBetsUsesBlockTime(t *testing.T) {
	gw := newFakeGateway()
	seq, _ := newSequencer(gw, &fakeMirror{})

	out, err := seq.OpenBets(context.Background(), owner, 3600*time.Second)
	require.NoError(t, err)

	assert.Equal(t, gw.blockTime.Unix()+3600, gw.closing.Unix())
	assert.Equal(t, "openBets", out.Last().Operation)
	assert.Equal(t, []string{"submit:openBets", "wait:openBets"}, gw.ops())
}

func TestUngatedOperationsNeverApprove(t *testing.T) {
	gw := newFakeGateway()
	m := &fakeMirror{err: errors.New("must not be read")}
	seq, _ := newSequencer(gw, m)
	ctx := context.Background()

	_, err := seq.BuyTokens(ctx, player, tokens("1"))
	require.NoError(t, err)
	_, err = seq.CloseBets(ctx, owner)
	require.NoError(t, err)
	_, err = seq.ClaimPrize(ctx, player, tokens("2"))
	require.NoError(t, err)
	_, err = seq.OwnerWithdraw(ctx, owner, tokens("0.4"))
	require.NoError(t, err)
	_, err = seq.Approve(ctx, player, new(big.Int))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"submit:purchaseTokens", "wait:purchaseTokens",
		"submit:closeLottery", "wait:closeLottery",
		"submit:prizeWithdraw", "wait:prizeWithdraw",
		"submit:ownerWithdraw", "wait:ownerWithdraw",
		"submit:approve", "wait:approve",
	}, gw.ops())
	assert.Equal(t, 5, m.triggers)
}

func TestMinedRevertIsReported(t *testing.T) {
	gw := newFakeGateway()
	gw.waitErr["closeLottery"] = &gateway.TransactionFailed{Operation: "closeLottery", Reason: "Too soon to close"}
	m := &fakeMirror{}
	seq, rec := newSequencer(gw, m)

	_, err := seq.CloseBets(context.Background(), owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Too soon to close")
	assert.Zero(t, m.triggers)
	require.Len(t, rec.events, 2)
	assert.Equal(t, "Too soon to close", rec.events[1].Reason)
	assert.Equal(t, rec.events[0].ID, rec.events[1].ID)
}
