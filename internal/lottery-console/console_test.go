package console

import (
	"bytes"
	"context"
	"math/big"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/gateway"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/mirror"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/sequencer"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/units"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/wallet"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

var (
	ownerAddr  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	playerAddr = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	blockTime  = time.Unix(1_700_000_000, 0)
)

func tokens(s string) *big.Int {
	v, err := units.Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

type call struct {
	op     string
	from   common.Address
	amount *big.Int
	times  uint64
	dur    time.Duration
}

type fakeSequencer struct {
	calls   []call
	state   *fakeState
	err     error
	approve bool
}

func (f *fakeSequencer) outcome(op string) (sequencer.Outcome, error) {
	if f.err != nil {
		return sequencer.Outcome{}, f.err
	}
	var out sequencer.Outcome
	if f.approve {
		out.Steps = append(out.Steps, gateway.Receipt{Operation: "approve", Hash: common.HexToHash("0xa1")})
	}
	out.Steps = append(out.Steps, gateway.Receipt{Operation: op, Hash: common.HexToHash("0xb2")})
	return out, nil
}

func (f *fakeSequencer) OpenBets(_ context.Context, owner common.Address, d time.Duration) (sequencer.Outcome, error) {
	f.calls = append(f.calls, call{op: "openBets", from: owner, dur: d})
	if f.err == nil && f.state != nil {
		f.state.open = true
		f.state.closing = blockTime.Add(d)
	}
	return f.outcome("openBets")
}
func (f *fakeSequencer) CloseBets(_ context.Context, from common.Address) (sequencer.Outcome, error) {
	f.calls = append(f.calls, call{op: "closeLottery", from: from})
	return f.outcome("closeLottery")
}
func (f *fakeSequencer) BuyTokens(_ context.Context, from common.Address, v *big.Int) (sequencer.Outcome, error) {
	f.calls = append(f.calls, call{op: "purchaseTokens", from: from, amount: v})
	return f.outcome("purchaseTokens")
}
func (f *fakeSequencer) Bet(_ context.Context, from common.Address, times uint64) (sequencer.Outcome, error) {
	f.calls = append(f.calls, call{op: "betMany", from: from, times: times})
	return f.outcome("betMany")
}
func (f *fakeSequencer) ClaimPrize(_ context.Context, from common.Address, v *big.Int) (sequencer.Outcome, error) {
	f.calls = append(f.calls, call{op: "prizeWithdraw", from: from, amount: v})
	return f.outcome("prizeWithdraw")
}
func (f *fakeSequencer) OwnerWithdraw(_ context.Context, owner common.Address, v *big.Int) (sequencer.Outcome, error) {
	f.calls = append(f.calls, call{op: "ownerWithdraw", from: owner, amount: v})
	return f.outcome("ownerWithdraw")
}
func (f *fakeSequencer) Burn(_ context.Context, from common.Address, v *big.Int) (sequencer.Outcome, error) {
	f.calls = append(f.calls, call{op: "returnTokens", from: from, amount: v})
	return f.outcome("returnTokens")
}

type fakeState struct {
	open    bool
	closing time.Time
	prize   *big.Int
}

func (f *fakeState) Read(_ context.Context, account common.Address) (mirror.Snapshot, error) {
	return mirror.Snapshot{
		Account:       account,
		BetsOpen:      f.open,
		ClosingTime:   f.closing,
		BlockTime:     blockTime,
		OwnerPool:     tokens("0.4"),
		NativeBalance: tokens("100"),
		TokenBalance:  tokens("10"),
		Prize:         f.prize,
	}, nil
}

type fakeAccounts []common.Address

func (f fakeAccounts) Account(i int) (wallet.Account, error) {
	if i < 0 || i >= len(f) {
		return wallet.Account{}, wallet.ErrUnknownAccount
	}
	return wallet.Account{Index: i, Address: f[i]}, nil
}

func run(t *testing.T, input string, seq *fakeSequencer, state *fakeState, opts Options) (string, error) {
	t.Helper()
	if state == nil {
		state = &fakeState{}
	}
	seq.state = state
	var out bytes.Buffer
	c := New(strings.NewReader(input), &out, seq, state, fakeAccounts{ownerAddr, playerAddr}, opts)
	err := c.Run(context.Background())
	return out.String(), err
}

func TestExitOption(t *testing.T) {
	out, err := run(t, "0\n", &fakeSequencer{}, nil, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "[8]: Burn tokens")
	assert.Contains(t, out, "Selected: 0")
}

func TestClosedInputFails(t *testing.T) {
	_, err := run(t, "", &fakeSequencer{}, nil, Options{})
	assert.ErrorIs(t, err, ErrInputClosed)

	// entrada acaba no meio de uma operação
	seq := &fakeSequencer{}
	_, err = run(t, "4\n1\n", seq, nil, Options{})
	assert.ErrorIs(t, err, ErrInputClosed)
	assert.Empty(t, seq.calls)
}

func TestInvalidOptionsReturnToMenu(t *testing.T) {
	out, err := run(t, "9\nabc\n-1\n0\n", &fakeSequencer{}, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "invalid option"))
	assert.Equal(t, 4, strings.Count(out, "Select operation:"))
}

func TestOpenBetsThenCheckStateReportsOpen(t *testing.T) {
	seq := &fakeSequencer{}
	state := &fakeState{}

	out, err := run(t, "1\n2\n3600\n1\n0\n", seq, state, Options{})
	require.NoError(t, err)

	require.Len(t, seq.calls, 1)
	assert.Equal(t, ownerAddr, seq.calls[0].from)
	assert.Equal(t, 3600*time.Second, seq.calls[0].dur)

	first := strings.Index(out, "The lottery is closed")
	second := strings.Index(out, "The lottery is open")
	require.NotEqual(t, -1, first)
	require.Greater(t, second, first)
	assert.Contains(t, out, "Bets opened (")
	assert.Contains(t, out, "Time left: 1h 0m 0s")
}

func TestOpenBetsRejectsBadDuration(t *testing.T) {
	seq := &fakeSequencer{}
	out, err := run(t, "2\nsoon\n2\n0\n0\n", seq, nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, seq.calls)
	assert.Equal(t, 2, strings.Count(out, "invalid input"))
}

func TestCheckPrizeZeroNeverPrompts(t *testing.T) {
	seq := &fakeSequencer{}
	out, err := run(t, "6\n1\n0\n", seq, &fakeState{prize: new(big.Int)}, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "has earned a prize of 0 Tokens")
	assert.NotContains(t, out, "[Y/N]")
	assert.Empty(t, seq.calls)
}

func TestCheckPrizeOnlyClaimsOnYes(t *testing.T) {
	state := &fakeState{prize: tokens("2.4")}

	seq := &fakeSequencer{}
	_, err := run(t, "6\n1\nn\n6\n1\nyes\n0\n", seq, state, Options{})
	require.NoError(t, err)
	assert.Empty(t, seq.calls)

	seq = &fakeSequencer{}
	out, err := run(t, "6\n1\nY\n0\n", seq, state, Options{})
	require.NoError(t, err)
	require.Len(t, seq.calls, 1)
	assert.Equal(t, "prizeWithdraw", seq.calls[0].op)
	assert.Equal(t, playerAddr, seq.calls[0].from)
	assert.Zero(t, seq.calls[0].amount.Cmp(tokens("2.4")))
	assert.Contains(t, out, "Prize claimed (")
}

func TestBetPrintsApprovalAndBet(t *testing.T) {
	seq := &fakeSequencer{approve: true}
	out, err := run(t, "4\n1\n5\n0\n", seq, nil, Options{})
	require.NoError(t, err)

	require.Len(t, seq.calls, 1)
	assert.Equal(t, uint64(5), seq.calls[0].times)
	allow := strings.Index(out, "Allowance confirmed (")
	bets := strings.Index(out, "Bets placed (")
	require.NotEqual(t, -1, allow)
	assert.Greater(t, bets, allow)
	assert.Contains(t, out, "has 10 LT0")
}

func TestFailureReturnsToMenu(t *testing.T) {
	seq := &fakeSequencer{err: &gateway.TransactionFailed{Operation: "betMany", Reason: "Bets are closed"}}
	out, err := run(t, "4\n1\n5\n0\n", seq, nil, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "betMany failed: Bets are closed")
	assert.Equal(t, 2, strings.Count(out, "Select operation:"))
}

func TestTopUpDividesByRatio(t *testing.T) {
	seq := &fakeSequencer{}
	out, err := run(t, "3\n1\n10\n0\n", seq, nil, Options{PurchaseRatio: big.NewInt(2), TokenSymbol: "LT1"})
	require.NoError(t, err)

	require.Len(t, seq.calls, 1)
	assert.Zero(t, seq.calls[0].amount.Cmp(tokens("5")))
	assert.Contains(t, out, "has 100 ETH")
	assert.Contains(t, out, "has 10 LT1")
	assert.Contains(t, out, "Tokens bought (")
}

func TestWithdrawUsesOwnerAccount(t *testing.T) {
	seq := &fakeSequencer{}
	out, err := run(t, "7\n0.4\n0\n", seq, nil, Options{})
	require.NoError(t, err)

	require.Len(t, seq.calls, 1)
	assert.Equal(t, ownerAddr, seq.calls[0].from)
	assert.Contains(t, out, "The owner pool has (0.4) Tokens")
	assert.Contains(t, out, "Withdraw confirmed (")
}

func TestBurnRejectsInvalidAmount(t *testing.T) {
	seq := &fakeSequencer{}
	out, err := run(t, "8\n1\n-1\n8\n7\n0\n", seq, nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, seq.calls)
	assert.Contains(t, out, "invalid input: invalid amount")
	assert.Contains(t, out, "unknown account")
}

func TestCloseBets(t *testing.T) {
	seq := &fakeSequencer{approve: false}
	out, err := run(t, "5\n0\n", seq, nil, Options{})
	require.NoError(t, err)
	require.Len(t, seq.calls, 1)
	assert.Equal(t, "closeLottery", seq.calls[0].op)
	assert.Contains(t, out, "Bets closed (")
}
