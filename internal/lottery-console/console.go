// Package console é o menu interativo da loteria: lê uma opção por vez,
// pede os parâmetros, executa via sequencer e volta ao menu.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/mirror"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/sequencer"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/units"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/wallet"
)

// ErrInputClosed encerra o loop quando a entrada acaba sem a opção de saída
var ErrInputClosed = errors.New("input closed")

var errInvalidOption = errors.New("invalid option")

const menu = `Select operation:
 Options:
 [0]: Exit
 [1]: Check state
 [2]: Open bets
 [3]: Top up account tokens
 [4]: Bet with account
 [5]: Close bets
 [6]: Check player prize
 [7]: Withdraw
 [8]: Burn tokens`

type Sequencer interface {
	OpenBets(ctx context.Context, owner common.Address, duration time.Duration) (sequencer.Outcome, error)
	CloseBets(ctx context.Context, from common.Address) (sequencer.Outcome, error)
	BuyTokens(ctx context.Context, from common.Address, value *big.Int) (sequencer.Outcome, error)
	Bet(ctx context.Context, from common.Address, times uint64) (sequencer.Outcome, error)
	ClaimPrize(ctx context.Context, from common.Address, amount *big.Int) (sequencer.Outcome, error)
	OwnerWithdraw(ctx context.Context, owner common.Address, amount *big.Int) (sequencer.Outcome, error)
	Burn(ctx context.Context, from common.Address, amount *big.Int) (sequencer.Outcome, error)
}

// State faz as leituras pontuais exibidas entre as operações
type State interface {
	Read(ctx context.Context, account common.Address) (mirror.Snapshot, error)
}

type Accounts interface {
	Account(index int) (wallet.Account, error)
}

type Options struct {
	PurchaseRatio *big.Int // tokens por unidade nativa
	TokenSymbol   string
	Log           *zap.Logger
}

type Console struct {
	in       *bufio.Reader
	out      io.Writer
	seq      Sequencer
	state    State
	accounts Accounts
	ratio    *big.Int
	symbol   string
	log      *zap.Logger
}

func New(in io.Reader, out io.Writer, seq Sequencer, state State, accounts Accounts, opts Options) *Console {
	if opts.PurchaseRatio == nil || opts.PurchaseRatio.Sign() <= 0 {
		opts.PurchaseRatio = big.NewInt(1)
	}
	if opts.TokenSymbol == "" {
		opts.TokenSymbol = "LT0"
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Console{
		in:       bufio.NewReader(in),
		out:      out,
		seq:      seq,
		state:    state,
		accounts: accounts,
		ratio:    opts.PurchaseRatio,
		symbol:   opts.TokenSymbol,
		log:      opts.Log,
	}
}

// Run executa o menu até a opção 0 (nil) ou até a entrada fechar (ErrInputClosed)
func (c *Console) Run(ctx context.Context) error {
	ops := map[int]func(context.Context) error{
		1: c.checkState,
		2: c.openBets,
		3: c.topUp,
		4: c.bet,
		5: c.closeBets,
		6: c.checkPrize,
		7: c.withdraw,
		8: c.burn,
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		answer, err := c.ask(menu)
		if err != nil {
			return err
		}
		c.println(fmt.Sprintf("Selected: %s", answer))

		option, err := strconv.Atoi(answer)
		if err != nil || option < 0 || option > len(ops) {
			c.fail(fmt.Errorf("%w: %q", errInvalidOption, answer))
			continue
		}
		if option == 0 {
			return nil
		}

		if err := ops[option](ctx); err != nil {
			if errors.Is(err, ErrInputClosed) {
				return err
			}
			c.fail(err)
		}
	}
}

// ===== operações =====

func (c *Console) checkState(ctx context.Context) error {
	s, err := c.state.Read(ctx, common.Address{})
	if err != nil {
		return err
	}
	state := "closed"
	if s.BetsOpen {
		state = "open"
	}
	c.info("The lottery is %s", state)
	if !s.BetsOpen {
		return nil
	}
	c.info("The last block was mined at %s", stamp(s.BlockTime))
	c.info("lottery should close at %s", stamp(s.ClosingTime))
	c.info("Time left: %s", s.Countdown(s.BlockTime))
	return nil
}

func (c *Console) openBets(ctx context.Context) error {
	answer, err := c.ask("Input duration (in seconds)")
	if err != nil {
		return err
	}
	seconds, err := strconv.ParseInt(answer, 10, 64)
	if err != nil || seconds <= 0 {
		return fmt.Errorf("%w: duration %q", sequencer.ErrInvalidDuration, answer)
	}
	owner, err := c.accounts.Account(0)
	if err != nil {
		return err
	}
	out, err := c.seq.OpenBets(ctx, owner.Address, time.Duration(seconds)*time.Second)
	if err != nil {
		return err
	}
	c.success("Bets opened (%s)", out.Last().Hash.Hex())
	return nil
}

func (c *Console) topUp(ctx context.Context) error {
	acc, err := c.askAccount()
	if err != nil {
		return err
	}
	if err := c.displayBalance(ctx, acc); err != nil {
		return err
	}
	amount, err := c.askAmount("Buy how many tokens?")
	if err != nil {
		return err
	}
	value := new(big.Int).Quo(amount, c.ratio)
	out, err := c.seq.BuyTokens(ctx, acc.Address, value)
	if err != nil {
		return err
	}
	c.success("Tokens bought (%s)", out.Last().Hash.Hex())
	if err := c.displayBalance(ctx, acc); err != nil {
		return err
	}
	return c.displayTokenBalance(ctx, acc)
}

func (c *Console) bet(ctx context.Context) error {
	acc, err := c.askAccount()
	if err != nil {
		return err
	}
	if err := c.displayTokenBalance(ctx, acc); err != nil {
		return err
	}
	answer, err := c.ask("Bet how many times?")
	if err != nil {
		return err
	}
	times, err := units.ParseCount(answer)
	if err != nil {
		return err
	}
	out, err := c.seq.Bet(ctx, acc.Address, times)
	if err != nil {
		return err
	}
	c.printSteps(out, "Bets placed")
	return c.displayTokenBalance(ctx, acc)
}

func (c *Console) closeBets(ctx context.Context) error {
	owner, err := c.accounts.Account(0)
	if err != nil {
		return err
	}
	out, err := c.seq.CloseBets(ctx, owner.Address)
	if err != nil {
		return err
	}
	c.success("Bets closed (%s)", out.Last().Hash.Hex())
	return nil
}

func (c *Console) checkPrize(ctx context.Context) error {
	acc, err := c.askAccount()
	if err != nil {
		return err
	}
	s, err := c.state.Read(ctx, acc.Address)
	if err != nil {
		return err
	}
	c.info("The account of address %s has earned a prize of %s Tokens", acc.Address.Hex(), format(s.Prize))
	if s.Prize == nil || s.Prize.Sign() <= 0 {
		return nil
	}

	answer, err := c.ask("Do you want to claim your prize? [Y/N]")
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") {
		return nil
	}
	out, err := c.seq.ClaimPrize(ctx, acc.Address, s.Prize)
	if err != nil {
		return err
	}
	c.success("Prize claimed (%s)", out.Last().Hash.Hex())
	return nil
}

func (c *Console) withdraw(ctx context.Context) error {
	owner, err := c.accounts.Account(0)
	if err != nil {
		return err
	}
	s, err := c.state.Read(ctx, owner.Address)
	if err != nil {
		return err
	}
	c.info("The account of address %s has %s %s", owner.Address.Hex(), format(s.TokenBalance), c.symbol)
	c.info("The owner pool has (%s) Tokens", format(s.OwnerPool))

	amount, err := c.askAmount("Withdraw how many tokens?")
	if err != nil {
		return err
	}
	out, err := c.seq.OwnerWithdraw(ctx, owner.Address, amount)
	if err != nil {
		return err
	}
	c.success("Withdraw confirmed (%s)", out.Last().Hash.Hex())
	return nil
}

func (c *Console) burn(ctx context.Context) error {
	acc, err := c.askAccount()
	if err != nil {
		return err
	}
	if err := c.displayTokenBalance(ctx, acc); err != nil {
		return err
	}
	amount, err := c.askAmount("Burn how many tokens?")
	if err != nil {
		return err
	}
	out, err := c.seq.Burn(ctx, acc.Address, amount)
	if err != nil {
		return err
	}
	c.printSteps(out, "Burn confirmed")
	if err := c.displayBalance(ctx, acc); err != nil {
		return err
	}
	return c.displayTokenBalance(ctx, acc)
}

// ===== exibição =====

func (c *Console) displayBalance(ctx context.Context, acc wallet.Account) error {
	s, err := c.state.Read(ctx, acc.Address)
	if err != nil {
		return err
	}
	c.info("The account of address %s has %s ETH", acc.Address.Hex(), format(s.NativeBalance))
	return nil
}

func (c *Console) displayTokenBalance(ctx context.Context, acc wallet.Account) error {
	s, err := c.state.Read(ctx, acc.Address)
	if err != nil {
		return err
	}
	c.info("The account of address %s has %s %s", acc.Address.Hex(), format(s.TokenBalance), c.symbol)
	return nil
}

// printSteps mostra o approve automático (se houve) e a operação final
func (c *Console) printSteps(out sequencer.Outcome, done string) {
	if out.Approved() {
		c.success("Allowance confirmed (%s)", out.Steps[0].Hash.Hex())
	}
	c.success("%s (%s)", done, out.Last().Hash.Hex())
}

func (c *Console) info(format string, a ...any) {
	fmt.Fprint(c.out, pterm.Info.Sprintfln(format, a...))
}

func (c *Console) success(format string, a ...any) {
	fmt.Fprint(c.out, pterm.Success.Sprintfln(format, a...))
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) fail(err error) {
	c.log.Warn("operation failed", zap.Error(err))
	fmt.Fprint(c.out, pterm.Error.Sprintfln("%s", describe(err)))
}

func stamp(t time.Time) string {
	return t.Local().Format("2006-01-02 : 15:04:05")
}
