package console

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/gateway"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/sequencer"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/units"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/wallet"
)

// ask mostra o prompt e lê uma linha sem espaços nas pontas
func (c *Console) ask(prompt string) (string, error) {
	c.println(prompt)
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrInputClosed
		}
		return "", fmt.Errorf("%w: %v", ErrInputClosed, err)
	}
	return strings.TrimSpace(line), nil
}

func (c *Console) askAccount() (wallet.Account, error) {
	answer, err := c.ask("What account (index) to use?")
	if err != nil {
		return wallet.Account{}, err
	}
	index, err := strconv.Atoi(answer)
	if err != nil {
		return wallet.Account{}, fmt.Errorf("%w: index %q", wallet.ErrUnknownAccount, answer)
	}
	return c.accounts.Account(index)
}

func (c *Console) askAmount(prompt string) (*big.Int, error) {
	answer, err := c.ask(prompt)
	if err != nil {
		return nil, err
	}
	return units.Parse(answer)
}

func format(v *big.Int) string { return units.Format(v) }

// describe produz a mensagem mostrada ao usuário
func describe(err error) string {
	var failed *gateway.TransactionFailed
	switch {
	case errors.As(err, &failed):
		return failed.Error()
	case errors.Is(err, units.ErrInvalidAmount),
		errors.Is(err, gateway.ErrInvalidAddress),
		errors.Is(err, wallet.ErrUnknownAccount),
		errors.Is(err, sequencer.ErrInvalidDuration),
		errors.Is(err, errInvalidOption):
		return "invalid input: " + err.Error()
	default:
		return "error: " + err.Error()
	}
}
