package gateway

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/units"
)

// DeployParams são os argumentos do construtor do Lottery
type DeployParams struct {
	TokenName     string
	TokenSymbol   string
	PurchaseRatio *big.Int // tokens por wei
	BetPrice      *big.Int // unidades base
	BetFee        *big.Int // unidades base
}

// Deploy implanta o Lottery a partir do bytecode compilado, aguarda o recibo
// e liga o gateway ao contrato (e ao token criado por ele).
func (g *Gateway) Deploy(ctx context.Context, from common.Address, bytecode []byte, p DeployParams) (Receipt, error) {
	if len(bytecode) == 0 {
		return Receipt{}, fmt.Errorf("%w: empty bytecode", ErrInvalidAmount)
	}
	if err := validatePositive(p.PurchaseRatio); err != nil {
		return Receipt{}, fmt.Errorf("purchase ratio: %w", err)
	}
	if err := validatePositive(p.BetPrice); err != nil {
		return Receipt{}, fmt.Errorf("bet price: %w", err)
	}
	if p.BetFee == nil || p.BetFee.Sign() < 0 {
		return Receipt{}, fmt.Errorf("bet fee: %w", ErrInvalidAmount)
	}

	args, err := LotteryABI.Pack("", p.TokenName, p.TokenSymbol, p.PurchaseRatio, p.BetPrice, p.BetFee)
	if err != nil {
		return Receipt{}, fmt.Errorf("pack constructor: %w", err)
	}
	data := append(append([]byte{}, bytecode...), args...)

	params := map[string]string{
		"name":     p.TokenName,
		"symbol":   p.TokenSymbol,
		"ratio":    p.PurchaseRatio.String(),
		"betPrice": units.Format(p.BetPrice),
		"betFee":   units.Format(p.BetFee),
	}
	pending, err := g.transact(ctx, "deploy", params, from, nil, nil, data, 0)
	if err != nil {
		return Receipt{}, err
	}
	rcpt, err := g.Wait(ctx, pending)
	if err != nil {
		return rcpt, err
	}
	if rcpt.ContractAddress == (common.Address{}) {
		return rcpt, &TransactionFailed{Operation: "deploy", Hash: rcpt.Hash, Reason: "receipt has no contract address"}
	}
	g.log.Info("lottery deployed", zap.String("address", rcpt.ContractAddress.Hex()), zap.String("tx", rcpt.Hash.Hex()))

	if err := g.Attach(ctx, rcpt.ContractAddress); err != nil {
		return rcpt, err
	}
	return rcpt, nil
}
