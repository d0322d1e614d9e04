package gateway

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PendingTransaction é uma chamada já enviada ao nó, ainda sem recibo
type PendingTransaction struct {
	ID          string
	Operation   string
	Params      map[string]string
	From        common.Address
	Hash        common.Hash
	SubmittedAt time.Time

	call ethereum.CallMsg // usado para reproduzir o revert depois de minerado
}

// Receipt é o resultado confirmado de uma PendingTransaction
type Receipt struct {
	Operation       string
	Hash            common.Hash
	BlockNumber     uint64
	GasUsed         uint64
	ContractAddress common.Address // só em deploy
}

// transact monta, assina e envia uma transação EIP-1559.
// gasLimit 0 usa a estimativa do nó; falha na estimativa já devolve o motivo do revert.
func (g *Gateway) transact(ctx context.Context, op string, params map[string]string, from common.Address,
	to *common.Address, value *big.Int, data []byte, gasLimit uint64) (*PendingTransaction, error) {

	if value == nil {
		value = new(big.Int)
	}

	// nonce e envio serializados: contas compartilhadas entre handlers HTTP
	g.mu.Lock()
	defer g.mu.Unlock()

	nonce, err := g.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, &TransactionFailed{Operation: op, Reason: "nonce: " + err.Error()}
	}
	tip, err := g.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, &TransactionFailed{Operation: op, Reason: "gas tip: " + err.Error()}
	}
	head, err := g.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, &TransactionFailed{Operation: op, Reason: "latest header: " + err.Error()}
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	msg := ethereum.CallMsg{From: from, To: to, Value: value, Data: data, GasTipCap: tip, GasFeeCap: feeCap}
	if gasLimit == 0 {
		gasLimit, err = g.backend.EstimateGas(ctx, msg)
		if err != nil {
			return nil, &TransactionFailed{Operation: op, Reason: revertReason(err)}
		}
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   g.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        to,
		Value:     value,
		Data:      data,
	})
	signed, err := g.signer.SignTx(from, tx)
	if err != nil {
		return nil, &TransactionFailed{Operation: op, Reason: "sign: " + err.Error()}
	}
	if err := g.backend.SendTransaction(ctx, signed); err != nil {
		return nil, &TransactionFailed{Operation: op, Reason: revertReason(err)}
	}

	p := &PendingTransaction{
		ID:          uuid.NewString(),
		Operation:   op,
		Params:      params,
		From:        from,
		Hash:        signed.Hash(),
		SubmittedAt: g.now(),
		call:        msg,
	}
	g.log.Debug("transaction submitted",
		zap.String("op", op),
		zap.String("from", from.Hex()),
		zap.String("hash", p.Hash.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gasLimit),
	)
	return p, nil
}

// Wait aguarda o recibo da transação até o ReceiptTimeout.
// Status 0 vira TransactionFailed com o motivo reproduzido no bloco do recibo.
func (g *Gateway) Wait(ctx context.Context, p *PendingTransaction) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()

	for {
		rcpt, err := g.backend.TransactionReceipt(ctx, p.Hash)
		if err == nil && rcpt != nil {
			return g.settle(ctx, p, rcpt)
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			g.log.Warn("receipt lookup failed", zap.String("hash", p.Hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return Receipt{}, &TransactionFailed{Operation: p.Operation, Hash: p.Hash, Reason: "waiting for receipt: " + ctx.Err().Error()}
		case <-ticker.C:
		}
	}
}

func (g *Gateway) settle(ctx context.Context, p *PendingTransaction, rcpt *types.Receipt) (Receipt, error) {
	out := Receipt{
		Operation:       p.Operation,
		Hash:            p.Hash,
		GasUsed:         rcpt.GasUsed,
		ContractAddress: rcpt.ContractAddress,
	}
	if rcpt.BlockNumber != nil {
		out.BlockNumber = rcpt.BlockNumber.Uint64()
	}
	if rcpt.Status == types.ReceiptStatusSuccessful {
		return out, nil
	}

	reason := "reverted"
	if p.call.To != nil {
		if _, err := g.backend.CallContract(ctx, p.call, rcpt.BlockNumber); err != nil {
			reason = revertReason(err)
		}
	}
	return out, &TransactionFailed{Operation: p.Operation, Hash: p.Hash, Reason: reason}
}
