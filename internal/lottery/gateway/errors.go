package gateway

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/radieske/lottery-dapp-poc/internal/lottery/units"
)

var (
	ErrInvalidAmount  = units.ErrInvalidAmount
	ErrInvalidAddress = errors.New("invalid address")
	ErrNotAttached    = errors.New("gateway not attached to a lottery contract")
)

// TransactionFailed indica que o provider ou o contrato rejeitou a chamada.
// Hash fica zerado quando a falha acontece antes do envio.
type TransactionFailed struct {
	Operation string
	Reason    string
	Hash      common.Hash
}

func (e *TransactionFailed) Error() string {
	if e.Hash == (common.Hash{}) {
		return fmt.Sprintf("%s failed: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s failed (%s): %s", e.Operation, e.Hash.Hex(), e.Reason)
}

// revertReason extrai a mensagem de Error(string) quando o nó devolve os
// dados do revert; senão usa o texto do erro.
func revertReason(err error) string {
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(s); derr == nil {
				if reason, uerr := abi.UnpackRevert(data); uerr == nil {
					return reason
				}
			}
		}
	}
	return err.Error()
}
