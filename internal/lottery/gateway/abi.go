package gateway

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Interface externa do contrato Lottery usada por este cliente
const lotteryABIJSON = `[
  {"type":"constructor","stateMutability":"nonpayable","inputs":[
    {"name":"tokenName","type":"string"},{"name":"tokenSymbol","type":"string"},
    {"name":"purchaseRatio","type":"uint256"},{"name":"_betPrice","type":"uint256"},{"name":"_betFee","type":"uint256"}]},
  {"type":"function","name":"openBets","stateMutability":"nonpayable","inputs":[{"name":"closingTime","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"betMany","stateMutability":"nonpayable","inputs":[{"name":"times","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"closeLottery","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"purchaseTokens","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"prizeWithdraw","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"ownerWithdraw","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"returnTokens","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"prize","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"betsOpen","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"betsClosingTime","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"betPrice","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"betFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"ownerPool","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"prizePool","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"paymentToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

// Subconjunto ERC-20 do LotteryToken
const tokenABIJSON = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	LotteryABI = mustABI(lotteryABIJSON)
	TokenABI   = mustABI(tokenABIJSON)
)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
