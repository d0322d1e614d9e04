package dto

import (
	"time"

	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

type AccountsResponse struct {
	ChainID  string   `json:"chainId"`
	Accounts []string `json:"accounts"`
	Selected int      `json:"selected"`
	Address  string   `json:"address"`
}

type StateResponse struct {
	events.StateSnapshot
	Countdown string `json:"countdown"`
}

type StepResponse struct {
	Operation   string `json:"operation"`
	Hash        string `json:"hash"`
	BlockNumber uint64 `json:"blockNumber"`
}

// TxResponse lista os passos minerados (approve automático + operação)
type TxResponse struct {
	Steps []StepResponse `json:"steps"`
}

type Signature struct {
	Message   string    `json:"message"`
	Signer    string    `json:"signer"`
	Signature string    `json:"signature"`
	SignedAt  time.Time `json:"signedAt"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Operation string `json:"operation,omitempty"`
	Hash      string `json:"hash,omitempty"`
}
