package events

import "time"

// StateSnapshot é o read model do contrato serializado para o hub WebSocket.
// Valores monetários vão em unidades decimais (18 casas já aplicadas).
type StateSnapshot struct {
	Lottery      string    `json:"lottery"`
	Token        string    `json:"token"`
	Owner        string    `json:"owner"`
	BetsOpen     bool      `json:"betsOpen"`
	ClosingTime  int64     `json:"closingTime"` // unix seconds
	BlockTime    int64     `json:"blockTime"`
	BetPrice     string    `json:"betPrice"`
	BetFee       string    `json:"betFee"`
	OwnerPool    string    `json:"ownerPool"`
	PrizePool    string    `json:"prizePool"`
	Account      string    `json:"account,omitempty"`
	Balance      string    `json:"balance,omitempty"` // moeda nativa
	TokenBalance string    `json:"tokenBalance,omitempty"`
	Allowance    string    `json:"allowance,omitempty"`
	Prize        string    `json:"prize,omitempty"`
	FetchedAt    time.Time `json:"fetchedAt"`
	Error        string    `json:"error,omitempty"`
}
