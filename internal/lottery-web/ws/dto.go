package ws

import "github.com/radieske/lottery-dapp-poc/pkg/contracts/events"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: ping
type ClientMsg struct {
	Type string `json:"type"`
}

const (
	MsgSnapshot       = "snapshot"
	MsgCountdown      = "countdown"
	MsgAccountChanged = "accountChanged"
	MsgPong           = "pong"
)

// Message é o envelope enviado aos clientes
type Message struct {
	Type      string                `json:"type"`
	Snapshot  *events.StateSnapshot `json:"snapshot,omitempty"`
	Countdown string                `json:"countdown,omitempty"`
	Account   string                `json:"account,omitempty"`
}
