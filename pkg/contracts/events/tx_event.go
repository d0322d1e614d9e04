package events

// Status do ciclo de vida de uma transação enviada por este processo
const (
	TxSubmitted = "SUBMITTED"
	TxConfirmed = "CONFIRMED"
	TxFailed    = "FAILED"
)

// Evento publicado no tópico "lottery_tx_events" a cada mudança de status
type TxEvent struct {
	ID          string            `json:"id"`
	Operation   string            `json:"operation"` // "approve", "betMany", ...
	Params      map[string]string `json:"params,omitempty"`
	From        string            `json:"from"`
	Status      string            `json:"status"`
	Hash        string            `json:"hash,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	BlockNumber uint64            `json:"block_number,omitempty"`
	Automatic   bool              `json:"automatic,omitempty"` // approve inserido antes de um gasto
	TsUnixMs    int64             `json:"ts_unix_ms"`
}
