package topics

const (
	// Transações da loteria (submitted/confirmed/failed)
	LotteryTx = "lottery_tx_events"

	// Canal Redis Pub/Sub com snapshots do estado do contrato
	LotteryStateBroadcast = "lottery_state_broadcast"
)
