package dto

// Quantias chegam como texto decimal ("1.5") e são escaladas para 18 casas

type SelectAccountRequest struct {
	Index int `json:"index"`
}

// OpenBetsRequest aceita horário absoluto (unix) ou duração em segundos
type OpenBetsRequest struct {
	ClosingTime int64 `json:"closingTime,omitempty"`
	Duration    int64 `json:"duration,omitempty"`
}

type AmountRequest struct {
	Amount string `json:"amount"`
}

type BetRequest struct {
	Times string `json:"times"`
}

type SignRequest struct {
	Message string `json:"message"`
}
