package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/internal/lottery-web/dto"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/gateway"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/sequencer"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/units"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/wallet"
)

// Todas as operações usam a conta ativa da carteira como remetente.
// A requisição só responde depois do recibo (ou da falha).

func (s *Server) openBets(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenBetsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	from := s.wallet.Selected().Address

	var (
		out sequencer.Outcome
		err error
	)
	switch {
	case req.ClosingTime > 0:
		out, err = s.seq.OpenBetsUntil(r.Context(), from, time.Unix(req.ClosingTime, 0))
	case req.Duration > 0:
		out, err = s.seq.OpenBets(r.Context(), from, time.Duration(req.Duration)*time.Second)
	default:
		err = fmt.Errorf("%w: closingTime or duration required", sequencer.ErrInvalidDuration)
	}
	s.writeOutcome(w, out, err)
}

func (s *Server) closeBets(w http.ResponseWriter, r *http.Request) {
	out, err := s.seq.CloseBets(r.Context(), s.wallet.Selected().Address)
	s.writeOutcome(w, out, err)
}

func (s *Server) bet(w http.ResponseWriter, r *http.Request) {
	var req dto.BetRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	times, err := units.ParseCount(req.Times)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.seq.Bet(r.Context(), s.wallet.Selected().Address, times)
	s.writeOutcome(w, out, err)
}

// purchase envia amount de moeda nativa para purchaseTokens
func (s *Server) purchase(w http.ResponseWriter, r *http.Request) {
	s.withAmount(w, r, s.seq.BuyTokens)
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	s.withAmount(w, r, s.seq.Approve)
}

func (s *Server) burn(w http.ResponseWriter, r *http.Request) {
	s.withAmount(w, r, s.seq.Burn)
}

func (s *Server) prizeWithdraw(w http.ResponseWriter, r *http.Request) {
	s.withAmount(w, r, s.seq.ClaimPrize)
}

func (s *Server) ownerWithdraw(w http.ResponseWriter, r *http.Request) {
	s.withAmount(w, r, s.seq.OwnerWithdraw)
}

func (s *Server) withAmount(w http.ResponseWriter, r *http.Request, op amountOp) {
	var req dto.AmountRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := units.Parse(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out, err := op(r.Context(), s.wallet.Selected().Address, amount)
	s.writeOutcome(w, out, err)
}

func (s *Server) writeOutcome(w http.ResponseWriter, out sequencer.Outcome, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := dto.TxResponse{Steps: make([]dto.StepResponse, 0, len(out.Steps))}
	for _, st := range out.Steps {
		resp.Steps = append(resp.Steps, dto.StepResponse{
			Operation:   st.Operation,
			Hash:        st.Hash.Hex(),
			BlockNumber: st.BlockNumber,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError: validação -> 400, transação rejeitada -> 409, resto -> 500
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var failed *gateway.TransactionFailed
	switch {
	case errors.As(err, &failed):
		resp := dto.ErrorResponse{Error: failed.Reason, Operation: failed.Operation}
		if failed.Hash != (common.Hash{}) {
			resp.Hash = failed.Hash.Hex()
		}
		s.log.Warn("transaction failed", zap.String("op", failed.Operation), zap.String("reason", failed.Reason))
		writeJSON(w, http.StatusConflict, resp)
	case isValidation(err):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
}

func isValidation(err error) bool {
	for _, target := range []error{
		errBadJSON,
		errEmptyMessage,
		units.ErrInvalidAmount,
		gateway.ErrInvalidAddress,
		sequencer.ErrInvalidDuration,
		wallet.ErrUnknownAccount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
