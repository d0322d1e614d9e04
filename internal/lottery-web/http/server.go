package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/lottery-dapp-poc/internal/lottery-web/dto"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/mirror"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/sequencer"
	"github.com/radieske/lottery-dapp-poc/internal/lottery/wallet"
	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

//go:embed static
var staticFS embed.FS

// Sequencer são as operações disparadas pelos formulários
type Sequencer interface {
	OpenBets(ctx context.Context, owner common.Address, duration time.Duration) (sequencer.Outcome, error)
	OpenBetsUntil(ctx context.Context, owner common.Address, closing time.Time) (sequencer.Outcome, error)
	CloseBets(ctx context.Context, from common.Address) (sequencer.Outcome, error)
	BuyTokens(ctx context.Context, from common.Address, value *big.Int) (sequencer.Outcome, error)
	Approve(ctx context.Context, from common.Address, amount *big.Int) (sequencer.Outcome, error)
	Bet(ctx context.Context, from common.Address, times uint64) (sequencer.Outcome, error)
	ClaimPrize(ctx context.Context, from common.Address, amount *big.Int) (sequencer.Outcome, error)
	Burn(ctx context.Context, from common.Address, amount *big.Int) (sequencer.Outcome, error)
	OwnerWithdraw(ctx context.Context, owner common.Address, amount *big.Int) (sequencer.Outcome, error)
}

type amountOp func(ctx context.Context, from common.Address, amount *big.Int) (sequencer.Outcome, error)

// Wallet é a carteira local com a conta ativa da UI
type Wallet interface {
	Accounts() []common.Address
	Selected() wallet.Account
	Select(index int) (wallet.Account, error)
	SignMessage(from common.Address, msg []byte) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// State é o read model mantido pelo mirror
type State interface {
	Latest() mirror.Snapshot
	Refresh(ctx context.Context) mirror.Snapshot
}

// History lista transações do journal (opcional)
type History interface {
	Recent(ctx context.Context, limit int) ([]events.TxEvent, error)
}

// Server expõe a UI da loteria e a API usada por ela
type Server struct {
	log     *zap.Logger
	seq     Sequencer
	wallet  Wallet
	state   State
	history History
	ws      http.HandlerFunc
	now     func() time.Time

	mu         sync.Mutex
	signatures []dto.Signature
}

// NewServer instancia o servidor HTTP; history e ws podem ser nil
func NewServer(log *zap.Logger, seq Sequencer, w Wallet, state State, history History, ws http.HandlerFunc) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{log: log, seq: seq, wallet: w, state: state, history: history, ws: ws, now: time.Now}
}

// Router retorna o roteador com a página, a API e o WebSocket
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/", http.FileServer(http.FS(static)))
	if s.ws != nil {
		r.Get("/ws", s.ws)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/accounts", s.listAccounts)
		r.Post("/accounts/select", s.selectAccount)
		r.Get("/state", s.getState)
		r.Get("/transactions", s.listTransactions)

		r.Post("/bets/open", s.openBets)
		r.Post("/bets/close", s.closeBets)
		r.Post("/bets", s.bet)
		r.Post("/tokens/purchase", s.purchase)
		r.Post("/tokens/approve", s.approve)
		r.Post("/tokens/burn", s.burn)
		r.Post("/prize/withdraw", s.prizeWithdraw)
		r.Post("/owner/withdraw", s.ownerWithdraw)

		r.Get("/signatures", s.listSignatures)
		r.Post("/sign", s.sign)
	})
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadJSON
	}
	return nil
}

// ===== contas =====

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	id, err := s.wallet.ChainID(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	accs := s.wallet.Accounts()
	out := dto.AccountsResponse{ChainID: id.String(), Accounts: make([]string, len(accs))}
	for i, a := range accs {
		out.Accounts[i] = a.Hex()
	}
	sel := s.wallet.Selected()
	out.Selected, out.Address = sel.Index, sel.Address.Hex()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) selectAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectAccountRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	acc, err := s.wallet.Select(req.Index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selected": acc.Index, "address": acc.Address.Hex()})
}

// ===== leitura =====

// getState devolve o último snapshot; lê de novo se ainda não houver um da conta ativa
func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Latest()
	if snap.FetchedAt.IsZero() || snap.Account != s.wallet.Selected().Address {
		snap = s.state.Refresh(r.Context())
	}
	writeJSON(w, http.StatusOK, dto.StateResponse{
		StateSnapshot: snap.Event(),
		Countdown:     snap.Countdown(s.now()),
	})
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []events.TxEvent{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []events.TxEvent{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ===== assinaturas =====

func (s *Server) sign(w http.ResponseWriter, r *http.Request) {
	var req dto.SignRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Message == "" {
		s.writeError(w, errEmptyMessage)
		return
	}
	from := s.wallet.Selected().Address
	sig, err := s.wallet.SignMessage(from, []byte(req.Message))
	if err != nil {
		s.writeError(w, err)
		return
	}
	entry := dto.Signature{
		Message:   req.Message,
		Signer:    from.Hex(),
		Signature: hexutil.Encode(sig),
		SignedAt:  s.now().UTC(),
	}
	s.mu.Lock()
	s.signatures = append(s.signatures, entry)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) listSignatures(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]dto.Signature{}, s.signatures...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

var (
	errBadJSON      = errors.New("bad json")
	errEmptyMessage = errors.New("message required")
)
