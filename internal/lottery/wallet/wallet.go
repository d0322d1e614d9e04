// Package wallet guarda as contas locais (chave privada em memória) e expõe a
// fronteira de provider usada pelo gateway e pelos adapters: lista de contas,
// chain id, saldo, assinatura de mensagens/transações e troca de conta ativa.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrNoAccounts     = errors.New("no accounts configured")
	ErrUnknownAccount = errors.New("unknown account")
	ErrInvalidKey     = errors.New("invalid private key")
)

// BalanceReader é o subconjunto do ethclient usado para ler saldo nativo
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Account é um endereço com capacidade de assinatura
type Account struct {
	Index   int
	Address common.Address
	key     *ecdsa.PrivateKey
}

// AccountChange é emitido quando a conta ativa muda
type AccountChange struct {
	Index   int
	Address common.Address
}

// Provider implementa a fronteira wallet/provider
type Provider struct {
	mu       sync.RWMutex
	accounts []Account
	selected int
	chainID  *big.Int
	backend  BalanceReader
	subs     map[chan AccountChange]struct{}
}

// ParseKeys converte chaves hex (com ou sem 0x) em contas indexadas
func ParseKeys(hexKeys []string) ([]Account, error) {
	out := make([]Account, 0, len(hexKeys))
	for i, h := range hexKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(h), "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: key #%d", ErrInvalidKey, i)
		}
		out = append(out, Account{Index: i, Address: crypto.PubkeyToAddress(key.PublicKey), key: key})
	}
	return out, nil
}

// NewProvider cria o provider; a primeira conta começa selecionada
func NewProvider(accs []Account, chainID *big.Int, backend BalanceReader) (*Provider, error) {
	if len(accs) == 0 {
		return nil, ErrNoAccounts
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id %v", chainID)
	}
	return &Provider{
		accounts: accs,
		chainID:  new(big.Int).Set(chainID),
		backend:  backend,
		subs:     make(map[chan AccountChange]struct{}),
	}, nil
}

// Accounts retorna os endereços na ordem de índice
func (p *Provider) Accounts() []common.Address {
	out := make([]common.Address, len(p.accounts))
	for i, a := range p.accounts {
		out[i] = a.Address
	}
	return out
}

// Account resolve uma conta pelo índice informado no menu
func (p *Provider) Account(index int) (Account, error) {
	if index < 0 || index >= len(p.accounts) {
		return Account{}, fmt.Errorf("%w: index %d (have %d)", ErrUnknownAccount, index, len(p.accounts))
	}
	return p.accounts[index], nil
}

func (p *Provider) byAddress(addr common.Address) (Account, error) {
	for _, a := range p.accounts {
		if a.Address == addr {
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("%w: %s", ErrUnknownAccount, addr.Hex())
}

// ChainID retorna o chain id em que as transações são assinadas
func (p *Provider) ChainID(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(p.chainID), nil
}

// Balance lê o saldo nativo (wei) no bloco mais recente
func (p *Provider) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return p.backend.BalanceAt(ctx, addr, nil)
}

// SignTx assina uma transação com a chave do remetente
func (p *Provider) SignTx(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
	acc, err := p.byAddress(from)
	if err != nil {
		return nil, err
	}
	return types.SignTx(tx, types.LatestSignerForChainID(p.chainID), acc.key)
}

// SignMessage assina no formato personal_sign (EIP-191), com V em 27/28
func (p *Provider) SignMessage(from common.Address, msg []byte) ([]byte, error) {
	acc, err := p.byAddress(from)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(accounts.TextHash(msg), acc.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Selected retorna a conta ativa
func (p *Provider) Selected() Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.accounts[p.selected]
}

// Select troca a conta ativa e notifica os inscritos
func (p *Provider) Select(index int) (Account, error) {
	acc, err := p.Account(index)
	if err != nil {
		return Account{}, err
	}
	p.mu.Lock()
	p.selected = index
	change := AccountChange{Index: index, Address: acc.Address}
	for ch := range p.subs {
		select {
		case ch <- change:
		default: // inscrito lento perde a notificação, a próxima leitura resolve
		}
	}
	p.mu.Unlock()
	return acc, nil
}

// Subscribe recebe notificações de troca de conta; chame cancel para sair
func (p *Provider) Subscribe() (<-chan AccountChange, func()) {
	ch := make(chan AccountChange, 1)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	return ch, func() {
		p.mu.Lock()
		delete(p.subs, ch)
		p.mu.Unlock()
	}
}
