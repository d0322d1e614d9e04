// Package units converte quantias decimais (ETH / LT0) para unidades base de
// 18 casas e de volta.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals é a escala usada tanto pela moeda nativa quanto pelo token da loteria
const Decimals = 18

var ErrInvalidAmount = errors.New("invalid amount")

// MaxUint256 é o maior valor representável em uint256 (aprovação "infinita")
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Parse converte "1.25" em 1250000000000000000.
// Rejeita negativos, mais de 18 casas decimais e valores acima de uint256.
func Parse(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative %q", ErrInvalidAmount, s)
	}
	scaled := d.Shift(Decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d decimals in %q", ErrInvalidAmount, Decimals, s)
	}
	v := scaled.BigInt()
	if v.Cmp(MaxUint256) > 0 {
		return nil, fmt.Errorf("%w: %q overflows uint256", ErrInvalidAmount, s)
	}
	return v, nil
}

// Format converte unidades base para texto decimal sem zeros à direita ("1.2", "0", "5")
func Format(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -Decimals).String()
}

// ParseCount lê uma contagem inteira positiva (ex: número de apostas)
func ParseCount(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || d.Sign() <= 0 || !d.BigInt().IsUint64() {
		return 0, fmt.Errorf("%w: count %q", ErrInvalidAmount, s)
	}
	return d.BigInt().Uint64(), nil
}

// Ratio divide uma quantia de tokens pela razão de compra (tokens por wei),
// usada para calcular o valor nativo de purchaseTokens.
func Ratio(tokens *big.Int, ratio *big.Int) (*big.Int, error) {
	if ratio == nil || ratio.Sign() <= 0 {
		return nil, fmt.Errorf("%w: purchase ratio must be positive", ErrInvalidAmount)
	}
	return new(big.Int).Quo(tokens, ratio), nil
}
