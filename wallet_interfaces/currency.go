package walletinterfaces

import (
	"fmt"
	"strconv"
	"strings"
)

// Amount is a quantity of a currency in its smallest unit (piconero, satoshi...).
type Amount uint64

// maxDecimals keeps 10^decimals inside uint64.
const maxDecimals = 19

// Currency is owned by the host's registry and is immutable once created.
type Currency struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Name     string `json:"name" yaml:"name"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
	Divisor  uint64 `json:"divisor" yaml:"divisor"`
}

func NewCurrency(symbol, name string, decimals uint8) (Currency, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Currency{}, fmt.Errorf("currency symbol is required")
	}
	if decimals > maxDecimals {
		return Currency{}, fmt.Errorf("currency %s: decimals must be <= %d", symbol, maxDecimals)
	}
	divisor := uint64(1)
	for i := uint8(0); i < decimals; i++ {
		divisor *= 10
	}
	if strings.TrimSpace(name) == "" {
		name = symbol
	}
	return Currency{Symbol: symbol, Name: strings.TrimSpace(name), Decimals: decimals, Divisor: divisor}, nil
}

// Same reports whether two currencies share a symbol. Symbols are the identity.
func (c Currency) Same(other Currency) bool {
	return c.Symbol != "" && strings.EqualFold(c.Symbol, other.Symbol)
}

// Format renders an amount as a decimal string, e.g. 1500000000000 XMR -> "1.500000000000".
func (c Currency) Format(a Amount) string {
	if c.Decimals == 0 || c.Divisor == 0 {
		return strconv.FormatUint(uint64(a), 10)
	}
	whole := uint64(a) / c.Divisor
	frac := uint64(a) % c.Divisor
	return fmt.Sprintf("%d.%0*d", whole, int(c.Decimals), frac)
}

func (c Currency) String() string {
	return c.Symbol
}

// LockedPortion returns the part of total that is not spendable, clamped so
// that the result never exceeds total.
func LockedPortion(total, spendable Amount) Amount {
	if spendable >= total {
		return 0
	}
	return total - spendable
}
