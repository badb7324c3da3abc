package walletinterfaces

import (
	"fmt"
	"strings"
)

type AddressType string

const (
	AddressTypeDeposit    AddressType = "deposit"
	AddressTypeWithdrawal AddressType = "withdrawal"
)

// Address is a deposit or withdrawal destination. Address is opaque to this
// package; Extra carries protocol annotations such as a Monero payment ID.
type Address struct {
	Type     AddressType `json:"type"`
	Currency Currency    `json:"currency"`
	Address  string      `json:"address"`
	Extra    string      `json:"extra,omitempty"`
	UserID   string      `json:"user_id,omitempty"`
}

// NewDepositAddress is used by adapters to wrap an address minted by the backend.
func NewDepositAddress(c Currency, address string) Address {
	return Address{Type: AddressTypeDeposit, Currency: c, Address: strings.TrimSpace(address)}
}

// NewWithdrawalAddress builds a user supplied destination.
func NewWithdrawalAddress(c Currency, address, extra, userID string) (Address, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Address{}, fmt.Errorf("withdrawal address is required")
	}
	return Address{
		Type:     AddressTypeWithdrawal,
		Currency: c,
		Address:  address,
		Extra:    strings.TrimSpace(extra),
		UserID:   userID,
	}, nil
}
