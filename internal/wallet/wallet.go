// Package wallet provides the in-memory cash account used by the game.
package wallet

import (
	"sync"

	"github.com/shopspring/decimal"
)

// StarterBalance is the cash a new player starts with.
var StarterBalance = decimal.NewFromInt(25_000)

type Account struct {
	mu      sync.Mutex
	balance decimal.Decimal
}

func NewAccount(opening decimal.Decimal) *Account {
	return &Account{balance: opening}
}

func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// TryDebit removes amount when the balance covers it and reports whether it
// did. Negative amounts are refused.
func (a *Account) TryDebit(amount decimal.Decimal) bool {
	if amount.IsNegative() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balance.LessThan(amount) {
		return false
	}
	a.balance = a.balance.Sub(amount)
	return true
}

func (a *Account) Credit(amount decimal.Decimal) {
	if amount.IsNegative() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance = a.balance.Add(amount)
}

// Set overwrites the balance, used when a game restarts.
func (a *Account) Set(balance decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance = balance
}
