package wallet

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDebitAndCredit(t *testing.T) {
	a := NewAccount(decimal.NewFromInt(100))

	assert.True(t, a.TryDebit(decimal.NewFromInt(40)))
	assert.True(t, decimal.NewFromInt(60).Equal(a.Balance()))

	assert.False(t, a.TryDebit(decimal.NewFromInt(61)))
	assert.True(t, decimal.NewFromInt(60).Equal(a.Balance()))

	assert.True(t, a.TryDebit(decimal.NewFromInt(60)))
	assert.True(t, a.Balance().IsZero())

	a.Credit(decimal.RequireFromString("12.5"))
	assert.Equal(t, "12.5", a.Balance().String())
}

func TestRejectsNegativeAmounts(t *testing.T) {
	a := NewAccount(decimal.NewFromInt(10))
	assert.False(t, a.TryDebit(decimal.NewFromInt(-5)))
	a.Credit(decimal.NewFromInt(-5))
	assert.True(t, decimal.NewFromInt(10).Equal(a.Balance()))

	a.Set(StarterBalance)
	assert.True(t, StarterBalance.Equal(a.Balance()))
}
