package invest

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"investlab/internal/history"
	"investlab/internal/ledger"
	"investlab/internal/market"
	"investlab/internal/wallet"
)

// FLAT never moves; GROW doubles every year on a fixed curve.
var testCatalog = []market.Definition{
	{Symbol: "FLAT", Name: "Flat Note", Category: market.CategoryBond, Risk: market.RiskLow, AnnualRate: 0, BasePrice: 100},
	{Symbol: "GROW", Name: "Growth Bond", Category: market.CategoryBond, Risk: market.RiskLow, AnnualRate: 1.0, BasePrice: 100},
	{Symbol: "WALK", Name: "Walker Inc", Category: market.CategoryStock, Risk: market.RiskHigh, AnnualRate: 0.1, BasePrice: 50},
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newTestSystem(t *testing.T, cash int64) (*System, *wallet.Account) {
	t.Helper()
	model, err := market.NewSeededModel(market.DefaultDynamics(), 42)
	require.NoError(t, err)
	mk, err := market.New(model, testCatalog)
	require.NoError(t, err)
	acct := wallet.NewAccount(decimal.NewFromInt(cash))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSystem(mk, acct, history.NewStore(50), logger), acct
}

func TestBuyDebitsCashAndOpensPosition(t *testing.T) {
	sys, acct := newTestSystem(t, 1000)

	res, err := sys.Buy("flat", 5)
	require.NoError(t, err)
	assert.Equal(t, SideBuy, res.Side)
	assert.Equal(t, "FLAT", res.Symbol)
	assert.True(t, d("500").Equal(res.Notional), res.Notional.String())
	assert.True(t, d("500").Equal(acct.Balance()))
	assert.True(t, d("500").Equal(res.Balance))
	assert.Equal(t, int64(5), res.Position.Shares)

	life := sys.Lifetime()
	assert.Equal(t, 1, life.InvestmentsOpened)
	assert.True(t, d("500").Equal(life.PrincipalInvested))
	assert.True(t, d("500").Equal(sys.TotalPortfolioValue()))
	assert.True(t, d("500").Equal(sys.TotalPrincipal()))
	assert.True(t, sys.TotalGain().IsZero())
}

func TestBuyRejections(t *testing.T) {
	sys, acct := newTestSystem(t, 150)

	_, err := sys.Buy("FLAT", 2)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = sys.Buy("NOPE", 1)
	assert.ErrorIs(t, err, market.ErrUnknownInstrument)

	_, err = sys.Buy("FLAT", 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)

	assert.True(t, d("150").Equal(acct.Balance()))
	assert.Empty(t, sys.Positions())
	assert.Zero(t, sys.Lifetime().InvestmentsOpened)
}

func TestSellAllKeepsLifetimeStats(t *testing.T) {
	sys, acct := newTestSystem(t, 1000)
	_, err := sys.Buy("FLAT", 5)
	require.NoError(t, err)

	res, err := sys.SellAll("FLAT")
	require.NoError(t, err)
	require.NotNil(t, res.Sell)
	assert.Equal(t, SideSell, res.Side)
	assert.Equal(t, int64(5), res.Shares)
	assert.Zero(t, res.Position.Shares)
	assert.True(t, d("1000").Equal(acct.Balance()))

	assert.Empty(t, sys.Positions())
	assert.Len(t, sys.Transactions(), 1)
	life := sys.Lifetime()
	assert.Equal(t, 1, life.InvestmentsOpened)
	assert.True(t, d("500").Equal(life.PrincipalInvested))
	assert.True(t, life.TotalGain.IsZero())

	_, err = sys.SellAll("FLAT")
	assert.ErrorIs(t, err, ledger.ErrNoPosition)
}

func TestSellRejections(t *testing.T) {
	sys, _ := newTestSystem(t, 1000)
	_, err := sys.Sell("FLAT", 1)
	assert.ErrorIs(t, err, ledger.ErrNoPosition)

	_, err = sys.Buy("FLAT", 2)
	require.NoError(t, err)
	_, err = sys.Sell("FLAT", 3)
	assert.ErrorIs(t, err, ledger.ErrInsufficientShares)
	_, err = sys.Sell("FLAT", -1)
	assert.ErrorIs(t, err, ledger.ErrInvalidQuantity)
	assert.Empty(t, sys.Transactions())
}

func TestLifetimeGainMatchesSellRecords(t *testing.T) {
	sys, acct := newTestSystem(t, 10_000)
	_, err := sys.Buy("GROW", 10)
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		sys.Tick()
	}
	first, err := sys.Sell("GROW", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), first.Position.Shares)
	assert.True(t, first.Sell.Gain.IsPositive())

	for i := 0; i < 30; i++ {
		sys.Tick()
	}
	second, err := sys.Sell("GROW", 6)
	require.NoError(t, err)

	recs := sys.Transactions()
	require.Len(t, recs, 2)
	sum := recs[0].Gain.Add(recs[1].Gain)
	life := sys.Lifetime()
	assert.True(t, sum.Equal(life.TotalGain), "%s vs %s", sum, life.TotalGain)
	assert.Equal(t, 1, life.InvestmentsOpened)

	want := d("9000").Add(first.Notional).Add(second.Notional)
	assert.True(t, want.Equal(acct.Balance()))
}

func TestLifetimeGainIncludesUnrealized(t *testing.T) {
	sys, _ := newTestSystem(t, 10_000)
	_, err := sys.Buy("GROW", 10)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		sys.Tick()
	}
	assert.True(t, sys.TotalGain().IsPositive())
	assert.True(t, sys.TotalGain().Equal(sys.Lifetime().TotalGain))
}

func TestPeakNeverDecreases(t *testing.T) {
	sys, _ := newTestSystem(t, 10_000)
	_, err := sys.Buy("GROW", 20)
	require.NoError(t, err)
	_, err = sys.Buy("WALK", 20)
	require.NoError(t, err)

	prev := sys.PeakPortfolioValue()
	for i := 0; i < 50; i++ {
		sys.Tick()
		peak := sys.PeakPortfolioValue()
		assert.True(t, peak.GreaterThanOrEqual(prev))
		assert.True(t, peak.GreaterThanOrEqual(sys.TotalPortfolioValue()))
		prev = peak
	}

	_, err = sys.SellAll("GROW")
	require.NoError(t, err)
	assert.True(t, prev.Equal(sys.PeakPortfolioValue()))
	assert.True(t, sys.Lifetime().PeakValue.Equal(prev))
}

func TestReopenCountsAsNewInvestment(t *testing.T) {
	sys, _ := newTestSystem(t, 1000)
	_, err := sys.Buy("FLAT", 1)
	require.NoError(t, err)
	_, err = sys.SellAll("FLAT")
	require.NoError(t, err)
	_, err = sys.Buy("FLAT", 1)
	require.NoError(t, err)

	life := sys.Lifetime()
	assert.Equal(t, 2, life.InvestmentsOpened)
	assert.True(t, d("200").Equal(life.PrincipalInvested))
}

func TestResetClearsEverything(t *testing.T) {
	sys, _ := newTestSystem(t, 1000)
	_, err := sys.Buy("FLAT", 3)
	require.NoError(t, err)
	_, err = sys.Sell("FLAT", 1)
	require.NoError(t, err)
	sys.Tick()

	sys.Reset()
	assert.Empty(t, sys.Positions())
	assert.Empty(t, sys.Transactions())
	life := sys.Lifetime()
	assert.Zero(t, life.InvestmentsOpened)
	assert.True(t, life.PrincipalInvested.IsZero())
	assert.True(t, life.TotalGain.IsZero())
	assert.True(t, life.PeakValue.IsZero())
	assert.Equal(t, 1, sys.CurrentTick())
}

func TestTickRecordsHistory(t *testing.T) {
	sys, _ := newTestSystem(t, 0)
	for i := 0; i < 3; i++ {
		assert.Equal(t, i+1, sys.Tick())
	}

	pts := sys.Window("flat", 10)
	require.Len(t, pts, 3)
	for i, p := range pts {
		assert.Equal(t, i+1, p.Day)
		assert.Equal(t, 100.0, p.Price)
	}
	assert.Empty(t, sys.Window("NOPE", 10))
}

func TestBackfillSeedsEveryInstrument(t *testing.T) {
	sys, _ := newTestSystem(t, 0)
	require.NoError(t, sys.Backfill(30, 7))

	quotes := sys.Quotes()
	require.Len(t, quotes, len(testCatalog))
	for _, q := range quotes {
		pts := sys.Window(q.Symbol, 100)
		require.Len(t, pts, 30, q.Symbol)
		last := pts[len(pts)-1]
		assert.Equal(t, 0, last.Day, q.Symbol)
		assert.Equal(t, q.Price, last.Price, q.Symbol)
	}

	sys.Tick()
	pts := sys.Window("FLAT", 100)
	require.Len(t, pts, 31)
	assert.Equal(t, 1, pts[len(pts)-1].Day)

	grow := sys.Window("GROW", 100)
	require.Len(t, grow, 31)
	for i := 1; i < len(grow); i++ {
		assert.Greater(t, grow[i].Price, grow[i-1].Price, "day %d", grow[i].Day)
	}
}

func TestMaxSharesNeverOverstates(t *testing.T) {
	tests := []struct {
		name           string
		balance, price string
		want           int64
	}{
		{name: "exact", balance: "700", price: "100", want: 7},
		{name: "remainder", balance: "750", price: "100", want: 7},
		{name: "quotient rounds up to whole", balance: "6.99999999999999996", price: "1", want: 6},
		{name: "cannot afford one", balance: "99.99", price: "100", want: 0},
		{name: "zero price", balance: "100", price: "0", want: 0},
		{name: "negative balance", balance: "-5", price: "1", want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			balance, price := d(tc.balance), d(tc.price)
			n := maxShares(balance, price)
			assert.Equal(t, tc.want, n)
			assert.True(t, price.Mul(decimal.NewFromInt(n)).LessThanOrEqual(balance) || n == 0)
		})
	}
}

func TestMaxAffordable(t *testing.T) {
	sys, _ := newTestSystem(t, 1050)
	n, err := sys.MaxAffordable("FLAT")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	_, err = sys.Buy("FLAT", n)
	require.NoError(t, err)
	n, err = sys.MaxAffordable("FLAT")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = sys.MaxAffordable("NOPE")
	assert.ErrorIs(t, err, market.ErrUnknownInstrument)
}

func TestDashboardAddsUp(t *testing.T) {
	sys, _ := newTestSystem(t, 5000)
	_, err := sys.Buy("GROW", 10)
	require.NoError(t, err)
	_, err = sys.Buy("FLAT", 5)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		sys.Tick()
	}

	dash := sys.Dashboard()
	assert.Equal(t, 5, dash.Tick)
	require.Len(t, dash.Positions, 2)
	assert.Equal(t, "GROW", dash.Positions[0].Symbol)

	value := decimal.Zero
	for _, p := range dash.Positions {
		value = value.Add(p.Value)
	}
	assert.True(t, value.Equal(dash.PortfolioValue))
	assert.True(t, dash.Cash.Add(dash.PortfolioValue).Equal(dash.NetWorth))
	assert.True(t, dash.PortfolioValue.Sub(dash.PortfolioPrincipal).Equal(dash.PortfolioGain))
	assert.True(t, d("1500").Equal(dash.PortfolioPrincipal))
}

func TestInstrumentDetail(t *testing.T) {
	sys, _ := newTestSystem(t, 0)
	sys.Tick()
	sys.Tick()

	detail, err := sys.Instrument("grow", 1)
	require.NoError(t, err)
	assert.Equal(t, "GROW", detail.Symbol)
	assert.Equal(t, 2, detail.DaysElapsed)
	require.Len(t, detail.Series, 1)
	assert.Equal(t, detail.Price, detail.Series[0].Price)

	_, err = sys.Instrument("NOPE", 1)
	assert.ErrorIs(t, err, market.ErrUnknownInstrument)
	assert.Len(t, sys.Quotes(), len(testCatalog))
}
