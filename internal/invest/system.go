// Package invest ties the market, price history, ledger and a cash account
// together into the game's investment mechanic.
package invest

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"investlab/internal/history"
	"investlab/internal/ledger"
	"investlab/internal/market"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// CashAccount is the player's balance, owned outside the engine.
type CashAccount interface {
	Balance() decimal.Decimal
	TryDebit(amount decimal.Decimal) bool
	Credit(amount decimal.Decimal)
}

// System serializes ticks and trades; every exported method holds one lock
// for its whole duration so a balance check and its debit cannot interleave
// with another trade.
type System struct {
	mu      sync.Mutex
	log     *slog.Logger
	market  *market.Market
	history *history.Store
	ledger  *ledger.Ledger
	cash    CashAccount
	tick    int

	principal decimal.Decimal
	totalGain decimal.Decimal
	peak      decimal.Decimal
}

func NewSystem(mk *market.Market, cash CashAccount, hist *history.Store, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	if hist == nil {
		hist = history.NewStore(history.DefaultCapacity)
	}
	return &System{
		log:     logger,
		market:  mk,
		history: hist,
		ledger:  ledger.New(),
		cash:    cash,
	}
}

// Tick advances every instrument one day, records the new prices and
// refreshes the lifetime aggregates. It returns the new tick number.
func (s *System) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.market.Tick()
	s.tick++
	s.history.RecordTick(s.market)
	s.refreshLocked()
	s.log.Debug("market tick", "tick", s.tick, "portfolio_value", s.portfolioValueLocked().StringFixed(2))
	return s.tick
}

// Backfill seeds every instrument's history with days of prices ending at
// its live price, so charts are populated before the first tick. Instrument i
// uses seed+i.
func (s *System) Backfill(days int, seed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dyn := s.market.Model().Dynamics()
	for i, inst := range s.market.Instruments() {
		prices, err := history.Backfill(inst.Quote(), dyn, days, seed+int64(i))
		if err != nil {
			return fmt.Errorf("backfill %s: %w", inst.Symbol(), err)
		}
		s.history.Seed(inst.Symbol(), prices, inst.DaysElapsed())
	}
	s.log.Info("history backfilled", "days", days, "seed", seed)
	return nil
}

func (s *System) Buy(symbol string, shares int64) (TradeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if shares <= 0 {
		return TradeResult{}, ledger.ErrInvalidQuantity
	}
	inst, err := s.market.Instrument(symbol)
	if err != nil {
		return TradeResult{}, err
	}
	price := decimal.NewFromFloat(inst.Price())
	cost := price.Mul(decimal.NewFromInt(shares))
	if !s.cash.TryDebit(cost) {
		return TradeResult{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, cost.StringFixed(2), s.cash.Balance().StringFixed(2))
	}
	pos, err := s.ledger.OpenOrAdd(inst.Definition(), shares, price, s.tick)
	if err != nil {
		s.cash.Credit(cost)
		return TradeResult{}, err
	}
	s.principal = s.principal.Add(cost)
	s.refreshLocked()

	s.log.Info("buy", "symbol", inst.Symbol(), "shares", shares, "price", price.StringFixed(2), "tick", s.tick)
	return TradeResult{
		Side:     SideBuy,
		Symbol:   inst.Symbol(),
		Shares:   shares,
		Price:    price,
		Notional: cost,
		Balance:  s.cash.Balance(),
		Position: pos,
	}, nil
}

func (s *System) Sell(symbol string, shares int64) (TradeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sellLocked(symbol, shares)
}

// SellAll liquidates the whole open position in symbol.
func (s *System) SellAll(symbol string) (TradeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.ledger.Position(market.NormalizeSymbol(symbol))
	if !ok {
		return TradeResult{}, fmt.Errorf("%w: %s", ledger.ErrNoPosition, symbol)
	}
	return s.sellLocked(symbol, pos.Shares)
}

func (s *System) sellLocked(symbol string, shares int64) (TradeResult, error) {
	if shares <= 0 {
		return TradeResult{}, ledger.ErrInvalidQuantity
	}
	inst, err := s.market.Instrument(symbol)
	if err != nil {
		return TradeResult{}, err
	}
	pos, _ := s.ledger.Position(inst.Symbol())
	price := decimal.NewFromFloat(inst.Price())
	rec, err := s.ledger.Sell(inst.Symbol(), shares, price, s.tick)
	if err != nil {
		return TradeResult{}, err
	}
	proceeds := rec.Proceeds()
	s.cash.Credit(proceeds)
	s.refreshLocked()

	pos.Shares -= shares
	s.log.Info("sell", "symbol", inst.Symbol(), "shares", shares, "price", price.StringFixed(2),
		"gain", rec.Gain.StringFixed(2), "tick", s.tick)
	return TradeResult{
		Side:     SideSell,
		Symbol:   inst.Symbol(),
		Shares:   shares,
		Price:    price,
		Notional: proceeds,
		Balance:  s.cash.Balance(),
		Position: pos,
		Sell:     &rec,
	}, nil
}

// MaxAffordable is the largest whole number of shares of symbol the cash
// balance covers at the current price.
func (s *System) MaxAffordable(symbol string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := s.market.Instrument(symbol)
	if err != nil {
		return 0, err
	}
	return maxShares(s.cash.Balance(), decimal.NewFromFloat(inst.Price())), nil
}

// maxShares is floor(balance/price). Div rounds to a fixed number of places,
// so a quotient just under n can come back as n; step down when n shares
// would cost more than balance.
func maxShares(balance, price decimal.Decimal) int64 {
	if !price.IsPositive() || !balance.IsPositive() {
		return 0
	}
	n := balance.Div(price).Floor()
	if price.Mul(n).GreaterThan(balance) {
		n = n.Sub(decimal.NewFromInt(1))
	}
	return n.IntPart()
}

// Reset clears positions, the sell log and every lifetime aggregate. Prices,
// history and the tick counter keep running.
func (s *System) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.Reset()
	s.principal = decimal.Zero
	s.totalGain = decimal.Zero
	s.peak = decimal.Zero
	s.log.Info("investments reset", "tick", s.tick)
}

func (s *System) CurrentTick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// TotalPortfolioValue is the market value of the open positions.
func (s *System) TotalPortfolioValue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfolioValueLocked()
}

// TotalPrincipal is the cost basis of the open positions.
func (s *System) TotalPrincipal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfolioPrincipalLocked()
}

// TotalGain is the unrealized gain of the open positions.
func (s *System) TotalGain() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfolioValueLocked().Sub(s.portfolioPrincipalLocked())
}

func (s *System) PeakPortfolioValue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

func (s *System) Lifetime() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifetimeLocked()
}

func (s *System) Positions() []PositionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionViewsLocked()
}

// Transactions returns the sell log, oldest first.
func (s *System) Transactions() []ledger.SellRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Records()
}

func (s *System) Quotes() []market.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market.Quotes()
}

// Window returns the last n recorded prices for symbol, oldest first.
func (s *System) Window(symbol string, n int) []history.PricePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Window(market.NormalizeSymbol(symbol), n)
}

func (s *System) Instrument(symbol string, window int) (InstrumentDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := s.market.Instrument(symbol)
	if err != nil {
		return InstrumentDetail{}, err
	}
	return InstrumentDetail{
		Quote:  inst.Quote(),
		Series: s.history.Window(inst.Symbol(), window),
	}, nil
}

func (s *System) Dashboard() Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	cash := s.cash.Balance()
	value := s.portfolioValueLocked()
	principal := s.portfolioPrincipalLocked()
	return Dashboard{
		Tick:               s.tick,
		Cash:               cash,
		PortfolioValue:     value,
		PortfolioPrincipal: principal,
		PortfolioGain:      value.Sub(principal),
		NetWorth:           cash.Add(value),
		Positions:          s.positionViewsLocked(),
		Lifetime:           s.lifetimeLocked(),
	}
}

func (s *System) lifetimeLocked() Stats {
	return Stats{
		InvestmentsOpened: s.ledger.InvestmentsOpened(),
		PrincipalInvested: s.principal,
		TotalGain:         s.totalGain,
		PeakValue:         s.peak,
	}
}

// refreshLocked recomputes lifetime total gain as realized plus open
// unrealized gain and raises the peak when the portfolio is worth more.
func (s *System) refreshLocked() {
	value := s.portfolioValueLocked()
	unrealized := value.Sub(s.portfolioPrincipalLocked())
	s.totalGain = s.ledger.RealizedGain().Add(unrealized)
	if value.GreaterThan(s.peak) {
		s.peak = value
	}
}

func (s *System) portfolioValueLocked() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range s.ledger.Positions() {
		total = total.Add(pos.Value(s.priceLocked(pos.Instrument.Symbol)))
	}
	return total
}

func (s *System) portfolioPrincipalLocked() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range s.ledger.Positions() {
		total = total.Add(pos.CostBasis())
	}
	return total
}

func (s *System) positionViewsLocked() []PositionView {
	positions := s.ledger.Positions()
	out := make([]PositionView, 0, len(positions))
	for _, pos := range positions {
		price := s.priceLocked(pos.Instrument.Symbol)
		out = append(out, PositionView{
			Symbol:         pos.Instrument.Symbol,
			Name:           pos.Instrument.Name,
			Category:       pos.Instrument.Category,
			Shares:         pos.Shares,
			AvgPrice:       pos.AvgPrice,
			CurrentPrice:   price,
			Value:          pos.Value(price),
			UnrealizedGain: pos.UnrealizedGain(price),
			OpenedTick:     pos.OpenedTick,
		})
	}
	return out
}

func (s *System) priceLocked(symbol string) decimal.Decimal {
	inst, err := s.market.Instrument(symbol)
	if err != nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(inst.Price())
}
