// Package ledger tracks open positions and the append-only log of sells.
package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"investlab/internal/market"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrInvalidPrice       = errors.New("price must be >= 0")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrNoPosition         = errors.New("no open position")
)

// Position is a holding in one instrument. Shares == 0 marks a closed
// position that stays in the ledger until the instrument is bought again.
type Position struct {
	ID         uuid.UUID         `json:"id"`
	Instrument market.Definition `json:"instrument"`
	Shares     int64             `json:"shares"`
	AvgPrice   decimal.Decimal   `json:"avg_price"`
	OpenedTick int               `json:"opened_tick"`
}

func (p Position) IsOpen() bool { return p.Shares > 0 }

// CostBasis is what the remaining shares cost at the average price.
func (p Position) CostBasis() decimal.Decimal {
	return p.AvgPrice.Mul(decimal.NewFromInt(p.Shares))
}

func (p Position) Value(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(p.Shares))
}

func (p Position) UnrealizedGain(price decimal.Decimal) decimal.Decimal {
	return p.Value(price).Sub(p.CostBasis())
}

// SellRecord is an immutable snapshot of one sell.
type SellRecord struct {
	ID         uuid.UUID       `json:"id"`
	PositionID uuid.UUID       `json:"position_id"`
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	Category   market.Category `json:"category"`
	SharesSold int64           `json:"shares_sold"`
	Tick       int             `json:"tick"`
	SellPrice  decimal.Decimal `json:"sell_price"`
	CostBasis  decimal.Decimal `json:"cost_basis"`
	Gain       decimal.Decimal `json:"gain"`
	// Return is Gain over the cost of the sold shares, as a fraction.
	Return decimal.Decimal `json:"return"`
}

func (r SellRecord) Proceeds() decimal.Decimal {
	return r.SellPrice.Mul(decimal.NewFromInt(r.SharesSold))
}

type Ledger struct {
	positions map[string]*Position
	order     []string
	records   []SellRecord
	opened    int
	realized  decimal.Decimal
}

func New() *Ledger {
	return &Ledger{positions: make(map[string]*Position)}
}

// OpenOrAdd buys shares of def at price. A new position is opened when none
// is open for the instrument; otherwise the average price is re-weighted.
func (l *Ledger) OpenOrAdd(def market.Definition, shares int64, price decimal.Decimal, tick int) (Position, error) {
	if shares <= 0 {
		return Position{}, ErrInvalidQuantity
	}
	if price.IsNegative() {
		return Position{}, ErrInvalidPrice
	}

	pos, ok := l.positions[def.Symbol]
	if !ok || !pos.IsOpen() {
		if !ok {
			l.order = append(l.order, def.Symbol)
		}
		pos = &Position{
			ID:         uuid.New(),
			Instrument: def,
			Shares:     shares,
			AvgPrice:   price,
			OpenedTick: tick,
		}
		l.positions[def.Symbol] = pos
		l.opened++
		return *pos, nil
	}

	oldQty := decimal.NewFromInt(pos.Shares)
	newQty := decimal.NewFromInt(shares)
	total := pos.AvgPrice.Mul(oldQty).Add(price.Mul(newQty))
	pos.Shares += shares
	pos.AvgPrice = total.Div(decimal.NewFromInt(pos.Shares))
	return *pos, nil
}

// Sell realizes shares of the open position in symbol at price.
func (l *Ledger) Sell(symbol string, shares int64, price decimal.Decimal, tick int) (SellRecord, error) {
	if shares <= 0 {
		return SellRecord{}, ErrInvalidQuantity
	}
	if price.IsNegative() {
		return SellRecord{}, ErrInvalidPrice
	}
	pos, ok := l.positions[symbol]
	if !ok || !pos.IsOpen() {
		return SellRecord{}, fmt.Errorf("%w: %s", ErrNoPosition, symbol)
	}
	if shares > pos.Shares {
		return SellRecord{}, fmt.Errorf("%w: have %d, selling %d", ErrInsufficientShares, pos.Shares, shares)
	}

	qty := decimal.NewFromInt(shares)
	cost := pos.AvgPrice.Mul(qty)
	gain := price.Sub(pos.AvgPrice).Mul(qty)
	ret := decimal.Zero
	if !cost.IsZero() {
		ret = gain.Div(cost)
	}

	rec := SellRecord{
		ID:         uuid.New(),
		PositionID: pos.ID,
		Symbol:     pos.Instrument.Symbol,
		Name:       pos.Instrument.Name,
		Category:   pos.Instrument.Category,
		SharesSold: shares,
		Tick:       tick,
		SellPrice:  price,
		CostBasis:  pos.AvgPrice,
		Gain:       gain,
		Return:     ret,
	}
	pos.Shares -= shares
	l.records = append(l.records, rec)
	l.realized = l.realized.Add(gain)
	return rec, nil
}

// Position returns the open position for symbol.
func (l *Ledger) Position(symbol string) (Position, bool) {
	pos, ok := l.positions[symbol]
	if !ok || !pos.IsOpen() {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns the open positions in the order they were first opened.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.order))
	for _, sym := range l.order {
		if pos := l.positions[sym]; pos.IsOpen() {
			out = append(out, *pos)
		}
	}
	return out
}

// Records returns the sell log, oldest first.
func (l *Ledger) Records() []SellRecord {
	out := make([]SellRecord, len(l.records))
	copy(out, l.records)
	return out
}

// RealizedGain is the sum of Gain over every record.
func (l *Ledger) RealizedGain() decimal.Decimal { return l.realized }

// InvestmentsOpened counts every position ever opened, including closed ones.
func (l *Ledger) InvestmentsOpened() int { return l.opened }

func (l *Ledger) Reset() {
	l.positions = make(map[string]*Position)
	l.order = nil
	l.records = nil
	l.opened = 0
	l.realized = decimal.Zero
}
