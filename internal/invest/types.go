package invest

import (
	"github.com/shopspring/decimal"

	"investlab/internal/history"
	"investlab/internal/ledger"
	"investlab/internal/market"
)

// Stats are the lifetime aggregates used for end-of-game scoring. They
// survive full liquidation and only a reset clears them.
type Stats struct {
	InvestmentsOpened int             `json:"investments_opened"`
	PrincipalInvested decimal.Decimal `json:"principal_invested"`
	TotalGain         decimal.Decimal `json:"total_gain"`
	PeakValue         decimal.Decimal `json:"peak_value"`
}

type Dashboard struct {
	Tick               int             `json:"tick"`
	Cash               decimal.Decimal `json:"cash"`
	PortfolioValue     decimal.Decimal `json:"portfolio_value"`
	PortfolioPrincipal decimal.Decimal `json:"portfolio_principal"`
	PortfolioGain      decimal.Decimal `json:"portfolio_gain"`
	NetWorth           decimal.Decimal `json:"net_worth"`
	Positions          []PositionView  `json:"positions"`
	Lifetime           Stats           `json:"lifetime"`
}

type PositionView struct {
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Category       market.Category `json:"category"`
	Shares         int64           `json:"shares"`
	AvgPrice       decimal.Decimal `json:"avg_price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	Value          decimal.Decimal `json:"value"`
	UnrealizedGain decimal.Decimal `json:"unrealized_gain"`
	OpenedTick     int             `json:"opened_tick"`
}

type InstrumentDetail struct {
	market.Quote
	Series []history.PricePoint `json:"series"`
}

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type TradeResult struct {
	Side     Side            `json:"side"`
	Symbol   string          `json:"symbol"`
	Shares   int64           `json:"shares"`
	Price    decimal.Decimal `json:"price"`
	Notional decimal.Decimal `json:"notional"`
	Balance  decimal.Decimal `json:"balance"`
	// Position is the holding after the trade; Shares is 0 once sold out.
	Position ledger.Position `json:"position"`
	// Sell is set for sells only.
	Sell *ledger.SellRecord `json:"sell,omitempty"`
}
