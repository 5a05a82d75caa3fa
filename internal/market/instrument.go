package market

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"investlab/internal/compound"
)

var (
	ErrInvalidSymbol     = errors.New("symbol must be 1-10 uppercase letters, digits or dots")
	ErrInvalidDefinition = errors.New("invalid instrument definition")
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrDuplicateSymbol   = errors.New("duplicate instrument symbol")
	ErrInvalidDynamics   = errors.New("invalid market dynamics")
)

var symbolRE = regexp.MustCompile(`^[A-Z][A-Z0-9.]{0,9}$`)

func ValidateSymbol(symbol string) error {
	if !symbolRE.MatchString(strings.TrimSpace(symbol)) {
		return ErrInvalidSymbol
	}
	return nil
}

// NormalizeSymbol upper-cases and trims a user supplied symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

type Category string

const (
	CategoryStock Category = "stock"
	CategoryETF   Category = "etf"
	CategoryBond  Category = "bond"
	CategoryTBill Category = "tbill"
)

// HasFixedReturn reports whether the category follows a deterministic
// compounding curve instead of a random walk.
func (c Category) HasFixedReturn() bool {
	return c == CategoryBond || c == CategoryTBill
}

func (c Category) valid() bool {
	switch c {
	case CategoryStock, CategoryETF, CategoryBond, CategoryTBill:
		return true
	}
	return false
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidDefinition, s)
	}
	return c, nil
}

type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

func (r RiskTier) valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

func ParseRiskTier(s string) (RiskTier, error) {
	r := RiskTier(strings.ToLower(strings.TrimSpace(s)))
	if !r.valid() {
		return "", fmt.Errorf("%w: unknown risk tier %q", ErrInvalidDefinition, s)
	}
	return r, nil
}

type ReturnKind uint8

const (
	ReturnFixed ReturnKind = iota + 1
	ReturnVariable
)

// ReturnModel selects how an instrument's price moves each tick. Risk is only
// meaningful for ReturnVariable.
type ReturnModel struct {
	Kind ReturnKind
	Risk RiskTier
}

// Definition is the immutable configuration of a tradable instrument.
type Definition struct {
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	Risk       RiskTier `json:"risk"`
	AnnualRate float64  `json:"annual_rate"`
	BasePrice  float64  `json:"base_price"`
}

func (d Definition) ReturnModel() ReturnModel {
	switch d.Category {
	case CategoryBond, CategoryTBill:
		return ReturnModel{Kind: ReturnFixed, Risk: d.Risk}
	case CategoryStock, CategoryETF:
		return ReturnModel{Kind: ReturnVariable, Risk: d.Risk}
	default:
		panic(fmt.Sprintf("market: unhandled category %q for %s", d.Category, d.Symbol))
	}
}

func (d Definition) Validate() error {
	if err := ValidateSymbol(d.Symbol); err != nil {
		return err
	}
	if !d.Category.valid() {
		return fmt.Errorf("%w: %s: unknown category %q", ErrInvalidDefinition, d.Symbol, d.Category)
	}
	if !d.Risk.valid() {
		return fmt.Errorf("%w: %s: unknown risk tier %q", ErrInvalidDefinition, d.Symbol, d.Risk)
	}
	if !(d.BasePrice > 0) {
		return fmt.Errorf("%w: %s: base price must be > 0", ErrInvalidDefinition, d.Symbol)
	}
	if !(d.AnnualRate > -1) {
		return fmt.Errorf("%w: %s: annual rate must be > -1", ErrInvalidDefinition, d.Symbol)
	}
	return nil
}

// ExpectedPrice is the trend price after the given number of days.
func (d Definition) ExpectedPrice(days int) float64 {
	return compound.ExpectedPrice(d.BasePrice, d.AnnualRate, days)
}

// Instrument is a definition plus its live price state. Only Model.Advance
// moves the price.
type Instrument struct {
	def   Definition
	price float64
	days  int
}

func NewInstrument(def Definition) (*Instrument, error) {
	def.Symbol = NormalizeSymbol(def.Symbol)
	if def.Name == "" {
		def.Name = def.Symbol
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &Instrument{def: def, price: def.BasePrice}, nil
}

func (i *Instrument) Definition() Definition { return i.def }
func (i *Instrument) Symbol() string         { return i.def.Symbol }
func (i *Instrument) Price() float64         { return i.price }
func (i *Instrument) DaysElapsed() int       { return i.days }

// Quote is a read-only view of an instrument for display.
type Quote struct {
	Definition
	Price       float64 `json:"price"`
	TrendPrice  float64 `json:"trend_price"`
	DaysElapsed int     `json:"days_elapsed"`
}

func (i *Instrument) Quote() Quote {
	return Quote{
		Definition:  i.def,
		Price:       i.price,
		TrendPrice:  i.def.ExpectedPrice(i.days),
		DaysElapsed: i.days,
	}
}
