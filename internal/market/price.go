package market

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"investlab/internal/compound"
)

// Source supplies standard normal draws for the random walk. *rand.Rand
// satisfies it.
type Source interface {
	NormFloat64() float64
}

// Model advances instrument prices one day at a time.
type Model struct {
	dyn Dynamics
	rng Source
}

// NewModel builds a price model. A nil rng is replaced by a time-seeded one.
func NewModel(dyn Dynamics, rng Source) (*Model, error) {
	if err := dyn.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Model{dyn: dyn, rng: rng}, nil
}

// NewSeededModel is NewModel with a deterministic generator.
func NewSeededModel(dyn Dynamics, seed int64) (*Model, error) {
	return NewModel(dyn, rand.New(rand.NewSource(seed)))
}

func (m *Model) Dynamics() Dynamics { return m.dyn }

// Advance moves inst forward one day and returns its new price.
func (m *Model) Advance(inst *Instrument) float64 {
	inst.days++
	inst.price = nextPrice(inst.def, m.dyn, inst.price, inst.days, m.rng)
	return inst.price
}

// Project returns the prices for days 1..length of a fresh instrument with
// the given definition, driven by seed. It only reads the definition, so the
// same inputs always give the same sequence.
func Project(def Definition, dyn Dynamics, length int, seed int64) ([]float64, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := dyn.Validate(); err != nil {
		return nil, err
	}
	if length <= 0 {
		return []float64{}, nil
	}
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, length)
	price := def.BasePrice
	for day := 1; day <= length; day++ {
		price = nextPrice(def, dyn, price, day, rng)
		out[day-1] = price
	}
	return out, nil
}

// CurvePrice is the price of a fixed-return instrument on day, floor
// included. Negative days extend the curve backwards from the base price.
func CurvePrice(def Definition, dyn Dynamics, day int) float64 {
	return applyFloor(def, dyn, fixedCurve(def, day))
}

func fixedCurve(def Definition, day int) float64 {
	return def.BasePrice * math.Pow(1+compound.DailyRate(def.AnnualRate), float64(day))
}

// Floor is the lowest price def may ever trade at under dyn.
func Floor(def Definition, dyn Dynamics) float64 {
	return def.BasePrice * dyn.FloorRatio
}

func applyFloor(def Definition, dyn Dynamics, price float64) float64 {
	return math.Max(price, Floor(def, dyn))
}

func nextPrice(def Definition, dyn Dynamics, price float64, day int, rng Source) float64 {
	var next float64
	rm := def.ReturnModel()
	switch rm.Kind {
	case ReturnFixed:
		next = fixedCurve(def, day)
	case ReturnVariable:
		drift := compound.DailyRate(def.AnnualRate)
		noise := rng.NormFloat64() * dyn.Sigma(rm.Risk)
		next = price * (1 + drift + noise)

		// Clamp around the trend price, not the base, so the walk follows
		// its long-run curve.
		expected := def.ExpectedPrice(day)
		band := dyn.Band(rm.Risk)
		next = clamp(next, expected*(1-band), expected*(1+band))
	default:
		panic(fmt.Sprintf("market: unhandled return kind %d for %s", rm.Kind, def.Symbol))
	}

	return applyFloor(def, dyn, next)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
