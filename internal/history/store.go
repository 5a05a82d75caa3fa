// Package history keeps a bounded rolling window of recent prices per
// instrument and generates synthetic backfill for charts.
package history

import (
	"fmt"
	"math"

	"investlab/internal/market"
)

// DefaultCapacity is the number of points kept per instrument.
const DefaultCapacity = 200

// PricePoint is one recorded price. Day is the instrument's elapsed-day
// counter when recorded; backfilled points carry days <= 0.
type PricePoint struct {
	Day   int     `json:"day"`
	Price float64 `json:"price"`
}

// PriceSource is anything that can report the current price of each
// instrument along with its elapsed-day counter.
type PriceSource interface {
	Quotes() []market.Quote
}

type Store struct {
	capacity int
	series   map[string][]PricePoint
}

func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		series:   make(map[string][]PricePoint),
	}
}

func (s *Store) Capacity() int { return s.capacity }

// Append records one point for symbol, evicting the oldest points once the
// capacity is exceeded.
func (s *Store) Append(symbol string, p PricePoint) {
	pts := append(s.series[symbol], p)
	if over := len(pts) - s.capacity; over > 0 {
		// Copy into a fresh slice so the evicted head can be collected.
		trimmed := make([]PricePoint, s.capacity, s.capacity+1)
		copy(trimmed, pts[over:])
		pts = trimmed
	}
	s.series[symbol] = pts
}

// RecordTick appends the current price of every instrument in src.
func (s *Store) RecordTick(src PriceSource) {
	for _, q := range src.Quotes() {
		s.Append(q.Symbol, PricePoint{Day: q.DaysElapsed, Price: q.Price})
	}
}

// Seed replaces symbol's history with prices, dated so the last one lands on
// lastDay. Only the most recent capacity prices are kept.
func (s *Store) Seed(symbol string, prices []float64, lastDay int) {
	if len(prices) > s.capacity {
		prices = prices[len(prices)-s.capacity:]
	}
	pts := make([]PricePoint, len(prices), len(prices)+1)
	for i, p := range prices {
		pts[i] = PricePoint{Day: lastDay - len(prices) + 1 + i, Price: p}
	}
	s.series[symbol] = pts
}

// Window returns the most recent min(n, len) points, oldest first. Unknown
// symbols and non-positive n give an empty slice.
func (s *Store) Window(symbol string, n int) []PricePoint {
	pts := s.series[symbol]
	if n <= 0 || len(pts) == 0 {
		return []PricePoint{}
	}
	if n > len(pts) {
		n = len(pts)
	}
	out := make([]PricePoint, n)
	copy(out, pts[len(pts)-n:])
	return out
}

func (s *Store) Len(symbol string) int {
	return len(s.series[symbol])
}

// Simulate generates length synthetic prices for def using the same walk as
// live play, driven only by seed. The live instrument is never touched.
func Simulate(def market.Definition, dyn market.Dynamics, length int, seed int64) ([]float64, error) {
	return market.Project(def, dyn, length, seed)
}

// Backfill generates length prices leading up to and ending at q's current
// price on its current day, for seeding a chart before play starts.
// Fixed-return instruments get their exact curve. Variable ones get a
// simulated walk scaled so its last point meets the live price.
func Backfill(q market.Quote, dyn market.Dynamics, length int, seed int64) ([]float64, error) {
	def := q.Definition
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if err := dyn.Validate(); err != nil {
		return nil, err
	}
	if length <= 0 {
		return []float64{}, nil
	}

	switch def.ReturnModel().Kind {
	case market.ReturnFixed:
		out := make([]float64, length)
		first := q.DaysElapsed - length + 1
		for i := range out {
			out[i] = market.CurvePrice(def, dyn, first+i)
		}
		out[length-1] = q.Price
		return out, nil
	case market.ReturnVariable:
		out, err := Simulate(def, dyn, length, seed)
		if err != nil {
			return nil, err
		}
		scale := q.Price / out[length-1]
		floor := market.Floor(def, dyn)
		for i := range out {
			out[i] = math.Max(out[i]*scale, floor)
		}
		out[length-1] = q.Price
		return out, nil
	default:
		panic(fmt.Sprintf("history: unhandled return kind %d for %s", def.ReturnModel().Kind, def.Symbol))
	}
}
