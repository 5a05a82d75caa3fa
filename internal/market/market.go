package market

import (
	"fmt"
)

// Market owns the tradable instruments and the model that moves them.
type Market struct {
	model       *Model
	instruments []*Instrument
	bySymbol    map[string]*Instrument
}

func New(model *Model, defs []Definition) (*Market, error) {
	m := &Market{
		model:    model,
		bySymbol: make(map[string]*Instrument, len(defs)),
	}
	for _, def := range defs {
		inst, err := NewInstrument(def)
		if err != nil {
			return nil, err
		}
		if _, ok := m.bySymbol[inst.Symbol()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, inst.Symbol())
		}
		m.instruments = append(m.instruments, inst)
		m.bySymbol[inst.Symbol()] = inst
	}
	return m, nil
}

// Tick advances every instrument by one day, in catalog order.
func (m *Market) Tick() {
	for _, inst := range m.instruments {
		m.model.Advance(inst)
	}
}

func (m *Market) Model() *Model { return m.model }

func (m *Market) Instrument(symbol string) (*Instrument, error) {
	inst, ok := m.bySymbol[NormalizeSymbol(symbol)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstrument, symbol)
	}
	return inst, nil
}

// Instruments returns the instruments in catalog order.
func (m *Market) Instruments() []*Instrument {
	out := make([]*Instrument, len(m.instruments))
	copy(out, m.instruments)
	return out
}

func (m *Market) Quotes() []Quote {
	out := make([]Quote, 0, len(m.instruments))
	for _, inst := range m.instruments {
		out = append(out, inst.Quote())
	}
	return out
}

func (m *Market) CurrentPrices() map[string]float64 {
	out := make(map[string]float64, len(m.instruments))
	for _, inst := range m.instruments {
		out[inst.Symbol()] = inst.Price()
	}
	return out
}
