package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"investlab/internal/compound"
)

type constSource struct{ v float64 }

func (c constSource) NormFloat64() float64 { return c.v }

func stock(symbol string, risk RiskTier) Definition {
	return Definition{Symbol: symbol, Category: CategoryStock, Risk: risk, AnnualRate: 0.08, BasePrice: 100}
}

func mustInstrument(t *testing.T, def Definition) *Instrument {
	t.Helper()
	inst, err := NewInstrument(def)
	require.NoError(t, err)
	return inst
}

func mustModel(t *testing.T, seed int64) *Model {
	t.Helper()
	m, err := NewSeededModel(DefaultDynamics(), seed)
	require.NoError(t, err)
	return m
}

func TestAdvanceStaysInBandAfterOneYear(t *testing.T) {
	dyn := DefaultDynamics()
	assert.Less(t, dyn.LowBand, dyn.MediumBand)
	assert.Less(t, dyn.MediumBand, dyn.HighBand)

	for _, risk := range []RiskTier{RiskLow, RiskMedium, RiskHigh} {
		for seed := int64(1); seed <= 20; seed++ {
			m := mustModel(t, seed)
			inst := mustInstrument(t, stock("ABC", risk))
			for day := 0; day < compound.DaysPerYear; day++ {
				m.Advance(inst)
			}
			require.Equal(t, compound.DaysPerYear, inst.DaysElapsed())

			expected := inst.Definition().ExpectedPrice(compound.DaysPerYear)
			band := dyn.Band(risk)
			assert.GreaterOrEqual(t, inst.Price(), math.Max(expected*(1-band), 0), "risk=%s seed=%d", risk, seed)
			assert.LessOrEqual(t, inst.Price(), expected*(1+band), "risk=%s seed=%d", risk, seed)
		}
	}
}

func TestFixedReturnFollowsCompoundCurve(t *testing.T) {
	def := Definition{Symbol: "BOND", Category: CategoryBond, Risk: RiskLow, AnnualRate: 0.05, BasePrice: 100}
	a := mustInstrument(t, def)
	b := mustInstrument(t, def)
	ma := mustModel(t, 1)
	mb := mustModel(t, 2)

	daily := compound.DailyRate(def.AnnualRate)
	prev := def.BasePrice
	for day := 1; day <= compound.DaysPerYear; day++ {
		pa := ma.Advance(a)
		pb := mb.Advance(b)
		assert.Equal(t, pa, pb, "day %d", day)
		assert.InDelta(t, def.BasePrice*math.Pow(1+daily, float64(day)), pa, 1e-9)
		assert.GreaterOrEqual(t, pa, prev)
		prev = pa
	}
	assert.InDelta(t, 105, a.Price(), 1e-6)
}

func TestTBillIgnoresNoise(t *testing.T) {
	def := Definition{Symbol: "TB", Category: CategoryTBill, Risk: RiskHigh, AnnualRate: 0.04, BasePrice: 100}
	inst := mustInstrument(t, def)
	m, err := NewModel(DefaultDynamics(), constSource{v: 50})
	require.NoError(t, err)

	m.Advance(inst)
	assert.InDelta(t, 100*(1+compound.DailyRate(0.04)), inst.Price(), 1e-12)
}

func TestHigherRiskHasWiderSpread(t *testing.T) {
	const trials = 300
	finals := func(risk RiskTier) []float64 {
		out := make([]float64, 0, trials)
		for seed := int64(0); seed < trials; seed++ {
			m := mustModel(t, seed)
			inst := mustInstrument(t, stock("XYZ", risk))
			for day := 0; day < compound.DaysPerYear; day++ {
				m.Advance(inst)
			}
			out = append(out, inst.Price())
		}
		return out
	}

	low := stddev(finals(RiskLow))
	medium := stddev(finals(RiskMedium))
	high := stddev(finals(RiskHigh))
	assert.Greater(t, high, low)
	assert.Greater(t, medium, low)
}

func TestFloorHoldsOverLongHorizons(t *testing.T) {
	dyn := DynamicsFor("wild")
	for _, risk := range []RiskTier{RiskLow, RiskMedium, RiskHigh} {
		def := Definition{Symbol: "DOWN", Category: CategoryETF, Risk: risk, AnnualRate: -0.5, BasePrice: 40}
		inst := mustInstrument(t, def)
		m, err := NewSeededModel(dyn, 7)
		require.NoError(t, err)
		floor := def.BasePrice * dyn.FloorRatio
		for day := 0; day < 1500; day++ {
			p := m.Advance(inst)
			require.GreaterOrEqual(t, p, floor, "risk=%s day=%d", risk, day)
			require.False(t, math.IsNaN(p) || math.IsInf(p, 0))
		}
	}

	bond := Definition{Symbol: "JUNK", Category: CategoryBond, Risk: RiskLow, AnnualRate: -0.3, BasePrice: 100}
	inst := mustInstrument(t, bond)
	m := mustModel(t, 1)
	for day := 0; day < 2000; day++ {
		m.Advance(inst)
	}
	assert.Equal(t, 20.0, inst.Price())
}

func TestClampSnapsToBandEdges(t *testing.T) {
	dyn := DefaultDynamics()

	up, err := NewModel(dyn, constSource{v: 100})
	require.NoError(t, err)
	inst := mustInstrument(t, stock("UP", RiskLow))
	up.Advance(inst)
	assert.InDelta(t, inst.Definition().ExpectedPrice(1)*(1+dyn.LowBand), inst.Price(), 1e-9)

	down, err := NewModel(dyn, constSource{v: -100})
	require.NoError(t, err)
	low := mustInstrument(t, stock("DN", RiskLow))
	down.Advance(low)
	assert.InDelta(t, low.Definition().ExpectedPrice(1)*(1-dyn.LowBand), low.Price(), 1e-9)

	// The high band's lower edge is negative, so the floor wins.
	high := mustInstrument(t, stock("HI", RiskHigh))
	down.Advance(high)
	assert.Equal(t, 100*dyn.FloorRatio, high.Price())
}

func TestProjectIsDeterministicAndPure(t *testing.T) {
	inst := mustInstrument(t, stock("PURE", RiskMedium))
	m := mustModel(t, 3)
	m.Advance(inst)
	price, days := inst.Price(), inst.DaysElapsed()

	a, err := Project(inst.Definition(), DefaultDynamics(), 30, 42)
	require.NoError(t, err)
	b, err := Project(inst.Definition(), DefaultDynamics(), 30, 42)
	require.NoError(t, err)
	c, err := Project(inst.Definition(), DefaultDynamics(), 30, 99)
	require.NoError(t, err)

	require.Len(t, a, 30)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, price, inst.Price())
	assert.Equal(t, days, inst.DaysElapsed())

	empty, err := Project(inst.Definition(), DefaultDynamics(), 0, 42)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestProjectMatchesLiveWalk(t *testing.T) {
	def := stock("SAME", RiskHigh)
	projected, err := Project(def, DefaultDynamics(), 50, 11)
	require.NoError(t, err)

	inst := mustInstrument(t, def)
	m := mustModel(t, 11)
	for i := range projected {
		assert.Equal(t, projected[i], m.Advance(inst))
	}
}

func TestProjectRejectsInvalidInput(t *testing.T) {
	valid := stock("OKAY", RiskLow)

	tests := []struct {
		name string
		def  Definition
		dyn  Dynamics
		want error
	}{
		{name: "unknown category", def: Definition{Symbol: "ODD", Category: "crypto", Risk: RiskLow, AnnualRate: 0.1, BasePrice: 10}, dyn: DefaultDynamics(), want: ErrInvalidDefinition},
		{name: "unknown risk", def: Definition{Symbol: "ODD", Category: CategoryStock, Risk: "extreme", AnnualRate: 0.1, BasePrice: 10}, dyn: DefaultDynamics(), want: ErrInvalidDefinition},
		{name: "rate at or below -1", def: Definition{Symbol: "ODD", Category: CategoryBond, Risk: RiskLow, AnnualRate: -2, BasePrice: 10}, dyn: DefaultDynamics(), want: ErrInvalidDefinition},
		{name: "zero base price", def: Definition{Symbol: "ODD", Category: CategoryStock, Risk: RiskLow, AnnualRate: 0.1}, dyn: DefaultDynamics(), want: ErrInvalidDefinition},
		{name: "broken dynamics", def: valid, dyn: Dynamics{}, want: ErrInvalidDynamics},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Project(tc.def, tc.dyn, 3, 1)
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, out)
		})
	}
}

func TestUnknownTierOrCategoryPanics(t *testing.T) {
	dyn := DefaultDynamics()
	assert.Panics(t, func() { dyn.Sigma("extreme") })
	assert.Panics(t, func() { dyn.Band("") })
	assert.Panics(t, func() { Definition{Category: "crypto"}.ReturnModel() })
}

func TestCurvePriceMatchesFixedWalk(t *testing.T) {
	def := Definition{Symbol: "CURVE", Category: CategoryBond, Risk: RiskLow, AnnualRate: 0.05, BasePrice: 100}
	dyn := DefaultDynamics()
	inst := mustInstrument(t, def)
	m := mustModel(t, 1)

	assert.Equal(t, inst.Price(), CurvePrice(def, dyn, 0))
	for day := 1; day <= 30; day++ {
		assert.Equal(t, CurvePrice(def, dyn, day), m.Advance(inst))
	}
	assert.Less(t, CurvePrice(def, dyn, -1), CurvePrice(def, dyn, 0))
	assert.Equal(t, 100*dyn.FloorRatio, Floor(def, dyn))
}

func stddev(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(len(xs)))
}
