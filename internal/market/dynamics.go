package market

import (
	"fmt"
	"strings"
)

// Dynamics tunes the variable-return random walk. Sigma is the standard
// deviation of the daily return noise; Band is the fraction of the expected
// price the walk may stray before it is clamped back.
type Dynamics struct {
	LowSigma    float64
	MediumSigma float64
	HighSigma   float64
	LowBand     float64
	MediumBand  float64
	HighBand    float64
	// FloorRatio is the fraction of base price no instrument can fall below.
	FloorRatio float64
}

const (
	defaultLowBand    = 0.30
	defaultMediumBand = 0.80
	defaultHighBand   = 1.50
	defaultFloorRatio = 0.20
)

// DynamicsFor maps a volatility mode (calm, mor, wild) to walk parameters.
// Unknown modes get the "mor" preset.
func DynamicsFor(mode string) Dynamics {
	d := Dynamics{
		LowBand:    defaultLowBand,
		MediumBand: defaultMediumBand,
		HighBand:   defaultHighBand,
		FloorRatio: defaultFloorRatio,
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "calm":
		d.LowSigma, d.MediumSigma, d.HighSigma = 0.006, 0.012, 0.022
	case "wild":
		d.LowSigma, d.MediumSigma, d.HighSigma = 0.016, 0.032, 0.055
	default:
		d.LowSigma, d.MediumSigma, d.HighSigma = 0.010, 0.020, 0.035
	}
	return d
}

func DefaultDynamics() Dynamics {
	return DynamicsFor("mor")
}

func (d Dynamics) Sigma(r RiskTier) float64 {
	switch r {
	case RiskLow:
		return d.LowSigma
	case RiskMedium:
		return d.MediumSigma
	case RiskHigh:
		return d.HighSigma
	default:
		panic(fmt.Sprintf("market: unhandled risk tier %q", r))
	}
}

func (d Dynamics) Band(r RiskTier) float64 {
	switch r {
	case RiskLow:
		return d.LowBand
	case RiskMedium:
		return d.MediumBand
	case RiskHigh:
		return d.HighBand
	default:
		panic(fmt.Sprintf("market: unhandled risk tier %q", r))
	}
}

// Validate enforces Low < Medium < High for both noise and clamp bands.
func (d Dynamics) Validate() error {
	if d.LowSigma < 0 || !(d.LowSigma < d.MediumSigma && d.MediumSigma < d.HighSigma) {
		return fmt.Errorf("%w: sigma must satisfy 0 <= low < medium < high", ErrInvalidDynamics)
	}
	if d.LowBand <= 0 || !(d.LowBand < d.MediumBand && d.MediumBand < d.HighBand) {
		return fmt.Errorf("%w: bands must satisfy 0 < low < medium < high", ErrInvalidDynamics)
	}
	if d.FloorRatio <= 0 || d.FloorRatio >= 1 {
		return fmt.Errorf("%w: floor ratio must be in (0, 1)", ErrInvalidDynamics)
	}
	return nil
}
