// Package units converts sky brightness between magnitude and radiance scales.
//
// Two magnitude-to-nanolambert formulas exist in the lineage of the night-sky
// processing scripts and they do not agree with each other. Both are kept under
// separate names; callers choose one explicitly.
package units

import (
	"errors"
	"fmt"
	"math"
)

// ErrDomain is returned when an input lies outside a conversion's domain.
var ErrDomain = errors.New("value outside conversion domain")

const (
	// magnitudeZeroPoint is the magnitude of 1 nL on the V-band sky brightness scale.
	magnitudeZeroPoint = 26.3308

	// nanolambertToMicrocandela is the nL -> ucd/m^2 factor (10/pi).
	nanolambertToMicrocandela = 10 / math.Pi
)

// NanolambertToMagnitude converts a radiance in nL to magnitudes per square arcsecond.
// Non-positive and NaN inputs fail with ErrDomain instead of producing NaN or -Inf.
func NanolambertToMagnitude(nl float64) (float64, error) {
	if !(nl > 0) || math.IsInf(nl, 1) {
		return 0, fmt.Errorf("nanolambert %v: %w", nl, ErrDomain)
	}
	return magnitudeZeroPoint - 2.5*math.Log10(nl), nil
}

// MagnitudeToNanolambertExp is the exponential form used by the early
// processing scripts. It is not the inverse of NanolambertToMagnitude.
func MagnitudeToNanolambertExp(m float64) float64 {
	return 34.08 * math.Exp(20.7233-0.92104*m)
}

// MagnitudeToNanolambertPow10 is the exact inverse of NanolambertToMagnitude.
func MagnitudeToNanolambertPow10(m float64) float64 {
	return math.Pow(10, (magnitudeZeroPoint-m)/2.5)
}

// NanolambertToMicrocandela converts nL to ucd/m^2.
func NanolambertToMicrocandela(nl float64) float64 {
	return nanolambertToMicrocandela * nl
}

// MagnitudeFormula selects one of the two magnitude-to-nanolambert conversions.
type MagnitudeFormula int

const (
	// FormulaUnset means no formula was chosen; magnitude input is rejected.
	FormulaUnset MagnitudeFormula = iota
	FormulaExponential
	FormulaPower
)

func (f MagnitudeFormula) String() string {
	switch f {
	case FormulaExponential:
		return "exponential"
	case FormulaPower:
		return "power"
	default:
		return "unset"
	}
}

// ParseMagnitudeFormula maps a configuration string to a MagnitudeFormula.
// The empty string maps to FormulaUnset.
func ParseMagnitudeFormula(s string) (MagnitudeFormula, error) {
	switch s {
	case "":
		return FormulaUnset, nil
	case "exponential", "exp":
		return FormulaExponential, nil
	case "power", "pow10":
		return FormulaPower, nil
	default:
		return FormulaUnset, fmt.Errorf("unknown magnitude formula %q", s)
	}
}

// ToNanolambert converts m with the selected formula.
func (f MagnitudeFormula) ToNanolambert(m float64) (float64, error) {
	switch f {
	case FormulaExponential:
		return MagnitudeToNanolambertExp(m), nil
	case FormulaPower:
		return MagnitudeToNanolambertPow10(m), nil
	default:
		return 0, errors.New("magnitude formula not selected")
	}
}
