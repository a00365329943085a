package skygrid

import (
	"fmt"
	"math"
)

// SolidAnglePolicy selects how the angular area of a pixel is computed.
//
// Exact integrates sin(theta) dtheta dphi over the pixel, so its weight
// already contains the sin(theta) area factor. SmallAngle uses the flat
// dtheta*dphi (dtheta^2 for square pixels) and leaves sin(theta) to the
// calculators through AreaCorrection. Both are only equivalent in the limit
// of small pixels.
type SolidAnglePolicy int

const (
	// Exact integrates the pixel's true solid angle.
	Exact SolidAnglePolicy = iota
	// SmallAngle approximates the pixel as a flat dtheta by dphi patch.
	SmallAngle
)

func (p SolidAnglePolicy) String() string {
	switch p {
	case Exact:
		return "exact"
	case SmallAngle:
		return "small_angle"
	default:
		return "unknown"
	}
}

// ParseSolidAnglePolicy maps a configuration string to a policy.
func ParseSolidAnglePolicy(s string) (SolidAnglePolicy, error) {
	switch s {
	case "exact":
		return Exact, nil
	case "small_angle", "small-angle", "approx":
		return SmallAngle, nil
	default:
		return Exact, fmt.Errorf("unknown solid angle policy %q", s)
	}
}

// Weight returns the solid-angle weight in steradians of a pixel centred at
// zenith angle theta, for pixel steps dTheta and dPhi in degrees.
func (p SolidAnglePolicy) Weight(theta, dTheta, dPhi float64) float64 {
	switch p {
	case SmallAngle:
		return deg2rad(dTheta) * deg2rad(dPhi)
	default:
		lo := deg2rad(theta - dTheta/2)
		hi := deg2rad(theta + dTheta/2)
		return deg2rad(dPhi) * (math.Cos(lo) - math.Cos(hi))
	}
}

// AreaCorrection is the sin(theta) factor the calculators still have to apply
// on top of Weight.
func (p SolidAnglePolicy) AreaCorrection(theta float64) float64 {
	if p == SmallAngle {
		return math.Sin(deg2rad(theta))
	}
	return 1
}

// RowWeights evaluates Weight for every row of g.
func (p SolidAnglePolicy) RowWeights(g *Grid) []float64 {
	w := make([]float64, g.Rows())
	for i, t := range g.Theta {
		w[i] = p.Weight(t, g.ZenithStep, g.AzimuthStep)
	}
	return w
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
