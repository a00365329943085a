package analysis

import (
	"fmt"
	"math"

	"github.com/user/skyglow_illuminance_go/internal/parser"
	"github.com/user/skyglow_illuminance_go/internal/skygrid"
	"github.com/user/skyglow_illuminance_go/internal/units"
)

// BrightnessUnit is the unit of the raster values.
type BrightnessUnit int

const (
	// Nanolambert is sky radiance in nL.
	Nanolambert BrightnessUnit = iota
	// Magnitude is sky brightness in magnitudes per square arcsecond.
	Magnitude
)

func (u BrightnessUnit) String() string {
	if u == Magnitude {
		return "magnitude"
	}
	return "nanolambert"
}

// ParseBrightnessUnit maps a configuration string to a BrightnessUnit.
func ParseBrightnessUnit(s string) (BrightnessUnit, error) {
	switch s {
	case "nanolambert", "nl", "":
		return Nanolambert, nil
	case "magnitude", "mag":
		return Magnitude, nil
	default:
		return Nanolambert, fmt.Errorf("unknown brightness unit %q", s)
	}
}

// toNanolambert returns the conversion from raster values to nL.
func toNanolambert(unit BrightnessUnit, formula units.MagnitudeFormula) (func(float64) (float64, error), error) {
	switch unit {
	case Nanolambert:
		return func(v float64) (float64, error) { return v, nil }, nil
	case Magnitude:
		if formula == units.FormulaUnset {
			return nil, fmt.Errorf("%w: magnitude rasters need an explicit magnitude formula", ErrInvalidOptions)
		}
		return formula.ToNanolambert, nil
	default:
		return nil, fmt.Errorf("%w: brightness unit %d", ErrInvalidOptions, unit)
	}
}

// BuildField converts a brightness raster into per-pixel illuminance (mlx)
// on grid g. No-data pixels become NaN so they can never pass the
// strictly-positive filter of the calculators.
func BuildField(r *parser.Raster, g *skygrid.Grid, policy skygrid.SolidAnglePolicy, unit BrightnessUnit, formula units.MagnitudeFormula) (*Field, error) {
	if r.Rows != g.Rows() || r.Cols != g.Cols() {
		return nil, fmt.Errorf("%w: raster %dx%d, grid %dx%d", ErrShapeMismatch, r.Rows, r.Cols, g.Rows(), g.Cols())
	}
	convert, err := toNanolambert(unit, formula)
	if err != nil {
		return nil, err
	}

	weights := policy.RowWeights(g)
	f := &Field{Rows: r.Rows, Cols: r.Cols, Data: make([]float64, len(r.Data)), Policy: policy}
	for i := 0; i < r.Rows; i++ {
		// ucd/m^2 * sr = ulx; /1000 gives mlx
		scale := weights[i] / 1000
		row := r.Row(i)
		out := f.Data[i*f.Cols : (i+1)*f.Cols]
		for j, v := range row {
			if r.IsNoData(v) {
				out[j] = math.NaN()
				continue
			}
			nl, err := convert(v)
			if err != nil {
				return nil, fmt.Errorf("pixel (%d,%d): %w", i, j, err)
			}
			out[j] = units.NanolambertToMicrocandela(nl) * scale
		}
	}
	return f, nil
}
