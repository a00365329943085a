package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// roundingScale fixes the reported horizontal illuminance to 9 decimals.
const roundingScale = 1e9

func round9(x float64) float64 { return math.Round(x*roundingScale) / roundingScale }

// keepContribution is the no-data boundary shared by both calculators: only
// strictly positive contributions count. NaN, zero and negative values are
// all dropped, so a no-data pixel cannot be told apart from a pixel whose
// computed contribution is zero or negative.
func keepContribution(v float64) bool { return v > 0 }

// Horizontal integrates a field onto a horizontal surface.
//
// theta holds one zenith angle (degrees) per field row. Each pixel contributes
// E_i * cos(theta) * AreaCorrection(theta); pixels below the horizon have a
// negative cosine and drop out with the no-data pixels. chunkCols > 0 sums the
// field in column blocks of that width to bound the working set; the result
// matches the unchunked sum to the rounding precision.
func Horizontal(theta []float64, field *Field, chunkCols int) (HorizontalResult, error) {
	if len(theta) != field.Rows {
		return HorizontalResult{}, fmt.Errorf("%w: %d zenith angles for %d field rows", ErrShapeMismatch, len(theta), field.Rows)
	}
	if len(field.Data) != field.Rows*field.Cols {
		return HorizontalResult{}, fmt.Errorf("%w: field data %d for %dx%d", ErrShapeMismatch, len(field.Data), field.Rows, field.Cols)
	}
	if chunkCols <= 0 || chunkCols > field.Cols {
		chunkCols = field.Cols
	}

	rowFactor := make([]float64, len(theta))
	for i, t := range theta {
		rowFactor[i] = math.Cos(deg2rad(t)) * field.Policy.AreaCorrection(t)
	}

	res := HorizontalResult{Policy: field.Policy}
	partials := make([]float64, 0, (field.Cols+chunkCols-1)/chunkCols)
	for c0 := 0; c0 < field.Cols; c0 += chunkCols {
		c1 := min(c0+chunkCols, field.Cols)
		partial := 0.0
		for i := 0; i < field.Rows; i++ {
			row := field.Data[i*field.Cols : (i+1)*field.Cols]
			for _, e := range row[c0:c1] {
				v := e * rowFactor[i]
				if keepContribution(v) {
					partial += v
					res.Included++
				} else {
					res.Excluded++
				}
			}
		}
		partials = append(partials, partial)
	}
	res.Illuminance = round9(floats.Sum(partials))
	return res, nil
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
