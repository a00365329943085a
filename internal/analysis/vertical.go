package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/user/skyglow_illuminance_go/internal/skygrid"
)

// NormalizeAzimuth maps a into [-180, 180).
func NormalizeAzimuth(a float64) float64 {
	a = math.Mod(a+180, 360)
	if a < 0 {
		a += 360
	}
	return a - 180
}

// FacingDirections returns the facing azimuths [-180, 180) at interval degrees.
// The interval must divide 180 so that both 0 and -180 are sampled and the
// compass rotation lands exactly on azimuth 0.
func FacingDirections(interval float64) ([]float64, error) {
	if !(interval > 0) || interval > 180 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}
	half := 180 / interval
	n := math.Round(half)
	if math.Abs(half-n) > 1e-9 {
		return nil, fmt.Errorf("%w: %v does not divide 180", ErrInvalidInterval, interval)
	}
	dirs := make([]float64, 2*int(n))
	for i := range dirs {
		dirs[i] = -180 + float64(i)*interval
	}
	return dirs, nil
}

// BandColumns returns the indices of the columns whose azimuth lies within 90
// degrees of phi0, ordered from phi0-90 to phi0+90. az must be increasing and
// within [-180, 180). When the band crosses the seam it is the union of two
// sub-ranges: wrap-low when phi0-90 < -180, wrap-high when phi0+90 > 180.
func BandColumns(az []float64, phi0 float64) []int {
	phi0 = NormalizeAzimuth(phi0)
	start, end := phi0-90, phi0+90
	switch {
	case start < -180:
		return append(columnsIn(az, start+360, 180), columnsIn(az, -180, end)...)
	case end > 180:
		return append(columnsIn(az, start, 180), columnsIn(az, -180, end-360)...)
	default:
		return columnsIn(az, start, end)
	}
}

// columnsIn returns the indices with lo <= az <= hi.
func columnsIn(az []float64, lo, hi float64) []int {
	i0 := sort.SearchFloat64s(az, lo)
	i1 := sort.Search(len(az), func(i int) bool { return az[i] > hi })
	idx := make([]int, 0, max(i1-i0, 0))
	for i := i0; i < i1; i++ {
		idx = append(idx, i)
	}
	return idx
}

// IncidenceAngles returns, for each band column, the horizontal angle in
// degrees between the column's azimuth and the surface normal at phi0. The
// result spans -90..90 in band order; on a uniform grid whose step divides the
// facing interval it is the same array for every phi0.
func IncidenceAngles(az []float64, band []int, phi0 float64) []float64 {
	phi := make([]float64, len(band))
	for k, j := range band {
		phi[k] = NormalizeAzimuth(az[j] - phi0)
	}
	return phi
}

// verticalIntegrator holds the row factors shared by every facing direction.
type verticalIntegrator struct {
	az        []float64
	field     *Field
	rowFactor []float64 // sin(theta) * AreaCorrection(theta)
}

func newVerticalIntegrator(g *skygrid.Grid, field *Field) (*verticalIntegrator, error) {
	if g.Cols() != field.Cols {
		return nil, fmt.Errorf("%w: %d azimuths for %d field columns", ErrShapeMismatch, g.Cols(), field.Cols)
	}
	if len(field.Data) != field.Rows*field.Cols {
		return nil, fmt.Errorf("%w: field data %d for %dx%d", ErrShapeMismatch, len(field.Data), field.Rows, field.Cols)
	}
	theta := g.Theta
	switch {
	case len(theta) > field.Rows:
		// grid built for a taller image; use the rows the field actually has
		theta = theta[:field.Rows]
	case len(theta) < field.Rows:
		return nil, fmt.Errorf("%w: %d zenith angles for %d field rows", ErrShapeMismatch, len(theta), field.Rows)
	}
	rowFactor := make([]float64, len(theta))
	for i, t := range theta {
		rowFactor[i] = math.Sin(deg2rad(t)) * field.Policy.AreaCorrection(t)
	}
	return &verticalIntegrator{az: g.Az, field: field, rowFactor: rowFactor}, nil
}

func (v *verticalIntegrator) at(phi0 float64) DirectionPoint {
	phi0 = NormalizeAzimuth(phi0)
	band := BandColumns(v.az, phi0)
	phi := IncidenceAngles(v.az, band, phi0)
	cosPhi := make([]float64, len(phi))
	for k, p := range phi {
		cosPhi[k] = math.Cos(deg2rad(p))
	}

	pt := DirectionPoint{Azimuth: phi0}
	sum := 0.0
	for i, rf := range v.rowFactor {
		row := v.field.Data[i*v.field.Cols : (i+1)*v.field.Cols]
		for k, j := range band {
			c := row[j] * cosPhi[k] * rf
			if keepContribution(c) {
				sum += c
				pt.Included++
			} else {
				pt.Excluded++
			}
		}
	}
	pt.Illuminance = sum
	return pt
}

// VerticalAt returns the vertical illuminance for a surface facing phi0.
// phi0 may be any angle; it is normalised first, so the result is periodic.
func VerticalAt(g *skygrid.Grid, field *Field, phi0 float64) (DirectionPoint, error) {
	vi, err := newVerticalIntegrator(g, field)
	if err != nil {
		return DirectionPoint{}, err
	}
	return vi.at(phi0), nil
}

// Vertical evaluates every facing direction at interval degrees and returns
// the curve in compass order, azimuth 0 first, azimuths in [0, 360).
func Vertical(g *skygrid.Grid, field *Field, interval float64) (*VerticalCurve, error) {
	dirs, err := FacingDirections(interval)
	if err != nil {
		return nil, err
	}
	vi, err := newVerticalIntegrator(g, field)
	if err != nil {
		return nil, err
	}
	points := make([]DirectionPoint, len(dirs))
	for i, phi0 := range dirs {
		points[i] = vi.at(phi0)
	}
	points = ToCompassOrder(points)
	for i := range points {
		points[i].Azimuth = CompassAzimuth(points[i].Azimuth)
	}
	return &VerticalCurve{Interval: interval, Points: points}, nil
}
