package analysis

import (
	"errors"
	"math"

	"github.com/user/skyglow_illuminance_go/internal/skygrid"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrShapeMismatch is returned when grid and field shapes disagree.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidInterval is returned for an azimuth interval that does not split the circle evenly.
	ErrInvalidInterval = errors.New("invalid azimuth interval")
	// ErrInvalidOptions is returned for option values the pipeline cannot run with.
	ErrInvalidOptions = errors.New("invalid analysis options")
)

// Field holds the per-pixel illuminance contribution in mlx: converted
// brightness times the solid-angle weight of its policy. Missing pixels are NaN.
type Field struct {
	Rows   int
	Cols   int
	Data   []float64 // row-major
	Policy skygrid.SolidAnglePolicy
}

// At returns the contribution at row i, column j.
func (f *Field) At(i, j int) float64 { return f.Data[i*f.Cols+j] }

// HorizontalResult is the horizontal illuminance of one field.
type HorizontalResult struct {
	Illuminance float64 // mlx, rounded to 9 decimals
	Policy      skygrid.SolidAnglePolicy
	Included    int // pixels with a strictly positive contribution
	Excluded    int // pixels dropped: no-data, zero, negative
}

// DirectionPoint is the vertical illuminance on a surface facing Azimuth.
type DirectionPoint struct {
	Azimuth     float64 // degrees
	Illuminance float64 // mlx
	Included    int
	Excluded    int
}

// VerticalCurve is an ordered sequence of facing directions.
type VerticalCurve struct {
	Interval float64
	Points   []DirectionPoint
}

// Values returns the illuminance values in curve order.
func (c *VerticalCurve) Values() []float64 {
	v := make([]float64, len(c.Points))
	for i, p := range c.Points {
		v[i] = p.Illuminance
	}
	return v
}

// PeakIndex returns the index of the brightest facing direction, or -1 for
// an empty curve.
func (c *VerticalCurve) PeakIndex() int {
	if c == nil || len(c.Points) == 0 {
		return -1
	}
	return floats.MaxIdx(c.Values())
}

// Peak returns the brightest facing direction.
func (c *VerticalCurve) Peak() DirectionPoint {
	i := c.PeakIndex()
	if i < 0 {
		return DirectionPoint{Azimuth: math.NaN(), Illuminance: math.NaN()}
	}
	return c.Points[i]
}

// ResultRow is one line of the results file.
type ResultRow struct {
	Azimuth    float64
	Vertical   float64
	Horizontal float64
}

// ResultTable is the per-run output, rows ascending by azimuth from 0.
type ResultTable struct {
	Rows []ResultRow
}

// Results holds everything derived by one run.
type Results struct {
	Options         Options
	Horizontal      HorizontalResult
	Curve           *VerticalCurve // compass order, azimuth 0 first
	Table           *ResultTable
	SkyShape        [2]int // rows, cols of the array used for the vertical curve
	HorizontalShape [2]int
	AnalysisErrors  []string // non-fatal warnings, e.g. truncated zenith coverage
}

// NewResults returns an empty Results for opts.
func NewResults(opts Options) *Results {
	return &Results{
		Options:        opts,
		Table:          &ResultTable{Rows: make([]ResultRow, 0)},
		AnalysisErrors: make([]string, 0),
	}
}
