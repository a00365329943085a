// Package skygrid builds the angular coordinates of a panoramic sky raster.
//
// A Grid holds one zenith angle per raster row and one azimuth per raster
// column. The 2-D coordinate arrays are the broadcast of these two vectors.
package skygrid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidGrid is returned for a shape or angular span that cannot form a grid.
var ErrInvalidGrid = errors.New("invalid sky grid")

// Span is a closed angular interval in degrees.
type Span struct {
	Min float64
	Max float64
}

// Width returns Max-Min.
func (s Span) Width() float64 { return s.Max - s.Min }

// FullAzimuth is the azimuth span of a full panorama.
var FullAzimuth = Span{Min: -180, Max: 180}

// Zenith returns the zenith span from the zenith down to zmax degrees.
func Zenith(zmax float64) Span { return Span{Min: 0, Max: zmax} }

// Grid holds pixel-centre coordinates in degrees.
type Grid struct {
	Theta       []float64 // zenith angle per row, increasing
	Az          []float64 // azimuth per column, increasing, within [-180, 180)
	ZenithStep  float64
	AzimuthStep float64
}

// Strategy selects how the coordinate vectors are generated.
type Strategy int

const (
	// Linspace spaces samples evenly between the first and last pixel centre.
	Linspace Strategy = iota
	// Arange steps from the first pixel centre by a fixed increment.
	Arange
)

func (s Strategy) String() string {
	switch s {
	case Linspace:
		return "linspace"
	case Arange:
		return "arange"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a configuration string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "arange", "":
		return Arange, nil
	case "linspace":
		return Linspace, nil
	default:
		return Arange, fmt.Errorf("%w: unknown grid strategy %q", ErrInvalidGrid, s)
	}
}

// New builds a grid with the given strategy.
func New(strategy Strategy, rows, cols int, zenith, azimuth Span) (*Grid, error) {
	switch strategy {
	case Linspace:
		return NewLinspace(rows, cols, zenith, azimuth)
	case Arange:
		return NewArange(rows, cols, zenith, azimuth)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %d", ErrInvalidGrid, strategy)
	}
}

// NewLinspace spaces pixel centres evenly over the declared spans.
func NewLinspace(rows, cols int, zenith, azimuth Span) (*Grid, error) {
	if err := validate(rows, cols, zenith, azimuth); err != nil {
		return nil, err
	}
	dz := zenith.Width() / float64(rows)
	da := azimuth.Width() / float64(cols)
	return &Grid{
		Theta:       linspace(rows, zenith.Min+dz/2, zenith.Max-dz/2),
		Az:          linspace(cols, azimuth.Min+da/2, azimuth.Max-da/2),
		ZenithStep:  dz,
		AzimuthStep: da,
	}, nil
}

// NewArange builds the row and column vectors by stepping from the first centre.
func NewArange(rows, cols int, zenith, azimuth Span) (*Grid, error) {
	if err := validate(rows, cols, zenith, azimuth); err != nil {
		return nil, err
	}
	dz := zenith.Width() / float64(rows)
	da := azimuth.Width() / float64(cols)
	return &Grid{
		Theta:       arange(rows, zenith.Min+dz/2, dz),
		Az:          arange(cols, azimuth.Min+da/2, da),
		ZenithStep:  dz,
		AzimuthStep: da,
	}, nil
}

// ForResolution builds a full-panorama grid whose rows are res degrees tall.
// The zenith coverage is zmax rounded to a whole number of rows.
func ForResolution(strategy Strategy, res, zmax float64) (*Grid, error) {
	if !(res > 0) {
		return nil, fmt.Errorf("%w: resolution %v", ErrInvalidGrid, res)
	}
	rows := int(math.Round(zmax / res))
	cols := int(math.Round(FullAzimuth.Width() / res))
	return New(strategy, rows, cols, Zenith(float64(rows)*res), FullAzimuth)
}

func validate(rows, cols int, zenith, azimuth Span) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: shape %dx%d", ErrInvalidGrid, rows, cols)
	}
	if zenith.Min < 0 || zenith.Max <= zenith.Min || zenith.Max > 180 {
		return fmt.Errorf("%w: zenith span [%v, %v]", ErrInvalidGrid, zenith.Min, zenith.Max)
	}
	if azimuth.Max <= azimuth.Min || azimuth.Width() > 360 {
		return fmt.Errorf("%w: azimuth span [%v, %v]", ErrInvalidGrid, azimuth.Min, azimuth.Max)
	}
	return nil
}

func linspace(n int, first, last float64) []float64 {
	v := make([]float64, n)
	if n == 1 {
		v[0] = first
		return v
	}
	return floats.Span(v, first, last)
}

func arange(n int, first, step float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = first + float64(i)*step
	}
	return v
}

// Rows returns the number of zenith samples.
func (g *Grid) Rows() int { return len(g.Theta) }

// Cols returns the number of azimuth samples.
func (g *Grid) Cols() int { return len(g.Az) }

// ZenithMax is the outer zenith edge of the last row.
func (g *Grid) ZenithMax() float64 {
	return g.Theta[len(g.Theta)-1] + g.ZenithStep/2
}

// CropRows returns a grid limited to the first n rows. Column data is shared.
func (g *Grid) CropRows(n int) (*Grid, error) {
	if n <= 0 || n > g.Rows() {
		return nil, fmt.Errorf("%w: cannot crop %d rows to %d", ErrInvalidGrid, g.Rows(), n)
	}
	c := *g
	c.Theta = g.Theta[:n:n]
	return &c, nil
}
