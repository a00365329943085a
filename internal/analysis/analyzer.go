package analysis

import (
	"fmt"
	"math"

	"github.com/user/skyglow_illuminance_go/internal/parser"
	"github.com/user/skyglow_illuminance_go/internal/skygrid"
	"github.com/user/skyglow_illuminance_go/internal/units"
)

// Options configures one illuminance run.
type Options struct {
	AzimuthInterval     float64 // degrees between facing directions
	Resolution          float64 // degrees per pixel
	VerticalZenithMax   float64 // zenith coverage of the array used for the vertical curve
	HorizontalZenithMax float64 // zenith coverage of the array used for the horizontal sum
	Policy              skygrid.SolidAnglePolicy
	Strategy            skygrid.Strategy
	ChunkColumns        int // 0 sums the horizontal field in one pass
	Unit                BrightnessUnit
	MagnitudeFormula    units.MagnitudeFormula
}

// DefaultOptions mirrors the reference processing: 5 degree facing steps on a
// 0.05 degree grid, 96 degrees of zenith for the vertical curve, 90 for the
// horizontal sum, exact solid angles, nanolambert input.
func DefaultOptions() Options {
	return Options{
		AzimuthInterval:     5,
		Resolution:          0.05,
		VerticalZenithMax:   96,
		HorizontalZenithMax: 90,
		Policy:              skygrid.Exact,
		Strategy:            skygrid.Arange,
		Unit:                Nanolambert,
	}
}

// Validate checks option values that do not depend on the input rasters.
func (o Options) Validate() error {
	if _, err := FacingDirections(o.AzimuthInterval); err != nil {
		return err
	}
	if !(o.Resolution > 0) || o.Resolution > 90 {
		return fmt.Errorf("%w: resolution %v", ErrInvalidOptions, o.Resolution)
	}
	if !(o.HorizontalZenithMax > 0) || o.HorizontalZenithMax > o.VerticalZenithMax || o.VerticalZenithMax > 180 {
		return fmt.Errorf("%w: zenith bounds horizontal=%v vertical=%v", ErrInvalidOptions, o.HorizontalZenithMax, o.VerticalZenithMax)
	}
	if o.ChunkColumns < 0 {
		return fmt.Errorf("%w: chunk columns %d", ErrInvalidOptions, o.ChunkColumns)
	}
	if _, err := toNanolambert(o.Unit, o.MagnitudeFormula); err != nil {
		return err
	}
	return nil
}

// Input holds the rasters of one run.
type Input struct {
	// Sky is the taller array (up to 96 degrees of zenith) used for the vertical curve.
	Sky *parser.Raster
	// Horizontal is an optional horizon-masked array used only for the
	// horizontal sum. When nil, Sky cropped to HorizontalZenithMax is used.
	Horizontal *parser.Raster
}

// TableWriter persists a result table.
type TableWriter interface {
	WriteTable(table *ResultTable) error
}

// Run analyses in and hands the table to out. Nothing is written when the
// analysis fails.
func Run(in Input, opts Options, out TableWriter) (*Results, error) {
	results, err := AnalyzeSky(in, opts)
	if err != nil {
		return nil, err
	}
	if err := out.WriteTable(results.Table); err != nil {
		return nil, fmt.Errorf("failed to persist results: %w", err)
	}
	return results, nil
}

// AnalyzeSky builds the grid, converts the rasters, computes the horizontal
// illuminance and the vertical curve, and assembles the result table.
func AnalyzeSky(in Input, opts Options) (*Results, error) {
	if in.Sky == nil {
		return nil, fmt.Errorf("%w: no sky raster", ErrInvalidOptions)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	results := NewResults(opts)

	hSource := in.Horizontal
	if hSource == nil {
		hSource = in.Sky
	}
	hRaster, hGrid, err := prepare(hSource, opts, opts.HorizontalZenithMax, results)
	if err != nil {
		return nil, fmt.Errorf("horizontal array: %w", err)
	}
	hField, err := BuildField(hRaster, hGrid, opts.Policy, opts.Unit, opts.MagnitudeFormula)
	if err != nil {
		return nil, fmt.Errorf("horizontal field: %w", err)
	}
	results.Horizontal, err = Horizontal(hGrid.Theta, hField, opts.ChunkColumns)
	if err != nil {
		return nil, fmt.Errorf("horizontal illuminance: %w", err)
	}
	results.HorizontalShape = [2]int{hRaster.Rows, hRaster.Cols}

	vRaster, vGrid, err := prepare(in.Sky, opts, opts.VerticalZenithMax, results)
	if err != nil {
		return nil, fmt.Errorf("vertical array: %w", err)
	}
	vField, err := BuildField(vRaster, vGrid, opts.Policy, opts.Unit, opts.MagnitudeFormula)
	if err != nil {
		return nil, fmt.Errorf("vertical field: %w", err)
	}
	results.Curve, err = Vertical(vGrid, vField, opts.AzimuthInterval)
	if err != nil {
		return nil, fmt.Errorf("vertical illuminance: %w", err)
	}
	results.SkyShape = [2]int{vRaster.Rows, vRaster.Cols}

	for _, p := range results.Curve.Points {
		results.Table.Rows = append(results.Table.Rows, ResultRow{
			Azimuth:    p.Azimuth,
			Vertical:   p.Illuminance,
			Horizontal: results.Horizontal.Illuminance,
		})
	}
	return results, nil
}

// CompareHorizontalPolicies computes the horizontal illuminance of in under
// both solid-angle policies, exact first.
func CompareHorizontalPolicies(in Input, opts Options) ([]HorizontalResult, error) {
	out := make([]HorizontalResult, 0, 2)
	for _, p := range []skygrid.SolidAnglePolicy{skygrid.Exact, skygrid.SmallAngle} {
		o := opts
		o.Policy = p
		if err := o.Validate(); err != nil {
			return nil, err
		}
		src := in.Horizontal
		if src == nil {
			src = in.Sky
		}
		if src == nil {
			return nil, fmt.Errorf("%w: no sky raster", ErrInvalidOptions)
		}
		r, g, err := prepare(src, o, o.HorizontalZenithMax, NewResults(o))
		if err != nil {
			return nil, err
		}
		f, err := BuildField(r, g, p, o.Unit, o.MagnitudeFormula)
		if err != nil {
			return nil, err
		}
		res, err := Horizontal(g.Theta, f, o.ChunkColumns)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// prepare crops r to the zenith coverage zmax and the full azimuth circle and
// builds the matching grid. A raster shorter than zmax is used as is, with a
// warning recorded on results.
func prepare(r *parser.Raster, opts Options, zmax float64, results *Results) (*parser.Raster, *skygrid.Grid, error) {
	if r.CellSize > 0 && math.Abs(r.CellSize-opts.Resolution) > 1e-9 {
		return nil, nil, fmt.Errorf("%w: raster cell size %v, configured resolution %v", ErrShapeMismatch, r.CellSize, opts.Resolution)
	}
	g, err := skygrid.ForResolution(opts.Strategy, opts.Resolution, zmax)
	if err != nil {
		return nil, nil, err
	}
	if r.Cols < g.Cols() {
		return nil, nil, fmt.Errorf("%w: raster has %d columns, full azimuth needs %d", ErrShapeMismatch, r.Cols, g.Cols())
	}
	if r.Rows < g.Rows() {
		results.AnalysisErrors = append(results.AnalysisErrors, fmt.Sprintf(
			"Raster %s covers %.2f deg of zenith, less than the configured %.2f deg; using the full raster.",
			r.Source, float64(r.Rows)*opts.Resolution, zmax))
		if g, err = g.CropRows(r.Rows); err != nil {
			return nil, nil, err
		}
	}
	cropped, err := r.Crop(g.Rows(), g.Cols())
	if err != nil {
		return nil, nil, err
	}
	return cropped, g, nil
}
