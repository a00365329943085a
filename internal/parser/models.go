package parser

import (
	"errors"
	"fmt"
	"math"
)

// DefaultNoData is the sentinel the GIS export writes for pixels without a measurement.
const DefaultNoData = -9999.0

var (
	// ErrMalformedRaster is returned when a raster file cannot be decoded.
	ErrMalformedRaster = errors.New("malformed raster")
	// ErrShapeMismatch is returned when two rasters that must align do not.
	ErrShapeMismatch = errors.New("raster shape mismatch")
)

// Raster is a panoramic sky-brightness image.
// Row 0 is the zenith; rows step down towards (and past) the horizon.
// Column 0 is the azimuth -180 edge; columns step eastwards.
type Raster struct {
	Rows      int
	Cols      int
	CellSize  float64 // degrees per pixel, 0 when unknown
	XLLCorner float64
	YLLCorner float64
	NoData    float64
	HasNoData bool
	Data      []float64 // row-major, len Rows*Cols
	Source    string    // file the raster was read from, if any
}

// NewRaster wraps row-major data. data is not copied.
func NewRaster(rows, cols int, data []float64) (*Raster, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: shape %dx%d", ErrMalformedRaster, rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrMalformedRaster, len(data), rows, cols)
	}
	return &Raster{Rows: rows, Cols: cols, Data: data, NoData: DefaultNoData, HasNoData: true}, nil
}

// NewUniformRaster returns a rows x cols raster filled with v.
func NewUniformRaster(rows, cols int, v float64) *Raster {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = v
	}
	return &Raster{Rows: rows, Cols: cols, Data: data, NoData: DefaultNoData, HasNoData: true}
}

// At returns the value at row i, column j.
func (r *Raster) At(i, j int) float64 { return r.Data[i*r.Cols+j] }

// Set stores v at row i, column j.
func (r *Raster) Set(i, j int, v float64) { r.Data[i*r.Cols+j] = v }

// Row returns row i. The slice aliases the raster data.
func (r *Raster) Row(i int) []float64 { return r.Data[i*r.Cols : (i+1)*r.Cols] }

// IsNoData reports whether v marks a missing measurement.
func (r *Raster) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return r.HasNoData && v == r.NoData
}

// Crop returns a copy of the leading rows x cols block.
func (r *Raster) Crop(rows, cols int) (*Raster, error) {
	if rows <= 0 || cols <= 0 || rows > r.Rows || cols > r.Cols {
		return nil, fmt.Errorf("%w: cannot crop %dx%d raster to %dx%d", ErrShapeMismatch, r.Rows, r.Cols, rows, cols)
	}
	c := *r
	c.Rows, c.Cols = rows, cols
	c.Data = make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		copy(c.Data[i*cols:(i+1)*cols], r.Data[i*r.Cols:i*r.Cols+cols])
	}
	return &c, nil
}

// NoDataCount counts missing pixels.
func (r *Raster) NoDataCount() int {
	n := 0
	for _, v := range r.Data {
		if r.IsNoData(v) {
			n++
		}
	}
	return n
}
