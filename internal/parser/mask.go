package parser

import "fmt"

// ApplyHorizonMask returns a copy of sky where every pixel hidden by the
// horizon mask is replaced by the no-data sentinel.
//
// A mask pixel hides the sky when its value is positive or when it is itself
// no-data; zero means open sky. The mask may extend below the sky raster (it
// is cropped to the sky's rows) but must have the same number of columns.
func ApplyHorizonMask(sky, mask *Raster) (*Raster, error) {
	if mask.Cols != sky.Cols || mask.Rows < sky.Rows {
		return nil, fmt.Errorf("%w: mask %dx%d does not cover sky %dx%d", ErrShapeMismatch, mask.Rows, mask.Cols, sky.Rows, sky.Cols)
	}

	out := *sky
	out.Data = make([]float64, len(sky.Data))
	if !out.HasNoData {
		out.NoData = DefaultNoData
		out.HasNoData = true
	}
	for i := 0; i < sky.Rows; i++ {
		for j := 0; j < sky.Cols; j++ {
			idx := i*sky.Cols + j
			m := mask.At(i, j)
			if mask.IsNoData(m) || m > 0 {
				out.Data[idx] = out.NoData
				continue
			}
			out.Data[idx] = sky.Data[idx]
		}
	}
	return &out, nil
}
