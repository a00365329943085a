package parser

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGrid = `ncols 4
nrows 3
xllcorner -180
yllcorner 0
cellsize 90
NODATA_value -9999
1 2 3 4
5 -9999 7 8
9 10 11
12
`

func TestReadASCIIGrid(t *testing.T) {
	r, err := ReadASCIIGrid(strings.NewReader(sampleGrid))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Rows)
	assert.Equal(t, 4, r.Cols)
	assert.Equal(t, 90.0, r.CellSize)
	assert.Equal(t, -180.0, r.XLLCorner)
	assert.True(t, r.HasNoData)
	assert.Equal(t, 3.0, r.At(0, 2))
	assert.Equal(t, 12.0, r.At(2, 3))
	assert.True(t, r.IsNoData(r.At(1, 1)))
	assert.Equal(t, 1, r.NoDataCount())
}

func TestReadASCIIGridErrors(t *testing.T) {
	tests := map[string]string{
		"missing nrows": "ncols 2\n1 2\n",
		"short data":    "ncols 2\nnrows 2\n1 2 3\n",
		"bad value":     "ncols 1\nnrows 1\nabc\n",
		"bad header":    "ncols two\nnrows 1\n1\n",
		"zero shape":    "ncols 0\nnrows 0\n",
	}
	for name, in := range tests {
		_, err := ReadASCIIGrid(strings.NewReader(in))
		require.ErrorIs(t, err, ErrMalformedRaster, name)
	}
}

func TestASCIIGridRoundTrip(t *testing.T) {
	r, err := ReadASCIIGrid(strings.NewReader(sampleGrid))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sky.asc")
	var buf bytes.Buffer
	require.NoError(t, WriteASCIIGrid(&buf, r))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	back, err := ParseASCIIGrid(path)
	require.NoError(t, err)
	assert.Equal(t, r.Data, back.Data)
	assert.Equal(t, path, back.Source)
}

func TestCrop(t *testing.T) {
	r, err := ReadASCIIGrid(strings.NewReader(sampleGrid))
	require.NoError(t, err)

	c, err := r.Crop(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 5, -9999, 7}, c.Data)

	// the crop is a copy
	c.Set(0, 0, 100)
	assert.Equal(t, 1.0, r.At(0, 0))

	_, err = r.Crop(4, 4)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestApplyHorizonMask(t *testing.T) {
	sky := NewUniformRaster(2, 3, 5)
	sky.HasNoData = false
	mask, err := NewRaster(3, 3, []float64{
		0, 1, 0,
		0, math.NaN(), 2,
		1, 1, 1,
	})
	require.NoError(t, err)

	masked, err := ApplyHorizonMask(sky, mask)
	require.NoError(t, err)
	assert.True(t, masked.HasNoData)
	assert.Equal(t, []float64{5, DefaultNoData, 5, 5, DefaultNoData, DefaultNoData}, masked.Data)
	assert.Equal(t, 3, masked.NoDataCount())
	// source untouched
	assert.Equal(t, 0, sky.NoDataCount())

	_, err = ApplyHorizonMask(sky, NewUniformRaster(2, 2, 0))
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestReadComparisonData(t *testing.T) {
	in := "# reference\n1.5\n\n 2.25\noops\n3,4\n"
	data, err := ReadComparisonData(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, data.Values, 4)
	assert.Equal(t, 1.5, data.Values[0])
	assert.Equal(t, 2.25, data.Values[1])
	assert.True(t, math.IsNaN(data.Values[2]))
	assert.Equal(t, 3.0, data.Values[3])
	assert.Len(t, data.ParseErrors, 2)

	_, err = ReadComparisonData(strings.NewReader("# nothing\n"))
	require.Error(t, err)
}
