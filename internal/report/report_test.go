package report

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/skyglow_illuminance_go/internal/analysis"
	"github.com/user/skyglow_illuminance_go/internal/parser"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleResults(t *testing.T) *analysis.Results {
	t.Helper()
	opts := analysis.DefaultOptions()
	opts.Resolution = 1
	res, err := analysis.AnalyzeSky(analysis.Input{Sky: parser.NewUniformRaster(96, 360, 100)}, opts)
	require.NoError(t, err)
	return res
}

func TestWriteResultsFormat(t *testing.T) {
	table := &analysis.ResultTable{Rows: []analysis.ResultRow{
		{Azimuth: 0, Vertical: 0.5664, Horizontal: 1.000038},
		{Azimuth: 5, Vertical: 0.1, Horizontal: 1.000038},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, table))
	assert.Equal(t,
		"Azimuth, Vertical Illuminance (mlx), Horizontal Illuminance (mlx)\n"+
			"0,0.5664,1.000038\n"+
			"5,0.1,1.000038\n",
		buf.String())
}

func TestResultsWriterAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.txt")
	res := sampleResults(t)

	require.NoError(t, NewResultsWriter(path).WriteTable(res.Table))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 73)
	assert.Equal(t, ResultsHeader, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0,"))
	assert.True(t, strings.HasPrefix(lines[72], "355,"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("device full") }

func TestAtomicWriteFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.txt")

	err := atomicWrite(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("boom")
	})
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.Error(t, WriteResults(failingWriter{}, &analysis.ResultTable{}))
	require.Error(t, NewResultsWriter(filepath.Join(dir, "missing", "r.txt")).WriteTable(&analysis.ResultTable{}))
	require.Error(t, NewResultsWriter(path).WriteTable(nil))
}

func TestWriteSummaryJSON(t *testing.T) {
	res := sampleResults(t)
	s := NewSummary(res, "sky.asc", "results.txt")
	s.AddPolicyComparison([]analysis.HorizontalResult{res.Horizontal})
	s.AddArtifact("pdf", "report.pdf")

	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, WriteSummaryJSON(path, s))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "sky.asc", got["sky_raster"])
	assert.EqualValues(t, 72, got["directions"])
	opts := got["options"].(map[string]any)
	assert.Equal(t, "exact", opts["solid_angle_policy"])
	assert.NotContains(t, opts, "magnitude_formula")
	h := got["horizontal"].(map[string]any)
	assert.InDelta(t, res.Horizontal.Illuminance, h["illuminance_mlx"], 1e-12)
	assert.Equal(t, "report.pdf", got["artifacts"].(map[string]any)["pdf"])
	assert.Len(t, got["policy_comparison"], 1)
}

func TestCreateVerticalCurvePlot(t *testing.T) {
	res := sampleResults(t)
	cmp := make([]float64, 72)
	for i := range cmp {
		cmp[i] = 0.5 + 0.01*math.Sin(float64(i))
	}
	cmp[3] = math.NaN()

	img, err := CreateVerticalCurvePlot(res.Curve, cmp, res.Horizontal.Illuminance)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	img, err = CreateVerticalCurvePlot(res.Curve, nil, math.NaN())
	require.NoError(t, err)
	assert.NotEmpty(t, img)

	_, err = CreateVerticalCurvePlot(&analysis.VerticalCurve{}, nil, 1)
	require.Error(t, err)
	_, err = CreateVerticalCurvePlot(nil, nil, 1)
	require.Error(t, err)
}

func TestComparisonPointsStopsAtFullCircle(t *testing.T) {
	pts := comparisonPoints([]float64{1, math.NaN(), 3, 4, 5}, 90)
	require.Len(t, pts, 3)
	assert.Equal(t, 0.0, pts[0].X)
	assert.Equal(t, 180.0, pts[1].X)
	assert.Equal(t, 270.0, pts[2].X)
}

func TestGenerateTicks(t *testing.T) {
	ticks := generateTicks(0, 360, 45)
	require.Len(t, ticks, 9)
	assert.Equal(t, "0", ticks[0].Label)
	assert.Equal(t, 360.0, ticks[8].Value)
	assert.Len(t, generateTicks(0, 10, 0), 1)
}

func TestDownsample(t *testing.T) {
	r := parser.NewUniformRaster(4, 8, 100)
	r.Set(0, 0, parser.DefaultNoData)
	r.Set(0, 1, parser.DefaultNoData)
	r.Set(1, 0, parser.DefaultNoData)
	r.Set(1, 1, parser.DefaultNoData)
	r.Set(2, 6, 1000)

	g, err := downsample(r, 1, 4)
	require.NoError(t, err)
	c, rows := g.Dims()
	assert.Equal(t, 4, c)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2.0, g.azStep)
	// top-left block is all no-data; zenith row is drawn last
	assert.True(t, math.IsNaN(g.Z(0, 1)))
	assert.InDelta(t, 2.0, g.Z(1, 1), 1e-12)
	assert.InDelta(t, math.Log10(325), g.Z(3, 0), 1e-12)
	assert.Less(t, g.Y(0), g.Y(1))
	assert.Equal(t, -179.0, g.X(0))

	_, err = downsample(r, 1, 0)
	require.Error(t, err)
}

func TestCreateSkyHeatmap(t *testing.T) {
	r := parser.NewUniformRaster(96, 360, 100)
	for j := 100; j < 120; j++ {
		r.Set(80, j, 5000)
	}
	img, err := CreateSkyHeatmap(r, 1, "Sky brightness")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	_, err = CreateSkyHeatmap(parser.NewUniformRaster(4, 4, parser.DefaultNoData), 1, "empty")
	require.Error(t, err)
	_, err = CreateSkyHeatmap(r, 0, "bad")
	require.Error(t, err)
}

func TestBuildPDFReport(t *testing.T) {
	res := sampleResults(t)
	res.AnalysisErrors = append(res.AnalysisErrors, "sky raster is short")
	curve, err := CreateVerticalCurvePlot(res.Curve, nil, res.Horizontal.Illuminance)
	require.NoError(t, err)

	meta := ReportMeta{
		SkyRaster:        "/data/sky.asc",
		HorizontalRaster: "/data/masked.asc",
		PolicyComparison: []analysis.HorizontalResult{res.Horizontal},
	}
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, BuildPDFReport(path, res, meta, map[string][]byte{PlotVerticalCurve: curve}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	var buf bytes.Buffer
	require.Error(t, WritePDFReport(&buf, nil, meta, nil))
}

func TestRelDiff(t *testing.T) {
	assert.Equal(t, "n/a", relDiff(1, 0))
	assert.Equal(t, "+10%", relDiff(1.1, 1))
	assert.Equal(t, "-50%", relDiff(0.5, 1))
}
