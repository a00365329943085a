package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/skyglow_illuminance_go/internal/config"
	"github.com/user/skyglow_illuminance_go/internal/parser"
	"github.com/user/skyglow_illuminance_go/internal/report"
)

func writeRaster(t *testing.T, dir, name string, r *parser.Raster) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, parser.WriteASCIIGrid(f, r))
	return path
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	sky := parser.NewUniformRaster(96, 360, 100)
	sky.CellSize = 1
	for j := 200; j < 220; j++ {
		for i := 60; i < 90; i++ {
			sky.Set(i, j, 800)
		}
	}
	sky.Set(0, 0, parser.DefaultNoData)

	cfg := config.Default()
	cfg.Input.SkyRaster = writeRaster(t, dir, "sky.asc", sky)
	cfg.Analysis.Resolution = 1
	cfg.Output.Results = filepath.Join(dir, "results.txt")
	return cfg
}

func TestAppRunWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Analysis.ComparePolicies = true
	cfg.Output.Summary = filepath.Join(dir, "summary.json")
	cfg.Output.CurvePlot = filepath.Join(dir, "curve.png")
	cfg.Output.HeatmapPlot = filepath.Join(dir, "sky.png")
	cfg.Output.PDFReport = filepath.Join(dir, "report.pdf")

	cmpPath := filepath.Join(dir, "reference.csv")
	require.NoError(t, os.WriteFile(cmpPath, []byte("# reference\n0.5\n0.6\nbad\n"), 0o644))
	cfg.Input.ComparisonData = cmpPath
	require.NoError(t, cfg.Validate())

	results, err := NewApp(cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results.Table.Rows, 72)
	assert.Equal(t, 1, results.Horizontal.Excluded)

	data, err := os.ReadFile(cfg.Output.Results)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 73)
	assert.Equal(t, report.ResultsHeader, lines[0])

	for _, p := range []string{cfg.Output.CurvePlot, cfg.Output.HeatmapPlot, cfg.Output.PDFReport} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Positive(t, info.Size(), p)
	}

	raw, err := os.ReadFile(cfg.Output.Summary)
	require.NoError(t, err)
	var summary report.Summary
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Len(t, summary.PolicyCompare, 2)
	assert.Equal(t, cfg.Output.PDFReport, summary.Artifacts["pdf_report"])
	assert.Equal(t, results.Horizontal.Illuminance, summary.Horizontal.Illuminance)
	// the bright block sits at azimuth 20.5..39.5
	assert.InDelta(t, 30, summary.Peak.Azimuth, 10)
}

func TestAppRunWithMask(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	mask := parser.NewUniformRaster(96, 360, 0)
	mask.CellSize = 1
	for i := 45; i < 96; i++ {
		for j := 0; j < 360; j++ {
			mask.Set(i, j, 1)
		}
	}
	cfg.Input.MaskRaster = writeRaster(t, dir, "mask.asc", mask)

	masked, err := NewApp(cfg).Run(context.Background())
	require.NoError(t, err)

	cfg.Input.MaskRaster = ""
	plain, err := NewApp(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Less(t, masked.Horizontal.Illuminance, plain.Horizontal.Illuminance)
	assert.Equal(t, plain.Curve.Values(), masked.Curve.Values())
}

func TestAppRunFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Analysis.Resolution = 0.5 // raster cell size is 1

	_, err := NewApp(cfg).Run(context.Background())
	require.Error(t, err)
	_, statErr := os.Stat(cfg.Output.Results)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, 1, exitCode(err))

	cfg.Input.SkyRaster = filepath.Join(dir, "absent.asc")
	_, err = NewApp(cfg).Run(context.Background())
	require.Error(t, err)
}

func TestAppRunCancelled(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewApp(cfg).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	t.Setenv(config.ConfigPathEnvVar, "")
	t.Setenv(config.EnvPrefix+"RESOLUTION", "1")
	t.Setenv(config.EnvPrefix+"LOG_LEVEL", "disabled")
	t.Setenv(config.EnvPrefix+"SKY_RASTER", "")
	t.Setenv(config.EnvPrefix+"RESULTS", "")

	assert.Equal(t, 0, run([]string{"-sky", cfg.Input.SkyRaster, "-out", cfg.Output.Results}))
	_, err := os.Stat(cfg.Output.Results)
	require.NoError(t, err)
	assert.Empty(t, os.Getenv(config.EnvPrefix+"SKY_RASTER"), "flags must not leak into the environment")

	t.Setenv(config.EnvPrefix+"AZIMUTH_INTERVAL", "7")
	assert.Equal(t, 2, run([]string{"-sky", cfg.Input.SkyRaster}))
	assert.Equal(t, 2, run([]string{"-unknown-flag"}))
}
