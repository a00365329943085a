package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/user/skyglow_illuminance_go/internal/analysis"
	"github.com/user/skyglow_illuminance_go/internal/config"
	"github.com/user/skyglow_illuminance_go/internal/logging"
	"github.com/user/skyglow_illuminance_go/internal/parser"
	"github.com/user/skyglow_illuminance_go/internal/report"
)

// App runs one illuminance job from a loaded configuration.
type App struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewApp creates an App for cfg.
func NewApp(cfg *config.Config) *App {
	return &App{cfg: cfg, log: logging.With("app")}
}

func (a *App) sendStatus(message string) {
	a.log.Info().Msg(message)
}

func (a *App) sendWarnings(stage string, warnings []string) {
	for _, w := range warnings {
		a.log.Warn().Str("stage", stage).Msg(w)
	}
}

// loadRaster reads an ASCII grid, falling back to the configured no-data
// value when the header does not declare one.
func (a *App) loadRaster(path string) (*parser.Raster, error) {
	r, err := parser.ParseASCIIGrid(path)
	if err != nil {
		return nil, err
	}
	if !r.HasNoData {
		r.NoData, r.HasNoData = a.cfg.Input.NoData, true
	}
	a.log.Info().
		Str("raster", path).
		Int("rows", r.Rows).
		Int("cols", r.Cols).
		Float64("cellsize", r.CellSize).
		Int("nodata_pixels", r.NoDataCount()).
		Msg("raster loaded")
	return r, nil
}

// loadInput reads the sky raster and builds the horizontal-sum array: the
// configured horizontal raster if any, else the sky raster, with the horizon
// mask applied when one is configured.
func (a *App) loadInput() (analysis.Input, error) {
	in := analysis.Input{}
	sky, err := a.loadRaster(a.cfg.Input.SkyRaster)
	if err != nil {
		return in, fmt.Errorf("sky raster: %w", err)
	}
	in.Sky = sky

	if p := a.cfg.Input.HorizontalRaster; p != "" {
		if in.Horizontal, err = a.loadRaster(p); err != nil {
			return in, fmt.Errorf("horizontal raster: %w", err)
		}
	}
	if p := a.cfg.Input.MaskRaster; p != "" {
		mask, err := a.loadRaster(p)
		if err != nil {
			return in, fmt.Errorf("mask raster: %w", err)
		}
		base := in.Horizontal
		if base == nil {
			base = in.Sky
		}
		if in.Horizontal, err = parser.ApplyHorizonMask(base, mask); err != nil {
			return in, fmt.Errorf("applying horizon mask: %w", err)
		}
		a.log.Info().Int("masked_pixels", in.Horizontal.NoDataCount()-base.NoDataCount()).Msg("horizon mask applied")
	}
	return in, nil
}

// Run executes the pipeline and writes every configured artifact. The results
// file is written before any optional artifact; a failing plot is logged and
// skipped, a failing results, summary or PDF write is returned.
func (a *App) Run(ctx context.Context) (*analysis.Results, error) {
	opts, err := a.cfg.Options()
	if err != nil {
		return nil, err
	}

	in, err := a.loadInput()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.sendStatus(fmt.Sprintf("Analyzing sky (interval %g deg, resolution %g deg, %s solid angles)...",
		opts.AzimuthInterval, opts.Resolution, opts.Policy))
	results, err := analysis.Run(in, opts, report.NewResultsWriter(a.cfg.Output.Results))
	if err != nil {
		return nil, err
	}
	a.sendWarnings("analysis", results.AnalysisErrors)
	peak := results.Curve.Peak()
	a.log.Info().
		Float64("horizontal_mlx", results.Horizontal.Illuminance).
		Int("horizontal_excluded", results.Horizontal.Excluded).
		Float64("peak_azimuth", peak.Azimuth).
		Float64("peak_vertical_mlx", peak.Illuminance).
		Str("results", a.cfg.Output.Results).
		Msg("results written")

	summary := report.NewSummary(results, a.cfg.Input.SkyRaster, a.cfg.Output.Results)
	summary.HorizontalInput = a.cfg.Input.HorizontalRaster
	meta := report.ReportMeta{SkyRaster: a.cfg.Input.SkyRaster, HorizontalRaster: a.cfg.Input.HorizontalRaster}

	if a.cfg.Analysis.ComparePolicies {
		cmp, err := analysis.CompareHorizontalPolicies(in, opts)
		if err != nil {
			return nil, fmt.Errorf("comparing solid angle policies: %w", err)
		}
		for _, c := range cmp {
			a.log.Info().Str("policy", c.Policy.String()).Float64("horizontal_mlx", c.Illuminance).Msg("policy comparison")
		}
		summary.AddPolicyComparison(cmp)
		meta.PolicyComparison = cmp
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plotImages := a.createPlots(in, results, summary)

	if p := a.cfg.Output.PDFReport; p != "" {
		a.sendStatus(fmt.Sprintf("Generating PDF: %s...", p))
		if err := report.BuildPDFReport(p, results, meta, plotImages); err != nil {
			return nil, fmt.Errorf("generating PDF report: %w", err)
		}
		summary.AddArtifact("pdf_report", p)
	}

	if p := a.cfg.Output.Summary; p != "" {
		if err := report.WriteSummaryJSON(p, summary); err != nil {
			return nil, err
		}
		a.sendStatus(fmt.Sprintf("Run summary written: %s", p))
	}
	return results, nil
}

// createPlots renders the plots needed by the configured outputs.
func (a *App) createPlots(in analysis.Input, results *analysis.Results, summary *report.Summary) map[string][]byte {
	out := a.cfg.Output
	plotImages := make(map[string][]byte)
	wantCurve := out.CurvePlot != "" || out.PDFReport != ""
	wantHeatmap := out.HeatmapPlot != "" || out.PDFReport != ""

	if wantCurve {
		var comparison []float64
		if p := a.cfg.Input.ComparisonData; p != "" {
			data, err := parser.ParseComparisonData(p)
			if err != nil {
				a.log.Warn().Err(err).Str("file", p).Msg("comparison data skipped")
			} else {
				a.sendWarnings("comparison data", data.ParseErrors)
				comparison = data.Values
			}
		}
		img, err := report.CreateVerticalCurvePlot(results.Curve, comparison, results.Horizontal.Illuminance)
		if err != nil {
			a.log.Error().Err(err).Msg("vertical curve plot failed")
		} else {
			plotImages[report.PlotVerticalCurve] = img
			a.savePlot(out.CurvePlot, img, "curve_plot", summary)
		}
	}

	if wantHeatmap {
		img, err := report.CreateSkyHeatmap(in.Sky, results.Options.Resolution, "Sky Brightness (log10)")
		if err != nil {
			a.log.Error().Err(err).Msg("sky heatmap failed")
		} else {
			plotImages[report.PlotSkyHeatmap] = img
			a.savePlot(out.HeatmapPlot, img, "heatmap_plot", summary)
		}
	}
	return plotImages
}

func (a *App) savePlot(path string, img []byte, name string, summary *report.Summary) {
	if path == "" {
		return
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		a.log.Error().Err(err).Str("file", path).Msg("failed to save plot")
		return
	}
	summary.AddArtifact(name, path)
	a.sendStatus(fmt.Sprintf("Plot saved: %s", path))
}

// exitCode maps a run error to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case isConfigError(err):
		return 2
	default:
		return 1
	}
}

func isConfigError(err error) bool {
	return errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, analysis.ErrInvalidOptions) || errors.Is(err, analysis.ErrInvalidInterval)
}
