package report

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/user/skyglow_illuminance_go/internal/analysis"
)

// Summary is the JSON sidecar written next to the results file.
type Summary struct {
	GeneratedAt     time.Time         `json:"generated_at"`
	SkyRaster       string            `json:"sky_raster"`
	HorizontalInput string            `json:"horizontal_raster,omitempty"`
	ResultsFile     string            `json:"results_file"`
	Options         SummaryOptions    `json:"options"`
	Horizontal      SummaryHorizontal `json:"horizontal"`
	PolicyCompare   []SummaryPolicy   `json:"policy_comparison,omitempty"`
	Peak            SummaryDirection  `json:"peak_direction"`
	Directions      int               `json:"directions"`
	SkyShape        [2]int            `json:"sky_shape"`
	HorizontalShape [2]int            `json:"horizontal_shape"`
	Warnings        []string          `json:"warnings"`
	Artifacts       map[string]string `json:"artifacts,omitempty"`
}

type SummaryOptions struct {
	AzimuthInterval     float64 `json:"azimuth_interval_deg"`
	Resolution          float64 `json:"resolution_deg"`
	VerticalZenithMax   float64 `json:"vertical_zenith_max_deg"`
	HorizontalZenithMax float64 `json:"horizontal_zenith_max_deg"`
	Policy              string  `json:"solid_angle_policy"`
	Strategy            string  `json:"grid_strategy"`
	Unit                string  `json:"raster_unit"`
	MagnitudeFormula    string  `json:"magnitude_formula,omitempty"`
}

type SummaryHorizontal struct {
	Illuminance float64 `json:"illuminance_mlx"`
	Included    int     `json:"included_pixels"`
	Excluded    int     `json:"excluded_pixels"`
}

type SummaryPolicy struct {
	Policy      string  `json:"policy"`
	Illuminance float64 `json:"illuminance_mlx"`
}

type SummaryDirection struct {
	Azimuth     float64 `json:"azimuth_deg"`
	Illuminance float64 `json:"illuminance_mlx"`
}

// NewSummary collects the reportable parts of results.
func NewSummary(results *analysis.Results, skyRaster, resultsFile string) *Summary {
	opts := results.Options
	s := &Summary{
		GeneratedAt: time.Now().UTC(),
		SkyRaster:   skyRaster,
		ResultsFile: resultsFile,
		Options: SummaryOptions{
			AzimuthInterval:     opts.AzimuthInterval,
			Resolution:          opts.Resolution,
			VerticalZenithMax:   opts.VerticalZenithMax,
			HorizontalZenithMax: opts.HorizontalZenithMax,
			Policy:              opts.Policy.String(),
			Strategy:            opts.Strategy.String(),
			Unit:                opts.Unit.String(),
		},
		Horizontal: SummaryHorizontal{
			Illuminance: results.Horizontal.Illuminance,
			Included:    results.Horizontal.Included,
			Excluded:    results.Horizontal.Excluded,
		},
		SkyShape:        results.SkyShape,
		HorizontalShape: results.HorizontalShape,
		Warnings:        results.AnalysisErrors,
	}
	if opts.Unit == analysis.Magnitude {
		s.Options.MagnitudeFormula = opts.MagnitudeFormula.String()
	}
	if results.Curve != nil && len(results.Curve.Points) > 0 {
		peak := results.Curve.Peak()
		s.Peak = SummaryDirection{Azimuth: peak.Azimuth, Illuminance: peak.Illuminance}
		s.Directions = len(results.Curve.Points)
	}
	return s
}

// AddPolicyComparison records horizontal values computed under each policy.
func (s *Summary) AddPolicyComparison(cmp []analysis.HorizontalResult) {
	for _, h := range cmp {
		s.PolicyCompare = append(s.PolicyCompare, SummaryPolicy{Policy: h.Policy.String(), Illuminance: h.Illuminance})
	}
}

// AddArtifact records an output file under name.
func (s *Summary) AddArtifact(name, path string) {
	if s.Artifacts == nil {
		s.Artifacts = make(map[string]string)
	}
	s.Artifacts[name] = path
}

// WriteSummaryJSON writes s as indented JSON to path.
func WriteSummaryJSON(path string, s *Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write run summary %s: %w", path, err)
	}
	return nil
}
