// Package config loads the run configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// ILLUMINANCE_* environment variables. The result is validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/user/skyglow_illuminance_go/internal/analysis"
	"github.com/user/skyglow_illuminance_go/internal/parser"
	"github.com/user/skyglow_illuminance_go/internal/skygrid"
	"github.com/user/skyglow_illuminance_go/internal/units"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ILLUMINANCE_"
	// ConfigPathEnvVar names the YAML file when no path is passed to Load.
	ConfigPathEnvVar = EnvPrefix + "CONFIG"
)

// ErrInvalidConfig is returned when the loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Input    InputConfig    `koanf:"input"`
	Analysis AnalysisConfig `koanf:"analysis"`
	Output   OutputConfig   `koanf:"output"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type InputConfig struct {
	SkyRaster        string  `koanf:"sky_raster" validate:"required"`
	HorizontalRaster string  `koanf:"horizontal_raster"` // pre-masked array for the horizontal sum
	MaskRaster       string  `koanf:"mask_raster"`       // horizon mask applied to the sky raster
	ComparisonData   string  `koanf:"comparison_data"`   // reference curve for the plot
	Unit             string  `koanf:"unit" validate:"oneof=nanolambert nl magnitude mag"`
	MagnitudeFormula string  `koanf:"magnitude_formula" validate:"omitempty,oneof=exponential exp power pow10"`
	NoData           float64 `koanf:"nodata"` // used when a raster header has no NODATA_value
}

type AnalysisConfig struct {
	AzimuthInterval     float64 `koanf:"azimuth_interval" validate:"gt=0,lte=180"`
	Resolution          float64 `koanf:"resolution" validate:"gt=0,lte=90"`
	VerticalZenithMax   float64 `koanf:"vertical_zenith_max" validate:"gt=0,lte=180"`
	HorizontalZenithMax float64 `koanf:"horizontal_zenith_max" validate:"gt=0,ltefield=VerticalZenithMax"`
	Policy              string  `koanf:"policy" validate:"oneof=exact small_angle small-angle approx"`
	Strategy            string  `koanf:"strategy" validate:"oneof=arange linspace"`
	ChunkColumns        int     `koanf:"chunk_columns" validate:"min=0"`
	ComparePolicies     bool    `koanf:"compare_policies"`
}

type OutputConfig struct {
	Results     string `koanf:"results" validate:"required"`
	Summary     string `koanf:"summary"`
	CurvePlot   string `koanf:"curve_plot"`
	HeatmapPlot string `koanf:"heatmap_plot"`
	PDFReport   string `koanf:"pdf_report"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Default returns the reference processing setup with no input or output paths.
func Default() *Config {
	opts := analysis.DefaultOptions()
	return &Config{
		Input: InputConfig{
			Unit:   "nanolambert",
			NoData: parser.DefaultNoData,
		},
		Analysis: AnalysisConfig{
			AzimuthInterval:     opts.AzimuthInterval,
			Resolution:          opts.Resolution,
			VerticalZenithMax:   opts.VerticalZenithMax,
			HorizontalZenithMax: opts.HorizontalZenithMax,
			Policy:              opts.Policy.String(),
			Strategy:            opts.Strategy.String(),
		},
		Output: OutputConfig{
			Results: "illuminance_results.txt",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Override adjusts a loaded configuration before it is validated.
type Override func(*Config)

// WithSkyRaster sets input.sky_raster when path is not empty.
func WithSkyRaster(path string) Override {
	return func(c *Config) {
		if path != "" {
			c.Input.SkyRaster = path
		}
	}
}

// WithResults sets output.results when path is not empty.
func WithResults(path string) Override {
	return func(c *Config) {
		if path != "" {
			c.Output.Results = path
		}
	}
}

// Load builds the configuration. path names an optional YAML file; when empty
// the file named by ILLUMINANCE_CONFIG is used if set. Overrides are applied
// last, on top of the environment.
func Load(path string, overrides ...Override) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envMappings maps the lower-cased variable name, without prefix, to its key.
var envMappings = map[string]string{
	"sky_raster":            "input.sky_raster",
	"horizontal_raster":     "input.horizontal_raster",
	"mask_raster":           "input.mask_raster",
	"comparison_data":       "input.comparison_data",
	"unit":                  "input.unit",
	"magnitude_formula":     "input.magnitude_formula",
	"nodata":                "input.nodata",
	"azimuth_interval":      "analysis.azimuth_interval",
	"resolution":            "analysis.resolution",
	"vertical_zenith_max":   "analysis.vertical_zenith_max",
	"horizontal_zenith_max": "analysis.horizontal_zenith_max",
	"policy":                "analysis.policy",
	"strategy":              "analysis.strategy",
	"chunk_columns":         "analysis.chunk_columns",
	"compare_policies":      "analysis.compare_policies",
	"results":               "output.results",
	"summary":               "output.summary",
	"curve_plot":            "output.curve_plot",
	"heatmap_plot":          "output.heatmap_plot",
	"pdf_report":            "output.pdf_report",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
}

// envTransformFunc maps ILLUMINANCE_SKY_RASTER to input.sky_raster. Unknown
// variables, including ILLUMINANCE_CONFIG, map to "" and are skipped.
func envTransformFunc(key string) string {
	name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return envMappings[name]
}

var validate = validator.New()

// Validate checks field constraints and the cross-field rules of the analysis.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.ActualTag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	opts, err := c.Options()
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Options converts the analysis section into analysis.Options.
func (c *Config) Options() (analysis.Options, error) {
	policy, err := skygrid.ParseSolidAnglePolicy(c.Analysis.Policy)
	if err != nil {
		return analysis.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	strategy, err := skygrid.ParseStrategy(c.Analysis.Strategy)
	if err != nil {
		return analysis.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	unit, err := analysis.ParseBrightnessUnit(c.Input.Unit)
	if err != nil {
		return analysis.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	formula, err := units.ParseMagnitudeFormula(c.Input.MagnitudeFormula)
	if err != nil {
		return analysis.Options{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return analysis.Options{
		AzimuthInterval:     c.Analysis.AzimuthInterval,
		Resolution:          c.Analysis.Resolution,
		VerticalZenithMax:   c.Analysis.VerticalZenithMax,
		HorizontalZenithMax: c.Analysis.HorizontalZenithMax,
		Policy:              policy,
		Strategy:            strategy,
		ChunkColumns:        c.Analysis.ChunkColumns,
		Unit:                unit,
		MagnitudeFormula:    formula,
	}, nil
}
