package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/user/skyglow_illuminance_go/internal/analysis"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	curveColor      = color.RGBA{B: 255, A: 255}
	comparisonColor = color.RGBA{R: 255, G: 165, A: 255}
	horizontalColor = color.RGBA{R: 255, A: 255}
)

// CreateVerticalCurvePlot draws the vertical illuminance against facing
// azimuth. comparison, when non-empty, holds reference values sampled at the
// same azimuths (entry i at i*interval degrees) and is drawn as a second line.
// horizontal, when not NaN, is drawn as a dashed reference level.
func CreateVerticalCurvePlot(curve *analysis.VerticalCurve, comparison []float64, horizontal float64) ([]byte, error) {
	if curve == nil || len(curve.Points) == 0 {
		return nil, fmt.Errorf("no vertical curve to plot")
	}

	p := plot.New()
	p.Title.Text = "Vertical Illuminance by Facing Azimuth"
	p.X.Label.Text = "Azimuth (deg)"
	p.Y.Label.Text = "Illuminance (mlx)"
	p.X.Min = 0
	p.X.Max = 360
	p.X.Tick.Marker = plot.ConstantTicks(generateTicks(0, 360, 45))
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, 0, len(curve.Points))
	for _, pt := range curve.Points {
		if math.IsNaN(pt.Illuminance) {
			continue
		}
		pts = append(pts, plotter.XY{X: pt.Azimuth, Y: pt.Illuminance})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("vertical curve has no finite values")
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertical curve line: %w", err)
	}
	line.Color = curveColor
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("Vertical", line)

	if cmp := comparisonPoints(comparison, curve.Interval); len(cmp) > 0 {
		cl, err := plotter.NewLine(cmp)
		if err != nil {
			return nil, fmt.Errorf("failed to create comparison line: %w", err)
		}
		cl.Color = comparisonColor
		cl.LineStyle.Width = vg.Points(1.5)
		p.Add(cl)
		p.Legend.Add("Reference", cl)
	}

	if !math.IsNaN(horizontal) {
		hl, err := plotter.NewLine(plotter.XYs{{X: 0, Y: horizontal}, {X: 360, Y: horizontal}})
		if err != nil {
			return nil, fmt.Errorf("failed to create horizontal line: %w", err)
		}
		hl.Color = horizontalColor
		hl.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(hl)
		p.Legend.Add(fmt.Sprintf("Horizontal %.4g mlx", horizontal), hl)
	}

	p.Legend.Top = true
	p.Legend.XOffs = vg.Points(-10)
	return renderPNG(p, vg.Points(800), vg.Points(400))
}

func comparisonPoints(values []float64, interval float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(values))
	for i, v := range values {
		az := float64(i) * interval
		if az >= 360 {
			break
		}
		if math.IsNaN(v) {
			continue
		}
		pts = append(pts, plotter.XY{X: az, Y: v})
	}
	return pts
}

// generateTicks returns labelled ticks from min to max inclusive every step.
func generateTicks(min, max, step int) []plot.Tick {
	if step <= 0 || max < min {
		return []plot.Tick{{Value: float64(min), Label: fmt.Sprintf("%d", min)}}
	}
	var ticks []plot.Tick
	for i := min; i <= max; i += step {
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: fmt.Sprintf("%d", i)})
	}
	return ticks
}

func renderPNG(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	writer, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %w", err)
	}
	return buf.Bytes(), nil
}
