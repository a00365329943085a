package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/user/skyglow_illuminance_go/internal/parser"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// skyGrid adapts a block-averaged raster to plotter.GridXYZ. Column c is
// azimuth, row r is zenith angle measured down from the top of the image.
type skyGrid struct {
	cols, rows int
	z          []float64 // row-major, rows*cols
	azStep     float64
	zenStep    float64
}

func (g *skyGrid) Dims() (c, r int) { return g.cols, g.rows }

// Z flips the row so that the zenith is drawn at the top.
func (g *skyGrid) Z(c, r int) float64 { return g.z[(g.rows-1-r)*g.cols+c] }

func (g *skyGrid) X(c int) float64 { return -180 + (float64(c)+0.5)*g.azStep }

func (g *skyGrid) Y(r int) float64 { return -((float64(g.rows-1-r) + 0.5) * g.zenStep) }

// downsample averages r into blocks so that neither axis exceeds maxCells,
// skipping no-data pixels. Blocks without data are NaN. Values are log10 of
// the raster value so the dark sky and the glow domes share one scale.
func downsample(r *parser.Raster, resolution float64, maxCells int) (*skyGrid, error) {
	if maxCells <= 0 {
		return nil, fmt.Errorf("invalid heatmap size %d", maxCells)
	}
	block := 1
	for r.Cols/block > maxCells || r.Rows/block > maxCells {
		block++
	}
	g := &skyGrid{
		cols:    (r.Cols + block - 1) / block,
		rows:    (r.Rows + block - 1) / block,
		azStep:  resolution * float64(block),
		zenStep: resolution * float64(block),
	}
	g.z = make([]float64, g.cols*g.rows)
	for bi := 0; bi < g.rows; bi++ {
		for bj := 0; bj < g.cols; bj++ {
			sum, n := 0.0, 0
			for i := bi * block; i < min((bi+1)*block, r.Rows); i++ {
				for j := bj * block; j < min((bj+1)*block, r.Cols); j++ {
					v := r.At(i, j)
					if r.IsNoData(v) || !(v > 0) {
						continue
					}
					sum += v
					n++
				}
			}
			z := math.NaN()
			if n > 0 {
				z = math.Log10(sum / float64(n))
			}
			g.z[bi*g.cols+bj] = z
		}
	}
	return g, nil
}

// CreateSkyHeatmap renders the sky raster as an azimuth by zenith heatmap.
// resolution is degrees per raster pixel.
func CreateSkyHeatmap(r *parser.Raster, resolution float64, title string) ([]byte, error) {
	if r == nil || len(r.Data) == 0 {
		return nil, fmt.Errorf("no raster to plot heatmap")
	}
	if !(resolution > 0) {
		return nil, fmt.Errorf("invalid heatmap resolution %v", resolution)
	}
	g, err := downsample(r, resolution, 360)
	if err != nil {
		return nil, err
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, z := range g.z {
		if math.IsNaN(z) {
			continue
		}
		lo, hi = math.Min(lo, z), math.Max(hi, z)
	}
	if math.IsInf(lo, 1) {
		return nil, fmt.Errorf("raster has no positive values to plot")
	}
	if lo == hi {
		hi = lo + 1
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Azimuth (deg)"
	p.Y.Label.Text = "Zenith angle (deg)"
	p.X.Tick.Marker = plot.ConstantTicks(generateTicks(-180, 180, 45))
	zmax := float64(r.Rows) * resolution
	yTicks := make([]plot.Tick, 0)
	for z := 0; float64(z) <= zmax; z += 15 {
		yTicks = append(yTicks, plot.Tick{Value: -float64(z), Label: fmt.Sprintf("%d", z)})
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)

	hm := plotter.NewHeatMap(g, palette.Heat(16, 1))
	hm.Min = lo
	hm.Max = hi
	hm.NaN = color.Gray{Y: 200}
	p.Add(hm)

	return renderPNG(p, vg.Points(1000), vg.Points(500))
}
