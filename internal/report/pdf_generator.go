package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/jung-kurt/gofpdf"

	"github.com/user/skyglow_illuminance_go/internal/analysis"
)

const (
	inchToMm               = 25.4
	pdfPageWidthLandscape  = 11 * inchToMm // Letter landscape
	pdfPageHeightLandscape = 8.5 * inchToMm
	pdfMargin              = 0.5 * inchToMm
	pdfContentWidth        = pdfPageWidthLandscape - (2 * pdfMargin)
)

// Keys of the plot images BuildPDFReport embeds.
const (
	PlotVerticalCurve = "vertical_curve"
	PlotSkyHeatmap    = "sky_heatmap"
)

// ReportMeta carries the run context shown on the first page.
type ReportMeta struct {
	Title            string
	SkyRaster        string
	HorizontalRaster string
	PolicyComparison []analysis.HorizontalResult
}

// pdfStyler holds reusable styling and the flowing Y position.
type pdfStyler struct {
	pdf         *gofpdf.Fpdf
	styles      map[string]func()
	lineHeight  float64
	currentY    float64
	pageHeight  float64
	contentTopY float64
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:         pdf,
		styles:      make(map[string]func()),
		lineHeight:  6,
		pageHeight:  pdfPageHeightLandscape - pdfMargin,
		contentTopY: pdfMargin,
	}
	s.currentY = s.contentTopY
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 13)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["warning"] = func() {
		s.pdf.SetFont("Arial", "I", 10)
		s.pdf.SetTextColor(180, 90, 0)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["tableCellPeak"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetTextColor(0, 0, 160)
	}
}

func (s *pdfStyler) applyStyle(name string) {
	if fn, ok := s.styles[name]; ok {
		fn()
		return
	}
	s.styles["normal"]()
}

func (s *pdfStyler) checkAddPage(needed float64) {
	if s.currentY+needed > s.pageHeight {
		s.newPage()
	}
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = s.contentTopY
}

func (s *pdfStyler) writeParagraph(text, style, align string) {
	s.applyStyle(style)
	lines := s.pdf.SplitLines([]byte(text), pdfContentWidth)
	s.checkAddPage(float64(max(len(lines), 1)) * s.lineHeight)
	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, text, "", align, false)
	s.currentY = s.pdf.GetY() + 1
}

func (s *pdfStyler) addSpacer(height float64) {
	s.checkAddPage(height)
	s.currentY += height
}

// writeTable draws headers and rows with column widths given as fractions of
// the content width. highlight, when >= 0, marks one row.
func (s *pdfStyler) writeTable(headers []string, widthsRel []float64, rows [][]string, highlight int) {
	widths := make([]float64, len(widthsRel))
	for i, rel := range widthsRel {
		widths[i] = rel * pdfContentWidth
	}
	header := func() {
		s.applyStyle("tableHeader")
		x := pdfMargin
		for i, h := range headers {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, h, "1", 0, "C", true, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}

	s.checkAddPage(2 * s.lineHeight)
	header()
	for r, row := range rows {
		if s.currentY+s.lineHeight > s.pageHeight {
			s.newPage()
			header()
		}
		style := "tableCell"
		if r == highlight {
			style = "tableCellPeak"
		}
		s.applyStyle(style)
		x := pdfMargin
		for i, cell := range row {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, cell, "1", 0, "C", false, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}
}

func (s *pdfStyler) addImage(img []byte, name string, width, height float64, caption string) {
	s.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(img))
	if width > pdfContentWidth {
		height *= pdfContentWidth / width
		width = pdfContentWidth
	}
	captionHeight := 0.0
	if caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)
	x := pdfMargin + (pdfContentWidth-width)/2
	s.pdf.ImageOptions(name, x, s.currentY, width, height, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	s.currentY += height
	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, "normal", "C")
	}
	s.addSpacer(2)
}

// WritePDFReport renders the QA report for results to w.
func WritePDFReport(w io.Writer, results *analysis.Results, meta ReportMeta, plotImages map[string][]byte) error {
	if results == nil {
		return fmt.Errorf("no results to report")
	}
	pdf := gofpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.AddPage()
	s := newPDFStyler(pdf)

	title := meta.Title
	if title == "" {
		title = "Night Sky Illuminance Report"
	}
	s.writeParagraph(title, "h1", "C")
	s.addSpacer(4)

	opts := results.Options
	s.writeParagraph("Run Parameters", "h2", "L")
	params := [][]string{
		{"Sky raster", filepath.Base(meta.SkyRaster)},
		{"Sky array (rows x cols)", fmt.Sprintf("%d x %d", results.SkyShape[0], results.SkyShape[1])},
		{"Horizontal array (rows x cols)", fmt.Sprintf("%d x %d", results.HorizontalShape[0], results.HorizontalShape[1])},
		{"Resolution", fmt.Sprintf("%g deg", opts.Resolution)},
		{"Azimuth interval", fmt.Sprintf("%g deg", opts.AzimuthInterval)},
		{"Zenith coverage (vertical / horizontal)", fmt.Sprintf("%g / %g deg", opts.VerticalZenithMax, opts.HorizontalZenithMax)},
		{"Solid-angle policy", opts.Policy.String()},
		{"Raster unit", opts.Unit.String()},
	}
	if meta.HorizontalRaster != "" {
		params = slices.Insert(params, 2, []string{"Horizontal raster", filepath.Base(meta.HorizontalRaster)})
	}
	s.writeTable([]string{"Parameter", "Value"}, []float64{0.4, 0.6}, params, -1)
	s.addSpacer(5)

	s.writeParagraph("Horizontal Illuminance", "h2", "L")
	h := results.Horizontal
	s.writeParagraph(fmt.Sprintf("%s mlx (%d pixels summed, %d excluded as no-data, zero or negative)",
		formatValue(h.Illuminance), h.Included, h.Excluded), "normal", "L")
	if len(meta.PolicyComparison) > 0 {
		rows := make([][]string, 0, len(meta.PolicyComparison))
		for _, c := range meta.PolicyComparison {
			rows = append(rows, []string{c.Policy.String(), formatValue(c.Illuminance), relDiff(c.Illuminance, h.Illuminance)})
		}
		s.writeTable([]string{"Policy", "Horizontal (mlx)", "Relative to run"}, []float64{0.3, 0.35, 0.35}, rows, -1)
	}
	s.addSpacer(3)

	for _, msg := range results.AnalysisErrors {
		s.writeParagraph("Warning: "+msg, "warning", "L")
	}

	if img, ok := plotImages[PlotVerticalCurve]; ok && len(img) > 0 {
		s.newPage()
		s.writeParagraph("Vertical Illuminance Curve", "h2", "L")
		width := pdfContentWidth * 0.9
		s.addImage(img, PlotVerticalCurve, width, width*0.5, "Vertical illuminance by facing azimuth (mlx)")
	}
	if img, ok := plotImages[PlotSkyHeatmap]; ok && len(img) > 0 {
		s.newPage()
		s.writeParagraph("Sky Brightness", "h2", "L")
		width := pdfContentWidth * 0.9
		s.addImage(img, PlotSkyHeatmap, width, width*0.5, "log10 sky brightness, zenith at top")
	}

	s.newPage()
	s.writeParagraph("Vertical Illuminance by Azimuth", "h2", "L")
	peak := results.Curve.PeakIndex()
	rows := make([][]string, 0)
	if results.Curve != nil {
		for _, p := range results.Curve.Points {
			rows = append(rows, []string{formatValue(p.Azimuth), formatValue(p.Illuminance), fmt.Sprintf("%d", p.Excluded)})
		}
	}
	if len(rows) == 0 {
		s.writeParagraph("No vertical illuminance values.", "normal", "L")
	} else {
		s.writeTable([]string{"Azimuth (deg)", "Vertical (mlx)", "Excluded pixels"}, []float64{0.3, 0.4, 0.3}, rows, peak)
	}

	if pdf.Err() {
		return fmt.Errorf("failed to render PDF report: %w", pdf.Error())
	}
	return pdf.Output(w)
}

// BuildPDFReport writes the QA report to path.
func BuildPDFReport(path string, results *analysis.Results, meta ReportMeta, plotImages map[string][]byte) error {
	var buf bytes.Buffer
	if err := WritePDFReport(&buf, results, meta, plotImages); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

func relDiff(v, ref float64) string {
	if ref == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%+.3g%%", 100*(v-ref)/ref)
}
