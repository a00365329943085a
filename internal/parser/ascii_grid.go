package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// headerKeys are the ESRI ASCII grid header keywords, lower-cased.
var headerKeys = map[string]bool{
	"ncols":        true,
	"nrows":        true,
	"xllcorner":    true,
	"yllcorner":    true,
	"xllcenter":    true,
	"yllcenter":    true,
	"cellsize":     true,
	"nodata_value": true,
}

// ParseASCIIGrid reads an ESRI ASCII grid file, the plain-text raster export of the GIS toolbox.
func ParseASCIIGrid(filepath string) (*Raster, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster file: %w", err)
	}
	defer file.Close()

	r, err := ReadASCIIGrid(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read raster %s: %w", filepath, err)
	}
	r.Source = filepath
	return r, nil
}

// ReadASCIIGrid decodes an ESRI ASCII grid from rd.
func ReadASCIIGrid(rd io.Reader) (*Raster, error) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<26)
	sc.Split(bufio.ScanWords)

	header := make(map[string]string)
	var pending string // first data token, read while looking for header keys
	for sc.Scan() {
		tok := sc.Text()
		key := strings.ToLower(tok)
		if !headerKeys[key] {
			pending = tok
			break
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: header %s has no value", ErrMalformedRaster, tok)
		}
		header[key] = sc.Text()
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan raster: %w", err)
	}

	cols, err := headerInt(header, "ncols")
	if err != nil {
		return nil, err
	}
	rows, err := headerInt(header, "nrows")
	if err != nil {
		return nil, err
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: shape %dx%d", ErrMalformedRaster, rows, cols)
	}

	r := &Raster{Rows: rows, Cols: cols, NoData: DefaultNoData}
	if r.CellSize, err = headerFloat(header, "cellsize", 0); err != nil {
		return nil, err
	}
	if v, ok := header["nodata_value"]; ok {
		if r.NoData, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("%w: NODATA_value %q", ErrMalformedRaster, v)
		}
		r.HasNoData = true
	}
	if r.XLLCorner, err = headerFloat(header, "xllcorner", 0); err != nil {
		return nil, err
	}
	if r.YLLCorner, err = headerFloat(header, "yllcorner", 0); err != nil {
		return nil, err
	}

	n := rows * cols
	r.Data = make([]float64, 0, n)
	parse := func(tok string) error {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("%w: value %d %q", ErrMalformedRaster, len(r.Data)+1, tok)
		}
		r.Data = append(r.Data, v)
		return nil
	}
	if pending != "" {
		if err := parse(pending); err != nil {
			return nil, err
		}
	}
	for len(r.Data) < n && sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan raster: %w", err)
	}
	if len(r.Data) != n {
		return nil, fmt.Errorf("%w: expected %d values, found %d", ErrMalformedRaster, n, len(r.Data))
	}
	return r, nil
}

// WriteASCIIGrid encodes r as an ESRI ASCII grid.
func WriteASCIIGrid(w io.Writer, r *Raster) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\nnrows %d\n", r.Cols, r.Rows)
	fmt.Fprintf(bw, "xllcorner %s\nyllcorner %s\n", formatFloat(r.XLLCorner), formatFloat(r.YLLCorner))
	fmt.Fprintf(bw, "cellsize %s\n", formatFloat(r.CellSize))
	if r.HasNoData {
		fmt.Fprintf(bw, "NODATA_value %s\n", formatFloat(r.NoData))
	}
	for i := 0; i < r.Rows; i++ {
		for j, v := range r.Row(i) {
			if j > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func headerInt(header map[string]string, key string) (int, error) {
	v, ok := header[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedRaster, key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedRaster, key, v)
	}
	return i, nil
}

func headerFloat(header map[string]string, key string, def float64) (float64, error) {
	v, ok := header[key]
	if !ok {
		// center-registered grids carry xllcenter/yllcenter instead
		v, ok = header[strings.Replace(key, "corner", "center", 1)]
		if !ok {
			return def, nil
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedRaster, key, v)
	}
	return f, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
