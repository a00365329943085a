package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/user/skyglow_illuminance_go/internal/analysis"
)

// ResultsHeader is the first line of every results file.
const ResultsHeader = "Azimuth, Vertical Illuminance (mlx), Horizontal Illuminance (mlx)"

// ResultsWriter persists a result table to Path. The file appears only once the
// whole table has been written; a failed write leaves any previous file intact.
type ResultsWriter struct {
	Path string
}

// NewResultsWriter returns a writer targeting path.
func NewResultsWriter(path string) *ResultsWriter {
	return &ResultsWriter{Path: path}
}

// WriteTable implements analysis.TableWriter.
func (w *ResultsWriter) WriteTable(table *analysis.ResultTable) error {
	if table == nil {
		return fmt.Errorf("no result table to write")
	}
	return atomicWrite(w.Path, func(out io.Writer) error {
		return WriteResults(out, table)
	})
}

// atomicWrite streams into a temporary sibling of path and renames it into
// place only when write succeeds.
func atomicWrite(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", tmp.Name(), err)
	}
	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into %s: %w", path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	return atomicWrite(path, func(out io.Writer) error {
		_, err := out.Write(data)
		return err
	})
}

// WriteResults writes the header line then one "azimuth,vertical,horizontal"
// row per table row, floats in shortest round-trip form.
func WriteResults(w io.Writer, table *analysis.ResultTable) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(ResultsHeader + "\n"); err != nil {
		return fmt.Errorf("failed to write results header: %w", err)
	}
	cw := csv.NewWriter(bw)
	for i, row := range table.Rows {
		record := []string{formatValue(row.Azimuth), formatValue(row.Vertical), formatValue(row.Horizontal)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write results row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush results: %w", err)
	}
	return bw.Flush()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
