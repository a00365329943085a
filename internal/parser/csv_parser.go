package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ComparisonData is an external reference curve: one vertical illuminance
// value per line, ordered by facing azimuth at a fixed step from 0 degrees.
type ComparisonData struct {
	Values      []float64
	ParseErrors []string // non-fatal problems, e.g. unparsable lines kept as NaN
}

// ParseComparisonData reads a reference illuminance file.
func ParseComparisonData(filepath string) (*ComparisonData, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open comparison file: %w", err)
	}
	defer file.Close()
	return ReadComparisonData(file)
}

// ReadComparisonData reads reference values from rd. Blank lines and lines
// starting with '#' are skipped; a line that is not a number becomes NaN and
// is reported in ParseErrors so the curve keeps its azimuth alignment.
func ReadComparisonData(rd io.Reader) (*ComparisonData, error) {
	reader := csv.NewReader(rd)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read comparison data: %w", err)
	}

	data := &ComparisonData{
		Values:      make([]float64, 0, len(allRows)),
		ParseErrors: make([]string, 0),
	}
	for rowIdx, row := range allRows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) > 1 {
			data.ParseErrors = append(data.ParseErrors, fmt.Sprintf("Warning: record %d has %d fields, using the first.", rowIdx+1, len(row)))
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil {
			data.ParseErrors = append(data.ParseErrors, fmt.Sprintf("Error converting value '%s' on record %d. Using NaN. Error: %v", row[0], rowIdx+1, err))
			val = math.NaN()
		}
		data.Values = append(data.Values, val)
	}
	if len(data.Values) == 0 {
		return nil, fmt.Errorf("comparison data contains no values")
	}
	return data, nil
}
