package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadPairsCSV loads word pairs from a two column CSV file.
// A first row of "source,target" is treated as a header and skipped.
func LoadPairsCSV(filename string) ([]Pair, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadPairsCSV(file)
}

// ReadPairsCSV reads word pairs from r. See LoadPairsCSV.
func ReadPairsCSV(r io.Reader) ([]Pair, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	startRow := 0
	if len(records) > 0 && strings.EqualFold(records[0][0], "source") && strings.EqualFold(records[0][1], "target") {
		startRow = 1
	}
	if len(records) <= startRow {
		return nil, errors.New("csv file has no data rows")
	}

	pairs := make([]Pair, 0, len(records)-startRow)
	for _, record := range records[startRow:] {
		pairs = append(pairs, Pair{Source: record[0], Target: record[1]})
	}
	return pairs, nil
}
