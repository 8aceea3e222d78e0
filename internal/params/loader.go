package params

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Definition is one row of a parameter definition workbook: the caller's
// selection of which parameters to extract. IDs are resolved against the
// registry at extraction time; unknown ids fail per-parameter, never the
// pipeline.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrNoDefinitions is returned when a definition file yields no rows.
var ErrNoDefinitions = errors.New("no parameter definitions found")

// Definition files carry these headers (case-insensitive).
const (
	headerID          = "parameter id"
	headerName        = "parameter name"
	headerDescription = "description"
)

// LoadDefinitions parses a parameter definition file. Files ending in
// .csv are read as CSV; everything else is treated as an Excel workbook
// (first sheet).
func LoadDefinitions(content []byte, filename string) ([]Definition, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return loadCSV(content)
	}
	return loadWorkbook(content)
}

func loadCSV(content []byte) ([]Definition, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return definitionsFromRows(rows)
}

func loadWorkbook(content []byte) ([]Definition, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoDefinitions
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return definitionsFromRows(rows)
}

func definitionsFromRows(rows [][]string) ([]Definition, error) {
	if len(rows) < 2 {
		return nil, ErrNoDefinitions
	}

	idCol, nameCol, descCol := -1, -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case headerID:
			idCol = i
		case headerName:
			nameCol = i
		case headerDescription:
			descCol = i
		}
	}
	if idCol == -1 {
		return nil, fmt.Errorf("missing %q column", headerID)
	}

	defs := make([]Definition, 0, len(rows)-1)
	for _, row := range rows[1:] {
		d := Definition{ID: strings.TrimSpace(cell(row, idCol))}
		if d.ID == "" {
			continue
		}
		d.Name = strings.TrimSpace(cell(row, nameCol))
		d.Description = strings.TrimSpace(cell(row, descCol))
		defs = append(defs, d)
	}
	if len(defs) == 0 {
		return nil, ErrNoDefinitions
	}
	return defs, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
