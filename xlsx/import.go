// Package xlsx reads brokerage statement exports in XLSX form into source
// rows. The first non-empty row of a sheet is taken as the header; every row
// below it becomes one SourceRow keyed by those headers.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ledgerline/ledgerline"
)

// ImportFile reads the first sheet of the named XLSX file.
func ImportFile(path string) ([]ledgerline.SourceRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", path, err)
	}
	defer f.Close()
	return importSheet(f, path, f.GetSheetName(0))
}

// Import reads the first sheet of an XLSX stream; name labels the rows'
// provenance.
func Import(r io.Reader, name string) ([]ledgerline.SourceRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", name, err)
	}
	defer f.Close()
	return importSheet(f, name, f.GetSheetName(0))
}

// ImportSheet reads one named sheet of the named XLSX file.
func ImportSheet(path, sheet string) ([]ledgerline.SourceRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", path, err)
	}
	defer f.Close()
	return importSheet(f, path, sheet)
}

func importSheet(f *excelize.File, file, sheet string) ([]ledgerline.SourceRow, error) {
	if sheet == "" {
		return nil, fmt.Errorf("%q has no sheets", file)
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("could not read sheet %q of %q: %w", sheet, file, err)
	}

	// Statements often start with title or disclaimer lines; the header is
	// the first row with more than one non-empty cell.
	headerAt := -1
	var headers []string
	for i, row := range cells {
		if filled(row) > 1 {
			headerAt = i
			headers = normalize(row)
			break
		}
	}
	if headerAt < 0 {
		return nil, fmt.Errorf("sheet %q of %q has no header row", sheet, file)
	}

	var rows []ledgerline.SourceRow
	for i := headerAt + 1; i < len(cells); i++ {
		if filled(cells[i]) == 0 {
			continue
		}
		fields := make(map[string]string, len(headers))
		for j, h := range headers {
			if h == "" || j >= len(cells[i]) {
				continue
			}
			if v := strings.TrimSpace(cells[i][j]); v != "" {
				fields[h] = v
			}
		}
		rows = append(rows, ledgerline.SourceRow{File: file, Line: i + 1, Fields: fields})
	}
	return rows, nil
}

func filled(row []string) int {
	n := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			n++
		}
	}
	return n
}

func normalize(row []string) []string {
	headers := make([]string, len(row))
	for i, cell := range row {
		headers[i] = strings.TrimSpace(cell)
	}
	return headers
}
