package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"procura-backend/internal/repository"
)

// LoadWorkbook reads the procurement dataset from the first sheet of an
// xlsx workbook. The header row is skipped and fully blank rows are
// ignored; cells are coerced per column kind with the identity block
// falling back to defaults so every record stays insertable.
func LoadWorkbook(path string) ([]map[string]any, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("workbook %s has no data rows", path)
	}

	var records []map[string]any
	for rowIdx, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		record := make(map[string]any, len(repository.RecordColumns))
		for i, col := range repository.RecordColumns {
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			record[col.Name] = coerce(cell, col)
		}

		// PR numbers must be unique and non-empty; synthesize one from the
		// sheet position like the original loader did.
		if record["pr_number"] == nil {
			record["pr_number"] = fmt.Sprintf("PR-%d", rowIdx+2)
		}

		records = append(records, record)
	}

	return records, nil
}

func coerce(cell string, col repository.RecordColumn) any {
	if cell == "" {
		return col.Default
	}

	switch col.Kind {
	case repository.RealColumn:
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return col.Default
		}
		return v
	case repository.IntColumn:
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return col.Default
		}
		return int(v)
	default:
		return cell
	}
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
