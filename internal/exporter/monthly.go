package exporter

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

// DefaultMonthlyPrefix names the per-month workbooks, e.g. PGE_October-23.xlsx
const DefaultMonthlyPrefix = "PGE"

// MonthlyFileName returns <prefix>_<Month>-<yy>.xlsx for the month containing t
func MonthlyFileName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s-%s.xlsx", prefix, t.Month().String(), t.Format("06"))
}

type monthRows struct {
	first time.Time
	rows  [][]string
	times []time.Time
}

// SplitByMonth reads the first sheet of input and writes one workbook per calendar
// month of the datetime column into outDir. Values in column are parsed with layout
// and fall back to Excel serial dates. The written paths are returned oldest first.
func SplitByMonth(input, outDir, column, layout, prefix string) ([]string, error) {
	f, err := excelize.OpenFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, apperrors.ErrEmptyTable
	}

	header := rows[0]
	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrMissingColumn, column)
	}

	months := make(map[string]*monthRows)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		var raw string
		if col < len(row) {
			raw = row[col]
		}
		t, err := parseSheetTime(raw, layout)
		if err != nil {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("row %d: cannot parse %q in column %s", i+2, raw, column), err)
		}

		key := t.Format("2006-01")
		m, ok := months[key]
		if !ok {
			m = &monthRows{first: time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)}
			months[key] = m
		}
		m.rows = append(m.rows, row)
		m.times = append(m.times, t)
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	written := make([]string, 0, len(keys))
	for _, k := range keys {
		m := months[k]
		path := filepath.Join(outDir, MonthlyFileName(prefix, m.first))
		if err := writeMonth(path, header, col, m); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeMonth(path string, header []string, col int, m *monthRows) error {
	out := excelize.NewFile()
	defer out.Close()
	sheet := out.GetSheetName(0)

	headerRow := make([]interface{}, len(header))
	for i, name := range header {
		headerRow[i] = name
	}
	if err := out.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r, rec := range m.rows {
		row := make([]interface{}, len(rec))
		for c, v := range rec {
			if c == col {
				row[c] = m.times[r]
				continue
			}
			row[c] = cellValue(v, false)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := out.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if err := out.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// parseSheetTime accepts text in layout or an Excel serial date
func parseSheetTime(raw, layout string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(layout, raw)
	if err == nil {
		return t, nil
	}
	serial, serr := strconv.ParseFloat(raw, 64)
	if serr != nil {
		return time.Time{}, err
	}
	return excelize.ExcelDateToTime(serial, false)
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
