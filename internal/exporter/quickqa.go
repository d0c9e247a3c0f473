package exporter

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

// QADateLayouts are the Date column forms found in merged logs
var QADateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
}

// QuickQAFileNames returns the template and filled workbook names for a farm
func QuickQAFileNames(farm string) (template, filled string) {
	return "log_quick_qa_" + farm + ".xlsx", "log_quick_qa_" + farm + "_filled.xlsx"
}

// FillQuickQA copies a merged log into the active sheet of a quick QA workbook,
// starting at A1 with the header row. The template is left untouched; the result
// is saved as output. Values in dateColumn are written as Excel dates and
// numeric text as numbers.
func FillQuickQA(template, output string, df dataframe.DataFrame, dateColumn string) error {
	if df.Err != nil {
		return df.Err
	}

	var f *excelize.File
	if _, err := os.Stat(template); err == nil {
		f, err = excelize.OpenFile(template)
		if err != nil {
			return fmt.Errorf("failed to open template %s: %w", template, err)
		}
	} else {
		f = excelize.NewFile()
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	records := df.Records()
	header := records[0]

	headerRow := make([]interface{}, len(header))
	dateIdx := -1
	for i, name := range header {
		headerRow[i] = name
		if name == dateColumn {
			dateIdx = i
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for r, rec := range records[1:] {
		row := make([]interface{}, len(rec))
		for c, v := range rec {
			row[c] = cellValue(v, c == dateIdx)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if len(header) > 0 {
		style, err := f.NewStyle(&excelize.Style{
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "center"},
		})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	if err := f.SaveAs(output); err != nil {
		return fmt.Errorf("failed to save %s: %w", output, err)
	}
	return nil
}

// cellValue converts merged log text to the value type Excel should see
func cellValue(v string, isDate bool) interface{} {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if isDate {
		for _, layout := range QADateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
		return v
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}
