// Package exporter writes tables back out for operators: merged CSV logs,
// quick QA workbooks and per-month workbooks.
//
// WriteMergedCSV writes a merged log in the same Latin-1 encoding the readers
// expect. FillQuickQA copies a merged log into a copy of a farm's QA template.
// SplitByMonth breaks a workbook into one file per calendar month of a
// datetime column.
//
// Example usage:
//
//	err := exporter.WriteMergedCSV(paths.MergedLogPath("Hanford", "2023"), merged)
//
//	files, err := exporter.SplitByMonth("pge.xlsx", "out", "Datetime",
//		"2006-01-02 15:04:05", exporter.DefaultMonthlyPrefix)
package exporter
