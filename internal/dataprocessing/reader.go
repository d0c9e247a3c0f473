package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

// ReadOptions controls how a CSV log is loaded
type ReadOptions struct {
	// UTF8 skips the ISO-8859-1 decoding the data stations need
	UTF8 bool
	// Reverse flips row order after loading. Station exports are newest first.
	Reverse bool
}

// ReadCSV decodes a CSV log into a string-typed dataframe
func ReadCSV(r io.Reader, opts ReadOptions) (dataframe.DataFrame, error) {
	if !opts.UTF8 {
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, apperrors.NewParsingError("failed to parse CSV", err)
	}

	df, err := FromRecords(records)
	if err != nil {
		return df, err
	}
	if opts.Reverse {
		df = Reverse(df)
	}
	return df, nil
}

// ReadCSVFile opens path and reads it with ReadCSV
func ReadCSVFile(path string, opts ReadOptions) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	df, err := ReadCSV(f, opts)
	if err != nil {
		return df, fmt.Errorf("%s: %w", path, err)
	}
	return df, nil
}

// FromRecords builds a dataframe from a header row followed by data rows.
// Duplicate header names get .1, .2 suffixes, blank names become "Unnamed: N",
// short rows are padded with empty cells. Extra cells are only accepted when empty.
func FromRecords(records [][]string) (dataframe.DataFrame, error) {
	records = dropBlankRows(records)
	if len(records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: no header", apperrors.ErrEmptyTable)
	}
	if len(records) == 1 {
		return dataframe.DataFrame{}, apperrors.ErrEmptyTable
	}

	header := UniqueNames(trimTrailingEmpty(records[0]))
	width := len(header)

	rows := make([][]string, 0, len(records))
	rows = append(rows, header)
	for i, rec := range records[1:] {
		if len(rec) > width {
			if extra := trimTrailingEmpty(rec[width:]); len(extra) > 0 {
				return dataframe.DataFrame{}, apperrors.NewParsingError(
					fmt.Sprintf("row %d has %d fields, header has %d", i+2, len(rec), width), nil)
			}
			rec = rec[:width]
		}
		row := make([]string, width)
		copy(row, rec)
		rows = append(rows, row)
	}

	df := dataframe.LoadRecords(rows,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	)
	if df.Err != nil {
		return df, apperrors.NewParsingError("failed to load table", df.Err)
	}
	return df, nil
}

// UniqueNames renames repeated column names the way spreadsheet tools do:
// the first keeps its name, later ones get ".1", ".2" and so on.
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]int, len(names))
	taken := make(map[string]bool, len(names))

	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		candidate := name
		for taken[candidate] {
			seen[name]++
			candidate = name + "." + strconv.Itoa(seen[name])
		}
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

func dropBlankRows(records [][]string) [][]string {
	out := records[:0:0]
	for _, rec := range records {
		if len(trimTrailingEmpty(rec)) == 0 {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func trimTrailingEmpty(rec []string) []string {
	end := len(rec)
	for end > 0 && strings.TrimSpace(rec[end-1]) == "" {
		end--
	}
	return rec[:end]
}
