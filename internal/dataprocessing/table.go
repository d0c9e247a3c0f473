package dataprocessing

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"

	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

// TimestampLayout is how combined Date and Time values are written
const TimestampLayout = "2006-01-02 15:04:05"

// DateTimeLayouts are the Date + " " + Time forms seen in station exports
var DateTimeLayouts = []string{
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01/02/06 15:04:05",
	"1/2/06 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
}

// Reverse returns df with its rows in reverse order
func Reverse(df dataframe.DataFrame) dataframe.DataFrame {
	n := df.Nrow()
	if df.Err != nil || n < 2 {
		return df
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = n - 1 - i
	}
	return df.Subset(idx)
}

// Concatenate stacks tables in order. Tables whose columns differ from the first
// are logged and still included; the result carries the union of all columns in
// first-seen order with empty cells where a table lacked a column.
func Concatenate(dfs []dataframe.DataFrame, logger *slog.Logger) (dataframe.DataFrame, error) {
	if len(dfs) == 0 {
		return dataframe.DataFrame{}, apperrors.ErrNoTables
	}
	if logger == nil {
		logger = slog.Default()
	}

	first := dfs[0].Names()
	union := append([]string(nil), first...)
	present := make(map[string]bool, len(first))
	for _, name := range first {
		present[name] = true
	}

	for i, df := range dfs {
		if df.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("table %d: %w", i, df.Err)
		}
		names := df.Names()
		if i > 0 && !sameColumns(first, names) {
			logger.Warn("Table has a different structure than the first table",
				slog.Int("index", i),
				slog.Any("columns", names))
		}
		for _, name := range names {
			if !present[name] {
				present[name] = true
				union = append(union, name)
			}
		}
	}

	var out dataframe.DataFrame
	for i, df := range dfs {
		aligned := alignColumns(df, union)
		if i == 0 {
			out = aligned
			continue
		}
		out = out.RBind(aligned)
		if out.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("concatenate table %d: %w", i, out.Err)
		}
	}
	return out, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// alignColumns adds empty columns for names missing from df and orders columns as names
func alignColumns(df dataframe.DataFrame, names []string) dataframe.DataFrame {
	have := make(map[string]bool)
	for _, name := range df.Names() {
		have[name] = true
	}
	for _, name := range names {
		if !have[name] {
			df = df.Mutate(series.New(make([]string, df.Nrow()), series.String, name))
		}
	}
	return df.Select(names)
}

// FilterColumns keeps the columns whose name matches any keyword, in original order.
// Keywords are regular expressions searched anywhere in the name.
func FilterColumns(df dataframe.DataFrame, keywords []string) dataframe.DataFrame {
	if len(keywords) == 0 {
		return dataframe.DataFrame{}
	}
	re, err := regexp.Compile(strings.Join(keywords, "|"))
	if err != nil {
		return dataframe.DataFrame{Err: apperrors.NewValidationError(fmt.Sprintf("invalid column keywords: %v", err))}
	}

	var keep []string
	for _, name := range df.Names() {
		if re.MatchString(name) {
			keep = append(keep, name)
		}
	}
	if len(keep) == 0 {
		return dataframe.DataFrame{}
	}
	return df.Select(keep)
}

// RenameColumns renames the columns in mapping (old -> new) that are present
func RenameColumns(df dataframe.DataFrame, mapping map[string]string) dataframe.DataFrame {
	names := df.Names()
	for _, old := range names {
		if renamed, ok := mapping[old]; ok && renamed != old {
			df = df.Rename(renamed, old)
		}
	}
	return df
}

// AddConstantColumn sets column name to value on every row
func AddConstantColumn(df dataframe.DataFrame, name, value string) dataframe.DataFrame {
	values := make([]string, df.Nrow())
	for i := range values {
		values[i] = value
	}
	return df.Mutate(series.New(values, series.String, name))
}

// HasColumn reports whether df has a column called name
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// ParseDateTime parses a station date and time pair
func ParseDateTime(date, clock string) (time.Time, error) {
	value := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	for _, layout := range DateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date/time %q", value)
}

// CombineDateTime replaces dateCol and timeCol with a leading target column in
// TimestampLayout. Pairs that do not parse keep their raw "date time" text and
// are counted in the returned int.
func CombineDateTime(df dataframe.DataFrame, dateCol, timeCol, target string) (dataframe.DataFrame, int, error) {
	if !HasColumn(df, dateCol) || !HasColumn(df, timeCol) {
		return df, 0, fmt.Errorf("%w: need %q and %q", apperrors.ErrMissingColumn, dateCol, timeCol)
	}

	dates := df.Col(dateCol).Records()
	clocks := df.Col(timeCol).Records()
	stamps := make([]string, len(dates))
	failed := 0
	for i := range dates {
		t, err := ParseDateTime(dates[i], clocks[i])
		if err != nil {
			stamps[i] = strings.TrimSpace(dates[i] + " " + clocks[i])
			failed++
			continue
		}
		stamps[i] = t.Format(TimestampLayout)
	}

	cols := []series.Series{series.New(stamps, series.String, target)}
	for _, name := range df.Names() {
		if name == dateCol || name == timeCol || name == target {
			continue
		}
		cols = append(cols, df.Col(name))
	}
	out := dataframe.New(cols...)
	if out.Err != nil {
		return df, failed, out.Err
	}
	return out, failed, nil
}

// TotalizerColumns returns the columns that hold cumulative counts
func TotalizerColumns(df dataframe.DataFrame) []string {
	var cols []string
	for _, name := range df.Names() {
		if strings.Contains(name, "Total") {
			cols = append(cols, name)
		}
	}
	return cols
}

// AddTotalizerDeltas adds <col><suffix> for every totalizer column, holding the
// difference between each reading and the one in the next row. The last row and
// rows where either reading is not a number are left empty.
func AddTotalizerDeltas(df dataframe.DataFrame, suffix string) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return df, df.Err
	}
	for _, col := range TotalizerColumns(df) {
		if strings.HasSuffix(col, suffix) {
			continue
		}
		values := df.Col(col).Records()
		deltas := make([]string, len(values))
		for i := 0; i+1 < len(values); i++ {
			cur, err := decimal.NewFromString(strings.TrimSpace(values[i]))
			if err != nil {
				continue
			}
			next, err := decimal.NewFromString(strings.TrimSpace(values[i+1]))
			if err != nil {
				continue
			}
			deltas[i] = cur.Sub(next).String()
		}
		df = df.Mutate(series.New(deltas, series.String, col+suffix))
		if df.Err != nil {
			return df, fmt.Errorf("delta for %s: %w", col, df.Err)
		}
	}
	return df, nil
}
