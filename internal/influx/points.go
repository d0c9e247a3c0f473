package influx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/dataprocessing"
	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

// BuildStats counts what BuildPoints did with a table
type BuildStats struct {
	Points int
	// NoTimestamp counts rows whose Timestamp was empty or unparseable
	NoTimestamp int
	// NoFields counts rows with a timestamp but no non-empty field
	NoFields int
}

// Skipped is the number of rows that produced no point
func (s BuildStats) Skipped() int {
	return s.NoTimestamp + s.NoFields
}

// naValues are the cell texts read as missing, matching what the station
// exports and spreadsheet edits leave behind in place of a reading.
var naValues = map[string]bool{
	"NaN": true, "nan": true, "NAN": true, "-NaN": true, "-nan": true,
	"NA": true, "N/A": true, "n/a": true, "<NA>": true, "#NA": true,
	"#N/A": true, "#N/A N/A": true, "null": true, "NULL": true, "None": true,
	"1.#IND": true, "-1.#IND": true, "1.#QNAN": true, "-1.#QNAN": true,
}

// cellValue trims v and blanks it out when it is a missing marker
func cellValue(v string) string {
	v = strings.TrimSpace(v)
	if naValues[v] {
		return ""
	}
	return v
}

// parseNumber parses decimal notation only. ok is false for text and hex
// floats; finite is false for Inf, which InfluxDB refuses as a field value.
func parseNumber(v string) (f float64, ok, finite bool) {
	if strings.ContainsAny(v, "xX_") {
		return 0, false, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, false
	}
	return f, true, !math.IsNaN(f) && !math.IsInf(f, 0)
}

// BuildPoints turns each table row into a point. A column becomes float fields
// when every non-empty cell in it is numeric and string fields otherwise, so a
// field never changes type within one write. Missing markers and non-finite
// numbers are skipped like empty cells.
func BuildPoints(df dataframe.DataFrame, measurement string, tagColumns []string, loc *time.Location) ([]*write.Point, BuildStats, error) {
	var stats BuildStats
	if df.Err != nil {
		return nil, stats, df.Err
	}
	if !dataprocessing.HasColumn(df, dataprocessing.TimestampColumn) {
		return nil, stats, fmt.Errorf("%w: %s", apperrors.ErrMissingColumn, dataprocessing.TimestampColumn)
	}
	if loc == nil {
		loc = time.UTC
	}

	isTag := make(map[string]bool, len(tagColumns))
	for _, tag := range tagColumns {
		isTag[tag] = true
	}

	type column struct {
		name    string
		values  []string
		numeric bool
	}
	var tags, fields []column
	for _, name := range df.Names() {
		if name == dataprocessing.TimestampColumn {
			continue
		}
		c := column{name: name, values: df.Col(name).Records()}
		if isTag[name] {
			tags = append(tags, c)
			continue
		}
		c.numeric = numericColumn(c.values)
		fields = append(fields, c)
	}

	stamps := df.Col(dataprocessing.TimestampColumn).Records()
	points := make([]*write.Point, 0, len(stamps))

	for row, raw := range stamps {
		ts, err := time.ParseInLocation(dataprocessing.TimestampLayout, strings.TrimSpace(raw), loc)
		if err != nil {
			stats.NoTimestamp++
			continue
		}

		fieldValues := make(map[string]interface{}, len(fields))
		for _, c := range fields {
			v := cellValue(c.values[row])
			if v == "" {
				continue
			}
			if c.numeric {
				f, _, finite := parseNumber(v)
				if !finite {
					continue
				}
				fieldValues[c.name] = f
			} else {
				fieldValues[c.name] = v
			}
		}
		if len(fieldValues) == 0 {
			stats.NoFields++
			continue
		}

		tagValues := make(map[string]string, len(tags))
		for _, c := range tags {
			if v := strings.TrimSpace(c.values[row]); v != "" {
				tagValues[c.name] = v
			}
		}

		points = append(points, influxdb2.NewPoint(measurement, tagValues, fieldValues, ts))
	}

	stats.Points = len(points)
	return points, stats, nil
}

// numericColumn reports whether every non-missing value parses as a float and
// at least one of them is finite
func numericColumn(values []string) bool {
	seen := false
	for _, v := range values {
		v = cellValue(v)
		if v == "" {
			continue
		}
		_, ok, finite := parseNumber(v)
		if !ok {
			return false
		}
		seen = seen || finite
	}
	return seen
}

// LineProtocol renders points the way they are sent, for dry runs
func LineProtocol(points []*write.Point) string {
	var b strings.Builder
	for _, p := range points {
		b.WriteString(write.PointToLineProtocol(p, time.Nanosecond))
	}
	return b.String()
}
