package archive

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/dataprocessing"
	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

// Reading is one cell of a merged log in long format
type Reading struct {
	Site      string   `parquet:"name=site, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Timestamp int64    `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Column    string   `parquet:"name=column, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Value     string   `parquet:"name=value, type=BYTE_ARRAY, convertedtype=UTF8"`
	Number    *float64 `parquet:"name=number, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// Stats reports what WriteParquet kept
type Stats struct {
	Readings int
	// SkippedRows had no parseable timestamp
	SkippedRows int
}

// Readings melts a merged log into one Reading per non-empty cell. The table
// needs either a Timestamp column or Date and Time columns.
func Readings(site string, df dataframe.DataFrame) ([]Reading, Stats, error) {
	var stats Stats
	if df.Err != nil {
		return nil, stats, df.Err
	}

	if !dataprocessing.HasColumn(df, dataprocessing.TimestampColumn) {
		var err error
		df, _, err = dataprocessing.CombineDateTime(df, "Date", "Time", dataprocessing.TimestampColumn)
		if err != nil {
			return nil, stats, err
		}
	}

	stamps := df.Col(dataprocessing.TimestampColumn).Records()
	var columns []string
	for _, name := range df.Names() {
		if name != dataprocessing.TimestampColumn && name != dataprocessing.TagColumn {
			columns = append(columns, name)
		}
	}
	values := make([][]string, len(columns))
	for i, name := range columns {
		values[i] = df.Col(name).Records()
	}

	var out []Reading
	for row, raw := range stamps {
		ts, err := time.Parse(dataprocessing.TimestampLayout, strings.TrimSpace(raw))
		if err != nil {
			stats.SkippedRows++
			continue
		}
		for i, name := range columns {
			v := strings.TrimSpace(values[i][row])
			if v == "" {
				continue
			}
			r := Reading{Site: site, Timestamp: ts.UnixMilli(), Column: name, Value: v}
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				r.Number = &n
			}
			out = append(out, r)
		}
	}
	stats.Readings = len(out)
	return out, stats, nil
}

// WriteParquet writes a merged log to path as snappy-compressed long-format Parquet
func WriteParquet(path, site string, df dataframe.DataFrame) (Stats, error) {
	readings, stats, err := Readings(site, df)
	if err != nil {
		return stats, err
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return stats, apperrors.NewStorageError("failed to create parquet file", err).WithContext("path", path)
	}

	pw, err := writer.NewParquetWriter(fw, new(Reading), 4)
	if err != nil {
		fw.Close()
		os.Remove(path)
		return stats, apperrors.NewStorageError("failed to create parquet writer", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range readings {
		if err := pw.Write(readings[i]); err != nil {
			fw.Close()
			os.Remove(path)
			return stats, apperrors.NewStorageError(fmt.Sprintf("failed to write reading %d", i), err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		os.Remove(path)
		return stats, apperrors.NewStorageError("failed to finalize parquet file", err)
	}
	if err := fw.Close(); err != nil {
		return stats, apperrors.NewStorageError("failed to close parquet file", err)
	}
	return stats, nil
}
