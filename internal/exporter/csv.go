package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers []string
	Records [][]string
	Append  bool
	// BOMPrefix adds a UTF-8 BOM so Excel detects the encoding
	BOMPrefix bool
	// Latin1 encodes output as ISO-8859-1, the encoding station logs use.
	// Characters outside it are replaced.
	Latin1 bool
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	w.logger.Debug("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(filePath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var out io.Writer = file
	if options.Latin1 {
		enc := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Writer(file)
		out = enc
	} else if options.BOMPrefix && !options.Append {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)

	if !options.Append && len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	if c, ok := out.(io.Closer); ok && options.Latin1 {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to flush encoder: %w", err)
		}
	}
	return file.Sync()
}

// WriteSimpleCSV writes a UTF-8 CSV with a BOM, for files opened in Excel
func (w *CSVWriter) WriteSimpleCSV(filePath string, headers []string, records [][]string) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}

// AppendToCSV appends records to an existing CSV file
func (w *CSVWriter) AppendToCSV(filePath string, records [][]string) error {
	return w.WriteCSV(filePath, WriteOptions{
		Records: records,
		Append:  true,
	})
}

// WriteMergedCSV writes a merged log with its header, in the stations' Latin-1
// encoding so it reads back the same way the weekly files do
func WriteMergedCSV(path string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return df.Err
	}
	records := df.Records()
	if len(records) == 0 || len(records[0]) == 0 {
		return fmt.Errorf("no columns to write to %s", path)
	}
	return NewCSVWriter(nil).WriteCSV(path, WriteOptions{
		Headers: records[0],
		Records: records[1:],
		Latin1:  true,
	})
}
