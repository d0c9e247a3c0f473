package pdfreport

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

var (
	yearPattern = regexp.MustCompile(`Global Summary of the Month\s+for\s+(\d{4})`)
	// A month abbreviation at the start of a line, then the first number on it
	monthRow = regexp.MustCompile(`(?m)^\s*(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+(-?\d+(?:\.\d+)?)`)
)

// MonthlyMean is one row of the GSOM temperature table
type MonthlyMean struct {
	// Month is the first day of the month, UTC
	Month time.Time
	Mean  float64
}

// ExtractText returns the plain text of every page of the PDF at path
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", apperrors.NewParsingError("failed to open PDF", err).WithContext("path", path)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", apperrors.NewParsingError("failed to extract PDF text", err).WithContext("path", path)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}

// ParseYear finds the report year in the "Global Summary of the Month for YYYY" heading
func ParseYear(text string) (int, error) {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, apperrors.ErrYearNotFound
	}
	return strconv.Atoi(m[1])
}

// ParseMonthlyMeans returns the monthly mean temperature rows in the order they
// appear. Only the first row seen for each month is kept.
func ParseMonthlyMeans(text string, year int) ([]MonthlyMean, error) {
	seen := make(map[time.Month]bool)
	var out []MonthlyMean
	for _, m := range monthRow.FindAllStringSubmatch(text, -1) {
		month, err := time.Parse("Jan", m[1])
		if err != nil {
			continue
		}
		if seen[month.Month()] {
			continue
		}
		mean, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		seen[month.Month()] = true
		out = append(out, MonthlyMean{
			Month: time.Date(year, month.Month(), 1, 0, 0, 0, 0, time.UTC),
			Mean:  mean,
		})
	}
	if len(out) == 0 {
		return nil, apperrors.ErrNoTables
	}
	return out, nil
}

// Format renders the table the way the operator reads it on the console
func Format(year int, means []MonthlyMean) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Year: %d\n", year)
	fmt.Fprintf(&b, "%-12s %8s\n", "month", "mean")
	for _, m := range means {
		fmt.Fprintf(&b, "%-12s %8.1f\n", m.Month.Format("2006-01-02"), m.Mean)
	}
	return b.String()
}
