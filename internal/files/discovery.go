package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

const (
	// LogDateLayout is the YYMMDD prefix the data stations put on weekly exports
	LogDateLayout = "060102"
	// InputDateLayout is the MM/DD/YYYY form operators type date ranges in
	InputDateLayout = "01/02/2006"
	// shortDateLayout also takes single-digit months and days, as in 1/5/2024
	shortDateLayout = "1/2/2006"
	// weeklyLogExt is matched case-sensitively, as the stations write it
	weeklyLogExt = ".CSV"
)

// FileInfo represents information about a discovered log file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	// Date is the day parsed from the file name
	Date time.Time
}

// Discovery finds log files relative to a base directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// ParseLogDate reads the YYMMDD date from the first six characters of a file name
func ParseLogDate(name string) (time.Time, bool) {
	name = filepath.Base(name)
	if len(name) < len(LogDateLayout) {
		return time.Time{}, false
	}
	date, err := time.Parse(LogDateLayout, name[:len(LogDateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// ParseDateRange parses operator supplied MM/DD/YYYY bounds. The range is inclusive.
func ParseDateRange(start, end string) (time.Time, time.Time, error) {
	startDate, err := parseInputDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.NewValidationError(fmt.Sprintf("start date %q is not MM/DD/YYYY", start))
	}
	endDate, err := parseInputDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.NewValidationError(fmt.Sprintf("end date %q is not MM/DD/YYYY", end))
	}
	if startDate.After(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s is after %s", apperrors.ErrInvalidDateRange,
			startDate.Format(InputDateLayout), endDate.Format(InputDateLayout))
	}
	return startDate, endDate, nil
}

func parseInputDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(InputDateLayout, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(shortDateLayout, value)
}

// FindWeeklyLogs returns every *.CSV in dir whose file name date falls within
// [start, end]. Files without a parseable date are skipped. Results are sorted
// by date, then name.
func (d *Discovery) FindWeeklyLogs(dir string, start, end time.Time) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	startDay := truncateDay(start)
	endDay := truncateDay(end)

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), weeklyLogExt) {
			continue
		}

		date, ok := ParseLogDate(entry.Name())
		if !ok || date.Before(startDay) || date.After(endDay) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Date:    date,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].Date.Equal(files[j].Date) {
			return files[i].Date.Before(files[j].Date)
		}
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// resolve uses dir directly when absolute, otherwise joins it to the base path
func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

func truncateDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
