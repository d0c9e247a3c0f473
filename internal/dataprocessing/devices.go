package dataprocessing

import (
	"fmt"
	"log/slog"

	"github.com/go-gota/gota/dataframe"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/config"
)

const (
	// TimestampColumn is the combined Date + Time column written on every device table
	TimestampColumn = "Timestamp"
	// TagColumn holds the site name
	TagColumn = "Tag"
)

// DeviceTable is the slice of a site log belonging to one piece of equipment
type DeviceTable struct {
	Device string
	Frame  dataframe.DataFrame
}

// SiteLog is a processed merged log for one site
type SiteLog struct {
	Site    string
	Devices []DeviceTable
	// BadTimestamps counts rows whose Date/Time did not parse
	BadTimestamps int
}

// SplitDevices returns one table per profile that applies to site, in profile order.
// Profiles that match no columns still produce an (empty) table so callers can
// report them.
func SplitDevices(df dataframe.DataFrame, site string, profiles []config.DeviceProfile) []DeviceTable {
	var out []DeviceTable
	for _, p := range profiles {
		if !p.AppliesTo(site) {
			continue
		}
		out = append(out, DeviceTable{Device: p.Name, Frame: FilterColumns(df, p.Keywords)})
	}
	return out
}

// SiteOptions controls ProcessSiteLog
type SiteOptions struct {
	Devices config.DevicesConfig
	// Deltas adds 15 minute totalizer deltas to every device table
	Deltas bool
	Logger *slog.Logger
}

// ProcessSiteLog reads a merged log and splits it into device tables ready for the database
func ProcessSiteLog(site, path string, opts SiteOptions) (*SiteLog, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	df, err := ReadCSVFile(path, ReadOptions{})
	if err != nil {
		return nil, err
	}

	df, bad, err := CombineDateTime(df, "Date", "Time", TimestampColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if bad > 0 {
		logger.Warn("Rows with unparseable date/time",
			slog.String("site", site),
			slog.Int("rows", bad))
	}

	df = AddConstantColumn(df, TagColumn, site)
	if renames, ok := opts.Devices.Renames[site]; ok {
		df = RenameColumns(df, renames)
	}
	if df.Err != nil {
		return nil, fmt.Errorf("%s: %w", path, df.Err)
	}

	result := &SiteLog{Site: site, BadTimestamps: bad}
	for _, dt := range SplitDevices(df, site, opts.Devices.Profiles) {
		if dt.Frame.Err != nil {
			return nil, fmt.Errorf("%s %s: %w", site, dt.Device, dt.Frame.Err)
		}
		if opts.Deltas {
			totals := TotalizerColumns(dt.Frame)
			dt.Frame, err = AddTotalizerDeltas(dt.Frame, opts.Devices.TotalizerSuffix)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", site, dt.Device, err)
			}
			logger.Debug("Totalizer deltas added",
				slog.String("site", site),
				slog.String("device", dt.Device),
				slog.Any("columns", totals))
		}
		result.Devices = append(result.Devices, dt)
	}
	return result, nil
}
