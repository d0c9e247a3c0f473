package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/app"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/config"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/dataprocessing"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/infrastructure"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/influx"
)

const toolName = "influximport"

type options struct {
	locations string
	site      string
	deltas    bool
	dryRun    bool
	loc       *time.Location
}

func main() {
	configFile := flag.String("config", "", "config file (defaults to config.yaml or AGM_CONFIG_FILE)")
	locations := flag.String("locations", "Gaslog_file_locations_24.yml", "farm -> [directory, filename] YAML")
	site := flag.String("site", "", "only import this site")
	deltas := flag.Bool("deltas", false, "add 15 minute totalizer deltas")
	dryRun := flag.Bool("dry-run", false, "print device tables instead of writing them")
	tz := flag.String("tz", "UTC", "time zone of the log timestamps")
	flag.Parse()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: invalid -tz: %v\n", toolName, err)
		os.Exit(2)
	}

	application, err := app.New(toolName, app.Options{ConfigFile: *configFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", toolName, err)
		os.Exit(1)
	}

	opts := options{
		locations: application.Paths.SoftwareFile(*locations),
		site:      *site,
		deltas:    *deltas,
		dryRun:    *dryRun,
		loc:       loc,
	}

	ctx, stop := application.Context()
	err = application.Run(ctx, func(ctx context.Context) error {
		return importAll(ctx, application, opts)
	})
	stop()
	application.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", toolName, err)
		os.Exit(1)
	}
}

func importAll(ctx context.Context, application *app.Application, opts options) error {
	paths, err := config.LoadLogLocations(opts.locations)
	if err != nil {
		return err
	}

	writer := influx.NewWriter(application.Config.Influx, opts.loc, application.Logger)
	if !opts.dryRun {
		if err := writer.Ping(ctx); err != nil {
			return err
		}
	}

	var failed []string
	for _, site := range config.SortedKeys(paths) {
		if opts.site != "" && site != opts.site {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		failed = append(failed, importSite(ctx, application, writer, site, paths[site], opts)...)
	}

	application.Printf("Finished uploading data\n")
	if len(failed) > 0 {
		return fmt.Errorf("%d upload(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

// importSite returns "<site>/<device>" for every table that failed
func importSite(ctx context.Context, application *app.Application, writer *influx.Writer, site, path string, opts options) []string {
	logger := infrastructure.WithSite(application.Logger, site)
	metrics := application.Metrics()
	ctx, span := application.Telemetry.StartSpan(ctx, "import_site", attribute.String("site", site))
	defer span.End()

	application.Printf("Processing logs for %s\n", site)
	siteLog, err := dataprocessing.ProcessSiteLog(site, path, dataprocessing.SiteOptions{
		Devices: application.Config.Devices,
		Deltas:  opts.deltas,
		Logger:  logger,
	})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		metrics.AddError(ctx, "process")
		logger.ErrorContext(ctx, "Failed to process site log",
			slog.String("path", path),
			slog.String("error", err.Error()))
		application.Printf("Failed to process logs for %s: %v\n", site, err)
		return []string{site}
	}
	metrics.AddFiles(ctx, "process", 1)

	bucket := writer.BucketFor(site)
	var failed []string
	for _, device := range siteLog.Devices {
		metrics.AddRows(ctx, "process", device.Frame.Nrow())
		if opts.dryRun {
			dryRun(ctx, application, logger, site, bucket, device, opts.loc)
			continue
		}

		application.Printf("Uploading %s logs\n", device.Device)
		stats, err := writer.WriteTable(ctx, bucket, device.Device, device.Frame, []string{dataprocessing.TagColumn})
		metrics.AddPoints(ctx, bucket, stats.Points)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			metrics.AddError(ctx, "write")
			logger.ErrorContext(ctx, "Upload failed",
				slog.String("device", device.Device),
				slog.String("error", err.Error()))
			application.Printf("Failed to upload %s logs for %s\n", device.Device, site)
			failed = append(failed, site+"/"+device.Device)
			continue
		}
		application.Printf("Successfully uploaded %s logs for %s (%d points, %d skipped)\n",
			device.Device, site, stats.Points, stats.Skipped())
	}
	return failed
}

// dryRun prints a device table and how it would be written
func dryRun(ctx context.Context, application *app.Application, logger *slog.Logger, site, bucket string, device dataprocessing.DeviceTable, loc *time.Location) {
	application.Printf("%s %s -> bucket %s\n%s\n", site, device.Device, bucket, device.Frame.String())

	points, stats, err := influx.BuildPoints(device.Frame, device.Device, []string{dataprocessing.TagColumn}, loc)
	if err != nil {
		application.Printf("Cannot build points for %s: %v\n", device.Device, err)
		return
	}
	application.Printf("%d points would be written (%d rows skipped)\n", stats.Points, stats.Skipped())
	logger.DebugContext(ctx, "Dry run line protocol",
		slog.String("device", device.Device),
		slog.String("lines", influx.LineProtocol(points)))
}
