package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/app"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/archive"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/config"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/dataprocessing"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/exporter"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/infrastructure"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/redlion"
)

const toolName = "fetchgaslogs"

type options struct {
	servers string
	project string
	year    string
	limit   int
	archive bool
}

func main() {
	configFile := flag.String("config", "", "config file (defaults to config.yaml or AGM_CONFIG_FILE)")
	servers := flag.String("servers", "Redlion_server_locations.yml", "project -> server YAML")
	project := flag.String("project", "", "only fetch this project")
	year := flag.String("year", "", "only fetch this year (YYYY)")
	limit := flag.Int("limit", 0, "download at most this many weekly logs per year (0 = all)")
	archiveFlag := flag.Bool("archive", false, "also write a Parquet archive per year and upload it when a bucket is configured")
	flag.Parse()

	application, err := app.New(toolName, app.Options{ConfigFile: *configFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", toolName, err)
		os.Exit(1)
	}

	opts := options{
		servers: application.Paths.SoftwareFile(*servers),
		project: *project,
		year:    *year,
		limit:   *limit,
		archive: *archiveFlag,
	}

	ctx, stop := application.Context()
	err = application.Run(ctx, func(ctx context.Context) error {
		return fetchAll(ctx, application, opts)
	})
	stop()
	application.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", toolName, err)
		os.Exit(1)
	}
}

func fetchAll(ctx context.Context, application *app.Application, opts options) error {
	locations, err := config.LoadServerLocations(opts.servers)
	if err != nil {
		return err
	}

	var uploader archive.Uploader
	if opts.archive && application.Config.Archive.Bucket != "" {
		s3u, err := archive.NewS3Uploader(application.Config.Archive, application.Logger)
		if err != nil {
			return err
		}
		uploader = s3u
	}

	var failed []string
	for _, project := range config.SortedKeys(locations) {
		if opts.project != "" && project != opts.project {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := fetchProject(ctx, application, project, locations[project], opts, uploader); err != nil {
			application.Metrics().AddError(ctx, "project")
			application.Logger.ErrorContext(ctx, "Project failed",
				slog.String("project", project),
				slog.String("error", err.Error()))
			application.Printf("Error fetching %s: %v\n", project, err)
			failed = append(failed, project)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d project(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func fetchProject(ctx context.Context, application *app.Application, project string, loc config.ServerLocation, opts options, uploader archive.Uploader) error {
	logger := infrastructure.WithSite(application.Logger, project)
	ctx, span := application.Telemetry.StartSpan(ctx, "fetch_project", attribute.String("project", project))
	defer span.End()

	application.Printf("Downloading csv links for: %s\n", project)
	client := redlion.NewClient(loc, application.Config.HTTP, logger)

	links, err := client.ListCSVLinks(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}
	byYear := redlion.GroupLinksByYear(links)
	logger.InfoContext(ctx, "Links listed",
		slog.Int("links", len(links)),
		slog.Int("years", len(byYear)))

	failedYears := 0
	for _, year := range config.SortedKeys(byYear) {
		if opts.year != "" && year != opts.year {
			continue
		}
		yearLinks := byYear[year]
		if opts.limit > 0 && len(yearLinks) > opts.limit {
			yearLinks = yearLinks[:opts.limit]
		}

		application.Printf("Downloading csv data for: %s\n", year)
		if err := fetchYear(ctx, application, logger, client, project, year, yearLinks, opts, uploader); err != nil {
			infrastructure.RecordError(ctx, err)
			logger.ErrorContext(ctx, "Year failed",
				slog.String("year", year),
				slog.String("error", err.Error()))
			application.Printf("Error occurred for %s %s: %v\n", project, year, err)
			failedYears++
		}
	}

	if failedYears > 0 {
		return fmt.Errorf("%d year(s) failed", failedYears)
	}
	application.Printf("Finished all years for %s\n", project)
	return nil
}

func fetchYear(ctx context.Context, application *app.Application, logger *slog.Logger, client *redlion.Client,
	project, year string, links []string, opts options, uploader archive.Uploader) error {
	metrics := application.Metrics()

	start := time.Now()
	result, err := client.FetchAll(ctx, links)
	metrics.ObserveStage(ctx, "download", start)
	if err != nil {
		return err
	}
	metrics.AddFiles(ctx, "download", len(result.Frames))
	for link, ferr := range result.Failed {
		metrics.AddError(ctx, "download")
		application.Printf("Downloaded weekly flow log %s returned an error: %v\n", redlion.WeekLabel(link), ferr)
	}

	merged, err := dataprocessing.Concatenate(result.Frames, logger)
	if err != nil {
		return err
	}
	metrics.AddRows(ctx, "merge", merged.Nrow())

	path := application.Paths.MergedLogPath(project, year)
	if err := exporter.WriteMergedCSV(path, merged); err != nil {
		return err
	}
	application.Printf("Successfully concatenated %d logs for %s into %s\n", len(result.Frames), year, path)

	if !opts.archive {
		return nil
	}

	parquetPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".parquet"
	stats, err := archive.WriteParquet(parquetPath, project, merged)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Archive written",
		slog.String("path", parquetPath),
		slog.Int("readings", stats.Readings),
		slog.Int("skipped_rows", stats.SkippedRows))

	if uploader == nil {
		return nil
	}
	key := archive.ObjectKey(application.Config.Archive.Prefix, project, year, filepath.Base(parquetPath))
	_, err = uploader.Upload(ctx, application.Config.Archive.Bucket, key, parquetPath)
	return err
}
