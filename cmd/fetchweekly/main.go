package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/app"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/files"
)

const toolName = "fetchweekly"

func main() {
	configFile := flag.String("config", "", "config file (defaults to config.yaml or AGM_CONFIG_FILE)")
	src := flag.String("src", "", "directory holding the YYMMDD*.CSV logs")
	dst := flag.String("dst", "Weekly Logs", "destination directory")
	start := flag.String("start", "", "start date MM/DD/YYYY (prompted when empty)")
	end := flag.String("end", "", "end date MM/DD/YYYY (prompted when empty)")
	flag.Parse()

	if *src == "" {
		fmt.Fprintln(os.Stderr, "-src is required")
		flag.Usage()
		os.Exit(2)
	}

	application, err := app.New(toolName, app.Options{ConfigFile: *configFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", toolName, err)
		os.Exit(1)
	}

	ctx, stop := application.Context()
	err = application.Run(ctx, func(ctx context.Context) error {
		from, to, err := dateRange(application, *start, *end)
		if err != nil {
			return err
		}
		return fetchWeekly(ctx, application, *src, *dst, from, to)
	})
	stop()
	application.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", toolName, err)
		os.Exit(1)
	}
}

// dateRange uses the flags when both are given, otherwise asks until a valid range is entered
func dateRange(application *app.Application, start, end string) (time.Time, time.Time, error) {
	if start != "" && end != "" {
		return files.ParseDateRange(start, end)
	}

	for {
		s, err := application.Prompter.Ask("Enter the start date (MM/DD/YYYY): ")
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		e, err := application.Prompter.Ask("Enter the end date (MM/DD/YYYY): ")
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from, to, err := files.ParseDateRange(s, e)
		if err != nil {
			application.Printf("%v. Please try again.\n", err)
			continue
		}
		return from, to, nil
	}
}

func fetchWeekly(ctx context.Context, application *app.Application, src, dst string, from, to time.Time) error {
	logger := application.Logger
	if _, err := files.NewValidator(logger).ValidateInputDirectory(src); err != nil {
		return err
	}

	_, span := application.Telemetry.StartSpan(ctx, "find_weekly_logs")
	found, err := files.NewDiscovery("").FindWeeklyLogs(src, from, to)
	span.End()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Weekly logs found",
		slog.String("source", src),
		slog.String("start", from.Format(files.InputDateLayout)),
		slog.String("end", to.Format(files.InputDateLayout)),
		slog.Int("count", len(found)))

	copied, err := files.NewManager(logger).CopyFiles(found, dst)
	application.Metrics().AddFiles(ctx, "copy", copied)
	if err != nil {
		return err
	}

	abs, absErr := filepath.Abs(dst)
	if absErr != nil {
		abs = dst
	}
	application.Printf("Copied %d files to %s\n", copied, abs)
	return nil
}
