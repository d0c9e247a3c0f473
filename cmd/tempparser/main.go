package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/app"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/exporter"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/files"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/pdfreport"
)

const toolName = "tempparser"

func main() {
	configFile := flag.String("config", "", "config file (defaults to config.yaml or AGM_CONFIG_FILE)")
	pdfPath := flag.String("pdf", "", "NOAA GSOM PDF report")
	csvOut := flag.String("csv", "", "also write the table to this CSV file")
	appendRows := flag.Bool("append", false, "add rows to an existing -csv file instead of replacing it")
	flag.Parse()

	if *pdfPath == "" {
		fmt.Fprintln(os.Stderr, "-pdf is required")
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
		return parse(ctx, application, *pdfPath, *csvOut, *appendRows)
	})
	stop()
	application.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", toolName, err)
		os.Exit(1)
	}
}

func parse(ctx context.Context, application *app.Application, pdfPath, csvOut string, appendRows bool) error {
	if err := files.NewValidator(application.Logger).ValidateFile(pdfPath); err != nil {
		return err
	}

	text, err := pdfreport.ExtractText(pdfPath)
	if err != nil {
		return err
	}

	year, err := pdfreport.ParseYear(text)
	if err != nil {
		return err
	}

	means, err := pdfreport.ParseMonthlyMeans(text, year)
	if err != nil {
		return err
	}
	application.Metrics().AddRows(ctx, "parse", len(means))
	application.Logger.InfoContext(ctx, "Temperature table parsed",
		slog.String("pdf", pdfPath),
		slog.Int("year", year),
		slog.Int("months", len(means)))

	application.Printf("%s", pdfreport.Format(year, means))

	if csvOut == "" {
		return nil
	}
	return writeMeans(application.Logger, csvOut, means, appendRows)
}

// writeMeans writes the monthly table. With appendRows an existing file keeps
// its header and gains the new months, which builds a multi-year table.
func writeMeans(logger *slog.Logger, path string, means []pdfreport.MonthlyMean, appendRows bool) error {
	records := make([][]string, len(means))
	for i, m := range means {
		records[i] = []string{m.Month.Format("2006-01-02"), fmt.Sprintf("%g", m.Mean)}
	}

	w := exporter.NewCSVWriter(logger)
	if appendRows && files.NewManager(logger).FileExists(path) {
		return w.AppendToCSV(path, records)
	}
	return w.WriteSimpleCSV(path, []string{"month", "mean"}, records)
}
