package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/app"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/exporter"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/files"
)

const toolName = "splitmonthly"

func main() {
	configFile := flag.String("config", "", "config file (defaults to config.yaml or AGM_CONFIG_FILE)")
	input := flag.String("in", "", "workbook to split")
	outDir := flag.String("out", ".", "directory for the monthly workbooks")
	column := flag.String("column", "elec_intvl_end_dttm", "datetime column to split on")
	layout := flag.String("layout", "01/02/2006 15:04:05", "Go time layout of the datetime column")
	prefix := flag.String("prefix", exporter.DefaultMonthlyPrefix, "file name prefix")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "-in is required")
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
		if err := files.NewValidator(application.Logger).ValidateWorkbook(*input); err != nil {
			return err
		}
		application.Printf("Read in file: %s\n", *input)
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			return err
		}

		start := time.Now()
		written, err := exporter.SplitByMonth(*input, *outDir, *column, *layout, *prefix)
		application.Metrics().ObserveStage(ctx, "split", start)
		application.Metrics().AddFiles(ctx, "split", len(written))
		for _, path := range written {
			application.Printf("Successfully exported: %s\n", path)
		}
		return err
	})
	stop()
	application.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", toolName, err)
		os.Exit(1)
	}
	fmt.Println("Finished")
}
