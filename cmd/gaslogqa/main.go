package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/app"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/config"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/dataprocessing"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/exporter"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/files"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/infrastructure"
)

const toolName = "gaslogqa"

func main() {
	configFile := flag.String("config", "", "config file (defaults to config.yaml or AGM_CONFIG_FILE)")
	year := flag.String("year", strconv.Itoa(time.Now().Year()), "year of the merged logs to QA")
	all := flag.Bool("all", false, "QA every farm without asking")
	farmsFlag := flag.String("farms", "", "comma separated farms to QA without asking")
	flag.Parse()

	application, err := app.New(toolName, app.Options{ConfigFile: *configFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", toolName, err)
		os.Exit(1)
	}

	ctx, stop := application.Context()
	err = application.Run(ctx, func(ctx context.Context) error {
		farms, err := chooseFarms(application, *all, *farmsFlag)
		if err != nil {
			return err
		}
		return fillAll(ctx, application, farms, *year)
	})
	stop()
	application.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", toolName, err)
		os.Exit(1)
	}
	fmt.Println("Finished")
}

func chooseFarms(application *app.Application, all bool, list string) ([]string, error) {
	if list != "" {
		var farms []string
		for _, f := range strings.Split(list, ",") {
			if f = strings.TrimSpace(f); f != "" {
				farms = append(farms, f)
			}
		}
		return farms, nil
	}

	farms, err := config.LoadFarmNames(application.Paths.GaslogsFile(application.Config.QA.FarmNamesFile))
	if err != nil {
		return nil, err
	}
	if all {
		return farms, nil
	}

	answer, err := application.Prompter.Ask("Do you want to QA all farms? (Y/N) ")
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(answer, "y") {
		application.Printf("Running QA for all farms\n\n")
		return farms, nil
	}

	for i, f := range farms {
		application.Printf("%d %s\n", i, f)
	}
	selection, err := application.Prompter.AskUntil(
		"Select a farm(s) from the above list using the corresponding number(s): ",
		func(s string) error {
			_, err := config.SelectFarms(farms, s)
			return err
		})
	if err != nil {
		return nil, err
	}
	return config.SelectFarms(farms, selection)
}

func fillAll(ctx context.Context, application *app.Application, farms []string, year string) error {
	var failed []string
	for _, farm := range farms {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fillFarm(ctx, application, farm, year); err != nil {
			application.Metrics().AddError(ctx, "qa")
			application.Logger.ErrorContext(ctx, "Quick QA failed",
				slog.String("farm", farm),
				slog.String("error", err.Error()))
			application.Printf("Failed to build quick QA for %s: %v\n", farm, err)
			failed = append(failed, farm)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d farm(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func fillFarm(ctx context.Context, application *app.Application, farm, year string) error {
	logger := infrastructure.WithSite(application.Logger, farm)
	ctx, span := application.Telemetry.StartSpan(ctx, "quick_qa", attribute.String("farm", farm))
	defer span.End()

	qa := application.Config.QA
	logPath := application.Paths.FarmMergedLogPath(farm, year, qa.IsCulled(farm))
	application.Printf("Loading %s logs...\n", farm)

	df, err := dataprocessing.ReadCSVFile(logPath, dataprocessing.ReadOptions{})
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}
	application.Metrics().AddRows(ctx, "qa", df.Nrow())

	dir := application.Paths.FarmWeeklyDir(farm)
	tmplName, filledName := exporter.QuickQAFileNames(farm)
	template := filepath.Join(dir, tmplName)
	if !files.NewManager(logger).FileExists(template) {
		logger.WarnContext(ctx, "Quick QA template not found, starting from a blank workbook",
			slog.String("template", template))
	}

	output := filepath.Join(dir, filledName)
	if err := exporter.FillQuickQA(template, output, df, qa.DateColumn); err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}
	application.Metrics().AddFiles(ctx, "qa", 1)

	logger.InfoContext(ctx, "Quick QA written",
		slog.String("log", logPath),
		slog.String("output", output),
		slog.Int("rows", df.Nrow()))
	application.Printf("Saved %s\n", output)
	return nil
}
