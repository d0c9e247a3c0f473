package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/app"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/config"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/dataprocessing"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/infrastructure"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/redlion/redliontest"
)

func newTestApp(t *testing.T) (*app.Application, *bytes.Buffer) {
	t.Helper()
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	dir := t.TempDir()
	content := fmt.Sprintf(`logging:
  level: error
  output: console
telemetry:
  tracing: none
paths:
  operations_root: %q
  logs_dir: %q
`, dir, filepath.Join(dir, "logs"))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

	var out bytes.Buffer
	application, err := app.New(toolName, app.Options{ConfigFile: cfgPath, Out: &out})
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })

	application.Config.HTTP = config.HTTPConfig{
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             10,
		Concurrency:       2,
	}
	return application, &out
}

func weekCSV(day string) []byte {
	return []byte("Date,Time,Engine Gas Total\n" +
		day + ",00:15:00,1010\n" +
		day + ",00:00:00,1000\n")
}

// writeServers lists Hanford against station and Gallo with a password the
// station refuses
func writeServers(t *testing.T, station *redliontest.Station) string {
	t.Helper()
	good := station.Location(false)
	content := fmt.Sprintf(`Hanford:
  url: %s
  username: %s
  password: %s
  secondary: 0
Gallo:
  url: %s
  username: %s
  password: wrong
`, good.URL, good.Username, good.Password, good.URL, good.Username)

	path := filepath.Join(t.TempDir(), "Redlion_server_locations.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testStation(t *testing.T) *redliontest.Station {
	t.Helper()
	station := redliontest.NewStation("admin", "secret", map[string][]byte{
		"22123100.CSV": weekCSV("12/31/2022"),
		"23101900.CSV": weekCSV("10/19/2023"),
		"23102600.CSV": weekCSV("10/26/2023"),
	})
	t.Cleanup(station.Close)
	return station
}

func mergedRows(t *testing.T, path string) int {
	t.Helper()
	df, err := dataprocessing.ReadCSVFile(path, dataprocessing.ReadOptions{})
	require.NoError(t, err)
	return df.Nrow()
}

func TestFetchAll_FailedProjectDoesNotStopRun(t *testing.T) {
	application, out := newTestApp(t)
	station := testStation(t)

	err := fetchAll(context.Background(), application, options{servers: writeServers(t, station)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 project(s) failed: Gallo")
	assert.NotContains(t, err.Error(), "Hanford")

	assert.Equal(t, 2, mergedRows(t, application.Paths.MergedLogPath("Hanford", "2022")))
	assert.Equal(t, 4, mergedRows(t, application.Paths.MergedLogPath("Hanford", "2023")))
	assert.NoFileExists(t, application.Paths.MergedLogPath("Gallo", "2023"))

	assert.Contains(t, out.String(), "Error fetching Gallo")
	assert.Contains(t, out.String(), "Finished all years for Hanford")
}

func TestFetchAll_Filters(t *testing.T) {
	tests := []struct {
		name      string
		opts      options
		wantRows  map[string]int
		wantNoLog []string
	}{
		{
			name:      "year only",
			opts:      options{project: "Hanford", year: "2023"},
			wantRows:  map[string]int{"2023": 4},
			wantNoLog: []string{"2022"},
		},
		{
			name:      "limit per year",
			opts:      options{project: "Hanford", limit: 1},
			wantRows:  map[string]int{"2022": 2, "2023": 2},
			wantNoLog: nil,
		},
		{
			name:      "year with no logs",
			opts:      options{project: "Hanford", year: "2019"},
			wantRows:  map[string]int{},
			wantNoLog: []string{"2019", "2022", "2023"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			application, _ := newTestApp(t)
			station := testStation(t)

			opts := tt.opts
			opts.servers = writeServers(t, station)
			require.NoError(t, fetchAll(context.Background(), application, opts))

			for year, rows := range tt.wantRows {
				assert.Equal(t, rows, mergedRows(t, application.Paths.MergedLogPath("Hanford", year)), year)
			}
			for _, year := range tt.wantNoLog {
				assert.NoFileExists(t, application.Paths.MergedLogPath("Hanford", year))
			}
		})
	}
}

func TestFetchAll_LimitKeepsEarliestWeek(t *testing.T) {
	application, _ := newTestApp(t)
	station := testStation(t)

	opts := options{servers: writeServers(t, station), project: "Hanford", year: "2023", limit: 1}
	require.NoError(t, fetchAll(context.Background(), application, opts))

	data, err := os.ReadFile(application.Paths.MergedLogPath("Hanford", "2023"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "10/19/2023")
	assert.NotContains(t, string(data), "10/26/2023")
}

func TestFetchAll_MergedPathLayout(t *testing.T) {
	application, _ := newTestApp(t)
	station := testStation(t)

	opts := options{servers: writeServers(t, station), project: "Hanford", year: "2022"}
	require.NoError(t, fetchAll(context.Background(), application, opts))

	want := filepath.Join(application.Paths.GaslogsNewDir, "Hanford", "Hanford_2022_merged.CSV")
	assert.FileExists(t, want)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Date,Time,Engine Gas Total\n"), string(data))
}

func TestFetchAll_MissingServersFile(t *testing.T) {
	application, _ := newTestApp(t)

	err := fetchAll(context.Background(), application, options{servers: filepath.Join(t.TempDir(), "missing.yml")})
	assert.Error(t, err)
}
