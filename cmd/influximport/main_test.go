package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/app"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/infrastructure"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/influx"
)

const mergedLog = "Date,Time,Engine Gas Total,Flare Flow\n" +
	"10/19/2023,00:00:00,1000,12\n" +
	"10/19/2023,00:15:00,1010,N/A\n"

// write records what reached /api/v2/write
type write struct {
	bucket string
	body   string
}

type fakeInflux struct {
	*httptest.Server

	mu     sync.Mutex
	writes []write
	// rejectMeasurement answers 400 to batches for this measurement
	rejectMeasurement string
}

func newFakeInflux(t *testing.T, rejectMeasurement string) *fakeInflux {
	t.Helper()
	f := &fakeInflux{rejectMeasurement: rejectMeasurement}
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v2/write", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.writes = append(f.writes, write{bucket: r.URL.Query().Get("bucket"), body: string(body)})
		f.mu.Unlock()

		if f.rejectMeasurement != "" && strings.HasPrefix(string(body), f.rejectMeasurement+",") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"code":"invalid","message":"field type conflict"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// measurements returns bucket -> measurements written to it
func (f *fakeInflux) measurements() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	got := make(map[string][]string)
	for _, w := range f.writes {
		for _, line := range strings.Split(strings.TrimSpace(w.body), "\n") {
			m, _, _ := strings.Cut(line, ",")
			if !contains(got[w.bucket], m) {
				got[w.bucket] = append(got[w.bucket], m)
			}
		}
	}
	return got
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func newTestApp(t *testing.T, influxURL string) (*app.Application, *bytes.Buffer) {
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

	application.Config.Influx.URL = influxURL
	application.Config.Influx.Token = "test-token"
	application.Config.Influx.MaxRetries = 0
	application.Config.Influx.JitterInterval = 0
	return application, &out
}

func writeLog(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(mergedLog), 0644))
	return path
}

// writeLocations lists each site's merged log as [directory, filename]
func writeLocations(t *testing.T, sites map[string]string) string {
	t.Helper()
	var b strings.Builder
	for site, path := range sites {
		fmt.Fprintf(&b, "%s: [%q, %q]\n", site, filepath.Dir(path), filepath.Base(path))
	}
	path := filepath.Join(t.TempDir(), "Gaslog_file_locations_24.yml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func TestImportSite_BucketPerSite(t *testing.T) {
	srv := newFakeInflux(t, "")
	application, out := newTestApp(t, srv.URL)
	dir := t.TempDir()

	opts := options{
		locations: writeLocations(t, map[string]string{
			"Hanford": writeLog(t, dir, "hanford.CSV"),
			"Gallo":   writeLog(t, dir, "gallo.CSV"),
		}),
		loc: time.UTC,
	}
	require.NoError(t, importAll(context.Background(), application, opts))

	got := srv.measurements()
	assert.ElementsMatch(t, []string{"Engine", "Flare"}, got["Hanford"])
	assert.ElementsMatch(t, []string{"Engine", "Flare"}, got["Gallo"])
	assert.Len(t, got, 2)
	assert.Contains(t, out.String(), "Successfully uploaded Engine logs for Hanford (2 points, 0 skipped)")
	assert.Contains(t, out.String(), "Successfully uploaded Flare logs for Gallo (1 points, 1 skipped)")
	assert.Contains(t, out.String(), "Finished uploading data")
}

func TestImportSite_ConfiguredBucket(t *testing.T) {
	srv := newFakeInflux(t, "")
	application, _ := newTestApp(t, srv.URL)
	application.Config.Influx.Bucket = "gaslogs"

	writer := influx.NewWriter(application.Config.Influx, time.UTC, application.Logger)
	failed := importSite(context.Background(), application, writer, "Hanford", writeLog(t, t.TempDir(), "hanford.CSV"), options{loc: time.UTC})
	assert.Empty(t, failed)

	got := srv.measurements()
	assert.Len(t, got, 1)
	assert.ElementsMatch(t, []string{"Engine", "Flare"}, got["gaslogs"])
}

func TestImportSite_DeviceFailureReported(t *testing.T) {
	srv := newFakeInflux(t, "Flare")
	application, out := newTestApp(t, srv.URL)

	writer := influx.NewWriter(application.Config.Influx, time.UTC, application.Logger)
	failed := importSite(context.Background(), application, writer, "Hanford", writeLog(t, t.TempDir(), "hanford.CSV"), options{loc: time.UTC})

	assert.Equal(t, []string{"Hanford/Flare"}, failed)
	assert.Contains(t, out.String(), "Failed to upload Flare logs for Hanford")
	assert.Contains(t, out.String(), "Successfully uploaded Engine logs for Hanford")
}

func TestImportSite_UnreadableLog(t *testing.T) {
	srv := newFakeInflux(t, "")
	application, _ := newTestApp(t, srv.URL)

	writer := influx.NewWriter(application.Config.Influx, time.UTC, application.Logger)
	failed := importSite(context.Background(), application, writer, "Hanford", filepath.Join(t.TempDir(), "missing.CSV"), options{loc: time.UTC})

	assert.Equal(t, []string{"Hanford"}, failed)
	assert.Empty(t, srv.measurements())
}

func TestImportAll_FailuresReturnError(t *testing.T) {
	srv := newFakeInflux(t, "Engine")
	application, _ := newTestApp(t, srv.URL)
	dir := t.TempDir()

	opts := options{
		locations: writeLocations(t, map[string]string{
			"Hanford": writeLog(t, dir, "hanford.CSV"),
			"Gallo":   filepath.Join(dir, "missing.CSV"),
		}),
		loc: time.UTC,
	}
	err := importAll(context.Background(), application, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 upload(s) failed")
	assert.Contains(t, err.Error(), "Gallo")
	assert.Contains(t, err.Error(), "Hanford/Engine")

	// Hanford's flare table still went out after its engine table failed
	assert.Contains(t, srv.measurements()["Hanford"], "Flare")
}

func TestImportAll_SiteFilter(t *testing.T) {
	srv := newFakeInflux(t, "")
	application, _ := newTestApp(t, srv.URL)
	dir := t.TempDir()

	opts := options{
		locations: writeLocations(t, map[string]string{
			"Hanford": writeLog(t, dir, "hanford.CSV"),
			"Gallo":   writeLog(t, dir, "gallo.CSV"),
		}),
		site: "Gallo",
		loc:  time.UTC,
	}
	require.NoError(t, importAll(context.Background(), application, opts))

	got := srv.measurements()
	assert.Len(t, got, 1)
	assert.Contains(t, got, "Gallo")
}

func TestImportAll_DryRunWritesNothing(t *testing.T) {
	srv := newFakeInflux(t, "")
	url := srv.URL
	srv.Close()

	// an unreachable server is fine: dry runs never ping or write
	application, out := newTestApp(t, url)
	opts := options{
		locations: writeLocations(t, map[string]string{"Hanford": writeLog(t, t.TempDir(), "hanford.CSV")}),
		dryRun:    true,
		loc:       time.UTC,
	}
	require.NoError(t, importAll(context.Background(), application, opts))

	assert.Contains(t, out.String(), "Hanford Engine -> bucket Hanford")
	assert.Contains(t, out.String(), "Hanford Flare -> bucket Hanford")
	assert.Contains(t, out.String(), "2 points would be written (0 rows skipped)")
	assert.Contains(t, out.String(), "1 points would be written (1 rows skipped)")
	assert.NotContains(t, out.String(), "Uploading")
}

func TestImportAll_PingFails(t *testing.T) {
	srv := newFakeInflux(t, "")
	url := srv.URL
	srv.Close()

	application, _ := newTestApp(t, url)
	opts := options{
		locations: writeLocations(t, map[string]string{"Hanford": writeLog(t, t.TempDir(), "hanford.CSV")}),
		loc:       time.UTC,
	}
	assert.Error(t, importAll(context.Background(), application, opts))
}
