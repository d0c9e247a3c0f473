package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/infrastructure"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	metrics := filepath.Join(dir, "metrics", "tool.prom")
	content := fmt.Sprintf(`logging:
  level: debug
  output: console
telemetry:
  tracing: none
  metrics_file: %q
paths:
  operations_root: %q
  logs_dir: %q
`, metrics, dir, filepath.Join(dir, "logs"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path, dir
}

func TestNew(t *testing.T) {
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	cfgPath, dir := writeConfig(t)
	var out bytes.Buffer

	application, err := New("fetchweekly", Options{ConfigFile: cfgPath, In: strings.NewReader(""), Out: &out})
	require.NoError(t, err)

	assert.Equal(t, "fetchweekly", application.Tool)
	assert.NotEmpty(t, application.RunID)
	assert.Equal(t, filepath.Join(dir, "gaslogs"), application.Paths.GaslogsDir)
	assert.DirExists(t, filepath.Join(dir, "Gaslogs_new"))
	assert.DirExists(t, filepath.Join(dir, "logs"))

	ctx, stop := application.Context()
	defer stop()
	assert.Equal(t, application.RunID, infrastructure.GetTraceID(ctx))

	err = application.Run(ctx, func(ctx context.Context) error {
		application.Metrics().AddFiles(ctx, "copy", 3)
		application.Printf("Copied %d files\n", 3)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Copied 3 files\n", out.String())

	require.NoError(t, application.Close())
	data, err := os.ReadFile(filepath.Join(dir, "metrics", "tool.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "agm_files_processed")
}

func TestRun_ReturnsError(t *testing.T) {
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	cfgPath, _ := writeConfig(t)
	application, err := New("gaslogqa", Options{ConfigFile: cfgPath, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	defer application.Close()

	boom := errors.New("boom")
	err = application.Run(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestNew_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0644))

	_, err := New("fetchweekly", Options{ConfigFile: path})
	assert.Error(t, err)
}

func TestNew_LogFileInLogsDir(t *testing.T) {
	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	dir := t.TempDir()
	logsDir := filepath.Join(dir, "logs")
	absLog := filepath.Join(dir, "elsewhere", "abs.log")

	tests := []struct {
		name     string
		filePath string
		want     string
	}{
		{name: "relative goes to logs dir", filePath: "logs/fetch.log", want: filepath.Join(logsDir, "fetch.log")},
		{name: "bare name", filePath: "qa.log", want: filepath.Join(logsDir, "qa.log")},
		{name: "absolute kept", filePath: absLog, want: absLog},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			infrastructure.ResetLoggerForTesting()

			content := fmt.Sprintf(`logging:
  level: info
  output: file
  file_path: %q
telemetry:
  tracing: none
paths:
  operations_root: %q
  logs_dir: %q
`, tt.filePath, dir, logsDir)
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

			application, err := New("fetchgaslogs", Options{ConfigFile: cfgPath, Out: &bytes.Buffer{}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, application.Config.Logging.FilePath)
			require.NoError(t, application.Close())
			infrastructure.ResetLoggerForTesting()

			data, err := os.ReadFile(tt.want)
			require.NoError(t, err)
			assert.Contains(t, string(data), "Tool starting")
		})
	}
}
