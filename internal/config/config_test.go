package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv points .env lookups at a missing file so a developer's .env cannot leak in
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AGM_ENV_FILE", filepath.Join(dir, "missing.env"))
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8086", cfg.Influx.URL)
	assert.Equal(t, "Ag Methane", cfg.Influx.Org)
	assert.Equal(t, uint(500), cfg.Influx.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.Influx.FlushInterval)
	assert.Equal(t, 5*time.Second, cfg.Influx.RetryInterval)
	assert.Equal(t, uint(5), cfg.Influx.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Influx.MaxRetryInterval)
	assert.Equal(t, uint(2), cfg.Influx.ExponentialBase)
	assert.Equal(t, 2*time.Second, cfg.Influx.JitterInterval)
	assert.Empty(t, cfg.Influx.Bucket)

	require.Len(t, cfg.Devices.Profiles, 3)
	assert.Equal(t, "Engine", cfg.Devices.Profiles[0].Name)
	assert.Equal(t, "Flare", cfg.Devices.Profiles[1].Name)
	assert.Equal(t, "Boiler", cfg.Devices.Profiles[2].Name)
	assert.Equal(t, "Engine 2 KWH Output", cfg.Devices.Renames["Hanford"]["KWH Output.1"])
}

func TestDeviceProfile_AppliesTo(t *testing.T) {
	engine := DeviceProfile{Name: "Engine", Keywords: []string{"Engine"}}
	boiler := DeviceProfile{Name: "Boiler", Keywords: []string{"Boiler"}, Sites: []string{"Four Hills"}}

	assert.True(t, engine.AppliesTo("Hanford"))
	assert.True(t, boiler.AppliesTo("Four Hills"))
	assert.False(t, boiler.AppliesTo("Hanford"))
}

func TestLoadFile(t *testing.T) {
	dir := isolateEnv(t)

	tests := []struct {
		name        string
		yaml        string
		env         map[string]string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "file overrides defaults",
			yaml: `
logging:
  level: debug
  output: both
influx:
  bucket: Gas Flow Data
  batch_size: 100
paths:
  operations_root: /srv/ops
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "both", cfg.Logging.Output)
				assert.Equal(t, "Gas Flow Data", cfg.Influx.Bucket)
				assert.Equal(t, uint(100), cfg.Influx.BatchSize)
				assert.Equal(t, "/srv/ops", cfg.Paths.OperationsRoot)
				// untouched defaults survive
				assert.Equal(t, "Ag Methane", cfg.Influx.Org)
				assert.Len(t, cfg.Devices.Profiles, 3)
			},
		},
		{
			name: "environment wins over file",
			yaml: `
influx:
  bucket: From File
`,
			env: map[string]string{
				"AGM_INFLUX_BUCKET":         "From Env",
				"AGM_INFLUX_TOKEN":          "secret-token",
				"AGM_HTTP_TIMEOUT":          "5s",
				"AGM_QA_CULLED_FARMS":       "gallo,fourhills",
				"AGM_TELEMETRY_METRICS_FILE": "/tmp/agm.prom",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "From Env", cfg.Influx.Bucket)
				assert.Equal(t, "secret-token", cfg.Influx.Token)
				assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
				assert.Equal(t, []string{"gallo", "fourhills"}, cfg.QA.CulledFarms)
				assert.Equal(t, "/tmp/agm.prom", cfg.Telemetry.MetricsFile)
			},
		},
		{
			name: "device profiles replaced from file",
			yaml: `
devices:
  totalizer_suffix: _delta
  profiles:
    - name: Digester
      keywords: [Timestamp, Tag, Digester]
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				require.Len(t, cfg.Devices.Profiles, 1)
				assert.Equal(t, "Digester", cfg.Devices.Profiles[0].Name)
				assert.Equal(t, "_delta", cfg.Devices.TotalizerSuffix)
			},
		},
		{
			name:    "invalid log level",
			yaml:    "logging:\n  level: verbose\n",
			wantErr: true,
		},
		{
			name:    "invalid influx url",
			yaml:    "influx:\n  url: not a url\n",
			wantErr: true,
		},
		{
			name:    "file tracing without trace file",
			yaml:    "telemetry:\n  tracing: file\n",
			wantErr: true,
		},
		{
			name:    "device profile without keywords",
			yaml:    "devices:\n  profiles:\n    - name: Engine\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "influx: [",
			wantErr: true,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(dir, "config"+string(rune('a'+i))+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))

			cfg, err := LoadFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_UsesConfigFileEnv(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "agm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("influx:\n  org: Test Org\n"), 0644))
	t.Setenv("AGM_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Test Org", cfg.Influx.Org)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("AGM_INFLUX_TOKEN=from-dotenv\n"), 0600))
	t.Setenv("AGM_ENV_FILE", envFile)
	t.Setenv("AGM_CONFIG_FILE", filepath.Join(dir, "missing.yaml"))

	// t.Setenv restores the original value on cleanup; unset so .env can supply it
	t.Setenv("AGM_INFLUX_TOKEN", "")
	require.NoError(t, os.Unsetenv("AGM_INFLUX_TOKEN"))

	// missing config file named explicitly is an error
	_, err := Load()
	require.Error(t, err)

	t.Setenv("AGM_CONFIG_FILE", "")
	require.NoError(t, os.Unsetenv("AGM_CONFIG_FILE"))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Influx.Token)
}
