package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	t.Run("derived from operations root", func(t *testing.T) {
		root := t.TempDir()
		paths, err := GetPaths(PathsConfig{OperationsRoot: root})
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(root, "gaslogs"), paths.GaslogsDir)
		assert.Equal(t, filepath.Join(root, "Gaslogs_new"), paths.GaslogsNewDir)
		assert.Equal(t, filepath.Join(root, "Software", "Github", "Ag-Methane-Programs", "Biogas Logs QA"), paths.SoftwareDir)
		assert.Equal(t, "logs", paths.LogsDir)
	})

	t.Run("explicit directories win", func(t *testing.T) {
		paths, err := GetPaths(PathsConfig{OperationsRoot: "/ops", GaslogsDir: "/elsewhere/gaslogs", LogsDir: "/var/log/agm"})
		require.NoError(t, err)
		assert.Equal(t, "/elsewhere/gaslogs", paths.GaslogsDir)
		assert.Equal(t, filepath.Join("/ops", "Gaslogs_new"), paths.GaslogsNewDir)
		assert.Equal(t, "/var/log/agm/fetch.log", paths.GetLogPath("fetch.log"))
	})

	t.Run("default root under home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		paths, err := GetPaths(PathsConfig{})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, DefaultSyncFolder, "_operations"), paths.OperationsRoot)
	})
}

func TestPaths_Layout(t *testing.T) {
	root := t.TempDir()
	paths, err := GetPaths(PathsConfig{OperationsRoot: root, LogsDir: filepath.Join(root, "logs")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "Gaslogs_new", "Hanford", "Hanford_2023_merged.CSV"), paths.MergedLogPath("Hanford", "2023"))
	assert.Equal(t, filepath.Join(root, "gaslogs", "gallo_weekly"), paths.FarmWeeklyDir("gallo"))

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.GaslogsNewDir)
	assert.DirExists(t, paths.LogsDir)
	assert.NoDirExists(t, paths.GaslogsDir)
}

func TestPaths_SoftwareFile(t *testing.T) {
	root := t.TempDir()
	paths, err := GetPaths(PathsConfig{OperationsRoot: root})
	require.NoError(t, err)

	assert.Equal(t, "/abs/servers.yml", paths.SoftwareFile("/abs/servers.yml"))
	assert.Equal(t, filepath.Join(paths.SoftwareDir, "definitely-not-here.yml"), paths.SoftwareFile("definitely-not-here.yml"))

	wd, err := os.Getwd()
	require.NoError(t, err)
	local := filepath.Join(t.TempDir(), "local.yml")
	require.NoError(t, os.WriteFile(local, nil, 0644))
	require.NoError(t, os.Chdir(filepath.Dir(local)))
	defer os.Chdir(wd)
	assert.Equal(t, "local.yml", paths.SoftwareFile("local.yml"))
}

func TestPaths_FarmFiles(t *testing.T) {
	root := t.TempDir()
	paths, err := GetPaths(PathsConfig{OperationsRoot: root})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "gaslogs", "gallo_weekly", "gallo_weekly_2022_merged_culled.CSV"),
		paths.FarmMergedLogPath("gallo", "2022", true))
	assert.Equal(t, filepath.Join(root, "gaslogs", "Hanford_weekly", "Hanford_weekly_2022_merged.CSV"),
		paths.FarmMergedLogPath("Hanford", "2022", false))

	assert.Equal(t, filepath.Join(root, "gaslogs", "Farm_Names.txt"), paths.GaslogsFile("Farm_Names.txt"))
	assert.Equal(t, "/etc/farms.txt", paths.GaslogsFile("/etc/farms.txt"))
}
