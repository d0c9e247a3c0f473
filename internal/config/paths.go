package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultSyncFolder is the synced folder that holds the operations tree on the operator machines
const DefaultSyncFolder = "Patrick J Wood Dropbox"

// Paths contains the resolved directories the tools read from and write to.
// This is the single source of truth for file locations; nothing changes the working directory.
type Paths struct {
	OperationsRoot string
	GaslogsDir     string
	GaslogsNewDir  string
	SoftwareDir    string
	LogsDir        string
}

// GetPaths resolves the configured paths, deriving unset ones from the operations root
func GetPaths(cfg PathsConfig) (*Paths, error) {
	root := cfg.OperationsRoot
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		root = filepath.Join(home, DefaultSyncFolder, "_operations")
	}

	p := &Paths{
		OperationsRoot: root,
		GaslogsDir:     orDefault(cfg.GaslogsDir, filepath.Join(root, "gaslogs")),
		GaslogsNewDir:  orDefault(cfg.GaslogsNewDir, filepath.Join(root, "Gaslogs_new")),
		SoftwareDir:    orDefault(cfg.SoftwareDir, filepath.Join(root, "Software", "Github", "Ag-Methane-Programs", "Biogas Logs QA")),
		LogsDir:        orDefault(cfg.LogsDir, "logs"),
	}
	return p, nil
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// EnsureDirectories creates the output directories if they don't exist.
// Input directories (gaslogs, software) are never created.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.GaslogsNewDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ProjectDir returns the directory merged yearly logs for a project are written to
func (p *Paths) ProjectDir(project string) string {
	return filepath.Join(p.GaslogsNewDir, project)
}

// MergedLogPath returns <GaslogsNew>/<project>/<project>_<year>_merged.CSV
func (p *Paths) MergedLogPath(project, year string) string {
	return filepath.Join(p.ProjectDir(project), fmt.Sprintf("%s_%s_merged.CSV", project, year))
}

// FarmWeeklyDir returns <gaslogs>/<farm>_weekly
func (p *Paths) FarmWeeklyDir(farm string) string {
	return filepath.Join(p.GaslogsDir, farm+"_weekly")
}

// SoftwareFile resolves a config file that lives next to the tools in the software folder.
// Absolute paths and paths that exist relative to the working directory are returned unchanged.
func (p *Paths) SoftwareFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return filepath.Join(p.SoftwareDir, name)
}

// GetLogPath returns the full path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs all resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("Path resolution",
		slog.String("operations_root", p.OperationsRoot),
		slog.String("gaslogs_dir", p.GaslogsDir),
		slog.String("gaslogs_new_dir", p.GaslogsNewDir),
		slog.String("software_dir", p.SoftwareDir),
		slog.String("logs_dir", p.LogsDir))
}

// FarmMergedLogPath returns <gaslogs>/<farm>_weekly/<farm>_weekly_<year>_merged.CSV,
// with _culled before the extension for farms whose logs are culled before QA
func (p *Paths) FarmMergedLogPath(farm, year string, culled bool) string {
	name := fmt.Sprintf("%s_weekly_%s_merged", farm, year)
	if culled {
		name += "_culled"
	}
	return filepath.Join(p.FarmWeeklyDir(farm), name+".CSV")
}

// GaslogsFile resolves a file kept in the gaslogs folder. Absolute paths are returned unchanged.
func (p *Paths) GaslogsFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.GaslogsDir, name)
}
