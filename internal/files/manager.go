package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Manager copies log files between folders
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDirectory creates a directory with all parent directories
func (m *Manager) EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// CopyFile copies a file from source to destination, overwriting dst
func (m *Manager) CopyFile(src, dst string) error {
	if err := m.EnsureDirectory(filepath.Dir(dst)); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}

	return dstFile.Sync()
}

// CopyFiles copies each file into destDir and returns how many were copied.
// It stops at the first failure.
func (m *Manager) CopyFiles(files []FileInfo, destDir string) (int, error) {
	if err := m.EnsureDirectory(destDir); err != nil {
		return 0, err
	}

	copied := 0
	for _, f := range files {
		dst := filepath.Join(destDir, f.Name)
		if err := m.CopyFile(f.Path, dst); err != nil {
			return copied, fmt.Errorf("copy %s: %w", f.Name, err)
		}
		m.logger.Debug("Copied file",
			slog.String("src", f.Path),
			slog.String("dst", dst))
		copied++
	}

	m.logger.Info("Copied weekly logs",
		slog.Int("count", copied),
		slog.String("dest", destDir))
	return copied, nil
}
