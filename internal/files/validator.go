package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

// Validator checks tool inputs before any work starts
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a new input validator
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// ValidateInputDirectory checks that dir exists and is a directory, and returns
// how many weekly logs it holds. An empty directory is not an error.
func (v *Validator) ValidateInputDirectory(dir string) (int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return 0, apperrors.NewNotFoundError("input directory " + dir)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s is not a directory", dir))
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*"+weeklyLogExt))
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(matches) == 0 {
		v.logger.Warn("No weekly logs in input directory", slog.String("directory", dir))
	}
	return len(matches), nil
}

// ValidateFile checks that path is an existing, non-empty regular file
func (v *Validator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return apperrors.NewNotFoundError("file " + path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return apperrors.NewValidationError(fmt.Sprintf("%s is a directory", path))
	}
	if info.Size() == 0 {
		return apperrors.NewValidationError(fmt.Sprintf("%s is empty", path))
	}
	return nil
}

// ValidateWorkbook checks that path is an .xlsx file that exists
func (v *Validator) ValidateWorkbook(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return apperrors.NewValidationError(fmt.Sprintf("%s is not an .xlsx workbook", path))
	}
	return v.ValidateFile(path)
}
