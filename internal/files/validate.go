package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ValidateOutputDirectory ensures dir exists, creating it if needed, and is
// writable.
func ValidateOutputDirectory(dir string, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	if logger != nil {
		logger.Debug("Output directory validated", slog.String("directory", dir))
	}
	return nil
}

// ValidateSpreadsheet checks that path is a readable workbook file.
func ValidateSpreadsheet(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a workbook", path)
	}
	if !IsSpreadsheetName(filepath.Base(path)) {
		return fmt.Errorf("%s is not an .xlsx workbook", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("workbook %s is not readable: %w", path, err)
	}
	return f.Close()
}
