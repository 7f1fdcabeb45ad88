package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains the resolved, absolute directories the application uses.
type Paths struct {
	BaseDir   string
	DataDir   string
	ExportDir string
	LogsDir   string
}

// GetPaths returns the resolved paths of a loaded configuration.
func (c *Config) GetPaths() *Paths {
	return &Paths{
		BaseDir:   c.Paths.BaseDir,
		DataDir:   c.Paths.DataDir,
		ExportDir: c.Paths.ExportDir,
		LogsDir:   c.Paths.LogsDir,
	}
}

// EnsureDirectories creates the writable directories if they don't exist.
// The data directory is read-only input and is not created.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ExportDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetDataPath returns a path inside the data directory
func (p *Paths) GetDataPath(filename string) string {
	return resolveAgainst(p.DataDir, filename)
}

// GetExportPath returns a path inside the export directory
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportDir, filepath.Base(filename))
}

// LogPathResolution logs the resolved directories
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("exports", p.ExportDir),
			slog.String("logs", p.LogsDir),
		))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// IsSpreadsheet reports whether path has a workbook extension the loader reads.
func IsSpreadsheet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExcelExtension, ExcelMacroExtension:
		return true
	}
	return false
}
