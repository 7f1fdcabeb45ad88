package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"hilirisasi/internal/config"
	"hilirisasi/pkg/contracts/domain"
)

// Exporter writes tables as CSV or xlsx, to a stream or into the export
// directory.
type Exporter struct {
	paths  *config.Paths
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter creates an exporter writing files under paths.ExportDir.
func NewExporter(paths *config.Paths, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		paths:  paths,
		logger: logger.With(slog.String("component", "exporter")),
		now:    time.Now,
	}
}

// Export writes table to w. Sections only apply to xlsx; a CSV export holds
// the rows alone.
func (e *Exporter) Export(ctx context.Context, w io.Writer, format Format, table *domain.Table, sections ...Section) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch format {
	case FormatCSV:
		sw, err := NewStreamWriter(w, RecordHeaders)
		if err != nil {
			return err
		}
		var werr error
		table.All(func(i int, r domain.Record) bool {
			if werr = sw.WriteRecord(recordRow(r)); werr != nil {
				werr = fmt.Errorf("failed to write record %d: %w", i, werr)
				return false
			}
			return true
		})
		if werr != nil {
			return werr
		}
		return sw.Close()

	case FormatXLSX:
		return WriteXLSX(w, table, sections...)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// ExportFile writes table into the export directory and returns the path.
func (e *Exporter) ExportFile(ctx context.Context, format Format, table *domain.Table, filter domain.Filter, sections ...Section) (string, error) {
	if err := e.paths.EnsureDirectories(); err != nil {
		return "", err
	}
	path := e.paths.GetExportPath(FileName(table.Source().Dataset, filter, format, e.now()))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := e.Export(ctx, file, format, table, sections...); err != nil {
		file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	e.logger.InfoContext(ctx, "export written",
		slog.String("dataset", table.Source().Dataset),
		slog.String("format", string(format)),
		slog.String("path", path),
		slog.Int("rows", table.Len()))
	return path, nil
}
