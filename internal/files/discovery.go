package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"hilirisasi/internal/config"
)

// Spreadsheet describes a workbook found in a data directory.
type Spreadsheet struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Sheets  []string  `json:"sheets"`
	// Layout is the first layout whose sheet the workbook contains, or
	// empty when none matches.
	Layout string `json:"layout,omitempty"`
}

// LayoutResolver resolves layout names; *config.Config implements it.
type LayoutResolver interface {
	LayoutNames() []string
	Layout(name string) (config.Layout, error)
}

// Discovery finds workbooks and guesses their layout from the sheet names.
type Discovery struct {
	layouts LayoutResolver
	logger  *slog.Logger
}

// NewDiscovery creates a discovery over the given layouts.
func NewDiscovery(layouts LayoutResolver, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{
		layouts: layouts,
		logger:  logger.With(slog.String("component", "discovery")),
	}
}

// FindSpreadsheets lists the .xlsx workbooks in dir, newest first. Office
// lock files ("~$...") are skipped. A workbook that cannot be opened is
// listed without sheets.
func (d *Discovery) FindSpreadsheets(dir string) ([]Spreadsheet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var found []Spreadsheet
	for _, entry := range entries {
		if entry.IsDir() || !IsSpreadsheetName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		s := Spreadsheet{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if sheets, err := SheetNames(s.Path); err != nil {
			d.logger.Warn("unreadable workbook", slog.String("path", s.Path), slog.String("error", err.Error()))
		} else {
			s.Sheets = sheets
			s.Layout = d.match(sheets)
		}
		found = append(found, s)
	}

	slices.SortFunc(found, func(a, b Spreadsheet) int { return b.ModTime.Compare(a.ModTime) })
	return found, nil
}

// DetectLayout opens path and returns the layout matching its sheets. Sheet
// names compare case-insensitively, as the loader looks them up.
func (d *Discovery) DetectLayout(path string) (string, error) {
	sheets, err := SheetNames(path)
	if err != nil {
		return "", err
	}
	if name := d.match(sheets); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("%s: no layout matches sheets %v", filepath.Base(path), sheets)
}

func (d *Discovery) match(sheets []string) string {
	for _, name := range d.layouts.LayoutNames() {
		l, err := d.layouts.Layout(name)
		if err != nil {
			continue
		}
		if slices.ContainsFunc(sheets, func(s string) bool { return strings.EqualFold(s, l.SheetName) }) {
			return name
		}
	}
	return ""
}

// SheetNames lists the sheets of a workbook.
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return f.GetSheetList(), nil
}

// IsSpreadsheetName reports whether name is a workbook the loader can read.
// Office lock files are excluded.
func IsSpreadsheetName(name string) bool {
	return !strings.HasPrefix(name, "~$") && config.IsSpreadsheet(name)
}
