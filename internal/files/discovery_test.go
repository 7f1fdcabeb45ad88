package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hilirisasi/internal/config"
	"hilirisasi/internal/shared/testutil"
)

// copyFixture copies the workbook at src into dir as name and sets its mtime.
func copyFixture(t *testing.T, src, dir, name string, mtime time.Time) string {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	dst := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(dst, data, 0o644))
	require.NoError(t, os.Chtimes(dst, mtime, mtime))
	return dst
}

func TestDetectLayout(t *testing.T) {
	d := NewDiscovery(config.Default(), nil)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"legacy", testutil.LegacyWorkbook(t), config.LayoutLegacy, false},
		{"v2", testutil.V2Workbook(t), config.LayoutV2, false},
		{"sheet name case", testutil.WriteWorkbook(t, "upper.xlsx", testutil.Workbook{Sheet: "REALISASI HILIRISASI"}), config.LayoutLegacy, false},
		{"unknown sheet", testutil.WriteWorkbook(t, "other.xlsx", testutil.Workbook{Sheet: "Rekap"}), "", true},
		{"missing file", filepath.Join(t.TempDir(), "missing.xlsx"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.DetectLayout(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectLayout_CustomLayout(t *testing.T) {
	cfg := config.Default()
	cfg.Layouts = map[string]config.Layout{
		"rekap": {Name: config.LayoutV2, SheetName: "Rekap"},
	}
	path := testutil.WriteWorkbook(t, "rekap.xlsx", testutil.Workbook{Sheet: "Rekap"})

	got, err := NewDiscovery(cfg, nil).DetectLayout(path)
	require.NoError(t, err)
	assert.Equal(t, "rekap", got)
}

func TestFindSpreadsheets(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	copyFixture(t, testutil.LegacyWorkbook(t), dir, "2024.xlsx", now.Add(-2*time.Hour))
	copyFixture(t, testutil.V2Workbook(t), dir, "2025.xlsx", now.Add(-time.Hour))
	copyFixture(t, testutil.V2Workbook(t), dir, "~$2025.xlsx", now)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("not a zip"), 0o644))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "broken.xlsx"), now.Add(-3*time.Hour), now.Add(-3*time.Hour)))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.xlsx"), 0o755))

	found, err := NewDiscovery(config.Default(), nil).FindSpreadsheets(dir)
	require.NoError(t, err)
	require.Len(t, found, 3)

	assert.Equal(t, "2025.xlsx", found[0].Name)
	assert.Equal(t, config.LayoutV2, found[0].Layout)
	assert.Contains(t, found[0].Sheets, "Input Data")

	assert.Equal(t, "2024.xlsx", found[1].Name)
	assert.Equal(t, config.LayoutLegacy, found[1].Layout)

	assert.Equal(t, "broken.xlsx", found[2].Name)
	assert.Empty(t, found[2].Layout)
	assert.Nil(t, found[2].Sheets)
}

func TestFindSpreadsheets_MissingDir(t *testing.T) {
	_, err := NewDiscovery(config.Default(), nil).FindSpreadsheets(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestIsSpreadsheetName(t *testing.T) {
	tests := map[string]bool{
		"realisasi.xlsx":   true,
		"REALISASI.XLSX":   true,
		"~$realisasi.xlsx": false,
		"realisasi.csv":    false,
		"realisasi":        false,
	}
	for name, want := range tests {
		assert.Equal(t, want, IsSpreadsheetName(name), name)
	}
}

func TestValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports", "nested")
	require.NoError(t, ValidateOutputDirectory(dir, nil))
	assert.DirExists(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write probe is removed")

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, ValidateOutputDirectory(filepath.Join(file, "sub"), nil))
}

func TestValidateSpreadsheet(t *testing.T) {
	txt := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"workbook", testutil.LegacyWorkbook(t), false},
		{"missing", filepath.Join(t.TempDir(), "missing.xlsx"), true},
		{"directory", t.TempDir(), true},
		{"wrong extension", txt, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpreadsheet(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
