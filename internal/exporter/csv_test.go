package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hilirisasi/internal/config"
	"hilirisasi/internal/shared/testutil"
	"hilirisasi/pkg/contracts/domain"
)

func sampleTable() *domain.Table {
	return domain.NewTable([]domain.Record{
		{Period: 3, Year: 2025, Entity: "PT Alpha", Product: "Nikel Matte", Quantity: 12.5, Revenue: 1500, GrossProfit: 300, Semester: domain.SemesterFirstHalf, MonthName: "Maret"},
		{Period: 9, Year: 2025, Entity: "PT Beta, Tbk", Product: "Feronikel", Quantity: 4, Revenue: 800, GrossProfit: -20, Semester: domain.SemesterSecondHalf, MonthName: "September"},
	}, domain.SourceInfo{Dataset: "realisasi"}, domain.LoadDiagnostics{})
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, utf8BOM), "missing BOM")
	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
		want    string
	}{
		{
			name:    "headers and records",
			options: WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "2"}}},
			want:    "a,b\n1,2\n",
		},
		{
			name:    "quoting",
			options: WriteOptions{Records: [][]string{{"PT Beta, Tbk", `say "hi"`}}},
			want:    "\"PT Beta, Tbk\",\"say \"\"hi\"\"\"\n",
		},
		{
			name:    "bom",
			options: WriteOptions{Headers: []string{"x"}, BOMPrefix: true},
			want:    "\xEF\xBB\xBFx\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, tt.options))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestExporter_CSV(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	exp := NewExporter(&config.Paths{ExportDir: t.TempDir()}, logger)

	var buf bytes.Buffer
	require.NoError(t, exp.Export(context.Background(), &buf, FormatCSV, sampleTable()))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, RecordHeaders, rows[0])
	assert.Equal(t, []string{"3", "Maret", "2025", "Semester 1", "PT Alpha", "Nikel Matte", "12.5", "1500", "300"}, rows[1])
	assert.Equal(t, "PT Beta, Tbk", rows[2][4])
	assert.Equal(t, "-20", rows[2][8])
}

func TestExporter_EmptyTableHasHeader(t *testing.T) {
	exp := NewExporter(&config.Paths{}, nil)

	var buf bytes.Buffer
	empty := domain.NewTable(nil, domain.SourceInfo{}, domain.LoadDiagnostics{})
	require.NoError(t, exp.Export(context.Background(), &buf, FormatCSV, empty))

	rows := readCSV(t, buf.Bytes())
	assert.Equal(t, [][]string{RecordHeaders}, rows)
}

func TestExporter_ExportFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	logger, handler := testutil.NewTestLogger(t)
	exp := NewExporter(&config.Paths{ExportDir: dir}, logger)
	exp.now = func() time.Time { return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) }

	filter := domain.Filter{}.WithYear(2025).WithPeriod(3)
	path, err := exp.ExportFile(context.Background(), FormatCSV, sampleTable(), filter)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "realisasi_2025-03_20260105.csv"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 3)
	assert.True(t, handler.ContainsMessage("export written"))
}

func TestExporter_CancelledContext(t *testing.T) {
	exp := NewExporter(&config.Paths{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	assert.ErrorIs(t, exp.Export(ctx, &buf, FormatCSV, sampleTable()), context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestStreamWriter(t *testing.T) {
	var buf bytes.Buffer
	sw, err := NewStreamWriter(&buf, []string{"key", "value"})
	require.NoError(t, err)
	for _, r := range [][]string{{"a", "1"}, {"b", "2"}} {
		require.NoError(t, sw.WriteRecord(r))
	}
	require.NoError(t, sw.Close())

	assert.Equal(t, [][]string{{"key", "value"}, {"a", "1"}, {"b", "2"}}, readCSV(t, buf.Bytes()))
}
