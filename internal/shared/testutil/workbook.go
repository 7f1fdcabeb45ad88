package testutil

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Workbook describes a single-sheet fixture spreadsheet.
type Workbook struct {
	Sheet    string
	Preamble [][]any // rows written above the header
	Header   []string
	Rows     [][]any
}

// WriteWorkbook saves wb under t.TempDir() and returns the file path.
func WriteWorkbook(t *testing.T, name string, wb Workbook) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := wb.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("rename sheet: %v", err)
		}
	}

	row := 1
	write := func(values []any) {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("write row %d: %v", row, err)
		}
		row++
	}

	for _, p := range wb.Preamble {
		write(p)
	}
	if wb.Header != nil {
		header := make([]any, len(wb.Header))
		for i, h := range wb.Header {
			header[i] = h
		}
		write(header)
	}
	for _, r := range wb.Rows {
		write(r)
	}

	path := filepath.Join(t.TempDir(), name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// LegacyHeader is the column header of the original "Realisasi Hilirisasi"
// sheet.
var LegacyHeader = []string{"Periode", "Entitas", "Jenis Produk", "Qty", "Revenue", "Gross Profit", "Tahun"}

// V2Header is the column header of the "Input Data" sheet.
var V2Header = []string{"MONTH", "MONTHLY", "YEARLY", "SEMESTER", "PRODUCT", "SUBSIDIARY", "TONASE", "REVENUE", "GROSS PROFIT"}

// LegacyWorkbook writes rows under six title rows, as the legacy report does.
func LegacyWorkbook(t *testing.T, rows ...[]any) string {
	t.Helper()
	return WriteWorkbook(t, "legacy.xlsx", Workbook{
		Sheet: "Realisasi Hilirisasi",
		Preamble: [][]any{
			{"LAPORAN REALISASI HILIRISASI"},
			{"Periode Laporan", 2025},
			{"Unit Kerja", "Direktorat Hilirisasi"},
			{"Satuan", "Ton / Rupiah"},
			{"Dicetak", "05 Januari 2026"},
			{"Catatan", "Angka sementara"},
		},
		Header: LegacyHeader,
		Rows:   rows,
	})
}

// V2Workbook writes rows directly under the header of an "Input Data" sheet.
func V2Workbook(t *testing.T, rows ...[]any) string {
	t.Helper()
	return WriteWorkbook(t, "v2.xlsx", Workbook{
		Sheet:  "Input Data",
		Header: V2Header,
		Rows:   rows,
	})
}
