package exporter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"hilirisasi/pkg/contracts/domain"
)

// RecordsSheet is the sheet name of the row data in an xlsx export.
const RecordsSheet = "Data"

// Section is a grouped table written to its own xlsx sheet.
type Section struct {
	Sheet    string
	Key      domain.GroupKey
	Groups   domain.Groups
	Measures []domain.Measure
}

// WriteXLSX writes the rows of table to the Data sheet and each section to
// its own sheet.
func WriteXLSX(w io.Writer, table *domain.Table, sections ...Section) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RecordsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	rows := make([][]any, 0, table.Len())
	table.All(func(_ int, r domain.Record) bool {
		rows = append(rows, []any{
			r.Period, r.MonthName, r.Year, r.Semester.Label(), r.Entity, r.Product,
			r.Quantity, r.Revenue, r.GrossProfit,
		})
		return true
	})
	if err := writeSheet(f, RecordsSheet, bold, RecordHeaders, rows); err != nil {
		return err
	}

	for _, s := range sections {
		if _, err := f.NewSheet(s.Sheet); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", s.Sheet, err)
		}
		rows := make([][]any, 0, len(s.Groups))
		for _, g := range s.Groups {
			row := []any{g.Key, g.Count}
			for _, m := range s.Measures {
				row = append(row, g.Sums[m])
			}
			rows = append(rows, row)
		}
		if err := writeSheet(f, s.Sheet, bold, GroupHeaders(s.Key, s.Measures), rows); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, headers []string, rows [][]any) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer for %q: %w", sheet, err)
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet, err)
	}

	for i, row := range rows {
		if err := sw.SetRow("A"+strconv.Itoa(i+2), row); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+2, sheet, err)
		}
	}
	return sw.Flush()
}
