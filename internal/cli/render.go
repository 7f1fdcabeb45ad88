package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"hilirisasi/internal/config"
	"hilirisasi/internal/files"
	"hilirisasi/pkg/contracts/domain"
)

var numberPrinter = message.NewPrinter(language.English)

// renderer prints results as go-pretty tables or indented JSON.
type renderer struct {
	w    io.Writer
	json bool
}

func (r *renderer) encode(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *renderer) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func (r *renderer) summary(s *domain.DashboardSummary) error {
	if r.json {
		return r.encode(s)
	}

	label := s.Label
	if label == "" {
		label = "All data"
	}
	if s.Empty {
		_, _ = fmt.Fprintf(r.w, "%s: no rows match the selection\n", label)
		return nil
	}

	t := r.newTable(fmt.Sprintf("%s - %s", s.Dataset, label))
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Records", s.Totals.Records},
		{"Quantity", formatNumber(s.Totals.Quantity)},
		{"Revenue", formatNumber(s.Totals.Revenue)},
		{"Gross profit", formatNumber(s.Totals.GrossProfit)},
	})
	t.AppendSeparator()
	for _, h := range []struct {
		name string
		h    *domain.Highlight
	}{
		{"Top revenue", s.TopRevenue},
		{"Top quantity", s.TopQuantity},
		{"Top gross profit", s.TopProfit},
	} {
		if h.h == nil {
			continue
		}
		t.AppendRow(table.Row{h.name, fmt.Sprintf("%s / %s (%s)", h.h.Product, h.h.Entity, formatNumber(h.h.Value))})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()

	if len(s.ByProduct) > 0 {
		_, _ = fmt.Fprintln(r.w)
		r.groupTable("By product", domain.GroupByProduct, domain.AllMeasures, s.ByProduct)
	}
	if len(s.ByEntity) > 0 {
		_, _ = fmt.Fprintln(r.w)
		r.groupTable("By entity", domain.GroupByEntity, domain.AllMeasures, s.ByEntity)
	}
	return nil
}

func (r *renderer) groups(key domain.GroupKey, measures []domain.Measure, groups domain.Groups) error {
	if r.json {
		return r.encode(groups)
	}
	if len(groups) == 0 {
		_, _ = fmt.Fprintln(r.w, "(0 groups)")
		return nil
	}
	r.groupTable("", key, measures, groups)
	return nil
}

func (r *renderer) groupTable(title string, key domain.GroupKey, measures []domain.Measure, groups domain.Groups) {
	t := r.newTable(title)

	header := table.Row{string(key), "count"}
	for _, m := range measures {
		header = append(header, string(m))
	}
	t.AppendHeader(header)

	footer := table.Row{"total", ""}
	configs := make([]table.ColumnConfig, 0, len(measures))
	for i, m := range measures {
		footer = append(footer, formatNumber(groups.Total(m)))
		configs = append(configs, table.ColumnConfig{Number: i + 3, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}

	for _, g := range groups {
		row := table.Row{g.Key, g.Count}
		for _, m := range measures {
			row = append(row, formatNumber(g.Sums[m]))
		}
		t.AppendRow(row)
	}
	t.AppendFooter(footer)
	t.SetColumnConfigs(configs)
	t.Render()
}

func (r *renderer) records(records []domain.Record) error {
	if r.json {
		if len(records) == 1 {
			return r.encode(records[0])
		}
		return r.encode(records)
	}

	t := r.newTable("")
	t.AppendHeader(table.Row{"Year", "Period", "Semester", "Entity", "Product", "Quantity", "Revenue", "Gross profit"})
	for _, rec := range records {
		t.AppendRow(table.Row{
			rec.Year, rec.Period, rec.Semester.Label(), rec.Entity, rec.Product,
			formatNumber(rec.Quantity), formatNumber(rec.Revenue), formatNumber(rec.GrossProfit),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	t.Render()
	return nil
}

func (r *renderer) shares(key domain.GroupKey, measure domain.Measure, shares []domain.Share) error {
	if r.json {
		return r.encode(shares)
	}

	t := r.newTable("")
	t.AppendHeader(table.Row{string(key), string(measure), "share"})
	for _, s := range shares {
		t.AppendRow(table.Row{s.Key, formatNumber(s.Value), fmt.Sprintf("%.2f%%", s.Percent)})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()
	return nil
}

func (r *renderer) dimensions(d domain.Dimensions) error {
	if r.json {
		return r.encode(d)
	}

	semesters := make([]string, len(d.Semesters))
	for i, s := range d.Semesters {
		semesters[i] = s.Label()
	}

	t := r.newTable("")
	t.AppendRows([]table.Row{
		{"Years", joinInts(d.Years)},
		{"Periods", joinInts(d.Periods)},
		{"Semesters", strings.Join(semesters, ", ")},
		{"Products", strings.Join(d.Products, ", ")},
		{"Entities", strings.Join(d.Entities, ", ")},
	})
	t.Render()
	return nil
}

func (r *renderer) sources(dir string, found []files.Spreadsheet, datasets []config.DatasetConfig) error {
	if r.json {
		if found == nil {
			found = []files.Spreadsheet{}
		}
		return r.encode(found)
	}
	if len(found) == 0 {
		_, err := fmt.Fprintf(r.w, "%s: no workbooks found\n", dir)
		return err
	}

	configured := make(map[string]string, len(datasets))
	for _, ds := range datasets {
		configured[ds.Path] = ds.Name
	}

	t := r.newTable(dir)
	t.AppendHeader(table.Row{"Workbook", "Layout", "Dataset", "Size", "Modified"})
	for _, s := range found {
		layout := s.Layout
		if layout == "" {
			layout = "-"
		}
		t.AppendRow(table.Row{s.Name, layout, configured[s.Path], formatNumber(float64(s.Size)), s.ModTime.Format("2006-01-02 15:04")})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
	return nil
}

// formatNumber prints whole numbers without decimals and everything else
// with two, grouping thousands.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return numberPrinter.Sprintf("%d", int64(v))
	}
	return numberPrinter.Sprintf("%.2f", v)
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
