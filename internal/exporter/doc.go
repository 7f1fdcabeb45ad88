// Package exporter writes hilirisasi tables as CSV or xlsx.
//
// CSV exports carry a UTF-8 BOM so Excel opens Indonesian text correctly,
// and hold the filtered rows only. xlsx exports put the rows on a "Data"
// sheet and may add one sheet per grouped section:
//
//	exp := exporter.NewExporter(cfg.GetPaths(), logger)
//	err := exp.Export(ctx, w, exporter.FormatXLSX, table, exporter.Section{
//	    Sheet:    "Per Produk",
//	    Key:      domain.GroupByProduct,
//	    Groups:   groups,
//	    Measures: domain.AllMeasures,
//	})
package exporter
