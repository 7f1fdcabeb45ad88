// Package dataprocessing turns hilirisasi spreadsheets into immutable tables
// and answers the filter and aggregate queries dashboards ask of them.
//
// # Components
//
//  1. Loader: reads one sheet of a workbook per a config.Layout, validates
//     the header, coerces cells and drops rows without identifying fields
//  2. TableCache: keeps the latest table per source, keyed by a BLAKE2b
//     fingerprint of the file content
//  3. Aggregator: FilterBy, SumBy, TopBy, PercentageShare and Totals, all
//     pure functions over a *domain.Table
//  4. Summarizer: composes aggregator calls into a domain.DashboardSummary
//  5. Watcher: reports settled changes to source files via fsnotify
//
// # Usage
//
//	loader := dataprocessing.NewLoader(dataprocessing.WithLogger(logger))
//	table, err := loader.Load(ctx, dataprocessing.Source{Dataset: "realisasi", Path: path}, layout)
//	if err != nil {
//	    return err // *errors.LoadError
//	}
//	march := dataprocessing.FilterBy(table, dataprocessing.ByYear(2025), dataprocessing.ByPeriod(3))
//	byProduct, err := dataprocessing.SumBy(march, domain.GroupByProduct, domain.MeasureRevenue)
//
// # Normalization rules
//
//	- header_skip rows are discarded; the next row is the header
//	- header names match case-insensitively with whitespace collapsed
//	- numeric cells that do not parse become 0 and are counted
//	- an unparseable month date aborts the load with the row number
//	- a provided semester wins over the derived one; disagreements are counted
package dataprocessing
