package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hilirisasi/internal/exporter"
	"hilirisasi/internal/files"
	"hilirisasi/internal/services"
	"hilirisasi/pkg/contracts"
	"hilirisasi/pkg/contracts/domain"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
		},
	}
}

func newSummaryCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Totals, highlights and rankings for a selection",
		Example: `  hilirisasi summary --year 2025 --period 3
  hilirisasi summary --source realisasi.xlsx --semester 1 -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := opts.filter(cmd.Flags())
			if err != nil {
				return err
			}
			summary, err := opts.service.Summary(cmd.Context(), opts.dataset, filter)
			if err != nil {
				return err
			}
			return opts.renderer(cmd.OutOrStdout()).summary(summary)
		},
	}
}

func newGroupsCommand(opts *options) *cobra.Command {
	var (
		by       string
		measures []string
		sort     string
	)
	cmd := &cobra.Command{
		Use:     "groups",
		Short:   "Sum measures per product, entity, semester, month or year",
		Example: `  hilirisasi groups --by entity --measures revenue,gross_profit --sort revenue`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := opts.filter(cmd.Flags())
			if err != nil {
				return err
			}
			key, err := domain.ParseGroupKey(by)
			if err != nil {
				return err
			}
			ms, err := parseMeasures(measures)
			if err != nil {
				return err
			}
			groups, err := opts.service.Groups(cmd.Context(), opts.dataset, services.GroupsQuery{
				Filter:   filter,
				By:       key,
				Measures: ms,
				Sort:     sort,
			})
			if err != nil {
				return err
			}
			if len(ms) == 0 {
				ms = domain.AllMeasures
			}
			return opts.renderer(cmd.OutOrStdout()).groups(key, ms, groups)
		},
	}
	cmd.Flags().StringVar(&by, "by", string(domain.GroupByProduct), "group key (product|entity|semester|month|year)")
	cmd.Flags().StringSliceVar(&measures, "measures", nil, "measures to sum (default: all)")
	cmd.Flags().StringVar(&sort, "sort", "", `order by "key" or a measure, descending`)
	return cmd
}

func newTopCommand(opts *options) *cobra.Command {
	var measure string
	cmd := &cobra.Command{
		Use:   "top",
		Short: "The row with the highest value of a measure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := opts.filter(cmd.Flags())
			if err != nil {
				return err
			}
			m, err := domain.ParseMeasure(measure)
			if err != nil {
				return err
			}
			record, err := opts.service.Top(cmd.Context(), opts.dataset, filter, m)
			if err != nil {
				return err
			}
			return opts.renderer(cmd.OutOrStdout()).records([]domain.Record{record})
		},
	}
	cmd.Flags().StringVar(&measure, "measure", string(domain.MeasureRevenue), "measure to rank by")
	return cmd
}

func newSharesCommand(opts *options) *cobra.Command {
	var by, measure string
	cmd := &cobra.Command{
		Use:   "shares",
		Short: "Percentage share of a measure per group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := opts.filter(cmd.Flags())
			if err != nil {
				return err
			}
			key, err := domain.ParseGroupKey(by)
			if err != nil {
				return err
			}
			m, err := domain.ParseMeasure(measure)
			if err != nil {
				return err
			}
			shares, err := opts.service.Shares(cmd.Context(), opts.dataset, filter, key, m)
			if err != nil {
				return err
			}
			return opts.renderer(cmd.OutOrStdout()).shares(key, m, shares)
		},
	}
	cmd.Flags().StringVar(&by, "by", string(domain.GroupByProduct), "group key")
	cmd.Flags().StringVar(&measure, "measure", string(domain.MeasureRevenue), "measure to share")
	return cmd
}

func newDimensionsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dimensions",
		Short: "List the years, months, semesters, products and entities present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var year *int
			if cmd.Flags().Changed("year") {
				year = &opts.year
			}
			dims, err := opts.service.Dimensions(cmd.Context(), opts.dataset, year)
			if err != nil {
				return err
			}
			return opts.renderer(cmd.OutOrStdout()).dimensions(dims)
		},
	}
}

func newExportCommand(opts *options) *cobra.Command {
	var (
		to  string
		out string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the selected rows to csv or xlsx",
		Long: `Write the selected rows to csv or xlsx. Without --out the file is written to
the export directory under a generated name; "--out -" writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := opts.filter(cmd.Flags())
			if err != nil {
				return err
			}
			format, err := exporter.ParseFormat(to)
			if err != nil {
				return err
			}

			switch out {
			case "-":
				return opts.service.Export(cmd.Context(), opts.dataset, filter, format, cmd.OutOrStdout())
			case "":
				path, err := opts.service.ExportFile(cmd.Context(), opts.dataset, filter, format)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			default:
				return exportTo(cmd, opts, filter, format, out)
			}
		},
	}
	cmd.Flags().StringVar(&to, "to", string(exporter.FormatCSV), "export format (csv|xlsx)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}

// exportTo writes the export to path, removing the partial file on failure.
func exportTo(cmd *cobra.Command, opts *options, filter domain.Filter, format exporter.Format, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err := opts.service.Export(cmd.Context(), opts.dataset, filter, format, f); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func parseMeasures(names []string) ([]domain.Measure, error) {
	out := make([]domain.Measure, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		m, err := domain.ParseMeasure(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func newSourcesCommand(opts *options) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the workbooks in the data directory and their detected layout",
		Example: `  hilirisasi sources
  hilirisasi sources --dir ./data -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = opts.cfg.Paths.DataDir
			}
			found, err := files.NewDiscovery(opts.cfg, opts.logger).FindSpreadsheets(dir)
			if err != nil {
				return err
			}
			return opts.renderer(cmd.OutOrStdout()).sources(dir, found, opts.cfg.Datasets)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to scan (default: paths.data_dir)")
	return cmd
}
