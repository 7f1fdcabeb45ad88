// Package cli provides the hilirisasi command line tool. It answers the same
// dashboard queries as the HTTP API straight from a spreadsheet.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"hilirisasi/internal/config"
	"hilirisasi/internal/dataprocessing"
	"hilirisasi/internal/files"
	"hilirisasi/internal/infrastructure"
	"hilirisasi/internal/services"
	"hilirisasi/pkg/contracts"
	"hilirisasi/pkg/contracts/domain"
)

// adhocDataset names the dataset built from --source.
const adhocDataset = "source"

// options holds the global flags and what PersistentPreRunE builds from them.
type options struct {
	configFile string
	dataset    string
	source     string
	layout     string
	format     string
	logLevel   string

	year     int
	period   int
	semester string
	entity   string
	product  string

	cfg     *config.Config
	service *services.DatasetService
	logger  *slog.Logger
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "hilirisasi",
		Short: "Summaries of the hilirisasi realization spreadsheets",
		Long: `hilirisasi reads the "Realisasi Hilirisasi" and "Input Data" workbooks and
prints totals, groupings and highlights for a filter selection.

Datasets come from the config file, or use --source to read one workbook
directly.`,
		Version: contracts.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			return opts.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default: hilirisasi.yaml, config.yaml or configs/config.yaml)")
	pf.StringVarP(&opts.dataset, "dataset", "d", "", "dataset name (default: first configured)")
	pf.StringVarP(&opts.source, "source", "s", "", "read this workbook instead of the configured datasets")
	pf.StringVar(&opts.layout, "layout", config.LayoutLegacy, "layout of --source (legacy|v2|<custom>); detected when unset")
	pf.StringVarP(&opts.format, "format", "f", "table", "output format (table|json)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	pf.IntVar(&opts.year, "year", 0, "filter by year")
	pf.IntVar(&opts.period, "period", 0, "filter by month (1-12)")
	pf.StringVar(&opts.semester, "semester", "", "filter by semester (1|2)")
	pf.StringVar(&opts.entity, "entity", "", "filter by entity")
	pf.StringVar(&opts.product, "product", "", "filter by product")

	_ = rootCmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("layout", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.LayoutLegacy, config.LayoutV2}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		newVersionCommand(),
		newSummaryCommand(opts),
		newGroupsCommand(opts),
		newTopCommand(opts),
		newSharesCommand(opts),
		newDimensionsCommand(opts),
		newExportCommand(opts),
		newSourcesCommand(opts),
	)
	return rootCmd
}

// Execute runs the root command with os.Args.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func (o *options) setup(cmd *cobra.Command) error {
	if o.format != "table" && o.format != "json" {
		return fmt.Errorf("unknown output format %q", o.format)
	}

	var (
		cfg *config.Config
		err error
	)
	switch {
	case o.configFile != "":
		cfg, err = config.LoadFile(o.configFile)
	case o.source != "":
		cfg, err = config.LoadFile("")
	default:
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	o.logger = infrastructure.NewLogger(config.LoggingConfig{Level: o.logLevel}, cmd.ErrOrStderr())
	o.cfg = cfg

	if o.source != "" {
		if err := o.useSource(cmd.Flags().Changed("layout")); err != nil {
			return err
		}
	}
	if cmd.Name() != "sources" {
		if len(cfg.Datasets) == 0 {
			return fmt.Errorf("no datasets configured; pass --source or --config")
		}
		if o.dataset == "" {
			o.dataset = cfg.Datasets[0].Name
		}
	}

	o.service = services.NewDatasetService(cfg,
		dataprocessing.NewLoader(dataprocessing.WithLogger(o.logger)), o.logger)
	return nil
}

// useSource replaces the configured datasets with the --source workbook.
// Without an explicit --layout the layout is detected from the sheet names.
func (o *options) useSource(layoutSet bool) error {
	abs, err := filepath.Abs(o.source)
	if err != nil {
		return err
	}
	if err := files.ValidateSpreadsheet(abs); err != nil {
		return err
	}

	layout := o.layout
	if !layoutSet {
		if detected, err := files.NewDiscovery(o.cfg, o.logger).DetectLayout(abs); err == nil {
			layout = detected
		} else {
			o.logger.Warn("layout not detected, using default",
				slog.String("layout", layout),
				slog.String("error", err.Error()))
		}
	}

	name := o.dataset
	if name == "" {
		name = adhocDataset
	}
	o.cfg.Datasets = []config.DatasetConfig{{Name: name, Path: abs, Layout: layout}}
	return o.cfg.Validate()
}

// filter builds the selection from the filter flags that were set.
func (o *options) filter(flags *pflag.FlagSet) (domain.Filter, error) {
	var f domain.Filter
	if flags.Changed("year") {
		f = f.WithYear(o.year)
	}
	if flags.Changed("period") {
		f = f.WithPeriod(o.period)
	}
	if flags.Changed("semester") {
		s, ok := domain.ParseSemester(o.semester)
		if !ok {
			return f, fmt.Errorf("unknown semester %q", o.semester)
		}
		f = f.WithSemester(s)
	}
	if flags.Changed("entity") {
		f = f.WithEntity(o.entity)
	}
	if flags.Changed("product") {
		f = f.WithProduct(o.product)
	}
	return f, nil
}

func (o *options) renderer(w io.Writer) *renderer {
	return &renderer{w: w, json: o.format == "json"}
}
