// Command report prints the workforce report for the configured data files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/castle/internal/adapters/source"
	app "github.com/okian/castle/internal/app"
	"github.com/okian/castle/internal/config"
	"github.com/okian/castle/internal/domain/aggregate"
	"github.com/okian/castle/internal/report"
	"github.com/okian/castle/pkg/logger"
)

type options struct {
	configPath string
	dataDir    string
	filters    []string
	export     string
}

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:           "report",
		Short:         "Print the workforce report",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv(config.EnvConfigPath), "YAML config file")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "directory holding the data files (overrides config)")
	root.PersistentFlags().StringArrayVar(&opts.filters, "filter", nil, "dimension=value, repeatable")
	root.Flags().StringVar(&opts.export, "export", "", "also write the department summary CSV to this path")

	root.AddCommand(&cobra.Command{
		Use:   "departments",
		Short: "Write the department summary CSV to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDepartments(cmd, opts)
		},
	})

	return root
}

func runReport(cmd *cobra.Command, opts options) error {
	ctx := cmd.Context()
	svc, err := start(ctx, opts)
	if err != nil {
		return err
	}
	defer svc.Stop()

	state, err := report.ParseFilters(opts.filters)
	if err != nil {
		return err
	}

	r, err := report.Build(ctx, svc, state)
	if err != nil {
		return err
	}
	if err := report.Write(cmd.OutOrStdout(), r); err != nil {
		return err
	}

	if opts.export != "" {
		return report.Export(ctx, svc, opts.export, state)
	}
	return nil
}

func runDepartments(cmd *cobra.Command, opts options) error {
	ctx := cmd.Context()
	svc, err := start(ctx, opts)
	if err != nil {
		return err
	}
	defer svc.Stop()

	state, err := report.ParseFilters(opts.filters)
	if err != nil {
		return err
	}
	return svc.WriteDepartmentsCSV(ctx, cmd.OutOrStdout(), state)
}

// start loads configuration and the dataset.
func start(ctx context.Context, opts options) (*app.Service, error) {
	cfg, err := config.LoadFile(ctx, opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}

	log := logger.Named("report")
	files := source.Files{
		Dir:      cfg.DataDir,
		Primary:  cfg.PrimaryFile,
		Summary:  cfg.SummaryFile,
		Workbook: cfg.WorkbookFile,
		Sheet:    cfg.WorkbookSheet,
	}
	svc := app.New(
		app.WithLogger(log),
		app.WithLoader(source.NewLoader(files.Candidates(), source.WithLogger(log))),
		app.WithAggregateConfig(aggregate.Config{
			Highlight:         cfg.HighlightCompany,
			TopRating:         cfg.TopRating,
			SeniorTenure:      cfg.SeniorTenure,
			ExperiencedTenure: cfg.ExperiencedTenure,
			FitPoints:         cfg.FitPoints,
		}),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}
	return svc, nil
}
