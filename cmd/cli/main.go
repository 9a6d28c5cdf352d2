package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"salesprobe/adapters/charts"
	"salesprobe/adapters/coercer"
	"salesprobe/adapters/excel"
	"salesprobe/adapters/snapshot"
	"salesprobe/adapters/store"
	"salesprobe/app"
	"salesprobe/domain/sales"
	"salesprobe/internal"
	"salesprobe/internal/config"
	"salesprobe/internal/errors"
	"salesprobe/internal/features"
	"salesprobe/internal/metrics"
	"salesprobe/internal/migration"
	"salesprobe/internal/testkit"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	logLevel    string
	metricsFile string

	cfg    *config.Config
	logger *internal.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "salesprobe",
		Short:         "Retail invoice analytics: clean, derive, aggregate, segment and test",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return err
			}
			level := cfg.Log.Level
			if logLevel != "" {
				level = logLevel
			}
			logger = internal.NewLogger(internal.ParseLogLevel(level))
			if metricsFile == "" {
				metricsFile = cfg.Metrics.File
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsFile == "" {
				return nil
			}
			if err := metrics.WriteTextfile(metricsFile); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
			logger.Debug("metrics written to %s", metricsFile)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: ERROR|WARN|INFO|DEBUG|TRACE (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write prometheus metrics in textfile format to this path")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newLoadCmd(),
		newGenerateCmd(),
		newMigrateCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errors.ExitCode(err))
	}
}

type analyzeFlags struct {
	format        string
	output        string
	chartsDir     string
	snapshot      string
	cleaned       string
	customers     string
	outlierColumn string
	outlierPolicy string
}

func newAnalyzeCmd() *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze [input-file]",
		Short: "Run the analysis pipeline over a CSV or XLSX invoice file",
		Long: `Normalize and derive the invoice table, then compute outliers, aggregates,
customer segments and the weekday/weekend significance test.

Example: salesprobe analyze data.xlsx --format json --output report.json --charts charts/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.format, "format", app.FormatYAML, "Report format: yaml|json")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Report file (default stdout)")
	cmd.Flags().StringVar(&f.chartsDir, "charts", "", "Directory for chart specs")
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "Write the derived table to this .csv or .xlsx file")
	cmd.Flags().StringVar(&f.cleaned, "cleaned", "", "Write the outlier-handled table to this .csv or .xlsx file")
	cmd.Flags().StringVar(&f.customers, "customers", "", "Write customer aggregates and segments to this .csv or .xlsx file")
	cmd.Flags().StringVar(&f.outlierColumn, "outlier-column", "", "Override pipeline.outlier_column")
	cmd.Flags().StringVar(&f.outlierPolicy, "outlier-policy", "", "Override pipeline.outlier_policy: remove|cap")
	return cmd
}

func runAnalyze(ctx context.Context, input string, f analyzeFlags) error {
	pc := cfg.Pipeline
	if f.outlierColumn != "" {
		pc.OutlierColumn = f.outlierColumn
	}
	if f.outlierPolicy != "" {
		pc.OutlierPolicy = f.outlierPolicy
	}
	overridden := *cfg
	overridden.Pipeline = pc
	if err := overridden.Validate(); err != nil {
		return err
	}

	opts, err := app.OptionsFromConfig(pc)
	if err != nil {
		return err
	}

	svc := app.NewPipelineService(logger)
	res, err := svc.RunFile(ctx, input, opts)
	if err != nil {
		return err
	}

	if err := writeReport(res.Report, f.format, f.output); err != nil {
		return err
	}

	if f.chartsDir != "" {
		named, err := app.BuildCharts(res, pc.OutlierColumn)
		if err != nil {
			return err
		}
		paths, err := charts.NewEmitter(f.chartsDir).WithLogger(logger).EmitAll(ctx, named)
		if err != nil {
			return err
		}
		logger.Info("wrote %d charts to %s", len(paths), f.chartsDir)
	}

	if f.snapshot != "" {
		if err := snapshot.Write(ctx, f.snapshot, res.Derived.Frame()); err != nil {
			return err
		}
		logger.Info("derived table written to %s", f.snapshot)
	}
	if f.cleaned != "" {
		if err := snapshot.Write(ctx, f.cleaned, res.Cleaned.Frame()); err != nil {
			return err
		}
		logger.Info("outlier-handled table written to %s", f.cleaned)
	}
	if f.customers != "" {
		if err := snapshot.Write(ctx, f.customers, app.CustomerFrame(res)); err != nil {
			return err
		}
		logger.Info("customer segments written to %s", f.customers)
	}
	return nil
}

func writeReport(r *app.Report, format, path string) error {
	format = strings.ToLower(format)
	if path == "" {
		return app.WriteReport(os.Stdout, r, format)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := app.WriteReport(out, r, format); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	logger.Info("report written to %s", path)
	return nil
}

func newLoadCmd() *cobra.Command {
	var (
		migrate   bool
		relations []string
		progress  bool
	)

	cmd := &cobra.Command{
		Use:   "load [input-file]",
		Short: "Load an invoice file into the configured database",
		Long: `Normalize and derive the invoice table, then insert it into the customers,
products, invoices and line_items relations. Duplicate keys are suppressed
before insertion and integrity violations are reported per row.

Connection settings come from DATABASE_URL and DB_DRIVER (postgres|mysql).

Example: DATABASE_URL=postgres://... salesprobe load data.csv --migrate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("progress") {
				cfg.Database.Progress = progress
			}
			return runLoad(cmd.Context(), args[0], migrate, relations)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Create the schema before loading")
	cmd.Flags().StringSliceVar(&relations, "relation", nil, "Load only these relations (default all, in foreign key order)")
	cmd.Flags().BoolVar(&progress, "progress", false, "Show a progress bar per relation")
	return cmd
}

func runLoad(ctx context.Context, input string, migrate bool, relations []string) error {
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}

	raw, err := excel.NewDataReader(input).WithLogger(logger).Read()
	if err != nil {
		return err
	}
	normalized, err := coercer.Normalize(raw, coercer.Options{DateLayout: cfg.Pipeline.DateLayout})
	if err != nil {
		return err
	}
	metrics.RowsNormalized.Add(float64(normalized.Len()))
	derived, err := features.Derive(normalized)
	if err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		if err := migration.NewRunner().Run(ctx, db); err != nil {
			return err
		}
		logger.Info("schema ready on %s", cfg.Database.Driver)
	}

	loader := store.NewLoader(db).WithLogger(logger).WithProgress(cfg.Database.Progress)
	start := time.Now()

	var reports []store.BatchReport
	if len(relations) == 0 {
		reports, err = loader.LoadAll(ctx, derived)
	} else {
		for _, name := range relations {
			rel, rerr := store.RelationByName(name)
			if rerr != nil {
				return rerr
			}
			var report store.BatchReport
			report, err = loader.Load(ctx, rel, derived)
			reports = append(reports, report)
			if err != nil {
				break
			}
		}
	}
	metrics.ObserveStage("load", time.Since(start))

	for _, r := range reports {
		fmt.Printf("%-12s attempted=%d inserted=%d deduplicated=%d skipped=%d failed=%d\n",
			r.Relation, r.Attempted, r.Inserted, r.Deduplicated, r.Skipped, r.Failed)
		for _, f := range r.Failures {
			logger.Warn("%v", f)
		}
	}
	return err
}

func newGenerateCmd() *cobra.Command {
	gen := testkit.DefaultInvoiceConfig()
	var start, end string

	cmd := &cobra.Command{
		Use:   "generate [output-file]",
		Short: "Write a synthetic invoice file (.csv or .xlsx)",
		Long: `Generate deterministic synthetic invoice data shaped like the online retail
export, including returns, guest checkouts and a weekend effect.

Example: salesprobe generate sample.xlsx --customers 500 --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if start != "" {
				if gen.StartDate, err = time.Parse(time.DateOnly, start); err != nil {
					return fmt.Errorf("invalid --start (use YYYY-MM-DD): %w", err)
				}
			}
			if end != "" {
				if gen.EndDate, err = time.Parse(time.DateOnly, end); err != nil {
					return fmt.Errorf("invalid --end (use YYYY-MM-DD): %w", err)
				}
			}
			if !gen.EndDate.After(gen.StartDate) {
				return fmt.Errorf("--end must be after --start")
			}
			return runGenerate(cmd.Context(), args[0], gen)
		},
	}

	cmd.Flags().IntVar(&gen.CustomerCount, "customers", gen.CustomerCount, "Number of customers")
	cmd.Flags().IntVar(&gen.ProductCount, "products", gen.ProductCount, "Number of products")
	cmd.Flags().Float64Var(&gen.ReturnRate, "return-rate", gen.ReturnRate, "Share of invoices that are returns")
	cmd.Flags().Float64Var(&gen.GuestRate, "guest-rate", gen.GuestRate, "Share of invoices without a customer id")
	cmd.Flags().Int64Var(&gen.Seed, "seed", gen.Seed, "Random seed for deterministic output")
	cmd.Flags().StringVar(&start, "start", "", "First invoice date, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last invoice date, YYYY-MM-DD")
	return cmd
}

func runGenerate(ctx context.Context, output string, gen testkit.InvoiceGeneratorConfig) error {
	raw := testkit.NewInvoiceDataGenerator(gen).Generate()
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := snapshot.Write(ctx, output, sales.Frame{Header: raw.Header, Rows: raw.Rows}); err != nil {
		return err
	}
	logger.Info("wrote %d invoice lines to %s", raw.Len(), output)
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the sales schema on the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}
			db, err := store.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			runner := migration.NewRunner()
			if err := runner.Run(cmd.Context(), db); err != nil {
				return err
			}
			logger.Info("schema version %s applied on %s", runner.Version(), cfg.Database.Driver)
			return nil
		},
	}
}
