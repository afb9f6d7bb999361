package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vibedata/platform/pkg/clients"
	"github.com/vibedata/platform/pkg/config"
	"github.com/vibedata/platform/pkg/errors"
	"github.com/vibedata/platform/pkg/export"
	"github.com/vibedata/platform/pkg/extract"
	"github.com/vibedata/platform/pkg/ingest"
	"github.com/vibedata/platform/pkg/logger"
	"github.com/vibedata/platform/pkg/objectstore"
	"github.com/vibedata/platform/pkg/pool"
	syncpkg "github.com/vibedata/platform/pkg/sync"
)

var version = "0.1.0"

var (
	flagConfig   string
	flagDataDir  string
	flagLogLevel string
	flagWorkers  int
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "vibe",
		Short: "Vibe - data movement and reconciliation engine",
		Long: `Vibe moves structured data between remote APIs, a local DuckDB
analytical store, and Azure Blob Storage, and keeps all three tiers
reconcilable.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(logger.Config{
				Level:    flagLogLevel,
				Encoding: "console",
			})
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "config/sources.yml", "Path to the source catalog")
	root.PersistentFlags().StringVar(&flagDataDir, "data-dir", ".", "Data root anchoring relative paths")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().IntVar(&flagWorkers, "workers", runtime.NumCPU(), "Maximum concurrent item operations")

	root.AddCommand(versionCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(extractCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(exportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Vibe v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(flagConfig, flagDataDir)
}

// newStoreClient builds the object store client for commands that
// require remote storage. Missing credentials are fatal here.
func newStoreClient(cfg *config.Config) (objectstore.Client, error) {
	if !cfg.Azure.Enabled {
		return nil, errors.New(errors.ErrorTypeConfig, "azure storage is disabled in the source catalog")
	}
	creds, err := cfg.ResolveAzureCredentials()
	if err != nil {
		return nil, err
	}
	return objectstore.NewAzureClient(creds, nil, logger.Get())
}

// optionalStoreClient builds the object store client for commands where
// remote storage is an optional capability. When unavailable, the
// disabled client is returned and the reason logged.
func optionalStoreClient(cfg *config.Config) objectstore.Client {
	client, err := newStoreClient(cfg)
	if err != nil {
		logger.Warn("remote storage unavailable, skipping azure upload", zap.Error(err))
		return objectstore.Disabled{}
	}
	return client
}

func ingestCmd() *cobra.Command {
	var (
		file       string
		table      string
		list       bool
		schemaFile string
		toAzure    bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest data files into the analytical store",
		Long: `Ingest CSV, Parquet and JSON files into DuckDB. Without flags every
enabled file source is ingested; --file targets one file regardless of
the catalog. Partial per-item failures do not fail the command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			runLog := ingest.NewRunLog(cfg.RunLogPath())
			materializer := ingest.NewMaterializer(cfg.DatabasePath(), runLog, logger.Get())
			defer materializer.Close()
			coordinator := ingest.NewCoordinator(materializer, &ingest.CoordinatorConfig{Workers: flagWorkers}, logger.Get())

			ctx := context.Background()

			if list {
				printSourceFiles(coordinator.ListFiles(cfg))
				return nil
			}

			if schemaFile != "" {
				return printSchema(ctx, materializer, cfg, schemaFile)
			}

			if file != "" {
				path := resolveDataFile(cfg, file)
				tableName, rows, err := coordinator.IngestOne(ctx, path, table)
				if err != nil {
					return err
				}
				fmt.Printf("Ingested %s into %s (%d rows)\n", file, tableName, rows)
				if toAzure {
					uploadAfterIngest(ctx, cfg)
				}
				return nil
			}

			summary := coordinator.IngestAll(ctx, cfg)
			printSummary("Ingestion", summary)
			if toAzure && summary.Succeeded > 0 {
				uploadAfterIngest(ctx, cfg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Specific file to ingest")
	cmd.Flags().StringVar(&table, "table", "", "Table name (default: raw_<filename>)")
	cmd.Flags().BoolVar(&list, "list", false, "List files matched by enabled sources")
	cmd.Flags().StringVar(&schemaFile, "schema", "", "Show the inferred schema of a file")
	cmd.Flags().BoolVar(&toAzure, "azure", false, "Upload raw files to Azure after ingestion")
	return cmd
}

// uploadAfterIngest pushes the raw tier after a successful ingestion.
// Remote storage being unavailable is a warning, not a failure.
func uploadAfterIngest(ctx context.Context, cfg *config.Config) {
	store := optionalStoreClient(cfg)
	reconciler := syncpkg.NewReconciler(store, cfg, &syncpkg.ReconcilerConfig{Workers: flagWorkers}, logger.Get())
	summary := reconciler.Upload(ctx, syncpkg.Scope{Raw: true}, syncpkg.TransferOptions{Overwrite: true})
	printSummary("Azure upload", summary)
}

func resolveDataFile(cfg *config.Config, name string) string {
	candidate := filepath.Join(cfg.RawDir(), name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return name
}

func printSchema(ctx context.Context, materializer *ingest.Materializer, cfg *config.Config, name string) error {
	schema, err := materializer.Describe(ctx, resolveDataFile(cfg, name))
	if err != nil {
		return err
	}
	fmt.Printf("Schema for: %s\n", name)
	fmt.Printf("%-30s %-20s\n", "Column", "Type")
	for _, col := range schema.Columns {
		fmt.Printf("%-30s %-20s\n", col.Name, col.Type)
	}
	fmt.Printf("\nTotal rows: %d\n", schema.RowCount)
	return nil
}

func printSourceFiles(sources []ingest.SourceFiles) {
	fmt.Println("Available data files:")
	for _, sf := range sources {
		fmt.Printf("\n%s (%s):\n", sf.Source, sf.Dir)
		if len(sf.Files) == 0 {
			fmt.Println("  (no files found)")
			continue
		}
		for _, f := range sf.Files {
			fmt.Printf("  - %s (%d bytes)\n", f.Name, f.Size)
		}
	}
}

func extractCmd() *cobra.Command {
	var (
		api      string
		endpoint string
		list     bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract data from configured API sources",
		Long: `Extract every endpoint of every enabled API source, or a single
source or endpoint. Responses are written as JSON artifacts. Partial
per-endpoint failures do not fail the command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if list {
				printAPISources(cfg)
				return nil
			}

			httpClient := clients.NewHTTPClient(nil, logger.Get())
			defer httpClient.Close()
			fetcher := extract.NewFetcher(httpClient, logger.Get())
			coordinator := extract.NewCoordinator(fetcher, &extract.CoordinatorConfig{Workers: flagWorkers}, logger.Get())

			summary, err := coordinator.ExtractAll(context.Background(), cfg, extract.Options{
				API:      api,
				Endpoint: endpoint,
			})
			if err != nil {
				return err
			}
			printSummary("Extraction", summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&api, "api", "", "Specific API source to extract from")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Specific endpoint name to extract")
	cmd.Flags().BoolVar(&list, "list", false, "List configured API sources")
	return cmd
}

func printAPISources(cfg *config.Config) {
	fmt.Println("Configured API sources:")
	for _, src := range cfg.EnabledAPISources() {
		fmt.Printf("\n  %s [ENABLED]\n", src.Name)
		fmt.Printf("    Base URL: %s\n", src.BaseURL)
		fmt.Printf("    Auth: %s\n", src.AuthType)
		for _, ep := range src.Endpoints {
			fmt.Printf("      - %s: %s\n", ep.Name, ep.Path)
		}
	}
}

func syncCmd() *cobra.Command {
	var (
		rawOnly   bool
		dbOnly    bool
		logsOnly  bool
		overwrite bool
		suffix    string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local data with Azure Blob Storage",
	}

	scope := func() syncpkg.Scope {
		return syncpkg.Scope{Raw: rawOnly, Database: dbOnly, Logs: logsOnly}
	}

	newReconciler := func() (*syncpkg.Reconciler, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		store, err := newStoreClient(cfg)
		if err != nil {
			return nil, err
		}
		return syncpkg.NewReconciler(store, cfg, &syncpkg.ReconcilerConfig{Workers: flagWorkers}, logger.Get()), nil
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Compare local files with Azure containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			reconciler, err := newReconciler()
			if err != nil {
				return err
			}
			report, err := reconciler.Status(context.Background(), scope())
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}

	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download from Azure to the local tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			reconciler, err := newReconciler()
			if err != nil {
				return err
			}
			summary := reconciler.Download(context.Background(), scope(), syncpkg.TransferOptions{
				Overwrite: overwrite,
				Suffix:    suffix,
			})
			printSummary("Download", summary)
			return nil
		},
	}
	downloadCmd.Flags().BoolVar(&overwrite, "overwrite", true, "Replace existing local files")
	downloadCmd.Flags().StringVar(&suffix, "suffix", "", "Only download keys with this suffix")

	uploadCmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload from the local tree to Azure",
		RunE: func(cmd *cobra.Command, args []string) error {
			reconciler, err := newReconciler()
			if err != nil {
				return err
			}
			summary := reconciler.Upload(context.Background(), scope(), syncpkg.TransferOptions{Overwrite: true})
			printSummary("Upload", summary)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&rawOnly, "raw", false, "Only the raw data tier")
	cmd.PersistentFlags().BoolVar(&dbOnly, "db", false, "Only the database tier")
	cmd.PersistentFlags().BoolVar(&logsOnly, "logs", false, "Only the logs tier (upload)")
	cmd.AddCommand(statusCmd, downloadCmd, uploadCmd)
	return cmd
}

func printReport(report *syncpkg.Report) {
	fmt.Println("Sync status: local vs Azure")

	if report.Raw != nil {
		fmt.Println("\n[raw container]")
		fmt.Printf("  In sync:     %d files\n", len(report.Raw.InBoth))
		fmt.Printf("  Local only:  %d files %v\n", len(report.Raw.OnlyLocal), report.Raw.OnlyLocal)
		fmt.Printf("  Azure only:  %d files %v\n", len(report.Raw.OnlyRemote), report.Raw.OnlyRemote)
	}

	if report.Database != nil {
		fmt.Println("\n[duckdb container]")
		fmt.Printf("  %s: %s\n", report.Database.Key, report.Database.String())
	}
}

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export dashboard tables to Parquet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			outputDir := cfg.ExportDir()
			if output != "" {
				outputDir = output
			}

			exporter := export.NewExporter(cfg.DatabasePath(), logger.Get())
			summary, err := exporter.Run(context.Background(), outputDir, export.DefaultExports)
			if err != nil {
				return err
			}
			printSummary("Export", summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Output directory (default: catalog export_dir)")
	return cmd
}

// printSummary reports aggregate counts. Partial per-item failures are
// reported here, never propagated as a process failure.
func printSummary(operation string, summary pool.Summary) {
	if summary.Skipped > 0 {
		fmt.Printf("%s complete: %d succeeded, %d failed, %d skipped\n",
			operation, summary.Succeeded, summary.Failed, summary.Skipped)
		return
	}
	fmt.Printf("%s complete: %d succeeded, %d failed\n",
		operation, summary.Succeeded, summary.Failed)
}
