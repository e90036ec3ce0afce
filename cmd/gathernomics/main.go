// Command gathernomics downloads StatsCan tables, normalizes them into
// financial factors and stores them in PostgreSQL and/or a CSV file.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gathernomics/internal/config"
	_ "github.com/JonMunkholm/gathernomics/internal/core/filters" // Register all filters
)

// options holds command-line overrides. Unset flags leave the environment
// configuration untouched.
type options struct {
	envFile     string
	debug       bool
	tables      string
	output      string
	stagingDir  string
	databaseURL string
	dbHost      string
	dbPort      int
	dbUser      string
	dbPassword  string
	dbName      string
	cleanup     bool
	metricsAddr string
	only        []string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "gathernomics",
		Short: "Gather Statistics Canada tables into financial factors",
		Long: `Downloads every enabled table listed in the tables config, extracts the
data CSV, keeps the rows each table's filter selects and writes them as
financial factors.

Settings come from the environment (and .env); flags override them.

Example:
  gathernomics --config tables.json --output factors.csv
  gathernomics --database-url postgres://user@localhost/factors --cleanup`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGather(cmd, opts)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&opts.envFile, "env-file", ".env", "Environment file to load if present")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	f.StringVarP(&opts.tables, "config", "c", "", "Tables config file, JSON or YAML (env TABLES_CONFIG)")
	f.StringVarP(&opts.output, "output", "o", "", `Write all records to this CSV file, "-" for stdout (env OUTPUT_PATH)`)
	f.StringVar(&opts.stagingDir, "staging-dir", "", "Directory for downloaded zips (env STAGING_DIR)")
	f.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection string (env DATABASE_URL)")
	f.StringVar(&opts.dbHost, "db-host", "", "Database host (env DB_HOST)")
	f.IntVar(&opts.dbPort, "db-port", 0, "Database port (env DB_PORT)")
	f.StringVar(&opts.dbUser, "db-user", "", "Database user (env DB_USER)")
	f.StringVar(&opts.dbPassword, "db-password", "", "Database password (env DB_PASSWORD)")
	f.StringVar(&opts.dbName, "db-name", "", "Database name (env DB_NAME)")
	f.BoolVar(&opts.cleanup, "cleanup", false, "Remove staged files when the run ends (env CLEANUP)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address (env METRICS_ADDR)")
	f.StringSliceVarP(&opts.only, "table", "t", nil, "Only process the named table; repeatable (env TABLES)")

	rootCmd.AddCommand(newFiltersCmd())
	return rootCmd
}

// apply copies every flag the user set onto cfg.
func (o *options) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if o.debug {
		cfg.Logging.Level = "debug"
	}
	if changed("config") {
		cfg.Run.TablesConfig = o.tables
	}
	if changed("output") {
		cfg.Run.OutputPath = o.output
	}
	if changed("staging-dir") {
		cfg.Acquire.StagingDir = o.stagingDir
	}
	if changed("database-url") {
		cfg.Database.URL = o.databaseURL
	}
	if changed("db-host") {
		cfg.Database.Host = o.dbHost
	}
	if changed("db-port") {
		cfg.Database.Port = o.dbPort
	}
	if changed("db-user") {
		cfg.Database.User = o.dbUser
	}
	if changed("db-password") {
		cfg.Database.Password = o.dbPassword
	}
	if changed("db-name") {
		cfg.Database.Name = o.dbName
	}
	if changed("cleanup") {
		cfg.Run.Cleanup = o.cleanup
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}
	if changed("table") {
		cfg.Run.Tables = o.only
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("gathernomics failed", "error", err)
		os.Exit(1)
	}
}
