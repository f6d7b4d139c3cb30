// Package cli implements the woodshop command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/woodshop/internal/catalog"
	"github.com/Simplici0/woodshop/internal/config"
	"github.com/Simplici0/woodshop/internal/db"
	"github.com/Simplici0/woodshop/internal/logging"
	"github.com/Simplici0/woodshop/internal/migrations"
	"github.com/Simplici0/woodshop/internal/store"
	"github.com/Simplici0/woodshop/internal/supabase"
)

const appName = "woodshop"

// CLI holds shared state for all commands.
type CLI struct {
	Logger *zap.Logger
	cfg    config.Config

	dbPath        string
	migrationsDir string
	logLevel      string
	logOutput     string
}

// New creates a CLI. The logger is built once flags are parsed.
func New() *CLI {
	return &CLI{Logger: zap.NewNop()}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Workshop catalog, costing and quoting tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.cfg = config.Load()
			if cmd.Flags().Changed("db") {
				c.cfg.DBPath = c.dbPath
			}
			if cmd.Flags().Changed("migrations") {
				c.cfg.MigrationsDir = c.migrationsDir
			}
			if cmd.Flags().Changed("log-level") {
				c.cfg.LogLevel = c.logLevel
			}

			logger, err := logging.New(logging.Config{
				Level:      c.cfg.LogLevel,
				Format:     "console",
				OutputPath: c.logOutput,
			})
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			c.Logger = logger
			for _, w := range c.cfg.Warnings {
				c.Logger.Debug("configuration", zap.String("warning", w))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.Logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "SQLite database path (default from DB_PATH)")
	root.PersistentFlags().StringVar(&c.migrationsDir, "migrations", "", "migrations directory (default from MIGRATIONS_DIR)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.logOutput, "log-output", "stderr", "log destination")

	root.AddCommand(c.migrateCommand())
	root.AddCommand(c.seedCommand())
	root.AddCommand(c.costCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.cyclesCommand())

	return root
}

// openStore opens and migrates the local database.
func (c *CLI) openStore(ctx context.Context) (*store.Store, func(), error) {
	database, err := db.Open(c.cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.UpContext(ctx, database, c.cfg.MigrationsDir); err != nil {
		database.Close()
		return nil, nil, err
	}
	return store.New(database), func() { _ = database.Close() }, nil
}

// loadCatalog reads a catalog snapshot from the local store or, when
// fromSupabase is set, from the hosted Postgres database.
func (c *CLI) loadCatalog(ctx context.Context, fromSupabase bool) (*catalog.Catalog, error) {
	if fromSupabase {
		if c.cfg.SupabaseDBURL == "" {
			return nil, errors.New("SUPABASE_DB_URL is not set")
		}
		src, err := supabase.Open(ctx, c.cfg.SupabaseDBURL, supabase.WithLogger(c.Logger))
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return src.LoadCatalog(ctx)
	}

	st, closeStore, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return st.Snapshot(ctx)
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
