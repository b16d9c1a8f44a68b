// Package cli implements formctl, the maintenance tool for form configuration.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"formdeck/internal/store/postgres"
	"formdeck/pkg/logger"
)

// CLI encapsulates the command-line interface with its dependencies.
type CLI struct {
	version string
	verbose bool
	dbURL   string
	log     *logger.Logger
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given version string.
func New(version string) *CLI {
	c := &CLI{version: version}
	c.setupCommands()
	return c
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:           "formctl",
		Short:         "Lint, migrate and seed formdeck form configuration",
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initLogger()
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	c.rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug output")
	c.rootCmd.PersistentFlags().StringVar(&c.dbURL, "db", os.Getenv("FORMDECK_DB_URL"), "Postgres URL")

	c.rootCmd.AddCommand(c.newLintCommand())
	c.rootCmd.AddCommand(c.newMigrateCommand())
	c.rootCmd.AddCommand(c.newSeedCommand())
	c.rootCmd.AddCommand(c.newDDLCommand())
}

// Run executes the CLI with os.Args.
func (c *CLI) Run() error {
	return c.rootCmd.Execute()
}

func (c *CLI) initLogger() error {
	if c.log != nil {
		return nil
	}
	level := "info"
	if c.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Development: true, OutputPaths: []string{"stderr"}})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.log = log
	return nil
}

func (c *CLI) context(cmd *cobra.Command) context.Context {
	return logger.WithLogger(cmd.Context(), c.log)
}

// openDB открывает Postgres из --db.
func (c *CLI) openDB(ctx context.Context) (*postgres.Store, error) {
	if c.dbURL == "" {
		return nil, fmt.Errorf("--db (or FORMDECK_DB_URL) is required")
	}
	db, err := postgres.Open(ctx, c.dbURL, postgres.DefaultPool)
	if err != nil {
		return nil, err
	}
	return postgres.New(db), nil
}
