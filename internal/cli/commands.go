package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"formdeck/internal/meta"
	"formdeck/internal/store/postgres"
)

// loadAndLint читает каталог и печатает найденные проблемы.
func loadAndLint(cmd *cobra.Command, dir string) (*meta.Bundle, error) {
	b, err := meta.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}
	issues := meta.Lint(b.Forms)
	for _, it := range issues {
		fmt.Fprintln(cmd.OutOrStdout(), it.String())
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("%s: %d blocking issues", dir, len(issues))
	}
	return b, nil
}

func (c *CLI) newLintCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "lint <dir>",
		Short:   "Check YAML form configuration for blocking issues",
		Example: `  formctl lint config/forms`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadAndLint(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d forms, %d seed tables\n", len(b.Forms), len(b.Data))
			return nil
		},
	}
}

func (c *CLI) newMigrateCommand() *cobra.Command {
	var tablesDir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the metadata tables (forms, form_sections, form_fields, picklists)",
		Example: `  formctl migrate --db postgres://localhost/formdeck
  formctl migrate --tables config/forms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var b *meta.Bundle
			if tablesDir != "" {
				var err error
				if b, err = loadAndLint(cmd, tablesDir); err != nil {
					return err
				}
			}
			ctx := c.context(cmd)
			st, err := c.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			if b != nil {
				if err := st.MigrateTables(ctx, b.Forms); err != nil {
					return err
				}
			}
			c.log.Info("migration complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&tablesDir, "tables", "", "Also create the data tables described by this configuration directory")
	return cmd
}

func (c *CLI) newDDLCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ddl <dir>",
		Short:   "Print CREATE TABLE statements for the data tables of a configuration",
		Example: `  formctl ddl config/forms > tables.sql`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadAndLint(cmd, args[0])
			if err != nil {
				return err
			}
			ddl, err := postgres.GenerateTableDDL(b.Forms)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(ddl))
			for k := range ddl {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", ddl[k])
			}
			return nil
		},
	}
}

func (c *CLI) newSeedCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "seed <dir>",
		Short: "Upsert YAML form configuration and insert its seed rows",
		Example: `  formctl seed config/forms --db postgres://localhost/formdeck
  formctl seed config/forms --migrate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadAndLint(cmd, args[0])
			if err != nil {
				return err
			}
			ctx := c.context(cmd)
			st, err := c.openDB(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if migrate {
				if err := st.Migrate(ctx); err != nil {
					return err
				}
				if err := st.MigrateTables(ctx, b.Forms); err != nil {
					return err
				}
			}
			if err := st.SeedConfig(ctx, b.Forms); err != nil {
				return err
			}
			c.log.Infow("configuration seeded", "forms", b.Slugs())

			tables := make([]string, 0, len(b.Data))
			for t := range b.Data {
				tables = append(tables, t)
			}
			sort.Strings(tables)
			for _, t := range tables {
				n, err := st.SeedRows(ctx, t, b.Data[t])
				if err != nil {
					return err
				}
				c.log.Infow("rows seeded", "table", t, "inserted", n, "total", len(b.Data[t]))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Create metadata and data tables before seeding")
	return cmd
}
