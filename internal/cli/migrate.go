package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/scholar/migrate"
)

// MigrateOptions holds the flags of the migrate command.
type MigrateOptions struct {
	*RootOptions
	DryRun      bool
	DropColumns bool
	DropIndexes bool
}

func newMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the tables of the schema",
		Long: `Compare the database with the schema graph and apply the changes.

Example:
  scholar migrate --dry-run
  SCHOLAR_DIALECT=postgres SCHOLAR_DSN=postgres://localhost/school scholar migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the statements instead of running them")
	cmd.Flags().BoolVar(&opts.DropColumns, "drop-columns", false, "drop columns absent from the schema")
	cmd.Flags().BoolVar(&opts.DropIndexes, "drop-indexes", false, "drop indexes absent from the schema")
	return cmd
}

func runMigrate(cmd *cobra.Command, opts *MigrateOptions) error {
	ctx := cmd.Context()
	s, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	m, err := migrate.New(s.db.DB(), opts.cfg.Dialect, s.graph,
		migrate.WithLogger(opts.log),
		migrate.WithDropColumn(opts.DropColumns),
		migrate.WithDropIndex(opts.DropIndexes),
	)
	if err != nil {
		return err
	}
	if !opts.DryRun {
		return m.Create(ctx)
	}
	plan, err := m.Plan(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(plan.Changes) == 0 {
		fmt.Fprintln(out, "-- schema is up to date")
		return nil
	}
	for _, c := range plan.Changes {
		if c.Comment != "" {
			fmt.Fprintf(out, "-- %s\n", c.Comment)
		}
		fmt.Fprintf(out, "%s;\n", c.Cmd)
	}
	return nil
}
