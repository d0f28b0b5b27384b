package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syssam/scholar/compiler/gen"
)

// GenOptions holds the flags of the gen command.
type GenOptions struct {
	*RootOptions
	gen.Config
	Watch bool
}

func newGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate typed field handles from a schema file",
		Long: `Render the field and relation handles of every entity of a schema
file into one Go file.

Example:
  scholar gen --schema schema/school/school.yaml --target schema/school/handles_gen.go
  scholar gen --schema school.yaml --target school/handles_gen.go --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGen(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path of the YAML schema (defaults to the configured schema)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "path of the generated file")
	cmd.Flags().StringVar(&opts.Package, "package", "", "package name of the generated file")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "entities rendered in parallel")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "regenerate when the schema file changes")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func runGen(cmd *cobra.Command, opts *GenOptions) error {
	cfg := opts.Config
	if cfg.Schema == "" {
		cfg.Schema = opts.cfg.Schema
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if !opts.Watch {
		if err := gen.Run(ctx, cfg); err != nil {
			return err
		}
		opts.log.Info("generated handles")
		return nil
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return gen.Watch(ctx, cfg, opts.log, nil)
}
