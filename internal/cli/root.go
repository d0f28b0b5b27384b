// Package cli implements the scholar command.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/scholar/config"
)

// RootOptions holds the global flags and the state loaded from them.
type RootOptions struct {
	ConfigPath  string
	EnvFiles    []string
	Verbose     bool
	MetricsAddr string

	// Lookup replaces the process environment (for testing).
	Lookup func(string) (string, bool)

	cfg *config.Config
	log *zap.Logger
}

// NewRootCommand creates the root command of the scholar CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	return newRootCommand(opts)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scholar",
		Short: "Tenant-scoped query engine for the school schema",
		Long: `scholar migrates, generates handles for and queries the entities
of a school schema graph. Settings are read from a YAML file and
SCHOLAR_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path of the YAML settings file")
	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, "dotenv files read before the environment")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve driver metrics on this address while the command runs")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newGenCommand(opts))
	cmd.AddCommand(newQueryCommand(opts))
	return cmd
}

func (o *RootOptions) load() error {
	copts := []config.Option{config.WithEnvFile(o.EnvFiles...)}
	if o.Lookup != nil {
		copts = append(copts, config.WithLookup(o.Lookup))
	}
	cfg, err := config.Load(o.ConfigPath, copts...)
	if err != nil {
		return err
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if o.MetricsAddr != "" {
		cfg.Metrics.Enabled = true
	}
	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	o.cfg, o.log = cfg, log
	log.Debug("settings loaded", cfg.Fields()...)
	return nil
}
