// Package cli contains the deidctl command definitions.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/ruslano69/tdtp-deid/internal/infra"
)

type rootOptions struct {
	config string
	debug  bool
}

// NewRootCmd creates and returns the root command for deidctl.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "deidctl",
		Short:         "Resolve and apply de-identification plans offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "", "Path to config file (DEID_URL and DEID_SAMPLE are used when empty)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newResolveCmd(opts))
	rootCmd.AddCommand(newTransformCmd(opts))

	return rootCmd
}

// load reads the config and sets up logging for a command run.
func (o *rootOptions) load() (*infra.Config, error) {
	cfg, err := infra.LoadConfig(o.config)
	if err != nil {
		return nil, err
	}
	infra.SetupLogger(cfg.Log, cfg.Debug || o.debug)
	return cfg, nil
}
