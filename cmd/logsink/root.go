package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/V4T54L/logsink/internal/pkg/config"
	"github.com/V4T54L/logsink/internal/pkg/logger"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "logsink",
		Short:         "Batching log sink persisting structured events to a datastore",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(opts), newProvisionCmd(opts))
	return cmd
}

// loadConfig resolves the configuration for cmd and installs the application logger.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return nil, nil, err
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	return cfg, log, nil
}
