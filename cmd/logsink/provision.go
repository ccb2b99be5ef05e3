package main

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/V4T54L/logsink/internal/adapter/repository/postgres"
	"github.com/V4T54L/logsink/internal/adapter/repository/relational"
	"github.com/V4T54L/logsink/internal/adapter/repository/sqlite"
	"github.com/V4T54L/logsink/pkg/sink"
)

func newProvisionCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Create the log table and its identity objects, then exit",
		Long: "Runs the schema provisioner once against a relational destination. " +
			"Objects that already exist are left untouched.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			opts, err := cfg.SinkOptions()
			if err != nil {
				return err
			}

			var dialect relational.Dialect
			switch opts.Destination {
			case sink.DestinationPostgres:
				dialect = postgres.Dialect{}
			case sink.DestinationSQLite:
				dialect = sqlite.Dialect{}
			default:
				return errors.Newf("destination %q has no schema to provision", opts.Destination)
			}

			db, err := sql.Open(dialect.DriverName(), opts.ConnectionString)
			if err != nil {
				return errors.Wrap(err, "failed to open database")
			}
			defer db.Close()

			if err := relational.NewProvisioner(db, dialect, opts.TableName, logger).Provision(cmd.Context()); err != nil {
				return err
			}
			logger.Info("schema provisioned", "destination", opts.Destination, "table", opts.TableName)
			return nil
		},
	}
}
