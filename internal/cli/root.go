// Package cli implements siteflowctl, the operator command line for a SiteFlow store.
package cli

import (
	"github.com/siteflow/siteflow/internal/config"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command for siteflowctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "siteflowctl",
		Short:         "SiteFlow operator tool",
		Long:          "Operator commands for a SiteFlow deployment: schema migration, tenant provisioning and maintenance jobs.",
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			logger.Init(level)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config.yaml (defaults to $CONFIG_PATH, then ./config.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCreateOrgCommand(opts))
	cmd.AddCommand(NewSweepShareLinksCommand(opts))
	cmd.AddCommand(NewCleanupLogsCommand(opts))

	return cmd
}

// store is an opened database together with the config it came from.
type store struct {
	cfg *config.Config
	db  *gorm.DB
}

func (s *store) Close() {
	if err := models.CloseDB(s.db); err != nil {
		logger.Warn().Err(err).Msg("failed to close database")
	}
}

// openStore loads configuration and connects to the configured database.
func openStore(opts *RootOptions, getenv func(string) string) (*store, error) {
	path := opts.ConfigPath
	if path == "" {
		path = getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	db, err := models.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	return &store{cfg: cfg, db: db}, nil
}
