package cli

import (
	"fmt"
	"os"

	"github.com/siteflow/siteflow/internal/models"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the database schema",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(rootOpts, os.Getenv)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := models.AutoMigrate(s.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema migrated (%s)\n", s.cfg.Database.Driver)
			return nil
		},
	}
}
