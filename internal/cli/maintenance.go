package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/siteflow/siteflow/internal/services"
	"github.com/spf13/cobra"
)

// NewSweepShareLinksCommand creates the sweep-share-links command.
func NewSweepShareLinksCommand(rootOpts *RootOptions) *cobra.Command {
	var olderThanDays int

	cmd := &cobra.Command{
		Use:          "sweep-share-links",
		Short:        "Revoke share links that expired long ago",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(rootOpts, os.Getenv)
			if err != nil {
				return err
			}
			defer s.Close()

			days := s.cfg.Share.PurgeAfterDays
			if cmd.Flags().Changed("older-than-days") {
				days = olderThanDays
			}

			projects := services.NewProjectService(s.db, services.NewWorkCalendar(s.cfg.Calendar.DefaultCountry))
			shares := services.NewShareLinkService(s.db, projects, s.cfg.Share)
			n, err := shares.SweepExpired(cmd.Context(), days, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("sweep-share-links: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %d share link(s) expired more than %d day(s) ago\n", n, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThanDays, "older-than-days", 0, "grace period after expiry (defaults to share.purge_after_days)")
	return cmd
}

// NewCleanupLogsCommand creates the cleanup-logs command.
func NewCleanupLogsCommand(rootOpts *RootOptions) *cobra.Command {
	var retentionDays int

	cmd := &cobra.Command{
		Use:          "cleanup-logs",
		Short:        "Delete system logs past the retention period",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(rootOpts, os.Getenv)
			if err != nil {
				return err
			}
			defer s.Close()

			days := s.cfg.Scheduler.LogRetentionDays
			if cmd.Flags().Changed("retention-days") {
				days = retentionDays
			}

			n, err := services.NewSystemLogService(s.db).CleanupOldLogs(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("cleanup-logs: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d system log(s) older than %d day(s)\n", n, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "days to keep (defaults to scheduler.log_retention_days)")
	return cmd
}
