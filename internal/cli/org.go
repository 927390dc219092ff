package cli

import (
	"fmt"
	"os"

	"github.com/siteflow/siteflow/internal/services"
	"github.com/spf13/cobra"
)

type createOrgOptions struct {
	Name          string
	Slug          string
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// NewCreateOrgCommand creates the create-org command.
func NewCreateOrgCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &createOrgOptions{}

	cmd := &cobra.Command{
		Use:          "create-org",
		Short:        "Provision an organization with its first ADMIN user",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(rootOpts, os.Getenv)
			if err != nil {
				return err
			}
			defer s.Close()

			org, admin, err := services.CreateOrganization(cmd.Context(), s.db, services.NewOrganization{
				Name:          opts.Name,
				Slug:          opts.Slug,
				AdminName:     opts.AdminName,
				AdminEmail:    opts.AdminEmail,
				AdminPassword: opts.AdminPassword,
			})
			if err != nil {
				return fmt.Errorf("create-org: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "organization %s (%s) created, admin %s <%s>\n", org.Slug, org.ID, admin.ID, admin.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "organization display name")
	cmd.Flags().StringVar(&opts.Slug, "slug", "", "unique organization slug")
	cmd.Flags().StringVar(&opts.AdminName, "admin-name", "Administrator", "admin display name")
	cmd.Flags().StringVar(&opts.AdminEmail, "admin-email", "", "admin login email")
	cmd.Flags().StringVar(&opts.AdminPassword, "admin-password", "", "admin password (min 8 characters)")
	for _, name := range []string{"name", "slug", "admin-email", "admin-password"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
