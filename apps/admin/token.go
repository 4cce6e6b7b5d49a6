package main

import (
	"fmt"

	"github.com/spf13/cobra"

	echoapi "github.com/aminofabian/squlll/apps/api/echo"
	"github.com/aminofabian/squlll/core"
)

func (cli *commandLine) tokenCmd() *cobra.Command {
	var (
		tenant  core.Tenant
		isAdmin bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token acting for the --school tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.schoolID == "" {
				return errNoSchool
			}
			tenant.SchoolID = cli.schoolID
			token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, tenant, isAdmin))
			if err != nil {
				return err
			}
			fmt.Fprintln(cli.out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant.Subject, "subject", "admin-cli", "The token subject")
	cmd.Flags().StringVar(&tenant.Email, "email", "", "An email address notifications are also sent to")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Allow admin-only endpoints")
	return cmd
}
