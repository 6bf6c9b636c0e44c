// Package authcmder provides the auth command for managing Claude credentials.
package authcmder

import (
	"github.com/spf13/cobra"
)

const authLongDesc string = `Manage Claude credentials for the authenticated relay.

Credentials are stored in credentials.json in the .patchbay/ directory
and refreshed automatically while the relay is serving. Login uses the
OAuth authorization-code flow with your Claude subscription; no API key
is required.

Use subcommands to log in, inspect, or clear stored credentials:
  patchbay auth login     Authorize with your Claude account
  patchbay auth status    Show stored credential state
  patchbay auth logout    Remove stored credentials
  patchbay auth import    Import credentials from opencode

Examples:
  patchbay auth login
  echo "$CODE" | patchbay auth login
  patchbay auth status`

const authShortDesc string = "Manage Claude credentials"

func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
	}

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newImportCmd())

	return cmd
}
