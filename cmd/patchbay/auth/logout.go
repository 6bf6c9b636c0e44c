package authcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/patchbay/pkg/cliui"
	"github.com/papercomputeco/patchbay/pkg/credentials"
)

const logoutLongDesc string = `Remove stored Claude credentials.

Deletes credentials.json from the .patchbay/ directory. Running the
login flow again restores access.

Examples:
  patchbay auth logout`

const logoutShortDesc string = "Remove stored credentials"

func newLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: logoutShortDesc,
		Long:  logoutLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runLogout(configDir)
		},
	}

	return cmd
}

func runLogout(configDir string) error {
	store, err := credentials.NewStore(configDir)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}

	fmt.Printf("\n  %s Removed stored credentials.\n\n", cliui.SuccessMark)

	return nil
}
