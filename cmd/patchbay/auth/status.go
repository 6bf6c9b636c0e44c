package authcmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/patchbay/pkg/cliui"
	"github.com/papercomputeco/patchbay/pkg/credentials"
)

const statusLongDesc string = `Show the state of stored Claude credentials.

Reports where credentials are stored, when they were last updated, and
whether the access token is still valid. An expired access token is not
an error; the relay refreshes it on the next authenticated request.

Examples:
  patchbay auth status`

const statusShortDesc string = "Show stored credential state"

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(configDir)
		},
	}

	return cmd
}

func runStatus(configDir string) error {
	store, err := credentials.NewStore(configDir)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}

	rec, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if rec == nil {
		fmt.Printf("\n  %s Not logged in.\n", cliui.DimStyle.Render("●"))
		fmt.Printf("  Use 'patchbay auth login' to authorize.\n\n")
		return nil
	}

	fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render("Claude credentials"))
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Stored at:   "), cliui.DimStyle.Render(store.GetTarget()))
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Updated:     "), cliui.ValueStyle.Render(rec.UpdatedAt.Format(time.RFC3339)))

	switch {
	case rec.AccessToken == "":
		fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Access token:"), cliui.DimStyle.Render("<not set>"))
	case rec.Expired(time.Now()):
		fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Access token:"),
			cliui.WarnStyle.Render("expired "+rec.ExpiresAt().Format(time.RFC3339)))
	default:
		fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Access token:"),
			cliui.ValueStyle.Render("valid until "+rec.ExpiresAt().Format(time.RFC3339)))
	}

	if rec.AccessToken == "" || rec.Expired(time.Now()) {
		fmt.Printf("\n  %s The relay refreshes the token automatically on the next request.\n",
			cliui.DimStyle.Render(" "))
	}
	fmt.Println()

	return nil
}
