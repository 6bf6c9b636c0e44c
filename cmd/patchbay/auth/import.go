package authcmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/patchbay/pkg/cliui"
	"github.com/papercomputeco/patchbay/pkg/credentials"
)

const importLongDesc string = `Import Claude credentials from opencode.

Reads opencode's auth.json, extracts the Anthropic OAuth grant, and
stores it as patchbay credentials. Useful when you have already logged
in through opencode and want to skip the browser flow.

Examples:
  patchbay auth import`

const importShortDesc string = "Import credentials from opencode"

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: importShortDesc,
		Long:  importLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runImport(configDir)
		},
	}

	return cmd
}

func runImport(configDir string) error {
	data, authPath := credentials.ReadOpenCodeAuthFile()
	if data == nil {
		return errors.New("no opencode auth.json found")
	}

	rec, ok := credentials.ParseOpenCodeRecord(data)
	if !ok {
		return fmt.Errorf("no Anthropic OAuth grant in %s", authPath)
	}

	store, err := credentials.NewStore(configDir)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}

	if err := store.Save(rec); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Printf("\n  %s Imported credentials from %s\n\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render(authPath),
	)

	return nil
}
