// Package patchbaycmder
package patchbaycmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/patchbay/cmd/patchbay/auth"
	configcmder "github.com/papercomputeco/patchbay/cmd/patchbay/config"
	servecmder "github.com/papercomputeco/patchbay/cmd/patchbay/serve"
	versioncmder "github.com/papercomputeco/patchbay/cmd/version"
)

const patchbayLongDesc string = `Patchbay is an authenticated relay for inference APIs.

Log in once with your Claude subscription, then point tools at the relay:
  patchbay auth login      Authorize with your Claude account
  patchbay serve           Run the relay server
  patchbay config list     Show the persistent configuration`

const patchbayShortDesc string = "Patchbay - Inference API Relay"

func NewPatchbayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patchbay",
		Short: patchbayShortDesc,
		Long:  patchbayLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .patchbay/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
