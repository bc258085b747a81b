// Package emunetcmder
package emunetcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/emunet/cmd/emunet/auth"
	chatcmder "github.com/papercomputeco/emunet/cmd/emunet/chat"
	configcmder "github.com/papercomputeco/emunet/cmd/emunet/config"
	initcmder "github.com/papercomputeco/emunet/cmd/emunet/init"
	memorycmder "github.com/papercomputeco/emunet/cmd/emunet/memory"
	versioncmder "github.com/papercomputeco/emunet/cmd/emunet/version"
)

const emunetLongDesc string = `emunet: emulation of human group by llm for high level tasks.

Chat with a completion model while every turn is embedded and remembered in
a vector store (qdrant, chromem or sqlite-vec).

Get started:
  emunet init              Create a .emunet/ directory with a config.toml
  emunet chat              Start an interactive session
  emunet memory get 0 1    Read remembered turns back`

const emunetShortDesc string = "emunet - chat with vector memory"

func NewEmunetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "emunet",
		Short:        emunetShortDesc,
		Long:         emunetLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .emunet/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(memorycmder.NewMemoryCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
