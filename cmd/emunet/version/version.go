// Package versioncmder
package versioncmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/emunet/pkg/utils"
)

type VersionCommander struct {
	out io.Writer
}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run()
		},
	}

	return cmd
}

func (c *VersionCommander) run() error {
	fmt.Fprintf(c.out, "Version: %s\nSha: %s\nBuilt at: %s\n", utils.Version, utils.Sha, utils.Buildtime)
	return nil
}
