package memorycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/emunet/pkg/cliui"
	"github.com/papercomputeco/emunet/pkg/memory"
)

const countShortDesc string = "Show how many points and turns are remembered"

func newCountCmd() *cobra.Command {
	cmder := &memoryCommander{}

	cmd := &cobra.Command{
		Use:   "count",
		Short: countShortDesc,
		Long: `Show how many points the configured collection holds. This is also the
id the next chat session starts at when memory.resume_ids is enabled.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			driver, err := cmder.openDriver()
			if err != nil {
				return err
			}
			defer driver.Close()

			reader, err := memory.NewReader(driver, cmder.cfg.VectorStore.Collection)
			if err != nil {
				return err
			}

			n, err := reader.NextID(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmder.out, "  %s %s %s\n",
				cliui.KeyStyle.Render(cmder.cfg.VectorStore.Collection+":"),
				cliui.ValueStyle.Render(fmt.Sprintf("%d points", n)),
				cliui.DimStyle.Render(fmt.Sprintf("(%d turns)", n/memory.PointsPerTurn)),
			)
			return nil
		},
	}

	cmder.addFlags(cmd)

	return cmd
}
