package memorycmder

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/emunet/pkg/cliui"
	"github.com/papercomputeco/emunet/pkg/memory"
	"github.com/papercomputeco/emunet/pkg/utils"
)

const getLongDesc string = `Read remembered points back by id and print their text.

Ids that are not stored are reported as missing.

Examples:
  emunet memory get 0 1
  emunet memory get 10 --full`

const getShortDesc string = "Read remembered points by id"

// previewLen is how much of each text is printed without --full.
const previewLen = 120

func newGetCmd() *cobra.Command {
	cmder := &memoryCommander{}
	var full bool

	cmd := &cobra.Command{
		Use:   "get <id>...",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return cmder.runGet(cmd, ids, full)
		},
	}

	cmder.addFlags(cmd)
	cmd.Flags().BoolVar(&full, "full", false, "Print the full text instead of a preview")

	return cmd
}

func (c *memoryCommander) runGet(cmd *cobra.Command, ids []uint64, full bool) error {
	driver, err := c.openDriver()
	if err != nil {
		return err
	}
	defer driver.Close()

	reader, err := memory.NewReader(driver, c.cfg.VectorStore.Collection)
	if err != nil {
		return err
	}

	points, err := reader.Recall(cmd.Context(), ids)
	if err != nil {
		return err
	}

	found := make(map[uint64]bool, len(points))
	for _, p := range points {
		found[p.ID] = true

		text := p.Payload.Text
		if !full {
			text = utils.Truncate(text, previewLen)
		}

		fmt.Fprintf(c.out, "  %s %s  %s\n",
			cliui.KeyStyle.Render(fmt.Sprintf("#%d", p.ID)),
			cliui.NameStyle.Render(p.Payload.Role),
			cliui.ValueStyle.Render(text),
		)
	}

	for _, id := range ids {
		if !found[id] {
			fmt.Fprintf(c.out, "  %s %s\n",
				cliui.KeyStyle.Render(fmt.Sprintf("#%d", id)),
				cliui.DimStyle.Render("<missing>"),
			)
		}
	}

	return nil
}

func parseIDs(args []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point id %q: must be a non-negative integer", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
