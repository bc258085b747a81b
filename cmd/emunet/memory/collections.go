package memorycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/emunet/pkg/cliui"
	"github.com/papercomputeco/emunet/pkg/vector"
)

const collectionsLongDesc string = `List the collections in the configured vector store.

The configured collection is marked. When the store can describe its
collections, their dimensions and distance metric are shown too.

Examples:
  emunet memory collections
  emunet memory collections --vector-store-provider sqlite`

const collectionsShortDesc string = "List vector store collections"

func newCollectionsCmd() *cobra.Command {
	cmder := &memoryCommander{}

	cmd := &cobra.Command{
		Use:   "collections",
		Short: collectionsShortDesc,
		Long:  collectionsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runCollections(cmd)
		},
	}

	cmder.addFlags(cmd)

	return cmd
}

func (c *memoryCommander) runCollections(cmd *cobra.Command) error {
	ctx := cmd.Context()

	driver, err := c.openDriver()
	if err != nil {
		return err
	}
	defer driver.Close()

	names, err := driver.ListCollections(ctx)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("No collections."))
		return nil
	}

	describer, canDescribe := driver.(vector.Describer)

	for _, name := range names {
		marker := " "
		if name == c.cfg.VectorStore.Collection {
			marker = cliui.SuccessMark
		}

		line := fmt.Sprintf("  %s %s", marker, cliui.NameStyle.Render(name))
		if canDescribe {
			if spec, err := describer.DescribeCollection(ctx, name); err == nil {
				line += " " + cliui.DimStyle.Render(fmt.Sprintf("(%d, %s)", spec.Dimensions, spec.Distance))
			}
		}
		fmt.Fprintln(c.out, line)
	}

	return nil
}
