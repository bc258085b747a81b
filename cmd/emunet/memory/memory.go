// Package memorycmder provides the memory command for inspecting the
// conversational memory stored in the vector store.
package memorycmder

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/emunet/pkg/config"
	"github.com/papercomputeco/emunet/pkg/credentials"
	"github.com/papercomputeco/emunet/pkg/dotdir"
	"github.com/papercomputeco/emunet/pkg/logger"
	"github.com/papercomputeco/emunet/pkg/vector"
	vectorutils "github.com/papercomputeco/emunet/pkg/vector/utils"
)

const memoryLongDesc string = `Inspect the conversational memory stored in the vector store.

Every remembered chat turn is stored as two points: the user prompt and the
assistant reply, with consecutive ids starting at 0.

Examples:
  emunet memory collections
  emunet memory get 0 1
  emunet memory get 4 --collection team`

const memoryShortDesc string = "Inspect stored conversational memory"

// storeFlags are the registry keys shared by the memory subcommands.
var storeFlags = []string{
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
}

type memoryCommander struct {
	vectorProvider string
	vectorTarget   string
	collection     string

	cfg       *config.Config
	dataDir   string
	qdrantKey string
	out       io.Writer
	logger    *slog.Logger
}

func NewMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: memoryShortDesc,
		Long:  memoryLongDesc,
	}

	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newCollectionsCmd())
	cmd.AddCommand(newCountCmd())

	return cmd
}

func (c *memoryCommander) addFlags(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &c.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &c.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &c.collection)
}

// load resolves configuration for cmd. It runs as PreRunE.
func (c *memoryCommander) load(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	v, err := config.InitViper(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, storeFlags)

	c.cfg = config.FromViper(v)
	c.out = cmd.OutOrStdout()
	c.logger = logger.New(logger.WithDebug(debug), logger.WithWriter(cmd.ErrOrStderr()))

	c.dataDir, err = dotdir.NewManager().Target(configDir)
	if err != nil {
		return fmt.Errorf("resolving data dir: %w", err)
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	c.qdrantKey, err = mgr.Resolve(credentials.Qdrant)
	return err
}

func (c *memoryCommander) openDriver() (vector.Driver, error) {
	driver, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType: c.cfg.VectorStore.Provider,
		Target:       c.cfg.VectorStore.Target,
		DataDir:      c.dataDir,
		APIKey:       c.qdrantKey,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	return driver, nil
}
