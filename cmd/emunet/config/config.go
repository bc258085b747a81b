// Package configcmder provides the config command for managing persistent
// emunet configuration stored in the .emunet/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent emunet configuration.

Configuration is stored as config.toml in the .emunet/ directory and provides
default values for command flags. CLI flags and EMUNET_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  completion.provider, completion.target, completion.model, completion.max_tokens,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  vector_store.provider, vector_store.target, vector_store.collection,
  vector_store.distance, vector_store.validate_schema,
  memory.enabled, memory.resume_ids,
  chat.system_prompt, chat.markdown

Use subcommands to get, set, or list configuration values:
  emunet config set <key> <value>    Set a configuration value
  emunet config get <key>            Get a configuration value
  emunet config list                 List all configuration values

Examples:
  emunet config set completion.model gpt-4o
  emunet config set vector_store.provider chromem
  emunet config get vector_store.collection
  emunet config list`

const configShortDesc string = "Manage persistent emunet configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
