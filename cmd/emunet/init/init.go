// Package initcmder provides the init command for initializing a local
// .emunet directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/emunet/pkg/cliui"
	"github.com/papercomputeco/emunet/pkg/config"
)

const (
	dirName = ".emunet"

	// remoteConfigLimit caps the size of a config fetched with --preset <url>.
	remoteConfigLimit = 1 << 20
)

const initLongDesc string = `Initialize a new .emunet/ directory in the current working directory.

Creates a local .emunet/ directory that takes precedence over the default
~/.emunet/ directory for configuration and on-disk vector memory.

With --preset, a config.toml is written from a named provider preset
(openai, ollama, local) or fetched from an http(s) URL. Re-running init
with a preset overwrites the existing config.toml.

Examples:
  emunet init
  emunet init --preset ollama
  emunet init --preset https://example.com/emunet/config.toml`

const initShortDesc string = "Initialize a local .emunet/ directory"

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Provider preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	exists := err == nil && info.IsDir()

	if !exists {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .emunet directory: %w", err)
		}
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	switch {
	case c.preset != "":
		cfg, err := c.presetConfig(ctx)
		if err != nil {
			return err
		}
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "  %s Wrote %s %s\n",
			cliui.SuccessMark,
			cfger.GetTarget(),
			cliui.DimStyle.Render(fmt.Sprintf("(preset %s)", c.preset)),
		)

	case !exists:
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return err
		}
	}

	if exists {
		fmt.Fprintf(c.out, "Already initialized: %s\n", dir)
		return nil
	}

	fmt.Fprintf(c.out, "Initialized .emunet directory: %s\n", dir)
	return nil
}

func (c *initCommander) presetConfig(ctx context.Context) (*config.Config, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(ctx, c.preset)
	}
	return config.PresetConfig(c.preset)
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, remoteConfigLimit))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
