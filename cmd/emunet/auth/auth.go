// Package authcmder provides the auth command for storing API credentials.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/emunet/pkg/cliui"
	"github.com/papercomputeco/emunet/pkg/credentials"
)

const authLongDesc string = `Store API credentials for providers.

Credentials are stored in credentials.toml in the .emunet/ directory. An
environment variable of the same provider always takes precedence over the
stored key.

Supported providers: openai, qdrant

Examples:
  emunet auth openai              Prompt for OpenAI API key
  emunet auth qdrant              Prompt for Qdrant Cloud API key
  emunet auth --list              List stored credentials
  emunet auth --remove openai     Remove stored OpenAI credentials
  echo $KEY | emunet auth openai  Pipe API key from stdin`

const authShortDesc string = "Store API credentials for providers"

type authCommander struct {
	configDir string
	in        io.Reader
	out       io.Writer
}

func NewAuthCmd() *cobra.Command {
	cmder := &authCommander{}
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			switch {
			case listFlag:
				return cmder.runList()
			case removeFlag != "":
				return cmder.runRemove(removeFlag)
			default:
				if len(args) == 0 {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return cmder.runAuth(args[0])
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func (c *authCommander) runAuth(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := c.readAPIKey(provider)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("("+credentials.EnvVarForProvider(provider)+" overrides it)"),
	)
	return nil
}

func (c *authCommander) runList() error {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	providers, err := mgr.ListProviders()
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		fmt.Fprintf(c.out, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(c.out, "  Use 'emunet auth <provider>' to store credentials.\n")
		fmt.Fprintf(c.out, "  Supported providers: %s\n\n", strings.Join(credentials.SupportedProviders(), ", "))
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.KeyStyle.Render("Stored credentials"))
	for _, p := range providers {
		envVar := credentials.EnvVarForProvider(p)
		if envVar != "" {
			fmt.Fprintf(c.out, "  %s  %s  %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(p),
				cliui.DimStyle.Render("← "+envVar),
			)
		} else {
			fmt.Fprintf(c.out, "  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(p))
		}
	}
	fmt.Fprintln(c.out)

	return nil
}

func (c *authCommander) runRemove(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))

	return nil
}

// readAPIKey prompts with hidden input on a terminal and otherwise reads the
// first line of input.
func (c *authCommander) readAPIKey(provider string) (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(c.out, "Enter API key for %s (%s): ", provider, credentials.EnvVarForProvider(provider))

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(c.in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
