// Package chatcmder provides the chat command: an interactive session with
// a completion model whose turns are remembered in a vector store.
package chatcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/emunet/pkg/chat"
	"github.com/papercomputeco/emunet/pkg/cliui"
	"github.com/papercomputeco/emunet/pkg/config"
	"github.com/papercomputeco/emunet/pkg/credentials"
	"github.com/papercomputeco/emunet/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/emunet/pkg/embeddings/utils"
	"github.com/papercomputeco/emunet/pkg/llm/provider"
	"github.com/papercomputeco/emunet/pkg/logger"
	"github.com/papercomputeco/emunet/pkg/memory"
	"github.com/papercomputeco/emunet/pkg/session"
	"github.com/papercomputeco/emunet/pkg/vector"
	vectorutils "github.com/papercomputeco/emunet/pkg/vector/utils"
)

const chatLongDesc string = `Start an interactive chat session.

Every prompt is sent to the completion model together with the whole
conversation so far. Each answered turn is embedded and stored in the vector
store as two points (prompt and reply) with consecutive ids.

Type /exit or press Ctrl+D to quit. After every reply you are asked whether
to continue; answer "n" to end the session.

Credentials are read from the environment, a .env file or "emunet auth":
  OPENAI_API_KEY (or OPENAI_KEY)   for the openai providers
  QDRANT_API_KEY                   for qdrant cloud

Examples:
  emunet chat
  emunet chat --model gpt-4o --collection team
  emunet chat --vector-store-provider sqlite --embedding-provider ollama
  emunet chat --memory=false`

const chatShortDesc string = "Chat with a model that remembers every turn"

const (
	logFileName     = "emunet.log"
	historyFileName = "history"
)

// chatFlags are every registry flag the chat command accepts.
var chatFlags = []string{
	config.FlagCompletionProv,
	config.FlagCompletionTgt,
	config.FlagModel,
	config.FlagMaxTokens,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagDistance,
	config.FlagMemory,
	config.FlagMarkdown,
	config.FlagSystemPrompt,
}

type chatCommander struct {
	completionProvider string
	completionTarget   string
	model              string
	maxTokens          uint
	embeddingProvider  string
	embeddingTarget    string
	embeddingModel     string
	embeddingDims      uint
	vectorProvider     string
	vectorTarget       string
	collection         string
	distance           string
	memory             bool
	markdown           bool
	systemPrompt       string

	debug     bool
	cfg       *config.Config
	dataDir   string
	openAIKey string
	qdrantKey string

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env file is fine; the environment may already be set.
			_ = godotenv.Load()

			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)
			cmder.cfg = config.FromViper(v)

			cmder.dataDir, err = dotdir.NewManager().Target(configDir)
			if err != nil {
				return fmt.Errorf("resolving data dir: %w", err)
			}

			return cmder.resolveKeys(configDir)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagCompletionProv, &cmder.completionProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagCompletionTgt, &cmder.completionTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxTokens, &cmder.maxTokens)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagDistance, &cmder.distance)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMemory, &cmder.memory)
	config.AddBoolFlag(cmd, config.Flags, config.FlagMarkdown, &cmder.markdown)
	config.AddStringFlag(cmd, config.Flags, config.FlagSystemPrompt, &cmder.systemPrompt)

	return cmd
}

// resolveKeys loads provider API keys from the environment or credentials.toml.
func (c *chatCommander) resolveKeys(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if c.openAIKey, err = mgr.Resolve(credentials.OpenAI); err != nil {
		return err
	}
	if c.qdrantKey, err = mgr.Resolve(credentials.Qdrant); err != nil {
		return err
	}
	return nil
}

func (c *chatCommander) run(ctx context.Context) error {
	closeLog, err := c.initLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := c.cfg
	sessionID := uuid.NewString()

	c.logger.Debug("starting chat session",
		"session_id", sessionID,
		"completion_provider", cfg.Completion.Provider,
		"model", cfg.Completion.Model,
		"memory", cfg.Memory.Enabled,
		"vector_store_provider", cfg.VectorStore.Provider,
		"collection", cfg.VectorStore.Collection,
	)

	completer, err := provider.NewCompleter(&provider.NewCompleterOpts{
		ProviderType: cfg.Completion.Provider,
		TargetURL:    cfg.Completion.Target,
		Model:        cfg.Completion.Model,
		MaxTokens:    cfg.Completion.MaxTokens,
		APIKey:       c.openAIKey,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating completer: %w", err)
	}

	var (
		recorder memory.Recorder
		nextID   uint64
	)

	if cfg.Memory.Enabled {
		writer, closeMemory, err := c.openMemory(ctx, sessionID)
		if err != nil {
			return err
		}
		defer closeMemory()
		recorder = writer

		if cfg.Memory.ResumeIDs {
			nextID, err = writer.NextID(ctx)
			if err != nil {
				return fmt.Errorf("resuming point ids: %w", err)
			}
		}
	}

	sess := session.Resume(sessionID, nextID, session.WithSystemPrompt(cfg.Chat.SystemPrompt))

	reader, closeReader, err := c.lineReader()
	if err != nil {
		return err
	}
	defer closeReader()

	var render func(string) (string, error)
	if cfg.Chat.Markdown {
		render = cliui.RenderMarkdown
	}

	loop, err := chat.NewLoop(chat.Config{
		Session:   sess,
		Completer: completer,
		Recorder:  recorder,
		Reader:    reader,
		Out:       c.out,
		Render:    render,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}

	c.printHeader(sess)

	if err := loop.Run(ctx); err != nil {
		return err
	}

	c.logger.Debug("chat session ended",
		"session_id", sessionID,
		"messages", loop.Session().Len(),
		"next_id", loop.Session().NextID(),
	)
	return nil
}

// openMemory connects the vector store, ensures the collection and builds
// the turn writer. The returned func releases the store and embedder.
func (c *chatCommander) openMemory(ctx context.Context, sessionID string) (*memory.Writer, func(), error) {
	cfg := c.cfg

	spec, err := vector.NewCollectionSpec(cfg.VectorStore.Collection, cfg.Embedding.Dimensions, cfg.VectorStore.Distance)
	if err != nil {
		return nil, nil, err
	}

	driver, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		DataDir:      c.dataDir,
		APIKey:       c.qdrantKey,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening vector store: %w", err)
	}

	manager := vector.NewManager(driver, c.logger, vector.WithSchemaValidation(cfg.VectorStore.ValidateSchema))
	err = cliui.Step(c.errOut, fmt.Sprintf("Preparing collection %s", spec.Name), func() error {
		return manager.EnsureCollection(ctx, spec)
	})
	if err != nil {
		_ = driver.Close()
		return nil, nil, err
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		APIKey:       c.openAIKey,
	})
	if err != nil {
		_ = driver.Close()
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	writer, err := memory.NewWriter(driver, embedder, memory.WriterConfig{
		Collection: spec.Name,
		SessionID:  sessionID,
	}, c.logger)
	if err != nil {
		_ = embedder.Close()
		_ = driver.Close()
		return nil, nil, err
	}

	closer := func() {
		if err := embedder.Close(); err != nil {
			c.logger.Debug("closing embedder", "error", err)
		}
		if err := driver.Close(); err != nil {
			c.logger.Debug("closing vector store", "error", err)
		}
	}
	return writer, closer, nil
}

// lineReader uses readline on an interactive terminal and a plain scanner
// otherwise, so piped input works.
func (c *chatCommander) lineReader() (chat.LineReader, func(), error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		rl, err := chat.NewReadlineReader(filepath.Join(c.dataDir, historyFileName))
		if err != nil {
			return nil, nil, err
		}
		return rl, func() { _ = rl.Close() }, nil
	}

	return chat.NewScannerReader(c.in, c.out), func() {}, nil
}

// initLogger logs to stderr and, when the data dir is known, appends JSON
// records to emunet.log inside it.
func (c *chatCommander) initLogger() (func(), error) {
	pretty := false
	if f, ok := c.errOut.(*os.File); ok {
		pretty = term.IsTerminal(int(f.Fd()))
	}

	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(pretty),
		logger.WithWriter(c.errOut),
	)

	if c.dataDir == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(filepath.Join(c.dataDir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(true),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	c.logger = logger.Multi(console, file)

	return func() { _ = f.Close() }, nil
}

func (c *chatCommander) printHeader(sess *session.Session) {
	cfg := c.cfg

	fmt.Fprintf(c.out, "\n  %s %s\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(cfg.Completion.Model),
	)

	if cfg.Memory.Enabled {
		fmt.Fprintf(c.out, "  %s %s %s\n",
			cliui.KeyStyle.Render("Memory:"),
			cliui.NameStyle.Render(cfg.VectorStore.Collection),
			cliui.DimStyle.Render(fmt.Sprintf("(%s, next id %d)", cfg.VectorStore.Provider, sess.NextID())),
		)
	} else {
		fmt.Fprintf(c.out, "  %s %s\n",
			cliui.KeyStyle.Render("Memory:"),
			cliui.DimStyle.Render("off"),
		)
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))
}
