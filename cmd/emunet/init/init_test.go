package initcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/emunet/cmd/emunet/init"
	"github.com/papercomputeco/emunet/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("accepts zero arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	run := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "emunet-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("creates a .emunet directory in the current directory", func() {
		Expect(run()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".emunet"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("creates a config.toml with default values", func() {
		Expect(run()).To(Succeed())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Completion.Model).To(Equal("gpt-4"))
		Expect(cfg.Completion.MaxTokens).To(Equal(uint(512)))
		Expect(cfg.VectorStore.Provider).To(Equal("qdrant"))
		Expect(cfg.VectorStore.Collection).To(Equal("emunet"))
		Expect(cfg.Memory.Enabled).To(BeTrue())
	})

	It("does not overwrite existing contents when already initialized", func() {
		emunetDir := filepath.Join(tmpDir, ".emunet")
		Expect(os.MkdirAll(emunetDir, 0o755)).To(Succeed())

		configFile := filepath.Join(emunetDir, "config.toml")
		Expect(os.WriteFile(configFile, []byte("[completion]\nmodel = \"custom\"\n"), 0o600)).To(Succeed())

		Expect(run()).To(Succeed())

		data, err := os.ReadFile(configFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("[completion]\nmodel = \"custom\"\n"))
	})

	Describe("--preset with provider presets", func() {
		It("creates config.toml with openai preset", func() {
			Expect(run("--preset", "openai")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Completion.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		})

		It("creates config.toml with ollama preset", func() {
			Expect(run("--preset", "ollama")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Completion.Provider).To(Equal("ollama"))
			Expect(cfg.Completion.Target).To(Equal("http://localhost:11434"))
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		})

		It("creates config.toml with local preset", func() {
			Expect(run("--preset", "local")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.VectorStore.Provider).To(Equal("sqlite"))
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		})

		It("rejects unknown preset names", func() {
			err := run("--preset", "invalid-provider")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown preset"))
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes remote config.toml", func() {
			remoteCfg := `version = 0

[completion]
provider = "openai"
model = "gpt-4o"

[embedding]
model = "text-embedding-3-small"
dimensions = 1536

[vector_store]
collection = "team"
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				fmt.Fprint(w, remoteCfg)
			}))
			defer server.Close()

			Expect(run("--preset", server.URL)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Completion.Model).To(Equal("gpt-4o"))
			Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-small"))
			Expect(cfg.VectorStore.Collection).To(Equal("team"))
			Expect(cfg.VectorStore.Provider).To(Equal("qdrant"))
		})

		It("returns error for non-200 HTTP response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			err := run("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("HTTP 404"))
		})

		It("returns error for invalid TOML from URL", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			err := run("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing"))
		})

		It("returns error for unreachable URL", func() {
			err := run("--preset", "http://127.0.0.1:1")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("fetching remote config"))
		})
	})

	Describe("--preset overwrites config on re-init", func() {
		It("overwrites existing config.toml when re-running with a different preset", func() {
			Expect(run("--preset", "openai")).To(Succeed())
			Expect(loadConfig(tmpDir).Completion.Provider).To(Equal("openai"))

			Expect(run("--preset", "ollama")).To(Succeed())
			Expect(loadConfig(tmpDir).Completion.Provider).To(Equal("ollama"))
		})
	})
})

// loadConfig is a test helper that reads and parses the config.toml from the
// .emunet directory within the given base directory.
func loadConfig(baseDir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(baseDir, ".emunet", "config.toml"))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg, err := config.ParseConfigTOML(data)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return cfg
}
