package emunetcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	emunetcmder "github.com/papercomputeco/emunet/cmd/emunet"
)

// fakeOpenAI answers chat completions with a fixed reply and embeddings with
// a fixed three dimensional vector.
type fakeOpenAI struct {
	mu          sync.Mutex
	completions int
	embeddings  int
	lastPrompt  string
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/v1/chat/completions":
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		f.completions++
		if n := len(req.Messages); n > 0 {
			f.lastPrompt = req.Messages[n-1].Content
		}
		f.mu.Unlock()

		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`))

	case "/v1/embeddings":
		f.mu.Lock()
		f.embeddings++
		f.mu.Unlock()

		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-ada-002",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.1, 0.2, 0.3]}],
			"usage": {"prompt_tokens": 1, "total_tokens": 1}
		}`))

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOpenAI) counts() (completions, embeddings int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completions, f.embeddings
}

func (f *fakeOpenAI) prompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPrompt
}

var _ = Describe("NewEmunetCmd", func() {
	It("registers every subcommand", func() {
		cmd := emunetcmder.NewEmunetCmd()
		names := []string{}
		for _, c := range cmd.Commands() {
			names = append(names, c.Name())
		}
		Expect(names).To(ContainElements("chat", "memory", "auth", "config", "init", "version"))
	})

	It("has global debug and config-dir flags", func() {
		cmd := emunetcmder.NewEmunetCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().ShorthandLookup("d")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})

var _ = Describe("emunet chat", func() {
	var (
		api      *fakeOpenAI
		server   *httptest.Server
		dir      string
		provider string
	)

	run := func(stdin string, args ...string) (string, error) {
		cmd := emunetcmder.NewEmunetCmd()
		out := &bytes.Buffer{}
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(out)
		cmd.SetErr(GinkgoWriter)
		cmd.SetArgs(append(args,
			"--config-dir", dir,
			"--vector-store-provider", provider,
		))
		err := cmd.Execute()
		return out.String(), err
	}

	chat := func(stdin string, extra ...string) (string, error) {
		args := append([]string{
			"chat",
			"--completion-target", server.URL + "/v1",
			"--embedding-target", server.URL + "/v1",
			"--embedding-dimensions", "3",
		}, extra...)
		return run(stdin, args...)
	}

	BeforeEach(func() {
		GinkgoT().Setenv("OPENAI_API_KEY", "sk-test")
		api = &fakeOpenAI{}
		server = httptest.NewServer(api)
		DeferCleanup(server.Close)
		dir = GinkgoT().TempDir()
		provider = "chromem"
	})

	It("answers a prompt and remembers the turn", func() {
		out, err := chat("Hello\nn\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("AI: Hi there"))
		Expect(api.prompt()).To(Equal("Hello"))
		_, embeddings := api.counts()
		Expect(embeddings).To(Equal(2))

		out, err = run("", "memory", "get", "0", "1", "--full")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Hello"))
		Expect(out).To(ContainSubstring("Hi there"))
	})

	It("continues ids across sessions", func() {
		_, err := chat("Hello\nn\n")
		Expect(err).NotTo(HaveOccurred())

		_, err = chat("Hello again\nn\n")
		Expect(err).NotTo(HaveOccurred())

		out, err := run("", "memory", "count")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("4 points"))

		out, err = run("", "memory", "get", "2", "--full")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Hello again"))
	})

	It("keeps going until the user declines", func() {
		out, err := chat("one\ny\ntwo\n\nthree\nno\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Count(out, "AI: Hi there")).To(Equal(3))
		completions, embeddings := api.counts()
		Expect(completions).To(Equal(3))
		Expect(embeddings).To(Equal(6))
	})

	It("skips the vector store when memory is off", func() {
		out, err := chat("Hello\nn\n", "--memory=false")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("AI: Hi there"))
		_, embeddings := api.counts()
		Expect(embeddings).To(BeZero())
		Expect(filepath.Join(dir, "chromem")).NotTo(BeADirectory())
	})

	It("writes a log file in the config dir", func() {
		_, err := chat("Hello\nn\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Join(dir, "emunet.log")).To(BeARegularFile())
	})

	It("fails before chatting when the embedding dimensions change", func() {
		provider = "sqlite"

		_, err := chat("Hello\nn\n")
		Expect(err).NotTo(HaveOccurred())

		_, err = chat("Hello\nn\n", "--embedding-dimensions", "4")
		Expect(err).To(MatchError(ContainSubstring("collection schema mismatch")))
		completions, _ := api.counts()
		Expect(completions).To(Equal(1))
	})
})
