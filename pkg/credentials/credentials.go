// Package credentials stores provider API keys in credentials.toml inside the
// .emunet/ directory and resolves them against the environment.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/emunet/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// Providers that take an API key.
const (
	OpenAI = "openai"
	Qdrant = "qdrant"
)

// Credential environment variables.
const (
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvOpenAIAPIKeyLegacy = "OPENAI_KEY"
	EnvQdrantAPIKey       = "QDRANT_API_KEY"
)

// providerEnvVars maps provider names to the environment variables checked
// for them, in order.
var providerEnvVars = map[string][]string{
	OpenAI: {EnvOpenAIAPIKey, EnvOpenAIAPIKeyLegacy},
	Qdrant: {EnvQdrantAPIKey},
}

// Manager manages reading and writing credentials.toml in the .emunet/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .emunet/ directory; otherwise the standard dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{}
	mgr.ddm = dotdir.NewManager()

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version:   currentVersion,
				Providers: make(map[string]ProviderCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetKey stores an API key for the given provider.
func (m *Manager) SetKey(provider, key string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Providers[provider] = ProviderCredential{APIKey: key}

	return m.Save(creds)
}

// GetKey returns the stored API key for the given provider.
// Returns an empty string if no key is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	pc, ok := creds.Providers[provider]
	if !ok {
		return "", nil
	}

	return pc.APIKey, nil
}

// RemoveKey deletes the stored credential for a provider.
func (m *Manager) RemoveKey(provider string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Providers, provider)

	return m.Save(creds)
}

// ListProviders returns the names of providers that have stored credentials.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		providers = append(providers, name)
	}

	sort.Strings(providers)

	return providers, nil
}

// Resolve returns the API key for provider. The environment wins over the
// stored credential so a one-off override needs no file edit.
func (m *Manager) Resolve(provider string) (string, error) {
	if key := FromEnv(provider); key != "" {
		return key, nil
	}
	return m.GetKey(provider)
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// FromEnv returns the first non-empty environment variable for provider.
func FromEnv(provider string) string {
	for _, name := range providerEnvVars[provider] {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key
		}
	}
	return ""
}

// EnvVarForProvider returns the primary environment variable name for a given
// provider. Returns an empty string for unknown providers.
func EnvVarForProvider(provider string) string {
	vars := providerEnvVars[provider]
	if len(vars) == 0 {
		return ""
	}
	return vars[0]
}

// SupportedProviders returns the list of providers that take API keys.
func SupportedProviders() []string {
	return []string{OpenAI, Qdrant}
}

// IsSupportedProvider returns true if the given provider is supported.
func IsSupportedProvider(provider string) bool {
	return slices.Contains(SupportedProviders(), provider)
}
