package entitlement

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Known provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

//go:embed default_table.yaml
var defaultTable []byte

// ModelSpec describes how to reach one named model.
type ModelSpec struct {
	Provider        string `yaml:"provider"          json:"provider"`
	ProviderModelID string `yaml:"provider_model_id" json:"provider_model_id"`
	CredentialKey   string `yaml:"credential_key"    json:"credential_key"`
}

// Table is the two-level tier → model → spec mapping.
type Table struct {
	Tiers  map[string]string    `yaml:"tiers"`
	Models map[string]ModelSpec `yaml:"models"`
}

// DefaultTable returns the built-in table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("entitlement: built-in table invalid: %v", err))
	}
	return t
}

// LoadTable reads and validates a table file. An empty path yields the
// built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("read table %s", path), Err: err}
	}
	return ParseTable(data)
}

// ParseTable decodes and validates YAML table data.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, &ConfigurationError{Reason: "parse table", Err: err}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that every tier points at a defined model and every model
// names a known provider, a provider model id and a credential key.
func (t *Table) Validate() error {
	if len(t.Tiers) == 0 {
		return &ConfigurationError{Reason: "table defines no tiers"}
	}
	for _, tier := range sortedKeys(t.Tiers) {
		model := t.Tiers[tier]
		if _, ok := t.Models[model]; !ok {
			return &ConfigurationError{Tier: tier, Reason: fmt.Sprintf("model %q is not defined", model)}
		}
	}
	for name, spec := range t.Models {
		switch spec.Provider {
		case ProviderOpenAI, ProviderGemini:
		default:
			return &ConfigurationError{Reason: fmt.Sprintf("model %q: unknown provider %q", name, spec.Provider)}
		}
		if spec.ProviderModelID == "" {
			return &ConfigurationError{Reason: fmt.Sprintf("model %q: provider_model_id is empty", name)}
		}
		if spec.CredentialKey == "" {
			return &ConfigurationError{Reason: fmt.Sprintf("model %q: credential_key is empty", name)}
		}
	}
	return nil
}

// CredentialKeys lists the distinct credential key names, sorted.
func (t *Table) CredentialKeys() []string {
	seen := make(map[string]bool)
	var out []string
	for _, spec := range t.Models {
		if !seen[spec.CredentialKey] {
			seen[spec.CredentialKey] = true
			out = append(out, spec.CredentialKey)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
