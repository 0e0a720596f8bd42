package config

import (
	"os"
	"sort"
)

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "sk-...abc"
}

// Secrets resolves credential key names (e.g. "OPENAI_API_KEY-BASIC_EDITION")
// to their values. Lookups go to the process environment, which already
// includes anything loaded from .env.
type Secrets struct {
	lookup func(string) (string, bool)
}

// NewSecrets returns a Secrets backed by the process environment.
func NewSecrets() *Secrets {
	return &Secrets{lookup: os.LookupEnv}
}

// StaticSecrets returns a Secrets backed by a fixed map. Used by tests and
// the CLI when credentials are passed explicitly.
func StaticSecrets(m map[string]string) *Secrets {
	return &Secrets{lookup: func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}}
}

// Get returns the secret stored under name, or false when unset or empty.
func (s *Secrets) Get(name string) (string, bool) {
	if s == nil || name == "" {
		return "", false
	}
	v, ok := s.lookup(name)
	return v, ok && v != ""
}

// CheckAPIKeys returns the status of the credentials the configuration
// references: the Firebase bundle key plus every named LLM credential.
func CheckAPIKeys(cfg *Config, secrets *Secrets, credentialKeys []string) []KeyStatus {
	out := []KeyStatus{
		checkKey("Firebase API Key", cfg.Auth.Firebase.APIKey, "ALPHAPREDICT_FIREBASE_API_KEY"),
	}

	seen := make(map[string]bool)
	keys := append([]string{cfg.LLM.Community.CredentialKey}, credentialKeys...)
	sort.Strings(keys[1:])
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		val, _ := secrets.Get(k)
		st := KeyStatus{Name: k, IsSet: val != "", Source: KeySourceNone}
		if st.IsSet {
			st.Source = KeySourceEnv
			st.Masked = MaskKey(val)
		}
		out = append(out, st)
	}
	return out
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value, envVar string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value != "" {
		if os.Getenv(envVar) != "" {
			status.Source = KeySourceEnv
		} else {
			status.Source = KeySourceConfig
		}
		status.Masked = MaskKey(value)
	} else {
		status.Source = KeySourceNone
	}

	return status
}

// MaskKey masks an API key for display, showing only first 3 and last 3 chars.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
