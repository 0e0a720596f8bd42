package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	t.Setenv("ALPHAPREDICT_FIREBASE_API_KEY", "")
	t.Setenv("ALPHAPREDICT_APP_MODE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.App.Mode != ModeCommunity {
		t.Errorf("App.Mode: got %q, want %q", cfg.App.Mode, ModeCommunity)
	}
	if cfg.App.DefaultTicker != "AAPL" {
		t.Errorf("App.DefaultTicker: got %q", cfg.App.DefaultTicker)
	}
	if cfg.Subscription() {
		t.Error("default mode should not be subscription")
	}

	// LLM defaults
	if cfg.LLM.Community.Provider != "gemini" {
		t.Errorf("LLM.Community.Provider: got %q, want gemini", cfg.LLM.Community.Provider)
	}
	if cfg.LLM.Community.CredentialKey != "GOOGLE_API_KEY" {
		t.Errorf("LLM.Community.CredentialKey: got %q", cfg.LLM.Community.CredentialKey)
	}
	if cfg.LLM.MaxTokens != 1024 {
		t.Errorf("LLM.MaxTokens: got %d, want 1024", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.TimeoutSec != 60 {
		t.Errorf("LLM.TimeoutSec: got %d, want 60", cfg.LLM.TimeoutSec)
	}

	// Auth defaults
	if cfg.Auth.Provider != AuthFirebase {
		t.Errorf("Auth.Provider: got %q", cfg.Auth.Provider)
	}
	if cfg.Auth.SessionTTLMin != 720 {
		t.Errorf("Auth.SessionTTLMin: got %d", cfg.Auth.SessionTTLMin)
	}
	if cfg.MarketData.HeadlinesTimeoutMs != 3000 {
		t.Errorf("MarketData.HeadlinesTimeoutMs: got %d", cfg.MarketData.HeadlinesTimeoutMs)
	}
	if cfg.Auth.Firestore.Collection != "users" {
		t.Errorf("Auth.Firestore.Collection: got %q", cfg.Auth.Firestore.Collection)
	}
	if cfg.Auth.Firebase.IdentityBaseURL != "https://identitytoolkit.googleapis.com" {
		t.Errorf("Auth.Firebase.IdentityBaseURL: got %q", cfg.Auth.Firebase.IdentityBaseURL)
	}

	// Market data defaults
	if cfg.MarketData.BaseURL != "https://query1.finance.yahoo.com" {
		t.Errorf("MarketData.BaseURL: got %q", cfg.MarketData.BaseURL)
	}
	if !strings.Contains(cfg.MarketData.HeadlinesURL, "%s") {
		t.Errorf("MarketData.HeadlinesURL must contain a %%s placeholder: %q", cfg.MarketData.HeadlinesURL)
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "console")
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
app:
  mode: "subscription"
  title: "AlphaPredict"
llm:
  temperature: 0.3
  max_tokens: 2048
entitlements:
  file: "config/entitlements.yaml"
auth:
  provider: "sqlite"
  sqlite:
    path: "/tmp/users.db"
  firebase:
    api_key: "firebase-key-from-file"
    project_id: "alpha-predict"
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	t.Setenv("ALPHAPREDICT_FIREBASE_API_KEY", "")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if !cfg.Subscription() {
		t.Errorf("App.Mode: got %q, want subscription", cfg.App.Mode)
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Errorf("LLM.Temperature: got %f, want 0.3", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 2048 {
		t.Errorf("LLM.MaxTokens: got %d, want 2048", cfg.LLM.MaxTokens)
	}
	if cfg.Entitlements.File != "config/entitlements.yaml" {
		t.Errorf("Entitlements.File: got %q", cfg.Entitlements.File)
	}
	if cfg.Auth.Provider != AuthSQLite || cfg.Auth.SQLite.Path != "/tmp/users.db" {
		t.Errorf("Auth: got %+v", cfg.Auth)
	}
	if cfg.Auth.Firebase.APIKey != "firebase-key-from-file" {
		t.Errorf("Firebase.APIKey: got %q", cfg.Auth.Firebase.APIKey)
	}
	if cfg.Auth.Firebase.ProjectID != "alpha-predict" {
		t.Errorf("Firebase.ProjectID: got %q", cfg.Auth.Firebase.ProjectID)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

func TestLoadFromFileRejectsUnknownMode(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte("app:\n  mode: enterprise\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFromFile(cfgPath)
	if err == nil || !strings.Contains(err.Error(), "app.mode") {
		t.Fatalf("expected app.mode validation error, got %v", err)
	}
}

// ── Validate ──

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			App:  AppConfig{Mode: ModeCommunity},
			Auth: AuthConfig{Provider: AuthFirebase},
			LLM:  LLMConfig{Community: CommunityModel{CredentialKey: "GOOGLE_API_KEY"}},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	c := base()
	c.Auth.Provider = "ldap"
	if err := c.Validate(); err == nil {
		t.Error("unknown auth provider should be rejected")
	}

	c = base()
	c.LLM.Community.CredentialKey = ""
	if err := c.Validate(); err == nil {
		t.Error("community mode without credential key should be rejected")
	}

	c = base()
	c.App.Mode = ModeSubscription
	c.LLM.Community.CredentialKey = ""
	if err := c.Validate(); err != nil {
		t.Errorf("subscription mode does not need a community key: %v", err)
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	cfg := &Config{}

	t.Setenv("ALPHAPREDICT_FIREBASE_API_KEY", "fb-key-123456789")
	t.Setenv("ALPHAPREDICT_FIREBASE_PROJECT_ID", "alpha-predict")
	t.Setenv("ALPHAPREDICT_FIREBASE_APP_ID", "1:2:web:3")
	t.Setenv("ALPHAPREDICT_FIRESTORE_CREDENTIALS_FILE", "/secrets/sa.json")
	t.Setenv("OPENAI_ORG_ID", "org-xyz")

	overrideFromEnv(cfg)

	if cfg.Auth.Firebase.APIKey != "fb-key-123456789" {
		t.Errorf("Firebase.APIKey: got %q", cfg.Auth.Firebase.APIKey)
	}
	if cfg.Auth.Firebase.ProjectID != "alpha-predict" {
		t.Errorf("Firebase.ProjectID: got %q", cfg.Auth.Firebase.ProjectID)
	}
	if cfg.Auth.Firebase.AppID != "1:2:web:3" {
		t.Errorf("Firebase.AppID: got %q", cfg.Auth.Firebase.AppID)
	}
	if cfg.Auth.Firestore.CredentialsFile != "/secrets/sa.json" {
		t.Errorf("Firestore.CredentialsFile: got %q", cfg.Auth.Firestore.CredentialsFile)
	}
	if cfg.LLM.OpenAIOrgID != "org-xyz" {
		t.Errorf("LLM.OpenAIOrgID: got %q", cfg.LLM.OpenAIOrgID)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	t.Setenv("ALPHAPREDICT_FIREBASE_API_KEY", "")

	cfg := &Config{Auth: AuthConfig{Firebase: FirebaseConfig{APIKey: "from-config"}}}
	overrideFromEnv(cfg)

	if cfg.Auth.Firebase.APIKey != "from-config" {
		t.Errorf("APIKey should stay as 'from-config' when env is unset, got %q", cfg.Auth.Firebase.APIKey)
	}
}

// ── MaskKey ──

func TestMaskKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
		{"123456789", "123...789"},
		{"sk-abcdef1234567890xyz", "sk-...xyz"},
	}
	for _, tc := range tests {
		if got := MaskKey(tc.input); got != tc.want {
			t.Errorf("MaskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── Secrets / CheckAPIKeys ──

func TestSecretsGet(t *testing.T) {
	s := StaticSecrets(map[string]string{
		"OPENAI_API_KEY-BASIC_EDITION": "sk-basic-1234567890",
		"EMPTY":                        "",
	})
	if v, ok := s.Get("OPENAI_API_KEY-BASIC_EDITION"); !ok || v != "sk-basic-1234567890" {
		t.Errorf("Get basic: got %q, %v", v, ok)
	}
	if _, ok := s.Get("EMPTY"); ok {
		t.Error("empty secret should report unset")
	}
	if _, ok := s.Get("MISSING"); ok {
		t.Error("missing secret should report unset")
	}

	var nilSecrets *Secrets
	if _, ok := nilSecrets.Get("X"); ok {
		t.Error("nil Secrets should report unset")
	}
}

func TestSecretsFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY-PREMIUM_EDITION", "sk-premium-abcdef")
	v, ok := NewSecrets().Get("OPENAI_API_KEY-PREMIUM_EDITION")
	if !ok || v != "sk-premium-abcdef" {
		t.Errorf("got %q, %v", v, ok)
	}
}

func TestCheckAPIKeys(t *testing.T) {
	t.Setenv("ALPHAPREDICT_FIREBASE_API_KEY", "")

	cfg := &Config{LLM: LLMConfig{Community: CommunityModel{CredentialKey: "GOOGLE_API_KEY"}}}
	secrets := StaticSecrets(map[string]string{
		"GOOGLE_API_KEY":               "AIza-google-key-000",
		"OPENAI_API_KEY-BASIC_EDITION": "sk-basic-key-111",
	})

	statuses := CheckAPIKeys(cfg, secrets, []string{
		"OPENAI_API_KEY-PREMIUM_EDITION",
		"OPENAI_API_KEY-BASIC_EDITION",
		"GOOGLE_API_KEY", // duplicate of the community key
	})

	if len(statuses) != 4 {
		t.Fatalf("got %d statuses, want 4: %+v", len(statuses), statuses)
	}
	if statuses[0].Name != "Firebase API Key" || statuses[0].IsSet {
		t.Errorf("firebase status: %+v", statuses[0])
	}

	byName := make(map[string]KeyStatus)
	for _, s := range statuses {
		byName[s.Name] = s
	}
	if s := byName["GOOGLE_API_KEY"]; !s.IsSet || s.Masked != "AIz...000" {
		t.Errorf("GOOGLE_API_KEY: %+v", s)
	}
	if s := byName["OPENAI_API_KEY-BASIC_EDITION"]; !s.IsSet || s.Source != KeySourceEnv {
		t.Errorf("basic: %+v", s)
	}
	if s := byName["OPENAI_API_KEY-PREMIUM_EDITION"]; s.IsSet || s.Source != KeySourceNone {
		t.Errorf("premium: %+v", s)
	}
}

func TestCheckKeySourceDetection(t *testing.T) {
	t.Setenv("TEST_VAR", "")
	s := checkKey("Test", "", "TEST_VAR")
	if s.Source != KeySourceNone || s.IsSet {
		t.Errorf("empty value: got %+v", s)
	}

	s = checkKey("Test", "config-value-long-enough", "TEST_VAR")
	if s.Source != KeySourceConfig || !s.IsSet {
		t.Errorf("config value: got %+v", s)
	}

	t.Setenv("TEST_VAR", "env-value-long-enough")
	s = checkKey("Test", "env-value-long-enough", "TEST_VAR")
	if s.Source != KeySourceEnv {
		t.Errorf("env value: got source %q, want %q", s.Source, KeySourceEnv)
	}
}

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	if homeDir() == "" {
		t.Error("homeDir() should not return empty string")
	}
}
