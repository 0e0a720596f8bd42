// Package config handles configuration loading for AlphaPredict.
// It supports YAML config files, a .env secrets file, and environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Application modes.
const (
	ModeCommunity    = "community"    // anonymous, single configured model
	ModeSubscription = "subscription" // login, tier-routed model, paid gating
)

// Auth providers.
const (
	AuthFirebase = "firebase"
	AuthSQLite   = "sqlite"
	AuthStatic   = "static"
)

// Config represents the complete application configuration.
type Config struct {
	App          AppConfig         `mapstructure:"app"          yaml:"app"`
	API          APIConfig         `mapstructure:"api"          yaml:"api"`
	LLM          LLMConfig         `mapstructure:"llm"          yaml:"llm"`
	Entitlements EntitlementConfig `mapstructure:"entitlements" yaml:"entitlements"`
	Auth         AuthConfig        `mapstructure:"auth"         yaml:"auth"`
	MarketData   MarketDataConfig  `mapstructure:"marketdata"   yaml:"marketdata"`
	Logging      LoggingConfig     `mapstructure:"logging"      yaml:"logging"`
}

// AppConfig holds page-level settings.
type AppConfig struct {
	Mode          string `mapstructure:"mode"           yaml:"mode"` // "community" or "subscription"
	Title         string `mapstructure:"title"          yaml:"title"`
	DefaultTicker string `mapstructure:"default_ticker" yaml:"default_ticker"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host         string   `mapstructure:"host"          yaml:"host"`
	Port         int      `mapstructure:"port"          yaml:"port"`
	CORSOrigins  []string `mapstructure:"cors_origins"  yaml:"cors_origins"`
	SecureCookie bool     `mapstructure:"secure_cookie" yaml:"secure_cookie"`
}

// LLMConfig holds settings shared by every LLM call.
type LLMConfig struct {
	Temperature float64        `mapstructure:"temperature"  yaml:"temperature"`
	MaxTokens   int            `mapstructure:"max_tokens"   yaml:"max_tokens"`
	TimeoutSec  int            `mapstructure:"timeout_sec"  yaml:"timeout_sec"`
	OpenAIOrgID string         `mapstructure:"openai_org_id" yaml:"openai_org_id"`
	OpenAIBase  string         `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	GeminiBase  string         `mapstructure:"gemini_base_url" yaml:"gemini_base_url"`
	Community   CommunityModel `mapstructure:"community"    yaml:"community"`
}

// CommunityModel is the single model used in community mode.
type CommunityModel struct {
	Provider      string `mapstructure:"provider"       yaml:"provider"` // "openai" or "gemini"
	Model         string `mapstructure:"model"          yaml:"model"`
	CredentialKey string `mapstructure:"credential_key" yaml:"credential_key"`
}

// EntitlementConfig points at the tier table.
type EntitlementConfig struct {
	File string `mapstructure:"file" yaml:"file"` // empty → built-in table
}

// AuthConfig holds identity-provider and user-record settings.
type AuthConfig struct {
	Provider      string          `mapstructure:"provider"        yaml:"provider"` // "firebase", "sqlite", "static"
	SessionTTLMin int             `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`
	Firebase      FirebaseConfig  `mapstructure:"firebase"        yaml:"firebase"`
	Firestore     FirestoreConfig `mapstructure:"firestore"       yaml:"firestore"`
	SQLite        SQLiteConfig    `mapstructure:"sqlite"          yaml:"sqlite"`
	Static        []StaticUser    `mapstructure:"static"          yaml:"static"`
}

// FirebaseConfig is the hosted identity-provider bundle.
type FirebaseConfig struct {
	APIKey            string `mapstructure:"api_key"             yaml:"api_key"`
	AuthDomain        string `mapstructure:"auth_domain"         yaml:"auth_domain"`
	DatabaseURL       string `mapstructure:"database_url"        yaml:"database_url"`
	ProjectID         string `mapstructure:"project_id"          yaml:"project_id"`
	StorageBucket     string `mapstructure:"storage_bucket"      yaml:"storage_bucket"`
	MessagingSenderID string `mapstructure:"messaging_sender_id" yaml:"messaging_sender_id"`
	AppID             string `mapstructure:"app_id"              yaml:"app_id"`
	MeasurementID     string `mapstructure:"measurement_id"      yaml:"measurement_id"`
	IdentityBaseURL   string `mapstructure:"identity_base_url"   yaml:"identity_base_url"`
}

// FirestoreConfig locates user records in the hosted document store.
type FirestoreConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	Collection      string `mapstructure:"collection"       yaml:"collection"`
	BaseURL         string `mapstructure:"base_url"         yaml:"base_url"`
}

// SQLiteConfig locates the local user-record database.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// StaticUser is a development-only account.
type StaticUser struct {
	Email     string `mapstructure:"email"      yaml:"email"`
	Password  string `mapstructure:"password"   yaml:"password"`
	FirstName string `mapstructure:"first_name" yaml:"first_name"`
	LastName  string `mapstructure:"last_name"  yaml:"last_name"`
	Tier      string `mapstructure:"tier"       yaml:"tier"`
	Paid      bool   `mapstructure:"paid"       yaml:"paid"`
}

// MarketDataConfig holds Yahoo Finance settings.
type MarketDataConfig struct {
	BaseURL            string `mapstructure:"base_url"             yaml:"base_url"`
	HeadlinesURL       string `mapstructure:"headlines_url"        yaml:"headlines_url"` // printf pattern with one %s
	MaxHeadlines       int    `mapstructure:"max_headlines"        yaml:"max_headlines"`
	HeadlinesTimeoutMs int    `mapstructure:"headlines_timeout_ms" yaml:"headlines_timeout_ms"`
	RatePerSecond      int    `mapstructure:"rate_per_second"      yaml:"rate_per_second"`
	TimeoutSec         int    `mapstructure:"timeout_sec"          yaml:"timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.alphapredict/config.yaml (home directory)
//  3. /etc/alphapredict/config.yaml (system)
//
// A .env file in the working directory is loaded first; real environment
// variables win over it. Format: ALPHAPREDICT_<SECTION>_<KEY>.
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".alphapredict"))
	v.AddConfigPath("/etc/alphapredict")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ALPHAPREDICT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	switch c.App.Mode {
	case ModeCommunity, ModeSubscription:
	default:
		return fmt.Errorf("config: app.mode must be %q or %q, got %q", ModeCommunity, ModeSubscription, c.App.Mode)
	}
	switch c.Auth.Provider {
	case AuthFirebase, AuthSQLite, AuthStatic:
	default:
		return fmt.Errorf("config: unknown auth.provider %q", c.Auth.Provider)
	}
	if c.App.Mode == ModeCommunity && c.LLM.Community.CredentialKey == "" {
		return errors.New("config: llm.community.credential_key is required in community mode")
	}
	return nil
}

// Subscription reports whether login and tier routing are enabled.
func (c *Config) Subscription() bool { return c.App.Mode == ModeSubscription }

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.mode", ModeCommunity)
	v.SetDefault("app.title", "AlphaPredictCommunity")
	v.SetDefault("app.default_ticker", "AAPL")

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:8080"})
	v.SetDefault("api.secure_cookie", false)

	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout_sec", 60)
	v.SetDefault("llm.community.provider", "gemini")
	v.SetDefault("llm.community.model", "gemini-2.0-flash")
	v.SetDefault("llm.community.credential_key", "GOOGLE_API_KEY")

	v.SetDefault("auth.provider", AuthFirebase)
	v.SetDefault("auth.session_ttl_min", 720)
	v.SetDefault("auth.firebase.identity_base_url", "https://identitytoolkit.googleapis.com")
	v.SetDefault("auth.firestore.collection", "users")
	v.SetDefault("auth.firestore.base_url", "https://firestore.googleapis.com")
	v.SetDefault("auth.sqlite.path", "alphapredict.db")

	v.SetDefault("marketdata.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("marketdata.headlines_url", "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US")
	v.SetDefault("marketdata.max_headlines", 5)
	v.SetDefault("marketdata.headlines_timeout_ms", 3000)
	v.SetDefault("marketdata.rate_per_second", 5)
	v.SetDefault("marketdata.timeout_sec", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	fb := &cfg.Auth.Firebase
	for env, dst := range map[string]*string{
		"ALPHAPREDICT_FIREBASE_API_KEY":             &fb.APIKey,
		"ALPHAPREDICT_FIREBASE_AUTH_DOMAIN":         &fb.AuthDomain,
		"ALPHAPREDICT_FIREBASE_DATABASE_URL":        &fb.DatabaseURL,
		"ALPHAPREDICT_FIREBASE_PROJECT_ID":          &fb.ProjectID,
		"ALPHAPREDICT_FIREBASE_STORAGE_BUCKET":      &fb.StorageBucket,
		"ALPHAPREDICT_FIREBASE_MESSAGING_SENDER_ID": &fb.MessagingSenderID,
		"ALPHAPREDICT_FIREBASE_APP_ID":              &fb.AppID,
		"ALPHAPREDICT_FIREBASE_MEASUREMENT_ID":      &fb.MeasurementID,
		"ALPHAPREDICT_FIRESTORE_CREDENTIALS_FILE":   &cfg.Auth.Firestore.CredentialsFile,
		"OPENAI_ORG_ID":                             &cfg.LLM.OpenAIOrgID,
	} {
		if val := os.Getenv(env); val != "" {
			*dst = val
		}
	}
}

// loadDotEnv loads ./.env into the process environment without
// overriding variables that are already set.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
