package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Directory  DirectoryConfig  `mapstructure:"directory" yaml:"directory"`
	QuickBooks QuickBooksConfig `mapstructure:"quickbooks" yaml:"quickbooks"`
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Match      MatchConfig      `mapstructure:"match" yaml:"match"`
	Dedup      DedupConfig      `mapstructure:"dedup" yaml:"dedup"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path           string `mapstructure:"path" yaml:"path"`
	MigrationsPath string `mapstructure:"migrations_path" yaml:"migrations_path"`
}

// DirectoryConfig picks the customer directory: "sqlite" or "quickbooks".
type DirectoryConfig struct {
	Kind    string `mapstructure:"kind" yaml:"kind"`
	Preload bool   `mapstructure:"preload" yaml:"preload"`
}

type QuickBooksConfig struct {
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	RealmID           string  `mapstructure:"realm_id" yaml:"realm_id"`
	AccessToken       string  `mapstructure:"access_token" yaml:"access_token"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// LLMConfig holds extraction settings. Provider "file" reads saved JSON
// next to each scan instead of calling a model.
type LLMConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	Model     string `mapstructure:"model" yaml:"model"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
}

type MatchConfig struct {
	Threshold          float64 `mapstructure:"threshold" yaml:"threshold"`
	AutoMatchThreshold float64 `mapstructure:"auto_match_threshold" yaml:"auto_match_threshold"`
	Workers            int     `mapstructure:"workers" yaml:"workers"`
}

type DedupConfig struct {
	CheckNumberKeepDigits int `mapstructure:"check_number_keep_digits" yaml:"check_number_keep_digits"`
}

// LoggingConfig selects the zap level and encoding ("console" or "json").
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Path is the config file location: $DONORMATCH_CONFIG or
// ~/.config/donormatch/config.toml.
func Path() string {
	if p := os.Getenv("DONORMATCH_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "donormatch", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix
// DONORMATCH_, e.g. DONORMATCH_MATCH_THRESHOLD.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("DONORMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// a missing file is fine; a broken one is not
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(Path()); statErr == nil {
			return Config{}, eris.Wrap(err, "read config")
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, eris.Wrap(err, "unmarshal config")
	}
	if key := strings.TrimSpace(c.LLM.APIKey); key == "" && c.LLM.APIKeyEnv != "" {
		c.LLM.APIKey = os.Getenv(c.LLM.APIKeyEnv)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "donormatch", "donormatch.db"))
	v.SetDefault("database.migrations_path", "internal/database/migrations")
	v.SetDefault("directory.kind", "sqlite")
	v.SetDefault("directory.preload", true)
	v.SetDefault("quickbooks.base_url", "https://quickbooks.api.intuit.com")
	v.SetDefault("quickbooks.realm_id", "")
	v.SetDefault("quickbooks.access_token", "")
	v.SetDefault("quickbooks.requests_per_second", 8)
	v.SetDefault("quickbooks.timeout_seconds", 30)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("match.threshold", 50)
	v.SetDefault("match.auto_match_threshold", 0)
	v.SetDefault("match.workers", 4)
	v.SetDefault("dedup.check_number_keep_digits", 4)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Save writes the non-secret settings to Path(), creating the directory if
// needed. API keys and tokens belong in the secrets store, not here.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "mkdir config dir")
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.migrations_path", cfg.Database.MigrationsPath)
	v.Set("directory.kind", cfg.Directory.Kind)
	v.Set("directory.preload", cfg.Directory.Preload)
	v.Set("quickbooks.base_url", cfg.QuickBooks.BaseURL)
	v.Set("quickbooks.realm_id", cfg.QuickBooks.RealmID)
	v.Set("quickbooks.requests_per_second", cfg.QuickBooks.RequestsPerSecond)
	v.Set("quickbooks.timeout_seconds", cfg.QuickBooks.TimeoutSeconds)
	v.Set("llm.provider", cfg.LLM.Provider)
	v.Set("llm.api_key_env", cfg.LLM.APIKeyEnv)
	v.Set("llm.model", cfg.LLM.Model)
	v.Set("llm.base_url", cfg.LLM.BaseURL)
	v.Set("match.threshold", cfg.Match.Threshold)
	v.Set("match.auto_match_threshold", cfg.Match.AutoMatchThreshold)
	v.Set("match.workers", cfg.Match.Workers)
	v.Set("dedup.check_number_keep_digits", cfg.Dedup.CheckNumberKeepDigits)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.format", cfg.Logging.Format)

	if err := v.WriteConfigAs(path); err != nil {
		return eris.Wrap(err, "write config")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = "***"
	}
	if c.QuickBooks.AccessToken != "" {
		c.QuickBooks.AccessToken = "***"
	}
	return c
}
