package config

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/splitwarden/splitwarden/internal/engine"
	"github.com/splitwarden/splitwarden/internal/splitwise"
)

// LoadSplitwiseConfig loads Splitwise API configuration.
// It follows this precedence:
// 1. Viper configuration (from config file or SPLITWARDEN_ env vars)
// 2. Direct environment variables (SPLITWISE_*)
func LoadSplitwiseConfig() (*splitwise.Config, error) {
	config := splitwise.Config{}

	if v := viper.GetString("splitwise.api_key"); v != "" {
		config.APIKey = v
	}
	if v := viper.GetString("splitwise.base_url"); v != "" {
		config.BaseURL = v
	}
	if v := viper.GetDuration("splitwise.timeout"); v != 0 {
		config.Timeout = v
	}

	if config.APIKey == "" {
		config.APIKey = os.Getenv("SPLITWISE_API_KEY")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// AuthConfig holds identity provider settings.
type AuthConfig struct {
	// TokenSecret verifies caller JWTs. Empty means tokens are not
	// accepted and credentials are treated as bare emails.
	TokenSecret string
	AdminEmails []string
}

// LoadAuthConfig loads identity configuration.
func LoadAuthConfig() AuthConfig {
	config := AuthConfig{
		TokenSecret: viper.GetString("auth.token_secret"),
		AdminEmails: viper.GetStringSlice("auth.admin_emails"),
	}
	if config.TokenSecret == "" {
		config.TokenSecret = os.Getenv("SPLITWARDEN_TOKEN_SECRET")
	}
	return config
}

// LoadEngineConfig loads engine tuning. An unparseable tolerance falls
// back to the default rather than silently widening it.
func LoadEngineConfig() engine.Config {
	config := engine.DefaultConfig()
	if v := viper.GetString("engine.tolerance"); v != "" {
		if tolerance, err := decimal.NewFromString(v); err == nil && tolerance.IsPositive() {
			config.Tolerance = tolerance
		}
	}
	return config
}

// DatabasePath returns the SQLite database location, expanding ~ and
// environment variables.
func DatabasePath() string {
	path := viper.GetString("database.path")
	if path == "" {
		path = os.Getenv("SPLITWARDEN_DB_PATH")
	}
	if path == "" {
		path = "~/.local/share/splitwarden/splitwarden.db"
	}
	return ExpandPath(path)
}
