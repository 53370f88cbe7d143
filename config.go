package graw

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jamesprial/reddit-mcp-server/internal"
	pkgerrs "github.com/jamesprial/reddit-mcp-server/pkg/errors"
)

// EnvPrefix is prepended to every configuration key when read from the environment.
const EnvPrefix = "REDDIT"

// Configuration keys. In the environment each is upper cased and prefixed with
// REDDIT_, e.g. REDDIT_CLIENT_ID.
const (
	KeyClientID          = "client_id"
	KeyClientSecret      = "client_secret"
	KeyUserAgent         = "user_agent"
	KeyUsername          = "username"
	KeyPassword          = "password"
	KeyRefreshToken      = "refresh_token"
	KeyRequestsPerMinute = "requests_per_minute"
	KeyMaxRetries        = "max_retries"
	KeyRetryBaseDelay    = "retry_base_delay"
	KeyMaxRetryWait      = "max_retry_wait"
	KeyBaseURL           = "base_url"
	KeyAuthURL           = "auth_url"
)

var requiredKeys = []string{KeyClientID, KeyClientSecret, KeyUserAgent}

// EnvName returns the environment variable that holds key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

// LoadConfig reads the client configuration from REDDIT_* environment variables and,
// when path is not empty, from a config file (any format viper understands). The
// environment wins over the file.
//
// Every missing required key is reported in a single *pkgerrs.ConfigError.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault(KeyRequestsPerMinute, internal.DefaultRequestsPerMinute)
	v.SetDefault(KeyMaxRetries, pkgerrs.DefaultMaxRetries)
	v.SetDefault(KeyRetryBaseDelay, pkgerrs.DefaultBaseDelay)
	v.SetDefault(KeyMaxRetryWait, time.Duration(0))
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyAuthURL, DefaultAuthURL)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &pkgerrs.ConfigError{Field: "config", Message: fmt.Sprintf("failed to read %s: %v", path, err)}
		}
	}

	var missing []string
	for _, key := range requiredKeys {
		if v.GetString(key) == "" {
			missing = append(missing, EnvName(key))
		}
	}
	if len(missing) > 0 {
		return nil, &pkgerrs.ConfigError{Missing: missing}
	}

	cfg := &Config{
		ClientID:          v.GetString(KeyClientID),
		ClientSecret:      v.GetString(KeyClientSecret),
		UserAgent:         v.GetString(KeyUserAgent),
		Username:          v.GetString(KeyUsername),
		Password:          v.GetString(KeyPassword),
		RefreshToken:      v.GetString(KeyRefreshToken),
		RequestsPerMinute: v.GetInt(KeyRequestsPerMinute),
		MaxRetries:        v.GetInt(KeyMaxRetries),
		RetryBaseDelay:    v.GetDuration(KeyRetryBaseDelay),
		MaxRetryWait:      v.GetDuration(KeyMaxRetryWait),
		BaseURL:           v.GetString(KeyBaseURL),
		AuthURL:           v.GetString(KeyAuthURL),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration without applying defaults.
func (c *Config) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "ClientID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "ClientSecret")
	}
	if c.UserAgent == "" {
		missing = append(missing, "UserAgent")
	}
	if len(missing) > 0 {
		return &pkgerrs.ConfigError{Missing: missing}
	}

	var errs []error
	if err := internal.NewValidator().ValidateUserAgent(c.UserAgent); err != nil {
		errs = append(errs, &pkgerrs.ConfigError{Field: "UserAgent", Message: err.Error()})
	}
	if c.RequestsPerMinute < 0 {
		errs = append(errs, &pkgerrs.ConfigError{Field: "RequestsPerMinute", Message: "cannot be negative"})
	}
	if c.MaxRetries < 0 {
		errs = append(errs, &pkgerrs.ConfigError{Field: "MaxRetries", Message: "cannot be negative"})
	}
	if c.RetryBaseDelay < 0 || c.MaxRetryWait < 0 {
		errs = append(errs, &pkgerrs.ConfigError{Field: "RetryBaseDelay", Message: "retry durations cannot be negative"})
	}
	return errors.Join(errs...)
}
