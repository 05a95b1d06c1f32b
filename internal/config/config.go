// Package config loads d1sql.yaml and resolves the effective connection settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vvka-141/d1sql/pkg/d1sql"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

const ConfigFileName = "d1sql.yaml"

// Environment variables consulted by Resolve.
const (
	EnvAccountID  = "CLOUDFLARE_ACCOUNT_ID"
	EnvAPIToken   = "CLOUDFLARE_API_TOKEN"
	EnvDatabaseID = "D1_DATABASE_ID"
)

type ConnectionConfig struct {
	AccountID  string `yaml:"account_id"`
	DatabaseID string `yaml:"database_id"`
	APIURL     string `yaml:"api_url,omitempty"`

	// TokenEnv names the environment variable holding the API token.
	// Tokens are never written to the file.
	TokenEnv string `yaml:"token_env,omitempty"`
}

type RetryConfig struct {
	Retries        *int   `yaml:"retries,omitempty"`
	RetryDelay     string `yaml:"retry_delay,omitempty"`
	Timeout        string `yaml:"timeout,omitempty"`
	ConnectTimeout string `yaml:"connect_timeout,omitempty"`
}

type ProjectConfig struct {
	Connection   ConnectionConfig `yaml:"connection"`
	Retry        RetryConfig      `yaml:"retry,omitempty"`
	Transactions string           `yaml:"transactions,omitempty"`
}

func Load(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFileName, err)
	}
	return &cfg, nil
}

// Save writes cfg to dir, replacing any existing file.
func Save(dir string, cfg *ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", ConfigFileName, err)
	}
	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0o644)
}

// LoadDotEnv loads dir/.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Overrides carries values given on the command line. Zero values and nil
// pointers mean "not set".
type Overrides struct {
	AccountID      string
	DatabaseID     string
	Token          string
	APIURL         string
	Retries        *int
	RetryDelay     *time.Duration
	Timeout        *time.Duration
	ConnectTimeout *time.Duration
	Transactions   string
}

// Resolved is the effective configuration.
type Resolved struct {
	Config d1sql.Config

	// TokenEnv is the variable the token was read from, or "" when it came from a flag.
	TokenEnv string
}

// Resolve merges settings with precedence flags > environment > project file > defaults
// and validates the result. project may be nil. getenv is usually os.Getenv.
func Resolve(project *ProjectConfig, flags Overrides, getenv func(string) string) (*Resolved, error) {
	if project == nil {
		project = &ProjectConfig{}
	}
	cfg := d1sql.DefaultConfig()
	var errs []error

	cfg.AccountID = firstNonEmpty(flags.AccountID, getenv(EnvAccountID), project.Connection.AccountID)
	cfg.DatabaseID = firstNonEmpty(flags.DatabaseID, getenv(EnvDatabaseID), project.Connection.DatabaseID)
	cfg.APIURL = firstNonEmpty(flags.APIURL, project.Connection.APIURL, cfg.APIURL)

	tokenEnv := firstNonEmpty(project.Connection.TokenEnv, EnvAPIToken)
	resolved := &Resolved{}
	if flags.Token != "" {
		cfg.Token = flags.Token
	} else {
		cfg.Token = getenv(tokenEnv)
		resolved.TokenEnv = tokenEnv
	}

	if project.Retry.Retries != nil {
		cfg.Retries = *project.Retry.Retries
	}
	errs = appendErr(errs, applyDuration(&cfg.RetryDelay, "retry.retry_delay", project.Retry.RetryDelay))
	errs = appendErr(errs, applyDuration(&cfg.Timeout, "retry.timeout", project.Retry.Timeout))
	errs = appendErr(errs, applyDuration(&cfg.ConnectTimeout, "retry.connect_timeout", project.Retry.ConnectTimeout))

	if flags.Retries != nil {
		cfg.Retries = *flags.Retries
	}
	if flags.RetryDelay != nil {
		cfg.RetryDelay = *flags.RetryDelay
	}
	if flags.Timeout != nil {
		cfg.Timeout = *flags.Timeout
	}
	if flags.ConnectTimeout != nil {
		cfg.ConnectTimeout = *flags.ConnectTimeout
	}

	policy, err := d1sql.ParseTxPolicy(firstNonEmpty(flags.Transactions, project.Transactions))
	errs = appendErr(errs, err)
	cfg.TxPolicy = policy

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		if cfg.Token == "" {
			err = fmt.Errorf("%w\nhint: set %s or pass --token", err, tokenEnv)
		}
		return nil, err
	}

	resolved.Config = cfg
	return resolved, nil
}

func applyDuration(dst *time.Duration, field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q in %s: %w", field, value, ConfigFileName, d1sql.ErrInvalidConfig)
	}
	*dst = d
	return nil
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
