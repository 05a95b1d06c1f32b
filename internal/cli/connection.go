package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/d1sql/internal/config"
	"github.com/vvka-141/d1sql/internal/logging"
	"github.com/vvka-141/d1sql/pkg/d1sql"
	"github.com/vvka-141/d1sql/pkg/d1sql/d1driver"
)

// connectionFlags holds the persistent connection-related flag values.
type connectionFlags struct {
	configDir      string
	accountID      string
	databaseID     string
	token          string
	apiURL         string
	retries        int
	retryDelay     time.Duration
	timeout        time.Duration
	connectTimeout time.Duration
	transactions   string
}

var connFlags connectionFlags

func registerConnectionFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&connFlags.configDir, "config-dir", ".", "Directory containing d1sql.yaml and .env")
	f.StringVar(&connFlags.accountID, "account-id", "", "Cloudflare account ID (env: "+config.EnvAccountID+")")
	f.StringVarP(&connFlags.databaseID, "database-id", "d", "", "D1 database ID (env: "+config.EnvDatabaseID+")")
	f.StringVar(&connFlags.token, "token", "", "API token (env: "+config.EnvAPIToken+"; prefer the environment)")
	f.StringVar(&connFlags.apiURL, "api-url", "", "API base URL (default "+d1sql.DefaultAPIURL+")")
	f.IntVar(&connFlags.retries, "retries", d1sql.DefaultRetries, "Retry budget for read-only statements")
	f.DurationVar(&connFlags.retryDelay, "retry-delay", d1sql.DefaultRetryDelay, "Base delay of the exponential backoff")
	f.DurationVar(&connFlags.timeout, "timeout", d1sql.DefaultTimeout, "Timeout for a whole request")
	f.DurationVar(&connFlags.connectTimeout, "connect-timeout", d1sql.DefaultConnectTimeout, "Timeout for establishing a connection")
	f.StringVar(&connFlags.transactions, "tx", "", "Transaction policy: reject (default) or counter")

	_ = cmd.RegisterFlagCompletionFunc("tx", completeTxPolicies)
}

// overridesFromFlags converts explicitly set flags into config overrides.
// Flags left at their defaults do not shadow the environment or d1sql.yaml.
func overridesFromFlags(cmd *cobra.Command) config.Overrides {
	o := config.Overrides{
		AccountID:    connFlags.accountID,
		DatabaseID:   connFlags.databaseID,
		Token:        connFlags.token,
		APIURL:       connFlags.apiURL,
		Transactions: connFlags.transactions,
	}
	flags := cmd.Flags()
	if flags.Changed("retries") {
		o.Retries = &connFlags.retries
	}
	if flags.Changed("retry-delay") {
		o.RetryDelay = &connFlags.retryDelay
	}
	if flags.Changed("timeout") {
		o.Timeout = &connFlags.timeout
	}
	if flags.Changed("connect-timeout") {
		o.ConnectTimeout = &connFlags.connectTimeout
	}
	return o
}

// loadProjectConfig loads .env and d1sql.yaml from dir.
// Returns nil config if d1sql.yaml does not exist (not an error).
func loadProjectConfig(dir string) (*config.ProjectConfig, error) {
	if err := config.LoadDotEnv(dir); err != nil {
		return nil, err
	}

	projectCfg, err := config.Load(dir)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w: %w", config.ConfigFileName, err, d1sql.ErrInvalidConfig)
	}
	return projectCfg, nil
}

// resolveConfig returns the effective settings for cmd.
func resolveConfig(cmd *cobra.Command) (*config.Resolved, error) {
	projectCfg, err := loadProjectConfig(connFlags.configDir)
	if err != nil {
		return nil, err
	}
	return config.Resolve(projectCfg, overridesFromFlags(cmd), os.Getenv)
}

// openConnection resolves the configuration and opens a connection.
// Nothing is sent until the first statement.
func openConnection(cmd *cobra.Command) (d1sql.Conn, error) {
	resolved, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}

	verbose := getVerboseFlag(cmd)
	logger := logging.NewWriterLogger(cmd.ErrOrStderr(), verbose)
	if verbose {
		logConnectionVerbose(cmd.ErrOrStderr(), resolved)
	}

	opts := []d1driver.Option{d1driver.WithLogger(logger)}
	if resolved.TokenEnv != "" {
		// A long-lived shell picks up rotated tokens.
		opts = append(opts, d1driver.WithTokenProvider(d1driver.EnvToken(resolved.TokenEnv)))
	}
	if verbose {
		opts = append(opts, d1driver.WithQueryLogger(func(ev d1sql.QueryEvent) {
			status := "ok"
			if ev.Error != nil {
				status = ev.Error.Message
			}
			logger.Verbose("query %s took %s: %s", ev.RequestID, ev.Elapsed.Round(time.Millisecond), status)
		}))
	}
	return d1driver.Open(resolved.Config, opts...)
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(w io.Writer, r *config.Resolved) {
	cfg := r.Config
	fmt.Fprintf(w, "[VERBOSE] Connection resolved:\n")
	fmt.Fprintf(w, "  Account: %s\n", cfg.AccountID)
	fmt.Fprintf(w, "  Database: %s\n", cfg.DatabaseID)
	fmt.Fprintf(w, "  API: %s\n", cfg.APIURL)
	if r.TokenEnv != "" {
		fmt.Fprintf(w, "  Token: from $%s\n", r.TokenEnv)
	} else {
		fmt.Fprintf(w, "  Token: from --token\n")
	}
	fmt.Fprintf(w, "  Retries: %d (base delay %s)\n", cfg.Retries, cfg.RetryDelay)
	fmt.Fprintf(w, "  Timeouts: request %s, connect %s\n", cfg.Timeout, cfg.ConnectTimeout)
	fmt.Fprintf(w, "  Transactions: %s\n", cfg.TxPolicy)
}
