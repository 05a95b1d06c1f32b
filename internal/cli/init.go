package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vvka-141/d1sql/internal/config"
	"github.com/vvka-141/d1sql/internal/tui"
	"github.com/vvka-141/d1sql/pkg/d1sql"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a d1sql.yaml for a database",
	Long: `Write d1sql.yaml into the given directory (default: --config-dir).

The file records the account and database IDs, the API URL when it is not the
default, and the name of the environment variable holding the API token.
The token itself is never written.

Examples:
  d1sql init --account-id 0123abcd -d 6f1c...
  d1sql init ./project --token-env MY_D1_TOKEN --retries 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initTokenEnv string
	initForce    bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initTokenEnv, "token-env", config.EnvAPIToken, "Environment variable holding the API token")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing d1sql.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := connFlags.configDir
	if len(args) == 1 {
		dir = args[0]
	}

	if connFlags.accountID == "" || connFlags.databaseID == "" {
		return fmt.Errorf("--account-id and --database-id are required: %w", d1sql.ErrInvalidConfig)
	}
	if connFlags.token != "" {
		return fmt.Errorf("--token cannot be saved; export %s instead: %w", initTokenEnv, d1sql.ErrInvalidConfig)
	}

	if _, err := d1sql.ParseTxPolicy(connFlags.transactions); err != nil {
		return err
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	cfg := &config.ProjectConfig{
		Connection: config.ConnectionConfig{
			AccountID:  connFlags.accountID,
			DatabaseID: connFlags.databaseID,
		},
		Transactions: connFlags.transactions,
	}
	if connFlags.apiURL != "" && connFlags.apiURL != d1sql.DefaultAPIURL {
		cfg.Connection.APIURL = connFlags.apiURL
	}
	if initTokenEnv != config.EnvAPIToken {
		cfg.Connection.TokenEnv = initTokenEnv
	}

	o := overridesFromFlags(cmd)
	cfg.Retry.Retries = o.Retries
	if o.RetryDelay != nil {
		cfg.Retry.RetryDelay = o.RetryDelay.String()
	}
	if o.Timeout != nil {
		cfg.Retry.Timeout = o.Timeout.String()
	}
	if o.ConnectTimeout != nil {
		cfg.Retry.ConnectTimeout = o.ConnectTimeout.String()
	}

	if err := config.Save(dir, cfg); err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), tui.SuccessStyle.Render(tui.SymbolCheck+" Wrote "+path))
	if os.Getenv(initTokenEnv) == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), tui.MutedStyle.Render("Set "+initTokenEnv+" (or add it to .env) before running queries."))
	}
	return nil
}
