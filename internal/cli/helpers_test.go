package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vvka-141/d1sql/internal/config"
	"github.com/vvka-141/d1sql/internal/testing/faked1"
)

// resetFlags restores every flag to its default so commands can run repeatedly
// in one test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// isolateEnv clears the connection variables so the developer's shell does not leak in.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvAccountID, config.EnvAPIToken, config.EnvDatabaseID} {
		t.Setenv(k, "")
	}
}

// runCLI executes the root command with args and returns what it wrote.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	isolateEnv(t)
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// serverArgs points a command at s through flags, with an empty config directory.
func serverArgs(t *testing.T, s *faked1.Server) []string {
	return []string{
		"--config-dir", t.TempDir(),
		"--api-url", s.URL(),
		"--account-id", faked1.DefaultAccountID,
		"--database-id", faked1.DefaultDatabaseID,
		"--token", faked1.DefaultToken,
		"--retry-delay", "1ms",
	}
}

// runAgainst runs a command against s.
func runAgainst(t *testing.T, s *faked1.Server, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append(args, serverArgs(t, s)...)...)
}

func newUsersServer(t *testing.T) *faked1.Server {
	t.Helper()
	s := faked1.New(t)
	s.Exec(t, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT)")
	s.Exec(t, "INSERT INTO users (name, email) VALUES ('Ada', 'ada@example.com'), ('Grace', NULL)")
	return s
}
