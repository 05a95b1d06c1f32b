package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RequireSQL validates that exactly one SQL argument is provided.
// Returns a helpful error message with usage and examples if missing or too many.
func RequireSQL(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`missing required argument: <sql>

Usage: %s

Example:
  %s "SELECT * FROM users WHERE id = ?" -p 42`, cmd.UseLine(), cmd.CommandPath())
	}
	if len(args) > 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d (quote the SQL)", len(args))
	}
	return nil
}

// OptionalTableName accepts zero or one table name.
func OptionalTableName(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("accepts at most 1 arg(s), received %d", len(args))
	}
	return nil
}
