package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/d1sql/internal/d1"
	"github.com/vvka-141/d1sql/internal/tui"
	"github.com/vvka-141/d1sql/pkg/d1sql"
)

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a statement and print its rows",
	Long: `Run one SQL statement and print the rows it returns.

Parameters bind to ? placeholders in order (-p) or to :name placeholders (-n).
Values are sent as text; SQLite's type affinity converts them on comparison.

Output is a table on a terminal and JSON otherwise. Use --format to choose.

Examples:
  d1sql query "SELECT * FROM users"
  d1sql query "SELECT * FROM users WHERE id = ?" -p 42
  d1sql query "SELECT * FROM users WHERE email = :email" -n email=ada@example.com
  d1sql query "SELECT count(*) AS n FROM users" --format json`,
	Args: RequireSQL,
	RunE: runQuery,
}

var execCmd = &cobra.Command{
	Use:   "exec <sql>",
	Short: "Run a statement and print the number of affected rows",
	Long: `Run SQL that changes data or schema and print the number of affected rows.

Statements run with transport retries disabled: a write that may have reached
D1 is never sent twice. A connection failure (exit code 11) therefore means the
statement may or may not have been applied.

Examples:
  d1sql exec "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)"
  d1sql exec "DELETE FROM sessions WHERE expires_at < ?" -p 1700000000`,
	Args: RequireSQL,
	RunE: runExec,
}

type statementFlags struct {
	params []string
	named  []string
	format string
}

var (
	queryFlags statementFlags
	execFlags  statementFlags
)

func init() {
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(execCmd)

	for _, c := range []struct {
		cmd   *cobra.Command
		flags *statementFlags
	}{{queryCmd, &queryFlags}, {execCmd, &execFlags}} {
		c.cmd.Flags().StringArrayVarP(&c.flags.params, "param", "p", nil, "Positional parameter (repeatable)")
		c.cmd.Flags().StringArrayVarP(&c.flags.named, "named", "n", nil, "Named parameter as name=value (repeatable)")
	}

	queryCmd.Flags().StringVarP(&queryFlags.format, "format", "f", formatAuto, "Output format: auto, table or json")
	_ = queryCmd.RegisterFlagCompletionFunc("format", completeOutputFormats)
}

func runQuery(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(queryFlags.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	conn, err := openConnection(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	stmt, err := prepareWithParams(conn, args[0], queryFlags)
	if err != nil {
		return err
	}
	return runStatement(cmd.Context(), stmt, cmd.OutOrStdout(), cmd.ErrOrStderr(), format)
}

func runExec(cmd *cobra.Command, args []string) error {
	conn, err := openConnection(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetRetry(false)

	stmt, err := prepareWithParams(conn, args[0], execFlags)
	if err != nil {
		return err
	}
	if _, err := stmt.Execute(cmd.Context()); err != nil {
		return err
	}
	printAffected(cmd.ErrOrStderr(), stmt.RowCount())
	return nil
}

// prepareWithParams prepares sql and binds -p values to positions and -n
// values to names.
func prepareWithParams(conn d1sql.Conn, sql string, flags statementFlags) (d1sql.Stmt, error) {
	stmt, err := conn.Prepare(sql)
	if err != nil {
		return nil, err
	}
	for i, p := range flags.params {
		if err := stmt.BindValue(i+1, p, d1sql.ParamStr); err != nil {
			return nil, err
		}
	}
	for _, pair := range flags.named {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid argument %q for --named: want name=value", pair)
		}
		if err := stmt.BindValue(strings.TrimSpace(name), value, d1sql.ParamStr); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// runStatement executes stmt and prints rows for read-only statements or
// result sets, and the affected row count otherwise.
func runStatement(ctx context.Context, stmt d1sql.Stmt, out, errOut io.Writer, format string) error {
	if _, err := stmt.Execute(ctx); err != nil {
		return err
	}

	if stmt.ColumnCount() == 0 && !d1.IsReadOnly(stmt.QueryString()) {
		printAffected(errOut, stmt.RowCount())
		return nil
	}

	all, err := stmt.FetchAll(d1sql.FetchObj)
	if err != nil {
		return err
	}
	rows := make([]*d1sql.Record, len(all))
	for i, r := range all {
		rows[i] = r.(*d1sql.Record)
	}
	return renderRows(out, errOut, format, rows)
}

func printAffected(w io.Writer, n int64) {
	noun := "rows"
	if n == 1 {
		noun = "row"
	}
	fmt.Fprintln(w, tui.SuccessStyle.Render(fmt.Sprintf("%s OK, %d %s affected", tui.SymbolCheck, n, noun)))
}
