package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/d1sql/internal/schema"
	"github.com/vvka-141/d1sql/internal/tui"
	"github.com/vvka-141/d1sql/internal/ui"
	"github.com/vvka-141/d1sql/pkg/d1sql"
)

var tablesCmd = &cobra.Command{
	Use:   "tables [table]",
	Short: "List tables, or describe one table's columns",
	Long: `Without an argument, list the user tables of the database. Internal SQLite
and Cloudflare tables (sqlite_*, _cf_*) are hidden.

With a table name, list its columns.

Examples:
  d1sql tables
  d1sql tables --views
  d1sql tables users`,
	Args: OptionalTableName,
	RunE: runTables,
}

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Drop every view and table in the database",
	Long: `Drop every user view and table. This cannot be undone.

In a terminal, wipe asks you to type the database ID. Elsewhere it requires
--force, which proceeds after a short countdown. Views are dropped before tables.

Examples:
  d1sql wipe
  d1sql wipe --force --countdown 0`,
	Args: cobra.NoArgs,
	RunE: runWipe,
}

var (
	tablesViews   bool
	tablesFormat  string
	wipeForce     bool
	wipeCountdown time.Duration
)

func init() {
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(wipeCmd)

	tablesCmd.Flags().BoolVar(&tablesViews, "views", false, "List views instead of tables")
	tablesCmd.Flags().StringVarP(&tablesFormat, "format", "f", formatAuto, "Output format: auto, table or json")
	_ = tablesCmd.RegisterFlagCompletionFunc("format", completeOutputFormats)

	wipeCmd.Flags().BoolVar(&wipeForce, "force", false, "Skip the typed confirmation")
	wipeCmd.Flags().DurationVar(&wipeCountdown, "countdown", 5*time.Second, "Delay before a forced wipe starts")
}

type objectKind int

const (
	objectTables objectKind = iota
	objectViews
)

// grammar is the catalog query compiler used by every command.
func grammar() schema.Grammar {
	g, err := schema.ForVersion(schema.VersionCurrent)
	if err != nil {
		panic(err)
	}
	return g
}

func runTables(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(tablesFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	conn, err := openConnection(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if len(args) == 1 {
		return describeTable(cmd.Context(), conn, args[0], out, errOut, format)
	}
	kind := objectTables
	if tablesViews {
		kind = objectViews
	}
	return listObjects(cmd.Context(), conn, kind, out, errOut, format)
}

func listObjects(ctx context.Context, conn d1sql.Conn, kind objectKind, out, errOut io.Writer, format string) error {
	query := grammar().CompileTables("")
	if kind == objectViews {
		query = grammar().CompileViews("")
	}
	stmt, err := conn.Prepare(query)
	if err != nil {
		return err
	}
	return runStatement(ctx, stmt, out, errOut, format)
}

func describeTable(ctx context.Context, conn d1sql.Conn, table string, out, errOut io.Writer, format string) error {
	exists, err := tableExists(ctx, conn, table)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("table %q not found", table)
	}

	stmt, err := conn.Prepare(grammar().CompileColumns("", table))
	if err != nil {
		return err
	}
	return runStatement(ctx, stmt, out, errOut, format)
}

func tableExists(ctx context.Context, conn d1sql.Conn, table string) (bool, error) {
	query, params := grammar().CompileTableExists("", table)
	stmt, err := conn.Prepare(query)
	if err != nil {
		return false, err
	}
	if _, err := stmt.Execute(ctx, params...); err != nil {
		return false, err
	}
	v, ok := stmt.FetchColumn(0)
	if !ok {
		return false, nil
	}
	n, _ := v.(int64)
	return n != 0, nil
}

// objectNames runs a catalog query and returns its first column.
func objectNames(ctx context.Context, conn d1sql.Conn, query string) ([]string, error) {
	stmt, err := conn.Query(ctx, query, d1sql.FetchNum)
	if err != nil {
		return nil, err
	}
	var names []string
	for {
		v, ok := stmt.FetchColumn(0)
		if !ok {
			return names, nil
		}
		if s, isString := v.(string); isString {
			names = append(names, s)
		}
	}
}

func runWipe(cmd *cobra.Command, args []string) error {
	var approver ui.Approver
	switch {
	case wipeForce:
		approver = ui.NewForcedApprover(wipeCountdown, cmd.ErrOrStderr())
	case tui.IsInteractive():
		approver = ui.NewInteractiveApprover(cmd.InOrStdin(), cmd.ErrOrStderr())
	default:
		return fmt.Errorf(`required flag "force" not set; wipe drops every view and table`)
	}

	resolved, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	approved, err := approver.RequestApproval(ctx, resolved.Config.DatabaseID)
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("wipe of %s cancelled", resolved.Config.DatabaseID)
	}

	conn, err := openConnection(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	g := grammar()

	views, err := objectNames(ctx, conn, g.CompileViews(""))
	if err != nil {
		return err
	}
	tables, err := objectNames(ctx, conn, g.CompileTables(""))
	if err != nil {
		return err
	}

	conn.SetRetry(false)
	statements := append(g.CompileDropAllViews(views), g.CompileDropAllTables(tables)...)
	for _, sql := range statements {
		if _, err := conn.Exec(ctx, sql); err != nil {
			return fmt.Errorf("%s: %w", sql, err)
		}
	}

	fmt.Fprintln(cmd.ErrOrStderr(), tui.WarningStyle.Render(
		fmt.Sprintf("%s Dropped %d view(s) and %d table(s)", tui.SymbolCheck, len(views), len(tables))))
	return nil
}
