package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/vvka-141/d1sql/internal/tui"
	"github.com/vvka-141/d1sql/pkg/d1sql"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive SQL shell",
	Long: `Start an interactive shell connected to the database.

Statements end with a semicolon and may span several lines.

Meta commands:
  \dt          list tables
  \dv          list views
  \d <table>   describe a table's columns
  \q           quit (also: quit, exit, Ctrl-D)`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

var shellFormat string

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().StringVarP(&shellFormat, "format", "f", formatTable, "Output format: table or json")
	_ = shellCmd.RegisterFlagCompletionFunc("format", completeOutputFormats)
}

const (
	promptFirst    = "d1> "
	promptContinue = "... "
)

// lineReader is the part of *readline.Instance the shell loop uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

func runShell(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(shellFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	conn, err := openConnection(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".d1sql_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          tui.PromptStyle.Render(promptFirst),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "Connected to D1. Type \\q to quit.")
	return shellLoop(cmd.Context(), conn, rl, cmd.OutOrStdout(), cmd.ErrOrStderr(), format)
}

// shellLoop reads statements until EOF or a quit command. SQL errors are
// printed and the loop continues.
func shellLoop(ctx context.Context, conn d1sql.Conn, in lineReader, out, errOut io.Writer, format string) error {
	var buf strings.Builder

	for {
		if buf.Len() == 0 {
			in.SetPrompt(tui.PromptStyle.Render(promptFirst))
		} else {
			in.SetPrompt(promptContinue)
		}

		line, err := in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if buf.Len() == 0 && len(line) == 0 {
				return nil
			}
			buf.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		trimmed := strings.TrimSpace(line)
		if buf.Len() == 0 {
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, `\`) || trimmed == "quit" || trimmed == "exit" {
				if quit := runMeta(ctx, conn, trimmed, out, errOut, format); quit {
					return nil
				}
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteByte('\n')
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}

		sql := strings.TrimSpace(buf.String())
		buf.Reset()

		stmt, err := conn.Prepare(sql)
		if err == nil {
			err = runStatement(ctx, stmt, out, errOut, format)
		}
		if err != nil {
			printShellError(errOut, err)
		}
	}
}

// runMeta handles a backslash command and reports whether the shell should exit.
func runMeta(ctx context.Context, conn d1sql.Conn, line string, out, errOut io.Writer, format string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch name {
	case `\q`, "quit", "exit":
		return true
	case `\dt`:
		err = listObjects(ctx, conn, objectTables, out, errOut, format)
	case `\dv`:
		err = listObjects(ctx, conn, objectViews, out, errOut, format)
	case `\d`:
		if arg == "" {
			err = listObjects(ctx, conn, objectTables, out, errOut, format)
		} else {
			err = describeTable(ctx, conn, arg, out, errOut, format)
		}
	default:
		err = fmt.Errorf("unknown command %s", name)
	}
	if err != nil {
		printShellError(errOut, err)
	}
	return false
}

func printShellError(w io.Writer, err error) {
	fmt.Fprintln(w, tui.ErrorStyle.Render(tui.SymbolCross+" "+err.Error()))
}
