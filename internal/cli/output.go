package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/vvka-141/d1sql/internal/tui"
	"github.com/vvka-141/d1sql/pkg/d1sql"
)

const (
	formatAuto  = "auto"
	formatTable = "table"
	formatJSON  = "json"
)

// resolveFormat turns "auto" into table for terminals and JSON otherwise.
func resolveFormat(format string, out io.Writer) (string, error) {
	switch format {
	case formatTable, formatJSON:
		return format, nil
	case "", formatAuto:
		if f, ok := out.(*os.File); ok && tui.IsTerminal(f) {
			return formatTable, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("invalid argument %q for --format: want table, json or auto", format)
	}
}

// renderRows writes rows to out. Columns come from the first row; rows with
// other columns render missing cells as NULL.
func renderRows(out, errOut io.Writer, format string, rows []*d1sql.Record) error {
	if format == formatJSON {
		if rows == nil {
			rows = []*d1sql.Record{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(errOut, tui.MutedStyle.Render("(no results)"))
		return nil
	}

	columns := rows[0].Columns()
	table := tablewriter.NewWriter(out)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			v, _ := row.Get(c)
			cells[i] = formatCell(v)
		}
		table.Append(cells)
	}
	table.Render()

	if len(rows) == 1 {
		fmt.Fprintln(errOut, tui.MutedStyle.Render("(1 row)"))
	} else {
		fmt.Fprintln(errOut, tui.MutedStyle.Render(fmt.Sprintf("(%d rows)", len(rows))))
	}
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
