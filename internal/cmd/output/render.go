package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/agentstation/studiosync/internal/cmd/table"
)

// renderTables writes each table, separated by a blank line.
func renderTables(w io.Writer, tables ...table.Data) error {
	for i, data := range tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		t := tablewriter.NewTable(w, tablewriter.WithConfig(tableConfig(data.ColumnAlignment)))
		if len(data.Headers) > 0 {
			t.Header(toCells(data.Headers)...)
		}
		for _, row := range data.Rows {
			if err := t.Append(toCells(row)...); err != nil {
				return err
			}
		}
		if err := t.Render(); err != nil {
			return err
		}
	}
	return nil
}

func tableConfig(alignment []table.Align) tablewriter.Config {
	var config tablewriter.Config
	if len(alignment) == 0 {
		return config
	}
	perColumn := make([]tw.Align, len(alignment))
	for i, a := range alignment {
		switch a {
		case table.AlignLeft:
			perColumn[i] = tw.AlignLeft
		case table.AlignCenter:
			perColumn[i] = tw.AlignCenter
		case table.AlignRight:
			perColumn[i] = tw.AlignRight
		default:
			perColumn[i] = tw.Skip
		}
	}
	config.Header.Alignment = tw.CellAlignment{PerColumn: perColumn}
	config.Row.Alignment = tw.CellAlignment{PerColumn: perColumn}
	return config
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
