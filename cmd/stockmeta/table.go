package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one rendered table column. Cells of a status column hold
// queue item or check statuses and are coloured when writing to a terminal.
type column struct {
	header string
	align  text.Align
	status bool
}

func leftCol(header string) column { return column{header: header, align: text.AlignLeft} }
func rightCol(header string) column { return column{header: header, align: text.AlignRight} }
func statusCol(header string) column { return column{header: header, align: text.AlignLeft, status: true} }

var statusColors = map[string]text.Colors{
	"idle":       {text.FgYellow},
	"processing": {text.FgCyan},
	"success":    {text.FgGreen},
	"error":      {text.FgRed},
	"ok":         {text.FgGreen},
	"failed":     {text.FgRed},
}

func colorStatus(val any) string {
	s := fmt.Sprint(val)
	if colors, ok := statusColors[s]; ok {
		return colors.Sprint(s)
	}
	return s
}

// renderTable writes rows under columns to out. Short rows are padded with
// blank cells; extra cells are dropped.
func renderTable(out io.Writer, columns []column, rows [][]string) {
	if len(columns) == 0 {
		return
	}
	colorize := shouldColorize(out)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.header
		configs[i] = table.ColumnConfig{Number: i + 1, Align: c.align, AlignHeader: text.AlignLeft}
		if c.status && colorize {
			configs[i].Transformer = colorStatus
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	fmt.Fprintln(out, tw.Render())
}
