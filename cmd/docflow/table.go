package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	cellWidth = 40
	// fileCellWidth leaves room for archive paths and export file names.
	fileCellWidth = 60
)

type column struct {
	title string
	right bool
	width int
}

func leftCol(title string) column { return column{title: title, width: cellWidth} }

func numCol(title string) column { return column{title: title, right: true, width: cellWidth} }

func fileCol(title string) column { return column{title: title, width: fileCellWidth} }

// renderTable draws rows under cols in the rounded style. Short rows are
// padded; cells beyond the column width are trimmed.
func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		align := text.AlignLeft
		if c.right {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:           i + 1,
			Align:            align,
			AlignHeader:      text.AlignLeft,
			WidthMax:         c.width,
			WidthMaxEnforcer: text.Trim,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(cols))
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		tw.AppendRow(cells)
	}
	return tw.Render() + "\n"
}
