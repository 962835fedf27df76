package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderFields lays out label/value pairs as a two-column table with the
// values right-aligned. Used by the status and address views.
func renderFields(fields [][2]string) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Field", "Value"})
	for _, field := range fields {
		tw.AppendRow(table.Row{field[0], field[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// renderList lays out rows under headers. Columns named in rightCols are
// right-aligned, which the views use for heights and amounts.
func renderList(headers []string, rows [][]string, rightCols ...int) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	right := make(map[int]bool, len(rightCols))
	for _, col := range rightCols {
		right[col] = true
	}

	tw := newTableWriter()
	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if right[i] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}
