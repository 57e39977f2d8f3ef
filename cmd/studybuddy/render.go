package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

const defaultWrapWidth = 100

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func wrapWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 20 {
		return n - 2
	}
	return defaultWrapWidth
}

// printMarkdown renders markdown with glamour on a terminal and writes it
// unchanged anywhere else.
func printMarkdown(w io.Writer, content string) {
	if isTerminal(w) {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrapWidth()),
			glamour.WithColorProfile(termenv.EnvColorProfile()),
		)
		if err == nil {
			if rendered, err := r.Render(content); err == nil {
				fmt.Fprint(w, rendered)
				return
			}
		}
	}
	fmt.Fprintln(w, content)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable renders rows under headers. Columns with a positive maxWidth
// entry are trimmed to it.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment, maxWidths []int, footer []string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	toRow := func(values []string) table.Row {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(values) {
				r[i] = values[i]
			} else {
				r[i] = ""
			}
		}
		return r
	}

	tw.AppendHeader(toRow(headers))
	for _, row := range rows {
		tw.AppendRow(toRow(row))
	}
	if len(footer) > 0 {
		tw.AppendFooter(toRow(footer))
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		cfg := table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if i < len(aligns) && aligns[i] == alignRight {
			cfg.Align = text.AlignRight
		}
		if i < len(maxWidths) && maxWidths[i] > 0 {
			cfg.WidthMax = maxWidths[i]
			cfg.WidthMaxEnforcer = text.Trim
		}
		columnConfigs = append(columnConfigs, cfg)
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
