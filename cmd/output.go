package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"romforge/internal/ripper"
	"romforge/internal/tui"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	valueStyle   = lipgloss.NewStyle().Foreground(tui.ColorInk)
	dimStyle     = lipgloss.NewStyle().Foreground(tui.ColorDim)
	okStyle      = lipgloss.NewStyle().Foreground(tui.ColorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(tui.ColorWarn)
	errorStyle   = lipgloss.NewStyle().Foreground(tui.ColorError)
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
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
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printRipResult writes one line per result plus its details.
func printRipResult(w io.Writer, res ripper.Result) {
	switch res.Code {
	case ripper.Success:
		fmt.Fprintf(w, "%s %s\n", okStyle.Render("ripped"), valueStyle.Render(res.Source))
		fmt.Fprintf(w, "  %s %s -> %s (%d file(s), %s)\n",
			dimStyle.Render(res.Format+fmtOffset(res.Offset)),
			dimStyle.Render("artifact"),
			res.Path, res.Files, humanize.IBytes(uint64(res.Bytes)),
		)
		keys := make([]string, 0, len(res.Details))
		for k := range res.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s %s\n", dimStyle.Render(k+":"), res.Details[k])
		}
	case ripper.UnrecognizedFormat:
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render("skipped"), res.Source)
	case ripper.Corrupt:
		fmt.Fprintf(w, "%s %s %s\n", warnStyle.Render("corrupt"), res.Source, dimStyle.Render(errText(res.Err)))
	default:
		fmt.Fprintf(w, "%s %s %s\n", errorStyle.Render("failed"), res.Source, dimStyle.Render(errText(res.Err)))
	}
}

func fmtOffset(off int) string {
	if off == 0 {
		return ""
	}
	return fmt.Sprintf("@0x%x", off)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}
