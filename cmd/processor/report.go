package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"trialmerge/internal/dataprocessing"
	"trialmerge/internal/services"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
)

func printReport(w io.Writer, inputs int, res *services.MergeResult) {
	t := res.Table

	fmt.Fprintln(w, titleStyle.Render("Merge report"))
	fmt.Fprintf(w, "  inputs: %d  parsed: %d  failed: %d  rows: %d\n",
		inputs, t.FilesParsed, len(t.Failures), len(t.Records))
	if len(t.CountColumns) > 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  count columns: %v", t.CountColumns)))
	}

	for _, f := range t.Failures {
		fmt.Fprintln(w, failureStyle.Render(fmt.Sprintf("  skipped %s [%s]: %s", f.Source, f.Kind, f.Message)))
	}

	if res.Saved {
		fmt.Fprintf(w, "  wrote %s\n", res.OutputFile)
	}

	if res.Summary != nil && res.Summary.Rows > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderSummary(res.Summary))
	}
}

func renderSummary(s *dataprocessing.Summary) string {
	rows := make([][]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		rows = append(rows, []string{
			c.Column,
			strconv.Itoa(c.Count),
			stat(c.Mean),
			stat(c.Std),
			stat(c.Min),
			stat(c.Max),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("column", "count", "mean", "std", "min", "max").
		Rows(rows...)

	header := titleStyle.Render(fmt.Sprintf("Summary: %d rows, items %v, system types %v",
		s.Rows, s.Items, s.SystemTypes))
	return lipgloss.JoinVertical(lipgloss.Left, header, tbl.Render())
}

func stat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
