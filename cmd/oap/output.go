package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"oap/internal/api"
	"oap/internal/provision"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var stageHeader = cases.Upper(language.Und)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// statusCell renders a stage status, coloured on terminals.
func statusCell(status string, colorize bool) string {
	if !colorize {
		return status
	}
	var color string
	switch provision.Status(status) {
	case provision.StatusPass:
		color = ansiGreen
	case provision.StatusFail:
		color = ansiRed
	case provision.StatusBlocked:
		color = ansiYellow
	case provision.StatusInProgress:
		color = ansiBlue
	default:
		return status
	}
	return color + status + ansiReset
}

func stageHeaders() []string {
	stages := provision.AllStages()
	out := make([]string, 0, len(stages))
	for _, stage := range stages {
		out = append(out, stageHeader.String(string(stage)))
	}
	return out
}

func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

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

	right := make(map[int]bool, len(rightAligned))
	for _, idx := range rightAligned {
		right[idx] = true
	}
	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if right[i] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// recordTable lists records with one status column per stage.
func recordTable(records []api.Record, colorize bool) string {
	headers := append([]string{"ID", "Request", "External", "Controller", "SUT"}, stageHeaders()...)
	headers = append(headers, "Created")
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			formatID(rec.ProvisionID),
			rec.RequestID,
			rec.ExternalID,
			rec.Controller,
			rec.SUT,
			statusCell(rec.IFWIStatus, colorize),
			statusCell(rec.BIOSStatus, colorize),
			statusCell(rec.OSStatus, colorize),
			statusCell(rec.E2EStatus, colorize),
			rec.CreatedAt,
		})
	}
	return renderTable(headers, rows, 0)
}

func activeTable(items []api.ActiveWork, colorize bool) string {
	headers := append([]string{"ID", "Controller", "SUT"}, stageHeaders()...)
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			formatID(item.ProvisionID),
			item.Controller,
			item.SUT,
			statusCell(item.IFWIStatus, colorize),
			statusCell(item.BIOSStatus, colorize),
			statusCell(item.OSStatus, colorize),
			statusCell(item.E2EStatus, colorize),
		})
	}
	return renderTable(headers, rows, 0)
}
