// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package format renders tickjob command output. Table mode aligns columns
// and colors job states; JSON mode keeps stdout machine-readable and sends
// prose to stderr.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Mode selects how commands print their results.
type Mode string

const (
	ModeTable Mode = "table"
	ModeJSON  Mode = "json"
)

var modes = []Mode{ModeTable, ModeJSON}

// gutter is the space between table columns.
const gutter = 2

var headerStyle = lipgloss.NewStyle().Bold(true)

// Formatter prints command results in one Mode.
type Formatter interface {
	IsJSON() bool
	PrintJSON(v any) error

	// PrintTable prints rows under headers. In JSON mode each row becomes an
	// object keyed by the lower-cased header.
	PrintTable(headers []string, rows [][]string) error

	// PrintStatus prints one row per queue or job with its state colored.
	PrintStatus(rows []StatusRow) error

	// PrintEvent prints one job or queue lifecycle event.
	PrintEvent(e Event) error

	// PrintSummary prints a closing note unless quiet.
	PrintSummary(message string) error

	PrintSuccessSummary(operation, subject string) error
	PrintError(err error) error

	// PrintTotalFailureSummary prints a failure with suggestions for errorCode.
	PrintTotalFailureSummary(operation string, err error, errorCode string) error
}

type formatter struct {
	stdout io.Writer
	stderr io.Writer
	mode   Mode
	quiet  bool
	color  bool
}

// New returns a Formatter writing results to stdout and diagnostics to stderr.
func New(stdout, stderr io.Writer, mode Mode, quiet, color bool) Formatter {
	return &formatter{stdout: stdout, stderr: stderr, mode: mode, quiet: quiet, color: color}
}

func (f *formatter) IsJSON() bool { return f.mode == ModeJSON }

func (f *formatter) PrintJSON(v any) error {
	enc := json.NewEncoder(f.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f *formatter) PrintTable(headers []string, rows [][]string) error {
	if !f.IsJSON() {
		return f.writeGrid(headers, rows, nil)
	}
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = jsonKey(h)
	}
	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]string, len(keys))
		for i, k := range keys {
			if i < len(row) {
				rec[k] = row[i]
			}
		}
		records = append(records, rec)
	}
	return f.PrintJSON(records)
}

func jsonKey(header string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(header)), " ", "_")
}

// cellStyle picks the style of a body cell; ok is false for plain text.
type cellStyle func(col int, value string) (style lipgloss.Style, ok bool)

// writeGrid pads each column to its widest cell. The last column is not
// padded. Widths are measured before styling so colored cells stay aligned.
func (f *formatter) writeGrid(headers []string, rows [][]string, style cellStyle) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	line := func(cells []string, header bool) {
		for i, w := range widths {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			pad := 0
			if i < len(widths)-1 {
				pad = w - lipgloss.Width(cell) + gutter
			}
			if f.color {
				if header {
					cell = headerStyle.Render(cell)
				} else if style != nil {
					if s, ok := style(i, cell); ok {
						cell = s.Render(cell)
					}
				}
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteByte('\n')
	}

	line(headers, true)
	for _, row := range rows {
		line(row, false)
	}
	_, err := io.WriteString(f.stdout, b.String())
	return err
}

// PrintSummary goes to stderr in JSON mode.
func (f *formatter) PrintSummary(message string) error {
	if f.quiet {
		return nil
	}
	if f.IsJSON() {
		_, err := fmt.Fprintln(f.stderr, message)
		return err
	}
	if f.color {
		message = infoStyle.Render(message)
	}
	_, err := fmt.Fprintln(f.stdout, message)
	return err
}

// PrintError writes "Error: <err>" to stderr, or a failure object to stdout
// in JSON mode.
func (f *formatter) PrintError(err error) error {
	if err == nil {
		return nil
	}
	if f.IsJSON() {
		return f.PrintJSON(map[string]any{"success": false, "error": err.Error()})
	}
	msg := "Error: " + err.Error()
	if f.color {
		msg = errorStyle.Render(msg)
	}
	_, werr := fmt.Fprintln(f.stderr, msg)
	return werr
}

// ParseMode maps a flag value to a Mode, case-insensitively. Unknown values
// fall back to ModeTable; ValidateMode rejects them earlier.
func ParseMode(s string) Mode {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(modes, m) {
		return m
	}
	return ModeTable
}

// ValidateMode reports whether s names a Mode.
func ValidateMode(s string) error {
	if slices.Contains(modes, Mode(strings.ToLower(strings.TrimSpace(s)))) {
		return nil
	}
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return fmt.Errorf("invalid output mode %q: want one of %s", s, strings.Join(names, ", "))
}
