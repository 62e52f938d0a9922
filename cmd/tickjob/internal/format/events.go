// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vulntor/tickjob/pkg/plan"
)

// Event is a lifecycle event emitted while a plan runs.
type Event = plan.Event

var (
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sourceStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
)

func styleForEvent(e Event) lipgloss.Style {
	switch {
	case e.Killed:
		return errorStyle
	case e.Kind == "complete":
		return successStyle
	case e.Kind == "paused":
		return warnStyle
	default:
		return infoStyle
	}
}

// PrintEvent writes one line per event, or one compact JSON object per line in JSON mode.
func (f *formatter) PrintEvent(e Event) error {
	if f.quiet {
		return nil
	}

	if f.mode == ModeJSON {
		data, err := json.Marshal(map[string]any{
			"time":           e.Time,
			"source":         e.Source,
			"id":             e.ID,
			"event":          e.Kind,
			"times_executed": e.TimesExecuted,
			"killed":         e.Killed,
			"final":          e.Final,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(f.stdout, string(data))
		return err
	}

	ts := e.Time.Format("15:04:05.000")
	source := fmt.Sprintf("%-5s %s", e.Source, e.ID)
	kind := e.Kind
	var flags []string
	if e.Kind == "complete" {
		flags = append(flags, fmt.Sprintf("cycles=%d", e.TimesExecuted))
		if e.Killed {
			flags = append(flags, "killed")
		}
		if e.Final {
			flags = append(flags, "final")
		}
	}
	detail := strings.Join(flags, " ")

	if f.color {
		ts = timeStyle.Render(ts)
		source = sourceStyle.Render(source)
		kind = styleForEvent(e).Render(kind)
	}

	line := fmt.Sprintf("%s  %s  %s", ts, source, kind)
	if detail != "" {
		line += "  " + detail
	}
	_, err := fmt.Fprintln(f.stdout, line)
	return err
}
