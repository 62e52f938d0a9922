// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/vulntor/tickjob/pkg/job"
)

// StatusRow is the state of one queue or job.
type StatusRow struct {
	Source        string `json:"source"`
	ID            string `json:"id"`
	State         string `json:"state"`
	TimesExecuted int    `json:"times_executed"`
	Killed        bool   `json:"killed"`
}

// QueueStatus snapshots q.
func QueueStatus(q *job.Queue) StatusRow {
	return StatusRow{Source: "queue", ID: q.ID(), State: q.State().String(), TimesExecuted: q.TimesExecuted(), Killed: q.Killed()}
}

// JobStatus snapshots j.
func JobStatus(j *job.Job) StatusRow {
	return StatusRow{Source: "job", ID: j.ID(), State: j.State().String(), TimesExecuted: j.TimesExecuted(), Killed: j.Killed()}
}

var statusHeaders = []string{"SOURCE", "ID", "STATE", "CYCLES", "KILLED"}

const stateColumn = 2

// PrintStatus prints nothing in table mode when rows is empty.
func (f *formatter) PrintStatus(rows []StatusRow) error {
	if f.IsJSON() {
		if rows == nil {
			rows = []StatusRow{}
		}
		return f.PrintJSON(rows)
	}
	if len(rows) == 0 {
		return nil
	}

	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, []string{r.Source, r.ID, r.State, strconv.Itoa(r.TimesExecuted), strconv.FormatBool(r.Killed)})
	}
	return f.writeGrid(statusHeaders, cells, func(col int, v string) (lipgloss.Style, bool) {
		if col != stateColumn {
			return lipgloss.Style{}, false
		}
		return stateStyle(v)
	})
}

func stateStyle(state string) (lipgloss.Style, bool) {
	switch state {
	case job.StateCompleted.String():
		return successStyle, true
	case job.StateKilled.String():
		return errorStyle, true
	case job.StatePaused.String():
		return warnStyle, true
	case job.StateRunning.String():
		return infoStyle, true
	}
	return lipgloss.Style{}, false
}
