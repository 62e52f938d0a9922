// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// PrintSuccessSummary prints a standardized success message
// Examples:
//   - "✓ Validate plan.yaml"
//   - "✓ Run completed successfully"
func (f *formatter) PrintSuccessSummary(operation, subject string) error {
	if f.quiet {
		if subject != "" {
			_, err := fmt.Fprintln(f.stdout, subject)
			return err
		}
		return nil
	}

	if f.mode == ModeJSON {
		return f.PrintJSON(map[string]any{
			"success":   true,
			"operation": operation,
			"subject":   subject,
		})
	}

	var message string
	if subject != "" {
		message = fmt.Sprintf("✓ %s %s", capitalize(operation), subject)
	} else {
		message = fmt.Sprintf("✓ %s completed successfully", capitalize(operation))
	}

	if f.color {
		_, err := color.New(color.FgGreen).Fprintln(f.stdout, message)
		return err
	}

	_, err := fmt.Fprintln(f.stdout, message)
	return err
}

// PrintTotalFailureSummary prints total failure with error and suggestions
// Example output:
//
//	✗ Failed to validate: invalid plan: no queues or jobs
//
//	💡 Suggestions:
//	  → Check the plan against the documented schema
func (f *formatter) PrintTotalFailureSummary(operation string, err error, errorCode string) error {
	if f.quiet {
		return nil
	}

	if f.mode == ModeJSON {
		return f.PrintJSON(map[string]any{
			"success":    false,
			"operation":  operation,
			"error":      err.Error(),
			"error_code": errorCode,
		})
	}

	var sb strings.Builder

	errorMsg := fmt.Sprintf("✗ Failed to %s: %v", operation, err)
	if f.color {
		sb.WriteString(color.RedString("%s\n", errorMsg))
	} else {
		sb.WriteString(errorMsg + "\n")
	}

	suggestions := GetSuggestions(errorCode, operation)
	if len(suggestions) > 0 {
		sb.WriteString("\n💡 Suggestions:\n")
		for _, s := range suggestions {
			sb.WriteString(fmt.Sprintf("  → %s\n", s))
		}
	}

	_, writeErr := f.stdout.Write([]byte(sb.String()))
	return writeErr
}

var suggestionGenerators = map[string]func(string) []string{
	"PLAN_INVALID": func(string) []string {
		return []string{
			"Check the plan:              tickjob validate <plan>",
			"Plans are YAML or JSON with a version and at least one queue or job",
		}
	},
	"PLAN_UNKNOWN_KIND": func(string) []string {
		return []string{
			"List available kinds:        tickjob kinds",
		}
	},
	"PLAN_UNSUPPORTED_VERSION": func(string) []string {
		return []string{
			"Set version to a 1.x value:  version: \"1.0\"",
		}
	},
	"JOB_DUPLICATE_ID": func(string) []string {
		return []string{
			"Give every top-level job a unique id",
		}
	},
	"SERVER_INVALID_CONFIG": func(string) []string {
		return []string{
			"Check configuration values in config file",
			"Retry with --debug for detailed validation errors",
		}
	},
	"SERVER_ALREADY_RUNNING": func(operation string) []string {
		return []string{
			"Stop the other runner or choose another lock file",
			fmt.Sprintf("Override the lock file:      tickjob %s <plan> --scheduler.lock_file <path>", operation),
		}
	},
	"SERVER_RUNTIME_FAILED": func(string) []string {
		return []string{
			"Check logs for runtime errors",
			"Ensure no other process is using the control API address",
		}
	},
}

// GetSuggestions returns actionable hints based on error code and operation.
func GetSuggestions(errorCode, operation string) []string {
	if generator, ok := suggestionGenerators[errorCode]; ok {
		return generator(operation)
	}
	return nil
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
