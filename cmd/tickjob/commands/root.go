// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package commands wires the tickjob CLI.
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulntor/tickjob/cmd/tickjob/internal/format"
	"github.com/vulntor/tickjob/pkg/appctx"
	"github.com/vulntor/tickjob/pkg/config"
	"github.com/vulntor/tickjob/pkg/logging"
	"github.com/vulntor/tickjob/pkg/plan"
	"github.com/vulntor/tickjob/pkg/server"
)

const cliExecutable = "tickjob"

// NewCommand constructs the top-level tickjob command with its global flags
// and subcommands.
func NewCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Run tick-driven job plans",
		Long: `tickjob runs plans of jobs and queues on a cooperative tick scheduler.

A plan file lists queues, which run their jobs one after another, and
standalone jobs, which the manager starts on their own.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := format.ValidateMode(cmd.Flag("output").Value.String()); err != nil {
				return err
			}

			mgr := config.NewManager()
			if err := mgr.Load(cmd.Flags(), configFile); err != nil {
				return server.WrapInvalidConfig(fmt.Errorf("load config: %w", err))
			}
			cfg := mgr.Get()
			if err := logging.ConfigureGlobalLogging(cfg.Log.Level, cfg.Log.Format); err != nil {
				return server.WrapInvalidConfig(err)
			}

			ctx := appctx.WithConfig(cmd.Context(), mgr)
			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().StringP("output", "o", string(format.ModeTable), "Output format (table, json)")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress summaries")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newKindsCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// reportedError marks an error whose failure summary was already printed.
type reportedError struct{ error }

func (e *reportedError) Unwrap() error { return e.error }

// fail prints the failure summary for err and returns it marked as reported.
func fail(f format.Formatter, operation string, err error) error {
	_ = f.PrintTotalFailureSummary(operation, err, errorCode(err))
	return &reportedError{err}
}

// Reported tells main whether err was already shown to the user.
func Reported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

func errorCode(err error) string {
	if code := plan.ErrorCode(err); code != "" {
		return code
	}
	return server.ErrorCode(err)
}

// ExitCode maps err to the process exit status. Plan problems are usage
// errors (2); everything else follows the server mapping.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if plan.ErrorCode(err) != "" {
		return 2
	}
	return server.ExitCode(err)
}
