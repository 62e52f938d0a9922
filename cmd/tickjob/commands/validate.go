// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulntor/tickjob/cmd/tickjob/internal/format"
	"github.com/vulntor/tickjob/pkg/appctx"
	"github.com/vulntor/tickjob/pkg/plan"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan-file>...",
		Short: "Check plan files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)
			reg := appctx.Registry(cmd.Context())

			for _, path := range args {
				p, err := plan.LoadFile(path)
				if err == nil {
					err = p.Validate(reg)
				}
				if err != nil {
					return fail(formatter, "validate", fmt.Errorf("%s: %w", path, err))
				}
				subject := fmt.Sprintf("%s (%d queues, %d jobs)", path, len(p.Queues), p.JobCount())
				if err := formatter.PrintSuccessSummary("validate", subject); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
