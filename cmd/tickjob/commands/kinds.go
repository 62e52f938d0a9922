// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package commands

import (
	"github.com/spf13/cobra"

	"github.com/vulntor/tickjob/cmd/tickjob/internal/format"
	"github.com/vulntor/tickjob/pkg/appctx"
	"github.com/vulntor/tickjob/pkg/plan"
)

func newKindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the job kinds a plan may use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := appctx.Registry(cmd.Context())
			rows := make([][]string, 0, len(reg.Kinds()))
			for _, kind := range reg.Kinds() {
				rows = append(rows, []string{kind, plan.KindDescriptions[kind]})
			}
			return format.FromCommand(cmd).PrintTable([]string{"KIND", "DESCRIPTION"}, rows)
		},
	}
}
