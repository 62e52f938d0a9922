// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Command tickjob runs plans of tick-driven jobs and queues.
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Invalid plan or configuration
//   - 7: Another instance holds the lock file
package main

import (
	"fmt"
	"os"

	"github.com/vulntor/tickjob/cmd/tickjob/commands"
)

func main() {
	err := commands.NewCommand().Execute()
	if err == nil {
		return
	}
	if !commands.Reported(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(commands.ExitCode(err))
}
