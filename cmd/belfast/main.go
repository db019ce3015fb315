// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/cmd/belfast/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own verdict (like can) return an
		// ExitError; don't add an "error:" line for those.
		if !cli.Silent(err) {
			fmt.Fprintf(os.Stderr, "error: %v\n", cli.Classify(err))
		}
		os.Exit(cli.ExitCode(err))
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Main(ctx, os.Args[1:], commands.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
}
