// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/lib/version"
)

type versionParams struct {
	cli.JSONOutput
}

func versionCommand(app *App) *cli.Command {
	var params versionParams
	return &cli.Command{
		Name:    "version",
		Summary: "Print build information",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if done, err := params.EmitJSON(app.out, version.Current()); done {
				return err
			}
			app.out.Println("belfast " + version.Full())
			return nil
		},
	}
}
