// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"strconv"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/permission"
	"github.com/belfast-foundation/belfast-console/lib/tui"
)

const serverKey = "server"

type serverStatusParams struct {
	cli.JSONOutput
}

type serverStatus struct {
	console.ServerStatus
	Maintenance bool `json:"maintenance"`
}

func serverCommand(app *App) *cli.Command {
	var statusParams serverStatusParams
	var maintenanceParams serverStatusParams
	return &cli.Command{
		Name:    "server",
		Summary: "Check the game server and switch maintenance mode",
		Subcommands: []*cli.Command{
			{
				Name:    "status",
				Summary: "Show whether the server runs and accepts players",
				Params:  func() any { return &statusParams },
				Run: func(ctx context.Context, args []string) error {
					store, err := app.authorize(ctx, serverKey, permission.ReadAny)
					if err != nil {
						return err
					}
					client := store.Client()
					status, err := client.ServerStatus(ctx)
					if err != nil {
						return err
					}
					maintenance, err := client.Maintenance(ctx)
					if err != nil {
						return err
					}
					result := serverStatus{ServerStatus: *status, Maintenance: maintenance.Enabled}
					if done, err := statusParams.EmitJSON(app.out, result); done {
						return err
					}

					running := tui.Cell{Text: "stopped", Tone: tui.ToneFailure}
					if status.Running {
						running = tui.Cell{Text: "running", Tone: tui.ToneSuccess}
					}
					accepting := tui.Cell{Text: "no", Tone: tui.ToneWarning}
					if status.Accepting {
						accepting = tui.Cell{Text: "yes", Tone: tui.ToneSuccess}
					}
					mode := tui.Cell{Text: "off", Tone: tui.ToneFaint}
					if maintenance.Enabled {
						mode = tui.Cell{Text: "on", Tone: tui.ToneWarning}
					}
					table := newTable("STATE", "ACCEPTING", "CLIENTS", "UPTIME", "MAINTENANCE")
					table.Rows = append(table.Rows, []tui.Cell{
						running,
						accepting,
						{Text: strconv.Itoa(status.ClientCount)},
						{Text: orDash(status.UptimeHuman)},
						mode,
					})
					app.out.Table(table)
					return nil
				},
			},
			{
				Name:    "maintenance",
				Summary: "Show or switch maintenance mode",
				Description: `Without an argument, show whether maintenance mode is on. With on
or off, switch it; switching needs server (write any).`,
				Usage:  "belfast server maintenance [on|off] [flags]",
				Params: func() any { return &maintenanceParams },
				Run: func(ctx context.Context, args []string) error {
					if len(args) > 1 {
						return cli.Validation("usage: belfast server maintenance [on|off] [flags]")
					}
					var result *console.Maintenance
					if len(args) == 0 {
						store, err := app.authorize(ctx, serverKey, permission.ReadAny)
						if err != nil {
							return err
						}
						result, err = store.Client().Maintenance(ctx)
						if err != nil {
							return err
						}
					} else {
						var enabled bool
						switch args[0] {
						case "on":
							enabled = true
						case "off":
						default:
							return cli.Validation("maintenance takes on or off, got %q", args[0])
						}
						store, err := app.authorize(ctx, serverKey, permission.WriteAny)
						if err != nil {
							return err
						}
						result, err = store.Client().SetMaintenance(ctx, enabled)
						if err != nil {
							return err
						}
					}
					if done, err := maintenanceParams.EmitJSON(app.out, result); done {
						return err
					}
					if result.Enabled {
						app.out.Println("Maintenance mode is on.")
					} else {
						app.out.Println("Maintenance mode is off.")
					}
					return nil
				},
			},
		},
	}
}
