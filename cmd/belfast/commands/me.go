// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/permission"
	"github.com/belfast-foundation/belfast-console/lib/tui"
)

type mePermissionsParams struct {
	cli.JSONOutput
}

type meCommanderParams struct {
	cli.JSONOutput
}

func meCommand(app *App) *cli.Command {
	var permissionsParams mePermissionsParams
	var commanderParams meCommanderParams
	return &cli.Command{
		Name:    "me",
		Summary: "Show the signed-in operator's permissions and commander",
		Subcommands: []*cli.Command{
			{
				Name:    "permissions",
				Summary: "List effective permissions",
				Description: `List the operator's effective permissions: the merged role
policies with account overrides applied. An optional pattern narrows
the keys by fuzzy match, best match first.`,
				Usage:  "belfast me permissions [pattern] [flags]",
				Params: func() any { return &permissionsParams },
				Run: func(ctx context.Context, args []string) error {
					if len(args) > 1 {
						return cli.Validation("usage: belfast me permissions [pattern] [flags]")
					}
					if _, err := app.requireAdmin(ctx); err != nil {
						return err
					}
					snapshot, err := app.permissions()
					if err != nil {
						return err
					}
					keys := snapshot.Keys()
					if len(args) == 1 {
						keys = permission.FilterKeys(keys, args[0])
					}
					entries := make([]console.PermissionEntry, 0, len(keys))
					for _, key := range keys {
						entry, _ := snapshot.Entry(key)
						entries = append(entries, entry)
					}
					if done, err := permissionsParams.EmitJSON(app.out, entries); done {
						return err
					}
					if len(entries) == 0 {
						app.out.Println("No matching permissions.")
						return nil
					}
					app.out.Table(permissionTable(entries))
					app.out.Printf("Roles: %s\n", joinOrNone(snapshot.Roles()))
					return nil
				},
			},
			{
				Name:    "commander",
				Summary: "Show the commander linked to the operator account",
				Params:  func() any { return &commanderParams },
				Run: func(ctx context.Context, args []string) error {
					store, err := app.requireAdmin(ctx)
					if err != nil {
						return err
					}
					commander, err := store.Commander(ctx)
					if console.IsNotFound(err) {
						return cli.NotFound("no commander is linked to this account")
					}
					if err != nil {
						return err
					}
					if done, err := commanderParams.EmitJSON(app.out, commander); done {
						return err
					}
					app.out.Printf("%s (%d), level %d\n", commander.Name, commander.CommanderID, commander.Level)
					return nil
				},
			},
		},
	}
}

type canParams struct {
	Target int64 `flag:"target" desc:"commander the operation acts on; self grants cover only the operator's own commander"`
}

func canCommand(app *App) *cli.Command {
	var params canParams
	return &cli.Command{
		Name:    "can",
		Summary: "Check whether an operation is permitted",
		Description: `Check one operation against the operator's permissions without
calling the operation itself. Prints the verdict and exits 0 when the
operation is allowed and 3 when it is denied.

The operation is read_self, read_any, write_self or write_any. With
--target, the read or write half of the operation is checked for that
commander: "any" grants cover every commander, "self" grants only the
operator's linked one.`,
		Usage: "belfast can <key> <operation> [flags]",
		Examples: []cli.Example{
			{Description: "Check whether players can be listed", Command: "belfast can players read_any"},
			{Description: "Check whether commander 9001 can be banned", Command: "belfast can players write --target 9001"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 2 {
				return cli.Validation("usage: belfast can <key> <operation> [flags]")
			}
			key := args[0]
			store, err := app.requireAdmin(ctx)
			if err != nil {
				return err
			}
			snapshot, err := app.permissions()
			if err != nil {
				return err
			}

			var denial error
			if params.Target != 0 {
				access, err := parseAccess(args[1])
				if err != nil {
					return err
				}
				self, err := store.SelfCommanderID(ctx)
				if err != nil && !console.IsNotFound(err) {
					return err
				}
				denial = snapshot.RequireActOn(key, access, self, params.Target)
			} else {
				op, err := permission.ParseOp(args[1])
				if err != nil {
					return cli.Validation("%w", err)
				}
				denial = snapshot.Require(key, op)
			}

			if denial != nil {
				app.out.Println(app.out.Styled(tui.ToneFailure, denial.Error()))
				return &cli.ExitError{Code: cli.ExitPermissionDenied}
			}
			app.out.Println(app.out.Styled(tui.ToneSuccess, "Allowed."))
			return nil
		},
	}
}

// parseAccess accepts "read" or "write", or a full operation whose
// access half is used.
func parseAccess(value string) (permission.Access, error) {
	switch value {
	case "read":
		return permission.Read, nil
	case "write":
		return permission.Write, nil
	}
	op, err := permission.ParseOp(value)
	if err != nil {
		return 0, cli.Validation("%w", err)
	}
	return op.Access(), nil
}
