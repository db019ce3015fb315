// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/permission"
	"github.com/belfast-foundation/belfast-console/lib/session"
)

type playerLoginParams struct {
	cli.JSONOutput
	passwordFileParams
}

type playerLoginResult struct {
	Player      session.PlayerSession `json:"player"`
	Roles       []string              `json:"roles"`
	Permissions []string              `json:"permissions"`
}

func playerCommand(app *App) *cli.Command {
	var loginParams playerLoginParams
	return &cli.Command{
		Name:    "player",
		Summary: "Act as a player",
		Subcommands: []*cli.Command{{
			Name:    "login",
			Summary: "Sign in as a player and show what the account may do",
			Description: `Sign in with a commander id and the player account password.

The player session lasts only for this command and is never saved.
The command shows the player's commander when the player policy lets
players read their own record, and lists the policy's keys.`,
			Usage:  "belfast player login <commander-id> [flags]",
			Params: func() any { return &loginParams },
			Run: func(ctx context.Context, args []string) error {
				if len(args) != 1 {
					return cli.Validation("usage: belfast player login <commander-id> [flags]")
				}
				commanderID, err := commanderArg(args[0])
				if err != nil {
					return err
				}
				store, err := app.connect(ctx, false)
				if err != nil {
					return err
				}
				password, err := app.prompter.Password("Password", loginParams.PasswordFile)
				if err != nil {
					return err
				}
				defer password.Close()

				player, err := store.PlayerLogin(ctx, commanderID, password)
				if err != nil {
					return err
				}
				defer store.PlayerLogout()

				snapshot, err := app.permissions()
				if err != nil {
					return err
				}
				result := playerLoginResult{Player: player, Roles: snapshot.Roles(), Permissions: snapshot.Keys()}
				if done, err := loginParams.EmitJSON(app.out, result); done {
					return err
				}

				app.out.Printf("Signed in as commander %d.\n", player.User.CommanderID)
				if snapshot.CanActOn("players", permission.Read, commanderID, commanderID) {
					detail, err := store.Client().Player(ctx, commanderID)
					if err != nil {
						return err
					}
					app.out.Printf("Commander: %s, level %d\n", detail.Name, detail.Level)
				}
				var entries []console.PermissionEntry
				for _, key := range snapshot.Keys() {
					entry, _ := snapshot.Entry(key)
					entries = append(entries, entry)
				}
				if len(entries) == 0 {
					app.out.Println("The player policy grants nothing.")
					return nil
				}
				app.out.Println("Player permissions:")
				app.out.Table(permissionTable(entries))
				return nil
			},
		}},
	}
}
