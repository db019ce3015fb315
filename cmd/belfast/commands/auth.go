// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/console"
)

type passwordFileParams struct {
	PasswordFile string `flag:"password-file" desc:"file holding the password, or - for standard input (default: prompt)"`
}

func loginCommand(app *App) *cli.Command {
	var params passwordFileParams
	return &cli.Command{
		Name:    "login",
		Summary: "Sign in as an operator",
		Description: `Sign in to the admin API and save the session.

The session cookie is written to the session file (session.file in the
configuration, or $BELFAST_SESSION_FILE) with mode 0600. When
session.age_identity_file is set the file is encrypted to that age
identity. Later commands reuse the session until it expires or
"belfast logout" ends it.`,
		Usage: "belfast login <username> [flags]",
		Examples: []cli.Example{
			{Description: "Sign in interactively", Command: "belfast login admin"},
			{Description: "Sign in from a script", Command: "belfast login admin --password-file ~/.belfast-password"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: belfast login <username> [flags]")
			}
			username := args[0]
			store, err := app.connect(ctx, false)
			if err != nil {
				return err
			}
			password, err := app.prompter.Password("Password", params.PasswordFile)
			if err != nil {
				return err
			}
			defer password.Close()

			if err := store.Login(ctx, username, password); err != nil {
				return err
			}
			if err := app.persist(username); err != nil {
				return err
			}
			app.out.Printf("Signed in as %s.\n", username)
			return nil
		},
	}
}

func logoutCommand(app *App) *cli.Command {
	return &cli.Command{
		Name:    "logout",
		Summary: "End the operator session",
		Description: `End the saved operator session on the server and delete the
session file. Running it without a session only deletes the file.`,
		Run: func(ctx context.Context, args []string) error {
			store, err := app.connect(ctx, true)
			if err != nil {
				return err
			}
			signedIn := store.IsAdminAuthenticated()
			if err := store.Logout(ctx); err != nil {
				return err
			}
			if err := app.forget(); err != nil {
				return err
			}
			if signedIn {
				app.out.Println("Signed out.")
			} else {
				app.out.Println("Not signed in.")
			}
			return nil
		},
	}
}

type bootstrapStatusParams struct {
	cli.JSONOutput
}

func bootstrapCommand(app *App) *cli.Command {
	var params passwordFileParams
	var statusParams bootstrapStatusParams
	return &cli.Command{
		Name:    "bootstrap",
		Summary: "Create the first operator account",
		Description: `Create the first operator of a fresh server and sign in as it.

The server allows this only while no operator exists; "belfast bootstrap
status" tells whether it still does.`,
		Usage: "belfast bootstrap <username> [flags]",
		Params: func() any { return &params },
		Subcommands: []*cli.Command{{
			Name:    "status",
			Summary: "Report whether the first operator can still be created",
			Params:  func() any { return &statusParams },
			Run: func(ctx context.Context, args []string) error {
				store, err := app.connect(ctx, false)
				if err != nil {
					return err
				}
				status, err := store.BootstrapStatus(ctx)
				if err != nil {
					return err
				}
				if done, err := statusParams.EmitJSON(app.out, status); done {
					return err
				}
				if status.CanBootstrap {
					app.out.Println("No operator exists yet. Run 'belfast bootstrap <username>' to create one.")
				} else {
					app.out.Printf("Bootstrap is closed: %d operator account(s) exist.\n", status.AdminCount)
				}
				return nil
			},
		}},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("usage: belfast bootstrap <username> [flags]")
			}
			username := args[0]
			store, err := app.connect(ctx, false)
			if err != nil {
				return err
			}
			status, err := store.BootstrapStatus(ctx)
			if err != nil {
				return err
			}
			if !status.CanBootstrap {
				return cli.Conflict("an operator account already exists").
					WithHint("Sign in with 'belfast login <username>'.")
			}
			password, err := app.prompter.NewPassword("Password", params.PasswordFile)
			if err != nil {
				return err
			}
			defer password.Close()

			if err := store.Bootstrap(ctx, username, password); err != nil {
				return err
			}
			if err := app.persist(username); err != nil {
				return err
			}
			app.out.Printf("Created operator %s and signed in.\n", username)
			return nil
		},
	}
}

type whoamiParams struct {
	cli.JSONOutput
}

type whoami struct {
	Kind        string               `json:"kind"`
	BaseURL     string               `json:"base_url"`
	User        *console.AdminUser   `json:"user,omitempty"`
	Session     *console.AuthSession `json:"session,omitempty"`
	Commander   *console.MeCommander `json:"commander,omitempty"`
	Roles       []string             `json:"roles"`
	Permissions int                  `json:"permissions"`
	Digest      string               `json:"permissions_digest,omitempty"`
}

func whoamiCommand(app *App) *cli.Command {
	var params whoamiParams
	return &cli.Command{
		Name:    "whoami",
		Summary: "Show the signed-in operator",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			store, err := app.requireAdmin(ctx)
			if err != nil {
				return err
			}
			admin, _ := store.Principal().Admin()
			result := whoami{
				Kind:    store.Principal().Kind().String(),
				BaseURL: store.Client().BaseURL(),
				User:    &admin.User,
				Session: &admin.Session,
			}
			commander, err := store.Commander(ctx)
			switch {
			case err == nil:
				result.Commander = commander
			case !console.IsNotFound(err):
				return err
			}
			snapshot := app.cache.Snapshot()
			result.Roles = snapshot.Roles()
			result.Permissions = len(snapshot.Keys())
			if snapshot.Loaded() {
				result.Digest = snapshot.Digest().String()
			}

			if done, err := params.EmitJSON(app.out, result); done {
				return err
			}
			app.out.Printf("Signed in as %s (%s) at %s\n", admin.User.Username, admin.User.ID, result.BaseURL)
			if admin.Session.ExpiresAt != "" {
				app.out.Printf("Session expires %s\n", admin.Session.ExpiresAt)
			}
			if commander != nil {
				app.out.Printf("Linked commander: %s (%d)\n", commander.Name, commander.CommanderID)
			}
			app.out.Printf("Roles: %s\n", joinOrNone(result.Roles))
			app.out.Printf("Permissions: %d keys\n", result.Permissions)
			return nil
		},
	}
}

type passwordParams struct {
	CurrentFile string `flag:"current-file" desc:"file holding the current password, or - for standard input (default: prompt)"`
	NewFile     string `flag:"new-file" desc:"file holding the new password (default: prompt twice)"`
}

func passwordCommand(app *App) *cli.Command {
	var params passwordParams
	return &cli.Command{
		Name:    "password",
		Summary: "Change the operator's password",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if params.CurrentFile == "-" && params.NewFile == "-" {
				return cli.Validation("only one of --current-file and --new-file can read standard input")
			}
			store, err := app.requireAdmin(ctx)
			if err != nil {
				return err
			}
			current, err := app.prompter.Password("Current password", params.CurrentFile)
			if err != nil {
				return err
			}
			defer current.Close()
			next, err := app.prompter.NewPassword("New password", params.NewFile)
			if err != nil {
				return err
			}
			defer next.Close()

			if err := store.ChangePassword(ctx, current, next); err != nil {
				return err
			}
			app.out.Println("Password changed.")
			return nil
		},
	}
}

type passkeyListParams struct {
	cli.JSONOutput
}

type passkeyRegisterParams struct {
	Label string `flag:"label" desc:"name shown in the passkey list"`
}

func passkeyCommand(app *App) *cli.Command {
	var listParams passkeyListParams
	var registerParams passkeyRegisterParams
	return &cli.Command{
		Name:    "passkey",
		Summary: "Manage and use operator passkeys",
		Description: `Manage the signed-in operator's passkeys and sign in with one.

Ceremonies run through the authenticator helper named by
passkey.helper_command in the configuration.`,
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Summary: "List registered passkeys",
				Params:  func() any { return &listParams },
				Run: func(ctx context.Context, args []string) error {
					store, err := app.requireAdmin(ctx)
					if err != nil {
						return err
					}
					passkeys, err := store.Passkeys(ctx)
					if err != nil {
						return err
					}
					if done, err := listParams.EmitJSON(app.out, passkeys); done {
						return err
					}
					if len(passkeys) == 0 {
						app.out.Println("No passkeys registered.")
						return nil
					}
					table := newTable("CREDENTIAL", "LABEL", "CREATED", "LAST USED")
					for _, passkey := range passkeys {
						table.Rows = append(table.Rows, cells(passkey.CredentialID, passkey.Label, passkey.CreatedAt, orDash(passkey.LastUsedAt)))
					}
					app.out.Table(table)
					return nil
				},
			},
			{
				Name:    "register",
				Summary: "Register a new passkey",
				Params:  func() any { return &registerParams },
				Run: func(ctx context.Context, args []string) error {
					store, err := app.requireAdmin(ctx)
					if err != nil {
						return err
					}
					registered, err := store.RegisterPasskey(ctx, registerParams.Label)
					if err != nil {
						return err
					}
					app.out.Printf("Registered passkey %s.\n", registered.CredentialID)
					return nil
				},
			},
			{
				Name:    "delete",
				Summary: "Delete a passkey",
				Usage:   "belfast passkey delete <credential-id>",
				Run: func(ctx context.Context, args []string) error {
					if len(args) != 1 {
						return cli.Validation("usage: belfast passkey delete <credential-id>")
					}
					store, err := app.requireAdmin(ctx)
					if err != nil {
						return err
					}
					if err := store.DeletePasskey(ctx, args[0]); err != nil {
						return err
					}
					app.out.Printf("Deleted passkey %s.\n", args[0])
					return nil
				},
			},
			{
				Name:    "login",
				Summary: "Sign in with a passkey",
				Usage:   "belfast passkey login [username]",
				Run: func(ctx context.Context, args []string) error {
					if len(args) > 1 {
						return cli.Validation("usage: belfast passkey login [username]")
					}
					var username string
					if len(args) == 1 {
						username = args[0]
					}
					store, err := app.connect(ctx, false)
					if err != nil {
						return err
					}
					if err := store.PasskeyLogin(ctx, username); err != nil {
						return err
					}
					admin, _ := store.Principal().Admin()
					if err := app.persist(admin.User.Username); err != nil {
						return err
					}
					app.out.Printf("Signed in as %s.\n", admin.User.Username)
					return nil
				},
			},
		},
	}
}
