// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/lib/sealed"
)

type sessionShowParams struct {
	cli.JSONOutput
}

type sessionInfo struct {
	Path     string    `json:"path"`
	Sealed   bool      `json:"sealed"`
	BaseURL  string    `json:"base_url"`
	Username string    `json:"username"`
	SavedAt  time.Time `json:"saved_at"`
	Cookies  []string  `json:"cookies"`
}

func sessionCommand(app *App) *cli.Command {
	var showParams sessionShowParams
	return &cli.Command{
		Name:    "session",
		Summary: "Inspect the saved session and manage its encryption key",
		Subcommands: []*cli.Command{
			{
				Name:    "show",
				Summary: "Describe the saved session without contacting the server",
				Params:  func() any { return &showParams },
				Run: func(ctx context.Context, args []string) error {
					file, err := app.sessionFile()
					if err != nil {
						return err
					}
					saved, err := file.Load()
					if errors.Is(err, cli.ErrNoSession) {
						return cli.NotFound("no saved session at %s", file.Path).
							WithHint("Run 'belfast login' to sign in.")
					}
					if err != nil {
						return cli.Internal("%w", err)
					}
					raw, err := os.ReadFile(file.Path)
					if err != nil {
						return cli.Internal("%w", err)
					}
					info := sessionInfo{
						Path:     file.Path,
						Sealed:   sealed.IsSealed(raw),
						BaseURL:  saved.BaseURL,
						Username: saved.Username,
						SavedAt:  saved.SavedAt,
					}
					for _, cookie := range saved.Cookies {
						info.Cookies = append(info.Cookies, cookie.Name)
					}
					if done, err := showParams.EmitJSON(app.out, info); done {
						return err
					}
					storage := "plaintext"
					if info.Sealed {
						storage = "encrypted"
					}
					app.out.Printf("Session file: %s (%s)\n", info.Path, storage)
					app.out.Printf("Operator:     %s at %s\n", info.Username, info.BaseURL)
					app.out.Printf("Saved:        %s\n", info.SavedAt.Local().Format(time.RFC1123))
					app.out.Printf("Cookies:      %s\n", joinOrNone(info.Cookies))
					return nil
				},
			},
			{
				Name:    "keygen",
				Summary: "Create the age identity the session file is encrypted to",
				Description: `Create an age X25519 identity for encrypting the session file.

The key is written with mode 0600 to the given path, or to
session.age_identity_file when no path is given. An existing key file
is never replaced. Set session.age_identity_file to the path to start
encrypting; the next login writes an encrypted session.`,
				Usage: "belfast session keygen [path]",
				Run: func(ctx context.Context, args []string) error {
					if len(args) > 1 {
						return cli.Validation("usage: belfast session keygen [path]")
					}
					path := app.config.Session.AgeIdentityFile
					if len(args) == 1 {
						path = args[0]
					}
					if path == "" {
						return cli.Validation("no key path given and session.age_identity_file is not set")
					}
					if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
						return cli.Internal("%w", err)
					}
					identity, err := sealed.GenerateIdentity(path)
					if errors.Is(err, os.ErrExist) {
						return cli.Conflict("%s already exists", path)
					}
					if err != nil {
						return cli.Internal("%w", err)
					}
					app.out.Printf("Wrote %s\n", path)
					app.out.Printf("Public key: %s\n", identity.Recipient)
					return nil
				},
			},
		},
	}
}
