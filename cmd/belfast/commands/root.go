// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/lib/config"
)

type globalParams struct {
	ConfigPath string `flag:"config" desc:"configuration file (default: $BELFAST_CONFIG)"`
	BaseURL    string `flag:"base-url" desc:"admin API root including /api/v1, overriding api.base_url"`
	LogLevel   string `flag:"log-level" desc:"debug, info, warn or error, overriding logging.level"`
}

// Main runs one invocation of belfast. Global flags must come before
// the command name.
func Main(ctx context.Context, args []string, streams Streams) error {
	var global globalParams
	flagSet := cli.FlagsFromParams("belfast", &global)
	flagSet.SetInterspersed(false)
	if err := flagSet.Parse(args); err != nil {
		return cli.Validation("%w", err).WithHint("Run 'belfast --help' for usage.")
	}

	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	app, err := NewApp(cfg, streams)
	if err != nil {
		return err
	}
	defer app.Close()

	root := Root(app)
	rest := flagSet.Args()
	if len(rest) == 0 {
		root.PrintHelp(streams.Err)
		fmt.Fprintf(streams.Err, "\nGlobal flags:\n%s", flagSet.FlagUsages())
		return nil
	}
	return root.Execute(ctx, rest, streams.Err)
}

func loadConfig(global globalParams) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if global.ConfigPath != "" {
		cfg, err = config.LoadFile(global.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, cli.Validation("loading configuration: %w", err)
	}
	if global.BaseURL != "" {
		cfg.API.BaseURL = global.BaseURL
	}
	if global.LogLevel != "" {
		cfg.Logging.Level = global.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Root returns the belfast command tree bound to app.
func Root(app *App) *cli.Command {
	return &cli.Command{
		Name:    "belfast",
		Summary: "Administer a game server from the terminal",
		Description: `belfast is the operator console of a game server's admin API.

Operators sign in once with "belfast login"; the session is saved and
reused by later commands until "belfast logout". Every command checks
the operator's permissions before calling the server and exits with
status 3 when a permission is missing.

Players can create their console account with "belfast register",
which confirms the commander through a PIN shown in game.`,
		Subcommands: []*cli.Command{
			loginCommand(app),
			logoutCommand(app),
			bootstrapCommand(app),
			whoamiCommand(app),
			passwordCommand(app),
			passkeyCommand(app),
			playerCommand(app),
			registerCommand(app),
			meCommand(app),
			canCommand(app),
			authzCommand(app),
			playersCommand(app),
			serverCommand(app),
			exchangeCodesCommand(app),
			noticesCommand(app),
			sessionCommand(app),
			versionCommand(app),
		},
	}
}
