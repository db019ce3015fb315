// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/permission"
	"github.com/belfast-foundation/belfast-console/lib/tui"
)

const playersKey = "players"

// pageParams binds --offset and --limit for list commands.
type pageParams struct {
	console.Page
}

func (p *pageParams) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.IntVar(&p.Offset, "offset", 0, "number of entries to skip")
	flagSet.IntVar(&p.Limit, "limit", 50, "maximum number of entries to show")
}

type playersListParams struct {
	cli.JSONOutput
	Page     pageParams
	Name     string `flag:"name" desc:"only players whose name contains this text"`
	MinLevel int    `flag:"min-level" desc:"only players at or above this level"`
	Filter   string `flag:"filter" desc:"online or banned"`
	Sort     string `flag:"sort" desc:"sort order understood by the server, such as level or last_login"`
}

type playerShowParams struct {
	cli.JSONOutput
}

type banParams struct {
	Duration  time.Duration `flag:"duration" desc:"lift the ban after this long, such as 72h"`
	Until     string        `flag:"until" desc:"lift the ban at this RFC 3339 time"`
	Permanent bool          `flag:"permanent" desc:"never lift the ban"`
}

type kickParams struct {
	Reason int `flag:"reason" desc:"reason code shown to the player"`
}

// ban builds the request body, requiring exactly one of the three
// forms.
func (p banParams) ban() (console.Ban, error) {
	set := 0
	var ban console.Ban
	if p.Duration != 0 {
		if p.Duration < time.Second {
			return ban, cli.Validation("--duration must be at least one second, got %v", p.Duration)
		}
		ban.DurationSec = int64(p.Duration / time.Second)
		set++
	}
	if p.Until != "" {
		lift, err := time.Parse(time.RFC3339, p.Until)
		if err != nil {
			return ban, cli.Validation("--until: %w", err)
		}
		ban.LiftTimestamp = lift.UTC().Format(time.RFC3339)
		set++
	}
	if p.Permanent {
		ban.Permanent = true
		set++
	}
	if set != 1 {
		return ban, cli.Validation("exactly one of --duration, --until and --permanent is required")
	}
	return ban, nil
}

func playerRow(player console.PlayerSummary) []tui.Cell {
	status := tui.Cell{Text: "offline", Tone: tui.ToneFaint}
	switch {
	case player.Banned:
		status = tui.Cell{Text: "banned", Tone: tui.ToneFailure}
	case player.Online:
		status = tui.Cell{Text: "online", Tone: tui.ToneSuccess}
	}
	return []tui.Cell{
		{Text: strconv.FormatInt(player.ID, 10)},
		{Text: player.Name},
		{Text: strconv.Itoa(player.Level)},
		status,
		{Text: orDash(player.LastLogin)},
	}
}

func playersCommand(app *App) *cli.Command {
	var listParams playersListParams
	var showParams playerShowParams
	var resourcesParams playerShowParams
	var ban banParams
	var kick kickParams

	// target parses the commander argument and checks access on it.
	target := func(ctx context.Context, args []string, usage string, access permission.Access) (*console.Client, int64, error) {
		if len(args) != 1 {
			return nil, 0, cli.Validation("usage: %s", usage)
		}
		id, err := commanderArg(args[0])
		if err != nil {
			return nil, 0, err
		}
		store, err := app.authorizeTarget(ctx, playersKey, access, id)
		if err != nil {
			return nil, 0, err
		}
		return store.Client(), id, nil
	}
	notFound := func(err error, id int64) error {
		if console.IsNotFound(err) {
			return cli.NotFound("commander %d does not exist", id)
		}
		return err
	}

	return &cli.Command{
		Name:    "players",
		Summary: "Look up and moderate players",
		Description: `Look up and moderate players.

Listing needs players (read any). Showing a player needs read access
and moderating one needs write access; a "self" grant covers only the
operator's linked commander.`,
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Summary: "List players",
				Params:  func() any { return &listParams },
				Run: func(ctx context.Context, args []string) error {
					store, err := app.authorize(ctx, playersKey, permission.ReadAny)
					if err != nil {
						return err
					}
					switch listParams.Filter {
					case "", "online", "banned":
					default:
						return cli.Validation("--filter must be online or banned, got %q", listParams.Filter)
					}
					list, err := store.Client().Players(ctx, console.PlayerQuery{
						Page:     listParams.Page.Page,
						Sort:     listParams.Sort,
						Filter:   listParams.Filter,
						MinLevel: listParams.MinLevel,
						Name:     listParams.Name,
					})
					if err != nil {
						return err
					}
					if done, err := listParams.EmitJSON(app.out, list); done {
						return err
					}
					if len(list.Players) == 0 {
						app.out.Println("No players found.")
						return nil
					}
					table := newTable("ID", "NAME", "LEVEL", "STATUS", "LAST LOGIN")
					for _, player := range list.Players {
						table.Rows = append(table.Rows, playerRow(player))
					}
					app.out.Table(table)
					pageFooter(app.out, list.Meta, len(list.Players))
					return nil
				},
			},
			{
				Name:    "show",
				Summary: "Show one player",
				Usage:   "belfast players show <commander-id> [flags]",
				Params:  func() any { return &showParams },
				Run: func(ctx context.Context, args []string) error {
					client, id, err := target(ctx, args, "belfast players show <commander-id> [flags]", permission.Read)
					if err != nil {
						return err
					}
					player, err := client.Player(ctx, id)
					if err != nil {
						return notFound(err, id)
					}
					if done, err := showParams.EmitJSON(app.out, player); done {
						return err
					}
					table := newTable("ID", "NAME", "LEVEL", "STATUS", "LAST LOGIN")
					table.Rows = append(table.Rows, playerRow(player.PlayerSummary))
					app.out.Table(table)
					app.out.Printf("Experience: %d\n", player.Exp)
					return nil
				},
			},
			{
				Name:    "resources",
				Summary: "Show a player's currency balances",
				Usage:   "belfast players resources <commander-id> [flags]",
				Params:  func() any { return &resourcesParams },
				Run: func(ctx context.Context, args []string) error {
					client, id, err := target(ctx, args, "belfast players resources <commander-id> [flags]", permission.Read)
					if err != nil {
						return err
					}
					resources, err := client.PlayerResources(ctx, id)
					if err != nil {
						return notFound(err, id)
					}
					if done, err := resourcesParams.EmitJSON(app.out, resources.Resources); done {
						return err
					}
					table := newTable("ID", "RESOURCE", "AMOUNT")
					for _, resource := range resources.Resources {
						table.Rows = append(table.Rows, cells(strconv.FormatInt(resource.ResourceID, 10), orDash(resource.Name), strconv.FormatInt(resource.Amount, 10)))
					}
					app.out.Table(table)
					return nil
				},
			},
			{
				Name:    "ban",
				Summary: "Ban a player",
				Usage:   "belfast players ban <commander-id> (--duration D | --until T | --permanent)",
				Examples: []cli.Example{
					{Description: "Ban for three days", Command: "belfast players ban 9001 --duration 72h"},
					{Description: "Ban for good", Command: "belfast players ban 9001 --permanent"},
				},
				Params: func() any { return &ban },
				Run: func(ctx context.Context, args []string) error {
					body, err := ban.ban()
					if err != nil {
						return err
					}
					client, id, err := target(ctx, args, "belfast players ban <commander-id> (--duration D | --until T | --permanent)", permission.Write)
					if err != nil {
						return err
					}
					if err := client.BanPlayer(ctx, id, body); err != nil {
						return notFound(err, id)
					}
					app.out.Printf("Banned commander %d.\n", id)
					return nil
				},
			},
			{
				Name:    "unban",
				Summary: "Lift a player's ban",
				Usage:   "belfast players unban <commander-id>",
				Run: func(ctx context.Context, args []string) error {
					client, id, err := target(ctx, args, "belfast players unban <commander-id>", permission.Write)
					if err != nil {
						return err
					}
					if err := client.UnbanPlayer(ctx, id); err != nil {
						return notFound(err, id)
					}
					app.out.Printf("Lifted the ban on commander %d.\n", id)
					return nil
				},
			},
			{
				Name:    "kick",
				Summary: "Disconnect a player",
				Usage:   "belfast players kick <commander-id> [flags]",
				Params:  func() any { return &kick },
				Run: func(ctx context.Context, args []string) error {
					client, id, err := target(ctx, args, "belfast players kick <commander-id> [flags]", permission.Write)
					if err != nil {
						return err
					}
					var body *console.Kick
					if kick.Reason != 0 {
						body = &console.Kick{Reason: kick.Reason}
					}
					result, err := client.KickPlayer(ctx, id, body)
					if err != nil {
						return notFound(err, id)
					}
					if result.Disconnected {
						app.out.Printf("Disconnected commander %d.\n", id)
					} else {
						app.out.Printf("Commander %d was not online.\n", id)
					}
					return nil
				},
			},
		},
	}
}
