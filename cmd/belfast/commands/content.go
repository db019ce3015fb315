// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/permission"
)

const (
	exchangeCodesKey = "exchange_codes"
	noticesKey       = "notices"
)

type contentListParams struct {
	cli.JSONOutput
	Page pageParams
}

type exchangeCodeCreateParams struct {
	Code     string   `flag:"code" desc:"code players redeem"`
	Platform string   `flag:"platform" desc:"platform the code is valid on (default: all)"`
	Quota    int      `flag:"quota" desc:"how many times the code can be redeemed; 0 means unlimited"`
	Rewards  []string `flag:"reward" desc:"reward as id:type:count; repeat for several"`
}

// parseReward parses "id:type:count".
func parseReward(value string) (console.ExchangeReward, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return console.ExchangeReward{}, fmt.Errorf("reward %q: want id:type:count", value)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return console.ExchangeReward{}, fmt.Errorf("reward %q: id must be a positive integer", value)
	}
	rewardType, err := strconv.Atoi(parts[1])
	if err != nil || rewardType < 0 {
		return console.ExchangeReward{}, fmt.Errorf("reward %q: type must be a non-negative integer", value)
	}
	count, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || count <= 0 {
		return console.ExchangeReward{}, fmt.Errorf("reward %q: count must be a positive integer", value)
	}
	return console.ExchangeReward{ID: id, Type: rewardType, Count: count}, nil
}

func rewardsText(rewards []console.ExchangeReward) string {
	parts := make([]string, len(rewards))
	for index, reward := range rewards {
		parts[index] = fmt.Sprintf("%d:%d×%d", reward.ID, reward.Type, reward.Count)
	}
	return joinOrNone(parts)
}

func exchangeCodesCommand(app *App) *cli.Command {
	var listParams contentListParams
	var createParams exchangeCodeCreateParams
	return &cli.Command{
		Name:    "exchange-codes",
		Summary: "List and create gift codes",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Summary: "List gift codes",
				Params:  func() any { return &listParams },
				Run: func(ctx context.Context, args []string) error {
					store, err := app.authorize(ctx, exchangeCodesKey, permission.ReadAny)
					if err != nil {
						return err
					}
					list, err := store.Client().ExchangeCodes(ctx, listParams.Page.Page)
					if err != nil {
						return err
					}
					if done, err := listParams.EmitJSON(app.out, list); done {
						return err
					}
					if len(list.Codes) == 0 {
						app.out.Println("No gift codes.")
						return nil
					}
					table := newTable("ID", "CODE", "PLATFORM", "QUOTA", "REWARDS")
					for _, code := range list.Codes {
						quota := "unlimited"
						if code.Quota > 0 {
							quota = strconv.Itoa(code.Quota)
						}
						table.Rows = append(table.Rows, cells(strconv.FormatInt(code.ID, 10), code.Code, orDash(code.Platform), quota, rewardsText(code.Rewards)))
					}
					app.out.Table(table)
					pageFooter(app.out, list.Meta, len(list.Codes))
					return nil
				},
			},
			{
				Name:    "create",
				Summary: "Create a gift code",
				Usage:   "belfast exchange-codes create --code CODE --reward id:type:count [flags]",
				Examples: []cli.Example{
					{Description: "A code worth 300 of resource 1, redeemable 1000 times", Command: "belfast exchange-codes create --code SPRING --quota 1000 --reward 1:1:300"},
				},
				Params: func() any { return &createParams },
				Run: func(ctx context.Context, args []string) error {
					if createParams.Code == "" {
						return cli.Validation("--code is required")
					}
					if len(createParams.Rewards) == 0 {
						return cli.Validation("at least one --reward is required")
					}
					if createParams.Quota < 0 {
						return cli.Validation("--quota must not be negative")
					}
					code := console.ExchangeCode{Code: createParams.Code, Platform: createParams.Platform, Quota: createParams.Quota}
					for _, value := range createParams.Rewards {
						reward, err := parseReward(value)
						if err != nil {
							return cli.Validation("%w", err)
						}
						code.Rewards = append(code.Rewards, reward)
					}
					store, err := app.authorize(ctx, exchangeCodesKey, permission.WriteAny)
					if err != nil {
						return err
					}
					if err := store.Client().CreateExchangeCode(ctx, code); err != nil {
						return err
					}
					app.out.Printf("Created gift code %s.\n", code.Code)
					return nil
				},
			},
		},
	}
}

func noticesCommand(app *App) *cli.Command {
	var listParams contentListParams
	return &cli.Command{
		Name:    "notices",
		Summary: "List in-game notices",
		Subcommands: []*cli.Command{{
			Name:    "list",
			Summary: "List notices",
			Params:  func() any { return &listParams },
			Run: func(ctx context.Context, args []string) error {
				store, err := app.authorize(ctx, noticesKey, permission.ReadAny)
				if err != nil {
					return err
				}
				list, err := store.Client().Notices(ctx, listParams.Page.Page)
				if err != nil {
					return err
				}
				if done, err := listParams.EmitJSON(app.out, list); done {
					return err
				}
				if len(list.Notices) == 0 {
					app.out.Println("No notices.")
					return nil
				}
				table := newTable("ID", "TITLE", "VERSION", "WHEN")
				for _, notice := range list.Notices {
					table.Rows = append(table.Rows, cells(strconv.FormatInt(notice.ID, 10), notice.Title, orDash(notice.Version), orDash(notice.TimeDesc)))
				}
				app.out.Table(table)
				pageFooter(app.out, list.Meta, len(list.Notices))
				return nil
			},
		}},
	}
}
