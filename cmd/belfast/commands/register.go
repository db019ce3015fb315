// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/lib/registration"
	"github.com/belfast-foundation/belfast-console/lib/registrationui"
	"github.com/belfast-foundation/belfast-console/lib/tui"
)

type registerParams struct {
	passwordFileParams
	Plain bool   `flag:"plain" desc:"print progress lines instead of the interactive screen"`
	PIN   string `flag:"pin" desc:"verify with the PIN shown in game instead of waiting for in-game confirmation (implies --plain)"`
}

func registerCommand(app *App) *cli.Command {
	var params registerParams
	return &cli.Command{
		Name:    "register",
		Summary: "Create a player account for a commander",
		Description: `Create a console account for an existing commander.

The server sends a registration request to the commander in game. The
account is created once the request is confirmed in game or the PIN it
shows is entered here; belfast then signs the new account in.

Without a terminal, or with --plain or --pin, the commander id is an
argument and progress is printed line by line. The request is checked
every few seconds until it is confirmed or expires.`,
		Usage: "belfast register [commander-id] [flags]",
		Examples: []cli.Example{
			{Description: "Register interactively", Command: "belfast register"},
			{Description: "Register and confirm in game", Command: "belfast register 9001 --plain"},
			{Description: "Register with the PIN from the game", Command: "belfast register 9001 --pin B-123456"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 1 {
				return cli.Validation("usage: belfast register [commander-id] [flags]")
			}
			store, err := app.connect(ctx, false)
			if err != nil {
				return err
			}
			interval, err := app.config.PollInterval()
			if err != nil {
				return cli.Validation("%w", err)
			}
			flow, err := registration.New(registration.Config{
				Challenges:   store.Client(),
				Sessions:     store,
				Clock:        app.clock,
				PollInterval: interval,
				Logger:       app.logger,
			})
			if err != nil {
				return cli.Internal("%w", err)
			}
			defer flow.Reset()

			if params.Plain || params.PIN != "" || len(args) == 1 {
				if len(args) != 1 {
					return cli.Validation("a commander id is required with --plain or --pin")
				}
				return app.registerPlain(ctx, flow, args[0], params)
			}
			if !cli.IsTerminal(app.streams.In) || !cli.IsTerminal(app.streams.Out) {
				return cli.Validation("the interactive registration screen needs a terminal").
					WithHint("Pass the commander id and --plain to register without one.")
			}
			return app.registerInteractive(ctx, flow)
		},
	}
}

func (a *App) registerInteractive(ctx context.Context, flow *registration.Flow) error {
	model := registrationui.NewModel(ctx, flow)
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(a.streams.In),
		tea.WithOutput(a.streams.Out),
	)
	final, err := program.Run()
	if finished, ok := final.(registrationui.Model); ok {
		model = finished
	}
	model.Close()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return cli.Internal("registration screen: %w", err)
	}
	if player, ok := model.Result(); ok {
		a.out.Printf("Registered and signed in as commander %d.\n", player.User.CommanderID)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	a.out.Println("Registration cancelled.")
	return nil
}

func (a *App) registerPlain(ctx context.Context, flow *registration.Flow, commanderArgument string, params registerParams) error {
	commanderID, err := commanderArg(commanderArgument)
	if err != nil {
		return err
	}
	password, err := a.prompter.Password("Password", params.PasswordFile)
	if err != nil {
		return err
	}
	defer password.Close()

	unsubscribe := flow.Subscribe(func(snapshot registration.Snapshot) {
		a.logger.Debug("registration state", "state", snapshot.State, "status", snapshot.Status)
	})
	defer unsubscribe()

	if err := flow.Start(ctx, commanderID, password); err != nil {
		return err
	}
	snapshot := flow.Snapshot()
	a.out.Printf("Registration request %s sent to commander %d.\n", snapshot.ChallengeID, commanderID)
	if snapshot.ExpiresAt != "" {
		a.out.Printf("It expires %s.\n", snapshot.ExpiresAt)
	}
	if snapshot.EchoedPIN != "" {
		a.out.Printf("PIN: %s\n", a.out.Styled(tui.TonePending, snapshot.EchoedPIN))
	}

	if params.PIN != "" {
		if err := flow.Verify(ctx, params.PIN); err != nil && !flow.Snapshot().State.Terminal() {
			return err
		}
	}
	if flow.Snapshot().State.Active() {
		a.out.Println("Waiting for confirmation in game...")
		if err := flow.Poll(ctx); err != nil {
			return err
		}
	}
	return a.reportRegistration(flow.Snapshot())
}

func (a *App) reportRegistration(snapshot registration.Snapshot) error {
	switch snapshot.State {
	case registration.SignedIn:
		a.out.Printf("%s Registered and signed in as commander %d.\n",
			a.out.Styled(tui.ToneSuccess, "✓"), snapshot.Player.User.CommanderID)
		return nil
	case registration.FinalizeFailed:
		return cli.Transient("%s", snapshot.Notice).
			WithHint(fmt.Sprintf("The account exists; sign in with 'belfast player login %d'.", snapshot.CommanderID))
	case registration.Expired:
		return cli.Conflict("%s", snapshot.Notice)
	default:
		notice := snapshot.Notice
		if notice == "" {
			notice = registration.NoticeNoChallenge
		}
		return cli.Conflict("%s", notice)
	}
}
