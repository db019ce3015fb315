// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package registrationui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/belfast-foundation/belfast-console/lib/registration"
	"github.com/belfast-foundation/belfast-console/lib/secret"
	"github.com/belfast-foundation/belfast-console/lib/session"
	"github.com/belfast-foundation/belfast-console/lib/tui"
)

type field int

const (
	fieldCommander field = iota
	fieldPassword
	fieldPIN
)

// flowChangedMsg signals that the flow published a new snapshot. The
// model re-reads the flow instead of trusting the signal's payload, so
// coalesced signals lose nothing.
type flowChangedMsg struct{}

type startedMsg struct{ err error }

type verifiedMsg struct{ err error }

type pollDoneMsg struct{ err error }

// Model is the bubbletea model for interactive registration. It
// collects the commander ID and password, starts the challenge, polls
// it in the background and accepts the PIN, rendering the flow's
// snapshots as they change.
type Model struct {
	ctx   context.Context
	flow  *registration.Flow
	theme tui.Theme
	keys  KeyMap
	help  help.Model

	changed     chan struct{}
	unsubscribe func()
	cancelPoll  context.CancelFunc

	commander textinput.Model
	password  textinput.Model
	pin       textinput.Model
	focus     field
	spinner   spinner.Model

	snapshot registration.Snapshot
	// notice is a local validation message shown until the next
	// submission; flow notices come from the snapshot.
	notice string
	busy   bool
	width  int
}

// NewModel creates a Model driving flow. Requests made by the model use
// ctx; Close must be called after the program exits.
func NewModel(ctx context.Context, flow *registration.Flow) Model {
	commander := textinput.New()
	commander.Prompt = "Commander ID: "
	commander.Placeholder = "e.g. 9001"
	commander.CharLimit = 19
	commander.Focus()

	password := textinput.New()
	password.Prompt = "Password:     "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	pin := textinput.New()
	pin.Prompt = "PIN:          "
	pin.Placeholder = "B-123456"
	pin.CharLimit = 8

	changed := make(chan struct{}, 1)
	unsubscribe := flow.Subscribe(func(registration.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	return Model{
		ctx:         ctx,
		flow:        flow,
		theme:       tui.DefaultTheme,
		keys:        DefaultKeyMap,
		help:        help.New(),
		changed:     changed,
		unsubscribe: unsubscribe,
		commander:   commander,
		password:    password,
		pin:         pin,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		snapshot:    flow.Snapshot(),
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, model.spinner.Tick, listenForChange(model.changed))
}

func listenForChange(changed <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changed
		return flowChangedMsg{}
	}
}

// Close stops background polling and detaches from the flow.
func (model Model) Close() {
	if model.cancelPoll != nil {
		model.cancelPoll()
	}
	model.unsubscribe()
}

// Result returns the signed-in player once registration has finished.
func (model Model) Result() (session.PlayerSession, bool) {
	snapshot := model.flow.Snapshot()
	if snapshot.State != registration.SignedIn || snapshot.Player == nil {
		return session.PlayerSession{}, false
	}
	return *snapshot.Player, true
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.help.Width = message.Width
		return model, nil

	case flowChangedMsg:
		model.snapshot = model.flow.Snapshot()
		return model, listenForChange(model.changed)

	case startedMsg:
		model.busy = false
		model.snapshot = model.flow.Snapshot()
		if message.err != nil {
			return model, nil
		}
		model.password.Reset()
		model.setFocus(fieldPIN)
		return model, model.beginPolling()

	case verifiedMsg:
		model.busy = false
		model.snapshot = model.flow.Snapshot()
		if message.err == nil {
			model.pin.Reset()
		}
		return model, nil

	case pollDoneMsg:
		model.snapshot = model.flow.Snapshot()
		return model, nil

	case spinner.TickMsg:
		var command tea.Cmd
		model.spinner, command = model.spinner.Update(message)
		return model, command

	case tea.KeyMsg:
		return model.handleKey(message)
	}
	return model.updateFocused(message)
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		if model.cancelPoll != nil {
			model.cancelPoll()
		}
		return model, tea.Quit

	case key.Matches(message, model.keys.Reset):
		return model.reset()

	case key.Matches(message, model.keys.Submit):
		if model.busy {
			return model, nil
		}
		switch model.stage() {
		case stageForm:
			return model.submitForm()
		case stageChallenge:
			return model.submitPIN()
		case stageDone:
			return model, tea.Quit
		}
		return model, nil

	case key.Matches(message, model.keys.NextField), key.Matches(message, model.keys.PrevField):
		if model.stage() == stageForm {
			if model.focus == fieldCommander {
				model.setFocus(fieldPassword)
			} else {
				model.setFocus(fieldCommander)
			}
		}
		return model, nil
	}
	return model.updateFocused(message)
}

func (model Model) updateFocused(message tea.Msg) (tea.Model, tea.Cmd) {
	var command tea.Cmd
	switch model.focus {
	case fieldCommander:
		model.commander, command = model.commander.Update(message)
	case fieldPassword:
		model.password, command = model.password.Update(message)
	case fieldPIN:
		model.pin, command = model.pin.Update(message)
	}
	return model, command
}

func (model *Model) setFocus(target field) {
	model.focus = target
	model.commander.Blur()
	model.password.Blur()
	model.pin.Blur()
	switch target {
	case fieldCommander:
		model.commander.Focus()
	case fieldPassword:
		model.password.Focus()
	case fieldPIN:
		model.pin.Focus()
	}
}

func (model Model) submitForm() (tea.Model, tea.Cmd) {
	model.notice = ""
	commanderID, err := strconv.ParseInt(strings.TrimSpace(model.commander.Value()), 10, 64)
	if err != nil || commanderID <= 0 {
		model.notice = registration.NoticeInvalidCommanderID
		model.setFocus(fieldCommander)
		return model, nil
	}
	if model.password.Value() == "" {
		model.notice = registration.NoticePasswordRequired
		model.setFocus(fieldPassword)
		return model, nil
	}
	password, err := secret.NewFromString(model.password.Value())
	if err != nil {
		model.notice = err.Error()
		return model, nil
	}

	model.busy = true
	flow, ctx := model.flow, model.ctx
	return model, func() tea.Msg {
		defer password.Close()
		return startedMsg{err: flow.Start(ctx, commanderID, password)}
	}
}

func (model *Model) beginPolling() tea.Cmd {
	if model.cancelPoll != nil {
		model.cancelPoll()
	}
	pollCtx, cancel := context.WithCancel(model.ctx)
	model.cancelPoll = cancel
	flow := model.flow
	return func() tea.Msg {
		return pollDoneMsg{err: flow.Poll(pollCtx)}
	}
}

func (model Model) submitPIN() (tea.Model, tea.Cmd) {
	model.notice = ""
	model.busy = true
	flow, ctx, pin := model.flow, model.ctx, model.pin.Value()
	return model, func() tea.Msg {
		return verifiedMsg{err: flow.Verify(ctx, pin)}
	}
}

func (model Model) reset() (tea.Model, tea.Cmd) {
	if model.cancelPoll != nil {
		model.cancelPoll()
		model.cancelPoll = nil
	}
	model.flow.Reset()
	model.snapshot = model.flow.Snapshot()
	model.notice = ""
	model.busy = false
	model.pin.Reset()
	model.setFocus(fieldCommander)
	return model, nil
}

type stage int

const (
	stageForm stage = iota
	stageChallenge
	stageSigningIn
	stageDone
	stageEnded
)

func (model Model) stage() stage {
	switch model.snapshot.State {
	case registration.Pending, registration.Verifying:
		return stageChallenge
	case registration.Finalizing:
		return stageSigningIn
	case registration.SignedIn:
		return stageDone
	case registration.Expired, registration.FinalizeFailed:
		return stageEnded
	default:
		return stageForm
	}
}

// View implements tea.Model.
func (model Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(model.theme.HeaderForeground).
		Render("Register a player account")

	var body strings.Builder
	switch model.stage() {
	case stageForm:
		body.WriteString(model.commander.View() + "\n")
		body.WriteString(model.password.View() + "\n")
		if model.busy {
			body.WriteString("\n" + model.spinner.View() + " Creating challenge...\n")
		}
	case stageChallenge:
		body.WriteString(model.challengeView())
		body.WriteString("\n" + model.pin.View() + "\n")
		status := "Waiting for confirmation in game"
		if model.snapshot.State == registration.Verifying {
			status = "Checking PIN"
		}
		body.WriteString("\n" + model.spinner.View() + " " + model.theme.Render(tui.TonePending, status) + "\n")
	case stageSigningIn:
		body.WriteString(model.challengeView())
		body.WriteString("\n" + model.spinner.View() + " Signing in...\n")
	case stageDone:
		player := model.snapshot.Player
		body.WriteString(model.theme.Render(tui.ToneSuccess,
			fmt.Sprintf("Signed in as commander %d.", player.User.CommanderID)) + "\n")
		body.WriteString(model.theme.Render(tui.ToneFaint, "Press enter to exit.") + "\n")
	case stageEnded:
		body.WriteString(model.challengeView())
		body.WriteString(model.theme.Render(tui.ToneFaint, "Press ctrl+r to start over.") + "\n")
	}

	notice := model.notice
	if notice == "" {
		notice = model.snapshot.Notice
	}
	if notice != "" {
		tone := tui.ToneWarning
		if model.snapshot.State == registration.FinalizeFailed || model.snapshot.State == registration.Expired {
			tone = tui.ToneFailure
		}
		body.WriteString("\n" + model.theme.Render(tone, notice) + "\n")
	}

	footer := lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(model.help.View(model.keys))
	return title + "\n\n" + body.String() + "\n" + footer + "\n"
}

func (model Model) challengeView() string {
	snapshot := model.snapshot
	faint := func(text string) string { return model.theme.Render(tui.ToneFaint, text) }
	var lines strings.Builder
	fmt.Fprintf(&lines, "%s %d\n", faint("Commander:"), snapshot.CommanderID)
	fmt.Fprintf(&lines, "%s %s\n", faint("Challenge:"), snapshot.ChallengeID)
	if snapshot.ExpiresAt != "" {
		fmt.Fprintf(&lines, "%s %s\n", faint("Expires:  "), snapshot.ExpiresAt)
	}
	if snapshot.EchoedPIN != "" {
		fmt.Fprintf(&lines, "%s %s\n", faint("PIN:      "),
			lipgloss.NewStyle().Bold(true).Foreground(model.theme.Accent).Render("B-"+snapshot.EchoedPIN))
	} else if snapshot.State.Active() {
		lines.WriteString(faint("Open the game to read your PIN, or confirm the request there.") + "\n")
	}
	return lines.String()
}
