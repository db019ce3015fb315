// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for the console's terminal output.
// All colors use lipgloss ANSI 256-color codes for broad terminal
// compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Outcome colors, shared by permission grids, server status and
	// registration progress.
	Success lipgloss.Color
	Pending lipgloss.Color
	Warning lipgloss.Color
	Failure lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	Accent           lipgloss.Color

	// Background tint for fuzzy-matched characters.
	MatchHighlightBackground lipgloss.Color
}

// Tone is the semantic category of a value rendered with a Theme.
type Tone int

const (
	ToneNormal Tone = iota
	ToneFaint
	ToneSuccess
	TonePending
	ToneWarning
	ToneFailure
)

// Color returns the color for tone. Unknown tones return NormalText.
func (theme Theme) Color(tone Tone) lipgloss.Color {
	switch tone {
	case ToneFaint:
		return theme.FaintText
	case ToneSuccess:
		return theme.Success
	case TonePending:
		return theme.Pending
	case ToneWarning:
		return theme.Warning
	case ToneFailure:
		return theme.Failure
	default:
		return theme.NormalText
	}
}

// Render styles text in the color of tone.
func (theme Theme) Render(tone Tone, text string) string {
	return lipgloss.NewStyle().Foreground(theme.Color(tone)).Render(text)
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	Success: lipgloss.Color("114"), // green
	Pending: lipgloss.Color("220"), // amber
	Warning: lipgloss.Color("208"), // orange
	Failure: lipgloss.Color("196"), // red

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	Accent:           lipgloss.Color("75"), // blue

	MatchHighlightBackground: lipgloss.Color("58"),
}
