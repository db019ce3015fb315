// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Cell is one table cell. Tone colors the text when the table is
// rendered with color.
type Cell struct {
	Text string
	Tone Tone
}

// Table is a header row plus data rows. Rows shorter than the header
// are padded with empty cells.
type Table struct {
	Headers []string
	Rows    [][]Cell
}

// Render lays the table out in columns separated by two spaces. When
// maxWidth is positive, the widest columns are truncated with "…"
// until the table fits. color enables theme styling; without it the
// output is plain text suitable for pipes.
func (table Table) Render(theme Theme, maxWidth int, color bool) string {
	columns := len(table.Headers)
	if columns == 0 {
		return ""
	}

	widths := make([]int, columns)
	for index, header := range table.Headers {
		widths[index] = ansi.StringWidth(header)
	}
	for _, row := range table.Rows {
		for index := 0; index < columns && index < len(row); index++ {
			widths[index] = max(widths[index], ansi.StringWidth(row[index].Text))
		}
	}
	if maxWidth > 0 {
		shrink(widths, maxWidth-2*(columns-1))
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground)
	var builder strings.Builder
	writeRow := func(cells []Cell, header bool) {
		for index := range columns {
			var cell Cell
			if index < len(cells) {
				cell = cells[index]
			}
			text := ansi.Truncate(cell.Text, widths[index], "…")
			padding := widths[index] - ansi.StringWidth(text)
			if color {
				if header {
					text = headerStyle.Render(text)
				} else if cell.Tone != ToneNormal {
					text = theme.Render(cell.Tone, text)
				}
			}
			builder.WriteString(text)
			if index < columns-1 {
				builder.WriteString(strings.Repeat(" ", padding+2))
			}
		}
		builder.WriteByte('\n')
	}

	headers := make([]Cell, columns)
	for index, header := range table.Headers {
		headers[index] = Cell{Text: header}
	}
	writeRow(headers, true)
	for _, row := range table.Rows {
		writeRow(row, false)
	}
	return builder.String()
}

// shrink reduces the widest column one cell at a time until the sum
// of widths fits budget. No column drops below 3 cells.
func shrink(widths []int, budget int) {
	total := 0
	for _, width := range widths {
		total += width
	}
	for total > budget {
		widest := 0
		for index, width := range widths {
			if width > widths[widest] {
				widest = index
			}
		}
		if widths[widest] <= 3 {
			return
		}
		widths[widest]--
		total--
	}
}

// Highlight renders text with the matched rune positions given a
// background tint. Positions must be ascending.
func Highlight(theme Theme, text string, positions []int) string {
	if len(positions) == 0 {
		return text
	}
	style := lipgloss.NewStyle().Background(theme.MatchHighlightBackground)
	var builder strings.Builder
	next := 0
	for index, r := range []rune(text) {
		if next < len(positions) && positions[next] == index {
			builder.WriteString(style.Render(string(r)))
			next++
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
