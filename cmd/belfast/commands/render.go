// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"strconv"
	"strings"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/tui"
)

func newTable(headers ...string) tui.Table {
	return tui.Table{Headers: headers}
}

func cells(texts ...string) []tui.Cell {
	row := make([]tui.Cell, len(texts))
	for index, text := range texts {
		row[index] = tui.Cell{Text: text}
	}
	return row
}

func orDash(text string) string {
	if text == "" {
		return "-"
	}
	return text
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func flagCell(granted bool) tui.Cell {
	if granted {
		return tui.Cell{Text: "yes", Tone: tui.ToneSuccess}
	}
	return tui.Cell{Text: "-", Tone: tui.ToneFaint}
}

func permissionRow(entry console.PermissionEntry) []tui.Cell {
	return []tui.Cell{
		{Text: entry.Key},
		flagCell(entry.ReadSelf),
		flagCell(entry.ReadAny),
		flagCell(entry.WriteSelf),
		flagCell(entry.WriteAny),
	}
}

func permissionTable(entries []console.PermissionEntry) tui.Table {
	table := newTable("KEY", "READ SELF", "READ ANY", "WRITE SELF", "WRITE ANY")
	for _, entry := range entries {
		table.Rows = append(table.Rows, permissionRow(entry))
	}
	return table
}

// commanderArg parses a commander id argument.
func commanderArg(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, cli.Validation("commander id must be a positive integer, got %q", value)
	}
	return id, nil
}

func pageFooter(out *cli.Output, meta console.PaginationMeta, shown int) {
	if meta.Total > shown {
		out.Printf("Showing %d-%d of %d.\n", meta.Offset+1, meta.Offset+shown, meta.Total)
	}
}
