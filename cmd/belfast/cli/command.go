// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command represents a CLI command or subcommand.
type Command struct {
	// Name is the command name as typed by the user (e.g., "players", "ban").
	Name string

	// Summary is a one-line description shown in the parent's help listing.
	Summary string

	// Description is shown in the command's own help output.
	Description string

	// Usage is the usage string (e.g., "belfast players ban <id> [flags]").
	// If empty, it is synthesized from the command path.
	Usage string

	// Examples are shown in the help output after the flags.
	Examples []Example

	// Params returns a pointer to the command's parameter struct. Its
	// tagged fields become flags (see [BindFlags]) and are populated
	// before Run is called. If nil, the command accepts no flags.
	Params func() any

	// Subcommands are nested commands dispatched by the first positional arg.
	Subcommands []*Command

	// Run executes the command with the positional args left after flag
	// parsing. If both Run and Subcommands are set, Run is used when no
	// subcommand matches.
	Run func(ctx context.Context, args []string) error

	parent *Command
}

// Example is a usage example shown in help output.
type Example struct {
	Description string
	Command     string
}

// Execute parses args and dispatches to the matching subcommand or to
// Run. Help output goes to help.
func (c *Command) Execute(ctx context.Context, args []string, help io.Writer) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(help)
		return nil
	}

	if len(c.Subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name := args[0]
		for _, sub := range c.Subcommands {
			if sub.Name == name {
				sub.parent = c
				return sub.Execute(ctx, args[1:], help)
			}
		}
		if c.Run == nil {
			if suggestion := suggestCommand(name, c.Subcommands); suggestion != "" {
				return Validation("unknown command %q (did you mean %q?)", name, suggestion).
					WithHint(fmt.Sprintf("Run '%s --help' for usage.", c.fullName()))
			}
			return Validation("unknown command %q", name).
				WithHint(fmt.Sprintf("Run '%s --help' for usage.", c.fullName()))
		}
	}

	if len(c.Subcommands) > 0 && c.Run == nil {
		c.PrintHelp(help)
		if len(args) == 0 {
			return Validation("subcommand required")
		}
		return Validation("subcommand required (got flag %q)", args[0])
	}

	if c.Params != nil {
		flagSet := c.flagSet()
		flagSet.SetOutput(io.Discard)
		if err := flagSet.Parse(args); err != nil {
			hint := fmt.Sprintf("Run '%s --help' for usage.", c.fullName())
			if strings.Contains(err.Error(), "unknown") {
				if suggestion := suggestFlag(args, c.flagSet()); suggestion != "" {
					return Validation("%s (did you mean %s?)", err, suggestion).WithHint(hint)
				}
			}
			return Validation("%s", err).WithHint(hint)
		}
		args = flagSet.Args()
	}

	if c.Run != nil {
		return c.Run(ctx, args)
	}
	c.PrintHelp(help)
	return Internal("no action defined for %q", c.fullName())
}

// flagSet binds a fresh FlagSet to the command's params. Binding resets
// every field to its default, so each call starts clean.
func (c *Command) flagSet() *pflag.FlagSet {
	return FlagsFromParams(c.Name, c.Params())
}

// PrintHelp writes structured help output to w.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()

	if c.Description != "" {
		fmt.Fprintf(w, "%s\n\n", c.Description)
	} else if c.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	switch {
	case c.Usage != "":
		fmt.Fprintf(w, "Usage:\n  %s\n", c.Usage)
	case len(c.Subcommands) > 0:
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", name)
	default:
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", name)
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
	}

	if c.Params != nil {
		if usage := c.flagSet().FlagUsages(); usage != "" {
			fmt.Fprintf(w, "\nFlags:\n%s", usage)
		}
	}

	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, example := range c.Examples {
			if example.Description != "" {
				fmt.Fprintf(w, "  # %s\n", example.Description)
			}
			fmt.Fprintf(w, "  %s\n", example.Command)
			if example.Description != "" {
				fmt.Fprintln(w)
			}
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", name)
	}
}

// fullName returns the complete command path (e.g., "belfast players ban").
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
