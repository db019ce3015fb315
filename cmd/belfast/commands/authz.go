// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/permission"
)

// policyDocument is the YAML form of a role or player policy:
//
//	permissions:
//	  - key: players
//	    read_self: true
//	    read_any: true
type policyDocument struct {
	Permissions []policyEntry `yaml:"permissions"`
}

type policyEntry struct {
	Key       string `yaml:"key"`
	ReadSelf  bool   `yaml:"read_self"`
	ReadAny   bool   `yaml:"read_any"`
	WriteSelf bool   `yaml:"write_self"`
	WriteAny  bool   `yaml:"write_any"`
}

// overridesDocument is the YAML form of an account's overrides:
//
//	overrides:
//	  - key: players
//	    mode: deny
//	    write_any: true
type overridesDocument struct {
	Overrides []overrideEntry `yaml:"overrides"`
}

type overrideEntry struct {
	policyEntry `yaml:",inline"`
	Mode        string `yaml:"mode"`
}

func (e policyEntry) toEntry() console.PermissionEntry {
	return console.PermissionEntry{Key: e.Key, ReadSelf: e.ReadSelf, ReadAny: e.ReadAny, WriteSelf: e.WriteSelf, WriteAny: e.WriteAny}
}

// decodeDocument reads a YAML document from path ("-" for standard
// input) into target, rejecting unknown fields.
func (a *App) decodeDocument(path string, target any) error {
	if path == "" {
		return cli.Validation("--file is required")
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(a.streams.In)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return cli.Validation("reading %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return cli.Validation("parsing %s: %w", path, err)
	}
	return nil
}

func (d policyDocument) entries() ([]console.PermissionEntry, error) {
	seen := make(map[string]bool)
	entries := make([]console.PermissionEntry, 0, len(d.Permissions))
	for index, entry := range d.Permissions {
		if entry.Key == "" {
			return nil, cli.Validation("permissions[%d]: key is required", index)
		}
		if seen[entry.Key] {
			return nil, cli.Validation("permissions[%d]: key %q appears twice", index, entry.Key)
		}
		seen[entry.Key] = true
		entries = append(entries, entry.toEntry())
	}
	return entries, nil
}

func (d overridesDocument) overrides() ([]console.AccountOverride, error) {
	overrides := make([]console.AccountOverride, 0, len(d.Overrides))
	for index, entry := range d.Overrides {
		if entry.Key == "" {
			return nil, cli.Validation("overrides[%d]: key is required", index)
		}
		mode := console.OverrideMode(entry.Mode)
		if mode != console.OverrideAllow && mode != console.OverrideDeny {
			return nil, cli.Validation("overrides[%d]: mode must be allow or deny, got %q", index, entry.Mode)
		}
		overrides = append(overrides, console.AccountOverride{
			Key:       entry.Key,
			Mode:      mode,
			ReadSelf:  entry.ReadSelf,
			ReadAny:   entry.ReadAny,
			WriteSelf: entry.WriteSelf,
			WriteAny:  entry.WriteAny,
		})
	}
	return overrides, nil
}

type authzReadParams struct {
	cli.JSONOutput
}

type authzFileParams struct {
	cli.JSONOutput
	File string `flag:"file,f" desc:"YAML document to apply, or - for standard input"`
}

func authzCommand(app *App) *cli.Command {
	var readParams authzReadParams
	var fileParams authzFileParams

	// reader checks admin.authz read_any before a read-only command.
	reader := func(ctx context.Context) (*console.Client, error) {
		store, err := app.authorize(ctx, permission.AuthzKey, permission.ReadAny)
		if err != nil {
			return nil, err
		}
		return store.Client(), nil
	}
	writer := func(ctx context.Context) (*permission.Admin, error) {
		store, err := app.authorize(ctx, permission.AuthzKey, permission.WriteAny)
		if err != nil {
			return nil, err
		}
		return permission.NewAdmin(store.Client(), app.cache), nil
	}
	showPolicy := func(policy *console.RolePolicy) error {
		if done, err := fileParams.EmitJSON(app.out, policy); done {
			return err
		}
		if policy.Role != "" {
			app.out.Printf("Role: %s\n", policy.Role)
		}
		if len(policy.Permissions) == 0 {
			app.out.Println("No permissions granted.")
		} else {
			app.out.Table(permissionTable(policy.Permissions))
		}
		if policy.UpdatedAt != "" {
			app.out.Printf("Updated %s by %s\n", policy.UpdatedAt, orDash(policy.UpdatedBy))
		}
		return nil
	}

	return &cli.Command{
		Name:    "authz",
		Summary: "Inspect and edit roles, account grants and the player policy",
		Description: `Inspect and edit role-based access control.

Reading needs admin.authz (read any); editing needs admin.authz
(write any). Edits replace the whole policy, role list or override
list with the YAML document given by --file. After an edit the
operator's own permissions are reloaded, since the edit may have
changed them.`,
		Subcommands: []*cli.Command{
			{
				Name:    "roles",
				Summary: "List roles",
				Params:  func() any { return &readParams },
				Run: func(ctx context.Context, args []string) error {
					client, err := reader(ctx)
					if err != nil {
						return err
					}
					roles, err := client.Roles(ctx)
					if err != nil {
						return err
					}
					if done, err := readParams.EmitJSON(app.out, roles.Roles); done {
						return err
					}
					table := newTable("ROLE", "DESCRIPTION", "UPDATED", "BY")
					for _, role := range roles.Roles {
						table.Rows = append(table.Rows, cells(role.Name, orDash(role.Description), orDash(role.UpdatedAt), orDash(role.UpdatedBy)))
					}
					app.out.Table(table)
					return nil
				},
			},
			{
				Name:    "permissions",
				Summary: "List the permission keys the server knows",
				Usage:   "belfast authz permissions [pattern] [flags]",
				Params:  func() any { return &readParams },
				Run: func(ctx context.Context, args []string) error {
					if len(args) > 1 {
						return cli.Validation("usage: belfast authz permissions [pattern] [flags]")
					}
					client, err := reader(ctx)
					if err != nil {
						return err
					}
					list, err := client.Permissions(ctx)
					if err != nil {
						return err
					}
					summaries := list.Permissions
					if len(args) == 1 {
						byKey := make(map[string]console.PermissionSummary, len(summaries))
						keys := make([]string, 0, len(summaries))
						for _, summary := range summaries {
							byKey[summary.Key] = summary
							keys = append(keys, summary.Key)
						}
						summaries = summaries[:0:0]
						for _, key := range permission.FilterKeys(keys, args[0]) {
							summaries = append(summaries, byKey[key])
						}
					}
					if done, err := readParams.EmitJSON(app.out, summaries); done {
						return err
					}
					table := newTable("KEY", "DESCRIPTION")
					for _, summary := range summaries {
						table.Rows = append(table.Rows, cells(summary.Key, orDash(summary.Description)))
					}
					app.out.Table(table)
					return nil
				},
			},
			{
				Name:    "policy",
				Summary: "Show or replace a role's policy",
				Subcommands: []*cli.Command{
					{
						Name:   "get",
						Usage:  "belfast authz policy get <role> [flags]",
						Params: func() any { return &fileParams },
						Run: func(ctx context.Context, args []string) error {
							if len(args) != 1 {
								return cli.Validation("usage: belfast authz policy get <role> [flags]")
							}
							client, err := reader(ctx)
							if err != nil {
								return err
							}
							policy, err := client.RolePolicy(ctx, args[0])
							if console.IsNotFound(err) {
								return cli.NotFound("role %q does not exist", args[0])
							}
							if err != nil {
								return err
							}
							return showPolicy(policy)
						},
					},
					{
						Name:  "set",
						Usage: "belfast authz policy set <role> --file <policy.yaml>",
						Description: `Replace every entry of a role's policy. The document lists the
role's permissions; keys left out lose all access.

  permissions:
    - key: players
      read_any: true
      write_any: true`,
						Params: func() any { return &fileParams },
						Run: func(ctx context.Context, args []string) error {
							if len(args) != 1 {
								return cli.Validation("usage: belfast authz policy set <role> --file <policy.yaml>")
							}
							var document policyDocument
							if err := app.decodeDocument(fileParams.File, &document); err != nil {
								return err
							}
							entries, err := document.entries()
							if err != nil {
								return err
							}
							admin, err := writer(ctx)
							if err != nil {
								return err
							}
							policy, err := admin.ReplaceRolePolicy(ctx, args[0], entries)
							if err != nil {
								return err
							}
							return showPolicy(policy)
						},
					},
				},
			},
			{
				Name:    "account",
				Summary: "Show or replace an operator account's roles and overrides",
				Subcommands: []*cli.Command{
					accountRolesCommand(app, reader, writer),
					accountOverridesCommand(app, reader, writer),
				},
			},
			{
				Name:    "player-policy",
				Summary: "Show or replace the policy every player account gets",
				Subcommands: []*cli.Command{
					{
						Name:   "get",
						Params: func() any { return &fileParams },
						Run: func(ctx context.Context, args []string) error {
							client, err := reader(ctx)
							if err != nil {
								return err
							}
							policy, err := client.PlayerPermissionPolicy(ctx)
							if err != nil {
								return err
							}
							return showPolicy(policy)
						},
					},
					{
						Name:   "set",
						Usage:  "belfast authz player-policy set --file <policy.yaml>",
						Params: func() any { return &fileParams },
						Run: func(ctx context.Context, args []string) error {
							var document policyDocument
							if err := app.decodeDocument(fileParams.File, &document); err != nil {
								return err
							}
							entries, err := document.entries()
							if err != nil {
								return err
							}
							admin, err := writer(ctx)
							if err != nil {
								return err
							}
							policy, err := admin.UpdatePlayerPolicy(ctx, entries)
							if err != nil {
								return err
							}
							return showPolicy(policy)
						},
					},
				},
			},
		},
	}
}

type accountRolesParams struct {
	cli.JSONOutput
}

func accountRolesCommand(app *App, reader func(context.Context) (*console.Client, error), writer func(context.Context) (*permission.Admin, error)) *cli.Command {
	var params accountRolesParams
	show := func(roles *console.AccountRoles) error {
		if done, err := params.EmitJSON(app.out, roles); done {
			return err
		}
		app.out.Printf("Account %s roles: %s\n", roles.AccountID, joinOrNone(roles.Roles))
		return nil
	}
	return &cli.Command{
		Name:    "roles",
		Summary: "Show or replace the roles of an operator account",
		Subcommands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "belfast authz account roles get <account-id> [flags]",
				Params: func() any { return &params },
				Run: func(ctx context.Context, args []string) error {
					if len(args) != 1 {
						return cli.Validation("usage: belfast authz account roles get <account-id> [flags]")
					}
					client, err := reader(ctx)
					if err != nil {
						return err
					}
					roles, err := client.AccountRoles(ctx, args[0])
					if err != nil {
						return err
					}
					return show(roles)
				},
			},
			{
				Name:    "set",
				Summary: "Replace the roles of an account; no roles removes them all",
				Usage:   "belfast authz account roles set <account-id> [role...] [flags]",
				Params:  func() any { return &params },
				Run: func(ctx context.Context, args []string) error {
					if len(args) < 1 {
						return cli.Validation("usage: belfast authz account roles set <account-id> [role...] [flags]")
					}
					admin, err := writer(ctx)
					if err != nil {
						return err
					}
					roles, err := admin.ReplaceAccountRoles(ctx, args[0], append([]string{}, args[1:]...))
					if err != nil {
						return err
					}
					return show(roles)
				},
			},
		},
	}
}

func accountOverridesCommand(app *App, reader func(context.Context) (*console.Client, error), writer func(context.Context) (*permission.Admin, error)) *cli.Command {
	var params authzFileParams
	show := func(result *console.AccountOverrides) error {
		if done, err := params.EmitJSON(app.out, result); done {
			return err
		}
		if len(result.Overrides) == 0 {
			app.out.Printf("Account %s has no overrides.\n", result.AccountID)
			return nil
		}
		table := newTable("KEY", "MODE", "READ SELF", "READ ANY", "WRITE SELF", "WRITE ANY")
		for _, override := range result.Overrides {
			row := permissionRow(console.PermissionEntry{
				Key:       override.Key,
				ReadSelf:  override.ReadSelf,
				ReadAny:   override.ReadAny,
				WriteSelf: override.WriteSelf,
				WriteAny:  override.WriteAny,
			})
			mode := cells(string(override.Mode))
			table.Rows = append(table.Rows, append(append(row[:1:1], mode...), row[1:]...))
		}
		app.out.Table(table)
		return nil
	}
	return &cli.Command{
		Name:    "overrides",
		Summary: "Show or replace the allow and deny overrides of an operator account",
		Subcommands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "belfast authz account overrides get <account-id> [flags]",
				Params: func() any { return &params },
				Run: func(ctx context.Context, args []string) error {
					if len(args) != 1 {
						return cli.Validation("usage: belfast authz account overrides get <account-id> [flags]")
					}
					client, err := reader(ctx)
					if err != nil {
						return err
					}
					result, err := client.AccountOverrides(ctx, args[0])
					if err != nil {
						return err
					}
					return show(result)
				},
			},
			{
				Name:  "set",
				Usage: "belfast authz account overrides set <account-id> --file <overrides.yaml>",
				Description: fmt.Sprintf(`Replace the overrides of an account. An allow override adds the
listed operations on top of the account's roles; a deny override
removes them.

  overrides:
    - key: players
      mode: %s
      write_any: true`, console.OverrideDeny),
				Params: func() any { return &params },
				Run: func(ctx context.Context, args []string) error {
					if len(args) != 1 {
						return cli.Validation("usage: belfast authz account overrides set <account-id> --file <overrides.yaml>")
					}
					var document overridesDocument
					if err := app.decodeDocument(params.File, &document); err != nil {
						return err
					}
					overrides, err := document.overrides()
					if err != nil {
						return err
					}
					admin, err := writer(ctx)
					if err != nil {
						return err
					}
					result, err := admin.ReplaceAccountOverrides(ctx, args[0], overrides)
					if err != nil {
						return err
					}
					return show(result)
				},
			},
		},
	}
}
