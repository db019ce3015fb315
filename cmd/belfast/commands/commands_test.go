// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/internal/apitest"
	"github.com/belfast-foundation/belfast-console/lib/testutil"
)

// harness runs belfast invocations against one fake server with a
// private session file.
type harness struct {
	t           *testing.T
	server      *apitest.Server
	sessionPath string
	configPath  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := testutil.PrivateDir(t)
	sessionPath := filepath.Join(dir, "session.json")
	t.Setenv("BELFAST_CONFIG", "")
	t.Setenv("BELFAST_SESSION_FILE", sessionPath)
	return &harness{t: t, server: apitest.New(t), sessionPath: sessionPath}
}

type invocation struct {
	stdout string
	stderr string
	err    error
}

func (h *harness) run(stdin string, args ...string) invocation {
	h.t.Helper()
	global := []string{"--base-url", h.server.URL(), "--log-level", "error"}
	if h.configPath != "" {
		global = append(global, "--config", h.configPath)
	}
	var stdout, stderr bytes.Buffer
	err := Main(context.Background(), append(global, args...), Streams{
		In:  strings.NewReader(stdin),
		Out: &stdout,
		Err: &stderr,
	})
	return invocation{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// mustRun fails the test unless the invocation succeeds.
func (h *harness) mustRun(stdin string, args ...string) string {
	h.t.Helper()
	result := h.run(stdin, args...)
	if result.err != nil {
		h.t.Fatalf("belfast %s: %v\nstderr: %s", strings.Join(args, " "), result.err, result.stderr)
	}
	return result.stdout
}

// operator creates an operator holding one role with grants and signs
// it in.
func (h *harness) operator(username string, grants ...console.PermissionEntry) {
	h.t.Helper()
	h.server.AddRole(username+"-role", grants)
	h.server.AddAdmin(username, "hunter2", username+"-role")
	h.mustRun("hunter2\n", "login", username, "--password-file", "-")
}

func requireExitCode(t *testing.T, result invocation, want int) {
	t.Helper()
	if result.err == nil {
		t.Fatalf("expected exit code %d, command succeeded with output %q", want, result.stdout)
	}
	if got := cli.ExitCode(result.err); got != want {
		t.Fatalf("exit code = %d, want %d (error: %v)", got, want, result.err)
	}
}

func TestLoginPersistsSessionForLaterCommands(t *testing.T) {
	h := newHarness(t)
	h.operator("alice", console.PermissionEntry{Key: "players", ReadAny: true})

	info, err := os.Stat(h.sessionPath)
	if err != nil {
		t.Fatalf("session file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("session file mode = %v, want 0600", info.Mode().Perm())
	}

	output := h.mustRun("", "whoami", "--json")
	var result struct {
		Kind        string   `json:"kind"`
		Roles       []string `json:"roles"`
		Permissions int      `json:"permissions"`
		User        struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("parsing whoami output %q: %v", output, err)
	}
	if result.Kind != "admin" || result.User.Username != "alice" {
		t.Errorf("whoami = %+v, want admin alice", result)
	}
	if len(result.Roles) != 1 || result.Roles[0] != "alice-role" || result.Permissions != 1 {
		t.Errorf("whoami roles = %v, permissions = %d", result.Roles, result.Permissions)
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.server.AddAdmin("alice", "hunter2")

	result := h.run("wrong\n", "login", "alice", "--password-file", "-")
	requireExitCode(t, result, cli.ExitPermissionDenied)
	if _, err := os.Stat(h.sessionPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("failed login left a session file: %v", err)
	}
}

func TestLogoutRemovesSession(t *testing.T) {
	h := newHarness(t)
	h.operator("alice")

	if output := h.mustRun("", "logout"); !strings.Contains(output, "Signed out.") {
		t.Errorf("logout output = %q", output)
	}
	if _, err := os.Stat(h.sessionPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("session file still present after logout: %v", err)
	}
	if output := h.mustRun("", "logout"); !strings.Contains(output, "Not signed in.") {
		t.Errorf("second logout output = %q", output)
	}
}

func TestExpiredSessionIsForgotten(t *testing.T) {
	h := newHarness(t)
	h.operator("alice")
	h.server.ExpireSessions()

	result := h.run("", "whoami")
	requireExitCode(t, result, cli.ExitPermissionDenied)
	if !strings.Contains(cli.Classify(result.err).Error(), "belfast login") {
		t.Errorf("error %q lacks the sign-in hint", cli.Classify(result.err).Error())
	}
	if _, err := os.Stat(h.sessionPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expired session file kept: %v", err)
	}
}

func TestCommandsRequireSignIn(t *testing.T) {
	h := newHarness(t)

	result := h.run("", "players", "list")
	requireExitCode(t, result, cli.ExitPermissionDenied)
	if calls := h.server.Calls("GET", "/players"); len(calls) != 0 {
		t.Errorf("player list requested without a session: %d calls", len(calls))
	}
}

func TestMissingPermissionIsDeniedLocally(t *testing.T) {
	h := newHarness(t)
	h.operator("alice", console.PermissionEntry{Key: "players", ReadAny: true})

	result := h.run("", "server", "status")
	requireExitCode(t, result, cli.ExitPermissionDenied)
	want := "Permission denied, missing permission: server (read any)."
	if !strings.Contains(result.err.Error(), want) {
		t.Errorf("error = %q, want %q", result.err, want)
	}
	if calls := h.server.Calls("GET", "/server/status"); len(calls) != 0 {
		t.Errorf("server status requested despite denial: %d calls", len(calls))
	}
}

func TestCan(t *testing.T) {
	h := newHarness(t)
	h.server.AddCommander(apitest.Commander{ID: 9001, Name: "Enterprise", Level: 120})
	h.server.AddCommander(apitest.Commander{ID: 42, Name: "Hood", Level: 100})
	h.server.AddRole("self-service", []console.PermissionEntry{{Key: "players", ReadSelf: true}})
	h.server.AddAdmin("alice", "hunter2", "self-service")
	h.server.LinkCommander("alice", 9001)
	h.mustRun("hunter2\n", "login", "alice", "--password-file", "-")

	tests := []struct {
		name   string
		args   []string
		allow  bool
		denial string
	}{
		{name: "self grant", args: []string{"players", "read_self"}, allow: true},
		{name: "any missing", args: []string{"players", "read_any"}, denial: "players (read any)"},
		{name: "write implies nothing", args: []string{"players", "write-self"}, denial: "players (write self)"},
		{name: "own commander", args: []string{"players", "read", "--target", "9001"}, allow: true},
		{name: "other commander", args: []string{"players", "read", "--target", "42"}, denial: "players (read any)"},
		{name: "unknown key", args: []string{"server", "read_self"}, denial: "server (read self)"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := h.run("", append([]string{"can"}, test.args...)...)
			if test.allow {
				if result.err != nil {
					t.Fatalf("can %v: %v", test.args, result.err)
				}
				if !strings.Contains(result.stdout, "Allowed.") {
					t.Errorf("output = %q, want Allowed.", result.stdout)
				}
				return
			}
			requireExitCode(t, result, cli.ExitPermissionDenied)
			if !cli.Silent(result.err) {
				t.Errorf("denial should be reported on stdout only, got error %v", result.err)
			}
			if !strings.Contains(result.stdout, test.denial) {
				t.Errorf("output = %q, want it to name %q", result.stdout, test.denial)
			}
		})
	}

	requireExitCode(t, h.run("", "can", "players", "delete_all"), cli.ExitValidation)
}

func TestMePermissionsFilter(t *testing.T) {
	h := newHarness(t)
	h.operator("alice",
		console.PermissionEntry{Key: "players", ReadAny: true},
		console.PermissionEntry{Key: "server", ReadAny: true, WriteAny: true},
		console.PermissionEntry{Key: "notices", ReadAny: true},
	)

	var entries []console.PermissionEntry
	output := h.mustRun("", "me", "permissions", "srv", "--json")
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("parsing %q: %v", output, err)
	}
	if len(entries) == 0 || entries[0].Key != "server" || !entries[0].WriteAny {
		t.Errorf("filtered permissions = %+v, want server first", entries)
	}

	table := h.mustRun("", "me", "permissions")
	for _, key := range []string{"players", "server", "notices", "WRITE ANY"} {
		if !strings.Contains(table, key) {
			t.Errorf("permission table lacks %q:\n%s", key, table)
		}
	}
}

func TestMeCommanderNotLinked(t *testing.T) {
	h := newHarness(t)
	h.operator("alice")

	result := h.run("", "me", "commander")
	if got := cli.Classify(result.err).Category; got != cli.CategoryNotFound {
		t.Errorf("category = %q, want not_found (error: %v)", got, result.err)
	}
}

func TestPlayersListAndModeration(t *testing.T) {
	h := newHarness(t)
	h.server.AddCommander(apitest.Commander{ID: 9001, Name: "Enterprise", Level: 120, Online: true})
	h.server.AddCommander(apitest.Commander{ID: 42, Name: "Hood", Level: 100})
	h.operator("alice", console.PermissionEntry{Key: "players", ReadAny: true, WriteAny: true})

	var list console.PlayerList
	output := h.mustRun("", "players", "list", "--min-level", "110", "--json")
	if err := json.Unmarshal([]byte(output), &list); err != nil {
		t.Fatalf("parsing %q: %v", output, err)
	}
	if len(list.Players) != 1 || list.Players[0].ID != 9001 {
		t.Errorf("players = %+v, want only 9001", list.Players)
	}

	requireExitCode(t, h.run("", "players", "ban", "9001"), cli.ExitValidation)
	requireExitCode(t, h.run("", "players", "ban", "9001", "--permanent", "--duration", "1h"), cli.ExitValidation)
	if calls := h.server.Calls("POST", "/players/9001/ban"); len(calls) != 0 {
		t.Fatalf("invalid ban reached the server: %d calls", len(calls))
	}

	if output := h.mustRun("", "players", "kick", "9001"); !strings.Contains(output, "Disconnected commander 9001.") {
		t.Errorf("kick output = %q", output)
	}
	h.mustRun("", "players", "ban", "9001", "--duration", "72h")
	if commander, _ := h.server.Commander(9001); !commander.Banned {
		t.Error("commander 9001 not banned")
	}
	calls := h.server.Calls("POST", "/players/9001/ban")
	if len(calls) != 1 || calls[0].CSRF == "" {
		t.Errorf("ban calls = %+v, want one carrying a CSRF token", calls)
	}
	h.mustRun("", "players", "unban", "9001")
	if commander, _ := h.server.Commander(9001); commander.Banned {
		t.Error("commander 9001 still banned")
	}

	result := h.run("", "players", "show", "7")
	if got := cli.Classify(result.err).Category; got != cli.CategoryNotFound {
		t.Errorf("show unknown commander: category %q (error: %v)", got, result.err)
	}
	requireExitCode(t, h.run("", "players", "show", "abc"), cli.ExitValidation)
}

func TestPlayersSelfGrantCoversOnlyOwnCommander(t *testing.T) {
	h := newHarness(t)
	h.server.AddCommander(apitest.Commander{ID: 9001, Name: "Enterprise", Level: 120})
	h.server.AddCommander(apitest.Commander{ID: 42, Name: "Hood", Level: 100})
	h.server.AddRole("self", []console.PermissionEntry{{Key: "players", ReadSelf: true, WriteSelf: true}})
	h.server.AddAdmin("alice", "hunter2", "self")
	h.server.LinkCommander("alice", 9001)
	h.mustRun("hunter2\n", "login", "alice", "--password-file", "-")

	if output := h.mustRun("", "players", "show", "9001"); !strings.Contains(output, "Enterprise") {
		t.Errorf("show own commander output = %q", output)
	}
	result := h.run("", "players", "kick", "42")
	requireExitCode(t, result, cli.ExitPermissionDenied)
	if !strings.Contains(result.err.Error(), "players (write any)") {
		t.Errorf("error = %q", result.err)
	}
	requireExitCode(t, h.run("", "players", "list"), cli.ExitPermissionDenied)
}

func TestServerMaintenance(t *testing.T) {
	h := newHarness(t)
	h.operator("alice", console.PermissionEntry{Key: "server", ReadAny: true})

	requireExitCode(t, h.run("", "server", "maintenance", "on"), cli.ExitPermissionDenied)
	if h.server.Maintenance() {
		t.Fatal("maintenance switched without write access")
	}

	h.operator("bob", console.PermissionEntry{Key: "server", ReadAny: true, WriteAny: true})
	if output := h.mustRun("", "server", "maintenance", "on"); !strings.Contains(output, "on") {
		t.Errorf("maintenance output = %q", output)
	}
	if !h.server.Maintenance() {
		t.Error("maintenance not switched on")
	}
	if output := h.mustRun("", "server", "status"); !strings.Contains(output, "MAINTENANCE") {
		t.Errorf("status output = %q", output)
	}
	requireExitCode(t, h.run("", "server", "maintenance", "maybe"), cli.ExitValidation)
}

func TestAuthzPolicySetReloadsPermissions(t *testing.T) {
	h := newHarness(t)
	h.operator("alice", console.PermissionEntry{Key: "admin.authz", ReadAny: true, WriteAny: true})

	dir := testutil.PrivateDir(t)
	policy := testutil.WriteFile(t, dir, "policy.yaml", `permissions:
  - key: admin.authz
    read_any: true
    write_any: true
  - key: notices
    read_any: true
`)
	h.mustRun("", "authz", "policy", "set", "alice-role", "--file", policy)

	var entries []console.PermissionEntry
	output := h.mustRun("", "me", "permissions", "--json")
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("parsing %q: %v", output, err)
	}
	if len(entries) != 2 {
		t.Errorf("permissions after edit = %+v, want admin.authz and notices", entries)
	}

	bad := testutil.WriteFile(t, dir, "bad.yaml", "permissions:\n  - key: notices\n    read_everything: true\n")
	requireExitCode(t, h.run("", "authz", "policy", "set", "alice-role", "--file", bad), cli.ExitValidation)

	overrides := testutil.WriteFile(t, dir, "overrides.yaml", "overrides:\n  - key: notices\n    mode: sometimes\n")
	requireExitCode(t, h.run("", "authz", "account", "overrides", "set", "admin-1", "--file", overrides), cli.ExitValidation)
}

func TestAuthzEditsNeedWriteAccess(t *testing.T) {
	h := newHarness(t)
	h.operator("alice", console.PermissionEntry{Key: "admin.authz", ReadAny: true})

	if output := h.mustRun("", "authz", "roles"); !strings.Contains(output, "alice-role") {
		t.Errorf("roles output = %q", output)
	}
	result := h.run("", "authz", "account", "roles", "set", "admin-1", "superuser")
	requireExitCode(t, result, cli.ExitPermissionDenied)
	if calls := h.server.Calls("PUT", ""); len(calls) != 0 {
		t.Errorf("denied edit reached the server: %+v", calls)
	}
}

func TestPlayerLoginShowsPlayerPolicy(t *testing.T) {
	h := newHarness(t)
	h.server.AddCommander(apitest.Commander{ID: 9001, Name: "Enterprise", Level: 120})
	h.server.AddPlayer(9001, "sekrit")
	h.server.SetPlayerPolicy([]console.PermissionEntry{{Key: "players", ReadSelf: true}})

	output := h.mustRun("sekrit\n", "player", "login", "9001", "--password-file", "-")
	for _, want := range []string{"Signed in as commander 9001.", "Commander: Enterprise, level 120", "players"} {
		if !strings.Contains(output, want) {
			t.Errorf("output lacks %q:\n%s", want, output)
		}
	}
	if _, err := os.Stat(h.sessionPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("player session was saved: %v", err)
	}
}

func TestRegisterPlainConfirmedInGame(t *testing.T) {
	h := newHarness(t)
	h.configPath = testutil.WriteFile(t, testutil.PrivateDir(t), "belfast.yaml", "registration:\n  poll_interval: 10ms\n")
	h.server.AddCommander(apitest.Commander{ID: 9001, Name: "Enterprise", Level: 120})

	done := make(chan invocation, 1)
	go func() { done <- h.run("sekrit\n", "register", "9001", "--plain", "--password-file", "-") }()

	confirmed := make(chan struct{})
	go func() {
		defer close(confirmed)
		for {
			select {
			case result := <-done:
				done <- result
				return
			default:
			}
			if ids := h.server.ChallengeIDs(); len(ids) == 1 {
				h.server.ConfirmInGame(ids[0])
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	<-confirmed

	result := <-done
	if result.err != nil {
		t.Fatalf("register: %v\nstderr: %s", result.err, result.stderr)
	}
	if !strings.Contains(result.stdout, "Registered and signed in as commander 9001.") {
		t.Errorf("output = %q", result.stdout)
	}
	if !h.server.HasPlayer(9001) {
		t.Error("player account not created")
	}
	if calls := h.server.Calls("POST", "/user/auth/login"); len(calls) != 1 {
		t.Errorf("player logins = %d, want exactly 1", len(calls))
	}
}

func TestRegisterWithPIN(t *testing.T) {
	h := newHarness(t)
	h.server.AddCommander(apitest.Commander{ID: 9001, Name: "Enterprise", Level: 120})
	h.server.EchoPIN(true)

	result := h.run("sekrit\n", "register", "9001", "--pin", "B-000000", "--password-file", "-")
	requireExitCode(t, result, cli.ExitValidation)
	if !strings.Contains(result.err.Error(), "Invalid PIN.") {
		t.Errorf("error = %q, want the invalid PIN notice", result.err)
	}
	if !strings.Contains(result.stdout, "PIN: ") {
		t.Errorf("echoed PIN not printed: %q", result.stdout)
	}

	// The first challenge is still pending on the server.
	h.server.AddCommander(apitest.Commander{ID: 42, Name: "Hood", Level: 100})
	requireExitCode(t, h.run("sekrit\n", "register", "42", "--pin", "12345", "--password-file", "-"), cli.ExitValidation)
}

func TestRegisterRejectsExistingAccount(t *testing.T) {
	h := newHarness(t)
	h.server.AddPlayer(9001, "sekrit")

	result := h.run("sekrit\n", "register", "9001", "--plain", "--password-file", "-")
	if got := cli.Classify(result.err).Category; got != cli.CategoryConflict {
		t.Errorf("category = %q, want conflict (error: %v)", got, result.err)
	}
	if !strings.Contains(result.err.Error(), "Account already exists.") {
		t.Errorf("error = %q", result.err)
	}
}

func TestRegisterWithoutTerminalNeedsPlain(t *testing.T) {
	h := newHarness(t)
	requireExitCode(t, h.run("", "register"), cli.ExitValidation)
}

func TestExchangeCodeCreate(t *testing.T) {
	h := newHarness(t)
	h.operator("alice", console.PermissionEntry{Key: "exchange_codes", ReadAny: true, WriteAny: true})

	requireExitCode(t, h.run("", "exchange-codes", "create", "--code", "SPRING", "--reward", "1:1"), cli.ExitValidation)
	h.mustRun("", "exchange-codes", "create", "--code", "SPRING", "--quota", "10", "--reward", "1:1:300", "--reward", "2:2:1")

	output := h.mustRun("", "exchange-codes", "list")
	if !strings.Contains(output, "SPRING") || !strings.Contains(output, "1:1×300, 2:2×1") {
		t.Errorf("list output = %q", output)
	}
}

func TestNoticesList(t *testing.T) {
	h := newHarness(t)
	h.server.AddNotice(console.Notice{ID: 1, Title: "Maintenance tonight", Version: "1"})
	h.operator("alice", console.PermissionEntry{Key: "notices", ReadAny: true})

	if output := h.mustRun("", "notices", "list"); !strings.Contains(output, "Maintenance tonight") {
		t.Errorf("notices output = %q", output)
	}
}

func TestUnknownCommandSuggestsClosest(t *testing.T) {
	h := newHarness(t)
	result := h.run("", "playrs")
	requireExitCode(t, result, cli.ExitValidation)
	if !strings.Contains(result.err.Error(), `"players"`) {
		t.Errorf("error = %q, want a suggestion", result.err)
	}
}

func TestSessionKeygenSealsLaterLogins(t *testing.T) {
	h := newHarness(t)
	keyPath := filepath.Join(testutil.PrivateDir(t), "keys", "session.age")
	h.configPath = testutil.WriteFile(t, testutil.PrivateDir(t), "belfast.yaml", "session:\n  age_identity_file: "+keyPath+"\n")

	output := h.mustRun("", "session", "keygen")
	if !strings.Contains(output, "Public key: age1") {
		t.Errorf("keygen output = %q", output)
	}
	requireExitCode(t, h.run("", "session", "keygen"), cli.ExitFailure)

	h.operator("alice")
	var info sessionInfo
	if err := json.Unmarshal([]byte(h.mustRun("", "session", "show", "--json")), &info); err != nil {
		t.Fatalf("parsing session show: %v", err)
	}
	if !info.Sealed || info.Username != "alice" {
		t.Errorf("session info = %+v, want sealed session for alice", info)
	}
	raw, err := os.ReadFile(h.sessionPath)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte("belfast_admin_session")) {
		t.Error("sealed session file contains the cookie name in clear")
	}
	h.mustRun("", "whoami")
}
