// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package apitest runs an in-memory imitation of the game server's
// admin API for tests. It keeps real cookie sessions, enforces CSRF on
// mutations, runs registration challenges and verifies passkey
// signatures, so the console's clients can be exercised end to end
// without a game server.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/belfast-foundation/belfast-console/console"
)

// Cookie names of the two session kinds.
const (
	AdminCookie  = "belfast_admin_session"
	PlayerCookie = "belfast_user_session"
)

const apiPrefix = "/api/v1"

// Call is one request the server received.
type Call struct {
	Method string
	Path   string
	CSRF   string
}

// Failure makes matching requests fail. Times is how many requests
// fail before the route behaves normally again; zero means forever.
type Failure struct {
	Status  int
	Code    string
	Message string
	Times   int
}

type failureRule struct {
	method string
	path   string
	Failure
}

type adminRecord struct {
	user        console.AdminUser
	password    string
	roles       []string
	overrides   []console.AccountOverride
	commanderID int64
	passkeys    []*passkeyRecord
}

type playerRecord struct {
	account  console.UserAccount
	password string
}

// Commander is a game character known to the fake server.
type Commander struct {
	ID     int64
	Name   string
	Level  int
	Banned bool
	Online bool
}

type sessionRecord struct {
	token  string
	id     string
	csrf   string
	admin  *adminRecord
	player *playerRecord
}

// Server is the fake admin API. Safe for concurrent use.
type Server struct {
	server *httptest.Server
	logger *slog.Logger

	mu                   sync.Mutex
	nextID               int
	admins               map[string]*adminRecord
	players              map[int64]*playerRecord
	commanders           map[int64]*Commander
	sessions             map[string]*sessionRecord
	challenges           map[string]*challengeRecord
	roles                map[string]*console.RolePolicy
	permissionKeys       []string
	playerPolicy         []console.PermissionEntry
	maintenance          bool
	exchangeCodes        []console.ExchangeCode
	notices              []console.Notice
	echoPIN              bool
	registrationOptions  map[string][]byte
	authenticationStarts map[string]string
	failures             []*failureRule
	gates                map[string]chan struct{}
	calls                []Call
}

// New starts a fake server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
		admins:               make(map[string]*adminRecord),
		players:              make(map[int64]*playerRecord),
		commanders:           make(map[int64]*Commander),
		sessions:             make(map[string]*sessionRecord),
		challenges:           make(map[string]*challengeRecord),
		roles:                make(map[string]*console.RolePolicy),
		registrationOptions:  make(map[string][]byte),
		authenticationStarts: make(map[string]string),
		gates:                make(map[string]chan struct{}),
		permissionKeys:       []string{"admin.authz", "admin.users", "exchange_codes", "notices", "players", "server"},
	}
	s.server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Close shuts the server down, releasing any blocked requests.
func (s *Server) Close() {
	s.mu.Lock()
	for key, gate := range s.gates {
		close(gate)
		delete(s.gates, key)
	}
	s.mu.Unlock()
	s.server.Close()
}

// URL is the API root, including the version prefix.
func (s *Server) URL() string { return s.server.URL + apiPrefix }

// Origin is the scheme and host clients see.
func (s *Server) Origin() string { return s.server.URL }

// NewClient returns a console client for the server with a fresh
// cookie jar.
func (s *Server) NewClient(t testing.TB) *console.Client {
	t.Helper()
	client, err := console.NewClient(console.ClientConfig{BaseURL: s.URL(), Logger: s.logger})
	if err != nil {
		t.Fatalf("creating console client: %v", err)
	}
	return client
}

func (s *Server) newIDLocked(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

// AddRole defines or replaces a role policy.
func (s *Server) AddRole(name string, permissions []console.PermissionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[name] = &console.RolePolicy{
		Role:          name,
		Permissions:   append([]console.PermissionEntry(nil), permissions...),
		AvailableKeys: append([]string(nil), s.permissionKeys...),
	}
}

// AddAdmin creates an operator holding roles.
func (s *Server) AddAdmin(username, password string, roles ...string) console.AdminUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAdminLocked(username, password, roles)
}

func (s *Server) addAdminLocked(username, password string, roles []string) console.AdminUser {
	record := &adminRecord{
		user: console.AdminUser{
			ID:        s.newIDLocked("admin"),
			Username:  username,
			IsAdmin:   true,
			CreatedAt: timestamp(time.Now()),
		},
		password: password,
		roles:    append([]string(nil), roles...),
	}
	s.admins[username] = record
	return record.user
}

// LinkCommander links an operator account to a commander, which makes
// it the operator's "self" for permission checks.
func (s *Server) LinkCommander(username string, commanderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if admin := s.admins[username]; admin != nil {
		admin.commanderID = commanderID
	}
}

// AddCommander registers a game character.
func (s *Server) AddCommander(commander Commander) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := commander
	s.commanders[commander.ID] = &copied
}

// AddPlayer creates a player account for an existing or new commander.
func (s *Server) AddPlayer(commanderID int64, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addPlayerLocked(commanderID, password)
}

func (s *Server) addPlayerLocked(commanderID int64, password string) {
	if _, ok := s.commanders[commanderID]; !ok {
		s.commanders[commanderID] = &Commander{ID: commanderID, Name: fmt.Sprintf("Commander %d", commanderID), Level: 1}
	}
	s.players[commanderID] = &playerRecord{
		account: console.UserAccount{
			ID:          s.newIDLocked("user"),
			CommanderID: commanderID,
			CreatedAt:   timestamp(time.Now()),
		},
		password: password,
	}
}

// HasPlayer reports whether a player account exists for commanderID.
func (s *Server) HasPlayer(commanderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[commanderID]
	return ok
}

// SetPlayerPolicy replaces the policy applied to every player.
func (s *Server) SetPlayerPolicy(permissions []console.PermissionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerPolicy = append([]console.PermissionEntry(nil), permissions...)
}

// Fail makes requests to method and path (relative to the API root)
// fail as described.
func (s *Server) Fail(method, path string, failure Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, &failureRule{method: method, path: path, Failure: failure})
}

// Block holds requests to method and path until the returned function
// is called.
func (s *Server) Block(method, path string) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	gate := make(chan struct{})
	s.gates[key] = gate
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gates[key] == gate {
			delete(s.gates, key)
			close(gate)
		}
	}
}

// ExpireSessions drops every server-side session, as a restart or
// timeout would.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.sessions)
}

// Calls returns the requests received so far for method and path;
// empty strings match anything.
func (s *Server) Calls(method, path string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []Call
	for _, call := range s.calls {
		if (method == "" || call.Method == method) && (path == "" || call.Path == path) {
			matched = append(matched, call)
		}
	}
	return matched
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, handler func(http.ResponseWriter, *http.Request)) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+apiPrefix+path, handler)
	}

	route("GET /auth/bootstrap/status", s.handleBootstrapStatus)
	route("POST /auth/bootstrap", s.handleBootstrap)
	route("POST /auth/login", s.handleLogin)
	route("POST /auth/logout", s.handleLogout)
	route("GET /auth/session", s.handleSession)
	route("POST /auth/password/change", s.handlePasswordChange)
	route("GET /auth/passkeys", s.handlePasskeyList)
	route("DELETE /auth/passkeys/{id}", s.handlePasskeyDelete)
	route("POST /auth/passkeys/register/options", s.handlePasskeyRegisterOptions)
	route("POST /auth/passkeys/register/verify", s.handlePasskeyRegisterVerify)
	route("POST /auth/passkeys/authenticate/options", s.handlePasskeyAuthenticateOptions)
	route("POST /auth/passkeys/authenticate/verify", s.handlePasskeyAuthenticateVerify)

	route("POST /user/auth/login", s.handlePlayerLogin)
	route("GET /me/permissions", s.handleMePermissions)
	route("GET /me/commander", s.handleMeCommander)

	route("POST /registration/challenges", s.handleChallengeCreate)
	route("GET /registration/challenges/{id}", s.handleChallengeStatus)
	route("POST /registration/challenges/{id}/verify", s.handleChallengeVerify)

	route("GET /admin/users", s.handleAdminUsers)
	route("POST /admin/users", s.handleAdminUserCreate)
	route("GET /admin/authz/roles", s.handleRoles)
	route("GET /admin/authz/permissions", s.handlePermissionKeys)
	route("GET /admin/authz/roles/{role}", s.handleRolePolicy)
	route("PUT /admin/authz/roles/{role}", s.handleRolePolicyReplace)
	route("GET /admin/authz/accounts/{id}/roles", s.handleAccountRoles)
	route("PUT /admin/authz/accounts/{id}/roles", s.handleAccountRolesReplace)
	route("GET /admin/authz/accounts/{id}/overrides", s.handleAccountOverrides)
	route("PUT /admin/authz/accounts/{id}/overrides", s.handleAccountOverridesReplace)
	route("GET /admin/permission-policy", s.handlePlayerPolicy)
	route("PATCH /admin/permission-policy", s.handlePlayerPolicyUpdate)

	route("GET /server/status", s.handleServerStatus)
	route("GET /server/maintenance", s.handleMaintenance)
	route("POST /server/maintenance", s.handleMaintenanceSet)
	route("GET /players", s.handlePlayers)
	route("GET /players/{id}", s.handlePlayer)
	route("POST /players/{id}/ban", s.handleBan)
	route("DELETE /players/{id}/ban", s.handleUnban)
	route("POST /players/{id}/kick", s.handleKick)
	route("GET /exchange-codes", s.handleExchangeCodes)
	route("POST /exchange-codes", s.handleExchangeCodeCreate)
	route("GET /notices", s.handleNotices)

	mux.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "route not found")
	})
	return s.middleware(mux)
}

// csrfExempt lists mutating routes that are reachable before a
// session, and therefore a CSRF token, exists.
func csrfExempt(path string) bool {
	switch path {
	case "/auth/login", "/auth/bootstrap", "/user/auth/login",
		"/auth/passkeys/authenticate/options", "/auth/passkeys/authenticate/verify":
		return true
	}
	return strings.HasPrefix(path, "/registration/")
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		path := strings.TrimPrefix(request.URL.Path, apiPrefix)
		csrf := request.Header.Get(console.CSRFHeader)

		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: request.Method, Path: path, CSRF: csrf})
		gate := s.gates[request.Method+" "+path]
		failure := s.takeFailureLocked(request.Method, path)
		admin := s.sessionLocked(request, AdminCookie)
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-request.Context().Done():
				return
			}
		}
		if failure != nil {
			writeError(writer, failure.Status, failure.Code, failure.Message)
			return
		}
		mutating := request.Method != http.MethodGet && request.Method != http.MethodHead
		if mutating && admin != nil && !csrfExempt(path) && csrf != admin.csrf {
			writeError(writer, http.StatusForbidden, "csrf.invalid", "Invalid CSRF token")
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func (s *Server) takeFailureLocked(method, path string) *Failure {
	for index, rule := range s.failures {
		if rule.method != method || rule.path != path {
			continue
		}
		failure := rule.Failure
		if rule.Times > 0 {
			rule.Times--
			if rule.Times == 0 {
				s.failures = append(s.failures[:index], s.failures[index+1:]...)
			}
		}
		return &failure
	}
	return nil
}

func (s *Server) sessionLocked(request *http.Request, cookieName string) *sessionRecord {
	cookie, err := request.Cookie(cookieName)
	if err != nil {
		return nil
	}
	return s.sessions[cookie.Value]
}

func (s *Server) startSessionLocked(writer http.ResponseWriter, admin *adminRecord, player *playerRecord) *sessionRecord {
	record := &sessionRecord{
		token:  s.newIDLocked("token"),
		id:     s.newIDLocked("session"),
		csrf:   s.newIDLocked("csrf"),
		admin:  admin,
		player: player,
	}
	s.sessions[record.token] = record
	name := AdminCookie
	if player != nil {
		name = PlayerCookie
	}
	http.SetCookie(writer, &http.Cookie{Name: name, Value: record.token, Path: "/", HttpOnly: true})
	return record
}

func (record *sessionRecord) auth() console.AuthSession {
	return console.AuthSession{ID: record.id, ExpiresAt: timestamp(time.Now().Add(24 * time.Hour))}
}

// requireAdmin returns the admin session of request or writes a 401.
func (s *Server) requireAdmin(writer http.ResponseWriter, request *http.Request) *sessionRecord {
	s.mu.Lock()
	record := s.sessionLocked(request, AdminCookie)
	s.mu.Unlock()
	if record == nil {
		writeError(writer, http.StatusUnauthorized, "auth.unauthorized", "Authentication required")
	}
	return record
}

func writeData(writer http.ResponseWriter, data any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(map[string]any{"ok": true, "data": data})
}

func writeError(writer http.ResponseWriter, status int, code, message string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	body := map[string]any{"message": message}
	if code != "" {
		body["code"] = code
	}
	json.NewEncoder(writer).Encode(map[string]any{"ok": false, "error": body})
}

func readJSON(writer http.ResponseWriter, request *http.Request, target any) bool {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		writeError(writer, http.StatusBadRequest, "bad_request", "Invalid request body")
		return false
	}
	return true
}

func pathInt(writer http.ResponseWriter, request *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(request.PathValue(name), 10, 64)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "bad_request", "Invalid "+name)
		return 0, false
	}
	return value, true
}

func timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// --- Authentication ---

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleBootstrapStatus(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	count := len(s.admins)
	s.mu.Unlock()
	writeData(writer, console.BootstrapStatus{AdminCount: count, CanBootstrap: count == 0})
}

// OwnerRole is the role bootstrap grants: every known key, any target.
const OwnerRole = "owner"

func (s *Server) handleBootstrap(writer http.ResponseWriter, request *http.Request) {
	var body credentials
	if !readJSON(writer, request, &body) {
		return
	}
	if body.Username == "" || body.Password == "" {
		writeError(writer, http.StatusBadRequest, "bad_request", "Username and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.admins) > 0 {
		writeError(writer, http.StatusConflict, "auth.bootstrap_closed", "Bootstrap is no longer available")
		return
	}
	if _, ok := s.roles[OwnerRole]; !ok {
		var permissions []console.PermissionEntry
		for _, key := range s.permissionKeys {
			permissions = append(permissions, console.PermissionEntry{Key: key, ReadSelf: true, ReadAny: true, WriteSelf: true, WriteAny: true})
		}
		s.roles[OwnerRole] = &console.RolePolicy{Role: OwnerRole, Permissions: permissions, AvailableKeys: append([]string(nil), s.permissionKeys...)}
	}
	s.addAdminLocked(body.Username, body.Password, []string{OwnerRole})
	admin := s.admins[body.Username]
	record := s.startSessionLocked(writer, admin, nil)
	writeData(writer, console.LoginResponse{User: admin.user, Session: record.auth()})
}

func (s *Server) handleLogin(writer http.ResponseWriter, request *http.Request) {
	var body credentials
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	admin := s.admins[body.Username]
	if admin == nil || admin.password != body.Password || admin.user.Disabled {
		writeError(writer, http.StatusUnauthorized, "auth.invalid_credentials", "Invalid username or password")
		return
	}
	admin.user.LastLoginAt = timestamp(time.Now())
	record := s.startSessionLocked(writer, admin, nil)
	writeData(writer, console.LoginResponse{User: admin.user, Session: record.auth()})
}

func (s *Server) handleLogout(writer http.ResponseWriter, request *http.Request) {
	record := s.requireAdmin(writer, request)
	if record == nil {
		return
	}
	s.mu.Lock()
	delete(s.sessions, record.token)
	s.mu.Unlock()
	http.SetCookie(writer, &http.Cookie{Name: AdminCookie, Value: "", Path: "/", MaxAge: -1})
	writer.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(writer http.ResponseWriter, request *http.Request) {
	record := s.requireAdmin(writer, request)
	if record == nil {
		return
	}
	s.mu.Lock()
	user := record.admin.user
	s.mu.Unlock()
	writeData(writer, console.SessionResponse{User: user, Session: record.auth(), CSRFToken: record.csrf})
}

func (s *Server) handlePasswordChange(writer http.ResponseWriter, request *http.Request) {
	record := s.requireAdmin(writer, request)
	if record == nil {
		return
	}
	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.admin.password != body.CurrentPassword {
		writeError(writer, http.StatusBadRequest, "auth.invalid_password", "Current password is incorrect")
		return
	}
	record.admin.password = body.NewPassword
	writer.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayerLogin(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		CommanderID int64  `json:"commander_id"`
		Password    string `json:"password"`
	}
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	player := s.players[body.CommanderID]
	if player == nil || player.password != body.Password || player.account.Disabled {
		writeError(writer, http.StatusUnauthorized, "auth.invalid_credentials", "Invalid commander id or password")
		return
	}
	player.account.LastLoginAt = timestamp(time.Now())
	record := s.startSessionLocked(writer, nil, player)
	writeData(writer, console.PlayerLoginResponse{User: player.account, Session: record.auth()})
}

// principalLocked resolves the caller, preferring the admin session.
func (s *Server) principalLocked(request *http.Request) *sessionRecord {
	if record := s.sessionLocked(request, AdminCookie); record != nil {
		return record
	}
	return s.sessionLocked(request, PlayerCookie)
}

func (s *Server) handleMePermissions(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.principalLocked(request)
	switch {
	case record == nil:
		writeError(writer, http.StatusUnauthorized, "auth.unauthorized", "Authentication required")
	case record.admin != nil:
		writeData(writer, console.MePermissions{
			Roles:       append([]string{}, record.admin.roles...),
			Permissions: s.effectiveLocked(record.admin),
		})
	default:
		writeData(writer, console.MePermissions{
			Roles:       []string{"player"},
			Permissions: append([]console.PermissionEntry{}, s.playerPolicy...),
		})
	}
}

func (s *Server) handleMeCommander(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.principalLocked(request)
	if record == nil {
		writeError(writer, http.StatusUnauthorized, "auth.unauthorized", "Authentication required")
		return
	}
	var commanderID int64
	if record.admin != nil {
		commanderID = record.admin.commanderID
	} else {
		commanderID = record.player.account.CommanderID
	}
	commander := s.commanders[commanderID]
	if commander == nil {
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "No commander linked")
		return
	}
	writeData(writer, console.MeCommander{CommanderID: commander.ID, Name: commander.Name, Level: commander.Level})
}

// effectiveLocked merges an operator's role policies and applies its
// overrides: allow adds flags, deny removes them.
func (s *Server) effectiveLocked(admin *adminRecord) []console.PermissionEntry {
	merged := make(map[string]*console.PermissionEntry)
	entry := func(key string) *console.PermissionEntry {
		if merged[key] == nil {
			merged[key] = &console.PermissionEntry{Key: key}
		}
		return merged[key]
	}
	for _, role := range admin.roles {
		policy := s.roles[role]
		if policy == nil {
			continue
		}
		for _, grant := range policy.Permissions {
			target := entry(grant.Key)
			target.ReadSelf = target.ReadSelf || grant.ReadSelf
			target.ReadAny = target.ReadAny || grant.ReadAny
			target.WriteSelf = target.WriteSelf || grant.WriteSelf
			target.WriteAny = target.WriteAny || grant.WriteAny
		}
	}
	for _, override := range admin.overrides {
		target := entry(override.Key)
		switch override.Mode {
		case console.OverrideAllow:
			target.ReadSelf = target.ReadSelf || override.ReadSelf
			target.ReadAny = target.ReadAny || override.ReadAny
			target.WriteSelf = target.WriteSelf || override.WriteSelf
			target.WriteAny = target.WriteAny || override.WriteAny
		case console.OverrideDeny:
			target.ReadSelf = target.ReadSelf && !override.ReadSelf
			target.ReadAny = target.ReadAny && !override.ReadAny
			target.WriteSelf = target.WriteSelf && !override.WriteSelf
			target.WriteAny = target.WriteAny && !override.WriteAny
		}
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	permissions := make([]console.PermissionEntry, 0, len(keys))
	for _, key := range keys {
		permissions = append(permissions, *merged[key])
	}
	return permissions
}

// --- Admin users and authorization ---

func (s *Server) adminByIDLocked(id string) *adminRecord {
	for _, admin := range s.admins {
		if admin.user.ID == id {
			return admin
		}
	}
	return nil
}

func (s *Server) handleAdminUsers(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]console.AdminUser, 0, len(s.admins))
	for _, admin := range s.admins {
		users = append(users, admin.user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	writeData(writer, console.AdminUserList{Users: users, Meta: console.PaginationMeta{Total: len(users), Limit: len(users)}})
}

func (s *Server) handleAdminUserCreate(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	var body credentials
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.admins[body.Username]; exists {
		writeError(writer, http.StatusConflict, "admin.exists", "Username already taken")
		return
	}
	user := s.addAdminLocked(body.Username, body.Password, nil)
	writeData(writer, map[string]any{"user": user})
}

func (s *Server) handleRoles(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	roles := make([]console.RoleSummary, 0, len(s.roles))
	for name, policy := range s.roles {
		roles = append(roles, console.RoleSummary{Name: name, UpdatedAt: policy.UpdatedAt, UpdatedBy: policy.UpdatedBy})
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	writeData(writer, console.RoleList{Roles: roles})
}

func (s *Server) handlePermissionKeys(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	permissions := make([]console.PermissionSummary, 0, len(s.permissionKeys))
	for _, key := range s.permissionKeys {
		permissions = append(permissions, console.PermissionSummary{Key: key})
	}
	writeData(writer, console.PermissionList{Permissions: permissions})
}

func (s *Server) handleRolePolicy(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	policy := s.roles[request.PathValue("role")]
	if policy == nil {
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "Role not found")
		return
	}
	writeData(writer, policy)
}

func (s *Server) handleRolePolicyReplace(writer http.ResponseWriter, request *http.Request) {
	record := s.requireAdmin(writer, request)
	if record == nil {
		return
	}
	var body struct {
		Permissions []console.PermissionEntry `json:"permissions"`
	}
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	role := request.PathValue("role")
	policy := &console.RolePolicy{
		Role:          role,
		Permissions:   body.Permissions,
		AvailableKeys: append([]string(nil), s.permissionKeys...),
		UpdatedAt:     timestamp(time.Now()),
		UpdatedBy:     record.admin.user.Username,
	}
	s.roles[role] = policy
	writeData(writer, policy)
}

func (s *Server) handleAccountRoles(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	admin := s.adminByIDLocked(request.PathValue("id"))
	if admin == nil {
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "Account not found")
		return
	}
	writeData(writer, console.AccountRoles{AccountID: admin.user.ID, Roles: append([]string{}, admin.roles...)})
}

func (s *Server) handleAccountRolesReplace(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	var body struct {
		Roles []string `json:"roles"`
	}
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	admin := s.adminByIDLocked(request.PathValue("id"))
	if admin == nil {
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "Account not found")
		return
	}
	admin.roles = body.Roles
	writeData(writer, console.AccountRoles{AccountID: admin.user.ID, Roles: append([]string{}, admin.roles...)})
}

func (s *Server) handleAccountOverrides(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	admin := s.adminByIDLocked(request.PathValue("id"))
	if admin == nil {
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "Account not found")
		return
	}
	writeData(writer, console.AccountOverrides{AccountID: admin.user.ID, Overrides: append([]console.AccountOverride{}, admin.overrides...)})
}

func (s *Server) handleAccountOverridesReplace(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	var body struct {
		Overrides []console.AccountOverride `json:"overrides"`
	}
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	admin := s.adminByIDLocked(request.PathValue("id"))
	if admin == nil {
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "Account not found")
		return
	}
	admin.overrides = body.Overrides
	writeData(writer, console.AccountOverrides{AccountID: admin.user.ID, Overrides: append([]console.AccountOverride{}, admin.overrides...)})
}

func (s *Server) handlePlayerPolicy(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(writer, console.RolePolicy{
		Role:          "player",
		Permissions:   append([]console.PermissionEntry{}, s.playerPolicy...),
		AvailableKeys: append([]string(nil), s.permissionKeys...),
	})
}

func (s *Server) handlePlayerPolicyUpdate(writer http.ResponseWriter, request *http.Request) {
	record := s.requireAdmin(writer, request)
	if record == nil {
		return
	}
	var body struct {
		Permissions []console.PermissionEntry `json:"permissions"`
	}
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerPolicy = body.Permissions
	writeData(writer, console.RolePolicy{
		Role:        "player",
		Permissions: append([]console.PermissionEntry{}, s.playerPolicy...),
		UpdatedAt:   timestamp(time.Now()),
		UpdatedBy:   record.admin.user.Username,
	})
}

// --- Server, players, codes, notices ---

func (s *Server) handleServerStatus(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	online := 0
	for _, commander := range s.commanders {
		if commander.Online {
			online++
		}
	}
	writeData(writer, console.ServerStatus{Running: true, Accepting: !s.maintenance, ClientCount: online, UptimeSec: 3600, UptimeHuman: "1h"})
}

func (s *Server) handleMaintenance(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(writer, console.Maintenance{Enabled: s.maintenance})
}

func (s *Server) handleMaintenanceSet(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	var body console.Maintenance
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maintenance = body.Enabled
	writeData(writer, console.Maintenance{Enabled: s.maintenance})
}

func (commander *Commander) summary() console.PlayerSummary {
	return console.PlayerSummary{ID: commander.ID, Name: commander.Name, Level: commander.Level, Banned: commander.Banned, Online: commander.Online}
}

func (s *Server) handlePlayers(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	name := strings.ToLower(query.Get("name"))
	minLevel, _ := strconv.Atoi(query.Get("min_level"))

	s.mu.Lock()
	defer s.mu.Unlock()
	players := []console.PlayerSummary{}
	for _, commander := range s.commanders {
		if name != "" && !strings.Contains(strings.ToLower(commander.Name), name) {
			continue
		}
		if commander.Level < minLevel {
			continue
		}
		switch query.Get("filter") {
		case "banned":
			if !commander.Banned {
				continue
			}
		case "online":
			if !commander.Online {
				continue
			}
		}
		players = append(players, commander.summary())
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	total := len(players)
	offset, _ := strconv.Atoi(query.Get("offset"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset = min(max(offset, 0), total)
	end := total
	if limit > 0 {
		end = min(offset+limit, total)
	}
	writeData(writer, console.PlayerList{Players: players[offset:end], Meta: console.PaginationMeta{Offset: offset, Limit: limit, Total: total}})
}

func (s *Server) commanderLocked(writer http.ResponseWriter, request *http.Request) *Commander {
	id, ok := pathInt(writer, request, "id")
	if !ok {
		return nil
	}
	commander := s.commanders[id]
	if commander == nil {
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "Player not found")
	}
	return commander
}

func (s *Server) handlePlayer(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if commander := s.commanderLocked(writer, request); commander != nil {
		writeData(writer, console.PlayerDetail{PlayerSummary: commander.summary()})
	}
}

func (s *Server) handleBan(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	var body console.Ban
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if commander := s.commanderLocked(writer, request); commander != nil {
		commander.Banned = true
		commander.Online = false
		writer.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleUnban(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if commander := s.commanderLocked(writer, request); commander != nil {
		commander.Banned = false
		writer.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleKick(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if commander := s.commanderLocked(writer, request); commander != nil {
		disconnected := commander.Online
		commander.Online = false
		writeData(writer, console.KickResult{Disconnected: disconnected})
	}
}

func (s *Server) handleExchangeCodes(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := append([]console.ExchangeCode{}, s.exchangeCodes...)
	writeData(writer, console.ExchangeCodeList{Codes: codes, Meta: console.PaginationMeta{Total: len(codes), Limit: len(codes)}})
}

func (s *Server) handleExchangeCodeCreate(writer http.ResponseWriter, request *http.Request) {
	if s.requireAdmin(writer, request) == nil {
		return
	}
	var body console.ExchangeCode
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	body.ID = int64(len(s.exchangeCodes) + 1)
	s.exchangeCodes = append(s.exchangeCodes, body)
	writer.WriteHeader(http.StatusNoContent)
}

// AddNotice publishes a notice.
func (s *Server) AddNotice(notice console.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice)
}

// Maintenance reports the maintenance switch.
func (s *Server) Maintenance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maintenance
}

// Commander returns a copy of a commander's current state.
func (s *Server) Commander(id int64) (Commander, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	commander, ok := s.commanders[id]
	if !ok {
		return Commander{}, false
	}
	return *commander, true
}

func (s *Server) handleNotices(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notices := append([]console.Notice{}, s.notices...)
	writeData(writer, console.NoticeList{Notices: notices, Meta: console.PaginationMeta{Total: len(notices), Limit: len(notices)}})
}

// rpID is the relying party id: the host the console talks to.
func (s *Server) rpID() string {
	parsed, err := url.Parse(s.server.URL)
	if err != nil {
		return "localhost"
	}
	return parsed.Hostname()
}
