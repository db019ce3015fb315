// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/belfast-foundation/belfast-console/cmd/belfast/cli"
	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/clock"
	"github.com/belfast-foundation/belfast-console/lib/config"
	"github.com/belfast-foundation/belfast-console/lib/permission"
	"github.com/belfast-foundation/belfast-console/lib/sealed"
	"github.com/belfast-foundation/belfast-console/lib/session"
	"github.com/belfast-foundation/belfast-console/lib/webauthn"
)

// Streams are the standard streams of one invocation.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// App holds what the commands of one invocation share: configuration,
// output, and the lazily built client, session store and permission
// cache.
type App struct {
	config   *config.Config
	streams  Streams
	out      *cli.Output
	logger   *slog.Logger
	prompter cli.Prompter
	clock    clock.Clock

	// httpClient replaces the default transport; tests point it at a
	// fake server.
	httpClient *http.Client

	store      *session.Store
	cache      *permission.Cache
	stopFollow func()
}

// NewApp prepares an App. Nothing touches the network until a command
// needs it.
func NewApp(cfg *config.Config, streams Streams) (*App, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return &App{
		config:   cfg,
		streams:  streams,
		out:      cli.NewOutput(streams.Out),
		logger:   cli.NewCommandLogger(streams.Err, level),
		prompter: cli.Prompter{In: streams.In, Err: streams.Err},
		clock:    clock.Real(),
	}, nil
}

// Close stops following the session and drops idle connections.
func (a *App) Close() {
	if a.stopFollow != nil {
		a.stopFollow()
	}
	if a.store != nil {
		a.store.Client().CloseIdleConnections()
	}
}

// connect builds the client, store and cache on first use. With
// restore, the saved admin session is loaded and checked against the
// server; a session the server no longer accepts is deleted.
func (a *App) connect(ctx context.Context, restore bool) (*session.Store, error) {
	if a.store == nil {
		if err := a.build(ctx); err != nil {
			return nil, err
		}
	}
	if !restore || a.store.IsAdminAuthenticated() {
		return a.store, nil
	}

	file, err := a.sessionFile()
	if err != nil {
		return nil, err
	}
	saved, err := file.Load()
	if errors.Is(err, cli.ErrNoSession) {
		return a.store, nil
	}
	if err != nil {
		a.logger.Warn("ignoring unreadable session file", "error", err)
		return a.store, nil
	}
	client := a.store.Client()
	if saved.BaseURL != client.BaseURL() {
		a.logger.Debug("saved session belongs to another server", "saved", saved.BaseURL, "current", client.BaseURL())
		return a.store, nil
	}

	client.SetCookies(saved.HTTPCookies())
	if err := a.store.RefreshSession(ctx); err != nil {
		return nil, err
	}
	if !a.store.IsAdminAuthenticated() {
		a.logger.Info("saved session has expired", "username", saved.Username)
		client.ClearCookies()
		if err := file.Remove(); err != nil {
			a.logger.Warn("removing expired session", "error", err)
		}
	}
	return a.store, nil
}

func (a *App) build(ctx context.Context) error {
	timeout, err := a.config.RequestTimeout()
	if err != nil {
		return cli.Validation("%w", err)
	}
	client, err := console.NewClient(console.ClientConfig{
		BaseURL:    a.config.API.BaseURL,
		HTTPClient: a.httpClient,
		Timeout:    timeout,
		Retries:    a.config.API.Retries,
		Clock:      a.clock,
		Logger:     a.logger,
	})
	if err != nil {
		return cli.Validation("%w", err)
	}

	var authenticator webauthn.Authenticator
	if len(a.config.Passkey.HelperCommand) > 0 {
		authenticator = &webauthn.CommandAuthenticator{
			Argv:   a.config.Passkey.HelperCommand,
			Origin: client.Origin(),
			Logger: a.logger,
		}
	}
	store, err := session.New(session.Config{Client: client, Authenticator: authenticator, Logger: a.logger})
	if err != nil {
		return cli.Internal("%w", err)
	}
	cache, err := permission.New(permission.Config{Source: client, Clock: a.clock, Logger: a.logger})
	if err != nil {
		return cli.Internal("%w", err)
	}
	a.store = store
	a.cache = cache
	a.stopFollow = cache.Follow(ctx, store)
	return nil
}

// requireAdmin connects with the saved session and fails unless an
// operator is signed in.
func (a *App) requireAdmin(ctx context.Context) (*session.Store, error) {
	store, err := a.connect(ctx, true)
	if err != nil {
		return nil, err
	}
	if !store.IsAdminAuthenticated() {
		return nil, cli.Forbidden("not signed in").WithHint("Run 'belfast login' to sign in.")
	}
	return store, nil
}

// authorize signs in from the saved session and checks op on key
// against the loaded permission table.
func (a *App) authorize(ctx context.Context, key string, op permission.Op) (*session.Store, error) {
	store, err := a.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.cache.Require(key, op); err != nil {
		return nil, err
	}
	return store, nil
}

// permissions returns the loaded permission table. A table dropped
// mid-fetch by a sign-out is reported as transient.
func (a *App) permissions() (*permission.Snapshot, error) {
	if snapshot := a.cache.Snapshot(); snapshot != nil {
		return snapshot, nil
	}
	if err := a.cache.Err(); err != nil {
		return nil, err
	}
	return nil, cli.Transient("permissions not loaded").WithHint("Run the command again.")
}

// authorizeTarget checks access on key for a specific commander,
// honouring "self" grants for the operator's linked commander.
func (a *App) authorizeTarget(ctx context.Context, key string, access permission.Access, target int64) (*session.Store, error) {
	store, err := a.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	snapshot, err := a.permissions()
	if err != nil {
		return nil, err
	}
	if snapshot.Can(key, access.Any()) {
		return store, nil
	}
	self, err := store.SelfCommanderID(ctx)
	if err != nil && !console.IsNotFound(err) {
		return nil, err
	}
	if err := snapshot.RequireActOn(key, access, self, target); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *App) sessionFile() (cli.SessionFile, error) {
	file := cli.SessionFile{Path: cli.SessionFilePath(a.config.Session.File)}
	if a.config.Session.AgeIdentityFile != "" {
		identity, err := sealed.LoadIdentity(a.config.Session.AgeIdentityFile)
		if err != nil {
			return file, cli.Internal("loading session identity: %w", err).
				WithHint("Run 'belfast session keygen' to create it, or unset session.age_identity_file.")
		}
		file.Identity = identity
	}
	return file, nil
}

// persist saves the admin session so later invocations reuse it.
func (a *App) persist(username string) error {
	file, err := a.sessionFile()
	if err != nil {
		return err
	}
	client := a.store.Client()
	saved := cli.NewSavedSession(client.BaseURL(), username, client.Cookies(), a.clock.Now())
	if err := file.Save(saved); err != nil {
		return cli.Internal("%w", err)
	}
	a.logger.Debug("session saved", "path", file.Path, "sealed", file.Identity != nil)
	return nil
}

// forget deletes the saved session. Removing needs no identity.
func (a *App) forget() error {
	file := cli.SessionFile{Path: cli.SessionFilePath(a.config.Session.File)}
	if err := file.Remove(); err != nil {
		return cli.Internal("%w", err)
	}
	return nil
}
