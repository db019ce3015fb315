// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/belfast-foundation/belfast-console/lib/sealed"
	"github.com/belfast-foundation/belfast-console/lib/secret"
)

// ErrNoSession is returned by SessionFile.Load when nothing is saved.
var ErrNoSession = errors.New("no saved session")

// SavedSession is the admin session kept between invocations: the
// cookie jar for the API plus enough context to tell the user what it
// belongs to. Player sessions are never saved.
type SavedSession struct {
	BaseURL  string        `json:"base_url"`
	Username string        `json:"username"`
	Cookies  []SavedCookie `json:"cookies"`
	SavedAt  time.Time     `json:"saved_at"`
}

// SavedCookie is a cookie the API set.
type SavedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewSavedSession captures cookies for baseURL.
func NewSavedSession(baseURL, username string, cookies []*http.Cookie, now time.Time) *SavedSession {
	saved := &SavedSession{BaseURL: baseURL, Username: username, SavedAt: now.UTC()}
	for _, cookie := range cookies {
		saved.Cookies = append(saved.Cookies, SavedCookie{Name: cookie.Name, Value: cookie.Value})
	}
	return saved
}

// HTTPCookies returns the cookies ready for a client's jar.
func (s *SavedSession) HTTPCookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(s.Cookies))
	for _, cookie := range s.Cookies {
		cookies = append(cookies, &http.Cookie{Name: cookie.Name, Value: cookie.Value, Path: "/"})
	}
	return cookies
}

// SessionFilePath returns $BELFAST_SESSION_FILE when set, otherwise
// configured.
func SessionFilePath(configured string) string {
	if path := os.Getenv("BELFAST_SESSION_FILE"); path != "" {
		return path
	}
	return configured
}

// SessionFile reads and writes a SavedSession. With an Identity the
// file is age-encrypted to it; a plaintext file is still readable so
// turning sealing on does not lose the current session.
type SessionFile struct {
	Path     string
	Identity *sealed.Identity
}

// Load reads the saved session. It returns ErrNoSession when the file
// does not exist.
func (f SessionFile) Load() (*SavedSession, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("reading session file %s: %w", f.Path, err)
	}
	defer secret.Zero(data)

	plaintext := data
	if sealed.IsSealed(data) {
		if f.Identity == nil {
			return nil, fmt.Errorf("session file %s is sealed but no age identity is configured", f.Path)
		}
		opened, err := f.Identity.Open(data)
		if err != nil {
			return nil, fmt.Errorf("opening session file %s: %w", f.Path, err)
		}
		defer opened.Close()
		plaintext = opened.Bytes()
	}

	var saved SavedSession
	if err := json.Unmarshal(plaintext, &saved); err != nil {
		return nil, fmt.Errorf("parsing session file %s: %w", f.Path, err)
	}
	if saved.BaseURL == "" || len(saved.Cookies) == 0 {
		return nil, fmt.Errorf("session file %s has no base_url or cookies", f.Path)
	}
	return &saved, nil
}

// Save writes the session with mode 0600, creating the directory with
// mode 0700. The write goes through a temporary file and a rename, so
// a crash never leaves a truncated session.
func (f SessionFile) Save(saved *SavedSession) error {
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	data = append(data, '\n')
	defer secret.Zero(data)

	contents := data
	if f.Identity != nil {
		if contents, err = f.Identity.SealTo(data); err != nil {
			return fmt.Errorf("sealing session: %w", err)
		}
	}

	directory := filepath.Dir(f.Path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", directory, err)
	}
	temporary, err := os.CreateTemp(directory, ".session-*")
	if err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	defer os.Remove(temporary.Name())
	if err := temporary.Chmod(0o600); err != nil {
		temporary.Close()
		return fmt.Errorf("writing session file: %w", err)
	}
	if _, err := temporary.Write(contents); err != nil {
		temporary.Close()
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := os.Rename(temporary.Name(), f.Path); err != nil {
		return fmt.Errorf("writing session file %s: %w", f.Path, err)
	}
	return nil
}

// Remove deletes the saved session. A missing file is not an error.
func (f SessionFile) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file %s: %w", f.Path, err)
	}
	return nil
}
