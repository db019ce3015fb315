// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"github.com/belfast-foundation/belfast-console/console"
)

// Kind discriminates a Principal.
type Kind int

const (
	// None is the anonymous principal.
	None Kind = iota
	// Admin holds only an operator session.
	Admin
	// Player holds only a player session.
	Player
	// Both holds an operator session and a player session at once.
	Both
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Admin:
		return "admin"
	case Player:
		return "player"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// AdminSession is an authenticated operator.
type AdminSession struct {
	User      console.AdminUser
	Session   console.AuthSession
	CSRFToken string
}

// PlayerSession is an authenticated player account.
type PlayerSession struct {
	User    console.UserAccount
	Session console.AuthSession
}

// Principal is who the console currently acts as. It is a value; the
// zero Principal is None. Switch on Kind and read the matching
// accessor:
//
//	switch principal.Kind() {
//	case session.None:
//	case session.Admin, session.Both:
//		admin, _ := principal.Admin()
//	case session.Player:
//		player, _ := principal.Player()
//	}
type Principal struct {
	admin  *AdminSession
	player *PlayerSession
}

func newPrincipal(admin *AdminSession, player *PlayerSession) Principal {
	var principal Principal
	if admin != nil {
		copied := *admin
		principal.admin = &copied
	}
	if player != nil {
		copied := *player
		principal.player = &copied
	}
	return principal
}

// Kind reports which sessions the principal holds.
func (p Principal) Kind() Kind {
	switch {
	case p.admin != nil && p.player != nil:
		return Both
	case p.admin != nil:
		return Admin
	case p.player != nil:
		return Player
	default:
		return None
	}
}

// Authenticated is true unless the principal is None.
func (p Principal) Authenticated() bool { return p.Kind() != None }

// Admin returns the operator session, if held.
func (p Principal) Admin() (AdminSession, bool) {
	if p.admin == nil {
		return AdminSession{}, false
	}
	return *p.admin, true
}

// Player returns the player session, if held.
func (p Principal) Player() (PlayerSession, bool) {
	if p.player == nil {
		return PlayerSession{}, false
	}
	return *p.player, true
}

// Identity is a stable string naming the sessions held. Two principals
// with equal identities would be granted the same permission table.
func (p Principal) Identity() string {
	identity := p.Kind().String()
	if p.admin != nil {
		identity += ":admin=" + p.admin.Session.ID
	}
	if p.player != nil {
		identity += ":player=" + p.player.Session.ID
	}
	return identity
}

// Transition is published after every change of principal.
type Transition struct {
	Previous Principal
	Current  Principal
}

// Changed reports whether the transition altered which sessions are
// held. A session refresh that returns the same session is not a
// change.
func (t Transition) Changed() bool {
	return t.Previous.Identity() != t.Current.Identity()
}
