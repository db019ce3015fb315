// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package apitest

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/belfast-foundation/belfast-console/console"
)

type challengeRecord struct {
	id          string
	commanderID int64
	password    string
	pin         string
	status      console.ChallengeStatus
	expiresAt   time.Time
}

// ChallengeTTL is how long a fresh challenge stays pending.
const ChallengeTTL = 5 * time.Minute

// PIN returns the PIN delivered in-game for a challenge, as the player
// would read it.
func (s *Server) PIN(challengeID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record := s.challenges[challengeID]; record != nil {
		return "B-" + record.pin
	}
	return ""
}

// EchoPIN makes challenge creation return the PIN in its response, as
// development servers do.
func (s *Server) EchoPIN(echo bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.echoPIN = echo
}

// ChallengeIDs lists every challenge created so far.
func (s *Server) ChallengeIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.challenges))
	for id := range s.challenges {
		ids = append(ids, id)
	}
	return ids
}

// ConfirmInGame consumes a pending challenge as if the player had
// confirmed it from inside the game, creating the account.
func (s *Server) ConfirmInGame(challengeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.challenges[challengeID]
	if record == nil || record.status != console.ChallengePending {
		return
	}
	s.consumeLocked(record)
}

// ExpireChallenge moves a pending challenge to expired.
func (s *Server) ExpireChallenge(challengeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record := s.challenges[challengeID]; record != nil && record.status == console.ChallengePending {
		record.status = console.ChallengeExpired
	}
}

// DeleteChallenge forgets a challenge, as a server restart would.
func (s *Server) DeleteChallenge(challengeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, challengeID)
}

func (s *Server) consumeLocked(record *challengeRecord) {
	record.status = console.ChallengeConsumed
	s.addPlayerLocked(record.commanderID, record.password)
}

func (s *Server) pendingChallengeLocked(commanderID int64) *challengeRecord {
	for _, record := range s.challenges {
		if record.commanderID == commanderID && record.status == console.ChallengePending {
			return record
		}
	}
	return nil
}

func (s *Server) handleChallengeCreate(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		CommanderID int64  `json:"commander_id"`
		Password    string `json:"password"`
	}
	if !readJSON(writer, request, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case body.CommanderID <= 0 || body.Password == "":
		writeError(writer, http.StatusBadRequest, "bad_request", "commander_id and password are required")
		return
	case s.commanders[body.CommanderID] == nil:
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "Commander not found")
		return
	case s.players[body.CommanderID] != nil:
		writeError(writer, http.StatusConflict, console.CodeAccountExists, "Account already exists")
		return
	case s.pendingChallengeLocked(body.CommanderID) != nil:
		writeError(writer, http.StatusConflict, console.CodeChallengeExists, "Challenge already exists")
		return
	}

	record := &challengeRecord{
		id:          s.newIDLocked("challenge"),
		commanderID: body.CommanderID,
		password:    body.Password,
		status:      console.ChallengePending,
		expiresAt:   time.Now().Add(ChallengeTTL),
	}
	record.pin = fmt.Sprintf("%06d", (s.nextID*7919)%1000000)
	s.challenges[record.id] = record
	response := console.RegistrationChallenge{ChallengeID: record.id, ExpiresAt: timestamp(record.expiresAt)}
	if s.echoPIN {
		response.PIN = record.pin
	}
	writeData(writer, response)
}

func (s *Server) handleChallengeStatus(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.challenges[request.PathValue("id")]
	if record == nil {
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "Challenge not found")
		return
	}
	writeData(writer, console.RegistrationStatus{Status: record.status})
}

func (s *Server) handleChallengeVerify(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		PIN string `json:"pin"`
	}
	if !readJSON(writer, request, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.challenges[request.PathValue("id")]
	switch {
	case record == nil:
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "Challenge not found")
	case record.status == console.ChallengeExpired:
		writeError(writer, http.StatusGone, console.CodeChallengeExpired, "Challenge expired")
	case record.status == console.ChallengeConsumed:
		writeError(writer, http.StatusConflict, console.CodeChallengeConsumed, "Challenge already consumed")
	case s.players[record.commanderID] != nil:
		writeError(writer, http.StatusConflict, console.CodeAccountExists, "Account already exists")
	case strings.TrimPrefix(body.PIN, "B-") != record.pin:
		writeError(writer, http.StatusBadRequest, console.CodeChallengeInvalid, "Invalid PIN")
	default:
		s.consumeLocked(record)
		writeData(writer, console.RegistrationStatus{Status: record.status})
	}
}
