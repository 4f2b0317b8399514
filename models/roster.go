package models

import "time"

// RosterEntry is one player's slot on a match-day squad. Entries are written
// by the roster screens before kickoff and consumed read-only by the ledger
// for eligibility checks; the only runtime insert is an eventual player added
// through the ledger, under the configured cap.
type RosterEntry struct {
	ID               int       `json:"id"`
	MatchID          int       `json:"match_id"`
	TeamID           int       `json:"team_id"`
	PlayerID         int       `json:"player_id"`
	Dorsal           int       `json:"dorsal"`
	Starter          bool      `json:"starter"`
	Captain          bool      `json:"captain"`
	Eventual         bool      `json:"eventual"`
	FeaturedEligible bool      `json:"featured_eligible"`
	CreatedAt        time.Time `json:"created_at"`
}
