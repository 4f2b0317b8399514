package models

import "time"

type MatchState string

const (
	MatchStateScheduled  MatchState = "scheduled"
	MatchStateFirstHalf  MatchState = "first_half"
	MatchStateHalftime   MatchState = "halftime"
	MatchStateSecondHalf MatchState = "second_half"
	MatchStateEnded      MatchState = "ended"
	MatchStateFinalized  MatchState = "finalized"
	MatchStateSuspended  MatchState = "suspended"
)

// Match is the authoritative lifecycle row for a fixture. All mutable fields
// change exclusively through MatchService commands; Version is bumped on every
// committed mutation and backs optimistic concurrency checks.
type Match struct {
	ID                int        `json:"id"`
	CategoryEditionID int        `json:"category_edition_id"`
	ZoneID            int        `json:"zone_id"`
	Matchday          int        `json:"matchday"`
	KickoffAt         time.Time  `json:"kickoff_at"`
	VenueID           *int       `json:"venue_id,omitempty"`
	HomeTeamID        int        `json:"home_team_id"`
	AwayTeamID        *int       `json:"away_team_id,omitempty"` // nil marks a walkover/bye
	ScorekeeperID     int        `json:"scorekeeper_id"`
	State             MatchState `json:"state"`
	FirstHalfStartAt  *time.Time `json:"first_half_start_at,omitempty"`
	FirstHalfEndAt    *time.Time `json:"first_half_end_at,omitempty"`
	SecondHalfStartAt *time.Time `json:"second_half_start_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	HalfDurationMin   int        `json:"half_duration_minutes"`
	HalftimeMin       int        `json:"halftime_duration_minutes"`
	GoalsHome         int        `json:"goals_home"`
	GoalsAway         int        `json:"goals_away"`
	MVPPlayerID       *int       `json:"mvp_player_id,omitempty"`
	SuspendedReason   *string    `json:"suspended_reason,omitempty"`
	SuspendedAt       *time.Time `json:"suspended_at,omitempty"`
	SuspendedBy       *int       `json:"suspended_by,omitempty"`
	Version           int        `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
}

// IsLive reports whether the playing clock can be running and the ledger is
// open for appends.
func (m *Match) IsLive() bool {
	switch m.State {
	case MatchStateFirstHalf, MatchStateHalftime, MatchStateSecondHalf:
		return true
	}
	return false
}

// IsWalkover reports a bye fixture: there is no rival, nothing is played and
// only finalization is meaningful.
func (m *Match) IsWalkover() bool {
	return m.AwayTeamID == nil
}
