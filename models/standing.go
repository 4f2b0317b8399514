package models

import "time"

// ZoneStanding is one team's row in a zone table. Rows are recomputed from
// finalized matches, never adjusted incrementally.
type ZoneStanding struct {
	ID             int       `json:"id"`
	ZoneID         int       `json:"zone_id"`
	TeamID         int       `json:"team_id"`
	Played         int       `json:"played"`
	Wins           int       `json:"wins"`
	Draws          int       `json:"draws"`
	Losses         int       `json:"losses"`
	GoalsFor       int       `json:"goals_for"`
	GoalsAgainst   int       `json:"goals_against"`
	GoalDifference int       `json:"goal_difference"`
	Points         int       `json:"points"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TopScorer is an aggregated goals row per player per zone, derived from
// non-deleted goal incidents (own goals excluded).
type TopScorer struct {
	ZoneID   int `json:"zone_id"`
	PlayerID int `json:"player_id"`
	TeamID   int `json:"team_id"`
	Goals    int `json:"goals"`
}
