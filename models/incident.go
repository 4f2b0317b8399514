package models

import "time"

type IncidentType string

const (
	IncidentTypeGoal           IncidentType = "goal"
	IncidentTypeAssist         IncidentType = "assist"
	IncidentTypeYellowCard     IncidentType = "yellow_card"
	IncidentTypeRedCard        IncidentType = "red_card"
	IncidentTypeSubstitution   IncidentType = "substitution"
	IncidentTypeEventualPlayer IncidentType = "eventual_player"
)

// Incident is one entry of a match's append-biased ledger. Rows are never
// physically purged: DeletedAt marks a tombstone and every aggregate (cached
// score, roster availability) is derived by folding over non-tombstoned rows.
type Incident struct {
	ID       int          `json:"id"`
	MatchID  int          `json:"match_id"`
	TeamID   int          `json:"team_id"`
	PlayerID int          `json:"player_id"`
	Type     IncidentType `json:"type"`
	Half     int          `json:"half"`   // 1 or 2
	Minute   int          `json:"minute"` // may exceed regulation on added time

	// Type-specific payload. Goals use IsPenalty/IsOwnGoal, assists point at
	// their goal, substitutions carry the dorsal slot they vacate/fill.
	IsPenalty     bool `json:"is_penalty,omitempty"`
	IsOwnGoal     bool `json:"is_own_goal,omitempty"`
	RelatedGoalID *int `json:"related_goal_id,omitempty"`
	DorsalRemoved *int `json:"dorsal_removed,omitempty"`
	DorsalAdded   *int `json:"dorsal_added,omitempty"`

	CreatedBy int        `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (i *Incident) Deleted() bool {
	return i.DeletedAt != nil
}
