package services

import (
	"github.com/ligamaster/livematch/clock"
	"github.com/ligamaster/livematch/live"
	"github.com/ligamaster/livematch/models"
)

// MatchSnapshot is the full current picture of a match: what a client gets
// on subscribe (or cold-load) before switching to deltas. Seq is the last
// sequence number folded into this snapshot; deltas with a lower or equal
// seq are already reflected and must be skipped by the client.
type MatchSnapshot struct {
	Match     *models.Match      `json:"match"`
	Clock     clock.Reading      `json:"clock"`
	Incidents []*models.Incident `json:"incidents"`
	Seq       uint64             `json:"seq"`
}

// LiveBroadcaster is what the services need from the live hub.
type LiveBroadcaster interface {
	Publish(matchID int, typ live.EventType, payload interface{}) uint64
	CurrentSeq(matchID int) uint64
	CloseRoom(matchID int)
}

// Delta payloads. Every payload carries the match version (and cached score
// where it may have moved) so clients can re-render without a round trip.

type StateChangedPayload struct {
	Match *models.Match `json:"match"`
	Clock clock.Reading `json:"clock"`
}

type IncidentAppendedPayload struct {
	Incident  *models.Incident `json:"incident"`
	GoalsHome int              `json:"goals_home"`
	GoalsAway int              `json:"goals_away"`
	Version   int              `json:"version"`
}

type IncidentEditedPayload struct {
	Incident  *models.Incident `json:"incident"`
	GoalsHome int              `json:"goals_home"`
	GoalsAway int              `json:"goals_away"`
	Version   int              `json:"version"`
}

type IncidentDeletedPayload struct {
	IncidentID        int   `json:"incident_id"`
	CascadedAssistIDs []int `json:"cascaded_assist_ids,omitempty"`
	GoalsHome         int   `json:"goals_home"`
	GoalsAway         int   `json:"goals_away"`
	Version           int   `json:"version"`
}

type MVPChangedPayload struct {
	MVPPlayerID *int `json:"mvp_player_id"`
	Version     int  `json:"version"`
}
