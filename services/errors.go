package services

import "errors"

// Shared sentinel errors, grouped by rejection kind for the HTTP mapping.
var (
	// Not found
	ErrMatchNotFound    = errors.New("match not found")
	ErrIncidentNotFound = errors.New("incident not found")

	// Invalid lifecycle transitions
	ErrInvalidTransition = errors.New("command not legal from current match state")
	ErrWalkoverMatch     = errors.New("walkover match cannot be played")

	// Authorization
	ErrNotMatchScorekeeper = errors.New("actor is not the assigned scorekeeper for this match")

	// Roster violations
	ErrPlayerNotOnRoster        = errors.New("player is not on the match roster")
	ErrPlayerAlreadySentOff     = errors.New("player has already been sent off in this match")
	ErrEventualPlayerCapReached = errors.New("eventual player limit reached for this team")
	ErrPlayerAlreadyOnRoster    = errors.New("player is already on the match roster")
	ErrDorsalAlreadyTaken       = errors.New("dorsal is already taken on the match roster")
	ErrMVPPlayerNotEligible     = errors.New("mvp player did not participate in this match")

	// Ledger consistency violations
	ErrIncidentNotAllowedInState = errors.New("ledger is closed for this incident in the current state")
	ErrIncidentAlreadyDeleted    = errors.New("incident is already deleted")
	ErrHalfAlreadyClosed         = errors.New("incident minute is frozen: its half has ended")
	ErrMinuteOutsideHalf         = errors.New("minute is outside the half the incident was recorded in")
	ErrAssistGoalRequired        = errors.New("assist must reference a goal")
	ErrAssistGoalInvalid         = errors.New("assist goal does not belong to this match and team")
	ErrAssistGoalDeleted         = errors.New("assist cannot reference a deleted goal")
	ErrSubstitutionDorsals       = errors.New("substitution must carry the dorsal it vacates and fills")
	ErrEventualDorsalRequired    = errors.New("eventual player must carry the dorsal they will wear")
	ErrEditNotApplicable         = errors.New("edited field does not apply to this incident type")
	ErrMVPNotAllowedInState      = errors.New("mvp can only be selected while the match is live or ended")
	ErrLedgerLocked              = errors.New("ledger is permanently locked: match is finalized")
	ErrSuspendReasonRequired     = errors.New("suspension requires a reason")

	// Optimistic concurrency
	ErrStaleSnapshot = errors.New("match state has been superseded, refetch and retry")
)
