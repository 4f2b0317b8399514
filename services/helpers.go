package services

import (
	"errors"
	"fmt"

	"github.com/ligamaster/livematch/models"
	"github.com/ligamaster/livematch/repositories"
)

// Actor identifies who issues a command. Tokens are minted by the external
// auth service; we only care about identity and role here.
type Actor struct {
	UserID int
	Role   models.UserRole
}

// authorizeCommand enforces that only the assigned scorekeeper (or an
// administrator) drives a match.
func authorizeCommand(actor Actor, match *models.Match) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RolePlanillero && actor.UserID == match.ScorekeeperID {
		return nil
	}
	return ErrNotMatchScorekeeper
}

// allowedTransitions is the normal lifecycle. Suspension is handled apart: it
// is an administrative cut from any live state, not a step in the sequence.
var allowedTransitions = map[models.MatchState]models.MatchState{
	models.MatchStateScheduled:  models.MatchStateFirstHalf,
	models.MatchStateFirstHalf:  models.MatchStateHalftime,
	models.MatchStateHalftime:   models.MatchStateSecondHalf,
	models.MatchStateSecondHalf: models.MatchStateEnded,
	models.MatchStateEnded:      models.MatchStateFinalized,
}

func checkTransition(current, next models.MatchState) error {
	if allowedTransitions[current] != next {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}
	return nil
}

// translateMatchRepoError maps repository sentinels onto service ones so
// handlers only ever see the service catalogue.
func translateMatchRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrMatchVersionConflict):
		return ErrStaleSnapshot
	}
	return err
}

func checkExpectedVersion(match *models.Match, expected *int) error {
	if expected != nil && *expected != match.Version {
		return fmt.Errorf("%w: have version %d, command targeted %d",
			ErrStaleSnapshot, match.Version, *expected)
	}
	return nil
}
