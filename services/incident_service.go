package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/ligamaster/livematch/clock"
	"github.com/ligamaster/livematch/live"
	"github.com/ligamaster/livematch/models"
	"github.com/ligamaster/livematch/repositories"
)

// LedgerConfig carries the product knobs the ledger enforces.
type LedgerConfig struct {
	// EventualPlayerCap limits how many eventual players a team may add to
	// one match-day roster through the ledger.
	EventualPlayerCap int
}

type AppendIncidentRequest struct {
	Type     models.IncidentType `json:"type"`
	TeamID   int                 `json:"team_id"`
	PlayerID int                 `json:"player_id"`
	// Minute is advisory: it is accepted when it back-dates within the open
	// half, otherwise the clock engine's current value wins.
	Minute        *int `json:"minute,omitempty"`
	IsPenalty     bool `json:"is_penalty,omitempty"`
	IsOwnGoal     bool `json:"is_own_goal,omitempty"`
	RelatedGoalID *int `json:"related_goal_id,omitempty"`
	DorsalRemoved *int `json:"dorsal_removed,omitempty"`
	DorsalAdded   *int `json:"dorsal_added,omitempty"`
}

type EditIncidentRequest struct {
	Minute          *int  `json:"minute,omitempty"`
	IsPenalty       *bool `json:"is_penalty,omitempty"`
	IsOwnGoal       *bool `json:"is_own_goal,omitempty"`
	DorsalRemoved   *int  `json:"dorsal_removed,omitempty"`
	DorsalAdded     *int  `json:"dorsal_added,omitempty"`
	ExpectedVersion *int  `json:"expected_version,omitempty"`
}

type IncidentService interface {
	AppendIncident(ctx context.Context, matchID int, actor Actor, req AppendIncidentRequest) (*models.Incident, error)
	EditIncident(ctx context.Context, matchID, incidentID int, actor Actor, req EditIncidentRequest) (*models.Incident, error)
	DeleteIncident(ctx context.Context, matchID, incidentID int, actor Actor) error
	SelectMVP(ctx context.Context, matchID int, actor Actor, playerID int) (*models.Match, error)
}

type incidentService struct {
	tx           repositories.TxRunner
	matchRepo    repositories.MatchRepository
	incidentRepo repositories.IncidentRepository
	rosterRepo   repositories.RosterRepository
	hub          LiveBroadcaster
	clock        clockwork.Clock
	locks        *matchLocks
	cfg          LedgerConfig
	logger       *slog.Logger
}

func NewIncidentService(
	tx repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	incidentRepo repositories.IncidentRepository,
	rosterRepo repositories.RosterRepository,
	hub LiveBroadcaster,
	clk clockwork.Clock,
	locks *matchLocks,
	cfg LedgerConfig,
	logger *slog.Logger,
) IncidentService {
	return &incidentService{
		tx:           tx,
		matchRepo:    matchRepo,
		incidentRepo: incidentRepo,
		rosterRepo:   rosterRepo,
		hub:          hub,
		clock:        clk,
		locks:        locks,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *incidentService) AppendIncident(ctx context.Context, matchID int, actor Actor, req AppendIncidentRequest) (*models.Incident, error) {
	unlock := s.locks.acquire(matchID)
	defer unlock()

	var (
		match    *models.Match
		incident *models.Incident
	)
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return translateMatchRepoError(err)
		}
		if err := authorizeCommand(actor, match); err != nil {
			return err
		}
		if !match.IsLive() {
			if match.State == models.MatchStateFinalized {
				return ErrLedgerLocked
			}
			return ErrIncidentNotAllowedInState
		}

		now := s.clock.Now()
		half, authoritativeMinute, _ := clock.MatchMinute(match, now)
		minute := resolveMinute(req.Minute, half, authoritativeMinute, match.HalfDurationMin)

		incident = &models.Incident{
			MatchID:       matchID,
			TeamID:        req.TeamID,
			PlayerID:      req.PlayerID,
			Type:          req.Type,
			Half:          half,
			Minute:        minute,
			IsPenalty:     req.IsPenalty,
			IsOwnGoal:     req.IsOwnGoal,
			RelatedGoalID: req.RelatedGoalID,
			DorsalRemoved: req.DorsalRemoved,
			DorsalAdded:   req.DorsalAdded,
			CreatedBy:     actor.UserID,
		}

		switch req.Type {
		case models.IncidentTypeEventualPlayer:
			if err := s.validateEventualPlayer(ctx, exec, match, incident); err != nil {
				return err
			}
		case models.IncidentTypeGoal, models.IncidentTypeAssist, models.IncidentTypeYellowCard,
			models.IncidentTypeRedCard, models.IncidentTypeSubstitution:
			if err := s.validateRosterEntry(ctx, exec, match, incident); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown incident type %q", ErrIncidentNotAllowedInState, req.Type)
		}

		if err := s.validatePayload(ctx, exec, match, incident); err != nil {
			return err
		}

		if err := s.incidentRepo.Create(ctx, exec, incident); err != nil {
			return err
		}

		if incident.Type == models.IncidentTypeGoal {
			creditGoal(match, incident, 1)
		}
		// Every committed append bumps the match version, score change or not.
		return translateMatchRepoError(s.matchRepo.Update(ctx, exec, match))
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(matchID, live.EventIncidentAppended, IncidentAppendedPayload{
		Incident:  incident,
		GoalsHome: match.GoalsHome,
		GoalsAway: match.GoalsAway,
		Version:   match.Version,
	})
	return incident, nil
}

func (s *incidentService) EditIncident(ctx context.Context, matchID, incidentID int, actor Actor, req EditIncidentRequest) (*models.Incident, error) {
	unlock := s.locks.acquire(matchID)
	defer unlock()

	var (
		match    *models.Match
		incident *models.Incident
	)
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return translateMatchRepoError(err)
		}
		if err := authorizeCommand(actor, match); err != nil {
			return err
		}
		if match.State == models.MatchStateFinalized {
			return ErrLedgerLocked
		}
		if err := checkExpectedVersion(match, req.ExpectedVersion); err != nil {
			return err
		}

		incident, err = s.getMatchIncident(ctx, exec, matchID, incidentID)
		if err != nil {
			return err
		}
		if incident.Deleted() {
			return ErrIncidentAlreadyDeleted
		}
		if !clock.HalfOpen(match, incident.Half) {
			return ErrHalfAlreadyClosed
		}

		scoreMayMove := false
		if req.Minute != nil {
			_, authoritativeMinute, _ := clock.MatchMinute(match, s.clock.Now())
			if err := checkEditedMinute(*req.Minute, incident.Half, authoritativeMinute, match.HalfDurationMin); err != nil {
				return err
			}
			incident.Minute = *req.Minute
		}
		if req.IsPenalty != nil {
			if incident.Type != models.IncidentTypeGoal {
				return fmt.Errorf("%w: is_penalty on %s", ErrEditNotApplicable, incident.Type)
			}
			incident.IsPenalty = *req.IsPenalty
		}
		if req.IsOwnGoal != nil {
			if incident.Type != models.IncidentTypeGoal {
				return fmt.Errorf("%w: is_own_goal on %s", ErrEditNotApplicable, incident.Type)
			}
			scoreMayMove = incident.IsOwnGoal != *req.IsOwnGoal
			incident.IsOwnGoal = *req.IsOwnGoal
		}
		if req.DorsalRemoved != nil || req.DorsalAdded != nil {
			if incident.Type != models.IncidentTypeSubstitution {
				return fmt.Errorf("%w: dorsal change on %s", ErrEditNotApplicable, incident.Type)
			}
			if req.DorsalRemoved != nil {
				incident.DorsalRemoved = req.DorsalRemoved
			}
			if req.DorsalAdded != nil {
				incident.DorsalAdded = req.DorsalAdded
			}
		}

		if err := s.incidentRepo.Update(ctx, exec, incident); err != nil {
			return translateIncidentRepoError(err)
		}

		if scoreMayMove {
			return s.recountAndStore(ctx, exec, match)
		}
		// Bump the version anyway: the ledger changed.
		return translateMatchRepoError(s.matchRepo.Update(ctx, exec, match))
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(matchID, live.EventIncidentEdited, IncidentEditedPayload{
		Incident:  incident,
		GoalsHome: match.GoalsHome,
		GoalsAway: match.GoalsAway,
		Version:   match.Version,
	})
	return incident, nil
}

func (s *incidentService) DeleteIncident(ctx context.Context, matchID, incidentID int, actor Actor) error {
	unlock := s.locks.acquire(matchID)
	defer unlock()

	var (
		match      *models.Match
		cascadeIDs []int
	)
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return translateMatchRepoError(err)
		}
		if err := authorizeCommand(actor, match); err != nil {
			return err
		}
		if match.State == models.MatchStateFinalized {
			return ErrLedgerLocked
		}
		if !match.IsLive() {
			return ErrIncidentNotAllowedInState
		}

		incident, err := s.getMatchIncident(ctx, exec, matchID, incidentID)
		if err != nil {
			return err
		}
		if incident.Deleted() {
			return ErrIncidentAlreadyDeleted
		}

		now := s.clock.Now().UTC()
		if err := s.incidentRepo.SoftDelete(ctx, exec, incidentID, now); err != nil {
			return translateIncidentRepoError(err)
		}

		if incident.Type == models.IncidentTypeGoal {
			// Orphaned assists fall with their goal, and the cached score is
			// re-derived from what remains, all in this same transaction.
			cascadeIDs, err = s.incidentRepo.SoftDeleteAssistsOfGoal(ctx, exec, incidentID, now)
			if err != nil {
				return err
			}
			return s.recountAndStore(ctx, exec, match)
		}
		return translateMatchRepoError(s.matchRepo.Update(ctx, exec, match))
	})
	if err != nil {
		return err
	}

	s.hub.Publish(matchID, live.EventIncidentDeleted, IncidentDeletedPayload{
		IncidentID:        incidentID,
		CascadedAssistIDs: cascadeIDs,
		GoalsHome:         match.GoalsHome,
		GoalsAway:         match.GoalsAway,
		Version:           match.Version,
	})
	return nil
}

func (s *incidentService) SelectMVP(ctx context.Context, matchID int, actor Actor, playerID int) (*models.Match, error) {
	unlock := s.locks.acquire(matchID)
	defer unlock()

	var match *models.Match
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return translateMatchRepoError(err)
		}
		if err := authorizeCommand(actor, match); err != nil {
			return err
		}
		if !match.IsLive() && match.State != models.MatchStateEnded {
			return ErrMVPNotAllowedInState
		}

		entry, err := s.rosterRepo.GetByPlayer(ctx, exec, matchID, playerID)
		if err != nil {
			if errors.Is(err, repositories.ErrRosterEntryNotFound) {
				return ErrPlayerNotOnRoster
			}
			return err
		}
		participated, err := s.playerParticipated(ctx, exec, matchID, entry)
		if err != nil {
			return err
		}
		if !participated {
			return ErrMVPPlayerNotEligible
		}

		// Exactly one active MVP: re-selection replaces.
		match.MVPPlayerID = &playerID
		return translateMatchRepoError(s.matchRepo.Update(ctx, exec, match))
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(matchID, live.EventMVPChanged, MVPChangedPayload{
		MVPPlayerID: match.MVPPlayerID,
		Version:     match.Version,
	})
	return match, nil
}

// validateRosterEntry checks the credited player may appear in this match for
// this team, eventual players included, sent-off players excluded.
func (s *incidentService) validateRosterEntry(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, incident *models.Incident) error {
	if _, err := s.rosterRepo.GetEntry(ctx, exec, match.ID, incident.TeamID, incident.PlayerID); err != nil {
		if errors.Is(err, repositories.ErrRosterEntryNotFound) {
			return ErrPlayerNotOnRoster
		}
		return err
	}
	sentOff, err := s.incidentRepo.HasRedCard(ctx, exec, match.ID, incident.PlayerID)
	if err != nil {
		return err
	}
	if sentOff {
		return ErrPlayerAlreadySentOff
	}
	return nil
}

func (s *incidentService) validateEventualPlayer(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, incident *models.Incident) error {
	if incident.DorsalAdded == nil {
		return ErrEventualDorsalRequired
	}
	if _, err := s.rosterRepo.GetEntry(ctx, exec, match.ID, incident.TeamID, incident.PlayerID); err == nil {
		return ErrPlayerAlreadyOnRoster
	} else if !errors.Is(err, repositories.ErrRosterEntryNotFound) {
		return err
	}
	count, err := s.incidentRepo.CountEventualPlayers(ctx, exec, match.ID, incident.TeamID)
	if err != nil {
		return err
	}
	if count >= s.cfg.EventualPlayerCap {
		return fmt.Errorf("%w: cap is %d", ErrEventualPlayerCapReached, s.cfg.EventualPlayerCap)
	}

	entry := &models.RosterEntry{
		MatchID:  match.ID,
		TeamID:   incident.TeamID,
		PlayerID: incident.PlayerID,
		Dorsal:   *incident.DorsalAdded,
	}
	if err := s.rosterRepo.CreateEventual(ctx, exec, entry); err != nil {
		switch {
		case errors.Is(err, repositories.ErrRosterEntryConflict):
			return ErrPlayerAlreadyOnRoster
		case errors.Is(err, repositories.ErrRosterDorsalTaken):
			return ErrDorsalAlreadyTaken
		}
		return err
	}
	return nil
}

func (s *incidentService) validatePayload(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, incident *models.Incident) error {
	switch incident.Type {
	case models.IncidentTypeAssist:
		if incident.RelatedGoalID == nil {
			return ErrAssistGoalRequired
		}
		goal, err := s.incidentRepo.GetByID(ctx, exec, *incident.RelatedGoalID)
		if err != nil {
			if errors.Is(err, repositories.ErrIncidentNotFound) {
				return ErrAssistGoalInvalid
			}
			return err
		}
		if goal.MatchID != match.ID || goal.Type != models.IncidentTypeGoal || goal.TeamID != incident.TeamID {
			return ErrAssistGoalInvalid
		}
		if goal.Deleted() {
			return ErrAssistGoalDeleted
		}
	case models.IncidentTypeSubstitution:
		if incident.DorsalRemoved == nil || incident.DorsalAdded == nil {
			return ErrSubstitutionDorsals
		}
	}
	return nil
}

// playerParticipated decides destacado/MVP eligibility: starters, eventual
// players and anyone substituted in actually played.
func (s *incidentService) playerParticipated(ctx context.Context, exec repositories.SQLExecutor, matchID int, entry *models.RosterEntry) (bool, error) {
	if entry.Starter || entry.Eventual {
		return true, nil
	}
	incidents, err := s.incidentRepo.ListByMatch(ctx, exec, matchID, false)
	if err != nil {
		return false, err
	}
	for _, incident := range incidents {
		if incident.Type == models.IncidentTypeSubstitution && incident.PlayerID == entry.PlayerID {
			return true, nil
		}
	}
	return false, nil
}

func (s *incidentService) getMatchIncident(ctx context.Context, exec repositories.SQLExecutor, matchID, incidentID int) (*models.Incident, error) {
	incident, err := s.incidentRepo.GetByID(ctx, exec, incidentID)
	if err != nil {
		return nil, translateIncidentRepoError(err)
	}
	if incident.MatchID != matchID {
		return nil, ErrIncidentNotFound
	}
	return incident, nil
}

func (s *incidentService) recountAndStore(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	home, away, err := s.incidentRepo.RecountScore(ctx, exec, match)
	if err != nil {
		return err
	}
	match.GoalsHome = home
	match.GoalsAway = away
	return translateMatchRepoError(s.matchRepo.Update(ctx, exec, match))
}

// creditGoal moves the cached score by delta goals, crediting own goals to
// the opposing side.
func creditGoal(match *models.Match, incident *models.Incident, delta int) {
	homeSide := incident.TeamID == match.HomeTeamID
	if incident.IsOwnGoal {
		homeSide = !homeSide
	}
	if homeSide {
		match.GoalsHome += delta
	} else {
		match.GoalsAway += delta
	}
}

// resolveMinute keeps the caller's minute when it back-dates within the open
// half; everything else falls back to the clock engine's value.
func resolveMinute(requested *int, half, authoritative, halfDuration int) int {
	if requested == nil {
		return authoritative
	}
	lower := 0
	if half == 2 {
		lower = halfDuration
	}
	if *requested >= lower && *requested <= authoritative {
		return *requested
	}
	return authoritative
}

// checkEditedMinute is stricter than append: a correction must stay inside
// the half it was recorded in.
func checkEditedMinute(minute, half, authoritative, halfDuration int) error {
	lower := 0
	if half == 2 {
		lower = halfDuration
	}
	if minute < lower || minute > authoritative {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrMinuteOutsideHalf, minute, lower, authoritative)
	}
	return nil
}

func translateIncidentRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrIncidentNotFound):
		return ErrIncidentNotFound
	case errors.Is(err, repositories.ErrIncidentAlreadyDeleted):
		return ErrIncidentAlreadyDeleted
	}
	return err
}
