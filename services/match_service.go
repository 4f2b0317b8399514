package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/ligamaster/livematch/clock"
	"github.com/ligamaster/livematch/live"
	"github.com/ligamaster/livematch/models"
	"github.com/ligamaster/livematch/repositories"
)

// StandingsRecalculator is the downstream collaborator fired when a match is
// finalized.
type StandingsRecalculator interface {
	OnMatchFinalized(ctx context.Context, match *models.Match) error
}

type MatchService interface {
	StartMatch(ctx context.Context, matchID int, actor Actor) (*MatchSnapshot, error)
	EndFirstHalf(ctx context.Context, matchID int, actor Actor) (*MatchSnapshot, error)
	StartSecondHalf(ctx context.Context, matchID int, actor Actor) (*MatchSnapshot, error)
	EndMatch(ctx context.Context, matchID int, actor Actor) (*MatchSnapshot, error)
	FinalizeMatch(ctx context.Context, matchID int, actor Actor, expectedVersion *int) (*MatchSnapshot, error)
	SuspendMatch(ctx context.Context, matchID int, actor Actor, reason string, expectedVersion *int) (*MatchSnapshot, error)

	GetSnapshot(ctx context.Context, matchID int) (*MatchSnapshot, error)
	ProjectClock(ctx context.Context, matchID int) (clock.Reading, error)
	ListZoneMatches(ctx context.Context, zoneID int, matchday *int) ([]*models.Match, error)
}

type matchService struct {
	tx           repositories.TxRunner
	matchRepo    repositories.MatchRepository
	incidentRepo repositories.IncidentRepository
	hub          LiveBroadcaster
	standings    StandingsRecalculator
	clock        clockwork.Clock
	locks        *matchLocks
	logger       *slog.Logger
}

func NewMatchService(
	tx repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	incidentRepo repositories.IncidentRepository,
	hub LiveBroadcaster,
	standings StandingsRecalculator,
	clk clockwork.Clock,
	locks *matchLocks,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:           tx,
		matchRepo:    matchRepo,
		incidentRepo: incidentRepo,
		hub:          hub,
		standings:    standings,
		clock:        clk,
		locks:        locks,
		logger:       logger,
	}
}

func (s *matchService) StartMatch(ctx context.Context, matchID int, actor Actor) (*MatchSnapshot, error) {
	return s.transition(ctx, matchID, actor, func(m *models.Match) error {
		if m.IsWalkover() {
			return ErrWalkoverMatch
		}
		if err := checkTransition(m.State, models.MatchStateFirstHalf); err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		m.State = models.MatchStateFirstHalf
		m.FirstHalfStartAt = &now
		return nil
	})
}

func (s *matchService) EndFirstHalf(ctx context.Context, matchID int, actor Actor) (*MatchSnapshot, error) {
	return s.transition(ctx, matchID, actor, func(m *models.Match) error {
		if err := checkTransition(m.State, models.MatchStateHalftime); err != nil {
			return err
		}
		// Elapsed first-half time stays derived from first_half_start_at; the
		// end stamp only anchors the halftime countdown.
		now := s.clock.Now().UTC()
		m.State = models.MatchStateHalftime
		m.FirstHalfEndAt = &now
		return nil
	})
}

func (s *matchService) StartSecondHalf(ctx context.Context, matchID int, actor Actor) (*MatchSnapshot, error) {
	return s.transition(ctx, matchID, actor, func(m *models.Match) error {
		if err := checkTransition(m.State, models.MatchStateSecondHalf); err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		m.State = models.MatchStateSecondHalf
		m.SecondHalfStartAt = &now
		return nil
	})
}

func (s *matchService) EndMatch(ctx context.Context, matchID int, actor Actor) (*MatchSnapshot, error) {
	return s.transition(ctx, matchID, actor, func(m *models.Match) error {
		if err := checkTransition(m.State, models.MatchStateEnded); err != nil {
			return err
		}
		// Score is frozen from here: the ledger rejects new play incidents.
		now := s.clock.Now().UTC()
		m.State = models.MatchStateEnded
		m.EndedAt = &now
		return nil
	})
}

func (s *matchService) FinalizeMatch(ctx context.Context, matchID int, actor Actor, expectedVersion *int) (*MatchSnapshot, error) {
	var finalized *models.Match
	snap, err := s.transition(ctx, matchID, actor, func(m *models.Match) error {
		if m.IsWalkover() {
			// A bye never plays: scheduled -> finalized directly.
			if m.State != models.MatchStateScheduled && m.State != models.MatchStateEnded {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.State, models.MatchStateFinalized)
			}
		} else if err := checkTransition(m.State, models.MatchStateFinalized); err != nil {
			return err
		}
		if err := checkExpectedVersion(m, expectedVersion); err != nil {
			return err
		}
		m.State = models.MatchStateFinalized
		finalized = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Downstream recomputation is best-effort: the finalized state is already
	// committed and broadcast, a failed fold is repaired by the next one.
	if err := s.standings.OnMatchFinalized(ctx, finalized); err != nil {
		s.logger.Error("standings recomputation failed",
			slog.Int("match_id", matchID), slog.Any("error", err))
	}

	s.hub.CloseRoom(matchID)
	return snap, nil
}

func (s *matchService) SuspendMatch(ctx context.Context, matchID int, actor Actor, reason string, expectedVersion *int) (*MatchSnapshot, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrSuspendReasonRequired
	}
	return s.transition(ctx, matchID, actor, func(m *models.Match) error {
		if !m.IsLive() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.State, models.MatchStateSuspended)
		}
		if err := checkExpectedVersion(m, expectedVersion); err != nil {
			return err
		}
		// Terminal for the automatic contract; resumption is a manual
		// administrative correction elsewhere.
		now := s.clock.Now().UTC()
		m.State = models.MatchStateSuspended
		m.SuspendedReason = &reason
		m.SuspendedAt = &now
		m.SuspendedBy = &actor.UserID
		return nil
	})
}

// transition runs one lifecycle command end to end: take the match's writer
// lock, validate and mutate inside a transaction, then publish on the hub
// before releasing the lock so broadcast order equals commit order.
func (s *matchService) transition(ctx context.Context, matchID int, actor Actor, mutate func(m *models.Match) error) (*MatchSnapshot, error) {
	unlock := s.locks.acquire(matchID)
	defer unlock()

	var (
		match     *models.Match
		incidents []*models.Incident
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
		if err := mutate(match); err != nil {
			return err
		}
		if err := s.matchRepo.Update(ctx, exec, match); err != nil {
			return translateMatchRepoError(err)
		}
		incidents, err = s.incidentRepo.ListByMatch(ctx, exec, matchID, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	snap := &MatchSnapshot{
		Match:     match,
		Clock:     clock.Project(match, s.clock.Now()),
		Incidents: incidents,
	}
	snap.Seq = s.hub.Publish(match.ID, live.EventStateChanged, StateChangedPayload{
		Match: match,
		Clock: snap.Clock,
	})
	return snap, nil
}

func (s *matchService) GetSnapshot(ctx context.Context, matchID int) (*MatchSnapshot, error) {
	var (
		match     *models.Match
		incidents []*models.Incident
	)
	// Capture the hub position before reading: a delta committed during or
	// after the read transaction then carries a seq above the snapshot's and
	// is replayed rather than skipped. Under-reporting only costs a
	// redundant, idempotent re-apply; over-reporting would lose the delta.
	seq := s.hub.CurrentSeq(matchID)
	// One read-only transaction so the score and the incident list agree;
	// reads never take the writer lock.
	err := s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return translateMatchRepoError(err)
		}
		incidents, err = s.incidentRepo.ListByMatch(ctx, exec, matchID, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &MatchSnapshot{
		Match:     match,
		Clock:     clock.Project(match, s.clock.Now()),
		Incidents: incidents,
		Seq:       seq,
	}, nil
}

func (s *matchService) ProjectClock(ctx context.Context, matchID int) (clock.Reading, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return clock.Reading{}, translateMatchRepoError(err)
	}
	return clock.Project(match, s.clock.Now()), nil
}

func (s *matchService) ListZoneMatches(ctx context.Context, zoneID int, matchday *int) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListByZone(ctx, zoneID, matchday)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for zone %d: %w", zoneID, err)
	}
	return matches, nil
}
