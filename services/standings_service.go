package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ligamaster/livematch/models"
	"github.com/ligamaster/livematch/repositories"
	"golang.org/x/sync/errgroup"
)

const topScorersLimit = 20

// StandingsConfig carries the zone-table knobs.
type StandingsConfig struct {
	// WalkoverGoals is the score credited to the present team of a bye.
	WalkoverGoals int
}

type StandingsService interface {
	StandingsRecalculator
	ZoneTable(ctx context.Context, zoneID int) ([]*models.ZoneStanding, error)
	ZoneTopScorers(ctx context.Context, zoneID int) ([]*models.TopScorer, error)
}

type standingsService struct {
	tx           repositories.TxRunner
	matchRepo    repositories.MatchRepository
	incidentRepo repositories.IncidentRepository
	standingRepo repositories.StandingRepository
	cfg          StandingsConfig
	logger       *slog.Logger
}

func NewStandingsService(
	tx repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	incidentRepo repositories.IncidentRepository,
	standingRepo repositories.StandingRepository,
	cfg StandingsConfig,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		tx:           tx,
		matchRepo:    matchRepo,
		incidentRepo: incidentRepo,
		standingRepo: standingRepo,
		cfg:          cfg,
		logger:       logger,
	}
}

// OnMatchFinalized re-derives both teams' standing rows and the zone's top
// scorers from the finalized matches. Each fold runs in its own transaction;
// they touch disjoint rows, so they run concurrently.
func (s *standingsService) OnMatchFinalized(ctx context.Context, match *models.Match) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.recomputeTeam(gctx, match.ZoneID, match.HomeTeamID)
	})
	if match.AwayTeamID != nil {
		awayID := *match.AwayTeamID
		g.Go(func() error {
			return s.recomputeTeam(gctx, match.ZoneID, awayID)
		})
	}
	g.Go(func() error {
		return s.recomputeTopScorers(gctx, match.ZoneID)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to recompute zone %d after match %d: %w", match.ZoneID, match.ID, err)
	}
	s.logger.Info("zone standings recomputed",
		slog.Int("zone_id", match.ZoneID), slog.Int("match_id", match.ID))
	return nil
}

func (s *standingsService) recomputeTeam(ctx context.Context, zoneID, teamID int) error {
	return s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		matches, err := s.matchRepo.ListFinalizedByZone(ctx, exec, zoneID)
		if err != nil {
			return err
		}

		standing, err := s.standingRepo.GetOrCreate(ctx, exec, zoneID, teamID)
		if err != nil {
			return err
		}
		standing.Played, standing.Wins, standing.Draws, standing.Losses = 0, 0, 0, 0
		standing.GoalsFor, standing.GoalsAgainst = 0, 0

		for _, match := range matches {
			goalsFor, goalsAgainst, played := s.teamResult(match, teamID)
			if !played {
				continue
			}
			standing.Played++
			standing.GoalsFor += goalsFor
			standing.GoalsAgainst += goalsAgainst
			switch {
			case goalsFor > goalsAgainst:
				standing.Wins++
			case goalsFor == goalsAgainst:
				standing.Draws++
			default:
				standing.Losses++
			}
		}
		standing.GoalDifference = standing.GoalsFor - standing.GoalsAgainst
		standing.Points = 3*standing.Wins + standing.Draws

		return s.standingRepo.Update(ctx, exec, standing)
	})
}

// teamResult reads one finalized match from teamID's perspective. A walkover
// credits the present team with the configured score.
func (s *standingsService) teamResult(match *models.Match, teamID int) (goalsFor, goalsAgainst int, played bool) {
	if match.IsWalkover() {
		if match.HomeTeamID == teamID {
			return s.cfg.WalkoverGoals, 0, true
		}
		return 0, 0, false
	}
	switch teamID {
	case match.HomeTeamID:
		return match.GoalsHome, match.GoalsAway, true
	case *match.AwayTeamID:
		return match.GoalsAway, match.GoalsHome, true
	}
	return 0, 0, false
}

func (s *standingsService) recomputeTopScorers(ctx context.Context, zoneID int) error {
	return s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		scorers, err := s.incidentRepo.TopScorersByZone(ctx, exec, zoneID, topScorersLimit)
		if err != nil {
			return err
		}
		return s.standingRepo.ReplaceTopScorers(ctx, exec, zoneID, scorers)
	})
}

func (s *standingsService) ZoneTable(ctx context.Context, zoneID int) ([]*models.ZoneStanding, error) {
	standings, err := s.standingRepo.ListByZone(ctx, nil, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings for zone %d: %w", zoneID, err)
	}
	return standings, nil
}

func (s *standingsService) ZoneTopScorers(ctx context.Context, zoneID int) ([]*models.TopScorer, error) {
	scorers, err := s.incidentRepo.TopScorersByZone(ctx, nil, zoneID, topScorersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top scorers for zone %d: %w", zoneID, err)
	}
	return scorers, nil
}
