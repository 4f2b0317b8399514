package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ligamaster/livematch/models"
)

var ErrZoneStandingNotFound = errors.New("zone standing not found")

type StandingRepository interface {
	GetOrCreate(ctx context.Context, exec SQLExecutor, zoneID, teamID int) (*models.ZoneStanding, error)
	Update(ctx context.Context, exec SQLExecutor, standing *models.ZoneStanding) error
	ListByZone(ctx context.Context, exec SQLExecutor, zoneID int) ([]*models.ZoneStanding, error)
	// ReplaceTopScorers swaps a zone's scorer table wholesale with rows
	// re-aggregated from the ledger.
	ReplaceTopScorers(ctx context.Context, exec SQLExecutor, zoneID int, scorers []*models.TopScorer) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStandingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, zoneID, teamID int) (*models.ZoneStanding, error) {
	executor := r.getExecutor(exec)

	query := `
		INSERT INTO zone_standings (zone_id, team_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (zone_id, team_id) DO UPDATE SET zone_id = EXCLUDED.zone_id
		RETURNING id, zone_id, team_id, played, wins, draws, losses,
		          goals_for, goals_against, goal_difference, points, updated_at`

	standing := &models.ZoneStanding{}
	err := executor.QueryRowContext(ctx, query, zoneID, teamID, time.Now()).Scan(
		&standing.ID,
		&standing.ZoneID,
		&standing.TeamID,
		&standing.Played,
		&standing.Wins,
		&standing.Draws,
		&standing.Losses,
		&standing.GoalsFor,
		&standing.GoalsAgainst,
		&standing.GoalDifference,
		&standing.Points,
		&standing.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create standing for team %d in zone %d: %w", teamID, zoneID, err)
	}
	return standing, nil
}

func (r *postgresStandingRepository) Update(ctx context.Context, exec SQLExecutor, standing *models.ZoneStanding) error {
	query := `
		UPDATE zone_standings SET
			played = $1, wins = $2, draws = $3, losses = $4,
			goals_for = $5, goals_against = $6, goal_difference = $7,
			points = $8, updated_at = $9
		WHERE id = $10`

	standing.UpdatedAt = time.Now()
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		standing.Played, standing.Wins, standing.Draws, standing.Losses,
		standing.GoalsFor, standing.GoalsAgainst, standing.GoalDifference,
		standing.Points, standing.UpdatedAt,
		standing.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrZoneStandingNotFound)
}

func (r *postgresStandingRepository) ListByZone(ctx context.Context, exec SQLExecutor, zoneID int) ([]*models.ZoneStanding, error) {
	query := `
		SELECT id, zone_id, team_id, played, wins, draws, losses,
		       goals_for, goals_against, goal_difference, points, updated_at
		FROM zone_standings
		WHERE zone_id = $1
		ORDER BY points DESC, goal_difference DESC, goals_for DESC, team_id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, zoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings for zone %d: %w", zoneID, err)
	}
	defer rows.Close()

	standings := make([]*models.ZoneStanding, 0)
	for rows.Next() {
		standing := &models.ZoneStanding{}
		if scanErr := rows.Scan(
			&standing.ID,
			&standing.ZoneID,
			&standing.TeamID,
			&standing.Played,
			&standing.Wins,
			&standing.Draws,
			&standing.Losses,
			&standing.GoalsFor,
			&standing.GoalsAgainst,
			&standing.GoalDifference,
			&standing.Points,
			&standing.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan standing row: %w", scanErr)
		}
		standings = append(standings, standing)
	}
	return standings, rows.Err()
}

func (r *postgresStandingRepository) ReplaceTopScorers(ctx context.Context, exec SQLExecutor, zoneID int, scorers []*models.TopScorer) error {
	executor := r.getExecutor(exec)

	if _, err := executor.ExecContext(ctx, `DELETE FROM top_scorers WHERE zone_id = $1`, zoneID); err != nil {
		return fmt.Errorf("failed to clear top scorers for zone %d: %w", zoneID, err)
	}
	for _, scorer := range scorers {
		_, err := executor.ExecContext(ctx,
			`INSERT INTO top_scorers (zone_id, player_id, team_id, goals) VALUES ($1, $2, $3, $4)`,
			zoneID, scorer.PlayerID, scorer.TeamID, scorer.Goals,
		)
		if err != nil {
			return fmt.Errorf("failed to insert top scorer row for player %d: %w", scorer.PlayerID, err)
		}
	}
	return nil
}
