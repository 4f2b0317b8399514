package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/ligamaster/livematch/models"
)

var (
	ErrIncidentNotFound       = errors.New("incident not found")
	ErrIncidentAlreadyDeleted = errors.New("incident already deleted")
	ErrIncidentMatchInvalid   = errors.New("incident match conflict or invalid")
	ErrIncidentGoalInvalid    = errors.New("incident related goal conflict or invalid")
)

const incidentColumns = `
	id, match_id, team_id, player_id, type, half, minute,
	is_penalty, is_own_goal, related_goal_id, dorsal_removed, dorsal_added,
	created_by, created_at, deleted_at`

type IncidentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, incident *models.Incident) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Incident, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int, includeDeleted bool) ([]*models.Incident, error)
	// Update rewrites the editable fields (minute and type-specific payload).
	Update(ctx context.Context, exec SQLExecutor, incident *models.Incident) error
	// SoftDelete tombstones a live row; deleting a tombstone is an error.
	SoftDelete(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
	// SoftDeleteAssistsOfGoal cascades a goal's tombstone to its assists and
	// returns the ids it touched.
	SoftDeleteAssistsOfGoal(ctx context.Context, exec SQLExecutor, goalID int, at time.Time) ([]int, error)
	// RecountScore re-aggregates the cached score from non-deleted goal
	// incidents, crediting own goals to the opposing side.
	RecountScore(ctx context.Context, exec SQLExecutor, match *models.Match) (home int, away int, err error)
	HasRedCard(ctx context.Context, exec SQLExecutor, matchID, playerID int) (bool, error)
	CountEventualPlayers(ctx context.Context, exec SQLExecutor, matchID, teamID int) (int, error)
	TopScorersByZone(ctx context.Context, exec SQLExecutor, zoneID, limit int) ([]*models.TopScorer, error)
}

type postgresIncidentRepository struct {
	db *sql.DB
}

func NewPostgresIncidentRepository(db *sql.DB) IncidentRepository {
	return &postgresIncidentRepository{db: db}
}

func (r *postgresIncidentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresIncidentRepository) Create(ctx context.Context, exec SQLExecutor, incident *models.Incident) error {
	query := `
		INSERT INTO incidents
			(match_id, team_id, player_id, type, half, minute,
			 is_penalty, is_own_goal, related_goal_id, dorsal_removed, dorsal_added,
			 created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		incident.MatchID,
		incident.TeamID,
		incident.PlayerID,
		incident.Type,
		incident.Half,
		incident.Minute,
		incident.IsPenalty,
		incident.IsOwnGoal,
		incident.RelatedGoalID,
		incident.DorsalRemoved,
		incident.DorsalAdded,
		incident.CreatedBy,
	).Scan(&incident.ID, &incident.CreatedAt)

	return r.handleIncidentError(err)
}

func (r *postgresIncidentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	incident := &models.Incident{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(
		&incident.ID,
		&incident.MatchID,
		&incident.TeamID,
		&incident.PlayerID,
		&incident.Type,
		&incident.Half,
		&incident.Minute,
		&incident.IsPenalty,
		&incident.IsOwnGoal,
		&incident.RelatedGoalID,
		&incident.DorsalRemoved,
		&incident.DorsalAdded,
		&incident.CreatedBy,
		&incident.CreatedAt,
		&incident.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to scan incident by id %d: %w", id, err)
	}
	return incident, nil
}

func (r *postgresIncidentRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int, includeDeleted bool) ([]*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE match_id = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY half ASC, minute ASC, id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents for match %d: %w", matchID, err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident := &models.Incident{}
		if scanErr := rows.Scan(
			&incident.ID,
			&incident.MatchID,
			&incident.TeamID,
			&incident.PlayerID,
			&incident.Type,
			&incident.Half,
			&incident.Minute,
			&incident.IsPenalty,
			&incident.IsOwnGoal,
			&incident.RelatedGoalID,
			&incident.DorsalRemoved,
			&incident.DorsalAdded,
			&incident.CreatedBy,
			&incident.CreatedAt,
			&incident.DeletedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", scanErr)
		}
		incidents = append(incidents, incident)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during incident rows iteration: %w", err)
	}
	return incidents, nil
}

func (r *postgresIncidentRepository) Update(ctx context.Context, exec SQLExecutor, incident *models.Incident) error {
	query := `
		UPDATE incidents SET
			minute = $1, is_penalty = $2, is_own_goal = $3,
			related_goal_id = $4, dorsal_removed = $5, dorsal_added = $6
		WHERE id = $7 AND deleted_at IS NULL`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		incident.Minute,
		incident.IsPenalty,
		incident.IsOwnGoal,
		incident.RelatedGoalID,
		incident.DorsalRemoved,
		incident.DorsalAdded,
		incident.ID,
	)
	if err != nil {
		return r.handleIncidentError(err)
	}
	return checkAffectedRows(result, ErrIncidentNotFound)
}

func (r *postgresIncidentRepository) SoftDelete(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	query := `UPDATE incidents SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrIncidentAlreadyDeleted)
}

func (r *postgresIncidentRepository) SoftDeleteAssistsOfGoal(ctx context.Context, exec SQLExecutor, goalID int, at time.Time) ([]int, error) {
	query := `
		UPDATE incidents SET deleted_at = $1
		WHERE related_goal_id = $2 AND type = $3 AND deleted_at IS NULL
		RETURNING id`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, at, goalID, models.IncidentTypeAssist)
	if err != nil {
		return nil, fmt.Errorf("failed to cascade delete assists of goal %d: %w", goalID, err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan cascaded assist id: %w", scanErr)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresIncidentRepository) RecountScore(ctx context.Context, exec SQLExecutor, match *models.Match) (int, int, error) {
	// An own goal by a home player counts for the away side and vice versa,
	// so goals are bucketed by the *credited* team.
	query := `
		SELECT
			COUNT(*) FILTER (WHERE (team_id = $2 AND NOT is_own_goal) OR (team_id <> $2 AND is_own_goal)),
			COUNT(*) FILTER (WHERE (team_id <> $2 AND NOT is_own_goal) OR (team_id = $2 AND is_own_goal))
		FROM incidents
		WHERE match_id = $1 AND type = $3 AND deleted_at IS NULL`

	var home, away int
	err := r.getExecutor(exec).QueryRowContext(ctx, query, match.ID, match.HomeTeamID, models.IncidentTypeGoal).Scan(&home, &away)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to recount score for match %d: %w", match.ID, err)
	}
	return home, away, nil
}

func (r *postgresIncidentRepository) HasRedCard(ctx context.Context, exec SQLExecutor, matchID, playerID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM incidents
			WHERE match_id = $1 AND player_id = $2 AND type = $3 AND deleted_at IS NULL
		)`

	var exists bool
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID, playerID, models.IncidentTypeRedCard).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check red card for player %d in match %d: %w", playerID, matchID, err)
	}
	return exists, nil
}

func (r *postgresIncidentRepository) CountEventualPlayers(ctx context.Context, exec SQLExecutor, matchID, teamID int) (int, error) {
	query := `
		SELECT COUNT(*) FROM incidents
		WHERE match_id = $1 AND team_id = $2 AND type = $3 AND deleted_at IS NULL`

	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID, teamID, models.IncidentTypeEventualPlayer).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count eventual players for team %d in match %d: %w", teamID, matchID, err)
	}
	return count, nil
}

func (r *postgresIncidentRepository) TopScorersByZone(ctx context.Context, exec SQLExecutor, zoneID, limit int) ([]*models.TopScorer, error) {
	query := `
		SELECT m.zone_id, i.player_id, i.team_id, COUNT(*) AS goals
		FROM incidents i
		JOIN matches m ON m.id = i.match_id
		WHERE m.zone_id = $1 AND m.state = $2
		  AND i.type = $3 AND i.deleted_at IS NULL AND NOT i.is_own_goal
		GROUP BY m.zone_id, i.player_id, i.team_id
		ORDER BY goals DESC, i.player_id ASC
		LIMIT $4`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, zoneID, models.MatchStateFinalized, models.IncidentTypeGoal, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scorers for zone %d: %w", zoneID, err)
	}
	defer rows.Close()

	scorers := make([]*models.TopScorer, 0)
	for rows.Next() {
		scorer := &models.TopScorer{}
		if scanErr := rows.Scan(&scorer.ZoneID, &scorer.PlayerID, &scorer.TeamID, &scorer.Goals); scanErr != nil {
			return nil, fmt.Errorf("failed to scan top scorer row: %w", scanErr)
		}
		scorers = append(scorers, scorer)
	}
	return scorers, rows.Err()
}

func (r *postgresIncidentRepository) handleIncidentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "incidents_match_id_fkey":
			return ErrIncidentMatchInvalid
		case "incidents_related_goal_id_fkey":
			return ErrIncidentGoalInvalid
		}
	}
	return err
}
