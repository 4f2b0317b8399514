package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/ligamaster/livematch/models"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchVersionConflict = errors.New("match version conflict")
	ErrMatchTeamInvalid     = errors.New("match team conflict or invalid")
	ErrMatchMVPInvalid      = errors.New("match mvp player conflict or invalid")
)

const matchColumns = `
	id, category_edition_id, zone_id, matchday, kickoff_at, venue_id,
	home_team_id, away_team_id, scorekeeper_id, state,
	first_half_start_at, first_half_end_at, second_half_start_at, ended_at,
	half_duration_minutes, halftime_duration_minutes,
	goals_home, goals_away, mvp_player_id,
	suspended_reason, suspended_at, suspended_by,
	version, created_at`

type MatchRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByZone(ctx context.Context, zoneID int, matchday *int) ([]*models.Match, error)
	ListFinalizedByZone(ctx context.Context, exec SQLExecutor, zoneID int) ([]*models.Match, error)
	// Update writes every mutable field guarded by the row's current version
	// and bumps it. A zero-row update surfaces as ErrMatchVersionConflict:
	// the caller read a row that has since moved on.
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByZone(ctx context.Context, zoneID int, matchday *int) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE zone_id = $1`)

	args := []interface{}{zoneID}
	if matchday != nil {
		queryBuilder.WriteString(" AND matchday = $")
		queryBuilder.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, *matchday)
	}
	queryBuilder.WriteString(" ORDER BY matchday ASC, kickoff_at ASC, id ASC")

	return r.queryMatches(ctx, r.db, queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) ListFinalizedByZone(ctx context.Context, exec SQLExecutor, zoneID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE zone_id = $1 AND state = $2
		ORDER BY matchday ASC, id ASC`
	return r.queryMatches(ctx, r.getExecutor(exec), query, zoneID, models.MatchStateFinalized)
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE matches SET
			state = $1,
			first_half_start_at = $2, first_half_end_at = $3,
			second_half_start_at = $4, ended_at = $5,
			goals_home = $6, goals_away = $7, mvp_player_id = $8,
			suspended_reason = $9, suspended_at = $10, suspended_by = $11,
			version = version + 1
		WHERE id = $12 AND version = $13`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		match.State,
		match.FirstHalfStartAt, match.FirstHalfEndAt,
		match.SecondHalfStartAt, match.EndedAt,
		match.GoalsHome, match.GoalsAway, match.MVPPlayerID,
		match.SuspendedReason, match.SuspendedAt, match.SuspendedBy,
		match.ID, match.Version,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	if err := checkAffectedRows(result, ErrMatchVersionConflict); err != nil {
		return err
	}
	match.Version++
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.CategoryEditionID,
		&match.ZoneID,
		&match.Matchday,
		&match.KickoffAt,
		&match.VenueID,
		&match.HomeTeamID,
		&match.AwayTeamID,
		&match.ScorekeeperID,
		&match.State,
		&match.FirstHalfStartAt,
		&match.FirstHalfEndAt,
		&match.SecondHalfStartAt,
		&match.EndedAt,
		&match.HalfDurationMin,
		&match.HalftimeMin,
		&match.GoalsHome,
		&match.GoalsAway,
		&match.MVPPlayerID,
		&match.SuspendedReason,
		&match.SuspendedAt,
		&match.SuspendedBy,
		&match.Version,
		&match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_home_team_id_fkey", "matches_away_team_id_fkey":
			return ErrMatchTeamInvalid
		case "matches_mvp_player_id_fkey":
			return ErrMatchMVPInvalid
		}
	}
	return err
}
