package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/ligamaster/livematch/models"
)

var (
	ErrRosterEntryNotFound = errors.New("roster entry not found")
	ErrRosterEntryConflict = errors.New("player already on the match roster")
	ErrRosterDorsalTaken   = errors.New("dorsal already taken on the match roster")
)

const rosterColumns = `
	id, match_id, team_id, player_id, dorsal,
	starter, captain, eventual, featured_eligible, created_at`

type RosterRepository interface {
	GetEntry(ctx context.Context, exec SQLExecutor, matchID, teamID, playerID int) (*models.RosterEntry, error)
	// GetByPlayer looks a player up on either side's squad.
	GetByPlayer(ctx context.Context, exec SQLExecutor, matchID, playerID int) (*models.RosterEntry, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.RosterEntry, error)
	// CreateEventual inserts the roster row an eventual_player ledger entry
	// brings with it; regular entries are written by the roster screens.
	CreateEventual(ctx context.Context, exec SQLExecutor, entry *models.RosterEntry) error
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRosterRepository) GetEntry(ctx context.Context, exec SQLExecutor, matchID, teamID, playerID int) (*models.RosterEntry, error) {
	query := `SELECT ` + rosterColumns + ` FROM match_rosters
		WHERE match_id = $1 AND team_id = $2 AND player_id = $3`

	entry := &models.RosterEntry{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID, teamID, playerID).Scan(
		&entry.ID,
		&entry.MatchID,
		&entry.TeamID,
		&entry.PlayerID,
		&entry.Dorsal,
		&entry.Starter,
		&entry.Captain,
		&entry.Eventual,
		&entry.FeaturedEligible,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRosterEntryNotFound
		}
		return nil, fmt.Errorf("failed to scan roster entry for player %d in match %d: %w", playerID, matchID, err)
	}
	return entry, nil
}

func (r *postgresRosterRepository) GetByPlayer(ctx context.Context, exec SQLExecutor, matchID, playerID int) (*models.RosterEntry, error) {
	query := `SELECT ` + rosterColumns + ` FROM match_rosters
		WHERE match_id = $1 AND player_id = $2`

	entry := &models.RosterEntry{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, matchID, playerID).Scan(
		&entry.ID,
		&entry.MatchID,
		&entry.TeamID,
		&entry.PlayerID,
		&entry.Dorsal,
		&entry.Starter,
		&entry.Captain,
		&entry.Eventual,
		&entry.FeaturedEligible,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRosterEntryNotFound
		}
		return nil, fmt.Errorf("failed to scan roster entry for player %d in match %d: %w", playerID, matchID, err)
	}
	return entry, nil
}

func (r *postgresRosterRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.RosterEntry, error) {
	query := `SELECT ` + rosterColumns + ` FROM match_rosters
		WHERE match_id = $1
		ORDER BY team_id ASC, dorsal ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster for match %d: %w", matchID, err)
	}
	defer rows.Close()

	entries := make([]*models.RosterEntry, 0)
	for rows.Next() {
		entry := &models.RosterEntry{}
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.MatchID,
			&entry.TeamID,
			&entry.PlayerID,
			&entry.Dorsal,
			&entry.Starter,
			&entry.Captain,
			&entry.Eventual,
			&entry.FeaturedEligible,
			&entry.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", scanErr)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *postgresRosterRepository) CreateEventual(ctx context.Context, exec SQLExecutor, entry *models.RosterEntry) error {
	query := `
		INSERT INTO match_rosters
			(match_id, team_id, player_id, dorsal, starter, captain, eventual, featured_eligible)
		VALUES ($1, $2, $3, $4, false, false, true, $5)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		entry.MatchID,
		entry.TeamID,
		entry.PlayerID,
		entry.Dorsal,
		entry.FeaturedEligible,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "match_rosters_match_id_player_id_key":
				return ErrRosterEntryConflict
			case "match_rosters_match_id_team_id_dorsal_key":
				return ErrRosterDorsalTaken
			}
		}
		return err
	}
	entry.Starter = false
	entry.Captain = false
	entry.Eventual = true
	return nil
}
