package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ligamaster/livematch/live"
	"github.com/ligamaster/livematch/models"
	"github.com/ligamaster/livematch/repositories"
)

// In-memory stand-ins for the postgres repositories, mirroring their error
// contracts so the services can be exercised without a database.

type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

// hookTxRunner fires a callback once after a transaction body returns,
// standing in for a writer that commits and publishes right behind a
// reader's transaction.
type hookTxRunner struct {
	after func()
}

func (h *hookTxRunner) RunInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	err := fn(nil)
	if err == nil && h.after != nil {
		after := h.after
		h.after = nil
		after()
	}
	return err
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) put(m *models.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.matches[m.ID] = &cp
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) ListByZone(_ context.Context, zoneID int, matchday *int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.matches {
		if m.ZoneID != zoneID {
			continue
		}
		if matchday != nil && m.Matchday != *matchday {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) ListFinalizedByZone(_ context.Context, _ repositories.SQLExecutor, zoneID int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.matches {
		if m.ZoneID == zoneID && m.State == models.MatchStateFinalized {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) Update(_ context.Context, _ repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[match.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if stored.Version != match.Version {
		return repositories.ErrMatchVersionConflict
	}
	match.Version++
	cp := *match
	r.matches[match.ID] = &cp
	return nil
}

type fakeIncidentRepo struct {
	mu        sync.Mutex
	nextID    int
	incidents map[int]*models.Incident
	matches   *fakeMatchRepo // for the zone join in TopScorersByZone
}

func newFakeIncidentRepo(matches *fakeMatchRepo) *fakeIncidentRepo {
	return &fakeIncidentRepo{incidents: make(map[int]*models.Incident), matches: matches}
}

func (r *fakeIncidentRepo) Create(_ context.Context, _ repositories.SQLExecutor, incident *models.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	incident.ID = r.nextID
	incident.CreatedAt = time.Now()
	cp := *incident
	r.incidents[incident.ID] = &cp
	return nil
}

func (r *fakeIncidentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	incident, ok := r.incidents[id]
	if !ok {
		return nil, repositories.ErrIncidentNotFound
	}
	cp := *incident
	return &cp, nil
}

func (r *fakeIncidentRepo) ListByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int, includeDeleted bool) ([]*models.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Incident, 0)
	for _, incident := range r.incidents {
		if incident.MatchID != matchID {
			continue
		}
		if !includeDeleted && incident.Deleted() {
			continue
		}
		cp := *incident
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Half != b.Half {
			return a.Half < b.Half
		}
		if a.Minute != b.Minute {
			return a.Minute < b.Minute
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *fakeIncidentRepo) Update(_ context.Context, _ repositories.SQLExecutor, incident *models.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.incidents[incident.ID]
	if !ok || stored.Deleted() {
		return repositories.ErrIncidentNotFound
	}
	cp := *incident
	r.incidents[incident.ID] = &cp
	return nil
}

func (r *fakeIncidentRepo) SoftDelete(_ context.Context, _ repositories.SQLExecutor, id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.incidents[id]
	if !ok || stored.Deleted() {
		return repositories.ErrIncidentAlreadyDeleted
	}
	stored.DeletedAt = &at
	return nil
}

func (r *fakeIncidentRepo) SoftDeleteAssistsOfGoal(_ context.Context, _ repositories.SQLExecutor, goalID int, at time.Time) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0)
	for _, incident := range r.incidents {
		if incident.Type == models.IncidentTypeAssist &&
			incident.RelatedGoalID != nil && *incident.RelatedGoalID == goalID &&
			!incident.Deleted() {
			incident.DeletedAt = &at
			ids = append(ids, incident.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *fakeIncidentRepo) RecountScore(_ context.Context, _ repositories.SQLExecutor, match *models.Match) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var home, away int
	for _, incident := range r.incidents {
		if incident.MatchID != match.ID || incident.Type != models.IncidentTypeGoal || incident.Deleted() {
			continue
		}
		homeSide := incident.TeamID == match.HomeTeamID
		if incident.IsOwnGoal {
			homeSide = !homeSide
		}
		if homeSide {
			home++
		} else {
			away++
		}
	}
	return home, away, nil
}

func (r *fakeIncidentRepo) HasRedCard(_ context.Context, _ repositories.SQLExecutor, matchID, playerID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, incident := range r.incidents {
		if incident.MatchID == matchID && incident.PlayerID == playerID &&
			incident.Type == models.IncidentTypeRedCard && !incident.Deleted() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeIncidentRepo) CountEventualPlayers(_ context.Context, _ repositories.SQLExecutor, matchID, teamID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, incident := range r.incidents {
		if incident.MatchID == matchID && incident.TeamID == teamID &&
			incident.Type == models.IncidentTypeEventualPlayer && !incident.Deleted() {
			count++
		}
	}
	return count, nil
}

func (r *fakeIncidentRepo) TopScorersByZone(_ context.Context, _ repositories.SQLExecutor, zoneID, limit int) ([]*models.TopScorer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type key struct{ playerID, teamID int }
	goals := make(map[key]int)
	for _, incident := range r.incidents {
		if incident.Type != models.IncidentTypeGoal || incident.Deleted() || incident.IsOwnGoal {
			continue
		}
		match, err := r.matches.GetByID(context.Background(), nil, incident.MatchID)
		if err != nil || match.ZoneID != zoneID || match.State != models.MatchStateFinalized {
			continue
		}
		goals[key{incident.PlayerID, incident.TeamID}]++
	}
	scorers := make([]*models.TopScorer, 0, len(goals))
	for k, g := range goals {
		scorers = append(scorers, &models.TopScorer{ZoneID: zoneID, PlayerID: k.playerID, TeamID: k.teamID, Goals: g})
	}
	sort.Slice(scorers, func(i, j int) bool {
		if scorers[i].Goals != scorers[j].Goals {
			return scorers[i].Goals > scorers[j].Goals
		}
		return scorers[i].PlayerID < scorers[j].PlayerID
	})
	if len(scorers) > limit {
		scorers = scorers[:limit]
	}
	return scorers, nil
}

type fakeRosterRepo struct {
	mu      sync.Mutex
	nextID  int
	entries []*models.RosterEntry
}

func (r *fakeRosterRepo) add(entry models.RosterEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, &entry)
}

func (r *fakeRosterRepo) GetEntry(_ context.Context, _ repositories.SQLExecutor, matchID, teamID, playerID int) (*models.RosterEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.MatchID == matchID && entry.TeamID == teamID && entry.PlayerID == playerID {
			cp := *entry
			return &cp, nil
		}
	}
	return nil, repositories.ErrRosterEntryNotFound
}

func (r *fakeRosterRepo) GetByPlayer(_ context.Context, _ repositories.SQLExecutor, matchID, playerID int) (*models.RosterEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.MatchID == matchID && entry.PlayerID == playerID {
			cp := *entry
			return &cp, nil
		}
	}
	return nil, repositories.ErrRosterEntryNotFound
}

func (r *fakeRosterRepo) ListByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]*models.RosterEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.RosterEntry, 0)
	for _, entry := range r.entries {
		if entry.MatchID == matchID {
			cp := *entry
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRosterRepo) CreateEventual(_ context.Context, _ repositories.SQLExecutor, entry *models.RosterEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if existing.MatchID != entry.MatchID {
			continue
		}
		if existing.PlayerID == entry.PlayerID {
			return repositories.ErrRosterEntryConflict
		}
		if existing.TeamID == entry.TeamID && existing.Dorsal == entry.Dorsal {
			return repositories.ErrRosterDorsalTaken
		}
	}
	r.nextID++
	entry.ID = r.nextID
	entry.Eventual = true
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

type fakeStandingRepo struct {
	mu        sync.Mutex
	nextID    int
	standings map[[2]int]*models.ZoneStanding // zoneID, teamID
	scorers   map[int][]*models.TopScorer
}

func newFakeStandingRepo() *fakeStandingRepo {
	return &fakeStandingRepo{
		standings: make(map[[2]int]*models.ZoneStanding),
		scorers:   make(map[int][]*models.TopScorer),
	}
}

func (r *fakeStandingRepo) GetOrCreate(_ context.Context, _ repositories.SQLExecutor, zoneID, teamID int) (*models.ZoneStanding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int{zoneID, teamID}
	standing, ok := r.standings[key]
	if !ok {
		r.nextID++
		standing = &models.ZoneStanding{ID: r.nextID, ZoneID: zoneID, TeamID: teamID}
		r.standings[key] = standing
	}
	cp := *standing
	return &cp, nil
}

func (r *fakeStandingRepo) Update(_ context.Context, _ repositories.SQLExecutor, standing *models.ZoneStanding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, stored := range r.standings {
		if stored.ID == standing.ID {
			cp := *standing
			r.standings[key] = &cp
			return nil
		}
	}
	return repositories.ErrZoneStandingNotFound
}

func (r *fakeStandingRepo) ListByZone(_ context.Context, _ repositories.SQLExecutor, zoneID int) ([]*models.ZoneStanding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ZoneStanding, 0)
	for _, standing := range r.standings {
		if standing.ZoneID == zoneID {
			cp := *standing
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].GoalDifference != out[j].GoalDifference {
			return out[i].GoalDifference > out[j].GoalDifference
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out, nil
}

func (r *fakeStandingRepo) ReplaceTopScorers(_ context.Context, _ repositories.SQLExecutor, zoneID int, scorers []*models.TopScorer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorers[zoneID] = scorers
	return nil
}

type fakeHub struct {
	mu        sync.Mutex
	seqs      map[int]uint64
	published []live.Delta
	closed    []int
}

func newFakeHub() *fakeHub {
	return &fakeHub{seqs: make(map[int]uint64)}
}

func (h *fakeHub) Publish(matchID int, typ live.EventType, payload interface{}) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seqs[matchID]++
	h.published = append(h.published, live.Delta{
		Seq:     h.seqs[matchID],
		MatchID: matchID,
		Type:    typ,
		Payload: payload,
	})
	return h.seqs[matchID]
}

func (h *fakeHub) CurrentSeq(matchID int) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seqs[matchID]
}

func (h *fakeHub) CloseRoom(matchID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, matchID)
}

func (h *fakeHub) deltas() []live.Delta {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]live.Delta, len(h.published))
	copy(out, h.published)
	return out
}

type fakeStandingsRecalc struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakeStandingsRecalc) OnMatchFinalized(_ context.Context, match *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, match.ID)
	return f.err
}
