package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ligamaster/livematch/models"
)

func newStandingsFixture(t *testing.T) (*fakeMatchRepo, *fakeIncidentRepo, *fakeStandingRepo, StandingsService) {
	t.Helper()
	matches := newFakeMatchRepo()
	incidents := newFakeIncidentRepo(matches)
	standings := newFakeStandingRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewStandingsService(fakeTxRunner{}, matches, incidents, standings,
		StandingsConfig{WalkoverGoals: 3}, logger)
	return matches, incidents, standings, svc
}

func finalizedMatch(id, zoneID, home int, away *int, goalsHome, goalsAway int) *models.Match {
	return &models.Match{
		ID:              id,
		ZoneID:          zoneID,
		HomeTeamID:      home,
		AwayTeamID:      away,
		State:           models.MatchStateFinalized,
		GoalsHome:       goalsHome,
		GoalsAway:       goalsAway,
		HalfDurationMin: 25,
		Version:         1,
		KickoffAt:       testKickoff,
		CreatedAt:       testKickoff,
	}
}

func TestStandingsFoldOverFinalizedMatches(t *testing.T) {
	matches, _, _, svc := newStandingsFixture(t)
	ctx := context.Background()

	// Zone 5: team 10 beats 20, draws with 30; the scheduled rematch must not
	// count.
	matches.put(finalizedMatch(1, 5, 10, intPtr(20), 2, 0))
	matches.put(finalizedMatch(2, 5, 30, intPtr(10), 1, 1))
	pending := finalizedMatch(3, 5, 20, intPtr(10), 0, 0)
	pending.State = models.MatchStateScheduled
	matches.put(pending)

	last, _ := matches.GetByID(ctx, nil, 2)
	if err := svc.OnMatchFinalized(ctx, last); err != nil {
		t.Fatalf("OnMatchFinalized: %v", err)
	}
	// Team 20's row is refreshed by its own finalize; fold it here too so the
	// table below is complete.
	first, _ := matches.GetByID(ctx, nil, 1)
	if err := svc.OnMatchFinalized(ctx, first); err != nil {
		t.Fatalf("OnMatchFinalized: %v", err)
	}

	table, err := svc.ZoneTable(ctx, 5)
	if err != nil {
		t.Fatalf("ZoneTable: %v", err)
	}
	if len(table) != 3 {
		t.Fatalf("table rows = %d, want 3", len(table))
	}

	want := []struct {
		teamID, played, points, gd int
	}{
		{10, 2, 4, 2},  // one win, one draw
		{30, 1, 1, 0},  // the draw
		{20, 1, 0, -2}, // the loss
	}
	for i, w := range want {
		row := table[i]
		if row.TeamID != w.teamID || row.Played != w.played || row.Points != w.points || row.GoalDifference != w.gd {
			t.Fatalf("row %d = team %d played %d points %d gd %d, want %+v",
				i, row.TeamID, row.Played, row.Points, row.GoalDifference, w)
		}
	}
}

func TestStandingsWalkoverCredit(t *testing.T) {
	matches, _, _, svc := newStandingsFixture(t)
	ctx := context.Background()

	wo := finalizedMatch(1, 5, 10, nil, 0, 0)
	matches.put(wo)

	if err := svc.OnMatchFinalized(ctx, wo); err != nil {
		t.Fatalf("OnMatchFinalized: %v", err)
	}

	table, err := svc.ZoneTable(ctx, 5)
	if err != nil {
		t.Fatalf("ZoneTable: %v", err)
	}
	if len(table) != 1 {
		t.Fatalf("table rows = %d, want 1", len(table))
	}
	row := table[0]
	if row.TeamID != 10 || row.Played != 1 || row.Wins != 1 || row.Points != 3 || row.GoalsFor != 3 {
		t.Fatalf("walkover row = %+v, want 3-0 win for team 10", row)
	}
}

func TestTopScorersExcludeDeletedAndOwnGoals(t *testing.T) {
	matches, incidents, standings, svc := newStandingsFixture(t)
	ctx := context.Background()

	m := finalizedMatch(1, 5, 10, intPtr(20), 2, 1)
	matches.put(m)

	now := testKickoff
	goal := func(teamID, playerID int, ownGoal bool) *models.Incident {
		incident := &models.Incident{
			MatchID:   1,
			TeamID:    teamID,
			PlayerID:  playerID,
			Type:      models.IncidentTypeGoal,
			Half:      1,
			Minute:    10,
			IsOwnGoal: ownGoal,
			CreatedBy: testScorekeeper,
		}
		if err := incidents.Create(ctx, nil, incident); err != nil {
			t.Fatalf("create incident: %v", err)
		}
		return incident
	}
	goal(10, 101, false)
	goal(10, 101, false)
	goal(20, 201, false)
	goal(20, 202, true) // own goal, nobody's tally
	deleted := goal(10, 103, false)
	if err := incidents.SoftDelete(ctx, nil, deleted.ID, now); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if err := svc.OnMatchFinalized(ctx, m); err != nil {
		t.Fatalf("OnMatchFinalized: %v", err)
	}

	scorers := standings.scorers[5]
	if len(scorers) != 2 {
		t.Fatalf("scorers = %d entries, want 2", len(scorers))
	}
	if scorers[0].PlayerID != 101 || scorers[0].Goals != 2 {
		t.Fatalf("top scorer = player %d with %d, want 101 with 2", scorers[0].PlayerID, scorers[0].Goals)
	}
	if scorers[1].PlayerID != 201 || scorers[1].Goals != 1 {
		t.Fatalf("runner-up = player %d with %d", scorers[1].PlayerID, scorers[1].Goals)
	}

	got, err := svc.ZoneTopScorers(ctx, 5)
	if err != nil {
		t.Fatalf("ZoneTopScorers: %v", err)
	}
	if len(got) != 2 || got[0].PlayerID != 101 {
		t.Fatalf("ZoneTopScorers = %+v", got)
	}
}
