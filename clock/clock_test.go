package clock

import (
	"testing"
	"time"

	"github.com/ligamaster/livematch/models"
)

var base = time.Date(2026, 4, 12, 15, 0, 0, 0, time.UTC)

func ts(t time.Time) *time.Time { return &t }

func liveMatch(state models.MatchState) *models.Match {
	return &models.Match{
		ID:              7,
		State:           state,
		HalfDurationMin: 25,
		HalftimeMin:     5,
	}
}

func TestProjectFirstHalf(t *testing.T) {
	tests := []struct {
		name        string
		elapsed     time.Duration
		wantMinute  int
		wantSecond  int
		wantAdded   bool
		wantDisplay string
	}{
		{"kickoff", 0, 0, 0, false, "0'"},
		{"mid half", 12*time.Minute + 30*time.Second, 12, 30, false, "12'"},
		{"last regulation minute", 24 * time.Minute, 24, 0, false, "24'"},
		{"first added minute", 25 * time.Minute, 25, 0, true, "25+1'"},
		{"deep added time, never clamps", 31*time.Minute + 5*time.Second, 31, 5, true, "25+7'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := liveMatch(models.MatchStateFirstHalf)
			m.FirstHalfStartAt = ts(base)

			got := Project(m, base.Add(tt.elapsed))
			if got.Period != PeriodFirstHalf {
				t.Fatalf("period = %s, want %s", got.Period, PeriodFirstHalf)
			}
			if got.Minute != tt.wantMinute || got.Second != tt.wantSecond {
				t.Errorf("clock = %d:%02d, want %d:%02d", got.Minute, got.Second, tt.wantMinute, tt.wantSecond)
			}
			if got.InAddedTime != tt.wantAdded {
				t.Errorf("in_added_time = %v, want %v", got.InAddedTime, tt.wantAdded)
			}
			if got.Display != tt.wantDisplay {
				t.Errorf("display = %q, want %q", got.Display, tt.wantDisplay)
			}
		})
	}
}

func TestProjectSecondHalfContinuesFromRegulation(t *testing.T) {
	m := liveMatch(models.MatchStateSecondHalf)
	m.FirstHalfStartAt = ts(base.Add(-40 * time.Minute))
	m.FirstHalfEndAt = ts(base.Add(-10 * time.Minute))
	m.SecondHalfStartAt = ts(base)

	got := Project(m, base.Add(10*time.Minute))
	if got.Minute != 35 {
		t.Errorf("minute = %d, want 35 (offset by half duration)", got.Minute)
	}
	if got.Display != "35'" {
		t.Errorf("display = %q, want %q", got.Display, "35'")
	}

	got = Project(m, base.Add(27*time.Minute))
	if !got.InAddedTime || got.Display != "50+3'" {
		t.Errorf("added time reading = %+v, want 50+3'", got)
	}
}

func TestProjectHalftimeCountdown(t *testing.T) {
	m := liveMatch(models.MatchStateHalftime)
	m.FirstHalfStartAt = ts(base.Add(-26 * time.Minute))
	m.FirstHalfEndAt = ts(base)

	got := Project(m, base.Add(90*time.Second))
	if got.Period != PeriodHalftime || got.Display != "HT" {
		t.Fatalf("reading = %+v, want halftime", got)
	}
	if got.HalftimeLeftSecs != 210 {
		t.Errorf("halftime_left = %d, want 210", got.HalftimeLeftSecs)
	}
	if got.Minute != 25 {
		t.Errorf("minute = %d, want frozen at 25", got.Minute)
	}

	// The countdown is advisory: it bottoms out at zero and stays there.
	got = Project(m, base.Add(20*time.Minute))
	if got.HalftimeLeftSecs != 0 {
		t.Errorf("halftime_left = %d, want 0 after the break ran over", got.HalftimeLeftSecs)
	}
}

func TestProjectFrozenStates(t *testing.T) {
	m := liveMatch(models.MatchStateEnded)
	m.FirstHalfStartAt = ts(base.Add(-60 * time.Minute))
	m.FirstHalfEndAt = ts(base.Add(-33 * time.Minute))
	m.SecondHalfStartAt = ts(base.Add(-28 * time.Minute))
	m.EndedAt = ts(base)

	got := Project(m, base.Add(2*time.Hour))
	if got.Period != PeriodFullTime || got.Display != "FT" {
		t.Fatalf("reading = %+v, want full time", got)
	}
	if got.Minute != 53 {
		t.Errorf("minute = %d, want frozen at 53", got.Minute)
	}

	sm := liveMatch(models.MatchStateSuspended)
	sm.FirstHalfStartAt = ts(base)
	sm.SuspendedAt = ts(base.Add(17 * time.Minute))

	sus := Project(sm, base.Add(3*time.Hour))
	if sus.Period != PeriodSuspended || sus.Minute != 17 {
		t.Errorf("suspended reading = %+v, want minute frozen at 17", sus)
	}
}

func TestProjectIsPureAndMonotonic(t *testing.T) {
	m := liveMatch(models.MatchStateFirstHalf)
	m.FirstHalfStartAt = ts(base)

	at := base.Add(13*time.Minute + 37*time.Second)
	if a, b := Project(m, at), Project(m, at); a != b {
		t.Fatalf("identical inputs disagreed: %+v vs %+v", a, b)
	}

	prev := -1
	for d := time.Duration(0); d <= 40*time.Minute; d += 13 * time.Second {
		r := Project(m, base.Add(d))
		cur := r.Minute*60 + r.Second
		if cur < prev {
			t.Fatalf("elapsed went backwards at %v: %d < %d", d, cur, prev)
		}
		prev = cur
	}
}

func TestMatchMinute(t *testing.T) {
	m := liveMatch(models.MatchStateFirstHalf)
	m.FirstHalfStartAt = ts(base)

	half, minute, ok := MatchMinute(m, base.Add(9*time.Minute+59*time.Second))
	if !ok || half != 1 || minute != 9 {
		t.Errorf("first half = (%d, %d, %v), want (1, 9, true)", half, minute, ok)
	}

	m.State = models.MatchStateHalftime
	m.FirstHalfEndAt = ts(base.Add(26 * time.Minute))
	half, minute, ok = MatchMinute(m, base.Add(28*time.Minute))
	if !ok || half != 1 || minute != 25 {
		t.Errorf("halftime = (%d, %d, %v), want (1, 25, true)", half, minute, ok)
	}

	m.State = models.MatchStateSecondHalf
	m.SecondHalfStartAt = ts(base.Add(31 * time.Minute))
	half, minute, ok = MatchMinute(m, base.Add(31*time.Minute+8*time.Minute))
	if !ok || half != 2 || minute != 33 {
		t.Errorf("second half = (%d, %d, %v), want (2, 33, true)", half, minute, ok)
	}

	m.State = models.MatchStateEnded
	if _, _, ok := MatchMinute(m, base); ok {
		t.Error("ended match should not produce an authoritative minute")
	}
}

func TestHalfOpen(t *testing.T) {
	m := liveMatch(models.MatchStateFirstHalf)
	if !HalfOpen(m, 1) || HalfOpen(m, 2) {
		t.Error("first half should be the only open half during first_half")
	}
	m.State = models.MatchStateHalftime
	if HalfOpen(m, 1) {
		t.Error("first half minutes freeze once the half has ended")
	}
	m.State = models.MatchStateSecondHalf
	if HalfOpen(m, 1) || !HalfOpen(m, 2) {
		t.Error("second half should be the only open half during second_half")
	}
}
