// Package clock projects persisted match anchors into display time. It is a
// pure computation: callers (one per render tick on every viewer) pass their
// own notion of now and get identical output for identical input. Nothing here
// ticks, blocks or mutates.
package clock

import (
	"fmt"
	"time"

	"github.com/ligamaster/livematch/models"
)

type Period string

const (
	PeriodPreMatch   Period = "pre_match"
	PeriodFirstHalf  Period = "first_half"
	PeriodHalftime   Period = "halftime"
	PeriodSecondHalf Period = "second_half"
	PeriodFullTime   Period = "full_time"
	PeriodSuspended  Period = "suspended"
)

// Reading is what a scoreboard renders. Minute keeps counting past regulation
// (the scorekeeper ends halves manually); Display carries the conventional
// "45+3'" form once a half runs over.
type Reading struct {
	Period           Period `json:"period"`
	Minute           int    `json:"minute"`
	Second           int    `json:"second"`
	InAddedTime      bool   `json:"in_added_time"`
	AddedMinutes     int    `json:"added_minutes,omitempty"`
	HalftimeLeftSecs int    `json:"halftime_left_seconds,omitempty"`
	Display          string `json:"display"`
}

// Project derives the current clock reading for a match at the given instant.
func Project(m *models.Match, now time.Time) Reading {
	switch m.State {
	case models.MatchStateFirstHalf:
		return running(PeriodFirstHalf, elapsedSince(m.FirstHalfStartAt, now), 0, m.HalfDurationMin)
	case models.MatchStateHalftime:
		return halftime(m, now)
	case models.MatchStateSecondHalf:
		return running(PeriodSecondHalf, elapsedSince(m.SecondHalfStartAt, now), m.HalfDurationMin, 2*m.HalfDurationMin)
	case models.MatchStateEnded, models.MatchStateFinalized:
		return fullTime(m)
	case models.MatchStateSuspended:
		return suspended(m)
	default:
		return Reading{Period: PeriodPreMatch, Display: "0'"}
	}
}

// MatchMinute is the authoritative half/minute for a ledger append issued at
// the given instant. ok is false in states whose ledger is closed to
// minute-stamped entries.
func MatchMinute(m *models.Match, now time.Time) (half int, minute int, ok bool) {
	switch m.State {
	case models.MatchStateFirstHalf:
		return 1, int(elapsedSince(m.FirstHalfStartAt, now) / time.Minute), true
	case models.MatchStateHalftime:
		// Entries recorded in the break (a card in the tunnel) belong to the
		// closing minute of the first half.
		return 1, m.HalfDurationMin, true
	case models.MatchStateSecondHalf:
		return 2, m.HalfDurationMin + int(elapsedSince(m.SecondHalfStartAt, now)/time.Minute), true
	}
	return 0, 0, false
}

// HalfOpen reports whether entries recorded in the given half may still be
// edited: a minute is frozen once its half has ended.
func HalfOpen(m *models.Match, half int) bool {
	switch half {
	case 1:
		return m.State == models.MatchStateFirstHalf
	case 2:
		return m.State == models.MatchStateSecondHalf
	}
	return false
}

func elapsedSince(anchor *time.Time, now time.Time) time.Duration {
	if anchor == nil {
		return 0
	}
	d := now.Sub(*anchor)
	if d < 0 {
		return 0
	}
	return d
}

func running(period Period, elapsed time.Duration, offsetMin, regulationMin int) Reading {
	total := int(elapsed / time.Second)
	minute := offsetMin + total/60
	r := Reading{
		Period: period,
		Minute: minute,
		Second: total % 60,
	}
	if minute >= regulationMin {
		r.InAddedTime = true
		r.AddedMinutes = minute - regulationMin + 1
		r.Display = fmt.Sprintf("%d+%d'", regulationMin, r.AddedMinutes)
	} else {
		r.Display = fmt.Sprintf("%d'", minute)
	}
	return r
}

func halftime(m *models.Match, now time.Time) Reading {
	left := time.Duration(m.HalftimeMin)*time.Minute - elapsedSince(m.FirstHalfEndAt, now)
	if left < 0 {
		left = 0
	}
	// The countdown is advisory only: it never forces the second half to start.
	return Reading{
		Period:           PeriodHalftime,
		Minute:           m.HalfDurationMin,
		HalftimeLeftSecs: int(left / time.Second),
		Display:          "HT",
	}
}

func fullTime(m *models.Match) Reading {
	r := frozenAt(m, m.EndedAt)
	r.Period = PeriodFullTime
	r.Display = "FT"
	return r
}

func suspended(m *models.Match) Reading {
	r := frozenAt(m, m.SuspendedAt)
	r.Period = PeriodSuspended
	r.Display = "SUSP"
	return r
}

// frozenAt replays the running-clock arithmetic at the instant the match
// stopped, using whichever half was open then.
func frozenAt(m *models.Match, stopped *time.Time) Reading {
	at := time.Time{}
	if stopped != nil {
		at = *stopped
	}
	switch {
	case m.SecondHalfStartAt != nil:
		return running(PeriodSecondHalf, elapsedSince(m.SecondHalfStartAt, at), m.HalfDurationMin, 2*m.HalfDurationMin)
	case m.FirstHalfEndAt != nil:
		return Reading{Minute: m.HalfDurationMin}
	case m.FirstHalfStartAt != nil:
		return running(PeriodFirstHalf, elapsedSince(m.FirstHalfStartAt, at), 0, m.HalfDurationMin)
	default:
		return Reading{}
	}
}
