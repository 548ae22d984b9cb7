// Package progress derives read-only study statistics from mastery records
// and session history.
package progress

import (
	"time"

	"github.com/abhisek/dojang/internal/session"
	"github.com/abhisek/dojang/internal/spacedrep"
)

// Report summarizes one profile's progress at a point in time.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	// Boxes counts records per Leitner box.
	Boxes [spacedrep.NumBoxes]int `json:"boxes"`

	// Levels counts records per mastery level.
	Levels map[spacedrep.MasteryLevel]int `json:"levels"`

	TrackedEntries int `json:"tracked_entries"`
	DueNow         int `json:"due_now"`

	TotalSessions int           `json:"total_sessions"`
	TotalReviews  int           `json:"total_reviews"`
	CorrectCount  int           `json:"correct_count"`
	Accuracy      float64       `json:"accuracy"`
	StudyTime     time.Duration `json:"study_time"`

	// StreakDays is the number of consecutive calendar days, ending today or
	// yesterday, with at least one closed session.
	StreakDays int `json:"streak_days"`
}

// Build computes a Report. Open sessions count toward TotalSessions but not
// toward the review, accuracy, study time or streak figures.
func Build(records []spacedrep.MasteryRecord, sessions []session.StudySession, now time.Time) Report {
	rep := Report{
		GeneratedAt: now,
		Levels:      make(map[spacedrep.MasteryLevel]int, len(spacedrep.Levels)),
	}
	for _, lvl := range spacedrep.Levels {
		rep.Levels[lvl] = 0
	}

	for _, rec := range records {
		box := rec.Box
		if box < 0 {
			box = 0
		}
		if box > spacedrep.MaxBox {
			box = spacedrep.MaxBox
		}
		rep.Boxes[box]++
		rep.Levels[spacedrep.LevelForBox(box)]++
		if rec.IsDue(now) {
			rep.DueNow++
		}
	}
	rep.TrackedEntries = len(records)

	days := make(map[string]bool)
	for _, s := range sessions {
		rep.TotalSessions++
		if s.Summary == nil {
			continue
		}
		rep.TotalReviews += s.Summary.TotalReviews
		rep.CorrectCount += s.Summary.CorrectCount
		rep.StudyTime += s.Summary.Duration
		days[dayKey(s.Summary.EndedAt, now.Location())] = true
	}
	if rep.TotalReviews > 0 {
		rep.Accuracy = float64(rep.CorrectCount) / float64(rep.TotalReviews)
	}
	rep.StreakDays = streak(days, now)

	return rep
}

// streak counts back from today, or from yesterday if today has no session.
func streak(days map[string]bool, now time.Time) int {
	day := now
	if !days[dayKey(day, now.Location())] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for days[dayKey(day, now.Location())] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}
