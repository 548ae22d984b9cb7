package spacedrep

import (
	"fmt"
	"time"
)

// Outcome is the binary result of a single review.
type Outcome string

const (
	Correct   Outcome = "correct"
	Incorrect Outcome = "incorrect"
)

// Validate returns ErrInvalidArgument for anything but Correct or Incorrect.
func (o Outcome) Validate() error {
	switch o {
	case Correct, Incorrect:
		return nil
	}
	return fmt.Errorf("%w: outcome %q", ErrInvalidArgument, string(o))
}

// ParseOutcome accepts "correct"/"incorrect" and the shorthands y/n.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "correct", "c", "y", "yes":
		return Correct, nil
	case "incorrect", "i", "n", "no":
		return Incorrect, nil
	}
	return "", fmt.Errorf("%w: outcome %q", ErrInvalidArgument, s)
}

// MasteryRecord is the spaced repetition state for one (profile, entry) pair.
type MasteryRecord struct {
	ProfileID          string     `json:"profile_id"`
	EntryID            string     `json:"entry_id"`
	Box                int        `json:"box"`
	DueAt              time.Time  `json:"due_at"`
	LastReviewedAt     *time.Time `json:"last_reviewed_at,omitempty"`
	ConsecutiveCorrect int        `json:"consecutive_correct"`
}

// newRecord is the implicit state of an entry that has never been reviewed.
func newRecord(profileID, entryID string, now time.Time) MasteryRecord {
	return MasteryRecord{
		ProfileID: profileID,
		EntryID:   entryID,
		Box:       0,
		DueAt:     now,
	}
}

// IsDue returns true if the record is at or past its due time.
func (r MasteryRecord) IsDue(now time.Time) bool {
	return !now.Before(r.DueAt)
}

// Overdue returns how long past due the record is, or 0 if not yet due.
func (r MasteryRecord) Overdue(now time.Time) time.Duration {
	if now.Before(r.DueAt) {
		return 0
	}
	return now.Sub(r.DueAt)
}

// Transition applies one outcome to rec and returns the new value. rec is
// not modified. Correct moves up one box (capped at MaxBox); incorrect drops
// one box (floored at 0) and resets the streak.
func Transition(rec MasteryRecord, outcome Outcome, now time.Time, iv Intervals) MasteryRecord {
	next := rec
	next.Box = clampBox(rec.Box)

	switch outcome {
	case Correct:
		next.Box = clampBox(next.Box + 1)
		next.ConsecutiveCorrect = rec.ConsecutiveCorrect + 1
	case Incorrect:
		next.Box = clampBox(next.Box - 1)
		next.ConsecutiveCorrect = 0
	}

	reviewed := now
	next.LastReviewedAt = &reviewed
	next.DueAt = now.Add(iv.For(next.Box))
	return next
}

// MasteryLevel is the learner-facing label for a box.
type MasteryLevel string

const (
	LevelLearning   MasteryLevel = "learning"
	LevelFamiliar   MasteryLevel = "familiar"
	LevelProficient MasteryLevel = "proficient"
	LevelMastered   MasteryLevel = "mastered"
)

// Levels lists mastery levels from lowest to highest.
var Levels = []MasteryLevel{LevelLearning, LevelFamiliar, LevelProficient, LevelMastered}

// LevelForBox maps boxes 0-1 to learning, 2 to familiar, 3 to proficient
// and 4 to mastered.
func LevelForBox(box int) MasteryLevel {
	switch clampBox(box) {
	case 0, 1:
		return LevelLearning
	case 2:
		return LevelFamiliar
	case 3:
		return LevelProficient
	default:
		return LevelMastered
	}
}

// Level returns the record's mastery level.
func (r MasteryRecord) Level() MasteryLevel {
	return LevelForBox(r.Box)
}
