package session

import (
	"time"

	"github.com/abhisek/dojang/internal/spacedrep"
)

// Summary holds the totals of a closed session.
type Summary struct {
	SessionID    string        `json:"session_id"`
	ProfileID    string        `json:"profile_id"`
	Kind         Kind          `json:"kind"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      time.Time     `json:"ended_at"`
	TotalReviews int           `json:"total_reviews"`
	CorrectCount int           `json:"correct_count"`
	Accuracy     float64       `json:"accuracy"`
	Duration     time.Duration `json:"duration"`
}

// BuildSummary computes the totals for s as if it ended at endedAt.
func BuildSummary(s *StudySession, endedAt time.Time) Summary {
	correct := 0
	for _, r := range s.Reviews {
		if r.Outcome == spacedrep.Correct {
			correct++
		}
	}

	var accuracy float64
	if len(s.Reviews) > 0 {
		accuracy = float64(correct) / float64(len(s.Reviews))
	}

	return Summary{
		SessionID:    s.ID,
		ProfileID:    s.ProfileID,
		Kind:         s.Kind,
		StartedAt:    s.StartedAt,
		EndedAt:      endedAt,
		TotalReviews: len(s.Reviews),
		CorrectCount: correct,
		Accuracy:     accuracy,
		Duration:     endedAt.Sub(s.StartedAt),
	}
}
