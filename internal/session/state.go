package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/dojang/internal/spacedrep"
)

// Lifecycle errors. All are deterministic caller errors, never transient.
var (
	ErrSessionAlreadyOpen = errors.New("session: profile already has an open session")
	ErrSessionClosed      = errors.New("session: session is closed")
	ErrSessionNotFound    = errors.New("session: session not found")

	// ErrInvalidArgument is shared with the scheduler so callers match one
	// value for malformed input.
	ErrInvalidArgument = spacedrep.ErrInvalidArgument
)

// Kind describes what a session practised.
type Kind string

const (
	KindFlashcards Kind = "flashcards"
	KindTesting    Kind = "testing"
	KindPatterns   Kind = "patterns"
	KindMixed      Kind = "mixed"
)

// ParseKind validates a session kind. Empty means mixed.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case "":
		return KindMixed, nil
	case KindFlashcards, KindTesting, KindPatterns, KindMixed:
		return k, nil
	}
	return "", fmt.Errorf("%w: session kind %q", ErrInvalidArgument, s)
}

// Review is one line of a session's append-only log.
type Review struct {
	EntryID string            `json:"entry_id"`
	Outcome spacedrep.Outcome `json:"outcome"`
	At      time.Time         `json:"at"`
}

// StudySession groups the reviews of one study run. Once EndedAt is set the
// session is frozen and Summary holds its totals.
type StudySession struct {
	ID        string     `json:"id"`
	ProfileID string     `json:"profile_id"`
	Kind      Kind       `json:"kind"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Reviews   []Review   `json:"reviews"`
	Summary   *Summary   `json:"summary,omitempty"`
}

// Open reports whether the session is still accepting reviews.
func (s *StudySession) Open() bool {
	return s.EndedAt == nil
}

// Repo persists sessions and their review logs.
type Repo interface {
	// CreateSession inserts a new open session. It returns
	// ErrSessionAlreadyOpen if the profile already has one.
	CreateSession(ctx context.Context, s StudySession) error

	// GetSession returns the session with its reviews, or nil if unknown.
	GetSession(ctx context.Context, id string) (*StudySession, error)

	// OpenSessionFor returns the profile's open session, or nil.
	OpenSessionFor(ctx context.Context, profileID string) (*StudySession, error)

	// AppendReview adds one review line to an open session, or returns
	// ErrSessionClosed.
	AppendReview(ctx context.Context, sessionID string, r Review) error

	// CloseSession freezes the session with the given summary. It returns
	// ErrSessionClosed if the session was already closed; the stored summary
	// is then left untouched.
	CloseSession(ctx context.Context, sessionID string, sum Summary) error

	// ListSessions returns the profile's sessions newest first, without
	// review lines. limit <= 0 means all.
	ListSessions(ctx context.Context, profileID string, limit int) ([]StudySession, error)
}
