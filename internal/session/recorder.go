package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/dojang/internal/keylock"
	"github.com/abhisek/dojang/internal/logger"
	"github.com/abhisek/dojang/internal/spacedrep"
)

// Config tunes the recorder. Zero values take defaults.
type Config struct {
	Logger *logger.Logger

	// NewID generates session ids. Defaults to random UUIDs.
	NewID func() string
}

// Recorder owns study sessions. At most one session per profile is open at
// a time; operations on the same profile are serialized in process, and the
// Repo enforces the same rules between processes.
type Recorder struct {
	repo  Repo
	log   *logger.Logger
	newID func() string
	locks keylock.Map
}

// NewRecorder creates a Recorder backed by repo.
func NewRecorder(repo Repo, cfg Config) *Recorder {
	r := &Recorder{
		repo:  repo,
		log:   cfg.Logger,
		newID: cfg.NewID,
	}
	if r.log == nil {
		r.log = logger.Nop()
	}
	if r.newID == nil {
		r.newID = func() string { return uuid.New().String() }
	}
	return r
}

// OpenSession starts a session for the profile and returns its id. It fails
// with ErrSessionAlreadyOpen if the profile has one open already.
func (r *Recorder) OpenSession(ctx context.Context, profileID string, kind Kind, now time.Time) (string, error) {
	if profileID == "" {
		return "", fmt.Errorf("%w: empty profile id", ErrInvalidArgument)
	}
	kind, err := ParseKind(string(kind))
	if err != nil {
		return "", err
	}

	unlock := r.locks.Lock(profileID)
	defer unlock()

	open, err := r.repo.OpenSessionFor(ctx, profileID)
	if err != nil {
		return "", fmt.Errorf("query open session: %w", err)
	}
	if open != nil {
		r.log.Warn("session already open", "profile_id", profileID, "session_id", open.ID)
		return "", fmt.Errorf("%w: %s", ErrSessionAlreadyOpen, open.ID)
	}

	s := StudySession{
		ID:        r.newID(),
		ProfileID: profileID,
		Kind:      kind,
		StartedAt: now,
	}
	if err := r.repo.CreateSession(ctx, s); err != nil {
		if errors.Is(err, ErrSessionAlreadyOpen) {
			r.log.Warn("session already open", "profile_id", profileID)
			return "", err
		}
		return "", fmt.Errorf("create session: %w", err)
	}

	r.log.Info("session opened", "profile_id", profileID, "session_id", s.ID, "kind", string(kind))
	return s.ID, nil
}

// AppendReview adds a review line to an open session.
func (r *Recorder) AppendReview(ctx context.Context, sessionID, entryID string, outcome spacedrep.Outcome, now time.Time) error {
	if err := outcome.Validate(); err != nil {
		return err
	}
	if entryID == "" {
		return fmt.Errorf("%w: empty entry id", ErrInvalidArgument)
	}

	s, unlock, err := r.lockSession(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	if !s.Open() {
		return fmt.Errorf("%w: %s", ErrSessionClosed, sessionID)
	}

	if err := r.repo.AppendReview(ctx, sessionID, Review{EntryID: entryID, Outcome: outcome, At: now}); err != nil {
		return fmt.Errorf("append review: %w", err)
	}
	return nil
}

// CloseSession freezes the session and returns its summary. Closing an
// already closed session returns the stored summary unchanged.
func (r *Recorder) CloseSession(ctx context.Context, sessionID string, now time.Time) (Summary, error) {
	s, unlock, err := r.lockSession(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	defer unlock()

	if !s.Open() {
		if s.Summary != nil {
			return *s.Summary, nil
		}
		return BuildSummary(s, *s.EndedAt), nil
	}

	if now.Before(s.StartedAt) {
		return Summary{}, fmt.Errorf("%w: close time %s precedes start %s",
			ErrInvalidArgument, now.Format(time.RFC3339), s.StartedAt.Format(time.RFC3339))
	}

	err = r.repo.CloseSession(ctx, sessionID, BuildSummary(s, now))
	if err != nil && !errors.Is(err, ErrSessionClosed) {
		return Summary{}, fmt.Errorf("close session: %w", err)
	}
	lostRace := err != nil

	// Return what was stored. Totals there are counted from the log, and a
	// close that got there first keeps its own summary.
	closed, err := r.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Summary{}, fmt.Errorf("get session: %w", err)
	}
	if closed == nil {
		return Summary{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if closed.Summary == nil {
		return Summary{}, fmt.Errorf("%w: %s has no summary after close", ErrSessionClosed, sessionID)
	}
	sum := *closed.Summary
	if lostRace {
		return sum, nil
	}

	r.log.Info("session closed",
		"profile_id", s.ProfileID,
		"session_id", sessionID,
		"reviews", sum.TotalReviews,
		"accuracy", sum.Accuracy,
		"duration", sum.Duration,
	)
	return sum, nil
}

// Session returns a session with its review log.
func (r *Recorder) Session(ctx context.Context, sessionID string) (*StudySession, error) {
	s, err := r.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// OpenSessionFor returns the profile's open session, or nil.
func (r *Recorder) OpenSessionFor(ctx context.Context, profileID string) (*StudySession, error) {
	s, err := r.repo.OpenSessionFor(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("query open session: %w", err)
	}
	return s, nil
}

// History returns the profile's sessions, newest first.
func (r *Recorder) History(ctx context.Context, profileID string, limit int) ([]StudySession, error) {
	sessions, err := r.repo.ListSessions(ctx, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// lockSession resolves the session's profile, takes that profile's lock and
// reloads the session under it.
func (r *Recorder) lockSession(ctx context.Context, sessionID string) (*StudySession, func(), error) {
	s, err := r.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get session: %w", err)
	}
	if s == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	unlock := r.locks.Lock(s.ProfileID)
	s, err = r.repo.GetSession(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, nil, fmt.Errorf("get session: %w", err)
	}
	if s == nil {
		unlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, unlock, nil
}
