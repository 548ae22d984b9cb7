package spacedrep

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/abhisek/dojang/internal/catalog"
	"github.com/abhisek/dojang/internal/keylock"
	"github.com/abhisek/dojang/internal/logger"
)

// Repo persists mastery records keyed by (profile, entry).
type Repo interface {
	// GetRecord returns the record, or nil if the pair was never reviewed.
	GetRecord(ctx context.Context, profileID, entryID string) (*MasteryRecord, error)

	// RecordsForProfile returns every record for the profile.
	RecordsForProfile(ctx context.Context, profileID string) ([]MasteryRecord, error)

	// UpdateRecord atomically replaces the pair's record with fn's result.
	// fn receives nil when the pair was never reviewed. The read and the
	// write must not interleave with another update of the same pair, even
	// from another process.
	UpdateRecord(ctx context.Context, profileID, entryID string, fn func(current *MasteryRecord) MasteryRecord) (MasteryRecord, error)

	// DeleteProfileRecords removes all records for the profile and returns
	// how many were deleted.
	DeleteProfileRecords(ctx context.Context, profileID string) (int, error)
}

// EntryLookup resolves entry ids. *catalog.Catalog implements it.
type EntryLookup interface {
	Lookup(id string) (catalog.Entry, bool)
}

// Config tunes the scheduler. Zero values take defaults.
type Config struct {
	Intervals Intervals
	Logger    *logger.Logger
}

// Scheduler runs the Leitner engine over a Repo. Calls for the same profile
// are serialized; calls for different profiles run independently.
type Scheduler struct {
	repo      Repo
	entries   EntryLookup
	intervals Intervals
	log       *logger.Logger
	locks     keylock.Map
}

// NewScheduler creates a scheduler. It fails if the configured intervals
// are not strictly increasing.
func NewScheduler(repo Repo, entries EntryLookup, cfg Config) (*Scheduler, error) {
	iv := cfg.Intervals
	if iv == (Intervals{}) {
		iv = DefaultIntervals
	}
	if err := iv.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		repo:      repo,
		entries:   entries,
		intervals: iv,
		log:       log,
	}, nil
}

// Intervals returns the active schedule.
func (s *Scheduler) Intervals() Intervals {
	return s.intervals
}

type candidate struct {
	entry  catalog.Entry
	dueAt  time.Time
	exists bool
}

// NextBatch returns up to maxSize entries from eligible that are due at now,
// oldest due first. Never-reviewed entries count as due at now and sort
// ahead of reviewed entries due at the same instant. Nothing due yields an
// empty slice.
func (s *Scheduler) NextBatch(ctx context.Context, profileID string, eligible []catalog.Entry, maxSize int, now time.Time) ([]catalog.Entry, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: maxSize must be positive, got %d", ErrInvalidArgument, maxSize)
	}

	unlock := s.locks.Lock(profileID)
	defer unlock()

	records, err := s.repo.RecordsForProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	byEntry := make(map[string]MasteryRecord, len(records))
	for _, r := range records {
		byEntry[r.EntryID] = r
	}

	seen := make(map[string]bool, len(eligible))
	due := make([]candidate, 0, len(eligible))
	for _, e := range eligible {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true

		rec, ok := byEntry[e.ID]
		if !ok {
			due = append(due, candidate{entry: e, dueAt: now})
			continue
		}
		if rec.IsDue(now) {
			due = append(due, candidate{entry: e, dueAt: rec.DueAt, exists: true})
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].dueAt.Equal(due[j].dueAt) {
			return due[i].dueAt.Before(due[j].dueAt)
		}
		if due[i].exists != due[j].exists {
			return !due[i].exists
		}
		return due[i].entry.ID < due[j].entry.ID
	})

	if len(due) > maxSize {
		due = due[:maxSize]
	}

	batch := make([]catalog.Entry, len(due))
	for i, c := range due {
		batch[i] = c.entry
	}

	s.log.Debug("next batch selected",
		"profile_id", profileID,
		"eligible", len(eligible),
		"due", len(batch),
	)
	return batch, nil
}

// RecordOutcome applies a review outcome to the (profile, entry) record,
// creating it at box 0 if absent, and returns the updated record.
func (s *Scheduler) RecordOutcome(ctx context.Context, profileID, entryID string, outcome Outcome, now time.Time) (MasteryRecord, error) {
	if err := outcome.Validate(); err != nil {
		return MasteryRecord{}, err
	}
	if profileID == "" {
		return MasteryRecord{}, fmt.Errorf("%w: empty profile id", ErrInvalidArgument)
	}
	if _, ok := s.entries.Lookup(entryID); !ok {
		return MasteryRecord{}, fmt.Errorf("%w: %q", ErrUnknownEntry, entryID)
	}

	unlock := s.locks.Lock(profileID)
	defer unlock()

	var prev MasteryRecord
	next, err := s.repo.UpdateRecord(ctx, profileID, entryID, func(current *MasteryRecord) MasteryRecord {
		prev = newRecord(profileID, entryID, now)
		if current != nil {
			prev = *current
		}
		return Transition(prev, outcome, now, s.intervals)
	})
	if err != nil {
		return MasteryRecord{}, fmt.Errorf("save record: %w", err)
	}

	s.log.Debug("outcome recorded",
		"profile_id", profileID,
		"entry_id", entryID,
		"outcome", string(outcome),
		"from_box", prev.Box,
		"to_box", next.Box,
		"due_at", next.DueAt,
	)
	return next, nil
}

// Record returns the stored record for the pair, or nil if never reviewed.
func (s *Scheduler) Record(ctx context.Context, profileID, entryID string) (*MasteryRecord, error) {
	unlock := s.locks.Lock(profileID)
	defer unlock()

	rec, err := s.repo.GetRecord(ctx, profileID, entryID)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	return rec, nil
}

// Records returns every stored record for the profile.
func (s *Scheduler) Records(ctx context.Context, profileID string) ([]MasteryRecord, error) {
	unlock := s.locks.Lock(profileID)
	defer unlock()

	recs, err := s.repo.RecordsForProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return recs, nil
}

// ResetProfile deletes every record for the profile. Resetting a profile
// with no records succeeds.
func (s *Scheduler) ResetProfile(ctx context.Context, profileID string) error {
	unlock := s.locks.Lock(profileID)
	defer unlock()

	n, err := s.repo.DeleteProfileRecords(ctx, profileID)
	if err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	s.log.Info("profile reset", "profile_id", profileID, "deleted", n)
	return nil
}
