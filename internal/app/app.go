package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/dojang/internal/catalog"
	"github.com/abhisek/dojang/internal/export"
	"github.com/abhisek/dojang/internal/logger"
	"github.com/abhisek/dojang/internal/progress"
	"github.com/abhisek/dojang/internal/session"
	"github.com/abhisek/dojang/internal/spacedrep"
	"github.com/abhisek/dojang/internal/store"
)

// ErrUnknownProfile is returned when a profile id has no stored profile.
var ErrUnknownProfile = errors.New("app: unknown profile")

// Options configures Open. A nil Catalog loads the built-in curriculum.
type Options struct {
	DBPath    string
	Catalog   *catalog.Catalog
	Intervals spacedrep.Intervals
	Logger    *logger.Logger
}

// App wires the store, catalog, scheduler and session recorder together.
type App struct {
	Store     *store.Store
	Catalog   *catalog.Catalog
	Profiles  *store.ProfileRepo
	Scheduler *spacedrep.Scheduler
	Recorder  *session.Recorder

	sessions *store.SessionRepo
	log      *logger.Logger
}

// Open opens the database and builds every service on top of it.
func Open(opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	cat := opts.Catalog
	if cat == nil {
		var err error
		cat, err = catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("load built-in catalog: %w", err)
		}
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sched, err := spacedrep.NewScheduler(st.MasteryRepo(), cat, spacedrep.Config{
		Intervals: opts.Intervals,
		Logger:    log.With("component", "scheduler"),
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	sessions := st.SessionRepo()
	log.Debug("app opened", "db", opts.DBPath, "catalog_version", cat.Version(), "entries", cat.Len())

	return &App{
		Store:     st,
		Catalog:   cat,
		Profiles:  st.ProfileRepo(),
		Scheduler: sched,
		Recorder:  session.NewRecorder(sessions, session.Config{Logger: log.With("component", "session")}),
		sessions:  sessions,
		log:       log,
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.Store.Close()
}

// Profile loads a stored profile.
func (a *App) Profile(ctx context.Context, id string) (catalog.Profile, error) {
	p, err := a.Profiles.Get(ctx, id)
	if err != nil {
		return catalog.Profile{}, err
	}
	if p == nil {
		return catalog.Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, id)
	}
	return *p, nil
}

// Due returns up to max entries the profile should review now, limited to
// what its rank unlocks.
func (a *App) Due(ctx context.Context, profileID string, max int, now time.Time) ([]catalog.Entry, error) {
	p, err := a.Profile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return a.Scheduler.NextBatch(ctx, p.ID, a.Catalog.Eligible(p), max, now)
}

// Review records one outcome. When sessionID is empty the review is also
// logged to the profile's open session, if it has one. The session is
// checked before the mastery record changes so a closed or foreign session
// leaves the ledger untouched.
func (a *App) Review(ctx context.Context, profileID, sessionID, entryID string, outcome spacedrep.Outcome, now time.Time) (spacedrep.MasteryRecord, error) {
	if _, err := a.Profile(ctx, profileID); err != nil {
		return spacedrep.MasteryRecord{}, err
	}

	var s *session.StudySession
	var err error
	if sessionID == "" {
		s, err = a.Recorder.OpenSessionFor(ctx, profileID)
	} else {
		s, err = a.Recorder.Session(ctx, sessionID)
	}
	if err != nil {
		return spacedrep.MasteryRecord{}, err
	}
	if s != nil {
		if s.ProfileID != profileID {
			return spacedrep.MasteryRecord{}, fmt.Errorf("%w: session %s belongs to another profile", spacedrep.ErrInvalidArgument, s.ID)
		}
		if !s.Open() {
			return spacedrep.MasteryRecord{}, fmt.Errorf("%w: %s", session.ErrSessionClosed, s.ID)
		}
	}

	rec, err := a.Scheduler.RecordOutcome(ctx, profileID, entryID, outcome, now)
	if err != nil {
		return spacedrep.MasteryRecord{}, err
	}
	if s != nil {
		if err := a.Recorder.AppendReview(ctx, s.ID, entryID, outcome, now); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// Reset clears the profile's mastery records, and its session history too
// when withHistory is set.
func (a *App) Reset(ctx context.Context, profileID string, withHistory bool) error {
	if err := a.Scheduler.ResetProfile(ctx, profileID); err != nil {
		return err
	}
	if !withHistory {
		return nil
	}
	n, err := a.sessions.DeleteProfileSessions(ctx, profileID)
	if err != nil {
		return err
	}
	a.log.Info("session history cleared", "profile_id", profileID, "deleted", n)
	return nil
}

// Stats builds the profile's progress report.
func (a *App) Stats(ctx context.Context, profileID string, now time.Time) (progress.Report, error) {
	records, sessions, err := a.history(ctx, profileID)
	if err != nil {
		return progress.Report{}, err
	}
	return progress.Build(records, sessions, now), nil
}

// Export builds the profile's export document.
func (a *App) Export(ctx context.Context, profileID string, now time.Time) (export.Document, error) {
	p, err := a.Profile(ctx, profileID)
	if err != nil {
		return export.Document{}, err
	}
	records, sessions, err := a.history(ctx, profileID)
	if err != nil {
		return export.Document{}, err
	}
	return export.Build(p, records, sessions, now), nil
}

// ExportAll builds a bundle with the export of every stored profile.
func (a *App) ExportAll(ctx context.Context, now time.Time) (export.Bundle, error) {
	profiles, err := a.Profiles.List(ctx)
	if err != nil {
		return export.Bundle{}, err
	}
	docs := make([]export.Document, 0, len(profiles))
	for _, p := range profiles {
		records, sessions, err := a.history(ctx, p.ID)
		if err != nil {
			return export.Bundle{}, fmt.Errorf("export %s: %w", p.ID, err)
		}
		docs = append(docs, export.Build(p, records, sessions, now))
	}
	return export.NewBundle(docs, now), nil
}

// history loads records and sessions concurrently. The two reads are
// independent and WAL mode lets them run side by side.
func (a *App) history(ctx context.Context, profileID string) ([]spacedrep.MasteryRecord, []session.StudySession, error) {
	var (
		records  []spacedrep.MasteryRecord
		sessions []session.StudySession
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = a.Scheduler.Records(gctx, profileID)
		return err
	})
	g.Go(func() error {
		var err error
		sessions, err = a.Recorder.History(gctx, profileID, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, sessions, nil
}
