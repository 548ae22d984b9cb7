package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/dojang/internal/catalog"
	"github.com/abhisek/dojang/internal/session"
	"github.com/abhisek/dojang/internal/spacedrep"
)

// openTwoHandles opens the same database file twice, the way two CLI
// processes would.
func openTwoHandles(t *testing.T) (*Store, *Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := Open(path)
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	b, err := Open(path)
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return a, b
}

func countOpenSessions(t *testing.T, s *Store, profileID string) int {
	t.Helper()
	var n int
	err := s.DB().QueryRow(
		"SELECT COUNT(*) FROM "+sessionsTable+" WHERE profile_id = ? AND ended_at IS NULL", profileID,
	).Scan(&n)
	if err != nil {
		t.Fatalf("count open sessions: %v", err)
	}
	return n
}

func TestOpenSessionAcrossHandles(t *testing.T) {
	a, b := openTwoHandles(t)
	ctx := context.Background()
	recorders := []*session.Recorder{
		session.NewRecorder(a.SessionRepo(), session.Config{}),
		session.NewRecorder(b.SessionRepo(), session.Config{}),
	}

	const n = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	opened, rejected := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(rec *session.Recorder) {
			defer wg.Done()
			_, err := rec.OpenSession(ctx, "P", session.KindMixed, t0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				opened++
			case errors.Is(err, session.ErrSessionAlreadyOpen):
				rejected++
			default:
				t.Errorf("open: %v", err)
			}
		}(recorders[i%2])
	}
	wg.Wait()

	if opened != 1 || rejected != n-1 {
		t.Errorf("opened=%d rejected=%d, want 1 and %d", opened, rejected, n-1)
	}
	if got := countOpenSessions(t, a, "P"); got != 1 {
		t.Errorf("%d open sessions for P, want 1", got)
	}
}

func TestCreateSessionRejectedByIndex(t *testing.T) {
	a, b := openTwoHandles(t)
	ctx := context.Background()

	if err := a.SessionRepo().CreateSession(ctx, session.StudySession{
		ID: "s1", ProfileID: "P", Kind: session.KindMixed, StartedAt: t0,
	}); err != nil {
		t.Fatalf("create s1: %v", err)
	}

	// Skips the recorder's check: only the index stands in the way.
	err := b.SessionRepo().CreateSession(ctx, session.StudySession{
		ID: "s2", ProfileID: "P", Kind: session.KindMixed, StartedAt: t0,
	})
	if !errors.Is(err, session.ErrSessionAlreadyOpen) {
		t.Fatalf("err = %v, want ErrSessionAlreadyOpen", err)
	}

	// Another profile, and the same profile once s1 is closed, are fine.
	if err := b.SessionRepo().CreateSession(ctx, session.StudySession{
		ID: "s3", ProfileID: "Q", Kind: session.KindMixed, StartedAt: t0,
	}); err != nil {
		t.Fatalf("create s3: %v", err)
	}
	if err := a.SessionRepo().CloseSession(ctx, "s1", session.Summary{EndedAt: t0.Add(time.Minute)}); err != nil {
		t.Fatalf("close s1: %v", err)
	}
	if err := b.SessionRepo().CreateSession(ctx, session.StudySession{
		ID: "s4", ProfileID: "P", Kind: session.KindMixed, StartedAt: t0.Add(time.Hour),
	}); err != nil {
		t.Fatalf("create s4: %v", err)
	}
}

func TestCloseSessionAcrossHandles(t *testing.T) {
	a, b := openTwoHandles(t)
	ctx := context.Background()
	ra := session.NewRecorder(a.SessionRepo(), session.Config{})
	rb := session.NewRecorder(b.SessionRepo(), session.Config{})

	id, err := ra.OpenSession(ctx, "P", session.KindTesting, t0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, o := range []spacedrep.Outcome{spacedrep.Correct, spacedrep.Incorrect} {
		if err := rb.AppendReview(ctx, id, "e1", o, t0.Add(time.Second)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	var wg sync.WaitGroup
	sums := make([]session.Summary, 2)
	errs := make([]error, 2)
	for i, rec := range []*session.Recorder{ra, rb} {
		wg.Add(1)
		go func(i int, rec *session.Recorder) {
			defer wg.Done()
			sums[i], errs[i] = rec.CloseSession(ctx, id, t0.Add(time.Duration(i+1)*time.Minute))
		}(i, rec)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
	if sums[0] != sums[1] {
		t.Errorf("closers disagree:\n%+v\n%+v", sums[0], sums[1])
	}
	if sums[0].TotalReviews != 2 || sums[0].CorrectCount != 1 {
		t.Errorf("summary = %+v, want 2 reviews with 1 correct", sums[0])
	}

	err = ra.AppendReview(ctx, id, "e2", spacedrep.Correct, t0.Add(time.Hour))
	if !errors.Is(err, session.ErrSessionClosed) {
		t.Errorf("append after close err = %v, want ErrSessionClosed", err)
	}
}

func TestCloseSessionCountsStoredReviews(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	if err := repo.CreateSession(ctx, session.StudySession{
		ID: "s1", ProfileID: "P", Kind: session.KindMixed, StartedAt: t0,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, o := range []spacedrep.Outcome{spacedrep.Correct, spacedrep.Correct, spacedrep.Incorrect} {
		if err := repo.AppendReview(ctx, "s1", session.Review{EntryID: "e1", Outcome: o, At: t0}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	// A summary built before the last appends.
	stale := session.Summary{EndedAt: t0.Add(time.Minute), Duration: time.Minute, TotalReviews: 1, CorrectCount: 1}
	if err := repo.CloseSession(ctx, "s1", stale); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := repo.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Summary.TotalReviews != 3 || got.Summary.CorrectCount != 2 {
		t.Errorf("summary = %+v, want 3 reviews with 2 correct", got.Summary)
	}
}

func TestRecordOutcomeAcrossHandles(t *testing.T) {
	a, b := openTwoHandles(t)
	ctx := context.Background()

	cat, err := catalog.New("v1.0.0", []catalog.Entry{{ID: "E", GateLevel: 1}})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	var scheds []*spacedrep.Scheduler
	for _, s := range []*Store{a, b} {
		sched, err := spacedrep.NewScheduler(s.MasteryRepo(), cat, spacedrep.Config{})
		if err != nil {
			t.Fatalf("scheduler: %v", err)
		}
		scheds = append(scheds, sched)
	}

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(sched *spacedrep.Scheduler) {
			defer wg.Done()
			if _, err := sched.RecordOutcome(ctx, "P", "E", spacedrep.Correct, t0); err != nil {
				t.Errorf("record: %v", err)
			}
		}(scheds[i%2])
	}
	wg.Wait()

	rec, err := a.MasteryRepo().GetRecord(ctx, "P", "E")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil {
		t.Fatal("record missing")
	}
	if rec.ConsecutiveCorrect != n {
		t.Errorf("ConsecutiveCorrect = %d, want %d", rec.ConsecutiveCorrect, n)
	}
	if rec.Box != spacedrep.MaxBox {
		t.Errorf("Box = %d, want %d", rec.Box, spacedrep.MaxBox)
	}
}

func TestDeleteProfileSessionsIsAtomic(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	rec := session.NewRecorder(repo, session.Config{})
	id, err := rec.OpenSession(ctx, "P", session.KindMixed, t0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := rec.AppendReview(ctx, id, "e1", spacedrep.Correct, t0); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Fail the second statement of the delete.
	if _, err := s.DB().Exec(`CREATE TRIGGER block_session_delete BEFORE DELETE ON ` + sessionsTable + `
		BEGIN SELECT RAISE(ABORT, 'blocked'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if _, err := repo.DeleteProfileSessions(ctx, "P"); err == nil {
		t.Fatal("expected delete to fail")
	}

	var reviews int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM " + reviewsTable).Scan(&reviews); err != nil {
		t.Fatalf("count reviews: %v", err)
	}
	if reviews != 1 {
		t.Errorf("%d reviews left after failed delete, want 1", reviews)
	}
}
