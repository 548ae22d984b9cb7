package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/dojang/internal/spacedrep"
)

// mockRepo is an in-memory Repo for tests.
type mockRepo struct {
	mu       sync.Mutex
	sessions map[string]*StudySession

	// beforeClose runs ahead of CloseSession without the lock held.
	beforeClose func(sessionID string)
}

func newMockRepo() *mockRepo {
	return &mockRepo{sessions: make(map[string]*StudySession)}
}

func clone(s *StudySession) *StudySession {
	c := *s
	c.Reviews = append([]Review(nil), s.Reviews...)
	if s.Summary != nil {
		sum := *s.Summary
		c.Summary = &sum
	}
	return &c
}

func (m *mockRepo) CreateSession(_ context.Context, s StudySession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("duplicate id %s", s.ID)
	}
	for _, other := range m.sessions {
		if other.ProfileID == s.ProfileID && other.Open() {
			return fmt.Errorf("%w: profile %s", ErrSessionAlreadyOpen, s.ProfileID)
		}
	}
	m.sessions[s.ID] = clone(&s)
	return nil
}

func (m *mockRepo) GetSession(_ context.Context, id string) (*StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return clone(s), nil
}

func (m *mockRepo) OpenSessionFor(_ context.Context, profileID string) (*StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ProfileID == profileID && s.Open() {
			return clone(s), nil
		}
	}
	return nil, nil
}

func (m *mockRepo) AppendReview(_ context.Context, sessionID string, r Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[sessionID]
	if !s.Open() {
		return fmt.Errorf("%w: %s", ErrSessionClosed, sessionID)
	}
	s.Reviews = append(s.Reviews, r)
	return nil
}

func (m *mockRepo) CloseSession(_ context.Context, sessionID string, sum Summary) error {
	if m.beforeClose != nil {
		m.beforeClose(sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[sessionID]
	if !s.Open() {
		return fmt.Errorf("%w: %s", ErrSessionClosed, sessionID)
	}
	ended := sum.EndedAt
	s.EndedAt = &ended
	s.Summary = &sum
	return nil
}

func (m *mockRepo) ListSessions(_ context.Context, profileID string, limit int) ([]StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []StudySession
	for _, s := range m.sessions {
		if s.ProfileID == profileID {
			c := clone(s)
			c.Reviews = nil
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestRecorder() (*Recorder, *mockRepo) {
	repo := newMockRepo()
	n := 0
	return NewRecorder(repo, Config{NewID: func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}}), repo
}

func TestOpenSession_SingleOpenPerProfile(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRecorder()

	id, err := r.OpenSession(ctx, "P", KindFlashcards, t0)
	require.NoError(t, err)
	assert.Equal(t, "s1", id)

	_, err = r.OpenSession(ctx, "P", KindFlashcards, t0.Add(time.Second))
	require.ErrorIs(t, err, ErrSessionAlreadyOpen)

	// A different profile is unaffected.
	_, err = r.OpenSession(ctx, "Q", "", t0)
	require.NoError(t, err)

	_, err = r.CloseSession(ctx, id, t0.Add(time.Minute))
	require.NoError(t, err)

	_, err = r.OpenSession(ctx, "P", KindTesting, t0.Add(2*time.Minute))
	require.NoError(t, err)
}

func TestOpenSession_DoubleTapRace(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRecorder()

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	opened, rejected := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.OpenSession(ctx, "P", KindMixed, t0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				opened++
			case errors.Is(err, ErrSessionAlreadyOpen):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, opened)
	assert.Equal(t, n-1, rejected)
}

func TestOpenSession_InvalidInput(t *testing.T) {
	r, _ := newTestRecorder()
	_, err := r.OpenSession(context.Background(), "", KindMixed, t0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = r.OpenSession(context.Background(), "P", Kind("sparring-night"), t0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCloseSession_Accuracy(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRecorder()

	id, err := r.OpenSession(ctx, "P", KindFlashcards, t0)
	require.NoError(t, err)

	outcomes := []spacedrep.Outcome{
		spacedrep.Correct, spacedrep.Incorrect, spacedrep.Correct,
		spacedrep.Incorrect, spacedrep.Correct,
	}
	for i, o := range outcomes {
		require.NoError(t, r.AppendReview(ctx, id, fmt.Sprintf("e%d", i), o, t0.Add(time.Duration(i)*time.Second)))
	}

	sum, err := r.CloseSession(ctx, id, t0.Add(5*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 5, sum.TotalReviews)
	assert.Equal(t, 3, sum.CorrectCount)
	assert.InDelta(t, 0.6, sum.Accuracy, 1e-9)
	assert.Equal(t, 5*time.Minute, sum.Duration)
	assert.Equal(t, KindFlashcards, sum.Kind)
}

func TestCloseSession_EmptySession(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRecorder()

	id, err := r.OpenSession(ctx, "P", KindMixed, t0)
	require.NoError(t, err)

	sum, err := r.CloseSession(ctx, id, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, sum.TotalReviews)
	assert.Equal(t, 0.0, sum.Accuracy)
	assert.Equal(t, time.Minute, sum.Duration)
}

func TestCloseSession_IdempotentReturnsCachedSummary(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRecorder()

	id, err := r.OpenSession(ctx, "P", KindMixed, t0)
	require.NoError(t, err)
	require.NoError(t, r.AppendReview(ctx, id, "e1", spacedrep.Correct, t0.Add(time.Second)))

	first, err := r.CloseSession(ctx, id, t0.Add(time.Minute))
	require.NoError(t, err)

	second, err := r.CloseSession(ctx, id, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCloseSession_ClosedElsewhereReturnsStoredSummary(t *testing.T) {
	ctx := context.Background()
	r, repo := newTestRecorder()

	id, err := r.OpenSession(ctx, "P", KindMixed, t0)
	require.NoError(t, err)
	require.NoError(t, r.AppendReview(ctx, id, "e1", spacedrep.Correct, t0.Add(time.Second)))

	// Another process closes the session between our read and our write.
	repo.beforeClose = func(sessionID string) {
		repo.beforeClose = nil
		s, err := repo.GetSession(ctx, sessionID)
		require.NoError(t, err)
		require.NoError(t, repo.CloseSession(ctx, sessionID, BuildSummary(s, t0.Add(5*time.Minute))))
	}

	sum, err := r.CloseSession(ctx, id, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, sum.Duration)
	assert.Equal(t, 1, sum.TotalReviews)
}

func TestCloseSession_BeforeStart(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRecorder()

	id, err := r.OpenSession(ctx, "P", KindMixed, t0)
	require.NoError(t, err)

	_, err = r.CloseSession(ctx, id, t0.Add(-time.Second))
	require.ErrorIs(t, err, ErrInvalidArgument)

	s, err := r.Session(ctx, id)
	require.NoError(t, err)
	assert.True(t, s.Open())
}

func TestCloseSession_NotFound(t *testing.T) {
	r, _ := newTestRecorder()
	_, err := r.CloseSession(context.Background(), "nope", t0)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAppendReview_Errors(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRecorder()

	err := r.AppendReview(ctx, "nope", "e1", spacedrep.Correct, t0)
	require.ErrorIs(t, err, ErrSessionNotFound)

	id, err := r.OpenSession(ctx, "P", KindMixed, t0)
	require.NoError(t, err)

	err = r.AppendReview(ctx, id, "e1", spacedrep.Outcome("half"), t0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	err = r.AppendReview(ctx, id, "", spacedrep.Correct, t0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = r.CloseSession(ctx, id, t0.Add(time.Minute))
	require.NoError(t, err)

	err = r.AppendReview(ctx, id, "e1", spacedrep.Correct, t0.Add(2*time.Minute))
	require.ErrorIs(t, err, ErrSessionClosed)

	s, err := r.Session(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, s.Reviews)
}

func TestAppendReview_KeepsOrder(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRecorder()

	id, err := r.OpenSession(ctx, "P", KindMixed, t0)
	require.NoError(t, err)
	for i, e := range []string{"a", "b", "c"} {
		require.NoError(t, r.AppendReview(ctx, id, e, spacedrep.Correct, t0.Add(time.Duration(i)*time.Second)))
	}

	s, err := r.Session(ctx, id)
	require.NoError(t, err)
	require.Len(t, s.Reviews, 3)
	assert.Equal(t, "a", s.Reviews[0].EntryID)
	assert.Equal(t, "c", s.Reviews[2].EntryID)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRecorder()

	for i := 0; i < 3; i++ {
		start := t0.Add(time.Duration(i) * time.Hour)
		id, err := r.OpenSession(ctx, "P", KindMixed, start)
		require.NoError(t, err)
		_, err = r.CloseSession(ctx, id, start.Add(time.Minute))
		require.NoError(t, err)
	}

	hist, err := r.History(ctx, "P", 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "s3", hist[0].ID)

	open, err := r.OpenSessionFor(ctx, "P")
	require.NoError(t, err)
	assert.Nil(t, open)
}
