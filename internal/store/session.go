package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"

	"github.com/abhisek/dojang/internal/session"
	"github.com/abhisek/dojang/internal/spacedrep"
)

var sessionColumns = []string{
	"id", "profile_id", "kind", "started_at", "ended_at",
	"total_reviews", "correct_count", "duration_ns",
}

// SessionRepo implements session.Repo on the study_sessions and
// session_reviews tables.
type SessionRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

// CreateSession inserts an open session. A second open session for the same
// profile violates the partial unique index and returns
// session.ErrSessionAlreadyOpen, even when the first was opened by another
// process.
func (r *SessionRepo) CreateSession(ctx context.Context, s session.StudySession) error {
	query, args := builder().
		Insert(sessionsTable).
		Columns("id", "profile_id", "kind", "started_at").
		Values(s.ID, s.ProfileID, string(s.Kind), s.StartedAt.UnixNano()).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isOpenSessionConflict(err) {
			return fmt.Errorf("%w: profile %s", session.ErrSessionAlreadyOpen, s.ProfileID)
		}
		return fmt.Errorf("insert session %s: %w", s.ID, err)
	}
	return nil
}

// isOpenSessionConflict reports whether err comes from the one-open-session
// index rather than a duplicate session id.
func isOpenSessionConflict(err error) bool {
	return sqlgraph.IsUniqueConstraintError(err) &&
		strings.Contains(err.Error(), sessionsTable+".profile_id")
}

// GetSession returns the session with its review log, or nil if unknown.
func (r *SessionRepo) GetSession(ctx context.Context, id string) (*session.StudySession, error) {
	s, err := r.selectOne(ctx, entsql.EQ("id", id))
	if err != nil || s == nil {
		return s, err
	}
	s.Reviews, err = r.reviews(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSessionFor returns the profile's open session with its reviews, or nil.
func (r *SessionRepo) OpenSessionFor(ctx context.Context, profileID string) (*session.StudySession, error) {
	s, err := r.selectOne(ctx, entsql.And(
		entsql.EQ("profile_id", profileID),
		entsql.IsNull("ended_at"),
	))
	if err != nil || s == nil {
		return s, err
	}
	s.Reviews, err = r.reviews(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// AppendReview writes one review line keyed by the global sequence. The
// open check and the insert share a transaction, so a review never lands in
// a session another process has just closed.
func (r *SessionRepo) AppendReview(ctx context.Context, sessionID string, rv session.Review) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, sessionID); err != nil {
			return err
		}

		seq, err := r.seq.NextTx(ctx, tx)
		if err != nil {
			return err
		}

		query, args := builder().
			Insert(reviewsTable).
			Columns("sequence", "session_id", "entry_id", "outcome", "reviewed_at").
			Values(seq, sessionID, rv.EntryID, string(rv.Outcome), rv.At.UnixNano()).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert review for session %s: %w", sessionID, err)
		}
		return nil
	})
}

// CloseSession stores the end time and duration from sum. The review totals
// are counted from the log in the same transaction, so they match what was
// appended even if the caller's copy was stale. Closing a session that is
// already closed returns session.ErrSessionClosed and changes nothing.
func (r *SessionRepo) CloseSession(ctx context.Context, sessionID string, sum session.Summary) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := requireOpen(ctx, tx, sessionID); err != nil {
			return err
		}

		total, err := countReviews(ctx, tx, entsql.EQ("session_id", sessionID))
		if err != nil {
			return err
		}
		correct, err := countReviews(ctx, tx, entsql.And(
			entsql.EQ("session_id", sessionID),
			entsql.EQ("outcome", string(spacedrep.Correct)),
		))
		if err != nil {
			return err
		}

		query, args := builder().
			Update(sessionsTable).
			Set("ended_at", sum.EndedAt.UnixNano()).
			Set("total_reviews", total).
			Set("correct_count", correct).
			Set("duration_ns", int64(sum.Duration)).
			Where(entsql.And(
				entsql.EQ("id", sessionID),
				entsql.IsNull("ended_at"),
			)).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("close session %s: %w", sessionID, err)
		}
		return nil
	})
}

func countReviews(ctx context.Context, tx *sql.Tx, pred *entsql.Predicate) (int, error) {
	query, args := builder().
		Select(entsql.Count("*")).
		From(builder().Table(reviewsTable)).
		Where(pred).
		Query()

	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

// requireOpen fails with ErrSessionNotFound or ErrSessionClosed unless the
// session exists and has no end time.
func requireOpen(ctx context.Context, tx *sql.Tx, sessionID string) error {
	query, args := builder().
		Select("ended_at").
		From(builder().Table(sessionsTable)).
		Where(entsql.EQ("id", sessionID)).
		Query()

	var ended sql.NullInt64
	err := tx.QueryRowContext(ctx, query, args...).Scan(&ended)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s", session.ErrSessionNotFound, sessionID)
	case err != nil:
		return fmt.Errorf("query session %s: %w", sessionID, err)
	case ended.Valid:
		return fmt.Errorf("%w: %s", session.ErrSessionClosed, sessionID)
	}
	return nil
}

// ListSessions returns the profile's sessions newest first, without reviews.
func (r *SessionRepo) ListSessions(ctx context.Context, profileID string, limit int) ([]session.StudySession, error) {
	sel := builder().
		Select(sessionColumns...).
		From(builder().Table(sessionsTable)).
		Where(entsql.EQ("profile_id", profileID)).
		OrderBy(entsql.Desc("started_at"), entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []session.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteProfileSessions removes the profile's sessions and their reviews in
// one transaction.
func (r *SessionRepo) DeleteProfileSessions(ctx context.Context, profileID string) (int, error) {
	var deleted int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		n, err := deleteProfileSessions(ctx, tx, profileID)
		deleted = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func deleteProfileSessions(ctx context.Context, tx *sql.Tx, profileID string) (int, error) {
	ids := builder().
		Select("id").
		From(builder().Table(sessionsTable)).
		Where(entsql.EQ("profile_id", profileID))

	query, args := builder().
		Delete(reviewsTable).
		Where(entsql.In("session_id", ids)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("delete reviews: %w", err)
	}

	query, args = builder().
		Delete(sessionsTable).
		Where(entsql.EQ("profile_id", profileID)).
		Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SessionRepo) selectOne(ctx context.Context, pred *entsql.Predicate) (*session.StudySession, error) {
	query, args := builder().
		Select(sessionColumns...).
		From(builder().Table(sessionsTable)).
		Where(pred).
		OrderBy(entsql.Desc("started_at")).
		Limit(1).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	s, err := scanSession(rows)
	if err != nil {
		return nil, err
	}
	return &s, rows.Err()
}

func (r *SessionRepo) reviews(ctx context.Context, sessionID string) ([]session.Review, error) {
	query, args := builder().
		Select("entry_id", "outcome", "reviewed_at").
		From(builder().Table(reviewsTable)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy(entsql.Asc("sequence")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var out []session.Review
	for rows.Next() {
		var (
			rv      session.Review
			outcome string
			at      int64
		)
		if err := rows.Scan(&rv.EntryID, &outcome, &at); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		rv.Outcome = spacedrep.Outcome(outcome)
		rv.At = fromNanos(at)
		out = append(out, rv)
	}
	return out, rows.Err()
}

func scanSession(rows *sql.Rows) (session.StudySession, error) {
	var (
		s        session.StudySession
		kind     string
		started  int64
		ended    sql.NullInt64
		total    int
		correct  int
		duration int64
	)
	if err := rows.Scan(&s.ID, &s.ProfileID, &kind, &started, &ended, &total, &correct, &duration); err != nil {
		return s, fmt.Errorf("scan session: %w", err)
	}
	s.Kind = session.Kind(kind)
	s.StartedAt = fromNanos(started)
	if ended.Valid {
		end := fromNanos(ended.Int64)
		s.EndedAt = &end

		var accuracy float64
		if total > 0 {
			accuracy = float64(correct) / float64(total)
		}
		s.Summary = &session.Summary{
			SessionID:    s.ID,
			ProfileID:    s.ProfileID,
			Kind:         s.Kind,
			StartedAt:    s.StartedAt,
			EndedAt:      end,
			TotalReviews: total,
			CorrectCount: correct,
			Accuracy:     accuracy,
			Duration:     time.Duration(duration),
		}
	}
	return s, nil
}
