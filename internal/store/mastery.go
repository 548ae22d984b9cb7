package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/dojang/internal/spacedrep"
)

var masteryColumns = []string{
	"profile_id", "entry_id", "box", "due_at",
	"last_reviewed_at", "consecutive_correct",
}

// MasteryRepo implements spacedrep.Repo on the mastery_records table.
type MasteryRepo struct {
	db *sql.DB
}

// GetRecord returns the record for the pair, or nil if it was never written.
func (r *MasteryRepo) GetRecord(ctx context.Context, profileID, entryID string) (*spacedrep.MasteryRecord, error) {
	return getRecord(ctx, r.db, profileID, entryID)
}

func getRecord(ctx context.Context, q execQuerier, profileID, entryID string) (*spacedrep.MasteryRecord, error) {
	query, args := builder().
		Select(masteryColumns...).
		From(builder().Table(masteryRecordsTable)).
		Where(entsql.And(
			entsql.EQ("profile_id", profileID),
			entsql.EQ("entry_id", entryID),
		)).
		Query()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return nil, err
	}
	return &rec, rows.Err()
}

// RecordsForProfile returns every record for the profile, earliest due first.
func (r *MasteryRepo) RecordsForProfile(ctx context.Context, profileID string) ([]spacedrep.MasteryRecord, error) {
	query, args := builder().
		Select(masteryColumns...).
		From(builder().Table(masteryRecordsTable)).
		Where(entsql.EQ("profile_id", profileID)).
		OrderBy(entsql.Asc("due_at"), entsql.Asc("entry_id")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery records: %w", err)
	}
	defer rows.Close()

	var out []spacedrep.MasteryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateRecord reads the pair's record, passes it to fn (nil if absent) and
// stores what fn returns, all in one IMMEDIATE transaction. Concurrent
// updates from other processes queue on the write lock and each sees the
// previous one's result.
func (r *MasteryRepo) UpdateRecord(ctx context.Context, profileID, entryID string, fn func(current *spacedrep.MasteryRecord) spacedrep.MasteryRecord) (spacedrep.MasteryRecord, error) {
	var next spacedrep.MasteryRecord
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := getRecord(ctx, tx, profileID, entryID)
		if err != nil {
			return err
		}
		next = fn(current)
		next.ProfileID, next.EntryID = profileID, entryID
		return putRecord(ctx, tx, next)
	})
	if err != nil {
		return spacedrep.MasteryRecord{}, err
	}
	return next, nil
}

// PutRecord upserts the record in one statement.
func (r *MasteryRepo) PutRecord(ctx context.Context, rec spacedrep.MasteryRecord) error {
	return putRecord(ctx, r.db, rec)
}

func putRecord(ctx context.Context, q execQuerier, rec spacedrep.MasteryRecord) error {
	var last any
	if rec.LastReviewedAt != nil {
		last = rec.LastReviewedAt.UnixNano()
	}

	query, args := builder().
		Insert(masteryRecordsTable).
		Columns(append(masteryColumns, "updated_at")...).
		Values(
			rec.ProfileID, rec.EntryID, rec.Box, rec.DueAt.UnixNano(),
			last, rec.ConsecutiveCorrect, time.Now().UnixNano(),
		).
		OnConflict(
			entsql.ConflictColumns("profile_id", "entry_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert mastery record %s/%s: %w", rec.ProfileID, rec.EntryID, err)
	}
	return nil
}

// DeleteProfileRecords removes every record owned by the profile.
func (r *MasteryRepo) DeleteProfileRecords(ctx context.Context, profileID string) (int, error) {
	query, args := builder().
		Delete(masteryRecordsTable).
		Where(entsql.EQ("profile_id", profileID)).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete mastery records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func scanRecord(rows *sql.Rows) (spacedrep.MasteryRecord, error) {
	var (
		rec  spacedrep.MasteryRecord
		due  int64
		last sql.NullInt64
	)
	if err := rows.Scan(&rec.ProfileID, &rec.EntryID, &rec.Box, &due, &last, &rec.ConsecutiveCorrect); err != nil {
		return rec, fmt.Errorf("scan mastery record: %w", err)
	}
	rec.DueAt = fromNanos(due)
	if last.Valid {
		t := fromNanos(last.Int64)
		rec.LastReviewedAt = &t
	}
	return rec, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
