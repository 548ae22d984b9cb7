package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/dojang/internal/catalog"
)

// ProfileRepo persists learner profiles.
type ProfileRepo struct {
	db *sql.DB
}

// Upsert inserts the profile or updates its rank. An empty name keeps the
// stored one, so a belt promotion without a name does not erase it.
func (r *ProfileRepo) Upsert(ctx context.Context, p catalog.Profile) error {
	if p.ID == "" {
		return fmt.Errorf("upsert profile: empty id")
	}
	if !p.CurrentRank.Valid() {
		return fmt.Errorf("upsert profile %s: invalid rank %d", p.ID, int(p.CurrentRank))
	}

	query, args := builder().
		Insert(profilesTable).
		Columns("id", "name", "current_rank", "created_at").
		Values(p.ID, p.Name, int(p.CurrentRank), time.Now().UnixNano()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Set("name", entsql.Expr(
					"CASE WHEN excluded.name = '' THEN "+profilesTable+".name ELSE excluded.name END",
				))
				u.SetExcluded("current_rank")
			}),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.ID, err)
	}
	return nil
}

// Get returns the profile, or nil if unknown.
func (r *ProfileRepo) Get(ctx context.Context, id string) (*catalog.Profile, error) {
	query, args := builder().
		Select("id", "name", "current_rank").
		From(builder().Table(profilesTable)).
		Where(entsql.EQ("id", id)).
		Query()

	var p catalog.Profile
	var rank int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.Name, &rank)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile %s: %w", id, err)
	}
	p.CurrentRank = catalog.Rank(rank)
	return &p, nil
}

// List returns all profiles ordered by id.
func (r *ProfileRepo) List(ctx context.Context) ([]catalog.Profile, error) {
	query, args := builder().
		Select("id", "name", "current_rank").
		From(builder().Table(profilesTable)).
		OrderBy(entsql.Asc("id")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []catalog.Profile
	for rows.Next() {
		var p catalog.Profile
		var rank int
		if err := rows.Scan(&p.ID, &p.Name, &rank); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.CurrentRank = catalog.Rank(rank)
		out = append(out, p)
	}
	return out, rows.Err()
}
