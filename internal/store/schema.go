package store

import (
	"context"

	"entgo.io/ent/dialect"
	entsqlant "entgo.io/ent/dialect/entsql"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	profilesTable       = "profiles"
	masteryRecordsTable = "mastery_records"
	sessionsTable       = "study_sessions"
	reviewsTable        = "session_reviews"

	openSessionIndex = "studysession_profile_id_open"
)

// Timestamps are stored as Unix nanoseconds so round trips are exact.
var (
	ProfilesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString, Default: ""},
		{Name: "current_rank", Type: field.TypeInt},
		{Name: "created_at", Type: field.TypeInt64},
	}
	ProfilesTable = &schema.Table{
		Name:       profilesTable,
		Columns:    ProfilesColumns,
		PrimaryKey: []*schema.Column{ProfilesColumns[0]},
	}

	MasteryRecordsColumns = []*schema.Column{
		{Name: "profile_id", Type: field.TypeString},
		{Name: "entry_id", Type: field.TypeString},
		{Name: "box", Type: field.TypeInt, Default: 0},
		{Name: "due_at", Type: field.TypeInt64},
		{Name: "last_reviewed_at", Type: field.TypeInt64, Nullable: true},
		{Name: "consecutive_correct", Type: field.TypeInt, Default: 0},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	MasteryRecordsTable = &schema.Table{
		Name:       masteryRecordsTable,
		Columns:    MasteryRecordsColumns,
		PrimaryKey: []*schema.Column{MasteryRecordsColumns[0], MasteryRecordsColumns[1]},
		Indexes: []*schema.Index{
			{
				Name:    "masteryrecord_profile_id_due_at",
				Unique:  false,
				Columns: []*schema.Column{MasteryRecordsColumns[0], MasteryRecordsColumns[3]},
			},
		},
	}

	StudySessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "profile_id", Type: field.TypeString},
		{Name: "kind", Type: field.TypeString, Default: "mixed"},
		{Name: "started_at", Type: field.TypeInt64},
		{Name: "ended_at", Type: field.TypeInt64, Nullable: true},
		{Name: "total_reviews", Type: field.TypeInt, Default: 0},
		{Name: "correct_count", Type: field.TypeInt, Default: 0},
		{Name: "duration_ns", Type: field.TypeInt64, Default: 0},
	}
	StudySessionsTable = &schema.Table{
		Name:       sessionsTable,
		Columns:    StudySessionsColumns,
		PrimaryKey: []*schema.Column{StudySessionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "studysession_profile_id_started_at",
				Unique:  false,
				Columns: []*schema.Column{StudySessionsColumns[1], StudySessionsColumns[3]},
			},
			{
				// At most one open session per profile, across processes.
				Name:       openSessionIndex,
				Unique:     true,
				Columns:    []*schema.Column{StudySessionsColumns[1]},
				Annotation: &entsqlant.IndexAnnotation{Where: "ended_at IS NULL"},
			},
		},
	}

	SessionReviewsColumns = []*schema.Column{
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "session_id", Type: field.TypeString},
		{Name: "entry_id", Type: field.TypeString},
		{Name: "outcome", Type: field.TypeString},
		{Name: "reviewed_at", Type: field.TypeInt64},
	}
	SessionReviewsTable = &schema.Table{
		Name:       reviewsTable,
		Columns:    SessionReviewsColumns,
		PrimaryKey: []*schema.Column{SessionReviewsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "sessionreview_session_id",
				Unique:  false,
				Columns: []*schema.Column{SessionReviewsColumns[1]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		ProfilesTable,
		MasteryRecordsTable,
		StudySessionsTable,
		SessionReviewsTable,
	}
)

// migrate creates or updates every table in Tables.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, Tables...)
}

// builder returns a SQL builder for the SQLite dialect.
func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}
