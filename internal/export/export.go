// Package export writes and validates portable JSON snapshots of a
// profile's progress. A file holds either one profile's Document or a
// Bundle of several.
package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/abhisek/dojang/internal/catalog"
	"github.com/abhisek/dojang/internal/progress"
	"github.com/abhisek/dojang/internal/session"
	"github.com/abhisek/dojang/internal/spacedrep"
)

// FormatVersion is bumped on breaking changes to Document.
const FormatVersion = 1

//go:embed export.schema.json
var exportSchemaJSON []byte

const exportSchemaURL = "schema://export.json"

// ErrInvalidDocument wraps every validation failure.
var ErrInvalidDocument = errors.New("export: invalid document")

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// Document is the export file layout.
type Document struct {
	ExportVersion int        `json:"export_version"`
	AppVersion    string     `json:"app_version,omitempty"`
	ExportedAt    time.Time  `json:"exported_at"`
	Profile       Profile    `json:"profile"`
	Progress      []Progress `json:"progress"`
	Sessions      []Session  `json:"sessions"`
	Stats         Stats      `json:"stats"`
}

// Bundle holds the exports of several profiles in one file.
type Bundle struct {
	ExportVersion int        `json:"export_version"`
	AppVersion    string     `json:"app_version,omitempty"`
	ExportedAt    time.Time  `json:"exported_at"`
	Profiles      []Document `json:"profiles"`
}

// Profile identifies the exported learner.
type Profile struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	CurrentRank int    `json:"current_rank"`
	Belt        string `json:"belt"`
}

// Progress is one mastery record.
type Progress struct {
	EntryID            string                 `json:"entry_id"`
	Box                int                    `json:"box"`
	MasteryLevel       spacedrep.MasteryLevel `json:"mastery_level"`
	DueAt              time.Time              `json:"due_at"`
	LastReviewedAt     *time.Time             `json:"last_reviewed_at,omitempty"`
	ConsecutiveCorrect int                    `json:"consecutive_correct"`
}

// Session is one study session with its totals. Open sessions have no
// EndedAt and zero totals.
type Session struct {
	ID              string       `json:"id"`
	Kind            session.Kind `json:"kind"`
	StartedAt       time.Time    `json:"started_at"`
	EndedAt         *time.Time   `json:"ended_at,omitempty"`
	TotalReviews    int          `json:"total_reviews"`
	CorrectCount    int          `json:"correct_count"`
	Accuracy        float64      `json:"accuracy"`
	DurationSeconds float64      `json:"duration_seconds"`
}

// Stats repeats the headline figures of the progress report.
type Stats struct {
	StreakDays        int     `json:"streak_days"`
	TotalSessions     int     `json:"total_sessions"`
	TotalReviews      int     `json:"total_reviews"`
	TotalStudySeconds float64 `json:"total_study_seconds"`
}

// Build assembles a Document. Sessions without a summary are exported with
// zero totals.
func Build(p catalog.Profile, records []spacedrep.MasteryRecord, sessions []session.StudySession, now time.Time) Document {
	doc := Document{
		ExportVersion: FormatVersion,
		ExportedAt:    now.UTC(),
		Profile: Profile{
			ID:          p.ID,
			Name:        p.Name,
			CurrentRank: int(p.CurrentRank),
			Belt:        p.CurrentRank.String(),
		},
		Progress: make([]Progress, 0, len(records)),
		Sessions: make([]Session, 0, len(sessions)),
	}

	for _, r := range records {
		doc.Progress = append(doc.Progress, Progress{
			EntryID:            r.EntryID,
			Box:                r.Box,
			MasteryLevel:       r.Level(),
			DueAt:              r.DueAt.UTC(),
			LastReviewedAt:     utcPtr(r.LastReviewedAt),
			ConsecutiveCorrect: r.ConsecutiveCorrect,
		})
	}

	for _, s := range sessions {
		out := Session{
			ID:        s.ID,
			Kind:      s.Kind,
			StartedAt: s.StartedAt.UTC(),
			EndedAt:   utcPtr(s.EndedAt),
		}
		if s.Summary != nil {
			out.TotalReviews = s.Summary.TotalReviews
			out.CorrectCount = s.Summary.CorrectCount
			out.Accuracy = s.Summary.Accuracy
			out.DurationSeconds = s.Summary.Duration.Seconds()
		}
		doc.Sessions = append(doc.Sessions, out)
	}

	rep := progress.Build(records, sessions, now)
	doc.Stats = Stats{
		StreakDays:        rep.StreakDays,
		TotalSessions:     rep.TotalSessions,
		TotalReviews:      rep.TotalReviews,
		TotalStudySeconds: rep.StudyTime.Seconds(),
	}
	return doc
}

// NewBundle wraps docs into a Bundle stamped with now.
func NewBundle(docs []Document, now time.Time) Bundle {
	if docs == nil {
		docs = []Document{}
	}
	return Bundle{
		ExportVersion: FormatVersion,
		ExportedAt:    now.UTC(),
		Profiles:      docs,
	}
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc Document) error {
	return encode(w, doc)
}

// WriteBundle encodes b as indented JSON.
func WriteBundle(w io.Writer, b Bundle) error {
	return encode(w, b)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Validate checks an export file against the embedded schema and returns
// its contents as a Bundle. A single-profile file comes back as a Bundle
// with one profile.
func Validate(r io.Reader) (*Bundle, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrInvalidDocument, err)
	}

	sch, err := exportSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var b Bundle
	if obj, ok := parsed.(map[string]any); ok && obj["profiles"] != nil {
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		for i := range b.Profiles {
			if err := checkDocument(&b.Profiles[i]); err != nil {
				return nil, fmt.Errorf("profiles[%d]: %w", i, err)
			}
		}
		return &b, nil
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := checkDocument(&doc); err != nil {
		return nil, err
	}
	b = Bundle{
		ExportVersion: doc.ExportVersion,
		AppVersion:    doc.AppVersion,
		ExportedAt:    doc.ExportedAt,
		Profiles:      []Document{doc},
	}
	return &b, nil
}

// checkDocument covers the rules the schema cannot express.
func checkDocument(doc *Document) error {
	for i, s := range doc.Sessions {
		if s.CorrectCount > s.TotalReviews {
			return fmt.Errorf("%w: sessions[%d]: correct_count %d exceeds total_reviews %d",
				ErrInvalidDocument, i, s.CorrectCount, s.TotalReviews)
		}
		if s.EndedAt != nil && s.EndedAt.Before(s.StartedAt) {
			return fmt.Errorf("%w: sessions[%d]: ended before it started", ErrInvalidDocument, i)
		}
	}
	for i, p := range doc.Progress {
		if p.MasteryLevel != spacedrep.LevelForBox(p.Box) {
			return fmt.Errorf("%w: progress[%d]: level %q does not match box %d",
				ErrInvalidDocument, i, p.MasteryLevel, p.Box)
		}
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func exportSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var def any
		if err := json.Unmarshal(exportSchemaJSON, &def); err != nil {
			compileErr = fmt.Errorf("parse export schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		c.AssertFormat()
		if err := c.AddResource(exportSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(exportSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile export schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}
