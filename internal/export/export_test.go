package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/dojang/internal/catalog"
	"github.com/abhisek/dojang/internal/session"
	"github.com/abhisek/dojang/internal/spacedrep"
)

var now = time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

const (
	sessionA = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	sessionB = "9b2f1c3e-52a1-4d7e-8f0a-3c6b2e1d4f59"
)

func sampleDoc() Document {
	last := now.Add(-time.Hour)
	end := now.Add(-50 * time.Minute)
	records := []spacedrep.MasteryRecord{
		{ProfileID: "P", EntryID: "charyot", Box: 0, DueAt: now},
		{ProfileID: "P", EntryID: "kyungnet", Box: 3, DueAt: now.Add(72 * time.Hour), LastReviewedAt: &last, ConsecutiveCorrect: 3},
	}
	sessions := []session.StudySession{
		{
			ID: sessionA, ProfileID: "P", Kind: session.KindFlashcards,
			StartedAt: now.Add(-time.Hour), EndedAt: &end,
			Summary: &session.Summary{TotalReviews: 4, CorrectCount: 3, Accuracy: 0.75, Duration: 10 * time.Minute, EndedAt: end},
		},
		{ID: sessionB, ProfileID: "P", Kind: session.KindMixed, StartedAt: now.Add(-time.Minute)},
	}
	return Build(catalog.Profile{ID: "P", Name: "Min", CurrentRank: 3}, records, sessions, now)
}

func TestBuild(t *testing.T) {
	doc := sampleDoc()

	assert.Equal(t, FormatVersion, doc.ExportVersion)
	assert.Equal(t, "8th_keup", doc.Profile.Belt)
	assert.Equal(t, 3, doc.Profile.CurrentRank)

	require.Len(t, doc.Progress, 2)
	assert.Equal(t, spacedrep.LevelLearning, doc.Progress[0].MasteryLevel)
	assert.Equal(t, spacedrep.LevelProficient, doc.Progress[1].MasteryLevel)
	assert.Nil(t, doc.Progress[0].LastReviewedAt)

	require.Len(t, doc.Sessions, 2)
	assert.Equal(t, 600.0, doc.Sessions[0].DurationSeconds)
	assert.Nil(t, doc.Sessions[1].EndedAt)

	assert.Equal(t, 2, doc.Stats.TotalSessions)
	assert.Equal(t, 4, doc.Stats.TotalReviews)
	assert.Equal(t, 1, doc.Stats.StreakDays)
}

func TestWriteThenValidate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleDoc()))

	b, err := Validate(&buf)
	require.NoError(t, err)
	require.Len(t, b.Profiles, 1)
	assert.Equal(t, "P", b.Profiles[0].Profile.ID)
	assert.Len(t, b.Profiles[0].Progress, 2)
	assert.Equal(t, FormatVersion, b.ExportVersion)
}

func TestWriteBundleThenValidate(t *testing.T) {
	other := Build(catalog.Profile{ID: "Q", CurrentRank: 11}, nil, nil, now)
	bundle := NewBundle([]Document{sampleDoc(), other}, now)
	bundle.AppVersion = "1.2.0"

	var buf bytes.Buffer
	require.NoError(t, WriteBundle(&buf, bundle))

	b, err := Validate(&buf)
	require.NoError(t, err)
	require.Len(t, b.Profiles, 2)
	assert.Equal(t, "1.2.0", b.AppVersion)
	assert.Equal(t, "1st_dan", b.Profiles[1].Profile.Belt)
}

func TestValidate_BundleChecksEachProfile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBundle(&buf, NewBundle([]Document{sampleDoc()}, now)))
	input := strings.Replace(buf.String(), `"correct_count": 3`, `"correct_count": 9`, 1)

	_, err := Validate(strings.NewReader(input))
	require.ErrorIs(t, err, ErrInvalidDocument)
	assert.Contains(t, err.Error(), "profiles[0]")
}

func TestValidate_EmptyBundle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBundle(&buf, NewBundle(nil, now)))

	b, err := Validate(&buf)
	require.NoError(t, err)
	assert.Empty(t, b.Profiles)
}

func TestValidate_EmptyProfile(t *testing.T) {
	var buf bytes.Buffer
	doc := Build(catalog.Profile{ID: "P", CurrentRank: 1}, nil, nil, now)
	require.NoError(t, Write(&buf, doc))

	_, err := Validate(&buf)
	require.NoError(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	valid := func() string {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, sampleDoc()))
		return buf.String()
	}

	tests := []struct {
		name  string
		input string
	}{
		{"not json", "{"},
		{"missing fields", `{"export_version": 1}`},
		{"wrong version", strings.Replace(valid(), `"export_version": 1`, `"export_version": 2`, 1)},
		{"bad kind", strings.Replace(valid(), `"kind": "flashcards"`, `"kind": "sparring"`, 1)},
		{"bad level", strings.Replace(valid(), `"mastery_level": "proficient"`, `"mastery_level": "expert"`, 1)},
		{"level box mismatch", strings.Replace(valid(), `"mastery_level": "proficient"`, `"mastery_level": "mastered"`, 1)},
		{"accuracy out of range", strings.Replace(valid(), `"accuracy": 0.75`, `"accuracy": 1.5`, 1)},
		{"correct exceeds total", strings.Replace(valid(), `"correct_count": 3`, `"correct_count": 9`, 1)},
		{"session id not a uuid", strings.Replace(valid(), sessionA, "s1", 1)},
		{"document and bundle mixed", strings.Replace(valid(), `"progress": [`, `"profiles": [], "progress": [`, 1)},
		{"bad date", strings.Replace(valid(), `"started_at": "2025-03-10T17:00:00Z"`, `"started_at": "yesterday"`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(strings.NewReader(tt.input))
			require.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}
