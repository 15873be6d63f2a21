package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/law-makers/guc/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

var sample = []models.TranscriptYear{{
	Year: "2023-2024",
	Semesters: []models.TranscriptSemester{{
		Name: "Winter 2023",
		GPA:  3.0,
		Courses: []models.Course{{
			Name:        "CS101",
			Grade:       models.Grade{Numeric: 85, Letter: "B"},
			CreditHours: 3,
		}},
	}},
}}

func newStore(t *testing.T, fileOnly bool) (*Store, *time.Time) {
	t.Helper()
	keyring.MockInit()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Store{
		dir:      filepath.Join(t.TempDir(), "snapshots"),
		ttl:      time.Hour,
		fileOnly: fileOnly,
		now:      func() time.Time { return now },
	}
	return s, &now
}

func TestStore_RoundTrip(t *testing.T) {
	for _, fileOnly := range []bool{false, true} {
		name := "keyring"
		if fileOnly {
			name = "file"
		}
		t.Run(name, func(t *testing.T) {
			s, _ := newStore(t, fileOnly)

			snap := &Snapshot{Username: "ahmed.ali", Kind: KindTranscript, Transcript: sample}
			require.NoError(t, s.Save(snap))
			assert.Equal(t, snap.FetchedAt.Add(time.Hour), snap.ExpiresAt)

			got, err := s.Load("ahmed.ali", KindTranscript)
			require.NoError(t, err)
			assert.Equal(t, sample, got.Transcript)
			assert.Nil(t, got.Grades)

			_, err = s.Load("ahmed.ali", KindGrades)
			assert.ErrorIs(t, err, ErrNotFound)

			infos, err := s.List()
			require.NoError(t, err)
			require.Len(t, infos, 1)
			assert.Equal(t, "ahmed.ali", infos[0].Username)
			assert.Equal(t, KindTranscript, infos[0].Kind)
			assert.False(t, infos[0].Expired)

			require.NoError(t, s.Delete("ahmed.ali", KindTranscript))
			_, err = s.Load("ahmed.ali", KindTranscript)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete("ahmed.ali", KindTranscript), ErrNotFound)

			infos, err = s.List()
			require.NoError(t, err)
			assert.Empty(t, infos)
		})
	}
}

func TestStore_FilePermissions(t *testing.T) {
	s, _ := newStore(t, true)
	require.NoError(t, s.Save(&Snapshot{Username: "ahmed.ali", Kind: KindGrades, Grades: &models.Grades{}}))

	info, err := os.Stat(filepath.Join(s.dir, "ahmed.ali.grades.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStore_Expiry(t *testing.T) {
	s, now := newStore(t, true)
	require.NoError(t, s.Save(&Snapshot{Username: "ahmed.ali", Kind: KindTranscript, Transcript: sample}))

	*now = now.Add(2 * time.Hour)
	_, err := s.Load("ahmed.ali", KindTranscript)
	assert.ErrorIs(t, err, ErrExpired)

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.True(t, infos[0].Expired)
}

func TestStore_NoExpiry(t *testing.T) {
	s, now := newStore(t, true)
	s.ttl = -1
	require.NoError(t, s.Save(&Snapshot{Username: "ahmed.ali", Kind: KindTranscript}))

	*now = now.Add(365 * 24 * time.Hour)
	_, err := s.Load("ahmed.ali", KindTranscript)
	assert.NoError(t, err)
}

func TestStore_TooBigForKeyring(t *testing.T) {
	s, _ := newStore(t, false)
	keyring.MockInitWithError(keyring.ErrSetDataTooBig)
	t.Cleanup(keyring.MockInit)

	require.NoError(t, s.Save(&Snapshot{Username: "ahmed.ali", Kind: KindTranscript, Transcript: sample}))
	_, err := os.Stat(filepath.Join(s.dir, "ahmed.ali.transcript.json"))
	assert.NoError(t, err)
}

func TestStore_InvalidKeys(t *testing.T) {
	s, _ := newStore(t, true)
	for _, user := range []string{"", "../etc/passwd", "a/b", "a..b"} {
		assert.ErrorIs(t, s.Save(&Snapshot{Username: user, Kind: KindTranscript}), ErrInvalidKey, user)
	}
	_, err := s.Load("ahmed.ali", Kind("cookies"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestOpen_FileOnly(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Dir: dir, FileOnly: true})
	require.NoError(t, err)
	assert.True(t, s.fileOnly)
	assert.Equal(t, DefaultTTL, s.ttl)
	assert.Equal(t, dir, s.dir)
}
