package client

import (
	"bytes"
	"context"
	"testing"

	"github.com/law-makers/guc/internal/browser/browsertest"
	"github.com/law-makers/guc/internal/portal"
	"github.com/law-makers/guc/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPortal() *browsertest.Portal {
	p := browsertest.NewPortal("ahmed.ali", "s3cret")
	p.Years = []browsertest.Year{{
		Label: "2023-2024",
		Value: "7",
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
	p.Midterms = []models.MidtermGrade{{Course: "CS101", Percentage: 70}}
	p.Courses = []browsertest.CourseWork{{Label: "CS101", Value: "1", Items: []models.CourseWorkItem{{Name: "Quiz 1", Score: 9, MaxScore: 10}}}}
	return p
}

var creds = models.Credentials{Username: "ahmed.ali", Password: "s3cret"}

func TestCreate_AndFetch(t *testing.T) {
	p := newPortal()
	engine := p.Engine()

	c, err := Create(context.Background(), creds, Options{Engine: engine, URLs: p.URLs})
	require.NoError(t, err)
	assert.Equal(t, "ahmed.ali", c.Username())

	years, err := c.Transcript(context.Background())
	require.NoError(t, err)
	require.Len(t, years, 1)
	assert.Equal(t, p.Years[0].Semesters, years[0].Semesters)

	g, err := c.Grades(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.Midterms, g.Midterms)
	require.Len(t, g.CourseWork, 1)
	assert.Equal(t, p.Courses[0].Items, g.CourseWork[0].Items)

	require.NoError(t, c.Terminate())
	closed, n := engine.Closed()
	assert.True(t, closed)
	assert.Equal(t, 1, n)
}

func TestCreate_InvalidCredentials(t *testing.T) {
	p := newPortal()
	engine := p.Engine()

	var logs bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&logs)
	t.Cleanup(func() { log.Logger = prev })

	c, err := Create(context.Background(), models.Credentials{Username: "ahmed.ali", Password: "nope"}, Options{Engine: engine, URLs: p.URLs})
	require.ErrorIs(t, err, portal.ErrInvalidCredentials)
	assert.Nil(t, c)
	assert.Contains(t, logs.String(), `"outcome":"`+portal.LoginInvalidCredentials.String()+`"`)

	closed, _ := engine.Closed()
	assert.False(t, closed, "a supplied engine stays usable for disposal")
	_, open := engine.Pages()
	assert.Zero(t, open)
	require.NoError(t, engine.Close())
}

func TestTerminate_Idempotent(t *testing.T) {
	p := newPortal()
	engine := p.Engine()

	c, err := Create(context.Background(), creds, Options{Engine: engine, URLs: p.URLs})
	require.NoError(t, err)

	require.NoError(t, c.Terminate())
	require.NoError(t, c.Terminate())
	_, n := engine.Closed()
	assert.Equal(t, 1, n)

	_, err = c.Transcript(context.Background())
	assert.ErrorIs(t, err, ErrTerminated)
	_, err = c.Grades(context.Background())
	assert.ErrorIs(t, err, ErrTerminated)
}

func TestCreate_DefaultURLs(t *testing.T) {
	p := newPortal()
	c, err := Create(context.Background(), creds, Options{Engine: p.Engine()})
	require.NoError(t, err)
	defer c.Terminate()

	years, err := c.Transcript(context.Background())
	require.NoError(t, err)
	assert.Len(t, years, 1)
}
