package transcript

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/law-makers/guc/internal/auth"
	"github.com/law-makers/guc/internal/browser/browsertest"
	"github.com/law-makers/guc/internal/portal"
	"github.com/law-makers/guc/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func semester(name string, gpa models.Number, courses ...models.Course) models.TranscriptSemester {
	return models.TranscriptSemester{Name: name, GPA: gpa, Courses: courses}
}

func course(name string, numeric models.Number, letter string, hours models.Number) models.Course {
	return models.Course{Name: name, Grade: models.Grade{Numeric: numeric, Letter: letter}, CreditHours: hours}
}

func newPortal() *browsertest.Portal {
	p := browsertest.NewPortal("ahmed.ali", "s3cret")
	p.Years = []browsertest.Year{
		{Label: "2022-2023", Value: "1", Semesters: []models.TranscriptSemester{
			semester("Winter 2022", 2.1, course("MATH 101 Mathematics I", 2.3, "B+", 6), course("PHYS 101 Physics I", 1.7, "A-", 4)),
			semester("Spring 2023", 3.0, course("CS101", 85, "B", 3)),
		}},
		{Label: "2023-2024", Value: "2"},
		{Label: "2024-2025", Value: "3", Semesters: []models.TranscriptSemester{
			semester("Winter 2024", 1.3, course("CSEN 401 Computer Programming Lab", 1.0, "A+", 8)),
		}},
	}
	return p
}

func login(t *testing.T, p *browsertest.Portal) (*auth.Session, *browsertest.Engine) {
	t.Helper()
	engine := p.Engine()
	sess, err := auth.NewAuthenticator(p.URLs).Login(context.Background(), engine, models.Credentials{
		Username: p.Username,
		Password: p.Password,
	})
	require.NoError(t, err)
	return sess, engine
}

func TestFetch(t *testing.T) {
	p := newPortal()
	sess, engine := login(t, p)

	var mu sync.Mutex
	var done []string
	e := New(Options{URLs: p.URLs, MaxParallel: 2, Progress: func(year string) {
		mu.Lock()
		done = append(done, year)
		mu.Unlock()
	}})

	years, err := e.Fetch(context.Background(), sess)
	require.NoError(t, err)

	require.Len(t, years, 2, "years without semesters are dropped")
	assert.Equal(t, "2022-2023", years[0].Year)
	assert.Equal(t, p.Years[0].Semesters, years[0].Semesters)
	assert.Equal(t, "2024-2025", years[1].Year)
	assert.Equal(t, p.Years[2].Semesters, years[1].Semesters)
	for _, y := range years {
		assert.NotEmpty(t, y.Semesters)
	}

	assert.ElementsMatch(t, []string{"2022-2023", "2023-2024", "2024-2025"}, done)

	created, open := engine.Contexts()
	assert.Equal(t, 3, created, "one context per year")
	assert.Zero(t, open)
	_, openPages := engine.Pages()
	assert.Zero(t, openPages)
}

func TestFetch_NoYears(t *testing.T) {
	p := newPortal()
	p.Years = nil
	sess, _ := login(t, p)

	years, err := New(Options{URLs: p.URLs}).Fetch(context.Background(), sess)
	require.NoError(t, err)
	assert.Empty(t, years)
}

func TestFetch_EvaluationRequired(t *testing.T) {
	p := newPortal()
	p.Evaluation = &browsertest.Evaluation{
		Href:    "/external/student/evaluation/EvaluateCourse.aspx",
		Courses: []string{"CSEN 401 Computer Programming Lab", "MATH 203 Mathematics III"},
	}
	sess, engine := login(t, p)

	_, err := New(Options{URLs: p.URLs}).Fetch(context.Background(), sess)
	require.ErrorIs(t, err, portal.ErrEvaluationRequired)

	var pe *portal.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, portal.DefaultBaseURL+"/external/student/evaluation/EvaluateCourse.aspx", pe.URL)
	assert.Equal(t, p.Evaluation.Courses, pe.Courses)

	created, _ := engine.Contexts()
	assert.Zero(t, created, "no year is crawled")
}

func TestFetch_YearFailureAbortsBatch(t *testing.T) {
	p := newPortal()
	sess, engine := login(t, p)

	boom := errors.New("net::ERR_TIMED_OUT")
	engine.Hook = func(ctx context.Context, call browsertest.Call) error {
		if call.Op != "select" {
			return nil
		}
		if call.Value == "2" {
			return boom
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("sibling was not cancelled")
		}
	}

	years, err := New(Options{URLs: p.URLs}).Fetch(context.Background(), sess)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "year 2023-2024")
	assert.Nil(t, years)

	_, open := engine.Contexts()
	assert.Zero(t, open, "contexts are closed on failure")
	_, openPages := engine.Pages()
	assert.Zero(t, openPages)
}

func TestFetch_PassFailCourseKeepsYear(t *testing.T) {
	p := newPortal()
	sess, engine := login(t, p)
	engine.Handler = func(r browsertest.Request) string {
		html := p.Handle(r)
		if r.Selected[portal.YearSelector] == "3" {
			return `<html><body><span id="dtLbl">x</span><table><tr><td><table bordercolor="gainsboro">
				<tr><td>Winter 2024</td></tr><tr><td>h</td></tr>
				<tr><td>1</td><td>SM101</td><td>FA</td><td>FA</td><td>2</td></tr>
				<tr><td></td><td>GPA</td><td>1.0</td></tr></table></td></tr></table></body></html>`
		}
		return html
	}

	years, err := New(Options{URLs: p.URLs}).Fetch(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, years, 2)

	assert.Equal(t, "2024-2025", years[1].Year)
	require.Len(t, years[1].Semesters, 1)
	c := years[1].Semesters[0].Courses[0]
	assert.Equal(t, "SM101", c.Name)
	assert.False(t, c.Grade.Numeric.Valid())
	assert.Equal(t, "FA", c.Grade.Letter)
	assert.Equal(t, models.Number(1), years[1].Semesters[0].GPA)
}

func TestFetchYear_MissingConfirmation(t *testing.T) {
	p := newPortal()
	sess, engine := login(t, p)

	_, err := New(Options{URLs: p.URLs}).FetchYear(context.Background(), sess, models.YearOption{Year: "1999", Value: "99"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, open := engine.Contexts()
	assert.Zero(t, open)
}

func TestYears(t *testing.T) {
	p := newPortal()
	sess, _ := login(t, p)

	years, err := New(Options{URLs: p.URLs}).Years(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, []models.YearOption{
		{Year: "2022-2023", Value: "1"},
		{Year: "2023-2024", Value: "2"},
		{Year: "2024-2025", Value: "3"},
	}, years)
}
