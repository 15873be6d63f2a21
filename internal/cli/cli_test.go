package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/law-makers/guc/internal/app"
	"github.com/law-makers/guc/internal/browser/browsertest"
	"github.com/law-makers/guc/internal/config"
	"github.com/law-makers/guc/internal/portal"
	"github.com/law-makers/guc/internal/reqctx"
	"github.com/law-makers/guc/internal/store"
	"github.com/law-makers/guc/pkg/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPortal() *browsertest.Portal {
	p := browsertest.NewPortal("ahmed.ali", "s3cret")
	p.Years = []browsertest.Year{{
		Label: "2023-2024",
		Value: "4",
		Semesters: []models.TranscriptSemester{{
			Name: "Winter 2023",
			GPA:  1.7,
			Courses: []models.Course{
				{Name: "CSEN 401 Computer Programming Lab", Grade: models.Grade{Numeric: 1.3, Letter: "A"}, CreditHours: 8},
			},
		}},
	}}
	p.Midterms = []models.MidtermGrade{{Course: "CSEN 401", Percentage: 82.5}}
	p.Courses = []browsertest.CourseWork{{
		Label: "CSEN 401",
		Value: "11",
		Items: []models.CourseWorkItem{{Name: "Quiz 1", Score: 9, MaxScore: 10}},
	}}
	return p
}

type harness struct {
	t        *testing.T
	portal   *browsertest.Portal
	snapDir  string
	engines  []*browsertest.Engine
	prompted []string
}

func newHarness(t *testing.T, p *browsertest.Portal) *harness {
	t.Helper()
	h := &harness{t: t, portal: p, snapDir: t.TempDir()}

	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"GUC_CONFIG", "GUC_BASE_URL", "GUC_PROXY", "GUC_USER_AGENT", "GUC_CHROME_PATH", "CHROME_PATH"} {
		t.Setenv(k, "")
	}
	t.Setenv("GUC_USERNAME", "ahmed.ali")
	t.Setenv("GUC_PASSWORD", "s3cret")

	prevApp, prevPrompt, prevConfirm := newApp, promptFunc, confirmFunc
	t.Cleanup(func() { newApp, promptFunc, confirmFunc = prevApp, prevPrompt, prevConfirm })

	newApp = func(ctx context.Context, cfg *config.Config) (*app.Application, error) {
		cfg.SnapshotDir = h.snapDir
		cfg.SnapshotFileOnly = true
		a, err := app.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		e := h.portal.Engine()
		h.engines = append(h.engines, e)
		a.Engine = e
		return a, nil
	}
	promptFunc = func(label string, mask bool) (string, error) {
		h.prompted = append(h.prompted, label)
		return "", errors.New("no terminal")
	}
	confirmFunc = func(string) bool { return false }
	return h
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func (h *harness) run(args ...string) (string, string, error) {
	h.t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	h.t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	cmd, err := rootCmd.ExecuteContextC(context.Background())
	closeApp(cmd)
	return stdout.String(), stderr.String(), err
}

func TestTranscript_Table(t *testing.T) {
	h := newHarness(t, testPortal())

	stdout, _, err := h.run("transcript")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2023-2024")
	assert.Contains(t, stdout, "CSEN 401 Computer Programming Lab")

	require.Len(t, h.engines, 1)
	closed, _ := h.engines[0].Closed()
	assert.True(t, closed, "browser is closed after the command")
	assert.Empty(t, h.prompted, "credentials came from the environment")
}

func TestTranscript_SaveThenCached(t *testing.T) {
	h := newHarness(t, testPortal())
	out := filepath.Join(t.TempDir(), "transcript.csv")

	_, stderr, err := h.run("transcript", "-o", out, "--save")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Saved to "+out)
	assert.Contains(t, stderr, "Snapshot saved")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2023-2024,Winter 2023,1.7,CSEN 401 Computer Programming Lab,1.3,A,8")

	// The portal is gone; --cached must not log in.
	h.portal = browsertest.NewPortal("someone", "else")
	t.Setenv("GUC_PASSWORD", "")

	stdout, stderr, err := h.run("transcript", "--cached", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Snapshot of transcript")

	var years []models.TranscriptYear
	require.NoError(t, json.Unmarshal([]byte(stdout), &years))
	require.Len(t, years, 1)
	assert.Equal(t, testPortal().Years[0].Semesters, years[0].Semesters)

	created, _ := h.engines[1].Pages()
	assert.Zero(t, created)
}

func TestTranscript_CachedMissing(t *testing.T) {
	h := newHarness(t, testPortal())

	_, _, err := h.run("transcript", "--cached")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, describeError(err), "--save")
}

func TestGrades_JSON(t *testing.T) {
	p := testPortal()
	h := newHarness(t, p)

	stdout, _, err := h.run("grades", "--format", "json")
	require.NoError(t, err)

	var g models.Grades
	require.NoError(t, json.Unmarshal([]byte(stdout), &g))
	assert.Equal(t, p.Midterms, g.Midterms)
	require.Len(t, g.CourseWork, 1)
	assert.Equal(t, "CSEN 401", g.CourseWork[0].Course)
	assert.Equal(t, p.Courses[0].Items, g.CourseWork[0].Items)
}

func TestGrades_BadFormat(t *testing.T) {
	h := newHarness(t, testPortal())
	_, _, err := h.run("grades", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestLogin(t *testing.T) {
	h := newHarness(t, testPortal())

	stdout, _, err := h.run("login")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ahmed.ali")
	assert.Contains(t, stdout, "Authenticated")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t, testPortal())
	t.Setenv("GUC_PASSWORD", "wrong")

	_, _, err := h.run("login")
	require.ErrorIs(t, err, portal.ErrInvalidCredentials)

	var oe *reqctx.OperationError
	require.ErrorAs(t, err, &oe)
	assert.NotEmpty(t, oe.OperationID)
	assert.Contains(t, describeError(err), "rejected your username or password")
}

func TestLogin_PromptsForPassword(t *testing.T) {
	h := newHarness(t, testPortal())
	t.Setenv("GUC_PASSWORD", "")
	promptFunc = func(label string, mask bool) (string, error) {
		h.prompted = append(h.prompted, fmt.Sprintf("%s/%v", label, mask))
		return "s3cret", nil
	}

	_, _, err := h.run("login", "--username", "ahmed.ali")
	require.NoError(t, err)
	assert.Equal(t, []string{"Password for ahmed.ali/true"}, h.prompted)
}

func TestTranscript_EvaluationRequired(t *testing.T) {
	p := testPortal()
	p.Evaluation = &browsertest.Evaluation{
		Href:    "/external/student/evaluation/EvaluateCourse.aspx",
		Courses: []string{"CSEN 401 Computer Programming Lab"},
	}
	h := newHarness(t, p)

	_, _, err := h.run("transcript")
	require.ErrorIs(t, err, portal.ErrEvaluationRequired)

	msg := describeError(err)
	assert.Contains(t, msg, portal.DefaultBaseURL+"/external/student/evaluation/EvaluateCourse.aspx")
	assert.Contains(t, msg, "• CSEN 401 Computer Programming Lab")
}

func TestSnapshots_Lifecycle(t *testing.T) {
	h := newHarness(t, testPortal())

	stdout, _, err := h.run("snapshots", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No saved snapshots found.")

	_, _, err = h.run("grades", "--save", "--format", "json")
	require.NoError(t, err)

	stdout, _, err = h.run("snapshots", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ahmed.ali")
	assert.Contains(t, stdout, "grades")

	stdout, _, err = h.run("snapshots", "view", "ahmed.ali", "--kind", "grades")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ahmed.ali.grades")
	assert.Contains(t, stdout, "82.5%")

	// Declined confirmation keeps the snapshot
	stdout, _, err = h.run("snapshots", "delete", "ahmed.ali", "--kind", "grades")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cancelled.")

	_, _, err = h.run("snapshots", "delete", "ahmed.ali", "--kind", "grades", "--yes")
	require.NoError(t, err)

	_, _, err = h.run("snapshots", "view", "ahmed.ali", "--kind", "grades")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSnapshots_BadKind(t *testing.T) {
	h := newHarness(t, testPortal())
	_, _, err := h.run("snapshots", "view", "ahmed.ali", "--kind", "exams")
	assert.ErrorContains(t, err, "unknown snapshot kind")
}

func TestMissingCredentials(t *testing.T) {
	h := newHarness(t, testPortal())
	t.Setenv("GUC_USERNAME", "")

	_, _, err := h.run("login")
	require.Error(t, err)
	assert.Equal(t, []string{"Username"}, h.prompted)
	assert.Empty(t, h.engines[0].Calls(), "no login attempted")
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{portal.NewSystemError("Server Error in '/' Application.", "Timeout expired."), "Timeout expired."},
		{portal.ErrUnknownSystem, "unexpected page"},
		{fmt.Errorf("year 2023: %w", portal.ErrMalformedPage), "expected layout"},
		{store.ErrExpired, "expired"},
		{context.DeadlineExceeded, "Timed out"},
		{errors.New("boom"), "✗ boom"},
	}
	for _, tt := range tests {
		assert.Contains(t, describeError(tt.err), tt.want)
	}
}

func TestHelp(t *testing.T) {
	h := newHarness(t, testPortal())

	stdout, _, err := h.run("transcript", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "TRANSCRIPT")
	assert.Contains(t, stdout, "--cached")
	assert.Contains(t, stdout, "-u, --username string")
	assert.Contains(t, stdout, "GUC_PASSWORD")
	assert.Contains(t, stdout, "$ guc transcript -o transcript.csv --save")
	assert.NotContains(t, stdout, "$ $")
	assert.Empty(t, h.engines, "help does not start the app")
}

func TestWrapText(t *testing.T) {
	text := "one two three four five\n• first item\n- second item\n\nnext paragraph"
	assert.Equal(t, "one two three\nfour five\n• first item\n- second item\n\nnext paragraph", wrapText(text, 14))
}
