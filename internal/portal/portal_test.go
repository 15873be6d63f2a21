package portal

import (
	"errors"
	"testing"

	"github.com/law-makers/guc/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transcriptLocation = "https://student.guc.edu.eg/external/student/grade/Transcript.aspx"

func page(title, body string) string {
	return "<!DOCTYPE html><html><head><title>" + title + "</title></head><body>" + body + "</body></html>"
}

func TestClassifyLogin(t *testing.T) {
	tests := []struct {
		name string
		html string
		want LoginOutcome
	}{
		{"home", page(TitleHome, "<h1>Welcome</h1>"), LoginAuthenticated},
		{"home with error elements", page(TitleHome, "<h2>Notice</h2><h3>Something</h3>"), LoginAuthenticated},
		{"unauthorized", page(TitleUnauthorized, ""), LoginInvalidCredentials},
		{"corrupted state", page(TitleCorrupted, "<h2>a</h2><h3>b</h3>"), LoginUnknownSystemError},
		{"handled exception", page("Runtime Error", "<h2><i>Server Error</i></h2><h3>Object reference not set.</h3>"), LoginSystemError},
		{"heading only", page("Runtime Error", "<h2>Server Error</h2>"), LoginUnknownSystemError},
		{"blank detail", page("Runtime Error", "<h2>Server Error</h2><h3>   </h3>"), LoginUnknownSystemError},
		{"empty page", page("", ""), LoginUnknownSystemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseLoginPage(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ClassifyLogin(p).Outcome)
		})
	}
}

func TestSystemErrorRoundTrip(t *testing.T) {
	p, err := ParseLoginPage(page("Runtime Error",
		"<h2> <i>Server Error in '/' Application.</i> </h2><h3>Object reference not set.</h3>"))
	require.NoError(t, err)

	result := ClassifyLogin(p)
	require.Equal(t, LoginSystemError, result.Outcome)
	assert.False(t, result.Authenticated())

	err = result.Err()
	require.ErrorIs(t, err, ErrSystem)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Server Error in '/' Application.", pe.Message)
	assert.Equal(t, "Object reference not set.", pe.Details)
	assert.Equal(t, CodeSystemError, CodeOf(err))
}

func TestLoginResultErr(t *testing.T) {
	assert.NoError(t, LoginResult{Outcome: LoginAuthenticated}.Err())
	assert.ErrorIs(t, LoginResult{Outcome: LoginInvalidCredentials}.Err(), ErrInvalidCredentials)
	assert.ErrorIs(t, LoginResult{Outcome: LoginUnknownSystemError}.Err(), ErrUnknownSystem)
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("boom")))
}

func TestParseTranscriptLanding(t *testing.T) {
	html := page("Transcript", `
		<select id="stdYrLst">
			<option value="">Choose a year</option>
			<option value="2022-2023">2022-2023</option>
			<option value="2023-2024">  2023-2024 </option>
		</select>`)

	years, err := ParseTranscriptLanding(html, transcriptLocation)
	require.NoError(t, err)
	assert.Equal(t, []models.YearOption{
		{Year: "2022-2023", Value: "2022-2023"},
		{Year: "2023-2024", Value: "2023-2024"},
	}, years)
}

func TestParseTranscriptLanding_NoYears(t *testing.T) {
	html := page("Transcript", `<select id="stdYrLst"><option>Choose</option></select>`)

	years, err := ParseTranscriptLanding(html, transcriptLocation)
	require.NoError(t, err)
	assert.Empty(t, years)
}

func TestParseTranscriptLanding_EvaluationRequired(t *testing.T) {
	html := page("Transcript", `
		<a href="Evaluation/EvaluateCourse.aspx">Evaluate</a>
		<span id="msgLbl2">You have to evaluate the following courses first:<br>CSEN 401 Computer Programming Lab<br>MATH 203 Mathematics III<br>Then come back.</span>
		<select id="stdYrLst" disabled="disabled"><option>Choose</option></select>`)

	_, err := ParseTranscriptLanding(html, transcriptLocation)
	require.ErrorIs(t, err, ErrEvaluationRequired)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "https://student.guc.edu.eg/external/student/grade/Evaluation/EvaluateCourse.aspx", pe.URL)
	assert.Equal(t, []string{"CSEN 401 Computer Programming Lab", "MATH 203 Mathematics III"}, pe.Courses)
}

func TestParseTranscriptLanding_MissingSelector(t *testing.T) {
	_, err := ParseTranscriptLanding(page("Transcript", "<p>nothing</p>"), transcriptLocation)
	assert.ErrorIs(t, err, ErrMalformedPage)
}

func semesterTable(rows string) string {
	return `<table><tr><td><table bordercolor="gainsboro">` + rows + `</table></td></tr></table>`
}

const semesterHeader = `<tr><td>#</td><td>Course</td><td>Numeric</td><td>Grade</td><td>Hours</td></tr>`

func TestCrawlYearPage(t *testing.T) {
	html := page("Transcript", semesterTable(
		`<tr><td colspan="5">Winter 2023</td></tr>`+
			semesterHeader+
			`<tr><td>1</td><td>CS101</td><td>85</td><td>B</td><td>3</td></tr>`+
			`<tr><td></td><td>Semester GPA</td><td>3.0</td></tr>`))

	semesters, err := CrawlYearPage(html)
	require.NoError(t, err)
	require.Len(t, semesters, 1)

	s := semesters[0]
	assert.Equal(t, "Winter 2023", s.Name)
	assert.Equal(t, models.Number(3), s.GPA)
	require.Len(t, s.Courses, 1)
	assert.Equal(t, models.Course{
		Name:        "CS101",
		Grade:       models.Grade{Numeric: 85, Letter: "B"},
		CreditHours: 3,
	}, s.Courses[0])
}

func TestCrawlYearPage_SkipsEmptySemesters(t *testing.T) {
	empty := semesterTable(
		`<tr><td colspan="5">Summer 2023</td></tr>` +
			semesterHeader +
			`<tr><td></td><td>Semester GPA</td><td>0</td></tr>`)
	full := semesterTable(
		`<tr><td colspan="5">Spring 2024</td></tr>` +
			semesterHeader +
			`<tr><td>1</td><td>MATH201</td><td>1.7</td><td>A-</td><td>6</td></tr>` +
			`<tr><td>2</td><td>PHYS101</td><td>2.3</td><td>B+</td><td>4</td></tr>` +
			`<tr><td></td><td>Semester GPA</td><td>1.94</td></tr>`)

	semesters, err := CrawlYearPage(page("Transcript", empty+full))
	require.NoError(t, err)
	require.Len(t, semesters, 1)
	assert.Equal(t, "Spring 2024", semesters[0].Name)
	assert.Len(t, semesters[0].Courses, 2)
	assert.Equal(t, models.Number(1.94), semesters[0].GPA)
}

func TestCrawlYearPage_NoTables(t *testing.T) {
	semesters, err := CrawlYearPage(page("Transcript", "<p>no data</p>"))
	require.NoError(t, err)
	assert.Empty(t, semesters)
}

func TestCrawlYearPage_NonNumericCells(t *testing.T) {
	html := page("Transcript", semesterTable(
		`<tr><td colspan="5">Winter 2023</td></tr>`+
			semesterHeader+
			`<tr><td>1</td><td>CS101</td><td>85</td><td>B</td><td>3</td></tr>`+
			`<tr><td>2</td><td>SM101 Scientific Methods</td><td>FA</td><td>FA</td><td>2</td></tr>`+
			`<tr><td>3</td><td>DE101 German I</td><td></td><td>P</td><td>2</td></tr>`+
			`<tr><td></td><td>Semester GPA</td><td>N/A</td></tr>`))

	semesters, err := CrawlYearPage(html)
	require.NoError(t, err)
	require.Len(t, semesters, 1)

	s := semesters[0]
	assert.False(t, s.GPA.Valid())
	require.Len(t, s.Courses, 3)
	assert.Equal(t, models.Number(85), s.Courses[0].Grade.Numeric)

	failed := s.Courses[1]
	assert.Equal(t, "SM101 Scientific Methods", failed.Name)
	assert.False(t, failed.Grade.Numeric.Valid())
	assert.Equal(t, "FA", failed.Grade.Letter)
	assert.Equal(t, models.Number(2), failed.CreditHours)

	// An empty cell converts to zero.
	assert.Equal(t, models.Number(0), s.Courses[2].Grade.Numeric)
	assert.True(t, s.Courses[2].Grade.Numeric.Valid())
}

func TestCrawlYearPage_MissingCell(t *testing.T) {
	html := page("Transcript", semesterTable(
		`<tr><td colspan="5">Winter 2023</td></tr>`+
			semesterHeader+
			`<tr><td>1</td><td>CS101</td></tr>`+
			`<tr><td></td><td>Semester GPA</td><td>3.0</td></tr>`))

	_, err := CrawlYearPage(html)
	assert.ErrorIs(t, err, ErrMalformedPage)
}

func TestParseGradesLanding(t *testing.T) {
	html := page("Grades", `
		<table id="midDg">
			<tr><td>Course</td><td>Percentage</td></tr>
			<tr><td>CSEN 401 Computer Programming Lab</td><td>87.5%</td></tr>
			<tr><td>MATH 203 Mathematics III</td><td>64</td></tr>
		</table>
		<select id="smCrsLst">
			<option value="0">Choose a course</option>
			<option value="4012">CSEN 401 Computer Programming Lab</option>
		</select>`)

	landing, err := ParseGradesLanding(html)
	require.NoError(t, err)
	assert.Equal(t, []models.MidtermGrade{
		{Course: "CSEN 401 Computer Programming Lab", Percentage: 87.5},
		{Course: "MATH 203 Mathematics III", Percentage: 64},
	}, landing.Midterms)
	assert.Equal(t, []models.CourseOption{
		{Course: "CSEN 401 Computer Programming Lab", Value: "4012"},
	}, landing.Courses)
}

func TestParseGradesLanding_NoMidterms(t *testing.T) {
	landing, err := ParseGradesLanding(page("Grades", `<select id="smCrsLst"><option>Choose</option></select>`))
	require.NoError(t, err)
	assert.Empty(t, landing.Midterms)
	assert.Empty(t, landing.Courses)
}

func TestParseGradesLanding_MissingSelector(t *testing.T) {
	_, err := ParseGradesLanding(page("Grades", ""))
	assert.ErrorIs(t, err, ErrMalformedPage)
}

func TestParseCourseWork(t *testing.T) {
	html := page("Grades", `
		<table id="nttTr">
			<tr><td>Quiz/Assignment</td><td>Grade</td></tr>
			<tr><td>Quiz 1</td><td>8 / 10</td></tr>
			<tr><td>Bonus</td><td>2</td></tr>
		</table>`)

	items, err := ParseCourseWork(html)
	require.NoError(t, err)
	assert.Equal(t, []models.CourseWorkItem{
		{Name: "Quiz 1", Score: 8, MaxScore: 10},
		{Name: "Bonus", Score: 2, MaxScore: 0},
	}, items)
}

func TestParseCourseWork_Ungraded(t *testing.T) {
	items, err := ParseCourseWork(page("Grades", `<table id="nttTr"><tr><td>h</td><td>h</td></tr><tr><td>Quiz</td><td>- / 10</td></tr></table>`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Score.Valid(), "ungraded score is kept as an invalid number")
	assert.Equal(t, models.Number(10), items[0].MaxScore)

	_, err = ParseCourseWork(page("Grades", "<p></p>"))
	assert.ErrorIs(t, err, ErrMalformedPage)
}

func TestNewURLs(t *testing.T) {
	u, err := NewURLs("http://127.0.0.1:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/external/student/grade/Transcript.aspx", u.Transcript)
	assert.Equal(t, "http://127.0.0.1:8080/external/student/grade/CheckGrade.aspx", u.Grades)

	_, err = NewURLs("not a url")
	assert.Error(t, err)

	assert.Equal(t, DefaultBaseURL+"/external/student/grade/Transcript.aspx", DefaultURLs().Transcript)
}
