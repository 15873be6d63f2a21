// Package portal isolates everything that depends on the GUC portal markup.
//
// Page titles, element ids and table layouts are matched exactly. Other
// packages only see typed results (login outcomes, year options, semesters)
// so a markup change on the portal touches this package alone.
package portal

import (
	"fmt"

	"github.com/law-makers/guc/internal/urlutil"
)

// DefaultBaseURL is the production students' services host.
const DefaultBaseURL = "https://student.guc.edu.eg"

// Portal paths relative to the base URL.
const (
	HomePath       = "/"
	TranscriptPath = "/external/student/grade/Transcript.aspx"
	GradesPath     = "/external/student/grade/CheckGrade.aspx"
)

// Page titles used to classify the landing page after authentication.
const (
	TitleHome         = "GUC Students' Services"
	TitleUnauthorized = "401 - Unauthorized: Access is denied due to invalid credentials."
	TitleCorrupted    = "The state information is invalid for this page and might be corrupted."
)

// Selectors on the transcript page.
const (
	YearSelector         = "#stdYrLst"
	ConfirmationSelector = "#dtLbl"
	EvaluationMessage    = "#msgLbl2"
	SemesterTable        = `table [bordercolor="gainsboro"]`
)

// Selectors on the grades page.
const (
	CourseSelector  = "#smCrsLst"
	MidtermTable    = "#midDg"
	CourseWorkTable = "#nttTr"
)

// Login page error elements; the portal prints a handled exception as an
// h2 message followed by an h3 detail line.
const (
	errorHeading = "h2"
	errorDetail  = "h3"
)

// URLs holds the absolute addresses of the pages the client visits.
type URLs struct {
	Home       string
	Transcript string
	Grades     string
}

// NewURLs builds the page addresses for a portal rooted at base.
func NewURLs(base string) (URLs, error) {
	if base == "" {
		base = DefaultBaseURL
	}

	home, err := urlutil.Join(base, HomePath)
	if err != nil {
		return URLs{}, fmt.Errorf("invalid portal base URL: %w", err)
	}
	transcript, _ := urlutil.Join(base, TranscriptPath)
	grades, _ := urlutil.Join(base, GradesPath)

	return URLs{
		Home:       home,
		Transcript: transcript,
		Grades:     grades,
	}, nil
}

// DefaultURLs returns the production page addresses.
func DefaultURLs() URLs {
	u, _ := NewURLs(DefaultBaseURL)
	return u
}
