package browsertest

import (
	"fmt"
	"html"
	"strings"

	"github.com/law-makers/guc/internal/portal"
	"github.com/law-makers/guc/pkg/models"
)

// Year is one selectable transcript year.
type Year struct {
	Label     string
	Value     string
	Semesters []models.TranscriptSemester
}

// CourseWork is one selectable course on the grades page.
type CourseWork struct {
	Label string
	Value string
	Items []models.CourseWorkItem
}

// Evaluation makes the transcript page demand course evaluations.
type Evaluation struct {
	Href    string
	Courses []string
}

// Portal renders the student portal pages from data, following the markup
// the portal package parses.
type Portal struct {
	URLs     portal.URLs
	Username string
	Password string

	// SystemError, when set, replaces the home page with a handled exception
	// page showing Heading and Detail.
	SystemError *struct{ Heading, Detail string }
	// HomeTitle overrides the title of the home page when non-empty.
	HomeTitle string

	Years      []Year
	Evaluation *Evaluation

	Midterms []models.MidtermGrade
	Courses  []CourseWork
}

// NewPortal returns a portal at the default URLs accepting username/password.
func NewPortal(username, password string) *Portal {
	return &Portal{
		URLs:     portal.DefaultURLs(),
		Username: username,
		Password: password,
	}
}

// Engine returns a fake engine serving this portal.
func (p *Portal) Engine() *Engine {
	return New(p.Handle)
}

// Handle implements Handler.
func (p *Portal) Handle(r Request) string {
	if r.Credentials.Username != p.Username || r.Credentials.Password != p.Password {
		return document(portal.TitleUnauthorized, "<h1>Server Error</h1><h2>401 - Unauthorized: Access is denied due to invalid credentials.</h2>")
	}

	switch r.URL {
	case p.URLs.Home:
		return p.home()
	case p.URLs.Transcript:
		return p.transcript(r.Selected[portal.YearSelector])
	case p.URLs.Grades:
		return p.grades(r.Selected[portal.CourseSelector])
	}
	return document("404 - Not Found", "<h1>Not Found</h1>")
}

func (p *Portal) home() string {
	if p.SystemError != nil {
		return document("Runtime Error", fmt.Sprintf("<h2><i>%s</i></h2><h3>%s</h3>",
			html.EscapeString(p.SystemError.Heading), html.EscapeString(p.SystemError.Detail)))
	}
	title := portal.TitleHome
	if p.HomeTitle != "" {
		title = p.HomeTitle
	}
	return document(title, "<h1>Welcome</h1>")
}

func (p *Portal) transcript(selected string) string {
	var b strings.Builder

	if p.Evaluation != nil {
		fmt.Fprintf(&b, `<a href="%s">Evaluate</a>`, html.EscapeString(p.Evaluation.Href))
		b.WriteString(`<span id="msgLbl2">You have to evaluate the following courses first:`)
		for _, c := range p.Evaluation.Courses {
			b.WriteString("<br>" + html.EscapeString(c))
		}
		b.WriteString(`<br>Then come back to view your transcript.</span>`)
		b.WriteString(`<select id="stdYrLst" disabled="disabled"><option>Choose a year</option></select>`)
		return document("Transcript", b.String())
	}

	opts := make([]option, 0, len(p.Years))
	for _, y := range p.Years {
		opts = append(opts, option{y.Label, y.Value})
	}
	b.WriteString(selectMarkup("stdYrLst", "Choose a year", opts))

	for _, y := range p.Years {
		if y.Value != selected || selected == "" {
			continue
		}
		fmt.Fprintf(&b, `<span id="dtLbl">%s</span>`, html.EscapeString(y.Label))
		b.WriteString("<table>")
		for _, s := range y.Semesters {
			b.WriteString("<tr><td>" + semesterMarkup(s) + "</td></tr>")
		}
		b.WriteString("</table>")
	}
	return document("Transcript", b.String())
}

func semesterMarkup(s models.TranscriptSemester) string {
	var b strings.Builder
	b.WriteString(`<table bordercolor="gainsboro">`)
	fmt.Fprintf(&b, `<tr><td colspan="5">%s</td></tr>`, html.EscapeString(s.Name))
	b.WriteString(`<tr><td>#</td><td>Course</td><td>Numeric</td><td>Grade</td><td>Hours</td></tr>`)
	for i, c := range s.Courses {
		fmt.Fprintf(&b, `<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			i+1, html.EscapeString(c.Name), number(c.Grade.Numeric), html.EscapeString(c.Grade.Letter), number(c.CreditHours))
	}
	fmt.Fprintf(&b, `<tr><td></td><td>Semester GPA</td><td>%s</td></tr>`, number(s.GPA))
	b.WriteString("</table>")
	return b.String()
}

func (p *Portal) grades(selected string) string {
	var b strings.Builder

	if len(p.Midterms) > 0 {
		b.WriteString(`<table id="midDg"><tr><td>Course</td><td>Percentage</td></tr>`)
		for _, m := range p.Midterms {
			fmt.Fprintf(&b, `<tr><td>%s</td><td>%s%%</td></tr>`, html.EscapeString(m.Course), number(m.Percentage))
		}
		b.WriteString("</table>")
	}

	opts := make([]option, 0, len(p.Courses))
	for _, c := range p.Courses {
		opts = append(opts, option{c.Label, c.Value})
	}
	b.WriteString(selectMarkup("smCrsLst", "Choose a course", opts))

	for _, c := range p.Courses {
		if c.Value != selected || selected == "" {
			continue
		}
		b.WriteString(`<table id="nttTr"><tr><td>Quiz/Assignment</td><td>Grade</td></tr>`)
		for _, it := range c.Items {
			score := number(it.Score)
			if it.MaxScore != 0 {
				score += " / " + number(it.MaxScore)
			}
			fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td></tr>`, html.EscapeString(it.Name), score)
		}
		b.WriteString("</table>")
	}
	return document("Grades", b.String())
}

type option struct {
	label string
	value string
}

func selectMarkup(id, placeholder string, opts []option) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<select id="%s"><option value="">%s</option>`, id, placeholder)
	for _, o := range opts {
		fmt.Fprintf(&b, `<option value="%s">%s</option>`, html.EscapeString(o.value), html.EscapeString(o.label))
	}
	b.WriteString("</select>")
	return b.String()
}

// number renders an invalid value as a dash, which reads back as invalid.
func number(n models.Number) string {
	if !n.Valid() {
		return "-"
	}
	return n.String()
}

func document(title, body string) string {
	return "<!DOCTYPE html><html><head><title>" + html.EscapeString(title) +
		"</title></head><body>" + body + "</body></html>"
}
