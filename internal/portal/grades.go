package portal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/guc/pkg/models"
)

// GradesLanding is what the grades page shows before a course is selected.
type GradesLanding struct {
	Midterms []models.MidtermGrade
	Courses  []models.CourseOption
}

// ParseGradesLanding reads the midterm table and the course selector. A page
// without midterm results has no #midDg table; that is an empty list, not an
// error. The course selector is required.
func ParseGradesLanding(html string) (GradesLanding, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return GradesLanding{}, fmt.Errorf("failed to parse grades page: %w", err)
	}

	sel := doc.Find(CourseSelector).First()
	if sel.Length() == 0 {
		return GradesLanding{}, fmt.Errorf("%w: course selector %s not found", ErrMalformedPage, CourseSelector)
	}

	midterms, err := parseMidterms(doc)
	if err != nil {
		return GradesLanding{}, err
	}

	options := selectOptions(sel)
	courses := make([]models.CourseOption, 0, len(options))
	for _, o := range options {
		courses = append(courses, models.CourseOption{Course: o.text, Value: o.value})
	}

	return GradesLanding{Midterms: midterms, Courses: courses}, nil
}

func parseMidterms(doc *goquery.Document) ([]models.MidtermGrade, error) {
	midterms := []models.MidtermGrade{}
	rows := tableRows(doc.Find(MidtermTable).First())

	for i := 1; i < rows.Length(); i++ {
		row := rows.Eq(i)
		course, err := cellText(row, 0)
		if err != nil {
			return nil, fmt.Errorf("midterm row %d: %w", i, err)
		}
		pct, err := cellText(row, 1)
		if err != nil {
			return nil, fmt.Errorf("midterm row %d: %w", i, err)
		}
		value := models.ParseNumber(strings.TrimSuffix(strings.TrimSpace(pct), "%"))
		midterms = append(midterms, models.MidtermGrade{Course: course, Percentage: value})
	}
	return midterms, nil
}

// ParseCourseWork reads the course work table rendered after a course is
// selected. Each row after the header is an assessment with its score as
// "score / max"; a bare number has MaxScore 0.
func ParseCourseWork(html string) ([]models.CourseWorkItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse course work page: %w", err)
	}

	table := doc.Find(CourseWorkTable).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: course work table %s not found", ErrMalformedPage, CourseWorkTable)
	}

	rows := tableRows(table)
	items := make([]models.CourseWorkItem, 0, rows.Length())
	for i := 1; i < rows.Length(); i++ {
		row := rows.Eq(i)
		name, err := cellText(row, 0)
		if err != nil {
			return nil, fmt.Errorf("course work row %d: %w", i, err)
		}
		text, err := cellText(row, 1)
		if err != nil {
			return nil, fmt.Errorf("course work row %d: %w", i, err)
		}
		score, maxScore := parseScore(text)
		items = append(items, models.CourseWorkItem{Name: name, Score: score, MaxScore: maxScore})
	}
	return items, nil
}

func parseScore(text string) (models.Number, models.Number) {
	scoreText, maxText, found := strings.Cut(text, "/")
	if !found {
		return models.ParseNumber(scoreText), 0
	}
	return models.ParseNumber(scoreText), models.ParseNumber(maxText)
}

// tableRows returns the direct rows of a table. The HTML parser always
// wraps rows in a tbody, so nested tables do not leak into the result.
func tableRows(table *goquery.Selection) *goquery.Selection {
	return table.ChildrenFiltered("thead, tbody, tfoot").ChildrenFiltered("tr")
}
