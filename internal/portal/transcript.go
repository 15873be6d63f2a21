package portal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/guc/internal/urlutil"
	"github.com/law-makers/guc/pkg/models"
)

// minSemesterRows is the row count of a semester table with no courses:
// the name row, the column header row and the summary row.
const minSemesterRows = 3

// ParseTranscriptLanding inspects the transcript page before any year is
// selected. A disabled year selector means the portal is holding the
// transcript until course evaluations are done; that case returns an
// EVALUATION_REQUIRED *Error. Otherwise the selectable years are returned
// without the leading placeholder entry. location is the page URL, used to
// resolve the evaluation link.
func ParseTranscriptLanding(html, location string) ([]models.YearOption, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcript page: %w", err)
	}

	sel := doc.Find(YearSelector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: year selector %s not found", ErrMalformedPage, YearSelector)
	}

	if _, disabled := sel.Attr("disabled"); disabled {
		return nil, parseEvaluationBlock(doc, location)
	}

	options := selectOptions(sel)
	years := make([]models.YearOption, 0, len(options))
	for _, o := range options {
		years = append(years, models.YearOption{Year: o.text, Value: o.value})
	}
	return years, nil
}

// parseEvaluationBlock reads the evaluation link and the pending courses.
// The message lists one course per line between an intro and a closing line.
func parseEvaluationBlock(doc *goquery.Document, location string) error {
	href, _ := doc.Find("a").First().Attr("href")
	url := urlutil.ResolveURL(location, href)

	lines := strings.Split(innerText(doc.Find(EvaluationMessage).First()), "\n")
	courses := []string{}
	if len(lines) > 2 {
		courses = append(courses, lines[1:len(lines)-1]...)
	}

	return NewEvaluationRequired(url, courses)
}

type option struct {
	text  string
	value string
}

// selectOptions returns a select's options minus the first, which the
// portal uses as a "choose..." placeholder.
func selectOptions(sel *goquery.Selection) []option {
	var out []option
	sel.Find("option").Each(func(i int, o *goquery.Selection) {
		if i == 0 {
			return
		}
		text := strings.Join(strings.Fields(o.Text()), " ")
		value, ok := o.Attr("value")
		if !ok {
			value = text
		}
		out = append(out, option{text: text, value: value})
	})
	return out
}

// CrawlYearPage extracts the semesters of a rendered year page.
//
// Semester tables are the nested tables marked with a gainsboro border. The
// first row holds the semester name, the second the column headers and the
// last the summary whose third cell is the GPA. Rows in between are courses:
// name, numeric grade, letter grade and credit hours in cells 1 to 4. Tables
// with no course rows are skipped. Numeric cells that hold no number (a
// pass/fail mark, say) are kept as invalid Numbers rather than failing the
// page; only a missing cell is an error.
func CrawlYearPage(html string) ([]models.TranscriptSemester, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse year page: %w", err)
	}

	semesters := []models.TranscriptSemester{}
	var crawlErr error
	doc.Find(SemesterTable).EachWithBreak(func(i int, table *goquery.Selection) bool {
		rows := table.Children().First().Children()
		if rows.Length() <= minSemesterRows {
			return true
		}

		semester, err := crawlSemester(rows)
		if err != nil {
			crawlErr = fmt.Errorf("semester table %d: %w", i, err)
			return false
		}
		semesters = append(semesters, semester)
		return true
	})
	if crawlErr != nil {
		return nil, crawlErr
	}

	return semesters, nil
}

func crawlSemester(rows *goquery.Selection) (models.TranscriptSemester, error) {
	last := rows.Length() - 1

	gpaText, err := cellText(rows.Eq(last), 2)
	if err != nil {
		return models.TranscriptSemester{}, fmt.Errorf("summary row: %w", err)
	}

	courses := make([]models.Course, 0, last-2)
	for i := 2; i < last; i++ {
		course, err := crawlCourse(rows.Eq(i))
		if err != nil {
			return models.TranscriptSemester{}, fmt.Errorf("course row %d: %w", i, err)
		}
		courses = append(courses, course)
	}

	return models.TranscriptSemester{
		Name:    innerText(rows.Eq(0)),
		GPA:     models.ParseNumber(gpaText),
		Courses: courses,
	}, nil
}

func crawlCourse(row *goquery.Selection) (models.Course, error) {
	var cells [5]string
	for i := 1; i < len(cells); i++ {
		text, err := cellText(row, i)
		if err != nil {
			return models.Course{}, err
		}
		cells[i] = text
	}

	return models.Course{
		Name: cells[1],
		Grade: models.Grade{
			Numeric: models.ParseNumber(cells[2]),
			Letter:  cells[3],
		},
		CreditHours: models.ParseNumber(cells[4]),
	}, nil
}

// cellText returns the trimmed text of the idx-th element child of row.
func cellText(row *goquery.Selection, idx int) (string, error) {
	cell := row.Children().Eq(idx)
	if cell.Length() == 0 {
		return "", fmt.Errorf("%w: missing cell %d", ErrMalformedPage, idx)
	}
	return innerText(cell), nil
}
