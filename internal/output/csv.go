package output

import (
	"encoding/csv"
	"io"

	"github.com/law-makers/guc/pkg/models"
)

// transcriptCSV writes one row per course.
func transcriptCSV(w io.Writer, years []models.TranscriptYear) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"year", "semester", "semester_gpa", "course", "numeric", "letter", "credit_hours"}); err != nil {
		return err
	}
	for _, y := range years {
		for _, s := range y.Semesters {
			for _, c := range s.Courses {
				row := []string{y.Year, s.Name, number(s.GPA), c.Name, number(c.Grade.Numeric), c.Grade.Letter, number(c.CreditHours)}
				if err := writer.Write(row); err != nil {
					return err
				}
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// gradesCSV writes one row per midterm and per course work item. Midterm
// rows carry the percentage as score out of 100.
func gradesCSV(w io.Writer, g models.Grades) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"kind", "course", "item", "score", "max_score"}); err != nil {
		return err
	}
	for _, m := range g.Midterms {
		if err := writer.Write([]string{"midterm", m.Course, "", number(m.Percentage), "100"}); err != nil {
			return err
		}
	}
	for _, c := range g.CourseWork {
		for _, it := range c.Items {
			if err := writer.Write([]string{"coursework", c.Course, it.Name, number(it.Score), number(it.MaxScore)}); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}
