package output

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/law-makers/guc/pkg/models"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// transcriptTable renders one table per year, a block per semester.
func transcriptTable(w io.Writer, years []models.TranscriptYear) error {
	if len(years) == 0 {
		_, err := io.WriteString(w, "No transcript records.\n")
		return err
	}

	for _, y := range years {
		t := newTable(w)
		t.SetTitle(y.Year)
		t.AppendHeader(table.Row{"Semester", "Course", "Numeric", "Grade", "Hours"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 3, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight},
		})

		for i, s := range y.Semesters {
			if i > 0 {
				t.AppendSeparator()
			}
			for _, c := range s.Courses {
				t.AppendRow(table.Row{s.Name, c.Name, number(c.Grade.Numeric), c.Grade.Letter, number(c.CreditHours)})
			}
			t.AppendRow(table.Row{s.Name, "GPA", number(s.GPA), "", ""})
		}
		t.Render()
	}
	return nil
}

func gradesTable(w io.Writer, g models.Grades) error {
	if len(g.Midterms) == 0 && len(g.CourseWork) == 0 {
		_, err := io.WriteString(w, "No grades published.\n")
		return err
	}

	if len(g.Midterms) > 0 {
		t := newTable(w)
		t.SetTitle("Midterms")
		t.AppendHeader(table.Row{"Course", "Percentage"})
		for _, m := range g.Midterms {
			t.AppendRow(table.Row{m.Course, percent(m.Percentage)})
		}
		t.Render()
	}

	if len(g.CourseWork) > 0 {
		t := newTable(w)
		t.SetTitle("Course work")
		t.AppendHeader(table.Row{"Course", "Item", "Score"})
		for i, c := range g.CourseWork {
			if i > 0 {
				t.AppendSeparator()
			}
			if len(c.Items) == 0 {
				t.AppendRow(table.Row{c.Course, "-", ""})
			}
			for _, it := range c.Items {
				t.AppendRow(table.Row{c.Course, it.Name, score(it)})
			}
		}
		t.Render()
	}
	return nil
}
