package output

import (
	"html/template"
	"io"

	"github.com/law-makers/guc/pkg/models"
)

// document is the format-neutral shape shared by the HTML and Markdown writers.
type document struct {
	Title    string
	Sections []section
}

type section struct {
	Heading string
	Header  []string
	Rows    [][]string
	Footer  []string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; }
tfoot td { font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Sections}}<h2>{{.Heading}}</h2>
<table>
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
{{if .Footer}}<tfoot><tr>{{range .Footer}}<td>{{.}}</td>{{end}}</tr></tfoot>
{{end}}</table>
{{end}}</body>
</html>
`))

func renderHTML(w io.Writer, doc document) error {
	return pageTemplate.Execute(w, doc)
}

func transcriptDocument(years []models.TranscriptYear) document {
	doc := document{Title: "Transcript"}
	for _, y := range years {
		for _, s := range y.Semesters {
			sec := section{
				Heading: y.Year + " / " + s.Name,
				Header:  []string{"Course", "Numeric", "Grade", "Hours"},
				Footer:  []string{"Semester GPA", number(s.GPA), "", ""},
			}
			for _, c := range s.Courses {
				sec.Rows = append(sec.Rows, []string{c.Name, number(c.Grade.Numeric), c.Grade.Letter, number(c.CreditHours)})
			}
			doc.Sections = append(doc.Sections, sec)
		}
	}
	return doc
}

func gradesDocument(g models.Grades) document {
	doc := document{Title: "Grades"}
	if len(g.Midterms) > 0 {
		sec := section{Heading: "Midterms", Header: []string{"Course", "Percentage"}}
		for _, m := range g.Midterms {
			sec.Rows = append(sec.Rows, []string{m.Course, percent(m.Percentage)})
		}
		doc.Sections = append(doc.Sections, sec)
	}
	for _, c := range g.CourseWork {
		sec := section{Heading: c.Course, Header: []string{"Item", "Score"}}
		for _, it := range c.Items {
			sec.Rows = append(sec.Rows, []string{it.Name, score(it)})
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc
}

func score(it models.CourseWorkItem) string {
	if it.MaxScore == 0 {
		return number(it.Score)
	}
	return number(it.Score) + " / " + number(it.MaxScore)
}
