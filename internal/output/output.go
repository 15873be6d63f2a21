// Package output renders transcripts and grades as terminal tables, JSON,
// CSV, HTML or Markdown.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/law-makers/guc/pkg/models"
)

// Format is an output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatTable, FormatJSON, FormatCSV, FormatHTML, FormatMarkdown}

// ParseFormat accepts a format name, case-insensitively. "markdown" is an
// alias for md.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "markdown" {
		return FormatMarkdown, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want table, json, csv, html or md)", s)
}

// FormatFromPath guesses the format from a file extension, falling back to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".html", ".htm":
		return FormatHTML
	case ".md", ".markdown":
		return FormatMarkdown
	case ".txt":
		return FormatTable
	default:
		return FormatJSON
	}
}

// WriteTranscript writes years to w in format f.
func WriteTranscript(w io.Writer, f Format, years []models.TranscriptYear) error {
	switch f {
	case FormatTable:
		return transcriptTable(w, years)
	case FormatJSON:
		return writeJSON(w, years)
	case FormatCSV:
		return transcriptCSV(w, years)
	case FormatHTML:
		return renderHTML(w, transcriptDocument(years))
	case FormatMarkdown:
		return renderMarkdown(w, transcriptDocument(years))
	}
	return fmt.Errorf("unknown format %q", f)
}

// WriteGrades writes g to w in format f.
func WriteGrades(w io.Writer, f Format, g models.Grades) error {
	switch f {
	case FormatTable:
		return gradesTable(w, g)
	case FormatJSON:
		return writeJSON(w, g)
	case FormatCSV:
		return gradesCSV(w, g)
	case FormatHTML:
		return renderHTML(w, gradesDocument(g))
	case FormatMarkdown:
		return renderMarkdown(w, gradesDocument(g))
	}
	return fmt.Errorf("unknown format %q", f)
}

// SaveFile creates path and hands it to write.
func SaveFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// number leaves invalid cells blank.
func number(n models.Number) string {
	return n.String()
}

func percent(n models.Number) string {
	if !n.Valid() {
		return ""
	}
	return n.String() + "%"
}
