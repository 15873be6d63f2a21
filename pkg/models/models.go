// Package models holds the academic records and credentials exchanged with the GUC portal.
package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Credentials identify a student on the portal.
//
// They are copied by value into every authenticated page and are never
// written to disk, the keyring, or the config file.
type Credentials struct {
	Username string `json:"-"`
	Password string `json:"-"`
}

// Valid reports whether both fields are set.
func (c Credentials) Valid() bool {
	return c.Username != "" && c.Password != ""
}

// String hides the password so credentials can be logged safely.
func (c Credentials) String() string {
	return c.Username + ":<redacted>"
}

// Number is a numeric cell as the portal prints it. An empty cell is 0 and
// text that is not a number, such as a pass/fail mark, is NaN. Invalid
// values stay in the record and encode as JSON null.
type Number float64

// ParseNumber converts cell text. It never fails; check Valid.
func ParseNumber(text string) Number {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number(math.NaN())
	}
	return Number(v)
}

// Valid reports whether n is a finite number.
func (n Number) Valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// String formats n in its shortest form, or "" when it is not valid.
func (n Number) String() string {
	if !n.Valid() {
		return ""
	}
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(n))
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Number(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Grade is a course result as the portal prints it.
type Grade struct {
	Numeric Number `json:"numeric"`
	Letter  string `json:"letter"`
}

// Course is one row of a transcript semester table.
type Course struct {
	Name        string `json:"name"`
	Grade       Grade  `json:"grade"`
	CreditHours Number `json:"credit_hours"`
}

// TranscriptSemester is a semester table with its summary GPA.
type TranscriptSemester struct {
	Name    string   `json:"name"`
	GPA     Number   `json:"gpa"`
	Courses []Course `json:"courses"`
}

// TranscriptYear groups the semesters recorded for one academic year.
type TranscriptYear struct {
	Year      string               `json:"year"`
	Semesters []TranscriptSemester `json:"semesters"`
}

// YearOption is an entry of the transcript year selector.
// Value is the opaque form value the portal expects when selecting the year.
type YearOption struct {
	Year  string `json:"year"`
	Value string `json:"value"`
}

// CourseOption is an entry of the grades course selector.
type CourseOption struct {
	Course string `json:"course"`
	Value  string `json:"value"`
}

// CourseWorkItem is a single graded element (quiz, assignment, project).
type CourseWorkItem struct {
	Name     string `json:"name"`
	Score    Number `json:"score"`
	MaxScore Number `json:"max_score"`
}

// CourseWorkGrade lists the graded elements of one course.
type CourseWorkGrade struct {
	Course string           `json:"course"`
	Items  []CourseWorkItem `json:"items"`
}

// MidtermGrade is the published midterm percentage of one course.
type MidtermGrade struct {
	Course     string `json:"course"`
	Percentage Number `json:"percentage"`
}

// Grades is the result of a grades fetch.
type Grades struct {
	CourseWork []CourseWorkGrade `json:"course_work"`
	Midterms   []MidtermGrade    `json:"midterms"`
}
