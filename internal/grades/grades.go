// Package grades fetches midterm results and per-course course work.
package grades

import (
	"context"
	"fmt"

	"github.com/law-makers/guc/internal/auth"
	"github.com/law-makers/guc/internal/fanout"
	"github.com/law-makers/guc/internal/portal"
	"github.com/law-makers/guc/internal/reqctx"
	"github.com/law-makers/guc/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("guc/grades")

// Options configures an Extractor.
type Options struct {
	URLs portal.URLs
	// MaxParallel bounds the courses fetched at once; 0 means no bound.
	MaxParallel int
	// Progress, when set, is called once per finished course.
	Progress func(course string)
}

// Extractor fetches grades.
type Extractor struct {
	opts Options
}

// New creates an Extractor. Zero URLs mean the production portal.
func New(opts Options) *Extractor {
	if opts.URLs == (portal.URLs{}) {
		opts.URLs = portal.DefaultURLs()
	}
	return &Extractor{opts: opts}
}

// Landing loads the grades page and returns the midterms and the courses
// that can be selected.
func (e *Extractor) Landing(ctx context.Context, sess *auth.Session) (portal.GradesLanding, error) {
	page, err := auth.OpenPage(ctx, sess.Engine(), sess.Credentials(), e.opts.URLs.Grades)
	if err != nil {
		return portal.GradesLanding{}, err
	}
	defer auth.ClosePage(page)

	html, err := page.HTML(ctx)
	if err != nil {
		return portal.GradesLanding{}, err
	}
	return portal.ParseGradesLanding(html)
}

// Fetch returns the midterms and the course work of every course, courses in
// selector order. Any failing course aborts the fetch.
func (e *Extractor) Fetch(ctx context.Context, sess *auth.Session) (models.Grades, error) {
	ctx, span := tracer.Start(ctx, "grades.Fetch")
	defer span.End()
	logger := reqctx.Logger(ctx)

	landing, err := e.Landing(ctx, sess)
	if err != nil {
		span.RecordError(err)
		return models.Grades{}, err
	}
	span.SetAttributes(
		attribute.Int("courses", len(landing.Courses)),
		attribute.Int("midterms", len(landing.Midterms)),
	)

	work, err := fanout.Map(ctx, landing.Courses, e.opts.MaxParallel,
		func(ctx context.Context, _ int, course models.CourseOption) (models.CourseWorkGrade, error) {
			return e.FetchCourse(ctx, sess, course)
		})
	if err != nil {
		span.RecordError(err)
		return models.Grades{}, err
	}

	logger.Info().
		Int("courses", len(work)).
		Int("midterms", len(landing.Midterms)).
		Msg("Grades fetched")
	return models.Grades{CourseWork: work, Midterms: landing.Midterms}, nil
}

// FetchCourse reads one course's course work in its own browser context.
func (e *Extractor) FetchCourse(ctx context.Context, sess *auth.Session, course models.CourseOption) (models.CourseWorkGrade, error) {
	ctx, span := tracer.Start(ctx, "grades.FetchCourse")
	defer span.End()
	span.SetAttributes(attribute.String("course", course.Course))

	items, err := e.crawlCourse(ctx, sess, course)
	if err != nil {
		span.RecordError(err)
		return models.CourseWorkGrade{}, fmt.Errorf("course %s: %w", course.Course, err)
	}

	if e.opts.Progress != nil {
		e.opts.Progress(course.Course)
	}
	return models.CourseWorkGrade{Course: course.Course, Items: items}, nil
}

func (e *Extractor) crawlCourse(ctx context.Context, sess *auth.Session, course models.CourseOption) ([]models.CourseWorkItem, error) {
	isolated, err := sess.Engine().NewContext(ctx)
	if err != nil {
		return nil, err
	}
	defer auth.CloseContext(isolated)

	page, err := auth.OpenPage(ctx, isolated, sess.Credentials(), e.opts.URLs.Grades)
	if err != nil {
		return nil, err
	}
	defer auth.ClosePage(page)

	if err := page.Select(ctx, portal.CourseSelector, course.Value); err != nil {
		return nil, err
	}
	if err := page.WaitFor(ctx, portal.CourseWorkTable); err != nil {
		return nil, err
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return portal.ParseCourseWork(html)
}
