// Package transcript fetches a student's transcript, one isolated browser
// context per academic year.
package transcript

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

var tracer = otel.Tracer("guc/transcript")

// Options configures an Extractor.
type Options struct {
	URLs portal.URLs
	// MaxParallel bounds the years fetched at once; 0 means no bound.
	MaxParallel int
	// Progress, when set, is called once per finished year from the
	// goroutine that fetched it.
	Progress func(year string)
}

// Extractor fetches transcripts.
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

// Years loads the transcript page and returns the selectable years. A
// portal holding the transcript behind course evaluations yields an
// EVALUATION_REQUIRED *portal.Error.
func (e *Extractor) Years(ctx context.Context, sess *auth.Session) ([]models.YearOption, error) {
	page, err := auth.OpenPage(ctx, sess.Engine(), sess.Credentials(), e.opts.URLs.Transcript)
	if err != nil {
		return nil, err
	}
	defer auth.ClosePage(page)

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	location, err := page.Location(ctx)
	if err != nil {
		return nil, err
	}
	return portal.ParseTranscriptLanding(html, location)
}

// Fetch returns every year that has at least one semester, in the order the
// portal lists them. Any failing year aborts the whole fetch and cancels the
// years still running.
func (e *Extractor) Fetch(ctx context.Context, sess *auth.Session) ([]models.TranscriptYear, error) {
	ctx, span := tracer.Start(ctx, "transcript.Fetch")
	defer span.End()
	logger := reqctx.Logger(ctx)

	years, err := e.Years(ctx, sess)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("years", len(years)))
	logger.Debug().Int("years", len(years)).Msg("Transcript years found")

	fetched, err := fanout.Map(ctx, years, e.opts.MaxParallel,
		func(ctx context.Context, _ int, year models.YearOption) (models.TranscriptYear, error) {
			return e.FetchYear(ctx, sess, year)
		})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := make([]models.TranscriptYear, 0, len(fetched))
	for _, y := range fetched {
		if len(y.Semesters) == 0 {
			logger.Debug().Str("year", y.Year).Msg("Dropping year without semesters")
			continue
		}
		result = append(result, y)
	}

	logger.Info().
		Int("years", len(result)).
		Dur("elapsed", reqctx.From(ctx).Elapsed()).
		Msg("Transcript fetched")
	return result, nil
}

// FetchYear crawls one year in its own browser context. The context is
// closed before returning, on failure too.
func (e *Extractor) FetchYear(ctx context.Context, sess *auth.Session, year models.YearOption) (models.TranscriptYear, error) {
	ctx, span := tracer.Start(ctx, "transcript.FetchYear")
	defer span.End()
	span.SetAttributes(attribute.String("year", year.Year))

	semesters, err := e.crawlYear(ctx, sess, year)
	if err != nil {
		span.RecordError(err)
		return models.TranscriptYear{}, fmt.Errorf("year %s: %w", year.Year, err)
	}

	if e.opts.Progress != nil {
		e.opts.Progress(year.Year)
	}
	return models.TranscriptYear{Year: year.Year, Semesters: semesters}, nil
}

func (e *Extractor) crawlYear(ctx context.Context, sess *auth.Session, year models.YearOption) ([]models.TranscriptSemester, error) {
	isolated, err := sess.Engine().NewContext(ctx)
	if err != nil {
		return nil, err
	}
	defer auth.CloseContext(isolated)

	page, err := auth.OpenPage(ctx, isolated, sess.Credentials(), e.opts.URLs.Transcript)
	if err != nil {
		return nil, err
	}
	defer auth.ClosePage(page)

	if err := page.Select(ctx, portal.YearSelector, year.Value); err != nil {
		return nil, err
	}
	if err := page.WaitFor(ctx, portal.ConfirmationSelector); err != nil {
		return nil, err
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return portal.CrawlYearPage(html)
}
