package ui

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Progress counts finished years or courses. The total is not known up
// front, so the bar runs as a spinner with a counter. A nil *Progress is a
// no-op.
type Progress struct {
	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	done int
}

// NewProgress returns a spinner on w labelled with description, or nil when
// disabled.
func NewProgress(w io.Writer, description string, enabled bool) *Progress {
	if !enabled {
		return nil
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(true),
	)
	return &Progress{bar: bar}
}

// Step records one finished item. It is safe for concurrent use.
func (p *Progress) Step(item string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.bar.Describe(ColorDim + item + ColorReset)
	_ = p.bar.Add(1)
}

// Done stops the spinner and returns the number of steps.
func (p *Progress) Done() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Finish()
	return p.done
}
