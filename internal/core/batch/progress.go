package batch

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
)

// ProgressCallback receives one call per finished page
type ProgressCallback interface {
	Update(page int, outcome string)
	Finish()
}

// ProgressReporter draws a progress bar on a terminal
type ProgressReporter struct {
	writer    io.Writer
	total     int
	current   int
	failed    int
	startTime time.Time
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(w io.Writer, total int) *ProgressReporter {
	return &ProgressReporter{
		writer:    w,
		total:     total,
		startTime: time.Now(),
	}
}

// Update advances the bar and shows the page outcome
func (p *ProgressReporter) Update(page int, outcome string) {
	p.current++
	if outcome != "ok" {
		p.failed++
	}

	pct := float64(p.current) / float64(p.total) * 100

	// Draw progress bar (40 chars wide)
	barWidth := 40
	filled := int(float64(barWidth) * float64(p.current) / float64(p.total))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	displayText := ansi.Truncate(fmt.Sprintf("Page %d: %s", page, outcome), 50, "...")

	// Calculate ETA
	elapsed := time.Since(p.startTime)
	rate := float64(p.current) / elapsed.Seconds()
	remaining := float64(p.total-p.current) / rate
	eta := time.Duration(remaining) * time.Second

	_, _ = fmt.Fprintf(p.writer, "\r[%s] %3.0f%% (%d/%d) ETA: %s | %-50s",
		bar, pct, p.current, p.total, eta.Round(time.Second), displayText)
}

// Finish completes the progress display
func (p *ProgressReporter) Finish() {
	elapsed := time.Since(p.startTime)
	_, _ = fmt.Fprintf(p.writer, "\nCompleted: %d pages (%d failed) in %s\n",
		p.current, p.failed, elapsed.Round(time.Millisecond))
}
