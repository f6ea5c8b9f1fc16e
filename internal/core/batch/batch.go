// Package batch converts a list of pages one after another through a
// controller, so that each page gets its own poll and its own outcome.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/neilberkman/pagecast/internal/core/controller"
	"github.com/neilberkman/pagecast/internal/core/models"
)

// Converter is the part of the controller a batch needs
type Converter interface {
	Convert(ctx context.Context, page int) (models.Artifact, error)
	Download(ctx context.Context, kind models.ArtifactKind, dir string) (string, error)
}

// Result is the outcome of one page
type Result struct {
	Page     int
	Artifact models.Artifact
	Path     string // Set when the audio was downloaded
	Err      error
	Elapsed  time.Duration
}

// Options for Run
type Options struct {
	Pages       []int
	DownloadDir string // Empty skips downloading
	Progress    ProgressCallback
}

// Run converts every page in order. A failed page does not stop the batch;
// cancellation or a superseded session does.
func Run(ctx context.Context, conv Converter, opts Options) ([]Result, error) {
	results := make([]Result, 0, len(opts.Pages))
	for _, page := range opts.Pages {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		start := time.Now()
		r := Result{Page: page}
		r.Artifact, r.Err = conv.Convert(ctx, page)
		if r.Err == nil && opts.DownloadDir != "" {
			r.Path, r.Err = conv.Download(ctx, models.PageAudio, opts.DownloadDir)
		}
		r.Elapsed = time.Since(start)
		results = append(results, r)

		if opts.Progress != nil {
			opts.Progress.Update(page, outcome(r))
		}
		if errors.Is(r.Err, controller.ErrSuperseded) || errors.Is(r.Err, context.Canceled) {
			return results, r.Err
		}
	}
	if opts.Progress != nil {
		opts.Progress.Finish()
	}
	return results, nil
}

func outcome(r Result) string {
	if r.Err == nil {
		return "ok"
	}
	var fe *controller.Error
	if errors.As(r.Err, &fe) {
		return fe.Message
	}
	return r.Err.Error()
}

// Failed counts results with an error
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// ParsePages reads a page list like "1-3,5" against a document of total
// pages. "all" selects every page. The result is sorted and deduplicated.
func ParsePages(sel string, total int) ([]int, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return nil, errors.New("no pages given")
	}
	if sel == "all" {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid page %q", part)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid page range %q", part)
			}
		}
		if first > last {
			return nil, fmt.Errorf("invalid page range %q", part)
		}
		if first < 1 || last > total {
			return nil, fmt.Errorf("page %q out of range 1-%d", part, total)
		}
		for p := first; p <= last; p++ {
			seen[p] = true
		}
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}
