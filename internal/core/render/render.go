// Package render maps a controller snapshot to what a front end shows.
// It holds no state; the same snapshot and clock always give the same view.
package render

import (
	"fmt"
	"time"

	"github.com/cbroglie/mustache"
	"github.com/microcosm-cc/bluemonday"
	"github.com/neilberkman/pagecast/internal/core/config"
	"github.com/neilberkman/pagecast/internal/core/controller"
	"github.com/neilberkman/pagecast/internal/core/session"
	"github.com/neilberkman/pagecast/internal/core/status"
)

// Options controls presentation details taken from configuration
type Options struct {
	SuccessTTL           time.Duration
	SummaryTemplate      string
	SummaryErrorTemplate string
}

// Button is an action control
type Button struct {
	Label   string
	Enabled bool
	Busy    bool
}

// PageOption is one entry of the page selector. Value 0 is the placeholder.
type PageOption struct {
	Value     int
	Label     string
	Selected  bool
	Converted bool
}

// View is everything a front end needs to draw the session
type View struct {
	ShowUpload     bool
	ShowConversion bool
	FileName       string
	FileStatus     string

	Pages        []PageOption
	Convert      Button
	Summarize    Button
	SummaryAudio Button
	Download     Button

	ShowAudio bool
	AudioURL  string

	ShowSummary    bool
	SummaryLoading bool
	SummaryHTML    string // Sanitized fragment
	SummaryText    string // Plain text for terminals
	SummaryError   string

	ShowSummaryAudioSection bool
	ShowSummaryAudio        bool
	SummaryAudioURL         string
	DownloadSummary         Button

	Status        status.Line
	StatusVisible bool
	StatusExpires time.Time // Zero when the line does not expire
}

var policy = bluemonday.UGCPolicy()

// Render builds the view of st at now
func Render(st controller.State, now time.Time, opts Options) View {
	s := st.Session
	if s == nil {
		s = session.New()
	}
	ready := s.Phase == session.Ready
	selected := ready && s.SelectedPage > 0

	v := View{
		ShowUpload:     !ready,
		ShowConversion: ready,
		FileStatus:     s.FileStatus,
		Pages:          PageOptions(s),
		Status:         st.Status,
		StatusVisible:  st.Status.Visible(now, opts.SuccessTTL),
	}
	if ready {
		v.FileName = s.Source.Name
	}
	if v.StatusVisible {
		v.StatusExpires = st.Status.ExpiresAt(opts.SuccessTTL)
	}

	converting := s.Conversion.State.Busy()
	v.Convert = Button{Label: "Convert to Audio", Enabled: selected && !converting}
	if converting {
		v.Convert = Button{Label: "Processing...", Busy: true}
	}

	summarizing := s.Summary.State == session.SummaryLoading
	v.Summarize = Button{Label: "Generate Summary", Enabled: selected && !summarizing}
	if summarizing {
		v.Summarize = Button{Label: "Generating...", Busy: true}
	}

	generating := s.SummaryAudioSt == session.AudioGenerating
	v.SummaryAudio = Button{Label: "Generate Summary Audio", Enabled: selected && !generating}
	if generating {
		v.SummaryAudio = Button{Label: "Generating...", Busy: true}
	}

	v.ShowAudio = ready && !s.Audio.IsZero()
	if v.ShowAudio {
		v.AudioURL = st.AudioURL
	}
	v.Download = Button{Label: "Download Audio", Enabled: v.ShowAudio}

	switch s.Summary.State {
	case session.SummaryLoading:
		v.ShowSummary = true
		v.SummaryLoading = true
	case session.SummaryDone:
		v.ShowSummary = true
		v.SummaryText = s.Summary.Text
		v.SummaryHTML = SummaryHTML(opts.SummaryTemplate, s.Summary.Page, s.Summary.Text)
	case session.SummaryFailed:
		v.ShowSummary = true
		v.SummaryError = s.Summary.Err
		v.SummaryHTML = ErrorHTML(opts.SummaryErrorTemplate, s.Summary.Err)
	}

	hasSummaryAudio := !s.SummaryAudio.IsZero()
	v.ShowSummaryAudioSection = ready && (s.Summary.State == session.SummaryDone || hasSummaryAudio)
	v.ShowSummaryAudio = ready && hasSummaryAudio && !generating
	if v.ShowSummaryAudio {
		v.SummaryAudioURL = st.SummaryAudioURL
	}
	v.DownloadSummary = Button{Label: "Download Summary Audio", Enabled: v.ShowSummaryAudio}

	return v
}

// PageOptions returns the placeholder followed by one entry per page
func PageOptions(s *session.Session) []PageOption {
	opts := []PageOption{{Value: 0, Label: "Select a page...", Selected: s.SelectedPage == 0}}
	if s.Phase != session.Ready {
		return opts
	}
	for _, p := range s.Pages() {
		opts = append(opts, PageOption{
			Value:     p,
			Label:     fmt.Sprintf("Page %d", p),
			Selected:  p == s.SelectedPage,
			Converted: s.ConvertedPages[p],
		})
	}
	return opts
}

// SummaryHTML renders the summary fragment. Template values are escaped and
// the result is sanitized, so a hostile template or summary cannot inject
// markup beyond basic formatting.
func SummaryHTML(tmpl string, page int, summary string) string {
	if tmpl == "" {
		tmpl = config.DefaultSummaryTemplate
	}
	out, err := mustache.Render(tmpl, map[string]interface{}{
		"page":    page,
		"summary": summary,
	})
	if err != nil {
		// Fall back to the built-in template if a custom one is broken
		out, _ = mustache.Render(config.DefaultSummaryTemplate, map[string]interface{}{
			"page":    page,
			"summary": summary,
		})
	}
	return policy.Sanitize(out)
}

// ErrorHTML renders the inline error block of a failed summary
func ErrorHTML(tmpl string, message string) string {
	if tmpl == "" {
		tmpl = config.DefaultSummaryErrorTemplate
	}
	out, err := mustache.Render(tmpl, map[string]interface{}{"message": message})
	if err != nil {
		out, _ = mustache.Render(config.DefaultSummaryErrorTemplate, map[string]interface{}{"message": message})
	}
	return policy.Sanitize(out)
}
