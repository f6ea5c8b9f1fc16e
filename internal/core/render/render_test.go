package render

import (
	"strings"
	"testing"
	"time"

	"github.com/neilberkman/pagecast/internal/core/controller"
	"github.com/neilberkman/pagecast/internal/core/models"
	"github.com/neilberkman/pagecast/internal/core/session"
	"github.com/neilberkman/pagecast/internal/core/status"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func readyState(t *testing.T, pages int) (*session.Session, controller.State) {
	t.Helper()
	s := session.New()
	s.Begin(models.SourceFile{Name: "doc.pdf", MIME: "application/pdf"})
	if err := s.Uploaded("tmp_doc.pdf", pages); err != nil {
		t.Fatal(err)
	}
	return s, controller.State{Session: s, Status: status.New("PDF uploaded successfully!", status.Success, t0)}
}

func TestRender_Empty(t *testing.T) {
	v := Render(controller.State{}, t0, Options{})
	if !v.ShowUpload || v.ShowConversion {
		t.Errorf("empty view = upload %v, conversion %v", v.ShowUpload, v.ShowConversion)
	}
	if len(v.Pages) != 1 || v.Pages[0].Label != "Select a page..." {
		t.Errorf("Pages = %+v", v.Pages)
	}
	if v.Convert.Enabled || v.Download.Enabled || v.StatusVisible {
		t.Errorf("controls enabled on empty session: %+v", v)
	}
}

func TestRender_PageSelector(t *testing.T) {
	_, st := readyState(t, 3)
	v := Render(st, t0, Options{})

	want := []string{"Select a page...", "Page 1", "Page 2", "Page 3"}
	if len(v.Pages) != len(want) {
		t.Fatalf("got %d options, want %d", len(v.Pages), len(want))
	}
	for i, opt := range v.Pages {
		if opt.Label != want[i] || opt.Value != i {
			t.Errorf("option %d = %+v, want %q value %d", i, opt, want[i], i)
		}
	}
	if v.FileName != "doc.pdf" || !v.ShowConversion || v.ShowUpload {
		t.Errorf("ready view = %+v", v)
	}
	if v.Convert.Enabled {
		t.Error("convert enabled before a page is selected")
	}
}

func TestRender_Buttons(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(s *session.Session)
		wantLabel string
		enabled   bool
		busy      bool
	}{
		{"selected", func(s *session.Session) { _ = s.Select(2) }, "Convert to Audio", true, false},
		{"requested", func(s *session.Session) { _ = s.Request(2) }, "Processing...", false, true},
		{"pending", func(s *session.Session) { _ = s.Request(2); s.MarkPending("p2.mp3") }, "Processing...", false, true},
		{"timed out", func(s *session.Session) { _ = s.Request(2); s.MarkPending("p2.mp3"); s.TimeOut("x") }, "Convert to Audio", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st := readyState(t, 3)
			tt.mutate(s)
			v := Render(st, t0, Options{})
			if v.Convert.Label != tt.wantLabel || v.Convert.Enabled != tt.enabled || v.Convert.Busy != tt.busy {
				t.Errorf("Convert = %+v", v.Convert)
			}
		})
	}
}

func TestRender_Audio(t *testing.T) {
	s, st := readyState(t, 3)
	_ = s.Request(2)
	s.MarkPending("p2.mp3")
	s.Resolve(2, "p2.mp3", 1234)
	st.AudioURL = "http://localhost:5000/audio/p2.mp3?t=1234"

	v := Render(st, t0, Options{})
	if !v.ShowAudio || v.AudioURL != st.AudioURL || !v.Download.Enabled {
		t.Errorf("audio view = show %v url %q download %+v", v.ShowAudio, v.AudioURL, v.Download)
	}
	if !v.Pages[2].Converted || !v.Pages[2].Selected {
		t.Errorf("page 2 option = %+v", v.Pages[2])
	}
}

func TestRender_StatusExpiry(t *testing.T) {
	_, st := readyState(t, 1)
	opts := Options{SuccessTTL: 5 * time.Second}

	if v := Render(st, t0.Add(4999*time.Millisecond), opts); !v.StatusVisible {
		t.Error("success status hidden before 5s")
	}
	if v := Render(st, t0.Add(5*time.Second), opts); v.StatusVisible {
		t.Error("success status visible after 5s")
	}

	st.Status = status.New("Audio conversion timed out. Please try again.", status.Error, t0)
	v := Render(st, t0.Add(time.Hour), opts)
	if !v.StatusVisible || !v.StatusExpires.IsZero() {
		t.Errorf("error status = visible %v expires %v", v.StatusVisible, v.StatusExpires)
	}
}

func TestRender_Summary(t *testing.T) {
	s, st := readyState(t, 3)
	_ = s.StartSummary(2)

	v := Render(st, t0, Options{})
	if !v.ShowSummary || !v.SummaryLoading || !v.Summarize.Busy {
		t.Errorf("loading view = %+v", v)
	}

	s.SummaryReady(2, "Tenants must apply by <b>June</b>.")
	v = Render(st, t0, Options{})
	if v.SummaryLoading || v.SummaryText != "Tenants must apply by <b>June</b>." {
		t.Errorf("summary view = %+v", v)
	}
	if !strings.Contains(v.SummaryHTML, "Summary of Page 2:") {
		t.Errorf("SummaryHTML = %q", v.SummaryHTML)
	}
	if strings.Contains(v.SummaryHTML, "<b>") {
		t.Errorf("summary text was not escaped: %q", v.SummaryHTML)
	}
	if !v.ShowSummaryAudioSection || v.ShowSummaryAudio {
		t.Errorf("summary audio section = %v, player = %v", v.ShowSummaryAudioSection, v.ShowSummaryAudio)
	}

	s.SummaryFailed(2, "Failed to generate summary")
	v = Render(st, t0, Options{})
	if v.SummaryError != "Failed to generate summary" || !strings.Contains(v.SummaryHTML, "Error: Failed to generate summary") {
		t.Errorf("error view = %q / %q", v.SummaryError, v.SummaryHTML)
	}
}

func TestSummaryHTML_Sanitizes(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
	}{
		{"default template", ""},
		{"unescaped custom template", "<div>{{{summary}}}</div>"},
		{"broken template falls back", "{{#summary}}unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := SummaryHTML(tt.tmpl, 1, `hello <script>alert(1)</script>`)
			if strings.Contains(out, "<script") {
				t.Errorf("SummaryHTML() = %q, contains script", out)
			}
			if !strings.Contains(out, "hello") {
				t.Errorf("SummaryHTML() = %q, lost text", out)
			}
		})
	}
}

func TestRender_SummaryAudioPlayerHiddenWhileGenerating(t *testing.T) {
	s, st := readyState(t, 2)
	_ = s.StartSummary(1)
	s.SummaryReady(1, "text")
	_ = s.StartSummaryAudio()
	s.SummaryAudioReady("summary.mp3", 99)
	st.SummaryAudioURL = "http://localhost:5000/audio/summary.mp3?t=99"

	if v := Render(st, t0, Options{}); !v.ShowSummaryAudio || !v.DownloadSummary.Enabled {
		t.Errorf("ready summary audio = %+v", v)
	}

	_ = s.StartSummaryAudio()
	v := Render(st, t0, Options{})
	if v.ShowSummaryAudio || !v.SummaryAudio.Busy {
		t.Errorf("generating view = player %v button %+v", v.ShowSummaryAudio, v.SummaryAudio)
	}
}
