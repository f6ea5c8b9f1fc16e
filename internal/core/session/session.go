package session

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/neilberkman/pagecast/internal/core/models"
)

// Phase of the upload lifecycle
type Phase int

const (
	Empty Phase = iota
	Uploading
	Ready
)

func (p Phase) String() string {
	switch p {
	case Uploading:
		return "uploading"
	case Ready:
		return "ready"
	default:
		return "empty"
	}
}

// ConversionState of the latest conversion request
type ConversionState int

const (
	Idle ConversionState = iota
	Requested
	Cached
	Pending
	Resolved
	TimedOut
	Failed
)

func (s ConversionState) String() string {
	return [...]string{"idle", "requested", "cached", "pending", "resolved", "timed_out", "failed"}[s]
}

// Busy reports whether a request is outstanding
func (s ConversionState) Busy() bool {
	return s == Requested || s == Pending
}

// Conversion tracks one convert request
type Conversion struct {
	Page     int
	State    ConversionState
	Artifact string // Expected or confirmed server filename
	Err      string
}

// SummaryState of the summary flow
type SummaryState int

const (
	SummaryIdle SummaryState = iota
	SummaryLoading
	SummaryDone
	SummaryFailed
)

// Summary holds the text produced for one page
type Summary struct {
	State SummaryState
	Page  int
	Text  string
	Err   string // Inline error block text
}

// AudioState of the summary audio flow
type AudioState int

const (
	AudioIdle AudioState = iota
	AudioGenerating
	AudioReady
	AudioFailed
)

// ErrNotReady is returned for page operations before an upload completed
var ErrNotReady = errors.New("no document uploaded")

// Session is the single live conversion session. Methods are not safe for
// concurrent use; the controller serializes access.
type Session struct {
	ID             string
	Source         models.SourceFile
	Phase          Phase
	FileStatus     string
	TempFilename   string
	TotalPages     int
	SelectedPage   int // 0 = none
	ConvertedPages map[int]bool
	Conversion     Conversion
	Audio          models.Artifact // Confirmed page audio
	Summary        Summary
	SummaryAudio   models.Artifact
	SummaryAudioSt AudioState
}

// New returns an empty session
func New() *Session {
	return &Session{ConvertedPages: make(map[int]bool)}
}

// Reset clears everything, including the temp filename
func (s *Session) Reset() {
	*s = *New()
}

// Begin starts a fresh session for src. Any previous state is discarded.
func (s *Session) Begin(src models.SourceFile) {
	s.Reset()
	s.ID = uuid.NewString()
	s.Source = src
	s.Phase = Uploading
	s.FileStatus = "Selected: " + src.Name
}

// Uploaded records a successful upload response
func (s *Session) Uploaded(tempFilename string, totalPages int) error {
	if s.Phase != Uploading {
		return fmt.Errorf("upload response in phase %s", s.Phase)
	}
	if tempFilename == "" {
		return errors.New("server returned no temp filename")
	}
	if totalPages < 0 {
		return fmt.Errorf("server returned %d pages", totalPages)
	}
	s.TempFilename = tempFilename
	s.TotalPages = totalPages
	s.Phase = Ready
	return nil
}

// UploadFailed drops all partial state but keeps the file status label
func (s *Session) UploadFailed() {
	label := s.FileStatus
	s.Reset()
	s.FileStatus = label
}

// Pages returns 1..TotalPages
func (s *Session) Pages() []int {
	pages := make([]int, s.TotalPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// CheckPage validates a page number against the uploaded document
func (s *Session) CheckPage(page int) error {
	if s.Phase != Ready {
		return ErrNotReady
	}
	if page < 1 || page > s.TotalPages {
		return fmt.Errorf("page %d out of range 1-%d", page, s.TotalPages)
	}
	return nil
}

// Select changes the selected page
func (s *Session) Select(page int) error {
	if err := s.CheckPage(page); err != nil {
		return err
	}
	s.SelectedPage = page
	return nil
}

// Request starts a conversion for page
func (s *Session) Request(page int) error {
	if err := s.Select(page); err != nil {
		return err
	}
	s.Conversion = Conversion{Page: page, State: Requested}
	return nil
}

// MarkCached records that the server already had audio for the page
func (s *Session) MarkCached(artifact string) {
	s.Conversion.State = Cached
	s.Conversion.Artifact = artifact
}

// MarkPending records that synthesis started and artifact must be polled for
func (s *Session) MarkPending(artifact string) {
	s.Conversion.State = Pending
	s.Conversion.Artifact = artifact
}

// Resolve records a confirmed artifact. The page always joins the converted
// set; Audio only changes when page is still the selected one.
func (s *Session) Resolve(page int, artifact string, stamp int64) {
	if s.Conversion.Page == page {
		s.Conversion.State = Resolved
		s.Conversion.Artifact = artifact
		s.Conversion.Err = ""
	}
	s.ConvertedPages[page] = true
	if page == s.SelectedPage {
		s.Audio = models.Artifact{Name: artifact, Page: page, Stamp: stamp}
	}
}

// TimeOut ends a pending conversion without an artifact
func (s *Session) TimeOut(msg string) {
	s.Conversion.State = TimedOut
	s.Conversion.Err = msg
}

// Fail ends a conversion with a server or network error
func (s *Session) Fail(msg string) {
	s.Conversion.State = Failed
	s.Conversion.Err = msg
}

// AbortConversion returns an outstanding request to Idle
func (s *Session) AbortConversion() {
	if s.Conversion.State.Busy() {
		s.Conversion.State = Idle
		s.Conversion.Err = ""
	}
}

// ConvertedList returns converted pages in ascending order
func (s *Session) ConvertedList() []int {
	pages := make([]int, 0, len(s.ConvertedPages))
	for p := range s.ConvertedPages {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// StartSummary marks the summary as loading for page
func (s *Session) StartSummary(page int) error {
	if err := s.Select(page); err != nil {
		return err
	}
	s.Summary = Summary{State: SummaryLoading, Page: page}
	return nil
}

// SummaryReady stores the summary text
func (s *Session) SummaryReady(page int, text string) {
	s.Summary = Summary{State: SummaryDone, Page: page, Text: text}
}

// SummaryFailed stores the inline error
func (s *Session) SummaryFailed(page int, msg string) {
	s.Summary = Summary{State: SummaryFailed, Page: page, Err: msg}
}

// AbortSummary drops a summary that is still loading
func (s *Session) AbortSummary() {
	if s.Summary.State == SummaryLoading {
		s.Summary = Summary{}
	}
}

// StartSummaryAudio marks summary audio as generating. The previous artifact
// is kept until a new one replaces it.
func (s *Session) StartSummaryAudio() error {
	if s.Phase != Ready {
		return ErrNotReady
	}
	s.SummaryAudioSt = AudioGenerating
	return nil
}

// SummaryAudioReady stores the summary audio artifact
func (s *Session) SummaryAudioReady(artifact string, stamp int64) {
	s.SummaryAudioSt = AudioReady
	s.SummaryAudio = models.Artifact{Name: artifact, Page: s.Summary.Page, Stamp: stamp}
}

// SummaryAudioFailed leaves any previous summary audio untouched
func (s *Session) SummaryAudioFailed() {
	if s.SummaryAudio.IsZero() {
		s.SummaryAudioSt = AudioFailed
		return
	}
	s.SummaryAudioSt = AudioReady
}

// Clone returns a deep copy safe to hand to other goroutines
func (s *Session) Clone() *Session {
	c := *s
	c.ConvertedPages = make(map[int]bool, len(s.ConvertedPages))
	for p, ok := range s.ConvertedPages {
		c.ConvertedPages[p] = ok
	}
	return &c
}
