// Package tui is the interactive terminal front end. It draws controller
// snapshots through the render package and turns keys into controller calls.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/pagecast/internal/core/controller"
	"github.com/neilberkman/pagecast/internal/core/models"
	"github.com/neilberkman/pagecast/internal/core/render"
	"github.com/neilberkman/pagecast/internal/core/session"
)

type viewMode int

const (
	fileView viewMode = iota
	pagesView
	summaryView
)

// Player starts playback of an audio URL
type Player interface {
	Play(url string) error
}

// Options configures the TUI
type Options struct {
	Render      render.Options
	DownloadDir string
	File        string // Uploaded on start when set
	Player      Player // Nil disables the play key
	Now         func() time.Time
}

type Model struct {
	ctx         context.Context
	ctrl        *controller.Controller
	opts        Options
	changes     chan struct{}
	unsubscribe func()

	mode    viewMode
	input   textinput.Model
	pages   list.Model
	summary viewport.Model
	spinner spinner.Model
	help    help.Model
	keys    keymap
	width   int
	height  int

	state  controller.State
	notice string // Local feedback that is not part of the session status
}

// New creates a model driving ctrl. Flows started from the TUI stop when ctx
// is cancelled.
func New(ctx context.Context, ctrl *controller.Controller, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DownloadDir == "" {
		opts.DownloadDir = "."
	}

	// Observers run under the controller lock, so only signal here and let
	// the update loop pull the snapshot.
	changes := make(chan struct{}, 1)
	unsubscribe := ctrl.Subscribe(func(controller.State) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	ti := textinput.New()
	ti.Placeholder = "path/to/document.pdf"
	ti.Prompt = "PDF file: "
	ti.Focus()

	m := Model{
		ctx:         ctx,
		ctrl:        ctrl,
		opts:        opts,
		changes:     changes,
		unsubscribe: unsubscribe,
		mode:        fileView,
		input:       ti,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:        help.New(),
		keys:        defaultKeymap(),
		width:       80,
		height:      24,
	}
	m.pages = createPageList(m.width, m.bodyHeight())
	m.summary = viewport.New(m.width, m.bodyHeight())
	m = m.refresh()
	m.resize()
	return m
}

// Close stops listening to the controller
func (m Model) Close() {
	m.unsubscribe()
	close(m.changes)
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, waitForChange(m.changes)}
	if m.opts.File != "" {
		cmds = append(cmds, m.selectFile(m.opts.File))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case stateChangedMsg:
		m = m.refresh()
		return m, tea.Batch(waitForChange(m.changes), m.expiry())

	case statusExpiredMsg:
		return m, nil

	case flowDoneMsg:
		m = m.refresh()
		if msg.err != nil && !errors.Is(msg.err, controller.ErrSuperseded) && !errors.Is(msg.err, context.Canceled) {
			// Errors that never reached the status line, like an empty download
			if !m.view().StatusVisible || m.state.Status.Message != msg.err.Error() {
				m.notice = msg.err.Error()
			}
		}
		return m, m.expiry()

	case playMsg:
		if msg.err != nil {
			m.notice = "Cannot play audio: " + msg.err.Error()
		} else {
			m.notice = "Playing " + msg.what
		}
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.notice = "No clipboard: " + msg.text
		} else {
			m.notice = "Audio URL copied to clipboard!"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	if m.mode == fileView {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) view() render.View {
	return render.Render(m.state, m.opts.Now(), m.opts.Render)
}

// refresh takes a new snapshot and brings the widgets in line with it
func (m Model) refresh() Model {
	prevID, prevPhase := sessionInfo(m.state)
	m.state = m.ctrl.State()
	s := m.state.Session
	v := m.view()

	m.pages.SetItems(pageItems(v, s.Conversion.Page))
	if s.ID != prevID {
		m.pages.Select(0)
	}
	if s.SelectedPage > 0 && s.SelectedPage != m.cursorPage() {
		m.pages.Select(s.SelectedPage - 1)
	}

	// A finished upload moves from file entry to the page list
	if m.mode == fileView && s.Phase == session.Ready && (s.ID != prevID || prevPhase != session.Ready) {
		m.mode = pagesView
		m.input.Blur()
	}

	m.summary.SetContent(m.summaryContent(v))
	return m
}

func sessionInfo(st controller.State) (string, session.Phase) {
	if st.Session == nil {
		return "", session.Empty
	}
	return st.Session.ID, st.Session.Phase
}

// expiry schedules a redraw for when the success line disappears
func (m Model) expiry() tea.Cmd {
	v := m.view()
	if v.StatusExpires.IsZero() {
		return nil
	}
	return expireAfter(v.StatusExpires.Sub(m.opts.Now()))
}

func (m *Model) resize() {
	m.pages.SetSize(m.width, m.bodyHeight())
	m.summary.Width = m.width
	m.summary.Height = m.bodyHeight()
	m.input.Width = max(m.width-len(m.input.Prompt)-2, 10)
	m.help.Width = m.width
	m.summary.SetContent(m.summaryContent(m.view()))
}

// bodyHeight is what is left for the page list or summary after the
// header, audio lines, status line and help.
func (m Model) bodyHeight() int {
	return max(m.height-9, 3)
}

func (m Model) ready() bool {
	return m.state.Session != nil && m.state.Session.Phase == session.Ready
}

func (m Model) busy(v render.View) bool {
	uploading := m.state.Session != nil && m.state.Session.Phase == session.Uploading
	return uploading || v.Convert.Busy || v.Summarize.Busy || v.SummaryAudio.Busy
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.mode {
	case fileView:
		return m.updateFile(msg)
	case summaryView:
		return m.updateSummary(msg)
	}
	return m.updatePages(msg)
}

func (m Model) updateFile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEnter:
		path := cleanPath(m.input.Value())
		if path == "" {
			return m, nil
		}
		return m, m.selectFile(path)

	case key.Matches(msg, m.keys.Back):
		if m.ready() {
			m.mode = pagesView
			m.input.Blur()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updatePages(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if next, cmd, ok := m.handleAction(msg); ok {
		return next, cmd
	}

	if key.Matches(msg, m.keys.Convert) {
		page := m.cursorPage()
		if page == 0 || m.view().Convert.Busy {
			return m, nil
		}
		ctrl := m.ctrl
		return m, runFlow(m.ctx, "convert", func(ctx context.Context) error {
			_, err := ctrl.Convert(ctx, page)
			return err
		})
	}

	before := m.cursorPage()
	var cmd tea.Cmd
	m.pages, cmd = m.pages.Update(msg)
	if after := m.cursorPage(); after != before && after > 0 {
		_ = m.ctrl.SelectPage(after)
		m = m.refresh()
	}
	return m, cmd
}

func (m Model) updateSummary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.mode = pagesView
		return m, nil
	}
	if next, cmd, ok := m.handleAction(msg); ok {
		return next, cmd
	}

	var cmd tea.Cmd
	m.summary, cmd = m.summary.Update(msg)
	return m, cmd
}

// handleAction runs the keys shared by the page list and summary views
func (m Model) handleAction(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	v := m.view()
	ctrl := m.ctrl

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil, true

	case key.Matches(msg, m.keys.ToggleSummary):
		if m.mode == summaryView {
			m.mode = pagesView
		} else if v.ShowSummary {
			m.mode = summaryView
		}
		return m, nil, true

	case key.Matches(msg, m.keys.NewFile):
		m.mode = fileView
		m.input.Reset()
		cmd := m.input.Focus()
		return m, cmd, true

	case key.Matches(msg, m.keys.Summary):
		page := m.cursorPage()
		if page == 0 || v.Summarize.Busy {
			return m, nil, true
		}
		m.mode = summaryView
		m.summary.GotoTop()
		return m, runFlow(m.ctx, "summarize", func(ctx context.Context) error {
			_, err := ctrl.Summarize(ctx, page)
			return err
		}), true

	case key.Matches(msg, m.keys.SummaryAudio):
		if v.SummaryAudio.Busy {
			return m, nil, true
		}
		return m, runFlow(m.ctx, "summary_audio", func(ctx context.Context) error {
			_, err := ctrl.GenerateSummaryAudio(ctx)
			return err
		}), true

	case key.Matches(msg, m.keys.Download):
		return m, m.download(models.PageAudio), true

	case key.Matches(msg, m.keys.DownloadSummary):
		return m, m.download(models.SummaryAudio), true

	case key.Matches(msg, m.keys.Copy):
		url, _ := m.currentAudio(v)
		if url == "" {
			m.notice = "No audio to copy."
			return m, nil, true
		}
		return m, copyToClipboard(url), true

	case key.Matches(msg, m.keys.Play):
		url, what := m.currentAudio(v)
		switch {
		case m.opts.Player == nil:
			m.notice = "No audio player configured."
			return m, nil, true
		case url == "":
			m.notice = "No audio to play."
			return m, nil, true
		}
		return m, playAudio(m.opts.Player, url, what), true
	}

	return m, nil, false
}

// currentAudio picks the summary audio in the summary view and the page
// audio everywhere else.
func (m Model) currentAudio(v render.View) (url, what string) {
	if m.mode == summaryView && v.SummaryAudioURL != "" {
		return v.SummaryAudioURL, "summary audio"
	}
	if v.AudioURL != "" {
		return v.AudioURL, fmt.Sprintf("page %d audio", m.state.Session.Audio.Page)
	}
	return "", ""
}

func (m Model) selectFile(path string) tea.Cmd {
	ctrl := m.ctrl
	return runFlow(m.ctx, "upload", func(ctx context.Context) error {
		return ctrl.SelectFile(ctx, path)
	})
}

func (m Model) download(kind models.ArtifactKind) tea.Cmd {
	ctrl, dir := m.ctrl, m.opts.DownloadDir
	return runFlow(m.ctx, "download", func(ctx context.Context) error {
		_, err := ctrl.Download(ctx, kind, dir)
		return err
	})
}

// cleanPath undoes the quoting terminals apply to dropped files
func cleanPath(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if first, last := s[0], s[len(s)-1]; first == last && (first == '\'' || first == '"') {
			s = s[1 : len(s)-1]
		}
	}
	s = strings.ReplaceAll(s, `\ `, " ")
	if s == "~" || strings.HasPrefix(s, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s = filepath.Join(home, s[1:])
		}
	}
	return s
}
