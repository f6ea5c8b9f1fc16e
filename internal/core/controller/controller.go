// Package controller runs the conversion session: upload, page conversion
// with artifact polling, summaries and summary audio. Every flow holds a
// session token; a flow whose token was superseded can no longer change
// state or notify observers. A flow started with a context that is already
// done returns its error without touching state.
package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/neilberkman/pagecast/internal/core/models"
	"github.com/neilberkman/pagecast/internal/core/poll"
	"github.com/neilberkman/pagecast/internal/core/session"
	"github.com/neilberkman/pagecast/internal/core/status"
	"github.com/neilberkman/pagecast/pkg/pdfaudio"
	"github.com/rs/zerolog"
)

// Recorder persists history. Failures are logged and never fail a flow.
type Recorder interface {
	RecordUpload(models.UploadRecord) error
	RecordConversion(models.ConversionRecord) error
	RecordDownload(models.DownloadRecord) error
}

// State is an immutable snapshot handed to observers and renderers
type State struct {
	Session         *session.Session
	Status          status.Line
	ServerURL       string
	AudioURL        string // Cache-busted URL of the confirmed page audio
	SummaryAudioURL string
}

// Options configures a Controller. Zero values pick defaults.
type Options struct {
	MaxUploadBytes int64
	Poll           poll.Config
	Logger         *zerolog.Logger
	Recorder       Recorder
	Now            func() time.Time
}

type observer struct {
	id int
	fn func(State)
}

// Controller owns the single live session
type Controller struct {
	client   *pdfaudio.Client
	maxBytes int64
	poll     poll.Config
	log      zerolog.Logger
	rec      Recorder
	now      func() time.Time

	mu        sync.Mutex
	reg       *session.Registry
	sess      *session.Session
	status    status.Line
	observers []observer
	nextID    int
}

// New creates a controller talking to client
func New(client *pdfaudio.Client, opts Options) *Controller {
	c := &Controller{
		client:   client,
		maxBytes: opts.MaxUploadBytes,
		poll:     opts.Poll,
		log:      zerolog.Nop(),
		rec:      opts.Recorder,
		now:      opts.Now,
		reg:      session.NewRegistry(context.Background()),
		sess:     session.New(),
	}
	if opts.Logger != nil {
		c.log = *opts.Logger
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.poll == (poll.Config{}) {
		c.poll = poll.DefaultConfig()
	}
	return c
}

// Client returns the server client
func (c *Controller) Client() *pdfaudio.Client {
	return c.client
}

// Subscribe registers fn to receive a snapshot after every committed change.
// fn runs with the controller locked and must not call back into it.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.observers = append(c.observers, observer{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, o := range c.observers {
			if o.id == id {
				c.observers = append(c.observers[:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// State returns the current snapshot
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	st := State{
		Session:   c.sess.Clone(),
		Status:    c.status,
		ServerURL: c.client.BaseURL(),
	}
	if !c.sess.Audio.IsZero() {
		st.AudioURL = c.client.AudioURL(c.sess.Audio.Name, c.sess.Audio.Stamp)
	}
	if !c.sess.SummaryAudio.IsZero() {
		st.SummaryAudioURL = c.client.AudioURL(c.sess.SummaryAudio.Name, c.sess.SummaryAudio.Stamp)
	}
	return st
}

func (c *Controller) notifyLocked() {
	if len(c.observers) == 0 {
		return
	}
	st := c.snapshotLocked()
	for _, o := range c.observers {
		o.fn(st)
	}
}

func (c *Controller) setStatus(msg string, sev status.Severity) {
	c.status = status.New(msg, sev, c.now())
}

// commit applies fn if tok still owns its lane. Updates from superseded
// flows are dropped without notifying anyone.
func (c *Controller) commit(tok *session.Token, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.reg.Current(tok) {
		c.log.Debug().Str("token", tok.ID).Stringer("lane", tok.Lane).Msg("dropping update from superseded flow")
		return false
	}
	fn()
	c.notifyLocked()
	return true
}

// abandon ends a flow that stopped early. When the caller's own context
// ended and nothing replaced the flow, fn unwinds its in-progress state;
// otherwise the flow was superseded and state belongs to its successor.
func (c *Controller) abandon(ctx context.Context, tok *session.Token, fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() == nil || !c.reg.Holds(tok) {
		return ErrSuperseded
	}
	fn()
	if c.status.Severity == status.Info {
		c.status = c.status.Hide()
	}
	c.notifyLocked()
	return ctx.Err()
}

func (c *Controller) release(tok *session.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg.Release(tok)
}

// precondition reports an operation attempted in the wrong session state
func (c *Controller) precondition(kind Kind, err error) error {
	msg := "Please select a valid page."
	if errors.Is(err, session.ErrNotReady) {
		msg = "Please upload a PDF first."
	}
	c.mu.Lock()
	c.setStatus(msg, status.Error)
	c.notifyLocked()
	c.mu.Unlock()
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (c *Controller) record(what string, fn func(Recorder) error) {
	if c.rec == nil {
		return
	}
	if err := fn(c.rec); err != nil {
		c.log.Warn().Err(err).Str("record", what).Msg("failed to record history")
	}
}

func (c *Controller) recordConversion(rec models.ConversionRecord) {
	c.record("conversion", func(r Recorder) error { return r.RecordConversion(rec) })
}

// SelectFile validates path and, if it is an acceptable PDF, replaces the
// session with a new upload. Rejected files never touch the network and leave
// the current session in place.
func (c *Controller) SelectFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := models.Inspect(path)
	if err == nil {
		err = src.Validate(c.maxBytes)
	}
	if err != nil {
		return c.reject(err)
	}

	c.mu.Lock()
	c.reg.NewSession()
	c.sess.Begin(src)
	tok := c.reg.Acquire(ctx, session.LaneUpload)
	sessionID := c.sess.ID
	c.setStatus("Uploading PDF...", status.Info)
	c.notifyLocked()
	c.mu.Unlock()
	defer c.release(tok)

	log := c.log.With().Str("token", tok.ID).Str("session", sessionID).Str("file", src.Name).Logger()
	log.Info().Int64("size", src.Size).Msg("uploading")

	// Advisory; a failed cleanup never blocks the upload
	if err := c.client.Cleanup(tok.Context()); err != nil {
		log.Debug().Err(err).Msg("cleanup failed")
	}

	res, err := c.upload(tok.Context(), src)
	if err != nil {
		if tok.Cancelled() {
			return c.abandon(ctx, tok, c.sess.UploadFailed)
		}
		msg := userMessage(err, "Upload failed.", "Upload failed. Please try again.")
		log.Error().Err(err).Msg("upload failed")
		c.commit(tok, func() {
			c.sess.UploadFailed()
			c.setStatus(msg, status.Error)
		})
		return &Error{Kind: Upload, Message: msg, Err: err}
	}

	var invalid error
	ok := c.commit(tok, func() {
		if invalid = c.sess.Uploaded(res.TempFilename, res.TotalPages); invalid != nil {
			c.sess.UploadFailed()
			c.setStatus("Upload failed.", status.Error)
			return
		}
		c.setStatus("PDF uploaded successfully!", status.Success)
	})
	if !ok {
		return ErrSuperseded
	}
	if invalid != nil {
		log.Error().Err(invalid).Msg("unusable upload response")
		return &Error{Kind: Upload, Message: "Upload failed.", Err: invalid}
	}

	log.Info().Int("pages", res.TotalPages).Str("temp_filename", res.TempFilename).Msg("upload complete")
	c.record("upload", func(r Recorder) error {
		return r.RecordUpload(models.UploadRecord{
			SessionID:    sessionID,
			Source:       src,
			TempFilename: res.TempFilename,
			TotalPages:   res.TotalPages,
			ServerURL:    c.client.BaseURL(),
			UploadedAt:   c.now(),
		})
	})
	return nil
}

func (c *Controller) upload(ctx context.Context, src models.SourceFile) (*pdfaudio.UploadResult, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return c.client.Upload(ctx, src.Name, f)
}

func (c *Controller) reject(err error) error {
	msg := "Please select a valid PDF file."
	label := "Cannot read file"
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		msg = ve.Message
		label = ve.FileStatus
	}
	c.log.Warn().Err(err).Msg("file rejected")

	c.mu.Lock()
	c.sess.FileStatus = label
	c.setStatus(msg, status.Error)
	c.notifyLocked()
	c.mu.Unlock()
	return &Error{Kind: Validation, Message: msg, Err: err}
}

// SelectPage changes the selected page without converting it
func (c *Controller) SelectPage(page int) error {
	c.mu.Lock()
	err := c.sess.Select(page)
	if err == nil {
		c.notifyLocked()
	}
	c.mu.Unlock()
	if err != nil {
		return c.precondition(Conversion, err)
	}
	return nil
}

// Convert requests audio for page and waits until the artifact exists. A
// page the server already converted resolves without polling. Starting a
// new conversion cancels the previous one.
func (c *Controller) Convert(ctx context.Context, page int) (models.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return models.Artifact{}, err
	}
	c.mu.Lock()
	if err := c.sess.Request(page); err != nil {
		c.mu.Unlock()
		return models.Artifact{}, c.precondition(Conversion, err)
	}
	tok := c.reg.Acquire(ctx, session.LaneConvert)
	req := pdfaudio.ConvertRequest{
		Filename:     c.sess.Source.Name,
		PageNum:      page,
		TempFilename: c.sess.TempFilename,
	}
	sessionID := c.sess.ID
	c.notifyLocked()
	c.mu.Unlock()
	defer c.release(tok)

	start := c.now()
	log := c.log.With().Str("token", tok.ID).Int("page", page).Logger()
	rec := models.ConversionRecord{SessionID: sessionID, Kind: models.PageAudio, Page: page}
	finish := func(outcome models.Outcome, artifact, msg string) {
		rec.Outcome, rec.Artifact, rec.Error = outcome, artifact, msg
		rec.Elapsed = c.now().Sub(start)
		rec.CreatedAt = c.now()
		c.recordConversion(rec)
	}

	res, err := c.client.Convert(tok.Context(), req)
	if err == nil && res.AudioFile == "" {
		err = errors.New("server returned no audio file")
	}
	if err != nil {
		if tok.Cancelled() {
			return models.Artifact{}, c.abandon(ctx, tok, c.sess.AbortConversion)
		}
		msg := userMessage(err, "Conversion failed.", "Conversion failed. Please try again.")
		log.Error().Err(err).Msg("convert failed")
		if c.commit(tok, func() {
			c.sess.Fail(msg)
			c.setStatus(msg, status.Error)
		}) {
			finish(models.OutcomeFailed, "", msg)
		}
		return models.Artifact{}, &Error{Kind: Conversion, Message: msg, Err: err}
	}

	if res.AlreadyConverted {
		art := models.Artifact{Name: res.AudioFile, Page: page, Stamp: c.now().UnixMilli()}
		if !c.commit(tok, func() {
			c.sess.MarkCached(art.Name)
			c.sess.Resolve(page, art.Name, art.Stamp)
			c.setStatus("Audio already exists for this page!", status.Success)
		}) {
			return models.Artifact{}, ErrSuperseded
		}
		log.Info().Str("audio_file", art.Name).Msg("audio already converted")
		finish(models.OutcomeCached, art.Name, "")
		return art, nil
	}

	if !c.commit(tok, func() {
		c.sess.MarkPending(res.AudioFile)
		c.setStatus("Processing page...", status.Info)
	}) {
		return models.Artifact{}, ErrSuperseded
	}
	log.Info().Str("audio_file", res.AudioFile).Msg("waiting for audio")

	err = poll.Wait(tok.Context(), c.poll, func(ctx context.Context) (bool, error) {
		ok, err := c.client.AudioExists(ctx, res.AudioFile)
		log.Debug().Bool("ready", ok).Err(err).Msg("checked audio")
		return ok, err
	})

	switch {
	case err == nil:
		art := models.Artifact{Name: res.AudioFile, Page: page, Stamp: c.now().UnixMilli()}
		if !c.commit(tok, func() {
			c.sess.Resolve(page, art.Name, art.Stamp)
			c.setStatus("Audio conversion completed!", status.Success)
		}) {
			return models.Artifact{}, ErrSuperseded
		}
		log.Info().Dur("elapsed", c.now().Sub(start)).Msg("audio ready")
		finish(models.OutcomeResolved, art.Name, "")
		return art, nil

	case errors.Is(err, poll.ErrTimeout):
		msg := "Audio conversion timed out. Please try again."
		if !c.commit(tok, func() {
			c.sess.TimeOut(msg)
			c.setStatus(msg, status.Error)
		}) {
			return models.Artifact{}, ErrSuperseded
		}
		log.Warn().Msg("audio conversion timed out")
		finish(models.OutcomeTimedOut, res.AudioFile, msg)
		return models.Artifact{}, &Error{Kind: Conversion, Message: msg, Err: err}

	default:
		return models.Artifact{}, c.abandon(ctx, tok, c.sess.AbortConversion)
	}
}

// Summarize makes sure the server has extracted page's text, then asks for
// its summary. The first failing step ends the flow.
func (c *Controller) Summarize(ctx context.Context, page int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	if err := c.sess.StartSummary(page); err != nil {
		c.mu.Unlock()
		return "", c.precondition(Summary, err)
	}
	tok := c.reg.Acquire(ctx, session.LaneSummary)
	req := pdfaudio.ConvertRequest{
		Filename:     c.sess.Source.Name,
		PageNum:      page,
		TempFilename: c.sess.TempFilename,
	}
	ref := pdfaudio.SummaryRef{TempFilename: c.sess.TempFilename, PageNum: page}
	c.notifyLocked()
	c.mu.Unlock()
	defer c.release(tok)

	log := c.log.With().Str("token", tok.ID).Int("page", page).Logger()

	var text string
	err := runSteps(tok.Context(), []step{
		{
			name:     "extract",
			fallback: "Failed to extract text from page",
			run: func(ctx context.Context) error {
				_, err := c.client.Convert(ctx, req)
				return err
			},
		},
		{
			name:     "summarize",
			fallback: "Failed to generate summary",
			run: func(ctx context.Context) error {
				res, err := c.client.Summarize(ctx, ref)
				if err != nil {
					return err
				}
				text = res.Summary
				return nil
			},
		},
	})
	if err != nil {
		if tok.Cancelled() {
			return "", c.abandon(ctx, tok, c.sess.AbortSummary)
		}
		msg := "Failed to generate summary. Please try again."
		var se *stepError
		if errors.As(err, &se) {
			msg = userMessage(se.Err, se.fallback, msg)
		}
		log.Error().Err(err).Msg("summary failed")
		c.commit(tok, func() {
			c.sess.SummaryFailed(page, msg)
			c.setStatus("Summary generation failed.", status.Error)
		})
		return "", &Error{Kind: Summary, Message: msg, Err: err}
	}

	if !c.commit(tok, func() {
		c.sess.SummaryReady(page, text)
		c.setStatus("Summary generated successfully!", status.Success)
	}) {
		return "", ErrSuperseded
	}
	log.Info().Int("chars", len(text)).Msg("summary ready")
	return text, nil
}

// GenerateSummaryAudio asks the server to speak the latest summary. On
// failure any previous summary audio stays available.
func (c *Controller) GenerateSummaryAudio(ctx context.Context) (models.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return models.Artifact{}, err
	}
	c.mu.Lock()
	if err := c.sess.StartSummaryAudio(); err != nil {
		c.mu.Unlock()
		return models.Artifact{}, c.precondition(AudioGeneration, err)
	}
	page := c.sess.Summary.Page
	if page == 0 {
		page = c.sess.SelectedPage
	}
	ref := pdfaudio.SummaryRef{TempFilename: c.sess.TempFilename, PageNum: page}
	tok := c.reg.Acquire(ctx, session.LaneSummaryAudio)
	sessionID := c.sess.ID
	c.notifyLocked()
	c.mu.Unlock()
	defer c.release(tok)

	start := c.now()
	log := c.log.With().Str("token", tok.ID).Int("page", page).Logger()
	rec := models.ConversionRecord{SessionID: sessionID, Kind: models.SummaryAudio, Page: page}

	res, err := c.client.SummaryAudio(tok.Context(), ref)
	if err == nil && res.AudioFile == "" {
		err = errors.New("server returned no audio file")
	}
	if err != nil {
		if tok.Cancelled() {
			return models.Artifact{}, c.abandon(ctx, tok, c.sess.SummaryAudioFailed)
		}
		msg := userMessage(err, "Failed to generate summary audio", "Summary audio generation failed. Please try again.")
		log.Error().Err(err).Msg("summary audio failed")
		if c.commit(tok, func() {
			c.sess.SummaryAudioFailed()
			c.setStatus(msg, status.Error)
		}) {
			rec.Outcome, rec.Error, rec.Elapsed, rec.CreatedAt = models.OutcomeFailed, msg, c.now().Sub(start), c.now()
			c.recordConversion(rec)
		}
		return models.Artifact{}, &Error{Kind: AudioGeneration, Message: msg, Err: err}
	}

	art := models.Artifact{Name: res.AudioFile, Page: page, Stamp: c.now().UnixMilli()}
	if !c.commit(tok, func() {
		c.sess.SummaryAudioReady(art.Name, art.Stamp)
		c.setStatus("Summary audio generated successfully!", status.Success)
	}) {
		return models.Artifact{}, ErrSuperseded
	}
	log.Info().Str("audio_file", art.Name).Msg("summary audio ready")
	rec.Outcome, rec.Artifact, rec.Elapsed, rec.CreatedAt = models.OutcomeResolved, art.Name, c.now().Sub(start), c.now()
	c.recordConversion(rec)
	return art, nil
}

// Download saves the current page or summary audio into dir. The file is
// named after the selected page.
func (c *Controller) Download(ctx context.Context, kind models.ArtifactKind, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	errKind := Conversion
	if kind == models.SummaryAudio {
		errKind = AudioGeneration
	}

	c.mu.Lock()
	art := c.sess.Audio
	if kind == models.SummaryAudio {
		art = c.sess.SummaryAudio
	}
	page := c.sess.SelectedPage
	sessionID := c.sess.ID
	if art.IsZero() {
		c.mu.Unlock()
		return "", &Error{Kind: errKind, Message: "No audio to download."}
	}
	tok := c.reg.Acquire(ctx, session.LaneDownload)
	c.mu.Unlock()
	defer c.release(tok)

	name := models.DownloadName(kind, page)
	path := filepath.Join(dir, name)
	n, err := c.save(tok.Context(), art.Name, path)
	if err != nil {
		_ = os.Remove(path)
		if tok.Cancelled() {
			return "", c.abandon(ctx, tok, func() {})
		}
		msg := "Download failed. Please try again."
		c.log.Error().Err(err).Str("audio_file", art.Name).Msg("download failed")
		c.commit(tok, func() { c.setStatus(msg, status.Error) })
		return "", &Error{Kind: errKind, Message: msg, Err: err}
	}

	if !c.commit(tok, func() { c.setStatus("Saved "+name, status.Success) }) {
		_ = os.Remove(path)
		return "", ErrSuperseded
	}
	c.record("download", func(r Recorder) error {
		return r.RecordDownload(models.DownloadRecord{
			SessionID: sessionID,
			Kind:      kind,
			Page:      page,
			Artifact:  art.Name,
			Path:      path,
			Bytes:     n,
			CreatedAt: c.now(),
		})
	})
	return path, nil
}

func (c *Controller) save(ctx context.Context, artifact, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create download directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := c.client.FetchAudio(ctx, artifact, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Reset cancels every flow, clears the session and hides the status line
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg.NewSession()
	c.sess.Reset()
	c.status = c.status.Hide()
	c.notifyLocked()
}

// Cleanup asks the server to delete uploads and generated audio
func (c *Controller) Cleanup(ctx context.Context) error {
	if err := c.client.Cleanup(ctx); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	return nil
}

// Close cancels every in-flight flow
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg.CancelAll()
}
