package pdfaudio_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neilberkman/pagecast/pkg/pdfaudio"
	"github.com/neilberkman/pagecast/pkg/pdfaudio/pdfaudiotest"
)

func newClient(t *testing.T, srv *pdfaudiotest.Server) *pdfaudio.Client {
	t.Helper()
	c, err := pdfaudio.New(srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := pdfaudio.New("ftp://example.com"); err == nil {
		t.Error("New() should reject non-http schemes")
	}
	c, err := pdfaudio.New("")
	if err != nil {
		t.Fatalf("New(\"\") error = %v", err)
	}
	if c.BaseURL() != pdfaudio.DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), pdfaudio.DefaultBaseURL)
	}
}

func TestAudioURL(t *testing.T) {
	c, _ := pdfaudio.New("http://localhost:5000/")
	if got := c.AudioURL("p2.mp3", 1700000000000); got != "http://localhost:5000/audio/p2.mp3?t=1700000000000" {
		t.Errorf("AudioURL() = %q", got)
	}
	if got := c.AudioURL("p2.mp3", 0); got != "http://localhost:5000/audio/p2.mp3" {
		t.Errorf("AudioURL() without stamp = %q", got)
	}
}

func TestUploadAndConvert(t *testing.T) {
	srv := pdfaudiotest.NewServer()
	defer srv.Close()
	srv.Set(func(s *pdfaudiotest.Server) { s.TotalPages = 3 })
	c := newClient(t, srv)
	ctx := context.Background()

	up, err := c.Upload(ctx, "doc.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if up.TotalPages != 3 || up.TempFilename != "doc.pdf" {
		t.Errorf("Upload() = %+v", up)
	}

	res, err := c.Convert(ctx, pdfaudio.ConvertRequest{Filename: "doc.pdf", PageNum: 2, TempFilename: up.TempFilename})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if res.AlreadyConverted || res.AudioFile == "" {
		t.Errorf("Convert() = %+v, want a pending artifact", res)
	}

	again, err := c.Convert(ctx, pdfaudio.ConvertRequest{Filename: "doc.pdf", PageNum: 2, TempFilename: up.TempFilename})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !again.AlreadyConverted || again.AudioFile != res.AudioFile {
		t.Errorf("second Convert() = %+v, want already_converted with %s", again, res.AudioFile)
	}

	var got pdfaudio.ConvertRequest
	srv.Set(func(s *pdfaudiotest.Server) { got = s.ConvertRequests[0] })
	if got.PageNum != 2 || got.Filename != "doc.pdf" {
		t.Errorf("server saw %+v", got)
	}
}

func TestServerErrorsCarryMessage(t *testing.T) {
	srv := pdfaudiotest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	srv.Set(func(s *pdfaudiotest.Server) { s.UploadError = "Error reading PDF: EOF" })
	_, err := c.Upload(ctx, "doc.pdf", strings.NewReader("x"))
	if err == nil {
		t.Fatal("Upload() should fail")
	}
	msg, ok := pdfaudio.ServerMessage(err)
	if !ok || msg != "Error reading PDF: EOF" {
		t.Errorf("ServerMessage() = %q, %v", msg, ok)
	}

	_, err = c.Convert(ctx, pdfaudio.ConvertRequest{Filename: "doc.pdf", PageNum: 99, TempFilename: "doc.pdf"})
	if msg, _ := pdfaudio.ServerMessage(err); msg != "Invalid page number" {
		t.Errorf("Convert() error = %v, want Invalid page number", err)
	}
	var se *pdfaudio.ServerError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Errorf("Convert() error = %#v, want status 400", err)
	}

	_, err = c.Summarize(ctx, pdfaudio.SummaryRef{})
	if msg, _ := pdfaudio.ServerMessage(err); msg != "No text available to summarize" {
		t.Errorf("Summarize() error = %v", err)
	}
}

func TestTransportErrors(t *testing.T) {
	// Not JSON at all
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
	}))
	defer ts.Close()

	c, _ := pdfaudio.New(ts.URL)
	_, err := c.Convert(context.Background(), pdfaudio.ConvertRequest{Filename: "a.pdf", PageNum: 1, TempFilename: "a.pdf"})
	var te *pdfaudio.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Convert() error = %T %v, want *TransportError", err, err)
	}
	if _, ok := pdfaudio.ServerMessage(err); ok {
		t.Error("transport errors should not carry a server message")
	}

	// Server gone
	ts.Close()
	if err := c.Cleanup(context.Background()); !errors.As(err, &te) {
		t.Errorf("Cleanup() error = %v, want *TransportError", err)
	}
}

func TestAudioExistsAndFetch(t *testing.T) {
	srv := pdfaudiotest.NewServer()
	defer srv.Close()
	srv.Set(func(s *pdfaudiotest.Server) { s.ReadyAfter = 50 * time.Millisecond })
	c := newClient(t, srv)
	ctx := context.Background()

	if _, err := c.Upload(ctx, "doc.pdf", strings.NewReader("%PDF")); err != nil {
		t.Fatal(err)
	}
	res, err := c.Convert(ctx, pdfaudio.ConvertRequest{Filename: "doc.pdf", PageNum: 1, TempFilename: "doc.pdf"})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := c.AudioExists(ctx, res.AudioFile)
	if err != nil || ok {
		t.Fatalf("AudioExists() before ready = %v, %v", ok, err)
	}
	var buf bytes.Buffer
	if _, err := c.FetchAudio(ctx, res.AudioFile, &buf); err == nil {
		t.Error("FetchAudio() before ready should fail")
	}

	time.Sleep(80 * time.Millisecond)

	ok, err = c.AudioExists(ctx, res.AudioFile)
	if err != nil || !ok {
		t.Fatalf("AudioExists() after ready = %v, %v", ok, err)
	}
	n, err := c.FetchAudio(ctx, res.AudioFile, &buf)
	if err != nil {
		t.Fatalf("FetchAudio() error = %v", err)
	}
	if n == 0 || !strings.HasPrefix(buf.String(), "ID3") {
		t.Errorf("FetchAudio() wrote %d bytes: %q", n, buf.String())
	}
}

func TestSummaryFlowSendsPageReference(t *testing.T) {
	srv := pdfaudiotest.NewServer()
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	if _, err := c.Convert(ctx, pdfaudio.ConvertRequest{Filename: "doc.pdf", PageNum: 2, TempFilename: "doc.pdf"}); err != nil {
		t.Fatal(err)
	}
	ref := pdfaudio.SummaryRef{TempFilename: "doc.pdf", PageNum: 2}
	sum, err := c.Summarize(ctx, ref)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if sum.Summary == "" {
		t.Error("Summarize() returned empty summary")
	}
	audio, err := c.SummaryAudio(ctx, ref)
	if err != nil {
		t.Fatalf("SummaryAudio() error = %v", err)
	}
	if !strings.HasSuffix(audio.AudioFile, "_summary.mp3") {
		t.Errorf("SummaryAudio() file = %q", audio.AudioFile)
	}
	var refs []pdfaudio.SummaryRef
	srv.Set(func(s *pdfaudiotest.Server) { refs = append(refs, s.SummaryRefs...) })
	if len(refs) != 2 || refs[0] != ref {
		t.Errorf("server saw refs %+v", refs)
	}
}

// endless stands in for a large audio file and counts what was served
type endless struct{ served *int64 }

func (e endless) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0xff
	}
	atomic.AddInt64(e.served, int64(len(p)))
	return len(p), nil
}

func TestAudioExists_DoesNotDownloadAudio(t *testing.T) {
	const size = 256 << 20
	var served int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.CopyN(w, endless{&served}, size)
	}))
	defer ts.Close()

	c, err := pdfaudio.New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := c.AudioExists(context.Background(), "big.mp3")
	if err != nil || !ok {
		t.Fatalf("AudioExists() = %v, %v", ok, err)
	}

	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt64(&served); n >= size/4 {
		t.Errorf("existence check pulled %d of %d bytes", n, size)
	}
}
