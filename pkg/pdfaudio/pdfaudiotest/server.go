// Package pdfaudiotest provides an in-memory conversion server for tests.
package pdfaudiotest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/neilberkman/pagecast/pkg/pdfaudio"
)

// Server mimics the reference server's endpoints and behavior: audio for a
// page becomes available ReadyAfter the first /convert of that page, and
// later /convert calls report already_converted.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	// TotalPages reported by /upload
	TotalPages int
	// ReadyAfter is how long synthesized audio takes to appear. Negative means never.
	ReadyAfter time.Duration
	// Summary text returned by /summarize
	Summary string

	// Failure injection: non-empty values make the endpoint fail with that message
	UploadError       string
	ConvertError      string
	SummarizeError    string
	SummaryAudioError string
	CleanupError      string

	// Recorded traffic
	Hits            map[string]int
	ConvertRequests []pdfaudio.ConvertRequest
	SummaryRefs     []pdfaudio.SummaryRef
	UploadedNames   []string

	pending   map[string]time.Time // audio file -> ready at
	byPage    map[int]string       // page -> audio file
	lastPage  int
	summaries int
}

// NewServer starts a fake server with sensible defaults
func NewServer() *Server {
	s := &Server{
		TotalPages: 3,
		Summary:    "The page describes the housing application process.",
		Hits:       make(map[string]int),
		pending:    make(map[string]time.Time),
		byPage:     make(map[int]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/cleanup", s.handleCleanup)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/convert", s.handleConvert)
	mux.HandleFunc("/summarize", s.handleSummarize)
	mux.HandleFunc("/summary-audio", s.handleSummaryAudio)
	mux.HandleFunc("/audio/", s.handleAudio)
	s.Server = httptest.NewServer(mux)
	return s
}

// Set runs fn with the server locked, for changing behavior mid-test
func (s *Server) Set(fn func(s *Server)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// HitCount returns how many times path was requested
func (s *Server) HitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Hits[path]
}

// MarkConverted makes audio for page exist immediately
func (s *Server) MarkConverted(page int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := fmt.Sprintf("page_%d_existing.mp3", page)
	s.byPage[page] = name
	s.pending[name] = time.Time{}
	return name
}

func (s *Server) hit(path string) {
	s.mu.Lock()
	s.Hits[path]++
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	s.hit("/cleanup")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CleanupError != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": s.CleanupError})
		return
	}
	s.pending = make(map[string]time.Time)
	s.byPage = make(map[int]string)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Cleanup completed"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.hit("/upload")
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No file part"})
		return
	}
	_, _ = io.Copy(io.Discard, file)
	_ = file.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.UploadedNames = append(s.UploadedNames, header.Filename)
	if s.UploadError != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": s.UploadError})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"total_pages":   s.TotalPages,
		"filename":      header.Filename,
		"temp_filename": header.Filename,
	})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	s.hit("/convert")
	var req pdfaudio.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing required data"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ConvertRequests = append(s.ConvertRequests, req)
	if s.ConvertError != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": s.ConvertError})
		return
	}
	if req.Filename == "" || req.PageNum == 0 || req.TempFilename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing required data"})
		return
	}
	if req.PageNum < 1 || req.PageNum > s.TotalPages {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid page number"})
		return
	}
	s.lastPage = req.PageNum

	if name, ok := s.byPage[req.PageNum]; ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":           true,
			"audio_file":        name,
			"already_converted": true,
		})
		return
	}

	name := fmt.Sprintf("page_%d_%d.mp3", req.PageNum, len(s.ConvertRequests))
	s.byPage[req.PageNum] = name
	if s.ReadyAfter >= 0 {
		s.pending[name] = time.Now().Add(s.ReadyAfter)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"audio_file":        name,
		"already_converted": false,
	})
}

func (s *Server) decodeRef(r *http.Request) {
	var ref pdfaudio.SummaryRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err == nil {
		s.SummaryRefs = append(s.SummaryRefs, ref)
	}
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	s.hit("/summarize")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decodeRef(r)
	if s.SummarizeError != "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": s.SummarizeError})
		return
	}
	if s.lastPage == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No text available to summarize"})
		return
	}
	s.summaries++
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "summary": s.Summary})
}

func (s *Server) handleSummaryAudio(w http.ResponseWriter, r *http.Request) {
	s.hit("/summary-audio")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decodeRef(r)
	if s.SummaryAudioError != "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": s.SummaryAudioError})
		return
	}
	if s.summaries == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No summary available to convert"})
		return
	}
	name := fmt.Sprintf("page_%d_%d_summary.mp3", s.lastPage, s.summaries)
	s.pending[name] = time.Time{}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "audio_file": name})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	s.hit("/audio")
	name := strings.TrimPrefix(r.URL.Path, "/audio/")

	s.mu.Lock()
	readyAt, ok := s.pending[name]
	s.mu.Unlock()

	if !ok || time.Now().Before(readyAt) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Audio file not found"})
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = w.Write([]byte("ID3" + name))
}
