package session

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Spinner shows a spinning animation with a message that can change while
// a flow is waiting on the server
type Spinner struct {
	writer io.Writer

	mu      sync.Mutex
	message string
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner creates a spinner writing to stderr
func NewSpinner(message string) *Spinner {
	return NewSpinnerTo(os.Stderr, message)
}

// NewSpinnerTo creates a spinner writing to w
func NewSpinnerTo(w io.Writer, message string) *Spinner {
	return &Spinner{writer: w, message: message}
}

// SetMessage replaces the text next to the spinner
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Start begins the animation. Calling Start on a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i = (i + 1) % len(frames) {
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			_, _ = fmt.Fprintf(s.writer, "\r\033[K%s %s", frames[i], msg)

			select {
			case <-stop:
				_, _ = fmt.Fprintf(s.writer, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the animation and clears the line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
