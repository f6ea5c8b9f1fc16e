package controller

import (
	"errors"

	"github.com/neilberkman/pagecast/pkg/pdfaudio"
)

// Kind classifies a flow failure
type Kind int

const (
	Validation Kind = iota
	Upload
	Conversion
	Summary
	AudioGeneration
)

func (k Kind) String() string {
	return [...]string{"validation", "upload", "conversion", "summary", "audio_generation"}[k]
}

// Error is a terminal flow failure. Message is what the user sees; Err keeps
// the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrSuperseded is returned by a flow whose token was invalidated by a newer
// flow, a new file, or a reset. It never reaches the status line.
var ErrSuperseded = errors.New("superseded by a newer request")

// IsKind reports whether err is a flow failure of kind k
func IsKind(err error, k Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == k
}

// userMessage picks the status text for a failed request: the server's own
// message, the fallback when the server gave none, or the generic network
// text when no response arrived.
func userMessage(err error, fallback, network string) string {
	if msg, ok := pdfaudio.ServerMessage(err); ok {
		return msg
	}
	var se *pdfaudio.ServerError
	if errors.As(err, &se) {
		return fallback
	}
	return network
}
