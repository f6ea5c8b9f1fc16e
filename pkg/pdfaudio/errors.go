package pdfaudio

import (
	"errors"
	"fmt"
)

// ServerError is a failure the server reported in its response body
type ServerError struct {
	Endpoint   string
	StatusCode int    // HTTP status of the response
	Message    string // Server-provided text, may be empty
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Endpoint)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

// TransportError is a request that never produced a usable response
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func serverError(endpoint string, status int, msg string) error {
	return &ServerError{Endpoint: endpoint, StatusCode: status, Message: msg}
}

// ServerMessage returns the server's own error text, if err carries one
func ServerMessage(err error) (string, bool) {
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message, true
	}
	return "", false
}
