// Package status models the single user-facing status line.
package status

import "time"

// DefaultSuccessTTL is how long a success message stays visible
const DefaultSuccessTTL = 5 * time.Second

// Severity of a status message
type Severity int

const (
	Info Severity = iota
	Success
	Error
)

func (s Severity) String() string {
	switch s {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Line is the current status message. The zero value is hidden.
type Line struct {
	Message  string
	Severity Severity
	SetAt    time.Time
	Hidden   bool
}

// New returns a visible line stamped at now
func New(msg string, sev Severity, now time.Time) Line {
	return Line{Message: msg, Severity: sev, SetAt: now}
}

// Hide returns a hidden copy of the line
func (l Line) Hide() Line {
	l.Hidden = true
	return l
}

// Visible reports whether the line should be shown at now. Success lines
// expire after ttl; info and error lines stay until replaced or hidden.
func (l Line) Visible(now time.Time, ttl time.Duration) bool {
	if l.Hidden || l.Message == "" {
		return false
	}
	if l.Severity == Success {
		if ttl <= 0 {
			ttl = DefaultSuccessTTL
		}
		return now.Sub(l.SetAt) < ttl
	}
	return true
}

// ExpiresAt returns when a success line disappears, or the zero time for
// lines that do not expire.
func (l Line) ExpiresAt(ttl time.Duration) time.Time {
	if l.Severity != Success || l.Hidden {
		return time.Time{}
	}
	if ttl <= 0 {
		ttl = DefaultSuccessTTL
	}
	return l.SetAt.Add(ttl)
}
