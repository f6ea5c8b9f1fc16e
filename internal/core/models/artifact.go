package models

import "fmt"

// ArtifactKind distinguishes page audio from summary audio
type ArtifactKind int

const (
	PageAudio ArtifactKind = iota
	SummaryAudio
)

func (k ArtifactKind) String() string {
	switch k {
	case SummaryAudio:
		return "summary"
	default:
		return "page"
	}
}

// ParseArtifactKind accepts "page" or "summary"
func ParseArtifactKind(s string) (ArtifactKind, error) {
	switch s {
	case "", "page":
		return PageAudio, nil
	case "summary":
		return SummaryAudio, nil
	}
	return PageAudio, fmt.Errorf("unknown artifact kind %q (want page or summary)", s)
}

// Artifact is a server-produced audio file
type Artifact struct {
	Name  string // Server filename under /audio/
	Page  int    // Page it was produced for
	Stamp int64  // Cache-busting value captured when the artifact was confirmed
}

// IsZero reports whether no artifact is held
func (a Artifact) IsZero() bool {
	return a.Name == ""
}

// DownloadName is the local filename for a download. It is built from the
// selected page, not from the server's artifact name.
func DownloadName(kind ArtifactKind, page int) string {
	if kind == SummaryAudio {
		return fmt.Sprintf("page_%d_summary_audio.mp3", page)
	}
	return fmt.Sprintf("page_%d_audio.mp3", page)
}
