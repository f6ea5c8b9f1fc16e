package models

import "time"

// Outcome of a conversion or summary-audio request
type Outcome string

const (
	OutcomeResolved Outcome = "resolved"
	OutcomeCached   Outcome = "cached"
	OutcomeTimedOut Outcome = "timed_out"
	OutcomeFailed   Outcome = "failed"
)

// UploadRecord is one accepted upload
type UploadRecord struct {
	SessionID    string
	Source       SourceFile
	TempFilename string
	TotalPages   int
	ServerURL    string
	UploadedAt   time.Time
}

// ConversionRecord is one finished conversion request
type ConversionRecord struct {
	SessionID string
	Kind      ArtifactKind
	Page      int
	Artifact  string
	Outcome   Outcome
	Error     string
	Elapsed   time.Duration
	CreatedAt time.Time
}

// DownloadRecord is one saved artifact
type DownloadRecord struct {
	SessionID string
	Kind      ArtifactKind
	Page      int
	Artifact  string
	Path      string
	Bytes     int64
	CreatedAt time.Time
}
