package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxUploadBytes is the largest PDF the server accepts (16 MiB)
const DefaultMaxUploadBytes int64 = 16 * 1024 * 1024

// SourceFile is a local PDF chosen for upload
type SourceFile struct {
	Path string
	Name string // Base name sent to the server as "filename"
	Size int64
	MIME string // Sniffed from content, not from the extension
}

// ValidationError is a local rejection of a file. No network call is made.
type ValidationError struct {
	Message    string // Status line text
	FileStatus string // Short label shown next to the file name
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Inspect stats the file and sniffs its content type
func Inspect(path string) (SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SourceFile{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return SourceFile{}, fmt.Errorf("%s is a directory", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return SourceFile{}, fmt.Errorf("failed to detect file type: %w", err)
	}

	return SourceFile{
		Path: path,
		Name: filepath.Base(path),
		Size: info.Size(),
		MIME: mt.String(),
	}, nil
}

// Validate checks type and size. A zero maxBytes means DefaultMaxUploadBytes.
func (f SourceFile) Validate(maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if !strings.Contains(strings.ToLower(f.MIME), "pdf") {
		return &ValidationError{
			Message:    "Please select a valid PDF file.",
			FileStatus: "Invalid file type",
		}
	}
	if f.Size > maxBytes {
		return &ValidationError{
			Message:    fmt.Sprintf("File too large. Max %s.", humanize.IBytes(uint64(maxBytes))),
			FileStatus: "File too large",
		}
	}
	return nil
}

// IsValidationError reports whether err is a local validation rejection
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
