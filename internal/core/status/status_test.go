package status

import (
	"testing"
	"time"
)

func TestLineVisible(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		line  Line
		after time.Duration
		want  bool
	}{
		{"zero value hidden", Line{}, 0, false},
		{"info persists", New("Uploading PDF...", Info, base), time.Hour, true},
		{"error persists", New("Upload failed.", Error, base), time.Hour, true},
		{"success visible before ttl", New("PDF uploaded successfully!", Success, base), 4999 * time.Millisecond, true},
		{"success gone at ttl", New("PDF uploaded successfully!", Success, base), 5 * time.Second, false},
		{"explicitly hidden", New("Processing page...", Info, base).Hide(), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.line.Visible(base.Add(tt.after), DefaultSuccessTTL); got != tt.want {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLineExpiresAt(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if got := New("done", Success, base).ExpiresAt(0); !got.Equal(base.Add(DefaultSuccessTTL)) {
		t.Errorf("ExpiresAt() = %v, want %v", got, base.Add(DefaultSuccessTTL))
	}
	if got := New("oops", Error, base).ExpiresAt(time.Second); !got.IsZero() {
		t.Errorf("ExpiresAt() for error = %v, want zero", got)
	}
}
