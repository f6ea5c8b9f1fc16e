package cli

import (
	"testing"
	"time"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 5, 14, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"empty", "", time.Time{}, false},
		{"iso date", "2026-01-02", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), false},
		{"slashes", "2026/03/04", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339", "2026-05-01T10:00:00Z", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), false},
		{"garbage", "not a date at all", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSince(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSince(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("parseSince(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSince_NaturalLanguage(t *testing.T) {
	now := time.Date(2026, 5, 14, 15, 0, 0, 0, time.UTC)

	got, err := parseSince("yesterday", now)
	if err != nil {
		t.Fatalf("parseSince(yesterday) error = %v", err)
	}
	if !got.Before(now) || now.Sub(got) > 48*time.Hour {
		t.Errorf("parseSince(yesterday) = %v, want about a day before %v", got, now)
	}
}
