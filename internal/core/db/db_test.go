package db

import (
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/neilberkman/pagecast/internal/core/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(tmpfile.Name()) })
	_ = tmpfile.Close()

	database, err := New(tmpfile.Name())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestNew(t *testing.T) {
	database := newTestDB(t)

	var count int
	err := database.conn.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name IN ('documents', 'conversions', 'downloads')
	`).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query schema: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 tables, got %d", count)
	}
}

func TestNew_WALMode(t *testing.T) {
	database := newTestDB(t)

	var journalMode string
	if err := database.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected WAL mode, got %s", journalMode)
	}
}

func TestNew_ForeignKeys(t *testing.T) {
	database := newTestDB(t)

	var fkEnabled int
	if err := database.conn.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("Failed to query foreign keys: %v", err)
	}
	if fkEnabled != 1 {
		t.Errorf("Expected foreign keys enabled (1), got %d", fkEnabled)
	}
}

func upload(t *testing.T, database *DB, id, name, temp string, at time.Time) {
	t.Helper()
	err := database.RecordUpload(models.UploadRecord{
		SessionID:    id,
		Source:       models.SourceFile{Path: "/tmp/" + name, Name: name, Size: 2048, MIME: "application/pdf"},
		TempFilename: temp,
		TotalPages:   4,
		ServerURL:    "http://localhost:5000",
		UploadedAt:   at,
	})
	if err != nil {
		t.Fatalf("RecordUpload() error = %v", err)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	database := newTestDB(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	upload(t, database, "s1", "a.pdf", "tmp_a.pdf", base)
	upload(t, database, "s2", "b.pdf", "tmp_b.pdf", base.Add(time.Hour))

	recs := []models.ConversionRecord{
		{SessionID: "s1", Kind: models.PageAudio, Page: 1, Artifact: "a_p1.mp3", Outcome: models.OutcomeResolved, Elapsed: 3 * time.Second, CreatedAt: base.Add(time.Minute)},
		{SessionID: "s1", Kind: models.PageAudio, Page: 1, Artifact: "a_p1.mp3", Outcome: models.OutcomeCached, CreatedAt: base.Add(2 * time.Minute)},
		{SessionID: "s1", Kind: models.PageAudio, Page: 3, Outcome: models.OutcomeTimedOut, Error: "Audio conversion timed out. Please try again.", CreatedAt: base.Add(3 * time.Minute)},
		{SessionID: "s1", Kind: models.SummaryAudio, Page: 1, Artifact: "summary_a.mp3", Outcome: models.OutcomeResolved, Elapsed: time.Second, CreatedAt: base.Add(4 * time.Minute)},
	}
	for _, rec := range recs {
		if err := database.RecordConversion(rec); err != nil {
			t.Fatalf("RecordConversion() error = %v", err)
		}
	}
	err := database.RecordDownload(models.DownloadRecord{
		SessionID: "s1", Kind: models.PageAudio, Page: 1, Artifact: "a_p1.mp3",
		Path: "/tmp/page_1_audio.mp3", Bytes: 1000, CreatedAt: base.Add(5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("RecordDownload() error = %v", err)
	}

	docs, err := database.ListDocuments(time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("ListDocuments() returned %d docs, want 2", len(docs))
	}
	if docs[0].SessionID != "s2" {
		t.Errorf("newest document = %s, want s2", docs[0].SessionID)
	}
	if docs[1].Conversions != 4 || docs[1].Downloads != 1 {
		t.Errorf("s1 totals = %d conversions, %d downloads", docs[1].Conversions, docs[1].Downloads)
	}
	if !docs[1].UploadedAt.Equal(base) {
		t.Errorf("UploadedAt = %v, want %v", docs[1].UploadedAt, base)
	}

	recent, err := database.ListDocuments(base.Add(30*time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].SessionID != "s2" {
		t.Errorf("ListDocuments(since) = %+v", recent)
	}

	convs, err := database.ListConversions("s1")
	if err != nil {
		t.Fatalf("ListConversions() error = %v", err)
	}
	if len(convs) != 4 {
		t.Fatalf("ListConversions() returned %d rows", len(convs))
	}
	if convs[0].Elapsed != 3*time.Second {
		t.Errorf("Elapsed = %v, want 3s", convs[0].Elapsed)
	}
	if convs[3].Kind != models.SummaryAudio {
		t.Errorf("Kind = %v, want summary", convs[3].Kind)
	}

	pages, err := database.ConvertedPages("tmp_a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0] != 1 {
		t.Errorf("ConvertedPages() = %v, want [1]", pages)
	}
}

func TestRecordUploadReplaces(t *testing.T) {
	database := newTestDB(t)
	now := time.Now()
	upload(t, database, "s1", "a.pdf", "tmp_old.pdf", now)
	upload(t, database, "s1", "a.pdf", "tmp_new.pdf", now)

	docs, err := database.ListDocuments(time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].TempFilename != "tmp_new.pdf" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	database := newTestDB(t)
	upload(t, database, "s1", "a.pdf", "tmp_a.pdf", time.Now())
	if err := database.RecordConversion(models.ConversionRecord{SessionID: "s1", Page: 1, Outcome: models.OutcomeFailed}); err != nil {
		t.Fatal(err)
	}

	if err := database.DeleteDocument("s1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	convs, err := database.ListConversions("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 0 {
		t.Errorf("conversions survived delete: %+v", convs)
	}
	if err := database.DeleteDocument("s1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second DeleteDocument() = %v, want sql.ErrNoRows", err)
	}
}

func TestConversionRequiresDocument(t *testing.T) {
	database := newTestDB(t)
	err := database.RecordConversion(models.ConversionRecord{SessionID: "missing", Page: 1, Outcome: models.OutcomeFailed})
	if err == nil {
		t.Error("RecordConversion() for unknown session succeeded, want foreign key error")
	}
}

func TestGetStats(t *testing.T) {
	database := newTestDB(t)

	stats, err := database.GetStats()
	if err != nil {
		t.Fatalf("GetStats() on empty db error = %v", err)
	}
	if stats.TotalDocuments != 0 || stats.BusiestDocument != "" {
		t.Errorf("empty stats = %+v", stats)
	}

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	upload(t, database, "s1", "a.pdf", "tmp_a.pdf", base)
	upload(t, database, "s2", "b.pdf", "tmp_b.pdf", base.Add(time.Hour))
	for _, rec := range []models.ConversionRecord{
		{SessionID: "s1", Page: 1, Outcome: models.OutcomeResolved, Elapsed: 2 * time.Second},
		{SessionID: "s1", Page: 2, Outcome: models.OutcomeResolved, Elapsed: 4 * time.Second},
		{SessionID: "s1", Page: 2, Outcome: models.OutcomeCached},
		{SessionID: "s2", Page: 1, Outcome: models.OutcomeTimedOut},
		{SessionID: "s1", Kind: models.SummaryAudio, Page: 2, Outcome: models.OutcomeFailed},
	} {
		if err := database.RecordConversion(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := database.RecordDownload(models.DownloadRecord{SessionID: "s1", Page: 1, Artifact: "x.mp3", Path: "/tmp/x.mp3", Bytes: 512}); err != nil {
		t.Fatal(err)
	}

	stats, err = database.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"TotalDocuments", stats.TotalDocuments, 2},
		{"TotalPages", stats.TotalPages, 8},
		{"TotalConversions", stats.TotalConversions, 5},
		{"Resolved", stats.Resolved, 2},
		{"Cached", stats.Cached, 1},
		{"TimedOut", stats.TimedOut, 1},
		{"Failed", stats.Failed, 1},
		{"SummaryAudio", stats.SummaryAudio, 1},
		{"TotalDownloads", stats.TotalDownloads, 1},
		{"DownloadedBytes", stats.DownloadedBytes, int64(512)},
		{"AverageWait", stats.AverageWait, 3 * time.Second},
		{"BusiestDocument", stats.BusiestDocument, "a.pdf"},
		{"BusiestCount", stats.BusiestCount, 4},
		{"OldestUpload", stats.OldestUpload.Equal(base), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}
