package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/neilberkman/pagecast/internal/core/models"
)

// Document is an uploaded PDF with its request totals
type Document struct {
	SessionID    string
	Name         string
	Path         string
	Size         int64
	TempFilename string
	TotalPages   int
	ServerURL    string
	UploadedAt   time.Time
	Conversions  int
	Downloads    int
}

// Conversion is a stored conversion row
type Conversion struct {
	SessionID string
	Kind      models.ArtifactKind
	Page      int
	Artifact  string
	Outcome   models.Outcome
	Error     string
	Elapsed   time.Duration
	CreatedAt time.Time
}

// RecordUpload stores an accepted upload. Re-recording a session replaces it.
func (db *DB) RecordUpload(rec models.UploadRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO documents (session_id, name, path, size, mime, temp_filename, total_pages, server_url, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			temp_filename = excluded.temp_filename,
			total_pages = excluded.total_pages,
			uploaded_at = excluded.uploaded_at
	`, rec.SessionID, rec.Source.Name, rec.Source.Path, rec.Source.Size, rec.Source.MIME,
		rec.TempFilename, rec.TotalPages, rec.ServerURL, formatTime(rec.UploadedAt))
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

// RecordConversion stores the outcome of a page or summary-audio request
func (db *DB) RecordConversion(rec models.ConversionRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO conversions (session_id, kind, page, artifact, outcome, error, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.SessionID, rec.Kind.String(), rec.Page, rec.Artifact, string(rec.Outcome), rec.Error,
		rec.Elapsed.Milliseconds(), formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("record conversion: %w", err)
	}
	return nil
}

// RecordDownload stores a saved artifact
func (db *DB) RecordDownload(rec models.DownloadRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO downloads (session_id, kind, page, artifact, path, bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.SessionID, rec.Kind.String(), rec.Page, rec.Artifact, rec.Path, rec.Bytes, formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	return nil
}

// ListDocuments returns uploads newest first. A zero since returns everything.
func (db *DB) ListDocuments(since time.Time, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 50
	}
	cutoff := ""
	if !since.IsZero() {
		cutoff = formatTime(since)
	}

	rows, err := db.conn.Query(`
		SELECT
			d.session_id, d.name, COALESCE(d.path, ''), COALESCE(d.size, 0),
			d.temp_filename, d.total_pages, COALESCE(d.server_url, ''), d.uploaded_at,
			(SELECT COUNT(*) FROM conversions c WHERE c.session_id = d.session_id),
			(SELECT COUNT(*) FROM downloads w WHERE w.session_id = d.session_id)
		FROM documents d
		WHERE d.uploaded_at >= ?
		ORDER BY d.uploaded_at DESC
		LIMIT ?
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var d Document
		var uploadedAt string
		if err := rows.Scan(&d.SessionID, &d.Name, &d.Path, &d.Size, &d.TempFilename, &d.TotalPages,
			&d.ServerURL, &uploadedAt, &d.Conversions, &d.Downloads); err != nil {
			return nil, err
		}
		d.UploadedAt = parseTime(uploadedAt)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListConversions returns a session's requests in order
func (db *DB) ListConversions(sessionID string) ([]Conversion, error) {
	rows, err := db.conn.Query(`
		SELECT session_id, kind, page, COALESCE(artifact, ''), outcome, COALESCE(error, ''),
			COALESCE(elapsed_ms, 0), created_at
		FROM conversions
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Conversion
	for rows.Next() {
		var c Conversion
		var kind, outcome, createdAt string
		var elapsedMs int64
		if err := rows.Scan(&c.SessionID, &kind, &c.Page, &c.Artifact, &outcome, &c.Error, &elapsedMs, &createdAt); err != nil {
			return nil, err
		}
		if k, err := models.ParseArtifactKind(kind); err == nil {
			c.Kind = k
		}
		c.Outcome = models.Outcome(outcome)
		c.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		c.CreatedAt = parseTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ConvertedPages returns pages of an upload the server has already produced
// audio for, keyed by the server-side temp filename.
func (db *DB) ConvertedPages(tempFilename string) ([]int, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT c.page
		FROM conversions c
		JOIN documents d ON d.session_id = c.session_id
		WHERE d.temp_filename = ?
		  AND c.kind = ?
		  AND c.outcome IN (?, ?)
		ORDER BY c.page
	`, tempFilename, models.PageAudio.String(), string(models.OutcomeResolved), string(models.OutcomeCached))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var pages []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeleteDocument removes an upload and its history
func (db *DB) DeleteDocument(sessionID string) error {
	res, err := db.conn.Exec("DELETE FROM documents WHERE session_id = ?", sessionID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
