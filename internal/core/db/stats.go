package db

import (
	"database/sql"
	"time"
)

// Stats represents database statistics
type Stats struct {
	TotalDocuments   int
	TotalPages       int
	TotalConversions int
	Resolved         int
	Cached           int
	TimedOut         int
	Failed           int
	SummaryAudio     int
	TotalDownloads   int
	DownloadedBytes  int64
	AverageWait      time.Duration
	OldestUpload     time.Time
	NewestUpload     time.Time
	BusiestDocument  string
	BusiestCount     int
}

// GetStats returns comprehensive database statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := db.QueryRow("SELECT COUNT(*), COALESCE(SUM(total_pages), 0) FROM documents").
		Scan(&stats.TotalDocuments, &stats.TotalPages)
	if err != nil {
		return nil, err
	}

	// Outcome breakdown
	rows, err := db.conn.Query("SELECT kind, outcome, COUNT(*) FROM conversions GROUP BY kind, outcome")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var kind, outcome string
		var n int
		if err := rows.Scan(&kind, &outcome, &n); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.TotalConversions += n
		if kind == "summary" {
			stats.SummaryAudio += n
		}
		switch outcome {
		case "resolved":
			stats.Resolved += n
		case "cached":
			stats.Cached += n
		case "timed_out":
			stats.TimedOut += n
		case "failed":
			stats.Failed += n
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// Average wait only counts conversions that actually polled
	var avgMs sql.NullFloat64
	err = db.QueryRow("SELECT AVG(elapsed_ms) FROM conversions WHERE outcome = 'resolved'").Scan(&avgMs)
	if err != nil {
		return nil, err
	}
	if avgMs.Valid {
		stats.AverageWait = time.Duration(avgMs.Float64) * time.Millisecond
	}

	err = db.QueryRow("SELECT COUNT(*), COALESCE(SUM(bytes), 0) FROM downloads").
		Scan(&stats.TotalDownloads, &stats.DownloadedBytes)
	if err != nil {
		return nil, err
	}

	if stats.TotalDocuments > 0 {
		var oldest, newest sql.NullString
		err = db.QueryRow("SELECT MIN(uploaded_at), MAX(uploaded_at) FROM documents").Scan(&oldest, &newest)
		if err != nil {
			return nil, err
		}
		if oldest.Valid {
			stats.OldestUpload = parseTime(oldest.String)
		}
		if newest.Valid {
			stats.NewestUpload = parseTime(newest.String)
		}

		var busiest sql.NullString
		err = db.QueryRow(`
			SELECT d.name, COUNT(c.id) as count
			FROM documents d
			JOIN conversions c ON c.session_id = d.session_id
			GROUP BY d.name
			ORDER BY count DESC
			LIMIT 1
		`).Scan(&busiest, &stats.BusiestCount)

		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}

		if busiest.Valid {
			stats.BusiestDocument = busiest.String
		}
	}

	return stats, nil
}
