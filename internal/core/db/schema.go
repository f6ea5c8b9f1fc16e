package db

func (db *DB) initSchema() error {
	schema := `
	-- Uploaded documents, one row per session
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		path TEXT,
		size INTEGER,
		mime TEXT,
		temp_filename TEXT NOT NULL,
		total_pages INTEGER NOT NULL,
		server_url TEXT,
		uploaded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at);

	-- Conversion and summary-audio requests
	CREATE TABLE IF NOT EXISTS conversions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		page INTEGER NOT NULL,
		artifact TEXT,
		outcome TEXT NOT NULL,
		error TEXT,
		elapsed_ms INTEGER,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES documents(session_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_conversions_session_id ON conversions(session_id);
	CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions(created_at);

	-- Artifacts saved to disk
	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		page INTEGER NOT NULL,
		artifact TEXT NOT NULL,
		path TEXT NOT NULL,
		bytes INTEGER,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES documents(session_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_session_id ON downloads(session_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}
