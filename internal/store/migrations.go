package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Recipient tokens - push notification targets per user
		`CREATE TABLE IF NOT EXISTS recipient_tokens (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Sessions - saved monitoring sessions with their change logs as JSON
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			user_id TEXT NOT NULL DEFAULT '',
			start_time REAL NOT NULL,
			end_time REAL NOT NULL,
			direction_changes TEXT NOT NULL DEFAULT '[]',
			blink_timestamps TEXT NOT NULL DEFAULT '[]',
			light_changes TEXT NOT NULL DEFAULT '[]',
			distance_changes TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CHECK (end_time >= start_time)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_recipient_tokens_user_id ON recipient_tokens(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_start ON sessions(user_id, start_time)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
