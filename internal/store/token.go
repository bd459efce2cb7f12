package store

import (
	"database/sql"
	"errors"
	"time"
)

// Token is a push notification target registered for a user.
type Token struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenRepository provides operations on recipient tokens.
type TokenRepository struct {
	db *sql.DB
}

// Tokens returns the token repository for this store.
func (s *Store) Tokens() *TokenRepository {
	return &TokenRepository{db: s.db}
}

// Register stores token for userID. Registering a known token moves it to userID.
func (r *TokenRepository) Register(userID, token string) error {
	now := time.Now()
	_, err := r.db.Exec(
		`INSERT INTO recipient_tokens (token, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, updated_at = excluded.updated_at`,
		token, userID, now, now,
	)
	return err
}

// Get retrieves a token record.
func (r *TokenRepository) Get(token string) (*Token, error) {
	t := &Token{}
	err := r.db.QueryRow(
		`SELECT token, user_id, created_at, updated_at FROM recipient_tokens WHERE token = ?`,
		token,
	).Scan(&t.Token, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListByUser returns the tokens registered for userID, oldest first.
func (r *TokenRepository) ListByUser(userID string) ([]string, error) {
	rows, err := r.db.Query(
		`SELECT token FROM recipient_tokens WHERE user_id = ? ORDER BY created_at, token`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTokens(rows)
}

// ListAll returns every registered token.
func (r *TokenRepository) ListAll() ([]string, error) {
	rows, err := r.db.Query(`SELECT token FROM recipient_tokens ORDER BY created_at, token`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTokens(rows)
}

// List returns all token records.
func (r *TokenRepository) List() ([]*Token, error) {
	rows, err := r.db.Query(
		`SELECT token, user_id, created_at, updated_at FROM recipient_tokens ORDER BY user_id, created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*Token
	for rows.Next() {
		t := &Token{}
		if err := rows.Scan(&t.Token, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// Delete removes a token.
func (r *TokenRepository) Delete(token string) error {
	result, err := r.db.Exec(`DELETE FROM recipient_tokens WHERE token = ?`, token)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTokens(rows *sql.Rows) ([]string, error) {
	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
