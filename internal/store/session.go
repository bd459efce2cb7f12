package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/drishti/internal/tracker"
)

// Session is a saved monitoring session. Times are Unix seconds.
type Session struct {
	ID               string                    `json:"id"`
	SessionID        string                    `json:"session_id"`
	UserID           string                    `json:"user_id"`
	StartTime        float64                   `json:"start_time"`
	EndTime          float64                   `json:"end_time"`
	DirectionChanges []tracker.DirectionChange `json:"direction_changes"`
	BlinkTimestamps  []float64                 `json:"blink_timestamps"`
	LightChanges     []tracker.LightChange     `json:"light_state_changes"`
	DistanceChanges  []tracker.DistanceChange  `json:"distance_changes"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// SessionRepository provides operations on saved sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, session_id, user_id, start_time, end_time,
	direction_changes, blink_timestamps, light_changes, distance_changes, created_at`

// Create inserts a session. An empty ID is filled with a new UUID.
func (r *SessionRepository) Create(sess *Session) error {
	return r.CreateContext(context.Background(), sess)
}

// CreateContext is Create bound to ctx.
func (r *SessionRepository) CreateContext(ctx context.Context, sess *Session) error {
	if sess.EndTime < sess.StartTime {
		return fmt.Errorf("session ends (%f) before it starts (%f)", sess.EndTime, sess.StartTime)
	}
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	sess.CreatedAt = time.Now()

	direction, err := marshalLog(sess.DirectionChanges)
	if err != nil {
		return err
	}
	blinks, err := marshalLog(sess.BlinkTimestamps)
	if err != nil {
		return err
	}
	light, err := marshalLog(sess.LightChanges)
	if err != nil {
		return err
	}
	distance, err := marshalLog(sess.DistanceChanges)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.SessionID, sess.UserID, sess.StartTime, sess.EndTime,
		direction, blinks, light, distance, sess.CreatedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// ListByUser returns the sessions of userID, newest first.
func (r *SessionRepository) ListByUser(userID string) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY start_time DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

// ListOverlapping returns the sessions of userID that overlap [start, end],
// oldest first.
func (r *SessionRepository) ListOverlapping(userID string, start, end float64) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = ? AND start_time <= ? AND end_time >= ?
		 ORDER BY start_time`,
		userID, end, start,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

// Delete removes a session by its ID.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var direction, blinks, light, distance string

	err := row.Scan(
		&sess.ID, &sess.SessionID, &sess.UserID, &sess.StartTime, &sess.EndTime,
		&direction, &blinks, &light, &distance, &sess.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(direction), &sess.DirectionChanges); err != nil {
		return nil, fmt.Errorf("decode direction changes: %w", err)
	}
	if err := json.Unmarshal([]byte(blinks), &sess.BlinkTimestamps); err != nil {
		return nil, fmt.Errorf("decode blink timestamps: %w", err)
	}
	if err := json.Unmarshal([]byte(light), &sess.LightChanges); err != nil {
		return nil, fmt.Errorf("decode light changes: %w", err)
	}
	if err := json.Unmarshal([]byte(distance), &sess.DistanceChanges); err != nil {
		return nil, fmt.Errorf("decode distance changes: %w", err)
	}

	return sess, nil
}

func scanSessions(rows *sql.Rows) ([]*Session, error) {
	sessions := []*Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// marshalLog encodes a change log, writing nil as an empty array.
func marshalLog[T any](entries []T) (string, error) {
	if entries == nil {
		entries = []T{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode log: %w", err)
	}
	return string(data), nil
}
