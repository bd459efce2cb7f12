package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/store"
	"github.com/ayusman/drishti/internal/tracker"
)

var (
	// ErrUnknownSession is returned when saving a session that is not live.
	ErrUnknownSession = errors.New("unknown session")
	// ErrNoStore is returned when persistence is not configured.
	ErrNoStore = errors.New("session storage is not configured")
)

// SaveRequest asks for a live session to be persisted and ended.
type SaveRequest struct {
	SessionID string
	UserID    string
	// StartTime overrides the recorded start, in Unix seconds, when positive.
	StartTime float64
}

// SaveSession persists the logs of a live session and removes it from the
// registry. The active distance interval is closed at the current time.
func (a *App) SaveSession(ctx context.Context, req SaveRequest) (*store.Session, error) {
	if a.config.Store == nil {
		return nil, ErrNoStore
	}

	id := req.SessionID
	if id == "" {
		id = DefaultSessionID
	}
	sess, ok := a.sessions.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	sess.SetUserID(req.UserID)

	now := a.now()
	snap := sess.Finish(now)

	saved := &store.Session{
		SessionID:        snap.SessionID,
		UserID:           snap.UserID,
		StartTime:        snap.StartTime,
		EndTime:          tracker.Seconds(now),
		DirectionChanges: snap.DirectionChanges,
		BlinkTimestamps:  snap.BlinkTimestamps,
		LightChanges:     snap.LightChanges,
		DistanceChanges:  snap.DistanceChanges,
	}
	if req.StartTime > 0 && req.StartTime <= saved.EndTime {
		saved.StartTime = req.StartTime
	}

	if err := a.config.Store.Sessions().CreateContext(ctx, saved); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	a.sessions.Remove(id)

	a.logger.Info("session saved",
		zap.String("session_id", id),
		zap.String("id", saved.ID),
		zap.String("user_id", saved.UserID),
		zap.Int("blinks", len(saved.BlinkTimestamps)))
	return saved, nil
}
