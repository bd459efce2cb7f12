// Package app provides the monitoring service behind the HTTP API: it owns
// the live sessions, runs frames through detection and the signal trackers,
// and hands threshold crossings to the notification gate.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/detector"
	"github.com/ayusman/drishti/internal/notify"
	"github.com/ayusman/drishti/internal/store"
	"github.com/ayusman/drishti/internal/tracker"
)

// Defaults applied by New for zero Config values.
const (
	DefaultDetectTimeout  = 5 * time.Second
	DefaultNotifyTimeout  = 10 * time.Second
	DefaultSessionIdleTTL = 30 * time.Minute
	DefaultSweepInterval  = time.Minute
)

// CooldownPruner drops stale cooldown entries. notify.MemoryStore implements it.
type CooldownPruner interface {
	Forget(maxAge time.Duration, now time.Time) int
}

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store
	// Detector is used as is when set. Otherwise New tries MediaPipe with
	// DetectorConfig and falls back to a mock detector that never sees a face.
	Detector       detector.Detector
	DetectorConfig detector.Config
	// Gate receives alerts. Nil disables notifications.
	Gate *notify.Gate
	// Cooldowns is pruned by the sweeper when set.
	Cooldowns CooldownPruner
	Logger    *zap.Logger

	DetectTimeout  time.Duration
	NotifyTimeout  time.Duration
	SessionIdleTTL time.Duration
	SweepInterval  time.Duration
	// Retention caps each change log of a session.
	Retention int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// App is the monitoring service.
type App struct {
	config   Config
	detector detector.Detector
	sessions *Registry
	logger   *zap.Logger
	now      func() time.Time
	started  time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	loops  sync.WaitGroup
	// dispatches tracks in-flight notification goroutines.
	dispatches sync.WaitGroup
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.DetectTimeout <= 0 {
		config.DetectTimeout = DefaultDetectTimeout
	}
	if config.NotifyTimeout <= 0 {
		config.NotifyTimeout = DefaultNotifyTimeout
	}
	if config.SessionIdleTTL <= 0 {
		config.SessionIdleTTL = DefaultSessionIdleTTL
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultSweepInterval
	}
	if config.Retention <= 0 {
		config.Retention = tracker.DefaultRetention
	}

	a := &App{
		config:   config,
		detector: config.Detector,
		sessions: NewRegistry(config.Retention),
		logger:   config.Logger,
		now:      config.Now,
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.started = a.now()

	if a.detector == nil {
		// Try MediaPipe first, fall back to mock detector
		if mp, err := detector.NewMediaPipeDetector(config.DetectorConfig); err == nil {
			a.detector = mp
			a.logger.Info("using MediaPipe face mesh detection")
		} else {
			a.logger.Warn("MediaPipe not available, using mock detector", zap.Error(err))
			a.detector = detector.NewMockDetector()
		}
	}

	return a
}

// Start launches the session sweeper. It stops when ctx is done or Stop is called.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.cancel != nil {
		return
	}

	ctx, a.cancel = context.WithCancel(ctx)
	a.loops.Add(1)
	go func() {
		defer a.loops.Done()
		a.runSweeper(ctx)
	}()

	a.logger.Info("session sweeper started",
		zap.Duration("idle_ttl", a.config.SessionIdleTTL),
		zap.Duration("interval", a.config.SweepInterval))
}

// Stop halts the sweeper, waits for pending notifications and releases the detector.
func (a *App) Stop() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()

	a.loops.Wait()
	a.dispatches.Wait()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.logger.Error("error closing detector", zap.Error(err))
		}
	}

	a.logger.Info("monitor stopped")
}

func (a *App) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(a.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep()
		}
	}
}

// Sweep evicts idle sessions and stale cooldowns once.
func (a *App) Sweep() int {
	now := a.now()
	removed := a.sessions.Sweep(a.config.SessionIdleTTL, now)
	if removed > 0 {
		a.logger.Info("evicted idle sessions",
			zap.Int("removed", removed),
			zap.Int("remaining", a.sessions.Len()))
	}
	if a.config.Cooldowns != nil {
		a.config.Cooldowns.Forget(a.config.SessionIdleTTL, now)
	}
	return removed
}

// Sessions returns the live session registry.
func (a *App) Sessions() *Registry {
	return a.sessions
}

// SessionCount returns the number of live sessions.
func (a *App) SessionCount() int {
	return a.sessions.Len()
}

// Uptime returns how long the app has been running.
func (a *App) Uptime() time.Duration {
	return a.now().Sub(a.started)
}

// Detector returns the face landmark detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}

// alertKinds maps tracker alerts to notification kinds.
var alertKinds = map[tracker.Alert]notify.Kind{
	tracker.AlertLookAway: notify.KindLookAway,
	tracker.AlertDistance: notify.KindDistance,
	tracker.AlertBlink:    notify.KindBlink,
}

// dispatch fires alerts off the request path.
func (a *App) dispatch(sess *tracker.Session, alerts []tracker.Alert, now time.Time) {
	if a.config.Gate == nil || len(alerts) == 0 {
		return
	}

	userID := sess.UserID()
	for _, alert := range alerts {
		kind, ok := alertKinds[alert]
		if !ok {
			continue
		}

		a.dispatches.Add(1)
		go func() {
			defer a.dispatches.Done()

			ctx, cancel := context.WithTimeout(context.Background(), a.config.NotifyTimeout)
			defer cancel()

			err := a.config.Gate.Fire(ctx, sess.ID(), userID, kind, now)
			switch {
			case err == nil:
			case errors.Is(err, notify.ErrCooldown):
				a.logger.Debug("notification suppressed by cooldown",
					zap.String("session_id", sess.ID()),
					zap.String("kind", string(kind)))
			default:
				a.logger.Warn("notification failed",
					zap.String("session_id", sess.ID()),
					zap.String("kind", string(kind)),
					zap.Error(err))
			}
		}()
	}
}

// WaitNotifications blocks until every dispatched notification has finished.
func (a *App) WaitNotifications() {
	a.dispatches.Wait()
}

// TokenRecipients resolves alert recipients from the token table: the user's
// tokens, or every token when the session has no user.
func TokenRecipients(st *store.Store) notify.Recipients {
	return func(ctx context.Context, userID string) ([]string, error) {
		if userID == "" {
			return st.Tokens().ListAll()
		}
		return st.Tokens().ListByUser(userID)
	}
}
